// Package cryptox holds the at-rest encryption engine for snippet contents
// and the password hashing used for user accounts and share links.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/dmitrijs2005/snippetvault/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// SecretLength is the exact operator secret length the engine accepts.
	SecretLength = 32

	// LegacyPlaintextPrefix marks rows written before encryption was enabled.
	LegacyPlaintextPrefix = "mock_encrypted:"

	kdfIterations = 100_000
	keyLength     = 32

	tokenVersion = 0x01
	headerSize   = 1 + 8
	nonceSize    = 12
)

// kdfSalt is fixed so the key can be re-derived after a restart without being
// persisted. It offers no protection against precomputation on the operator
// secret itself. Changing it, or kdfIterations, invalidates every stored token.
var kdfSalt = []byte("securecode_vault_salt")

// Cipher encrypts and decrypts snippet text. *Engine and Unavailable implement it.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(token string) (string, error)
}

// Engine is an AES-256-GCM token codec keyed from the operator secret.
// It is immutable after NewEngine and safe for concurrent use.
//
// Token layout before the outer URL-safe base64 wrapping:
//
//	version(1) | unix seconds, big endian(8) | nonce(12) | ciphertext+tag
//
// The version byte and timestamp are authenticated as additional data.
type Engine struct {
	aead cipher.AEAD
	now  func() time.Time
}

// NewEngine derives the key from secret and builds the engine. It fails with
// ErrConfiguration unless secret is exactly SecretLength characters long.
func NewEngine(secret string) (*Engine, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: encryption key is not set", ErrConfiguration)
	}
	if len(secret) != SecretLength {
		return nil, fmt.Errorf("%w: encryption key must be exactly %d characters, got %d",
			ErrConfiguration, SecretLength, len(secret))
	}

	key := deriveKey(secret)
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return &Engine{aead: aead, now: time.Now}, nil
}

func deriveKey(secret string) []byte {
	return pbkdf2.Key([]byte(secret), kdfSalt, kdfIterations, keyLength, sha256.New)
}

// Encrypt seals plaintext under a fresh random nonce and returns the
// URL-safe textual token.
func (e *Engine) Encrypt(plaintext string) (string, error) {
	buf := make([]byte, headerSize+nonceSize, headerSize+nonceSize+len(plaintext)+e.aead.Overhead())
	buf[0] = tokenVersion
	binary.BigEndian.PutUint64(buf[1:headerSize], uint64(e.now().Unix()))

	nonce := buf[headerSize : headerSize+nonceSize]
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}

	out := e.aead.Seal(buf, nonce, []byte(plaintext), buf[:headerSize])
	return base64.URLEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. It returns ErrFormat for text that is not a
// token at all and ErrIntegrity for a token that fails authentication.
func (e *Engine) Decrypt(token string) (string, error) {
	raw, err := e.open(token)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// IssuedAt reports the creation time embedded in an authentic token.
func (e *Engine) IssuedAt(token string) (time.Time, error) {
	raw, err := decodeToken(token)
	if err != nil {
		return time.Time{}, err
	}
	if len(raw) < headerSize+nonceSize+e.aead.Overhead() {
		return time.Time{}, ErrFormat
	}
	if _, err := e.open(token); err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(binary.BigEndian.Uint64(raw[1:headerSize])), 0).UTC(), nil
}

// decodeToken rejects non-canonical encodings. Text that only decodes when
// the unused trailing bits are ignored was altered after Encrypt and is
// reported as ErrIntegrity.
func decodeToken(token string) ([]byte, error) {
	raw, err := base64.URLEncoding.Strict().DecodeString(token)
	if err == nil {
		return raw, nil
	}
	if _, lerr := base64.URLEncoding.DecodeString(token); lerr == nil {
		return nil, ErrIntegrity
	}
	return nil, ErrFormat
}

func (e *Engine) open(token string) ([]byte, error) {
	raw, err := decodeToken(token)
	if err != nil {
		return nil, err
	}
	if len(raw) < headerSize+nonceSize+e.aead.Overhead() {
		return nil, ErrFormat
	}
	if raw[0] != tokenVersion {
		return nil, ErrIntegrity
	}

	nonce := raw[headerSize : headerSize+nonceSize]
	plaintext, err := e.aead.Open(nil, nonce, raw[headerSize+nonceSize:], raw[:headerSize])
	if err != nil {
		return nil, ErrIntegrity
	}
	return plaintext, nil
}

// Unavailable stands in for an engine that could not be initialized. Every
// call fails with ErrEngineUnavailable; nothing is ever stored in the clear.
type Unavailable struct {
	Reason error
}

func (u Unavailable) Encrypt(string) (string, error) { return "", u.err() }
func (u Unavailable) Decrypt(string) (string, error) { return "", u.err() }

func (u Unavailable) err() error {
	if u.Reason == nil {
		return ErrEngineUnavailable
	}
	return fmt.Errorf("%w: %v", ErrEngineUnavailable, u.Reason)
}
