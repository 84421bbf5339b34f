// Package cryptoxtest provides the cipher test double used across service
// and handler tests.
package cryptoxtest

import (
	"strings"

	"github.com/dmitrijs2005/snippetvault/internal/cryptox"
)

// Prefix is prepended to plaintext by PrefixCipher.
const Prefix = "encrypted:"

// PrefixCipher honors the cryptox.Cipher round-trip contract without any
// cryptography, so stored values stay readable in test assertions.
type PrefixCipher struct{}

func (PrefixCipher) Encrypt(plaintext string) (string, error) {
	return Prefix + plaintext, nil
}

func (PrefixCipher) Decrypt(token string) (string, error) {
	if !strings.HasPrefix(token, Prefix) {
		return "", cryptox.ErrFormat
	}
	return strings.TrimPrefix(token, Prefix), nil
}

var _ cryptox.Cipher = PrefixCipher{}
