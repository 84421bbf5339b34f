package cryptox

import "errors"

var (
	// ErrConfiguration means the engine cannot be built from the supplied secret.
	ErrConfiguration = errors.New("encryption configuration error")

	// ErrEngineUnavailable is returned by every call on an engine that failed to initialize.
	ErrEngineUnavailable = errors.New("encryption engine unavailable")

	// ErrIntegrity means the token failed authentication: it was tampered with,
	// corrupted, or produced under a different key.
	ErrIntegrity = errors.New("ciphertext integrity check failed")

	// ErrFormat means the stored text is not a well-formed token.
	ErrFormat = errors.New("malformed ciphertext")
)
