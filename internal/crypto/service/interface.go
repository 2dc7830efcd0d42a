// Package service provides the symmetric encryption primitives of the
// envelope encryption layer: the composite-keyset AES-256-GCM cipher, the
// field-level document codec, and the optional KMS unwrap of the KEK.
package service

// Cipher defines the symmetric encryption primitives over the composite
// "<key>.<iv>" keyset format shared by the KEK and all DEKs.
type Cipher interface {
	// GenerateKeyset produces a fresh composite keyset from a cryptographic RNG.
	GenerateKeyset() (string, error)

	// Encrypt runs AES-256-GCM over plaintext with the keyset's fixed nonce
	// and returns the ciphertext (including the auth tag) hex-encoded.
	// Encryption is deterministic for a given keyset.
	Encrypt(plaintext, keyset string) (string, error)

	// Decrypt is the inverse of Encrypt. It fails with ErrCryptoFailure when
	// the auth tag does not verify.
	Decrypt(cipherHex, keyset string) (string, error)
}
