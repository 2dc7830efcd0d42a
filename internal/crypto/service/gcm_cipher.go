package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	cryptoDomain "github.com/allisson/flexauth/internal/crypto/domain"
	"github.com/allisson/flexauth/internal/errors"
)

// GCMCipher implements Cipher using AES-256-GCM over composite keysets.
//
// The nonce is part of the keyset and therefore reused across every
// encryption with that keyset. This weakens GCM's guarantees but makes
// encryption deterministic for a fixed keyset, which the DEK store and the
// session store rely on for ciphertext-equality lookups. Moving to random
// nonces would require a keyed-MAC lookup index and a migration of all
// stored ciphertexts.
//
// The cipher is stateless and safe for concurrent use.
type GCMCipher struct{}

// NewGCMCipher creates a new GCMCipher instance.
func NewGCMCipher() *GCMCipher {
	return &GCMCipher{}
}

// GenerateKeyset produces a fresh "<hex32>.<hex12>" composite keyset. The
// hex characters themselves (not the decoded bytes) are the key material.
func (g *GCMCipher) GenerateKeyset() (string, error) {
	keyBytes := make([]byte, cryptoDomain.KeyLength/2)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}

	ivBytes := make([]byte, cryptoDomain.IVLength/2)
	if _, err := rand.Read(ivBytes); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	return hex.EncodeToString(keyBytes) + "." + hex.EncodeToString(ivBytes), nil
}

// Encrypt encrypts plaintext under the keyset and returns the hex-encoded
// ciphertext with the 16-byte auth tag appended.
func (g *GCMCipher) Encrypt(plaintext, keyset string) (string, error) {
	aead, ks, err := g.newAEAD(keyset)
	if err != nil {
		return "", err
	}

	sealed := aead.Seal(nil, ks.IV, []byte(plaintext), nil)
	return hex.EncodeToString(sealed), nil
}

// Decrypt decrypts a hex-encoded ciphertext produced by Encrypt.
func (g *GCMCipher) Decrypt(cipherHex, keyset string) (string, error) {
	aead, ks, err := g.newAEAD(keyset)
	if err != nil {
		return "", err
	}

	sealed, err := hex.DecodeString(cipherHex)
	if err != nil {
		return "", errors.Wrap(errors.ErrCryptoFailure, "ciphertext is not valid hex")
	}

	plaintext, err := aead.Open(nil, ks.IV, sealed, nil)
	if err != nil {
		return "", errors.Wrap(errors.ErrCryptoFailure, "auth tag verification failed")
	}

	return string(plaintext), nil
}

// newAEAD parses the keyset and builds the GCM instance for it.
func (g *GCMCipher) newAEAD(keyset string) (cipher.AEAD, cryptoDomain.Keyset, error) {
	ks, err := cryptoDomain.ParseKeyset(keyset)
	if err != nil {
		return nil, cryptoDomain.Keyset{}, err
	}

	block, err := aes.NewCipher(ks.Key)
	if err != nil {
		return nil, cryptoDomain.Keyset{}, errors.Wrap(errors.ErrCryptoFailure, err.Error())
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, cryptoDomain.Keyset{}, errors.Wrap(errors.ErrCryptoFailure, err.Error())
	}

	return aead, ks, nil
}
