package service

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/allisson/flexauth/internal/errors"
	"github.com/allisson/flexauth/internal/validation"
)

// Argon2id parameters. These match the defaults the existing credentials
// were produced with and cannot change without invalidating every stored
// credential.
const (
	argonTime    = 2
	argonMemory  = 19456 // KiB
	argonThreads = 1
	argonKeyLen  = 32
	saltLen      = 16
)

// Argon2PasswordService implements PasswordService.
//
// Credential construction:
//  1. random 16-byte salt, base64-encoded without padding
//  2. argon2id(password, salt) rendered as a PHC string
//  3. sha256 of the PHC string as a lowercase hex digest
//  4. stored credential = "<sha256_hex>.<salt_b64>"
//
// The extra sha256 step fixes the credential length and strips the
// parameter header before the value is field-encrypted and persisted.
type Argon2PasswordService struct{}

// NewArgon2PasswordService creates a new password service.
func NewArgon2PasswordService() *Argon2PasswordService {
	return &Argon2PasswordService{}
}

// ValidatePolicy checks length >= 8 with at least one letter and one digit.
func (s *Argon2PasswordService) ValidatePolicy(password string) error {
	if !validation.ValidPassword(password) {
		return errors.Wrap(
			errors.ErrInvalidPassword,
			"password must be at least 8 characters with at least one letter and one digit",
		)
	}
	return nil
}

// Hash produces the stored credential with a fresh random salt.
func (s *Argon2PasswordService) Hash(password string) (string, error) {
	saltBytes := make([]byte, saltLen)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	salt := base64.RawStdEncoding.EncodeToString(saltBytes)
	return s.hashWithSalt(password, salt)
}

// Verify splits the stored credential on the last "." and recomputes the
// digest with the embedded salt, comparing in constant time.
func (s *Argon2PasswordService) Verify(password, credential string) bool {
	idx := strings.LastIndex(credential, ".")
	if idx < 0 {
		return false
	}
	digest, salt := credential[:idx], credential[idx+1:]

	recomputed, err := s.hashWithSalt(password, salt)
	if err != nil {
		return false
	}
	recomputedDigest := recomputed[:strings.LastIndex(recomputed, ".")]

	return subtle.ConstantTimeCompare([]byte(digest), []byte(recomputedDigest)) == 1
}

// hashWithSalt runs the fixed construction with a caller-provided salt in
// unpadded base64 form.
func (s *Argon2PasswordService) hashWithSalt(password, salt string) (string, error) {
	saltBytes, err := base64.RawStdEncoding.DecodeString(salt)
	if err != nil {
		return "", errors.Wrap(errors.ErrCryptoFailure, "malformed credential salt")
	}

	key := argon2.IDKey([]byte(password), saltBytes, argonTime, argonMemory, argonThreads, argonKeyLen)

	phc := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonTime,
		argonThreads,
		salt,
		base64.RawStdEncoding.EncodeToString(key),
	)

	digest := sha256.Sum256([]byte(phc))
	return hex.EncodeToString(digest[:]) + "." + salt, nil
}
