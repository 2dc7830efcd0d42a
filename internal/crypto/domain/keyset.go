// Package domain provides the key material types for envelope encryption.
package domain

import (
	"strings"
	"time"

	"github.com/allisson/flexauth/internal/errors"
)

const (
	// KeyLength is the byte length of the AES-256 key part of a keyset.
	KeyLength = 32
	// IVLength is the byte length of the GCM nonce part of a keyset.
	IVLength = 12
)

// A Keyset is the composite key string "<key>.<iv>" used for both the KEK
// and per-user DEKs. The key part is 32 characters and the iv part 12
// characters of lowercase hex; their ASCII bytes are used directly as the
// AES-256 key and GCM nonce. The iv is fixed per keyset, which makes
// encryption deterministic; session and DEK lookups depend on that, so the
// format cannot change without migrating all stored ciphertexts.
type Keyset struct {
	Key []byte
	IV  []byte
}

// ParseKeyset splits and validates a composite key string.
func ParseKeyset(s string) (Keyset, error) {
	key, iv, ok := strings.Cut(s, ".")
	if !ok || len(key) != KeyLength || len(iv) != IVLength {
		return Keyset{}, errors.Wrap(errors.ErrCryptoFailure, "malformed keyset")
	}
	return Keyset{Key: []byte(key), IV: []byte(iv)}, nil
}

// DekRecord is the persisted mapping from a user identity to the user's
// DEK. All three fields are stored encrypted under the KEK so the record is
// findable by either identifier without knowing the DEK; this type holds
// the decrypted values.
type DekRecord struct {
	UID       string    `bson:"uid"`
	Email     string    `bson:"email"`
	Dek       string    `bson:"dek"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}
