// Package service provides the credential services: password hashing and
// verification, and RS256 id/refresh token signing and verification.
package service

import (
	userDomain "github.com/allisson/flexauth/internal/user/domain"
)

// PasswordService hashes, verifies and validates passwords.
type PasswordService interface {
	// ValidatePolicy checks the password policy (length >= 8, at least one
	// letter and one digit) and returns ErrInvalidPassword on violation.
	ValidatePolicy(password string) error

	// Hash produces the stored credential "<sha256_hex>.<salt_b64>" for a
	// password with a fresh random salt.
	Hash(password string) (string, error)

	// Verify recomputes the credential from password and the salt embedded
	// in credential, and compares digests in constant time.
	Verify(password, credential string) bool
}

// TokenService signs and verifies id and refresh tokens using the
// server-wide RSA key pair.
type TokenService interface {
	// SignID issues a 1 hour id token carrying the user's display claims.
	SignID(user *userDomain.User) (string, error)

	// SignRefresh issues a 45 day refresh token for uid whose only use is
	// minting a new id token.
	SignRefresh(uid string) (string, error)

	// VerifyID parses an id token. fresh is true iff the token has not
	// expired; an expired token still yields its claims with fresh=false.
	// Returns ErrSignatureInvalid on a bad signature and ErrTokenInvalid on
	// any other parse failure.
	VerifyID(token string) (claims *IDClaims, fresh bool, err error)

	// VerifyRefresh parses a refresh token strictly: expired or malformed
	// tokens fail.
	VerifyRefresh(token string) (*RefreshClaims, error)
}
