package service

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/allisson/flexauth/internal/errors"
	userDomain "github.com/allisson/flexauth/internal/user/domain"
)

const (
	// IDTokenTTL is the lifetime of an id token.
	IDTokenTTL = time.Hour
	// RefreshTokenTTL is the lifetime of a refresh token.
	RefreshTokenTTL = 45 * 24 * time.Hour

	// idTokenType tags id tokens so refresh tokens cannot impersonate them.
	idTokenType = "id"
	// refreshScope is the sole scope a refresh token carries.
	refreshScope = "get_new_id_token"
)

// IDClaims are the claims of an id token.
type IDClaims struct {
	UID       string            `json:"uid"`
	TokenType string            `json:"token_type"`
	Data      map[string]string `json:"data"`
	jwt.RegisteredClaims
}

// RefreshClaims are the claims of a refresh token.
type RefreshClaims struct {
	UID   string `json:"uid"`
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// RS256TokenService implements TokenService with the server-wide RSA key
// pair. The private key is loaded from file once at startup; the public
// key is derived from it.
type RS256TokenService struct {
	privateKey *rsa.PrivateKey
	issuer     string
	now        func() time.Time
}

// NewRS256TokenService creates a token service signing as issuer.
func NewRS256TokenService(privateKey *rsa.PrivateKey, issuer string) *RS256TokenService {
	return &RS256TokenService{
		privateKey: privateKey,
		issuer:     issuer,
		now:        time.Now,
	}
}

// LoadPrivateKey reads a PKCS#1 or PKCS#8 RSA private key from a PEM file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key in %s is not RSA", path)
	}
	return key, nil
}

// SignID issues an id token carrying the user's display claims as strings.
func (t *RS256TokenService) SignID(user *userDomain.User) (string, error) {
	now := t.now().UTC()
	claims := IDClaims{
		UID:       user.UID,
		TokenType: idTokenType,
		Data: map[string]string{
			"display_name":      user.Name,
			"role":              user.Role,
			"is_active":         strconv.FormatBool(user.IsActive),
			"is_email_verified": strconv.FormatBool(user.EmailVerified),
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   user.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(IDTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(t.privateKey)
	if err != nil {
		return "", errors.Wrap(errors.ErrServerError, err.Error())
	}
	return signed, nil
}

// SignRefresh issues a refresh token for uid.
func (t *RS256TokenService) SignRefresh(uid string) (string, error) {
	now := t.now().UTC()
	claims := RefreshClaims{
		UID:   uid,
		Scope: refreshScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(RefreshTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(t.privateKey)
	if err != nil {
		return "", errors.Wrap(errors.ErrServerError, err.Error())
	}
	return signed, nil
}

// VerifyID parses an id token with graceful expiry: the signature is always
// checked, but an expired token still yields its claims with fresh=false so
// the caller can drive the stale-session refresh path.
func (t *RS256TokenService) VerifyID(raw string) (*IDClaims, bool, error) {
	claims := &IDClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, t.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, false, errors.Wrap(errors.ErrSignatureInvalid, "id token signature mismatch")
		}
		return nil, false, errors.Wrap(errors.ErrTokenInvalid, err.Error())
	}

	if claims.TokenType != idTokenType {
		return nil, false, errors.Wrap(errors.ErrTokenInvalid, "not an id token")
	}
	if claims.ExpiresAt == nil {
		return nil, false, errors.Wrap(errors.ErrTokenInvalid, "id token has no expiry")
	}

	fresh := claims.ExpiresAt.After(t.now())
	return claims, fresh, nil
}

// VerifyRefresh parses a refresh token strictly.
func (t *RS256TokenService) VerifyRefresh(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, t.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, errors.Wrap(errors.ErrExpiredSignature, "refresh token expired")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, errors.Wrap(errors.ErrSignatureInvalid, "refresh token signature mismatch")
		default:
			return nil, errors.Wrap(errors.ErrTokenInvalid, err.Error())
		}
	}

	if claims.Scope != refreshScope {
		return nil, errors.Wrap(errors.ErrTokenInvalid, "unexpected refresh token scope")
	}
	return claims, nil
}

func (t *RS256TokenService) keyFunc(token *jwt.Token) (any, error) {
	return &t.privateKey.PublicKey, nil
}
