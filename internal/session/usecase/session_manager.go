package usecase

import (
	"context"
	"log/slog"

	authService "github.com/allisson/flexauth/internal/auth/service"
	cryptoService "github.com/allisson/flexauth/internal/crypto/service"
	"github.com/allisson/flexauth/internal/errors"
	"github.com/allisson/flexauth/internal/mailer"
	sessionDomain "github.com/allisson/flexauth/internal/session/domain"
	userDomain "github.com/allisson/flexauth/internal/user/domain"
)

// sessionManager implements Manager.
type sessionManager struct {
	dekResolver  DekResolver
	sessionRepo  SessionRepository
	tokenService authService.TokenService
	cipher       cryptoService.Cipher
	mailer       mailer.Mailer
	logger       *slog.Logger
}

// NewSessionManager creates the session manager.
func NewSessionManager(
	dekResolver DekResolver,
	sessionRepo SessionRepository,
	tokenService authService.TokenService,
	cipher cryptoService.Cipher,
	mailSender mailer.Mailer,
	logger *slog.Logger,
) Manager {
	return &sessionManager{
		dekResolver:  dekResolver,
		sessionRepo:  sessionRepo,
		tokenService: tokenService,
		cipher:       cipher,
		mailer:       mailSender,
		logger:       logger,
	}
}

// Create signs a fresh token pair and stores the encrypted session. The
// returned session keeps the tokens plaintext for the client while the
// session id is already the encrypted opaque value clients present later.
func (m *sessionManager) Create(ctx context.Context, user *userDomain.User, dek, userAgent string) (*sessionDomain.Session, error) {
	idToken, err := m.tokenService.SignID(user)
	if err != nil {
		return nil, err
	}
	refreshToken, err := m.tokenService.SignRefresh(user.UID)
	if err != nil {
		return nil, err
	}

	session := sessionDomain.NewSession(user.UID, user.Email, userAgent, idToken, refreshToken)

	encrypted, err := m.encryptSession(session, dek)
	if err != nil {
		return nil, err
	}
	if err := m.sessionRepo.Insert(ctx, encrypted); err != nil {
		return nil, err
	}

	out := *session
	out.SessionID = encrypted.SessionID
	return &out, nil
}

// Verify implements the id token check. A fresh token must additionally
// match exactly one usable stored session, which gives every verification a
// server-side revocation check.
func (m *sessionManager) Verify(ctx context.Context, idToken string) (*authService.IDClaims, bool, error) {
	claims, fresh, err := m.tokenService.VerifyID(idToken)
	if err != nil {
		return nil, false, err
	}
	if !fresh {
		return claims, false, nil
	}

	rec, err := m.dekResolver.Get(ctx, claims.UID)
	if err != nil {
		return nil, false, err
	}
	uidEnc, err := m.cipher.Encrypt(claims.UID, rec.Dek)
	if err != nil {
		return nil, false, err
	}
	idTokenEnc, err := m.cipher.Encrypt(idToken, rec.Dek)
	if err != nil {
		return nil, false, err
	}

	count, err := m.sessionRepo.CountUsable(ctx, uidEnc, idTokenEnc)
	if err != nil {
		return nil, false, err
	}
	if count != 1 {
		return nil, false, errors.Wrap(errors.ErrTokenInvalid, "token does not match a usable session")
	}
	return claims, true, nil
}

// Refresh rotates the token pair of a stale session.
//
// Any strict verification failure or token mismatch revokes the session:
// a presented pair that does not exactly match the stored one means the
// real tokens leaked or were already rotated, and the session cannot be
// trusted afterwards.
func (m *sessionManager) Refresh(ctx context.Context, uid, sessionID, idToken, refreshToken, userAgent string) (*sessionDomain.TokenPair, error) {
	if _, err := m.tokenService.VerifyRefresh(refreshToken); err != nil {
		m.revokeBestEffort(ctx, uid, sessionID)
		return nil, err
	}

	claims, fresh, err := m.Verify(ctx, idToken)
	if err != nil {
		m.revokeBestEffort(ctx, uid, sessionID)
		return nil, err
	}
	if fresh {
		return nil, errors.Wrap(errors.ErrActiveSessionExists, "id token is still fresh")
	}
	if claims.UID != uid {
		m.revokeBestEffort(ctx, uid, sessionID)
		return nil, errors.Wrap(errors.ErrTokenInvalid, "id token does not belong to uid")
	}

	rec, err := m.dekResolver.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	uidEnc, err := m.cipher.Encrypt(uid, rec.Dek)
	if err != nil {
		return nil, err
	}

	stored, err := m.sessionRepo.GetActive(ctx, uidEnc, sessionID)
	if err != nil {
		if errors.Is(err, errors.ErrSessionNotFound) {
			return nil, errors.Wrap(errors.ErrSessionExpired, "session revoked or gone")
		}
		return nil, err
	}

	storedUA, err := m.cipher.Decrypt(stored.UserAgent, rec.Dek)
	if err != nil {
		return nil, err
	}
	if storedUA != userAgent {
		m.sendSecurityAlert(ctx, stored.Email, rec.Dek, userAgent)
		return nil, errors.Wrap(errors.ErrInvalidUserAgent, "refresh from an unrecognized device")
	}

	storedID, err := m.cipher.Decrypt(stored.IDToken, rec.Dek)
	if err != nil {
		return nil, err
	}
	storedRefresh, err := m.cipher.Decrypt(stored.RefreshToken, rec.Dek)
	if err != nil {
		return nil, err
	}
	if storedID != idToken || storedRefresh != refreshToken {
		m.revokeBestEffort(ctx, uid, sessionID)
		return nil, errors.Wrap(errors.ErrTokenInvalid, "presented tokens do not match the session")
	}

	user := userFromClaims(claims)
	newID, err := m.tokenService.SignID(user)
	if err != nil {
		return nil, err
	}
	newRefresh, err := m.tokenService.SignRefresh(uid)
	if err != nil {
		return nil, err
	}
	newIDEnc, err := m.cipher.Encrypt(newID, rec.Dek)
	if err != nil {
		return nil, err
	}
	newRefreshEnc, err := m.cipher.Encrypt(newRefresh, rec.Dek)
	if err != nil {
		return nil, err
	}

	err = m.sessionRepo.RotateTokens(ctx, uidEnc, stored.IDToken, stored.RefreshToken, newIDEnc, newRefreshEnc)
	if err != nil {
		if errors.Is(err, errors.ErrSessionNotFound) {
			m.revokeBestEffort(ctx, uid, sessionID)
			return nil, errors.Wrap(errors.ErrTokenInvalid, "token pair was already rotated")
		}
		return nil, err
	}

	return &sessionDomain.TokenPair{IDToken: newID, RefreshToken: newRefresh}, nil
}

// Revoke marks a single session revoked.
func (m *sessionManager) Revoke(ctx context.Context, uid, sessionID string) error {
	rec, err := m.dekResolver.Get(ctx, uid)
	if err != nil {
		return err
	}
	uidEnc, err := m.cipher.Encrypt(uid, rec.Dek)
	if err != nil {
		return err
	}
	return m.sessionRepo.Revoke(ctx, uidEnc, sessionID)
}

// Delete removes a single session record.
func (m *sessionManager) Delete(ctx context.Context, uid, sessionID string) error {
	rec, err := m.dekResolver.Get(ctx, uid)
	if err != nil {
		return err
	}
	uidEnc, err := m.cipher.Encrypt(uid, rec.Dek)
	if err != nil {
		return err
	}
	return m.sessionRepo.Delete(ctx, uidEnc, sessionID)
}

// GetDetails returns one session with every field decrypted.
func (m *sessionManager) GetDetails(ctx context.Context, uid, sessionID string) (*sessionDomain.Session, error) {
	rec, err := m.dekResolver.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	uidEnc, err := m.cipher.Encrypt(uid, rec.Dek)
	if err != nil {
		return nil, err
	}
	stored, err := m.sessionRepo.Get(ctx, uidEnc, sessionID)
	if err != nil {
		return nil, err
	}
	return m.decryptSession(stored, rec.Dek)
}

// GetAll returns every session still encrypted. Decrypting would need each
// owner's DEK, which cannot be resolved from an encrypted uid.
func (m *sessionManager) GetAll(ctx context.Context) ([]sessionDomain.Session, error) {
	return m.sessionRepo.GetAllRaw(ctx)
}

// GetAllForUID returns the user's sessions decrypted.
func (m *sessionManager) GetAllForUID(ctx context.Context, uid string) ([]sessionDomain.Session, error) {
	rec, err := m.dekResolver.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	uidEnc, err := m.cipher.Encrypt(uid, rec.Dek)
	if err != nil {
		return nil, err
	}

	raw, err := m.sessionRepo.GetAllByUID(ctx, uidEnc)
	if err != nil {
		return nil, err
	}

	sessions := make([]sessionDomain.Session, 0, len(raw))
	for i := range raw {
		decrypted, err := m.decryptSession(&raw[i], rec.Dek)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *decrypted)
	}
	return sessions, nil
}

// RevokeAll marks every session of the user revoked.
func (m *sessionManager) RevokeAll(ctx context.Context, uid string) error {
	rec, err := m.dekResolver.Get(ctx, uid)
	if err != nil {
		return err
	}
	uidEnc, err := m.cipher.Encrypt(uid, rec.Dek)
	if err != nil {
		return err
	}
	return m.sessionRepo.RevokeAll(ctx, uidEnc)
}

// DeleteAll removes every session of the user.
func (m *sessionManager) DeleteAll(ctx context.Context, uid string) error {
	rec, err := m.dekResolver.Get(ctx, uid)
	if err != nil {
		return err
	}
	return m.DeleteAllForUID(ctx, uid, rec.Dek)
}

// DeleteAllForUID removes every session of the user with a caller provided
// DEK, for delete cascades that already dropped the DEK record.
func (m *sessionManager) DeleteAllForUID(ctx context.Context, uid, dek string) error {
	uidEnc, err := m.cipher.Encrypt(uid, dek)
	if err != nil {
		return err
	}
	return m.sessionRepo.DeleteAll(ctx, uidEnc)
}

func (m *sessionManager) encryptSession(s *sessionDomain.Session, dek string) (*sessionDomain.Session, error) {
	enc := *s
	var err error
	if enc.UID, err = m.cipher.Encrypt(s.UID, dek); err != nil {
		return nil, err
	}
	if enc.SessionID, err = m.cipher.Encrypt(s.SessionID, dek); err != nil {
		return nil, err
	}
	if enc.Email, err = m.cipher.Encrypt(s.Email, dek); err != nil {
		return nil, err
	}
	if enc.UserAgent, err = m.cipher.Encrypt(s.UserAgent, dek); err != nil {
		return nil, err
	}
	if enc.IDToken, err = m.cipher.Encrypt(s.IDToken, dek); err != nil {
		return nil, err
	}
	if enc.RefreshToken, err = m.cipher.Encrypt(s.RefreshToken, dek); err != nil {
		return nil, err
	}
	return &enc, nil
}

func (m *sessionManager) decryptSession(s *sessionDomain.Session, dek string) (*sessionDomain.Session, error) {
	dec := *s
	var err error
	if dec.UID, err = m.cipher.Decrypt(s.UID, dek); err != nil {
		return nil, err
	}
	if dec.SessionID, err = m.cipher.Decrypt(s.SessionID, dek); err != nil {
		return nil, err
	}
	if dec.Email, err = m.cipher.Decrypt(s.Email, dek); err != nil {
		return nil, err
	}
	if dec.UserAgent, err = m.cipher.Decrypt(s.UserAgent, dek); err != nil {
		return nil, err
	}
	if dec.IDToken, err = m.cipher.Decrypt(s.IDToken, dek); err != nil {
		return nil, err
	}
	if dec.RefreshToken, err = m.cipher.Decrypt(s.RefreshToken, dek); err != nil {
		return nil, err
	}
	return &dec, nil
}

// revokeBestEffort revokes on a failure path; a revocation error must not
// mask the error that triggered it.
func (m *sessionManager) revokeBestEffort(ctx context.Context, uid, sessionID string) {
	if err := m.Revoke(ctx, uid, sessionID); err != nil {
		m.logger.Warn("failed to revoke session",
			slog.String("uid", uid),
			slog.Any("error", err),
		)
	}
}

// sendSecurityAlert decrypts the account email and dispatches the alert
// best-effort.
func (m *sessionManager) sendSecurityAlert(ctx context.Context, emailEnc, dek, userAgent string) {
	email, err := m.cipher.Decrypt(emailEnc, dek)
	if err != nil {
		m.logger.Error("failed to decrypt email for security alert", slog.Any("error", err))
		return
	}
	if err := m.mailer.SendSecurityAlert(ctx, email, userAgent); err != nil {
		m.logger.Error("failed to send security alert", slog.Any("error", err))
	}
}

// userFromClaims rebuilds the display claims of a rotated id token from the
// expired one, avoiding a user store read during refresh.
func userFromClaims(claims *authService.IDClaims) *userDomain.User {
	return &userDomain.User{
		UID:           claims.UID,
		Name:          claims.Data["display_name"],
		Role:          claims.Data["role"],
		IsActive:      claims.Data["is_active"] == "true",
		EmailVerified: claims.Data["is_email_verified"] == "true",
	}
}
