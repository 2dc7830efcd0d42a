package usecase_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authService "github.com/allisson/flexauth/internal/auth/service"
	cryptoDomain "github.com/allisson/flexauth/internal/crypto/domain"
	cryptoService "github.com/allisson/flexauth/internal/crypto/service"
	"github.com/allisson/flexauth/internal/errors"
	sessionDomain "github.com/allisson/flexauth/internal/session/domain"
	"github.com/allisson/flexauth/internal/session/usecase"
	userDomain "github.com/allisson/flexauth/internal/user/domain"
)

const testDek = "0123456789abcdef0123456789abcdef.0123456789ab"

// stubTokenService issues deterministic tokens and lets tests control the
// freshness of id tokens.
type stubTokenService struct {
	n       int
	claims  map[string]*authService.IDClaims
	fresh   map[string]bool
	refresh map[string]string
}

func newStubTokenService() *stubTokenService {
	return &stubTokenService{
		claims:  make(map[string]*authService.IDClaims),
		fresh:   make(map[string]bool),
		refresh: make(map[string]string),
	}
}

func (s *stubTokenService) SignID(user *userDomain.User) (string, error) {
	s.n++
	token := fmt.Sprintf("id-token-%d", s.n)
	s.claims[token] = &authService.IDClaims{
		UID: user.UID,
		Data: map[string]string{
			"display_name":      user.Name,
			"role":              user.Role,
			"is_active":         strconv.FormatBool(user.IsActive),
			"is_email_verified": strconv.FormatBool(user.EmailVerified),
		},
	}
	s.fresh[token] = true
	return token, nil
}

func (s *stubTokenService) SignRefresh(uid string) (string, error) {
	s.n++
	token := fmt.Sprintf("refresh-token-%d", s.n)
	s.refresh[token] = uid
	return token, nil
}

func (s *stubTokenService) VerifyID(token string) (*authService.IDClaims, bool, error) {
	claims, ok := s.claims[token]
	if !ok {
		return nil, false, errors.Wrap(errors.ErrTokenInvalid, "unknown id token")
	}
	return claims, s.fresh[token], nil
}

func (s *stubTokenService) VerifyRefresh(token string) (*authService.RefreshClaims, error) {
	uid, ok := s.refresh[token]
	if !ok {
		return nil, errors.Wrap(errors.ErrTokenInvalid, "unknown refresh token")
	}
	return &authService.RefreshClaims{UID: uid}, nil
}

// fakeDekResolver serves one DEK record for both of the user's identifiers.
type fakeDekResolver struct {
	records map[string]*cryptoDomain.DekRecord
}

func (f *fakeDekResolver) Get(_ context.Context, identifier string) (*cryptoDomain.DekRecord, error) {
	rec, ok := f.records[identifier]
	if !ok {
		return nil, errors.Wrap(errors.ErrKeyNotFound, "no DEK record for identifier")
	}
	return rec, nil
}

// fakeSessionRepo is an in-memory session store over encrypted fields.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions []*sessionDomain.Session
}

func (f *fakeSessionRepo) Insert(_ context.Context, session *sessionDomain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *session
	f.sessions = append(f.sessions, &stored)
	return nil
}

func (f *fakeSessionRepo) CountUsable(_ context.Context, uidEnc, idTokenEnc string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, s := range f.sessions {
		if s.UID == uidEnc && s.IDToken == idTokenEnc && !s.IsRevoked {
			count++
		}
	}
	return count, nil
}

func (f *fakeSessionRepo) GetActive(_ context.Context, uidEnc, sessionIDEnc string) (*sessionDomain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.UID == uidEnc && s.SessionID == sessionIDEnc && !s.IsRevoked {
			out := *s
			return &out, nil
		}
	}
	return nil, errors.Wrap(errors.ErrSessionNotFound, "no active session")
}

func (f *fakeSessionRepo) Get(_ context.Context, uidEnc, sessionIDEnc string) (*sessionDomain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.UID == uidEnc && s.SessionID == sessionIDEnc {
			out := *s
			return &out, nil
		}
	}
	return nil, errors.Wrap(errors.ErrSessionNotFound, "no session")
}

func (f *fakeSessionRepo) RotateTokens(_ context.Context, uidEnc, oldIDEnc, oldRefreshEnc, newIDEnc, newRefreshEnc string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.UID == uidEnc && s.IDToken == oldIDEnc && s.RefreshToken == oldRefreshEnc && !s.IsRevoked {
			s.IDToken = newIDEnc
			s.RefreshToken = newRefreshEnc
			s.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return errors.Wrap(errors.ErrSessionNotFound, "no session matched the token pair")
}

func (f *fakeSessionRepo) Revoke(_ context.Context, uidEnc, sessionIDEnc string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.UID == uidEnc && s.SessionID == sessionIDEnc {
			s.IsRevoked = true
			return nil
		}
	}
	return errors.Wrap(errors.ErrSessionNotFound, "no session")
}

func (f *fakeSessionRepo) Delete(_ context.Context, uidEnc, sessionIDEnc string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.sessions {
		if s.UID == uidEnc && s.SessionID == sessionIDEnc {
			f.sessions = append(f.sessions[:i], f.sessions[i+1:]...)
			return nil
		}
	}
	return errors.Wrap(errors.ErrSessionNotFound, "no session")
}

func (f *fakeSessionRepo) GetAllRaw(_ context.Context) ([]sessionDomain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sessionDomain.Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeSessionRepo) GetAllByUID(_ context.Context, uidEnc string) ([]sessionDomain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sessionDomain.Session
	for _, s := range f.sessions {
		if s.UID == uidEnc {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) RevokeAll(_ context.Context, uidEnc string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.UID == uidEnc {
			s.IsRevoked = true
		}
	}
	return nil
}

func (f *fakeSessionRepo) DeleteAll(_ context.Context, uidEnc string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.sessions[:0]
	for _, s := range f.sessions {
		if s.UID != uidEnc {
			kept = append(kept, s)
		}
	}
	f.sessions = kept
	return nil
}

// recordingMailer captures security alerts.
type recordingMailer struct {
	mu     sync.Mutex
	alerts []string
}

func (r *recordingMailer) SendLockoutWarning(context.Context, string, time.Time) error { return nil }
func (r *recordingMailer) SendPasswordResetLink(context.Context, string, string) error { return nil }
func (r *recordingMailer) SendPasswordResetConfirmation(context.Context, string) error { return nil }
func (r *recordingMailer) SendVerificationLink(context.Context, string, string) error  { return nil }

func (r *recordingMailer) SendSecurityAlert(_ context.Context, email, userAgent string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, email+"|"+userAgent)
	return nil
}

type managerFixture struct {
	manager usecase.Manager
	tokens  *stubTokenService
	repo    *fakeSessionRepo
	mailer  *recordingMailer
	cipher  cryptoService.Cipher
	user    *userDomain.User
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()

	user := &userDomain.User{
		UID:           "user-123",
		Name:          "Alice",
		Email:         "alice@example.com",
		Role:          "user",
		IsActive:      true,
		EmailVerified: true,
	}
	rec := &cryptoDomain.DekRecord{UID: user.UID, Email: user.Email, Dek: testDek}

	tokens := newStubTokenService()
	repo := &fakeSessionRepo{}
	mailSender := &recordingMailer{}
	cipher := cryptoService.NewGCMCipher()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	manager := usecase.NewSessionManager(
		&fakeDekResolver{records: map[string]*cryptoDomain.DekRecord{
			user.UID:   rec,
			user.Email: rec,
		}},
		repo,
		tokens,
		cipher,
		mailSender,
		logger,
	)

	return &managerFixture{
		manager: manager,
		tokens:  tokens,
		repo:    repo,
		mailer:  mailSender,
		cipher:  cipher,
		user:    user,
	}
}

func TestSessionManager_Create(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	session, err := f.manager.Create(ctx, f.user, testDek, "test-agent/1.0")
	require.NoError(t, err)

	// Tokens stay plaintext for the client.
	assert.Equal(t, "id-token-1", session.IDToken)
	assert.Equal(t, "refresh-token-2", session.RefreshToken)

	// The session id is already the opaque encrypted value.
	plainID, err := f.cipher.Decrypt(session.SessionID, testDek)
	require.NoError(t, err)
	assert.NotEqual(t, session.SessionID, plainID)

	// The stored record is fully encrypted.
	require.Len(t, f.repo.sessions, 1)
	stored := f.repo.sessions[0]
	assert.NotEqual(t, f.user.UID, stored.UID)
	assert.Equal(t, session.SessionID, stored.SessionID)

	storedID, err := f.cipher.Decrypt(stored.IDToken, testDek)
	require.NoError(t, err)
	assert.Equal(t, "id-token-1", storedID)
}

func TestSessionManager_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("Fresh token matching one session", func(t *testing.T) {
		f := newManagerFixture(t)
		session, err := f.manager.Create(ctx, f.user, testDek, "test-agent/1.0")
		require.NoError(t, err)

		claims, fresh, err := f.manager.Verify(ctx, session.IDToken)
		require.NoError(t, err)
		assert.True(t, fresh)
		assert.Equal(t, f.user.UID, claims.UID)
	})

	t.Run("Expired token yields claims without a store check", func(t *testing.T) {
		f := newManagerFixture(t)
		session, err := f.manager.Create(ctx, f.user, testDek, "test-agent/1.0")
		require.NoError(t, err)

		f.tokens.fresh[session.IDToken] = false

		claims, fresh, err := f.manager.Verify(ctx, session.IDToken)
		require.NoError(t, err)
		assert.False(t, fresh)
		assert.Equal(t, f.user.UID, claims.UID)
	})

	t.Run("Fresh token of a revoked session is rejected", func(t *testing.T) {
		f := newManagerFixture(t)
		session, err := f.manager.Create(ctx, f.user, testDek, "test-agent/1.0")
		require.NoError(t, err)

		require.NoError(t, f.manager.Revoke(ctx, f.user.UID, session.SessionID))

		_, _, err = f.manager.Verify(ctx, session.IDToken)
		assert.ErrorIs(t, err, errors.ErrTokenInvalid)
	})

	t.Run("Unknown token", func(t *testing.T) {
		f := newManagerFixture(t)
		_, _, err := f.manager.Verify(ctx, "garbage")
		assert.ErrorIs(t, err, errors.ErrTokenInvalid)
	})
}

func TestSessionManager_Refresh(t *testing.T) {
	ctx := context.Background()
	const agent = "test-agent/1.0"

	stale := func(t *testing.T) (*managerFixture, *sessionDomain.Session) {
		t.Helper()
		f := newManagerFixture(t)
		session, err := f.manager.Create(ctx, f.user, testDek, agent)
		require.NoError(t, err)
		f.tokens.fresh[session.IDToken] = false
		return f, session
	}

	t.Run("Successful rotation", func(t *testing.T) {
		f, session := stale(t)

		pair, err := f.manager.Refresh(ctx, f.user.UID, session.SessionID, session.IDToken, session.RefreshToken, agent)
		require.NoError(t, err)
		assert.NotEqual(t, session.IDToken, pair.IDToken)
		assert.NotEqual(t, session.RefreshToken, pair.RefreshToken)

		// The stored pair was replaced.
		stored := f.repo.sessions[0]
		storedID, err := f.cipher.Decrypt(stored.IDToken, testDek)
		require.NoError(t, err)
		assert.Equal(t, pair.IDToken, storedID)
		assert.False(t, stored.IsRevoked)
	})

	t.Run("Replay of the old pair revokes the session", func(t *testing.T) {
		f, session := stale(t)

		_, err := f.manager.Refresh(ctx, f.user.UID, session.SessionID, session.IDToken, session.RefreshToken, agent)
		require.NoError(t, err)

		_, err = f.manager.Refresh(ctx, f.user.UID, session.SessionID, session.IDToken, session.RefreshToken, agent)
		assert.ErrorIs(t, err, errors.ErrTokenInvalid)
		assert.True(t, f.repo.sessions[0].IsRevoked)
	})

	t.Run("Fresh id token refuses to rotate", func(t *testing.T) {
		f := newManagerFixture(t)
		session, err := f.manager.Create(ctx, f.user, testDek, agent)
		require.NoError(t, err)

		_, err = f.manager.Refresh(ctx, f.user.UID, session.SessionID, session.IDToken, session.RefreshToken, agent)
		assert.ErrorIs(t, err, errors.ErrActiveSessionExists)
		assert.False(t, f.repo.sessions[0].IsRevoked)
	})

	t.Run("Invalid refresh token revokes the session", func(t *testing.T) {
		f, session := stale(t)

		_, err := f.manager.Refresh(ctx, f.user.UID, session.SessionID, session.IDToken, "bogus-refresh", agent)
		assert.ErrorIs(t, err, errors.ErrTokenInvalid)
		assert.True(t, f.repo.sessions[0].IsRevoked)
	})

	t.Run("User agent mismatch alerts without revoking", func(t *testing.T) {
		f, session := stale(t)

		_, err := f.manager.Refresh(ctx, f.user.UID, session.SessionID, session.IDToken, session.RefreshToken, "other-agent/9.9")
		assert.ErrorIs(t, err, errors.ErrInvalidUserAgent)
		assert.False(t, f.repo.sessions[0].IsRevoked)

		require.Len(t, f.mailer.alerts, 1)
		assert.Equal(t, "alice@example.com|other-agent/9.9", f.mailer.alerts[0])
	})

	t.Run("Mismatched stored pair revokes the session", func(t *testing.T) {
		f, session := stale(t)

		// A second valid pair for the same user that is not the stored one.
		otherID, err := f.tokens.SignID(f.user)
		require.NoError(t, err)
		f.tokens.fresh[otherID] = false
		otherRefresh, err := f.tokens.SignRefresh(f.user.UID)
		require.NoError(t, err)

		_, err = f.manager.Refresh(ctx, f.user.UID, session.SessionID, otherID, otherRefresh, agent)
		assert.ErrorIs(t, err, errors.ErrTokenInvalid)
		assert.True(t, f.repo.sessions[0].IsRevoked)
	})

	t.Run("Revoked session reports expiry", func(t *testing.T) {
		f, session := stale(t)
		require.NoError(t, f.manager.Revoke(ctx, f.user.UID, session.SessionID))

		_, err := f.manager.Refresh(ctx, f.user.UID, session.SessionID, session.IDToken, session.RefreshToken, agent)
		assert.ErrorIs(t, err, errors.ErrSessionExpired)
	})

	t.Run("Uid mismatch revokes the session", func(t *testing.T) {
		f, session := stale(t)

		_, err := f.manager.Refresh(ctx, "someone-else", session.SessionID, session.IDToken, session.RefreshToken, agent)
		assert.Error(t, err)
	})
}

func TestSessionManager_Listings(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	first, err := f.manager.Create(ctx, f.user, testDek, "agent-a")
	require.NoError(t, err)
	_, err = f.manager.Create(ctx, f.user, testDek, "agent-b")
	require.NoError(t, err)

	t.Run("GetAll stays encrypted", func(t *testing.T) {
		sessions, err := f.manager.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.NotEqual(t, f.user.UID, sessions[0].UID)
	})

	t.Run("GetAllForUID decrypts", func(t *testing.T) {
		sessions, err := f.manager.GetAllForUID(ctx, f.user.UID)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.Equal(t, f.user.UID, sessions[0].UID)
		assert.Equal(t, "agent-a", sessions[0].UserAgent)
	})

	t.Run("GetDetails decrypts one session", func(t *testing.T) {
		session, err := f.manager.GetDetails(ctx, f.user.UID, first.SessionID)
		require.NoError(t, err)
		assert.Equal(t, f.user.UID, session.UID)
		assert.Equal(t, "agent-a", session.UserAgent)
	})

	t.Run("RevokeAll and DeleteAll", func(t *testing.T) {
		require.NoError(t, f.manager.RevokeAll(ctx, f.user.UID))
		for _, s := range f.repo.sessions {
			assert.True(t, s.IsRevoked)
		}

		require.NoError(t, f.manager.DeleteAll(ctx, f.user.UID))
		assert.Empty(t, f.repo.sessions)
	})
}

func TestSessionManager_DeleteAllForUID(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	_, err := f.manager.Create(ctx, f.user, testDek, "agent-a")
	require.NoError(t, err)

	// Works without a resolvable DEK record, as in the user delete cascade.
	require.NoError(t, f.manager.DeleteAllForUID(ctx, f.user.UID, testDek))
	assert.Empty(t, f.repo.sessions)
}
