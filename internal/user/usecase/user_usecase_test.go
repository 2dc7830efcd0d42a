package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authService "github.com/allisson/flexauth/internal/auth/service"
	cryptoDomain "github.com/allisson/flexauth/internal/crypto/domain"
	cryptoService "github.com/allisson/flexauth/internal/crypto/service"
	"github.com/allisson/flexauth/internal/errors"
	userDomain "github.com/allisson/flexauth/internal/user/domain"
	"github.com/allisson/flexauth/internal/user/usecase"
)

const testDek = "0123456789abcdef0123456789abcdef.0123456789ab"

type fakeDekStore struct {
	records map[string]*cryptoDomain.DekRecord
}

func (f *fakeDekStore) Put(_ context.Context, uid, email, dek string) error {
	rec := &cryptoDomain.DekRecord{UID: uid, Email: email, Dek: dek}
	f.records[uid] = rec
	f.records[email] = rec
	return nil
}

func (f *fakeDekStore) Get(_ context.Context, identifier string) (*cryptoDomain.DekRecord, error) {
	rec, ok := f.records[identifier]
	if !ok {
		return nil, errors.Wrap(errors.ErrKeyNotFound, "no DEK record for identifier")
	}
	return rec, nil
}

func (f *fakeDekStore) Delete(_ context.Context, uid string) error {
	rec, ok := f.records[uid]
	if !ok {
		return errors.Wrap(errors.ErrKeyNotFound, "no DEK record for uid")
	}
	delete(f.records, rec.UID)
	delete(f.records, rec.Email)
	return nil
}

type fakeUserStore struct {
	users map[string]*userDomain.User
	// passwords holds the raw values passed to UpdatePassword, still
	// encrypted under the user's DEK.
	passwords map[string]string
	blocked   map[string]time.Time
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:     make(map[string]*userDomain.User),
		passwords: make(map[string]string),
		blocked:   make(map[string]time.Time),
	}
}

func (f *fakeUserStore) get(uid string) (*userDomain.User, error) {
	user, ok := f.users[uid]
	if !ok {
		return nil, errors.Wrap(errors.ErrUserNotFound, "no user for uid")
	}
	return user, nil
}

func (f *fakeUserStore) Insert(_ context.Context, user *userDomain.User, _ string) error {
	stored := *user
	f.users[user.UID] = &stored
	return nil
}

func (f *fakeUserStore) GetByUID(_ context.Context, uid, _ string) (*userDomain.User, error) {
	user, err := f.get(uid)
	if err != nil {
		return nil, err
	}
	out := *user
	return &out, nil
}

func (f *fakeUserStore) GetAllRaw(_ context.Context) ([]userDomain.User, error) {
	out := make([]userDomain.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUserStore) UpdateName(_ context.Context, uid, nameEnc string) error {
	user, err := f.get(uid)
	if err != nil {
		return err
	}
	user.Name = nameEnc
	return nil
}

func (f *fakeUserStore) UpdateRole(_ context.Context, uid, roleEnc string) error {
	user, err := f.get(uid)
	if err != nil {
		return err
	}
	user.Role = roleEnc
	return nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, uid, credentialEnc string) error {
	if _, err := f.get(uid); err != nil {
		return err
	}
	f.passwords[uid] = credentialEnc
	return nil
}

func (f *fakeUserStore) SetActive(_ context.Context, uid string, isActive bool) error {
	user, err := f.get(uid)
	if err != nil {
		return err
	}
	user.IsActive = isActive
	return nil
}

func (f *fakeUserStore) SetEmailVerified(_ context.Context, uid string) error {
	user, err := f.get(uid)
	if err != nil {
		return err
	}
	user.EmailVerified = true
	return nil
}

func (f *fakeUserStore) IncrementFailedAttempts(_ context.Context, uid string) (int, error) {
	user, err := f.get(uid)
	if err != nil {
		return 0, err
	}
	user.FailedLoginAttempts++
	return user.FailedLoginAttempts, nil
}

func (f *fakeUserStore) ResetFailedAttempts(_ context.Context, uid string) error {
	user, err := f.get(uid)
	if err != nil {
		return err
	}
	user.FailedLoginAttempts = 0
	user.BlockedUntil = nil
	return nil
}

func (f *fakeUserStore) SetBlockedUntil(_ context.Context, uid string, until time.Time) error {
	user, err := f.get(uid)
	if err != nil {
		return err
	}
	user.BlockedUntil = &until
	f.blocked[uid] = until
	return nil
}

func (f *fakeUserStore) Delete(_ context.Context, uid string) error {
	if _, err := f.get(uid); err != nil {
		return err
	}
	delete(f.users, uid)
	return nil
}

type fakeResetStore struct {
	requests map[string]*userDomain.ForgetPasswordRequest
}

func (f *fakeResetStore) Insert(_ context.Context, req *userDomain.ForgetPasswordRequest) error {
	stored := *req
	f.requests[req.ID] = &stored
	return nil
}

func (f *fakeResetStore) Get(_ context.Context, id string) (*userDomain.ForgetPasswordRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, errors.Wrap(errors.ErrResetLinkNotFound, "no reset request")
	}
	out := *req
	return &out, nil
}

func (f *fakeResetStore) Consume(_ context.Context, id string) error {
	req, ok := f.requests[id]
	if !ok {
		return errors.Wrap(errors.ErrResetLinkNotFound, "no reset request")
	}
	if req.IsUsed || time.Now().After(req.ValidTill) {
		return errors.Wrap(errors.ErrResetLinkExpired, "reset request used or expired")
	}
	req.IsUsed = true
	return nil
}

type fakeVerificationStore struct {
	requests map[string]*userDomain.EmailVerificationRequest
}

func (f *fakeVerificationStore) Insert(_ context.Context, req *userDomain.EmailVerificationRequest) error {
	stored := *req
	f.requests[req.ReqID] = &stored
	return nil
}

func (f *fakeVerificationStore) Get(_ context.Context, reqID string) (*userDomain.EmailVerificationRequest, error) {
	req, ok := f.requests[reqID]
	if !ok {
		return nil, errors.Wrap(errors.ErrResetLinkNotFound, "no verification request")
	}
	out := *req
	return &out, nil
}

func (f *fakeVerificationStore) Delete(_ context.Context, reqID string) error {
	delete(f.requests, reqID)
	return nil
}

type fakeSessionRemover struct {
	calls []string
	err   error
}

func (f *fakeSessionRemover) DeleteAllForUID(_ context.Context, uid, dek string) error {
	f.calls = append(f.calls, uid+"|"+dek)
	return f.err
}

type mailRecorder struct {
	lockouts      []string
	resetLinks    []string
	confirmations []string
	verifyLinks   []string
}

func (m *mailRecorder) SendLockoutWarning(_ context.Context, email string, _ time.Time) error {
	m.lockouts = append(m.lockouts, email)
	return nil
}

func (m *mailRecorder) SendPasswordResetLink(_ context.Context, email, reqID string) error {
	m.resetLinks = append(m.resetLinks, email+"|"+reqID)
	return nil
}

func (m *mailRecorder) SendPasswordResetConfirmation(_ context.Context, email string) error {
	m.confirmations = append(m.confirmations, email)
	return nil
}

func (m *mailRecorder) SendVerificationLink(_ context.Context, email, reqID string) error {
	m.verifyLinks = append(m.verifyLinks, email+"|"+reqID)
	return nil
}

func (m *mailRecorder) SendSecurityAlert(context.Context, string, string) error { return nil }

type useCaseFixture struct {
	useCase       usecase.UseCase
	dekStore      *fakeDekStore
	userStore     *fakeUserStore
	resetStore    *fakeResetStore
	verifications *fakeVerificationStore
	sessions      *fakeSessionRemover
	mail          *mailRecorder
	passwords     authService.PasswordService
	cipher        cryptoService.Cipher
	user          *userDomain.User
}

func newUseCaseFixture(t *testing.T) *useCaseFixture {
	t.Helper()

	passwords := authService.NewArgon2PasswordService()
	credential, err := passwords.Hash("password1")
	require.NoError(t, err)

	user := userDomain.NewUser("Alice", "alice@example.com", "user", credential)

	dekStore := &fakeDekStore{records: make(map[string]*cryptoDomain.DekRecord)}
	require.NoError(t, dekStore.Put(context.Background(), user.UID, user.Email, testDek))

	userStore := newFakeUserStore()
	require.NoError(t, userStore.Insert(context.Background(), user, testDek))

	resetStore := &fakeResetStore{requests: make(map[string]*userDomain.ForgetPasswordRequest)}
	verifications := &fakeVerificationStore{requests: make(map[string]*userDomain.EmailVerificationRequest)}
	sessions := &fakeSessionRemover{}
	mail := &mailRecorder{}
	cipher := cryptoService.NewGCMCipher()

	useCase := usecase.NewUserUseCase(
		dekStore,
		userStore,
		resetStore,
		verifications,
		sessions,
		passwords,
		cipher,
		mail,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	return &useCaseFixture{
		useCase:       useCase,
		dekStore:      dekStore,
		userStore:     userStore,
		resetStore:    resetStore,
		verifications: verifications,
		sessions:      sessions,
		mail:          mail,
		passwords:     passwords,
		cipher:        cipher,
		user:          user,
	}
}

func TestUserUseCase_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("By email", func(t *testing.T) {
		f := newUseCaseFixture(t)
		user, err := f.useCase.Get(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, f.user.UID, user.UID)
	})

	t.Run("By uid", func(t *testing.T) {
		f := newUseCaseFixture(t)
		user, err := f.useCase.Get(ctx, f.user.UID)
		require.NoError(t, err)
		assert.Equal(t, "Alice", user.Name)
	})

	t.Run("Unknown identifier", func(t *testing.T) {
		f := newUseCaseFixture(t)
		_, err := f.useCase.Get(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, errors.ErrUserNotFound)
	})
}

func TestUserUseCase_GetAll(t *testing.T) {
	ctx := context.Background()
	f := newUseCaseFixture(t)

	// A second user whose DEK record is gone must be skipped, not fail the
	// listing.
	orphan := userDomain.NewUser("Ghost", "ghost@example.com", "user", "credential.salt")
	require.NoError(t, f.userStore.Insert(ctx, orphan, testDek))

	users, err := f.useCase.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, f.user.UID, users[0].UID)
}

func TestUserUseCase_Lockout(t *testing.T) {
	ctx := context.Background()

	t.Run("Threshold blocks and warns", func(t *testing.T) {
		f := newUseCaseFixture(t)

		for i := 1; i <= 4; i++ {
			count, err := f.useCase.IncreaseFailedLoginAttempts(ctx, f.user.Email)
			require.NoError(t, err)
			assert.Equal(t, i, count)
			assert.Empty(t, f.mail.lockouts)
		}

		count, err := f.useCase.IncreaseFailedLoginAttempts(ctx, f.user.Email)
		require.NoError(t, err)
		assert.Equal(t, 5, count)

		until, ok := f.userStore.blocked[f.user.UID]
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(180*time.Second), until, 5*time.Second)
		assert.Equal(t, []string{f.user.Email}, f.mail.lockouts)
	})

	t.Run("Counts between thresholds do not block", func(t *testing.T) {
		f := newUseCaseFixture(t)
		f.userStore.users[f.user.UID].FailedLoginAttempts = 5

		count, err := f.useCase.IncreaseFailedLoginAttempts(ctx, f.user.Email)
		require.NoError(t, err)
		assert.Equal(t, 6, count)
		assert.Empty(t, f.userStore.blocked)
	})

	t.Run("Second threshold blocks longer", func(t *testing.T) {
		f := newUseCaseFixture(t)
		f.userStore.users[f.user.UID].FailedLoginAttempts = 9

		_, err := f.useCase.IncreaseFailedLoginAttempts(ctx, f.user.Email)
		require.NoError(t, err)

		until := f.userStore.blocked[f.user.UID]
		assert.WithinDuration(t, time.Now().Add(600*time.Second), until, 5*time.Second)
	})

	t.Run("Reset zeroes the counter", func(t *testing.T) {
		f := newUseCaseFixture(t)
		f.userStore.users[f.user.UID].FailedLoginAttempts = 3

		require.NoError(t, f.useCase.ResetFailedLoginAttempts(ctx, f.user.Email))
		assert.Zero(t, f.userStore.users[f.user.UID].FailedLoginAttempts)
	})
}

func TestUserUseCase_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newUseCaseFixture(t)

		err := f.useCase.ChangePassword(ctx, f.user.Email, "password1", "newpassword2")
		require.NoError(t, err)

		credentialEnc, ok := f.userStore.passwords[f.user.UID]
		require.True(t, ok)
		credential, err := f.cipher.Decrypt(credentialEnc, testDek)
		require.NoError(t, err)
		assert.True(t, f.passwords.Verify("newpassword2", credential))
	})

	t.Run("Wrong old password", func(t *testing.T) {
		f := newUseCaseFixture(t)

		err := f.useCase.ChangePassword(ctx, f.user.Email, "wrongpass1", "newpassword2")
		assert.ErrorIs(t, err, errors.ErrInvalidPassword)
		assert.Empty(t, f.userStore.passwords)
	})

	t.Run("Weak new password", func(t *testing.T) {
		f := newUseCaseFixture(t)

		err := f.useCase.ChangePassword(ctx, f.user.Email, "password1", "weak")
		assert.ErrorIs(t, err, errors.ErrInvalidPassword)
	})
}

func TestUserUseCase_PasswordReset(t *testing.T) {
	ctx := context.Background()

	requestReset := func(t *testing.T, f *useCaseFixture) string {
		t.Helper()
		require.NoError(t, f.useCase.RequestPasswordReset(ctx, f.user.Email))
		require.Len(t, f.resetStore.requests, 1)
		for id := range f.resetStore.requests {
			return id
		}
		return ""
	}

	t.Run("Request stores an encrypted email and mails the link", func(t *testing.T) {
		f := newUseCaseFixture(t)
		reqID := requestReset(t, f)

		stored := f.resetStore.requests[reqID]
		assert.NotEqual(t, f.user.Email, stored.Email)

		email, err := f.cipher.Decrypt(stored.Email, testDek)
		require.NoError(t, err)
		assert.Equal(t, f.user.Email, email)

		require.Len(t, f.mail.resetLinks, 1)
		assert.Equal(t, f.user.Email+"|"+reqID, f.mail.resetLinks[0])
	})

	t.Run("Apply consumes the link and stores the new password", func(t *testing.T) {
		f := newUseCaseFixture(t)
		reqID := requestReset(t, f)

		err := f.useCase.ApplyPasswordReset(ctx, reqID, f.user.Email, "newpassword2")
		require.NoError(t, err)

		assert.True(t, f.resetStore.requests[reqID].IsUsed)
		assert.Equal(t, []string{f.user.Email}, f.mail.confirmations)

		credential, err := f.cipher.Decrypt(f.userStore.passwords[f.user.UID], testDek)
		require.NoError(t, err)
		assert.True(t, f.passwords.Verify("newpassword2", credential))
	})

	t.Run("A link works at most once", func(t *testing.T) {
		f := newUseCaseFixture(t)
		reqID := requestReset(t, f)

		require.NoError(t, f.useCase.ApplyPasswordReset(ctx, reqID, f.user.Email, "newpassword2"))

		err := f.useCase.ApplyPasswordReset(ctx, reqID, f.user.Email, "newpassword3")
		assert.ErrorIs(t, err, errors.ErrResetLinkExpired)
	})

	t.Run("Link bound to another email is rejected", func(t *testing.T) {
		f := newUseCaseFixture(t)
		reqID := requestReset(t, f)

		// Second account trying to use Alice's link.
		other := userDomain.NewUser("Bob", "bob@example.com", "user", "credential.salt")
		require.NoError(t, f.dekStore.Put(ctx, other.UID, other.Email, testDek))
		require.NoError(t, f.userStore.Insert(ctx, other, testDek))

		err := f.useCase.ApplyPasswordReset(ctx, reqID, other.Email, "newpassword2")
		assert.ErrorIs(t, err, errors.ErrResetLinkNotFound)
		assert.False(t, f.resetStore.requests[reqID].IsUsed)
	})

	t.Run("Expired link is rejected", func(t *testing.T) {
		f := newUseCaseFixture(t)
		reqID := requestReset(t, f)
		f.resetStore.requests[reqID].ValidTill = time.Now().Add(-time.Minute)

		err := f.useCase.ApplyPasswordReset(ctx, reqID, f.user.Email, "newpassword2")
		assert.ErrorIs(t, err, errors.ErrResetLinkExpired)
	})
}

func TestUserUseCase_EmailVerification(t *testing.T) {
	ctx := context.Background()

	requestVerification := func(t *testing.T, f *useCaseFixture) string {
		t.Helper()
		require.NoError(t, f.useCase.RequestEmailVerification(ctx, f.user.Email))
		require.Len(t, f.verifications.requests, 1)
		for id := range f.verifications.requests {
			return id
		}
		return ""
	}

	t.Run("Request mails the link", func(t *testing.T) {
		f := newUseCaseFixture(t)
		reqID := requestVerification(t, f)

		require.Len(t, f.mail.verifyLinks, 1)
		assert.Equal(t, f.user.Email+"|"+reqID, f.mail.verifyLinks[0])
		assert.Equal(t, f.user.UID, f.verifications.requests[reqID].UID)
	})

	t.Run("Confirm marks verified and deletes the request", func(t *testing.T) {
		f := newUseCaseFixture(t)
		reqID := requestVerification(t, f)

		require.NoError(t, f.useCase.ConfirmEmailVerification(ctx, reqID))
		assert.True(t, f.userStore.users[f.user.UID].EmailVerified)
		assert.Empty(t, f.verifications.requests)
	})

	t.Run("Expired request is rejected", func(t *testing.T) {
		f := newUseCaseFixture(t)
		reqID := requestVerification(t, f)
		f.verifications.requests[reqID].ExpiresAt = time.Now().Add(-time.Minute)

		err := f.useCase.ConfirmEmailVerification(ctx, reqID)
		assert.ErrorIs(t, err, errors.ErrVerificationLinkExpired)
		assert.False(t, f.userStore.users[f.user.UID].EmailVerified)
	})
}

func TestUserUseCase_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("Full cascade", func(t *testing.T) {
		f := newUseCaseFixture(t)

		require.NoError(t, f.useCase.Delete(ctx, f.user.Email))

		assert.Empty(t, f.userStore.users)
		assert.Empty(t, f.dekStore.records)
		assert.Equal(t, []string{f.user.UID + "|" + testDek}, f.sessions.calls)
	})

	t.Run("Missing dependents report a partial delete", func(t *testing.T) {
		f := newUseCaseFixture(t)
		f.sessions.err = errors.Wrap(errors.ErrKeyNotFound, "sessions already gone")

		err := f.useCase.Delete(ctx, f.user.Email)
		assert.ErrorIs(t, err, errors.ErrPartialDelete)
		assert.Empty(t, f.userStore.users)
	})

	t.Run("Unknown user", func(t *testing.T) {
		f := newUseCaseFixture(t)

		err := f.useCase.Delete(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, errors.ErrUserNotFound)
	})
}
