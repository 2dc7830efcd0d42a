package usecase

import (
	"context"
	"time"

	authService "github.com/allisson/flexauth/internal/auth/service"
	cryptoService "github.com/allisson/flexauth/internal/crypto/service"
	"github.com/allisson/flexauth/internal/errors"
	userDomain "github.com/allisson/flexauth/internal/user/domain"
)

// authCoordinator implements Coordinator.
type authCoordinator struct {
	dekRepo         DekRepository
	userRepo        UserRepository
	attempts        AttemptTracker
	sessions        SessionStarter
	passwordService authService.PasswordService
	cipher          cryptoService.Cipher
	now             func() time.Time
}

// NewAuthCoordinator creates the authentication coordinator.
func NewAuthCoordinator(
	dekRepo DekRepository,
	userRepo UserRepository,
	attempts AttemptTracker,
	sessions SessionStarter,
	passwordService authService.PasswordService,
	cipher cryptoService.Cipher,
) Coordinator {
	return &authCoordinator{
		dekRepo:         dekRepo,
		userRepo:        userRepo,
		attempts:        attempts,
		sessions:        sessions,
		passwordService: passwordService,
		cipher:          cipher,
		now:             time.Now,
	}
}

// SignUp creates the user, its DEK record and an initial session. The order
// matters: the user record is written before the DEK record so an existing
// DEK record always points at a real user.
func (a *authCoordinator) SignUp(ctx context.Context, name, email, role, password, userAgent string) (*AuthResponse, error) {
	if err := a.passwordService.ValidatePolicy(password); err != nil {
		return nil, err
	}

	_, err := a.dekRepo.Get(ctx, email)
	if err == nil {
		return nil, errors.Wrap(errors.ErrUserAlreadyExists, "email already registered")
	}
	if !errors.Is(err, errors.ErrKeyNotFound) {
		return nil, err
	}

	credential, err := a.passwordService.Hash(password)
	if err != nil {
		return nil, err
	}
	user := userDomain.NewUser(name, email, role, credential)

	dek, err := a.cipher.GenerateKeyset()
	if err != nil {
		return nil, err
	}

	if err := a.userRepo.Insert(ctx, user, dek); err != nil {
		return nil, err
	}
	if err := a.dekRepo.Put(ctx, user.UID, email, dek); err != nil {
		return nil, err
	}

	session, err := a.sessions.Create(ctx, user, dek, userAgent)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{User: user, Session: session}, nil
}

// SignIn verifies the password and creates a new session.
func (a *authCoordinator) SignIn(ctx context.Context, email, password, userAgent string) (*AuthResponse, error) {
	rec, err := a.dekRepo.Get(ctx, email)
	if err != nil {
		if errors.Is(err, errors.ErrKeyNotFound) {
			return nil, errors.Wrap(errors.ErrUserNotFound, "no user for email")
		}
		return nil, err
	}

	user, err := a.userRepo.GetByUID(ctx, rec.UID, rec.Dek)
	if err != nil {
		return nil, err
	}

	if user.Blocked(a.now()) {
		return nil, errors.Wrap(errors.ErrUserBlocked, "account is temporarily blocked")
	}

	if !a.passwordService.Verify(password, user.Password) {
		if _, err := a.attempts.IncreaseFailedLoginAttempts(ctx, email); err != nil {
			return nil, err
		}
		return nil, errors.Wrap(errors.ErrWrongCredentials, "password does not match")
	}

	session, err := a.sessions.Create(ctx, user, rec.Dek, userAgent)
	if err != nil {
		return nil, err
	}
	if err := a.attempts.ResetFailedLoginAttempts(ctx, email); err != nil {
		return nil, err
	}

	return &AuthResponse{User: user, Session: session}, nil
}

// SignOut revokes one session.
func (a *authCoordinator) SignOut(ctx context.Context, uid, sessionID string) error {
	return a.sessions.Revoke(ctx, uid, sessionID)
}
