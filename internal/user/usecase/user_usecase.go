package usecase

import (
	"context"
	"log/slog"
	"time"

	authService "github.com/allisson/flexauth/internal/auth/service"
	cryptoDomain "github.com/allisson/flexauth/internal/crypto/domain"
	cryptoService "github.com/allisson/flexauth/internal/crypto/service"
	"github.com/allisson/flexauth/internal/errors"
	"github.com/allisson/flexauth/internal/mailer"
	userDomain "github.com/allisson/flexauth/internal/user/domain"
)

// userUseCase implements UseCase. Every operation first resolves the DEK
// record for the identifier (a KEK lookup), then works on the user record
// through the plaintext uid.
type userUseCase struct {
	dekRepo          DekRepository
	userRepo         UserRepository
	resetRepo        ResetRepository
	verificationRepo VerificationRepository
	sessions         SessionRemover
	passwordService  authService.PasswordService
	cipher           cryptoService.Cipher
	mailer           mailer.Mailer
	logger           *slog.Logger
	now              func() time.Time
}

// NewUserUseCase creates the user management use case.
func NewUserUseCase(
	dekRepo DekRepository,
	userRepo UserRepository,
	resetRepo ResetRepository,
	verificationRepo VerificationRepository,
	sessions SessionRemover,
	passwordService authService.PasswordService,
	cipher cryptoService.Cipher,
	mailSender mailer.Mailer,
	logger *slog.Logger,
) UseCase {
	return &userUseCase{
		dekRepo:          dekRepo,
		userRepo:         userRepo,
		resetRepo:        resetRepo,
		verificationRepo: verificationRepo,
		sessions:         sessions,
		passwordService:  passwordService,
		cipher:           cipher,
		mailer:           mailSender,
		logger:           logger,
		now:              time.Now,
	}
}

// Get returns the decrypted user for an email or uid identifier.
func (u *userUseCase) Get(ctx context.Context, identifier string) (*userDomain.User, error) {
	rec, err := u.dekRepo.Get(ctx, identifier)
	if err != nil {
		if errors.Is(err, errors.ErrKeyNotFound) {
			return nil, errors.Wrap(errors.ErrUserNotFound, "no user for identifier")
		}
		return nil, err
	}
	return u.userRepo.GetByUID(ctx, rec.UID, rec.Dek)
}

// GetAll returns every user decrypted with its own DEK. Users whose DEK is
// missing are logged and skipped; their encrypted fields are unrecoverable.
func (u *userUseCase) GetAll(ctx context.Context) ([]userDomain.User, error) {
	raw, err := u.userRepo.GetAllRaw(ctx)
	if err != nil {
		return nil, err
	}

	users := make([]userDomain.User, 0, len(raw))
	for i := range raw {
		rec, err := u.dekRepo.Get(ctx, raw[i].UID)
		if err != nil {
			if errors.Is(err, errors.ErrKeyNotFound) {
				u.logger.Warn("skipping user without DEK record", slog.String("uid", raw[i].UID))
				continue
			}
			return nil, err
		}
		decrypted, err := u.userRepo.GetByUID(ctx, raw[i].UID, rec.Dek)
		if err != nil {
			return nil, err
		}
		users = append(users, *decrypted)
	}
	return users, nil
}

// UpdateName re-encrypts and stores a new display name.
func (u *userUseCase) UpdateName(ctx context.Context, email, name string) error {
	rec, err := u.resolve(ctx, email)
	if err != nil {
		return err
	}
	nameEnc, err := u.cipher.Encrypt(name, rec.Dek)
	if err != nil {
		return err
	}
	return u.userRepo.UpdateName(ctx, rec.UID, nameEnc)
}

// UpdateRole re-encrypts and stores a new role. The role is stored but not
// interpreted by this service.
func (u *userUseCase) UpdateRole(ctx context.Context, email, role string) error {
	rec, err := u.resolve(ctx, email)
	if err != nil {
		return err
	}
	roleEnc, err := u.cipher.Encrypt(role, rec.Dek)
	if err != nil {
		return err
	}
	return u.userRepo.UpdateRole(ctx, rec.UID, roleEnc)
}

// ToggleActivation flips the account activation flag.
func (u *userUseCase) ToggleActivation(ctx context.Context, email string, isActive bool) error {
	rec, err := u.resolve(ctx, email)
	if err != nil {
		return err
	}
	return u.userRepo.SetActive(ctx, rec.UID, isActive)
}

// ChangePassword verifies the old password and stores a rehash of the new one.
func (u *userUseCase) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	if err := u.passwordService.ValidatePolicy(newPassword); err != nil {
		return err
	}

	rec, err := u.resolve(ctx, email)
	if err != nil {
		return err
	}
	user, err := u.userRepo.GetByUID(ctx, rec.UID, rec.Dek)
	if err != nil {
		return err
	}

	if !u.passwordService.Verify(oldPassword, user.Password) {
		return errors.Wrap(errors.ErrInvalidPassword, "old password does not match")
	}

	return u.storePassword(ctx, rec, newPassword)
}

// IncreaseFailedLoginAttempts atomically bumps the counter. When the new
// count hits a schedule threshold the lockout deadline is written and a
// warning email dispatched; writing the same deadline twice is idempotent,
// so interleaved increments are safe.
func (u *userUseCase) IncreaseFailedLoginAttempts(ctx context.Context, email string) (int, error) {
	rec, err := u.resolve(ctx, email)
	if err != nil {
		return 0, err
	}

	count, err := u.userRepo.IncrementFailedAttempts(ctx, rec.UID)
	if err != nil {
		return 0, err
	}

	if blockFor, ok := userDomain.LockoutSchedule[count]; ok {
		until := u.now().UTC().Add(blockFor)
		if err := u.userRepo.SetBlockedUntil(ctx, rec.UID, until); err != nil {
			return count, err
		}
		u.sendMail(ctx, "lockout warning", func() error {
			return u.mailer.SendLockoutWarning(ctx, rec.Email, until)
		})
	}

	return count, nil
}

// ResetFailedLoginAttempts zeroes the counter.
func (u *userUseCase) ResetFailedLoginAttempts(ctx context.Context, email string) error {
	rec, err := u.resolve(ctx, email)
	if err != nil {
		return err
	}
	return u.userRepo.ResetFailedAttempts(ctx, rec.UID)
}

// RequestPasswordReset creates a single-use reset request and mails the link.
func (u *userUseCase) RequestPasswordReset(ctx context.Context, email string) error {
	rec, err := u.resolve(ctx, email)
	if err != nil {
		return err
	}

	req := userDomain.NewForgetPasswordRequest(email)
	reqID := req.ID
	if req.Email, err = u.cipher.Encrypt(email, rec.Dek); err != nil {
		return err
	}
	if err := u.resetRepo.Insert(ctx, req); err != nil {
		return err
	}

	u.sendMail(ctx, "password reset link", func() error {
		return u.mailer.SendPasswordResetLink(ctx, rec.Email, reqID)
	})
	return nil
}

// ApplyPasswordReset consumes the request and stores the new password. The
// consumption is a single conditional update, so a link works at most once.
func (u *userUseCase) ApplyPasswordReset(ctx context.Context, reqID, email, newPassword string) error {
	if err := u.passwordService.ValidatePolicy(newPassword); err != nil {
		return err
	}

	rec, err := u.resolve(ctx, email)
	if err != nil {
		return err
	}

	req, err := u.resetRepo.Get(ctx, reqID)
	if err != nil {
		return err
	}
	reqEmail, err := u.cipher.Decrypt(req.Email, rec.Dek)
	if err != nil || reqEmail != email {
		return errors.Wrap(errors.ErrResetLinkNotFound, "reset request does not belong to email")
	}

	if err := u.resetRepo.Consume(ctx, reqID); err != nil {
		return err
	}
	if err := u.storePassword(ctx, rec, newPassword); err != nil {
		return err
	}

	u.sendMail(ctx, "password reset confirmation", func() error {
		return u.mailer.SendPasswordResetConfirmation(ctx, rec.Email)
	})
	return nil
}

// RequestEmailVerification creates a verification request and mails the link.
func (u *userUseCase) RequestEmailVerification(ctx context.Context, email string) error {
	rec, err := u.resolve(ctx, email)
	if err != nil {
		return err
	}

	req := userDomain.NewEmailVerificationRequest(rec.UID, email)
	reqID := req.ReqID
	if req.Email, err = u.cipher.Encrypt(email, rec.Dek); err != nil {
		return err
	}
	if err := u.verificationRepo.Insert(ctx, req); err != nil {
		return err
	}

	u.sendMail(ctx, "verification link", func() error {
		return u.mailer.SendVerificationLink(ctx, rec.Email, reqID)
	})
	return nil
}

// ConfirmEmailVerification marks the email verified and deletes the request.
func (u *userUseCase) ConfirmEmailVerification(ctx context.Context, reqID string) error {
	req, err := u.verificationRepo.Get(ctx, reqID)
	if err != nil {
		return err
	}
	if u.now().After(req.ExpiresAt) {
		return errors.Wrap(errors.ErrVerificationLinkExpired, "verification request expired")
	}

	if err := u.userRepo.SetEmailVerified(ctx, req.UID); err != nil {
		return err
	}
	return u.verificationRepo.Delete(ctx, reqID)
}

// Delete removes the user, then its DEK record, then all of its sessions.
// Cleanup is best-effort: a dependent record that is already gone does not
// stop the cascade, but the caller learns about it via ErrPartialDelete.
func (u *userUseCase) Delete(ctx context.Context, email string) error {
	rec, err := u.resolve(ctx, email)
	if err != nil {
		return err
	}

	if err := u.userRepo.Delete(ctx, rec.UID); err != nil {
		return err
	}

	var partial bool
	if err := u.dekRepo.Delete(ctx, rec.UID); err != nil {
		if !errors.Is(err, errors.ErrKeyNotFound) {
			return err
		}
		partial = true
	}
	if err := u.sessions.DeleteAllForUID(ctx, rec.UID, rec.Dek); err != nil {
		if !errors.Is(err, errors.ErrKeyNotFound) {
			return err
		}
		partial = true
	}

	if partial {
		return errors.Wrap(errors.ErrPartialDelete, "user removed but dependent records were missing")
	}
	return nil
}

// resolve maps an email (or uid) identifier to its DEK record, translating
// a missing key into a user-not-found for callers that speak identifiers.
func (u *userUseCase) resolve(ctx context.Context, identifier string) (*cryptoDomain.DekRecord, error) {
	rec, err := u.dekRepo.Get(ctx, identifier)
	if err != nil {
		if errors.Is(err, errors.ErrKeyNotFound) {
			return nil, errors.Wrap(errors.ErrUserNotFound, "no user for identifier")
		}
		return nil, err
	}
	return rec, nil
}

// storePassword rehashes, encrypts and persists a new password.
func (u *userUseCase) storePassword(ctx context.Context, rec *cryptoDomain.DekRecord, password string) error {
	credential, err := u.passwordService.Hash(password)
	if err != nil {
		return err
	}
	credentialEnc, err := u.cipher.Encrypt(credential, rec.Dek)
	if err != nil {
		return err
	}
	return u.userRepo.UpdatePassword(ctx, rec.UID, credentialEnc)
}

// sendMail dispatches an email best-effort: transport failures are logged
// and never fail the enclosing request.
func (u *userUseCase) sendMail(ctx context.Context, kind string, send func() error) {
	if err := send(); err != nil {
		u.logger.Error("failed to send email",
			slog.String("kind", kind),
			slog.Any("error", err),
		)
	}
}
