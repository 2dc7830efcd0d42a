// Package usecase aggregates service-wide counts for the overview endpoint.
package usecase

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	sessionDomain "github.com/allisson/flexauth/internal/session/domain"
	userDomain "github.com/allisson/flexauth/internal/user/domain"
)

// UserLister reads every user record; encrypted fields are not needed for
// counting, so the raw form is enough.
type UserLister interface {
	GetAllRaw(ctx context.Context) ([]userDomain.User, error)
}

// SessionLister reads every session record in raw form.
type SessionLister interface {
	GetAllRaw(ctx context.Context) ([]sessionDomain.Session, error)
}

// DekCounter counts DEK records. A healthy store has exactly one per user.
type DekCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Overview is the aggregated service state.
type Overview struct {
	UserCount           int
	ActiveUserCount     int
	InactiveUserCount   int
	BlockedUserCount    int
	ActiveSessionCount  int
	RevokedSessionCount int
	DekRecordCount      int64
}

// UseCase computes the overview.
type UseCase interface {
	Get(ctx context.Context) (*Overview, error)
}

type overviewUseCase struct {
	users    UserLister
	sessions SessionLister
	deks     DekCounter
	now      func() time.Time
}

// NewOverviewUseCase creates the overview use case.
func NewOverviewUseCase(users UserLister, sessions SessionLister, deks DekCounter) UseCase {
	return &overviewUseCase{
		users:    users,
		sessions: sessions,
		deks:     deks,
		now:      time.Now,
	}
}

// Get counts users by activation and lockout state and sessions by
// revocation state. All counted fields are stored plaintext, so no DEK
// resolution happens here.
func (o *overviewUseCase) Get(ctx context.Context) (*Overview, error) {
	var (
		users    []userDomain.User
		sessions []sessionDomain.Session
		dekCount int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = o.users.GetAllRaw(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		sessions, err = o.sessions.GetAllRaw(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		dekCount, err = o.deks.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := o.now()
	overview := &Overview{UserCount: len(users), DekRecordCount: dekCount}
	for i := range users {
		if users[i].IsActive {
			overview.ActiveUserCount++
		} else {
			overview.InactiveUserCount++
		}
		if users[i].Blocked(now) {
			overview.BlockedUserCount++
		}
	}
	for i := range sessions {
		if sessions[i].IsRevoked {
			overview.RevokedSessionCount++
		} else {
			overview.ActiveSessionCount++
		}
	}
	return overview, nil
}
