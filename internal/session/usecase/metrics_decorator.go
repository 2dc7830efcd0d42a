package usecase

import (
	"context"
	"time"

	authService "github.com/allisson/flexauth/internal/auth/service"
	"github.com/allisson/flexauth/internal/metrics"
	sessionDomain "github.com/allisson/flexauth/internal/session/domain"
	userDomain "github.com/allisson/flexauth/internal/user/domain"
)

// managerWithMetrics decorates Manager with metrics instrumentation.
type managerWithMetrics struct {
	next    Manager
	metrics metrics.BusinessMetrics
}

// NewManagerWithMetrics wraps a Manager with metrics recording.
func NewManagerWithMetrics(manager Manager, m metrics.BusinessMetrics) Manager {
	return &managerWithMetrics{
		next:    manager,
		metrics: m,
	}
}

func (d *managerWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	d.metrics.RecordOperation(ctx, "session", operation, status)
	d.metrics.RecordDuration(ctx, "session", operation, time.Since(start), status)
}

// Create records metrics for session creation operations.
func (d *managerWithMetrics) Create(ctx context.Context, user *userDomain.User, dek, userAgent string) (*sessionDomain.Session, error) {
	start := time.Now()
	session, err := d.next.Create(ctx, user, dek, userAgent)
	d.record(ctx, "create", start, err)
	return session, err
}

// Verify records metrics for token verification operations.
func (d *managerWithMetrics) Verify(ctx context.Context, idToken string) (*authService.IDClaims, bool, error) {
	start := time.Now()
	claims, fresh, err := d.next.Verify(ctx, idToken)
	d.record(ctx, "verify", start, err)
	return claims, fresh, err
}

// Refresh records metrics for token rotation operations.
func (d *managerWithMetrics) Refresh(ctx context.Context, uid, sessionID, idToken, refreshToken, userAgent string) (*sessionDomain.TokenPair, error) {
	start := time.Now()
	pair, err := d.next.Refresh(ctx, uid, sessionID, idToken, refreshToken, userAgent)
	d.record(ctx, "refresh", start, err)
	return pair, err
}

// Revoke records metrics for single session revocations.
func (d *managerWithMetrics) Revoke(ctx context.Context, uid, sessionID string) error {
	start := time.Now()
	err := d.next.Revoke(ctx, uid, sessionID)
	d.record(ctx, "revoke", start, err)
	return err
}

// Delete records metrics for single session deletions.
func (d *managerWithMetrics) Delete(ctx context.Context, uid, sessionID string) error {
	start := time.Now()
	err := d.next.Delete(ctx, uid, sessionID)
	d.record(ctx, "delete", start, err)
	return err
}

// GetDetails records metrics for session detail reads.
func (d *managerWithMetrics) GetDetails(ctx context.Context, uid, sessionID string) (*sessionDomain.Session, error) {
	start := time.Now()
	session, err := d.next.GetDetails(ctx, uid, sessionID)
	d.record(ctx, "get_details", start, err)
	return session, err
}

// GetAll records metrics for full session listings.
func (d *managerWithMetrics) GetAll(ctx context.Context) ([]sessionDomain.Session, error) {
	start := time.Now()
	sessions, err := d.next.GetAll(ctx)
	d.record(ctx, "get_all", start, err)
	return sessions, err
}

// GetAllForUID records metrics for per-user session listings.
func (d *managerWithMetrics) GetAllForUID(ctx context.Context, uid string) ([]sessionDomain.Session, error) {
	start := time.Now()
	sessions, err := d.next.GetAllForUID(ctx, uid)
	d.record(ctx, "get_all_for_uid", start, err)
	return sessions, err
}

// RevokeAll records metrics for bulk revocations.
func (d *managerWithMetrics) RevokeAll(ctx context.Context, uid string) error {
	start := time.Now()
	err := d.next.RevokeAll(ctx, uid)
	d.record(ctx, "revoke_all", start, err)
	return err
}

// DeleteAll records metrics for bulk deletions.
func (d *managerWithMetrics) DeleteAll(ctx context.Context, uid string) error {
	start := time.Now()
	err := d.next.DeleteAll(ctx, uid)
	d.record(ctx, "delete_all", start, err)
	return err
}

// DeleteAllForUID records metrics for cascade deletions.
func (d *managerWithMetrics) DeleteAllForUID(ctx context.Context, uid, dek string) error {
	start := time.Now()
	err := d.next.DeleteAllForUID(ctx, uid, dek)
	d.record(ctx, "delete_all_for_uid", start, err)
	return err
}
