package usecase

import (
	"context"
	"time"

	"github.com/allisson/flexauth/internal/metrics"
)

// coordinatorWithMetrics decorates Coordinator with metrics instrumentation.
type coordinatorWithMetrics struct {
	next    Coordinator
	metrics metrics.BusinessMetrics
}

// NewCoordinatorWithMetrics wraps a Coordinator with metrics recording.
func NewCoordinatorWithMetrics(coordinator Coordinator, m metrics.BusinessMetrics) Coordinator {
	return &coordinatorWithMetrics{
		next:    coordinator,
		metrics: m,
	}
}

// SignUp records metrics for sign-up operations.
func (c *coordinatorWithMetrics) SignUp(
	ctx context.Context,
	name, email, role, password, userAgent string,
) (*AuthResponse, error) {
	start := time.Now()
	response, err := c.next.SignUp(ctx, name, email, role, password, userAgent)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "auth", "sign_up", status)
	c.metrics.RecordDuration(ctx, "auth", "sign_up", time.Since(start), status)

	return response, err
}

// SignIn records metrics for sign-in operations.
func (c *coordinatorWithMetrics) SignIn(
	ctx context.Context,
	email, password, userAgent string,
) (*AuthResponse, error) {
	start := time.Now()
	response, err := c.next.SignIn(ctx, email, password, userAgent)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "auth", "sign_in", status)
	c.metrics.RecordDuration(ctx, "auth", "sign_in", time.Since(start), status)

	return response, err
}

// SignOut records metrics for sign-out operations.
func (c *coordinatorWithMetrics) SignOut(ctx context.Context, uid, sessionID string) error {
	start := time.Now()
	err := c.next.SignOut(ctx, uid, sessionID)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "auth", "sign_out", status)
	c.metrics.RecordDuration(ctx, "auth", "sign_out", time.Since(start), status)

	return err
}
