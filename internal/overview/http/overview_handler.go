// Package http provides the HTTP handler for the overview endpoint.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/flexauth/internal/httputil"
	overviewUseCase "github.com/allisson/flexauth/internal/overview/usecase"
)

// OverviewResponse is the aggregated counts payload.
type OverviewResponse struct {
	UserCount           int   `json:"user_count"`
	ActiveUserCount     int   `json:"active_user_count"`
	InactiveUserCount   int   `json:"inactive_user_count"`
	BlockedUserCount    int   `json:"blocked_user_count"`
	ActiveSessionCount  int   `json:"active_session_count"`
	RevokedSessionCount int   `json:"revoked_session_count"`
	DekRecordCount      int64 `json:"dek_record_count"`
}

// OverviewHandler handles the aggregated counts endpoint.
type OverviewHandler struct {
	useCase overviewUseCase.UseCase
	logger  *slog.Logger
}

// NewOverviewHandler creates a new overview handler.
func NewOverviewHandler(useCase overviewUseCase.UseCase, logger *slog.Logger) *OverviewHandler {
	return &OverviewHandler{
		useCase: useCase,
		logger:  logger,
	}
}

// GetAllHandler returns the aggregated counts.
// GET /api/overview/get-all
func (h *OverviewHandler) GetAllHandler(c *gin.Context) {
	overview, err := h.useCase.Get(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, OverviewResponse{
		UserCount:           overview.UserCount,
		ActiveUserCount:     overview.ActiveUserCount,
		InactiveUserCount:   overview.InactiveUserCount,
		BlockedUserCount:    overview.BlockedUserCount,
		ActiveSessionCount:  overview.ActiveSessionCount,
		RevokedSessionCount: overview.RevokedSessionCount,
		DekRecordCount:      overview.DekRecordCount,
	})
}
