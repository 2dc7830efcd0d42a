package http

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/allisson/flexauth/internal/httputil"
)

// APIKeyMiddleware enforces the shared x-api-key gateway secret on every
// route it is mounted on. The comparison is constant time so the key cannot
// be probed byte by byte.
func APIKeyMiddleware(apiKey string, logger *slog.Logger) gin.HandlerFunc {
	expected := []byte(apiKey)

	return func(c *gin.Context) {
		presented := []byte(c.GetHeader("x-api-key"))

		if len(expected) == 0 || subtle.ConstantTimeCompare(expected, presented) != 1 {
			logger.Warn("rejected request with bad api key",
				slog.String("path", c.Request.URL.Path),
				slog.String("req_uuid", requestid.Get(c)),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, httputil.ErrorResponse{
				Error: httputil.ErrorBody{
					Type:    "INVALID_API_KEY",
					ReqUUID: requestid.Get(c),
				},
			})
			return
		}

		c.Next()
	}
}
