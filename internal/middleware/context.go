package middleware

import (
	"time"

	ctxutil "github.com/fluxmesh/accounts/pkg/context"
	"github.com/fluxmesh/accounts/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ContextMiddleware attaches request metadata and a per-request timeout to
// the context every layer below logs against.
func ContextMiddleware(module string, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		function := c.Request.URL.Path
		ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, function)

		ctx, cancel := ctxutil.WithTimeout(ctx, timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		logger.DebugWithContext(ctx, "Request started").
			String("method", c.Request.Method).
			String("path", c.Request.URL.Path).
			String("query", c.Request.URL.RawQuery).
			Log()

		c.Next()

		logger.InfoWithContext(ctx, "Request completed").
			String("method", c.Request.Method).
			String("path", c.Request.URL.Path).
			Int("status_code", c.Writer.Status()).
			Int("response_size", c.Writer.Size()).
			Duration(ctxutil.GetDuration(ctx)).
			Log()
	}
}
