package middleware

import (
	"net/http"
	"strings"

	"github.com/fluxmesh/accounts/internal/constants"
	"github.com/fluxmesh/accounts/internal/errors"
	"github.com/fluxmesh/accounts/internal/service"
	ctxutil "github.com/fluxmesh/accounts/pkg/context"
	"github.com/fluxmesh/accounts/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type JWTMiddleware struct {
	tokens *service.TokenService
}

func NewJWTMiddleware(tokens *service.TokenService) *JWTMiddleware {
	return &JWTMiddleware{tokens: tokens}
}

// RequireAuth validates the bearer access token and puts the user ID in the
// context. Access tokens are short-lived and carry no credentials version,
// so there is no database round trip here; revocation bites at refresh time.
func (m *JWTMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			logger.GetLogger().Warn("Missing or malformed Authorization header",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method))
			c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse("Unauthorized", nil))
			c.Abort()
			return
		}

		claims, err := m.tokens.VerifyAccess(tokenString)
		if err != nil {
			logger.GetLogger().Warn("Invalid or expired access token",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.Error(err))
			c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(errors.GetErrorMessage(err), nil))
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Request = c.Request.WithContext(ctxutil.WithUserID(c.Request.Context(), claims.UserID))

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// UserID reads the authenticated user ID set by RequireAuth
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
