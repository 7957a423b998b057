package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/fluxmesh/accounts/internal/constants"
	"github.com/fluxmesh/accounts/pkg/logger"
	"github.com/fluxmesh/accounts/pkg/validation"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type ValidationMiddleware struct {
	validate *validator.Validate
}

func NewValidationMiddleware() *ValidationMiddleware {
	validate := validator.New()
	// DTOs carry gin binding tags; reuse them instead of a parallel tag set
	validate.SetTagName("binding")
	return &ValidationMiddleware{validate: validate}
}

// ValidateRequestBody rejects malformed bodies before the handler runs. The
// body is restored afterwards so the handler can bind it again.
func (m *ValidationMiddleware) ValidateRequestBody(factory func() interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		var bodyBytes []byte
		if c.Request.Body != nil {
			var err error
			bodyBytes, err = io.ReadAll(c.Request.Body)
			if err != nil {
				logger.GetLogger().Error("Middleware: Failed to read request body",
					zap.String("client_ip", c.ClientIP()),
					zap.String("path", c.Request.URL.Path),
					zap.Error(err),
				)
				c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Failed to read request body", nil))
				c.Abort()
				return
			}
		}

		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		request := factory()

		if err := json.Unmarshal(bodyBytes, request); err != nil {
			c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid JSON body", err.Error()))
			c.Abort()
			return
		}

		if err := m.validate.Struct(request); err != nil {
			var validationErrors []string

			for _, e := range err.(validator.ValidationErrors) {
				if fieldMessages := validation.CustomMessage(e.Field()); fieldMessages != nil {
					if msg, exists := fieldMessages[e.Tag()]; exists {
						validationErrors = append(validationErrors, msg)
						continue
					}
				}
				validationErrors = append(validationErrors, validation.DefaultMessage(e.Field(), e.Tag()))
			}

			logger.GetLogger().Warn("Middleware: Request validation failed",
				zap.String("client_ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
				zap.Strings("validation_errors", validationErrors),
			)

			c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Validation failed", validationErrors))
			c.Abort()
			return
		}

		c.Next()
	}
}
