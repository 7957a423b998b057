package handler

import (
	"net/http"

	"github.com/fluxmesh/accounts/internal/constants"
	"github.com/fluxmesh/accounts/internal/dto"
	apperrors "github.com/fluxmesh/accounts/internal/errors"
	"github.com/fluxmesh/accounts/internal/service"
	ctxutil "github.com/fluxmesh/accounts/pkg/context"
	"github.com/fluxmesh/accounts/pkg/logger"
	"github.com/gin-gonic/gin"
)

// SessionHandler exposes realtime session bookkeeping to the gateway that
// terminates the actual socket connections.
type SessionHandler struct {
	sessions *service.SessionService
}

func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Create opens a session for the holder of an access token
func (h *SessionHandler) Create(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "CreateSession")

	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", err.Error()))
		return
	}

	userID, sessionID, err := h.sessions.Generate(ctx, req.AccessToken)
	if err != nil {
		logger.WarnWithContext(ctx, "Session creation rejected").
			Err(err).
			Log()
		c.JSON(apperrors.ToHTTPStatus(err), constants.BuildErrorResponse("Session creation failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusCreated, dto.SessionResponse{
		UserID:    userID,
		SessionID: sessionID,
	})
}

// Refresh reports whether a session is still valid. An invalid session is a
// normal answer here, not an error; the gateway tells the client to
// reconnect.
func (h *SessionHandler) Refresh(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "RefreshSession")

	var req dto.SessionRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", err.Error()))
		return
	}

	valid, err := h.sessions.Refresh(ctx, req.UserID, req.SessionID)
	if err != nil {
		logger.ErrorWithContext(ctx, "Session refresh failed").
			Uint("user_id", req.UserID).
			Err(err).
			Log()
		c.JSON(apperrors.ToHTTPStatus(err), constants.BuildErrorResponse("Session refresh failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, dto.RefreshSessionResponse{Valid: valid})
}

// Close removes a session on explicit disconnect
func (h *SessionHandler) Close(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "CloseSession")

	var req dto.SessionRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", err.Error()))
		return
	}

	if err := h.sessions.Close(ctx, req.UserID, req.SessionID); err != nil {
		logger.WarnWithContext(ctx, "Session close failed").
			Uint("user_id", req.UserID).
			String("session_id", req.SessionID).
			Err(err).
			Log()
		c.JSON(apperrors.ToHTTPStatus(err), constants.BuildErrorResponse("Session close failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Session closed."))
}
