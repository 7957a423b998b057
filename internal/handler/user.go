package handler

import (
	"net/http"

	"github.com/fluxmesh/accounts/internal/constants"
	"github.com/fluxmesh/accounts/internal/dto"
	apperrors "github.com/fluxmesh/accounts/internal/errors"
	"github.com/fluxmesh/accounts/internal/middleware"
	"github.com/fluxmesh/accounts/internal/model"
	"github.com/fluxmesh/accounts/internal/service"
	ctxutil "github.com/fluxmesh/accounts/pkg/context"
	"github.com/fluxmesh/accounts/pkg/logger"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users *service.UserService
	auth  *AuthHandler
}

func NewUserHandler(users *service.UserService, auth *AuthHandler) *UserHandler {
	return &UserHandler{users: users, auth: auth}
}

// GetMe returns the caller's profile
func (h *UserHandler) GetMe(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "GetMe")

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse("Unauthorized", nil))
		return
	}

	profile, err := h.users.GetMe(ctx, userID)
	if err != nil {
		c.JSON(apperrors.ToHTTPStatus(err), constants.BuildErrorResponse("Profile lookup failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateStatus changes the caller's default presence
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "UpdateStatus")

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse("Unauthorized", nil))
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", err.Error()))
		return
	}

	profile, err := h.users.UpdateDefaultStatus(ctx, userID, model.OnlineStatus(req.DefaultStatus))
	if err != nil {
		c.JSON(apperrors.ToHTTPStatus(err), constants.BuildErrorResponse("Status update failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateAvatar sets the caller's avatar URL
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "UpdateAvatar")

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse("Unauthorized", nil))
		return
	}

	var req dto.UpdateAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", err.Error()))
		return
	}

	profile, err := h.users.UpdateAvatar(ctx, userID, req.AvatarURL)
	if err != nil {
		c.JSON(apperrors.ToHTTPStatus(err), constants.BuildErrorResponse("Avatar update failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, profile)
}

// DeleteAccount permanently deletes the caller's account
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "DeleteAccount")

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse("Unauthorized", nil))
		return
	}

	var req dto.DeleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", err.Error()))
		return
	}

	if err := h.users.DeleteAccount(ctx, userID, req.Password); err != nil {
		logger.WarnWithContext(ctx, "Account deletion failed").
			Err(err).
			Log()
		c.JSON(apperrors.ToHTTPStatus(err), constants.BuildErrorResponse("Account deletion failed", apperrors.GetErrorMessage(err)))
		return
	}

	h.auth.clearRefreshCookie(c)
	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgAccountDeleted))
}
