package handler

import (
	"net/http"

	"github.com/fluxmesh/accounts/config"
	"github.com/fluxmesh/accounts/internal/constants"
	"github.com/fluxmesh/accounts/internal/dto"
	apperrors "github.com/fluxmesh/accounts/internal/errors"
	"github.com/fluxmesh/accounts/internal/middleware"
	"github.com/fluxmesh/accounts/internal/service"
	ctxutil "github.com/fluxmesh/accounts/pkg/context"
	"github.com/fluxmesh/accounts/pkg/logger"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth   *service.AuthService
	tokens *service.TokenService
	cookie config.CookieConfig
	secure bool
}

func NewAuthHandler(auth *service.AuthService, tokens *service.TokenService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		tokens: tokens,
		cookie: cfg.Cookie,
		secure: !cfg.App.Testing,
	}
}

// setRefreshCookie delivers the refresh token. HTTP-only and path-scoped so
// only the refresh endpoint ever sees it; secure except under the testing
// flag.
func (h *AuthHandler) setRefreshCookie(c *gin.Context, refreshToken string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, refreshToken, int(h.tokens.RefreshTTL().Seconds()), h.cookie.Path, "", h.secure, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, "", -1, h.cookie.Path, "", h.secure, true)
}

func (h *AuthHandler) accessResponse(tokens *service.AuthTokens) dto.AuthResponse {
	return dto.AuthResponse{
		AccessToken: tokens.AccessToken,
		ExpiresIn:   int(h.tokens.AccessTTL().Seconds()),
	}
}

// Register handles account creation
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Register")

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", err.Error()))
		return
	}

	logger.InfoWithContext(ctx, "Registration attempt").
		String("email", req.Email).
		Log()

	if err := h.auth.Register(ctx, &req); err != nil {
		logger.WarnWithContext(ctx, "Registration failed").
			String("email", req.Email).
			Err(err).
			Log()
		c.JSON(apperrors.ToHTTPStatus(err), constants.BuildErrorResponse("Registration failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusCreated, constants.BuildSuccessResponse(constants.MsgRegistered))
}

// ConfirmEmail activates an account from its confirmation token
func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ConfirmEmail")

	var req dto.ConfirmEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", err.Error()))
		return
	}

	tokens, err := h.auth.ConfirmEmail(ctx, req.ConfirmationToken)
	if err != nil {
		logger.WarnWithContext(ctx, "Email confirmation failed").
			Err(err).
			Log()
		c.JSON(apperrors.ToHTTPStatus(err), constants.BuildErrorResponse("Confirmation failed", apperrors.GetErrorMessage(err)))
		return
	}

	h.setRefreshCookie(c, tokens.RefreshToken)
	c.JSON(http.StatusOK, h.accessResponse(tokens))
}

// Login authenticates with email and password
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Login")

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", err.Error()))
		return
	}

	logger.InfoWithContext(ctx, "Login attempt").
		String("email", req.Email).
		Log()

	result, err := h.auth.Login(ctx, &req)
	if err != nil {
		logger.WarnWithContext(ctx, "Login failed").
			String("email", req.Email).
			Err(err).
			Log()
		c.JSON(apperrors.ToHTTPStatus(err), constants.BuildErrorResponse("Authentication failed", apperrors.GetErrorMessage(err)))
		return
	}

	if result.TwoFactorPending {
		c.JSON(http.StatusOK, dto.LoginResponse{
			Message:   constants.MsgAccessCodeSent,
			TwoFactor: true,
		})
		return
	}

	h.setRefreshCookie(c, result.Tokens.RefreshToken)
	c.JSON(http.StatusOK, dto.LoginResponse{
		AccessToken: result.Tokens.AccessToken,
		ExpiresIn:   int(h.tokens.AccessTTL().Seconds()),
	})
}

// ConfirmLogin completes a two-factor login with the emailed code
func (h *AuthHandler) ConfirmLogin(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ConfirmLogin")

	var req dto.ConfirmLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", err.Error()))
		return
	}

	tokens, err := h.auth.ConfirmLogin(ctx, &req)
	if err != nil {
		logger.WarnWithContext(ctx, "Login confirmation failed").
			String("email", req.Email).
			Err(err).
			Log()
		c.JSON(apperrors.ToHTTPStatus(err), constants.BuildErrorResponse("Authentication failed", apperrors.GetErrorMessage(err)))
		return
	}

	h.setRefreshCookie(c, tokens.RefreshToken)
	c.JSON(http.StatusOK, h.accessResponse(tokens))
}

// Logout clears the refresh cookie. Nothing server-side to revoke: access
// tokens expire on their own and the cookie held the only refresh token.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgLoggedOut))
}

// Refresh rotates the token pair from the refresh cookie
func (h *AuthHandler) Refresh(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Refresh")

	refreshToken, err := c.Cookie(h.cookie.Name)
	if err != nil || refreshToken == "" {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse("Unauthorized", nil))
		return
	}

	tokens, err := h.auth.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		logger.WarnWithContext(ctx, "Token refresh rejected").
			Err(err).
			Log()
		// Whatever went wrong, the cookie is useless now. Dropping it forces
		// a clean re-login instead of a retry loop.
		h.clearRefreshCookie(c)
		c.JSON(apperrors.ToHTTPStatus(err), constants.BuildErrorResponse("Token refresh failed", apperrors.GetErrorMessage(err)))
		return
	}

	h.setRefreshCookie(c, tokens.RefreshToken)
	c.JSON(http.StatusOK, h.accessResponse(tokens))
}

// SendResetPasswordEmail always answers with the same message so the
// endpoint cannot be used to discover which emails have accounts
func (h *AuthHandler) SendResetPasswordEmail(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "SendResetPasswordEmail")

	var req dto.ResetPasswordEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", err.Error()))
		return
	}

	if err := h.auth.SendResetPasswordEmail(ctx, req.Email); err != nil {
		logger.ErrorWithContext(ctx, "Reset email handling failed").
			Err(err).
			Log()
		c.JSON(apperrors.ToHTTPStatus(err), constants.BuildErrorResponse("Something went wrong", nil))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgResetEmailSent))
}

// ResetPassword sets a new password from a reset token
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ResetPassword")

	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", err.Error()))
		return
	}

	if err := h.auth.ResetPassword(ctx, &req); err != nil {
		logger.WarnWithContext(ctx, "Password reset failed").
			Err(err).
			Log()
		c.JSON(apperrors.ToHTTPStatus(err), constants.BuildErrorResponse("Password reset failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgPasswordReset))
}

// ChangeTwoFactor toggles two-factor authentication for the caller
func (h *AuthHandler) ChangeTwoFactor(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ChangeTwoFactor")

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse("Unauthorized", nil))
		return
	}

	var req dto.ChangeTwoFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", err.Error()))
		return
	}

	if err := h.auth.ChangeTwoFactorAuth(ctx, userID, *req.Activate); err != nil {
		c.JSON(apperrors.ToHTTPStatus(err), constants.BuildErrorResponse("Update failed", apperrors.GetErrorMessage(err)))
		return
	}

	message := constants.MsgTwoFactorDisabled
	if *req.Activate {
		message = constants.MsgTwoFactorEnabled
	}
	c.JSON(http.StatusOK, constants.BuildSuccessResponse(message))
}

// UpdateEmail changes the account email and rotates the token pair
func (h *AuthHandler) UpdateEmail(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "UpdateEmail")

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse("Unauthorized", nil))
		return
	}

	var req dto.UpdateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", err.Error()))
		return
	}

	tokens, err := h.auth.UpdateEmail(ctx, userID, &req)
	if err != nil {
		logger.WarnWithContext(ctx, "Email update failed").
			Err(err).
			Log()
		c.JSON(apperrors.ToHTTPStatus(err), constants.BuildErrorResponse("Email update failed", apperrors.GetErrorMessage(err)))
		return
	}

	h.setRefreshCookie(c, tokens.RefreshToken)
	c.JSON(http.StatusOK, h.accessResponse(tokens))
}

// UpdatePassword changes the password and rotates the token pair
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "UpdatePassword")

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse("Unauthorized", nil))
		return
	}

	var req dto.UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", err.Error()))
		return
	}

	tokens, err := h.auth.UpdatePassword(ctx, userID, &req)
	if err != nil {
		logger.WarnWithContext(ctx, "Password update failed").
			Err(err).
			Log()
		c.JSON(apperrors.ToHTTPStatus(err), constants.BuildErrorResponse("Password update failed", apperrors.GetErrorMessage(err)))
		return
	}

	h.setRefreshCookie(c, tokens.RefreshToken)
	c.JSON(http.StatusOK, h.accessResponse(tokens))
}

// ConfirmCredentials acknowledges the periodic credentials reminder
func (h *AuthHandler) ConfirmCredentials(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ConfirmCredentials")

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse("Unauthorized", nil))
		return
	}

	if err := h.auth.ConfirmCredentials(ctx, userID); err != nil {
		c.JSON(apperrors.ToHTTPStatus(err), constants.BuildErrorResponse("Update failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgCredentialsOK))
}
