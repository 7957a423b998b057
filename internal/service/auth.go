package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/fluxmesh/accounts/internal/constants"
	"github.com/fluxmesh/accounts/internal/dto"
	"github.com/fluxmesh/accounts/internal/errors"
	"github.com/fluxmesh/accounts/internal/model"
	"github.com/fluxmesh/accounts/internal/repository"
	ctxutil "github.com/fluxmesh/accounts/pkg/context"
	"github.com/fluxmesh/accounts/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthTokens is a freshly signed access/refresh pair. The refresh token never
// appears in a response body; the handler moves it into the cookie.
type AuthTokens struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult distinguishes a completed login from one intercepted by
// two-factor authentication, where no tokens may leave the service.
type LoginResult struct {
	Tokens           *AuthTokens
	TwoFactorPending bool
}

type AuthService struct {
	users       *repository.UserRepository
	tokens      *TokenService
	codes       *AccessCodeService
	mailer      Mailer
	frontendURL string
}

func NewAuthService(users *repository.UserRepository, tokens *TokenService, codes *AccessCodeService, mailer Mailer, frontendURL string) *AuthService {
	return &AuthService{
		users:       users,
		tokens:      tokens,
		codes:       codes,
		mailer:      mailer,
		frontendURL: frontendURL,
	}
}

// Register creates an unconfirmed account and mails the confirmation link
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) error {
	ctx = ctxutil.WithOperation(ctx, "auth", "Register")

	if req.Password1 != req.Password2 {
		return errors.ErrPasswordMismatch
	}

	email := strings.ToLower(req.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return errors.ErrEmailExists
	} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.WrapError(errors.ErrInternal, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password1), bcrypt.DefaultCost)
	if err != nil {
		return errors.WrapError(errors.ErrInternal, err)
	}

	username, err := s.generateUsername(ctx, email)
	if err != nil {
		return err
	}

	user := &model.User{
		Name:          req.Name,
		Username:      username,
		Email:         email,
		Password:      string(hash),
		Confirmed:     false,
		OnlineStatus:  model.StatusOffline,
		DefaultStatus: model.StatusOnline,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return errors.WrapError(errors.ErrInternal, err)
	}

	s.sendConfirmationMail(ctx, user)

	return nil
}

// ConfirmEmail activates the account addressed by a confirmation token and
// logs the user in. The version bump burns the token, so confirmation links
// are single use.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (*AuthTokens, error) {
	ctx = ctxutil.WithOperation(ctx, "auth", "ConfirmEmail")

	claims, err := s.tokens.VerifyConfirmation(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, errors.ErrUnauthorized
	}

	if user.Confirmed {
		return nil, errors.ErrAlreadyConfirmed
	}
	if claims.Count != user.Credentials.Version {
		return nil, errors.ErrStaleToken
	}

	user.Confirmed = true
	user.LastLogin = time.Now()
	user.Credentials.UpdateVersion()

	if err := s.users.Save(ctx, user); err != nil {
		return nil, errors.WrapError(errors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Email confirmed").
		Uint("user_id", user.ID).
		Log()

	return s.issueTokens(user)
}

// Login authenticates by email and password. Accounts with two-factor enabled
// get an emailed code and no tokens; everyone else gets a token pair.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*LoginResult, error) {
	ctx = ctxutil.WithOperation(ctx, "auth", "Login")

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, errors.WrapError(errors.ErrInternal, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		// A failed login with the previous password gets a hint about when it
		// was changed. Advisory UX only, the answer is still a 401.
		if user.Credentials.LastPassword != "" {
			if bcrypt.CompareHashAndPassword([]byte(user.Credentials.LastPassword), []byte(req.Password)) == nil {
				return nil, errors.WithMessage(errors.ErrInvalidCredentials,
					fmt.Sprintf("You changed your password %s.", passwordAge(user.Credentials.UpdatedAt)))
			}
		}
		return nil, errors.ErrInvalidCredentials
	}

	if !user.Confirmed {
		s.sendConfirmationMail(ctx, user)
		return nil, errors.WithMessage(errors.ErrNotConfirmed, constants.MsgConfirmationSent)
	}

	if user.TwoFactor {
		code, err := s.codes.Generate(ctx, user.Email)
		if err != nil {
			return nil, err
		}
		s.sendAsync(ctx, "access code", func(mailCtx context.Context) error {
			return s.mailer.SendAccessCode(mailCtx, user.Email, user.Name, code)
		})
		return &LoginResult{TwoFactorPending: true}, nil
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.WarnWithContext(ctx, "Failed to record last login").
			Uint("user_id", user.ID).
			Err(err).
			Log()
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Tokens: tokens}, nil
}

// ConfirmLogin completes a two-factor login with the emailed code
func (s *AuthService) ConfirmLogin(ctx context.Context, req *dto.ConfirmLoginRequest) (*AuthTokens, error) {
	ctx = ctxutil.WithOperation(ctx, "auth", "ConfirmLogin")

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrInvalidAccessCode
		}
		return nil, errors.WrapError(errors.ErrInternal, err)
	}

	if err := s.codes.Verify(ctx, user.Email, req.AccessCode); err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.WarnWithContext(ctx, "Failed to record last login").
			Uint("user_id", user.ID).
			Err(err).
			Log()
	}

	return s.issueTokens(user)
}

// RefreshAccessToken rotates the token pair. The refresh token must carry the
// live credentials version; a mismatch means the token was revoked and the
// handler clears the cookie.
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	ctx = ctxutil.WithOperation(ctx, "auth", "RefreshAccessToken")

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, errors.ErrUnauthorized
	}

	if claims.Count != user.Credentials.Version {
		logger.InfoWithContext(ctx, "Stale refresh token rejected").
			Uint("user_id", user.ID).
			Int("token_count", claims.Count).
			Int("live_version", user.Credentials.Version).
			Log()
		return nil, errors.ErrStaleToken
	}

	return s.issueTokens(user)
}

// SendResetPasswordEmail mails a reset link when the address exists. The
// caller always answers with the same generic message either way, so the
// endpoint cannot be used to probe for accounts.
func (s *AuthService) SendResetPasswordEmail(ctx context.Context, email string) error {
	ctx = ctxutil.WithOperation(ctx, "auth", "SendResetPasswordEmail")

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			logger.DebugWithContext(ctx, "Reset requested for unknown email").Log()
			return nil
		}
		return errors.WrapError(errors.ErrInternal, err)
	}

	token, err := s.tokens.SignReset(user.ID, user.Email, user.Credentials.Version)
	if err != nil {
		return errors.WrapError(errors.ErrInternal, err)
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)
	s.sendAsync(ctx, "reset password", func(mailCtx context.Context) error {
		return s.mailer.SendResetPassword(mailCtx, user.Email, user.Name, link)
	})

	return nil
}

// ResetPassword sets a new password addressed by a reset token
func (s *AuthService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	ctx = ctxutil.WithOperation(ctx, "auth", "ResetPassword")

	if req.Password1 != req.Password2 {
		return errors.ErrPasswordMismatch
	}

	claims, err := s.tokens.VerifyReset(req.ResetToken)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return errors.ErrUnauthorized
	}

	if claims.Count != user.Credentials.Version {
		return errors.ErrStaleToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password1), bcrypt.DefaultCost)
	if err != nil {
		return errors.WrapError(errors.ErrInternal, err)
	}

	oldHash := user.Password
	user.Password = string(hash)
	user.Credentials.UpdatePassword(oldHash)

	if err := s.users.Save(ctx, user); err != nil {
		return errors.WrapError(errors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Password reset").
		Uint("user_id", user.ID).
		Log()

	return nil
}

// ChangeTwoFactorAuth toggles two-factor login. The version bump revokes
// outstanding refresh tokens so every client re-authenticates under the new
// policy.
func (s *AuthService) ChangeTwoFactorAuth(ctx context.Context, userID uint, activate bool) error {
	ctx = ctxutil.WithOperation(ctx, "auth", "ChangeTwoFactorAuth")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return errors.ErrUserNotFound
	}

	user.TwoFactor = activate
	user.Credentials.UpdateVersion()

	if err := s.users.Save(ctx, user); err != nil {
		return errors.WrapError(errors.ErrInternal, err)
	}

	return nil
}

// UpdateEmail changes the account email after re-checking the password
func (s *AuthService) UpdateEmail(ctx context.Context, userID uint, req *dto.UpdateEmailRequest) (*AuthTokens, error) {
	ctx = ctxutil.WithOperation(ctx, "auth", "UpdateEmail")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errors.ErrIncorrectPassword
	}

	email := strings.ToLower(req.Email)
	if email == user.Email {
		return nil, errors.ErrSameEmail
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, errors.ErrEmailExists
	} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.WrapError(errors.ErrInternal, err)
	}

	user.Email = email
	user.Credentials.UpdateVersion()

	if err := s.users.Save(ctx, user); err != nil {
		return nil, errors.WrapError(errors.ErrInternal, err)
	}

	return s.issueTokens(user)
}

// UpdatePassword changes the password after re-checking the current one
func (s *AuthService) UpdatePassword(ctx context.Context, userID uint, req *dto.UpdatePasswordRequest) (*AuthTokens, error) {
	ctx = ctxutil.WithOperation(ctx, "auth", "UpdatePassword")

	if req.Password1 != req.Password2 {
		return nil, errors.ErrPasswordMismatch
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errors.ErrIncorrectPassword
	}

	if req.Password == req.Password1 {
		return nil, errors.ErrSamePassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password1), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.WrapError(errors.ErrInternal, err)
	}

	oldHash := user.Password
	user.Password = string(hash)
	user.Credentials.UpdatePassword(oldHash)

	if err := s.users.Save(ctx, user); err != nil {
		return nil, errors.WrapError(errors.ErrInternal, err)
	}

	return s.issueTokens(user)
}

// ConfirmCredentials acknowledges the periodic "is your password still yours"
// reminder. Only the timestamp moves; no tokens are invalidated.
func (s *AuthService) ConfirmCredentials(ctx context.Context, userID uint) error {
	ctx = ctxutil.WithOperation(ctx, "auth", "ConfirmCredentials")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return errors.ErrUserNotFound
	}

	user.Credentials.UpdatedAt = time.Now().Unix()

	if err := s.users.Save(ctx, user); err != nil {
		return errors.WrapError(errors.ErrInternal, err)
	}

	return nil
}

func (s *AuthService) issueTokens(user *model.User) (*AuthTokens, error) {
	access, err := s.tokens.SignAccess(user.ID, user.Email)
	if err != nil {
		return nil, errors.WrapError(errors.ErrInternal, err)
	}

	refresh, err := s.tokens.SignRefresh(user.ID, user.Email, user.Credentials.Version)
	if err != nil {
		return nil, errors.WrapError(errors.ErrInternal, err)
	}

	return &AuthTokens{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) sendConfirmationMail(ctx context.Context, user *model.User) {
	token, err := s.tokens.SignConfirmation(user.ID, user.Email, user.Credentials.Version)
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to sign confirmation token").
			Uint("user_id", user.ID).
			Err(err).
			Log()
		return
	}

	link := fmt.Sprintf("%s/confirm-email?token=%s", s.frontendURL, token)
	s.sendAsync(ctx, "confirmation", func(mailCtx context.Context) error {
		return s.mailer.SendConfirmation(mailCtx, user.Email, user.Name, link)
	})
}

// sendAsync delivers mail without blocking the request. Delivery failures are
// logged, never surfaced to the caller.
func (s *AuthService) sendAsync(ctx context.Context, kind string, send func(context.Context) error) {
	mailCtx := context.WithoutCancel(ctx)
	go func() {
		if err := send(mailCtx); err != nil {
			logger.ErrorWithContext(mailCtx, "Mail delivery failed").
				String("kind", kind).
				Err(err).
				Log()
		}
	}()
}

// generateUsername derives a unique username from the email local part
func (s *AuthService) generateUsername(ctx context.Context, email string) (string, error) {
	base := strings.Split(email, "@")[0]
	var b strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	candidate := b.String()
	if len(candidate) < 3 {
		candidate = fmt.Sprintf("user%d", time.Now().UnixNano()%1000000)
	}

	for i := 0; ; i++ {
		name := candidate
		if i > 0 {
			name = fmt.Sprintf("%s%d", candidate, i)
		}
		taken, err := s.users.UsernameExists(ctx, name)
		if err != nil {
			return "", errors.WrapError(errors.ErrInternal, err)
		}
		if !taken {
			return name, nil
		}
	}
}

// passwordAge renders how long ago the credentials last changed. Months win
// over days, days over hours, anything under an hour reads "recently".
func passwordAge(updatedAt int64) string {
	elapsed := time.Since(time.Unix(updatedAt, 0))

	if months := int(elapsed.Hours() / (24 * 30)); months >= 1 {
		return pluralize(months, "month")
	}
	if days := int(elapsed.Hours() / 24); days >= 1 {
		return pluralize(days, "day")
	}
	if hours := int(elapsed.Hours()); hours >= 1 {
		return pluralize(hours, "hour")
	}
	return "recently"
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
