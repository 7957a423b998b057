package service

import (
	"context"

	"github.com/fluxmesh/accounts/internal/dto"
	"github.com/fluxmesh/accounts/internal/errors"
	"github.com/fluxmesh/accounts/internal/model"
	"github.com/fluxmesh/accounts/internal/repository"
	ctxutil "github.com/fluxmesh/accounts/pkg/context"
	"github.com/fluxmesh/accounts/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// UserService covers the thin profile surface around the auth core
type UserService struct {
	users *repository.UserRepository
}

func NewUserService(users *repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) GetMe(ctx context.Context, userID uint) (*dto.UserResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "user", "GetMe")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.ErrUserNotFound
	}

	return toUserResponse(user), nil
}

// UpdateDefaultStatus changes the presence a user shows when connecting. If
// they are online right now the live status follows immediately.
func (s *UserService) UpdateDefaultStatus(ctx context.Context, userID uint, status model.OnlineStatus) (*dto.UserResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "user", "UpdateDefaultStatus")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.ErrUserNotFound
	}

	user.DefaultStatus = status
	if user.OnlineStatus != model.StatusOffline {
		user.OnlineStatus = status
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, errors.WrapError(errors.ErrInternal, err)
	}

	return toUserResponse(user), nil
}

func (s *UserService) UpdateAvatar(ctx context.Context, userID uint, avatarURL string) (*dto.UserResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "user", "UpdateAvatar")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.ErrUserNotFound
	}

	user.AvatarURL = avatarURL

	if err := s.users.Save(ctx, user); err != nil {
		return nil, errors.WrapError(errors.ErrInternal, err)
	}

	return toUserResponse(user), nil
}

// DeleteAccount permanently removes the account after re-checking the
// password. The version bump lands first so outstanding refresh tokens and
// realtime sessions die even if the delete itself races or fails.
func (s *UserService) DeleteAccount(ctx context.Context, userID uint, password string) error {
	ctx = ctxutil.WithOperation(ctx, "user", "DeleteAccount")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return errors.ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return errors.ErrIncorrectPassword
	}

	user.Credentials.UpdateVersion()
	if err := s.users.Save(ctx, user); err != nil {
		return errors.WrapError(errors.ErrInternal, err)
	}

	if err := s.users.Delete(ctx, user.ID); err != nil {
		return errors.WrapError(errors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Account deleted").
		Uint("user_id", userID).
		Log()

	return nil
}

func toUserResponse(user *model.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:            user.ID,
		Name:          user.Name,
		Username:      user.Username,
		Email:         user.Email,
		Confirmed:     user.Confirmed,
		TwoFactor:     user.TwoFactor,
		AvatarURL:     user.AvatarURL,
		OnlineStatus:  string(user.OnlineStatus),
		DefaultStatus: string(user.DefaultStatus),
		LastLogin:     user.LastLogin,
		LastOnline:    user.LastOnline,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}
