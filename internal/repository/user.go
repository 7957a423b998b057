package repository

import (
	"context"
	"strings"
	"time"

	"github.com/fluxmesh/accounts/internal/model"
	ctxutil "github.com/fluxmesh/accounts/pkg/context"
	"github.com/fluxmesh/accounts/pkg/logger"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetByID")

	start := time.Now()
	var user model.User

	result := r.db.WithContext(ctx).Where("id = ?", id).First(&user)
	duration := time.Since(start)

	if result.Error != nil {
		logger.DebugWithContext(ctx, "Failed to get user by ID").
			Uint("user_id", id).
			Duration(duration).
			Err(result.Error).
			Log()
		return nil, result.Error
	}

	return &user, nil
}

// GetByEmail finds a user by email (stored lowercase)
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetByEmail")

	start := time.Now()
	var user model.User

	result := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user)
	duration := time.Since(start)

	if result.Error != nil {
		logger.DebugWithContext(ctx, "Failed to get user by email").
			String("email", email).
			Duration(duration).
			Err(result.Error).
			Log()
		return nil, result.Error
	}

	return &user, nil
}

// GetByUsername finds a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetByUsername")

	var user model.User
	result := r.db.WithContext(ctx).Where("username = ?", strings.ToLower(username)).First(&user)
	if result.Error != nil {
		return nil, result.Error
	}

	return &user, nil
}

// UsernameExists reports whether a username is already taken
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ?", strings.ToLower(username)).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "Create")

	start := time.Now()
	result := r.db.WithContext(ctx).Create(user)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to create user").
			String("email", user.Email).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	logger.InfoWithContext(ctx, "User created").
		String("email", user.Email).
		Uint("user_id", user.ID).
		Duration(duration).
		Log()

	return nil
}

// Save persists every column of an already-loaded user row. Used by the auth
// service after in-memory mutations of password, email or the embedded
// credentials record so the version bump and its trigger land in one write.
func (r *UserRepository) Save(ctx context.Context, user *model.User) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "Save")

	start := time.Now()
	result := r.db.WithContext(ctx).Save(user)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to save user").
			Uint("user_id", user.ID).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	logger.DebugWithContext(ctx, "User saved").
		Uint("user_id", user.ID).
		Int("credentials_version", user.Credentials.Version).
		Duration(duration).
		Log()

	return nil
}

// UpdateLastLogin updates the last login timestamp
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uint) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "UpdateLastLogin")

	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("last_login", time.Now())
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update last login").
			Uint("user_id", id).
			Err(result.Error).
			Log()
		return result.Error
	}

	return nil
}

// UpdateOnlineStatus sets the live presence column only
func (r *UserRepository) UpdateOnlineStatus(ctx context.Context, id uint, status model.OnlineStatus) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "UpdateOnlineStatus")

	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("online_status", status)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update online status").
			Uint("user_id", id).
			String("status", string(status)).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// SetOffline marks the user offline and records when they were last seen
func (r *UserRepository) SetOffline(ctx context.Context, id uint) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "SetOffline")

	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"online_status": model.StatusOffline,
			"last_online":   time.Now(),
		})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to set user offline").
			Uint("user_id", id).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// Delete performs hard delete on user (permanent deletion)
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "Delete")

	start := time.Now()
	result := r.db.WithContext(ctx).Unscoped().Delete(&model.User{}, id)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to delete user").
			Uint("user_id", id).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.InfoWithContext(ctx, "User deleted").
		Uint("user_id", id).
		Duration(duration).
		Log()

	return nil
}
