package service

import (
	"context"
	"testing"

	apperrors "github.com/fluxmesh/accounts/internal/errors"
	"github.com/fluxmesh/accounts/internal/model"
	"github.com/fluxmesh/accounts/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGetMe(t *testing.T) {
	f := newAuthFixture(t)
	users := NewUserService(f.users)
	user := f.createUser(t, "me@x.com", "Ab123456")

	profile, err := users.GetMe(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.ID)
	assert.Equal(t, "me@x.com", profile.Email)
	assert.Equal(t, string(model.StatusOnline), profile.DefaultStatus)

	_, err = users.GetMe(context.Background(), 9999)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUpdateDefaultStatus(t *testing.T) {
	f := newAuthFixture(t)
	users := NewUserService(f.users)
	user := f.createUser(t, "status@x.com", "Ab123456")

	profile, err := users.UpdateDefaultStatus(context.Background(), user.ID, model.StatusBusy)
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusBusy), profile.DefaultStatus)
	// Offline users stay offline until they reconnect
	assert.Equal(t, string(model.StatusOffline), profile.OnlineStatus)

	// A live user sees the change immediately
	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", user.ID).
		Update("online_status", model.StatusOnline).Error)

	profile, err = users.UpdateDefaultStatus(context.Background(), user.ID, model.StatusInvisible)
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusInvisible), profile.OnlineStatus)
}

func TestUpdateAvatar(t *testing.T) {
	f := newAuthFixture(t)
	users := NewUserService(f.users)
	user := f.createUser(t, "avatar@x.com", "Ab123456")

	profile, err := users.UpdateAvatar(context.Background(), user.ID, "https://cdn.test.local/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test.local/a.png", profile.AvatarURL)
}

func TestDeleteAccount(t *testing.T) {
	f := newAuthFixture(t)
	users := NewUserService(f.users)
	user := f.createUser(t, "gone@x.com", "Ab123456")

	err := users.DeleteAccount(context.Background(), user.ID, "wrong-password")
	assert.ErrorIs(t, err, apperrors.ErrIncorrectPassword)

	err = users.DeleteAccount(context.Background(), user.ID, "Ab123456")
	require.NoError(t, err)

	_, err = repository.NewUserRepository(f.db).GetByID(context.Background(), user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
