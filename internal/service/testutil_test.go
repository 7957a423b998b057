package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fluxmesh/accounts/config"
	"github.com/fluxmesh/accounts/internal/model"
	"github.com/fluxmesh/accounts/internal/repository"
	"github.com/fluxmesh/accounts/pkg/cache"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return db
}

func newTestTokens(accessTTL time.Duration) *TokenService {
	return NewTokenService("test.local", config.TokensConfig{
		Access:        config.TokenConfig{Secret: "access-secret", Time: accessTTL},
		Refresh:       config.TokenConfig{Secret: "refresh-secret", Time: time.Hour},
		Confirmation:  config.TokenConfig{Secret: "confirmation-secret", Time: time.Hour},
		ResetPassword: config.TokenConfig{Secret: "reset-secret", Time: time.Hour},
	})
}

// mockMailer records deliveries on buffered channels so tests can wait for
// the fire-and-forget goroutines without polling.
type mockMailer struct {
	confirmations chan string // links
	codes         chan string
	resets        chan string // links
}

func newMockMailer() *mockMailer {
	return &mockMailer{
		confirmations: make(chan string, 8),
		codes:         make(chan string, 8),
		resets:        make(chan string, 8),
	}
}

func (m *mockMailer) SendConfirmation(_ context.Context, _, _, link string) error {
	m.confirmations <- link
	return nil
}

func (m *mockMailer) SendAccessCode(_ context.Context, _, _, code string) error {
	m.codes <- code
	return nil
}

func (m *mockMailer) SendResetPassword(_ context.Context, _, _, link string) error {
	m.resets <- link
	return nil
}

func waitForMail(t *testing.T, ch chan string) string {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mail")
		return ""
	}
}

type authFixture struct {
	db     *gorm.DB
	users  *repository.UserRepository
	tokens *TokenService
	codes  *AccessCodeService
	store  cache.Store
	mailer *mockMailer
	auth   *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	tokens := newTestTokens(10 * time.Minute)
	store := cache.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	codes := NewAccessCodeService(store, uuid.MustParse("7e1a9f70-6c0a-4e0c-9cbd-20cbbb8a36d0"), 5*time.Minute)
	mailer := newMockMailer()
	auth := NewAuthService(users, tokens, codes, mailer, "https://app.test.local")

	return &authFixture{
		db:     db,
		users:  users,
		tokens: tokens,
		codes:  codes,
		store:  store,
		mailer: mailer,
		auth:   auth,
	}
}

// createUser inserts a confirmed user directly, bypassing the register flow
func (f *authFixture) createUser(t *testing.T, email, password string) *model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &model.User{
		Name:          "Test User",
		Username:      strings.Split(email, "@")[0] + "u",
		Email:         email,
		Password:      string(hash),
		Confirmed:     true,
		OnlineStatus:  model.StatusOffline,
		DefaultStatus: model.StatusOnline,
	}
	if err := f.db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user
}

func (f *authFixture) reload(t *testing.T, id uint) *model.User {
	t.Helper()

	var user model.User
	if err := f.db.First(&user, id).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	return &user
}
