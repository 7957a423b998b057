package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fluxmesh/accounts/config"
	"github.com/fluxmesh/accounts/internal/handler"
	"github.com/fluxmesh/accounts/internal/middleware"
	"github.com/fluxmesh/accounts/internal/model"
	"github.com/fluxmesh/accounts/internal/repository"
	"github.com/fluxmesh/accounts/internal/router"
	"github.com/fluxmesh/accounts/internal/service"
	"github.com/fluxmesh/accounts/pkg/cache"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "accounts-test",
			Environment: "test",
			Testing:     true,
			Timeout:     5 * time.Second,
			Domain:      "test.local",
			FrontendURL: "https://app.test.local",
		},
		Tokens: config.TokensConfig{
			Access:        config.TokenConfig{Secret: "access-secret", Time: 10 * time.Minute},
			Refresh:       config.TokenConfig{Secret: "refresh-secret", Time: time.Hour},
			Confirmation:  config.TokenConfig{Secret: "confirmation-secret", Time: time.Hour},
			ResetPassword: config.TokenConfig{Secret: "reset-secret", Time: time.Hour},
		},
		Cookie: config.CookieConfig{
			Name: "rf",
			Path: "/api/v1/auth/refresh",
		},
		Session: config.SessionConfig{
			Namespace: uuid.MustParse("bf97b011-2b98-4337-9aa7-5da9d84e4f61"),
			TTL:       time.Hour,
		},
		TwoFactor: config.TwoFactorConfig{
			Namespace: uuid.MustParse("7e1a9f70-6c0a-4e0c-9cbd-20cbbb8a36d0"),
			TTL:       5 * time.Minute,
		},
		RateLimit: config.RateLimitConfig{Request: 1000, Duration: 60},
	}
}

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}))

	store := cache.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	userRepo := repository.NewUserRepository(db)
	tokens := service.NewTokenService(cfg.App.Domain, cfg.Tokens)
	codes := service.NewAccessCodeService(store, cfg.TwoFactor.Namespace, cfg.TwoFactor.TTL)
	auth := service.NewAuthService(userRepo, tokens, codes, service.NewLogMailer(), cfg.App.FrontendURL)
	sessions := service.NewSessionService(store, userRepo, tokens, cfg.Session.Namespace, cfg.Session.TTL)
	users := service.NewUserService(userRepo)

	authHandler := handler.NewAuthHandler(auth, tokens, cfg)
	userHandler := handler.NewUserHandler(users, authHandler)
	sessionHandler := handler.NewSessionHandler(sessions)
	healthHandler := handler.NewHealthHandler(db, store)

	engine := router.NewRouter(
		authHandler,
		userHandler,
		sessionHandler,
		healthHandler,
		middleware.NewValidationMiddleware(),
		middleware.NewJWTMiddleware(tokens),
		cfg,
	).SetupRoutes()

	return &testServer{engine: engine, db: db, cfg: cfg}
}

func (s *testServer) createUser(t *testing.T, email, password string) *model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &model.User{
		Name:          "Handler Test",
		Username:      "handler" + email[:1],
		Email:         email,
		Password:      string(hash),
		Confirmed:     true,
		OnlineStatus:  model.StatusOffline,
		DefaultStatus: model.StatusOnline,
	}
	require.NoError(t, s.db.Create(user).Error)
	return user
}

func (s *testServer) postJSON(path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no %q cookie in response", name)
	return nil
}

func TestLoginSetsScopedRefreshCookie(t *testing.T) {
	s := newTestServer(t)
	s.createUser(t, "a@x.com", "Ab123456")

	w := s.postJSON("/api/v1/auth/login", gin.H{"email": "a@x.com", "password": "Ab123456"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.AccessToken)
	assert.Equal(t, 600, body.ExpiresIn)

	cookie := refreshCookie(t, w, s.cfg.Cookie.Name)
	assert.True(t, cookie.HttpOnly, "refresh cookie must be HTTP-only")
	assert.Equal(t, "/api/v1/auth/refresh", cookie.Path)
	assert.NotEmpty(t, cookie.Value)
	// Testing mode relaxes the secure attribute
	assert.False(t, cookie.Secure)
}

func TestLoginBadPayloadRejected(t *testing.T) {
	s := newTestServer(t)

	w := s.postJSON("/api/v1/auth/login", gin.H{"email": "not-an-email", "password": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshRotatesAndClears(t *testing.T) {
	s := newTestServer(t)
	user := s.createUser(t, "b@x.com", "Ab123456")

	login := s.postJSON("/api/v1/auth/login", gin.H{"email": "b@x.com", "password": "Ab123456"})
	require.Equal(t, http.StatusOK, login.Code)
	cookie := refreshCookie(t, login, s.cfg.Cookie.Name)

	// A valid cookie rotates the pair
	w := s.postJSON("/api/v1/auth/refresh", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rotated := refreshCookie(t, w, s.cfg.Cookie.Name)
	assert.NotEmpty(t, rotated.Value)

	// No cookie at all is a plain 401
	w = s.postJSON("/api/v1/auth/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Revoked version: 401 and the cookie is dropped
	require.NoError(t, s.db.Model(&model.User{}).Where("id = ?", user.ID).
		Update("credentials_version", gorm.Expr("credentials_version + 1")).Error)

	w = s.postJSON("/api/v1/auth/refresh", nil, rotated)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	cleared := refreshCookie(t, w, s.cfg.Cookie.Name)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestLogoutClearsCookie(t *testing.T) {
	s := newTestServer(t)

	w := s.postJSON("/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)

	cleared := refreshCookie(t, w, s.cfg.Cookie.Name)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	s := newTestServer(t)
	s.createUser(t, "c@x.com", "Ab123456")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	login := s.postJSON("/api/v1/auth/login", gin.H{"email": "c@x.com", "password": "Ab123456"})
	require.Equal(t, http.StatusOK, login.Code)
	var body struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &body))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+body.AccessToken)
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var profile struct {
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "c@x.com", profile.Email)
}

func TestSessionEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.createUser(t, "d@x.com", "Ab123456")

	login := s.postJSON("/api/v1/auth/login", gin.H{"email": "d@x.com", "password": "Ab123456"})
	require.Equal(t, http.StatusOK, login.Code)
	var auth struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &auth))

	created := s.postJSON("/api/v1/sessions", gin.H{"access_token": auth.AccessToken})
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	var session struct {
		UserID    uint   `json:"user_id"`
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &session))

	refreshed := s.postJSON("/api/v1/sessions/refresh", gin.H{
		"user_id":    session.UserID,
		"session_id": session.SessionID,
	})
	require.Equal(t, http.StatusOK, refreshed.Code)
	var result struct {
		Valid bool `json:"valid"`
	}
	require.NoError(t, json.Unmarshal(refreshed.Body.Bytes(), &result))
	assert.True(t, result.Valid)

	closed := s.postJSON("/api/v1/sessions/close", gin.H{
		"user_id":    session.UserID,
		"session_id": session.SessionID,
	})
	require.Equal(t, http.StatusOK, closed.Code)

	// Closing again is an error: the session is gone
	closed = s.postJSON("/api/v1/sessions/close", gin.H{
		"user_id":    session.UserID,
		"session_id": session.SessionID,
	})
	assert.Equal(t, http.StatusUnauthorized, closed.Code)
}
