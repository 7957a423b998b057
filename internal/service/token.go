package service

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/fluxmesh/accounts/config"
	"github.com/fluxmesh/accounts/internal/errors"
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are carried by short-lived access tokens. Access tokens are
// not revocable, so they deliberately omit the credentials counter.
type AccessClaims struct {
	UserID uint `json:"id"`
	jwt.RegisteredClaims
}

// VersionedClaims are carried by refresh, confirmation and reset tokens.
// Count must match the user's live credentials version or the token is stale.
type VersionedClaims struct {
	UserID uint `json:"id"`
	Count  int  `json:"count"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies the four token families, each with its own
// secret so a leaked confirmation token can never act as a refresh token.
type TokenService struct {
	issuer       string
	access       config.TokenConfig
	refresh      config.TokenConfig
	confirmation config.TokenConfig
	reset        config.TokenConfig
}

func NewTokenService(issuer string, cfg config.TokensConfig) *TokenService {
	return &TokenService{
		issuer:       issuer,
		access:       cfg.Access,
		refresh:      cfg.Refresh,
		confirmation: cfg.Confirmation,
		reset:        cfg.ResetPassword,
	}
}

func (s *TokenService) AccessTTL() time.Duration {
	return s.access.Time
}

func (s *TokenService) RefreshTTL() time.Duration {
	return s.refresh.Time
}

// SignAccess creates a new access token for the user
func (s *TokenService) SignAccess(userID uint, email string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.access.Time)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.access.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, nil
}

// SignRefresh creates a new refresh token bound to the credentials version
func (s *TokenService) SignRefresh(userID uint, email string, count int) (string, error) {
	return s.signVersioned(userID, email, count, s.refresh)
}

// SignConfirmation creates an email confirmation token bound to the credentials version
func (s *TokenService) SignConfirmation(userID uint, email string, count int) (string, error) {
	return s.signVersioned(userID, email, count, s.confirmation)
}

// SignReset creates a password reset token bound to the credentials version
func (s *TokenService) SignReset(userID uint, email string, count int) (string, error) {
	return s.signVersioned(userID, email, count, s.reset)
}

func (s *TokenService) signVersioned(userID uint, email string, count int, cfg config.TokenConfig) (string, error) {
	now := time.Now()
	claims := VersionedClaims{
		UserID: userID,
		Count:  count,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Time)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// VerifyAccess validates an access token and returns its claims
func (s *TokenService) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(tokenString, s.access.Secret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token and returns its claims
func (s *TokenService) VerifyRefresh(tokenString string) (*VersionedClaims, error) {
	claims := &VersionedClaims{}
	if err := s.parse(tokenString, s.refresh.Secret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyConfirmation validates an email confirmation token and returns its claims
func (s *TokenService) VerifyConfirmation(tokenString string) (*VersionedClaims, error) {
	claims := &VersionedClaims{}
	if err := s.parse(tokenString, s.confirmation.Secret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyReset validates a password reset token and returns its claims
func (s *TokenService) VerifyReset(tokenString string) (*VersionedClaims, error) {
	claims := &VersionedClaims{}
	if err := s.parse(tokenString, s.reset.Secret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *TokenService) parse(tokenString, secret string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return errors.ErrTokenExpired
		}
		return errors.WrapError(errors.ErrInvalidToken, err)
	}

	if !token.Valid {
		return errors.ErrInvalidToken
	}

	return nil
}
