package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/fluxmesh/accounts/internal/errors"
	"github.com/fluxmesh/accounts/pkg/cache"
	ctxutil "github.com/fluxmesh/accounts/pkg/context"
	"github.com/fluxmesh/accounts/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const accessCodeLength = 6

// AccessCodeService issues and checks the one-time numeric codes used for
// two-factor logins. Codes live in the cache hashed, keyed by a UUID derived
// from the email so the address itself never appears as a cache key.
type AccessCodeService struct {
	store     cache.Store
	namespace uuid.UUID
	ttl       time.Duration
}

func NewAccessCodeService(store cache.Store, namespace uuid.UUID, ttl time.Duration) *AccessCodeService {
	return &AccessCodeService{
		store:     store,
		namespace: namespace,
		ttl:       ttl,
	}
}

func (s *AccessCodeService) key(email string) string {
	return uuid.NewSHA1(s.namespace, []byte(strings.ToLower(email))).String()
}

// Generate creates a fresh code for the email, replacing any previous one,
// and returns the plaintext for delivery. Only the hash is stored.
func (s *AccessCodeService) Generate(ctx context.Context, email string) (string, error) {
	ctx = ctxutil.WithOperation(ctx, "access_code", "Generate")

	code, err := randomDigits(accessCodeLength)
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to generate access code").
			Err(err).
			Log()
		return "", errors.WrapError(errors.ErrInternal, err)
	}

	// MinCost is enough: codes are 6 digits and expire within minutes, so
	// the hash only has to survive a cache dump, not an offline attack.
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		return "", errors.WrapError(errors.ErrInternal, err)
	}

	if err := s.store.Set(ctx, s.key(email), hash, s.ttl); err != nil {
		logger.ErrorWithContext(ctx, "Failed to store access code").
			Err(err).
			Log()
		return "", errors.WrapError(errors.ErrServiceUnavailable, err)
	}

	logger.DebugWithContext(ctx, "Access code issued").
		String("ttl", s.ttl.String()).
		Log()

	return code, nil
}

// Verify checks the submitted code against the stored hash. A correct code is
// single use: it is removed from the cache before returning.
func (s *AccessCodeService) Verify(ctx context.Context, email, code string) error {
	ctx = ctxutil.WithOperation(ctx, "access_code", "Verify")

	hash, err := s.store.Get(ctx, s.key(email))
	if err != nil {
		return errors.WrapError(errors.ErrServiceUnavailable, err)
	}
	if hash == nil {
		logger.DebugWithContext(ctx, "Access code missing or expired").Log()
		return errors.ErrInvalidAccessCode
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(code)); err != nil {
		return errors.ErrInvalidAccessCode
	}

	if err := s.store.Delete(ctx, s.key(email)); err != nil {
		logger.WarnWithContext(ctx, "Failed to invalidate used access code").
			Err(err).
			Log()
	}

	return nil
}

// Invalidate drops any outstanding code for the email
func (s *AccessCodeService) Invalidate(ctx context.Context, email string) error {
	return s.store.Delete(ctx, s.key(email))
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to read random digit: %w", err)
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
