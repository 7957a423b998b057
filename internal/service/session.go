package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/fluxmesh/accounts/internal/errors"
	"github.com/fluxmesh/accounts/internal/repository"
	"github.com/fluxmesh/accounts/pkg/cache"
	ctxutil "github.com/fluxmesh/accounts/pkg/context"
	"github.com/fluxmesh/accounts/pkg/logger"
	"github.com/google/uuid"
)

// SessionData is one user's realtime session bookkeeping, stored as a single
// cache entry. Count snapshots the credentials version when the entry was
// created; once the live version moves, the whole entry is stale and every
// session in it is revoked at once.
type SessionData struct {
	Count    int              `json:"count"`
	Sessions map[string]int64 `json:"sessions"`
}

// SessionService tracks live realtime connections per user. The cache entry
// is read-modify-written without locking; concurrent connects for the same
// user race and the last writer wins. Acceptable for presence bookkeeping,
// revisit with a transactional cache script if that ever changes.
type SessionService struct {
	store     cache.Store
	users     *repository.UserRepository
	tokens    *TokenService
	namespace uuid.UUID
	ttl       time.Duration
}

func NewSessionService(store cache.Store, users *repository.UserRepository, tokens *TokenService, namespace uuid.UUID, ttl time.Duration) *SessionService {
	return &SessionService{
		store:     store,
		users:     users,
		tokens:    tokens,
		namespace: namespace,
		ttl:       ttl,
	}
}

func (s *SessionService) key(userID uint) string {
	return uuid.NewSHA1(s.namespace, []byte(strconv.FormatUint(uint64(userID), 10))).String()
}

// Generate registers a new realtime session for the holder of an access
// token. A missing entry or one written under an older credentials version
// starts a fresh session map and resets the user's presence to their default.
func (s *SessionService) Generate(ctx context.Context, accessToken string) (uint, string, error) {
	ctx = ctxutil.WithOperation(ctx, "session", "Generate")

	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return 0, "", err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return 0, "", errors.ErrUnauthorized
	}

	data, err := s.load(ctx, user.ID)
	if err != nil {
		return 0, "", err
	}

	if data == nil || data.Count != user.Credentials.Version {
		data = &SessionData{
			Count:    user.Credentials.Version,
			Sessions: map[string]int64{},
		}
		if err := s.users.UpdateOnlineStatus(ctx, user.ID, user.DefaultStatus); err != nil {
			logger.WarnWithContext(ctx, "Failed to reset online status").
				Uint("user_id", user.ID).
				Err(err).
				Log()
		}
	}

	sessionID := uuid.NewString()
	data.Sessions[sessionID] = time.Now().Unix()

	if err := s.save(ctx, user.ID, data); err != nil {
		return 0, "", err
	}

	logger.DebugWithContext(ctx, "Session opened").
		Uint("user_id", user.ID).
		String("session_id", sessionID).
		Int("open_sessions", len(data.Sessions)).
		Log()

	return user.ID, sessionID, nil
}

// Refresh marks a session as still alive. False means the session is gone and
// the client must reconnect; it is not an error. Version staleness is only
// re-checked once the session is older than the access token lifetime, so a
// revocation can take up to that long to reach a busy connection.
func (s *SessionService) Refresh(ctx context.Context, userID uint, sessionID string) (bool, error) {
	ctx = ctxutil.WithOperation(ctx, "session", "Refresh")

	data, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}

	lastSeen, ok := data.Sessions[sessionID]
	if !ok {
		return false, nil
	}

	if time.Since(time.Unix(lastSeen, 0)) > s.tokens.AccessTTL() {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return false, errors.WrapError(errors.ErrInternal, err)
		}
		if data.Count != user.Credentials.Version {
			if err := s.store.Delete(ctx, s.key(userID)); err != nil {
				return false, errors.WrapError(errors.ErrServiceUnavailable, err)
			}
			logger.InfoWithContext(ctx, "Stale session entry dropped").
				Uint("user_id", userID).
				Int("cached_count", data.Count).
				Int("live_version", user.Credentials.Version).
				Log()
			return false, nil
		}
	}

	data.Sessions[sessionID] = time.Now().Unix()
	if err := s.save(ctx, userID, data); err != nil {
		return false, err
	}

	return true, nil
}

// Close removes one session. Closing the last one deletes the cache entry and
// marks the user offline. Unlike Refresh this path runs on an explicit
// disconnect, so a missing session is reported as an error.
func (s *SessionService) Close(ctx context.Context, userID uint, sessionID string) error {
	ctx = ctxutil.WithOperation(ctx, "session", "Close")

	data, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if data == nil {
		return errors.ErrSessionNotFound
	}

	if _, ok := data.Sessions[sessionID]; !ok {
		return errors.ErrSessionNotFound
	}

	delete(data.Sessions, sessionID)

	if len(data.Sessions) == 0 {
		if err := s.store.Delete(ctx, s.key(userID)); err != nil {
			return errors.WrapError(errors.ErrServiceUnavailable, err)
		}
		if err := s.users.SetOffline(ctx, userID); err != nil {
			logger.WarnWithContext(ctx, "Failed to mark user offline").
				Uint("user_id", userID).
				Err(err).
				Log()
		}
		logger.DebugWithContext(ctx, "Last session closed").
			Uint("user_id", userID).
			Log()
		return nil
	}

	return s.save(ctx, userID, data)
}

func (s *SessionService) load(ctx context.Context, userID uint) (*SessionData, error) {
	raw, err := s.store.Get(ctx, s.key(userID))
	if err != nil {
		return nil, errors.WrapError(errors.ErrServiceUnavailable, err)
	}
	if raw == nil {
		return nil, nil
	}

	var data SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		logger.WarnWithContext(ctx, "Corrupt session entry, discarding").
			Uint("user_id", userID).
			Err(err).
			Log()
		return nil, nil
	}
	if data.Sessions == nil {
		data.Sessions = map[string]int64{}
	}

	return &data, nil
}

func (s *SessionService) save(ctx context.Context, userID uint, data *SessionData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.WrapError(errors.ErrInternal, err)
	}
	if err := s.store.Set(ctx, s.key(userID), raw, s.ttl); err != nil {
		return errors.WrapError(errors.ErrServiceUnavailable, err)
	}
	return nil
}
