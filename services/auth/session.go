package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore tracks live sessions in redis, one key per session, expiring
// with the token. Deleting a key revokes the session immediately regardless
// of the JWT's own expiry.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

func sessionKey(tenantID, sessionID string) string {
	return fmt.Sprintf("session:%s:%s", tenantID, sessionID)
}

func (s *SessionStore) Put(ctx context.Context, tenantID, sessionID string, ttl time.Duration) error {
	return s.rdb.Set(ctx, sessionKey(tenantID, sessionID), 1, ttl).Err()
}

func (s *SessionStore) Exists(ctx context.Context, tenantID, sessionID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, sessionKey(tenantID, sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SessionStore) Delete(ctx context.Context, tenantID, sessionID string) error {
	return s.rdb.Del(ctx, sessionKey(tenantID, sessionID)).Err()
}

// RevokeAll removes every live session of a tenant. Used by the expiry
// worker so an expired license ends sign-ins that are already underway.
func (s *SessionStore) RevokeAll(ctx context.Context, tenantID string) error {
	iter := s.rdb.Scan(ctx, 0, sessionKey(tenantID, "*"), 100).Iterator()
	for iter.Next(ctx) {
		if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
