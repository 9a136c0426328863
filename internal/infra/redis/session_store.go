package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

// SessionStore keeps match state in Redis as a JSON value per operator session.
// The TTL is refreshed on every save, so abandoned matches expire on their own.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client: client,
		ttl:    ttl,
	}
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (domain.MatchState, bool, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.MatchState{}, false, nil
	}
	if err != nil {
		return domain.MatchState{}, false, err
	}
	var state domain.MatchState
	if err := json.Unmarshal(raw, &state); err != nil {
		return domain.MatchState{}, false, fmt.Errorf("decode match state: %w", err)
	}
	return state, true, nil
}

func (s *SessionStore) Save(ctx context.Context, sessionID string, state domain.MatchState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode match state: %w", err)
	}
	return s.client.Set(ctx, s.key(sessionID), raw, s.ttl).Err()
}

func (s *SessionStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

func (s *SessionStore) key(sessionID string) string {
	return "olimpiadas:session:" + sessionID
}
