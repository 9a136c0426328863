package memory

import (
	"context"
	"sync"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.MatchState
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.MatchState),
	}
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (domain.MatchState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[sessionID]
	if !ok {
		return domain.MatchState{}, false, nil
	}
	return cloneState(state), true, nil
}

func (s *SessionStore) Save(_ context.Context, sessionID string, state domain.MatchState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = cloneState(state)
	return nil
}

func (s *SessionStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// cloneState copies the reference fields so callers never share maps with the store.
func cloneState(state domain.MatchState) domain.MatchState {
	out := state
	out.QuestionIDs = append([]string(nil), state.QuestionIDs...)
	out.Scores = make(map[string]int, len(state.Scores))
	for k, v := range state.Scores {
		out.Scores[k] = v
	}
	if state.Current != nil {
		q := cloneQuestion(*state.Current)
		out.Current = &q
	}
	if state.StartedAt != nil {
		t := *state.StartedAt
		out.StartedAt = &t
	}
	if state.Deadline != nil {
		t := *state.Deadline
		out.Deadline = &t
	}
	return out
}

func cloneQuestion(q domain.Question) domain.Question {
	out := q
	out.Options = make(map[string]string, len(q.Options))
	for k, v := range q.Options {
		out.Options[k] = v
	}
	return out
}
