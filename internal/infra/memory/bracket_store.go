package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

// BracketStore keeps one bracket document per level, stored as JSON so reads never alias writes.
type BracketStore struct {
	mu   sync.RWMutex
	docs map[domain.Level][]byte
}

func NewBracketStore() *BracketStore {
	return &BracketStore{docs: make(map[domain.Level][]byte)}
}

func (s *BracketStore) Get(_ context.Context, level domain.Level) (domain.Bracket, bool, error) {
	s.mu.RLock()
	raw, ok := s.docs[level]
	s.mu.RUnlock()
	if !ok {
		return domain.Bracket{}, false, nil
	}
	var b domain.Bracket
	if err := json.Unmarshal(raw, &b); err != nil {
		return domain.Bracket{}, false, err
	}
	return b, true, nil
}

func (s *BracketStore) Save(_ context.Context, bracket domain.Bracket) error {
	raw, err := json.Marshal(bracket)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[bracket.Level] = raw
	s.mu.Unlock()
	return nil
}

func (s *BracketStore) Delete(_ context.Context, level domain.Level) error {
	s.mu.Lock()
	delete(s.docs, level)
	s.mu.Unlock()
	return nil
}
