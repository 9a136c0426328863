package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

// QuestionStore is an in-memory question bank (useful for tests/demos).
// It also satisfies QuestionLoader.
type QuestionStore struct {
	mu        sync.RWMutex
	questions map[string]domain.Question
}

func NewQuestionStore(questions ...domain.Question) *QuestionStore {
	s := &QuestionStore{questions: make(map[string]domain.Question, len(questions))}
	for _, q := range questions {
		s.questions[q.ID] = cloneQuestion(q)
	}
	return s
}

func (s *QuestionStore) ListQuestions(_ context.Context, level domain.Level, round string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		if level != "" && q.Level != level {
			continue
		}
		if round != "" && q.Round != round {
			continue
		}
		out = append(out, cloneQuestion(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *QuestionStore) GetQuestion(_ context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, fmt.Errorf("question %q: %w", id, domain.ErrNotFound)
	}
	return cloneQuestion(q), nil
}

func (s *QuestionStore) CreateQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; ok {
		return fmt.Errorf("question %q: %w", q.ID, domain.ErrConflict)
	}
	s.questions[q.ID] = cloneQuestion(q)
	return nil
}

func (s *QuestionStore) UpdateQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; !ok {
		return fmt.Errorf("question %q: %w", q.ID, domain.ErrNotFound)
	}
	s.questions[q.ID] = cloneQuestion(q)
	return nil
}

func (s *QuestionStore) DeleteQuestion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return fmt.Errorf("question %q: %w", id, domain.ErrNotFound)
	}
	delete(s.questions, id)
	return nil
}
