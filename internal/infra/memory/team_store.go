package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

// TeamStore is an in-memory implementation of app.TeamStore.
type TeamStore struct {
	mu    sync.RWMutex
	teams map[string]domain.Team
}

func NewTeamStore(teams ...domain.Team) *TeamStore {
	s := &TeamStore{teams: make(map[string]domain.Team, len(teams))}
	for _, t := range teams {
		s.teams[t.ID] = t
	}
	return s
}

func (s *TeamStore) ListTeams(_ context.Context) ([]domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Team, 0, len(s.teams))
	for _, t := range s.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *TeamStore) GetTeam(_ context.Context, id string) (domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return domain.Team{}, fmt.Errorf("team %q: %w", id, domain.ErrNotFound)
	}
	return t, nil
}

func (s *TeamStore) CreateTeam(_ context.Context, team domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.teams {
		if t.ID == team.ID || t.Name == team.Name {
			return fmt.Errorf("team %q: %w", team.Name, domain.ErrConflict)
		}
	}
	s.teams[team.ID] = team
	return nil
}

func (s *TeamStore) UpdateTeam(_ context.Context, team domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[team.ID]; !ok {
		return fmt.Errorf("team %q: %w", team.ID, domain.ErrNotFound)
	}
	s.teams[team.ID] = team
	return nil
}

func (s *TeamStore) DeleteTeam(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[id]; !ok {
		return fmt.Errorf("team %q: %w", id, domain.ErrNotFound)
	}
	delete(s.teams, id)
	return nil
}

func (s *TeamStore) ResetScores(_ context.Context, includeTotal bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.teams {
		t.Score = 0
		if includeTotal {
			t.TotalScore = 0
		}
		s.teams[id] = t
	}
	return nil
}

func (s *TeamStore) IncrementScore(_ context.Context, name string, delta int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.teams {
		if t.Name == name {
			t.Score += delta
			t.TotalScore += delta
			s.teams[id] = t
			return true, nil
		}
	}
	return false, nil
}
