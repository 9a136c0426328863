package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

// TeamStore persists the team registry. Get, Update and Delete return
// domain.ErrNotFound for unknown ids.
type TeamStore interface {
	ListTeams(ctx context.Context) ([]domain.Team, error)
	GetTeam(ctx context.Context, id string) (domain.Team, error)
	CreateTeam(ctx context.Context, team domain.Team) error
	UpdateTeam(ctx context.Context, team domain.Team) error
	DeleteTeam(ctx context.Context, id string) error
	ResetScores(ctx context.Context, includeTotal bool) error
	IncrementScore(ctx context.Context, name string, delta int) (bool, error)
}

// DefaultTeamCacheTTL bounds how stale a cached team list may be.
const DefaultTeamCacheTTL = 30 * time.Second

// TeamService manages registered teams and their score counters.
type TeamService struct {
	store  TeamStore
	logger *zap.Logger
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	// writeMu keeps the uniqueness check and the write together.
	writeMu sync.Mutex

	mu        sync.RWMutex
	cached    []domain.Team
	expiresAt time.Time
}

func NewTeamService(store TeamStore, ttl time.Duration, logger *zap.Logger) *TeamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeamService{
		store:  store,
		logger: logger,
		ttl:    ttl,
		clock:  time.Now,
	}
}

// List returns every team, served from a short-lived cache.
func (s *TeamService) List(ctx context.Context) ([]domain.Team, error) {
	now := s.clock()
	s.mu.RLock()
	if s.cached != nil && s.expiresAt.After(now) {
		teams := append([]domain.Team(nil), s.cached...)
		s.mu.RUnlock()
		return teams, nil
	}
	s.mu.RUnlock()

	result, err, _ := s.sf.Do("teams", func() (interface{}, error) {
		teams, err := s.store.ListTeams(ctx)
		if err != nil {
			return nil, err
		}
		if teams == nil {
			teams = []domain.Team{}
		}
		s.mu.Lock()
		s.cached = teams
		s.expiresAt = s.clock().Add(s.ttl)
		s.mu.Unlock()
		return teams, nil
	})
	if err != nil {
		return nil, storageErr("list teams", err)
	}
	return append([]domain.Team(nil), result.([]domain.Team)...), nil
}

// ListByLevel returns the teams registered at level, ordered by name.
func (s *TeamService) ListByLevel(ctx context.Context, level domain.Level) ([]domain.Team, error) {
	if !level.Valid() {
		return nil, invalidf("unknown level %q", level)
	}
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Team, 0, len(all))
	for _, t := range all {
		if t.Level == level {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Scoreboard orders the teams of level by current score, highest first.
func (s *TeamService) Scoreboard(ctx context.Context, level domain.Level) ([]domain.Team, error) {
	teams, err := s.ListByLevel(ctx, level)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(teams, func(i, j int) bool { return teams[i].Score > teams[j].Score })
	return teams, nil
}

func (s *TeamService) Get(ctx context.Context, id string) (domain.Team, error) {
	team, err := s.store.GetTeam(ctx, id)
	if err != nil {
		return domain.Team{}, storageErr("get team", err)
	}
	return team, nil
}

// Create registers a team with zeroed counters. Names are unique ignoring case.
func (s *TeamService) Create(ctx context.Context, name string, level domain.Level) (domain.Team, error) {
	name = strings.TrimSpace(name)
	if err := validateTeam(name, level); err != nil {
		return domain.Team{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.ensureUniqueName(ctx, name, ""); err != nil {
		return domain.Team{}, err
	}

	team := domain.Team{ID: uuid.NewString(), Name: name, Level: level}
	if err := s.store.CreateTeam(ctx, team); err != nil {
		return domain.Team{}, storageErr("create team", err)
	}
	s.invalidate()
	s.logger.Info("team created", zap.String("team", team.ID), zap.String("name", name), zap.String("level", string(level)))
	return team, nil
}

// Update renames a team or moves it to another level. Score counters are kept.
func (s *TeamService) Update(ctx context.Context, id, name string, level domain.Level) (domain.Team, error) {
	name = strings.TrimSpace(name)
	if err := validateTeam(name, level); err != nil {
		return domain.Team{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	team, err := s.Get(ctx, id)
	if err != nil {
		return domain.Team{}, err
	}
	if err := s.ensureUniqueName(ctx, name, id); err != nil {
		return domain.Team{}, err
	}

	team.Name = name
	team.Level = level
	if err := s.store.UpdateTeam(ctx, team); err != nil {
		return domain.Team{}, storageErr("update team", err)
	}
	s.invalidate()
	return team, nil
}

func (s *TeamService) Delete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.store.DeleteTeam(ctx, id); err != nil {
		return storageErr("delete team", err)
	}
	s.invalidate()
	s.logger.Info("team deleted", zap.String("team", id))
	return nil
}

// ResetScores zeroes every team's current score, and the cumulative one when includeTotal is set.
func (s *TeamService) ResetScores(ctx context.Context, includeTotal bool) error {
	if err := s.store.ResetScores(ctx, includeTotal); err != nil {
		return storageErr("reset scores", err)
	}
	s.invalidate()
	s.logger.Info("team scores reset", zap.Bool("includeTotal", includeTotal))
	return nil
}

// IncrementScore adds delta to both counters of the team named name.
func (s *TeamService) IncrementScore(ctx context.Context, name string, delta int) (bool, error) {
	found, err := s.store.IncrementScore(ctx, strings.TrimSpace(name), delta)
	if err != nil {
		s.logger.Error("increment team score failed", zap.String("team", name), zap.Error(err))
		return false, storageErr("increment team score", err)
	}
	if found {
		s.invalidate()
	}
	return found, nil
}

func (s *TeamService) ensureUniqueName(ctx context.Context, name, selfID string) error {
	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return storageErr("list teams", err)
	}
	for _, t := range teams {
		if t.ID != selfID && strings.EqualFold(t.Name, name) {
			return fmt.Errorf("team %q: %w", name, domain.ErrConflict)
		}
	}
	return nil
}

func (s *TeamService) invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func validateTeam(name string, level domain.Level) error {
	if name == "" {
		return invalidf("team name is required")
	}
	if !level.Valid() {
		return invalidf("unknown level %q", level)
	}
	return nil
}
