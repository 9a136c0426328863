package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

// BracketRepository stores one bracket document per level.
type BracketRepository interface {
	Get(ctx context.Context, level domain.Level) (domain.Bracket, bool, error)
	Save(ctx context.Context, bracket domain.Bracket) error
	Delete(ctx context.Context, level domain.Level) error
}

// BracketService drives the 8-team single-elimination bracket of each level.
type BracketService struct {
	repo    BracketRepository
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.Mutex
	locks map[domain.Level]*sync.Mutex
}

func NewBracketService(repo BracketRepository, metrics *Metrics, logger *zap.Logger) *BracketService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BracketService{
		repo:    repo,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
		locks:   make(map[domain.Level]*sync.Mutex),
	}
}

// lock serializes read-modify-write cycles on one level's bracket.
func (s *BracketService) lock(level domain.Level) func() {
	s.mu.Lock()
	l, ok := s.locks[level]
	if !ok {
		l = &sync.Mutex{}
		s.locks[level] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Create builds a fresh bracket for level from eight distinct team ids, retiring any previous one.
func (s *BracketService) Create(ctx context.Context, level domain.Level, teamIDs []string) (domain.Bracket, error) {
	if !level.Valid() {
		return domain.Bracket{}, invalidf("unknown level %q", level)
	}
	ids, err := entrants(teamIDs)
	if err != nil {
		return domain.Bracket{}, err
	}

	defer s.lock(level)()

	bracket := NewBracket(uuid.NewString(), level, ids, s.now())
	if err := s.repo.Save(ctx, bracket); err != nil {
		return domain.Bracket{}, storageErr("save bracket", err)
	}
	s.logger.Info("bracket created", zap.String("level", string(level)), zap.String("bracket", bracket.ID))
	return bracket, nil
}

func entrants(teamIDs []string) ([]string, error) {
	if len(teamIDs) != BracketSize {
		return nil, domain.ErrInvalidEntrantCount
	}
	seen := make(map[string]struct{}, BracketSize)
	ids := make([]string, 0, BracketSize)
	for _, raw := range teamIDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			return nil, domain.ErrInvalidEntrantCount
		}
		if _, dup := seen[id]; dup {
			return nil, domain.ErrInvalidEntrantCount
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// RecordWinner sets the winner of matchID and advances it; deciding the final completes the bracket.
func (s *BracketService) RecordWinner(ctx context.Context, level domain.Level, matchID, winner string) (domain.Bracket, error) {
	defer s.lock(level)()

	bracket, err := s.Get(ctx, level)
	if err != nil {
		return domain.Bracket{}, err
	}

	matchID = strings.ToLower(strings.TrimSpace(matchID))
	winner = strings.TrimSpace(winner)
	ri, changed, err := applyWinner(&bracket, matchID, winner, s.now())
	if err != nil {
		return domain.Bracket{}, err
	}
	if !changed {
		return bracket, nil
	}
	if err := s.repo.Save(ctx, bracket); err != nil {
		return domain.Bracket{}, storageErr("save bracket", err)
	}

	s.metrics.winnerRecorded(string(level), bracket.Rounds[ri].Name)
	s.logger.Info("bracket winner recorded",
		zap.String("level", string(level)), zap.String("match", matchID), zap.String("winner", winner))
	if bracket.Status == domain.BracketCompleted && bracket.Rounds[ri].Name == domain.RoundFinalMatch {
		s.metrics.championCrowned(string(level))
		s.logger.Info("bracket completed", zap.String("level", string(level)), zap.String("champion", bracket.Champion))
	}
	return bracket, nil
}

// Get returns the bracket document of level.
func (s *BracketService) Get(ctx context.Context, level domain.Level) (domain.Bracket, error) {
	if !level.Valid() {
		return domain.Bracket{}, invalidf("unknown level %q", level)
	}
	bracket, ok, err := s.repo.Get(ctx, level)
	if err != nil {
		return domain.Bracket{}, storageErr("load bracket", err)
	}
	if !ok {
		return domain.Bracket{}, domain.ErrNotFound
	}
	return bracket, nil
}

// Status is a read-only projection; a missing bracket reports BracketNotCreated.
func (s *BracketService) Status(ctx context.Context, level domain.Level) (domain.BracketSummary, error) {
	bracket, err := s.Get(ctx, level)
	switch {
	case err == nil:
		return domain.BracketSummary{
			Level:        level,
			Status:       bracket.Status,
			CurrentRound: bracket.CurrentRound,
			Champion:     bracket.Champion,
		}, nil
	case isNotFound(err):
		return domain.BracketSummary{Level: level, Status: domain.BracketNotCreated}, nil
	default:
		return domain.BracketSummary{}, err
	}
}

// Reset deletes the bracket of level. Deleting a missing bracket is not an error.
func (s *BracketService) Reset(ctx context.Context, level domain.Level) error {
	if !level.Valid() {
		return invalidf("unknown level %q", level)
	}
	defer s.lock(level)()
	if err := s.repo.Delete(ctx, level); err != nil {
		return storageErr("delete bracket", err)
	}
	s.logger.Info("bracket reset", zap.String("level", string(level)))
	return nil
}
