package app

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

// SessionRepository abstracts where match state is kept (in-memory, Redis, etc),
// keyed by operator session.
type SessionRepository interface {
	Get(ctx context.Context, sessionID string) (domain.MatchState, bool, error)
	Save(ctx context.Context, sessionID string, state domain.MatchState) error
	Clear(ctx context.Context, sessionID string) error
}

// QuestionRepository loads questions (from cache/backing store).
type QuestionRepository interface {
	ListQuestions(ctx context.Context, level domain.Level, round string) ([]domain.Question, error)
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
}

// TeamRegistry applies persistent score changes. IncrementScore reports false
// when no team has that name.
type TeamRegistry interface {
	IncrementScore(ctx context.Context, name string, delta int) (bool, error)
}

// UsageLedger remembers which questions were drawn per level in the current cycle.
type UsageLedger interface {
	Used(ctx context.Context, level domain.Level) (map[string]struct{}, error)
	Replace(ctx context.Context, level domain.Level, used map[string]struct{}) error
}

// QuizOptions configures the quiz round engine. Zero values fall back to defaults.
type QuizOptions struct {
	QuestionCount    int
	ScoreThreshold   int
	QuestionDuration time.Duration
	// Ledger enables no-repeat drawing across matches; nil samples from the full pool.
	Ledger  UsageLedger
	Metrics *Metrics
	Logger  *zap.Logger
	Now     func() time.Time
	Rand    *rand.Rand
}

// DefaultQuestionCount is the number of questions per match.
const DefaultQuestionCount = 10

// MatchRequest describes a quiz round to start.
type MatchRequest struct {
	Level         domain.Level
	TeamA         string
	TeamB         string
	QuestionCount int
	Round         string
}

// QuizService runs head-to-head quiz rounds.
type QuizService struct {
	sessions  SessionRepository
	questions QuestionRepository
	teams     TeamRegistry
	ledger    UsageLedger
	metrics   *Metrics
	logger    *zap.Logger

	questionCount int
	threshold     int
	duration      time.Duration
	now           func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizService(sessions SessionRepository, questions QuestionRepository, teams TeamRegistry, opts QuizOptions) *QuizService {
	s := &QuizService{
		sessions:      sessions,
		questions:     questions,
		teams:         teams,
		ledger:        opts.Ledger,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		questionCount: opts.QuestionCount,
		threshold:     opts.ScoreThreshold,
		duration:      opts.QuestionDuration,
		now:           opts.Now,
		rnd:           opts.Rand,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.questionCount <= 0 {
		s.questionCount = DefaultQuestionCount
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// Initialize starts a new match for the operator session, replacing any previous one.
func (s *QuizService) Initialize(ctx context.Context, sessionID string, req MatchRequest) (domain.MatchState, error) {
	teamA := strings.TrimSpace(req.TeamA)
	teamB := strings.TrimSpace(req.TeamB)
	round := strings.ToLower(strings.TrimSpace(req.Round))
	switch {
	case sessionID == "":
		return domain.MatchState{}, invalidf("session id is required")
	case teamA == "" || teamB == "":
		return domain.MatchState{}, invalidf("both teams are required")
	case teamA == teamB:
		return domain.MatchState{}, invalidf("a team cannot play against itself")
	case !req.Level.Valid():
		return domain.MatchState{}, invalidf("unknown level %q", req.Level)
	case round != "" && !validRound(round):
		return domain.MatchState{}, invalidf("unknown round %q", req.Round)
	}
	count := req.QuestionCount
	if count <= 0 {
		count = s.questionCount
	}

	pool, err := s.questions.ListQuestions(ctx, req.Level, round)
	if err != nil {
		return domain.MatchState{}, storageErr("list questions", err)
	}
	ids := make([]string, 0, len(pool))
	for _, q := range pool {
		ids = append(ids, q.ID)
	}

	d, err := s.draw(ctx, req.Level, round, ids, count)
	if err != nil {
		return domain.MatchState{}, err
	}
	selected := d.selected

	state := domain.MatchState{
		ID:             uuid.NewString(),
		Level:          req.Level,
		Round:          round,
		TeamA:          teamA,
		TeamB:          teamB,
		QuestionIDs:    selected,
		Scores:         map[string]int{teamA: 0, teamB: 0},
		ScoreThreshold: s.threshold,
		CreatedAt:      s.now(),
	}
	if err := s.sessions.Save(ctx, sessionID, state); err != nil {
		return domain.MatchState{}, storageErr("save match", err)
	}
	s.recordDraw(ctx, req.Level, d)

	s.metrics.matchStarted(string(req.Level))
	s.logger.Info("match initialized",
		zap.String("session", sessionID),
		zap.String("match", state.ID),
		zap.String("level", string(req.Level)),
		zap.String("round", round),
		zap.Strings("teams", state.Teams()),
		zap.Int("questions", len(selected)),
	)
	return state, nil
}

// drawResult is a question draw whose ledger update is still pending.
type drawResult struct {
	selected   []string
	next       map[string]struct{}
	reshuffled bool
}

func (s *QuizService) draw(ctx context.Context, level domain.Level, round string, ids []string, count int) (drawResult, error) {
	if s.ledger == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		selected, err := SampleQuestions(ids, count, s.rnd)
		return drawResult{selected: selected}, err
	}

	used, err := s.ledger.Used(ctx, level)
	if err != nil {
		return drawResult{}, storageErr("load question ledger", err)
	}

	s.mu.Lock()
	selected, next, reshuffled, err := DrawQuestions(ids, used, count, s.rnd)
	s.mu.Unlock()
	if err != nil {
		return drawResult{}, err
	}

	// The ledger spans the whole level; a round-filtered draw only reshuffles its own round.
	if round != "" {
		inPool := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			inPool[id] = struct{}{}
		}
		for id := range used {
			if _, ok := inPool[id]; !ok {
				next[id] = struct{}{}
			}
		}
	}
	return drawResult{selected: selected, next: next, reshuffled: reshuffled}, nil
}

// recordDraw writes the ledger once the match holding the draw has been saved.
// A failed write is logged and the match stands.
func (s *QuizService) recordDraw(ctx context.Context, level domain.Level, d drawResult) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Replace(ctx, level, d.next); err != nil {
		s.logger.Error("save question ledger", zap.String("level", string(level)), zap.Error(err))
		return
	}
	if d.reshuffled {
		s.metrics.reshuffled(string(level))
		s.logger.Info("question deck reshuffled", zap.String("level", string(level)), zap.Int("ledger", len(d.next)))
	}
}

// State returns the current match state of the session.
func (s *QuizService) State(ctx context.Context, sessionID string) (domain.MatchState, error) {
	return s.load(ctx, sessionID)
}

// CurrentQuestion returns the question at the current index with shuffled options,
// or nil when the match is finished. The first fetch of an index stamps its start time.
func (s *QuizService) CurrentQuestion(ctx context.Context, sessionID string) (*domain.PresentedQuestion, error) {
	state, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Finished() {
		return nil, nil
	}

	question, loaded, err := s.current(ctx, state)
	if err != nil {
		return nil, err
	}

	changed := false
	if loaded {
		state.Current = &question
		changed = true
	}
	if state.StartedAt == nil {
		now := s.now()
		state.StartedAt = &now
		if s.duration > 0 {
			deadline := now.Add(s.duration)
			state.Deadline = &deadline
		}
		changed = true
	}
	if changed {
		if err := s.sessions.Save(ctx, sessionID, state); err != nil {
			return nil, storageErr("save match", err)
		}
	}

	return &domain.PresentedQuestion{
		ID:        question.ID,
		Level:     question.Level,
		Round:     question.Round,
		ImageRef:  question.ImageRef,
		Options:   s.shuffledOptions(question.Options),
		Number:    state.Index + 1,
		Total:     len(state.QuestionIDs),
		StartedAt: *state.StartedAt,
		Deadline:  state.Deadline,
	}, nil
}

// current returns the question at the current index, preferring the snapshot.
// loaded reports whether it had to be fetched.
func (s *QuizService) current(ctx context.Context, state domain.MatchState) (domain.Question, bool, error) {
	id := state.QuestionIDs[state.Index]
	if state.Current != nil && state.Current.ID == id {
		return *state.Current, false, nil
	}
	q, err := s.questions.GetQuestion(ctx, id)
	if err != nil {
		return domain.Question{}, false, storageErr("get question", err)
	}
	return q, true, nil
}

func (s *QuizService) shuffledOptions(options map[string]string) []domain.Option {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.Option, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.Option{Key: k, Text: options[k]})
	}
	s.mu.Lock()
	s.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	s.mu.Unlock()
	return out
}

// CheckAnswer compares key with the current question's correct option. It never changes state.
func (s *QuizService) CheckAnswer(ctx context.Context, sessionID, key string) (bool, string, error) {
	state, err := s.load(ctx, sessionID)
	if err != nil {
		return false, "", err
	}
	if state.Finished() {
		return false, "", invalidf("match already finished")
	}
	question, _, err := s.current(ctx, state)
	if err != nil {
		return false, "", err
	}
	selected := strings.ToLower(strings.TrimSpace(key))
	correct := strings.ToLower(question.Correct)
	return selected == correct, correct, nil
}

// AssignPoints adds points to a participant in the match and in the team registry.
// An unknown team is a soft failure: false with no error and no state change.
func (s *QuizService) AssignPoints(ctx context.Context, sessionID, team string, points int) (bool, error) {
	if points < 0 {
		return false, invalidf("points must not be negative")
	}
	state, err := s.load(ctx, sessionID)
	if err != nil {
		return false, err
	}
	team = strings.TrimSpace(team)
	if !state.HasTeam(team) {
		s.logger.Warn("points for team outside the match ignored",
			zap.String("session", sessionID), zap.String("team", team))
		return false, nil
	}
	if state.Finished() {
		return false, invalidf("match already finished")
	}

	// the registry is only credited once the match is saved
	prev := state.Scores[team]
	state.Scores[team] = prev + points
	if err := s.sessions.Save(ctx, sessionID, state); err != nil {
		return false, storageErr("save match", err)
	}

	found, err := s.teams.IncrementScore(ctx, team, points)
	if err != nil {
		state.Scores[team] = prev
		if rerr := s.sessions.Save(ctx, sessionID, state); rerr != nil {
			s.logger.Error("roll back match score",
				zap.String("session", sessionID), zap.String("team", team), zap.Error(rerr))
		}
		return false, storageErr("increment team score", err)
	}
	if !found {
		s.logger.Warn("team missing from registry; match score only", zap.String("team", team))
	}

	s.metrics.pointsAssigned(string(state.Level), points)
	if state.ThresholdReached() {
		s.logger.Info("score threshold reached",
			zap.String("match", state.ID), zap.String("team", team), zap.Int("score", state.Scores[team]))
	}
	return true, nil
}

// Advance moves to the next question, used both after scoring and for skips.
func (s *QuizService) Advance(ctx context.Context, sessionID string) error {
	state, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if state.Index < len(state.QuestionIDs) {
		state.Index++
	}
	state.Current = nil
	state.StartedAt = nil
	state.Deadline = nil
	if err := s.sessions.Save(ctx, sessionID, state); err != nil {
		return storageErr("save match", err)
	}
	return nil
}

// IsFinished reports whether the questions are exhausted or the score threshold was hit.
func (s *QuizService) IsFinished(ctx context.Context, sessionID string) (bool, error) {
	state, err := s.load(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return state.Finished(), nil
}

// Elapsed returns the time since the current question was first shown.
func (s *QuizService) Elapsed(ctx context.Context, sessionID string) (time.Duration, error) {
	state, err := s.load(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if state.StartedAt == nil {
		return 0, nil
	}
	return s.now().Sub(*state.StartedAt), nil
}

// Results reports the scores and the winner (or TieMarker) of the session's match.
func (s *QuizService) Results(ctx context.Context, sessionID string) (domain.MatchResult, error) {
	state, err := s.load(ctx, sessionID)
	if err != nil {
		return domain.MatchResult{}, err
	}
	result := BuildResult(state.Teams(), state.Scores)
	result.Finished = state.Finished()
	return result, nil
}

// BreakTie adds one point to the winner's persistent score. The closed match is not reopened.
func (s *QuizService) BreakTie(ctx context.Context, team string) error {
	team = strings.TrimSpace(team)
	if team == "" {
		return invalidf("tie-break winner is required")
	}
	found, err := s.teams.IncrementScore(ctx, team, 1)
	if err != nil {
		return storageErr("increment team score", err)
	}
	if !found {
		return fmt.Errorf("team %q: %w", team, domain.ErrNotFound)
	}
	s.logger.Info("tie broken", zap.String("team", team))
	return nil
}

// Clear discards the session's match. Safe to call at any time.
func (s *QuizService) Clear(ctx context.Context, sessionID string) error {
	if err := s.sessions.Clear(ctx, sessionID); err != nil {
		return storageErr("clear match", err)
	}
	return nil
}

func (s *QuizService) load(ctx context.Context, sessionID string) (domain.MatchState, error) {
	state, ok, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.MatchState{}, storageErr("load match", err)
	}
	if !ok {
		return domain.MatchState{}, domain.ErrNoActiveMatch
	}
	if state.Scores == nil {
		state.Scores = map[string]int{}
	}
	return state, nil
}

// BuildResult ranks teams by score. A unique top scorer wins; several top scorers tie.
func BuildResult(teams []string, scores map[string]int) domain.MatchResult {
	result := domain.MatchResult{Scores: make(map[string]int, len(teams))}
	for _, team := range teams {
		result.Scores[team] = scores[team]
		result.Standings = append(result.Standings, domain.Standing{Team: team, Score: scores[team]})
	}
	if len(result.Standings) == 0 {
		result.Message = "No se registraron puntos"
		return result
	}
	sort.SliceStable(result.Standings, func(i, j int) bool {
		return result.Standings[i].Score > result.Standings[j].Score
	})

	top := result.Standings[0].Score
	var leaders []string
	for _, st := range result.Standings {
		if st.Score == top {
			leaders = append(leaders, st.Team)
		}
	}
	if len(leaders) > 1 {
		result.Winner = domain.TieMarker
		result.Tied = leaders
		result.Message = fmt.Sprintf("¡Empate! %s tienen %d puntos", strings.Join(leaders, " y "), top)
		return result
	}
	result.Winner = leaders[0]
	result.Message = fmt.Sprintf("¡%s gana con %d puntos!", leaders[0], top)
	return result
}

func validRound(round string) bool {
	for _, r := range domain.QuestionRounds {
		if r == round {
			return true
		}
	}
	return false
}
