package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/app"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/infra/memory"
)

type countingTeamStore struct {
	*memory.TeamStore
	lists int
}

func (s *countingTeamStore) ListTeams(ctx context.Context) ([]domain.Team, error) {
	s.lists++
	return s.TeamStore.ListTeams(ctx)
}

func TestTeamServiceCreateAndConflict(t *testing.T) {
	svc := app.NewTeamService(memory.NewTeamStore(), time.Minute, nil)
	ctx := context.Background()

	team, err := svc.Create(ctx, "  Colegio Newton ", domain.LevelII)
	require.NoError(t, err)
	assert.NotEmpty(t, team.ID)
	assert.Equal(t, "Colegio Newton", team.Name)
	assert.Zero(t, team.Score)

	_, err = svc.Create(ctx, "colegio newton", domain.LevelI)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.Create(ctx, "", domain.LevelI)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Create(ctx, "Gauss", "nivel4")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTeamServiceUpdateKeepsScores(t *testing.T) {
	store := memory.NewTeamStore(
		domain.Team{ID: "t1", Name: "Euler", Level: domain.LevelI, Score: 4, TotalScore: 9},
		domain.Team{ID: "t2", Name: "Gauss", Level: domain.LevelI},
	)
	svc := app.NewTeamService(store, time.Minute, nil)
	ctx := context.Background()

	team, err := svc.Update(ctx, "t1", "Euler B", domain.LevelII)
	require.NoError(t, err)
	assert.Equal(t, 4, team.Score)
	assert.Equal(t, 9, team.TotalScore)

	_, err = svc.Update(ctx, "t1", "Gauss", domain.LevelII)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.Update(ctx, "missing", "Noether", domain.LevelII)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "missing"), domain.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, "t2"))
}

func TestTeamServiceCachesListUntilWrite(t *testing.T) {
	store := &countingTeamStore{TeamStore: memory.NewTeamStore(
		domain.Team{ID: "t1", Name: "Euler", Level: domain.LevelI},
	)}
	svc := app.NewTeamService(store, app.DefaultTeamCacheTTL, nil)
	ctx := context.Background()

	_, err := svc.List(ctx)
	require.NoError(t, err)
	_, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.lists)

	found, err := svc.IncrementScore(ctx, "Euler", 2)
	require.NoError(t, err)
	assert.True(t, found)

	teams, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, store.lists)
	assert.Equal(t, 2, teams[0].Score)
}

func TestTeamServiceScoreboardAndReset(t *testing.T) {
	store := memory.NewTeamStore(
		domain.Team{ID: "t1", Name: "Euler", Level: domain.LevelI, Score: 3, TotalScore: 5},
		domain.Team{ID: "t2", Name: "Gauss", Level: domain.LevelI, Score: 7, TotalScore: 7},
		domain.Team{ID: "t3", Name: "Abel", Level: domain.LevelI, Score: 3, TotalScore: 3},
		domain.Team{ID: "t4", Name: "Noether", Level: domain.LevelII, Score: 10},
	)
	svc := app.NewTeamService(store, time.Minute, nil)
	ctx := context.Background()

	board, err := svc.Scoreboard(ctx, domain.LevelI)
	require.NoError(t, err)
	var names []string
	for _, team := range board {
		names = append(names, team.Name)
	}
	assert.Equal(t, []string{"Gauss", "Abel", "Euler"}, names)

	require.NoError(t, svc.ResetScores(ctx, false))
	team, err := svc.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Zero(t, team.Score)
	assert.Equal(t, 5, team.TotalScore)

	_, err = svc.Scoreboard(ctx, "x")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
