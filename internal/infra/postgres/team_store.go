package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

// TeamStore persists teams with bun.
type TeamStore struct {
	db *bun.DB
}

func NewTeamStore(db *bun.DB) *TeamStore {
	return &TeamStore{db: db}
}

func (s *TeamStore) ListTeams(ctx context.Context) ([]domain.Team, error) {
	var rows []teamModel
	if err := s.db.NewSelect().Model(&rows).Order("name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	teams := make([]domain.Team, 0, len(rows))
	for _, r := range rows {
		teams = append(teams, r.toDomain())
	}
	return teams, nil
}

func (s *TeamStore) GetTeam(ctx context.Context, id string) (domain.Team, error) {
	row := new(teamModel)
	err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Team{}, fmt.Errorf("team %q: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Team{}, fmt.Errorf("get team: %w", err)
	}
	return row.toDomain(), nil
}

func (s *TeamStore) CreateTeam(ctx context.Context, team domain.Team) error {
	if _, err := s.db.NewInsert().Model(teamFromDomain(team)).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("team %q: %w", team.Name, domain.ErrConflict)
		}
		return fmt.Errorf("create team: %w", err)
	}
	return nil
}

func (s *TeamStore) UpdateTeam(ctx context.Context, team domain.Team) error {
	res, err := s.db.NewUpdate().
		Model(teamFromDomain(team)).
		Column("name", "level").
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("team %q: %w", team.Name, domain.ErrConflict)
		}
		return fmt.Errorf("update team: %w", err)
	}
	return requireRow(res, "team", team.ID)
}

func (s *TeamStore) DeleteTeam(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*teamModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	return requireRow(res, "team", id)
}

func (s *TeamStore) ResetScores(ctx context.Context, includeTotal bool) error {
	q := s.db.NewUpdate().Model((*teamModel)(nil)).Set("score = 0").Where("TRUE")
	if includeTotal {
		q = q.Set("total_score = 0")
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("reset scores: %w", err)
	}
	return nil
}

// IncrementScore adds delta in place so concurrent scoring never loses updates.
func (s *TeamStore) IncrementScore(ctx context.Context, name string, delta int) (bool, error) {
	res, err := s.db.NewUpdate().
		Model((*teamModel)(nil)).
		Set("score = score + ?", delta).
		Set("total_score = total_score + ?", delta).
		Where("name = ?", name).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("increment score: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	return strings.Contains(err.Error(), "23505")
}
