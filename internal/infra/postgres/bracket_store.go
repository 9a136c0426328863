package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

// BracketStore keeps one bracket document per level.
type BracketStore struct {
	db *bun.DB
}

func NewBracketStore(db *bun.DB) *BracketStore {
	return &BracketStore{db: db}
}

func (s *BracketStore) Get(ctx context.Context, level domain.Level) (domain.Bracket, bool, error) {
	row := new(bracketModel)
	err := s.db.NewSelect().Model(row).Where("level = ?", level).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bracket{}, false, nil
	}
	if err != nil {
		return domain.Bracket{}, false, fmt.Errorf("get bracket: %w", err)
	}
	return row.Document, true, nil
}

func (s *BracketStore) Save(ctx context.Context, bracket domain.Bracket) error {
	row := &bracketModel{Level: bracket.Level, Document: bracket, UpdatedAt: time.Now().UTC()}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (level) DO UPDATE").
		Set("document = EXCLUDED.document").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save bracket: %w", err)
	}
	return nil
}

func (s *BracketStore) Delete(ctx context.Context, level domain.Level) error {
	if _, err := s.db.NewDelete().Model((*bracketModel)(nil)).Where("level = ?", level).Exec(ctx); err != nil {
		return fmt.Errorf("delete bracket: %w", err)
	}
	return nil
}
