package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

// QuestionStore persists the question bank with bun.
type QuestionStore struct {
	db *bun.DB
}

func NewQuestionStore(db *bun.DB) *QuestionStore {
	return &QuestionStore{db: db}
}

func (s *QuestionStore) ListQuestions(ctx context.Context, level domain.Level, round string) ([]domain.Question, error) {
	var rows []questionModel
	q := s.db.NewSelect().Model(&rows).Order("id ASC")
	if level != "" {
		q = q.Where("level = ?", level)
	}
	if round != "" {
		q = q.Where("round = ?", round)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]domain.Question, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *QuestionStore) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	row := new(questionModel)
	err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, fmt.Errorf("question %q: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("get question: %w", err)
	}
	return row.toDomain(), nil
}

func (s *QuestionStore) CreateQuestion(ctx context.Context, q domain.Question) error {
	if _, err := s.db.NewInsert().Model(questionFromDomain(q)).Exec(ctx); err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

func (s *QuestionStore) UpdateQuestion(ctx context.Context, q domain.Question) error {
	res, err := s.db.NewUpdate().
		Model(questionFromDomain(q)).
		Column("level", "round", "image_ref", "options", "correct").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	return requireRow(res, "question", q.ID)
}

func (s *QuestionStore) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*questionModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return requireRow(res, "question", id)
}
