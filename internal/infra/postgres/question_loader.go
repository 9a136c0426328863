package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

// QuestionLoader reads questions over a pgx pool for the quiz hot path.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

const questionColumns = `id, level, round, image_ref, options, correct`

func (l *QuestionLoader) ListQuestions(ctx context.Context, level domain.Level, round string) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE ($1 = '' OR level = $1) AND ($2 = '' OR round = $2)
		 ORDER BY id`, string(level), round)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (l *QuestionLoader) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	q, err := scanQuestion(l.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, fmt.Errorf("question %q: %w", id, domain.ErrNotFound)
	}
	return q, err
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var (
		q     domain.Question
		level string
		raw   []byte
	)
	if err := row.Scan(&q.ID, &level, &q.Round, &q.ImageRef, &raw, &q.Correct); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Question{}, err
		}
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	q.Level = domain.Level(level)
	if err := json.Unmarshal(raw, &q.Options); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal question options: %w", err)
	}
	return q, nil
}
