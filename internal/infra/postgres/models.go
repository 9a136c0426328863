package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

type teamModel struct {
	bun.BaseModel `bun:"table:teams,alias:t"`

	ID         string       `bun:"id,pk"`
	Name       string       `bun:"name,notnull"`
	Level      domain.Level `bun:"level,notnull"`
	Score      int          `bun:"score,notnull"`
	TotalScore int          `bun:"total_score,notnull"`
}

func (m teamModel) toDomain() domain.Team {
	return domain.Team{ID: m.ID, Name: m.Name, Level: m.Level, Score: m.Score, TotalScore: m.TotalScore}
}

func teamFromDomain(t domain.Team) *teamModel {
	return &teamModel{ID: t.ID, Name: t.Name, Level: t.Level, Score: t.Score, TotalScore: t.TotalScore}
}

type questionModel struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID        string            `bun:"id,pk"`
	Level     domain.Level      `bun:"level,notnull"`
	Round     string            `bun:"round,notnull"`
	ImageRef  string            `bun:"image_ref,notnull"`
	Options   map[string]string `bun:"options,type:jsonb,notnull"`
	Correct   string            `bun:"correct,notnull"`
	CreatedAt time.Time         `bun:"created_at,notnull,default:current_timestamp"`
}

func (m questionModel) toDomain() domain.Question {
	return domain.Question{ID: m.ID, Level: m.Level, Round: m.Round, ImageRef: m.ImageRef, Options: m.Options, Correct: m.Correct}
}

func questionFromDomain(q domain.Question) *questionModel {
	return &questionModel{ID: q.ID, Level: q.Level, Round: q.Round, ImageRef: q.ImageRef, Options: q.Options, Correct: q.Correct}
}

// bracketModel stores the whole bracket as one JSONB document keyed by level.
type bracketModel struct {
	bun.BaseModel `bun:"table:brackets,alias:b"`

	Level     domain.Level   `bun:"level,pk"`
	Document  domain.Bracket `bun:"document,type:jsonb,notnull"`
	UpdatedAt time.Time      `bun:"updated_at,notnull,default:current_timestamp"`
}
