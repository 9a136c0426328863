package cli

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/app"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/config"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/infra/memory"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/infra/postgres"
	redisstore "github.com/saamueldmg/olimpiadas-matematicas/internal/infra/redis"
)

// backends holds the stores selected by configuration: Postgres and Redis when
// configured, in-process maps otherwise.
type backends struct {
	teams     app.TeamStore
	questions app.QuestionStore
	brackets  app.BracketRepository
	loader    memory.QuestionLoader
	redis     *redis.Client
	closers   []func()
}

func openBackends(ctx context.Context, cfg config.Config, log *zap.Logger) (*backends, error) {
	b := &backends{}

	if cfg.Postgres.URL != "" {
		db := postgres.Open(cfg.Postgres.URL)
		b.closers = append(b.closers, func() { db.Close() })
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)

		b.teams = postgres.NewTeamStore(db)
		b.questions = postgres.NewQuestionStore(db)
		b.brackets = postgres.NewBracketStore(db)
		b.loader = postgres.NewQuestionLoader(pool)
		log.Info("using postgres storage")
	} else {
		questions := memory.NewQuestionStore()
		b.teams = memory.NewTeamStore()
		b.questions = questions
		b.brackets = memory.NewBracketStore()
		b.loader = questions
		log.Warn("postgres url not configured; data is kept in memory only")
	}

	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { b.redis.Close() })
		if err := b.redis.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, err
		}
		log.Info("using redis cache and sessions", zap.String("addr", cfg.Redis.Addr))
	}
	return b, nil
}

// questionRepository is the cached read path used by the quiz engine.
type questionRepository interface {
	app.QuestionRepository
	app.QuestionCache
}

func (b *backends) questionRepository(cfg config.Config, log *zap.Logger) questionRepository {
	ttl := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if b.redis != nil {
		return redisstore.NewQuestionRepository(b.redis, b.loader, ttl, log)
	}
	return memory.NewQuestionRepository(b.loader, ttl)
}

func (b *backends) sessionStore(cfg config.Config) app.SessionRepository {
	if b.redis != nil {
		return redisstore.NewSessionStore(b.redis, config.TTLDuration(cfg.Redis.TTL, 12*time.Hour))
	}
	return memory.NewSessionStore()
}

// usageLedger returns nil when question tracking is disabled.
func (b *backends) usageLedger(cfg config.Config) app.UsageLedger {
	if cfg.Quiz.TrackUsage != nil && !*cfg.Quiz.TrackUsage {
		return nil
	}
	if b.redis != nil {
		return redisstore.NewUsageLedger(b.redis)
	}
	return memory.NewUsageLedger()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}
