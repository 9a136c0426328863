package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/infra/memory"
)

// QuestionRepository caches questions in Redis and falls back to a loader on cache miss.
// Lists are stored as:     SET  olimpiadas:questions:{level}:{round} <json array>
// Questions are stored as: HSET olimpiadas:question {questionID} <json>
type QuestionRepository struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	logger *zap.Logger
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

const questionHashKey = "olimpiadas:question"

func NewQuestionRepository(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration, logger *zap.Logger) *QuestionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		logger: logger,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) ListQuestions(ctx context.Context, level domain.Level, round string) ([]domain.Question, error) {
	key := listKey(level, round)
	if qs, ok := r.cachedList(ctx, key); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := r.cachedList(ctx, key); ok {
			return qs, nil
		}
		qs, err := r.loader.ListQuestions(ctx, level, round)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(qs)
		if err != nil {
			return nil, err
		}
		pipe := r.client.Pipeline()
		pipe.Set(ctx, key, raw, r.ttlWithJitter())
		for _, q := range qs {
			if item, err := json.Marshal(q); err == nil {
				pipe.HSet(ctx, questionHashKey, q.ID, item)
			}
		}
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, questionHashKey, ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			r.logger.Warn("question cache fill failed", zap.String("key", key), zap.Error(err))
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuestionRepository) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	if raw, err := r.client.HGet(ctx, questionHashKey, id).Bytes(); err == nil {
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err == nil {
			return q, nil
		}
	}

	q, err := r.loader.GetQuestion(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	if raw, err := json.Marshal(q); err == nil {
		pipe := r.client.Pipeline()
		pipe.HSet(ctx, questionHashKey, id, raw)
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, questionHashKey, ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			r.logger.Warn("question cache fill failed", zap.String("question", id), zap.Error(err))
		}
	}
	return q, nil
}

// Invalidate drops the cached lists of level, the unfiltered lists and the question hash.
func (r *QuestionRepository) Invalidate(ctx context.Context, level domain.Level) error {
	keys := []string{questionHashKey}
	for _, pattern := range []string{listKey(level, "*"), listKey("", "*")} {
		iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *QuestionRepository) cachedList(ctx context.Context, key string) ([]domain.Question, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, false
	}
	return qs, true
}

func listKey(level domain.Level, round string) string {
	return "olimpiadas:questions:" + string(level) + ":" + round
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
