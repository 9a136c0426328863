package memory

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

// QuestionLoader fetches questions from a backing store (e.g., Postgres).
type QuestionLoader interface {
	ListQuestions(ctx context.Context, level domain.Level, round string) ([]domain.Question, error)
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
}

// QuestionRepository caches question lists and single questions with TTL to avoid repeated DB hits.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu        sync.RWMutex
	lists     map[string]cachedList
	questions map[string]cachedQuestion
}

type cachedList struct {
	questions []domain.Question
	expiresAt time.Time
}

type cachedQuestion struct {
	question  domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader:    loader,
		ttl:       ttl,
		clock:     time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		lists:     make(map[string]cachedList),
		questions: make(map[string]cachedQuestion),
	}
}

func (r *QuestionRepository) ListQuestions(ctx context.Context, level domain.Level, round string) ([]domain.Question, error) {
	key := listKey(level, round)
	if qs, ok := r.cachedList(key); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do("list:"+key, func() (interface{}, error) {
		if qs, ok := r.cachedList(key); ok {
			return qs, nil
		}
		qs, err := r.loader.ListQuestions(ctx, level, round)
		if err != nil {
			return nil, err
		}

		now := r.clock()
		r.mu.Lock()
		r.lists[key] = cachedList{questions: qs, expiresAt: now.Add(r.ttlWithJitter())}
		for _, q := range qs {
			r.questions[q.ID] = cachedQuestion{question: q, expiresAt: now.Add(r.ttlWithJitter())}
		}
		r.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneQuestions(result.([]domain.Question)), nil
}

func (r *QuestionRepository) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	now := r.clock()
	r.mu.RLock()
	if entry, ok := r.questions[id]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return cloneQuestion(entry.question), nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("question:"+id, func() (interface{}, error) {
		q, err := r.loader.GetQuestion(ctx, id)
		if err != nil {
			return domain.Question{}, err
		}
		r.mu.Lock()
		r.questions[id] = cachedQuestion{question: q, expiresAt: r.clock().Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return cloneQuestion(result.(domain.Question)), nil
}

// Invalidate drops every cached list of level along with the unfiltered list and all single-question entries.
func (r *QuestionRepository) Invalidate(_ context.Context, level domain.Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.lists {
		if strings.HasPrefix(key, string(level)+"|") || strings.HasPrefix(key, "|") {
			delete(r.lists, key)
		}
	}
	r.questions = make(map[string]cachedQuestion)
	return nil
}

func (r *QuestionRepository) cachedList(key string) ([]domain.Question, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.lists[key]
	if !ok || !entry.expiresAt.After(now) {
		return nil, false
	}
	return cloneQuestions(entry.questions), true
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func listKey(level domain.Level, round string) string {
	return string(level) + "|" + round
}

func cloneQuestions(qs []domain.Question) []domain.Question {
	out := make([]domain.Question, len(qs))
	for i, q := range qs {
		out[i] = cloneQuestion(q)
	}
	return out
}
