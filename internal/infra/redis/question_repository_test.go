package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/infra/memory"
)

func TestQuestionRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{QuestionLoader: memory.NewQuestionStore(sampleQuestions()...)}
	repo := NewQuestionRepository(client, loader, time.Minute, nil)
	ctx := context.Background()

	qs, err := repo.ListQuestions(ctx, domain.LevelI, "")
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(qs) != 2 || loader.lists != 1 {
		t.Fatalf("expected 2 questions from one load, got %d after %d loads", len(qs), loader.lists)
	}
	if !mr.Exists("olimpiadas:questions:nivel1:") {
		t.Fatalf("expected list key to be set")
	}

	// Second call should hit cache, loader not incremented.
	_, _ = repo.ListQuestions(ctx, domain.LevelI, "")
	if loader.lists != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.lists)
	}

	q, err := repo.GetQuestion(ctx, "q2")
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if q.Correct != "a" || loader.gets != 0 {
		t.Fatalf("expected cached question, got %+v after %d loads", q, loader.gets)
	}
}

func TestQuestionRepositoryInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewQuestionRepository(newClient(mr), memory.NewQuestionStore(sampleQuestions()...), time.Minute, nil)
	ctx := context.Background()

	_, _ = repo.ListQuestions(ctx, domain.LevelI, domain.RoundOctavos)
	_, _ = repo.ListQuestions(ctx, domain.LevelII, "")

	if err := repo.Invalidate(ctx, domain.LevelI); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("olimpiadas:questions:nivel1:octavos") || mr.Exists(questionHashKey) {
		t.Fatalf("expected level-1 keys removed")
	}
	if !mr.Exists("olimpiadas:questions:nivel2:") {
		t.Fatalf("expected other levels untouched")
	}
}

func TestQuestionRepositoryGetMissSetsTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{QuestionLoader: memory.NewQuestionStore(sampleQuestions()...)}
	repo := NewQuestionRepository(newClient(mr), loader, time.Minute, nil)
	ctx := context.Background()

	q, err := repo.GetQuestion(ctx, "q3")
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if q.Correct != "b" || loader.gets != 1 {
		t.Fatalf("expected one load of q3, got %+v after %d loads", q, loader.gets)
	}
	if got := mr.HGet(questionHashKey, "q3"); got == "" {
		t.Fatalf("expected q3 cached in %s", questionHashKey)
	}
	if ttl := mr.TTL(questionHashKey); ttl <= 0 {
		t.Fatalf("expected question hash to expire, ttl=%v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if mr.Exists(questionHashKey) {
		t.Fatalf("expected question hash to expire after the ttl")
	}
}

type countingLoader struct {
	memory.QuestionLoader
	lists int
	gets  int
}

func (l *countingLoader) ListQuestions(ctx context.Context, level domain.Level, round string) ([]domain.Question, error) {
	l.lists++
	return l.QuestionLoader.ListQuestions(ctx, level, round)
}

func (l *countingLoader) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	l.gets++
	return l.QuestionLoader.GetQuestion(ctx, id)
}

func sampleQuestions() []domain.Question {
	options := map[string]string{"a": "7", "b": "8", "c": "9", "d": "10"}
	return []domain.Question{
		{ID: "q1", Level: domain.LevelI, Round: domain.RoundOctavos, Options: options, Correct: "d"},
		{ID: "q2", Level: domain.LevelI, Options: options, Correct: "a"},
		{ID: "q3", Level: domain.LevelII, Options: options, Correct: "b"},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
