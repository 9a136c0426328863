package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/app"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/infra/postgres"
	pgmigrations "github.com/saamueldmg/olimpiadas-matematicas/internal/infra/postgres/migrations"
	infraredis "github.com/saamueldmg/olimpiadas-matematicas/internal/infra/redis"
)

func TestQuizRoundEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := postgres.Open(pgURL)
	defer db.Close()
	migrateDB(t, ctx, db)

	teams := app.NewTeamService(postgres.NewTeamStore(db), time.Second, nil)
	for _, name := range []string{"Alfa", "Beta"} {
		if _, err := teams.Create(ctx, name, domain.LevelI); err != nil {
			t.Fatalf("create team %s: %v", name, err)
		}
	}
	seedQuestions(t, ctx, postgres.NewQuestionStore(db), 12)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	questionRepo := infraredis.NewQuestionRepository(redisClient, postgres.NewQuestionLoader(pool), 5*time.Minute, nil)
	sessionStore := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	service := app.NewQuizService(sessionStore, questionRepo, teams, app.QuizOptions{
		Ledger: infraredis.NewUsageLedger(redisClient),
	})

	state, err := service.Initialize(ctx, "op-1", app.MatchRequest{Level: domain.LevelI, TeamA: "Alfa", TeamB: "Beta"})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if len(state.QuestionIDs) != app.DefaultQuestionCount {
		t.Fatalf("expected %d questions, got %d", app.DefaultQuestionCount, len(state.QuestionIDs))
	}

	q, err := service.CurrentQuestion(ctx, "op-1")
	if err != nil || q == nil {
		t.Fatalf("current question: %v", err)
	}
	correct, key, err := service.CheckAnswer(ctx, "op-1", "c")
	if err != nil || !correct || key != "c" {
		t.Fatalf("check answer: correct=%v key=%q err=%v", correct, key, err)
	}
	if ok, err := service.AssignPoints(ctx, "op-1", "Beta", 2); err != nil || !ok {
		t.Fatalf("assign points: ok=%v err=%v", ok, err)
	}
	if err := service.Advance(ctx, "op-1"); err != nil {
		t.Fatalf("advance: %v", err)
	}

	result, err := service.Results(ctx, "op-1")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if result.Winner != "Beta" {
		t.Fatalf("expected Beta leading, got %+v", result)
	}

	board, err := teams.Scoreboard(ctx, domain.LevelI)
	if err != nil {
		t.Fatalf("scoreboard: %v", err)
	}
	if board[0].Name != "Beta" || board[0].Score != 2 || board[0].TotalScore != 2 {
		t.Fatalf("expected persisted score for Beta, got %+v", board)
	}
}

func TestBracketPersistsAcrossServices(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	db := postgres.Open(pgURL)
	defer db.Close()
	migrateDB(t, ctx, db)

	ids := []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8"}
	first := app.NewBracketService(postgres.NewBracketStore(db), nil, nil)
	if _, err := first.Create(ctx, domain.LevelII, ids); err != nil {
		t.Fatalf("create bracket: %v", err)
	}
	if _, err := first.RecordWinner(ctx, domain.LevelII, "qf_2", "t4"); err != nil {
		t.Fatalf("record winner: %v", err)
	}

	second := app.NewBracketService(postgres.NewBracketStore(db), nil, nil)
	b, err := second.Get(ctx, domain.LevelII)
	if err != nil {
		t.Fatalf("get bracket: %v", err)
	}
	if b.Rounds[1].Matches[0].Team2.TeamID != "t4" {
		t.Fatalf("expected t4 in sf_1.team2, got %+v", b.Rounds[1].Matches[0])
	}

	if err := second.Reset(ctx, domain.LevelII); err != nil {
		t.Fatalf("reset: %v", err)
	}
	status, err := first.Status(ctx, domain.LevelII)
	if err != nil || status.Status != domain.BracketNotCreated {
		t.Fatalf("expected no bracket, got %+v err=%v", status, err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "olimpiadas", "POSTGRES_PASSWORD": "olimpiadas", "POSTGRES_DB": "olimpiadas"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://olimpiadas:olimpiadas@%s:%s/olimpiadas?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func seedQuestions(t *testing.T, ctx context.Context, store *postgres.QuestionStore, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		q := domain.Question{
			ID:      fmt.Sprintf("q%02d", i),
			Level:   domain.LevelI,
			Options: map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"},
			Correct: "c",
		}
		if err := store.CreateQuestion(ctx, q); err != nil {
			t.Fatalf("insert question: %v", err)
		}
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
