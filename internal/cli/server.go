package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/app"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/config"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/infra/files"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/logger"
	transport "github.com/saamueldmg/olimpiadas-matematicas/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the tournament server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level)
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := app.NewMetrics(reg)

	images, err := files.NewImageStore(cfg.Images.Dir, "/images")
	if err != nil {
		return err
	}

	questionRepo := b.questionRepository(cfg, log)
	teams := app.NewTeamService(b.teams, app.DefaultTeamCacheTTL, log.Named("teams"))
	questions := app.NewQuestionService(b.questions, images, questionRepo, app.QuestionOptions{
		MaxImageBytes:     cfg.Images.MaxBytes,
		AllowedExtensions: cfg.Images.AllowedExtensions,
		Logger:            log.Named("questions"),
	})
	brackets := app.NewBracketService(b.brackets, metrics, log.Named("brackets"))
	quiz := app.NewQuizService(b.sessionStore(cfg), questionRepo, teams, app.QuizOptions{
		QuestionCount:    cfg.Quiz.QuestionCount,
		ScoreThreshold:   cfg.Quiz.ScoreThreshold,
		QuestionDuration: config.TTLDuration(cfg.Quiz.QuestionDuration, 5*time.Minute),
		Ledger:           b.usageLedger(cfg),
		Metrics:          metrics,
		Logger:           log.Named("quiz"),
	})

	if cfg.Admin.Username == "" || cfg.Admin.JWTSecret == "" {
		log.Warn("admin credentials not configured; admin endpoints will reject every request")
	}
	auth := transport.NewAuthenticator(cfg.Admin.Username, cfg.Admin.Password, cfg.Admin.JWTSecret,
		config.TTLDuration(cfg.Admin.TokenTTL, 12*time.Hour))

	api := transport.NewAPI(transport.APIConfig{
		Teams:          teams,
		Questions:      questions,
		Brackets:       brackets,
		Quiz:           quiz,
		Auth:           auth,
		Logger:         log.Named("http"),
		Gatherer:       reg,
		ImagesDir:      images.Dir(),
		MaxUploadBytes: cfg.Images.MaxBytes,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      api.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting tournament server", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
