package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/app"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/config"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/importer"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/logger"
)

// NewImportCmd loads team rosters and question banks from XLSX files.
func NewImportCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:       "import teams|questions",
		Short:     "Import teams or questions from an XLSX spreadsheet",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"teams", "questions"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), *configPath, args[0], file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the .xlsx file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runImport(ctx context.Context, configPath, kind, file string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level)
	defer log.Sync()

	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured; imports need durable storage")
	}
	if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
		return err
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	teams := app.NewTeamService(b.teams, app.DefaultTeamCacheTTL, log)
	questions := app.NewQuestionService(b.questions, nil, b.questionRepository(cfg, log), app.QuestionOptions{Logger: log})
	im := importer.New(teams, questions, log)

	var report importer.Report
	switch kind {
	case "teams":
		report, err = im.ImportTeams(ctx, data)
	case "questions":
		report, err = im.ImportQuestions(ctx, data)
	default:
		return fmt.Errorf("unknown import kind %q", kind)
	}
	if err != nil {
		return err
	}

	for _, line := range report.Skipped {
		log.Warn("row skipped", zap.String("detail", line))
	}
	fmt.Fprintf(os.Stdout, "%s: %d created, %d skipped\n", kind, report.Created, len(report.Skipped))
	return nil
}
