package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/app"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

// TeamRow is one roster line.
type TeamRow struct {
	Line  int
	Name  string
	Level domain.Level
}

// QuestionRow is one question-bank line.
type QuestionRow struct {
	Line  int
	Input app.QuestionInput
}

// Report summarizes an import run.
type Report struct {
	Created int      `json:"created"`
	Skipped []string `json:"skipped,omitempty"`
}

var columnAliases = map[string][]string{
	"name":    {"nombre", "name", "equipo", "team"},
	"level":   {"nivel", "level"},
	"round":   {"ronda", "round"},
	"a":       {"a", "opcion a", "option a"},
	"b":       {"b", "opcion b", "option b"},
	"c":       {"c", "opcion c", "option c"},
	"d":       {"d", "opcion d", "option d"},
	"correct": {"correcta", "respuesta", "correct", "answer"},
}

// ParseTeams reads the first sheet of an XLSX roster with name and level columns.
func ParseTeams(data []byte) ([]TeamRow, error) {
	rows, err := readSheet(data)
	if err != nil {
		return nil, err
	}
	cols, err := locateColumns(rows[0], "name", "level")
	if err != nil {
		return nil, err
	}

	var out []TeamRow
	for i, row := range rows[1:] {
		line := i + 2
		name := cell(row, cols["name"])
		if name == "" {
			continue
		}
		level, err := domain.ParseLevel(cell(row, cols["level"]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, TeamRow{Line: line, Name: name, Level: level})
	}
	return out, nil
}

// ParseQuestions reads the first sheet of an XLSX question bank.
// Required columns: level, a, b, c, d, correct. Round is optional.
func ParseQuestions(data []byte) ([]QuestionRow, error) {
	rows, err := readSheet(data)
	if err != nil {
		return nil, err
	}
	cols, err := locateColumns(rows[0], "level", "a", "b", "c", "d", "correct")
	if err != nil {
		return nil, err
	}
	roundCol, hasRound := findColumn(rows[0], "round")

	var out []QuestionRow
	for i, row := range rows[1:] {
		line := i + 2
		if cell(row, cols["level"]) == "" && cell(row, cols["correct"]) == "" {
			continue
		}
		level, err := domain.ParseLevel(cell(row, cols["level"]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		in := app.QuestionInput{
			Level:   level,
			Correct: cell(row, cols["correct"]),
			Options: map[string]string{},
		}
		for _, key := range domain.OptionKeys {
			in.Options[key] = cell(row, cols[key])
		}
		if hasRound {
			in.Round = cell(row, roundCol)
		}
		out = append(out, QuestionRow{Line: line, Input: in})
	}
	return out, nil
}

// Importer loads spreadsheets through the application services.
type Importer struct {
	teams     *app.TeamService
	questions *app.QuestionService
	logger    *zap.Logger
}

func New(teams *app.TeamService, questions *app.QuestionService, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{teams: teams, questions: questions, logger: logger}
}

// ImportTeams creates every roster team. Teams whose name already exists are skipped.
func (im *Importer) ImportTeams(ctx context.Context, data []byte) (Report, error) {
	rows, err := ParseTeams(data)
	if err != nil {
		return Report{}, err
	}
	var report Report
	for _, row := range rows {
		_, err := im.teams.Create(ctx, row.Name, row.Level)
		switch {
		case err == nil:
			report.Created++
		case errors.Is(err, domain.ErrConflict):
			report.Skipped = append(report.Skipped, fmt.Sprintf("line %d: %s already registered", row.Line, row.Name))
		default:
			return report, fmt.Errorf("line %d: %w", row.Line, err)
		}
	}
	im.logger.Info("teams imported", zap.Int("created", report.Created), zap.Int("skipped", len(report.Skipped)))
	return report, nil
}

// ImportQuestions creates every question row. Invalid rows are skipped and reported.
func (im *Importer) ImportQuestions(ctx context.Context, data []byte) (Report, error) {
	rows, err := ParseQuestions(data)
	if err != nil {
		return Report{}, err
	}
	var report Report
	for _, row := range rows {
		_, err := im.questions.Create(ctx, row.Input, nil)
		switch {
		case err == nil:
			report.Created++
		case errors.Is(err, domain.ErrInvalidInput):
			report.Skipped = append(report.Skipped, fmt.Sprintf("line %d: %v", row.Line, err))
		default:
			return report, fmt.Errorf("line %d: %w", row.Line, err)
		}
	}
	im.logger.Info("questions imported", zap.Int("created", report.Created), zap.Int("skipped", len(report.Skipped)))
	return report, nil
}

func readSheet(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open XLSX file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("XLSX file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}
	return rows, nil
}

func locateColumns(header []string, names ...string) (map[string]int, error) {
	cols := make(map[string]int, len(names))
	var missing []string
	for _, name := range names {
		idx, ok := findColumn(header, name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[name] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return cols, nil
}

func findColumn(header []string, name string) (int, bool) {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, alias := range columnAliases[name] {
			if h == alias {
				return i, true
			}
		}
	}
	return 0, false
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}
