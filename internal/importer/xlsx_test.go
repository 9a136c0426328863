package importer

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/app"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/infra/memory"
)

func workbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellRef, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseTeams(t *testing.T) {
	faker := gofakeit.New(21)
	first, second := faker.Company(), faker.Company()+" II"
	data := workbook(t, [][]interface{}{
		{"Nombre", "Nivel"},
		{first, "Nivel I"},
		{"", ""},
		{second, "L3"},
	})

	rows, err := ParseTeams(data)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, TeamRow{Line: 2, Name: first, Level: domain.LevelI}, rows[0])
	assert.Equal(t, TeamRow{Line: 4, Name: second, Level: domain.LevelIII}, rows[1])
}

func TestParseTeamsErrors(t *testing.T) {
	_, err := ParseTeams(workbook(t, [][]interface{}{{"Equipo"}, {"Euler"}}))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = ParseTeams(workbook(t, [][]interface{}{{"Equipo", "Nivel"}, {"Euler", "Nivel IV"}}))
	assert.ErrorContains(t, err, "line 2")

	_, err = ParseTeams([]byte("not a zip"))
	assert.Error(t, err)
}

func TestImportTeamsSkipsDuplicates(t *testing.T) {
	teams := app.NewTeamService(memory.NewTeamStore(domain.Team{ID: "t0", Name: "Euler", Level: domain.LevelI}), time.Minute, nil)
	im := New(teams, nil, nil)

	report, err := im.ImportTeams(context.Background(), workbook(t, [][]interface{}{
		{"team", "level"},
		{"Euler", "nivel1"},
		{"Gauss", "nivel2"},
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Len(t, report.Skipped, 1)
}

func TestImportQuestions(t *testing.T) {
	store := memory.NewQuestionStore()
	questions := app.NewQuestionService(store, nil, nil, app.QuestionOptions{})
	im := New(nil, questions, nil)

	report, err := im.ImportQuestions(context.Background(), workbook(t, [][]interface{}{
		{"Nivel", "Ronda", "A", "B", "C", "D", "Correcta"},
		{"Nivel II", "semis", 10, 12, 14, 16, "c"},
		{"nivel2", "", "x", "y", "", "z", "a"},
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Len(t, report.Skipped, 1)

	qs, err := store.ListQuestions(context.Background(), domain.LevelII, domain.RoundSemis)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "14", qs[0].Options["c"])
}
