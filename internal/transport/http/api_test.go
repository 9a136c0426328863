package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/app"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/infra/files"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/infra/memory"
)

type apiFixture struct {
	server *httptest.Server
	token  string
}

func newAPIFixture(t *testing.T) apiFixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := app.NewMetrics(reg)

	teamStore := memory.NewTeamStore()
	questionStore := memory.NewQuestionStore()
	questionRepo := memory.NewQuestionRepository(questionStore, time.Minute)
	images, err := files.NewImageStore(t.TempDir(), "/images")
	require.NoError(t, err)

	teams := app.NewTeamService(teamStore, app.DefaultTeamCacheTTL, nil)
	auth := NewAuthenticator("admin", "secret", "api-test-key", time.Hour)
	api := NewAPI(APIConfig{
		Teams:     teams,
		Questions: app.NewQuestionService(questionStore, images, questionRepo, app.QuestionOptions{}),
		Brackets:  app.NewBracketService(memory.NewBracketStore(), metrics, nil),
		Quiz:      app.NewQuizService(memory.NewSessionStore(), questionRepo, teams, app.QuizOptions{Metrics: metrics}),
		Auth:      auth,
		Gatherer:  reg,
		ImagesDir: images.Dir(),
	})
	server := httptest.NewServer(api.Routes())
	t.Cleanup(server.Close)

	token, _, err := auth.Login("admin", "secret")
	require.NoError(t, err)
	return apiFixture{server: server, token: token}
}

func (f apiFixture) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	return f.send(t, req)
}

func (f apiFixture) send(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestLoginAndAdminGuard(t *testing.T) {
	f := newAPIFixture(t)
	anon := apiFixture{server: f.server}

	resp, _ := anon.do(t, http.MethodPost, "/api/login", loginRequest{Username: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, data := anon.do(t, http.MethodPost, "/api/login", loginRequest{Username: "admin", Password: "secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[loginResponse](t, data)
	assert.NotEmpty(t, login.Token)

	resp, _ = anon.do(t, http.MethodGet, "/api/teams", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tampered := apiFixture{server: f.server, token: login.Token + "x"}
	resp, _ = tampered.do(t, http.MethodGet, "/api/teams", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	authed := apiFixture{server: f.server, token: login.Token}
	resp, _ = authed.do(t, http.MethodGet, "/api/teams", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTeamEndpointsAndScoreboard(t *testing.T) {
	f := newAPIFixture(t)

	resp, data := f.do(t, http.MethodPost, "/api/teams", teamRequest{Name: "Colegio Andino", Level: "Nivel II"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	created := decode[domain.Team](t, data)
	assert.Equal(t, domain.LevelII, created.Level)

	resp, _ = f.do(t, http.MethodPost, "/api/teams", teamRequest{Name: "colegio andino", Level: "nivel2"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/teams", teamRequest{Name: "Otro", Level: "nivel9"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data = f.do(t, http.MethodPut, "/api/teams/"+created.ID, teamRequest{Name: "Colegio Andes", Level: "nivel2"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, "Colegio Andes", decode[domain.Team](t, data).Name)

	resp, data = f.do(t, http.MethodGet, "/api/teams?level=nivel2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]domain.Team](t, data), 1)

	anon := apiFixture{server: f.server}
	resp, data = anon.do(t, http.MethodGet, "/api/scoreboard/nivel2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	board := decode[struct {
		Label string        `json:"label"`
		Teams []domain.Team `json:"teams"`
	}](t, data)
	assert.Equal(t, "Nivel II", board.Label)
	require.Len(t, board.Teams, 1)

	resp, data = anon.do(t, http.MethodGet, "/api/scoreboard/nivel2/chart.png", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	resp, _ = f.do(t, http.MethodPost, "/api/teams/reset", map[string]bool{"includeTotal": true})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = f.do(t, http.MethodDelete, "/api/teams/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = f.do(t, http.MethodGet, "/api/teams/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func questionRequest(t *testing.T, f apiFixture, method, path string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "problema uno.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(method, f.server.URL+path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+f.token)
	return req
}

func TestQuestionUploadServesImage(t *testing.T) {
	f := newAPIFixture(t)
	fields := map[string]string{
		"level": "nivel1", "round": "semis",
		"a": "12", "b": "14", "c": "16", "d": "18", "correct": "C",
	}

	resp, data := f.send(t, questionRequest(t, f, http.MethodPost, "/api/questions", fields, []byte("png-bytes")))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	q := decode[domain.Question](t, data)
	assert.Equal(t, "c", q.Correct)
	require.True(t, strings.HasPrefix(q.ImageRef, "/images/"), q.ImageRef)
	assert.True(t, strings.HasSuffix(q.ImageRef, "_problema_uno.png"), q.ImageRef)

	resp, data = apiFixture{server: f.server}.do(t, http.MethodGet, q.ImageRef, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "png-bytes", string(data))

	fields["correct"] = "e"
	resp, _ = f.send(t, questionRequest(t, f, http.MethodPost, "/api/questions", fields, nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data = f.do(t, http.MethodGet, "/api/questions?level=nivel1&round=semis", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]domain.Question](t, data), 1)

	resp, _ = f.do(t, http.MethodDelete, "/api/questions/"+q.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = apiFixture{server: f.server}.do(t, http.MethodGet, q.ImageRef, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBracketEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	teams := make([]string, 8)
	for i := range teams {
		teams[i] = fmt.Sprintf("team-%d", i+1)
	}

	resp, _ := f.do(t, http.MethodGet, "/api/brackets/nivel3/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/brackets/nivel3", bracketRequest{Teams: teams[:7]})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, data := f.do(t, http.MethodPost, "/api/brackets/nivel3", bracketRequest{Teams: teams})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	resp, _ = f.do(t, http.MethodPost, "/api/brackets/nivel3/matches/sf_1/winner", map[string]string{"winner": "team-1"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, data = f.do(t, http.MethodPost, "/api/brackets/nivel3/matches/qf_1/winner", map[string]string{"winner": "team-2"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	b := decode[domain.Bracket](t, data)
	assert.Equal(t, "team-2", b.Rounds[1].Matches[0].Team1.TeamID)

	resp, _ = f.do(t, http.MethodPost, "/api/brackets/nivel3/matches/qf_7/winner", map[string]string{"winner": "team-2"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodDelete, "/api/brackets/nivel3", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, data = f.do(t, http.MethodGet, "/api/brackets/nivel3/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.BracketNotCreated, decode[domain.BracketSummary](t, data).Status)

	resp, _ = f.do(t, http.MethodGet, "/api/brackets/nivel3", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTieBreakUnknownTeam(t *testing.T) {
	f := newAPIFixture(t)
	resp, _ := f.do(t, http.MethodPost, "/api/tiebreak", map[string]string{"team": "Nadie"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newAPIFixture(t)
	anon := apiFixture{server: f.server}

	resp, data := anon.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(data))

	teams := make([]string, 8)
	for i := range teams {
		teams[i] = fmt.Sprintf("t%d", i)
	}
	resp, _ = f.do(t, http.MethodPost, "/api/brackets/nivel1", bracketRequest{Teams: teams})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/api/brackets/nivel1/matches/qf_1/winner", map[string]string{"winner": "t0"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, data = anon.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `olimpiadas_bracket_winners_total{level="nivel1",round="quarterfinals"} 1`)
}
