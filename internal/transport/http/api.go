package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/app"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/scoreboard"
)

// APIConfig wires the services exposed over HTTP. Gatherer and ImagesDir are optional.
type APIConfig struct {
	Teams     *app.TeamService
	Questions *app.QuestionService
	Brackets  *app.BracketService
	Quiz      *app.QuizService
	Auth      *Authenticator
	Logger    *zap.Logger
	Gatherer  prometheus.Gatherer
	ImagesDir string
	// MaxUploadBytes bounds multipart question forms.
	MaxUploadBytes int64
}

// API serves the admin REST endpoints, the public scoreboard and the operator console.
type API struct {
	cfg    APIConfig
	logger *zap.Logger
}

func NewAPI(cfg APIConfig) *API {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = app.DefaultMaxImageBytes
	}
	return &API{cfg: cfg, logger: cfg.Logger}
}

// Routes builds the router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if a.cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(a.cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	if a.cfg.ImagesDir != "" {
		r.Handle("/images/*", http.StripPrefix("/images/", http.FileServer(http.Dir(a.cfg.ImagesDir))))
	}

	ws := NewWSHandler(a.cfg.Quiz, a.cfg.Auth, a.logger)
	r.Get("/ws", ws.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", a.login)
		r.Get("/scoreboard/{level}", a.scoreboard)
		r.Get("/scoreboard/{level}/chart.png", a.scoreboardChart)

		r.Group(func(r chi.Router) {
			r.Use(a.cfg.Auth.RequireAdmin)

			r.Route("/teams", func(r chi.Router) {
				r.Get("/", a.listTeams)
				r.Post("/", a.createTeam)
				r.Post("/reset", a.resetScores)
				r.Get("/{id}", a.getTeam)
				r.Put("/{id}", a.updateTeam)
				r.Delete("/{id}", a.deleteTeam)
			})

			r.Route("/questions", func(r chi.Router) {
				r.Get("/", a.listQuestions)
				r.Post("/", a.createQuestion)
				r.Get("/{id}", a.getQuestion)
				r.Put("/{id}", a.updateQuestion)
				r.Delete("/{id}", a.deleteQuestion)
			})

			r.Route("/brackets/{level}", func(r chi.Router) {
				r.Post("/", a.createBracket)
				r.Get("/", a.getBracket)
				r.Delete("/", a.resetBracket)
				r.Get("/status", a.bracketStatus)
				r.Post("/matches/{matchID}/winner", a.recordWinner)
			})

			r.Post("/tiebreak", a.breakTie)
		})
	})
	return r
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	token, expires, err := a.cfg.Auth.Login(req.Username, req.Password)
	if err != nil {
		a.logger.Warn("admin login rejected", zap.String("username", req.Username))
		writeError(w, err)
		return
	}
	a.logger.Info("admin logged in", zap.String("username", req.Username))
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires})
}

func (a *API) scoreboard(w http.ResponseWriter, r *http.Request) {
	level, err := levelParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	teams, err := a.cfg.Teams.Scoreboard(r.Context(), level)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"level": level, "label": level.Label(), "teams": teams})
}

func (a *API) scoreboardChart(w http.ResponseWriter, r *http.Request) {
	level, err := levelParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	teams, err := a.cfg.Teams.Scoreboard(r.Context(), level)
	if err != nil {
		writeError(w, err)
		return
	}
	png, err := scoreboard.RenderPNG(level, teams)
	if err != nil {
		a.logger.Error("render scoreboard chart failed", zap.String("level", string(level)), zap.Error(err))
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

type teamRequest struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

func (a *API) listTeams(w http.ResponseWriter, r *http.Request) {
	var (
		teams []domain.Team
		err   error
	)
	if raw := r.URL.Query().Get("level"); raw != "" {
		var level domain.Level
		if level, err = domain.ParseLevel(raw); err == nil {
			teams, err = a.cfg.Teams.ListByLevel(r.Context(), level)
		}
	} else {
		teams, err = a.cfg.Teams.List(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (a *API) getTeam(w http.ResponseWriter, r *http.Request) {
	team, err := a.cfg.Teams.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (a *API) createTeam(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	level, err := domain.ParseLevel(req.Level)
	if err != nil {
		writeError(w, err)
		return
	}
	team, err := a.cfg.Teams.Create(r.Context(), req.Name, level)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (a *API) updateTeam(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	level, err := domain.ParseLevel(req.Level)
	if err != nil {
		writeError(w, err)
		return
	}
	team, err := a.cfg.Teams.Update(r.Context(), chi.URLParam(r, "id"), req.Name, level)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (a *API) deleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := a.cfg.Teams.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) resetScores(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IncludeTotal bool `json:"includeTotal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, fmt.Errorf("%w: malformed body: %v", domain.ErrInvalidInput, err))
		return
	}
	if err := a.cfg.Teams.ResetScores(r.Context(), req.IncludeTotal); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listQuestions(w http.ResponseWriter, r *http.Request) {
	var level domain.Level
	if raw := r.URL.Query().Get("level"); raw != "" {
		parsed, err := domain.ParseLevel(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		level = parsed
	}
	questions, err := a.cfg.Questions.List(r.Context(), level, r.URL.Query().Get("round"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (a *API) getQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := a.cfg.Questions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (a *API) createQuestion(w http.ResponseWriter, r *http.Request) {
	in, img, cleanup, err := a.questionForm(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cleanup()
	q, err := a.cfg.Questions.Create(r.Context(), in, img)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (a *API) updateQuestion(w http.ResponseWriter, r *http.Request) {
	in, img, cleanup, err := a.questionForm(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cleanup()
	q, err := a.cfg.Questions.Update(r.Context(), chi.URLParam(r, "id"), in, img)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (a *API) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := a.cfg.Questions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// questionForm reads a multipart form with level, round, a..d, correct and an optional image file.
func (a *API) questionForm(w http.ResponseWriter, r *http.Request) (app.QuestionInput, *app.ImageUpload, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(a.cfg.MaxUploadBytes); err != nil {
		return app.QuestionInput{}, nil, noop, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	level, err := domain.ParseLevel(r.FormValue("level"))
	if err != nil {
		return app.QuestionInput{}, nil, noop, err
	}
	in := app.QuestionInput{
		Level:   level,
		Round:   r.FormValue("round"),
		Options: make(map[string]string, len(domain.OptionKeys)),
		Correct: r.FormValue("correct"),
	}
	for _, key := range domain.OptionKeys {
		in.Options[key] = r.FormValue(key)
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, nil, noop, nil
	case err != nil:
		return app.QuestionInput{}, nil, noop, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return in, &app.ImageUpload{Filename: header.Filename, Body: file}, func() { file.Close() }, nil
}

type bracketRequest struct {
	Teams []string `json:"teams"`
}

func (a *API) createBracket(w http.ResponseWriter, r *http.Request) {
	level, err := levelParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req bracketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	b, err := a.cfg.Brackets.Create(r.Context(), level, req.Teams)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (a *API) getBracket(w http.ResponseWriter, r *http.Request) {
	level, err := levelParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	b, err := a.cfg.Brackets.Get(r.Context(), level)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *API) bracketStatus(w http.ResponseWriter, r *http.Request) {
	level, err := levelParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := a.cfg.Brackets.Status(r.Context(), level)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *API) resetBracket(w http.ResponseWriter, r *http.Request) {
	level, err := levelParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.cfg.Brackets.Reset(r.Context(), level); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) recordWinner(w http.ResponseWriter, r *http.Request) {
	level, err := levelParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Winner string `json:"winner"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	b, err := a.cfg.Brackets.RecordWinner(r.Context(), level, chi.URLParam(r, "matchID"), req.Winner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *API) breakTie(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Team string `json:"team"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := a.cfg.Quiz.BreakTie(r.Context(), req.Team); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"winner": strings.TrimSpace(req.Team)})
}

func levelParam(r *http.Request) (domain.Level, error) {
	return domain.ParseLevel(chi.URLParam(r, "level"))
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed body: %v", domain.ErrInvalidInput, err)
	}
	return nil
}
