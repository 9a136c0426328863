package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/app"
	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

// WSHandler is the operator console: one websocket per operator session driving a quiz round.
type WSHandler struct {
	service  *app.QuizService
	auth     *Authenticator
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler builds the console handler. A nil auth accepts every connection.
func NewWSHandler(service *app.QuizService, auth *Authenticator, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		auth:    auth,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Level         string `json:"level"`
	TeamA         string `json:"teamA"`
	TeamB         string `json:"teamB"`
	QuestionCount int    `json:"questionCount"`
	Round         string `json:"round"`
}

type answerPayload struct {
	Key string `json:"key"`
}

type assignPayload struct {
	Team    string `json:"team"`
	Points  int    `json:"points"`
	Advance bool   `json:"advance"`
}

type tiebreakPayload struct {
	Team string `json:"team"`
}

type answerResult struct {
	Correct    bool   `json:"correct"`
	CorrectKey string `json:"correctKey"`
}

type scoresPayload struct {
	Team     string         `json:"team"`
	Points   int            `json:"points"`
	Scores   map[string]int `json:"scores"`
	Finished bool           `json:"finished"`
}

// matchView is the operator's view of a match; it never carries the correct key.
type matchView struct {
	ID       string         `json:"id"`
	Level    domain.Level   `json:"level"`
	Label    string         `json:"label"`
	Round    string         `json:"round,omitempty"`
	Teams    []string       `json:"teams"`
	Scores   map[string]int `json:"scores"`
	Number   int            `json:"number"`
	Total    int            `json:"total"`
	Finished bool           `json:"finished"`
}

type sessionPayload struct {
	Session        string     `json:"session"`
	Active         bool       `json:"active"`
	Match          *matchView `json:"match,omitempty"`
	ElapsedSeconds float64    `json:"elapsedSeconds,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the request and serves console commands until the operator disconnects.
// Match state outlives the connection; reconnecting with the same session id resumes it.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.auth != nil {
		if _, err := h.auth.Verify(r.URL.Query().Get("token")); err != nil {
			writeError(w, err)
			return
		}
	}
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	log := h.logger.With(zap.String("session", sessionID))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	// clear the server's request deadlines; the console stays open for the whole match
	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// single writer; gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Warn("ws write error", zap.Error(err))
				return
			}
		}
	}()

	ctx := r.Context()
	c := &console{service: h.service, session: sessionID, send: send, log: log}
	c.sendSession(ctx)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("ws read ended", zap.Error(err))
			}
			break
		}
		c.handle(ctx, inbound)
	}

	close(send)
	<-writerDone
}

// console runs the commands of one operator connection.
type console struct {
	service *app.QuizService
	session string
	send    chan<- outboundMessage[any]
	log     *zap.Logger
}

func (c *console) emit(typ string, payload any) {
	c.send <- outboundMessage[any]{Type: typ, Payload: payload}
}

func (c *console) fail(err error) {
	if errors.Is(err, domain.ErrStorage) {
		c.log.Error("console command failed", zap.Error(err))
	}
	c.emit("error", errorPayload{Message: err.Error()})
}

func (c *console) handle(ctx context.Context, msg inboundMessage) {
	switch msg.Type {
	case "start":
		var p startPayload
		if !c.decode(msg, &p) {
			return
		}
		level, err := domain.ParseLevel(p.Level)
		if err != nil {
			c.fail(err)
			return
		}
		state, err := c.service.Initialize(ctx, c.session, app.MatchRequest{
			Level:         level,
			TeamA:         p.TeamA,
			TeamB:         p.TeamB,
			QuestionCount: p.QuestionCount,
			Round:         p.Round,
		})
		if err != nil {
			c.fail(err)
			return
		}
		c.emit("match", viewOf(state))

	case "question":
		c.sendQuestion(ctx)

	case "answer":
		var p answerPayload
		if !c.decode(msg, &p) {
			return
		}
		correct, key, err := c.service.CheckAnswer(ctx, c.session, p.Key)
		if err != nil {
			c.fail(err)
			return
		}
		c.emit("answerResult", answerResult{Correct: correct, CorrectKey: key})

	case "assign":
		var p assignPayload
		if !c.decode(msg, &p) {
			return
		}
		ok, err := c.service.AssignPoints(ctx, c.session, p.Team, p.Points)
		if err != nil {
			c.fail(err)
			return
		}
		if !ok {
			c.emit("error", errorPayload{Message: fmt.Sprintf("team %q is not playing this match", p.Team)})
			return
		}
		state, err := c.service.State(ctx, c.session)
		if err != nil {
			c.fail(err)
			return
		}
		c.emit("scores", scoresPayload{
			Team:     strings.TrimSpace(p.Team),
			Points:   p.Points,
			Scores:   state.Scores,
			Finished: state.Finished(),
		})
		if state.Finished() {
			c.sendFinished(ctx)
			return
		}
		if p.Advance {
			c.advance(ctx)
		}

	case "skip":
		c.advance(ctx)

	case "status":
		c.sendSession(ctx)

	case "results":
		result, err := c.service.Results(ctx, c.session)
		if err != nil {
			c.fail(err)
			return
		}
		c.emit("results", result)

	case "tiebreak":
		var p tiebreakPayload
		if !c.decode(msg, &p) {
			return
		}
		if err := c.service.BreakTie(ctx, p.Team); err != nil {
			c.fail(err)
			return
		}
		result, err := c.service.Results(ctx, c.session)
		if err != nil && !errors.Is(err, domain.ErrNoActiveMatch) {
			c.fail(err)
			return
		}
		winner := strings.TrimSpace(p.Team)
		result.Winner = winner
		result.Tied = nil
		result.Message = fmt.Sprintf("¡%s gana el desempate!", winner)
		c.emit("results", result)

	case "clear":
		if err := c.service.Clear(ctx, c.session); err != nil {
			c.fail(err)
			return
		}
		c.emit("cleared", sessionPayload{Session: c.session})

	default:
		c.emit("error", errorPayload{Message: "unsupported message type"})
	}
}

func (c *console) decode(msg inboundMessage, v any) bool {
	if len(msg.Payload) == 0 {
		c.emit("error", errorPayload{Message: msg.Type + " payload is required"})
		return false
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		c.emit("error", errorPayload{Message: "invalid " + msg.Type + " payload"})
		return false
	}
	return true
}

func (c *console) advance(ctx context.Context) {
	if err := c.service.Advance(ctx, c.session); err != nil {
		c.fail(err)
		return
	}
	c.sendQuestion(ctx)
}

// sendQuestion sends the current question, or the results once the match is over.
func (c *console) sendQuestion(ctx context.Context) {
	q, err := c.service.CurrentQuestion(ctx, c.session)
	if err != nil {
		c.fail(err)
		return
	}
	if q == nil {
		c.sendFinished(ctx)
		return
	}
	c.emit("question", q)
}

func (c *console) sendFinished(ctx context.Context) {
	result, err := c.service.Results(ctx, c.session)
	if err != nil {
		c.fail(err)
		return
	}
	c.emit("finished", result)
}

func (c *console) sendSession(ctx context.Context) {
	payload := sessionPayload{Session: c.session}
	state, err := c.service.State(ctx, c.session)
	switch {
	case errors.Is(err, domain.ErrNoActiveMatch):
	case err != nil:
		c.fail(err)
		return
	default:
		view := viewOf(state)
		payload.Active = true
		payload.Match = &view
		if elapsed, err := c.service.Elapsed(ctx, c.session); err == nil {
			payload.ElapsedSeconds = elapsed.Round(time.Second).Seconds()
		}
	}
	c.emit("session", payload)
}

func viewOf(state domain.MatchState) matchView {
	number := state.Index + 1
	if number > len(state.QuestionIDs) {
		number = len(state.QuestionIDs)
	}
	return matchView{
		ID:       state.ID,
		Level:    state.Level,
		Label:    state.Level.Label(),
		Round:    state.Round,
		Teams:    state.Teams(),
		Scores:   state.Scores,
		Number:   number,
		Total:    len(state.QuestionIDs),
		Finished: state.Finished(),
	}
}
