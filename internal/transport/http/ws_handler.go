package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"qa-training-service/internal/app"
	"qa-training-service/internal/domain"
)

// PlayHandler wires websocket connections into the quiz engine. Each
// connection owns one PlaySession; the session is the only writer of that
// learner's progress.
type PlayHandler struct {
	engine       *app.QuizEngine
	logger       *zap.Logger
	fetchTimeout time.Duration
	upgrader     websocket.Upgrader
}

func NewPlayHandler(engine *app.QuizEngine, logger *zap.Logger, fetchTimeout time.Duration) *PlayHandler {
	return &PlayHandler{
		engine:       engine,
		logger:       logger,
		fetchTimeout: fetchTimeout,
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

type answerPayload struct {
	OptionIndex int    `json:"optionIndex"`
	TimeSpentMs *int64 `json:"timeSpentMs"`
	TimedOut    bool   `json:"timedOut"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// optionView hides outcome, experience, and correctness from the client;
// correctness is only ever resolved server-side against the original
// option order. Index is that original index, whatever order the client
// chooses to display.
type optionView struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type scenarioView struct {
	ID          int          `json:"id"`
	Level       domain.Level `json:"level"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Options     []optionView `json:"options"`
	Question    int          `json:"question"`
	Total       int          `json:"total"`
	Experience  int          `json:"experience"`
}

type reviewEntry struct {
	Title    string `json:"title"`
	Picked   string `json:"picked"`
	Outcome  string `json:"outcome"`
	Correct  bool   `json:"correct"`
	TimedOut bool   `json:"timedOut"`
}

type summaryView struct {
	QuizName        string        `json:"quizName"`
	Status          domain.Status `json:"status"`
	ScorePercentage int           `json:"scorePercentage"`
	Experience      int           `json:"experience"`
	Tools           []string      `json:"tools"`
	Review          []reviewEntry `json:"review"`
}

// ServePlay upgrades the request and drives a play-through: scenarios out,
// answers in, summary at the end.
func (h *PlayHandler) ServePlay(w http.ResponseWriter, r *http.Request) {
	quizName := r.URL.Query().Get("quiz")
	username := r.URL.Query().Get("userId")
	if quizName == "" || username == "" {
		http.Error(w, "missing quiz or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Scenario-table fetches race a deadline; a late load is discarded and
	// the learner gets a retry affordance instead of a hang.
	startCtx, cancelStart := context.WithTimeout(r.Context(), h.fetchTimeout)
	session, err := h.engine.Start(startCtx, quizName, username)
	cancelStart()
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: startMessage(err)}})
		return
	}

	levels, cancelLevels := session.SubscribeLevels()
	defer cancelLevels()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	levelsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(levelsDone)
		for {
			select {
			case level, ok := <-levels:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "levelUp", Payload: map[string]any{"level": level}}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	if session.Completed() {
		send <- outboundMessage[any]{Type: "summary", Payload: summarize(session)}
	} else {
		h.sendScenario(session, send)
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			feedback, err := session.SubmitAnswer(r.Context(), payload.OptionIndex, payload.TimeSpentMs, payload.TimedOut)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: feedback}
			if feedback.SaveFailed {
				send <- outboundMessage[any]{Type: "warning", Payload: errorPayload{Message: "progress could not be saved; it will be retried"}}
			}
			if feedback.Completed {
				send <- outboundMessage[any]{Type: "summary", Payload: summarize(session)}
			} else {
				h.sendScenario(session, send)
			}
		case "restart":
			if err := session.Restart(r.Context()); err != nil {
				send <- outboundMessage[any]{Type: "warning", Payload: errorPayload{Message: "restart saved locally only"}}
			}
			h.sendScenario(session, send)
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-levelsDone
	close(send)
	<-writerDone
}

func (h *PlayHandler) sendScenario(session *app.PlaySession, send chan<- outboundMessage[any]) {
	scenario, err := session.CurrentScenario()
	if err != nil {
		// A finished quiz grades normally; malformed data must end the
		// attempt as failed, never as a pass over a partial history.
		if errors.Is(err, domain.ErrQuizComplete) {
			if _, ferr := session.Finalize(context.Background()); ferr != nil {
				h.logger.Warn("finalize after scenario error failed", zap.Error(ferr))
			}
		} else if _, ferr := session.Fail(context.Background()); ferr != nil {
			h.logger.Warn("failing quiz after scenario error failed", zap.Error(ferr))
		}
		send <- outboundMessage[any]{Type: "summary", Payload: summarize(session)}
		return
	}
	progress := session.Progress()
	options := make([]optionView, len(scenario.Options))
	for i, opt := range scenario.Options {
		options[i] = optionView{Index: i, Text: opt.Text}
	}
	send <- outboundMessage[any]{Type: "scenario", Payload: scenarioView{
		ID:          scenario.ID,
		Level:       scenario.Level,
		Title:       scenario.Title,
		Description: scenario.Description,
		Options:     options,
		Question:    len(progress.History) + 1,
		Total:       domain.TotalQuestions,
		Experience:  progress.Experience,
	}}
}

func summarize(session *app.PlaySession) summaryView {
	progress := session.Progress()
	review := make([]reviewEntry, 0, len(progress.History))
	for _, aq := range progress.History {
		review = append(review, reviewEntry{
			Title:    aq.Scenario.Title,
			Picked:   aq.Selected.Text,
			Outcome:  aq.Selected.Outcome,
			Correct:  aq.Correct,
			TimedOut: aq.TimedOut,
		})
	}
	return summaryView{
		QuizName:        progress.QuizName,
		Status:          progress.Status,
		ScorePercentage: progress.ScorePercentage,
		Experience:      progress.Experience,
		Tools:           progress.Tools,
		Review:          review,
	}
}

func startMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoLearner):
		return "please log in before starting a quiz"
	case errors.Is(err, domain.ErrQuizNotFound):
		return "quiz not found"
	case errors.Is(err, context.DeadlineExceeded):
		return "loading the quiz timed out, please retry"
	default:
		return err.Error()
	}
}

// CountdownHandler streams auto-reset countdown ticks to admin dashboards.
type CountdownHandler struct {
	scheduler *app.ResetScheduler
	logger    *zap.Logger
	upgrader  websocket.Upgrader
}

func NewCountdownHandler(scheduler *app.ResetScheduler, logger *zap.Logger) *CountdownHandler {
	return &CountdownHandler{
		scheduler: scheduler,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeCountdown subscribes the connection to scheduler ticks until it closes.
func (h *CountdownHandler) ServeCountdown(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ticks, cancel := h.scheduler.Subscribe()
	defer cancel()

	readerGone := make(chan struct{})
	go func() {
		defer close(readerGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case batch, ok := <-ticks:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[[]app.CountdownTick]{Type: "countdown", Payload: batch}); err != nil {
				return
			}
		case <-readerGone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
