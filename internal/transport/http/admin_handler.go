package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"qa-training-service/internal/app"
	"qa-training-service/internal/domain"
)

// UserStore is the account surface the admin dashboard manages. Both the
// postgres and in-memory stores satisfy it.
type UserStore interface {
	app.UserDirectory
	GetUser(ctx context.Context, username string) (domain.User, error)
	SaveUser(ctx context.Context, user domain.User) error
	DeleteUser(ctx context.Context, username string) error
}

// AdminHandler exposes the dashboard operations: user management, auto-reset
// schedule CRUD, and manual resets. Rendering is the dashboard's business;
// this layer only hands out plain data.
type AdminHandler struct {
	scheduler *app.ResetScheduler
	users     UserStore
	progress  app.ProgressDirectory
	logger    *zap.Logger
}

func NewAdminHandler(scheduler *app.ResetScheduler, users UserStore, progress app.ProgressDirectory, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{scheduler: scheduler, users: users, progress: progress, logger: logger}
}

// Register attaches the admin routes to a mux.
func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/admin/users", h.handleUsers)
	mux.HandleFunc("/admin/auto-reset", h.handleAutoReset)
	mux.HandleFunc("/admin/auto-reset/check", h.handleCheck)
	mux.HandleFunc("/admin/reset", h.handleManualReset)
}

func (h *AdminHandler) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if username := r.URL.Query().Get("username"); username != "" {
			user, err := h.users.GetUser(r.Context(), username)
			if err != nil {
				h.fail(w, err)
				return
			}
			writeJSON(w, user)
			return
		}
		users, err := h.users.ListUsers(r.Context())
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, users)
	case http.MethodPost:
		var user domain.User
		if err := json.NewDecoder(r.Body).Decode(&user); err != nil || user.Username == "" {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if user.UserType == "" {
			user.UserType = "learner"
		}
		if err := h.users.SaveUser(r.Context(), user); err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, user)
	case http.MethodDelete:
		username := r.URL.Query().Get("username")
		if username == "" {
			http.Error(w, "missing username", http.StatusBadRequest)
			return
		}
		if err := h.users.DeleteUser(r.Context(), username); err != nil {
			h.fail(w, err)
			return
		}
		h.logger.Info("user deleted", zap.String("user", username))
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type autoResetRequest struct {
	QuizName string `json:"quizName"`
	// Period accepts whole minutes or the legacy daily/weekly/monthly tokens.
	Period  string `json:"period"`
	Enabled bool   `json:"enabled"`
}

func (h *AdminHandler) handleAutoReset(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := h.scheduler.Settings(r.Context())
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, settings)
	case http.MethodPost:
		var req autoResetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizName == "" {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if !req.Enabled {
			if err := h.scheduler.Disable(r.Context(), req.QuizName); err != nil {
				h.fail(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		setting, err := h.scheduler.Enable(r.Context(), req.QuizName, req.Period)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, setting)
	case http.MethodDelete:
		quizName := r.URL.Query().Get("quiz")
		if quizName == "" {
			http.Error(w, "missing quiz", http.StatusBadRequest)
			return
		}
		if err := h.scheduler.Delete(r.Context(), quizName); err != nil {
			h.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AdminHandler) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	reports, err := h.scheduler.CheckDue(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	if reports == nil {
		reports = []domain.ResetReport{}
	}
	writeJSON(w, reports)
}

type manualResetRequest struct {
	Username string `json:"username"`
	QuizName string `json:"quizName"`
}

func (h *AdminHandler) handleManualReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req manualResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.QuizName == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.progress.ResetProgress(r.Context(), req.Username, req.QuizName); err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Info("manual reset",
		zap.String("user", req.Username),
		zap.String("quiz", req.QuizName))
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrSettingNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.logger.Error("admin request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
