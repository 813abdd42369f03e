package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/RichardoC/medichat/internal/chat"
	"github.com/RichardoC/medichat/internal/models"
	"github.com/RichardoC/medichat/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionLister is implemented by the turn journal when one is configured.
type SessionLister interface {
	Sessions(ctx context.Context) ([]models.Session, error)
}

type Handler struct {
	sessions  *session.Manager
	readiness func() chat.Readiness
	history   SessionLister
	logger    *zap.Logger
}

// NewHandler accepts a nil history; listing sessions is then unavailable.
func NewHandler(sessions *session.Manager, readiness func() chat.Readiness, history SessionLister, logger *zap.Logger) *Handler {
	return &Handler{
		sessions:  sessions,
		readiness: readiness,
		history:   history,
		logger:    logger,
	}
}

type MessageRequest struct {
	Content string `json:"content"`
}

type MessageResponse struct {
	Message models.ChatTurn `json:"message"`
}

type SessionResponse struct {
	ID string `json:"id"`
}

type StatusResponse struct {
	chat.Readiness
	Busy   bool   `json:"busy"`
	Status string `json:"status"`
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/status", h.GetStatus)
	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", h.ListSessions)
		r.Post("/", h.CreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Delete("/", h.DeleteSession)
			r.Get("/status", h.GetSessionStatus)
			r.Get("/messages", h.GetMessages)
			r.Post("/messages", h.HandleMessage)
			r.Delete("/messages", h.ClearMessages)
		})
	})
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	readiness := h.readiness()
	writeJSON(w, http.StatusOK, StatusResponse{
		Readiness: readiness,
		Status:    readiness.StatusText(),
	}, h.logger)
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		http.Error(w, "Session history is disabled", http.StatusNotImplemented)
		return
	}

	sessions, err := h.history.Sessions(r.Context())
	if err != nil {
		h.logger.Error("Failed to list sessions",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Debug("Retrieved sessions", zap.Int("count", len(sessions)))
	writeJSON(w, http.StatusOK, sessions, h.logger)
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Create(r.Context())
	if err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{ID: s.ID()}, h.logger)
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	if err := h.sessions.Delete(r.Context(), id); err != nil {
		h.sessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetSessionStatus(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	readiness := h.readiness()
	status := readiness.StatusText()
	busy := s.IsBusy()
	if busy {
		status = "AI is thinking..."
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Readiness: readiness,
		Busy:      busy,
		Status:    status,
	}, h.logger)
}

func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Transcript(), h.logger)
}

func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	reply, accepted, err := s.Submit(r.Context(), req.Content)
	if err != nil {
		h.logger.Error("Failed to process message",
			zap.String("session", s.ID()),
			zap.Error(err))
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}
	if !accepted {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: reply}, h.logger)
}

func (h *Handler) ClearMessages(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	s.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return nil, false
	}
	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		h.sessionError(w, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) sessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	h.logger.Error("Session lookup failed", zap.Error(err))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func parseSessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
