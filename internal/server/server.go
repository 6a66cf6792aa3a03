// Package server exposes the chat orchestrator and conversation store over
// HTTP: a chat endpoint, thin conversation/task reads, and a websocket
// change feed. Authentication is the deployment's concern; the server
// trusts the user id presented with each request.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"taskbot/internal/chat"
	"taskbot/internal/config"
	"taskbot/internal/db"
	"taskbot/internal/metrics"
	"taskbot/internal/models"
	"taskbot/internal/notify"
)

// TurnHandler runs one chat turn. chat.Orchestrator satisfies it.
type TurnHandler interface {
	HandleTurn(ctx context.Context, userID, conversationID, userText string) (*chat.TurnResult, error)
}

// Store covers the read and delete paths the HTTP surface needs beyond the
// orchestrator. internal/db.Client satisfies it.
type Store interface {
	ListConversations(ctx context.Context, userID string) ([]models.Conversation, error)
	GetConversation(ctx context.Context, userID, id string) (*models.Conversation, error)
	DeleteConversation(ctx context.Context, userID, id string) error
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
	ListTasks(ctx context.Context, userID, status string) ([]models.Task, error)
}

// Server is the HTTP front of the service.
type Server struct {
	turns     TurnHandler
	store     Store
	notifier  *notify.Notifier
	collector *metrics.Collector
	logger    *slog.Logger
	cfg       config.Config

	http *http.Server
}

// New wires the HTTP server from its collaborators. collector may be nil;
// the stats endpoint then reports an empty snapshot.
func New(turns TurnHandler, store Store, notifier *notify.Notifier, collector *metrics.Collector, cfg config.Config, logger *slog.Logger) *Server {
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Server{
		turns:     turns,
		store:     store,
		notifier:  notifier,
		collector: collector,
		logger:    logger,
		cfg:       cfg,
	}
}

// Handler builds the route tree. Exposed separately so tests can drive it
// through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware(s.logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/conversations", s.handleListConversations)
		r.Get("/conversations/{id}", s.handleGetConversation)
		r.Delete("/conversations/{id}", s.handleDeleteConversation)
		r.Get("/tasks", s.handleListTasks)
		r.Get("/events", s.handleEvents)
		r.Get("/stats", s.handleStats)
	})

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(r)
}

// ListenAndServe starts the server and blocks. ctx is the base context for
// all requests; cancelling it also tears down open websocket streams.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.Port
	s.logger.Info("starting server", "addr", addr)

	s.http = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

type chatRequest struct {
	UserID         string `json:"user_id"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	result, err := s.turns.HandleTurn(r.Context(), req.UserID, req.ConversationID, req.Message)
	if err != nil {
		s.writeTurnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) writeTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chat.ErrTimeout):
		// retryable; the user's message is already persisted
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		s.logger.Error("turn failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	conversations, err := s.store.ListConversations(r.Context(), userID)
	if err != nil {
		s.logger.Error("list conversations failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	conv, err := s.store.GetConversation(r.Context(), userID, id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	messages, err := s.store.RecentMessages(r.Context(), id, s.cfg.HistoryLimit)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation": conv,
		"messages":     messages,
	})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if err := s.store.DeleteConversation(r.Context(), userID, id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	status := r.URL.Query().Get("status")
	if status == "" {
		status = models.StatusAll
	}
	if status != models.StatusAll && status != models.StatusPending && status != models.StatusCompleted {
		writeError(w, http.StatusBadRequest, "status must be all, pending or completed")
		return
	}

	tasks, err := s.store.ListTasks(r.Context(), userID, status)
	if err != nil {
		s.logger.Error("list tasks failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "count": len(tasks)})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.Snapshot())
}

// requireUserID reads the caller identity from the X-User-ID header, with
// the user_id query parameter as a fallback for browser clients.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		userID = r.URL.Query().Get("user_id")
	}
	if strings.TrimSpace(userID) == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return "", false
	}
	return userID, true
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	s.logger.Error("store failure", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
