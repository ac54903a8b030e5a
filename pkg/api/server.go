package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kestrelmon/kestrel/pkg/connector"
	"github.com/kestrelmon/kestrel/pkg/engine"
	"github.com/kestrelmon/kestrel/pkg/models"
)

const (
	// Version is reported by the health endpoint.
	Version = "1.0.0"

	maxMessageLength = 2000
	turnTimeout      = 60 * time.Second
)

// AuthOptions controls the optional bearer-token middleware.
type AuthOptions struct {
	Enabled   bool
	JWTSecret string
}

type Server struct {
	engine   *engine.Engine
	registry *connector.Registry
	router   *mux.Router
	auth     AuthOptions
	origins  []string
	logger   *zap.Logger
}

func NewServer(eng *engine.Engine, auth AuthOptions, corsOrigins []string, logger *zap.Logger) *Server {
	s := &Server{
		engine:   eng,
		registry: eng.Registry(),
		router:   mux.NewRouter(),
		auth:     auth,
		origins:  corsOrigins,
		logger:   logger,
	}
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.corsMiddleware)

	s.router.HandleFunc("/health", s.getHealth).Methods("GET")
	s.router.HandleFunc("/ready", s.getReady).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.authMiddleware)

	api.HandleFunc("/chat", s.postChat).Methods("POST")
	api.HandleFunc("/chat/ws", s.chatWebSocket).Methods("GET")
	api.HandleFunc("/sessions/{id}/history", s.getHistory).Methods("GET")
	api.HandleFunc("/sessions/{id}/summary", s.getSummary).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.deleteSession).Methods("DELETE")
	api.HandleFunc("/alerts", s.getAlerts).Methods("GET")
	api.HandleFunc("/metrics/summary", s.getMetricsSummary).Methods("GET")
}

// Handler exposes the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) postChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	if len(req.Message) > maxMessageLength {
		s.writeError(w, http.StatusBadRequest, "message exceeds maximum length")
		return
	}

	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	s.writeJSON(w, http.StatusOK, s.processTurn(r, req))
}

func (s *Server) processTurn(r *http.Request, req ChatRequest) *ChatResponse {
	ctx, cancel := contextWithTimeout(r, turnTimeout)
	defer cancel()

	start := time.Now()

	msg := s.engine.ProcessMessage(ctx, req.SessionID, req.Message)

	return &ChatResponse{
		Message:        msg.Content,
		SessionID:      req.SessionID,
		QueryType:      msg.Metadata["query_type"],
		Intent:         msg.Metadata["intent"],
		Timestamp:      msg.Timestamp,
		ProcessingTime: time.Since(start).Seconds(),
	}
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}

		limit = n
	}

	history, err := s.engine.History(r.Context(), sessionID, limit)
	if err != nil {
		s.logger.Error("failed to load history",
			zap.String("session_id", sessionID),
			zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load history")

		return
	}

	if history == nil {
		history = []models.ChatMessage{}
	}

	s.writeJSON(w, http.StatusOK, HistoryResponse{
		SessionID: sessionID,
		History:   history,
	})
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	summary := s.engine.Summary(r.Context(), sessionID)

	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	if err := s.engine.ClearSession(r.Context(), sessionID); err != nil {
		s.logger.Error("failed to clear session",
			zap.String("session_id", sessionID),
			zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to clear session")

		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":     "cleared",
		"session_id": sessionID,
	})
}

func (s *Server) getAlerts(w http.ResponseWriter, r *http.Request) {
	results := s.registry.AllAlerts(r.Context())

	alerts := connector.Merge(results)
	if alerts == nil {
		alerts = []models.AlertRecord{}
	}

	s.writeJSON(w, http.StatusOK, AlertsResponse{
		Alerts:    alerts,
		Count:     len(alerts),
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) getMetricsSummary(w http.ResponseWriter, r *http.Request) {
	summaries := s.registry.AllSummaries(r.Context())

	s.writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Checks:    map[string]string{"api": "ok"},
		Version:   Version,
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getReady(w http.ResponseWriter, r *http.Request) {
	health := s.registry.HealthCheckAll(r.Context())

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]string, len(health)+1),
		Version:   Version,
	}
	resp.Checks["api"] = "ok"

	healthy := 0

	for name, ok := range health {
		if ok {
			resp.Checks[name] = "ok"
			healthy++
		} else {
			resp.Checks[name] = "unreachable"
		}
	}

	status := http.StatusOK

	switch {
	case len(health) == 0:
		resp.Status = "degraded"
	case healthy == 0:
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	case healthy < len(health):
		resp.Status = "degraded"
	}

	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{
		Error:     msg,
		Timestamp: time.Now().UTC(),
	})
}
