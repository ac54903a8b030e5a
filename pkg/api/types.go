package api

import (
	"time"

	"github.com/kestrelmon/kestrel/pkg/models"
)

// ChatRequest is the inbound chat payload.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the reply for one turn.
type ChatResponse struct {
	Message        string    `json:"message"`
	SessionID      string    `json:"session_id"`
	QueryType      string    `json:"query_type,omitempty"`
	Intent         string    `json:"intent,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	ProcessingTime float64   `json:"processing_time"`
}

// HealthResponse reports the server and connector state.
type HealthResponse struct {
	Status    string            `json:"status"` // healthy, degraded, unhealthy
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Version   string            `json:"version"`
}

// HistoryResponse carries a session's messages.
type HistoryResponse struct {
	SessionID string               `json:"session_id"`
	History   []models.ChatMessage `json:"history"`
}

// AlertsResponse carries merged active alerts.
type AlertsResponse struct {
	Alerts    []models.AlertRecord `json:"alerts"`
	Count     int                  `json:"count"`
	Timestamp time.Time            `json:"timestamp"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}
