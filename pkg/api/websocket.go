package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadLimit    = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin filtering happens in the CORS layer for the REST
		// surface; the socket accepts any origin and relies on auth.
		return true
	},
}

// chatWebSocket runs a chat conversation over a single socket. Each
// inbound frame is a ChatRequest; each outbound frame a ChatResponse.
func (s *Server) chatWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	s.logger.Info("websocket session started", zap.String("session_id", sessionID))

	for {
		var req ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", zap.Error(err))
			}

			return
		}

		if req.SessionID == "" {
			req.SessionID = sessionID
		}

		resp := s.handleSocketTurn(r.Context(), req)

		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))

		if err := conn.WriteJSON(resp); err != nil {
			s.logger.Warn("websocket write failed", zap.Error(err))
			return
		}
	}
}

func (s *Server) handleSocketTurn(parent context.Context, req ChatRequest) interface{} {
	if req.Message == "" || len(req.Message) > maxMessageLength {
		return ErrorResponse{
			Error:     "message must be between 1 and 2000 characters",
			Timestamp: time.Now().UTC(),
		}
	}

	ctx, cancel := context.WithTimeout(parent, turnTimeout)
	defer cancel()

	start := time.Now()

	msg := s.engine.ProcessMessage(ctx, req.SessionID, req.Message)

	return ChatResponse{
		Message:        msg.Content,
		SessionID:      req.SessionID,
		QueryType:      msg.Metadata["query_type"],
		Intent:         msg.Metadata["intent"],
		Timestamp:      msg.Timestamp,
		ProcessingTime: time.Since(start).Seconds(),
	}
}
