package bots

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/auglet/auglet/internal/orchestrator"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsError is the error frame sent back on a bad request.
type wsError struct {
	Type           string `json:"type"` // always "error"
	ConversationID string `json:"conversation_id,omitempty"`
	Error          string `json:"error"`
}

// wsResponse wraps a ChatResponse with a frame type.
type wsResponse struct {
	Type string `json:"type"` // always "response"
	ChatResponse
}

func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var req ChatRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			g.sendError(conn, "", "invalid message format")
			continue
		}
		if req.Text == "" {
			g.sendError(conn, req.ConversationID, "text is required")
			continue
		}
		if req.UserID == "" {
			g.sendError(conn, req.ConversationID, "user_id is required")
			continue
		}
		if req.ConversationID == "" {
			req.ConversationID = uuid.NewString()
		}

		msgs := g.handler.HandleTurn(r.Context(), orchestrator.Turn{
			ConversationID: req.ConversationID,
			UserID:         req.UserID,
			DisplayName:    req.DisplayName,
			Text:           req.Text,
		})

		resp := wsResponse{Type: "response", ChatResponse: toWire(req.ConversationID, msgs)}
		if err := conn.WriteJSON(resp); err != nil {
			g.logger.Warn("websocket write failed", zap.Error(err))
			return
		}
	}
}

func (g *Gateway) sendError(conn *websocket.Conn, conversationID, msg string) {
	frame := wsError{Type: "error", ConversationID: conversationID, Error: msg}
	if err := conn.WriteJSON(frame); err != nil {
		g.logger.Warn("websocket write failed", zap.Error(err))
	}
}
