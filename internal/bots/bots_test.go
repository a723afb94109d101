package bots

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/auglet/auglet/internal/config"
	"github.com/auglet/auglet/internal/orchestrator"
)

// mockHandler echoes turns back for testing.
type mockHandler struct {
	lastTurn orchestrator.Turn
	msgs     []orchestrator.Message
}

func (m *mockHandler) HandleTurn(_ context.Context, turn orchestrator.Turn) []orchestrator.Message {
	m.lastTurn = turn
	if m.msgs != nil {
		return m.msgs
	}
	return []orchestrator.Message{{Text: "echo: " + turn.Text}}
}

func newGateway(h Handler) *Gateway {
	return NewGateway(config.ServerConfig{Port: 0, AllowAll: true}, h, zap.NewNop())
}

func postChat(t *testing.T, g *Gateway, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	g.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	g := newGateway(&mockHandler{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	g.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
}

func TestChatTurnRoundTrip(t *testing.T) {
	h := &mockHandler{}
	g := newGateway(h)

	rec := postChat(t, g, `{"conversation_id":"c1","user_id":"u1","display_name":"Dana","text":"hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if h.lastTurn.ConversationID != "c1" || h.lastTurn.UserID != "u1" || h.lastTurn.Text != "hello" {
		t.Errorf("turn not forwarded: %+v", h.lastTurn)
	}

	var resp ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ConversationID != "c1" || len(resp.Messages) != 1 || resp.Messages[0].Text != "echo: hello" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestChatGeneratesConversationID(t *testing.T) {
	g := newGateway(&mockHandler{})
	rec := postChat(t, g, `{"user_id":"u1","text":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ConversationID == "" {
		t.Error("expected a generated conversation_id")
	}
}

func TestChatValidation(t *testing.T) {
	g := newGateway(&mockHandler{})
	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{nope`},
		{"missing text", `{"user_id":"u1"}`},
		{"missing user", `{"text":"hi"}`},
		{"blank text", `{"user_id":"u1","text":"   "}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postChat(t, g, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestCardRendersAsTextFallback(t *testing.T) {
	h := &mockHandler{msgs: []orchestrator.Message{{
		Card: &orchestrator.Card{
			Title:    "Welcome to Auglet!",
			Subtitle: "Your development assistant",
			Body:     "Want to personalize how I work?",
			Buttons:  []string{"Yes, let's go", "Maybe later", "No thanks"},
		},
	}}}
	g := newGateway(h)

	rec := postChat(t, g, `{"conversation_id":"c1","user_id":"u1","text":"hi"}`)
	var resp ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Messages) != 1 {
		t.Fatalf("want one message, got %d", len(resp.Messages))
	}
	msg := resp.Messages[0]
	if msg.Card == nil || msg.Card.Title != "Welcome to Auglet!" || len(msg.Card.Buttons) != 3 {
		t.Errorf("card not carried on the wire: %+v", msg.Card)
	}
	for _, want := range []string{"Welcome to Auglet!", "personalize", "Maybe later"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("text fallback missing %q: %q", want, msg.Text)
		}
	}
}

func TestWebSocketChat(t *testing.T) {
	h := &mockHandler{}
	g := newGateway(h)
	srv := httptest.NewServer(g.Router())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(ChatRequest{ConversationID: "c1", UserID: "u1", Text: "ping"}); err != nil {
		t.Fatal(err)
	}
	var resp wsResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Type != "response" || resp.ConversationID != "c1" {
		t.Errorf("unexpected frame: %+v", resp)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].Text != "echo: ping" {
		t.Errorf("unexpected messages: %+v", resp.Messages)
	}

	// A frame without text gets an error frame back, and the connection
	// stays usable.
	if err := conn.WriteJSON(ChatRequest{ConversationID: "c1", UserID: "u1"}); err != nil {
		t.Fatal(err)
	}
	var errFrame wsError
	if err := conn.ReadJSON(&errFrame); err != nil {
		t.Fatal(err)
	}
	if errFrame.Type != "error" || !strings.Contains(errFrame.Error, "text") {
		t.Errorf("unexpected error frame: %+v", errFrame)
	}

	if err := conn.WriteJSON(ChatRequest{ConversationID: "c1", UserID: "u1", Text: "pong"}); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Messages[0].Text != "echo: pong" {
		t.Errorf("connection did not survive the error frame: %+v", resp.Messages)
	}
}
