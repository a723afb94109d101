package bots

import (
	"strings"

	"github.com/auglet/auglet/internal/orchestrator"
)

// ChatRequest is one inbound chat message over REST or WebSocket.
type ChatRequest struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	DisplayName    string `json:"display_name,omitempty"`
	Text           string `json:"text"`
}

// ChatCard is the wire form of a rich card. Clients that cannot render
// cards fall back to the Text field of the enclosing message.
type ChatCard struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	Body     string   `json:"body"`
	Buttons  []string `json:"buttons,omitempty"`
}

// ChatMessage is one outbound message.
type ChatMessage struct {
	Text string    `json:"text"`
	Card *ChatCard `json:"card,omitempty"`
}

// ChatResponse is the reply to one chat turn.
type ChatResponse struct {
	ConversationID string        `json:"conversation_id"`
	Messages       []ChatMessage `json:"messages"`
}

// toWire converts orchestrator output to the wire format. Card-bearing
// messages get a plain-text rendering alongside the structured card.
func toWire(conversationID string, msgs []orchestrator.Message) ChatResponse {
	out := ChatResponse{ConversationID: conversationID}
	for _, m := range msgs {
		wire := ChatMessage{Text: m.Text}
		if m.Card != nil {
			wire.Card = &ChatCard{
				Title:    m.Card.Title,
				Subtitle: m.Card.Subtitle,
				Body:     m.Card.Body,
				Buttons:  append([]string(nil), m.Card.Buttons...),
			}
			if wire.Text == "" {
				wire.Text = renderCard(m.Card)
			}
		}
		out.Messages = append(out.Messages, wire)
	}
	return out
}

// renderCard flattens a card into markdown for text-only clients.
func renderCard(c *orchestrator.Card) string {
	var b strings.Builder
	b.WriteString("**" + c.Title + "**")
	if c.Subtitle != "" {
		b.WriteString("\n_" + c.Subtitle + "_")
	}
	if c.Body != "" {
		b.WriteString("\n\n" + c.Body)
	}
	if len(c.Buttons) > 0 {
		b.WriteString("\n\nOptions: " + strings.Join(c.Buttons, " | "))
	}
	return b.String()
}
