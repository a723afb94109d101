package orchestrator

import "errors"

// ErrHistoryReset signals that the conversation history was inconsistent
// and had to be cleared before the turn could proceed.
var ErrHistoryReset = errors.New("conversation history required a reset")

// Turn is one inbound user message as delivered by the chat transport.
type Turn struct {
	ConversationID string
	UserID         string
	DisplayName    string
	Text           string
}

// Card is a structured payload for transports that can render rich
// prompts. Transports without card support fall back to rendering Body.
type Card struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	Body     string   `json:"body"`
	Buttons  []string `json:"buttons,omitempty"`
}

// Message is one outbound activity produced by a turn.
type Message struct {
	Text string `json:"text,omitempty"`
	Card *Card  `json:"card,omitempty"`

	// recorded marks text already written to the session history, such as
	// commentary stored on a tool-call message.
	recorded bool
}

func text(s string) Message { return Message{Text: s} }
