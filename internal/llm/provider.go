package llm

import "context"

// Stream is a pull-based view of one model turn. It yields a finite
// sequence of events and must be consumed exactly once; after an
// EventCompleted or EventError event, Next reports false.
type Stream interface {
	// Next returns the next event, or false when the stream is exhausted.
	Next() (StreamEvent, bool)
	// Close releases the underlying connection. Safe to call more than once.
	Close() error
}

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// StreamChat opens a streamed, tool-enabled model turn.
	StreamChat(ctx context.Context, req ChatRequest) (Stream, error)
	// Name returns the name of this provider.
	Name() string
}
