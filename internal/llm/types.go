package llm

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Message represents a single message in a conversation.
type Message struct {
	Role    Role
	Content string
	// ToolCalls is set on assistant messages that request tool execution.
	ToolCalls []ToolCall
	// ToolCallID and Name are set on tool-result messages.
	ToolCallID string
	Name       string
}

// ToolDefinition describes one callable tool exposed to the model.
// Parameters is a JSON-schema object ({"type":"object","properties":...}).
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// CompletionRequest contains the parameters for a non-streamed LLM request.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse contains the result of a non-streamed LLM request.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// ChatRequest contains the parameters for a streamed, tool-enabled LLM turn.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Tools       []ToolDefinition
	MaxTokens   int
	Temperature float64
}

// EventKind identifies a stream event.
type EventKind string

const (
	EventTextChunk EventKind = "text_chunk"
	EventToolCalls EventKind = "tool_calls"
	EventError     EventKind = "error"
	EventCompleted EventKind = "completed"
)

// Error codes surfaced on EventError events.
const (
	ErrCodeTimeout            = "API_TIMEOUT"
	ErrCodeRateLimit          = "API_RATE_LIMIT"
	ErrCodeServiceUnavailable = "API_SERVICE_UNAVAILABLE"
	ErrCodeClientError        = "API_CLIENT_ERROR"
	ErrCodeUnknown            = "UNKNOWN_LLM_ERROR"
)

// StreamError carries a coded error from the model stream.
type StreamError struct {
	Code    string
	Message string
}

// StreamEvent is one event in the model's response stream. Exactly one of
// Text, ToolCalls, or Err is meaningful, selected by Kind; EventCompleted
// carries no payload and is always the final event of a healthy stream.
type StreamEvent struct {
	Kind      EventKind
	Text      string
	ToolCalls []ToolCall
	Err       *StreamError
}
