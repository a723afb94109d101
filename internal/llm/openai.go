package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider using the OpenAI Chat Completions API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider. A non-empty baseURL
// points the client at an OpenAI-compatible endpoint instead of the default.
func NewOpenAIProvider(apiKey string, model string, baseURL string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	apiReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toOpenAIMessages(req.Messages),
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
	}

	if req.JSONMode {
		apiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return nil, err
	}

	var content, finishReason string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		finishReason = string(resp.Choices[0].FinishReason)
	}

	return &CompletionResponse{
		Content:      content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
		FinishReason: finishReason,
	}, nil
}

func (p *OpenAIProvider) StreamChat(ctx context.Context, req ChatRequest) (Stream, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	apiReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: float32(req.Temperature),
	}
	if req.MaxTokens > 0 {
		apiReq.MaxTokens = req.MaxTokens
	}
	for _, tool := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	raw, err := p.client.CreateChatCompletionStream(ctx, apiReq)
	if err != nil {
		// Opening the stream can fail before any event is produced; surface
		// the failure in-band so callers handle one error path.
		return &errorStream{event: StreamEvent{Kind: EventError, Err: classifyError(err)}}, nil
	}

	return &openAIStream{raw: raw, pending: map[int]*partialToolCall{}}, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		m := openai.ChatCompletionMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			Name:       msg.Name,
			ToolCallID: msg.ToolCallID,
		}
		for _, tc := range msg.ToolCalls {
			args, err := json.Marshal(tc.Arguments)
			if err != nil {
				args = []byte("{}")
			}
			m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(args),
				},
			})
		}
		out = append(out, m)
	}
	return out
}

// partialToolCall accumulates streamed tool-call fragments by index.
type partialToolCall struct {
	id   string
	name string
	args []byte
}

// openAIStream adapts an openai.ChatCompletionStream to the Stream interface.
type openAIStream struct {
	raw     *openai.ChatCompletionStream
	pending map[int]*partialToolCall
	order   []int
	queued  []StreamEvent
	done    bool
}

func (s *openAIStream) Next() (StreamEvent, bool) {
	for {
		if len(s.queued) > 0 {
			evt := s.queued[0]
			s.queued = s.queued[1:]
			return evt, true
		}
		if s.done {
			return StreamEvent{}, false
		}

		resp, err := s.raw.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			s.flushToolCalls()
			s.queued = append(s.queued, StreamEvent{Kind: EventCompleted})
			continue
		}
		if err != nil {
			s.done = true
			return StreamEvent{Kind: EventError, Err: classifyError(err)}, true
		}
		if len(resp.Choices) == 0 {
			continue
		}

		choice := resp.Choices[0]
		if choice.Delta.Content != "" {
			s.queued = append(s.queued, StreamEvent{Kind: EventTextChunk, Text: choice.Delta.Content})
		}
		for _, tc := range choice.Delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			part, ok := s.pending[idx]
			if !ok {
				part = &partialToolCall{}
				s.pending[idx] = part
				s.order = append(s.order, idx)
			}
			if tc.ID != "" {
				part.id = tc.ID
			}
			if tc.Function.Name != "" {
				part.name = tc.Function.Name
			}
			part.args = append(part.args, tc.Function.Arguments...)
		}
		if choice.FinishReason == openai.FinishReasonToolCalls {
			s.flushToolCalls()
		}
	}
}

// flushToolCalls converts accumulated fragments into a single tool_calls event.
func (s *openAIStream) flushToolCalls() {
	if len(s.order) == 0 {
		return
	}
	calls := make([]ToolCall, 0, len(s.order))
	for _, idx := range s.order {
		part := s.pending[idx]
		var args map[string]any
		if err := json.Unmarshal(part.args, &args); err != nil || args == nil {
			args = map[string]any{}
		}
		calls = append(calls, ToolCall{ID: part.id, Name: part.name, Arguments: args})
	}
	s.pending = map[int]*partialToolCall{}
	s.order = nil
	s.queued = append(s.queued, StreamEvent{Kind: EventToolCalls, ToolCalls: calls})
}

func (s *openAIStream) Close() error {
	if s.raw != nil {
		return s.raw.Close()
	}
	return nil
}

// errorStream yields a single error event.
type errorStream struct {
	event StreamEvent
	spent bool
}

func (s *errorStream) Next() (StreamEvent, bool) {
	if s.spent {
		return StreamEvent{}, false
	}
	s.spent = true
	return s.event, true
}

func (s *errorStream) Close() error { return nil }

// classifyError maps transport failures onto the coded error taxonomy.
func classifyError(err error) *StreamError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &StreamError{Code: ErrCodeTimeout, Message: err.Error()}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return &StreamError{Code: ErrCodeRateLimit, Message: apiErr.Message}
		case apiErr.HTTPStatusCode >= 500:
			return &StreamError{Code: ErrCodeServiceUnavailable, Message: apiErr.Message}
		case apiErr.HTTPStatusCode >= 400:
			return &StreamError{Code: ErrCodeClientError, Message: apiErr.Message}
		}
	}
	return &StreamError{Code: ErrCodeUnknown, Message: err.Error()}
}
