package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestFactoryUnsupportedProvider(t *testing.T) {
	if _, err := NewProvider("watson", "some-model"); err == nil {
		t.Error("expected an error for an unsupported provider type")
	}
}

func TestFactoryRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewProvider("openai", "gpt-4o"); err == nil {
		t.Error("expected an error when OPENAI_API_KEY is unset")
	}
}

func TestFactoryBaseURLOverride(t *testing.T) {
	var hit bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hit = true
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cmpl-1","object":"chat.completion","model":"gpt-4o",`+
			`"choices":[{"index":0,"message":{"role":"assistant","content":"pong"},"finish_reason":"stop"}],`+
			`"usage":{"prompt_tokens":1,"completion_tokens":1}}`)
	}))
	defer srv.Close()
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", srv.URL+"/v1")

	p, err := NewProvider("openai", "gpt-4o")
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "ping"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !hit {
		t.Fatal("request did not reach the overridden endpoint")
	}
	if resp.Content != "pong" {
		t.Errorf("content = %q, want pong", resp.Content)
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", context.DeadlineExceeded, ErrCodeTimeout},
		{"rate limit", &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, ErrCodeRateLimit},
		{"server error", &openai.APIError{HTTPStatusCode: 503, Message: "unavailable"}, ErrCodeServiceUnavailable},
		{"client error", &openai.APIError{HTTPStatusCode: 400, Message: "bad request"}, ErrCodeClientError},
		{"unknown", errors.New("connection reset"), ErrCodeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyError(tc.err)
			if got.Code != tc.want {
				t.Errorf("code = %s, want %s", got.Code, tc.want)
			}
			if got.Message == "" {
				t.Error("message should carry the underlying error text")
			}
		})
	}
}

func TestErrorStreamYieldsOnce(t *testing.T) {
	s := &errorStream{event: StreamEvent{Kind: EventError, Err: &StreamError{Code: ErrCodeUnknown}}}

	evt, ok := s.Next()
	if !ok || evt.Kind != EventError {
		t.Fatalf("first Next = (%+v, %v), want one error event", evt, ok)
	}
	if _, ok := s.Next(); ok {
		t.Error("stream should be exhausted after the error event")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestToOpenAIMessages(t *testing.T) {
	msgs := []Message{
		{Role: RoleSystem, Content: "be helpful"},
		{Role: RoleUser, Content: "list my repos"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{
			ID:        "call-1",
			Name:      "github",
			Arguments: map[string]any{"owner": "acme"},
		}}},
		{Role: RoleTool, Content: `["a","b"]`, ToolCallID: "call-1", Name: "github_list_repositories"},
	}

	out := toOpenAIMessages(msgs)
	if len(out) != 4 {
		t.Fatalf("want 4 messages, got %d", len(out))
	}
	if out[0].Role != "system" || out[1].Role != "user" {
		t.Errorf("roles not preserved: %s, %s", out[0].Role, out[1].Role)
	}

	assistant := out[2]
	if len(assistant.ToolCalls) != 1 {
		t.Fatalf("want 1 tool call, got %d", len(assistant.ToolCalls))
	}
	tc := assistant.ToolCalls[0]
	if tc.ID != "call-1" || tc.Function.Name != "github" {
		t.Errorf("tool call not mapped: %+v", tc)
	}
	if tc.Function.Arguments != `{"owner":"acme"}` {
		t.Errorf("arguments not marshalled: %s", tc.Function.Arguments)
	}

	tool := out[3]
	if tool.Role != "tool" || tool.ToolCallID != "call-1" || tool.Name != "github_list_repositories" {
		t.Errorf("tool result not mapped: %+v", tool)
	}
}
