package intent

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/auglet/auglet/internal/llm"
)

type mockProvider struct {
	reply  string
	err    error
	called int
}

func (m *mockProvider) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.called++
	if m.err != nil {
		return nil, m.err
	}
	return &llm.CompletionResponse{Content: m.reply}, nil
}

func (m *mockProvider) StreamChat(_ context.Context, _ llm.ChatRequest) (llm.Stream, error) {
	return nil, errors.New("not implemented")
}

func (m *mockProvider) Name() string { return "mock" }

func newClassifier(p llm.Provider) *Classifier {
	return NewClassifier(p, "test-model", zap.NewNop())
}

func TestFastPathsSkipLLM(t *testing.T) {
	mock := &mockProvider{err: errors.New("must not be called")}
	c := newClassifier(mock)

	cases := []struct {
		text string
		want Intent
	}{
		{"help", CommandHelp},
		{"Help!", CommandHelp},
		{"what can you do", CommandHelp},
		{"reset chat", CommandResetChat},
		{"Start over", CommandResetChat},
		{"clear history", CommandResetChat},
	}
	for _, tc := range cases {
		got := c.Classify(context.Background(), tc.text, Context{})
		if got.Intent != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.text, got.Intent, tc.want)
		}
		if got.Confidence < 0.95 {
			t.Errorf("Classify(%q) confidence = %v, want >= 0.95", tc.text, got.Confidence)
		}
	}
	if mock.called != 0 {
		t.Errorf("LLM invoked %d times on fast-path inputs", mock.called)
	}
}

func TestActiveWorkflowShortCircuit(t *testing.T) {
	mock := &mockProvider{err: errors.New("must not be called")}
	c := newClassifier(mock)
	ic := Context{WorkflowActive: true, ActiveWorkflowTypes: []string{"onboarding"}}

	if got := c.Classify(context.Background(), "My name is Alex", ic); got.Intent != WorkflowContinue {
		t.Errorf("mid-workflow answer = %s, want workflow_continue", got.Intent)
	}
	if got := c.Classify(context.Background(), "cancel", ic); got.Intent != WorkflowCancel {
		t.Errorf("cancel = %s, want workflow_cancel", got.Intent)
	}
	if got := c.Classify(context.Background(), "skip onboarding", ic); got.Intent != WorkflowCancel {
		t.Errorf("skip onboarding = %s, want workflow_cancel", got.Intent)
	}
	if got := c.Classify(context.Background(), "hold on", ic); got.Intent != WorkflowPause {
		t.Errorf("hold on = %s, want workflow_pause", got.Intent)
	}
	// Help still wins even mid-workflow.
	if got := c.Classify(context.Background(), "help", ic); got.Intent != CommandHelp {
		t.Errorf("help mid-workflow = %s, want command_help", got.Intent)
	}
	if mock.called != 0 {
		t.Errorf("LLM invoked %d times with a workflow active", mock.called)
	}
}

func TestPendingDecisionPhrases(t *testing.T) {
	mock := &mockProvider{err: errors.New("must not be called")}
	c := newClassifier(mock)
	ic := Context{PendingDecision: true}

	cases := []struct {
		text string
		want Intent
	}{
		{"yes", OnboardingAccept},
		{"Sure!", OnboardingAccept},
		{"let's do it", OnboardingAccept},
		{"no thanks", OnboardingDecline},
		{"not interested", OnboardingDecline},
		{"maybe later", OnboardingPostpone},
		{"not now", OnboardingPostpone},
		{"why do you need this?", OnboardingQuestion},
		{"what is onboarding", OnboardingQuestion},
	}
	for _, tc := range cases {
		got := c.Classify(context.Background(), tc.text, ic)
		if got.Intent != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.text, got.Intent, tc.want)
		}
	}
	if mock.called != 0 {
		t.Errorf("LLM invoked %d times on pending-decision phrases", mock.called)
	}
}

func TestCommandRegexes(t *testing.T) {
	mock := &mockProvider{err: errors.New("must not be called")}
	c := newClassifier(mock)

	if got := c.Classify(context.Background(), "start the onboarding", Context{}); got.Intent != OnboardingAccept {
		t.Errorf("start onboarding = %s", got.Intent)
	}
	if got := c.Classify(context.Background(), "what is my role", Context{}); got.Intent != CommandPermissions {
		t.Errorf("role query = %s", got.Intent)
	}
	if got := c.Classify(context.Background(), "show my preferences", Context{}); got.Intent != CommandPreferences {
		t.Errorf("preferences query = %s", got.Intent)
	}
}

func TestLLMFallbackParsing(t *testing.T) {
	cases := []struct {
		reply      string
		want       Intent
		confidence float64
	}{
		{"GENERAL_TASK|0.85", GeneralTask, 0.85},
		{"greeting|0.9", Greeting, 0.9},
		{"THANKS", Thanks, 0.8},
		{"GENERAL_QUESTION|2.5", GeneralQuestion, 1.0},
		{"SOMETHING_ELSE|0.9", Unclear, 0.3},
		{"I think the user wants help", Unclear, 0.3},
		{"", Unclear, 0.3},
	}
	for _, tc := range cases {
		mock := &mockProvider{reply: tc.reply}
		c := newClassifier(mock)
		got := c.Classify(context.Background(), "please summarize the open tickets", Context{})
		if got.Intent != tc.want {
			t.Errorf("reply %q: intent = %s, want %s", tc.reply, got.Intent, tc.want)
		}
		if got.Confidence != tc.confidence {
			t.Errorf("reply %q: confidence = %v, want %v", tc.reply, got.Confidence, tc.confidence)
		}
		if mock.called != 1 {
			t.Errorf("reply %q: LLM called %d times", tc.reply, mock.called)
		}
	}
}

func TestLLMErrorDegradesToUnclear(t *testing.T) {
	mock := &mockProvider{err: errors.New("connection refused")}
	c := newClassifier(mock)
	got := c.Classify(context.Background(), "do something ambiguous", Context{})
	if got.Intent != Unclear {
		t.Errorf("intent = %s, want unclear", got.Intent)
	}
	if got.Confidence != 0.1 {
		t.Errorf("confidence = %v, want 0.1", got.Confidence)
	}
}
