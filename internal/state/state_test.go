package state

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	got, err := store.Get(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Get on empty store: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing session, got %+v", got)
	}

	s := NewSessionState("conv-1")
	s.AddUserMessage("hello")
	s.AddAssistantMessage("hi there")
	s.SetFlag(FlagPendingOnboardingDecision, true)
	if err := store.Put(ctx, s); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err = store.Get(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected session after Put")
	}
	if len(got.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got.Messages))
	}
	if got.LastUserMessage() != "hello" {
		t.Errorf("LastUserMessage = %q", got.LastUserMessage())
	}
	if !got.Flag(FlagPendingOnboardingDecision) {
		t.Error("pending decision flag not persisted")
	}

	// Mutating the returned copy must not affect the stored session.
	got.AddUserMessage("mutated")
	again, err := store.Get(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(again.Messages) != 2 {
		t.Errorf("store shared memory with caller: %d messages", len(again.Messages))
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, NewSessionState("conv-2")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Delete(ctx, "conv-2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := store.Get(ctx, "conv-2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after delete, got %+v", got)
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(":memory:", zap.NewNop())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	s := NewSessionState("conv-sql")
	wf := NewWorkflowContext("onboarding")
	wf.Onboarding = &OnboardingData{Version: 1, QuestionIndex: 3}
	s.ActiveWorkflows[wf.ID] = wf
	if err := store.Put(ctx, s); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "conv-sql")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected session")
	}
	active := got.ActiveWorkflowByType("onboarding")
	if active == nil {
		t.Fatal("active onboarding workflow lost in round trip")
	}
	if active.Onboarding == nil || active.Onboarding.QuestionIndex != 3 {
		t.Errorf("onboarding data lost: %+v", active.Onboarding)
	}

	// Put again overwrites the existing row.
	got.AddUserMessage("second write")
	if err := store.Put(ctx, got); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	again, err := store.Get(ctx, "conv-sql")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(again.Messages) != 1 {
		t.Errorf("expected 1 message after overwrite, got %d", len(again.Messages))
	}
}

func TestEndWorkflow(t *testing.T) {
	s := NewSessionState("conv-3")
	wf := NewWorkflowContext("onboarding")
	s.ActiveWorkflows[wf.ID] = wf

	if ok := s.EndWorkflow("nope", WorkflowCompleted); ok {
		t.Error("EndWorkflow succeeded for unknown id")
	}
	if ok := s.EndWorkflow(wf.ID, WorkflowCompleted); !ok {
		t.Fatal("EndWorkflow failed for active workflow")
	}
	if len(s.ActiveWorkflows) != 0 {
		t.Errorf("workflow still active: %d", len(s.ActiveWorkflows))
	}
	if len(s.CompletedWorkflows) != 1 || s.CompletedWorkflows[0].Status != WorkflowCompleted {
		t.Errorf("completed list wrong: %+v", s.CompletedWorkflows)
	}
	if s.PrimaryActiveWorkflow() != nil {
		t.Error("PrimaryActiveWorkflow should be nil after completion")
	}
}

func TestClearChatKeepsWorkflowsAndMetrics(t *testing.T) {
	s := NewSessionState("conv-4")
	s.AddUserMessage("one")
	s.AddAssistantMessage("two")
	wf := NewWorkflowContext("onboarding")
	s.ActiveWorkflows[wf.ID] = wf
	s.Metrics.Append(SelectionRecord{Query: "a=1", SuccessRate: 1.0}, 10)

	s.ClearChat()

	if len(s.Messages) != 0 {
		t.Errorf("messages survived clear: %d", len(s.Messages))
	}
	if s.LastStatus != StatusCleared {
		t.Errorf("LastStatus = %q", s.LastStatus)
	}
	if len(s.ActiveWorkflows) != 1 {
		t.Error("active workflows should survive a chat clear")
	}
	if s.Metrics.TotalSelections != 1 {
		t.Error("metrics should survive a chat clear")
	}
}

func TestSelectionMetricsCap(t *testing.T) {
	var m SelectionMetrics
	for i := 0; i < 110; i++ {
		rate := 0.0
		if i%2 == 0 {
			rate = 1.0
		}
		m.Append(SelectionRecord{Query: "q", SuccessRate: rate}, 100)
	}
	if len(m.Records) != 100 {
		t.Errorf("records not capped: %d", len(m.Records))
	}
	if m.TotalSelections != 110 {
		t.Errorf("TotalSelections = %d", m.TotalSelections)
	}
	if m.SuccessfulSelections != 55 {
		t.Errorf("SuccessfulSelections = %d", m.SuccessfulSelections)
	}
}
