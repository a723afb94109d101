package workflow

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/auglet/auglet/internal/profile"
	"github.com/auglet/auglet/internal/state"
)

func newTestManager() (*Manager, *state.SessionState, *profile.UserProfile) {
	m := NewManager(nil, "test-model", zap.NewNop())
	return m, state.NewSessionState("conv-1"), profile.New("user-1", "Dana")
}

func TestStartIsIdempotentPerType(t *testing.T) {
	m, sess, prof := newTestManager()

	first, err := m.Start(sess, prof, TypeOnboarding)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(sess.ActiveWorkflows) != 1 {
		t.Fatalf("active workflows = %d", len(sess.ActiveWorkflows))
	}
	existing := sess.PrimaryActiveWorkflow()

	second, err := m.Start(sess, prof, TypeOnboarding)
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if len(sess.ActiveWorkflows) != 1 {
		t.Errorf("second Start created a new context: %d active", len(sess.ActiveWorkflows))
	}
	if sess.PrimaryActiveWorkflow() != existing {
		t.Error("existing context replaced")
	}
	if !strings.Contains(second.Message, "call you") {
		t.Errorf("resume did not re-ask current question: %q", second.Message)
	}
	_ = first
}

func TestStartUnknownTypeFails(t *testing.T) {
	m, sess, prof := newTestManager()
	if _, err := m.Start(sess, prof, "mystery"); err == nil {
		t.Fatal("expected error for unknown workflow type")
	}
	if len(sess.ActiveWorkflows) != 0 {
		t.Error("failed start left an active context behind")
	}
}

func TestHandleTurnWithoutActiveWorkflow(t *testing.T) {
	m, sess, prof := newTestManager()
	_, handled, err := m.HandleTurn(context.Background(), sess, prof, "hello")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if handled {
		t.Error("turn handled with no workflow active")
	}
}

func TestHandleTurnDelegatesAndCompletes(t *testing.T) {
	m, sess, prof := newTestManager()
	if _, err := m.Start(sess, prof, TypeOnboarding); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ctx := context.Background()

	for _, input := range []string{"Alex", "1", "skip", "1", "2", "yes"} {
		reply, handled, err := m.HandleTurn(ctx, sess, prof, input)
		if err != nil || !handled {
			t.Fatalf("step %q: handled=%v err=%v", input, handled, err)
		}
		if reply.Retry {
			t.Fatalf("step %q rejected: %q", input, reply.Message)
		}
	}

	reply, handled, err := m.HandleTurn(ctx, sess, prof, "no")
	if err != nil || !handled {
		t.Fatalf("final turn: handled=%v err=%v", handled, err)
	}
	if !reply.Completed {
		t.Fatalf("expected completion, got %q", reply.Message)
	}
	if len(sess.ActiveWorkflows) != 0 {
		t.Error("completed workflow still active")
	}
	if len(sess.CompletedWorkflows) != 1 || sess.CompletedWorkflows[0].Status != state.WorkflowCompleted {
		t.Errorf("completed list: %+v", sess.CompletedWorkflows)
	}
}

func TestCancelSkipsActiveWorkflows(t *testing.T) {
	m, sess, prof := newTestManager()
	if _, err := m.Start(sess, prof, TypeOnboarding); err != nil {
		t.Fatalf("Start: %v", err)
	}

	reply := m.Cancel(sess, prof)
	if !strings.Contains(reply.Message, "onboarding") {
		t.Errorf("cancel message: %q", reply.Message)
	}
	if len(sess.ActiveWorkflows) != 0 {
		t.Error("workflow still active after cancel")
	}
	if len(sess.CompletedWorkflows) != 1 || sess.CompletedWorkflows[0].Status != state.WorkflowSkipped {
		t.Errorf("completed list: %+v", sess.CompletedWorkflows)
	}
	if prof.Onboarding != profile.OnboardingDeclined {
		t.Errorf("profile onboarding = %s", prof.Onboarding)
	}

	empty := m.Cancel(sess, prof)
	if !strings.Contains(empty.Message, "no active workflows") {
		t.Errorf("empty cancel message: %q", empty.Message)
	}
}
