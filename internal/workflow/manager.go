package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/auglet/auglet/internal/llm"
	"github.com/auglet/auglet/internal/profile"
	"github.com/auglet/auglet/internal/state"
)

// Manager dispatches turns to active workflows and enforces the one-active
// instance-per-type invariant. It knows the closed set of workflow types but
// nothing about their internals.
type Manager struct {
	provider llm.Provider
	model    string
	logger   *zap.Logger
}

// NewManager builds a workflow manager. The provider is handed to workflows
// that use model-assisted answer interpretation; it may be nil.
func NewManager(provider llm.Provider, model string, logger *zap.Logger) *Manager {
	return &Manager{provider: provider, model: model, logger: logger.Named("workflow")}
}

// instantiate binds a workflow implementation to a stored context.
func (m *Manager) instantiate(wfCtx *state.WorkflowContext, prof *profile.UserProfile) (Workflow, error) {
	switch wfCtx.Type {
	case TypeOnboarding:
		return NewOnboarding(wfCtx, prof, m.provider, m.model, m.logger), nil
	default:
		return nil, fmt.Errorf("unknown workflow type %q", wfCtx.Type)
	}
}

// Start begins a workflow of the given type. If one is already active for
// the session, the existing context is kept untouched and its current
// question is re-asked.
func (m *Manager) Start(sess *state.SessionState, prof *profile.UserProfile, workflowType string) (Reply, error) {
	if existing := sess.ActiveWorkflowByType(workflowType); existing != nil {
		wf, err := m.instantiate(existing, prof)
		if err != nil {
			return Reply{}, err
		}
		m.logger.Info("workflow already active, resuming",
			zap.String("type", workflowType), zap.String("id", existing.ID))
		return wf.Resume(), nil
	}

	wfCtx := state.NewWorkflowContext(workflowType)
	wf, err := m.instantiate(wfCtx, prof)
	if err != nil {
		return Reply{}, err
	}
	sess.ActiveWorkflows[wfCtx.ID] = wfCtx
	m.logger.Info("workflow started", zap.String("type", workflowType), zap.String("id", wfCtx.ID))
	return wf.Start(), nil
}

// HandleTurn delegates the user input to the most recently started active
// workflow. The second return value is false when no workflow is active and
// the turn should be processed normally.
func (m *Manager) HandleTurn(ctx context.Context, sess *state.SessionState, prof *profile.UserProfile, input string) (Reply, bool, error) {
	wfCtx := sess.PrimaryActiveWorkflow()
	if wfCtx == nil {
		return Reply{}, false, nil
	}

	wf, err := m.instantiate(wfCtx, prof)
	if err != nil {
		return Reply{}, false, err
	}

	reply, err := wf.HandleResponse(ctx, input)
	if err != nil {
		// Abort with the partial state intact so nothing collected so far
		// is lost.
		m.logger.Error("workflow step failed, aborting",
			zap.String("type", wfCtx.Type), zap.String("id", wfCtx.ID), zap.Error(err))
		sess.EndWorkflow(wfCtx.ID, state.WorkflowSkipped)
		return Reply{
			Message:   "Something went wrong while processing that, so I've stopped the " + wfCtx.Type + " for now. Everything you already answered is saved.",
			Completed: true,
			Skipped:   true,
		}, true, nil
	}

	if reply.Completed {
		status := state.WorkflowCompleted
		if reply.Skipped {
			status = state.WorkflowSkipped
		}
		sess.EndWorkflow(wfCtx.ID, status)
	}
	return reply, true, nil
}

// Cancel skips every active workflow for the session.
func (m *Manager) Cancel(sess *state.SessionState, prof *profile.UserProfile) Reply {
	var cancelled []string
	for id, wfCtx := range sess.ActiveWorkflows {
		if wfCtx.Status != state.WorkflowActive {
			continue
		}
		if wf, err := m.instantiate(wfCtx, prof); err == nil {
			wf.Skip()
		}
		sess.EndWorkflow(id, state.WorkflowSkipped)
		cancelled = append(cancelled, wfCtx.Type)
	}
	if len(cancelled) == 0 {
		return Reply{Message: "There are no active workflows to cancel. What would you like to do?"}
	}
	return Reply{
		Message:   fmt.Sprintf("I've cancelled the following workflows: %s. How can I help you now?", strings.Join(cancelled, ", ")),
		Completed: true,
		Skipped:   true,
	}
}
