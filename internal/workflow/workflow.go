package workflow

import "context"

// Reply is what a workflow step hands back to the orchestrator for the user.
type Reply struct {
	Message string
	// Completed is true when the workflow reached its terminal state this step.
	Completed bool
	// Skipped is true when the workflow was abandoned rather than finished.
	Skipped bool
	// Retry is true when the input failed validation and the same question
	// was re-asked.
	Retry bool
}

// Workflow is one guided multi-turn dialogue. Implementations form a closed
// set selected by the type tag stored in the workflow context.
type Workflow interface {
	// Type returns the workflow type tag, e.g. "onboarding".
	Type() string
	// Start produces the opening prompt.
	Start() Reply
	// Resume re-asks the current question without advancing.
	Resume() Reply
	// HandleResponse consumes one user input and returns the next prompt
	// or the completion message.
	HandleResponse(ctx context.Context, input string) (Reply, error)
	// IsCompleted reports whether the workflow reached a terminal state.
	IsCompleted() bool
	// Skip abandons the workflow, keeping whatever was collected so far.
	Skip() Reply
}
