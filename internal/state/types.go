package state

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Last-interaction status codes recorded on a session at the end of a turn.
const (
	StatusProcessing         = "PROCESSING"
	StatusCompletedOK        = "COMPLETED_OK"
	StatusCompletedUnknown   = "COMPLETED_UNKNOWN"
	StatusMaxCyclesReached   = "MAX_CYCLES_REACHED"
	StatusErrorToolExecution = "ERROR_TOOL_EXECUTION"
	StatusCleared            = "CLEARED"
	StatusHistoryReset       = "HISTORY_RESET"

	// StatusErrorLLMPrefix is combined with a stream error code, e.g.
	// "ERROR_LLM_API_TIMEOUT".
	StatusErrorLLMPrefix = "ERROR_LLM_"
)

// Meta-flag keys used across turns.
const (
	FlagPendingOnboardingDecision = "pending_onboarding_decision"
	FlagPendingRestartConfirm     = "pending_onboarding_restart_confirmation"
)

// ToolCallRecord captures one tool invocation requested by the assistant.
type ToolCallRecord struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Message is a single conversation turn in the session history.
type Message struct {
	Role      string           `json:"role"` // "user", "assistant", "tool"
	Text      string           `json:"text,omitempty"`
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`
	// ToolCallID and ToolName are set on tool-result messages.
	ToolCallID string    `json:"tool_call_id,omitempty"`
	ToolName   string    `json:"tool_name,omitempty"`
	IsError    bool      `json:"is_error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// WorkflowStatus is the lifecycle state of a workflow context.
type WorkflowStatus string

const (
	WorkflowActive    WorkflowStatus = "active"
	WorkflowCompleted WorkflowStatus = "completed"
	WorkflowSkipped   WorkflowStatus = "skipped"
)

// HistoryEvent is one append-only entry in a workflow's event log.
type HistoryEvent struct {
	Type    string    `json:"type"`
	Message string    `json:"message"`
	Stage   string    `json:"stage,omitempty"`
	At      time.Time `json:"at"`
}

// OnboardingData is the versioned per-instance state of the onboarding
// workflow. Progression fields are explicit; answers live in a typed
// struct so a partially answered workflow serializes losslessly.
type OnboardingData struct {
	Version       int                `json:"version"`
	QuestionIndex int                `json:"question_index"`
	FollowUpKeys  []string           `json:"follow_up_keys,omitempty"`
	FollowUpIndex int                `json:"follow_up_index,omitempty"`
	InFollowUps   bool               `json:"in_follow_ups,omitempty"`
	Answers       OnboardingAnswers `json:"answers"`
	Answered      map[string]bool   `json:"answered,omitempty"` // question key -> a value was stored
}

// OnboardingAnswers holds the collected answers, one optional field per
// question key.
type OnboardingAnswers struct {
	PreferredName      string   `json:"preferred_name,omitempty"`
	PrimaryRole        string   `json:"primary_role,omitempty"`
	MainProjects       string   `json:"main_projects,omitempty"`
	ToolPreferences    []string `json:"tool_preferences,omitempty"`
	CommunicationStyle string   `json:"communication_style,omitempty"`
	Notifications      string   `json:"notifications,omitempty"`
	Credentials        string   `json:"credentials,omitempty"`
	GitHubToken        string   `json:"github_token,omitempty"`
	JiraEmail          string   `json:"jira_email,omitempty"`
	JiraToken          string   `json:"jira_token,omitempty"`
}

// WorkflowContext represents one instance of a guided multi-step dialogue.
// Workflow-specific state is a closed set of variants selected by Type;
// exactly one variant pointer is non-nil.
type WorkflowContext struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Status     WorkflowStatus  `json:"status"`
	Stage      string          `json:"stage"`
	Onboarding *OnboardingData `json:"onboarding,omitempty"`
	History    []HistoryEvent  `json:"history,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewWorkflowContext creates an active context for the given workflow type.
func NewWorkflowContext(workflowType string) *WorkflowContext {
	now := time.Now().UTC()
	return &WorkflowContext{
		ID:        fmt.Sprintf("wf_%s_%s", workflowType, uuid.NewString()[:8]),
		Type:      workflowType,
		Status:    WorkflowActive,
		Stage:     "initial",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddEvent appends an event to the workflow's history log.
func (w *WorkflowContext) AddEvent(eventType, message, stage string) {
	w.History = append(w.History, HistoryEvent{
		Type:    eventType,
		Message: message,
		Stage:   stage,
		At:      time.Now().UTC(),
	})
}

// Touch updates the modification timestamp.
func (w *WorkflowContext) Touch() {
	w.UpdatedAt = time.Now().UTC()
}

// SelectionRecord is one historical tool-selection observation.
type SelectionRecord struct {
	Query       string    `json:"query"` // normalized parameter signature
	Candidates  []string  `json:"candidates,omitempty"`
	Selected    []string  `json:"selected,omitempty"`
	Used        []string  `json:"used,omitempty"`
	SuccessRate float64   `json:"success_rate"`
	At          time.Time `json:"at"`
}

// SelectionMetrics aggregates tool-selection outcomes for one session.
// Records are a bounded feedback signal, never authoritative.
type SelectionMetrics struct {
	TotalSelections      int               `json:"total_selections"`
	SuccessfulSelections int               `json:"successful_selections"`
	Records              []SelectionRecord `json:"records,omitempty"`
}

// Append adds a record, evicting the oldest entries past limit.
func (m *SelectionMetrics) Append(rec SelectionRecord, limit int) {
	m.TotalSelections++
	if rec.SuccessRate >= 1.0 {
		m.SuccessfulSelections++
	}
	m.Records = append(m.Records, rec)
	if limit > 0 && len(m.Records) > limit {
		m.Records = m.Records[len(m.Records)-limit:]
	}
}

// SessionState is all serialized state for one conversation.
type SessionState struct {
	ID                 string                      `json:"id"`
	CreatedAt          time.Time                   `json:"created_at"`
	UpdatedAt          time.Time                   `json:"updated_at"`
	Messages           []Message                   `json:"messages,omitempty"`
	ActiveWorkflows    map[string]*WorkflowContext `json:"active_workflows,omitempty"`
	CompletedWorkflows []*WorkflowContext          `json:"completed_workflows,omitempty"`
	Metrics            SelectionMetrics            `json:"metrics"`
	// Streaming guards against two turns for the same session running the
	// tool-execution loop concurrently.
	Streaming  bool            `json:"streaming,omitempty"`
	LastStatus string          `json:"last_status,omitempty"`
	MetaFlags  map[string]bool `json:"meta_flags,omitempty"`
}

// NewSessionState creates an empty session for the given conversation ID.
func NewSessionState(id string) *SessionState {
	now := time.Now().UTC()
	return &SessionState{
		ID:              id,
		CreatedAt:       now,
		UpdatedAt:       now,
		ActiveWorkflows: map[string]*WorkflowContext{},
		MetaFlags:       map[string]bool{},
		LastStatus:      StatusProcessing,
	}
}

// AddUserMessage appends a user message to the history.
func (s *SessionState) AddUserMessage(text string) {
	s.Messages = append(s.Messages, Message{Role: "user", Text: text, Timestamp: time.Now().UTC()})
}

// AddAssistantMessage appends an assistant text message to the history.
func (s *SessionState) AddAssistantMessage(text string) {
	s.Messages = append(s.Messages, Message{Role: "assistant", Text: text, Timestamp: time.Now().UTC()})
}

// AddAssistantToolCalls appends an assistant message carrying tool-call
// requests, with any commentary text the model emitted alongside them.
func (s *SessionState) AddAssistantToolCalls(text string, calls []ToolCallRecord) {
	s.Messages = append(s.Messages, Message{Role: "assistant", Text: text, ToolCalls: calls, Timestamp: time.Now().UTC()})
}

// AddToolResult appends a tool-result message to the history.
func (s *SessionState) AddToolResult(callID, toolName, text string, isErr bool) {
	s.Messages = append(s.Messages, Message{
		Role:       "tool",
		Text:       text,
		ToolCallID: callID,
		ToolName:   toolName,
		IsError:    isErr,
		Timestamp:  time.Now().UTC(),
	})
}

// LastUserMessage returns the text of the most recent user message, or "".
func (s *SessionState) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == "user" {
			return s.Messages[i].Text
		}
	}
	return ""
}

// ActiveWorkflowByType returns the active workflow of the given type, or nil.
func (s *SessionState) ActiveWorkflowByType(workflowType string) *WorkflowContext {
	for _, wf := range s.ActiveWorkflows {
		if wf.Type == workflowType && wf.Status == WorkflowActive {
			return wf
		}
	}
	return nil
}

// PrimaryActiveWorkflow returns the most recently started active workflow,
// or nil when none is active. Workflows own the turn while active, so the
// orchestrator consults this before anything else.
func (s *SessionState) PrimaryActiveWorkflow() *WorkflowContext {
	var latest *WorkflowContext
	for _, wf := range s.ActiveWorkflows {
		if wf.Status != WorkflowActive {
			continue
		}
		if latest == nil || wf.CreatedAt.After(latest.CreatedAt) {
			latest = wf
		}
	}
	return latest
}

// EndWorkflow moves an active workflow to the completed list with the given
// terminal status. Returns false if the workflow is not active.
func (s *SessionState) EndWorkflow(workflowID string, status WorkflowStatus) bool {
	wf, ok := s.ActiveWorkflows[workflowID]
	if !ok {
		return false
	}
	delete(s.ActiveWorkflows, workflowID)
	wf.Status = status
	wf.Touch()
	wf.AddEvent("WORKFLOW_END", fmt.Sprintf("workflow ended with status %s", status), wf.Stage)
	s.CompletedWorkflows = append(s.CompletedWorkflows, wf)
	return true
}

// ClearChat erases the message history but keeps workflows, metrics, and
// meta flags.
func (s *SessionState) ClearChat() {
	s.Messages = nil
	s.LastStatus = StatusCleared
	s.UpdatedAt = time.Now().UTC()
}

// Flag reports whether the given meta flag is set.
func (s *SessionState) Flag(name string) bool {
	return s.MetaFlags[name]
}

// SetFlag sets or clears a meta flag.
func (s *SessionState) SetFlag(name string, value bool) {
	if s.MetaFlags == nil {
		s.MetaFlags = map[string]bool{}
	}
	if value {
		s.MetaFlags[name] = true
	} else {
		delete(s.MetaFlags, name)
	}
}
