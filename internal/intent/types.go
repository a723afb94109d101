package intent

// Intent is a closed-set classification of what the user wants this turn.
type Intent string

const (
	OnboardingAccept   Intent = "onboarding_accept"
	OnboardingDecline  Intent = "onboarding_decline"
	OnboardingPostpone Intent = "onboarding_postpone"
	OnboardingQuestion Intent = "onboarding_question"
	OnboardingAnswer   Intent = "onboarding_answer"

	CommandHelp        Intent = "command_help"
	CommandPermissions Intent = "command_permissions"
	CommandPreferences Intent = "command_preferences"
	CommandResetChat   Intent = "command_reset_chat"
	CommandAdmin       Intent = "command_admin"

	WorkflowContinue Intent = "workflow_continue"
	WorkflowCancel   Intent = "workflow_cancel"
	WorkflowPause    Intent = "workflow_pause"

	GeneralQuestion Intent = "general_question"
	GeneralTask     Intent = "general_task"
	Greeting        Intent = "greeting"
	Thanks          Intent = "thanks"
	Unclear         Intent = "unclear"
)

// allIntents maps the wire label (upper-case) back to the enumeration.
var allIntents = map[string]Intent{}

func init() {
	for _, in := range []Intent{
		OnboardingAccept, OnboardingDecline, OnboardingPostpone,
		OnboardingQuestion, OnboardingAnswer,
		CommandHelp, CommandPermissions, CommandPreferences,
		CommandResetChat, CommandAdmin,
		WorkflowContinue, WorkflowCancel, WorkflowPause,
		GeneralQuestion, GeneralTask, Greeting, Thanks, Unclear,
	} {
		allIntents[string(in)] = in
	}
}

// Context carries the session flags that shape classification.
type Context struct {
	// WorkflowActive is true when any guided dialogue is currently active.
	WorkflowActive bool
	// ActiveWorkflowTypes lists the types of the active workflows.
	ActiveWorkflowTypes []string
	// PendingDecision is true when the user owes a yes/no reply to a
	// proactive prompt.
	PendingDecision bool
	// UserRole is the user's assigned role, if known.
	UserRole string
}

// Result is a classified intent with its confidence in [0,1].
type Result struct {
	Intent     Intent
	Confidence float64
}
