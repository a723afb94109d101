package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/auglet/auglet/internal/intent"
	"github.com/auglet/auglet/internal/llm"
	"github.com/auglet/auglet/internal/profile"
	"github.com/auglet/auglet/internal/state"
	"github.com/auglet/auglet/internal/workflow"
)

// handleIntent runs the dedicated handler for an intent, if one exists.
// The second return value is false when the intent falls through to the
// general task loop.
func (o *Orchestrator) handleIntent(ctx context.Context, in intent.Intent, sess *state.SessionState, prof *profile.UserProfile) ([]Message, bool) {
	switch in {
	case intent.CommandHelp:
		return o.helpMessages(sess, prof), true
	case intent.CommandResetChat:
		return o.resetChat(sess), true
	case intent.CommandPermissions:
		return o.permissionsSummary(sess, prof), true
	case intent.CommandPreferences:
		return o.preferencesSummary(sess, prof), true
	case intent.OnboardingAccept:
		return o.acceptOnboarding(sess, prof), true
	case intent.OnboardingDecline:
		return o.declineOnboarding(sess, prof), true
	case intent.OnboardingPostpone:
		return o.postponeOnboarding(sess, prof), true
	case intent.OnboardingQuestion:
		return o.explainOnboarding(sess), true
	case intent.WorkflowCancel:
		reply := o.workflows.Cancel(sess, prof)
		sess.LastStatus = state.StatusCompletedOK
		return []Message{text(reply.Message)}, true
	case intent.Greeting:
		return o.smallTalk(ctx, sess, prof,
			"The user greeted you. Greet them back warmly and offer to help.",
			greetingFallback(prof)), true
	case intent.Thanks:
		return o.smallTalk(ctx, sess, prof,
			"The user thanked you. Acknowledge it briefly and offer further help.",
			"You're welcome! Anything else I can help with?"), true
	case intent.CommandAdmin:
		sess.LastStatus = state.StatusCompletedOK
		return []Message{text("Administrative actions aren't available in this chat. An admin can manage roles and access from the server side.")}, true
	default:
		return nil, false
	}
}

func (o *Orchestrator) helpMessages(sess *state.SessionState, prof *profile.UserProfile) []Message {
	sess.LastStatus = state.StatusCompletedOK

	var b strings.Builder
	fmt.Fprintf(&b, "Here's what I can do:\n\n")
	b.WriteString("• Answer questions and work through tasks with my tools\n")
	services := o.registry.Services()
	if len(services) > 0 {
		names := make([]string, 0, len(services))
		for svc := range services {
			names = append(names, svc)
		}
		fmt.Fprintf(&b, "• Use these services on your behalf: %s\n", strings.Join(sortedCopy(names), ", "))
	}
	b.WriteString("• `my preferences` shows and updates your settings\n")
	b.WriteString("• `my role` shows your current access level\n")
	b.WriteString("• `reset chat` clears our conversation history\n")

	switch prof.Onboarding {
	case profile.OnboardingNotStarted, profile.OnboardingPostponed:
		b.WriteString("• `start onboarding` personalizes how I work for you\n")
	case profile.OnboardingDeclined:
		b.WriteString("• `start onboarding` is available anytime if you change your mind\n")
	}
	if sess.PrimaryActiveWorkflow() != nil {
		b.WriteString("\nWe're in the middle of a guided setup; say `cancel` to stop it or keep answering to continue.")
	}
	return []Message{text(b.String())}
}

// resetChat erases the message history but keeps workflows, metrics, and the
// user profile.
func (o *Orchestrator) resetChat(sess *state.SessionState) []Message {
	sess.ClearChat()
	return []Message{text("Done, I've cleared our conversation history. Your profile and preferences are untouched.")}
}

func (o *Orchestrator) permissionsSummary(sess *state.SessionState, prof *profile.UserProfile) []Message {
	sess.LastStatus = state.StatusCompletedOK
	role := string(prof.Role)
	if prof.Role == profile.RoleUnknown {
		role = "not assigned yet"
	}
	msg := fmt.Sprintf("Your current access level is **%s**.", role)
	if prof.RoleDetail != "" {
		msg += fmt.Sprintf(" You described your role as '%s'.", prof.RoleDetail)
	}
	if prof.Role == profile.RoleUnknown {
		msg += " Completing onboarding helps me suggest the right one."
	}
	return []Message{text(msg)}
}

func (o *Orchestrator) preferencesSummary(sess *state.SessionState, prof *profile.UserProfile) []Message {
	sess.LastStatus = state.StatusCompletedOK
	p := prof.Preferences

	if p.PreferredName == "" && p.CommunicationStyle == "" && len(p.Tools) == 0 && p.MainProjects == "" {
		return []Message{text("I don't have any preferences stored for you yet. Say `start onboarding` and I'll set them up with you.")}
	}

	var b strings.Builder
	b.WriteString("Here's what I have for you:\n\n")
	if p.PreferredName != "" {
		fmt.Fprintf(&b, "• Preferred name: %s\n", p.PreferredName)
	}
	if prof.RoleDetail != "" {
		fmt.Fprintf(&b, "• Role: %s\n", prof.RoleDetail)
	}
	if p.MainProjects != "" {
		fmt.Fprintf(&b, "• Main projects: %s\n", p.MainProjects)
	}
	if len(p.Tools) > 0 {
		fmt.Fprintf(&b, "• Preferred tools: %s\n", strings.Join(p.Tools, ", "))
	}
	if p.CommunicationStyle != "" {
		fmt.Fprintf(&b, "• Communication style: %s\n", p.CommunicationStyle)
	}
	notif := "off"
	if p.Notifications {
		notif = "on"
	}
	fmt.Fprintf(&b, "• Notifications: %s\n", notif)
	b.WriteString("\nAsk me to change any of these, or say `restart onboarding` to redo the whole setup.")
	return []Message{text(b.String())}
}

// acceptOnboarding starts the workflow, or asks for confirmation first when
// the user already completed it.
func (o *Orchestrator) acceptOnboarding(sess *state.SessionState, prof *profile.UserProfile) []Message {
	sess.SetFlag(state.FlagPendingOnboardingDecision, false)

	if prof.Onboarding == profile.OnboardingCompleted {
		sess.SetFlag(state.FlagPendingRestartConfirm, true)
		sess.LastStatus = state.StatusCompletedOK
		return []Message{text("You've already completed onboarding. Redoing it will replace your current preferences with whatever you answer this time. Redo it? (yes/no)")}
	}

	reply, err := o.workflows.Start(sess, prof, workflow.TypeOnboarding)
	if err != nil {
		o.logger.Error("starting onboarding failed")
		sess.LastStatus = state.StatusErrorToolExecution
		return []Message{text("I couldn't start onboarding just now. Please try again in a moment.")}
	}
	sess.LastStatus = state.StatusCompletedOK
	return []Message{text(reply.Message)}
}

func (o *Orchestrator) handleRestartConfirmation(sess *state.SessionState, prof *profile.UserProfile, input string) []Message {
	sess.SetFlag(state.FlagPendingRestartConfirm, false)
	lower := strings.ToLower(strings.TrimSpace(input))
	switch lower {
	case "yes", "y", "yeah", "sure", "ok", "okay":
		reply, err := o.workflows.Start(sess, prof, workflow.TypeOnboarding)
		if err != nil {
			sess.LastStatus = state.StatusErrorToolExecution
			return []Message{text("I couldn't restart onboarding just now. Please try again in a moment.")}
		}
		sess.LastStatus = state.StatusCompletedOK
		return []Message{text("Okay, let's run through it again.\n\n" + reply.Message)}
	default:
		sess.LastStatus = state.StatusCompletedOK
		return []Message{text("No problem, I'll keep your current preferences.")}
	}
}

func (o *Orchestrator) declineOnboarding(sess *state.SessionState, prof *profile.UserProfile) []Message {
	sess.SetFlag(state.FlagPendingOnboardingDecision, false)
	prof.Onboarding = profile.OnboardingDeclined
	sess.LastStatus = state.StatusCompletedOK
	return []Message{text("Understood, I won't bring it up again. You can say `start onboarding` anytime if you change your mind. How can I help?")}
}

func (o *Orchestrator) postponeOnboarding(sess *state.SessionState, prof *profile.UserProfile) []Message {
	sess.SetFlag(state.FlagPendingOnboardingDecision, false)
	prof.Onboarding = profile.OnboardingPostponed
	sess.LastStatus = state.StatusCompletedOK
	return []Message{text("Sure, we can do it later. Say `start onboarding` whenever you have a couple of minutes. What can I do for you now?")}
}

func (o *Orchestrator) explainOnboarding(sess *state.SessionState) []Message {
	sess.LastStatus = state.StatusCompletedOK
	return []Message{text("Onboarding is a short set of questions (a couple of minutes) that tells me your name, role, projects, and how you like to communicate, so my answers fit the way you work. Nothing is shared outside your profile. Want to start? (yes/no)")}
}

// smallTalk produces a short contextual reply for greetings and thanks.
// The model gets one attempt; any failure falls back to a fixed line.
func (o *Orchestrator) smallTalk(ctx context.Context, sess *state.SessionState, prof *profile.UserProfile, situation, fallback string) []Message {
	sess.LastStatus = state.StatusCompletedOK
	resp, err := o.provider.Complete(ctx, llm.CompletionRequest{
		Model: o.cfg.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: o.systemPrompt(prof) + "\n\n" + situation + " One or two sentences."},
		},
		MaxTokens:   80,
		Temperature: 0.7,
	})
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		return []Message{text(fallback)}
	}
	return []Message{text(strings.TrimSpace(resp.Content))}
}

func greetingFallback(prof *profile.UserProfile) string {
	if name := prof.Name(); name != "" {
		return fmt.Sprintf("Hey %s! What can I do for you today?", name)
	}
	return "Hello! What can I do for you today?"
}

func sortedCopy(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}
