package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/auglet/auglet/internal/config"
	"github.com/auglet/auglet/internal/intent"
	"github.com/auglet/auglet/internal/llm"
	"github.com/auglet/auglet/internal/profile"
	"github.com/auglet/auglet/internal/state"
	"github.com/auglet/auglet/internal/tooling"
	"github.com/auglet/auglet/internal/workflow"
)

// Orchestrator is the per-turn control loop: it loads state, runs proactive
// checks, routes to the workflow engine or an intent handler, and otherwise
// drives the bounded reason/act cycle against the model.
type Orchestrator struct {
	cfg        config.Config
	provider   llm.Provider
	states     state.Store
	profiles   profile.Store
	classifier *intent.Classifier
	workflows  *workflow.Manager
	registry   *tooling.Registry
	adapter    *tooling.Adapter
	logger     *zap.Logger
}

// New wires the orchestrator from its collaborators.
func New(cfg config.Config, provider llm.Provider, states state.Store, profiles profile.Store, registry *tooling.Registry, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		provider:   provider,
		states:     states,
		profiles:   profiles,
		classifier: intent.NewClassifier(provider, cfg.Model, logger),
		workflows:  workflow.NewManager(provider, cfg.Model, logger),
		registry:   registry,
		adapter:    tooling.NewAdapter(registry, cfg.Agent.SelectionRecordCap, logger),
		logger:     logger.Named("orchestrator"),
	}
}

// HandleTurn processes one inbound message and returns the outbound
// activities. State is persisted at the end of the turn regardless of
// outcome; a failed save is logged but never swallows the reply.
func (o *Orchestrator) HandleTurn(ctx context.Context, turn Turn) []Message {
	log := o.logger.With(
		zap.String("conversation", turn.ConversationID),
		zap.String("user", turn.UserID))

	sess, err := o.states.Get(ctx, turn.ConversationID)
	if err != nil {
		log.Error("loading session failed", zap.Error(err))
		sess = nil
	}
	if sess == nil {
		sess = state.NewSessionState(turn.ConversationID)
	}

	// A turn that arrives while another is mid-stream is answered and
	// discarded rather than queued.
	if sess.Streaming {
		log.Info("turn discarded, previous turn still streaming")
		return []Message{text("I'm still working on your previous request. One moment!")}
	}

	prof, err := o.profiles.Get(ctx, turn.UserID)
	if err != nil {
		log.Error("loading profile failed", zap.Error(err))
	}
	if prof == nil {
		prof = profile.New(turn.UserID, turn.DisplayName)
	}
	if prof.DisplayName == "" && turn.DisplayName != "" {
		prof.DisplayName = turn.DisplayName
	}

	sess.AddUserMessage(turn.Text)
	sess.LastStatus = state.StatusProcessing

	msgs := o.route(ctx, turn, sess, prof, log)

	for _, m := range msgs {
		if m.Text != "" && !m.recorded {
			sess.AddAssistantMessage(m.Text)
		}
	}

	if err := o.states.Put(ctx, sess); err != nil {
		log.Error("saving session failed", zap.Error(err))
	}
	if err := o.profiles.Put(ctx, prof); err != nil {
		log.Error("saving profile failed", zap.Error(err))
	}
	return msgs
}

// route decides what owns this turn: an active workflow, a proactive
// trigger, a dedicated intent handler, or the general task loop.
func (o *Orchestrator) route(ctx context.Context, turn Turn, sess *state.SessionState, prof *profile.UserProfile, log *zap.Logger) []Message {
	// An active workflow owns the turn. Classification stays deterministic
	// here (continue/cancel/pause plus the command fast paths), so no model
	// call happens on the delegation path.
	if sess.PrimaryActiveWorkflow() != nil {
		return o.routeWorkflowTurn(ctx, turn, sess, prof, log)
	}

	if sess.Flag(state.FlagPendingRestartConfirm) {
		return o.handleRestartConfirmation(sess, prof, turn.Text)
	}

	// Proactive onboarding offer for fresh users. The triggering turn's
	// text is not otherwise processed.
	if o.shouldOfferOnboarding(sess, prof) {
		sess.SetFlag(state.FlagPendingOnboardingDecision, true)
		prof.Welcomed = true
		sess.LastStatus = state.StatusCompletedOK
		log.Info("proactive onboarding offer sent")
		return []Message{{Card: o.welcomeCard(prof)}}
	}

	res := o.classifier.Classify(ctx, turn.Text, intent.Context{
		PendingDecision: sess.Flag(state.FlagPendingOnboardingDecision),
		UserRole:        string(prof.Role),
	})
	log.Info("intent classified",
		zap.String("intent", string(res.Intent)), zap.Float64("confidence", res.Confidence))

	if res.Confidence >= o.cfg.Agent.IntentConfidence {
		if msgs, handled := o.handleIntent(ctx, res.Intent, sess, prof); handled {
			return msgs
		}
	}

	return o.runTaskLoop(ctx, sess, prof, log)
}

// routeWorkflowTurn handles a turn while a guided dialogue is active.
func (o *Orchestrator) routeWorkflowTurn(ctx context.Context, turn Turn, sess *state.SessionState, prof *profile.UserProfile, log *zap.Logger) []Message {
	res := o.classifier.Classify(ctx, turn.Text, intent.Context{
		WorkflowActive:      true,
		ActiveWorkflowTypes: activeTypes(sess),
		UserRole:            string(prof.Role),
	})

	switch res.Intent {
	case intent.CommandHelp:
		return o.helpMessages(sess, prof)
	case intent.CommandResetChat:
		return o.resetChat(sess)
	case intent.WorkflowCancel:
		reply := o.workflows.Cancel(sess, prof)
		sess.LastStatus = state.StatusCompletedOK
		return []Message{text(reply.Message)}
	case intent.WorkflowPause:
		sess.LastStatus = state.StatusCompletedOK
		return []Message{text("Sure, we can pick this up whenever you're ready. Just send your next answer to continue.")}
	}

	reply, handled, err := o.workflows.HandleTurn(ctx, sess, prof, turn.Text)
	if err != nil {
		log.Error("workflow delegation failed", zap.Error(err))
		sess.LastStatus = state.StatusErrorToolExecution
		return []Message{text(o.rephrase(ctx, "an internal error interrupted the guided setup"))}
	}
	if !handled {
		return o.runTaskLoop(ctx, sess, prof, log)
	}
	sess.LastStatus = state.StatusCompletedOK
	return []Message{text(reply.Message)}
}

// shouldOfferOnboarding reports whether the proactive prompt fires: a user
// who was never welcomed, has no onboarding history, and owes no decision.
func (o *Orchestrator) shouldOfferOnboarding(sess *state.SessionState, prof *profile.UserProfile) bool {
	return !prof.Welcomed &&
		prof.Onboarding == profile.OnboardingNotStarted &&
		!sess.Flag(state.FlagPendingOnboardingDecision) &&
		sess.ActiveWorkflowByType(workflow.TypeOnboarding) == nil
}

func (o *Orchestrator) welcomeCard(prof *profile.UserProfile) *Card {
	name := prof.Name()
	greeting := "Hi"
	if name != "" {
		greeting = fmt.Sprintf("Hi %s", name)
	}
	return &Card{
		Title:    fmt.Sprintf("👋 Welcome to %s!", o.cfg.BotName),
		Subtitle: "Your development assistant",
		Body: greeting + "! I can answer questions, dig through your projects, and automate the boring parts. " +
			"Want to take two minutes to personalize how I work for you?",
		Buttons: []string{"Yes, let's go", "Maybe later", "No thanks"},
	}
}

func activeTypes(sess *state.SessionState) []string {
	var types []string
	for _, wf := range sess.ActiveWorkflows {
		if wf.Status == state.WorkflowActive {
			types = append(types, wf.Type)
		}
	}
	return types
}
