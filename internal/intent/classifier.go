package intent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/auglet/auglet/internal/llm"
)

// Canonical phrase sets for the deterministic fast paths. Matching is
// exact after normalization, so "Help!" and "help" both hit.
var (
	helpPhrases = phraseSet(
		"help", "/help", "help me", "what can you do", "what do you do",
		"commands", "show commands", "show help",
	)
	resetPhrases = phraseSet(
		"reset", "/reset", "reset chat", "reset the chat", "clear chat",
		"clear the chat", "clear history", "start over", "start fresh",
	)
	cancelPhrases = phraseSet(
		"cancel", "stop", "quit", "exit", "abort", "nevermind", "never mind",
		"cancel workflow", "cancel onboarding", "stop onboarding",
		"skip onboarding", "i want to skip", "don't onboard me",
	)
	pausePhrases = phraseSet(
		"pause", "hold on", "one moment", "pause workflow", "pause onboarding",
		"wait",
	)
	acceptPhrases = phraseSet(
		"yes", "y", "yeah", "yep", "yup", "sure", "ok", "okay",
		"sounds good", "let's do it", "lets do it", "let's go", "lets go",
		"yes please", "absolutely", "go ahead", "i'm in", "im in",
	)
	declinePhrases = phraseSet(
		"no", "n", "nope", "no thanks", "no thank you", "not interested",
		"i don't want to", "i dont want to", "never",
	)
	postponePhrases = phraseSet(
		"later", "not now", "maybe later", "another time", "not right now",
		"remind me later", "ask me later", "skip for now",
	)
)

var (
	startOnboardingRe = regexp.MustCompile(`(?i)^(start|begin|do|run|restart)\s+(the\s+)?(my\s+)?(onboarding|setup|set\s?up)\b`)
	permissionsRe     = regexp.MustCompile(`(?i)\b(my|what(\s+is|'s|\s+are)?(\s+my)?)\s+(role|permissions?|access)\b`)
	preferencesRe     = regexp.MustCompile(`(?i)\b(my|show|view|edit|update)\s+(my\s+)?preferences\b`)
	interrogativeRe   = regexp.MustCompile(`(?i)^(what|why|how|when|where|who|which|can|could|do|does|is|are|will|should)\b`)
)

func phraseSet(phrases ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		set[p] = struct{}{}
	}
	return set
}

// normalize lowercases and strips decoration so near-exact variants of a
// canonical phrase still match. Question marks survive because they are
// an interrogative signal elsewhere.
func normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.TrimPrefix(s, "@bot ")
	s = strings.Trim(s, "!. ")
	return strings.Join(strings.Fields(s), " ")
}

func matches(set map[string]struct{}, normalized string) bool {
	_, ok := set[normalized]
	return ok
}

// looksLikeQuestion reports whether the text reads as a question directed
// at the assistant rather than an answer or command.
func looksLikeQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasSuffix(trimmed, "?") || interrogativeRe.MatchString(trimmed)
}

// Classifier turns raw user text into a typed intent. Deterministic phrase
// and regex layers run first; the LLM is only consulted when they fail.
type Classifier struct {
	provider llm.Provider
	model    string
	logger   *zap.Logger
}

// NewClassifier builds a classifier backed by the given provider.
func NewClassifier(provider llm.Provider, model string, logger *zap.Logger) *Classifier {
	return &Classifier{provider: provider, model: model, logger: logger.Named("intent")}
}

// Classify returns the intent for text given the session context. It never
// returns an error: LLM failures degrade to Unclear with low confidence.
func (c *Classifier) Classify(ctx context.Context, text string, ic Context) Result {
	norm := normalize(text)

	// Deterministic commands stay cheap and stable no matter what else is
	// going on in the conversation.
	if matches(helpPhrases, norm) {
		return Result{CommandHelp, 0.98}
	}
	if matches(resetPhrases, norm) {
		return Result{CommandResetChat, 0.98}
	}

	// An active workflow owns the turn unless the user explicitly backs out.
	if ic.WorkflowActive {
		if matches(cancelPhrases, norm) {
			return Result{WorkflowCancel, 0.95}
		}
		if matches(pausePhrases, norm) {
			return Result{WorkflowPause, 0.9}
		}
		return Result{WorkflowContinue, 0.9}
	}

	if ic.PendingDecision {
		if matches(acceptPhrases, norm) {
			return Result{OnboardingAccept, 0.95}
		}
		if matches(declinePhrases, norm) {
			return Result{OnboardingDecline, 0.95}
		}
		if matches(postponePhrases, norm) {
			return Result{OnboardingPostpone, 0.95}
		}
		if looksLikeQuestion(text) {
			return Result{OnboardingQuestion, 0.85}
		}
	}

	if startOnboardingRe.MatchString(text) {
		return Result{OnboardingAccept, 0.9}
	}
	if permissionsRe.MatchString(text) {
		return Result{CommandPermissions, 0.9}
	}
	if preferencesRe.MatchString(text) {
		return Result{CommandPreferences, 0.9}
	}

	return c.classifyWithLLM(ctx, text, ic)
}

func (c *Classifier) classifyWithLLM(ctx context.Context, text string, ic Context) Result {
	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		Model: c.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: classificationSystemPrompt},
			{Role: llm.RoleUser, Content: c.buildPrompt(text, ic)},
		},
		MaxTokens:   16,
		Temperature: 0,
	})
	if err != nil {
		c.logger.Warn("intent classification failed, degrading to unclear", zap.Error(err))
		return Result{Unclear, 0.1}
	}
	return parseLabel(resp.Content, c.logger)
}

const classificationSystemPrompt = `You are an intent classifier for a development assistant bot.
Classify the user's message into exactly one of the listed intent labels.
Respond with ONLY the label and a confidence between 0 and 1, separated by a pipe.
Example: GENERAL_TASK|0.85`

func (c *Classifier) buildPrompt(text string, ic Context) string {
	var b strings.Builder
	b.WriteString("Intent labels:\n")
	for label := range allIntents {
		fmt.Fprintf(&b, "- %s\n", strings.ToUpper(label))
	}
	b.WriteString("\nContext:\n")
	if ic.PendingDecision {
		b.WriteString("- The user owes a yes/no reply to an onboarding offer\n")
	}
	if ic.WorkflowActive {
		fmt.Fprintf(&b, "- Active workflows: %s\n", strings.Join(ic.ActiveWorkflowTypes, ", "))
	}
	if ic.UserRole != "" {
		fmt.Fprintf(&b, "- User role: %s\n", ic.UserRole)
	}
	fmt.Fprintf(&b, "\nUser message: %q\n", text)
	return b.String()
}

// parseLabel parses the strict LABEL|confidence reply format. Anything that
// does not map onto the enumeration becomes Unclear at low confidence.
func parseLabel(raw string, logger *zap.Logger) Result {
	reply := strings.TrimSpace(raw)
	label := reply
	confidence := 0.8
	if idx := strings.IndexByte(reply, '|'); idx >= 0 {
		label = strings.TrimSpace(reply[:idx])
		if f, err := strconv.ParseFloat(strings.TrimSpace(reply[idx+1:]), 64); err == nil {
			confidence = min(max(f, 0), 1)
		}
	}
	in, ok := allIntents[strings.ToLower(label)]
	if !ok {
		logger.Warn("unknown intent label from model", zap.String("label", label))
		return Result{Unclear, 0.3}
	}
	return Result{in, confidence}
}
