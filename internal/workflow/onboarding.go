package workflow

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/auglet/auglet/internal/llm"
	"github.com/auglet/auglet/internal/profile"
	"github.com/auglet/auglet/internal/state"
)

// TypeOnboarding is the workflow type tag for the onboarding dialogue.
const TypeOnboarding = "onboarding"

var (
	restartRe       = regexp.MustCompile(`(?i)^(restart|start again|start onboarding again)( onboarding)?$`)
	interrogativeRe = regexp.MustCompile(`(?i)^(what|why|how|when|where|who|which|can|could|do|does|is|are|will|should)\b`)
)

// questionByKey indexes every question, follow-ups included.
var questionByKey = map[string]Question{}

func init() {
	for _, q := range onboardingQuestions {
		questionByKey[q.Key] = q
		for _, fus := range q.FollowUps {
			for _, fu := range fus {
				questionByKey[fu.Key] = fu
			}
		}
	}
}

// Onboarding walks a new user through the question sequence, merging each
// valid answer into the user profile as it lands so partial progress is
// never lost.
type Onboarding struct {
	wf       *state.WorkflowContext
	prof     *profile.UserProfile
	provider llm.Provider
	model    string
	logger   *zap.Logger
	done     bool
}

// NewOnboarding binds the workflow to a context and profile. The provider
// may be nil, in which case answer interpretation is purely deterministic.
func NewOnboarding(wf *state.WorkflowContext, prof *profile.UserProfile, provider llm.Provider, model string, logger *zap.Logger) *Onboarding {
	if wf.Onboarding == nil {
		wf.Onboarding = &state.OnboardingData{Version: 1, Answered: map[string]bool{}}
	}
	if wf.Onboarding.Answered == nil {
		wf.Onboarding.Answered = map[string]bool{}
	}
	return &Onboarding{wf: wf, prof: prof, provider: provider, model: model, logger: logger.Named("onboarding")}
}

func (o *Onboarding) Type() string { return TypeOnboarding }

func (o *Onboarding) IsCompleted() bool { return o.done }

// Start produces the first question.
func (o *Onboarding) Start() Reply {
	o.prof.Onboarding = profile.OnboardingInProgress
	o.wf.AddEvent("WORKFLOW_STARTED", "onboarding started", o.wf.Stage)
	q := onboardingQuestions[0]
	o.wf.Stage = q.Key
	o.wf.Touch()
	return Reply{Message: formatQuestion(q, fmt.Sprintf("1 of %d", len(onboardingQuestions)))}
}

// Resume re-asks the current question without touching any progress.
func (o *Onboarding) Resume() Reply {
	if o.wf.Onboarding.QuestionIndex >= len(onboardingQuestions) {
		return o.complete()
	}
	return o.ask(o.currentQuestion())
}

// Skip abandons the workflow, preserving collected answers and marking the
// profile so onboarding is not retriggered.
func (o *Onboarding) Skip() Reply {
	o.done = true
	o.prof.Onboarding = profile.OnboardingDeclined
	o.wf.AddEvent("WORKFLOW_SKIPPED", "onboarding skipped by user", o.wf.Stage)
	msg := "No problem, I've skipped the rest of onboarding. Anything you already told me is saved, and you can say 'start onboarding' anytime to pick it back up."
	return Reply{Message: msg, Completed: true, Skipped: true}
}

// HandleResponse consumes one user input against the current question.
func (o *Onboarding) HandleResponse(ctx context.Context, input string) (Reply, error) {
	data := o.wf.Onboarding

	if data.QuestionIndex >= len(onboardingQuestions) {
		return o.complete(), nil
	}
	q := o.currentQuestion()

	// A question directed at the bot is never consumed as an answer.
	if looksLikeQuestion(input) {
		return Reply{Message: o.answerMetaQuestion(q), Retry: true}, nil
	}

	if restartRe.MatchString(strings.TrimSpace(input)) {
		data.QuestionIndex = 0
		data.InFollowUps = false
		data.FollowUpKeys = nil
		data.FollowUpIndex = 0
		data.Answers = state.OnboardingAnswers{}
		data.Answered = map[string]bool{}
		o.wf.AddEvent("WORKFLOW_RESTARTED", "onboarding restarted from the first question", o.wf.Stage)
		first := onboardingQuestions[0]
		o.wf.Stage = first.Key
		o.wf.Touch()
		return Reply{Message: "Okay, starting over.\n\n" + formatQuestion(first, fmt.Sprintf("1 of %d", len(onboardingQuestions)))}, nil
	}

	if isSkipToken(input) {
		if q.Required {
			return Reply{
				Message: "This question is required. " + formatQuestion(q, o.progress()),
				Retry:   true,
			}, nil
		}
		// Advance without storing a value.
		o.wf.AddEvent("ANSWER_SKIPPED", "optional question skipped: "+q.Key, q.Key)
		return o.advance(q, ""), nil
	}

	value, errMsg := o.interpret(ctx, q, input)
	if errMsg != "" {
		return Reply{Message: errMsg, Retry: true}, nil
	}

	o.storeAnswer(q.Key, value)
	o.wf.AddEvent("ANSWER_RECORDED", fmt.Sprintf("answer recorded for %s", q.Key), q.Key)

	confirmation := o.confirmAnswer(q, value)
	reply := o.advance(q, valueString(value))
	if reply.Message != "" && !reply.Completed {
		reply.Message = confirmation + "\n\n" + reply.Message
	}
	return reply, nil
}

// interpret resolves the input to a canonical value. For choice-shaped
// questions the model gets the first attempt at mapping free-form text onto
// an option; its suggestion only sticks when it names a real option, so a
// hallucinated choice can never enter the profile.
func (o *Onboarding) interpret(ctx context.Context, q Question, input string) (any, string) {
	switch q.Type {
	case QuestionChoice, QuestionMultiChoice, QuestionYesNo:
		if o.provider != nil {
			if mapped, ok := o.interpretWithModel(ctx, q, input); ok {
				if value, errMsg := validateAnswer(q, mapped); errMsg == "" {
					return value, ""
				}
				o.logger.Warn("model suggested an unknown option, falling back",
					zap.String("question", q.Key), zap.String("suggestion", mapped))
			}
		}
	}
	return validateAnswer(q, input)
}

func (o *Onboarding) interpretWithModel(ctx context.Context, q Question, input string) (string, bool) {
	var instruction string
	switch q.Type {
	case QuestionYesNo:
		instruction = "Reply with exactly 'yes', 'no', or 'UNCLEAR'."
	case QuestionMultiChoice:
		instruction = "Reply with the matching option texts, comma-separated, exactly as listed, or 'UNCLEAR'."
	default:
		instruction = "Reply with exactly one option text as listed, or 'UNCLEAR'."
	}
	prompt := fmt.Sprintf("Map the user's answer onto the canonical options.\nOptions: %s\nAnswer: %q\n%s",
		choiceList(q.Choices), input, instruction)
	resp, err := o.provider.Complete(ctx, llm.CompletionRequest{
		Model:       o.model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   64,
		Temperature: 0,
	})
	if err != nil {
		o.logger.Warn("answer interpretation failed, falling back", zap.Error(err))
		return "", false
	}
	reply := strings.TrimSpace(resp.Content)
	if reply == "" || strings.EqualFold(reply, "UNCLEAR") {
		return "", false
	}
	return reply, true
}

func (o *Onboarding) currentQuestion() Question {
	data := o.wf.Onboarding
	if data.InFollowUps && data.FollowUpIndex < len(data.FollowUpKeys) {
		return questionByKey[data.FollowUpKeys[data.FollowUpIndex]]
	}
	return onboardingQuestions[data.QuestionIndex]
}

// progress renders the position label, counting follow-up steps within
// their parent question.
func (o *Onboarding) progress() string {
	data := o.wf.Onboarding
	label := fmt.Sprintf("%d of %d", data.QuestionIndex+1, len(onboardingQuestions))
	if data.InFollowUps && len(data.FollowUpKeys) > 0 {
		label = fmt.Sprintf("%s, part %d of %d", label, data.FollowUpIndex+1, len(data.FollowUpKeys))
	}
	return label
}

// advance moves to the next question, entering or leaving follow-ups as
// needed, and returns its prompt or the completion message.
func (o *Onboarding) advance(answered Question, answerValue string) Reply {
	data := o.wf.Onboarding

	if !data.InFollowUps {
		if fus, ok := answered.FollowUps[strings.ToLower(answerValue)]; ok && len(fus) > 0 {
			data.InFollowUps = true
			data.FollowUpIndex = 0
			data.FollowUpKeys = data.FollowUpKeys[:0]
			for _, fu := range fus {
				data.FollowUpKeys = append(data.FollowUpKeys, fu.Key)
			}
			return o.ask(fus[0])
		}
	} else {
		data.FollowUpIndex++
		if data.FollowUpIndex < len(data.FollowUpKeys) {
			return o.ask(questionByKey[data.FollowUpKeys[data.FollowUpIndex]])
		}
		data.InFollowUps = false
		data.FollowUpKeys = nil
		data.FollowUpIndex = 0
	}

	data.QuestionIndex++
	if data.QuestionIndex >= len(onboardingQuestions) {
		return o.complete()
	}
	return o.ask(onboardingQuestions[data.QuestionIndex])
}

func (o *Onboarding) ask(q Question) Reply {
	o.wf.Stage = q.Key
	o.wf.Touch()
	return Reply{Message: formatQuestion(q, o.progress())}
}

// answerMetaQuestion explains the current question instead of consuming the
// input as an answer.
func (o *Onboarding) answerMetaQuestion(q Question) string {
	help := q.HelpText
	if help == "" {
		help = "I just need this to set up your experience."
	}
	return fmt.Sprintf("Good question! %s\n\n%s", help, formatQuestion(q, o.progress()))
}

// storeAnswer writes the processed value into the typed answer struct and
// merges it into the profile immediately.
func (o *Onboarding) storeAnswer(key string, value any) {
	data := o.wf.Onboarding
	data.Answered[key] = true

	switch key {
	case keyWelcomeName:
		data.Answers.PreferredName = value.(string)
		o.prof.Preferences.PreferredName = value.(string)
	case keyPrimaryRole:
		data.Answers.PrimaryRole = value.(string)
		o.prof.RoleDetail = value.(string)
		if role := profile.RoleFromDescription(value.(string)); role != profile.RoleUnknown {
			o.prof.Role = role
		}
	case keyMainProjects:
		data.Answers.MainProjects = value.(string)
		o.prof.Preferences.MainProjects = value.(string)
	case keyToolPreferences:
		data.Answers.ToolPreferences = value.([]string)
		o.prof.Preferences.Tools = value.([]string)
	case keyCommunicationStyle:
		data.Answers.CommunicationStyle = value.(string)
		o.prof.Preferences.CommunicationStyle = value.(string)
	case keyNotifications:
		data.Answers.Notifications = value.(string)
		o.prof.Preferences.Notifications = value.(string) == "yes"
	case keyCredentials:
		data.Answers.Credentials = value.(string)
	case keyGitHubToken:
		data.Answers.GitHubToken = value.(string)
		o.prof.Credentials.GitHubToken = value.(string)
	case keyJiraEmail:
		data.Answers.JiraEmail = value.(string)
		o.prof.Credentials.JiraEmail = value.(string)
	case keyJiraToken:
		data.Answers.JiraToken = value.(string)
		o.prof.Credentials.JiraToken = value.(string)
	}
}

// confirmAnswer builds the short acknowledgement shown before the next
// question.
func (o *Onboarding) confirmAnswer(q Question, value any) string {
	label := readableKeys[q.Key]
	if label == "" {
		label = q.Key
	}
	display := valueString(value)
	if q.Key == keyNotifications {
		verb := "disabled"
		if display == "yes" {
			verb = "enabled"
		}
		return fmt.Sprintf("✓ Notifications will be %s.", verb)
	}
	if q.Key == keyGitHubToken || q.Key == keyJiraToken {
		return fmt.Sprintf("✓ Your %s is saved.", label)
	}
	return fmt.Sprintf("✓ Got it, your %s is '%s'.", label, display)
}

func valueString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// complete finalizes the workflow, writes the profile flags, and builds the
// summary message.
func (o *Onboarding) complete() Reply {
	o.done = true
	answers := o.wf.Onboarding.Answers

	o.prof.Onboarding = profile.OnboardingCompleted
	now := o.wf.UpdatedAt
	o.prof.OnboardedAt = &now
	o.wf.AddEvent("WORKFLOW_COMPLETED", "onboarding completed", "completed")
	o.wf.Stage = "completed"
	o.wf.Touch()

	name := answers.PreferredName
	if name == "" {
		name = o.prof.DisplayName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎉 **Welcome aboard, %s!** Your onboarding is complete.\n\n", name)
	if answers.PrimaryRole != "" {
		fmt.Fprintf(&b, "👤 **Role**: %s\n", answers.PrimaryRole)
	}
	if answers.MainProjects != "" {
		fmt.Fprintf(&b, "📂 **Main projects**: %s\n", answers.MainProjects)
	}
	if len(answers.ToolPreferences) > 0 {
		fmt.Fprintf(&b, "🛠️ **Preferred tools**: %s\n", strings.Join(answers.ToolPreferences, ", "))
	}
	if answers.CommunicationStyle != "" {
		fmt.Fprintf(&b, "💬 **Communication style**: %s\n", answers.CommunicationStyle)
	}
	if role := profile.RoleFromDescription(answers.PrimaryRole); role != profile.RoleUnknown {
		fmt.Fprintf(&b, "\n🎯 Based on your role, I've set your access level to **%s**.\n", role)
	}
	if answers.Credentials == "yes" {
		count := 0
		for _, tok := range []string{answers.GitHubToken, answers.JiraEmail, answers.JiraToken} {
			if tok != "" {
				count++
			}
		}
		if count > 0 {
			fmt.Fprintf(&b, "\n🔑 I've securely stored %d personal credential(s) for enhanced access.\n", count)
		}
	}
	b.WriteString("\n**What's next?**\n")
	b.WriteString("• Say `help` to see what I can do\n")
	b.WriteString("• Ask about your projects or repositories\n")
	b.WriteString("• Say `my preferences` anytime to update your settings\n")

	return Reply{Message: b.String(), Completed: true}
}

func looksLikeQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasSuffix(trimmed, "?") || interrogativeRe.MatchString(trimmed)
}
