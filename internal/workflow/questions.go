package workflow

import (
	"fmt"
	"strings"
)

// QuestionType selects the validation and interpretation rules for a question.
type QuestionType string

const (
	QuestionText        QuestionType = "text"
	QuestionChoice      QuestionType = "choice"
	QuestionMultiChoice QuestionType = "multi_choice"
	QuestionYesNo       QuestionType = "yes_no"
	QuestionEmail       QuestionType = "email"
)

// Question is one step of the onboarding sequence. FollowUps maps a specific
// answer value (lower-cased) to extra questions asked before moving on.
type Question struct {
	Key       string
	Prompt    string
	Type      QuestionType
	Choices   []string
	Required  bool
	HelpText  string
	FollowUps map[string][]Question
}

// Answer keys for the onboarding sequence.
const (
	keyWelcomeName        = "welcome_name"
	keyPrimaryRole        = "primary_role"
	keyMainProjects       = "main_projects"
	keyToolPreferences    = "tool_preferences"
	keyCommunicationStyle = "communication_style"
	keyNotifications      = "notifications"
	keyCredentials        = "personal_credentials"
	keyGitHubToken        = "github_token"
	keyJiraEmail          = "jira_email"
	keyJiraToken          = "jira_token"
)

// onboardingQuestions is the static onboarding sequence. Question 7 branches
// into credential follow-ups when answered "yes".
var onboardingQuestions = []Question{
	{
		Key:      keyWelcomeName,
		Prompt:   "👋 Welcome! What would you prefer I call you?",
		Type:     QuestionText,
		Required: true,
		HelpText: "This is used for personalized greetings and interactions.",
	},
	{
		Key:    keyPrimaryRole,
		Prompt: "🎯 What's your primary role on the team?",
		Type:   QuestionChoice,
		Choices: []string{
			"Software Developer/Engineer",
			"Product Manager",
			"QA/Testing",
			"DevOps/Infrastructure",
			"Designer/UX",
			"Data Analyst/Scientist",
			"Project Manager",
			"Team Lead/Manager",
			"Stakeholder/Business",
			"Other",
		},
		Required: true,
		HelpText: "This helps me understand what tools and information you'll need most.",
	},
	{
		Key:      keyMainProjects,
		Prompt:   "📂 What are the main projects or repositories you work with? (comma-separated)",
		Type:     QuestionText,
		Required: false,
		HelpText: "e.g. 'web-app, mobile-api, data-pipeline'. I'll prioritize these in searches and suggestions.",
	},
	{
		Key:    keyToolPreferences,
		Prompt: "🛠️ Which tools do you use most frequently? (select all that apply)",
		Type:   QuestionMultiChoice,
		Choices: []string{
			"GitHub/Git",
			"Jira/Issue Tracking",
			"Code Search/Documentation",
			"Web Research",
			"Database Queries",
			"API Testing",
			"Deployment/DevOps",
			"Analytics/Reporting",
		},
		Required: true,
		HelpText: "I'll suggest these tools more often and tune my responses to your workflow.",
	},
	{
		Key:    keyCommunicationStyle,
		Prompt: "💬 How do you prefer me to communicate?",
		Type:   QuestionChoice,
		Choices: []string{
			"Detailed explanations with context",
			"Brief and to-the-point",
			"Technical focus with code examples",
			"Business-friendly summaries",
			"Step-by-step instructions",
		},
		Required: true,
		HelpText: "I'll adapt my response style to match your preference.",
	},
	{
		Key:      keyNotifications,
		Prompt:   "🔔 Would you like me to proactively notify you about relevant updates?",
		Type:     QuestionYesNo,
		Required: true,
		HelpText: "I can alert you about PR reviews, ticket updates, or critical issues in your projects.",
	},
	{
		Key:      keyCredentials,
		Prompt:   "🔑 Would you like to set up personal API credentials for more personalized access?",
		Type:     QuestionYesNo,
		Required: true,
		HelpText: "This lets me access your personal repos, issues, and data. You can skip this and use shared access.",
		FollowUps: map[string][]Question{
			"yes": {
				{
					Key:      keyGitHubToken,
					Prompt:   "🐙 Enter your GitHub personal access token (optional, skip with 'none'):",
					Type:     QuestionText,
					Required: false,
					HelpText: "Create one at https://github.com/settings/tokens with 'repo' and 'read:user' scopes.",
				},
				{
					Key:      keyJiraEmail,
					Prompt:   "📧 Enter your Jira email for API access (optional, skip with 'none'):",
					Type:     QuestionEmail,
					Required: false,
					HelpText: "This should be your Jira login email.",
				},
				{
					Key:      keyJiraToken,
					Prompt:   "🎫 Enter your Jira API token (optional, skip with 'none'):",
					Type:     QuestionText,
					Required: false,
					HelpText: "Create one at https://id.atlassian.com/manage-profile/security/api-tokens.",
				},
			},
		},
	},
}

// readableKeys maps answer keys to the labels used in confirmations.
var readableKeys = map[string]string{
	keyWelcomeName:        "preferred name",
	keyPrimaryRole:        "role",
	keyMainProjects:       "main projects",
	keyToolPreferences:    "preferred tools",
	keyCommunicationStyle: "communication style",
	keyNotifications:      "notifications",
	keyCredentials:        "personal credentials",
	keyGitHubToken:        "GitHub token",
	keyJiraEmail:          "Jira email",
	keyJiraToken:          "Jira token",
}

// formatQuestion renders a question prompt with choices, help, and progress.
func formatQuestion(q Question, progress string) string {
	var b strings.Builder
	b.WriteString(q.Prompt)
	if len(q.Choices) > 0 {
		b.WriteString("\n")
		for i, choice := range q.Choices {
			fmt.Fprintf(&b, "\n%d. %s", i+1, choice)
		}
		if q.Type == QuestionMultiChoice {
			b.WriteString("\n\n*You can select multiple options by number (e.g. '1,3,5') or text*")
		}
	}
	if q.HelpText != "" {
		fmt.Fprintf(&b, "\n\n💡 *%s*", q.HelpText)
	}
	if !q.Required {
		b.WriteString("\n\n*Optional - type 'skip' to skip*")
	}
	if progress != "" {
		fmt.Fprintf(&b, "\n\n_(question %s)_", progress)
	}
	return b.String()
}
