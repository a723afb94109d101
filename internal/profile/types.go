package profile

import (
	"strings"
	"time"
)

// RoleCategory is the coarse user classification derived from the
// onboarding role answer. It gates admin-ish surfaces and shapes the
// assistant's register.
type RoleCategory string

const (
	RoleDeveloper   RoleCategory = "DEVELOPER"
	RoleStakeholder RoleCategory = "STAKEHOLDER"
	RoleUnknown     RoleCategory = "UNKNOWN"
)

// OnboardingState is the profile-level onboarding lifecycle.
type OnboardingState string

const (
	OnboardingNotStarted OnboardingState = "NOT_STARTED"
	OnboardingInProgress OnboardingState = "IN_PROGRESS"
	OnboardingCompleted  OnboardingState = "COMPLETED"
	OnboardingDeclined   OnboardingState = "DECLINED"
	OnboardingPostponed  OnboardingState = "POSTPONED"
)

// Preferences holds a user's stated working preferences.
type Preferences struct {
	PreferredName      string   `json:"preferred_name,omitempty"`
	CommunicationStyle string   `json:"communication_style,omitempty"`
	Notifications      bool     `json:"notifications"`
	Tools              []string `json:"tools,omitempty"`
	MainProjects       string   `json:"main_projects,omitempty"`
}

// Credentials holds optional per-user service tokens collected during
// onboarding. They are stored as given; validation against the remote
// services happens at use time.
type Credentials struct {
	GitHubToken string `json:"github_token,omitempty"`
	JiraEmail   string `json:"jira_email,omitempty"`
	JiraToken   string `json:"jira_token,omitempty"`
}

// HasAny reports whether at least one credential is set.
func (c Credentials) HasAny() bool {
	return c.GitHubToken != "" || c.JiraEmail != "" || c.JiraToken != ""
}

// UserProfile is the durable cross-conversation record for one user.
type UserProfile struct {
	UserID      string          `json:"user_id"`
	DisplayName string          `json:"display_name,omitempty"`
	Role        RoleCategory    `json:"role"`
	RoleDetail  string          `json:"role_detail,omitempty"` // the user's own words
	Onboarding  OnboardingState `json:"onboarding"`
	OnboardedAt *time.Time      `json:"onboarded_at,omitempty"`
	Preferences Preferences     `json:"preferences"`
	Credentials Credentials     `json:"credentials"`
	// Welcomed is set once the proactive welcome card has been shown, so
	// returning users are never re-greeted.
	Welcomed  bool      `json:"welcomed,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a fresh profile for a user who has not onboarded yet.
func New(userID, displayName string) *UserProfile {
	now := time.Now().UTC()
	return &UserProfile{
		UserID:      userID,
		DisplayName: displayName,
		Role:        RoleUnknown,
		Onboarding:  OnboardingNotStarted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Name returns the best available name for addressing the user.
func (p *UserProfile) Name() string {
	if p.Preferences.PreferredName != "" {
		return p.Preferences.PreferredName
	}
	return p.DisplayName
}

// roleKeywords maps role-answer substrings to categories. More specific
// phrases come first so "product manager" is not swallowed by "manager"
// alone mapping elsewhere.
var roleKeywords = []struct {
	phrase string
	role   RoleCategory
}{
	{"software developer", RoleDeveloper},
	{"software engineer", RoleDeveloper},
	{"engineer", RoleDeveloper},
	{"developer", RoleDeveloper},
	{"team lead", RoleDeveloper},
	{"devops", RoleDeveloper},
	{"qa", RoleDeveloper},
	{"testing", RoleDeveloper},
	{"product manager", RoleStakeholder},
	{"project manager", RoleStakeholder},
	{"manager", RoleStakeholder},
	{"stakeholder", RoleStakeholder},
	{"executive", RoleStakeholder},
	{"designer", RoleStakeholder},
}

// RoleFromDescription classifies a free-form role answer into a category.
func RoleFromDescription(desc string) RoleCategory {
	lower := strings.ToLower(desc)
	for _, kw := range roleKeywords {
		if strings.Contains(lower, kw.phrase) {
			return kw.role
		}
	}
	return RoleUnknown
}
