package tooling

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/auglet/auglet/internal/profile"
)

// RegisterCoreTools adds the built-in tools every deployment carries:
// capability listing and profile preference access. Domain integrations
// (GitHub, Jira, search) register their own tools alongside these.
func RegisterCoreTools(reg *Registry, profiles profile.Store, logger *zap.Logger) {
	log := logger.Named("core-tools")

	reg.Register(
		mcp.NewTool("help_list_capabilities",
			mcp.WithDescription("List what the assistant can do, optionally scoped to a topic."),
			mcp.WithString("topic",
				mcp.Description("Capability area to describe."),
				mcp.DefaultString("general"),
			),
		),
		func(_ context.Context, args map[string]any) (string, error) {
			topic, _ := args["topic"].(string)
			return capabilityHelp(topic), nil
		},
	)

	reg.Register(
		mcp.NewTool("profile_get_preferences",
			mcp.WithDescription("Fetch the stored preferences for a user."),
			mcp.WithString("user_id",
				mcp.Required(),
				mcp.Description("The user whose preferences to fetch."),
			),
		),
		func(ctx context.Context, args map[string]any) (string, error) {
			userID, _ := args["user_id"].(string)
			if userID == "" {
				return "", fmt.Errorf("user_id is required")
			}
			p, err := profiles.Get(ctx, userID)
			if err != nil {
				return "", fmt.Errorf("loading profile: %w", err)
			}
			if p == nil {
				return "No preferences stored yet. Onboarding sets them up.", nil
			}
			raw, err := json.MarshalIndent(p.Preferences, "", "  ")
			if err != nil {
				return "", fmt.Errorf("encoding preferences: %w", err)
			}
			return string(raw), nil
		},
	)

	reg.Register(
		mcp.NewTool("profile_update_preference",
			mcp.WithDescription("Update a single preference field for a user."),
			mcp.WithString("user_id",
				mcp.Required(),
				mcp.Description("The user whose preference to update."),
			),
			mcp.WithString("key",
				mcp.Required(),
				mcp.Description("Preference to change: preferred_name, communication_style, notifications, main_projects."),
			),
			mcp.WithString("value",
				mcp.Required(),
				mcp.Description("The new value."),
			),
		),
		func(ctx context.Context, args map[string]any) (string, error) {
			userID, _ := args["user_id"].(string)
			key, _ := args["key"].(string)
			value, _ := args["value"].(string)
			if userID == "" || key == "" {
				return "", fmt.Errorf("user_id and key are required")
			}
			p, err := profiles.Get(ctx, userID)
			if err != nil {
				return "", fmt.Errorf("loading profile: %w", err)
			}
			if p == nil {
				p = profile.New(userID, "")
			}
			switch key {
			case "preferred_name":
				p.Preferences.PreferredName = value
			case "communication_style":
				p.Preferences.CommunicationStyle = value
			case "notifications":
				p.Preferences.Notifications = strings.EqualFold(value, "yes") || strings.EqualFold(value, "true")
			case "main_projects":
				p.Preferences.MainProjects = value
			default:
				return "", fmt.Errorf("unknown preference key %q", key)
			}
			if err := profiles.Put(ctx, p); err != nil {
				return "", fmt.Errorf("saving profile: %w", err)
			}
			log.Info("preference updated", zap.String("user", userID), zap.String("key", key))
			return fmt.Sprintf("Preference %s updated.", key), nil
		},
	)
}

func capabilityHelp(topic string) string {
	switch strings.ToLower(topic) {
	case "preferences":
		return "I remember your preferred name, communication style, notification choice, and main projects. Say 'my preferences' to review them or ask me to change one."
	case "onboarding":
		return "Onboarding is a short guided set of questions that personalizes how I work with you. Say 'start onboarding' to begin or restart it."
	default:
		return "I can answer questions, work through tasks with my tools, and remember your preferences. Try 'help', 'my preferences', or just describe what you need."
	}
}
