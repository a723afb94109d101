package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/auglet/auglet/internal/orchestrator"
)

var chatUser string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive console chat session",
	Long:  `Opens a local console conversation against the configured LLM provider, with the same routing, onboarding, and tool execution the server uses.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		orch, cleanup, err := buildOrchestrator(cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		conversationID := uuid.NewString()
		userID := chatUser
		if userID == "" {
			userID = "console"
		}

		fmt.Printf("%s console chat. Type 'exit' to leave.\n\n", cfg.BotName)

		for {
			prompt := promptui.Prompt{Label: "you"}
			input, err := prompt.Run()
			if err != nil {
				if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
					fmt.Println("bye!")
					return nil
				}
				return fmt.Errorf("reading input: %w", err)
			}
			if strings.EqualFold(strings.TrimSpace(input), "exit") {
				fmt.Println("bye!")
				return nil
			}
			if strings.TrimSpace(input) == "" {
				continue
			}

			msgs := orch.HandleTurn(context.Background(), orchestrator.Turn{
				ConversationID: conversationID,
				UserID:         userID,
				DisplayName:    userID,
				Text:           input,
			})
			for _, m := range msgs {
				printMessage(cfg.BotName, m)
			}
		}
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatUser, "user", "", "user ID for the session (defaults to 'console')")
	rootCmd.AddCommand(chatCmd)
}

func printMessage(botName string, m orchestrator.Message) {
	if m.Card != nil {
		fmt.Fprintf(os.Stdout, "\n%s: [%s]\n", botName, m.Card.Title)
		if m.Card.Subtitle != "" {
			fmt.Fprintf(os.Stdout, "  %s\n", m.Card.Subtitle)
		}
		fmt.Fprintf(os.Stdout, "  %s\n", m.Card.Body)
		if len(m.Card.Buttons) > 0 {
			fmt.Fprintf(os.Stdout, "  options: %s\n", strings.Join(m.Card.Buttons, " | "))
		}
		fmt.Fprintln(os.Stdout)
		return
	}
	fmt.Fprintf(os.Stdout, "\n%s: %s\n\n", botName, m.Text)
}
