package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/auglet/auglet/internal/llm"
	"github.com/auglet/auglet/internal/profile"
	"github.com/auglet/auglet/internal/state"
)

const rephraseFallback = "I'm sorry, something went wrong on my end while handling that. Please try again."

// runTaskLoop drives the bounded reason/act cycle: stream a model turn,
// execute any requested tools, feed results back, repeat until the model
// answers in text or the cycle cap is hit.
func (o *Orchestrator) runTaskLoop(ctx context.Context, sess *state.SessionState, prof *profile.UserProfile, log *zap.Logger) []Message {
	sess.Streaming = true
	if err := o.states.Put(ctx, sess); err != nil {
		log.Warn("persisting streaming flag failed", zap.Error(err))
	}
	defer func() { sess.Streaming = false }()

	maxCycles := o.cfg.Agent.MaxToolCycles
	if maxCycles <= 0 {
		maxCycles = 5
	}
	tools := o.registry.ServiceDefinitions()

	var out []Message
	for cycle := 0; cycle < maxCycles; cycle++ {
		msgs, err := o.prepareMessages(sess, prof)
		if err != nil {
			sess.Messages = nil
			sess.LastStatus = state.StatusHistoryReset
			log.Warn("conversation history reset", zap.Error(err))
			return append(out, text("Something went wrong with our conversation history, so I had to reset it. Could you repeat your request?"))
		}

		stream, err := o.provider.StreamChat(ctx, llm.ChatRequest{
			Model:    o.cfg.Model,
			Messages: msgs,
			Tools:    tools,
		})
		if err != nil {
			sess.LastStatus = state.StatusErrorLLMPrefix + llm.ErrCodeUnknown
			log.Error("opening model stream failed", zap.Error(err))
			return append(out, text(o.rephrase(ctx, "I couldn't reach the language model")))
		}

		var textBuf strings.Builder
		var toolCalls []llm.ToolCall
		for {
			evt, ok := stream.Next()
			if !ok {
				break
			}
			switch evt.Kind {
			case llm.EventTextChunk:
				textBuf.WriteString(evt.Text)
			case llm.EventToolCalls:
				toolCalls = append(toolCalls, evt.ToolCalls...)
			case llm.EventError:
				stream.Close()
				sess.LastStatus = state.StatusErrorLLMPrefix + evt.Err.Code
				log.Error("model stream failed",
					zap.String("code", evt.Err.Code), zap.String("detail", evt.Err.Message))
				return append(out, text(o.rephrase(ctx, "the language model request failed")))
			}
		}
		stream.Close()

		if len(toolCalls) == 0 {
			reply := strings.TrimSpace(textBuf.String())
			if reply == "" {
				sess.LastStatus = state.StatusCompletedUnknown
				return append(out, text("I wasn't able to come up with an answer for that. Could you rephrase?"))
			}
			sess.LastStatus = state.StatusCompletedOK
			return append(out, text(reply))
		}

		// Commentary preceding tool calls stays on the tool-call message so
		// the history keeps the call/result pairing intact, and goes out to
		// the user as its own message.
		lead := strings.TrimSpace(textBuf.String())
		if lead != "" {
			out = append(out, Message{Text: lead, recorded: true})
		}

		records := make([]state.ToolCallRecord, 0, len(toolCalls))
		for _, tc := range toolCalls {
			records = append(records, state.ToolCallRecord{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
		}
		sess.AddAssistantToolCalls(lead, records)

		for i, tc := range toolCalls {
			res, err := o.adapter.Resolve(tc.Name, tc.Arguments, &sess.Metrics)
			if err != nil {
				// An unresolvable call is reported back to the model so it
				// can correct itself on the next cycle.
				log.Warn("tool resolution failed",
					zap.String("service", tc.Name), zap.Error(err))
				sess.AddToolResult(tc.ID, tc.Name, "Error: "+err.Error(), true)
				continue
			}

			output, execErr := o.registry.Execute(ctx, res.Tool, res.Params)
			o.adapter.RecordOutcome(&sess.Metrics, res.Query, res.Tool, execErr == nil)
			if execErr != nil {
				log.Error("tool execution failed",
					zap.String("tool", res.Tool), zap.Error(execErr))
				sess.AddToolResult(tc.ID, res.Tool, "Error: "+execErr.Error(), true)
				// Every recorded call needs a result, or the history becomes
				// unsendable. Close out the rest of the batch before bailing.
				for _, rest := range toolCalls[i+1:] {
					sess.AddToolResult(rest.ID, rest.Name,
						"Error: not executed because an earlier tool call in this batch failed", true)
				}
				sess.LastStatus = state.StatusErrorToolExecution
				return append(out, text(o.rephrase(ctx,
					fmt.Sprintf("running the %s tool failed, so I couldn't finish the request", res.Tool))))
			}
			sess.AddToolResult(tc.ID, res.Tool, output, false)
		}
	}

	sess.LastStatus = state.StatusMaxCyclesReached
	log.Warn("tool cycle cap reached", zap.Int("max_cycles", maxCycles))
	return append(out, text(o.rephrase(ctx,
		"the request needed more tool steps than I'm allowed in one turn, so I stopped partway")))
}

// prepareMessages builds the model input: a persona system message plus a
// bounded window of recent history. A tool result whose originating call
// fell inside the window but is missing means the history is corrupt, and
// the caller must reset it.
func (o *Orchestrator) prepareMessages(sess *state.SessionState, prof *profile.UserProfile) ([]llm.Message, error) {
	window := sess.Messages
	if limit := o.cfg.Agent.MaxHistoryItems; limit > 0 && len(window) > limit {
		window = window[len(window)-limit:]
	}

	// Trailing truncation can cut the assistant tool-call message off the
	// front of the window; orphaned leading tool results are dropped.
	for len(window) > 0 && window[0].Role == "tool" {
		window = window[1:]
	}

	out := make([]llm.Message, 0, len(window)+1)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: o.systemPrompt(prof)})

	pending := map[string]bool{}
	for _, m := range window {
		switch m.Role {
		case "user":
			out = append(out, llm.Message{Role: llm.RoleUser, Content: m.Text})
		case "assistant":
			msg := llm.Message{Role: llm.RoleAssistant, Content: m.Text}
			for _, tc := range m.ToolCalls {
				pending[tc.ID] = true
				msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
					ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments,
				})
			}
			out = append(out, msg)
		case "tool":
			if !pending[m.ToolCallID] {
				return nil, fmt.Errorf("%w: tool result %q has no originating call", ErrHistoryReset, m.ToolCallID)
			}
			delete(pending, m.ToolCallID)
			out = append(out, llm.Message{
				Role:       llm.RoleTool,
				Content:    m.Text,
				ToolCallID: m.ToolCallID,
				Name:       m.ToolName,
			})
		default:
			return nil, fmt.Errorf("%w: unknown message role %q", ErrHistoryReset, m.Role)
		}
	}
	// Results always directly follow their originating call, so anything
	// still pending here means the batch was never closed out.
	if len(pending) > 0 {
		return nil, fmt.Errorf("%w: %d tool call(s) have no result", ErrHistoryReset, len(pending))
	}
	return out, nil
}

func (o *Orchestrator) systemPrompt(prof *profile.UserProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a development assistant for engineering teams. ", o.cfg.BotName)
	b.WriteString("You answer questions and complete tasks using the tools available to you. ")
	b.WriteString("Call a tool whenever it would give a better answer than guessing. Be concise.\n")

	if name := prof.Name(); name != "" {
		fmt.Fprintf(&b, "\nThe user's name is %s.", name)
	}
	if prof.RoleDetail != "" {
		fmt.Fprintf(&b, " Their role: %s.", prof.RoleDetail)
	} else if prof.Role != profile.RoleUnknown {
		fmt.Fprintf(&b, " Their role category: %s.", prof.Role)
	}
	if prof.Preferences.MainProjects != "" {
		fmt.Fprintf(&b, " They mainly work on: %s.", prof.Preferences.MainProjects)
	}
	if len(prof.Preferences.Tools) > 0 {
		fmt.Fprintf(&b, " Their preferred tools: %s.", strings.Join(prof.Preferences.Tools, ", "))
	}
	if prof.Preferences.CommunicationStyle != "" {
		fmt.Fprintf(&b, "\nMatch this communication style: %s.", prof.Preferences.CommunicationStyle)
	}
	return b.String()
}

// rephrase asks the model for a short user-facing explanation of a failure.
// If this call also fails, a fixed apology goes out instead.
func (o *Orchestrator) rephrase(ctx context.Context, situation string) string {
	resp, err := o.provider.Complete(ctx, llm.CompletionRequest{
		Model: o.cfg.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: fmt.Sprintf(
				"You are %s, a friendly development assistant. Briefly and apologetically tell the user that %s. One or two sentences, no technical jargon, do not mention internal details.",
				o.cfg.BotName, situation)},
		},
		MaxTokens:   120,
		Temperature: 0.7,
	})
	if err != nil || resp == nil || strings.TrimSpace(resp.Content) == "" {
		return rephraseFallback
	}
	return strings.TrimSpace(resp.Content)
}
