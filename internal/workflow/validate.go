package workflow

import (
	"fmt"
	"strconv"
	"strings"
)

var (
	skipTokens = map[string]struct{}{"": {}, "skip": {}, "none": {}, "n/a": {}}
	yesTokens  = map[string]struct{}{"yes": {}, "y": {}, "true": {}, "1": {}, "sure": {}, "ok": {}}
	noTokens   = map[string]struct{}{"no": {}, "n": {}, "false": {}, "0": {}, "nope": {}}
)

func isSkipToken(input string) bool {
	_, ok := skipTokens[strings.ToLower(strings.TrimSpace(input))]
	return ok
}

func choiceList(choices []string) string {
	parts := make([]string, len(choices))
	for i, c := range choices {
		parts[i] = fmt.Sprintf("%d. %s", i+1, c)
	}
	return strings.Join(parts, ", ")
}

// validateAnswer applies the deterministic interpretation rules for a
// question. It returns the processed value (string, or []string for
// multi-choice) or a user-facing validation message.
func validateAnswer(q Question, input string) (any, string) {
	input = strings.TrimSpace(input)

	switch q.Type {
	case QuestionYesNo:
		lower := strings.ToLower(input)
		if _, ok := yesTokens[lower]; ok {
			return "yes", ""
		}
		if _, ok := noTokens[lower]; ok {
			return "no", ""
		}
		return nil, "Please answer with 'yes' or 'no'."

	case QuestionChoice:
		if idx, err := strconv.Atoi(input); err == nil {
			if idx >= 1 && idx <= len(q.Choices) {
				return q.Choices[idx-1], ""
			}
		}
		lower := strings.ToLower(input)
		for _, choice := range q.Choices {
			cl := strings.ToLower(choice)
			if strings.Contains(cl, lower) || strings.Contains(lower, cl) {
				return choice, ""
			}
		}
		return nil, "Please choose from: " + choiceList(q.Choices)

	case QuestionMultiChoice:
		var selections []string
		seen := map[string]struct{}{}
		parts := strings.Fields(strings.ReplaceAll(input, ",", " "))
		for _, part := range parts {
			if idx, err := strconv.Atoi(part); err == nil {
				if idx >= 1 && idx <= len(q.Choices) {
					if _, dup := seen[q.Choices[idx-1]]; !dup {
						seen[q.Choices[idx-1]] = struct{}{}
						selections = append(selections, q.Choices[idx-1])
					}
				}
				continue
			}
			lower := strings.ToLower(part)
			for _, choice := range q.Choices {
				if strings.Contains(strings.ToLower(choice), lower) {
					if _, dup := seen[choice]; !dup {
						seen[choice] = struct{}{}
						selections = append(selections, choice)
					}
					break
				}
			}
		}
		if len(selections) == 0 {
			return nil, "Please select from: " + choiceList(q.Choices)
		}
		return selections, ""

	case QuestionEmail:
		if strings.Contains(input, "@") && strings.Contains(input, ".") {
			return strings.ToLower(input), ""
		}
		return nil, "Please enter a valid email address."

	default: // QuestionText
		if input == "" {
			return nil, "Please provide an answer."
		}
		return input, ""
	}
}
