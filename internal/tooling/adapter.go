package tooling

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/auglet/auglet/internal/state"
)

// paramSynonyms maps a canonical schema parameter name to the aliases the
// model is known to emit for it.
var paramSynonyms = map[string][]string{
	"owner":           {"user", "username", "user_name", "org", "organization"},
	"repository_name": {"repo", "repo_name", "repository"},
	"issue_id":        {"issue", "issue_number", "number", "ticket_id"},
	"branch_name":     {"branch"},
	"file_path":       {"file", "filename", "file_name", "path"},
	"message":         {"description", "comment", "text", "content"},
	"query":           {"search", "q", "search_query", "search_term"},
}

const (
	maxHistoryBonus     = 2.0
	historyConfidenceAt = 5
	maxCandidatesShown  = 5
)

// ResolveError reports that no registered tool could serve a service call.
// Candidates names the known tools for the service so the failure can be
// surfaced helpfully.
type ResolveError struct {
	Service    string
	Candidates []string
}

func (e *ResolveError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("unknown tool service %q", e.Service)
	}
	shown := e.Candidates
	suffix := ""
	if len(shown) > maxCandidatesShown {
		suffix = fmt.Sprintf(", ... (%d more)", len(shown)-maxCandidatesShown)
		shown = shown[:maxCandidatesShown]
	}
	return fmt.Sprintf("could not determine a specific tool for %q with the provided parameters; available tools: %s%s",
		e.Service, strings.Join(shown, ", "), suffix)
}

// Resolution is the outcome of mapping a service-level call onto a detailed
// tool.
type Resolution struct {
	Service string
	Tool    string
	// Params is the parameter set transformed onto the tool's schema.
	Params map[string]any
	// Original is the untouched parameter set from the model.
	Original map[string]any
	// Query is the normalized parameter signature used for history lookups.
	Query string
}

// Adapter resolves coarse service-level tool calls emitted by the model
// into one of the detailed registered tools, scoring candidates on
// parameter fit plus historical success.
type Adapter struct {
	registry  *Registry
	recordCap int
	logger    *zap.Logger
}

// NewAdapter wires the adapter to a registry. recordCap bounds the
// per-session selection history.
func NewAdapter(registry *Registry, recordCap int, logger *zap.Logger) *Adapter {
	if recordCap <= 0 {
		recordCap = 100
	}
	return &Adapter{registry: registry, recordCap: recordCap, logger: logger.Named("adapter")}
}

// NormalizeQuery renders a parameter set as a stable signature string.
func NormalizeQuery(params map[string]any) string {
	parts := make([]string, 0, len(params))
	for k, v := range params {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, "&")
}

// Resolve selects the best detailed tool for a service call and transforms
// the parameters onto its schema. metrics may be nil, disabling the history
// bonus.
func (a *Adapter) Resolve(service string, params map[string]any, metrics *state.SelectionMetrics) (*Resolution, error) {
	service = strings.ToLower(service)
	query := NormalizeQuery(params)

	candidates := a.registry.Services()[service]
	if len(candidates) == 0 {
		return nil, &ResolveError{Service: service}
	}

	bestScore := 0.0
	bestTool := ""
	for _, name := range candidates {
		spec, ok := a.registry.Spec(name)
		if !ok {
			continue
		}
		base := matchScore(spec, params)
		if base <= 0 {
			// History never rescues a hard parameter mismatch.
			continue
		}
		score := base + a.historyBonus(metrics, name, query)
		a.logger.Debug("candidate scored",
			zap.String("tool", name), zap.Float64("base", base), zap.Float64("total", score))
		if score > bestScore {
			bestScore = score
			bestTool = name
		}
	}

	if bestTool == "" {
		return nil, &ResolveError{Service: service, Candidates: candidates}
	}

	spec, _ := a.registry.Spec(bestTool)
	transformed := a.transformParameters(spec, params)
	a.logger.Info("tool resolved",
		zap.String("service", service), zap.String("tool", bestTool), zap.Float64("score", bestScore))

	return &Resolution{
		Service:  service,
		Tool:     bestTool,
		Params:   transformed,
		Original: params,
		Query:    query,
	}, nil
}

// RecordOutcome appends a selection record to the session metrics,
// evicting the oldest past the cap.
func (a *Adapter) RecordOutcome(metrics *state.SelectionMetrics, query, selectedTool string, success bool) {
	if metrics == nil {
		return
	}
	rate := 0.0
	if success {
		rate = 1.0
	}
	rec := state.SelectionRecord{Query: query, SuccessRate: rate}
	if selectedTool != "" {
		rec.Selected = []string{selectedTool}
		if success {
			rec.Used = []string{selectedTool}
		}
	}
	metrics.Append(rec, a.recordCap)
}

// historyBonus is avg success rate x 2.0, scaled by how many matching
// records exist (full confidence at 5).
func (a *Adapter) historyBonus(metrics *state.SelectionMetrics, tool, query string) float64 {
	if metrics == nil {
		return 0
	}
	var sum float64
	var n int
	for _, rec := range metrics.Records {
		if rec.Query != query {
			continue
		}
		for _, sel := range rec.Selected {
			if sel == tool {
				sum += rec.SuccessRate
				n++
				break
			}
		}
	}
	if n == 0 {
		return 0
	}
	confidence := min(float64(n)/historyConfidenceAt, 1.0)
	return (sum / float64(n)) * maxHistoryBonus * confidence
}

func normalizeParamName(name string) string {
	return strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(name))
}

// providedFor reports whether a canonical schema parameter is satisfied by
// the model's parameters directly, via a synonym, or via normalized-name
// matching.
func providedFor(canonical string, params map[string]any, normIndex map[string]string) bool {
	if _, ok := params[canonical]; ok {
		return true
	}
	for _, alias := range paramSynonyms[canonical] {
		if _, ok := params[alias]; ok {
			return true
		}
	}
	_, ok := normIndex[normalizeParamName(canonical)]
	return ok
}

func ownerValue(params map[string]any, normIndex map[string]string) (string, bool) {
	keys := append([]string{"owner"}, paramSynonyms["owner"]...)
	for _, k := range keys {
		if v, ok := params[k]; ok {
			s, isStr := v.(string)
			return s, isStr
		}
	}
	if orig, ok := normIndex[normalizeParamName("owner")]; ok {
		s, isStr := params[orig].(string)
		return s, isStr
	}
	return "", false
}

// matchScore rates how well the parameters fit a tool. A missing required
// parameter (after synonyms, normalization, and owner/repo inference) is a
// hard zero.
func matchScore(spec ToolSpec, params map[string]any) float64 {
	normIndex := make(map[string]string, len(params))
	for k := range params {
		normIndex[normalizeParamName(k)] = k
	}

	for _, required := range spec.Required {
		if providedFor(required, params, normIndex) {
			continue
		}
		// An "owner/repo"-shaped owner value can stand in for a missing
		// repository_name.
		if required == "repository_name" {
			if owner, ok := ownerValue(params, normIndex); ok && strings.Contains(owner, "/") {
				if parts := strings.SplitN(owner, "/", 2); len(parts) == 2 && parts[1] != "" {
					continue
				}
			}
		}
		return 0
	}

	score := 1.0

	// Action hint in the parameters pointing at this tool's name.
	for k, v := range params {
		norm := normalizeParamName(k)
		if norm != "action" && norm != "method" {
			continue
		}
		if s, ok := v.(string); ok && s != "" && strings.Contains(strings.ToLower(spec.Name), strings.ToLower(s)) {
			score += 2.0
		}
		break
	}

	used := map[string]struct{}{}
	for schemaParam := range spec.Properties {
		if _, ok := params[schemaParam]; ok {
			if _, dup := used[schemaParam]; !dup {
				used[schemaParam] = struct{}{}
				score++
			}
			continue
		}
		matched := false
		for _, alias := range paramSynonyms[schemaParam] {
			if _, ok := params[alias]; ok {
				if _, dup := used[alias]; !dup {
					used[alias] = struct{}{}
					score++
				}
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if orig, ok := normIndex[normalizeParamName(schemaParam)]; ok {
			if _, dup := used[orig]; !dup {
				used[orig] = struct{}{}
				score++
			}
		}
	}
	return score
}

// coerce converts a value toward the schema's declared primitive type.
func coerce(value any, schema map[string]any) any {
	expected, _ := schema["type"].(string)
	switch expected {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("%v", value)
		}
	case "integer", "number":
		if s, ok := value.(string); ok {
			if n, err := strconv.Atoi(s); err == nil {
				return n
			}
		}
	case "boolean":
		if s, ok := value.(string); ok {
			switch strings.ToLower(s) {
			case "true", "yes", "1":
				return true
			case "false", "no", "0":
				return false
			}
		}
	}
	return value
}

func propertySchema(spec ToolSpec, name string) map[string]any {
	if raw, ok := spec.Properties[name]; ok {
		if m, ok := raw.(map[string]any); ok {
			return m
		}
	}
	return map[string]any{}
}

// transformParameters maps the model's flat parameter set onto the tool's
// schema: exact names, then synonyms with type coercion, then action-style
// pass-throughs, then leftover schema matches, then schema defaults, and
// finally owner/repo structural inference.
func (a *Adapter) transformParameters(spec ToolSpec, params map[string]any) map[string]any {
	transformed := map[string]any{}
	usedLLMParams := map[string]struct{}{}
	missing := map[string]struct{}{}
	for _, req := range spec.Required {
		missing[req] = struct{}{}
	}

	fill := func(schemaParam string, llmKey string, value any) {
		transformed[schemaParam] = value
		usedLLMParams[llmKey] = struct{}{}
		delete(missing, schemaParam)
	}

	// Exact matches.
	for schemaParam := range spec.Properties {
		if v, ok := params[schemaParam]; ok {
			fill(schemaParam, schemaParam, v)
		}
	}

	// Synonyms, coerced toward the declared type.
	for schemaParam, aliases := range paramSynonyms {
		if _, inSchema := spec.Properties[schemaParam]; !inSchema {
			continue
		}
		if _, done := transformed[schemaParam]; done {
			continue
		}
		for _, alias := range aliases {
			v, ok := params[alias]
			if !ok {
				continue
			}
			if _, taken := usedLLMParams[alias]; taken {
				continue
			}
			fill(schemaParam, alias, coerce(v, propertySchema(spec, schemaParam)))
			break
		}
	}

	// Action-style parameters pass through when the schema declares them.
	for _, special := range []string{"action", "method", "operation"} {
		if _, inSchema := spec.Properties[special]; !inSchema {
			continue
		}
		if _, done := transformed[special]; done {
			continue
		}
		if v, ok := params[special]; ok {
			fill(special, special, v)
		}
	}

	// Any leftover model parameters that happen to match the schema.
	for llmKey, v := range params {
		if _, taken := usedLLMParams[llmKey]; taken {
			continue
		}
		if _, inSchema := spec.Properties[llmKey]; !inSchema {
			continue
		}
		if _, done := transformed[llmKey]; done {
			continue
		}
		fill(llmKey, llmKey, v)
	}

	// Schema defaults for still-missing required parameters.
	for req := range missing {
		schema := propertySchema(spec, req)
		if def, ok := schema["default"]; ok {
			transformed[req] = def
			delete(missing, req)
		}
	}

	// Structural inference: an "owner/repo" owner splits into both fields.
	if _, needRepo := missing["repository_name"]; needRepo {
		if owner, ok := transformed["owner"].(string); ok && strings.Contains(owner, "/") {
			if parts := strings.SplitN(owner, "/", 2); len(parts) == 2 && parts[1] != "" {
				transformed["owner"] = parts[0]
				transformed["repository_name"] = parts[1]
				delete(missing, "repository_name")
			}
		}
	}

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for req := range missing {
			names = append(names, req)
		}
		sort.Strings(names)
		a.logger.Warn("required parameters still missing after transformation",
			zap.String("tool", spec.Name), zap.Strings("missing", names))
	}

	return transformed
}
