package tooling

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/auglet/auglet/internal/llm"
)

// Handler executes one detailed tool with already-transformed parameters.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// ToolSpec is the schema view of a registered tool the adapter scores
// against.
type ToolSpec struct {
	Name        string
	Description string
	Properties  map[string]any
	Required    []string
}

// Registry holds the detailed tool implementations, keyed by name. Tool
// schemas are declared with mcp option builders so definitions and
// execution stay in one place.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]registeredTool
	logger *zap.Logger
}

type registeredTool struct {
	tool    mcp.Tool
	handler Handler
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{tools: map[string]registeredTool{}, logger: logger.Named("tools")}
}

// Register adds a tool. Re-registering a name replaces the previous entry.
func (r *Registry) Register(tool mcp.Tool, handler Handler) {
	r.mu.Lock()
	r.tools[tool.Name] = registeredTool{tool: tool, handler: handler}
	r.mu.Unlock()
}

// ToolNames returns all registered detailed tool names, sorted.
func (r *Registry) ToolNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Spec returns the schema view of a tool.
func (r *Registry) Spec(name string) (ToolSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.tools[name]
	if !ok {
		return ToolSpec{}, false
	}
	return ToolSpec{
		Name:        rt.tool.Name,
		Description: rt.tool.Description,
		Properties:  rt.tool.InputSchema.Properties,
		Required:    rt.tool.InputSchema.Required,
	}, true
}

// Execute runs a tool by its detailed name.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	rt, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	return rt.handler(ctx, args)
}

// serviceOf derives the coarse service name from a detailed tool name.
// Names without a separator are their own service.
func serviceOf(toolName string) string {
	if idx := strings.IndexByte(toolName, '_'); idx > 0 {
		return toolName[:idx]
	}
	return toolName
}

// Services groups detailed tool names by service prefix.
func (r *Registry) Services() map[string][]string {
	services := map[string][]string{}
	for _, name := range r.ToolNames() {
		svc := serviceOf(name)
		services[svc] = append(services[svc], name)
	}
	return services
}

// ServiceDefinitions builds the coarse tool schemas shown to the model: one
// open-parameter tool per service, describing the operations behind it. The
// model never sees the detailed tool surface.
func (r *Registry) ServiceDefinitions() []llm.ToolDefinition {
	services := r.Services()
	names := make([]string, 0, len(services))
	for svc := range services {
		names = append(names, svc)
	}
	sort.Strings(names)

	defs := make([]llm.ToolDefinition, 0, len(names))
	for _, svc := range names {
		ops := make([]string, 0, len(services[svc]))
		for _, tool := range services[svc] {
			ops = append(ops, strings.TrimPrefix(tool, svc+"_"))
		}
		defs = append(defs, llm.ToolDefinition{
			Name:        svc,
			Description: fmt.Sprintf("Access the %s service. Supported operations: %s.", svc, strings.Join(ops, ", ")),
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"action": map[string]any{
						"type":        "string",
						"description": "The operation to perform, e.g. one of the supported operations.",
					},
				},
				"additionalProperties": true,
			},
		})
	}
	return defs
}
