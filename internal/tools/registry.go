// Package tools implements the dispatch table for agent-issued tool
// invocations.
//
// Tools are registered once at startup with an explicit name, argument
// schema, and handler; the schema is compiled at registration time so a
// malformed declaration fails fast instead of at the first call. Dispatch
// answers every invocation in a batch with exactly one result carrying the
// originating invocation id — handler failures, invalid arguments, and
// unknown tool names all become explicit failure payloads rather than
// dropped invocations, so the conversation can continue.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/yexis-labs/riobridge/pkg/live"
)

// ErrUnknownTool is wrapped into the error Dispatch returns when a batch
// names a tool that was never registered.
var ErrUnknownTool = errors.New("tools: unknown tool")

// Handler executes one tool invocation. Handlers may block on external
// collaborators; they must honour ctx. A returned error becomes an explicit
// failure payload for the model, never a crash.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Definition declares one tool: its name, the JSON schema of its arguments,
// and the handler that executes it.
type Definition struct {
	Name        string
	Description string

	// Parameters is a JSON-schema object describing the arguments. It is
	// compiled at registration; invocation arguments failing validation are
	// rejected before the handler runs.
	Parameters map[string]any

	Handler Handler
}

type registeredTool struct {
	def    Definition
	schema *jsonschema.Schema
}

// Registry maps tool names to handlers. Register all tools before the first
// Dispatch; Dispatch is safe for concurrent use by simultaneous calls.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]registeredTool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registeredTool)}
}

// Register adds a tool to the table. It rejects empty names, missing
// handlers, duplicate names, and argument schemas that do not compile.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tools: register: empty tool name")
	}
	if def.Handler == nil {
		return fmt.Errorf("tools: register %q: nil handler", def.Name)
	}

	schema, err := compileSchema(def.Name, def.Parameters)
	if err != nil {
		return fmt.Errorf("tools: register %q: %w", def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tools: register %q: already registered", def.Name)
	}
	r.tools[def.Name] = registeredTool{def: def, schema: schema}
	return nil
}

// compileSchema compiles the declared parameter schema. A nil schema means
// the tool takes no arguments and any object is accepted.
func compileSchema(name string, parameters map[string]any) (*jsonschema.Schema, error) {
	if parameters == nil {
		return nil, nil
	}
	raw, err := json.Marshal(parameters)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	url := name + ".schema.json"
	if err := compiler.AddResource(url, strings.NewReader(string(raw))); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// Definitions returns the registered tools as session tool declarations,
// for building the session configuration.
func (r *Registry) Definitions() []live.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]live.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, live.ToolDefinition{
			Name:        t.def.Name,
			Description: t.def.Description,
			Parameters:  t.def.Parameters,
		})
	}
	return defs
}

// Dispatch executes one batch of invocations and returns exactly one result
// per invocation, each echoing its invocation id. Handlers run concurrently;
// result order matches the batch order regardless of completion order.
//
// The returned error aggregates dispatch-level problems (unknown tool names);
// the corresponding results still carry explicit failure payloads so the
// caller can forward them to the session.
func (r *Registry) Dispatch(ctx context.Context, calls []live.ToolCall) ([]live.ToolResult, error) {
	results := make([]live.ToolResult, len(calls))
	errs := make([]error, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = r.dispatchOne(ctx, call)
		}()
	}
	wg.Wait()

	return results, errors.Join(errs...)
}

func (r *Registry) dispatchOne(ctx context.Context, call live.ToolCall) (result live.ToolResult, dispatchErr error) {
	result = live.ToolResult{ID: call.ID, Name: call.Name}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tool handler panicked", "tool", call.Name, "id", call.ID, "panic", rec)
			result.Response = failurePayload(fmt.Sprintf("tool %q failed internally", call.Name))
		}
	}()

	r.mu.RLock()
	tool, ok := r.tools[call.Name]
	r.mu.RUnlock()
	if !ok {
		slog.Warn("dispatch of unknown tool", "tool", call.Name, "id", call.ID)
		result.Response = failurePayload(fmt.Sprintf("unknown tool %q", call.Name))
		return result, fmt.Errorf("%w: %q (id %s)", ErrUnknownTool, call.Name, call.ID)
	}

	args, err := decodeArgs(call.Args)
	if err != nil {
		slog.Warn("tool arguments are not a JSON object", "tool", call.Name, "id", call.ID, "err", err)
		result.Response = failurePayload(fmt.Sprintf("invalid arguments for %q: %v", call.Name, err))
		return result, nil
	}

	if tool.schema != nil {
		if err := tool.schema.Validate(anyMap(args)); err != nil {
			slog.Warn("tool arguments failed schema validation", "tool", call.Name, "id", call.ID, "err", err)
			result.Response = failurePayload(fmt.Sprintf("invalid arguments for %q: %v", call.Name, err))
			return result, nil
		}
	}

	payload, err := tool.def.Handler(ctx, args)
	if err != nil {
		// Collaborator failures become explicit failure results so the
		// conversation continues.
		slog.Warn("tool handler failed", "tool", call.Name, "id", call.ID, "err", err)
		result.Response = failurePayload(err.Error())
		return result, nil
	}
	if payload == nil {
		payload = map[string]any{}
	}
	result.Response = payload
	return result, nil
}

func decodeArgs(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// anyMap rebuilds the map as plain any values for the schema validator,
// which expects the result of a generic json.Unmarshal.
func anyMap(m map[string]any) any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func failurePayload(msg string) map[string]any {
	return map[string]any{"error": msg}
}
