// Package tools holds the case tool registry and the handlers behind it.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/casehub/casehub/internal/core"
	"github.com/casehub/casehub/internal/gateway"
	"github.com/casehub/casehub/internal/telemetry"
)

// ToolDescriptor is what tools/list advertises for one tool.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type handlerFunc func(ctx context.Context, args map[string]any) (any, error)

type Tool struct {
	Descriptor ToolDescriptor
	handler    handlerFunc
}

// Registry is the static tool table. Registration happens once in
// NewRegistry; the allowlist policy narrows what List and Resolve expose.
type Registry struct {
	tools  []*Tool
	byName map[string]*Tool
	policy *core.Policy
	logger *slog.Logger
}

// NewRegistry registers every tool against gw. A nil policy exposes all
// tools; a nil logger discards logs.
func NewRegistry(gw gateway.Gateway, policy *core.Policy, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Registry{
		byName: make(map[string]*Tool),
		policy: policy,
		logger: logger,
	}
	registerAll(r, &handlers{gw: gw, logger: logger})
	return r
}

// register adds a tool whose arguments decode into T.
func register[T any](r *Registry, name, description string, fn func(ctx context.Context, args T) (any, error)) {
	if _, dup := r.byName[name]; dup {
		panic(fmt.Sprintf("tools: duplicate tool %q", name))
	}
	schema, err := generateSchema[T]()
	if err != nil {
		panic(fmt.Sprintf("tools: schema for %q: %v", name, err))
	}
	t := &Tool{
		Descriptor: ToolDescriptor{Name: name, Description: description, InputSchema: schema},
		handler: func(ctx context.Context, args map[string]any) (any, error) {
			typed, err := decodeArgs[T](args)
			if err != nil {
				return nil, err
			}
			return fn(ctx, typed)
		},
	}
	r.tools = append(r.tools, t)
	r.byName[name] = t
}

// List returns the active tools in declaration order.
func (r *Registry) List() []ToolDescriptor {
	out := make([]ToolDescriptor, 0, len(r.tools))
	for _, t := range r.tools {
		if r.policy.CheckTool(t.Descriptor.Name) == nil {
			out = append(out, t.Descriptor)
		}
	}
	return out
}

// All returns every registered tool regardless of the allowlist.
func (r *Registry) All() []ToolDescriptor {
	out := make([]ToolDescriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Descriptor)
	}
	return out
}

// Names returns every registered tool name in declaration order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Descriptor.Name)
	}
	return out
}

// Resolve finds an active tool by name.
func (r *Registry) Resolve(name string) (*Tool, error) {
	t, ok := r.byName[name]
	if !ok || r.policy.CheckTool(name) != nil {
		return nil, core.Errorf(core.KindUnknownTool, "unknown tool: %s", name)
	}
	return t, nil
}

// Call resolves, validates and runs a tool. Upstream, not-found and
// not-configured failures come back as a {"error": msg} payload with a nil
// error; other failures are returned as errors for the transport to map.
func (r *Registry) Call(ctx context.Context, name string, rawArgs json.RawMessage) (result any, err error) {
	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, "tool.call", trace.WithAttributes(attribute.String("tool.name", name)))
	status := "ok"
	defer func() {
		elapsed := time.Since(start)
		telemetry.IncToolCall(name, status)
		telemetry.ObserveToolDuration(name, elapsed)
		span.SetAttributes(attribute.String("tool.status", status))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		attrs := []any{
			"trace_id", core.TraceID(ctx),
			"tool_name", name,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
		}
		if err != nil {
			r.logger.Warn("tool call failed", append(attrs, "error", err.Error())...)
		} else {
			r.logger.Info("tool call completed", attrs...)
		}
	}()

	tool, err := r.Resolve(name)
	if err != nil {
		status = string(core.KindUnknownTool)
		return nil, err
	}
	args, err := prepareArgs(tool.Descriptor.InputSchema, rawArgs)
	if err != nil {
		status = string(core.KindInvalidArgument)
		return nil, err
	}

	result, err = invoke(ctx, tool, args)
	if err == nil {
		return result, nil
	}
	if core.IsSoft(err) {
		status = "soft_error"
		r.logger.Debug("tool returned soft error", "trace_id", core.TraceID(ctx), "tool_name", name, "error", err.Error())
		return map[string]any{"error": err.Error()}, nil
	}
	status = string(core.KindOf(err))
	return nil, err
}

func invoke(ctx context.Context, t *Tool, args map[string]any) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = core.Errorf(core.KindInternal, "tool %s panicked: %v", t.Descriptor.Name, p)
		}
	}()
	return t.handler(ctx, args)
}
