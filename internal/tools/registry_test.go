package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casehub/casehub/internal/core"
	"github.com/casehub/casehub/internal/gateway"
	"github.com/casehub/casehub/internal/gateway/gatewaytest"
)

var declaredTools = []string{
	"search", "fetch", "vector_search_embeddings", "keyword_search", "fetch_exhibit",
	"list_exhibits", "fetch_claim", "list_claims", "get_facts_by_claim", "get_facts_by_exhibit",
	"analyze_claim_risk", "get_exhibit_relationships", "get_entities", "get_individuals",
	"get_case_statistics",
}

func names(defs []ToolDescriptor) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Name)
	}
	return out
}

func TestListIsStaticAndOrdered(t *testing.T) {
	r := NewRegistry(gatewaytest.NewMemory(), nil, nil)

	first := r.List()
	assert.Equal(t, declaredTools, names(first))
	assert.Equal(t, first, r.List())
	assert.Equal(t, declaredTools, r.Names())
}

func TestSchemasCarryDefaultsAndRanges(t *testing.T) {
	r := NewRegistry(gatewaytest.NewMemory(), nil, nil)
	tool, err := r.Resolve("search")
	require.NoError(t, err)

	schema := tool.Descriptor.InputSchema
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []any{"query"}, schema["required"])

	props := schema["properties"].(map[string]any)
	limit := props["limit"].(map[string]any)
	assert.Equal(t, "integer", limit["type"])
	assert.Equal(t, 20.0, limit["default"])
	assert.Equal(t, 1.0, limit["minimum"])
	assert.Equal(t, 1000.0, limit["maximum"])

	rel, err := r.Resolve("get_exhibit_relationships")
	require.NoError(t, err)
	depth := rel.Descriptor.InputSchema["properties"].(map[string]any)["depth"].(map[string]any)
	assert.Equal(t, 1.0, depth["default"])
	assert.Equal(t, 3.0, depth["maximum"])

	b, err := json.Marshal(tool.Descriptor)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"inputSchema"`)
}

func TestPolicyNarrowsRegistry(t *testing.T) {
	r := NewRegistry(gatewaytest.NewMemory(), core.NewPolicy("search,fetch"), nil)

	assert.Equal(t, []string{"search", "fetch"}, names(r.List()))
	assert.Len(t, r.All(), len(declaredTools))

	_, err := r.Resolve("list_claims")
	require.Error(t, err)
	assert.Equal(t, core.KindUnknownTool, core.KindOf(err))
}

func TestCallUnknownTool(t *testing.T) {
	r := NewRegistry(gatewaytest.NewMemory(), nil, nil)

	_, err := r.Call(context.Background(), "delete_everything", nil)
	require.Error(t, err)
	assert.Equal(t, core.KindUnknownTool, core.KindOf(err))
	assert.Equal(t, "unknown tool: delete_everything", err.Error())
}

func TestInvalidArgumentsNeverReachUpstream(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args string
	}{
		{name: "missing query", tool: "search", args: `{}`},
		{name: "null query", tool: "search", args: `{"query": null}`},
		{name: "empty query", tool: "keyword_search", args: `{"query": ""}`},
		{name: "limit below minimum", tool: "search", args: `{"query": "x", "limit": 0}`},
		{name: "limit above maximum", tool: "list_exhibits", args: `{"limit": 1001}`},
		{name: "fractional limit", tool: "search", args: `{"query": "x", "limit": 2.5}`},
		{name: "negative offset", tool: "search", args: `{"query": "x", "offset": -1}`},
		{name: "offset beyond int range", tool: "search", args: `{"query": "x", "offset": 1e19}`},
		{name: "offset above maximum", tool: "list_exhibits", args: `{"offset": 100001}`},
		{name: "threshold above one", tool: "vector_search_embeddings", args: `{"query": "x", "threshold": 1.5}`},
		{name: "depth above three", tool: "get_exhibit_relationships", args: `{"exhibit_id": "Ex1", "depth": 4}`},
		{name: "non numeric limit", tool: "list_claims", args: `{"limit": "many"}`},
		{name: "object for string", tool: "fetch", args: `{"id": {"x": 1}}`},
		{name: "arguments not an object", tool: "fetch", args: `["Ex1"]`},
		{name: "missing claim id", tool: "analyze_claim_risk", args: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := gatewaytest.NewMemory()
			r := NewRegistry(mem, nil, nil)

			_, err := r.Call(context.Background(), tt.tool, json.RawMessage(tt.args))
			require.Error(t, err)
			assert.Equal(t, core.KindInvalidArgument, core.KindOf(err))
			assert.Empty(t, mem.Calls())
		})
	}
}

func TestWeaklyTypedArguments(t *testing.T) {
	mem := seededMemory()
	r := NewRegistry(mem, nil, nil)

	_, err := r.Call(context.Background(), "list_exhibits", json.RawMessage(`{"limit": "2", "offset": 1.0}`))
	require.NoError(t, err)

	calls := mem.CallsTo("exhibits")
	require.Len(t, calls, 1)
	assert.Equal(t, 2, calls[0].Query.Limit)
	assert.Equal(t, 1, calls[0].Query.Offset)
}

func TestDefaultsApplied(t *testing.T) {
	mem := seededMemory()
	r := NewRegistry(mem, nil, nil)

	_, err := r.Call(context.Background(), "list_claims", nil)
	require.NoError(t, err)

	calls := mem.CallsTo("claims")
	require.Len(t, calls, 1)
	assert.Equal(t, 50, calls[0].Query.Limit)
	assert.Empty(t, calls[0].Query.Filters)
}

func TestSoftErrors(t *testing.T) {
	t.Run("upstream unavailable", func(t *testing.T) {
		mem := gatewaytest.NewMemory().Fail("claims", core.Wrap(core.KindUpstreamUnavailable, errors.New("connection refused"), "claims select"))
		out, err := callTool(t, NewRegistry(mem, nil, nil), "list_claims", map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "claims select: connection refused", out["error"])
	})

	t.Run("not found", func(t *testing.T) {
		out, err := callTool(t, NewRegistry(seededMemory(), nil, nil), "fetch_claim", map[string]any{"claim_id": "claim_404"})
		require.NoError(t, err)
		assert.Equal(t, "Claim claim_404 not found", out["error"])
	})

	t.Run("not configured", func(t *testing.T) {
		gw := gateway.Unconfigured{Missing: []string{"SUPABASE_KEY"}}
		out, err := callTool(t, NewRegistry(gw, nil, nil), "get_case_statistics", map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "gateway not configured: missing SUPABASE_KEY", out["error"])
	})
}

type pickArgs struct {
	Color string `json:"color" jsonschema:"required,enum=red,enum=blue"`
}

func bareRegistry() *Registry {
	return &Registry{byName: make(map[string]*Tool), logger: slog.New(slog.DiscardHandler)}
}

func TestEnumValidation(t *testing.T) {
	r := bareRegistry()
	register[pickArgs](r, "pick", "Pick a color.", func(ctx context.Context, a pickArgs) (any, error) {
		return map[string]any{"color": a.Color}, nil
	})

	res, err := r.Call(context.Background(), "pick", json.RawMessage(`{"color":"blue"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"color": "blue"}, res)

	_, err = r.Call(context.Background(), "pick", json.RawMessage(`{"color":"green"}`))
	require.Error(t, err)
	assert.Equal(t, core.KindInvalidArgument, core.KindOf(err))
	assert.Contains(t, err.Error(), "red, blue")
}

type countArgs struct {
	N int `json:"n" jsonschema:"required"`
}

func TestUnboundedIntegerOutsideExactRange(t *testing.T) {
	r := bareRegistry()
	register[countArgs](r, "count", "Echo a count.", func(ctx context.Context, a countArgs) (any, error) {
		return a.N, nil
	})

	res, err := r.Call(context.Background(), "count", json.RawMessage(`{"n": 9007199254740992}`))
	require.NoError(t, err)
	assert.Equal(t, 1<<53, res)

	for _, raw := range []string{`{"n": 1e19}`, `{"n": -1e19}`, `{"n": "1e300"}`} {
		_, err := r.Call(context.Background(), "count", json.RawMessage(raw))
		require.Error(t, err, raw)
		assert.Equal(t, core.KindInvalidArgument, core.KindOf(err), raw)
		assert.Contains(t, err.Error(), "out of range", raw)
	}
}

func TestHandlerPanicIsInternalError(t *testing.T) {
	r := bareRegistry()
	register[pickArgs](r, "explode", "Always panics.", func(ctx context.Context, a pickArgs) (any, error) {
		panic("boom")
	})

	_, err := r.Call(context.Background(), "explode", json.RawMessage(`{"color":"red"}`))
	require.Error(t, err)
	assert.Equal(t, core.KindInternal, core.KindOf(err))
	assert.False(t, core.IsSoft(err))
}

func TestHandlerPlainErrorIsInternal(t *testing.T) {
	r := bareRegistry()
	register[pickArgs](r, "broken", "Always fails.", func(ctx context.Context, a pickArgs) (any, error) {
		return nil, errors.New("unexpected shape")
	})

	_, err := r.Call(context.Background(), "broken", json.RawMessage(`{"color":"red"}`))
	require.Error(t, err)
	assert.Equal(t, core.KindInternal, core.KindOf(err))
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	r := bareRegistry()
	fn := func(ctx context.Context, a pickArgs) (any, error) { return nil, nil }
	register[pickArgs](r, "pick", "Pick.", fn)
	assert.Panics(t, func() { register[pickArgs](r, "pick", "Pick again.", fn) })
}
