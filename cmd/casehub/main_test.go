package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casehub/casehub/internal/core"
	"github.com/casehub/casehub/internal/gateway"
	"github.com/casehub/casehub/internal/tools"
)

func TestWriteToolsJSON(t *testing.T) {
	defs := tools.NewRegistry(nil, core.NewPolicy("search"), nil).List()

	var buf bytes.Buffer
	require.NoError(t, writeTools(&buf, defs, true))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "search", got[0]["name"])
	assert.Contains(t, got[0], "inputSchema")
}

func TestWriteToolsMarkdown(t *testing.T) {
	defs := tools.NewRegistry(nil, core.NewPolicy("search,fetch"), nil).List()

	var buf bytes.Buffer
	require.NoError(t, writeTools(&buf, defs, false))
	assert.Contains(t, buf.String(), "- `search`")
	assert.Contains(t, buf.String(), "- `fetch`")
	assert.NotContains(t, buf.String(), "get_case_statistics")
}

func TestOpenGatewayUnconfigured(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cfg := &core.Config{GatewayBackend: core.BackendPostgREST, SupabaseURL: "https://x.supabase.co"}

	gw, closeFn := openGateway(cfg, logger)
	defer closeFn()

	u, ok := gw.(gateway.Unconfigured)
	require.True(t, ok)
	assert.Equal(t, []string{"SUPABASE_KEY"}, u.Missing)
}

func TestOpenGatewayPostgREST(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cfg := &core.Config{
		GatewayBackend:         core.BackendPostgREST,
		SupabaseURL:            "https://x.supabase.co",
		SupabaseKey:            "opaque-key",
		UpstreamTimeoutSeconds: 5,
	}

	gw, closeFn := openGateway(cfg, logger)
	defer closeFn()

	_, ok := gw.(*gateway.PostgREST)
	assert.True(t, ok)
}
