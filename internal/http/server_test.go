package http

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casehub/casehub/internal/gateway/gatewaytest"
	"github.com/casehub/casehub/internal/mcp"
	"github.com/casehub/casehub/internal/tools"
)

func newTestServer(opts Options) *Server {
	logger := slog.New(slog.DiscardHandler)
	d := mcp.NewDispatcher(tools.NewRegistry(gatewaytest.NewMemory(), nil, logger), opts.Build.Version, logger)
	return NewServer(opts, d, logger)
}

func post(t *testing.T, s *Server, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rr := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestVersionEndpoint(t *testing.T) {
	tests := []struct {
		name  string
		build BuildInfo
	}{
		{name: "unset build info"},
		{name: "injected build info", build: BuildInfo{Version: "0.9.1", GitCommit: "f00dbabe", BuildTime: "2026-10-01T08:30:00Z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(Options{Build: tt.build})

			rr := httptest.NewRecorder()
			s.srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/version", nil))
			require.Equal(t, http.StatusOK, rr.Code)

			var got map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
			assert.Equal(t, map[string]string{
				"version":    tt.build.Version,
				"git_commit": tt.build.GitCommit,
				"build_time": tt.build.BuildTime,
			}, got)
		})
	}
}

func TestRPCRoundTrip(t *testing.T) {
	s := newTestServer(Options{Build: BuildInfo{Version: "0.4.0"}})

	rr := post(t, s, "/mcp", `{"jsonrpc":"2.0","id":1,"method":"initialize"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("Mcp-Session-Id"))

	var resp struct {
		Result struct {
			ServerInfo map[string]string `json:"serverInfo"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "casehub", resp.Result.ServerInfo["name"])
	assert.Equal(t, "0.4.0", resp.Result.ServerInfo["version"])
}

func TestRPCCustomPathAndSessionEcho(t *testing.T) {
	s := newTestServer(Options{MCPPath: "/rpc"})

	rr := post(t, s, "/rpc", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, http.Header{"Mcp-Session-Id": {"sess-1"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "sess-1", rr.Header().Get("Mcp-Session-Id"))

	rr = post(t, s, "/mcp", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRPCNotificationAccepted(t *testing.T) {
	s := newTestServer(Options{})

	rr := post(t, s, "/mcp", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, nil)
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestRPCParseErrorIsJSONRPC(t *testing.T) {
	s := newTestServer(Options{})

	rr := post(t, s, "/mcp", `{oops`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"parse error"}}`, rr.Body.String())
}

func TestRPCBodyLimit(t *testing.T) {
	s := newTestServer(Options{})

	big := `{"jsonrpc":"2.0","id":1,"method":"ping","params":{"pad":"` + strings.Repeat("x", maxRequestBodyBytes) + `"}}`
	rr := post(t, s, "/mcp", big, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(Options{Backend: "postgrest", Configured: false})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","gateway":"postgrest","configured":false}`, rr.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(Options{})
	post(t, s, "/mcp", `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `casehub_rpc_requests_total{method="tools/list"}`)
}

func TestSSEDisabled(t *testing.T) {
	s := newTestServer(Options{})

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	rr := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestSSEKeepAlive(t *testing.T) {
	s := newTestServer(Options{SSEPing: 10 * time.Millisecond})
	ts := httptest.NewServer(s.srv.Handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/mcp", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("Mcp-Session-Id"))

	r := bufio.NewReader(resp.Body)
	first, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", first)

	pings := 0
	for pings < 2 {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if line == ": ping\n" {
			pings++
		}
	}
	cancel()
}
