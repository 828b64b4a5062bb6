package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/casehub/casehub/internal/core"
	"github.com/casehub/casehub/internal/gateway"
	httpsvr "github.com/casehub/casehub/internal/http"
	mcpsvr "github.com/casehub/casehub/internal/mcp"
	"github.com/casehub/casehub/internal/telemetry"
	"github.com/casehub/casehub/internal/tools"
)

var (
	version   = ""
	gitCommit = ""
	buildTime = ""
)

type CLI struct {
	Config string `short:"c" help:"Path to a YAML config file." env:"CASEHUB_CONFIG" type:"path"`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the MCP server (default)."`
	Tools   ToolsCmd   `cmd:"" help:"List the tools exposed under the active profile."`
	Version VersionCmd `cmd:"" help:"Show build information."`
}

func main() {
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "load %s: %v\n", f, err)
			os.Exit(1)
		}
	}

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("casehub"),
		kong.Description("MCP server exposing legal case data as tools."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}

type ServeCmd struct{}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := core.LoadConfig(cli.Config, nil)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	logger.Info("profile loaded", "profile", cfg.Profile)

	stopTracing, err := telemetry.SetupTracing(cfg.TraceStdout, os.Stderr)
	if err != nil {
		return err
	}

	gw, closeGateway := openGateway(cfg, logger)
	defer closeGateway()
	missing := cfg.MissingGatewaySettings()

	policy := core.NewPolicy(cfg.ToolAllowlist)
	registry := tools.NewRegistry(gw, policy, logger)
	if unknown := policy.Unknown(registry.Names()); len(unknown) > 0 {
		logger.Warn("tool allowlist names unknown tools", "tools", strings.Join(unknown, ","))
	}

	logger.Info("effective config",
		"profile", cfg.Profile,
		"gateway_backend", cfg.GatewayBackend,
		"gateway_configured", len(missing) == 0,
		"tools", len(registry.List()),
		"upstream_timeout_seconds", cfg.UpstreamTimeoutSeconds,
		"sse_ping_seconds", cfg.SSEPingSeconds,
		"mcp_path", cfg.MCPPath,
	)

	dispatcher := mcpsvr.NewDispatcher(registry, version, logger)
	httpServer := httpsvr.NewServer(httpsvr.Options{
		Addr:       cfg.HTTPListen,
		MCPPath:    cfg.MCPPath,
		SSEPing:    cfg.SSEPingInterval(),
		Backend:    cfg.GatewayBackend,
		Configured: len(missing) == 0,
		Build: httpsvr.BuildInfo{
			Version:   version,
			GitCommit: gitCommit,
			BuildTime: buildTime,
		},
	}, dispatcher, logger)

	var mcpServer *mcpsvr.Server
	if cfg.MCPListen != "" {
		mcpServer = mcpsvr.NewServer(cfg.MCPListen, dispatcher, logger)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- httpServer.ListenAndServe() }()
	if mcpServer != nil {
		go func() { errCh <- mcpServer.ListenAndServe() }()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case serveErr = <-errCh:
		logger.Error("server error", "err", serveErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	httpServer.Shutdown(ctx)
	if mcpServer != nil {
		mcpServer.Shutdown(ctx)
	}
	if err := stopTracing(ctx); err != nil {
		logger.Warn("tracing shutdown failed", "err", err)
	}
	logger.Info("shutdown complete")
	return serveErr
}

// openGateway builds the configured backend. Missing settings yield a
// gateway that answers every call with not_configured so the server still
// starts and lists its tools.
func openGateway(cfg *core.Config, logger *slog.Logger) (gateway.Gateway, func()) {
	noop := func() {}
	if missing := cfg.MissingGatewaySettings(); len(missing) > 0 {
		logger.Warn("gateway not configured", "backend", cfg.GatewayBackend, "missing", strings.Join(missing, ","))
		return gateway.Unconfigured{Missing: missing}, noop
	}

	switch cfg.GatewayBackend {
	case core.BackendPostgres:
		pg, err := gateway.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			logger.Warn("postgres open failed", "err", err)
			return gateway.Unconfigured{Missing: []string{"DATABASE_URL"}}, noop
		}
		if err := pg.Ping(context.Background()); err != nil {
			logger.Warn("postgres ping failed, serving anyway", "err", err)
		}
		return pg, func() { pg.Close() }

	default:
		cred := gateway.InspectCredential(cfg.SupabaseKey, time.Now())
		attrs := []any{"url", cfg.SupabaseURL, "opaque_key", cred.Opaque}
		if !cred.Opaque {
			attrs = append(attrs, "role", cred.Role, "issuer", cred.Issuer)
		}
		logger.Info("postgrest gateway", attrs...)
		if cred.Expired {
			logger.Warn("supabase key has expired", "expires_at", cred.ExpiresAt)
		}
		return gateway.NewPostgREST(cfg.SupabaseURL, cfg.SupabaseKey, cfg.UpstreamTimeout()), noop
	}
}

type ToolsCmd struct {
	JSON bool `help:"Print tool descriptors as JSON."`
}

func (c *ToolsCmd) Run(cli *CLI) error {
	cfg, err := core.LoadConfig(cli.Config, nil)
	if err != nil {
		return err
	}
	registry := tools.NewRegistry(nil, core.NewPolicy(cfg.ToolAllowlist), nil)
	return writeTools(os.Stdout, registry.List(), c.JSON)
}

func writeTools(w io.Writer, defs []tools.ToolDescriptor, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(defs)
	}
	return tools.RenderMarkdown(w, defs)
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	v := version
	if v == "" {
		v = "dev"
	}
	fmt.Printf("casehub %s (commit %s, built %s)\n", v, orUnknown(gitCommit), orUnknown(buildTime))
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
