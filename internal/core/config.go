package core

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendPostgREST = "postgrest"
	BackendPostgres  = "postgres"
)

// Config is the resolved runtime configuration.
// Precedence: profile defaults < YAML file < environment.
type Config struct {
	Profile                string `yaml:"profile"`
	HTTPListen             string `yaml:"http_listen"`
	MCPListen              string `yaml:"mcp_listen"`
	MCPPath                string `yaml:"mcp_path"`
	GatewayBackend         string `yaml:"gateway_backend"`
	SupabaseURL            string `yaml:"supabase_url"`
	SupabaseKey            string `yaml:"supabase_key"`
	DatabaseURL            string `yaml:"database_url"`
	ToolAllowlist          string `yaml:"tool_allowlist"`
	UpstreamTimeoutSeconds int    `yaml:"upstream_timeout_seconds"`
	SSEPingSeconds         int    `yaml:"sse_ping_seconds"`
	LogLevel               string `yaml:"log_level"`
	TraceStdout            bool   `yaml:"trace_stdout"`
}

// ConfigPathEnv names the variable holding the optional YAML config path.
const ConfigPathEnv = "CASEHUB_CONFIG"

// supabaseKeyFallbacks are consulted in order when SUPABASE_KEY is unset.
var supabaseKeyFallbacks = []string{"SUPABASE_SERVICE_ROLE_KEY", "SUPABASE_ANON_KEY"}

// EnvVars lists every environment variable the loader reads.
func EnvVars() []string {
	vars := []string{
		ConfigPathEnv,
		"CASEHUB_PROFILE",
		"CASEHUB_HTTP_LISTEN",
		"CASEHUB_MCP_LISTEN",
		"MCP_PATH",
		"GATEWAY_BACKEND",
		"SUPABASE_URL",
		"SUPABASE_KEY",
		"DATABASE_URL",
		"TOOL_ALLOWLIST",
		"UPSTREAM_TIMEOUT_SECONDS",
		"SSE_PING_SECONDS",
		"LOG_LEVEL",
		"TRACE_STDOUT",
	}
	return append(vars, supabaseKeyFallbacks...)
}

// LoadConfig resolves configuration from the profile, the optional YAML file
// at path and the environment. A nil getenv uses os.Getenv.
func LoadConfig(path string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	var data []byte
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		data = raw
	}

	var head struct {
		Profile string `yaml:"profile"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	name := head.Profile
	if v := getenv("CASEHUB_PROFILE"); v != "" {
		name = v
	}
	profile, err := LoadProfile(name)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPListen:             "0.0.0.0:8080",
		MCPPath:                "/mcp",
		GatewayBackend:         BackendPostgREST,
		ToolAllowlist:          profile.Tools,
		UpstreamTimeoutSeconds: profile.UpstreamTimeoutSeconds,
		SSEPingSeconds:         profile.SSEPingSeconds,
		LogLevel:               profile.LogLevel,
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Profile = profile.Name

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", key, v)
		}
		*dst = n
		return nil
	}

	setString("CASEHUB_HTTP_LISTEN", &c.HTTPListen)
	setString("CASEHUB_MCP_LISTEN", &c.MCPListen)
	setString("MCP_PATH", &c.MCPPath)
	setString("GATEWAY_BACKEND", &c.GatewayBackend)
	setString("SUPABASE_URL", &c.SupabaseURL)
	setString("DATABASE_URL", &c.DatabaseURL)
	setString("TOOL_ALLOWLIST", &c.ToolAllowlist)
	setString("LOG_LEVEL", &c.LogLevel)

	setString("SUPABASE_KEY", &c.SupabaseKey)
	for _, key := range supabaseKeyFallbacks {
		if c.SupabaseKey != "" {
			break
		}
		setString(key, &c.SupabaseKey)
	}

	if err := setInt("UPSTREAM_TIMEOUT_SECONDS", &c.UpstreamTimeoutSeconds); err != nil {
		return err
	}
	if err := setInt("SSE_PING_SECONDS", &c.SSEPingSeconds); err != nil {
		return err
	}
	if v := strings.TrimSpace(getenv("TRACE_STDOUT")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRACE_STDOUT: invalid boolean %q", v)
		}
		c.TraceStdout = b
	}
	return nil
}

func (c *Config) validate() error {
	c.GatewayBackend = strings.ToLower(strings.TrimSpace(c.GatewayBackend))
	switch c.GatewayBackend {
	case BackendPostgREST, BackendPostgres:
	default:
		return fmt.Errorf("unknown gateway backend %q (valid: postgrest, postgres)", c.GatewayBackend)
	}
	if c.UpstreamTimeoutSeconds <= 0 {
		return fmt.Errorf("upstream timeout must be positive, got %d", c.UpstreamTimeoutSeconds)
	}
	if c.SSEPingSeconds < 0 {
		return fmt.Errorf("sse ping interval must not be negative, got %d", c.SSEPingSeconds)
	}
	if !strings.HasPrefix(c.MCPPath, "/") {
		return fmt.Errorf("mcp path must start with /, got %q", c.MCPPath)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	c.SupabaseURL = strings.TrimRight(c.SupabaseURL, "/")
	return nil
}

// MissingGatewaySettings names the settings the selected backend needs but
// does not have. An empty result means the gateway is configured.
func (c *Config) MissingGatewaySettings() []string {
	var missing []string
	switch c.GatewayBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	default:
		if c.SupabaseURL == "" {
			missing = append(missing, "SUPABASE_URL")
		}
		if c.SupabaseKey == "" {
			missing = append(missing, "SUPABASE_KEY")
		}
	}
	return missing
}

func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutSeconds) * time.Second
}

func (c *Config) SSEPingInterval() time.Duration {
	return time.Duration(c.SSEPingSeconds) * time.Second
}

// SlogLevel returns the configured log level. Validation has already
// rejected unknown names.
func (c *Config) SlogLevel() slog.Level {
	lvl, _ := parseLevel(c.LogLevel)
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q (valid: debug, info, warn, error)", s)
}
