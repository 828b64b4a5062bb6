package core

import (
	"fmt"
	"strings"
)

// ProfileDefaults holds deployment-specific default configuration values.
// Profiles provide defaults only; the config file and env vars always override.
type ProfileDefaults struct {
	Name string

	// Tools is the comma-separated active tool subset. Empty means every tool.
	Tools string

	UpstreamTimeoutSeconds int
	SSEPingSeconds         int
	LogLevel               string
}

var profiles = map[string]*ProfileDefaults{
	"dev": {
		Name:                   "dev",
		Tools:                  "",
		UpstreamTimeoutSeconds: 30,
		SSEPingSeconds:         30,
		LogLevel:               "debug",
	},
	"staging": {
		Name:                   "staging",
		Tools:                  "",
		UpstreamTimeoutSeconds: 30,
		SSEPingSeconds:         30,
		LogLevel:               "info",
	},
	"prod": {
		Name:                   "prod",
		Tools:                  "",
		UpstreamTimeoutSeconds: 15,
		SSEPingSeconds:         30,
		LogLevel:               "info",
	},
	"chatgpt": {
		Name:                   "chatgpt",
		Tools:                  "search,fetch",
		UpstreamTimeoutSeconds: 15,
		SSEPingSeconds:         30,
		LogLevel:               "info",
	},
}

// LoadProfile returns profile defaults for the given name.
// Empty name defaults to "dev". Unknown names return an error.
func LoadProfile(name string) (*ProfileDefaults, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		name = "dev"
	}
	p, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q (valid: dev, staging, prod, chatgpt)", name)
	}
	copy := *p
	return &copy, nil
}
