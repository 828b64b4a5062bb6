package core

import (
	"fmt"
	"sort"
	"strings"
)

// Policy enforces the tool allowlist parsed from a comma-separated list.
type Policy struct {
	allowedTools map[string]bool
}

// NewPolicy creates a Policy from a comma-separated allowlist string.
// An empty string means every tool is active.
func NewPolicy(toolCSV string) *Policy {
	return &Policy{allowedTools: parseCSV(toolCSV)}
}

// CheckTool returns an error if toolName is not in the allowlist.
func (p *Policy) CheckTool(toolName string) error {
	if p == nil || len(p.allowedTools) == 0 {
		return nil
	}
	if !p.allowedTools[toolName] {
		return fmt.Errorf("tool %q not in allowlist", toolName)
	}
	return nil
}

// Unknown returns the allowlisted names that are not in known, sorted.
func (p *Policy) Unknown(known []string) []string {
	if p == nil {
		return nil
	}
	set := make(map[string]bool, len(known))
	for _, name := range known {
		set[name] = true
	}
	var out []string
	for name := range p.allowedTools {
		if !set[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func parseCSV(s string) map[string]bool {
	m := make(map[string]bool)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			m[item] = true
		}
	}
	return m
}
