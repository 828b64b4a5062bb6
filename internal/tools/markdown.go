package tools

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// RenderMarkdown writes a tool reference: one entry per tool with its
// description and its inputs, marking required ones and showing defaults
// and constraints.
func RenderMarkdown(w io.Writer, defs []ToolDescriptor) error {
	var b strings.Builder
	b.WriteString("# MCP Tools (Generated)\n\n")
	b.WriteString("This file is generated by `cmd/mcpdocgen` from the tool registry.\n\n")

	for _, d := range defs {
		fmt.Fprintf(&b, "- `%s`\n", d.Name)
		if d.Description != "" {
			fmt.Fprintf(&b, "  - Description: %s\n", d.Description)
		}

		props, _ := d.InputSchema["properties"].(map[string]any)
		requiredSet := make(map[string]bool)
		if req, ok := d.InputSchema["required"].([]any); ok {
			for _, r := range req {
				if s, ok := r.(string); ok {
					requiredSet[s] = true
				}
			}
		}

		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		if len(keys) > 0 {
			b.WriteString("  - Input:\n")
			for _, k := range keys {
				req := "optional"
				if requiredSet[k] {
					req = "required"
				}
				prop, _ := props[k].(map[string]any)
				fmt.Fprintf(&b, "    - `%s` (%s%s)\n", k, req, propertyDetails(prop))
			}
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func propertyDetails(prop map[string]any) string {
	var parts []string
	if t, ok := prop["type"].(string); ok {
		parts = append(parts, t)
	}
	if v, ok := prop["default"]; ok {
		parts = append(parts, fmt.Sprintf("default %v", v))
	}
	lo, hasLo := prop["minimum"]
	hi, hasHi := prop["maximum"]
	switch {
	case hasLo && hasHi:
		parts = append(parts, fmt.Sprintf("range %v..%v", lo, hi))
	case hasLo:
		parts = append(parts, fmt.Sprintf("min %v", lo))
	case hasHi:
		parts = append(parts, fmt.Sprintf("max %v", hi))
	}
	if len(parts) == 0 {
		return ""
	}
	return ", " + strings.Join(parts, ", ")
}
