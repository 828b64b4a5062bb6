package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/casehub/casehub/internal/core"
	"github.com/casehub/casehub/internal/gateway"
)

// SnippetLength is the maximum number of characters kept in a snippet.
const SnippetLength = 200

// Candidate field names, first non-null wins.
var (
	idFields      = []string{"exhibit_id", "id", "source_id"}
	typeFields    = []string{"type", "source_type"}
	titleFields   = []string{"title", "name"}
	snippetFields = []string{"content", "description"}
)

var resultTypes = map[string]bool{"exhibit": true, "claim": true, "fact": true, "document": true}

// NormalizeRow maps an upstream row to a SearchResult. defaultType is used
// when the row carries no recognised type.
func NormalizeRow(row gateway.Row, defaultType string) core.SearchResult {
	res := core.SearchResult{Type: defaultType}

	if v, ok := firstNonNull(row, idFields...); ok {
		res.ID = gateway.FormatValue(v)
	}
	if v, ok := firstNonNull(row, typeFields...); ok {
		if t := strings.ToLower(gateway.FormatValue(v)); resultTypes[t] {
			res.Type = t
		}
	}
	if v, ok := firstNonNull(row, titleFields...); ok {
		res.Title = gateway.FormatValue(v)
	} else {
		res.Title = res.ID
	}
	if v, ok := firstNonNull(row, snippetFields...); ok {
		res.Snippet = Truncate(gateway.FormatValue(v), SnippetLength)
	}
	if v, ok := firstNonNull(row, "similarity"); ok {
		if f, ok := toFloat(v); ok {
			res.Similarity = &f
		}
	}
	return res
}

func NormalizeRows(rows []gateway.Row, defaultType string) []core.SearchResult {
	out := make([]core.SearchResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, NormalizeRow(r, defaultType))
	}
	return out
}

// Truncate returns the first n characters of s.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// TextResult wraps v as a tool result holding exactly one text block with
// the indented JSON encoding of v.
func TextResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(b))},
	}, nil
}

func firstNonNull(row gateway.Row, fields ...string) (any, bool) {
	for _, f := range fields {
		if v, ok := row[f]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// firstString returns the first non-null candidate rendered as text.
func firstString(row gateway.Row, fields ...string) string {
	v, ok := firstNonNull(row, fields...)
	if !ok {
		return ""
	}
	return gateway.FormatValue(v)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}
