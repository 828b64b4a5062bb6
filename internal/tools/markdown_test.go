package tools

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown(t *testing.T) {
	r := NewRegistry(nil, nil, nil)

	var b strings.Builder
	require.NoError(t, RenderMarkdown(&b, r.All()))
	out := b.String()

	assert.True(t, strings.HasPrefix(out, "# MCP Tools (Generated)\n"))
	for _, name := range declaredTools {
		assert.Contains(t, out, "- `"+name+"`\n")
	}
	assert.Contains(t, out, "    - `query` (required, string)\n")
	assert.Contains(t, out, "    - `limit` (optional, integer, default 20, range 1..1000)\n")
	assert.Contains(t, out, "    - `offset` (optional, integer, default 0, range 0..100000)\n")
	assert.Contains(t, out, "    - `threshold` (optional, number, default 0.7, range 0..1)\n")
	assert.Contains(t, out, "    - `includeMetadata` (optional, boolean, default false)\n")

	assert.Less(t, strings.Index(out, "`search`"), strings.Index(out, "`get_case_statistics`"))
}
