package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/casehub/casehub/internal/gateway"
	"github.com/casehub/casehub/internal/gateway/gatewaytest"
)

func newHandlers(gw gateway.Gateway) *handlers {
	return &handlers{gw: gw, logger: slog.New(slog.DiscardHandler)}
}

// callTool runs name through a full registry and returns the result
// re-decoded from JSON, the way a client sees it.
func callTool(t *testing.T, r *Registry, name string, args any) (map[string]any, error) {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)

	res, err := r.Call(context.Background(), name, raw)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(res)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	return out, nil
}

func seededMemory() *gatewaytest.Memory {
	return gatewaytest.NewMemory().
		Seed("exhibits",
			gateway.Row{"exhibit_id": "Ex001", "title": "Water damage photo", "description": "Kitchen ceiling", "content": nil, "case_type": "civil"},
			gateway.Row{"exhibit_id": "Ex002", "title": "Invoice", "description": "Plumber invoice", "content": "Invoice for leak repair", "case_type": "civil"},
			gateway.Row{"exhibit_id": "FL_003", "title": "Flood report", "description": nil, "content": "Flood report body", "case_type": "insurance"},
		).
		Seed("claims",
			gateway.Row{"id": 1.0, "claim_id": "claim_001", "claim_type": "breach", "status": "open", "title": "Breach of lease", "description": "Landlord failed to repair", "damages_estimate": 2000000.0, "exhibit_ids": []any{"Ex001"}},
			gateway.Row{"id": 2.0, "claim_id": "claim_002", "claim_type": "negligence", "status": "closed", "title": "Negligence", "description": nil, "damages_estimate": 0.0, "exhibit_ids": []any{}},
		).
		Seed("facts",
			gateway.Row{"fact_id": "17", "claim_id": "claim_001", "exhibit_id": "Ex001", "fact_type": "damage", "content": "Ceiling collapsed"},
		).
		Seed("documents",
			gateway.Row{"id": "doc-9", "title": "Lease", "content": "Lease agreement text"},
		)
}
