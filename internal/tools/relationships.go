package tools

import (
	"context"

	"github.com/casehub/casehub/internal/core"
	"github.com/casehub/casehub/internal/gateway"
)

// exhibitRelationships joins exhibit -> facts -> claims -> exhibits on the
// client. Depth is validated and echoed but a single hop is computed.
func (h *handlers) exhibitRelationships(ctx context.Context, a RelationshipsArgs) (any, error) {
	out := core.Relationships{
		ExhibitID:       a.ExhibitID,
		RelatedClaims:   []string{},
		RelatedExhibits: []string{},
		Depth:           a.Depth,
	}

	facts, err := h.gw.Select(ctx, gateway.Query{
		Table:   tableFacts,
		Columns: []string{"claim_id"},
		Filters: []gateway.Filter{gateway.Eq("exhibit_id", a.ExhibitID)},
	})
	if err != nil {
		return nil, err
	}

	seenClaims := make(map[string]bool)
	for _, f := range facts {
		v, ok := f["claim_id"]
		if !ok || v == nil {
			continue
		}
		id := gateway.FormatValue(v)
		if id == "" || seenClaims[id] {
			continue
		}
		seenClaims[id] = true
		out.RelatedClaims = append(out.RelatedClaims, id)
	}
	if len(out.RelatedClaims) == 0 {
		return out, nil
	}

	claims, err := h.gw.Select(ctx, gateway.Query{
		Table:   tableClaims,
		Columns: []string{"claim_id", "exhibit_ids"},
		Filters: []gateway.Filter{gateway.In("claim_id", out.RelatedClaims)},
	})
	if err != nil {
		return nil, err
	}

	byClaim := make(map[string][]string, len(claims))
	for _, c := range claims {
		id := gateway.FormatValue(c["claim_id"])
		byClaim[id] = append(byClaim[id], exhibitIDs(c["exhibit_ids"])...)
	}

	seenExhibits := map[string]bool{a.ExhibitID: true}
	for _, claimID := range out.RelatedClaims {
		for _, ex := range byClaim[claimID] {
			if seenExhibits[ex] {
				continue
			}
			seenExhibits[ex] = true
			out.RelatedExhibits = append(out.RelatedExhibits, ex)
		}
	}
	return out, nil
}
