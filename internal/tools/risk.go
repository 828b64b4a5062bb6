package tools

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/casehub/casehub/internal/core"
	"github.com/casehub/casehub/internal/gateway"
)

const procClaimStrength = "calculate_claim_strength"

// ScoreRisk applies the fixed risk formula:
//
//	financial = min(damages/1e6, 1) when damages > 0, else 0.5
//	legal     = 0.4 with at least one exhibit, else 0.8
//	overall   = (financial + legal) / 2
func ScoreRisk(damages float64, hasDamages bool, exhibitCount int) (financial, legal, overall float64) {
	financial = 0.5
	if hasDamages && damages > 0 {
		financial = math.Min(damages/1_000_000, 1)
	}
	legal = 0.8
	if exhibitCount > 0 {
		legal = 0.4
	}
	overall = (financial + legal) / 2
	return financial, legal, overall
}

func RiskBucket(overall float64) string {
	switch {
	case overall < 0.3:
		return "low"
	case overall < 0.6:
		return "moderate"
	default:
		return "high"
	}
}

func (h *handlers) analyzeClaimRisk(ctx context.Context, a ClaimIDArgs) (any, error) {
	claim, err := h.selectOne(ctx, claimQuery(a.ClaimID))
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, core.Errorf(core.KindNotFound, "Claim %s not found", a.ClaimID)
	}

	exhibits := exhibitIDs(claim["exhibit_ids"])
	factors := map[string]any{
		"damages_estimate": claim["damages_estimate"],
		"exhibit_count":    len(exhibits),
		"claim_type":       claim["claim_type"],
		"status":           claim["status"],
	}
	if strength, ok := h.claimStrength(ctx, claim, a.ClaimID); ok {
		factors["claim_strength"] = strength
	}

	assessment := core.RiskAssessment{ClaimID: a.ClaimID, Factors: factors}

	_, hasDamagesField := claim["damages_estimate"]
	_, hasExhibitsField := claim["exhibit_ids"]
	if !hasDamagesField && !hasExhibitsField {
		assessment.OverallRisk = "unknown"
		return assessment, nil
	}

	damages, hasDamages := toFloat(claim["damages_estimate"])
	financial, legal, overall := ScoreRisk(damages, hasDamages, len(exhibits))
	assessment.OverallRisk = RiskBucket(overall)
	assessment.OverallScore = &overall
	assessment.RiskScores = &core.RiskScores{Financial: financial, Legal: legal}
	return assessment, nil
}

// claimStrength asks the upstream procedure for a strength score. Failure
// only drops the factor.
func (h *handlers) claimStrength(ctx context.Context, claim gateway.Row, fallbackID string) (any, bool) {
	id := fallbackID
	if v, ok := claim["claim_id"]; ok && v != nil {
		id = gateway.FormatValue(v)
	}
	rows, err := h.gw.Call(ctx, procClaimStrength, map[string]any{"claim_id_param": id})
	if err != nil {
		h.logger.Debug("claim strength unavailable", "trace_id", core.TraceID(ctx), "claim_id", id, "error", err.Error())
		return nil, false
	}
	if len(rows) == 0 {
		return nil, false
	}
	row := rows[0]
	if len(row) == 1 {
		for _, v := range row {
			return v, true
		}
	}
	return row, true
}

// exhibitIDs reads an exhibit id list stored as a JSON array, a JSON
// encoded string or a comma-separated string.
func exhibitIDs(v any) []string {
	var out []string
	switch x := v.(type) {
	case []any:
		for _, item := range x {
			if item != nil {
				out = append(out, gateway.FormatValue(item))
			}
		}
	case []string:
		out = append(out, x...)
	case string:
		s := strings.TrimSpace(x)
		if strings.HasPrefix(s, "[") {
			var decoded []any
			if json.Unmarshal([]byte(s), &decoded) == nil {
				return exhibitIDs(decoded)
			}
		}
		s = strings.Trim(s, "{}")
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
