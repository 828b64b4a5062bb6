package tools

import (
	"context"
	"regexp"
	"strings"

	"github.com/casehub/casehub/internal/core"
	"github.com/casehub/casehub/internal/gateway"
)

var exhibitIDPattern = regexp.MustCompile(`(?i)^(ex|fl_|mn_)`)

// fetchStrategy pairs an id-shape predicate with the lookup for that kind.
// A nil envelope with a nil error is a miss.
type fetchStrategy struct {
	kind    string
	matches func(id string) bool
	lookup  func(ctx context.Context, h *handlers, id string) (*core.ResourceEnvelope, error)
}

// fetchStrategies is evaluated in order. The predicates before the final
// document entry are disjoint, so an id is tried as at most one specific
// kind and then as a document.
var fetchStrategies = []fetchStrategy{
	{kind: "exhibit", matches: exhibitIDPattern.MatchString, lookup: lookupExhibit},
	{kind: "claim", matches: looksLikeClaim, lookup: lookupClaim},
	{kind: "fact", matches: looksLikeFact, lookup: lookupFact},
	{kind: "document", matches: func(string) bool { return true }, lookup: lookupDocument},
}

func looksLikeClaim(id string) bool {
	return strings.HasPrefix(id, "claim_") || isDigits(id)
}

func looksLikeFact(id string) bool {
	return strings.HasPrefix(id, "fact_")
}

func (h *handlers) fetch(ctx context.Context, a FetchArgs) (any, error) {
	id := strings.TrimSpace(a.ID)

	var lastErr error
	attempted, failed := 0, 0
	for _, s := range fetchStrategies {
		if !s.matches(id) {
			continue
		}
		attempted++
		env, err := s.lookup(ctx, h, id)
		if err != nil {
			if core.KindOf(err) == core.KindNotConfigured {
				return core.ResourceError{ID: id, Error: err.Error()}, nil
			}
			h.logger.Debug("fetch lookup failed", "trace_id", core.TraceID(ctx), "kind", s.kind, "id", id, "error", err.Error())
			failed++
			lastErr = err
			continue
		}
		if env != nil {
			return env, nil
		}
	}

	if attempted > 0 && failed == attempted {
		return core.ResourceError{ID: id, Error: lastErr.Error()}, nil
	}
	return core.ResourceError{ID: id, Error: "Resource not found"}, nil
}

func (h *handlers) envelopeFrom(ctx context.Context, q gateway.Query, id, kind string, contentFields ...string) (*core.ResourceEnvelope, error) {
	row, err := h.selectOne(ctx, q)
	if err != nil || row == nil {
		return nil, err
	}
	return &core.ResourceEnvelope{
		ID:       id,
		Type:     kind,
		Content:  firstString(row, contentFields...),
		Metadata: row,
	}, nil
}

func lookupExhibit(ctx context.Context, h *handlers, id string) (*core.ResourceEnvelope, error) {
	return h.envelopeFrom(ctx, exhibitQuery(id), id, "exhibit", "content", "description")
}

func lookupClaim(ctx context.Context, h *handlers, id string) (*core.ResourceEnvelope, error) {
	return h.envelopeFrom(ctx, claimQuery(id), id, "claim", "description", "title")
}

// lookupFact matches fact_id against both the raw id and the id with its
// fact_ prefix removed.
func lookupFact(ctx context.Context, h *handlers, id string) (*core.ResourceEnvelope, error) {
	q := gateway.Query{
		Table: tableFacts,
		Any: []gateway.Filter{
			gateway.Eq("fact_id", id),
			gateway.Eq("fact_id", strings.TrimPrefix(id, "fact_")),
		},
		Limit: 1,
	}
	return h.envelopeFrom(ctx, q, id, "fact", "content")
}

func lookupDocument(ctx context.Context, h *handlers, id string) (*core.ResourceEnvelope, error) {
	q := gateway.Query{
		Table:   tableDocuments,
		Filters: []gateway.Filter{gateway.Eq("id", id)},
		Limit:   1,
	}
	return h.envelopeFrom(ctx, q, id, "document", "content")
}
