package tools

import (
	"context"

	"github.com/casehub/casehub/internal/core"
	"github.com/casehub/casehub/internal/gateway"
)

const (
	tableExhibits    = "exhibits"
	tableClaims      = "claims"
	tableFacts       = "facts"
	tableDocuments   = "documents"
	tableEntities    = "entities"
	tableIndividuals = "individuals"
)

var factSummaryColumns = []string{"fact_id", "claim_id", "exhibit_id", "fact_type", "content"}

// optionalEq returns an eq filter, or nothing when value is empty.
func optionalEq(column, value string) []gateway.Filter {
	if value == "" {
		return nil
	}
	return []gateway.Filter{gateway.Eq(column, value)}
}

func exhibitQuery(id string) gateway.Query {
	return gateway.Query{
		Table:   tableExhibits,
		Filters: []gateway.Filter{gateway.Eq("exhibit_id", id)},
		Limit:   1,
	}
}

// claimQuery matches a claim by its claim_id. A purely numeric id may also
// be the row's primary key.
func claimQuery(id string) gateway.Query {
	q := gateway.Query{Table: tableClaims, Limit: 1}
	if isDigits(id) {
		q.Any = []gateway.Filter{gateway.Eq("id", id), gateway.Eq("claim_id", id)}
	} else {
		q.Filters = []gateway.Filter{gateway.Eq("claim_id", id)}
	}
	return q
}

func keywordQuery(query string, limit, offset int) gateway.Query {
	return gateway.Query{
		Table: tableExhibits,
		Any: []gateway.Filter{
			gateway.ILike("title", query),
			gateway.ILike("description", query),
			gateway.ILike("content", query),
		},
		Order:  []gateway.Order{{Column: "exhibit_id"}},
		Limit:  limit,
		Offset: offset,
	}
}

func (h *handlers) selectOne(ctx context.Context, q gateway.Query) (gateway.Row, error) {
	rows, err := h.gw.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (h *handlers) selectRows(ctx context.Context, q gateway.Query) ([]gateway.Row, error) {
	rows, err := h.gw.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []gateway.Row{}
	}
	return rows, nil
}

func (h *handlers) fetchExhibit(ctx context.Context, a ExhibitIDArgs) (any, error) {
	row, err := h.selectOne(ctx, exhibitQuery(a.ID))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, core.Errorf(core.KindNotFound, "Exhibit %s not found", a.ID)
	}
	return core.ExhibitEnvelope{
		ID:       a.ID,
		Type:     "exhibit",
		Title:    firstString(row, "title"),
		Content:  firstString(row, "content", "description"),
		Metadata: row,
	}, nil
}

func (h *handlers) listExhibits(ctx context.Context, a ListExhibitsArgs) (any, error) {
	return h.selectRows(ctx, gateway.Query{
		Table:  tableExhibits,
		Order:  []gateway.Order{{Column: "exhibit_id"}},
		Limit:  a.Limit,
		Offset: a.Offset,
	}.Where(optionalEq("case_type", a.CaseType)...))
}

func (h *handlers) fetchClaim(ctx context.Context, a ClaimIDArgs) (any, error) {
	row, err := h.selectOne(ctx, claimQuery(a.ClaimID))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, core.Errorf(core.KindNotFound, "Claim %s not found", a.ClaimID)
	}
	return map[string]any{"claim": row}, nil
}

func (h *handlers) listClaims(ctx context.Context, a ListClaimsArgs) (any, error) {
	q := gateway.Query{
		Table: tableClaims,
		Order: []gateway.Order{{Column: "claim_id"}},
		Limit: a.Limit,
	}
	q = q.Where(optionalEq("claim_type", a.ClaimType)...).Where(optionalEq("status", a.Status)...)
	return h.selectRows(ctx, q)
}

func (h *handlers) factsByClaim(ctx context.Context, a FactsByClaimArgs) (any, error) {
	q := gateway.Query{
		Table:   tableFacts,
		Columns: factSummaryColumns,
		Filters: []gateway.Filter{gateway.Eq("claim_id", a.ClaimID)},
		Order:   []gateway.Order{{Column: "fact_id"}},
	}.Where(optionalEq("fact_type", a.FactType)...)
	if a.IncludeMetadata {
		q.Columns = nil
	}
	return h.selectRows(ctx, q)
}

func (h *handlers) factsByExhibit(ctx context.Context, a FactsByExhibitArgs) (any, error) {
	return h.selectRows(ctx, gateway.Query{
		Table:   tableFacts,
		Filters: []gateway.Filter{gateway.Eq("exhibit_id", a.ExhibitID)},
		Order:   []gateway.Order{{Column: "fact_id"}},
	}.Where(optionalEq("fact_type", a.FactType)...))
}

func (h *handlers) entities(ctx context.Context, a EntitiesArgs) (any, error) {
	q := gateway.Query{Table: tableEntities, Order: []gateway.Order{{Column: "entity_id"}}}
	return h.selectRows(ctx, q.Where(optionalEq("entity_type", a.EntityType)...).Where(optionalEq("role", a.Role)...))
}

func (h *handlers) individuals(ctx context.Context, a IndividualsArgs) (any, error) {
	q := gateway.Query{Table: tableIndividuals, Order: []gateway.Order{{Column: "individual_id"}}}
	return h.selectRows(ctx, q.Where(optionalEq("role", a.Role)...).Where(optionalEq("entity_id", a.EntityID)...))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
