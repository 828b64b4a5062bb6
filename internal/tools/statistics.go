package tools

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/casehub/casehub/internal/core"
	"github.com/casehub/casehub/internal/gateway"
)

// caseStatistics issues the three counts concurrently; they share no state.
func (h *handlers) caseStatistics(ctx context.Context, a CaseStatisticsArgs) (any, error) {
	filters := optionalEq("case_name", a.CaseName)

	var stats core.Statistics
	g, gctx := errgroup.WithContext(ctx)
	count := func(table string, dst *int) {
		g.Go(func() error {
			n, err := h.gw.Count(gctx, gateway.Query{Table: table}.Where(filters...))
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}
	count(tableExhibits, &stats.TotalExhibits)
	count(tableClaims, &stats.TotalClaims)
	count(tableFacts, &stats.TotalFacts)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	name := a.CaseName
	if name == "" {
		name = "all"
	}
	return core.CaseStatistics{CaseName: name, Statistics: stats}, nil
}
