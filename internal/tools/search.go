package tools

import (
	"context"

	"github.com/casehub/casehub/internal/core"
	"github.com/casehub/casehub/internal/telemetry"
)

const (
	procSearchEmbeddings = "search_embeddings"
	defaultThreshold     = 0.7

	methodVector  = "vector"
	methodKeyword = "keyword"
)

// vectorSearch asks the upstream for embedding matches. Rows without a
// recognised type are reported as documents.
func (h *handlers) vectorSearch(ctx context.Context, query string, limit int, threshold float64) ([]core.SearchResult, error) {
	rows, err := h.gw.Call(ctx, procSearchEmbeddings, map[string]any{
		"query_text":      query,
		"match_threshold": threshold,
		"match_count":     limit,
	})
	if err != nil {
		return nil, err
	}
	return NormalizeRows(rows, "document"), nil
}

func (h *handlers) keywordSearch(ctx context.Context, query string, limit, offset int) ([]core.SearchResult, error) {
	rows, err := h.gw.Select(ctx, keywordQuery(query, limit, offset))
	if err != nil {
		return nil, err
	}
	return NormalizeRows(rows, "exhibit"), nil
}

// search runs the vector attempt and falls back to keyword matching when it
// fails or finds nothing. The vector procedure has no offset, so it is
// asked for limit+offset matches and the first offset are dropped.
func (h *handlers) search(ctx context.Context, a SearchArgs) (any, error) {
	if a.Offset < 0 {
		a.Offset = 0
	}
	results, err := h.vectorSearch(ctx, a.Query, a.Limit+a.Offset, defaultThreshold)
	if err == nil && len(results) > a.Offset {
		results = results[a.Offset:]
		telemetry.IncSearchMethod(methodVector)
		return core.SearchResponse{Results: results, ResultCount: len(results), Method: methodVector}, nil
	}
	if err != nil {
		h.logger.Debug("vector search failed, using keyword search", "trace_id", core.TraceID(ctx), "error", err.Error())
	}

	telemetry.IncSearchMethod(methodKeyword)
	results, err = h.keywordSearch(ctx, a.Query, a.Limit, a.Offset)
	if err != nil {
		return core.SearchResponse{Results: []core.SearchResult{}, Method: methodKeyword, Error: err.Error()}, nil
	}
	return core.SearchResponse{Results: results, ResultCount: len(results), Method: methodKeyword}, nil
}

func (h *handlers) vectorSearchTool(ctx context.Context, a VectorSearchArgs) (any, error) {
	results, err := h.vectorSearch(ctx, a.Query, a.Limit, a.Threshold)
	if err != nil {
		return nil, err
	}
	return core.SearchResponse{Results: results, ResultCount: len(results)}, nil
}

func (h *handlers) keywordSearchTool(ctx context.Context, a KeywordSearchArgs) (any, error) {
	results, err := h.keywordSearch(ctx, a.Query, a.Limit, 0)
	if err != nil {
		return nil, err
	}
	return core.SearchResponse{Results: results, ResultCount: len(results)}, nil
}
