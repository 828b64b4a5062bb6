package tools

import (
	"log/slog"

	"github.com/casehub/casehub/internal/gateway"
)

type handlers struct {
	gw     gateway.Gateway
	logger *slog.Logger
}

type SearchArgs struct {
	Query  string `json:"query" jsonschema:"required" jsonschema_description:"Text to search for across exhibits and embedded case material"`
	Limit  int    `json:"limit" jsonschema:"default=20,minimum=1,maximum=1000" jsonschema_description:"Maximum number of results"`
	Offset int    `json:"offset" jsonschema:"default=0,minimum=0,maximum=100000" jsonschema_description:"Number of results to skip"`
}

type FetchArgs struct {
	ID string `json:"id" jsonschema:"required" jsonschema_description:"Identifier of an exhibit or claim or fact or document"`
}

type VectorSearchArgs struct {
	Query     string  `json:"query" jsonschema:"required" jsonschema_description:"Text to embed and match"`
	Limit     int     `json:"limit" jsonschema:"default=20,minimum=1,maximum=1000" jsonschema_description:"Maximum number of results"`
	Threshold float64 `json:"threshold" jsonschema:"default=0.7,minimum=0,maximum=1" jsonschema_description:"Minimum similarity between 0 and 1"`
}

type KeywordSearchArgs struct {
	Query string `json:"query" jsonschema:"required" jsonschema_description:"Substring matched against exhibit title and description and content"`
	Limit int    `json:"limit" jsonschema:"default=20,minimum=1,maximum=1000" jsonschema_description:"Maximum number of results"`
}

type ExhibitIDArgs struct {
	ID string `json:"id" jsonschema:"required" jsonschema_description:"Exhibit identifier such as Ex001"`
}

type ListExhibitsArgs struct {
	CaseType string `json:"case_type" jsonschema_description:"Only exhibits of this case type"`
	Limit    int    `json:"limit" jsonschema:"default=50,minimum=1,maximum=1000" jsonschema_description:"Maximum number of rows"`
	Offset   int    `json:"offset" jsonschema:"default=0,minimum=0,maximum=100000" jsonschema_description:"Number of rows to skip"`
}

type ClaimIDArgs struct {
	ClaimID string `json:"claim_id" jsonschema:"required" jsonschema_description:"Claim identifier"`
}

type ListClaimsArgs struct {
	ClaimType string `json:"claim_type" jsonschema_description:"Only claims of this type"`
	Status    string `json:"status" jsonschema_description:"Only claims with this status"`
	Limit     int    `json:"limit" jsonschema:"default=50,minimum=1,maximum=1000" jsonschema_description:"Maximum number of rows"`
}

type FactsByClaimArgs struct {
	ClaimID         string `json:"claim_id" jsonschema:"required" jsonschema_description:"Claim identifier"`
	FactType        string `json:"fact_type" jsonschema_description:"Only facts of this type"`
	IncludeMetadata bool   `json:"includeMetadata" jsonschema:"default=false" jsonschema_description:"Return every fact column"`
}

type FactsByExhibitArgs struct {
	ExhibitID string `json:"exhibit_id" jsonschema:"required" jsonschema_description:"Exhibit identifier"`
	FactType  string `json:"fact_type" jsonschema_description:"Only facts of this type"`
}

type RelationshipsArgs struct {
	ExhibitID string `json:"exhibit_id" jsonschema:"required" jsonschema_description:"Exhibit identifier"`
	Depth     int    `json:"depth" jsonschema:"default=1,minimum=1,maximum=3" jsonschema_description:"Traversal depth (only one hop is computed)"`
}

type EntitiesArgs struct {
	EntityType string `json:"entity_type" jsonschema_description:"Only entities of this type"`
	Role       string `json:"role" jsonschema_description:"Only entities with this role"`
}

type IndividualsArgs struct {
	Role     string `json:"role" jsonschema_description:"Only individuals with this role"`
	EntityID string `json:"entity_id" jsonschema_description:"Only individuals linked to this entity"`
}

type CaseStatisticsArgs struct {
	CaseName string `json:"case_name" jsonschema_description:"Restrict counts to one case"`
}

func registerAll(r *Registry, h *handlers) {
	register[SearchArgs](r, "search", "Search case material. Tries vector similarity first and falls back to keyword matching.", h.search)
	register[FetchArgs](r, "fetch", "Fetch one resource by id. The kind is inferred from the id shape.", h.fetch)
	register[VectorSearchArgs](r, "vector_search_embeddings", "Similarity search over precomputed embeddings.", h.vectorSearchTool)
	register[KeywordSearchArgs](r, "keyword_search", "Case-insensitive substring search over exhibits.", h.keywordSearchTool)
	register[ExhibitIDArgs](r, "fetch_exhibit", "Fetch a single exhibit.", h.fetchExhibit)
	register[ListExhibitsArgs](r, "list_exhibits", "List exhibits ordered by exhibit id.", h.listExhibits)
	register[ClaimIDArgs](r, "fetch_claim", "Fetch a single claim.", h.fetchClaim)
	register[ListClaimsArgs](r, "list_claims", "List claims ordered by claim id.", h.listClaims)
	register[FactsByClaimArgs](r, "get_facts_by_claim", "List the facts supporting a claim.", h.factsByClaim)
	register[FactsByExhibitArgs](r, "get_facts_by_exhibit", "List the facts drawn from an exhibit.", h.factsByExhibit)
	register[ClaimIDArgs](r, "analyze_claim_risk", "Score a claim's financial and legal risk.", h.analyzeClaimRisk)
	register[RelationshipsArgs](r, "get_exhibit_relationships", "Find claims and exhibits connected to an exhibit through shared facts.", h.exhibitRelationships)
	register[EntitiesArgs](r, "get_entities", "List case entities.", h.entities)
	register[IndividualsArgs](r, "get_individuals", "List individuals involved in the case.", h.individuals)
	register[CaseStatisticsArgs](r, "get_case_statistics", "Count exhibits and claims and facts.", h.caseStatistics)
}
