package core

// SearchResult is the normalized shape of one search hit.
type SearchResult struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Title      string   `json:"title"`
	Snippet    string   `json:"snippet"`
	Similarity *float64 `json:"similarity,omitempty"`
}

// SearchResponse is returned by search, vector_search_embeddings and
// keyword_search. Method is only set by search.
type SearchResponse struct {
	Results     []SearchResult `json:"results"`
	ResultCount int            `json:"resultCount"`
	Method      string         `json:"method,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// ResourceEnvelope is the result of the universal fetch tool.
type ResourceEnvelope struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// ResourceError is returned by fetch when no lookup produced a record.
type ResourceError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// ExhibitEnvelope is the result of fetch_exhibit.
type ExhibitEnvelope struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

type RiskScores struct {
	Financial float64 `json:"financial"`
	Legal     float64 `json:"legal"`
}

// RiskAssessment is derived per call from a claim record and never stored.
type RiskAssessment struct {
	ClaimID      string         `json:"claim_id"`
	OverallRisk  string         `json:"overall_risk"`
	OverallScore *float64       `json:"overall_score,omitempty"`
	RiskScores   *RiskScores    `json:"risk_scores,omitempty"`
	Factors      map[string]any `json:"factors"`
}

type Relationships struct {
	ExhibitID       string   `json:"exhibit_id"`
	RelatedClaims   []string `json:"related_claims"`
	RelatedExhibits []string `json:"related_exhibits"`
	Depth           int      `json:"depth"`
}

type CaseStatistics struct {
	CaseName   string     `json:"case_name"`
	Statistics Statistics `json:"statistics"`
}

type Statistics struct {
	TotalExhibits int `json:"total_exhibits"`
	TotalClaims   int `json:"total_claims"`
	TotalFacts    int `json:"total_facts"`
}
