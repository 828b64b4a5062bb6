package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryWhereDoesNotAlias(t *testing.T) {
	base := Query{Table: "facts", Filters: make([]Filter, 1, 4)}
	base.Filters[0] = Eq("claim_id", "c1")

	a := base.Where(Eq("fact_type", "damage"))
	b := base.Where(Eq("fact_type", "timeline"))

	assert.Len(t, base.Filters, 1)
	assert.Equal(t, []Filter{Eq("claim_id", "c1"), Eq("fact_type", "damage")}, a.Filters)
	assert.Equal(t, []Filter{Eq("claim_id", "c1"), Eq("fact_type", "timeline")}, b.Filters)
}

func TestQueryWhereNothing(t *testing.T) {
	q := Query{Table: "exhibits"}.Where()
	assert.Empty(t, q.Filters)
}
