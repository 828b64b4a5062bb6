// Package gateway is the read-only client side of the upstream case store.
// Handlers depend only on the Gateway interface; the PostgREST and Postgres
// backends and the unconfigured stub implement it.
package gateway

import (
	"context"
	"fmt"
	"strconv"
)

// Row is one decoded upstream record.
type Row = map[string]any

type Gateway interface {
	// Select returns the rows matching q, in q's order.
	Select(ctx context.Context, q Query) ([]Row, error)
	// Count returns the number of rows matching q's filters.
	Count(ctx context.Context, q Query) (int, error)
	// Call invokes a server-side procedure with named parameters.
	Call(ctx context.Context, fn string, params map[string]any) ([]Row, error)
}

type Op string

const (
	OpEq    Op = "eq"
	OpILike Op = "ilike"
	OpIn    Op = "in"
)

// Filter is a single column predicate. For OpILike the value is the raw
// substring; backends add the wildcards. For OpIn the value is a []string.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

func ILike(column, substring string) Filter {
	return Filter{Column: column, Op: OpILike, Value: substring}
}

func In(column string, values []string) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

type Order struct {
	Column string
	Desc   bool
}

// Query is a filtered read of one table. Filters are combined with AND;
// the Any group, when present, must have at least one match.
// Limit 0 means no limit.
type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	Any     []Filter
	Order   []Order
	Limit   int
	Offset  int
}

// Where appends AND filters and returns q for chaining.
func (q Query) Where(filters ...Filter) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), filters...)
	return q
}

// FormatValue renders a filter or row value as text. Whole floats are
// written without a fractional part so 42.0 and 42 compare equal.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func selectOp(table string) string { return table + " select" }
func countOp(table string) string  { return table + " count" }
func callOp(fn string) string      { return "rpc " + fn }
