// Package gatewaytest provides an in-memory Gateway for handler tests.
package gatewaytest

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/casehub/casehub/internal/gateway"
)

// Call records one request made against Memory.
type Call struct {
	Method string
	Target string
	Query  gateway.Query
	Params map[string]any
}

// ProcFunc answers a procedure call.
type ProcFunc func(params map[string]any) ([]gateway.Row, error)

// Memory evaluates queries over fixture rows. Failures are injected per
// table or per procedure name through Fail.
type Memory struct {
	mu     sync.Mutex
	tables map[string][]gateway.Row
	procs  map[string]ProcFunc
	fail   map[string]error
	calls  []Call
}

func NewMemory() *Memory {
	return &Memory{
		tables: make(map[string][]gateway.Row),
		procs:  make(map[string]ProcFunc),
		fail:   make(map[string]error),
	}
}

// Seed appends rows to table.
func (m *Memory) Seed(table string, rows ...gateway.Row) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table] = append(m.tables[table], rows...)
	return m
}

func (m *Memory) Proc(name string, fn ProcFunc) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.procs[name] = fn
	return m
}

// Fail makes every request to target (a table or procedure name) return err.
func (m *Memory) Fail(target string, err error) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[target] = err
	return m
}

func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsTo returns the recorded calls for one table or procedure.
func (m *Memory) CallsTo(target string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Target == target {
			out = append(out, c)
		}
	}
	return out
}

func (m *Memory) Select(ctx context.Context, q gateway.Query) ([]gateway.Row, error) {
	rows, err := m.match("select", q)
	if err != nil {
		return nil, err
	}
	if len(q.Order) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			for _, o := range q.Order {
				c := compare(rows[i][o.Column], rows[j][o.Column])
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if q.Offset > 0 {
		if q.Offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[q.Offset:]
		}
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	out := make([]gateway.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, project(r, q.Columns))
	}
	return out, nil
}

func (m *Memory) Count(ctx context.Context, q gateway.Query) (int, error) {
	rows, err := m.match("count", q)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (m *Memory) Call(ctx context.Context, fn string, params map[string]any) ([]gateway.Row, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Method: "call", Target: fn, Params: params})
	failErr := m.fail[fn]
	proc := m.procs[fn]
	m.mu.Unlock()

	if failErr != nil {
		return nil, failErr
	}
	if proc == nil {
		return []gateway.Row{}, nil
	}
	return proc(params)
}

func (m *Memory) match(method string, q gateway.Query) ([]gateway.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: method, Target: q.Table, Query: q})
	if err := m.fail[q.Table]; err != nil {
		return nil, err
	}

	var out []gateway.Row
	for _, r := range m.tables[q.Table] {
		if matchesAll(r, q.Filters) && matchesAny(r, q.Any) {
			out = append(out, r)
		}
	}
	return out, nil
}

func matchesAll(r gateway.Row, filters []gateway.Filter) bool {
	for _, f := range filters {
		if !matches(r, f) {
			return false
		}
	}
	return true
}

func matchesAny(r gateway.Row, filters []gateway.Filter) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if matches(r, f) {
			return true
		}
	}
	return false
}

func matches(r gateway.Row, f gateway.Filter) bool {
	v, ok := r[f.Column]
	if !ok || v == nil {
		return false
	}
	got := gateway.FormatValue(v)
	switch f.Op {
	case gateway.OpILike:
		return strings.Contains(strings.ToLower(got), strings.ToLower(gateway.FormatValue(f.Value)))
	case gateway.OpIn:
		values, _ := f.Value.([]string)
		for _, want := range values {
			if got == want {
				return true
			}
		}
		return false
	default:
		return got == gateway.FormatValue(f.Value)
	}
}

func project(r gateway.Row, cols []string) gateway.Row {
	out := make(gateway.Row, len(r))
	if len(cols) == 0 || (len(cols) == 1 && cols[0] == "*") {
		for k, v := range r {
			out[k] = v
		}
		return out
	}
	for _, c := range cols {
		if v, ok := r[c]; ok {
			out[c] = v
		}
	}
	return out
}

func compare(a, b any) int {
	as, bs := gateway.FormatValue(a), gateway.FormatValue(b)
	af, aerr := strconv.ParseFloat(as, 64)
	bf, berr := strconv.ParseFloat(bs, 64)
	if aerr == nil && berr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(as, bs)
}
