package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"

	"github.com/casehub/casehub/internal/core"
	"github.com/casehub/casehub/internal/telemetry"
)

// Postgres reads the case tables directly over the Postgres wire protocol.
// Rows come back as one JSON array built by json_agg so the result shape
// matches the PostgREST backend.
type Postgres struct {
	conn *sql.DB
}

// OpenPostgres opens a connection pool. It does not verify connectivity;
// call Ping for that.
func OpenPostgres(databaseURL string) (*Postgres, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)
	return &Postgres{conn: conn}, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.conn.Close()
}

func (p *Postgres) Select(ctx context.Context, q Query) ([]Row, error) {
	op := selectOp(q.Table)
	ctx, span := startSpan(ctx, "gateway.select", attribute.String("db.table", q.Table))
	defer span.End()

	stmt, args := BuildSelectSQL(q)
	rows, err := p.queryJSON(ctx, op, stmt, args, q.Table)
	if err != nil {
		return nil, failSpan(span, err)
	}
	span.SetAttributes(attribute.Int("db.rows", len(rows)))
	return rows, nil
}

func (p *Postgres) Count(ctx context.Context, q Query) (int, error) {
	op := countOp(q.Table)
	ctx, span := startSpan(ctx, "gateway.count", attribute.String("db.table", q.Table))
	defer span.End()

	stmt, args := BuildCountSQL(q)
	var n int
	if err := p.conn.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, failSpan(span, p.upstreamErr(op, err))
	}
	return n, nil
}

func (p *Postgres) Call(ctx context.Context, fn string, params map[string]any) ([]Row, error) {
	op := callOp(fn)
	ctx, span := startSpan(ctx, "gateway.call", attribute.String("db.procedure", fn))
	defer span.End()

	stmt, args := BuildCallSQL(fn, params)
	rows, err := p.queryJSON(ctx, op, stmt, args, fn)
	if err != nil {
		return nil, failSpan(span, err)
	}
	return rows, nil
}

func (p *Postgres) queryJSON(ctx context.Context, op, stmt string, args []any, name string) ([]Row, error) {
	var raw []byte
	if err := p.conn.QueryRowContext(ctx, stmt, args...).Scan(&raw); err != nil {
		return nil, p.upstreamErr(op, err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, core.Wrap(core.KindUpstreamUnavailable, err, "decode %s", op)
	}
	return toRows(decoded, name), nil
}

func (p *Postgres) upstreamErr(op string, err error) error {
	telemetry.IncUpstreamError(op, 0)
	return core.Wrap(core.KindUpstreamUnavailable, err, "%s", op)
}

// BuildSelectSQL renders q as a single-value statement returning a JSON
// array of row objects.
func BuildSelectSQL(q Query) (string, []any) {
	var b sqlBuilder
	cols := "*"
	if len(q.Columns) > 0 {
		quoted := make([]string, 0, len(q.Columns))
		for _, c := range q.Columns {
			quoted = append(quoted, pq.QuoteIdentifier(c))
		}
		cols = strings.Join(quoted, ", ")
	}

	inner := "SELECT " + cols + " FROM " + pq.QuoteIdentifier(q.Table) + b.where(q)
	if len(q.Order) > 0 {
		parts := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			parts = append(parts, pq.QuoteIdentifier(o.Column)+" "+dir)
		}
		inner += " ORDER BY " + strings.Join(parts, ", ")
	}
	if q.Limit > 0 {
		inner += " LIMIT " + b.bind(q.Limit)
	}
	if q.Offset > 0 {
		inner += " OFFSET " + b.bind(q.Offset)
	}
	return "SELECT coalesce(json_agg(t), '[]'::json) FROM (" + inner + ") t", b.args
}

func BuildCountSQL(q Query) (string, []any) {
	var b sqlBuilder
	return "SELECT count(*) FROM " + pq.QuoteIdentifier(q.Table) + b.where(q), b.args
}

// BuildCallSQL renders a procedure call using named notation. Parameter
// names are sorted so the statement text is stable.
func BuildCallSQL(fn string, params map[string]any) (string, []any) {
	var b sqlBuilder
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, pq.QuoteIdentifier(name)+" => "+b.bind(params[name]))
	}
	call := pq.QuoteIdentifier(fn) + "(" + strings.Join(parts, ", ") + ")"
	return "SELECT coalesce(json_agg(t), '[]'::json) FROM " + call + " t", b.args
}

type sqlBuilder struct {
	args []any
}

func (b *sqlBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *sqlBuilder) where(q Query) string {
	conds := make([]string, 0, len(q.Filters)+1)
	for _, f := range q.Filters {
		conds = append(conds, b.cond(f))
	}
	if len(q.Any) > 0 {
		alts := make([]string, 0, len(q.Any))
		for _, f := range q.Any {
			alts = append(alts, b.cond(f))
		}
		conds = append(conds, "("+strings.Join(alts, " OR ")+")")
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// cond compares the column as text so string ids match numeric columns the
// same way PostgREST filters do.
func (b *sqlBuilder) cond(f Filter) string {
	col := pq.QuoteIdentifier(f.Column) + "::text"
	switch f.Op {
	case OpILike:
		return col + ` ILIKE ` + b.bind("%"+escapeLike(FormatValue(f.Value))+"%")
	case OpIn:
		values, _ := f.Value.([]string)
		return col + " = ANY(" + b.bind(pq.Array(values)) + ")"
	default:
		return col + " = " + b.bind(FormatValue(f.Value))
	}
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}
