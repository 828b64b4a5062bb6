package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/casehub/casehub/internal/core"
	"github.com/casehub/casehub/internal/telemetry"
)

const maxErrorBody = 512

// PostgREST talks to a Supabase-style REST interface under {base}/rest/v1.
type PostgREST struct {
	baseURL    string
	key        string
	httpClient *http.Client
}

func NewPostgREST(baseURL, key string, timeout time.Duration) *PostgREST {
	return &PostgREST{
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        key,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s HTTP %d: %s", e.Operation, e.StatusCode, e.Body)
}

func (e *APIError) ErrorCode() string {
	return string(core.KindUpstreamUnavailable)
}

func (c *PostgREST) Select(ctx context.Context, q Query) ([]Row, error) {
	op := selectOp(q.Table)
	ctx, span := startSpan(ctx, "gateway.select", attribute.String("db.table", q.Table))
	defer span.End()

	resp, err := c.do(ctx, op, http.MethodGet, c.tableURL(q.Table, EncodeQuery(q)), nil, nil)
	if err != nil {
		return nil, failSpan(span, err)
	}
	defer resp.Body.Close()

	rows, err := decodeRows(resp.Body, q.Table)
	if err != nil {
		return nil, failSpan(span, core.Wrap(core.KindUpstreamUnavailable, err, "decode %s", op))
	}
	span.SetAttributes(attribute.Int("db.rows", len(rows)))
	return rows, nil
}

func (c *PostgREST) Count(ctx context.Context, q Query) (int, error) {
	op := countOp(q.Table)
	ctx, span := startSpan(ctx, "gateway.count", attribute.String("db.table", q.Table))
	defer span.End()

	q.Columns, q.Order, q.Limit, q.Offset = nil, nil, 0, 0
	header := http.Header{"Prefer": []string{"count=exact"}}
	resp, err := c.do(ctx, op, http.MethodHead, c.tableURL(q.Table, EncodeQuery(q)), nil, header)
	if err != nil {
		return 0, failSpan(span, err)
	}
	resp.Body.Close()

	n, err := parseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return 0, failSpan(span, core.Wrap(core.KindUpstreamUnavailable, err, "%s", op))
	}
	return n, nil
}

func (c *PostgREST) Call(ctx context.Context, fn string, params map[string]any) ([]Row, error) {
	op := callOp(fn)
	ctx, span := startSpan(ctx, "gateway.call", attribute.String("db.procedure", fn))
	defer span.End()

	if params == nil {
		params = map[string]any{}
	}
	resp, err := c.do(ctx, op, http.MethodPost, c.baseURL+"/rest/v1/rpc/"+url.PathEscape(fn), params, nil)
	if err != nil {
		return nil, failSpan(span, err)
	}
	defer resp.Body.Close()

	rows, err := decodeRows(resp.Body, fn)
	if err != nil {
		return nil, failSpan(span, core.Wrap(core.KindUpstreamUnavailable, err, "decode %s", op))
	}
	return rows, nil
}

func (c *PostgREST) tableURL(table, rawQuery string) string {
	u := c.baseURL + "/rest/v1/" + url.PathEscape(table)
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}

// do issues one request and returns the response only for 2xx statuses.
func (c *PostgREST) do(ctx context.Context, op, method, target string, body any, header http.Header) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, core.Wrap(core.KindUpstreamUnavailable, err, "%s", op)
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		telemetry.IncUpstreamError(op, 0)
		return nil, core.Wrap(core.KindUpstreamUnavailable, err, "%s", op)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		telemetry.IncUpstreamError(op, resp.StatusCode)
		return nil, &APIError{Operation: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

// EncodeQuery renders q as a PostgREST query string.
func EncodeQuery(q Query) string {
	v := url.Values{}
	if len(q.Columns) > 0 {
		v.Set("select", strings.Join(q.Columns, ","))
	} else {
		v.Set("select", "*")
	}
	for _, f := range q.Filters {
		v.Add(f.Column, encodeOperand(f))
	}
	if len(q.Any) > 0 {
		parts := make([]string, 0, len(q.Any))
		for _, f := range q.Any {
			parts = append(parts, f.Column+"."+encodeOperand(f))
		}
		v.Set("or", "("+strings.Join(parts, ",")+")")
	}
	if len(q.Order) > 0 {
		parts := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			parts = append(parts, o.Column+"."+dir)
		}
		v.Set("order", strings.Join(parts, ","))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v.Encode()
}

func encodeOperand(f Filter) string {
	switch f.Op {
	case OpILike:
		return "ilike." + quoteValue("*"+FormatValue(f.Value)+"*")
	case OpIn:
		values, _ := f.Value.([]string)
		quoted := make([]string, 0, len(values))
		for _, s := range values {
			quoted = append(quoted, quoteValue(s))
		}
		return "in.(" + strings.Join(quoted, ",") + ")"
	default:
		return string(f.Op) + "." + quoteValue(FormatValue(f.Value))
	}
}

// quoteValue wraps values containing PostgREST reserved characters in
// double quotes.
func quoteValue(s string) string {
	if !strings.ContainsAny(s, ",.:()\"\\ \t\r\n") {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func parseContentRange(v string) (int, error) {
	i := strings.LastIndex(v, "/")
	if i < 0 {
		return 0, fmt.Errorf("missing count in Content-Range %q", v)
	}
	n, err := strconv.Atoi(v[i+1:])
	if err != nil {
		return 0, fmt.Errorf("invalid count in Content-Range %q", v)
	}
	return n, nil
}

// decodeRows accepts an array of objects, a single object or a scalar.
// A scalar is returned as one row keyed by name.
func decodeRows(r io.Reader, name string) ([]Row, error) {
	var raw any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return []Row{}, nil
		}
		return nil, err
	}
	return toRows(raw, name), nil
}

func toRows(raw any, name string) []Row {
	switch x := raw.(type) {
	case []any:
		rows := make([]Row, 0, len(x))
		for _, item := range x {
			if obj, ok := item.(map[string]any); ok {
				rows = append(rows, obj)
			} else {
				rows = append(rows, Row{name: item})
			}
		}
		return rows
	case map[string]any:
		return []Row{x}
	case nil:
		return []Row{}
	default:
		return []Row{{name: x}}
	}
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return telemetry.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
