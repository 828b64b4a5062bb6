// Package mcp implements the JSON-RPC 2.0 surface of the Model Context
// Protocol on top of the tool registry. Transports hand raw messages to a
// Dispatcher and write back whatever it returns.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/casehub/casehub/internal/core"
	"github.com/casehub/casehub/internal/telemetry"
	"github.com/casehub/casehub/internal/tools"
)

const (
	ProtocolVersion = "2024-11-05"
	ServerName      = "casehub"
)

type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

var nullID = json.RawMessage("null")

// knownMethods bounds the method label on the request counter.
var knownMethods = map[string]bool{
	"initialize": true,
	"ping":       true,
	"tools/list": true,
	"tools/call": true,
}

type Dispatcher struct {
	registry *tools.Registry
	version  string
	logger   *slog.Logger
}

func NewDispatcher(registry *tools.Registry, version string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{registry: registry, version: version, logger: logger}
}

// Handle processes one raw JSON-RPC message. It returns nil when the
// message is a notification and no response must be written.
func (d *Dispatcher) Handle(ctx context.Context, payload []byte) []byte {
	trimmed := bytes.TrimSpace(payload)
	if !json.Valid(trimmed) {
		return encode(errorResponse(nullID, mcpgo.PARSE_ERROR, "parse error"))
	}
	switch trimmed[0] {
	case '{':
	case '[':
		return encode(errorResponse(nullID, mcpgo.INVALID_REQUEST, "batch requests are not supported"))
	default:
		return encode(errorResponse(nullID, mcpgo.INVALID_REQUEST, "invalid request: expected a JSON object"))
	}

	var req jsonRPCRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return encode(errorResponse(requestID(trimmed), mcpgo.INVALID_REQUEST, "invalid request: malformed request object"))
	}

	notification := len(req.ID) == 0
	if req.Method == "" {
		if notification {
			return nil
		}
		return encode(errorResponse(req.ID, mcpgo.INVALID_REQUEST, "invalid request: method is required"))
	}

	ctx = core.WithTraceID(ctx, uuid.NewString())
	resp := d.dispatch(ctx, req)
	if notification {
		return nil
	}
	return encode(resp)
}

func (d *Dispatcher) dispatch(ctx context.Context, req jsonRPCRequest) jsonRPCResponse {
	label := req.Method
	if !knownMethods[label] {
		label = "unknown"
	}
	telemetry.IncRPCRequest(label)

	ctx, span := telemetry.Tracer().Start(ctx, "rpc "+label, trace.WithAttributes(
		attribute.String("rpc.method", req.Method),
		attribute.String("casehub.trace_id", core.TraceID(ctx)),
	))
	defer span.End()

	start := time.Now()
	base := jsonRPCResponse{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "initialize":
		base.Result = map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{"listChanged": false}},
			"serverInfo":      map[string]any{"name": ServerName, "version": d.version},
		}

	case "ping":
		base.Result = map[string]any{}

	case "tools/list":
		base.Result = map[string]any{"tools": d.registry.List()}

	case "tools/call":
		base = d.handleToolCall(ctx, req, base)

	default:
		base.Error = &rpcError{Code: mcpgo.METHOD_NOT_FOUND, Message: fmt.Sprintf("method not found: %s", req.Method)}
	}

	if base.Error != nil {
		span.SetStatus(codes.Error, base.Error.Message)
	}
	d.logger.Debug("rpc request",
		"trace_id", core.TraceID(ctx),
		"method", req.Method,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", base.Error != nil,
	)
	return base
}

func (d *Dispatcher) handleToolCall(ctx context.Context, req jsonRPCRequest, base jsonRPCResponse) jsonRPCResponse {
	var params toolCallParams
	if len(req.Params) == 0 {
		base.Error = &rpcError{Code: mcpgo.INVALID_PARAMS, Message: "invalid params: missing params"}
		return base
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		base.Error = &rpcError{Code: mcpgo.INVALID_PARAMS, Message: "invalid params: " + err.Error()}
		return base
	}
	if params.Name == "" {
		base.Error = &rpcError{Code: mcpgo.INVALID_PARAMS, Message: "invalid params: name is required"}
		return base
	}

	result, err := d.registry.Call(ctx, params.Name, params.Arguments)
	if err != nil {
		mapped := core.MapError(err)
		base.Error = &rpcError{Code: mapped.RPCCode, Message: mapped.Message}
		return base
	}

	wrapped, err := tools.TextResult(result)
	if err != nil {
		mapped := core.MapError(core.Wrap(core.KindInternal, err, "tool %s", params.Name))
		base.Error = &rpcError{Code: mapped.RPCCode, Message: mapped.Message}
		return base
	}
	base.Result = wrapped
	return base
}

// requestID salvages the id of an object that is not a well-formed request.
func requestID(obj []byte) json.RawMessage {
	var head struct {
		ID json.RawMessage `json:"id"`
	}
	if json.Unmarshal(obj, &head) != nil || len(head.ID) == 0 {
		return nullID
	}
	return head.ID
}

func errorResponse(id json.RawMessage, code int, msg string) jsonRPCResponse {
	return jsonRPCResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: msg}}
}

func encode(resp jsonRPCResponse) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(errorResponse(resp.ID, mcpgo.INTERNAL_ERROR, "encode response: "+err.Error()))
	}
	return data
}
