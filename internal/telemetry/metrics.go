package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var defaultRegistry = newRegistry()

type registry struct {
	reg            *prometheus.Registry
	toolCalls      *prometheus.CounterVec
	toolDuration   *prometheus.HistogramVec
	upstreamErrors *prometheus.CounterVec
	searchMethods  *prometheus.CounterVec
	rpcRequests    *prometheus.CounterVec
}

func newRegistry() *registry {
	r := &registry{
		reg: prometheus.NewRegistry(),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "casehub_tool_calls_total",
			Help: "Tool calls by tool and outcome.",
		}, []string{"tool", "status"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "casehub_tool_duration_seconds",
			Help:    "Tool call latency.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"tool"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "casehub_upstream_errors_total",
			Help: "Non-success responses from the upstream data gateway.",
		}, []string{"operation", "status_code"}),
		searchMethods: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "casehub_search_method_total",
			Help: "Search calls by the method that produced the results.",
		}, []string{"method"}),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "casehub_rpc_requests_total",
			Help: "JSON-RPC requests by method.",
		}, []string{"method"}),
	}
	r.reg.MustRegister(r.toolCalls, r.toolDuration, r.upstreamErrors, r.searchMethods, r.rpcRequests)
	return r
}

func IncToolCall(toolName, status string) {
	defaultRegistry.toolCalls.WithLabelValues(toolName, status).Inc()
}

func ObserveToolDuration(toolName string, d time.Duration) {
	defaultRegistry.toolDuration.WithLabelValues(toolName).Observe(d.Seconds())
}

// IncUpstreamError counts a gateway failure. Status 0 means the request
// never produced an HTTP response.
func IncUpstreamError(operation string, statusCode int) {
	defaultRegistry.upstreamErrors.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
}

func IncSearchMethod(method string) {
	defaultRegistry.searchMethods.WithLabelValues(method).Inc()
}

func IncRPCRequest(method string) {
	defaultRegistry.rpcRequests.WithLabelValues(method).Inc()
}

// Handler serves the Prometheus exposition of the casehub registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(defaultRegistry.reg, promhttp.HandlerOpts{})
}
