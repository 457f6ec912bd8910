// Package metrics provides Prometheus metrics for the retrieval engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "recall"

var (
	// EmbeddingBatches counts external embedding calls.
	// Labels: mode (document, query), result (success, error)
	EmbeddingBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "batches_total",
			Help:      "Total number of embedding provider calls",
		},
		[]string{"mode", "result"},
	)

	// EmbeddedTexts counts texts sent for embedding.
	EmbeddedTexts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "texts_total",
			Help:      "Total number of texts sent to the embedding provider",
		},
		[]string{"mode"},
	)

	// StoreOperations counts vector store operations.
	// Labels: backend (sqlite, memory), op (replace, remove, query), result (success, error)
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vectorstore",
			Name:      "operations_total",
			Help:      "Total number of vector store operations",
		},
		[]string{"backend", "op", "result"},
	)

	// StoreDuration tracks how long vector store operations take.
	StoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "vectorstore",
			Name:      "operation_duration_seconds",
			Help:      "Duration of vector store operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)

	// DistillChecks counts distillation checks by outcome.
	// Labels: outcome (idle, empty, distilled, busy, error)
	DistillChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distill",
			Name:      "checks_total",
			Help:      "Total number of distillation checks by outcome",
		},
		[]string{"outcome"},
	)

	// HeartbeatTicks counts heartbeat ticks by status.
	HeartbeatTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "heartbeat",
			Name:      "ticks_total",
			Help:      "Total number of heartbeat ticks by status",
		},
		[]string{"status"},
	)

	// ToolCalls counts MCP tool invocations.
	// Labels: tool, result (success, error)
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mcp",
			Name:      "tool_calls_total",
			Help:      "Total number of MCP tool calls by tool and result",
		},
		[]string{"tool", "result"},
	)

	// IndexedChunks reports the chunks embedded by the last vault index.
	IndexedChunks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "chunks",
			Help:      "Number of chunks embedded by the last vault index",
		},
	)
)

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
