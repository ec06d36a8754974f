package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TurnsTotal counts chat turns by outcome ("ok", "error", "cancelled").
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qwenweb",
		Name:      "turns_total",
		Help:      "Chat turns issued, labeled by outcome.",
	}, []string{"status"})

	// ConversationsCreatedTotal counts successful conversation creations.
	ConversationsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qwenweb",
		Name:      "conversations_created_total",
		Help:      "Server-side conversations created.",
	})

	// StreamEventsTotal counts decoded stream records by kind
	// ("created", "delta", "done").
	StreamEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qwenweb",
		Name:      "stream_events_total",
		Help:      "Decoded stream events, labeled by kind.",
	}, []string{"kind"})

	// StreamMalformedLinesTotal counts skipped undecodable stream lines.
	StreamMalformedLinesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qwenweb",
		Name:      "stream_malformed_lines_total",
		Help:      "Stream lines skipped because their payload failed to parse.",
	})

	// TurnDurationSeconds observes end-to-end turn latency.
	TurnDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "qwenweb",
		Name:      "turn_duration_seconds",
		Help:      "End-to-end chat turn latency.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 12),
	})
)
