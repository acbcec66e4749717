package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dicewire"

var (
	registerOnce sync.Once

	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "commands_total",
			Help:      "Command round trips by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "command_duration_seconds",
			Help:      "Command round trip duration in seconds, retries included.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op", "outcome"},
	)
	retries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "retries_total",
			Help:      "Command attempts repeated after a retryable failure.",
		},
		[]string{"op"},
	)
	reconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "reconnects_total",
			Help:      "Connections re-dialed after the previous one closed.",
		},
		[]string{"channel"},
	)
	wireErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wire",
			Name:      "errors_total",
			Help:      "Transport failures by channel and kind.",
		},
		[]string{"channel", "kind"},
	)
	watchUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "updates_total",
			Help:      "Push updates delivered to subscribers.",
		},
		[]string{"op"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			commands, commandDuration, retries, reconnects,
			wireErrors, watchUpdates, httpRequests, httpDuration,
		)
	})
}

func RecordCommand(op, outcome string, duration time.Duration) {
	RegisterMetrics()
	commands.WithLabelValues(op, outcome).Inc()
	commandDuration.WithLabelValues(op, outcome).Observe(duration.Seconds())
}

func RecordRetry(op string) {
	RegisterMetrics()
	retries.WithLabelValues(op).Inc()
}

func RecordReconnect(channel string) {
	RegisterMetrics()
	reconnects.WithLabelValues(channel).Inc()
}

func RecordWireError(channel, kind string) {
	RegisterMetrics()
	wireErrors.WithLabelValues(channel, kind).Inc()
}

func RecordWatchUpdate(op string) {
	RegisterMetrics()
	watchUpdates.WithLabelValues(op).Inc()
}

func RecordHTTPRequest(service, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(service, method, path, statusLabel).Observe(duration.Seconds())
}
