package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus collectors for the session server. Scraped via /metrics.
var (
	ConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gamehost_connections_total",
		Help: "Total WebSocket connections accepted",
	})

	ConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gamehost_connections_active",
		Help: "Current number of live client sessions",
	})

	InstancesActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gamehost_instances_active",
		Help: "Current number of running instances",
	})

	ClientsJoined = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gamehost_clients_joined",
		Help: "Clients currently joined to an instance",
	})

	JoinsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gamehost_joins_accepted_total",
		Help: "Total accepted instance joins",
	})

	JoinsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gamehost_joins_rejected_total",
		Help: "Total joins rejected at capacity",
	})

	MessagesFannedOut = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gamehost_messages_fanned_out_total",
		Help: "Total messages delivered to client sinks",
	})

	MessagesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gamehost_messages_received_total",
		Help: "Total protocol messages read from clients",
	})

	DecodeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gamehost_decode_errors_total",
		Help: "Total inbound frames that failed to decode",
	})

	RateLimitedFrames = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gamehost_rate_limited_frames_total",
		Help: "Total inbound frames dropped by the per-session limiter",
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		ConnectionsActive,
		InstancesActive,
		ClientsJoined,
		JoinsAccepted,
		JoinsRejected,
		MessagesFannedOut,
		MessagesReceived,
		DecodeErrors,
		RateLimitedFrames,
	)
}

// MetricsHandler serves the prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
