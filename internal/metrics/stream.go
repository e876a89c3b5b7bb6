package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "horizon_stream_connections_total",
			Help: "SSE and websocket connection events.",
		},
		[]string{"transport", "event"},
	)

	streamsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "horizon_streams_active",
			Help: "Currently open streaming connections.",
		},
		[]string{"transport"},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "horizon_stream_errors_total",
			Help: "Streaming errors by reason.",
		},
		[]string{"reason"},
	)

	streamMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "horizon_stream_messages_total",
			Help: "Messages sent to streaming clients.",
		},
		[]string{"transport"},
	)

	streamBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "horizon_stream_bytes_total",
			Help: "Bytes sent to streaming clients.",
		},
		[]string{"transport"},
	)

	controlMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "horizon_control_messages_total",
			Help: "Control messages received, by type.",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(streamConnectionsTotal)
	prometheus.MustRegister(streamsActive)
	prometheus.MustRegister(streamErrorsTotal)
	prometheus.MustRegister(streamMessagesTotal)
	prometheus.MustRegister(streamBytesTotal)
	prometheus.MustRegister(controlMessagesTotal)
}

// Transports used as metric labels.
const (
	TransportSSE       = "sse"
	TransportWebsocket = "websocket"
)

// IncStreamConnections counts a connect or disconnect event.
func IncStreamConnections(transport, event string) {
	streamConnectionsTotal.WithLabelValues(transport, event).Inc()
}

// IncStreamsActive increments the open connection gauge.
func IncStreamsActive(transport string) {
	streamsActive.WithLabelValues(transport).Inc()
}

// DecStreamsActive decrements the open connection gauge.
func DecStreamsActive(transport string) {
	streamsActive.WithLabelValues(transport).Dec()
}

// IncStreamErrors counts a streaming error.
func IncStreamErrors(reason string) {
	streamErrorsTotal.WithLabelValues(reason).Inc()
}

// IncStreamMessages counts one message sent.
func IncStreamMessages(transport string) {
	streamMessagesTotal.WithLabelValues(transport).Inc()
}

// AddStreamBytes counts bytes sent.
func AddStreamBytes(transport string, n int64) {
	streamBytesTotal.WithLabelValues(transport).Add(float64(n))
}

// IncControlMessages counts a received control message.
func IncControlMessages(kind string) {
	controlMessagesTotal.WithLabelValues(kind).Inc()
}
