package server

import (
	"net/http"

	"github.com/VictoriaMetrics/metrics"
)

// serverMetrics holds the counters and gauges of one server. They live in a
// private metrics.Set so several servers (e.g. in tests) do not collide.
type serverMetrics struct {
	set *metrics.Set

	connections   *metrics.Counter
	joins         *metrics.Counter
	parts         *metrics.Counter
	messages      *metrics.Counter
	sendQExceeded *metrics.Counter
}

func newServerMetrics(s *Server) *serverMetrics {
	set := metrics.NewSet()

	m := &serverMetrics{
		set:           set,
		connections:   set.NewCounter("dirc_connections_total"),
		joins:         set.NewCounter("dirc_joins_total"),
		parts:         set.NewCounter("dirc_parts_total"),
		messages:      set.NewCounter("dirc_messages_total"),
		sendQExceeded: set.NewCounter("dirc_sendq_exceeded_total"),
	}

	set.NewGauge("dirc_channels", func() float64 {
		return float64(s.channels.Len())
	})
	set.NewGauge("dirc_clients", func() float64 {
		return float64(s.conns.Size())
	})
	set.NewGauge("dirc_nicknames", func() float64 {
		return float64(s.clients.Len())
	})

	return m
}

// handler serves the metrics in Prometheus text format on /metrics
func (m *serverMetrics) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		m.set.WritePrometheus(w)
	})
	return mux
}
