package mqttsn

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stat holds the Prometheus instrumentation for a Session, mirroring the
// pack teacher's own stat.go (packets/bytes sent and received) with the
// counters this engine's retry/reconnect machinery adds.
type Stat struct {
	PacketsSent     prometheus.Counter
	BytesSent       prometheus.Counter
	PacketsReceived prometheus.Counter
	BytesReceived   prometheus.Counter
	Retransmits     prometheus.Counter
	Reconnects      prometheus.Counter
	ActiveSessions  prometheus.Gauge
}

// NewStat builds a Stat with a metric name prefix of "mqttsn_". Each
// call creates fresh collectors; register the returned Stat on at most
// one prometheus.Registerer.
func NewStat() *Stat {
	return &Stat{
		PacketsSent:     prometheus.NewCounter(prometheus.CounterOpts{Name: "mqttsn_packets_sent_total", Help: "Total MQTT-SN packets sent"}),
		BytesSent:       prometheus.NewCounter(prometheus.CounterOpts{Name: "mqttsn_bytes_sent_total", Help: "Total MQTT-SN bytes sent"}),
		PacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{Name: "mqttsn_packets_received_total", Help: "Total MQTT-SN packets received"}),
		BytesReceived:   prometheus.NewCounter(prometheus.CounterOpts{Name: "mqttsn_bytes_received_total", Help: "Total MQTT-SN bytes received"}),
		Retransmits:     prometheus.NewCounter(prometheus.CounterOpts{Name: "mqttsn_retransmits_total", Help: "Total packet retransmissions"}),
		Reconnects:      prometheus.NewCounter(prometheus.CounterOpts{Name: "mqttsn_reconnects_total", Help: "Total session reconnects"}),
		ActiveSessions:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "mqttsn_active_sessions", Help: "Sessions currently connected"}),
	}
}

// Register adds every collector in s to reg.
func (s *Stat) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		s.PacketsSent, s.BytesSent, s.PacketsReceived, s.BytesReceived,
		s.Retransmits, s.Reconnects, s.ActiveSessions,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler exposes s (and whatever else reg holds) on /metrics, mirroring
// the pack teacher's own Httpd() helper.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
