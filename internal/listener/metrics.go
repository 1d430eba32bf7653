package listener

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeProcessed      = "processed"
	outcomeTooOld         = "too_old"
	outcomeEmpty          = "empty"
	outcomeDecodeError    = "decode_error"
	outcomeTransportError = "transport_error"
)

type Metrics struct {
	messages   *prometheus.CounterVec
	targets    prometheus.Counter
	lastOffset prometheus.Gauge
}

// NewMetrics registers the consumer metrics on reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skyportal_consumer_messages_total",
			Help: "Messages returned by poll, partitioned by how the listener handled them.",
		}, []string{"outcome"}),
		targets: factory.NewCounter(prometheus.CounterOpts{
			Name: "skyportal_consumer_targets_total",
			Help: "Targets found in decoded payloads.",
		}),
		lastOffset: factory.NewGauge(prometheus.GaugeOpts{
			Name: "skyportal_consumer_last_offset",
			Help: "Offset of the most recent message that passed the age filter.",
		}),
	}
}

func (m *Metrics) observe(outcome string) {
	m.messages.WithLabelValues(outcome).Inc()
}
