// Package metrics exposes Prometheus counters and gauges for the run loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/posture-sensor/internal/logic"
)

const namespace = "posture"

// Metrics holds the collectors on a private registry, so tests can create
// as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	ticks        prometheus.Counter
	events       *prometheus.CounterVec
	sensorFaults prometheus.Counter
	publishFails prometheus.Counter
	temperature  prometheus.Gauge
	seatedTicks  prometheus.Gauge
	seated       prometheus.Gauge
	outboxDepth  prometheus.Gauge
	outboxLost   prometheus.Counter

	lastLost int
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Samples processed by the state machine.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Posture events by type.",
		}, []string{"type"}),
		sensorFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_faults_total",
			Help:      "Failed temperature reads replaced by the previous sample.",
		}),
		publishFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "MQTT publishes that returned an error.",
		}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Most recent seat temperature.",
		}),
		seatedTicks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "seated_ticks",
			Help:      "Escalation seated counter.",
		}),
		seated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "seated",
			Help:      "1 while seated, 0 while standing.",
		}),
		outboxDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_buffered",
			Help:      "Messages waiting in the MQTT offline outbox.",
		}),
		outboxLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_dropped_total",
			Help:      "Outbox messages discarded because the outbox was full.",
		}),
	}

	m.reg.MustRegister(
		m.ticks,
		m.events,
		m.sensorFaults,
		m.publishFails,
		m.temperature,
		m.seatedTicks,
		m.seated,
		m.outboxDepth,
		m.outboxLost,
	)

	for _, t := range []logic.EventType{logic.EventSatDown, logic.EventShortBreak, logic.EventStoodUp, logic.EventNotify} {
		m.events.WithLabelValues(string(t))
	}

	return m
}

// ObserveTick records the outcome of one tick.
func (m *Metrics) ObserveTick(r logic.Result) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.temperature.Set(r.Diagnostics.Latest)
	m.seatedTicks.Set(float64(r.Diagnostics.SeatedTicks))
	if r.State == logic.StateSeated {
		m.seated.Set(1)
	} else {
		m.seated.Set(0)
	}
	for _, e := range r.Events {
		m.events.WithLabelValues(string(e.Type)).Inc()
	}
}

// SensorFault counts a failed sensor read.
func (m *Metrics) SensorFault() {
	if m == nil {
		return
	}
	m.sensorFaults.Inc()
}

// PublishFailed counts a failed MQTT publish.
func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.publishFails.Inc()
}

// ObserveOutbox records the publisher's outbox depth and its running
// overflow total. Only growth of the total is added to the counter.
func (m *Metrics) ObserveOutbox(buffered, dropped int) {
	if m == nil {
		return
	}
	m.outboxDepth.Set(float64(buffered))
	if dropped > m.lastLost {
		m.outboxLost.Add(float64(dropped - m.lastLost))
		m.lastLost = dropped
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
