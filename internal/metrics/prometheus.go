package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// promMetrics mirrors collector events into a private Prometheus registry.
type promMetrics struct {
	registry *prometheus.Registry

	probesTotal     *prometheus.CounterVec
	probeDuration   *prometheus.HistogramVec
	samplesTotal    *prometheus.CounterVec
	instanceHealthy *prometheus.GaugeVec
	cyclesTotal     prometheus.Counter
	cycleDuration   prometheus.Histogram
	cycleSeq        prometheus.Gauge
	availability    prometheus.Gauge
	activeInstances prometheus.Gauge
	totalInstances  prometheus.Gauge
	activeUsers     prometheus.Gauge
}

func newPromMetrics() *promMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &promMetrics{
		registry: reg,

		probesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siglab_probes_total",
				Help: "Total number of health probes by outcome",
			},
			[]string{"instance", "result"},
		),
		probeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "siglab_probe_duration_seconds",
				Help:    "Health probe latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .2, .5, 1, 1.5},
			},
			[]string{"instance"},
		),
		samplesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siglab_traffic_samples_total",
				Help: "Total number of traffic samples by outcome",
			},
			[]string{"instance", "result"},
		),
		instanceHealthy: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "siglab_instance_healthy",
				Help: "1 if the instance was healthy in the last cycle",
			},
			[]string{"instance"},
		),
		cyclesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "siglab_cycles_total",
				Help: "Total number of completed aggregation cycles",
			},
		),
		cycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "siglab_cycle_duration_seconds",
				Help:    "Aggregation cycle duration in seconds",
				Buckets: []float64{.01, .05, .1, .2, .5, 1, 1.5, 3, 5},
			},
		),
		cycleSeq: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "siglab_cycle_seq",
				Help: "Sequence number of the last published snapshot",
			},
		),
		availability: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "siglab_availability_percent",
				Help: "Percentage of instances healthy in the last cycle",
			},
		),
		activeInstances: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "siglab_active_instances",
				Help: "Number of instances healthy in the last cycle",
			},
		),
		totalInstances: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "siglab_total_instances",
				Help: "Number of configured instances",
			},
		),
		activeUsers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "siglab_total_active_users",
				Help: "Sum of known active users over healthy instances",
			},
		),
	}
}

func (p *promMetrics) observeProbe(e Event) {
	result := "healthy"
	switch {
	case !e.Reachable:
		result = "unreachable"
	case !e.Healthy:
		result = "unhealthy"
	}

	p.probesTotal.WithLabelValues(e.Instance, result).Inc()
	p.probeDuration.WithLabelValues(e.Instance).Observe(e.Duration.Seconds())
}

func (p *promMetrics) observeSample(e Event) {
	result := "known"
	if !e.UsersKnown {
		result = "unknown"
	}
	p.samplesTotal.WithLabelValues(e.Instance, result).Inc()
}

func (p *promMetrics) observeCycle(e Event) {
	p.cyclesTotal.Inc()
	p.cycleDuration.Observe(e.Duration.Seconds())
	p.cycleSeq.Set(float64(e.CycleSeq))
	p.availability.Set(float64(e.AvailabilityPercent))
	p.activeInstances.Set(float64(e.ActiveInstances))
	p.totalInstances.Set(float64(e.TotalInstances))
	p.activeUsers.Set(float64(e.TotalActiveUsers))
}

func (p *promMetrics) observeHealth(e Event) {
	v := 0.0
	if e.Healthy {
		v = 1
	}
	p.instanceHealthy.WithLabelValues(e.Instance).Set(v)
}
