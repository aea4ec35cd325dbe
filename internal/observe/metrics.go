// Package observe is the harness's observational surface: prometheus
// counters around the ramp and registry, and a small HTTP endpoint with
// /metrics, /status and /healthz. Nothing in the core consumes it.
package observe

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/procwave/procwave/internal/registry"
)

// Metrics holds the harness's prometheus collectors on a private registry
// so repeated construction (tests, back-to-back runs) never collides.
type Metrics struct {
	registry *prometheus.Registry

	WavesTotal     prometheus.Counter
	WaveSize       prometheus.Gauge
	WorkersSpawned *prometheus.CounterVec
	Terminations   *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		WavesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "procwave_waves_total",
			Help: "Waves issued by the ramp controller",
		}),
		WaveSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "procwave_wave_size",
			Help: "Size of the most recent wave",
		}),
		WorkersSpawned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "procwave_workers_spawned_total",
			Help: "Worker processes spawned, by kind",
		}, []string{"kind"}),
		Terminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "procwave_worker_terminations_total",
			Help: "Teardown outcomes per worker handle",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(m.WavesTotal, m.WaveSize, m.WorkersSpawned, m.Terminations)
	return m
}

// ObserveWave records one issued wave.
func (m *Metrics) ObserveWave(size int) {
	m.WavesTotal.Inc()
	m.WaveSize.Set(float64(size))
}

// ObserveTermination records one TerminateAll pass.
func (m *Metrics) ObserveTermination(sum registry.Summary) {
	m.Terminations.WithLabelValues("killed").Add(float64(sum.Killed))
	m.Terminations.WithLabelValues("already-dead").Add(float64(sum.AlreadyDead))
	m.Terminations.WithLabelValues("leaked").Add(float64(sum.Leaked))
}

// InstrumentedSpawner counts successful spawns on their way to the
// registry. It is the Spawner the ramp controller actually receives.
type InstrumentedSpawner struct {
	Registry *registry.Registry
	Metrics  *Metrics
}

func (s *InstrumentedSpawner) SpawnCPU(loadPercent, wave int) error {
	if _, err := s.Registry.SpawnCPU(loadPercent, wave); err != nil {
		return err
	}
	s.Metrics.WorkersSpawned.WithLabelValues("cpu").Inc()
	return nil
}

func (s *InstrumentedSpawner) SpawnMemory(sizeMB, wave int) error {
	if _, err := s.Registry.SpawnMemory(sizeMB, wave); err != nil {
		return err
	}
	s.Metrics.WorkersSpawned.WithLabelValues("memory").Inc()
	return nil
}

// InstrumentedTerminator records teardown outcomes as they happen.
type InstrumentedTerminator struct {
	Registry *registry.Registry
	Metrics  *Metrics
}

func (t *InstrumentedTerminator) TerminateAll() registry.Summary {
	sum := t.Registry.TerminateAll()
	t.Metrics.ObserveTermination(sum)
	return sum
}
