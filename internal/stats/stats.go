package stats

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "studystream"

type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	RegisterMetric(name string)
}

// StatsUpdater implements StatsProvider on a dedicated prometheus
// registry, exposed at /metrics on the given mux.
type StatsUpdater struct {
	registry *prometheus.Registry
	gauges   map[string]prometheus.Gauge
	mu       sync.Mutex
}

func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		registry: prometheus.NewRegistry(),
		gauges:   make(map[string]prometheus.Gauge),
	}

	mux.Handle("GET /metrics", promhttp.HandlerFor(su.registry, promhttp.HandlerOpts{}))

	return su
}

func (su *StatsUpdater) RegisterMetric(name string) {
	su.mu.Lock()
	defer su.mu.Unlock()

	if _, ok := su.gauges[name]; ok {
		return
	}

	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
	})
	su.registry.MustRegister(g)
	su.gauges[name] = g
}

func (su *StatsUpdater) Incr(name string) {
	su.add(name, 1)
}

func (su *StatsUpdater) Decr(name string) {
	su.add(name, -1)
}

func (su *StatsUpdater) add(name string, delta float64) {
	su.mu.Lock()
	g, ok := su.gauges[name]
	su.mu.Unlock()

	if !ok {
		panic("metric not found: " + name)
	}

	g.Add(delta)
}
