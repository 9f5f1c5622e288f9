package menu

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics observes the navigation cache. A nil *Metrics records nothing.
type Metrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	fallbacks *prometheus.CounterVec
	fetches   prometheus.Histogram
}

// NewMetrics registers the navigation cache collectors. Collectors that are
// already registered are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_menu_cache_hits_total",
			Help: "Navigation reads served from the cache.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_menu_cache_miss_total",
			Help: "Navigation reads that required a fetch.",
		}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_menu_fallback_total",
			Help: "Navigation resolutions that served the default tree.",
		}, []string{"reason"}),
		fetches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_menu_fetch_duration_seconds",
			Help:    "Duration of menu-structure fetches.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	var err error
	m.hits = register(reg, m.hits, &err)
	m.misses = register(reg, m.misses, &err)
	m.fallbacks = register(reg, m.fallbacks, &err)
	m.fetches = register(reg, m.fetches, &err)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T, errp *error) T {
	if *errp != nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		*errp = err
	}
	return c
}

func (m *Metrics) hit() {
	if m == nil {
		return
	}
	m.hits.Inc()
}

func (m *Metrics) miss() {
	if m == nil {
		return
	}
	m.misses.Inc()
}

func (m *Metrics) fallback(reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) observeFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.fetches.Observe(d.Seconds())
}
