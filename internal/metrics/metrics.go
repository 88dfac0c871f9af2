package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"bustracker.transport.org/internal/models"
)

// Collector owns every metric the service exports. Each Collector has its own
// registry so tests can create as many as they like without clashing on the
// default one.
type Collector struct {
	registry *prometheus.Registry

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	CacheEntryCount  prometheus.Gauge
	CacheSweptTotal  prometheus.Counter

	ETAComputations *prometheus.CounterVec
	ETADegraded     prometheus.Counter
	ETADuration     *prometheus.HistogramVec

	HTTPDuration    *prometheus.HistogramVec
	OutgoingLatency *prometheus.HistogramVec

	NATSPublished prometheus.Counter
	NATSFailed    prometheus.Counter
	NATSConnected prometheus.Gauge

	ActiveBuses     prometheus.Gauge
	StaleBuses      prometheus.Gauge
	UnassignedBuses prometheus.Gauge
	OutOfAreaBuses  prometheus.Gauge
	BusClusterCount *prometheus.GaugeVec
	DatabaseUp      prometheus.Gauge
}

// NewCollector registers all metrics, plus the Go runtime and process
// collectors, on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,

		CacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "eta_cache_hits_total",
			Help: "Number of ETA cache lookups answered from the cache",
		}),
		CacheMissesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "eta_cache_misses_total",
			Help: "Number of ETA cache lookups that missed or found an expired entry",
		}),
		CacheEntryCount: f.NewGauge(prometheus.GaugeOpts{
			Name: "eta_cache_entries",
			Help: "Number of entries currently held by the ETA cache, expired ones included",
		}),
		CacheSweptTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "eta_cache_swept_total",
			Help: "Number of expired entries removed by cache sweeps",
		}),

		ETAComputations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eta_computations_total",
			Help: "Number of fresh ETA computations by mode",
		}, []string{"mode"}),
		ETADegraded: f.NewCounter(prometheus.CounterOpts{
			Name: "eta_speed_degraded_total",
			Help: "Number of ETAs computed without any location samples",
		}),
		ETADuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eta_computation_duration_seconds",
			Help:    "Time spent computing an ETA, data access included",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"mode"}),

		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route, method and status code",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),

		OutgoingLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_outgoing_request_duration_seconds",
			Help:    "Latency of outgoing HTTP requests by URL, method and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"url", "method", "status"}),

		NATSPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "eta_nats_published_total",
			Help: "Number of ETA messages published to NATS",
		}),
		NATSFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "eta_nats_publish_failures_total",
			Help: "Number of ETA messages that could not be published to NATS",
		}),

		NATSConnected: f.NewGauge(prometheus.GaugeOpts{
			Name: "eta_nats_connected",
			Help: "Whether the NATS connection is up (0 = down, 1 = up)",
		}),

		ActiveBuses: f.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_active_buses",
			Help: "Number of buses flagged active",
		}),
		StaleBuses: f.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_stale_buses",
			Help: "Number of active buses whose latest location is missing or older than the stale threshold",
		}),
		UnassignedBuses: f.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_unassigned_buses",
			Help: "Number of active buses without a current route",
		}),
		OutOfAreaBuses: f.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_out_of_area_buses",
			Help: "Number of active buses located outside the bounding box of all stops",
		}),
		BusClusterCount: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleet_buses_per_cluster",
			Help: "Number of active buses per S2 cell cluster",
		}, []string{"cluster_id"}),
		DatabaseUp: f.NewGauge(prometheus.GaugeOpts{
			Name: "database_up",
			Help: "Whether the last database ping succeeded (0 = down, 1 = up)",
		}),
	}
}

// Gatherer exposes the registry for the /metrics handler.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// Registerer exposes the registry for callers that own extra collectors.
func (c *Collector) Registerer() prometheus.Registerer {
	return c.registry
}

func (c *Collector) CacheHit()  { c.CacheHitsTotal.Inc() }
func (c *Collector) CacheMiss() { c.CacheMissesTotal.Inc() }

func (c *Collector) CacheEntries(n int) { c.CacheEntryCount.Set(float64(n)) }

// CacheSwept counts entries removed by a sweep.
func (c *Collector) CacheSwept(n int) {
	if n > 0 {
		c.CacheSweptTotal.Add(float64(n))
	}
}

// ObserveETA records one fresh computation.
func (c *Collector) ObserveETA(mode models.Mode, degraded bool, elapsed time.Duration) {
	c.ETAComputations.WithLabelValues(string(mode)).Inc()
	c.ETADuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	if degraded {
		c.ETADegraded.Inc()
	}
}

// ObserveHTTP records one served request. route is the router pattern, not
// the raw path, to keep label cardinality bounded.
func (c *Collector) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	c.HTTPDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// ObserveOutgoing records one outgoing HTTP request. status is the response
// code or "error".
func (c *Collector) ObserveOutgoing(url, method, status string, elapsed time.Duration) {
	c.OutgoingLatency.WithLabelValues(url, method, status).Observe(elapsed.Seconds())
}

func (c *Collector) PublishSucceeded() { c.NATSPublished.Inc() }
func (c *Collector) PublishFailed()    { c.NATSFailed.Inc() }

// SetNATSConnected tracks the NATS connection state.
func (c *Collector) SetNATSConnected(connected bool) {
	c.NATSConnected.Set(boolToFloat(connected))
}

// SetDatabaseUp records the outcome of a database ping.
func (c *Collector) SetDatabaseUp(up bool) {
	c.DatabaseUp.Set(boolToFloat(up))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
