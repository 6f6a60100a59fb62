package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	GeocodeRequests    *prometheus.CounterVec
	GeocodeSeconds     *prometheus.HistogramVec
	GeocodeCache       *prometheus.CounterVec
	Submits            *prometheus.CounterVec
	StoreErrors        *prometheus.CounterVec
	SnapshotsPublished prometheus.Counter
	Subscribers        prometheus.Gauge
	ActiveDashboards   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		GeocodeRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hermes_geocode_requests_total",
			Help: "Total number of geocoding requests by provider and outcome.",
		}, []string{"provider", "status"}),
		GeocodeSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hermes_geocode_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		GeocodeCache: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hermes_geocode_cache_lookups_total",
			Help: "Geocode cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
		Submits: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hermes_draft_submits_total",
			Help: "Draft submissions by outcome.",
		}, []string{"outcome"}),
		StoreErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hermes_store_errors_total",
			Help: "Failed document store operations by operation.",
		}, []string{"op"}),
		SnapshotsPublished: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "hermes_snapshots_published_total",
			Help: "Full-state snapshots broadcast to subscribers.",
		}),
		Subscribers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "hermes_feed_subscribers",
			Help: "Current number of snapshot subscribers.",
		}),
		ActiveDashboards: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "hermes_active_dashboards",
			Help: "Dashboards currently held in memory.",
		}),
	}
}
