package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts ownership graph mutations and listing latency.
type Metrics struct {
	BucketlistsCreated prometheus.Counter
	BucketlistsDeleted prometheus.Counter
	ItemsCreated       prometheus.Counter
	ItemsDeleted       prometheus.Counter
	CascadeDeleted     *prometheus.CounterVec
	ListDuration       *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		BucketlistsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "bucketlist_bucketlists_created_total",
			Help: "Bucketlists created",
		}),
		BucketlistsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "bucketlist_bucketlists_deleted_total",
			Help: "Bucketlists deleted directly by their owner",
		}),
		ItemsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "bucketlist_items_created_total",
			Help: "Items created",
		}),
		ItemsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "bucketlist_items_deleted_total",
			Help: "Items deleted directly",
		}),
		CascadeDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bucketlist_cascade_deleted_total",
			Help: "Rows removed by cascading deletes, by kind",
		}, []string{"kind"}),
		ListDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bucketlist_list_duration_seconds",
			Help:    "Time to assemble a bucketlist page, by mode",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"mode"}),
	}
}

func (m *Metrics) ObserveList(mode string, started time.Time) {
	if m == nil {
		return
	}
	m.ListDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
}

func (m *Metrics) IncBucketlistsCreated() {
	if m != nil {
		m.BucketlistsCreated.Inc()
	}
}

func (m *Metrics) IncBucketlistsDeleted() {
	if m != nil {
		m.BucketlistsDeleted.Inc()
	}
}

func (m *Metrics) IncItemsCreated() {
	if m != nil {
		m.ItemsCreated.Inc()
	}
}

func (m *Metrics) IncItemsDeleted() {
	if m != nil {
		m.ItemsDeleted.Inc()
	}
}

// AddCascade records n rows of kind removed as a side effect of a parent delete.
func (m *Metrics) AddCascade(kind string, n int64) {
	if m != nil && n > 0 {
		m.CascadeDeleted.WithLabelValues(kind).Add(float64(n))
	}
}
