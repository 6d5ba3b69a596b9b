package metrics

import "github.com/prometheus/client_golang/prometheus"

// QueueStats provides the collector access to live worker pool state.
type QueueStats interface {
	PendingJobs() int
}

// BackendStatus reports whether a model is currently loaded.
type BackendStatus interface {
	BackendLoaded() bool
}

// Collector implements prometheus.Collector to read live gauges at scrape time.
type Collector struct {
	queue   QueueStats
	backend BackendStatus

	queuePending  *prometheus.Desc
	backendLoaded *prometheus.Desc
}

// NewCollector creates a collector that reads live state at scrape time.
// Either argument may be nil; the corresponding gauge reports 0.
func NewCollector(queue QueueStats, backend BackendStatus) *Collector {
	return &Collector{
		queue:   queue,
		backend: backend,
		queuePending: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "queue_pending"),
			"Transcription jobs waiting in the queue.",
			nil, nil,
		),
		backendLoaded: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "backend_loaded"),
			"1 when a transcription model is loaded, 0 otherwise.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.queuePending
	ch <- c.backendLoaded
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	var pending float64
	if c.queue != nil {
		pending = float64(c.queue.PendingJobs())
	}
	ch <- prometheus.MustNewConstMetric(c.queuePending, prometheus.GaugeValue, pending)

	var loaded float64
	if c.backend != nil && c.backend.BackendLoaded() {
		loaded = 1
	}
	ch <- prometheus.MustNewConstMetric(c.backendLoaded, prometheus.GaugeValue, loaded)
}
