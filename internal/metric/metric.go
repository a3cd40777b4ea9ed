package metric

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kelock"

type Metrics struct {
	registry *prometheus.Registry

	DownloadedBytes prometheus.Counter
	Downloads       *prometheus.CounterVec
	LockEntries     prometheus.Gauge
	LastSuccess     prometheus.Gauge
	Requests        *prometheus.CounterVec
	Retries         prometheus.Counter
}

const (
	DownloadResultSuccess = "success"
	DownloadResultSkipped = "skipped"
)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		DownloadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloaded_bytes_total",
			Help:      "Bytes written to the download directory.",
		}),
		Downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Artifact downloads by result.",
		}, []string{"result"}),
		LockEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lock_entries",
			Help:      "Number of builds recorded in the last written lock file.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful lock update.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests sent upstream by method and status code.",
		}, []string{"method", "code"}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_retries_total",
			Help:      "HTTP requests retried after a transient failure.",
		}),
	}

	m.registry.MustRegister(
		m.DownloadedBytes,
		m.Downloads,
		m.LockEntries,
		m.LastSuccess,
		m.Requests,
		m.Retries,
	)

	return m
}

// ObserveRequest counts one upstream request. A zero code means the request
// failed before a response was received.
func (m *Metrics) ObserveRequest(method string, code int) {
	c := "error"
	if code != 0 {
		c = strconv.Itoa(code)
	}
	m.Requests.WithLabelValues(method, c).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the text exposition format, suitable for
// the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
