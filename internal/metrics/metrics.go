// Package metrics exposes crawl and ledger metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Namespace prefixes every metric.
	Namespace = "deadlink"

	subsystemCrawl  = "crawl"
	subsystemLedger = "ledger"
)

// Recorder holds every collector. It satisfies webscraper.Recorder.
type Recorder struct {
	registry *prometheus.Registry

	PagesFetched    *prometheus.CounterVec
	LinksChecked    *prometheus.CounterVec
	FindingsTotal   *prometheus.CounterVec
	RunsTotal       *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	LastRunFindings prometheus.Gauge

	StoredLinks     *prometheus.GaugeVec
	NotificationsOK prometheus.Counter
	NotificationsKO prometheus.Counter
}

// New creates a Recorder on its own registry, with Go and process collectors attached.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	r := &Recorder{registry: reg}
	r.initCrawlMetrics(factory)
	r.initLedgerMetrics(factory)
	return r
}

func (r *Recorder) initCrawlMetrics(factory promauto.Factory) {
	r.PagesFetched = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemCrawl,
			Name:      "pages_fetched_total",
			Help:      "Pages dequeued by the crawler, by outcome",
		},
		[]string{"outcome"},
	)

	r.LinksChecked = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemCrawl,
			Name:      "links_checked_total",
			Help:      "Links probed for reachability",
		},
		[]string{"broken"},
	)

	r.FindingsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemCrawl,
			Name:      "findings_total",
			Help:      "Broken links recorded, by status",
		},
		[]string{"status"},
	)

	r.RunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemCrawl,
			Name:      "runs_total",
			Help:      "Finished crawl runs, by terminal state",
		},
		[]string{"state"},
	)

	r.RunDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: subsystemCrawl,
			Name:      "run_duration_seconds",
			Help:      "Duration of crawl runs",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~4.5h
		},
	)

	r.LastRunFindings = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: subsystemCrawl,
			Name:      "last_run_findings",
			Help:      "Findings reported by the most recent run",
		},
	)
}

func (r *Recorder) initLedgerMetrics(factory promauto.Factory) {
	r.StoredLinks = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: subsystemLedger,
			Name:      "links",
			Help:      "Links currently in the store, by resolution",
		},
		[]string{"resolution"},
	)

	r.NotificationsOK = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemLedger,
			Name:      "notifications_sent_total",
			Help:      "Notifications delivered to the webhook",
		},
	)

	r.NotificationsKO = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemLedger,
			Name:      "notifications_failed_total",
			Help:      "Notifications the webhook rejected or that could not be sent",
		},
	)
}

// PageFetched counts a dequeued page.
func (r *Recorder) PageFetched(outcome string) {
	r.PagesFetched.WithLabelValues(outcome).Inc()
}

// LinkChecked counts a probe.
func (r *Recorder) LinkChecked(broken bool) {
	label := "false"
	if broken {
		label = "true"
	}
	r.LinksChecked.WithLabelValues(label).Inc()
}

// FindingRecorded counts a finding.
func (r *Recorder) FindingRecorded(status string) {
	r.FindingsTotal.WithLabelValues(status).Inc()
}

// RunFinished records a run's terminal state and duration.
func (r *Recorder) RunFinished(state string, elapsed time.Duration) {
	r.RunsTotal.WithLabelValues(state).Inc()
	r.RunDuration.Observe(elapsed.Seconds())
}

// RunCommitted records the size of a run and of the resulting store.
func (r *Recorder) RunCommitted(findings, unresolved, total int) {
	r.LastRunFindings.Set(float64(findings))
	r.StoredLinks.WithLabelValues("unresolved").Set(float64(unresolved))
	r.StoredLinks.WithLabelValues("resolved").Set(float64(total - unresolved))
}

// NotificationSent counts a webhook delivery attempt.
func (r *Recorder) NotificationSent(err error) {
	if err != nil {
		r.NotificationsKO.Inc()
		return
	}
	r.NotificationsOK.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
