// Package app wires a crawl run end to end: crawl, reconcile into the ledger, export
// reports and notify.
package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/yingtu35/deadlink-patrol/internal/config"
	"github.com/yingtu35/deadlink-patrol/internal/export"
	"github.com/yingtu35/deadlink-patrol/internal/ledger"
	"github.com/yingtu35/deadlink-patrol/internal/logger"
	"github.com/yingtu35/deadlink-patrol/internal/notify"
	"github.com/yingtu35/deadlink-patrol/internal/webscraper"
)

// Recorder receives crawl and ledger metrics.
type Recorder interface {
	webscraper.Recorder
	RunCommitted(findings, unresolved, total int)
	NotificationSent(err error)
}

type nopRecorder struct{}

func (nopRecorder) PageFetched(string)                {}
func (nopRecorder) LinkChecked(bool)                  {}
func (nopRecorder) FindingRecorded(string)            {}
func (nopRecorder) RunFinished(string, time.Duration) {}
func (nopRecorder) RunCommitted(int, int, int)        {}
func (nopRecorder) NotificationSent(error)            {}

// Option customizes a Runner.
type Option func(*Runner)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(rn *Runner) { rn.recorder = r }
}

// WithFetcher replaces the page fetcher built from the configured renderer.
func WithFetcher(f webscraper.PageFetcher) Option {
	return func(rn *Runner) { rn.fetcher = f }
}

// WithProber replaces the HTTP prober.
func WithProber(p webscraper.Prober) Option {
	return func(rn *Runner) { rn.prober = p }
}

// WithRobots replaces the robots.txt checker used when crawl.respect_robots is set.
func WithRobots(r webscraper.RobotsAllower) Option {
	return func(rn *Runner) { rn.robots = r }
}

// RunOptions are per-run switches.
type RunOptions struct {
	// Notify forces a notification regardless of the schedule.
	Notify bool
	// Print writes the run's findings table to Output.
	Print  bool
	Output io.Writer
}

// Report summarizes a finished run.
type Report struct {
	Result     *webscraper.Result
	Records    []ledger.Record
	Unresolved int
	Exported   []string
	Notified   bool
}

// Runner executes crawl runs against one configuration and ledger.
type Runner struct {
	cfg      *config.Config
	ledger   *ledger.Ledger
	notifier *notify.Notifier
	recorder Recorder
	log      logger.Logger

	fetcher webscraper.PageFetcher
	prober  webscraper.Prober
	robots  webscraper.RobotsAllower

	mu sync.Mutex // one run at a time
}

// NewRunner creates a Runner.
func NewRunner(cfg *config.Config, l *ledger.Ledger, n *notify.Notifier, log logger.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		ledger:   l,
		notifier: n,
		recorder: nopRecorder{},
		log:      log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ledger returns the ledger runs are committed to.
func (r *Runner) Ledger() *ledger.Ledger {
	return r.ledger
}

// Run crawls, commits the findings and runs the exporters and the notifier. Export and
// notification failures are logged; crawl cancellation and store failures are returned.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hunter, cleanup, err := r.newHunter()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	res, err := hunter.StartHunting(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Print && opts.Output != nil {
		webscraper.PrintResults(opts.Output, res)
	}

	records, err := r.ledger.Commit(res.Findings)
	if err != nil {
		return nil, fmt.Errorf("commit run %s: %w", res.RunID, err)
	}

	report := &Report{
		Result:     res,
		Records:    ledger.Select(records, ledger.FilterAll),
		Unresolved: ledger.CountUnresolved(records),
	}
	r.recorder.RunCommitted(len(res.Findings), report.Unresolved, len(records))
	r.log.Info("run committed",
		logger.String("run_id", res.RunID),
		logger.Int("stored", len(records)),
		logger.Int("unresolved", report.Unresolved))

	report.Exported = r.export(report.Records)
	report.Notified = r.notify(ctx, ledger.Select(records, ledger.FilterUnresolved), opts.Notify)
	return report, nil
}

func (r *Runner) newHunter() (*webscraper.DeadLinkHunter, func(), error) {
	crawl := r.cfg.Crawl
	client := webscraper.NewHTTPClient(crawl.MaxRedirects)
	cleanup := func() {}

	fetcher := r.fetcher
	if fetcher == nil {
		switch crawl.Renderer {
		case config.RendererBrowser:
			bf, err := webscraper.NewBrowserFetcher(crawl.UserAgent, crawl.FetchTimeout)
			if err != nil {
				return nil, nil, fmt.Errorf("start browser renderer: %w", err)
			}
			cleanup = func() {
				if err := bf.Close(); err != nil {
					r.log.Warn("closing browser renderer", logger.Error(err))
				}
			}
			fetcher = bf
		default:
			fetcher = webscraper.NewHTTPFetcher(client, crawl.UserAgent, crawl.FetchTimeout)
		}
	}
	prober := r.prober
	if prober == nil {
		prober = webscraper.NewHTTPProber(client, crawl.UserAgent)
	}

	classifier := crawl.Classifier()
	opts := []webscraper.HunterOption{
		webscraper.WithLogger(r.log),
		webscraper.WithRequestDelay(crawl.RequestDelay),
		webscraper.WithRecorder(r.recorder),
	}
	if crawl.RespectRobots {
		robots := r.robots
		if robots == nil {
			robots = webscraper.NewRobotsChecker(client, crawl.UserAgent)
		}
		opts = append(opts, webscraper.WithRobots(robots))
	}

	hunter := webscraper.NewDeadLinkHunter(
		classifier,
		webscraper.NewExtractor(fetcher, r.log),
		webscraper.NewChecker(classifier, prober, crawl.CheckerConfig(), r.log),
		crawl.MaxFindings,
		opts...,
	)
	return hunter, cleanup, nil
}

func (r *Runner) export(records []ledger.Record) []string {
	var written []string
	for _, format := range r.cfg.Export.Formats {
		exporter, err := export.New(format)
		if err != nil {
			r.log.Error("export skipped", logger.String("format", format), logger.Error(err))
			continue
		}
		path, err := exporter.Export(records, r.cfg.Export.Basename)
		if err != nil {
			r.log.Error("export failed", logger.String("format", format), logger.Error(err))
			continue
		}
		abs, _ := filepath.Abs(path)
		r.log.Info("report written", logger.String("format", format), logger.String("path", abs))
		written = append(written, path)
	}
	return written
}

func (r *Runner) notify(ctx context.Context, unresolved []ledger.Record, force bool) bool {
	if r.notifier == nil {
		return false
	}
	sent, err := r.notifier.Notify(ctx, unresolved, force)
	if sent || err != nil {
		r.recorder.NotificationSent(err)
	}
	if err != nil {
		r.log.Error("notification failed", logger.Error(err))
		return false
	}
	return sent
}
