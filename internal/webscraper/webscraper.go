package webscraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/yingtu35/deadlink-patrol/internal/logger"
	"github.com/yingtu35/deadlink-patrol/pkg/domain"
)

// Recorder receives crawl events for metrics.
type Recorder interface {
	PageFetched(outcome string)
	LinkChecked(broken bool)
	FindingRecorded(status string)
	RunFinished(state string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) PageFetched(string)                {}
func (nopRecorder) LinkChecked(bool)                  {}
func (nopRecorder) FindingRecorded(string)            {}
func (nopRecorder) RunFinished(string, time.Duration) {}

// HunterOption customizes a DeadLinkHunter.
type HunterOption func(*DeadLinkHunter)

// WithLogger sets the hunter's logger.
func WithLogger(log logger.Logger) HunterOption {
	return func(d *DeadLinkHunter) { d.log = log }
}

// WithRobots makes the hunter skip pages disallowed by robots.txt.
func WithRobots(robots RobotsAllower) HunterOption {
	return func(d *DeadLinkHunter) { d.robots = robots }
}

// WithRequestDelay spaces every outgoing request by at least delay.
func WithRequestDelay(delay time.Duration) HunterOption {
	return func(d *DeadLinkHunter) {
		if delay > 0 {
			d.limiter = rate.NewLimiter(rate.Every(delay), 1)
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) HunterOption {
	return func(d *DeadLinkHunter) { d.recorder = r }
}

// DeadLinkHunter drives a breadth-first crawl from the allowed prefixes, one request at a
// time, and collects broken-link findings until the queue drains or the cap is reached.
type DeadLinkHunter struct {
	classifier  *domain.Classifier
	extractor   *Extractor
	checker     *Checker
	maxFindings int

	robots   RobotsAllower
	limiter  *rate.Limiter
	recorder Recorder
	log      logger.Logger

	state State
}

// NewDeadLinkHunter creates a hunter. maxFindings <= 0 disables the cap.
func NewDeadLinkHunter(
	classifier *domain.Classifier,
	extractor *Extractor,
	checker *Checker,
	maxFindings int,
	opts ...HunterOption,
) *DeadLinkHunter {
	d := &DeadLinkHunter{
		classifier:  classifier,
		extractor:   extractor,
		checker:     checker,
		maxFindings: maxFindings,
		limiter:     rate.NewLimiter(rate.Inf, 1),
		recorder:    nopRecorder{},
		log:         logger.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the state of the most recent run.
func (d *DeadLinkHunter) State() State {
	return d.state
}

// hunt is the per-run state: queue, visited set and findings belong to exactly one run.
type hunt struct {
	queue        []CrawlTarget
	visited      mapset.Set[string]
	findings     *Findings
	pagesVisited int
	linksChecked int
	log          logger.Logger
}

func (h *hunt) enqueue(t CrawlTarget) {
	h.queue = append(h.queue, t)
}

func (h *hunt) dequeue() (CrawlTarget, bool) {
	if len(h.queue) == 0 {
		return CrawlTarget{}, false
	}
	t := h.queue[0]
	h.queue[0] = CrawlTarget{}
	h.queue = h.queue[1:]
	return t, true
}

// StartHunting runs one crawl. Reaching the cap and draining the queue are both normal
// terminations; an error is returned only when ctx is cancelled.
func (d *DeadLinkHunter) StartHunting(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	h := &hunt{
		visited:  mapset.NewThreadUnsafeSet[string](),
		findings: NewFindings(d.maxFindings),
		log:      d.log.With(logger.String("run_id", runID)),
	}
	res := &Result{RunID: runID, StartedAt: time.Now()}

	for _, prefix := range d.classifier.AllowedPrefixes() {
		h.enqueue(CrawlTarget{URL: prefix, Role: RoleSeed})
	}

	d.state = StateRunning
	h.log.Info("hunting started", logger.Int("seeds", len(h.queue)), logger.Int("max_findings", d.maxFindings))

	for {
		if err := ctx.Err(); err != nil {
			d.state = StateIdle
			return nil, fmt.Errorf("hunt cancelled: %w", err)
		}
		if h.findings.Full() {
			d.state = StateCapReached
			break
		}
		target, ok := h.dequeue()
		if !ok {
			d.state = StateCompleted
			break
		}
		if h.visited.Contains(target.URL) {
			continue
		}
		h.visited.Add(target.URL)

		d.visit(ctx, h, target)
	}

	res.State = d.state
	res.Findings = h.findings.Items()
	res.PagesVisited = h.pagesVisited
	res.LinksChecked = h.linksChecked
	res.FinishedAt = time.Now()
	d.recorder.RunFinished(res.State.String(), res.Duration())

	h.log.Info("hunting finished",
		logger.String("state", res.State.String()),
		logger.Int("findings", h.findings.Len()),
		logger.Int("pages_visited", res.PagesVisited),
		logger.Int("links_checked", res.LinksChecked),
		logger.Duration("elapsed", res.Duration()))

	return res, nil
}

func (d *DeadLinkHunter) visit(ctx context.Context, h *hunt, target CrawlTarget) {
	if d.robots != nil {
		allowed, err := d.robots.IsAllowed(ctx, target.URL)
		if err == nil && !allowed {
			h.log.Info("skipping page disallowed by robots.txt", logger.String("url", target.URL))
			d.recorder.PageFetched("robots_blocked")
			return
		}
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return
	}

	h.log.Debug("fetching page", logger.String("url", target.URL), logger.String("role", target.Role.String()))
	links, err := d.extractor.Extract(ctx, target)
	h.pagesVisited++

	var pageErr *PageError
	switch {
	case errors.As(err, &pageErr):
		d.recorder.PageFetched("failed")
		d.recordPageFailure(h, target, pageErr)
		return
	case err != nil:
		d.recorder.PageFetched("cancelled")
		return
	}
	d.recorder.PageFetched("ok")

	for link := range links {
		if h.findings.Full() {
			return
		}
		d.route(ctx, h, target.URL, link)
	}
}

// route sends an extracted link either to the queue or to the checker.
func (d *DeadLinkHunter) route(ctx context.Context, h *hunt, current, link string) {
	if !d.classifier.IsInternal(link) {
		if d.classifier.IsExcludedDomain(link) {
			return
		}
		d.check(ctx, h, link, current)
		return
	}
	if !d.classifier.IsAllowedSource(link) || h.visited.Contains(link) {
		return
	}
	// Assets are probed rather than downloaded and parsed.
	if domain.IsBinaryFileURL(link) {
		d.check(ctx, h, link, current)
		return
	}
	h.enqueue(CrawlTarget{URL: link, Role: RoleDiscovered, Referrer: current})
}

func (d *DeadLinkHunter) check(ctx context.Context, h *hunt, link, current string) {
	if err := d.limiter.Wait(ctx); err != nil {
		return
	}
	h.linksChecked++
	finding, broken := d.checker.CheckStatus(ctx, link, current)
	d.recorder.LinkChecked(broken)
	if broken {
		d.addFinding(h, finding)
	}
}

// recordPageFailure attributes a missing page to the page that linked to it. Seeds have
// no referrer and are attributed to themselves.
func (d *DeadLinkHunter) recordPageFailure(h *hunt, target CrawlTarget, pageErr *PageError) {
	source := target.Referrer
	if source == "" {
		source = target.URL
	}
	if !d.classifier.IsAllowedSource(source) {
		return
	}
	d.addFinding(h, Finding{Source: source, Target: target.URL, Status: pageErr.Status})
}

func (d *DeadLinkHunter) addFinding(h *hunt, f Finding) {
	if !h.findings.Add(f) {
		return
	}
	d.recorder.FindingRecorded(f.Status.String())
	h.log.Info("dead link found",
		logger.String("source", f.Source),
		logger.String("url", f.Target),
		logger.String("status", f.Status.String()))
}
