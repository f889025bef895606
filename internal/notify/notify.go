// Package notify posts a summary of unresolved broken links to a chat webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yingtu35/deadlink-patrol/internal/ledger"
	"github.com/yingtu35/deadlink-patrol/internal/logger"
)

const (
	header = "[Link Checker]"

	// MaxListed is how many links a message lists before summarizing the rest.
	MaxListed = 20

	defaultTimeout = 10 * time.Second
)

// ErrWebhook is returned when the webhook answers with a non-2xx status.
var ErrWebhook = errors.New("webhook rejected message")

// Config configures the Notifier.
type Config struct {
	WebhookURL   string        `mapstructure:"webhook_url"`
	Schedule     string        `mapstructure:"schedule"`
	DashboardURL string        `mapstructure:"dashboard_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// Notifier sends run summaries. Without a webhook URL every call is a no-op.
type Notifier struct {
	webhookURL   string
	dashboardURL string
	schedule     cron.Schedule
	client       *http.Client
	log          logger.Logger
	now          func() time.Time
}

// New creates a Notifier. An empty schedule means only forced notifications are sent.
func New(cfg Config, log logger.Logger) (*Notifier, error) {
	n := &Notifier{
		webhookURL:   cfg.WebhookURL,
		dashboardURL: cfg.DashboardURL,
		log:          log,
		now:          time.Now,
	}
	if cfg.Schedule != "" {
		sched, err := cron.ParseStandard(cfg.Schedule)
		if err != nil {
			return nil, fmt.Errorf("notify: parse schedule %q: %w", cfg.Schedule, err)
		}
		n.schedule = sched
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	n.client = &http.Client{Timeout: timeout}
	return n, nil
}

// WithClock replaces the time source. Used by tests.
func (n *Notifier) WithClock(now func() time.Time) *Notifier {
	n.now = now
	return n
}

// Enabled reports whether a webhook is configured.
func (n *Notifier) Enabled() bool {
	return n.webhookURL != ""
}

// Due reports whether the schedule has an activation on the calendar day of t.
func (n *Notifier) Due(t time.Time) bool {
	if n.schedule == nil {
		return false
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	next := n.schedule.Next(start.Add(-time.Second))
	return next.Before(start.AddDate(0, 0, 1))
}

// Notify posts a summary of unresolved when the webhook is configured and either force is
// set or the schedule is due today. It reports whether a message was sent.
func (n *Notifier) Notify(ctx context.Context, unresolved []ledger.Record, force bool) (bool, error) {
	if !n.Enabled() {
		n.log.Debug("notification skipped: no webhook configured")
		return false, nil
	}
	if !force && !n.Due(n.now()) {
		n.log.Debug("notification skipped: not scheduled today")
		return false, nil
	}

	msg := BuildMessage(unresolved, n.dashboardURL)
	if err := n.post(ctx, msg); err != nil {
		return false, err
	}
	n.log.Info("notification sent", logger.Int("unresolved", len(unresolved)))
	return true, nil
}

func (n *Notifier) post(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("notify: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrWebhook, resp.StatusCode)
	}
	return nil
}

// BuildMessage renders the webhook text for unresolved links.
func BuildMessage(unresolved []ledger.Record, dashboardURL string) string {
	var b strings.Builder
	b.WriteString(header + "\n")

	if len(unresolved) == 0 {
		b.WriteString("No broken links found!")
	} else {
		fmt.Fprintf(&b, "Broken links found: %d unresolved\n", len(unresolved))
		for i, r := range unresolved {
			if i == MaxListed {
				fmt.Fprintf(&b, "...and %d more\n", len(unresolved)-MaxListed)
				break
			}
			fmt.Fprintf(&b, "- %s [Status: %s] (found on: %s)\n", r.URL, r.Status, r.Source)
		}
	}

	if dashboardURL != "" {
		fmt.Fprintf(&b, "\nDashboard: %s", dashboardURL)
	}
	return strings.TrimRight(b.String(), "\n")
}
