package webscraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"syscall"
	"time"
)

// Role tells whether a crawl target came from configuration or was discovered on a page.
type Role int

const (
	RoleSeed Role = iota
	RoleDiscovered
)

func (r Role) String() string {
	if r == RoleSeed {
		return "seed"
	}
	return "discovered"
}

// CrawlTarget is a queued page. Referrer is the in-scope page that first linked to it
// and is empty for seeds.
type CrawlTarget struct {
	URL      string
	Role     Role
	Referrer string
}

// ErrorKind names a transport failure class.
type ErrorKind string

const (
	KindTimeout    ErrorKind = "timeout"
	KindDNS        ErrorKind = "dns"
	KindConnection ErrorKind = "connection"
	KindRedirect   ErrorKind = "redirect"
	KindOther      ErrorKind = "error"
)

// ClassifyError maps a transport error to an ErrorKind.
func ClassifyError(err error) ErrorKind {
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTooManyRedirects):
		return KindRedirect
	case errors.As(err, &dnsErr):
		return KindDNS
	case errors.Is(err, context.DeadlineExceeded), os.IsTimeout(err):
		return KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return KindTimeout
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return KindConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnection
	}
	return KindOther
}

// Status is either an HTTP status code or a transport error kind.
type Status struct {
	Code int
	Kind ErrorKind
}

// String renders "404" for HTTP codes and "error: timeout" for transport failures.
func (s Status) String() string {
	if s.Code > 0 {
		return strconv.Itoa(s.Code)
	}
	if s.Kind == "" {
		return string(KindOther)
	}
	return "error: " + string(s.Kind)
}

// Finding is one broken-link observation of the current run.
type Finding struct {
	Source string
	Target string
	Status Status
}

// PageError is returned by the Extractor when the page itself is missing or unreachable.
type PageError struct {
	URL    string
	Status Status
	Err    error
}

func (e *PageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("page %s: %s: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("page %s: status %s", e.URL, e.Status)
}

func (e *PageError) Unwrap() error { return e.Err }

// Findings accumulates the run's findings in order and refuses appends once the cap is hit.
type Findings struct {
	items []Finding
	limit int
}

// NewFindings returns an accumulator capped at limit. A limit <= 0 means no cap.
func NewFindings(limit int) *Findings {
	return &Findings{limit: limit}
}

// Add appends f unless the cap is reached and reports whether it was stored.
func (f *Findings) Add(finding Finding) bool {
	if f.Full() {
		return false
	}
	f.items = append(f.items, finding)
	return true
}

func (f *Findings) Len() int { return len(f.items) }

// Full reports whether the cap has been reached.
func (f *Findings) Full() bool {
	return f.limit > 0 && len(f.items) >= f.limit
}

// Items returns a copy of the findings in insertion order.
func (f *Findings) Items() []Finding {
	return append([]Finding(nil), f.items...)
}

// State is the hunter's run state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCapReached
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCapReached:
		return "cap_reached"
	default:
		return "idle"
	}
}

// Result summarizes a finished run. Both Completed and CapReached are successful outcomes.
type Result struct {
	RunID        string
	State        State
	Findings     []Finding
	PagesVisited int
	LinksChecked int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration is the wall-clock length of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
