package ledger

import (
	"errors"
	"sync"
	"time"

	"github.com/yingtu35/deadlink-patrol/internal/webscraper"
)

// Ledger couples the store with the annotation log. Every operation is a whole-file
// read-modify-write; within a process they are serialized, across processes the last
// writer wins.
type Ledger struct {
	store       *Store
	annotations *AnnotationLog
	now         func() time.Time
	mu          sync.Mutex
}

// New creates a Ledger. annotationsPath may be empty to run without an annotation log.
func New(storePath, annotationsPath string) *Ledger {
	return &Ledger{
		store:       NewStore(storePath),
		annotations: NewAnnotationLog(annotationsPath),
		now:         time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Commit reconciles a run's findings into the store and returns the new records.
func (l *Ledger) Commit(findings []webscraper.Finding) (map[Key]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev, err := l.store.Load()
	if errors.Is(err, ErrNoData) {
		prev = map[Key]Record{}
	} else if err != nil {
		return nil, err
	}
	annotations, err := l.annotations.Load()
	if err != nil {
		return nil, err
	}

	next := Reconcile(prev, findings, l.now())
	Apply(next, annotations)

	if err := l.store.Save(next); err != nil {
		return nil, err
	}
	return next, nil
}

// Records returns the store with annotations applied. ErrNoData when no run has
// been committed yet.
func (l *Ledger) Records() (map[Key]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.load()
}

// View returns the records matching f, sorted.
func (l *Ledger) View(f Filter) ([]Record, error) {
	records, err := l.Records()
	if err != nil {
		return nil, err
	}
	return Select(records, f), nil
}

// SetResolved records a reviewer's resolution of key in both the store and the
// annotation log.
func (l *Ledger) SetResolved(key Key, resolved bool) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load()
	if err != nil {
		return Record{}, err
	}
	rec, err := SetResolved(records, key, resolved, l.now())
	if err != nil {
		return Record{}, err
	}

	annotations, err := l.annotations.Load()
	if err != nil {
		return Record{}, err
	}
	annotations[key] = Annotation{
		Source:       rec.Source,
		URL:          rec.URL,
		Resolved:     rec.Resolved,
		ResolvedDate: rec.ResolvedDate,
	}

	if err := l.store.Save(records); err != nil {
		return Record{}, err
	}
	if err := l.annotations.Save(annotations); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (l *Ledger) load() (map[Key]Record, error) {
	records, err := l.store.Load()
	if err != nil {
		return nil, err
	}
	annotations, err := l.annotations.Load()
	if err != nil {
		return nil, err
	}
	Apply(records, annotations)
	return records, nil
}
