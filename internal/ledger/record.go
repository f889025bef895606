// Package ledger persists the broken-link set across runs and merges each run's findings
// with the resolution history recorded by reviewers.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// DateLayout is the timestamp format used in the store and the annotation log.
const DateLayout = "2006-01-02 15:04:05"

var (
	// ErrNoData is returned when the store file does not exist yet.
	ErrNoData = errors.New("no data available")
	// ErrNotFound is returned when annotating a key that is not in the store.
	ErrNotFound = errors.New("link not found")
)

// Key identifies a broken link: the page it was found on and the link target.
type Key struct {
	Source string
	URL    string
}

// Record is one row of the durable store.
type Record struct {
	Source       string `csv:"source"        json:"source"`
	URL          string `csv:"url"           json:"url"`
	Status       string `csv:"status"        json:"status"`
	DetectedDate string `csv:"detected_date" json:"detected_date"`
	Resolved     bool   `csv:"resolved"      json:"resolved"`
	ResolvedDate string `csv:"resolved_date" json:"resolved_date"`
}

// Key returns the record's identity.
func (r Record) Key() Key {
	return Key{Source: r.Source, URL: r.URL}
}

// SetResolved flips the resolution flag of key. The resolved date is stamped on a
// false→true transition and cleared when the link is marked unresolved.
func SetResolved(records map[Key]Record, key Key, resolved bool, now time.Time) (Record, error) {
	r, ok := records[key]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s -> %s", ErrNotFound, key.Source, key.URL)
	}
	switch {
	case !resolved:
		r.ResolvedDate = ""
	case !r.Resolved || r.ResolvedDate == "":
		r.ResolvedDate = now.Format(DateLayout)
	}
	r.Resolved = resolved
	records[key] = r
	return r, nil
}

// Filter selects which records a view shows.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterUnresolved Filter = "unresolved"
	FilterResolved   Filter = "resolved"
)

// ParseFilter validates a filter name. Empty means FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterUnresolved, FilterResolved:
		return Filter(s), nil
	}
	return "", fmt.Errorf("unknown filter %q (want all, unresolved or resolved)", s)
}

// Select returns the records matching f, sorted by source then URL.
func Select(records map[Key]Record, f Filter) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		switch {
		case f == FilterUnresolved && r.Resolved:
			continue
		case f == FilterResolved && !r.Resolved:
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].URL < out[j].URL
	})
	return out
}

// CountUnresolved returns how many records are still open.
func CountUnresolved(records map[Key]Record) int {
	n := 0
	for _, r := range records {
		if !r.Resolved {
			n++
		}
	}
	return n
}
