package ledger

import (
	"time"

	"github.com/yingtu35/deadlink-patrol/internal/webscraper"
)

// Reconcile builds the new store from the previous one and this run's findings.
//
// Keys found again keep their detection date and resolution state. New keys are stamped
// with now. Keys absent from findings are dropped: the store always equals the latest
// run's broken set. Duplicate keys within findings resolve last-write-wins.
// Reconciling an already reconciled store with the same findings returns an equal store.
func Reconcile(prev map[Key]Record, findings []webscraper.Finding, now time.Time) map[Key]Record {
	latest := make(map[Key]string, len(findings))
	for _, f := range findings {
		latest[Key{Source: f.Source, URL: f.Target}] = f.Status.String()
	}

	detected := now.Format(DateLayout)
	next := make(map[Key]Record, len(latest))
	for key, status := range latest {
		rec := Record{Source: key.Source, URL: key.URL, Status: status, DetectedDate: detected}
		if old, ok := prev[key]; ok {
			if old.DetectedDate != "" {
				rec.DetectedDate = old.DetectedDate
			}
			rec.Resolved = old.Resolved
			rec.ResolvedDate = old.ResolvedDate
		}
		next[key] = rec
	}
	return next
}
