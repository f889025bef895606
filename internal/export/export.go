// Package export renders the broken-link store as report files for reviewers.
package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yingtu35/deadlink-patrol/internal/ledger"
)

// ErrUnknownFormat is returned for a format no exporter handles.
var ErrUnknownFormat = errors.New("unknown export format")

type Exporter interface {
	// Export writes records to basename plus the exporter's extension and returns the path written.
	Export(records []ledger.Record, basename string) (string, error)
}

// Formats lists the supported format names.
var Formats = []string{"csv", "json", "xlsx"}

// New returns the exporter for format.
func New(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "csv":
		return NewCSVExporter(), nil
	case "json":
		return NewJsonExporter(), nil
	case "xlsx":
		return NewXLSXExporter(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Group is one source page with the broken links found on it.
type Group struct {
	Page  string
	Links []ledger.Record
}

// GroupBySource groups records by source page, preserving the order of records.
func GroupBySource(records []ledger.Record) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, r := range records {
		i, ok := index[r.Source]
		if !ok {
			i = len(groups)
			index[r.Source] = i
			groups = append(groups, Group{Page: r.Source})
		}
		groups[i].Links = append(groups[i].Links, r)
	}
	return groups
}
