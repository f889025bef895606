package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/yingtu35/deadlink-patrol/internal/ledger"
)

// Record is one page of the JSON report.
type Record struct {
	Page      string     `json:"Page"`
	Counts    int        `json:"Counts"`
	DeadLinks []DeadLink `json:"Dead Links"`
}

// DeadLink is a broken link inside a JSON report Record.
type DeadLink struct {
	URL          string `json:"url"`
	Status       string `json:"status"`
	DetectedDate string `json:"detected_date"`
	Resolved     bool   `json:"resolved"`
	ResolvedDate string `json:"resolved_date,omitempty"`
}

type JsonExporter struct{}

func NewJsonExporter() Exporter {
	return &JsonExporter{}
}

func (e *JsonExporter) Export(records []ledger.Record, basename string) (string, error) {
	filename := basename + ".json"
	resultJson, err := json.MarshalIndent(e.transformData(records), "", "    ")
	if err != nil {
		return "", fmt.Errorf("export: encode %s: %w", filename, err)
	}
	if err := os.WriteFile(filename, resultJson, 0o644); err != nil {
		return "", fmt.Errorf("export: write %s: %w", filename, err)
	}
	return filename, nil
}

func (e *JsonExporter) transformData(records []ledger.Record) []Record {
	result := []Record{}
	for _, g := range GroupBySource(records) {
		rec := Record{Page: g.Page, Counts: len(g.Links)}
		for _, link := range g.Links {
			rec.DeadLinks = append(rec.DeadLinks, DeadLink{
				URL:          link.URL,
				Status:       link.Status,
				DetectedDate: link.DetectedDate,
				Resolved:     link.Resolved,
				ResolvedDate: link.ResolvedDate,
			})
		}
		result = append(result, rec)
	}
	return result
}
