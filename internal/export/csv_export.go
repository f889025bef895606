package export

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/yingtu35/deadlink-patrol/internal/ledger"
)

// DeadLinkRow is one line of the grouped CSV report. Page and Counts are filled on the
// first row of each page only.
type DeadLinkRow struct {
	Page         string `csv:"Page,omitempty"`
	Counts       string `csv:"Counts,omitempty"`
	DeadLinks    string `csv:"Dead Links"`
	Status       string `csv:"Status"`
	DetectedDate string `csv:"Detected"`
	Resolved     string `csv:"Resolved"`
}

type CSVExporter struct{}

func NewCSVExporter() Exporter {
	return &CSVExporter{}
}

func (e *CSVExporter) Export(records []ledger.Record, basename string) (string, error) {
	filename := basename + ".csv"
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("export: create %s: %w", filename, err)
	}
	defer file.Close()

	result := e.transformData(records)
	if err := gocsv.MarshalFile(&result, file); err != nil {
		return "", fmt.Errorf("export: write %s: %w", filename, err)
	}
	return filename, nil
}

func (e *CSVExporter) transformData(records []ledger.Record) []DeadLinkRow {
	var result []DeadLinkRow
	for _, g := range GroupBySource(records) {
		for i, link := range g.Links {
			row := DeadLinkRow{
				DeadLinks:    link.URL,
				Status:       link.Status,
				DetectedDate: link.DetectedDate,
				Resolved:     strconv.FormatBool(link.Resolved),
			}
			if i == 0 {
				row.Page = g.Page
				row.Counts = strconv.Itoa(len(g.Links))
			}
			result = append(result, row)
		}
	}
	return result
}
