package export

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/yingtu35/deadlink-patrol/internal/ledger"
)

const sheetName = "Broken Links"

var xlsxHeaders = []string{"Page", "Dead Links", "Status", "Detected", "Resolved", "Resolved Date"}

// XLSXExporter writes one row per broken link, with a header row and autofilter.
type XLSXExporter struct{}

func NewXLSXExporter() Exporter {
	return &XLSXExporter{}
}

func (e *XLSXExporter) Export(records []ledger.Record, basename string) (string, error) {
	filename := basename + ".xlsx"

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	if err := setRow(f, 1, toAny(xlsxHeaders)); err != nil {
		return "", err
	}
	for i, r := range records {
		row := []any{r.Source, r.URL, r.Status, r.DetectedDate, strconv.FormatBool(r.Resolved), r.ResolvedDate}
		if err := setRow(f, i+2, row); err != nil {
			return "", err
		}
	}

	last, err := excelize.CoordinatesToCellName(len(xlsxHeaders), len(records)+1)
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	if err := f.AutoFilter(sheetName, "A1:"+last, nil); err != nil {
		return "", fmt.Errorf("export: autofilter: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", "B", 60); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}

	if err := f.SaveAs(filename); err != nil {
		return "", fmt.Errorf("export: write %s: %w", filename, err)
	}
	return filename, nil
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("export: row %d: %w", row, err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
