package webscraper

import (
	"fmt"
	"io"
	"time"

	"github.com/rodaine/table"
)

// GroupBySource groups findings by referring page, keeping first-seen order for both
// pages and targets.
func GroupBySource(findings []Finding) (sources []string, bySource map[string][]Finding) {
	bySource = make(map[string][]Finding)
	for _, f := range findings {
		if _, ok := bySource[f.Source]; !ok {
			sources = append(sources, f.Source)
		}
		bySource[f.Source] = append(bySource[f.Source], f)
	}
	return sources, bySource
}

// PrintResults writes the findings of a run as a table, one block per referring page.
func PrintResults(w io.Writer, res *Result) {
	fmt.Fprintf(w, "\nRun %s finished: %s, %d pages visited, %d links checked in %s\n",
		res.RunID, res.State, res.PagesVisited, res.LinksChecked, res.Duration().Round(time.Millisecond))
	if len(res.Findings) == 0 {
		fmt.Fprintln(w, "No dead links found")
		return
	}

	tbl := table.New("Page", "Counts", "Dead Links", "Status").WithWriter(w)
	sources, bySource := GroupBySource(res.Findings)
	for _, source := range sources {
		for i, f := range bySource[source] {
			if i == 0 {
				tbl.AddRow(source, len(bySource[source]), f.Target, f.Status)
			} else {
				tbl.AddRow("", "", f.Target, f.Status)
			}
		}
	}
	tbl.Print()
}
