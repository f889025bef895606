package main

import (
	"fmt"
	"io"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/yingtu35/deadlink-patrol/internal/ledger"
)

func newLinksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Inspect and annotate the broken-link store",
	}
	cmd.AddCommand(newLinksListCommand(), newResolveCommand(true), newResolveCommand(false))
	return cmd
}

func newLinksListCommand() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored broken links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := ledger.ParseFilter(filter)
			if err != nil {
				return err
			}
			d, err := bootstrap()
			if err != nil {
				return err
			}
			defer d.close()

			records, err := d.ledger.View(f)
			if err != nil {
				return err
			}
			printRecords(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", string(ledger.FilterAll), "all, unresolved or resolved")
	return cmd
}

func newResolveCommand(resolved bool) *cobra.Command {
	use, short := "resolve", "Mark a broken link as resolved"
	if !resolved {
		use, short = "unresolve", "Mark a broken link as unresolved"
	}

	return &cobra.Command{
		Use:   use + " <source> <url>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := bootstrap()
			if err != nil {
				return err
			}
			defer d.close()

			rec, err := d.ledger.SetResolved(ledger.Key{Source: args[0], URL: args[1]}, resolved)
			if err != nil {
				return err
			}
			printRecords(cmd.OutOrStdout(), []ledger.Record{rec})
			return nil
		},
	}
}

func printRecords(w io.Writer, records []ledger.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No links")
		return
	}
	tbl := table.New("Source", "URL", "Status", "Detected", "Resolved", "Resolved Date").WithWriter(w)
	for _, r := range records {
		tbl.AddRow(r.Source, r.URL, r.Status, r.DetectedDate, r.Resolved, r.ResolvedDate)
	}
	tbl.Print()
}
