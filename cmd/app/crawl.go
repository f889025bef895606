package main

import (
	"github.com/spf13/cobra"

	"github.com/yingtu35/deadlink-patrol/internal/app"
	"github.com/yingtu35/deadlink-patrol/internal/logger"
)

func newCrawlCommand() *cobra.Command {
	var (
		forceNotify bool
		printTable  bool
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run one crawl and update the broken-link store",
		Long: `Crawl the allowed prefixes, probe every link found, reconcile the findings into
the store and write the configured reports. The run succeeds both when the queue
drains and when the findings cap is reached.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := bootstrap()
			if err != nil {
				return err
			}
			defer d.close()

			report, err := d.runner.Run(cmd.Context(), app.RunOptions{
				Notify: forceNotify,
				Print:  printTable,
				Output: cmd.OutOrStdout(),
			})
			if err != nil {
				return err
			}

			d.log.Info("crawl finished",
				logger.String("run_id", report.Result.RunID),
				logger.String("state", report.Result.State.String()),
				logger.Int("findings", len(report.Result.Findings)),
				logger.Int("unresolved", report.Unresolved),
				logger.Strings("reports", report.Exported),
				logger.Bool("notified", report.Notified))
			return nil
		},
	}

	cmd.Flags().BoolVar(&forceNotify, "notify", false, "send the notification regardless of the schedule")
	cmd.Flags().BoolVar(&printTable, "print", false, "print the run's findings as a table")
	return cmd
}
