package main

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/yingtu35/deadlink-patrol/internal/api"
	"github.com/yingtu35/deadlink-patrol/internal/app"
	"github.com/yingtu35/deadlink-patrol/internal/logger"
)

func newWatchCommand() *cobra.Command {
	var withServer bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Crawl on the watch schedule until interrupted",
		Long: `Run a crawl at every activation of watch.schedule (standard five-field cron).
A run still in progress when the next activation fires causes that activation
to be skipped. Notifications follow notify.schedule.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := bootstrap()
			if err != nil {
				return err
			}
			defer d.close()

			ctx := cmd.Context()
			c := cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)))
			_, err = c.AddFunc(d.cfg.Watch.Schedule, func() {
				report, err := d.runner.Run(ctx, app.RunOptions{})
				if err != nil {
					d.log.Error("scheduled run failed", logger.Error(err))
					return
				}
				d.log.Info("scheduled run finished",
					logger.String("run_id", report.Result.RunID),
					logger.Int("unresolved", report.Unresolved))
			})
			if err != nil {
				return err
			}

			c.Start()
			d.log.Info("watching", logger.String("schedule", d.cfg.Watch.Schedule))
			defer func() {
				<-c.Stop().Done()
			}()

			if withServer {
				srv := api.NewServer(api.Params{
					Links: d.ledger,
					Run: func(ctx context.Context) (*app.Report, error) {
						return d.runner.Run(ctx, app.RunOptions{})
					},
					Metrics: d.recorder.Handler(),
					Logger:  d.log,
				})
				return srv.ListenAndServe(ctx, d.cfg.Server.Addr)
			}

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&withServer, "serve", false, "also serve the dashboard API")
	return cmd
}
