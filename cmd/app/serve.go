package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yingtu35/deadlink-patrol/internal/api"
	"github.com/yingtu35/deadlink-patrol/internal/app"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := bootstrap()
			if err != nil {
				return err
			}
			defer d.close()

			if addr == "" {
				addr = d.cfg.Server.Addr
			}
			srv := api.NewServer(api.Params{
				Links: d.ledger,
				Run: func(ctx context.Context) (*app.Report, error) {
					return d.runner.Run(ctx, app.RunOptions{})
				},
				Metrics: d.recorder.Handler(),
				Logger:  d.log,
			})
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
