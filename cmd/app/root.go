package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yingtu35/deadlink-patrol/internal/app"
	"github.com/yingtu35/deadlink-patrol/internal/config"
	"github.com/yingtu35/deadlink-patrol/internal/ledger"
	"github.com/yingtu35/deadlink-patrol/internal/logger"
	"github.com/yingtu35/deadlink-patrol/internal/metrics"
	"github.com/yingtu35/deadlink-patrol/internal/notify"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug forces debug logging in development format.
	debug bool

	// version is set at build time with -ldflags "-X main.version=...".
	version = "dev"

	rootCmd = &cobra.Command{
		Use:   "deadlink-patrol",
		Short: "Crawl a site section and keep track of its broken links",
		Long: `deadlink-patrol crawls the configured URL prefixes breadth-first, probes every
external link, and keeps a ledger of broken links that reviewers can mark as resolved.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newCrawlCommand(),
		newLinksCommand(),
		newServeCommand(),
		newWatchCommand(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "deadlink-patrol %s\n", version)
			},
		},
	)
}

// deps are the components shared by every command.
type deps struct {
	cfg      *config.Config
	log      logger.Logger
	ledger   *ledger.Ledger
	recorder *metrics.Recorder
	runner   *app.Runner
}

func bootstrap() (*deps, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Logger.Level = "debug"
		cfg.Logger.Development = true
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, err
	}

	notifier, err := notify.New(cfg.Notify, log)
	if err != nil {
		return nil, err
	}

	l := ledger.New(cfg.Store.Path, cfg.Store.AnnotationsPath)
	recorder := metrics.New()
	runner := app.NewRunner(cfg, l, notifier, log, app.WithRecorder(recorder))

	return &deps{cfg: cfg, log: log, ledger: l, recorder: recorder, runner: runner}, nil
}

func (d *deps) close() {
	_ = d.log.Sync()
}
