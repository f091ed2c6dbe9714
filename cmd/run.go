package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jandubois/clusterwatch/internal/watcher"
	"github.com/jandubois/clusterwatch/internal/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run probe rounds continuously",
	Long: `Run executes a probe round every interval until interrupted, saves each
report to the journal, dispatches alerts and serves the status API and
Prometheus metrics on listen_addr.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Duration("interval", 0, "Override the configured round interval")
	runCmd.Flags().String("listen", "", "Override the configured listen address")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 {
		cfg.Interval = interval
	}
	if cmd.Flags().Changed("listen") {
		cfg.ListenAddr, _ = cmd.Flags().GetString("listen")
	}

	c, err := build(ctx, cfg, buildOptions{journal: true, metrics: true, notify: true})
	if err != nil {
		return fmt.Errorf("watcher initialization failed: %w", err)
	}
	defer c.close()

	w := watcher.New(c.watcherOptions())

	if cfg.ListenAddr != "" {
		var authToken string
		if cfg.AuthTokenEnv != "" {
			authToken = os.Getenv(cfg.AuthTokenEnv)
			if authToken == "" {
				slog.Warn("status API token is empty, API is unauthenticated", "env", cfg.AuthTokenEnv)
			}
		}
		opts := web.Options{
			Rounds:    w,
			Metrics:   c.metrics.Handler(),
			AuthToken: authToken,
			Version:   Version,
		}
		if c.store != nil {
			opts.History = c.store
		}
		w.SetAPI(cfg.ListenAddr, web.NewServer(opts).Handler())
	}

	slog.Info("starting clusterwatch",
		"version", Version,
		"hostname", cfg.Hostname,
		"interval", cfg.Interval,
		"probes", len(cfg.Probes),
		"journal", cfg.DatabasePath,
		"listen", cfg.ListenAddr,
	)
	return w.Run(ctx)
}
