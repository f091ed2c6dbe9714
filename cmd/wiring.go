package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jandubois/clusterwatch/internal/config"
	"github.com/jandubois/clusterwatch/internal/db"
	"github.com/jandubois/clusterwatch/internal/host"
	"github.com/jandubois/clusterwatch/internal/notify"
	"github.com/jandubois/clusterwatch/internal/observe"
	"github.com/jandubois/clusterwatch/internal/probe"
	"github.com/jandubois/clusterwatch/internal/probes"
	"github.com/jandubois/clusterwatch/internal/probes/backup"
	"github.com/jandubois/clusterwatch/internal/probes/certificate"
	"github.com/jandubois/clusterwatch/internal/probes/cluster"
	"github.com/jandubois/clusterwatch/internal/probes/network"
	"github.com/jandubois/clusterwatch/internal/probes/protocol"
	"github.com/jandubois/clusterwatch/internal/probes/resource"
	"github.com/jandubois/clusterwatch/internal/probes/service"
	"github.com/jandubois/clusterwatch/internal/report"
	"github.com/jandubois/clusterwatch/internal/watcher"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flag, _ := cmd.Flags().GetString("config")
	path := config.ResolvePath(flag)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("config loaded", "path", path, "probes", len(cfg.Probes))
	return cfg, nil
}

// components holds everything a watcher needs, plus what has to be closed.
type components struct {
	cfg      *config.Config
	executor *watcher.Executor
	sink     report.Sink
	store    *db.Store
	metrics  *observe.Metrics
	tracer   *observe.Tracer
	closers  []func() error
}

type buildOptions struct {
	journal bool
	metrics bool
	notify  bool
}

func build(ctx context.Context, cfg *config.Config, opts buildOptions) (*components, error) {
	c := &components{cfg: cfg}

	procReader, err := host.NewProcReader("")
	if err != nil {
		return nil, fmt.Errorf("create resource reader: %w", err)
	}

	galera, err := openGalera(cfg.Cluster)
	if err != nil {
		return nil, err
	}
	var clusterQuery cluster.StatusQuery
	if galera != nil {
		clusterQuery = galera
		c.closers = append(c.closers, galera.Close)
	}

	dialer := host.Dialer{}
	registry := probes.NewRegistry()
	registry.Register(probe.DomainResource, resource.New(procReader))
	registry.Register(probe.DomainService, service.New(host.NewSystemd(nil)))
	registry.Register(probe.DomainNetwork, network.New(host.NewNetwork(nil), dialer))
	registry.Register(probe.DomainCluster, cluster.New(clusterQuery))
	registry.Register(probe.DomainProtocol, protocol.New(dialer, nil))
	registry.Register(probe.DomainCertificate, certificate.New())
	registry.Register(probe.DomainBackup, backup.New())

	res, err := observe.NewResource(ctx, Version, cfg.Hostname)
	if err != nil {
		c.close()
		return nil, err
	}
	tracer, err := observe.NewTracer(ctx, cfg.Telemetry.TracingExporter, cfg.Telemetry.SampleRatio, res)
	if err != nil {
		c.close()
		return nil, fmt.Errorf("create tracer: %w", err)
	}
	c.tracer = tracer
	c.closers = append(c.closers, func() error {
		return tracer.Shutdown(context.Background())
	})

	c.executor = watcher.NewExecutor(tracer.WrapProber(registry), watcher.ExecutorOptions{
		Mounts:         procReader,
		RoundTimeout:   cfg.RoundTimeout,
		DefaultTimeout: cfg.DefaultTimeout,
		MaxConcurrent:  cfg.MaxConcurrent,
	})

	if opts.notify {
		dispatcher := notify.NewDispatcher(cfg.Notify.Timeout)
		if err := dispatcher.LoadChannels(cfg.Notify.Channels); err != nil {
			c.close()
			return nil, fmt.Errorf("create notification channels: %w", err)
		}
		if dispatcher.Len() == 0 {
			dispatcher.Add("log", notify.LogChannel{})
		}
		c.sink = dispatcher
	}

	if opts.journal && cfg.DatabasePath != "" {
		store, err := db.Open(ctx, cfg.DatabasePath)
		if err != nil {
			c.close()
			return nil, fmt.Errorf("open report journal: %w", err)
		}
		c.store = store
		c.closers = append(c.closers, store.Close)
	}

	if opts.metrics {
		metrics, err := observe.New(ctx, observe.Options{
			PushExporter: cfg.Telemetry.MetricsExporter,
			Resource:     res,
		})
		if err != nil {
			c.close()
			return nil, fmt.Errorf("create metrics: %w", err)
		}
		c.metrics = metrics
		c.closers = append(c.closers, func() error {
			return metrics.Shutdown(context.Background())
		})
	}

	return c, nil
}

func openGalera(cfg config.ClusterConfig) (*host.Galera, error) {
	if cfg.DSNEnv == "" {
		return nil, nil
	}
	dsn := os.Getenv(cfg.DSNEnv)
	if dsn == "" {
		slog.Warn("cluster DSN is not set, cluster probes will be not applicable", "env", cfg.DSNEnv)
		return nil, nil
	}
	g, err := host.OpenGalera(dsn, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("open cluster connection: %w", err)
	}
	return g, nil
}

// watcherOptions returns the Watcher wiring for these components.
func (c *components) watcherOptions() watcher.Options {
	policy, _ := watcher.ParseOverrunPolicy(c.cfg.OverrunPolicy)
	opts := watcher.Options{
		Hostname: c.cfg.Hostname,
		Specs:    c.cfg.Specs(),
		Executor: c.executor,
		Sink:     c.sink,
		Interval: c.cfg.Interval,
		Overrun:  policy,
		Tracer:   c.tracer,
	}
	if c.store != nil {
		opts.Journal = c.store
	}
	if c.metrics != nil {
		opts.Recorder = c.metrics
	}
	return opts
}

func (c *components) close() {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	if err := errors.Join(errs...); err != nil {
		slog.Warn("shutdown cleanup failed", "error", err)
	}
}
