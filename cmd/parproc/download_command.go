package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/azargarov/parproc"
	"github.com/azargarov/parproc/internal/blobjob"
	"github.com/azargarov/parproc/internal/config"
	"github.com/azargarov/parproc/internal/logging"
	"github.com/azargarov/parproc/internal/metrics"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var flags config.Config

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Copy every object under a bucket prefix to a local directory",
		Long: `Copy every object under a bucket prefix to a local directory.

The bucket is a gocloud URL: s3://name?region=..., gs://name,
file:///path or mem://. Failed objects are retried until they succeed
unless --max-attempts is set. Interrupting the command lets running
copies finish and skips the rest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.load()
			if err != nil {
				return err
			}
			cfg = cfg.Merge(flags)
			if err := cfg.ValidateDownload(); err != nil {
				return usageError{err}
			}
			return runDownload(cmd, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.Download.Bucket, "bucket", "", "Bucket URL to download from")
	f.StringVar(&flags.Download.Prefix, "prefix", "", "Only download keys with this prefix")
	f.StringVar(&flags.Download.Dest, "dest", "", "Local destination directory")
	f.BoolVar(&flags.Download.Overwrite, "overwrite", false, "Replace files that already exist")
	f.IntVarP(&flags.Workers, "workers", "w", 0, "Number of parallel workers (default: one per CPU)")
	f.BoolVar(&flags.PinWorkers, "pin-workers", false, "Pin each worker to one CPU (Linux only)")
	f.DurationVar(&flags.ReportInterval, "report-interval", 0, "Progress report interval (default 10s)")
	f.DurationVar(&flags.ShutdownTimeout, "shutdown-timeout", 0, "How long an interrupted run waits for running copies (0 = no limit)")
	f.IntVar(&flags.Retry.MaxAttempts, "max-attempts", 0, "Give up on an object after this many attempts (0 = retry forever)")
	f.DurationVar(&flags.Retry.Initial, "retry-initial", 0, "First delay before retrying a failed object (0 = no delay)")
	f.DurationVar(&flags.Retry.Max, "retry-max", 0, "Maximum retry delay")
	f.StringVar(&flags.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")

	return cmd
}

func runDownload(cmd *cobra.Command, cfg config.Config) error {
	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
		RunID:  uuid.NewString(),
	})
	if err != nil {
		return usageError{err}
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := cfg.PoolOptions(logger)

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		m, err := metrics.New(reg, "parproc")
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		opts.Metrics = m
		stop, err := serveMetrics(cfg.MetricsAddr, reg, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	d, err := blobjob.Open(ctx, cfg.Download.Bucket, blobjob.Options{
		Prefix:    cfg.Download.Prefix,
		Dest:      cfg.Download.Dest,
		Overwrite: cfg.Download.Overwrite,
	})
	if err != nil {
		return usageError{err}
	}
	defer func() {
		if cerr := d.Close(); cerr != nil {
			logger.Warn("close downloader", zap.Error(cerr))
		}
	}()
	if err := d.Lock(); err != nil {
		return err
	}

	logger.Info("Downloading",
		zap.String("bucket", cfg.Download.Bucket),
		zap.String("prefix", cfg.Download.Prefix),
		zap.String("dest", d.Dest()),
	)

	sum, runErr := parproc.Run[blobjob.Object](ctx, d, opts)
	if errors.Is(runErr, parproc.ErrWorkList) {
		return runErr
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderSummary(sum, d.Stats()))
	if sum.Durations != nil {
		fmt.Fprintln(out, renderDurations(sum.Durations))
	}
	return runErr
}

// serveMetrics starts the /metrics endpoint and returns a func that
// shuts it down.
func serveMetrics(addr string, g prometheus.Gatherer, logger *zap.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, usageError{fmt.Errorf("listen on metrics address %s: %w", addr, err)}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("Serving metrics", zap.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
