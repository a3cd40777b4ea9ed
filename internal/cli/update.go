package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/kerraform/kelock/internal/client"
	"github.com/kerraform/kelock/internal/config"
	"github.com/kerraform/kelock/internal/driver"
	"github.com/kerraform/kelock/internal/logging"
	"github.com/kerraform/kelock/internal/metric"
	"github.com/kerraform/kelock/internal/sign"
	"github.com/kerraform/kelock/internal/trace"
	"github.com/kerraform/kelock/internal/updater"
	"github.com/kerraform/kelock/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func runUpdateCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	logger, err := newLogger(w, cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tp, err := newTraceProvider(w, cfg)
	if err != nil {
		return err
	}
	defer tp.Shutdown(context.Background())

	m := metric.New()
	u, err := newUpdater(ctx, cfg, logger, m, tp)
	if err != nil {
		return err
	}

	wg, ctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		defer cancel()
		_, err := u.Update(ctx)
		return err
	})

	wg.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, os.Interrupt)
		defer signal.Stop(sigCh)

		select {
		case v := <-sigCh:
			logger.Info("received signal", zap.String("signal", v.String()))
			return fmt.Errorf("interrupted by %s", v)
		case <-ctx.Done():
			return nil
		}
	})

	err = wg.Wait()
	if path := cfg.Metrics.Textfile; path != "" {
		if merr := m.WriteTextfile(path); merr != nil {
			logger.Error("failed to write metrics", zap.String("path", path), zap.Error(merr))
		}
	}

	if err != nil {
		logger.Error("update failed", zap.Error(err))
		return err
	}

	return nil
}

func newLogger(w io.Writer, cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.NewLogger(w, logging.Level(cfg.Log.Level), logging.Format(cfg.Log.Format))
	if err != nil {
		return nil, err
	}

	return logger.With(
		zap.String("version", version.Version),
		zap.String("revision", version.Commit),
	), nil
}

func newTraceProvider(w io.Writer, cfg *config.Config) (*trace.Provider, error) {
	if !cfg.Trace.Enable {
		return trace.NewNoopProvider(), nil
	}

	return trace.NewProvider(trace.ExporterType(cfg.Trace.Type), w)
}

func newUpdater(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metric.Metrics, tp *trace.Provider) (*updater.Updater, error) {
	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}

	c := client.New(endpoint,
		client.WithLogger(logger.Named("client")),
		client.WithMetrics(m),
		client.WithRetry(&client.RetryPolicy{
			BackoffFactor: cfg.HTTP.BackoffFactor,
			MaxRetries:    cfg.HTTP.Retries,
		}),
		client.WithTimeout(cfg.HTTP.Timeout),
		client.WithTracer(tp.Tracer()),
	)

	var drv driver.Driver
	if cfg.Backend.Type != "" {
		logger.Info("setup backend", zap.Object("backend", cfg.Backend))
		drv, err = driver.NewDriver(ctx, driver.DriverType(cfg.Backend.Type), logger.Named("driver"),
			driver.WithLocal(&driver.LocalOpts{
				RootPath: cfg.Backend.RootPath,
			}),
			driver.WithS3(&driver.S3Opts{
				AccessKey:    cfg.Backend.S3.AccessKey,
				Bucket:       cfg.Backend.S3.Bucket,
				Endpoint:     cfg.Backend.S3.Endpoint,
				Region:       cfg.Backend.S3.Region,
				SecretKey:    cfg.Backend.S3.SecretKey,
				UsePathStyle: cfg.Backend.S3.UsePathStyle,
			}),
		)
		if err != nil {
			return nil, err
		}
	}

	var signer *sign.Signer
	if cfg.Signing.KeyPath != "" {
		signer, err = sign.NewSignerFromFile(cfg.Signing.KeyPath, cfg.Signing.Passphrase)
		if err != nil {
			return nil, err
		}
	}

	return updater.New(&updater.UpdaterConfig{
		Client:       c,
		DownloadDir:  cfg.DownloadDir,
		Driver:       drv,
		KeepBuilds:   cfg.KeepBuilds,
		KeepVersions: cfg.KeepVersions,
		LockPath:     cfg.LockPath,
		Logger:       logger.Named("updater"),
		Metrics:      m,
		Signer:       signer,
		Tracer:       tp.Tracer(),
	}), nil
}
