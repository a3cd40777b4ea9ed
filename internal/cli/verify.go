package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/kerraform/kelock/internal/config"
	"github.com/kerraform/kelock/internal/lock"
	"github.com/kerraform/kelock/internal/updater"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errVerifyFailed = errors.New("lock verification failed")

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check downloaded artifacts against the lock file",
		Args:  cobra.NoArgs,
		RunE:  runVerifyCmd,
	}
}

func runVerifyCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd.OutOrStdout(), cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	l, err := lock.Read(cfg.LockPath)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range updater.Verify(l, cfg.DownloadDir) {
		fields := []zap.Field{
			zap.String("version", r.Version),
			zap.String("build", r.Build),
			zap.String("path", r.Path),
		}

		switch {
		case r.Err == nil:
			logger.Info("artifact ok", fields...)
		case errors.Is(r.Err, fs.ErrNotExist):
			logger.Warn("artifact missing", fields...)
		default:
			failed++
			logger.Error("artifact mismatch", append(fields, zap.Error(r.Err))...)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d artifacts", errVerifyFailed, failed)
	}

	return nil
}
