package driver

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kerraform/kelock/internal/checksum"
	"go.uber.org/zap"
)

type LocalOpts struct {
	RootPath string
}

type local struct {
	logger   *zap.Logger
	rootPath string
}

var _ Driver = (*local)(nil)

func newLocalDriver(logger *zap.Logger, opts *LocalOpts) (Driver, error) {
	if opts == nil || opts.RootPath == "" {
		return nil, fmt.Errorf("invalid local root path")
	}

	return &local{
		logger:   logger,
		rootPath: opts.RootPath,
	}, nil
}

func (d *local) SaveArtifact(ctx context.Context, name, sha256 string, body io.Reader) error {
	path := filepath.Join(d.rootPath, artifactKey(name))
	if sha256 != "" {
		if err := checksum.Verify(path, sha256); err == nil {
			d.logger.Debug("artifact already mirrored", zap.String("path", path))
			return nil
		}
	}

	return d.save(path, body)
}

func (d *local) SaveLock(ctx context.Context, name string, body io.Reader) error {
	return d.save(filepath.Join(d.rootPath, name), body)
}

func (d *local) save(path string, body io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return err
	}

	d.logger.Debug("saved file", zap.String("path", path))
	return f.Close()
}
