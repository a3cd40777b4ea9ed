package driver

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

var ErrUnsupportedDriver = errors.New("no valid driver specified")

const (
	artifactDirname = "artifacts"
)

type DriverType string

const (
	DriverTypeLocal DriverType = "local"
	DriverTypeS3    DriverType = "s3"
)

// Driver mirrors downloaded artifacts and the lock file to a backend.
type Driver interface {
	// SaveArtifact stores the artifact under name. Backends may skip the
	// write when an object with the same sha256 is already present.
	SaveArtifact(ctx context.Context, name, sha256 string, body io.Reader) error
	SaveLock(ctx context.Context, name string, body io.Reader) error
}

type driverOpts struct {
	Local *LocalOpts
	S3    *S3Opts
}

type DriverOpt func(opts *driverOpts)

func WithLocal(localOpts *LocalOpts) DriverOpt {
	return func(opts *driverOpts) {
		opts.Local = localOpts
	}
}

func WithS3(s3Opts *S3Opts) DriverOpt {
	return func(opts *driverOpts) {
		opts.S3 = s3Opts
	}
}

func NewDriver(ctx context.Context, driverType DriverType, logger *zap.Logger, opts ...DriverOpt) (Driver, error) {
	var o driverOpts
	for _, f := range opts {
		f(&o)
	}

	switch driverType {
	case DriverTypeS3:
		return newS3Driver(ctx, logger, o.S3)
	case DriverTypeLocal:
		return newLocalDriver(logger, o.Local)
	default:
		return nil, fmt.Errorf("%w, got: %s", ErrUnsupportedDriver, driverType)
	}
}

func artifactKey(name string) string {
	return fmt.Sprintf("%s/%s", artifactDirname, name)
}
