package updater

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kerraform/kelock/internal/checksum"
	"github.com/kerraform/kelock/internal/client"
	"github.com/kerraform/kelock/internal/downloader"
	"github.com/kerraform/kelock/internal/driver"
	"github.com/kerraform/kelock/internal/lock"
	"github.com/kerraform/kelock/internal/metric"
	"github.com/kerraform/kelock/internal/sign"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultKeepVersions = 3
	DefaultKeepBuilds   = 3
)

type Updater struct {
	client       *client.Client
	downloadDir  string
	downloader   *downloader.Downloader
	driver       driver.Driver
	keepBuilds   int
	keepVersions int
	lockPath     string
	logger       *zap.Logger
	metrics      *metric.Metrics
	signer       *sign.Signer
	tracer       trace.Tracer
}

// UpdaterConfig configures an Updater. A zero KeepBuilds or KeepVersions
// selects the default of 3.
type UpdaterConfig struct {
	Client       *client.Client
	DownloadDir  string
	Driver       driver.Driver
	KeepBuilds   int
	KeepVersions int
	LockPath     string
	Logger       *zap.Logger
	Metrics      *metric.Metrics
	Signer       *sign.Signer
	Tracer       trace.Tracer
}

func New(cfg *UpdaterConfig) *Updater {
	u := &Updater{
		client:       cfg.Client,
		downloadDir:  cfg.DownloadDir,
		driver:       cfg.Driver,
		keepBuilds:   cfg.KeepBuilds,
		keepVersions: cfg.KeepVersions,
		lockPath:     cfg.LockPath,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		signer:       cfg.Signer,
		tracer:       cfg.Tracer,
	}

	if u.logger == nil {
		u.logger = zap.NewNop()
	}

	if u.metrics == nil {
		u.metrics = metric.New()
	}

	if u.tracer == nil {
		u.tracer = trace.NewNoopTracerProvider().Tracer("")
	}

	if u.keepVersions == 0 {
		u.keepVersions = DefaultKeepVersions
	}

	if u.keepBuilds == 0 {
		u.keepBuilds = DefaultKeepBuilds
	}

	u.downloader = downloader.New(&downloader.DownloaderConfig{
		Client:  u.client,
		Logger:  u.logger.Named("downloader"),
		Metrics: u.metrics,
	})

	return u
}

// ArtifactFilename names the downloaded file of a build.
func ArtifactFilename(version, build string) string {
	return fmt.Sprintf("%s_%s.jar", version, build)
}

// Update pins the latest builds of the latest versions and overwrites the
// lock file. Builds that fail to download are left out of the lock.
func (u *Updater) Update(ctx context.Context) (*lock.Lock, error) {
	ctx, span := u.tracer.Start(ctx, "Update")
	defer span.End()

	u.logger.Info("starting fetch")
	if err := os.MkdirAll(u.downloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	versions, err := u.versions(ctx)
	if err != nil {
		return nil, err
	}

	l := lock.New()
	for _, version := range versions {
		builds := l.AddVersion(version)

		all, err := u.client.Project.Builds(ctx, version)
		if err != nil {
			return nil, err
		}

		for _, build := range client.Latest(all, u.keepBuilds) {
			a, err := u.pin(ctx, version, build)
			if err != nil {
				return nil, err
			}

			if a == nil {
				continue
			}

			builds.Set(build, *a)
		}
	}

	b, err := l.Encode()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(u.lockPath, b, 0644); err != nil {
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}

	u.logger.Info("wrote lock file",
		zap.String("path", u.lockPath),
		zap.Int("versions", len(l.Versions())),
		zap.Int("builds", l.Len()),
	)

	sig, err := u.sign(b)
	if err != nil {
		return nil, err
	}

	if err := u.mirror(ctx, l, b, sig); err != nil {
		return nil, err
	}

	u.metrics.LockEntries.Set(float64(l.Len()))
	u.metrics.LastSuccess.Set(float64(time.Now().Unix()))
	return l, nil
}

// versions treats a failed or malformed version listing as an empty one.
func (u *Updater) versions(ctx context.Context) ([]string, error) {
	all, err := u.client.Project.Versions(ctx)
	if err != nil {
		var se *client.StatusError
		switch {
		case errors.As(err, &se):
			u.logger.Error("failed to fetch versions",
				zap.Int("statusCode", se.StatusCode),
				zap.String("body", se.Body),
			)
			return nil, nil
		case errors.Is(err, client.ErrMissingKey):
			u.logger.Error("key 'versions' not found in response")
			return nil, nil
		default:
			return nil, err
		}
	}

	return client.Latest(all, u.keepVersions), nil
}

// pin downloads and hashes a single build. It returns nil when the server
// refused the download.
func (u *Updater) pin(ctx context.Context, version, build string) (*lock.Artifact, error) {
	ctx, span := u.tracer.Start(ctx, "Pin", trace.WithAttributes(
		attribute.String("version", version),
		attribute.String("build", build),
	))
	defer span.End()

	url := u.client.Project.DownloadURL(version, build)
	path := filepath.Join(u.downloadDir, ArtifactFilename(version, build))

	if _, err := u.downloader.Download(ctx, url, path); err != nil {
		var se *client.StatusError
		if errors.As(err, &se) {
			u.logger.Error("failed to download file",
				zap.String("version", version),
				zap.String("build", build),
				zap.Int("statusCode", se.StatusCode),
			)
			u.metrics.Downloads.WithLabelValues(metric.DownloadResultSkipped).Inc()
			return nil, nil
		}

		return nil, fmt.Errorf("failed to download %s build %s: %w", version, build, err)
	}

	u.logger.Debug("computing sha256", zap.String("path", path))
	sum, err := checksum.SHA256File(path)
	if err != nil {
		return nil, err
	}

	u.metrics.Downloads.WithLabelValues(metric.DownloadResultSuccess).Inc()
	return &lock.Artifact{
		URL:    url,
		SHA256: sum,
	}, nil
}

func (u *Updater) sign(b []byte) ([]byte, error) {
	if u.signer == nil {
		return nil, nil
	}

	sig, err := u.signer.Sign(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to sign lock file: %w", err)
	}

	path := u.lockPath + sign.SignatureExt
	if err := os.WriteFile(path, sig, 0644); err != nil {
		return nil, fmt.Errorf("failed to write lock signature: %w", err)
	}

	u.logger.Info("signed lock file",
		zap.String("path", path),
		zap.String("keyID", u.signer.KeyID()),
	)
	return sig, nil
}

func (u *Updater) mirror(ctx context.Context, l *lock.Lock, lockFile, sig []byte) error {
	if u.driver == nil {
		return nil
	}

	ctx, span := u.tracer.Start(ctx, "Mirror")
	defer span.End()

	for _, version := range l.Versions() {
		builds, _ := l.Version(version)
		for _, build := range builds.Keys() {
			a, _ := builds.Get(build)
			name := ArtifactFilename(version, build)
			if err := u.mirrorArtifact(ctx, name, a.SHA256); err != nil {
				return fmt.Errorf("failed to mirror %s: %w", name, err)
			}
		}
	}

	name := filepath.Base(u.lockPath)
	if err := u.driver.SaveLock(ctx, name, bytes.NewReader(lockFile)); err != nil {
		return fmt.Errorf("failed to mirror lock file: %w", err)
	}

	if sig != nil {
		if err := u.driver.SaveLock(ctx, name+sign.SignatureExt, bytes.NewReader(sig)); err != nil {
			return fmt.Errorf("failed to mirror lock signature: %w", err)
		}
	}

	u.logger.Info("mirrored lock file", zap.Int("artifacts", l.Len()))
	return nil
}

func (u *Updater) mirrorArtifact(ctx context.Context, name, sum string) error {
	f, err := os.Open(filepath.Join(u.downloadDir, name))
	if err != nil {
		return err
	}
	defer f.Close()

	return u.driver.SaveArtifact(ctx, name, sum, f)
}
