package downloader

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/kerraform/kelock/internal/client"
	"github.com/kerraform/kelock/internal/metric"
	"go.uber.org/zap"
)

const chunkSize = 1024

type Downloader struct {
	client  *client.Client
	logger  *zap.Logger
	metrics *metric.Metrics
}

type DownloaderConfig struct {
	Client  *client.Client
	Logger  *zap.Logger
	Metrics *metric.Metrics
}

func New(cfg *DownloaderConfig) *Downloader {
	d := &Downloader{
		client:  cfg.Client,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}

	if d.logger == nil {
		d.logger = zap.NewNop()
	}

	if d.metrics == nil {
		d.metrics = metric.New()
	}

	return d
}

// Download streams url into the file at path and returns path. A response
// outside of the 2xx range yields a *client.StatusError and no file is written.
func (d *Downloader) Download(ctx context.Context, url, path string) (string, error) {
	d.logger.Info("downloading", zap.String("url", url))

	req, err := d.client.NewGetRequest(url)
	if err != nil {
		return "", err
	}

	resp, err := d.client.Do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := client.CheckResponse(resp); err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	written, err := copyChunks(f, resp.Body)
	if err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	d.metrics.DownloadedBytes.Add(float64(written))
	d.logger.Debug("downloaded",
		zap.String("path", path),
		zap.Int64("bytes", written),
	)

	return path, nil
}

// copyChunks writes r to w in chunkSize pieces. io.CopyBuffer would hand the
// copy to (*os.File).ReadFrom and ignore the buffer.
func copyChunks(w io.Writer, r io.Reader) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			nw, werr := w.Write(buf[:n])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
			if nw != n {
				return written, io.ErrShortWrite
			}
		}

		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
