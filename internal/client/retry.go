package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	DefaultMaxRetries    = 5
	DefaultBackoffFactor = time.Second

	maxBackoff = 120 * time.Second
)

var retryableStatusCodes = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// Statuses whose Retry-After header replaces the computed backoff.
var retryAfterStatusCodes = map[int]struct{}{
	http.StatusTooManyRequests:    {},
	http.StatusServiceUnavailable: {},
}

var errRetryableStatus = errors.New("retryable status code")

// RetryPolicy retries a request up to MaxRetries times. The first retry is
// immediate, the n-th one waits BackoffFactor * 2^(n-1), capped at two
// minutes. A Retry-After header on 429 and 503 responses takes precedence.
type RetryPolicy struct {
	BackoffFactor time.Duration
	MaxRetries    int
}

func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		BackoffFactor: DefaultBackoffFactor,
		MaxRetries:    DefaultMaxRetries,
	}
}

func IsRetryableStatus(code int) bool {
	_, ok := retryableStatusCodes[code]
	return ok
}

func (p *RetryPolicy) backOff(ctx context.Context, last func() *http.Response) backoff.BackOff {
	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}

	var b backoff.BackOff = &exponentialBackOff{factor: p.BackoffFactor}
	b = &retryAfterBackOff{BackOff: b, last: last}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// exponentialBackOff sleeps nothing after the first failure and
// factor * 2^(n-1) after the n-th consecutive one.
type exponentialBackOff struct {
	factor   time.Duration
	failures int
}

func (b *exponentialBackOff) NextBackOff() time.Duration {
	b.failures++
	if b.failures <= 1 {
		return 0
	}

	d := b.factor << (b.failures - 1)
	if d > maxBackoff || d < b.factor {
		return maxBackoff
	}
	return d
}

func (b *exponentialBackOff) Reset() {
	b.failures = 0
}

type retryAfterBackOff struct {
	backoff.BackOff
	last func() *http.Response
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop || b.last == nil {
		return next
	}

	if d, ok := retryAfter(b.last(), time.Now()); ok {
		return d
	}
	return next
}

// retryAfter reads the Retry-After header, given either in seconds or as an
// HTTP date.
func retryAfter(resp *http.Response, now time.Time) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	if _, ok := retryAfterStatusCodes[resp.StatusCode]; !ok {
		return 0, false
	}

	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}

	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs) * time.Second, true
	}

	t, err := http.ParseTime(v)
	if err != nil {
		return 0, false
	}
	if d := t.Sub(now); d > 0 {
		return d, true
	}
	return 0, true
}

func (p *RetryPolicy) do(ctx context.Context, c *Client, req *http.Request) (*http.Response, error) {
	var resp *http.Response
	attempt := 0

	op := func() error {
		if resp != nil {
			discard(resp)
			resp = nil
		}
		attempt++

		reqCtx, cancel := context.WithCancel(ctx)
		r, err := c.client.Do(req.Clone(reqCtx))
		if err != nil {
			cancel()
			c.metrics.ObserveRequest(req.Method, 0)
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}

		c.metrics.ObserveRequest(req.Method, r.StatusCode)
		r.Body = newIdleTimeoutBody(r.Body, c.timeout, cancel)
		resp = r
		if IsRetryableStatus(r.StatusCode) {
			return errRetryableStatus
		}

		return nil
	}

	notify := func(err error, wait time.Duration) {
		fields := []zap.Field{
			zap.String("url", req.URL.String()),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
		}
		if resp != nil {
			fields = append(fields, zap.Int("statusCode", resp.StatusCode))
		} else {
			fields = append(fields, zap.Error(err))
		}
		c.logger.Warn("retrying request", fields...)
		c.metrics.Retries.Inc()
	}

	if err := backoff.RetryNotify(op, p.backOff(ctx, func() *http.Response { return resp }), notify); err != nil {
		if errors.Is(err, errRetryableStatus) && resp != nil {
			c.logger.Warn("retries exhausted",
				zap.String("url", req.URL.String()),
				zap.Int("statusCode", resp.StatusCode),
			)
			return resp, nil
		}

		return nil, err
	}

	return resp, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
