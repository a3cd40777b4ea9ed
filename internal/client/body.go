package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// ErrReadTimeout is returned when a response body makes no progress within
// the client timeout.
var ErrReadTimeout = errors.New("response body read timed out")

// idleTimeoutBody aborts the request when a single Read blocks longer than
// timeout. A body that keeps streaming is never cut off.
type idleTimeoutBody struct {
	body    io.ReadCloser
	cancel  context.CancelFunc
	timeout time.Duration
	timer   *time.Timer
	expired atomic.Bool
}

func newIdleTimeoutBody(body io.ReadCloser, timeout time.Duration, cancel context.CancelFunc) io.ReadCloser {
	if timeout <= 0 {
		return &cancelBody{ReadCloser: body, cancel: cancel}
	}

	b := &idleTimeoutBody{
		body:    body,
		cancel:  cancel,
		timeout: timeout,
	}
	b.timer = time.AfterFunc(timeout, b.expire)
	b.timer.Stop()
	return b
}

func (b *idleTimeoutBody) expire() {
	b.expired.Store(true)
	b.cancel()
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	b.timer.Reset(b.timeout)
	n, err := b.body.Read(p)
	b.timer.Stop()

	if err != nil && err != io.EOF && b.expired.Load() {
		return n, fmt.Errorf("%w after %s", ErrReadTimeout, b.timeout)
	}
	return n, err
}

func (b *idleTimeoutBody) Close() error {
	b.timer.Stop()
	err := b.body.Close()
	b.cancel()
	return err
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
