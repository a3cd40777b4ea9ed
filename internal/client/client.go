package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/kerraform/kelock/internal/metric"
	"github.com/kerraform/kelock/internal/version"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const DefaultTimeout = 5 * time.Second

type service struct {
	client *Client
}

type Client struct {
	baseURL   *url.URL
	client    *http.Client
	common    service
	logger    *zap.Logger
	metrics   *metric.Metrics
	retry     *RetryPolicy
	timeout   time.Duration
	tracer    trace.Tracer
	userAgent string

	Project *ProjectService
}

type ClientOpts struct {
	HTTPClient *http.Client
	Logger     *zap.Logger
	Metrics    *metric.Metrics
	Retry      *RetryPolicy
	Timeout    time.Duration
	Tracer     trace.Tracer
	UserAgent  string
}

type ClientOpt func(o *ClientOpts)

func WithHTTPClient(client *http.Client) ClientOpt {
	return func(o *ClientOpts) {
		o.HTTPClient = client
	}
}

func WithLogger(logger *zap.Logger) ClientOpt {
	return func(o *ClientOpts) {
		o.Logger = logger
	}
}

func WithMetrics(m *metric.Metrics) ClientOpt {
	return func(o *ClientOpts) {
		o.Metrics = m
	}
}

func WithRetry(p *RetryPolicy) ClientOpt {
	return func(o *ClientOpts) {
		o.Retry = p
	}
}

// WithTimeout bounds connecting, waiting for response headers and every read
// of the response body. A body that keeps streaming is never cut off.
func WithTimeout(d time.Duration) ClientOpt {
	return func(o *ClientOpts) {
		o.Timeout = d
	}
}

func WithTracer(tracer trace.Tracer) ClientOpt {
	return func(o *ClientOpts) {
		o.Tracer = tracer
	}
}

func WithUserAgent(ua string) ClientOpt {
	return func(o *ClientOpts) {
		o.UserAgent = ua
	}
}

func New(baseURL *url.URL, opts ...ClientOpt) *Client {
	o := ClientOpts{
		Timeout:   DefaultTimeout,
		UserAgent: version.UserAgent(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.HTTPClient == nil {
		o.HTTPClient = newHTTPClient(o.Timeout)
	}

	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	if o.Metrics == nil {
		o.Metrics = metric.New()
	}

	if o.Retry == nil {
		o.Retry = DefaultRetryPolicy()
	}

	if o.Tracer == nil {
		o.Tracer = trace.NewNoopTracerProvider().Tracer("")
	}

	c := &Client{
		baseURL:   baseURL,
		client:    o.HTTPClient,
		logger:    o.Logger,
		metrics:   o.Metrics,
		retry:     o.Retry,
		timeout:   o.Timeout,
		tracer:    o.Tracer,
		userAgent: o.UserAgent,
	}

	c.common.client = c
	c.Project = (*ProjectService)(&c.common)
	return c
}

func newHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DialContext = dialer.DialContext
	tr.TLSHandshakeTimeout = timeout
	tr.ResponseHeaderTimeout = timeout

	return &http.Client{
		Transport: tr,
	}
}

// URL resolves the path elements against the base URL.
func (c *Client) URL(elem ...string) *url.URL {
	if len(elem) == 0 {
		u := *c.baseURL
		return &u
	}

	return c.baseURL.JoinPath(elem...)
}

// Do sends the request, retrying transient failures according to the retry
// policy. A response with a non-retryable status is returned as is.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	ctx, span := c.tracer.Start(ctx, "Do", trace.WithAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.url", req.URL.String()),
	))
	defer span.End()

	resp, err := c.retry.do(ctx, c, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	return resp, nil
}

// NewGetRequest creates an API GET request.
func (c *Client) NewGetRequest(urlStr string) (*http.Request, error) {
	return c.NewRequest(http.MethodGet, urlStr)
}

// NewRequest creates an API request.
func (c *Client) NewRequest(method, urlStr string) (*http.Request, error) {
	u, err := c.baseURL.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(method, u.String(), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	return req, nil
}

// StatusError reports a response outside of the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("invalid status code, got: %d (%s)", e.StatusCode, e.URL)
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

// CheckResponse returns a *StatusError when resp is not a 2xx response. The
// start of the body is kept on the error for logging.
func CheckResponse(resp *http.Response) error {
	if isSuccess(resp.StatusCode) {
		return nil
	}

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &StatusError{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       string(b),
	}
}
