// Package client provides the shared HTTP transport used by every crawl.
//
// One Client is constructed at startup and injected into all fetchers. It
// holds no per-request state, so concurrent platform units share it safely.
// Every request is single-shot: failures are classified and returned, never
// retried.
package client

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for store requests.
var (
	reviewRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_requests_total",
		Help: "Total store requests by host and status",
	}, []string{"host", "status"})

	reviewRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "review_request_duration_seconds",
		Help:    "Store request duration in seconds by host, body read included",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"host"})

	reviewRequestErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_request_errors_total",
		Help: "Total store request errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents connection, timeout and body read errors.
	ErrorClassNetwork ErrorClass = "network"
)

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "store-review-crawler/0.1.0"

// Config holds the client configuration.
type Config struct {
	// User-Agent header sent with every request
	UserAgent string

	// Timeout bounds one request including the body read
	Timeout time.Duration

	// MaxBodyBytes caps a single page payload (0 = unlimited)
	MaxBodyBytes int64
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent:    userAgent,
		Timeout:      30 * time.Second,
		MaxBodyBytes: 10 << 20,
	}
}

// Client is the shared store HTTP client.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %v)", cfg.Timeout)
	}
	if cfg.MaxBodyBytes < 0 {
		return nil, fmt.Errorf("max_body_bytes must be >= 0 (got %d)", cfg.MaxBodyBytes)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	logger := log.With().Str("component", "http-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger,
	}, nil
}

// Fetch sends req once and returns the full response body.
//
// Transport errors, unreadable bodies and non-2xx statuses are returned as
// errors; the caller decides their scope.
func (c *Client) Fetch(req *http.Request) ([]byte, error) {
	host := req.URL.Host

	startTime := time.Now()
	defer func() {
		reviewRequestDuration.WithLabelValues(host).Observe(time.Since(startTime).Seconds())
	}()

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().
		Str("url", req.URL.String()).
		Str("method", req.Method).
		Msg("Executing store request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		reviewRequestErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		reviewRequestsTotal.WithLabelValues(host, "network_error").Inc()
		c.logger.Error().Err(err).Str("url", req.URL.String()).Msg("HTTP request failed")
		return nil, &StatusError{URL: req.URL.String(), ErrorClass: ErrorClassNetwork, Err: err}
	}
	defer resp.Body.Close()

	reviewRequestsTotal.WithLabelValues(host, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errClass := c.classifyError(resp)
		reviewRequestErrorsTotal.WithLabelValues(string(errClass)).Inc()
		c.logger.Warn().
			Str("url", req.URL.String()).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Store request error")
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			URL:        req.URL.String(),
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	var body io.Reader = resp.Body
	if c.config.MaxBodyBytes > 0 {
		body = io.LimitReader(resp.Body, c.config.MaxBodyBytes+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		reviewRequestErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			URL:        req.URL.String(),
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}
	if c.config.MaxBodyBytes > 0 && int64(len(data)) > c.config.MaxBodyBytes {
		reviewRequestErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			URL:        req.URL.String(),
			ErrorClass: ErrorClassNetwork,
			Message:    fmt.Sprintf("response body exceeds %d bytes", c.config.MaxBodyBytes),
			Err:        ErrBodyTooLarge,
		}
	}

	return data, nil
}

// classifyError categorizes a non-2xx response for observability.
func (c *Client) classifyError(resp *http.Response) ErrorClass {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// UserAgent returns the User-Agent header the client sends.
func (c *Client) UserAgent() string {
	return c.config.UserAgent
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
