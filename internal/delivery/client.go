// Package delivery posts alert records to the notification webhook with a
// bounded number of attempts and a fixed delay between them.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/nixlim/camwatch/internal/alerts"
	"github.com/nixlim/camwatch/internal/logging"
)

const (
	// maxBodySnippet bounds how much of a rejected response is logged.
	maxBodySnippet = 200

	defaultTimeout       = 10 * time.Second
	defaultRetryAttempts = 3
	defaultRetryDelay    = 2 * time.Second
	defaultSenderID      = "camwatch"
)

var (
	// ErrDeliveryExhausted is wrapped by Result.Err when every attempt failed.
	ErrDeliveryExhausted = errors.New("delivery attempts exhausted")

	// ErrUnexpectedStatus marks an attempt that got a non-success response.
	ErrUnexpectedStatus = errors.New("unexpected webhook status")
)

// Config configures the webhook client.
type Config struct {
	URL           string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	SenderID      string
}

// Result is the terminal outcome of one delivery.
type Result struct {
	Delivered  bool
	StatusCode int // last status seen; 0 if no response was received
	Attempts   int
	Err        error // nil when Delivered
}

// Attempt describes one HTTP attempt made while delivering an alert.
type Attempt struct {
	AlertID    string
	Number     int
	StatusCode int
	Err        error
	Duration   time.Duration
	At         time.Time
}

// Client sends alerts to a webhook endpoint. It is safe for concurrent use.
type Client struct {
	cfg       Config
	http      *http.Client
	logger    logging.Logger
	now       func() time.Time
	onAttempt func(Attempt)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for attempt-level messages.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClock overrides the clock used for sent_at and probe timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithAttemptObserver registers fn to be called after every attempt. fn may
// be called from several goroutines at once.
func WithAttemptObserver(fn func(Attempt)) Option {
	return func(c *Client) { c.onAttempt = fn }
}

// NewClient creates a Client. Zero timeout, attempts and sender ID take
// their defaults; a negative retry delay is treated as zero.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = defaultRetryAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if cfg.SenderID == "" {
		cfg.SenderID = defaultSenderID
	}

	c := &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: logging.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the effective client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// payload is the wire body: the alert record plus sender metadata.
type payload struct {
	alerts.Alert
	SentAt   string `json:"sent_at"`
	SenderID string `json:"sender_id"`
}

// outcome is what a single attempt resolved to.
type outcome struct {
	status int
	body   string
}

func isSuccess(status int) bool {
	return status == http.StatusOK || status == http.StatusCreated || status == http.StatusAccepted
}

// Deliver posts the alert, retrying failed attempts up to the configured
// bound. It never returns an error directly; failures are reported in the
// Result.
func (c *Client) Deliver(ctx context.Context, alert alerts.Alert) Result {
	body, err := json.Marshal(payload{
		Alert:    alert,
		SentAt:   c.now().Format(time.RFC3339Nano),
		SenderID: c.cfg.SenderID,
	})
	if err != nil {
		return Result{Err: fmt.Errorf("encoding alert payload: %w", err)}
	}

	log := c.logger.WithFields(logging.Fields{
		"alert_id": alert.ID,
		"detector": alert.Metadata.DetectorID,
	})

	policy := retrypolicy.NewBuilder[outcome]().
		HandleIf(func(o outcome, err error) bool {
			return err != nil || !isSuccess(o.status)
		}).
		WithMaxAttempts(c.cfg.RetryAttempts).
		WithDelay(c.cfg.RetryDelay).
		ReturnLastFailure().
		Build()

	attempts := 0
	last, err := failsafe.With(policy).WithContext(ctx).Get(func() (outcome, error) {
		attempts++
		attemptLog := log.WithField("attempt", fmt.Sprintf("%d/%d", attempts, c.cfg.RetryAttempts))
		attemptLog.Debug("sending alert")

		start := c.now()
		o, err := c.post(ctx, body)
		if c.onAttempt != nil {
			c.onAttempt(Attempt{
				AlertID:    alert.ID,
				Number:     attempts,
				StatusCode: o.status,
				Err:        err,
				Duration:   c.now().Sub(start),
				At:         start,
			})
		}
		switch {
		case err != nil:
			attemptLog.WithError(err).Warn("webhook attempt failed")
		case !isSuccess(o.status):
			attemptLog.WithFields(logging.Fields{
				"status":   o.status,
				"response": o.body,
			}).Warn("webhook returned non-success status")
		}
		return o, err
	})

	if err == nil && isSuccess(last.status) {
		log.WithFields(logging.Fields{
			"status":   last.status,
			"attempts": attempts,
		}).Info("alert delivered")
		return Result{Delivered: true, StatusCode: last.status, Attempts: attempts}
	}

	if err == nil {
		err = fmt.Errorf("%w: %d", ErrUnexpectedStatus, last.status)
	}
	log.WithFields(logging.Fields{
		"status":   last.status,
		"attempts": attempts,
	}).WithError(err).Error("alert delivery failed")

	return Result{
		StatusCode: last.status,
		Attempts:   attempts,
		Err:        fmt.Errorf("%w after %d attempts: %w", ErrDeliveryExhausted, attempts, err),
	}
}

// post performs one bounded HTTP attempt. The response body is always
// drained and closed before returning.
func (c *Client) post(ctx context.Context, body []byte) (outcome, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return outcome{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return outcome{}, err
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySnippet))
	_, _ = io.Copy(io.Discard, resp.Body)

	return outcome{status: resp.StatusCode, body: string(snippet)}, nil
}

// probeBody is the lightweight payload sent by Probe.
type probeBody struct {
	Test      bool   `json:"test"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	SenderID  string `json:"sender_id"`
}

// Probe sends a single test payload and reports whether the endpoint
// accepted it. The result is advisory; callers warn and continue.
func (c *Client) Probe(ctx context.Context) bool {
	body, err := json.Marshal(probeBody{
		Test:      true,
		Message:   "camwatch connection test",
		Timestamp: c.now().Format(time.RFC3339Nano),
		SenderID:  c.cfg.SenderID,
	})
	if err != nil {
		return false
	}

	log := c.logger.WithField("url", c.cfg.URL)
	o, err := c.post(ctx, body)
	if err != nil {
		log.WithError(err).Warn("webhook probe failed")
		return false
	}
	if !isSuccess(o.status) {
		log.WithField("status", o.status).Warn("webhook probe returned non-success status")
		return false
	}
	log.WithField("status", o.status).Info("webhook reachable")
	return true
}
