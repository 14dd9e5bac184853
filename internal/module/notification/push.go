package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/crewboard/server/internal/shared/config"
	apperrors "github.com/crewboard/server/internal/shared/errors"
	"github.com/crewboard/server/internal/shared/metrics"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Message is a single push notification.
type Message struct {
	To       string            `json:"to"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Sound    string            `json:"sound,omitempty"`
	Priority string            `json:"priority,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}

// Pusher delivers push notifications.
type Pusher interface {
	Send(ctx context.Context, msg Message) error
}

// ErrDeviceNotRegistered is returned when the gateway rejects the token
// permanently.
var ErrDeviceNotRegistered = errors.New("push: device not registered")

// pushTicket is the gateway's per-message answer.
type pushTicket struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details struct {
		Error string `json:"error"`
	} `json:"details"`
}

type pushResponse struct {
	Data   pushTicket `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// pushStatusError is a non-2xx answer from the gateway.
type pushStatusError struct {
	Status int
	Body   string
}

func (e *pushStatusError) Error() string {
	return fmt.Sprintf("push gateway: status %d: %s", e.Status, e.Body)
}

func (e *pushStatusError) Unwrap() error {
	return apperrors.ErrUpstream
}

// rejectionError is a gateway refusal of one message, such as
// MessageTooBig. It says nothing about the gateway's health.
type rejectionError struct {
	Code    string
	Message string
}

func (e *rejectionError) Error() string {
	return fmt.Sprintf("push gateway: %s: %s", e.Code, e.Message)
}

func (e *rejectionError) Unwrap() error {
	return apperrors.ErrUpstream
}

// isRejection reports whether err is specific to the message being sent.
// Rejections are not retried and do not count against the breaker.
func isRejection(err error) bool {
	if errors.Is(err, ErrDeviceNotRegistered) {
		return true
	}
	var re *rejectionError
	if errors.As(err, &re) {
		return true
	}
	var se *pushStatusError
	return errors.As(err, &se) &&
		se.Status < http.StatusInternalServerError &&
		se.Status != http.StatusTooManyRequests
}

// ExpoClient sends notifications through the Expo push API. Transient
// failures are retried with exponential backoff behind a circuit breaker.
type ExpoClient struct {
	url         string
	accessToken string
	timeout     time.Duration
	maxRetries  uint64
	http        *http.Client
	breaker     *gobreaker.CircuitBreaker[struct{}]
	metrics     *metrics.Metrics
	logger      *zap.Logger

	// newBackOff is replaced in tests to avoid real sleeps.
	newBackOff func() backoff.BackOff
}

// NewExpoClient creates a new push gateway client.
func NewExpoClient(cfg config.PushConfig, httpClient *http.Client, m *metrics.Metrics, logger *zap.Logger) *ExpoClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("push")

	settings := gobreaker.Settings{
		Name:        "push",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isRejection(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &ExpoClient{
		url:         cfg.URL,
		accessToken: cfg.AccessToken,
		timeout:     cfg.Timeout,
		maxRetries:  cfg.MaxRetries,
		http:        httpClient,
		breaker:     gobreaker.NewCircuitBreaker[struct{}](settings),
		metrics:     m,
		logger:      logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 10 * time.Second
			return b
		},
	}
}

// Send delivers msg, retrying transient failures.
func (c *ExpoClient) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode push message: %w", err)
	}

	operation := func() error {
		_, err := c.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, c.post(ctx, body)
		})
		c.metrics.RecordUpstream("push", err)
		switch {
		case err == nil:
			return nil
		case isRejection(err),
			errors.Is(err, gobreaker.ErrOpenState),
			errors.Is(err, gobreaker.ErrTooManyRequests),
			ctx.Err() != nil:
			return backoff.Permanent(err)
		}
		return err
	}

	// WithMaxRetries treats zero as unlimited.
	var b backoff.BackOff = &backoff.StopBackOff{}
	if c.maxRetries > 0 {
		b = backoff.WithMaxRetries(c.newBackOff(), c.maxRetries)
	}
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		if !errors.Is(err, apperrors.ErrUpstream) {
			err = fmt.Errorf("%w: %w", apperrors.ErrUpstream, err)
		}
		return err
	}
	return nil
}

func (c *ExpoClient) post(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("push gateway: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("read push response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &pushStatusError{Status: resp.StatusCode, Body: string(data)}
	}

	var out pushResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("decode push response: %w", err)
	}
	if len(out.Errors) > 0 {
		return &rejectionError{Code: out.Errors[0].Code, Message: out.Errors[0].Message}
	}
	if out.Data.Status == "error" {
		if out.Data.Details.Error == "DeviceNotRegistered" {
			return ErrDeviceNotRegistered
		}
		return &rejectionError{Code: out.Data.Details.Error, Message: out.Data.Message}
	}
	return nil
}
