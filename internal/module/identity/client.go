package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/crewboard/server/internal/shared/errors"
	"github.com/crewboard/server/internal/shared/metrics"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Gateway is the narrow view of the identity provider used by the core.
type Gateway interface {
	// FindByEmail returns (nil, nil) when no identity owns the email.
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	GetIdentity(ctx context.Context, id string) (*Identity, error)
	CreateInvitation(ctx context.Context, req InvitationRequest) error
	// UpdatePublicMetadata merges patch into the identity's public
	// metadata. A nil value removes the key.
	UpdatePublicMetadata(ctx context.Context, id string, patch map[string]any) error
}

// ClientConfig holds identity provider client configuration.
type ClientConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// Client talks to the identity provider's backend REST API.
type Client struct {
	baseURL   string
	secretKey string
	timeout   time.Duration
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[[]byte]
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewClient creates a new identity provider client.
func NewClient(cfg ClientConfig, httpClient *http.Client, m *metrics.Metrics, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("identity")

	settings := gobreaker.Settings{
		Name:        "identity",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// 4xx answers mean the provider is healthy.
			var se *StatusError
			if errors.As(err, &se) {
				return se.Status < http.StatusInternalServerError
			}
			return err == nil || errors.Is(err, ErrIdentityNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		timeout:   cfg.Timeout,
		http:      httpClient,
		breaker:   gobreaker.NewCircuitBreaker[[]byte](settings),
		metrics:   m,
		logger:    logger,
	}
}

// FindByEmail looks up the identity owning email.
func (c *Client) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	q := url.Values{}
	q.Set("email_address", email)

	body, err := c.do(ctx, "find user", http.MethodGet, "/users?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var users []User
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return users[0].ToIdentity(), nil
}

// GetIdentity fetches a single identity by id.
func (c *Client) GetIdentity(ctx context.Context, id string) (*Identity, error) {
	body, err := c.do(ctx, "get user", http.MethodGet, "/users/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return ParseUser(body)
}

// CreateInvitation issues an invitation email carrying public metadata.
func (c *Client) CreateInvitation(ctx context.Context, req InvitationRequest) error {
	payload := map[string]any{
		"email_address":   req.Email,
		"public_metadata": req.PublicMetadata,
		"notify":          true,
	}
	if req.RedirectURL != "" {
		payload["redirect_url"] = req.RedirectURL
	}
	_, err := c.do(ctx, "create invitation", http.MethodPost, "/invitations", payload)
	return err
}

// UpdatePublicMetadata merges patch into the identity's public metadata.
func (c *Client) UpdatePublicMetadata(ctx context.Context, id string, patch map[string]any) error {
	payload := map[string]any{"public_metadata": patch}
	_, err := c.do(ctx, "update metadata", http.MethodPatch, "/users/"+url.PathEscape(id)+"/metadata", payload)
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", op, err)
		}
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var r io.Reader
		if reqBody != nil {
			r = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.secretKey)
		req.Header.Set("Accept", "application/json")
		if reqBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("identity provider %s: %w", op, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("read %s response: %w", op, err)
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrIdentityNotFound
		case resp.StatusCode >= 300:
			return nil, &StatusError{Op: op, Status: resp.StatusCode, Body: truncate(string(data), 256)}
		}
		return data, nil
	})

	c.metrics.RecordUpstream("identity", err)
	if err != nil && !errors.Is(err, ErrIdentityNotFound) {
		if !errors.Is(err, apperrors.ErrUpstream) {
			err = fmt.Errorf("%w: %w", apperrors.ErrUpstream, err)
		}
		c.logger.Warn("identity provider call failed", zap.String("op", op), zap.Error(err))
	}
	return body, err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
