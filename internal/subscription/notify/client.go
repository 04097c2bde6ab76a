// Package notify delivers transactional email through a Postmark-compatible
// HTTP API. Delivery is synchronous: callers learn whether the provider
// accepted the message before acknowledging the subscriber.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"inkwell/internal/platform/config"
	dErrors "inkwell/pkg/domain-errors"
	"inkwell/pkg/platform/sentinel"
)

var (
	// ErrRejected means the provider refused the message outright.
	// Retrying without changing the request will not help.
	ErrRejected = errors.New("notification rejected by provider")

	// ErrTimeout means the provider did not answer within the configured
	// deadline. The message may or may not have been accepted.
	ErrTimeout = errors.New("notification request timed out")
)

// Email is a single outbound message. HTMLBody and TextBody carry the same
// content for clients that cannot render HTML.
type Email struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Client talks to the email delivery provider.
type Client struct {
	baseURL    string
	sender     string
	authToken  config.Secret
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a delivery client from configuration.
func NewClient(cfg config.NotificationClientConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:   cfg.BaseURL,
		sender:    cfg.SenderEmail,
		authToken: cfg.AuthToken,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sendRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HTMLBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// Send posts the email to the provider. A nil return means the provider
// accepted the message for delivery.
func (c *Client) Send(ctx context.Context, email Email) error {
	payload := sendRequest{
		From:     c.sender,
		To:       email.To,
		Subject:  email.Subject,
		HTMLBody: email.HTMLBody,
		TextBody: email.TextBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encoding notification payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(body))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "creating notification request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.authToken.Expose())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.classifyTransportError(email.To, err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		c.logger.Error("notification rejected",
			slog.String("recipient", email.To),
			slog.Int("status", resp.StatusCode),
			slog.String("response", string(snippet)),
		)
		return fmt.Errorf("provider returned status %d: %w", resp.StatusCode, ErrRejected)
	default:
		c.logger.Error("notification provider unavailable",
			slog.String("recipient", email.To),
			slog.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("provider returned status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
}

func (c *Client) classifyTransportError(recipient string, err error) error {
	var urlErr *url.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &urlErr) && urlErr.Timeout()) {
		c.logger.Error("notification request timed out", slog.String("recipient", recipient))
		return fmt.Errorf("sending notification: %w", ErrTimeout)
	}
	c.logger.Error("notification request failed",
		slog.String("recipient", recipient),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("sending notification: %w", sentinel.ErrUnavailable)
}
