// Package api is the REST client of the mock test backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/verte-zerg/ieltsmock/internal/apperrors"
	"github.com/verte-zerg/ieltsmock/internal/auth"
)

const (
	// DefaultBaseURL is used when neither config nor environment set one.
	DefaultBaseURL = "http://localhost:5000/api"
	// DefaultTimeout bounds every request, submission included.
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 64 << 10
)

// Client calls the backend with the bearer token of an explicit session.
type Client struct {
	baseURL string
	http    *http.Client
	session *auth.Session
	logger  *slog.Logger
}

// New builds a client. A zero timeout means DefaultTimeout; a nil session
// sends unauthenticated requests.
func New(baseURL string, timeout time.Duration, session *auth.Session, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		session: session,
		logger:  logger,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.New(apperrors.KindValidation, op, fmt.Errorf("failed to encode request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return apperrors.New(apperrors.KindUnknown, op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("api request failed", "op", op, "method", method, "path", path, "error", err)
		return classifyTransport(op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.logger.Debug("api request", "op", op, "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.classifyStatus(ctx, op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.New(apperrors.KindUnknown, op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func classifyTransport(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.New(apperrors.KindTimeout, op, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return apperrors.New(apperrors.KindTimeout, op, err)
	default:
		return apperrors.New(apperrors.KindNetwork, op, err)
	}
}

func (c *Client) classifyStatus(ctx context.Context, op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := resp.Status
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil {
		if eb.Message != "" {
			msg = eb.Message
		} else if eb.Error != "" {
			msg = eb.Error
		}
	}
	cause := errors.New(msg)

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized:
		if c.session != nil {
			if err := c.session.Logout(ctx); err != nil {
				c.logger.Warn("failed to clear rejected credentials", "error", err)
			}
		}
		return apperrors.New(apperrors.KindPermissionDenied, op, cause)
	case code == http.StatusForbidden:
		return apperrors.New(apperrors.KindPermissionDenied, op, cause)
	case code == http.StatusNotFound:
		return apperrors.New(apperrors.KindNotFound, op, cause)
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity || code == http.StatusConflict:
		return apperrors.New(apperrors.KindValidation, op, cause)
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return apperrors.New(apperrors.KindTimeout, op, cause)
	case code >= 500:
		return apperrors.New(apperrors.KindNetwork, op, cause)
	default:
		return apperrors.New(apperrors.KindUnknown, op, cause)
	}
}
