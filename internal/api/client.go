// Package api is the HTTP client for the places backend:
//
//	GET /places       -> {"places": [...]}
//	GET /user-places  -> {"places": [...]}
//	PUT /user-places  <- {"places": [...]}  -> {"message": "..."}
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/destinations/internal/places"
)

const requestIDHeader = "X-Request-Id"

// Error is returned for any non-2xx response.
type Error struct {
	Op      string
	Status  int
	Message string // server-provided reason, may be empty
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Status)
}

// Reason returns the backend-provided reason carried by err, or "".
func Reason(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type placesBody struct {
	Places []places.Place `json:"places"`
}

type messageBody struct {
	Message string `json:"message"`
}

func (c *Client) FetchPlaces(ctx context.Context) ([]places.Place, error) {
	var body placesBody
	if err := c.do(ctx, "fetch places", http.MethodGet, "/places", nil, &body); err != nil {
		return nil, err
	}
	return places.Clone(body.Places), nil
}

func (c *Client) FetchUserPlaces(ctx context.Context) ([]places.Place, error) {
	var body placesBody
	if err := c.do(ctx, "fetch user places", http.MethodGet, "/user-places", nil, &body); err != nil {
		return nil, err
	}
	return places.Clone(body.Places), nil
}

// UpdateUserPlaces replaces the stored selection with list and returns the
// backend's confirmation message.
func (c *Client) UpdateUserPlaces(ctx context.Context, list []places.Place) (string, error) {
	var resp messageBody
	req := placesBody{Places: places.Clone(list)}
	if err := c.do(ctx, "update user places", http.MethodPut, "/user-places", req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Ping reports whether the backend answers GET /places with a 2xx.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/places", nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encoding body: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: building request: %w", op, err)
	}
	reqID := uuid.NewString()
	req.Header.Set(requestIDHeader, reqID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			"op", op,
			"method", method,
			"path", path,
			"request_id", reqID,
			"error", err,
		)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", reqID,
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Op: op, Status: resp.StatusCode}
		var msg messageBody
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&msg); err == nil {
			apiErr.Message = strings.TrimSpace(msg.Message)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}
