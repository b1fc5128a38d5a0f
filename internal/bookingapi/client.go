// Package bookingapi talks to the booking submission endpoint.
package bookingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/tablebook/internal/booking"
)

// Client submits bookings to POST {BaseURL}/book. A non-empty token is sent
// as a bearer credential.
type Client struct {
	hc      *http.Client
	baseURL string
	token   string
	logger  *zap.Logger
}

func New(baseURL, token string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		hc:      &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		logger:  logger,
	}
}

// Submit posts the payload and maps the response status onto an Outcome.
// Transport failures come back as OutcomeFailed with a non-nil error.
func (c *Client) Submit(ctx context.Context, s booking.Submission) (booking.Outcome, int, error) {
	jb, err := json.Marshal(s)
	if err != nil {
		return booking.OutcomeFailed, 0, err
	}
	status, body, err := c.do(ctx, http.MethodPost, c.baseURL+"/book", "application/json", jb)
	if err != nil {
		return booking.OutcomeFailed, status, fmt.Errorf("submit booking: %w", err)
	}
	outcome := booking.OutcomeForStatus(status, isEmptyBody(body))
	c.logger.Debug("booking endpoint answered",
		zap.Int("status", status),
		zap.Stringer("outcome", outcome),
		zap.String("message", messageOf(body)),
	)
	return outcome, status, nil
}

func (c *Client) do(ctx context.Context, method, rawURL, contentType string, body []byte) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("accept", "application/json")
	if contentType != "" {
		req.Header.Set("content-type", contentType)
	}
	if c.token != "" {
		req.Header.Set("authorization", "Bearer "+c.token)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, b, nil
}

func isEmptyBody(b []byte) bool {
	t := strings.TrimSpace(string(b))
	return t == "" || t == "null"
}

func messageOf(b []byte) string {
	var r struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(b, &r)
	if r.Message != "" {
		return r.Message
	}
	return r.Error
}
