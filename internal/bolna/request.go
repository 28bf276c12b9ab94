package bolna

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spigell/interview-caller/internal/utils"
	"go.uber.org/zap"
)

const (
	contentType    = "application/json"
	maxAttempts    = 3
	maxErrorLength = 300
)

// retryDelay is the wait before the second attempt; it doubles afterwards.
var retryDelay = time.Second

func (c *Client) postJSON(ctx context.Context, path string, body, target any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	return c.do(req, target)
}

// getJSON retries server errors and rate limiting.
func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	delay := retryDelay

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var req *http.Request
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
		if err != nil {
			return err
		}
		req = c.setHeaders(req)

		err = c.do(req, target)
		if err == nil || !retryable(err) || attempt == maxAttempts {
			return err
		}

		c.logger.Debug("retrying request", zap.String("path", path), zap.Int("attempt", attempt), zap.Error(err))
		if waitErr := utils.WaitFor(ctx, delay); waitErr != nil {
			return waitErr
		}
		delay *= 2
	}
	return err
}

func (c *Client) do(req *http.Request, target any) error {
	c.logger.Debug("make request", zap.String("method", req.Method), zap.String("url", req.URL.String()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	if target == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)

	return req
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.APIURL, "/") + path
}

func retryable(err error) bool {
	apiErr, ok := err.(*APIError)
	if !ok {
		return false
	}
	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
}

// errorMessage pulls message, error or detail out of a JSON error body.
// Non-JSON bodies are returned as text.
func errorMessage(body []byte) string {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			if s, ok := parsed[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		return ""
	}
	return utils.TruncateForLog(string(body), maxErrorLength)
}
