// Package bolna is a small client for the Bolna voice AI API: it places
// outbound calls and fetches execution details.
package bolna

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL    = "https://api.bolna.ai"
	userAgent = "spigell/interview-caller"
)

type Client struct {
	apiKey     string
	agentID    string
	callerID   string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// New returns a client for agentID. callerID is the number calls are placed
// from; when empty the provider uses the account default.
func New(logger *zap.Logger, apiKey, agentID, callerID string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:   apiKey,
		agentID:  agentID,
		callerID: callerID,
		APIURL:   apiURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

func (c *Client) AgentID() string {
	return c.agentID
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bolna api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("bolna api: %d: %s", e.StatusCode, e.Message)
}

// IsInsufficientBalance reports whether err is the provider refusing a call
// because the account wallet is empty.
func IsInsufficientBalance(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == http.StatusPaymentRequired {
		return true
	}
	msg := strings.ToLower(apiErr.Message)
	for _, word := range []string{"wallet", "balance", "recharge"} {
		if strings.Contains(msg, word) {
			return true
		}
	}
	return false
}
