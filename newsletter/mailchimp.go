// Package newsletter subscribes email addresses to a Mailchimp audience.
package newsletter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/klipach/cozycurated/log"
)

const (
	NotConfiguredMessage = "Newsletter not fully configured, but request received."

	authorizationHeader = "Authorization"
	contentTypeHeader   = "Content-Type"
	statusSubscribed    = "subscribed"
	statusLogField      = "status"
)

// APIError is a non-2xx Mailchimp response. Details holds the decoded JSON
// body, or an empty map when the body was not JSON.
type APIError struct {
	Status  int
	Details map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mailchimp returned status %d", e.Status)
}

// Result describes an accepted subscription request.
type Result struct {
	// Forwarded is false when the client is not configured and the request was
	// accepted without contacting Mailchimp.
	Forwarded bool
	Message   string
}

type memberRequest struct {
	EmailAddress string `json:"email_address"`
	Status       string `json:"status"`
}

type Client struct {
	apiKey       string
	audienceID   string
	serverPrefix string
	baseURL      string
	httpClient   *http.Client
}

// NewClient builds a client for the audience. Any empty argument leaves the
// client unconfigured.
func NewClient(apiKey, audienceID, serverPrefix string) *Client {
	return &Client{
		apiKey:       apiKey,
		audienceID:   audienceID,
		serverPrefix: serverPrefix,
		httpClient:   http.DefaultClient,
	}
}

// WithHTTPClient replaces the client used for Mailchimp calls.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func (c *Client) Configured() bool {
	return c.apiKey != "" && c.audienceID != "" && c.serverPrefix != ""
}

func (c *Client) membersURL() string {
	base := c.baseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.api.mailchimp.com", c.serverPrefix)
	}
	return fmt.Sprintf("%s/3.0/lists/%s/members", base, url.PathEscape(c.audienceID))
}

// Subscribe adds email to the audience as subscribed.
func (c *Client) Subscribe(ctx context.Context, email string) (*Result, error) {
	logger := log.LoggerFromContext(ctx)
	if !c.Configured() {
		logger.Warn("mailchimp is not configured, skipping subscription")
		return &Result{Message: NotConfiguredMessage}, nil
	}

	payloadBytes, err := json.Marshal(memberRequest{EmailAddress: email, Status: statusSubscribed})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.membersURL(), bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Add(authorizationHeader, "apikey "+c.apiKey)
	req.Header.Add(contentTypeHeader, "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		details := map[string]any{}
		if body, err := io.ReadAll(resp.Body); err == nil {
			if err := json.Unmarshal(body, &details); err != nil {
				details = map[string]any{}
			}
		}
		logger.Error("mailchimp rejected subscription", slog.Int(statusLogField, resp.StatusCode))
		return nil, &APIError{Status: resp.StatusCode, Details: details}
	}

	return &Result{Forwarded: true}, nil
}
