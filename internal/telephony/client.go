// Package telephony is the Twilio REST collaborator: outbound calls, SMS,
// and TwiML generation for the webhook endpoints. Emergency service numbers
// are blocked from all outbound operations.
package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrBlockedNumber is returned when an outbound operation targets an
// emergency service number.
var ErrBlockedNumber = errors.New("telephony: emergency numbers are blocked")

// blockedNumbers are emergency service numbers that must never be dialled or
// messaged by the agent.
var blockedNumbers = map[string]bool{
	"911": true,
	"112": true,
	"999": true,
}

// defaultBaseURL is the Twilio REST API root.
const defaultBaseURL = "https://api.twilio.com"

// Option is a functional option for configuring a [Client].
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for API requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBaseURL overrides the API root. Used by tests to point at a local
// server.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithBreaker tunes the circuit breaker guarding API requests.
func WithBreaker(threshold int, cooldown time.Duration) Option {
	return func(c *Client) { c.breaker = newBreaker(threshold, cooldown) }
}

// Client calls the Twilio REST API. Safe for concurrent use.
type Client struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	http       *http.Client
	breaker    *breaker
}

// New creates a client authenticated as accountSID, placing calls and
// messages from the given number.
func New(accountSID, authToken, from string, opts ...Option) (*Client, error) {
	if accountSID == "" || authToken == "" {
		return nil, fmt.Errorf("telephony: missing account SID or auth token")
	}
	if from == "" {
		return nil, fmt.Errorf("telephony: missing from number")
	}
	c := &Client{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    defaultBaseURL,
		http:       &http.Client{Timeout: 30 * time.Second},
		breaker:    newBreaker(defaultBreakerThreshold, defaultBreakerCooldown),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Blocked reports whether number is an emergency service number.
func Blocked(number string) bool {
	cleaned := strings.TrimSpace(strings.ReplaceAll(number, "+", ""))
	return blockedNumbers[cleaned] || blockedNumbers[strings.TrimSpace(number)]
}

// MakeCall initiates an outbound call to the given number. Twilio fetches
// call instructions (TwiML) from callbackURL once the callee answers.
// Returns the call SID.
func (c *Client) MakeCall(ctx context.Context, to, callbackURL string) (string, error) {
	if Blocked(to) {
		return "", fmt.Errorf("telephony: call %q: %w", to, ErrBlockedNumber)
	}
	form := url.Values{
		"To":   {to},
		"From": {c.from},
		"Url":  {callbackURL},
	}
	sid, err := c.post(ctx, "Calls", form)
	if err != nil {
		return "", fmt.Errorf("telephony: make call: %w", err)
	}
	return sid, nil
}

// SendSMS sends an outbound text message. Returns the message SID.
func (c *Client) SendSMS(ctx context.Context, to, body string) (string, error) {
	if Blocked(to) {
		return "", fmt.Errorf("telephony: sms %q: %w", to, ErrBlockedNumber)
	}
	form := url.Values{
		"To":   {to},
		"From": {c.from},
		"Body": {body},
	}
	sid, err := c.post(ctx, "Messages", form)
	if err != nil {
		return "", fmt.Errorf("telephony: send sms: %w", err)
	}
	return sid, nil
}

// post submits one form-encoded resource creation request and returns the
// SID of the created resource. Transport errors and 5xx responses feed the
// circuit breaker; 4xx responses mean the service answered and do not.
func (c *Client) post(ctx context.Context, resource string, form url.Values) (string, error) {
	if err := c.breaker.allow(); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/%s.json", c.baseURL, c.accountSID, resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.failure()
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.breaker.failure()
		return "", err
	}

	if resp.StatusCode >= 500 {
		c.breaker.failure()
	} else {
		c.breaker.success()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return "", fmt.Errorf("twilio: %s (status %d, code %d)", apiErr.Message, resp.StatusCode, apiErr.Code)
		}
		return "", fmt.Errorf("twilio: unexpected status %d", resp.StatusCode)
	}

	var created struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("twilio: decode response: %w", err)
	}
	if created.SID == "" {
		return "", fmt.Errorf("twilio: response without sid")
	}
	return created.SID, nil
}
