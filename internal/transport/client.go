package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"evsched/internal/apierr"
	"evsched/internal/retry"
	"evsched/internal/session"
)

// Client sends requests to the scheduling API, attaches the session
// credential and replays transient failures according to Policy.
type Client struct {
	BaseURL    string
	Session    *session.Session
	Policy     retry.Policy
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *log.Logger
	// Sleep waits between attempts; tests replace it to record delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New creates a client with sane defaults.
func New(baseURL string, s *session.Session) *Client {
	return &Client{
		BaseURL: baseURL,
		Session: s,
		Policy:  retry.Default(),
		Timeout: 10 * time.Second,
	}
}

// Response is a successful (status < 400) reply.
type Response struct {
	Status int
	Data   []byte
}

// Decode unmarshals the response payload into out.
func (r Response) Decode(out any) error {
	if out == nil || len(bytes.TrimSpace(r.Data)) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, out)
}

// httpClient returns HTTPClient, or a client bounded by Timeout when unset.
// The Client itself is never mutated, so concurrent calls are safe.
func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.Timeout}
}

func (c *Client) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

// Do performs one logical request. Any status >= 400 comes back as an
// *apierr.Error. Network and 5xx failures are replayed with the same body
// while the retry policy allows; a 401 invalidates the session and is
// returned immediately.
func (c *Client) Do(ctx context.Context, method, endpoint string, body any) (Response, error) {
	sleep := c.Sleep
	if sleep == nil {
		sleep = retry.Sleep
	}
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return Response{}, err
		}
		payload = b
	}
	requestID := uuid.NewString()
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")

	for retries := 0; ; retries++ {
		resp, err := c.attempt(ctx, method, url, requestID, payload)
		if err == nil {
			return resp, nil
		}
		apiErr, ok := err.(*apierr.Error)
		if !ok {
			return Response{}, err
		}
		apiErr.Attempts = retries + 1
		if apiErr.Kind == apierr.KindAuth {
			if c.Session != nil && c.Session.Invalidate(ctx) {
				c.logger().Printf("transport: %s %s rejected credentials; session cleared", method, endpoint)
			}
			return Response{}, apiErr
		}
		delay, again := c.Policy.Next(retries, apiErr.Kind)
		if !again {
			if apiErr.Kind.Retryable() {
				c.logger().Printf("transport: %s %s failed after %d attempts: %v", method, endpoint, apiErr.Attempts, apiErr)
			}
			return Response{}, apiErr
		}
		c.logger().Printf("transport: retrying %s %s (%d/%d) in %s: %v", method, endpoint, retries+1, c.Policy.MaxRetries, delay, apiErr)
		if err := sleep(ctx, delay); err != nil {
			return Response{}, err
		}
	}
}

func (c *Client) attempt(ctx context.Context, method, url, requestID string, payload []byte) (Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if c.Session != nil {
		if token := c.Session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		return Response{}, apierr.FromTransport(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, apierr.FromTransport(err)
	}
	if resp.StatusCode >= 400 {
		return Response{}, apierr.FromResponse(resp.StatusCode, data)
	}
	return Response{Status: resp.StatusCode, Data: data}, nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
