package api

import (
	"context"
	"fmt"
	"net/http"

	"evsched/internal/domain"
	"evsched/internal/session"
	"evsched/internal/transport"
)

// Client is a typed wrapper over the scheduling REST API.
type Client struct {
	T       *transport.Client
	Session *session.Session
}

// New creates a client on top of an existing transport.
func New(t *transport.Client) *Client {
	return &Client{T: t, Session: t.Session}
}

// ListEvents returns all events.
func (c *Client) ListEvents(ctx context.Context) ([]domain.Event, error) {
	var resp []domain.Event
	if err := c.get(ctx, "events", &resp); err != nil {
		return nil, err
	}
	return normalizeEvents(resp), nil
}

// UpcomingEvents returns events dated today or later.
func (c *Client) UpcomingEvents(ctx context.Context) ([]domain.Event, error) {
	var resp []domain.Event
	if err := c.get(ctx, "events/upcoming", &resp); err != nil {
		return nil, err
	}
	return normalizeEvents(resp), nil
}

// CreateEvent posts a new event and returns the server's representation.
func (c *Client) CreateEvent(ctx context.Context, e domain.Event) (domain.Event, error) {
	e.ID = 0
	var resp domain.Event
	err := c.send(ctx, http.MethodPost, "events", e, &resp)
	return resp.Normalize(), err
}

// UpdateEvent replaces an existing event.
func (c *Client) UpdateEvent(ctx context.Context, id int64, e domain.Event) (domain.Event, error) {
	e.ID = id
	var resp domain.Event
	err := c.send(ctx, http.MethodPut, fmt.Sprintf("events/%d", id), e, &resp)
	return resp.Normalize(), err
}

func (c *Client) DeleteEvent(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("events/%d", id), nil, nil)
}

func (c *Client) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var resp []domain.Task
	if err := c.get(ctx, "tasks", &resp); err != nil {
		return nil, err
	}
	for i := range resp {
		resp[i] = resp[i].Normalize()
	}
	return resp, nil
}

func (c *Client) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	t.ID = 0
	var resp domain.Task
	err := c.send(ctx, http.MethodPost, "tasks", t, &resp)
	return resp.Normalize(), err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, t domain.Task) (domain.Task, error) {
	t.ID = id
	var resp domain.Task
	err := c.send(ctx, http.MethodPut, fmt.Sprintf("tasks/%d", id), t, &resp)
	return resp.Normalize(), err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("tasks/%d", id), nil, nil)
}

// ToggleTask flips the completed flag server-side.
func (c *Client) ToggleTask(ctx context.Context, id int64) (domain.Task, error) {
	var resp domain.Task
	err := c.send(ctx, http.MethodPatch, fmt.Sprintf("tasks/%d/toggle", id), nil, &resp)
	return resp.Normalize(), err
}

func (c *Client) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	var resp domain.DashboardStats
	err := c.get(ctx, "dashboard/stats", &resp)
	return resp, err
}

func (c *Client) DashboardUpcomingEvents(ctx context.Context) ([]domain.Event, error) {
	var resp []domain.Event
	if err := c.get(ctx, "dashboard/upcoming-events", &resp); err != nil {
		return nil, err
	}
	return normalizeEvents(resp), nil
}

// Credentials is the login/registration payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullName,omitempty"`
}

// Login authenticates and establishes the session.
func (c *Client) Login(ctx context.Context, username, password string) (domain.Profile, error) {
	return c.authenticate(ctx, "auth/login", Credentials{Username: username, Password: password})
}

// Register creates an account and establishes the session.
func (c *Client) Register(ctx context.Context, creds Credentials) (domain.Profile, error) {
	return c.authenticate(ctx, "auth/register", creds)
}

func (c *Client) authenticate(ctx context.Context, endpoint string, creds Credentials) (domain.Profile, error) {
	var resp domain.AuthResponse
	if err := c.send(ctx, http.MethodPost, endpoint, creds, &resp); err != nil {
		return domain.Profile{}, err
	}
	if resp.Token == "" {
		return domain.Profile{}, fmt.Errorf("%s: response carried no token", endpoint)
	}
	p := domain.Profile{Username: resp.Username, FullName: resp.FullName}
	if c.Session != nil {
		if err := c.Session.Establish(ctx, resp.Token, p); err != nil {
			return domain.Profile{}, err
		}
	}
	return p, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	return c.send(ctx, http.MethodGet, endpoint, nil, out)
}

func (c *Client) send(ctx context.Context, method, endpoint string, body, out any) error {
	resp, err := c.T.Do(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if err := resp.Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, endpoint, err)
	}
	return nil
}

func normalizeEvents(in []domain.Event) []domain.Event {
	for i := range in {
		in[i] = in[i].Normalize()
	}
	return in
}
