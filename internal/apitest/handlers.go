package apitest

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"evsched/internal/calendar"
	"evsched/internal/conflict"
	"evsched/internal/domain"
)

var authErrors = []int{http.StatusBadRequest, http.StatusUnauthorized}

var writeErrors = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusInternalServerError,
}

type CredentialsRequest struct {
	Username string `json:"username" minLength:"1"`
	Password string `json:"password" minLength:"1"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullName,omitempty"`
}

type authOutput struct {
	Body domain.AuthResponse `json:"body"`
}

func registerAuth(api huma.API, b *Backend) {
	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Create an account",
		DefaultStatus: http.StatusOK,
		Errors:        authErrors,
	}, func(ctx context.Context, input *struct {
		Body CredentialsRequest `json:"body"`
	}) (*authOutput, error) {
		a, err := b.register(strings.TrimSpace(input.Body.Username), input.Body.Password, input.Body.Email, input.Body.FullName)
		if err != nil {
			return nil, err
		}
		return b.authResponse(a)
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Sign in",
		Errors:      authErrors,
	}, func(ctx context.Context, input *struct {
		Body CredentialsRequest `json:"body"`
	}) (*authOutput, error) {
		a, err := b.login(strings.TrimSpace(input.Body.Username), input.Body.Password)
		if err != nil {
			return nil, err
		}
		return b.authResponse(a)
	})
}

func (b *Backend) authResponse(a account) (*authOutput, error) {
	token, err := b.issueToken(a.Username)
	if err != nil {
		return nil, newAPIError(http.StatusInternalServerError, "", "issue token: "+err.Error(), nil)
	}
	return &authOutput{Body: domain.AuthResponse{Token: token, Username: a.Username, FullName: a.FullName}}, nil
}

type eventOutput struct {
	Body domain.Event `json:"body"`
}

type eventsOutput struct {
	Body []domain.Event `json:"body"`
}

func registerEvents(api huma.API, b *Backend) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List events",
	}, func(ctx context.Context, input *struct{}) (*eventsOutput, error) {
		return &eventsOutput{Body: b.listEvents(false)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-upcoming-events",
		Method:      http.MethodGet,
		Path:        "/events/upcoming",
		Summary:     "List events dated today or later",
	}, func(ctx context.Context, input *struct{}) (*eventsOutput, error) {
		return &eventsOutput{Body: b.listEvents(true)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-event",
		Method:        http.MethodPost,
		Path:          "/events",
		Summary:       "Create event",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body domain.Event `json:"body"`
	}) (*eventOutput, error) {
		e, err := b.saveEvent(0, input.Body)
		if err != nil {
			return nil, err
		}
		return &eventOutput{Body: e}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-event",
		Method:      http.MethodPut,
		Path:        "/events/{id}",
		Summary:     "Replace event",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   int64        `path:"id"`
		Body domain.Event `json:"body"`
	}) (*eventOutput, error) {
		e, err := b.saveEvent(input.ID, input.Body)
		if err != nil {
			return nil, err
		}
		return &eventOutput{Body: e}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-event",
		Method:        http.MethodDelete,
		Path:          "/events/{id}",
		Summary:       "Delete event",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		if err := b.deleteEvent(input.ID); err != nil {
			return nil, err
		}
		return &struct{}{}, nil
	})
}

func (b *Backend) listEvents(upcomingOnly bool) []domain.Event {
	today := b.now().Format("2006-01-02")
	b.mu.Lock()
	out := make([]domain.Event, 0, len(b.events))
	for _, e := range b.events {
		if upcomingOnly && e.Date < today {
			continue
		}
		out = append(out, e)
	}
	b.mu.Unlock()
	calendar.Sort(out)
	return out
}

// saveEvent creates (id == 0) or replaces an event, enforcing the one
// booking per (date, time, location) rule.
func (b *Backend) saveEvent(id int64, e domain.Event) (domain.Event, error) {
	e = e.Normalize()
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return domain.Event{}, newAPIError(http.StatusBadRequest, "", "Title is required", nil)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := -1
	if id != 0 {
		for i := range b.events {
			if b.events[i].ID == id {
				idx = i
			}
		}
		if idx < 0 {
			return domain.Event{}, newAPIError(http.StatusNotFound, "", fmt.Sprintf("Event not found with id: %d", id), nil)
		}
	}
	if _, clash := conflict.Detect(conflict.FromEvent(e), b.events, id); clash {
		msg := fmt.Sprintf("An event already exists at %s on %s at %s. Please choose a different date, time, or location.",
			e.Location, e.Date, e.Time)
		suggest := b.cfg.Suggest
		if suggest == nil {
			suggest = freeVenues
		}
		suggestions := suggest(e, append([]domain.Event(nil), b.events...))
		if suggestions == nil {
			suggestions = []string{}
		}
		return domain.Event{}, newAPIError(http.StatusConflict, "Event Conflict", msg, suggestions)
	}

	ts := b.now().UTC().Format("2006-01-02T15:04:05")
	if idx >= 0 {
		e.ID = id
		e.CreatedAt = b.events[idx].CreatedAt
		e.UpdatedAt = ts
		b.events[idx] = e
		return e, nil
	}
	b.nextEvent++
	e.ID = b.nextEvent
	e.CreatedAt, e.UpdatedAt = ts, ts
	b.events = append(b.events, e)
	return e, nil
}

func (b *Backend) deleteEvent(id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.events {
		if b.events[i].ID == id {
			b.events = append(b.events[:i], b.events[i+1:]...)
			for j := range b.tasks {
				if b.tasks[j].EventID != nil && *b.tasks[j].EventID == id {
					b.tasks[j].EventID = nil
					b.tasks[j].EventTitle = ""
				}
			}
			return nil
		}
	}
	return newAPIError(http.StatusNotFound, "", fmt.Sprintf("Event not found with id: %d", id), nil)
}

// freeVenues offers up to five venues in the rejected event's district that
// have no booking in the same slot.
func freeVenues(rejected domain.Event, booked []domain.Event) []string {
	var out []string
	for _, v := range domain.Venues(rejected.Place) {
		if v.Name == rejected.Location {
			continue
		}
		c := conflict.Candidate{Date: rejected.Date, Time: rejected.Time, Location: v.Name}
		if _, taken := conflict.Detect(c, booked, 0); taken {
			continue
		}
		out = append(out, fmt.Sprintf("%s (%s, %s)", v.Name, v.Kind, rejected.Place))
		if len(out) == 5 {
			break
		}
	}
	return out
}

type taskOutput struct {
	Body domain.Task `json:"body"`
}

type tasksOutput struct {
	Body []domain.Task `json:"body"`
}

func registerTasks(api huma.API, b *Backend) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *struct{}) (*tasksOutput, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		return &tasksOutput{Body: append([]domain.Task{}, b.tasks...)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body domain.Task `json:"body"`
	}) (*taskOutput, error) {
		t, err := b.saveTask(0, input.Body)
		if err != nil {
			return nil, err
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}",
		Summary:     "Replace task",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   int64       `path:"id"`
		Body domain.Task `json:"body"`
	}) (*taskOutput, error) {
		t, err := b.saveTask(input.ID, input.Body)
		if err != nil {
			return nil, err
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}/toggle",
		Summary:     "Flip the completed flag",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*taskOutput, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.tasks {
			if b.tasks[i].ID == input.ID {
				b.tasks[i].Completed = !b.tasks[i].Completed
				b.tasks[i].UpdatedAt = b.now().UTC().Format("2006-01-02T15:04:05")
				return &taskOutput{Body: b.tasks[i]}, nil
			}
		}
		return nil, newAPIError(http.StatusNotFound, "", fmt.Sprintf("Task not found with id: %d", input.ID), nil)
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete task",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.tasks {
			if b.tasks[i].ID == input.ID {
				b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
				return &struct{}{}, nil
			}
		}
		return nil, newAPIError(http.StatusNotFound, "", fmt.Sprintf("Task not found with id: %d", input.ID), nil)
	})
}

func (b *Backend) saveTask(id int64, t domain.Task) (domain.Task, error) {
	t = t.Normalize()
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return domain.Task{}, newAPIError(http.StatusBadRequest, "", "Title is required", nil)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	t.EventTitle = ""
	if t.EventID != nil {
		found := false
		for _, e := range b.events {
			if e.ID == *t.EventID {
				t.EventTitle, found = e.Title, true
			}
		}
		if !found {
			return domain.Task{}, newAPIError(http.StatusNotFound, "", fmt.Sprintf("Event not found with id: %d", *t.EventID), nil)
		}
	}
	ts := b.now().UTC().Format("2006-01-02T15:04:05")
	if id != 0 {
		for i := range b.tasks {
			if b.tasks[i].ID == id {
				t.ID = id
				t.CreatedAt = b.tasks[i].CreatedAt
				t.UpdatedAt = ts
				b.tasks[i] = t
				return t, nil
			}
		}
		return domain.Task{}, newAPIError(http.StatusNotFound, "", fmt.Sprintf("Task not found with id: %d", id), nil)
	}
	b.nextTask++
	t.ID = b.nextTask
	t.CreatedAt, t.UpdatedAt = ts, ts
	b.tasks = append(b.tasks, t)
	return t, nil
}

func registerDashboard(api huma.API, b *Backend) {
	huma.Register(api, huma.Operation{
		OperationID: "dashboard-stats",
		Method:      http.MethodGet,
		Path:        "/dashboard/stats",
		Summary:     "Event and task counters",
	}, func(ctx context.Context, input *struct{}) (*struct {
		Body domain.DashboardStats `json:"body"`
	}, error) {
		upcoming := len(b.listEvents(true))
		b.mu.Lock()
		defer b.mu.Unlock()
		stats := domain.DashboardStats{
			TotalEvents:    int64(len(b.events)),
			UpcomingEvents: int64(upcoming),
		}
		for _, t := range b.tasks {
			if t.Completed {
				stats.CompletedTasks++
			} else {
				stats.PendingTasks++
			}
		}
		return &struct {
			Body domain.DashboardStats `json:"body"`
		}{Body: stats}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dashboard-upcoming-events",
		Method:      http.MethodGet,
		Path:        "/dashboard/upcoming-events",
		Summary:     "Next five events",
	}, func(ctx context.Context, input *struct{}) (*eventsOutput, error) {
		events := b.listEvents(true)
		if len(events) > 5 {
			events = events[:5]
		}
		return &eventsOutput{Body: events}, nil
	})
}
