package api_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evsched/internal/api"
	"evsched/internal/apierr"
	"evsched/internal/apitest"
	"evsched/internal/apitest/apitesttest"
	"evsched/internal/domain"
	"evsched/internal/session"
	"evsched/internal/transport"
)

type harness struct {
	srv    *apitest.Server
	client *api.Client
	sess   *session.Session
	sleeps []time.Duration
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{srv: apitesttest.Start(t, apitest.Config{})}
	h.sess = session.New(session.NewMemoryStore())
	tr := transport.New(h.srv.APIURL(), h.sess)
	tr.Sleep = func(_ context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return nil
	}
	h.client = api.New(tr)
	return h
}

func (h *harness) register(t *testing.T) {
	t.Helper()
	p, err := h.client.Register(context.Background(), api.Credentials{Username: "meera", Password: "s3cret", FullName: "Meera N"})
	require.NoError(t, err)
	assert.Equal(t, "meera", p.Username)
	require.True(t, h.sess.Active())
}

func sampleEvent() domain.Event {
	n := 150
	return domain.Event{
		Title:           "Reception",
		Date:            "2024-01-15",
		Time:            "10:00",
		Location:        "ITC Grand Chola",
		Place:           "Chennai",
		FoodPreferences: "Veg",
		Attendees:       &n,
		Status:          domain.StatusConfirmed,
	}
}

func TestEventLifecycle(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	ctx := context.Background()

	created, err := h.client.CreateEvent(ctx, sampleEvent())
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.Equal(t, domain.StatusConfirmed, created.Status)

	created.Title = "Wedding Reception"
	updated, err := h.client.UpdateEvent(ctx, created.ID, created)
	require.NoError(t, err)
	assert.Equal(t, "Wedding Reception", updated.Title)

	list, err := h.client.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Attendees)
	assert.Equal(t, 150, *list[0].Attendees)

	require.NoError(t, h.client.DeleteEvent(ctx, created.ID))
	list, err = h.client.ListEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	err = h.client.DeleteEvent(ctx, created.ID)
	assert.True(t, apierr.IsKind(err, apierr.KindNotFound))
}

func TestConflictCarriesServerMessageAndSuggestions(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	ctx := context.Background()
	_, err := h.client.CreateEvent(ctx, sampleEvent())
	require.NoError(t, err)

	_, err = h.client.CreateEvent(ctx, sampleEvent())
	require.Error(t, err)
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierr.KindConflict, apiErr.Kind)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Contains(t, apiErr.Message, "An event already exists at ITC Grand Chola")
	assert.NotEmpty(t, apiErr.Suggestions)
	assert.Equal(t, 1, apiErr.Attempts)
	assert.Empty(t, h.sleeps)
}

func TestServerErrorsAreRetriedWithBackoff(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	h.srv.FailNext(http.StatusInternalServerError, http.StatusBadGateway)

	_, err := h.client.CreateEvent(context.Background(), sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, h.sleeps)

	var posts []apitest.Request
	for _, r := range h.srv.Requests() {
		if r.Method == http.MethodPost && r.Path == "/api/events" {
			posts = append(posts, r)
		}
	}
	require.Len(t, posts, 3)
	assert.Equal(t, posts[0].Body, posts[2].Body)
	assert.Equal(t, posts[0].RequestID, posts[2].RequestID)
}

func TestRetriesGiveUpAfterThree(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	h.srv.FailNext(503, 503, 503, 503)

	_, err := h.client.ListTasks(context.Background())
	require.Error(t, err)
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierr.KindServer, apiErr.Kind)
	assert.Equal(t, 4, apiErr.Attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, h.sleeps)
}

func TestUnauthorizedInvalidatesSession(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	invalidated := 0
	h.sess.OnInvalidate(func() { invalidated++ })
	h.srv.Revoke(h.sess.Token())

	_, err := h.client.ListEvents(context.Background())
	assert.True(t, apierr.IsKind(err, apierr.KindAuth))
	assert.False(t, h.sess.Active())
	assert.Equal(t, 1, invalidated)
	assert.Empty(t, h.sleeps)

	_, err = h.client.ListEvents(context.Background())
	assert.True(t, apierr.IsKind(err, apierr.KindAuth))
	assert.Equal(t, 1, invalidated)
}

func TestTasksAndDashboard(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	ctx := context.Background()

	ev, err := h.client.CreateEvent(ctx, sampleEvent())
	require.NoError(t, err)
	task, err := h.client.CreateTask(ctx, domain.Task{Title: "Book caterer", Priority: domain.PriorityHigh, EventID: &ev.ID})
	require.NoError(t, err)
	assert.Equal(t, "Reception", task.EventTitle)

	toggled, err := h.client.ToggleTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	_, err = h.client.CreateTask(ctx, domain.Task{Title: "Send invites"})
	require.NoError(t, err)

	stats, err := h.client.DashboardStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalEvents)
	assert.EqualValues(t, 1, stats.CompletedTasks)
	assert.EqualValues(t, 1, stats.PendingTasks)

	tasks, err := h.client.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, domain.PriorityMedium, tasks[1].Priority)

	require.NoError(t, h.client.DeleteTask(ctx, task.ID))
}

func TestLoginWithWrongPassword(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	_, err := h.client.Login(context.Background(), "meera", "nope")
	assert.True(t, apierr.IsKind(err, apierr.KindAuth))
	assert.False(t, h.sess.Active())

	p, err := h.client.Login(context.Background(), "meera", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "Meera N", p.FullName)
	assert.True(t, h.sess.Active())
}
