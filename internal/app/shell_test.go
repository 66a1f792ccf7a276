package app_test

import (
	"context"
	"io"
	"log"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evsched/internal/alert"
	"evsched/internal/api"
	"evsched/internal/apitest"
	"evsched/internal/apitest/apitesttest"
	"evsched/internal/app"
	"evsched/internal/booking"
	"evsched/internal/config"
	"evsched/internal/domain"
	"evsched/internal/form"
	"evsched/internal/tasks"
)

func openEnv(t *testing.T, srv *apitest.Server, workspace string) *app.Env {
	t.Helper()
	cfg := config.Default(srv.APIURL())
	cfg.Retry.BaseDelay = time.Millisecond
	env, err := app.Open(context.Background(), workspace, cfg, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	t.Cleanup(func() { env.Close() })
	return env
}

func weddingAt(location, clock string) booking.FormValues {
	return booking.FormValues{
		Title:           "Wedding",
		Date:            "2024-01-15",
		Time:            clock,
		Place:           "Chennai",
		Location:        location,
		FoodPreferences: "Veg",
		Attendees:       "150",
		Status:          "confirmed",
	}
}

func signedIn(t *testing.T) (*apitest.Server, *app.Env) {
	t.Helper()
	srv := apitesttest.Start(t, apitest.Config{})
	env := openEnv(t, srv, t.TempDir())
	_, err := env.Shell.Register(context.Background(), api.Credentials{Username: "meera", Password: "s3cret", FullName: "Meera N"})
	require.NoError(t, err)
	return srv, env
}

func TestSubmitEventSuccessClosesForm(t *testing.T) {
	_, env := signedIn(t)
	sh := env.Shell
	ctx := context.Background()

	sh.OpenCreate()
	out := sh.SubmitEvent(ctx, weddingAt("ITC Grand Chola", "10:00"))
	require.Equal(t, booking.Success, out.Kind, out.Message)
	assert.Equal(t, form.Closed, sh.FormState())
	require.Len(t, sh.Events(), 1)
	assert.Equal(t, domain.StatusConfirmed, sh.Events()[0].Status)

	n, ok := sh.Alerts.Current()
	require.True(t, ok)
	assert.Equal(t, alert.TypeSuccess, n.Type)

	entries, err := env.Repo.LatestJournal(ctx, 5, "event.save")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "success", entries[0].Payload["outcome"])
	assert.Equal(t, "meera", entries[0].Actor)
}

func TestLocalConflictKeepsFormOpen(t *testing.T) {
	srv, env := signedIn(t)
	sh := env.Shell
	ctx := context.Background()
	require.Equal(t, booking.Success, sh.SubmitEvent(ctx, weddingAt("ITC Grand Chola", "10:00")).Kind)
	before := len(srv.Requests())

	sh.OpenCreate()
	out := sh.SubmitEvent(ctx, weddingAt("ITC Grand Chola", "10:00"))
	assert.Equal(t, booking.Conflict, out.Kind)
	assert.Equal(t, "ITC Grand Chola is already booked for January 15, 2024 at 10:00. Please choose another venue or timing.", out.Message)
	assert.Empty(t, sh.Suggestions())
	assert.Equal(t, form.CreatingNew, sh.FormState())
	assert.Equal(t, before, len(srv.Requests()), "local conflict must not reach the server")

	n, ok := sh.Alerts.Current()
	require.True(t, ok)
	assert.Equal(t, alert.TypeError, n.Type)
}

func TestServerConflictExposesSuggestions(t *testing.T) {
	_, env := signedIn(t)
	sh := env.Shell
	ctx := context.Background()

	// Booked behind the shell's back, so only the server sees the clash.
	_, err := env.API.CreateEvent(ctx, domain.Event{Title: "Birthday", Date: "2024-01-15", Time: "18:00", Location: "Taj Coromandel", Place: "Chennai"})
	require.NoError(t, err)

	sh.OpenCreate()
	out := sh.SubmitEvent(ctx, weddingAt("Taj Coromandel", "18:00"))
	require.Equal(t, booking.Conflict, out.Kind)
	assert.Contains(t, out.Message, "An event already exists at Taj Coromandel")
	assert.NotEmpty(t, sh.Suggestions())
	assert.Equal(t, form.CreatingNew, sh.FormState())

	// Picking a suggested venue clears them again.
	out = sh.SubmitEvent(ctx, weddingAt("ITC Grand Chola", "18:00"))
	require.Equal(t, booking.Success, out.Kind)
	assert.Empty(t, sh.Suggestions())
}

func TestEditEventSkipsItself(t *testing.T) {
	_, env := signedIn(t)
	sh := env.Shell
	ctx := context.Background()
	created := sh.SubmitEvent(ctx, weddingAt("ITC Grand Chola", "10:00"))
	require.Equal(t, booking.Success, created.Kind)

	values, err := sh.OpenEdit(created.Event.ID)
	require.NoError(t, err)
	values.Attendees = "200"
	out := sh.SubmitEvent(ctx, values)
	require.Equal(t, booking.Success, out.Kind, out.Message)
	assert.Equal(t, created.Event.ID, out.Event.ID)
	require.Len(t, sh.Events(), 1)
	assert.Equal(t, 200, *sh.Events()[0].Attendees)

	_, err = sh.OpenEdit(999)
	assert.Error(t, err)
}

func TestDeleteEventNeedsConfirmation(t *testing.T) {
	_, env := signedIn(t)
	sh := env.Shell
	ctx := context.Background()
	created := sh.SubmitEvent(ctx, weddingAt("ITC Grand Chola", "10:00"))
	require.Equal(t, booking.Success, created.Kind)

	sh.DeleteEvent(ctx, created.Event.ID)
	assert.ErrorIs(t, sh.Alerts.Dismiss(), alert.ErrConfirmationRequired)
	require.Len(t, sh.Events(), 1)

	require.NoError(t, sh.Alerts.Confirm())
	assert.Empty(t, sh.Events())
	remote, err := env.API.ListEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, remote)

	sh.DeleteEvent(ctx, 42)
	require.NoError(t, sh.Alerts.Cancel())
}

func TestLogoutResetsState(t *testing.T) {
	_, env := signedIn(t)
	sh := env.Shell
	ctx := context.Background()
	require.Equal(t, booking.Success, sh.SubmitEvent(ctx, weddingAt("ITC Grand Chola", "10:00")).Kind)
	sh.OpenCreate()

	assert.True(t, sh.Logout(ctx))
	assert.False(t, env.Session.Active())
	assert.Empty(t, sh.Events())
	assert.Equal(t, form.Closed, sh.FormState())
	assert.False(t, sh.Alerts.Visible())
	assert.False(t, sh.Logout(ctx))
}

func TestRejectedTokenResetsShell(t *testing.T) {
	srv, env := signedIn(t)
	sh := env.Shell
	ctx := context.Background()
	require.Equal(t, booking.Success, sh.SubmitEvent(ctx, weddingAt("ITC Grand Chola", "10:00")).Kind)

	srv.Revoke(env.Session.Token())
	_, err := sh.LoadEvents(ctx)
	require.Error(t, err)
	assert.False(t, env.Session.Active())
	assert.Empty(t, sh.Events())
}

func TestSessionSurvivesReopen(t *testing.T) {
	srv := apitesttest.Start(t, apitest.Config{})
	workspace := t.TempDir()
	first := openEnv(t, srv, workspace)
	_, err := first.Shell.Register(context.Background(), api.Credentials{Username: "meera", Password: "s3cret"})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := openEnv(t, srv, workspace)
	p, ok := second.Session.Profile()
	require.True(t, ok)
	assert.Equal(t, "meera", p.Username)
	_, err = second.Shell.LoadEvents(context.Background())
	require.NoError(t, err)
}

func TestUnsyncedTaskThenSync(t *testing.T) {
	srv, env := signedIn(t)
	sh := env.Shell
	ctx := context.Background()

	srv.FailNext(http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusServiceUnavailable)
	entry, err := sh.SaveTask(ctx, tasks.Form{Title: "Book caterer", Priority: "high"}, nil)
	require.NoError(t, err)
	assert.Equal(t, tasks.Unsynced, entry.State)
	n, ok := sh.Alerts.Current()
	require.True(t, ok)
	assert.Equal(t, alert.TypeWarning, n.Type)

	list, err := sh.LoadTasks(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, tasks.Unsynced, list[0].State)

	rep, err := sh.Tasks.Sync(ctx)
	require.NoError(t, err)
	require.NoError(t, rep.Err)
	require.Len(t, rep.Synced, 1)

	list, err = sh.LoadTasks(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, tasks.Synced, list[0].State)
	assert.Equal(t, domain.PriorityHigh, list[0].Task.Priority)
}
