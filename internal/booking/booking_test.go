package booking

import (
	"context"
	"io"
	"log"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evsched/internal/alert"
	"evsched/internal/apierr"
	"evsched/internal/domain"
)

type fakeEvents struct {
	created []domain.Event
	updated map[int64]domain.Event
	err     error
	nextID  int64
}

func (f *fakeEvents) CreateEvent(_ context.Context, e domain.Event) (domain.Event, error) {
	f.created = append(f.created, e)
	if f.err != nil {
		return domain.Event{}, f.err
	}
	f.nextID++
	e.ID = f.nextID
	e.CreatedAt = "2024-01-10T08:00:00"
	return e, nil
}

func (f *fakeEvents) UpdateEvent(_ context.Context, id int64, e domain.Event) (domain.Event, error) {
	if f.updated == nil {
		f.updated = map[int64]domain.Event{}
	}
	f.updated[id] = e
	if f.err != nil {
		return domain.Event{}, f.err
	}
	e.ID = id
	return e, nil
}

func (f *fakeEvents) calls() int { return len(f.created) + len(f.updated) }

func newOrchestrator(f *fakeEvents) (*Orchestrator, *alert.Coordinator) {
	a := alert.New()
	return &Orchestrator{Events: f, Alerts: a, Logger: log.New(io.Discard, "", 0)}, a
}

func weddingForm() FormValues {
	return FormValues{
		Title:     "Wedding",
		Date:      "2024-01-15",
		Time:      "10:00",
		Place:     "Chennai",
		Location:  "Taj Coromandel",
		Attendees: "150",
		Status:    "pending",
	}
}

var existing = []domain.Event{
	{ID: 1, Title: "Meeting", Date: "2024-01-15", Time: "10:00", Place: "Chennai", Location: "Taj Coromandel", Status: domain.StatusConfirmed},
}

func TestLocalConflictSkipsNetwork(t *testing.T) {
	f := &fakeEvents{}
	o, alerts := newOrchestrator(f)

	out := o.Save(context.Background(), weddingForm(), nil, existing)
	assert.Equal(t, Conflict, out.Kind)
	assert.Contains(t, out.Message, "Taj Coromandel is already booked for January 15, 2024 at 10:00")
	assert.NotNil(t, out.Suggestions)
	assert.Empty(t, out.Suggestions)
	assert.Zero(t, f.calls())

	n, ok := alerts.Current()
	require.True(t, ok)
	assert.Equal(t, "Event Conflict", n.Title)
}

func TestEditingInPlaceIsNotASelfConflict(t *testing.T) {
	f := &fakeEvents{}
	o, _ := newOrchestrator(f)
	editing := existing[0]
	form := ValuesOf(editing)
	form.Title = "Wedding"

	out := o.Save(context.Background(), form, &editing, existing)
	require.Equal(t, Success, out.Kind, out.Message)
	assert.Equal(t, int64(1), out.Event.ID)
	assert.Contains(t, f.updated, int64(1))
	assert.Empty(t, f.created)
}

func TestCreateSuccessUsesServerRepresentation(t *testing.T) {
	f := &fakeEvents{nextID: 41}
	o, alerts := newOrchestrator(f)
	form := weddingForm()
	form.Time = "11:00:00"

	out := o.Save(context.Background(), form, nil, existing)
	require.Equal(t, Success, out.Kind, out.Message)
	assert.Equal(t, int64(42), out.Event.ID)
	assert.Equal(t, "2024-01-10T08:00:00", out.Event.CreatedAt)

	sent := f.created[0]
	assert.Equal(t, "11:00", sent.Time)
	assert.Equal(t, domain.StatusPending, sent.Status)
	require.NotNil(t, sent.Attendees)
	assert.Equal(t, 150, *sent.Attendees)

	n, _ := alerts.Current()
	assert.Equal(t, alert.TypeSuccess, n.Type)
}

func TestServerConflictCarriesSuggestions(t *testing.T) {
	suggestions := []string{"ITC Grand Chola on 2024-01-15 at 10:00", "Taj Coromandel on 2024-01-15 at 12:00"}
	f := &fakeEvents{err: &apierr.Error{
		Kind:        apierr.KindConflict,
		Status:      http.StatusConflict,
		Message:     "An event already exists at Taj Coromandel on 2024-01-15 at 11:00.",
		Suggestions: suggestions,
	}}
	o, alerts := newOrchestrator(f)
	form := weddingForm()
	form.Time = "11:00"

	out := o.Save(context.Background(), form, nil, existing)
	assert.Equal(t, Conflict, out.Kind)
	assert.Equal(t, suggestions, out.Suggestions)
	assert.Equal(t, "An event already exists at Taj Coromandel on 2024-01-15 at 11:00.", out.Message)

	n, _ := alerts.Current()
	assert.Equal(t, suggestions, n.Details)
}

func TestServerConflictWithoutMessage(t *testing.T) {
	f := &fakeEvents{err: &apierr.Error{Kind: apierr.KindConflict, Status: http.StatusConflict}}
	o, _ := newOrchestrator(f)
	form := weddingForm()
	form.Time = "12:00"
	out := o.Save(context.Background(), form, nil, existing)
	assert.Equal(t, Conflict, out.Kind)
	assert.Equal(t, genericConflict, out.Message)
}

func TestServerFailureMessages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"server message", &apierr.Error{Kind: apierr.KindServer, Status: 500, Message: "database unavailable"}, "database unavailable"},
		{"no message", &apierr.Error{Kind: apierr.KindNetwork}, genericFailure},
		{"auth", &apierr.Error{Kind: apierr.KindAuth, Status: 401}, genericFailure},
		{"not found", &apierr.Error{Kind: apierr.KindNotFound, Status: 404, Message: "Event not found with id: 9"}, "Event not found with id: 9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeEvents{err: tc.err}
			o, alerts := newOrchestrator(f)
			form := weddingForm()
			form.Time = "13:00"
			out := o.Save(context.Background(), form, nil, existing)
			assert.Equal(t, NetworkFailed, out.Kind)
			assert.Equal(t, tc.want, out.Message)
			assert.ErrorIs(t, out.Err, tc.err)
			n, _ := alerts.Current()
			assert.Equal(t, alert.TypeError, n.Type)
		})
	}
}

func TestValidationFailuresStayLocal(t *testing.T) {
	cases := map[string]func(*FormValues){
		"missing date":     func(f *FormValues) { f.Date = "" },
		"missing location": func(f *FormValues) { f.Location = "  " },
		"bad attendees":    func(f *FormValues) { f.Attendees = "many" },
		"negative":         func(f *FormValues) { f.Attendees = "-3" },
		"unknown type":     func(f *FormValues) { f.Title = "Picnic" },
		"unknown food":     func(f *FormValues) { f.FoodPreferences = "Keto" },
		"venue elsewhere":  func(f *FormValues) { f.Location = "ITC Maurya" },
		"bad status":       func(f *FormValues) { f.Status = "archived" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := &fakeEvents{}
			o, _ := newOrchestrator(f)
			form := weddingForm()
			form.Time = "16:00"
			mutate(&form)
			out := o.Save(context.Background(), form, nil, existing)
			assert.Equal(t, ValidationFailed, out.Kind)
			assert.NotEmpty(t, out.Message)
			assert.Zero(t, f.calls())
		})
	}
}

func TestNormalize(t *testing.T) {
	e, err := Normalize(FormValues{Title: " Birthday ", Date: "", Time: "", Attendees: "", Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, "Birthday", e.Title)
	assert.Nil(t, e.Attendees)
	assert.Equal(t, domain.StatusConfirmed, e.Status)
	assert.Empty(t, e.Date)
	assert.Empty(t, e.Time)
}

func TestUnknownPlaceAcceptsAnyVenue(t *testing.T) {
	f := &fakeEvents{}
	o, _ := newOrchestrator(f)
	form := weddingForm()
	form.Place = "Online"
	form.Location = "Zoom"
	out := o.Save(context.Background(), form, nil, existing)
	assert.Equal(t, Success, out.Kind, out.Message)
}

func TestNoAlertsConfigured(t *testing.T) {
	f := &fakeEvents{}
	o := &Orchestrator{Events: f, Logger: log.New(io.Discard, "", 0)}
	out := o.Save(context.Background(), weddingForm(), nil, nil)
	assert.True(t, out.OK())
}
