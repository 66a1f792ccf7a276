// Package booking runs the conflict-aware save flow shared by every surface
// that creates or edits events: normalise the form, validate it, check the
// slot locally, submit, and translate the result into an Outcome.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"evsched/internal/alert"
	"evsched/internal/apierr"
	"evsched/internal/conflict"
	"evsched/internal/domain"
)

const (
	genericFailure  = "An error occurred. Please try again."
	genericConflict = "Already booked for the selected time slot. Please choose a different time."
)

type Kind string

const (
	Success          Kind = "success"
	ValidationFailed Kind = "validationFailed"
	Conflict         Kind = "conflict"
	NetworkFailed    Kind = "networkFailed"
)

// Outcome is the tagged result of one save attempt.
type Outcome struct {
	Kind        Kind
	Event       domain.Event
	Message     string
	Suggestions []string
	// Err is the underlying failure, nil for Success and local outcomes.
	Err error
}

func (o Outcome) OK() bool { return o.Kind == Success }

// FormValues are the raw strings entered in the event editor.
type FormValues struct {
	Title           string
	Description     string
	Date            string
	Time            string
	Place           string
	Location        string
	FoodPreferences string
	Attendees       string
	Status          string
}

// ValuesOf pre-fills a form from an existing event.
func ValuesOf(e domain.Event) FormValues {
	v := FormValues{
		Title:           e.Title,
		Description:     e.Description,
		Date:            e.Date,
		Time:            e.Time,
		Place:           e.Place,
		Location:        e.Location,
		FoodPreferences: e.FoodPreferences,
		Status:          string(e.Status),
	}
	if e.Attendees != nil {
		v.Attendees = strconv.Itoa(*e.Attendees)
	}
	return v
}

// Submitter persists events; *api.Client satisfies it.
type Submitter interface {
	CreateEvent(ctx context.Context, e domain.Event) (domain.Event, error)
	UpdateEvent(ctx context.Context, id int64, e domain.Event) (domain.Event, error)
}

type Orchestrator struct {
	Events Submitter
	// Alerts, when set, receives a notification for every outcome.
	Alerts *alert.Coordinator
	Logger *log.Logger
}

func (o *Orchestrator) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.Default()
}

// Save runs one save attempt. editing is nil when creating. existing is the
// caller's current view of all events; it is only read.
func (o *Orchestrator) Save(ctx context.Context, form FormValues, editing *domain.Event, existing []domain.Event) Outcome {
	out := o.save(ctx, form, editing, existing)
	o.report(out)
	return out
}

func (o *Orchestrator) save(ctx context.Context, form FormValues, editing *domain.Event, existing []domain.Event) Outcome {
	candidate, err := Normalize(form)
	if err == nil {
		err = Validate(candidate)
	}
	if err != nil {
		return Outcome{Kind: ValidationFailed, Message: err.Error()}
	}

	var excludeID int64
	if editing != nil {
		excludeID = editing.ID
	}
	if clash, ok := conflict.Detect(conflict.FromEvent(candidate), existing, excludeID); ok {
		return Outcome{Kind: Conflict, Message: conflict.Message(clash), Suggestions: []string{}}
	}

	var saved domain.Event
	if editing != nil && editing.ID != 0 {
		saved, err = o.Events.UpdateEvent(ctx, editing.ID, candidate)
	} else {
		saved, err = o.Events.CreateEvent(ctx, candidate)
	}
	if err == nil {
		return Outcome{Kind: Success, Event: saved}
	}

	var apiErr *apierr.Error
	if errors.As(err, &apiErr) && apiErr.Kind == apierr.KindConflict {
		msg := apiErr.Message
		if msg == "" {
			msg = genericConflict
		}
		return Outcome{Kind: Conflict, Message: msg, Suggestions: apiErr.Suggestions, Err: err}
	}
	msg := apierr.Message(err)
	if msg == "" {
		msg = genericFailure
	}
	return Outcome{Kind: NetworkFailed, Message: msg, Err: err}
}

func (o *Orchestrator) report(out Outcome) {
	switch out.Kind {
	case Success:
		o.logger().Printf("booking: saved event id=%d %s %s at %s", out.Event.ID, out.Event.Date, out.Event.Time, out.Event.Location)
	case NetworkFailed:
		o.logger().Printf("booking: save failed: %v", out.Err)
	default:
		o.logger().Printf("booking: save rejected (%s): %s", out.Kind, out.Message)
	}
	if o.Alerts == nil {
		return
	}
	switch out.Kind {
	case Success:
		o.Alerts.ShowSuccess(fmt.Sprintf("%s on %s at %s saved.", out.Event.Title, out.Event.Date, out.Event.Time), "Event Saved")
	case Conflict:
		o.Alerts.Show(alert.Notification{Type: alert.TypeError, Title: "Event Conflict", Message: out.Message, Details: out.Suggestions})
	case ValidationFailed:
		o.Alerts.ShowWarning(out.Message, "Invalid Event")
	case NetworkFailed:
		o.Alerts.ShowError(out.Message, "")
	}
}

// Normalize coerces raw form strings into an event: attendees become an
// integer or nil, status is upper-cased into the closed enum, time is trimmed
// to HH:MM and blank date/time stay empty so they are omitted on the wire.
func Normalize(f FormValues) (domain.Event, error) {
	e := domain.Event{
		Title:           strings.TrimSpace(f.Title),
		Description:     strings.TrimSpace(f.Description),
		Date:            strings.TrimSpace(f.Date),
		Time:            domain.NormalizeTime(f.Time),
		Place:           strings.TrimSpace(f.Place),
		Location:        strings.TrimSpace(f.Location),
		FoodPreferences: strings.TrimSpace(f.FoodPreferences),
	}
	if a := strings.TrimSpace(f.Attendees); a != "" {
		n, err := strconv.Atoi(a)
		if err != nil {
			return domain.Event{}, fmt.Errorf("attendees must be a whole number")
		}
		e.Attendees = &n
	}
	status, err := domain.ParseStatus(f.Status)
	if err != nil {
		return domain.Event{}, err
	}
	e.Status = status
	return e, nil
}

// Validate checks required fields and catalog membership.
func Validate(e domain.Event) error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"title", e.Title},
		{"date", e.Date},
		{"time", e.Time},
		{"place", e.Place},
		{"location", e.Location},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	if !domain.KnownEventType(e.Title) {
		return fmt.Errorf("unknown event type %q", e.Title)
	}
	if e.FoodPreferences != "" && !domain.KnownFoodPreference(e.FoodPreferences) {
		return fmt.Errorf("unknown food preference %q", e.FoodPreferences)
	}
	if e.Attendees != nil && *e.Attendees < 0 {
		return fmt.Errorf("attendees cannot be negative")
	}
	if domain.KnownPlace(e.Place) && !domain.VenueInPlace(e.Place, e.Location) {
		return fmt.Errorf("%s is not a venue in %s", e.Location, e.Place)
	}
	return nil
}
