package app

import (
	"context"
	"fmt"
	"log"
	"sync"

	"evsched/internal/alert"
	"evsched/internal/api"
	"evsched/internal/apierr"
	"evsched/internal/booking"
	"evsched/internal/domain"
	"evsched/internal/form"
	"evsched/internal/journal"
	"evsched/internal/session"
	"evsched/internal/tasks"
)

const genericLoadFailure = "Failed to load data. Please try again."

// Shell holds the user-facing state of one signed-in user: the loaded events
// and tasks, the alternatives offered by the last rejected booking, the alert
// slot and the event form. It resets itself whenever the session is
// invalidated.
type Shell struct {
	API     *api.Client
	Session *session.Session
	Alerts  *alert.Coordinator
	Booking *booking.Orchestrator
	Tasks   *tasks.Service
	Journal journal.Writer
	Logger  *log.Logger

	mu          sync.Mutex
	form        form.Controller
	events      []domain.Event
	taskEntries []tasks.Entry
	suggestions []string
}

// NewShell wires a shell over client and subscribes it to sess.
func NewShell(client *api.Client, sess *session.Session, queue tasks.Queue) *Shell {
	alerts := alert.New()
	s := &Shell{
		API:     client,
		Session: sess,
		Alerts:  alerts,
		Booking: &booking.Orchestrator{Events: client, Alerts: alerts},
		Tasks:   &tasks.Service{API: client, Queue: queue},
	}
	sess.OnInvalidate(s.reset)
	return s
}

// SetLogger routes every component's logging to l.
func (s *Shell) SetLogger(l *log.Logger) {
	s.Logger = l
	s.Booking.Logger = l
	s.Tasks.Logger = l
}

func (s *Shell) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

func (s *Shell) reset() {
	s.mu.Lock()
	s.events = nil
	s.taskEntries = nil
	s.suggestions = nil
	s.form.Cancel()
	s.mu.Unlock()
	s.Alerts.Reset()
	s.logger().Printf("shell: session ended; state cleared")
}

func (s *Shell) actor() string {
	if p, ok := s.Session.Profile(); ok {
		return p.Username
	}
	return ""
}

func (s *Shell) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Event(nil), s.events...)
}

func (s *Shell) TaskEntries() []tasks.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tasks.Entry(nil), s.taskEntries...)
}

// Suggestions are the alternatives the server offered with the last conflict.
func (s *Shell) Suggestions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.suggestions...)
}

func (s *Shell) FormState() form.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.State()
}

func (s *Shell) failLoad(what string, err error) {
	msg := apierr.Message(err)
	if msg == "" {
		msg = genericLoadFailure
	}
	s.logger().Printf("shell: load %s: %v", what, err)
	if !apierr.IsKind(err, apierr.KindAuth) {
		s.Alerts.ShowError(msg, "")
	}
}

func (s *Shell) LoadEvents(ctx context.Context) ([]domain.Event, error) {
	events, err := s.API.ListEvents(ctx)
	if err != nil {
		s.failLoad("events", err)
		return nil, err
	}
	s.mu.Lock()
	s.events = events
	s.mu.Unlock()
	return append([]domain.Event(nil), events...), nil
}

func (s *Shell) LoadTasks(ctx context.Context) ([]tasks.Entry, error) {
	entries, err := s.Tasks.List(ctx)
	if err != nil {
		s.failLoad("tasks", err)
		return nil, err
	}
	s.mu.Lock()
	s.taskEntries = entries
	s.mu.Unlock()
	return append([]tasks.Entry(nil), entries...), nil
}

func (s *Shell) OpenCreate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.OpenCreate()
	s.suggestions = nil
}

// OpenEdit opens the form on a loaded event.
func (s *Shell) OpenEdit(id int64) (booking.FormValues, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.ID == id {
			s.form.OpenEdit(e)
			s.suggestions = nil
			return booking.ValuesOf(e), nil
		}
	}
	return booking.FormValues{}, fmt.Errorf("event %d is not loaded", id)
}

func (s *Shell) CancelForm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.Cancel()
}

// SubmitEvent saves the open form. Submitting with the form closed starts a
// create.
func (s *Shell) SubmitEvent(ctx context.Context, values booking.FormValues) booking.Outcome {
	s.mu.Lock()
	if !s.form.Open() {
		s.form.OpenCreate()
	}
	editing := s.form.Editing()
	existing := append([]domain.Event(nil), s.events...)
	s.mu.Unlock()

	out := s.Booking.Save(ctx, values, editing, existing)

	s.mu.Lock()
	switch out.Kind {
	case booking.Success:
		s.upsertEvent(out.Event)
		s.suggestions = nil
	case booking.Conflict:
		s.suggestions = append([]string(nil), out.Suggestions...)
	default:
		s.suggestions = nil
	}
	s.form.Apply(out)
	s.mu.Unlock()

	s.record(ctx, out, editing)
	return out
}

func (s *Shell) upsertEvent(e domain.Event) {
	for i := range s.events {
		if s.events[i].ID == e.ID {
			s.events[i] = e
			return
		}
	}
	s.events = append(s.events, e)
}

func (s *Shell) record(ctx context.Context, out booking.Outcome, editing *domain.Event) {
	var id int64
	switch {
	case out.Kind == booking.Success:
		id = out.Event.ID
	case editing != nil:
		id = editing.ID
	}
	entityID := ""
	if id != 0 {
		entityID = fmt.Sprint(id)
	}
	payload := journal.Payload{"outcome": string(out.Kind)}
	if out.Message != "" {
		payload["message"] = out.Message
	}
	if len(out.Suggestions) > 0 {
		payload["suggestions"] = out.Suggestions
	}
	if out.Kind == booking.Success {
		payload["title"] = out.Event.Title
		payload["date"] = out.Event.Date
		payload["time"] = out.Event.Time
		payload["location"] = out.Event.Location
	}
	if err := s.Journal.Append(ctx, "event.save", "event", entityID, s.actor(), payload); err != nil {
		s.logger().Printf("shell: journal: %v", err)
	}
}

// DeleteEvent asks for confirmation through the alert slot; the event is
// deleted when the alert is confirmed.
func (s *Shell) DeleteEvent(ctx context.Context, id int64) {
	name := fmt.Sprintf("event #%d", id)
	s.mu.Lock()
	for _, e := range s.events {
		if e.ID == id {
			name = fmt.Sprintf("%q on %s", e.Title, e.Date)
		}
	}
	s.mu.Unlock()

	s.Alerts.ShowConfirm(fmt.Sprintf("Are you sure you want to delete %s? This cannot be undone.", name), func() error {
		if err := s.API.DeleteEvent(ctx, id); err != nil {
			s.Alerts.ShowError(orGeneric(err), "Delete Failed")
			return err
		}
		s.mu.Lock()
		for i := range s.events {
			if s.events[i].ID == id {
				s.events = append(s.events[:i], s.events[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		if err := s.Journal.Append(ctx, "event.delete", "event", fmt.Sprint(id), s.actor(), nil); err != nil {
			s.logger().Printf("shell: journal: %v", err)
		}
		s.Alerts.ShowSuccess("Event deleted.", "Deleted")
		return nil
	}, "Delete Event")
}

// DeleteTask asks for confirmation through the alert slot.
func (s *Shell) DeleteTask(ctx context.Context, id int64) {
	s.Alerts.ShowConfirm(fmt.Sprintf("Are you sure you want to delete task #%d?", id), func() error {
		if err := s.Tasks.Delete(ctx, id, true); err != nil {
			s.Alerts.ShowError(orGeneric(err), "Delete Failed")
			return err
		}
		s.mu.Lock()
		for i := range s.taskEntries {
			if s.taskEntries[i].Task.ID == id {
				s.taskEntries = append(s.taskEntries[:i], s.taskEntries[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		if err := s.Journal.Append(ctx, "task.delete", "task", fmt.Sprint(id), s.actor(), nil); err != nil {
			s.logger().Printf("shell: journal: %v", err)
		}
		return nil
	}, "Delete Task")
}

// SaveTask saves through the reconciliation service and journals unsynced
// results.
func (s *Shell) SaveTask(ctx context.Context, f tasks.Form, existing *domain.Task) (tasks.Entry, error) {
	entry, err := s.Tasks.Save(ctx, f, existing)
	if err != nil {
		s.Alerts.ShowError(orGeneric(err), "Task Not Saved")
		return entry, err
	}
	if entry.State == tasks.Unsynced {
		s.Alerts.ShowWarning("The server could not be reached. The task is kept locally and marked unsynced; run sync to retry.", "Task Not Synced")
		if err := s.Journal.Append(ctx, "task.unsynced", "task", entry.LocalID, s.actor(), journal.Payload{"title": entry.Task.Title, "cause": entry.Cause}); err != nil {
			s.logger().Printf("shell: journal: %v", err)
		}
	} else {
		s.Alerts.ShowSuccess(fmt.Sprintf("Task %q saved.", entry.Task.Title), "Task Saved")
	}
	return entry, nil
}

func (s *Shell) Login(ctx context.Context, username, password string) (domain.Profile, error) {
	p, err := s.API.Login(ctx, username, password)
	if err != nil {
		s.Alerts.ShowError(orGeneric(err), "Login Failed")
		return p, err
	}
	s.Alerts.ShowSuccess("Welcome back, "+displayName(p)+"!", "Signed In")
	return p, nil
}

func (s *Shell) Register(ctx context.Context, creds api.Credentials) (domain.Profile, error) {
	p, err := s.API.Register(ctx, creds)
	if err != nil {
		s.Alerts.ShowError(orGeneric(err), "Registration Failed")
		return p, err
	}
	s.Alerts.ShowSuccess("Welcome, "+displayName(p)+"!", "Account Created")
	return p, nil
}

// Logout ends the session; the shell resets through its invalidation hook.
func (s *Shell) Logout(ctx context.Context) bool {
	return s.Session.Invalidate(ctx)
}

func displayName(p domain.Profile) string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Username
}

func orGeneric(err error) string {
	if msg := apierr.Message(err); msg != "" {
		return msg
	}
	if apierr.IsKind(err, apierr.KindValidation) {
		return err.Error()
	}
	return "An error occurred. Please try again."
}
