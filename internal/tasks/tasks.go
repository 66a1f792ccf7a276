// Package tasks saves tasks and keeps changes the server could not accept in
// an explicit unsynced queue instead of silently diverging from the server.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"evsched/internal/apierr"
	"evsched/internal/domain"
	"evsched/internal/repo"
)

type SyncState string

const (
	Synced   SyncState = "synced"
	Unsynced SyncState = "unsynced"
)

// Entry is a task as the user sees it, tagged with whether the server has
// accepted it.
type Entry struct {
	Task    domain.Task `json:"task"`
	State   SyncState   `json:"state"`
	LocalID string      `json:"local_id,omitempty"`
	Cause   string      `json:"cause,omitempty"`
}

// API is the subset of the REST client used here; *api.Client satisfies it.
type API interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	CreateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	UpdateTask(ctx context.Context, id int64, t domain.Task) (domain.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	ToggleTask(ctx context.Context, id int64) (domain.Task, error)
}

// Queue persists unsynced changes; repo.Repo satisfies it.
type Queue interface {
	QueueTask(ctx context.Context, p repo.PendingTask) (repo.PendingTask, error)
	PendingTasks(ctx context.Context) ([]repo.PendingTask, error)
	MarkPendingFailed(ctx context.Context, localID, msg string) error
	DeletePending(ctx context.Context, localID string) error
	ClearPending(ctx context.Context) error
}

type Service struct {
	API    API
	Queue  Queue
	Logger *log.Logger
}

func (s *Service) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

// Form holds the raw task editor values.
type Form struct {
	Title       string
	Description string
	DueDate     string
	Priority    string
	Assignee    string
	EventID     string
	Completed   bool
}

// Normalize validates the form and builds the wire task.
func Normalize(f Form) (domain.Task, error) {
	t := domain.Task{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		DueDate:     strings.TrimSpace(f.DueDate),
		Assignee:    strings.TrimSpace(f.Assignee),
		Completed:   f.Completed,
	}
	if t.Title == "" {
		return t, errors.New("task title is required")
	}
	p, err := domain.ParsePriority(f.Priority)
	if err != nil {
		return t, err
	}
	t.Priority = p
	if id := strings.TrimSpace(f.EventID); id != "" {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil || n <= 0 {
			return t, fmt.Errorf("invalid event id %q", id)
		}
		t.EventID = &n
	}
	return t, nil
}

// Save creates (existing == nil) or updates a task. A network or server
// failure queues the change and returns it as Unsynced together with a nil
// error; any other failure is returned as is and nothing is queued.
func (s *Service) Save(ctx context.Context, f Form, existing *domain.Task) (Entry, error) {
	t, err := Normalize(f)
	if err != nil {
		return Entry{}, &apierr.Error{Kind: apierr.KindValidation, Message: err.Error(), Err: err}
	}
	var saved domain.Task
	op := repo.OpCreate
	var taskID int64
	if existing != nil && existing.ID != 0 {
		op, taskID = repo.OpUpdate, existing.ID
		saved, err = s.API.UpdateTask(ctx, taskID, t)
	} else {
		saved, err = s.API.CreateTask(ctx, t)
	}
	if err == nil {
		return Entry{Task: saved, State: Synced}, nil
	}
	if !apierr.KindOf(err).Retryable() {
		return Entry{}, err
	}
	t.ID = taskID
	p, qerr := s.Queue.QueueTask(ctx, repo.PendingTask{
		LocalID:   uuid.NewString(),
		Op:        op,
		TaskID:    taskID,
		Task:      t,
		LastError: err.Error(),
	})
	if qerr != nil {
		return Entry{}, fmt.Errorf("queue unsynced task: %w (save failed: %v)", qerr, err)
	}
	s.logger().Printf("tasks: %s queued as unsynced (%s): %v", t.Title, p.LocalID, err)
	return Entry{Task: t, State: Unsynced, LocalID: p.LocalID, Cause: err.Error()}, nil
}

// List merges the server's tasks with the local unsynced queue. Queued
// updates shadow the server copy; queued creates are appended.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	pending, err := s.Queue.PendingTasks(ctx)
	if err != nil {
		return nil, err
	}
	remote, err := s.API.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	updates := map[int64]repo.PendingTask{}
	for _, p := range pending {
		if p.Op == repo.OpUpdate {
			updates[p.TaskID] = p
		}
	}
	out := make([]Entry, 0, len(remote)+len(pending))
	for _, t := range remote {
		if p, ok := updates[t.ID]; ok {
			out = append(out, Entry{Task: p.Task, State: Unsynced, LocalID: p.LocalID, Cause: p.LastError})
			continue
		}
		out = append(out, Entry{Task: t, State: Synced})
	}
	for _, p := range pending {
		if p.Op == repo.OpCreate {
			out = append(out, Entry{Task: p.Task, State: Unsynced, LocalID: p.LocalID, Cause: p.LastError})
		}
	}
	return out, nil
}

// Rejection is a queued change the server refused for good. It has been
// dropped from the queue.
type Rejection struct {
	LocalID string      `json:"local_id"`
	Task    domain.Task `json:"task"`
	Reason  string      `json:"reason"`
}

// SyncReport summarises one Sync pass.
type SyncReport struct {
	Synced    []domain.Task `json:"synced"`
	Rejected  []Rejection   `json:"rejected,omitempty"`
	Remaining int           `json:"remaining"`
	Err       error         `json:"-"`
}

// Sync replays queued changes oldest first. A change the server refuses
// permanently (a 4xx other than 401) is dropped and reported in Rejected, and
// the pass moves on. A transient failure or a rejected session stops the
// pass, leaving that change and everything after it queued.
func (s *Service) Sync(ctx context.Context) (SyncReport, error) {
	pending, err := s.Queue.PendingTasks(ctx)
	if err != nil {
		return SyncReport{}, err
	}
	var rep SyncReport
	for i, p := range pending {
		var saved domain.Task
		var err error
		switch p.Op {
		case repo.OpUpdate:
			saved, err = s.API.UpdateTask(ctx, p.TaskID, p.Task)
		default:
			saved, err = s.API.CreateTask(ctx, p.Task)
		}
		if err != nil {
			kind := apierr.KindOf(err)
			if kind == "" || kind.Retryable() || kind == apierr.KindAuth {
				if merr := s.Queue.MarkPendingFailed(ctx, p.LocalID, err.Error()); merr != nil {
					s.logger().Printf("tasks: mark %s failed: %v", p.LocalID, merr)
				}
				rep.Remaining = len(pending) - i
				rep.Err = err
				return rep, nil
			}
			if derr := s.Queue.DeletePending(ctx, p.LocalID); derr != nil {
				return rep, fmt.Errorf("drop rejected task %s: %w", p.LocalID, derr)
			}
			reason := apierr.Message(err)
			if reason == "" {
				reason = err.Error()
			}
			s.logger().Printf("tasks: %s (%s) rejected by server, dropped: %v", p.Task.Title, p.LocalID, err)
			rep.Rejected = append(rep.Rejected, Rejection{LocalID: p.LocalID, Task: p.Task, Reason: reason})
			continue
		}
		if err := s.Queue.DeletePending(ctx, p.LocalID); err != nil {
			return rep, fmt.Errorf("drop synced task %s: %w", p.LocalID, err)
		}
		rep.Synced = append(rep.Synced, saved)
	}
	return rep, nil
}

// Discard drops one queued change without sending it. localID may be a
// unique prefix of the local id, as shown by `evs task list`.
func (s *Service) Discard(ctx context.Context, localID string) (repo.PendingTask, error) {
	localID = strings.TrimPrefix(strings.TrimSpace(localID), "local:")
	if localID == "" {
		return repo.PendingTask{}, errors.New("local id is required")
	}
	pending, err := s.Queue.PendingTasks(ctx)
	if err != nil {
		return repo.PendingTask{}, err
	}
	var match []repo.PendingTask
	for _, p := range pending {
		if p.LocalID == localID {
			match = []repo.PendingTask{p}
			break
		}
		if strings.HasPrefix(p.LocalID, localID) {
			match = append(match, p)
		}
	}
	switch len(match) {
	case 0:
		return repo.PendingTask{}, fmt.Errorf("no unsynced change %q", localID)
	case 1:
	default:
		return repo.PendingTask{}, fmt.Errorf("local id %q is ambiguous (%d changes)", localID, len(match))
	}
	if err := s.Queue.DeletePending(ctx, match[0].LocalID); err != nil {
		return repo.PendingTask{}, err
	}
	return match[0], nil
}

// DiscardAll empties the unsynced queue and reports how many changes it held.
func (s *Service) DiscardAll(ctx context.Context) (int, error) {
	pending, err := s.Queue.PendingTasks(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.Queue.ClearPending(ctx); err != nil {
		return 0, err
	}
	return len(pending), nil
}

func (s *Service) Toggle(ctx context.Context, id int64) (domain.Task, error) {
	return s.API.ToggleTask(ctx, id)
}

// Delete removes a task. confirmed must be true; callers obtain it from the
// user through the alert coordinator.
func (s *Service) Delete(ctx context.Context, id int64, confirmed bool) error {
	if !confirmed {
		return errors.New("task deletion requires confirmation")
	}
	return s.API.DeleteTask(ctx, id)
}
