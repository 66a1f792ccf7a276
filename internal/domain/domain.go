package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus accepts any casing; empty input yields StatusPending.
func ParseStatus(s string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(StatusPending):
		return StatusPending, nil
	case string(StatusConfirmed):
		return StatusConfirmed, nil
	case string(StatusCancelled), "CANCELED":
		return StatusCancelled, nil
	}
	return "", fmt.Errorf("unknown event status %q", s)
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw *string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = StatusPending
		return nil
	}
	v, err := ParseStatus(*raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// ParsePriority accepts any casing; empty input yields PriorityMedium.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(PriorityMedium):
		return PriorityMedium, nil
	case string(PriorityLow):
		return PriorityLow, nil
	case string(PriorityHigh):
		return PriorityHigh, nil
	}
	return "", fmt.Errorf("unknown task priority %q", s)
}

func (p *Priority) UnmarshalJSON(b []byte) error {
	var raw *string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*p = PriorityMedium
		return nil
	}
	v, err := ParsePriority(*raw)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

type Event struct {
	ID              int64  `json:"id,omitempty"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	Date            string `json:"date,omitempty" format:"date"`
	Time            string `json:"time,omitempty"`
	Location        string `json:"location"`
	Place           string `json:"place,omitempty"`
	FoodPreferences string `json:"foodPreferences,omitempty"`
	Attendees       *int   `json:"attendees,omitempty"`
	Status          Status `json:"status,omitempty" enum:"PENDING,CONFIRMED,CANCELLED"`
	CreatedAt       string `json:"createdAt,omitempty"`
	UpdatedAt       string `json:"updatedAt,omitempty"`
}

type Task struct {
	ID          int64    `json:"id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	DueDate     string   `json:"dueDate,omitempty" format:"date"`
	Priority    Priority `json:"priority,omitempty" enum:"LOW,MEDIUM,HIGH"`
	Assignee    string   `json:"assignee,omitempty"`
	EventID     *int64   `json:"eventId,omitempty"`
	EventTitle  string   `json:"eventTitle,omitempty"`
	Completed   bool     `json:"completed"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

type DashboardStats struct {
	TotalEvents         int64 `json:"totalEvents"`
	UpcomingEvents      int64 `json:"upcomingEvents"`
	PendingTasks        int64 `json:"pendingTasks"`
	CompletedTasks      int64 `json:"completedTasks"`
	TotalEventsTrend    int   `json:"totalEventsTrend"`
	UpcomingEventsTrend int   `json:"upcomingEventsTrend"`
	PendingTasksTrend   int   `json:"pendingTasksTrend"`
	CompletedTasksTrend int   `json:"completedTasksTrend"`
}

type Profile struct {
	Username string `json:"username"`
	FullName string `json:"fullName,omitempty"`
}

// AuthResponse is returned by the login and register endpoints.
type AuthResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	FullName string `json:"fullName,omitempty"`
}

// NormalizeTime trims a wall-clock value to HH:MM so "10:00:00" and "10:00"
// name the same slot.
func NormalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == len("15:04:05") && s[2] == ':' && s[5] == ':' {
		return s[:5]
	}
	return s
}

// Normalize canonicalises the fields that take part in slot comparison.
func (e Event) Normalize() Event {
	e.Date = strings.TrimSpace(e.Date)
	e.Time = NormalizeTime(e.Time)
	e.Location = strings.TrimSpace(e.Location)
	if e.Status == "" {
		e.Status = StatusPending
	}
	return e
}

func (t Task) Normalize() Task {
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	t.DueDate = strings.TrimSpace(t.DueDate)
	return t
}
