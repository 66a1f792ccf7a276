// Package calendar slices event lists into day, week and month views.
package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"evsched/internal/domain"
)

const dateLayout = "2006-01-02"

type Period string

const (
	Day   Period = "day"
	Week  Period = "week"
	Month Period = "month"
	All   Period = "all"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return All, nil
	case Day, Week, Month, All:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q (want day, week, month or all)", s)
	}
}

// Range returns the half-open interval [start, end) of the period containing
// ref. For All both bounds are zero.
func Range(p Period, ref time.Time, weekStart time.Weekday) (time.Time, time.Time) {
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	switch p {
	case Day:
		return day, day.AddDate(0, 0, 1)
	case Week:
		offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7)
	case Month:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return start, start.AddDate(0, 1, 0)
	default:
		return time.Time{}, time.Time{}
	}
}

// Filter keeps the events dated within the period around ref and sorts them
// by date then time. Events without a parseable date are dropped unless p is
// All, where they sort last.
func Filter(events []domain.Event, p Period, ref time.Time, weekStart time.Weekday) []domain.Event {
	start, end := Range(p, ref, weekStart)
	out := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if p == All {
			out = append(out, e)
			continue
		}
		d, err := time.ParseInLocation(dateLayout, e.Date, ref.Location())
		if err != nil {
			continue
		}
		if !d.Before(start) && d.Before(end) {
			out = append(out, e)
		}
	}
	Sort(out)
	return out
}

// Sort orders events by date, time and id; undated events go last.
func Sort(events []domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if (a.Date == "") != (b.Date == "") {
			return b.Date == ""
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.ID < b.ID
	})
}

// DayGroup is the set of events on one date.
type DayGroup struct {
	Date   string         `json:"date"`
	Events []domain.Event `json:"events"`
}

// GroupByDay buckets sorted events by date, preserving order.
func GroupByDay(events []domain.Event) []DayGroup {
	var groups []DayGroup
	for _, e := range events {
		if n := len(groups); n > 0 && groups[n-1].Date == e.Date {
			groups[n-1].Events = append(groups[n-1].Events, e)
			continue
		}
		groups = append(groups, DayGroup{Date: e.Date, Events: []domain.Event{e}})
	}
	return groups
}

// ParseWeekday accepts full or three-letter English day names.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return time.Monday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
