// Package ics renders scheduled events as an iCalendar document.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"evsched/internal/domain"
)

const productID = "-//evsched//event scheduler//EN"

type Options struct {
	// Duration of each timed event; events carry no end time of their own.
	Duration     time.Duration
	Location     *time.Location
	CalendarName string
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Duration <= 0 {
		o.Duration = 2 * time.Hour
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// UID is the stable identifier exported for an event.
func UID(e domain.Event) string {
	return fmt.Sprintf("event-%d@evsched", e.ID)
}

// Export builds a calendar with one VEVENT per dated event. Events without a
// date are skipped and reported in the returned slice.
func Export(events []domain.Event, opts Options) (*ical.Calendar, []domain.Event, error) {
	opts = opts.withDefaults()
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.CalendarName != "" {
		cal.SetXWRCalName(opts.CalendarName)
	}
	stamp := opts.Now().UTC()

	var skipped []domain.Event
	for _, e := range events {
		if e.Date == "" {
			skipped = append(skipped, e)
			continue
		}
		ev := cal.AddEvent(UID(e))
		ev.SetDtStampTime(stamp)
		ev.SetSummary(e.Title)
		if loc := location(e); loc != "" {
			ev.SetLocation(loc)
		}
		if desc := description(e); desc != "" {
			ev.SetDescription(desc)
		}
		ev.SetStatus(status(e.Status))

		if e.Time == "" {
			day, err := time.ParseInLocation("2006-01-02", e.Date, opts.Location)
			if err != nil {
				return nil, nil, fmt.Errorf("event %d: invalid date %q: %w", e.ID, e.Date, err)
			}
			ev.SetAllDayStartAt(day)
			ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
			continue
		}
		start, err := time.ParseInLocation("2006-01-02 15:04", e.Date+" "+domain.NormalizeTime(e.Time), opts.Location)
		if err != nil {
			return nil, nil, fmt.Errorf("event %d: invalid date/time %q %q: %w", e.ID, e.Date, e.Time, err)
		}
		ev.SetStartAt(start)
		ev.SetEndAt(start.Add(opts.Duration))
	}
	return cal, skipped, nil
}

// Write serialises the calendar for events to w.
func Write(w io.Writer, events []domain.Event, opts Options) ([]domain.Event, error) {
	cal, skipped, err := Export(events, opts)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return nil, fmt.Errorf("write calendar: %w", err)
	}
	return skipped, nil
}

func status(s domain.Status) ical.ObjectStatus {
	switch s {
	case domain.StatusConfirmed:
		return ical.ObjectStatusConfirmed
	case domain.StatusCancelled:
		return ical.ObjectStatusCancelled
	default:
		return ical.ObjectStatusTentative
	}
}

func location(e domain.Event) string {
	switch {
	case e.Location != "" && e.Place != "":
		return e.Location + ", " + e.Place
	case e.Location != "":
		return e.Location
	default:
		return e.Place
	}
}

func description(e domain.Event) string {
	var parts []string
	if e.Description != "" {
		parts = append(parts, e.Description)
	}
	if e.FoodPreferences != "" {
		parts = append(parts, "Food: "+e.FoodPreferences)
	}
	if e.Attendees != nil {
		parts = append(parts, fmt.Sprintf("Attendees: %d", *e.Attendees))
	}
	return strings.Join(parts, "\n")
}
