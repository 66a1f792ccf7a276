// Package conflict implements the pre-flight booking check run before an
// event is submitted. The server makes the authoritative decision; this check
// only saves a round trip when the clash is already visible locally.
package conflict

import (
	"fmt"
	"time"

	"evsched/internal/domain"
)

// Candidate is the slot an event is about to claim.
type Candidate struct {
	Date     string
	Time     string
	Location string
}

func FromEvent(e domain.Event) Candidate {
	return Candidate{Date: e.Date, Time: e.Time, Location: e.Location}
}

func (c Candidate) complete() bool {
	return c.Date != "" && c.Time != "" && c.Location != ""
}

// Detect returns the first event in existing, in order, that occupies the
// candidate's exact (date, time, location) slot. The event whose ID equals
// excludeID is skipped so an edited event never clashes with itself; zero
// disables the exclusion. An incomplete candidate never conflicts.
func Detect(c Candidate, existing []domain.Event, excludeID int64) (domain.Event, bool) {
	if !c.complete() {
		return domain.Event{}, false
	}
	for _, e := range existing {
		if excludeID != 0 && e.ID == excludeID {
			continue
		}
		if e.Date == c.Date && e.Time == c.Time && e.Location == c.Location {
			return e, true
		}
	}
	return domain.Event{}, false
}

// Message describes a detected clash for the user.
func Message(e domain.Event) string {
	return fmt.Sprintf("%s is already booked for %s at %s. Please choose another venue or timing.",
		e.Location, displayDate(e.Date), e.Time)
}

func displayDate(d string) string {
	t, err := time.Parse(time.DateOnly, d)
	if err != nil {
		return d
	}
	return t.Format("January 2, 2006")
}
