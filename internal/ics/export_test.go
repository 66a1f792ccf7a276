package ics_test

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evsched/internal/domain"
	"evsched/internal/ics"
)

func TestExportOneVEventPerDatedEvent(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	events := []domain.Event{
		{ID: 1, Title: "Reception", Date: "2024-01-15", Time: "10:00", Location: "ITC Grand Chola", Place: "Chennai", Status: domain.StatusConfirmed},
		{ID: 2, Title: "Mehendi", Date: "2024-01-14", Status: domain.StatusPending},
		{ID: 3, Title: "Draft"},
	}
	var sb strings.Builder
	skipped, err := ics.Write(&sb, events, ics.Options{
		Duration: 3 * time.Hour,
		Location: ist,
		Now:      func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.EqualValues(t, 3, skipped[0].ID)

	cal, err := ical.ParseCalendar(strings.NewReader(sb.String()))
	require.NoError(t, err)
	vevents := cal.Events()
	require.Len(t, vevents, 2)

	first := vevents[0]
	assert.Equal(t, "event-1@evsched", first.Id())
	assert.Equal(t, "Reception", first.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "CONFIRMED", first.GetProperty(ical.ComponentPropertyStatus).Value)
	start, err := first.GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2024, 1, 15, 10, 0, 0, 0, ist)), "start %s", start)
	end, err := first.GetEndAt()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Hour, end.Sub(start))

	assert.Equal(t, "TENTATIVE", vevents[1].GetProperty(ical.ComponentPropertyStatus).Value)
}

func TestExportRejectsBadTime(t *testing.T) {
	_, _, err := ics.Export([]domain.Event{{ID: 9, Title: "x", Date: "2024-01-15", Time: "late"}}, ics.Options{})
	assert.Error(t, err)
}
