package conflict

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evsched/internal/domain"
)

var booked = []domain.Event{
	{ID: 1, Date: "2024-01-15", Time: "10:00", Location: "Taj Coromandel"},
}

func TestDetectSameSlot(t *testing.T) {
	got, ok := Detect(Candidate{Date: "2024-01-15", Time: "10:00", Location: "Taj Coromandel"}, booked, 0)
	require.True(t, ok)
	assert.Equal(t, int64(1), got.ID)
}

func TestDetectDifferentTime(t *testing.T) {
	_, ok := Detect(Candidate{Date: "2024-01-15", Time: "11:00", Location: "Taj Coromandel"}, booked, 0)
	assert.False(t, ok)
}

func TestDetectIncompleteCandidate(t *testing.T) {
	for _, c := range []Candidate{
		{Time: "10:00", Location: "Taj Coromandel"},
		{Date: "2024-01-15", Location: "Taj Coromandel"},
		{Date: "2024-01-15", Time: "10:00"},
		{},
	} {
		_, ok := Detect(c, booked, 0)
		assert.False(t, ok, "%+v", c)
	}
}

func TestDetectSkipsEditedEvent(t *testing.T) {
	_, ok := Detect(Candidate{Date: "2024-01-15", Time: "10:00", Location: "Taj Coromandel"}, booked, 1)
	assert.False(t, ok)
}

func TestDetectFirstMatchWins(t *testing.T) {
	existing := []domain.Event{
		{ID: 4, Date: "2024-02-01", Time: "18:00", Location: "Hilton Chennai"},
		{ID: 9, Date: "2024-02-01", Time: "18:00", Location: "Hilton Chennai"},
	}
	got, ok := Detect(Candidate{Date: "2024-02-01", Time: "18:00", Location: "Hilton Chennai"}, existing, 0)
	require.True(t, ok)
	assert.Equal(t, int64(4), got.ID)

	got, ok = Detect(Candidate{Date: "2024-02-01", Time: "18:00", Location: "Hilton Chennai"}, existing, 4)
	require.True(t, ok)
	assert.Equal(t, int64(9), got.ID)
}

func TestDetectEmptyExisting(t *testing.T) {
	_, ok := Detect(Candidate{Date: "2024-01-15", Time: "10:00", Location: "Taj Coromandel"}, nil, 0)
	assert.False(t, ok)
}

// Detect reports a clash exactly when some non-excluded event shares the slot.
func TestDetectMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	dates := []string{"2024-01-15", "2024-01-16"}
	times := []string{"10:00", "11:00"}
	venues := []string{"Taj Coromandel", "ITC Grand Chola"}
	for i := 0; i < 200; i++ {
		var existing []domain.Event
		for j := 0; j < r.Intn(5); j++ {
			existing = append(existing, domain.Event{
				ID:       int64(j + 1),
				Date:     dates[r.Intn(2)],
				Time:     times[r.Intn(2)],
				Location: venues[r.Intn(2)],
			})
		}
		c := Candidate{Date: dates[r.Intn(2)], Time: times[r.Intn(2)], Location: venues[r.Intn(2)]}
		exclude := int64(r.Intn(4))

		want := false
		for _, e := range existing {
			if e.ID != exclude && e.Date == c.Date && e.Time == c.Time && e.Location == c.Location {
				want = true
				break
			}
		}
		got, ok := Detect(c, existing, exclude)
		require.Equal(t, want, ok, fmt.Sprintf("case %d", i))
		if ok {
			assert.NotEqual(t, exclude, got.ID)
			assert.Equal(t, c, FromEvent(got))
		}
	}
}

func TestMessage(t *testing.T) {
	msg := Message(booked[0])
	assert.Equal(t, "Taj Coromandel is already booked for January 15, 2024 at 10:00. Please choose another venue or timing.", msg)
}
