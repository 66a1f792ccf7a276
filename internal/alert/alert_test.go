package alert

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAlertReplacesVisible(t *testing.T) {
	c := New()
	c.ShowError("first", "")
	c.ShowInfo("second", "")
	n, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, TypeInfo, n.Type)
	assert.Equal(t, "Information", n.Title)
	assert.Equal(t, "second", n.Message)
}

func TestPlainAlertClosesOnDismiss(t *testing.T) {
	c := New()
	c.ShowSuccess("Event saved", "")
	require.NoError(t, c.Dismiss())
	assert.False(t, c.Visible())
	assert.ErrorIs(t, c.Dismiss(), ErrNoAlert)
}

func TestConfirmAlertNeedsExplicitAnswer(t *testing.T) {
	c := New()
	ran := 0
	c.ShowConfirm("Delete this task?", func() error { ran++; return nil }, "")

	assert.ErrorIs(t, c.Dismiss(), ErrConfirmationRequired)
	assert.True(t, c.Visible())

	n, _ := c.Current()
	assert.Equal(t, "Yes", n.ConfirmText)
	assert.Equal(t, "No", n.CancelText)
	assert.Equal(t, "Confirm Action", n.Title)

	require.NoError(t, c.Confirm())
	assert.Equal(t, 1, ran)
	assert.False(t, c.Visible())
}

func TestCancelSkipsAction(t *testing.T) {
	c := New()
	ran := false
	c.ShowConfirm("Delete?", func() error { ran = true; return nil }, "Delete Event")
	require.NoError(t, c.Cancel())
	assert.False(t, ran)
	assert.False(t, c.Visible())
}

func TestConfirmReturnsActionError(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	c.ShowConfirm("Delete?", func() error { return boom }, "")
	assert.ErrorIs(t, c.Confirm(), boom)
	assert.False(t, c.Visible())
}
