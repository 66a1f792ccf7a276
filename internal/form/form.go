// Package form tracks whether the event editor is closed, creating a new
// event or editing an existing one. Network results never close the editor
// except a successful save.
package form

import (
	"evsched/internal/booking"
	"evsched/internal/domain"
)

type State int

const (
	Closed State = iota
	CreatingNew
	Editing
)

func (s State) String() string {
	switch s {
	case CreatingNew:
		return "creating"
	case Editing:
		return "editing"
	default:
		return "closed"
	}
}

type Controller struct {
	state  State
	target domain.Event
}

func (c *Controller) State() State { return c.state }

func (c *Controller) Open() bool { return c.state != Closed }

func (c *Controller) OpenCreate() {
	c.state = CreatingNew
	c.target = domain.Event{}
}

func (c *Controller) OpenEdit(e domain.Event) {
	c.state = Editing
	c.target = e
}

// Target returns the event being edited; ok is false unless editing.
func (c *Controller) Target() (domain.Event, bool) {
	if c.state != Editing {
		return domain.Event{}, false
	}
	return c.target, true
}

// Editing returns a pointer suitable for booking.Orchestrator.Save, nil
// unless editing.
func (c *Controller) Editing() *domain.Event {
	if c.state != Editing {
		return nil
	}
	t := c.target
	return &t
}

func (c *Controller) Cancel() {
	c.state = Closed
	c.target = domain.Event{}
}

// Apply closes the form on success and leaves it untouched otherwise.
func (c *Controller) Apply(out booking.Outcome) {
	if out.Kind == booking.Success {
		c.Cancel()
	}
}
