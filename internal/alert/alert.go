package alert

import (
	"errors"
	"sync"
)

type Type string

const (
	TypeError   Type = "error"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

var ErrConfirmationRequired = errors.New("alert requires confirmation or cancellation")
var ErrNoAlert = errors.New("no alert visible")

// Notification is the content of the single alert slot.
type Notification struct {
	Type        Type
	Title       string
	Message     string
	Details     []string
	ConfirmText string
	CancelText  string
	OnConfirm   func() error
}

func (n Notification) NeedsConfirmation() bool { return n.OnConfirm != nil }

// Coordinator holds at most one visible notification. Showing a new one
// replaces whatever is visible.
type Coordinator struct {
	mu      sync.Mutex
	current *Notification
}

func New() *Coordinator { return &Coordinator{} }

func (c *Coordinator) Show(n Notification) {
	if n.Type == "" {
		n.Type = TypeError
	}
	if n.ConfirmText == "" {
		n.ConfirmText = "OK"
	}
	if n.CancelText == "" {
		n.CancelText = "Cancel"
	}
	c.mu.Lock()
	c.current = &n
	c.mu.Unlock()
}

func (c *Coordinator) ShowError(message, title string) {
	c.Show(Notification{Type: TypeError, Title: orDefault(title, "Error"), Message: message})
}

func (c *Coordinator) ShowSuccess(message, title string) {
	c.Show(Notification{Type: TypeSuccess, Title: orDefault(title, "Success"), Message: message})
}

func (c *Coordinator) ShowWarning(message, title string) {
	c.Show(Notification{Type: TypeWarning, Title: orDefault(title, "Warning"), Message: message})
}

func (c *Coordinator) ShowInfo(message, title string) {
	c.Show(Notification{Type: TypeInfo, Title: orDefault(title, "Information"), Message: message})
}

// ShowConfirm opens a warning that closes only through Confirm or Cancel.
func (c *Coordinator) ShowConfirm(message string, onConfirm func() error, title string) {
	if onConfirm == nil {
		onConfirm = func() error { return nil }
	}
	c.Show(Notification{
		Type:        TypeWarning,
		Title:       orDefault(title, "Confirm Action"),
		Message:     message,
		ConfirmText: "Yes",
		CancelText:  "No",
		OnConfirm:   onConfirm,
	})
}

// Current returns the visible notification.
func (c *Coordinator) Current() (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Notification{}, false
	}
	return *c.current, true
}

func (c *Coordinator) Visible() bool {
	_, ok := c.Current()
	return ok
}

// Dismiss closes a plain notification.
func (c *Coordinator) Dismiss() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ErrNoAlert
	}
	if c.current.NeedsConfirmation() {
		return ErrConfirmationRequired
	}
	c.current = nil
	return nil
}

// Confirm closes a confirmation alert and runs its action. Plain alerts are
// simply closed.
func (c *Coordinator) Confirm() error {
	c.mu.Lock()
	n := c.current
	c.current = nil
	c.mu.Unlock()
	if n == nil {
		return ErrNoAlert
	}
	if n.OnConfirm != nil {
		return n.OnConfirm()
	}
	return nil
}

// Cancel closes the visible notification without running its action.
func (c *Coordinator) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ErrNoAlert
	}
	c.current = nil
	return nil
}

// Reset drops any visible notification.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
