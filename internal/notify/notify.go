package notify

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Notification kinds shown by the UI.
const (
	KindAdded   = "added"
	KindUpdated = "updated"
)

// DefaultDismissAfter is how long a notification stays visible.
const DefaultDismissAfter = 3 * time.Second

// Notification is a transient UI banner.
type Notification struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// Notifier holds at most one current notification and dismisses it
// automatically after a fixed delay. Showing a new notification replaces the
// old one and restarts the dismiss timer.
type Notifier struct {
	dismissAfter time.Duration

	mu      sync.Mutex
	current *Notification
	timer   *time.Timer
}

func New(dismissAfter time.Duration) *Notifier {
	if dismissAfter <= 0 {
		dismissAfter = DefaultDismissAfter
	}
	return &Notifier{dismissAfter: dismissAfter}
}

// Show replaces the current notification and restarts the dismiss timer.
func (n *Notifier) Show(message, kind string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = &Notification{Message: message, Kind: kind}
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.dismissAfter, n.dismiss)
}

// Current returns the visible notification, or nil when none is showing.
func (n *Notifier) Current() *Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return nil
	}
	c := *n.current
	return &c
}

func (n *Notifier) dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = nil
	n.timer = nil
}

// FieldsCaptured formats the capture banner for a set of field names.
func FieldsCaptured(fields []string) string {
	upper := make([]string, len(fields))
	for i, f := range fields {
		upper[i] = strings.ToUpper(f)
	}
	return fmt.Sprintf("%s captured from call analysis", strings.Join(upper, ", "))
}
