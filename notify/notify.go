// Package notify shows desktop notifications for dictation events.
package notify

import (
	"fmt"
	"log/slog"

	"github.com/gen2brain/beeep"
)

const appTitle = "CuteWhisper"

// Notifier posts desktop notifications. A disabled Notifier drops every
// message, so callers never need to branch on the setting.
type Notifier struct {
	enabled bool
	send    func(title, message string) error
	alert   func(title, message string) error
}

// New returns a Notifier. When enabled is false every method is a no-op.
func New(enabled bool) *Notifier {
	return &Notifier{
		enabled: enabled,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		alert: func(title, message string) error {
			return beeep.Alert(title, message, "")
		},
	}
}

// Info shows an informational notification.
func (n *Notifier) Info(format string, args ...any) {
	if n == nil || !n.enabled {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if err := n.send(appTitle, msg); err != nil {
		slog.Debug("notification failed", "message", msg, "error", err)
	}
}

// Error shows an error notification.
func (n *Notifier) Error(format string, args ...any) {
	if n == nil || !n.enabled {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if err := n.alert(appTitle, msg); err != nil {
		slog.Debug("notification failed", "message", msg, "error", err)
	}
}
