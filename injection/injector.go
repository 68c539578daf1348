// Package injection delivers transcribed text into the focused application.
//
// The primary path copies text to the clipboard and fires a synthetic paste
// keystroke; a typing path that never touches the clipboard serves as the
// fallback. When clipboard preservation is enabled the previous content is
// snapshotted before the write and restored after a settle interval, so a
// successful injection is clipboard-neutral for the user.
package injection

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrClipboardWrite marks a failure whose root cause was the clipboard
// refusing the write (as opposed to the paste or typing mechanics).
var ErrClipboardWrite = errors.New("clipboard write failed")

// Outcome describes how (or whether) the text reached the target window.
type Outcome int

const (
	// OutcomeDelivered: pasted via clipboard and the snapshot was restored.
	OutcomeDelivered Outcome = iota
	// OutcomeDeliveredWithoutRestore: pasted, but the prior clipboard
	// content was not put back (restore disabled, unreadable, or failed).
	OutcomeDeliveredWithoutRestore
	// OutcomeFellBackToTyping: clipboard path failed; text was typed.
	OutcomeFellBackToTyping
	// OutcomeFailed: both clipboard and typing failed; the text never
	// reached the target window.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeDeliveredWithoutRestore:
		return "delivered-without-restore"
	case OutcomeFellBackToTyping:
		return "fell-back-to-typing"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Clipboard is the clipboard surface the injector needs.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// Keyboard issues synthetic keystrokes.
type Keyboard interface {
	// Paste fires the platform paste chord (Ctrl+V, Cmd+V).
	Paste() error
	// Type streams text as individual keystrokes, bypassing the clipboard.
	Type(text string) error
}

// Options configures injection behavior. Zero values get defaults.
type Options struct {
	// PreserveClipboard restores the pre-injection clipboard content.
	PreserveClipboard bool
	// SettleDelay is how long the target application gets to consume the
	// clipboard after the paste keystroke, before any restore.
	SettleDelay time.Duration
}

const defaultSettleDelay = 300 * time.Millisecond

// snapshot is the clipboard content captured before the write. Invalid when
// the read failed; restore is then skipped rather than clobbering with "".
type snapshot struct {
	text  string
	valid bool
}

// Injector owns one text delivery at a time. Calls are sequential: the
// controller never has more than one injection in flight.
type Injector struct {
	clip Clipboard
	kb   Keyboard
	opts Options
}

// New creates an Injector.
func New(clip Clipboard, kb Keyboard, opts Options) *Injector {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = defaultSettleDelay
	}
	return &Injector{clip: clip, kb: kb, opts: opts}
}

// Inject delivers text into the focused window and reports the outcome.
// The outcome is always meaningful, including on error; it is never
// silently dropped into a bare error return.
func (in *Injector) Inject(text string) (Outcome, error) {
	snap := in.takeSnapshot()

	if err := in.clip.WriteAll(text); err != nil {
		slog.Warn("clipboard write failed, falling back to typing", "error", err)
		// The typing path never touched the clipboard, nothing to restore.
		if terr := in.kb.Type(text); terr != nil {
			return OutcomeFailed, fmt.Errorf("%w (%v); typing fallback: %w", ErrClipboardWrite, err, terr)
		}
		return OutcomeFellBackToTyping, nil
	}

	pasteErr := in.kb.Paste()
	if pasteErr != nil {
		slog.Warn("paste keystroke failed, falling back to typing", "error", pasteErr)
		// The clipboard already holds the new text; restore still applies.
		if terr := in.kb.Type(text); terr != nil {
			in.restore(snap)
			return OutcomeFailed, fmt.Errorf("paste (%v) and typing fallback: %w", pasteErr, terr)
		}
		in.restore(snap)
		return OutcomeFellBackToTyping, nil
	}

	// Let the target application consume the clipboard before restoring.
	time.Sleep(in.opts.SettleDelay)

	if !in.opts.PreserveClipboard {
		return OutcomeDeliveredWithoutRestore, nil
	}
	if in.restore(snap) {
		return OutcomeDelivered, nil
	}
	return OutcomeDeliveredWithoutRestore, nil
}

// takeSnapshot reads the clipboard best-effort. A failed read is not fatal;
// it only disables the restore step.
func (in *Injector) takeSnapshot() snapshot {
	text, err := in.clip.ReadAll()
	if err != nil {
		slog.Debug("clipboard snapshot unavailable", "error", err)
		return snapshot{}
	}
	return snapshot{text: text, valid: true}
}

// restore puts the snapshot back when preservation is on and the snapshot is
// valid. Failure is logged but never changes the delivery result; the text
// already reached the target.
func (in *Injector) restore(snap snapshot) bool {
	if !in.opts.PreserveClipboard || !snap.valid {
		return false
	}
	if err := in.clip.WriteAll(snap.text); err != nil {
		slog.Warn("clipboard restore failed", "error", err)
		return false
	}
	return true
}
