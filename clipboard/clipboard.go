// Package clipboard wraps system clipboard access with bounded retries.
// OS clipboard locks are often transient (another process briefly holding
// the handle), so writes retry a few times with a short backoff before
// giving up.
package clipboard

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 100 * time.Millisecond
)

// Board reads and writes the system clipboard.
type Board struct {
	attempts int
	backoff  time.Duration

	// seams for tests
	read  func() (string, error)
	write func(string) error
}

// New returns a Board talking to the real system clipboard.
func New() *Board {
	return &Board{
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		read:     clipboard.ReadAll,
		write:    clipboard.WriteAll,
	}
}

// ReadAll returns the clipboard's current text content.
func (b *Board) ReadAll() (string, error) {
	text, err := b.read()
	if err != nil {
		return "", fmt.Errorf("read clipboard: %w", err)
	}
	return text, nil
}

// WriteAll replaces the clipboard content, retrying transient failures.
func (b *Board) WriteAll(text string) error {
	var err error
	for attempt := 0; attempt < b.attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(b.backoff)
		}
		if err = b.write(text); err == nil {
			return nil
		}
	}
	return fmt.Errorf("write clipboard after %d attempts: %w", b.attempts, err)
}
