// Package hotkey turns the global keyboard hook into edge-triggered
// press-and-hold signals for a single configured key combination.
//
// The manager does not know about dictation sessions; it only reports
// "combo went down" and "combo went up". Debouncing of key repeat is
// handled here, duplicate-signal tolerance is the listener consumer's job.
package hotkey

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
)

// Manager listens for one global key combination.
type Manager struct {
	spec       string
	combo      map[uint16]bool
	onPressed  func()
	onReleased func()

	mu      sync.Mutex
	pressed map[uint16]bool
	active  bool
	started bool
	done    chan struct{}
}

// NewManager parses spec ("ctrl+space", "alt+shift+d") and prepares a
// manager that calls onPressed when every key of the combination is held
// and onReleased when any of them is let go. Callbacks run on the hook
// goroutine and must not block; slow work belongs on a worker.
func NewManager(spec string, onPressed, onReleased func()) (*Manager, error) {
	combo, err := parseSpec(spec)
	if err != nil {
		return nil, err
	}
	return &Manager{
		spec:       spec,
		combo:      combo,
		onPressed:  onPressed,
		onReleased: onReleased,
		pressed:    make(map[uint16]bool),
	}, nil
}

// Start installs the global hook and begins dispatching.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("hotkey manager already started")
	}
	m.started = true
	m.done = make(chan struct{})
	m.mu.Unlock()

	events := hook.Start()
	go func() {
		defer close(m.done)
		for ev := range events {
			m.handle(ev)
		}
	}()

	slog.Info("global hotkey listening", "hotkey", m.spec)
	return nil
}

// Stop uninstalls the hook and waits for the dispatch goroutine to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	done := m.done
	m.mu.Unlock()

	hook.End()
	<-done
}

// handle processes one raw hook event. Key repeat arrives as KeyHold and
// must not re-trigger while the combination stays active.
func (m *Manager) handle(ev hook.Event) {
	if _, ok := m.combo[ev.Keycode]; !ok {
		return
	}

	m.mu.Lock()
	var fire func()
	switch ev.Kind {
	case hook.KeyDown, hook.KeyHold:
		m.pressed[ev.Keycode] = true
		if !m.active && m.allPressed() {
			m.active = true
			fire = m.onPressed
		}
	case hook.KeyUp:
		delete(m.pressed, ev.Keycode)
		if m.active {
			m.active = false
			fire = m.onReleased
		}
	}
	m.mu.Unlock()

	if fire != nil {
		fire()
	}
}

func (m *Manager) allPressed() bool {
	for code := range m.combo {
		if !m.pressed[code] {
			return false
		}
	}
	return true
}

// keyAliases maps config spellings onto the hook's keycode table names.
var keyAliases = map[string]string{
	"control": "ctrl",
	"option":  "alt",
	"menu":    "alt",
	"win":     "cmd",
	"windows": "cmd",
	"super":   "cmd",
	"meta":    "cmd",
	"return":  "enter",
	"esc":     "escape",
}

// parseSpec resolves a "+"-joined key combination to hook keycodes.
func parseSpec(spec string) (map[uint16]bool, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, fmt.Errorf("empty hotkey")
	}

	combo := make(map[uint16]bool)
	for _, part := range strings.Split(spec, "+") {
		name := strings.ToLower(strings.TrimSpace(part))
		if alias, ok := keyAliases[name]; ok {
			name = alias
		}
		code, ok := hook.Keycode[name]
		if !ok {
			return nil, fmt.Errorf("unknown key %q in hotkey %q", part, spec)
		}
		combo[code] = true
	}
	return combo, nil
}
