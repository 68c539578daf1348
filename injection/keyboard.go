package injection

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"
	"unicode"

	"github.com/micmonay/keybd_event"
)

// typeInterval paces keystrokes in the typing fallback so slow applications
// keep up with the synthetic input stream.
const typeInterval = 10 * time.Millisecond

// SystemKeyboard issues real OS keystrokes via keybd_event.
type SystemKeyboard struct{}

// NewSystemKeyboard returns the real keyboard backend.
func NewSystemKeyboard() *SystemKeyboard { return &SystemKeyboard{} }

// Paste fires the platform paste chord: Cmd+V on macOS, Ctrl+V elsewhere.
func (k *SystemKeyboard) Paste() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return fmt.Errorf("init key bonding: %w", err)
	}
	kb.SetKeys(keybd_event.VK_V)
	if runtime.GOOS == "darwin" {
		kb.HasSuper(true)
	} else {
		kb.HasCTRL(true)
	}
	if err := kb.Launching(); err != nil {
		return fmt.Errorf("paste keystroke: %w", err)
	}
	return nil
}

// Type streams text as individual keystrokes. Only the portable keybd_event
// key set is mapped (letters, digits, space, tab, newline); other runes are
// skipped. The whole call fails when nothing at all could be typed, so the
// injector can surface the text to the caller instead.
func (k *SystemKeyboard) Type(text string) error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return fmt.Errorf("init key bonding: %w", err)
	}

	typed, skipped := 0, 0
	for _, r := range text {
		key, shift, ok := keyForRune(r)
		if !ok {
			skipped++
			continue
		}
		kb.Clear()
		kb.SetKeys(key)
		kb.HasSHIFT(shift)
		if err := kb.Launching(); err != nil {
			return fmt.Errorf("type keystroke: %w", err)
		}
		typed++
		time.Sleep(typeInterval)
	}

	if skipped > 0 {
		slog.Warn("typing fallback skipped unmappable characters", "skipped", skipped, "typed", typed)
	}
	if typed == 0 && len(text) > 0 {
		return fmt.Errorf("no typeable characters in %d-rune text", skipped)
	}
	return nil
}

// keyForRune maps a rune to a keybd_event virtual key plus a shift flag.
func keyForRune(r rune) (key int, shift bool, ok bool) {
	if unicode.IsUpper(r) {
		key, _, ok = keyForRune(unicode.ToLower(r))
		return key, true, ok
	}
	switch {
	case r >= 'a' && r <= 'z':
		return letterKeys[r-'a'], false, true
	case r >= '0' && r <= '9':
		return digitKeys[r-'0'], false, true
	}
	switch r {
	case ' ':
		return keybd_event.VK_SPACE, false, true
	case '\t':
		return keybd_event.VK_TAB, false, true
	case '\n':
		return keybd_event.VK_ENTER, false, true
	}
	return 0, false, false
}

var letterKeys = [26]int{
	keybd_event.VK_A, keybd_event.VK_B, keybd_event.VK_C, keybd_event.VK_D,
	keybd_event.VK_E, keybd_event.VK_F, keybd_event.VK_G, keybd_event.VK_H,
	keybd_event.VK_I, keybd_event.VK_J, keybd_event.VK_K, keybd_event.VK_L,
	keybd_event.VK_M, keybd_event.VK_N, keybd_event.VK_O, keybd_event.VK_P,
	keybd_event.VK_Q, keybd_event.VK_R, keybd_event.VK_S, keybd_event.VK_T,
	keybd_event.VK_U, keybd_event.VK_V, keybd_event.VK_W, keybd_event.VK_X,
	keybd_event.VK_Y, keybd_event.VK_Z,
}

var digitKeys = [10]int{
	keybd_event.VK_0, keybd_event.VK_1, keybd_event.VK_2, keybd_event.VK_3,
	keybd_event.VK_4, keybd_event.VK_5, keybd_event.VK_6, keybd_event.VK_7,
	keybd_event.VK_8, keybd_event.VK_9,
}
