package repl

import (
	"io"
	"unicode/utf8"
)

// Key classifies a key press
type Key int

const (
	// KeyNone is input the REPL ignores, such as escape sequences
	KeyNone Key = iota
	// KeyRune is a printable character
	KeyRune
	KeyEscape
	KeyCtrlC
	KeyCtrlD
	KeyEnter
)

// KeyEvent is a single key press
type KeyEvent struct {
	Key  Key
	Rune rune // Set for KeyRune
}

// KeyReader blocks until the next key press
type KeyReader interface {
	ReadKey() (KeyEvent, error)
}

// maxKeyBytes covers the longest escape sequences terminals send for one key
const maxKeyBytes = 8

// StreamKeyReader decodes key presses from a raw-mode byte stream.
// Keys that arrive in the same read are returned one by one.
type StreamKeyReader struct {
	r       io.Reader
	buf     [maxKeyBytes]byte
	pending []byte // Undecoded rest of the last read, backed by buf
}

// NewStreamKeyReader creates a new StreamKeyReader
func NewStreamKeyReader(r io.Reader) *StreamKeyReader {
	return &StreamKeyReader{r: r}
}

// ReadKey returns the next key, reading from the stream only when no
// input is left over from the previous read.
func (k *StreamKeyReader) ReadKey() (KeyEvent, error) {
	if len(k.pending) == 0 {
		n, err := k.r.Read(k.buf[:])
		if n == 0 {
			if err == nil {
				return KeyEvent{}, nil
			}
			return KeyEvent{}, err
		}
		k.pending = k.buf[:n]
	}

	ev, size := decodeKey(k.pending)
	k.pending = k.pending[size:]
	return ev, nil
}

// decodeKey decodes the key b starts with and reports how many bytes it used.
// A lone ESC is the Escape key; escape sequences decode to KeyNone as a whole.
func decodeKey(b []byte) (KeyEvent, int) {
	switch b[0] {
	case 0x1b:
		if len(b) == 1 || b[1] == 0x1b {
			return KeyEvent{Key: KeyEscape}, 1
		}
		return KeyEvent{}, escapeLen(b)
	case 0x03:
		return KeyEvent{Key: KeyCtrlC}, 1
	case 0x04:
		return KeyEvent{Key: KeyCtrlD}, 1
	case '\r', '\n':
		return KeyEvent{Key: KeyEnter}, 1
	}

	r, size := utf8.DecodeRune(b)
	if r == utf8.RuneError || r < 0x20 || r == 0x7f {
		return KeyEvent{}, size
	}
	return KeyEvent{Key: KeyRune, Rune: r}, size
}

// escapeLen returns the length of the escape sequence at the start of b.
// CSI sequences (ESC [) end at a final byte in 0x40..0x7e, SS3 sequences
// (ESC O) carry one more byte and anything else is ESC plus one byte.
// A sequence cut off by the end of b uses all of b.
func escapeLen(b []byte) int {
	switch b[1] {
	case '[':
		for i := 2; i < len(b); i++ {
			if b[i] >= 0x40 && b[i] <= 0x7e {
				return i + 1
			}
		}
		return len(b)
	case 'O':
		return min(3, len(b))
	default:
		return 2
	}
}
