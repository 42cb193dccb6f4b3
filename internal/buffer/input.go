package buffer

import (
	"io"
	"log/slog"
)

// Mode selects how Input assembles ready units.
type Mode uint8

const (
	// LineMode delivers CR-terminated lines.
	LineMode Mode = iota
	// CharacterMode delivers one byte at a time.
	CharacterMode
)

func (m Mode) String() string {
	if m == CharacterMode {
		return "character"
	}
	return "line"
}

const (
	// MaxLineLength is the number of visible characters kept from one line.
	MaxLineLength = 255

	fillChunk = 1024

	backspace = 0x08
	del       = 0x7f
)

// Input wraps a Telnet and ANSI aware Buffer and exposes the next ready unit,
// a line or a single character, to the session layer.
type Input struct {
	buf    *Buffer
	mode   Mode
	next   []byte
	ready  bool
	chunk  [fillChunk]byte
	logger *slog.Logger
}

// NewInput creates an Input over a buffer of the given size. Telnet and ANSI
// handling are always enabled; opts may add a handler, reply buffer or logger.
func NewInput(size int, opts ...Option) (*Input, error) {
	opts = append([]Option{WithTelnet(), WithANSI()}, opts...)
	buf, err := New(size, opts...)
	if err != nil {
		return nil, err
	}
	return &Input{
		buf:    buf,
		mode:   LineMode,
		next:   make([]byte, 0, MaxLineLength+1),
		logger: buf.logger,
	}, nil
}

// Buffer returns the underlying buffer.
func (in *Input) Buffer() *Buffer {
	return in.buf
}

// SetHandler installs the receiver of negotiated events.
func (in *Input) SetHandler(h Handler) {
	in.buf.SetHandler(h)
}

// Fill reads at most min(Remaining, 1024) bytes from r and writes them through
// the filter. A full buffer reads nothing.
func (in *Input) Fill(r io.Reader) (int, error) {
	n := min(in.buf.Remaining(), fillChunk)
	if n <= 0 {
		return 0, nil
	}
	read, err := r.Read(in.chunk[:n])
	if read > 0 {
		if _, werr := in.buf.Write(in.chunk[:read]); werr != nil {
			in.logger.Warn("input: write to buffer failed", "err", werr)
		}
	}
	return read, err
}

func (in *Input) Mode() Mode {
	return in.mode
}

// SetMode switches the input mode, discarding the ready unit and any
// buffered input.
func (in *Input) SetMode(mode Mode) {
	in.mode = mode
	in.Clear()
	in.buf.Clear()
}

// Ready reports whether a unit is available, assembling one from buffered
// bytes if needed. It keeps returning true until Clear is called.
func (in *Input) Ready() bool {
	if in.ready {
		return true
	}
	switch in.mode {
	case LineMode:
		in.ready = in.findLine()
	case CharacterMode:
		in.ready = in.findCharacter()
	}
	return in.ready
}

// Next returns the ready unit, or "" when none is ready.
func (in *Input) Next() string {
	if !in.ready {
		return ""
	}
	return string(in.next)
}

// Clear consumes the ready unit.
func (in *Input) Clear() {
	in.next = in.next[:0]
	in.ready = false
}

// findLine looks for a CR. LF and NUL are dropped wherever they appear, as
// are other non-printable bytes and every escape sequence except a device
// attributes response, whose "[?...c" body is kept for CheckIdentifyResponse.
// BS and DEL erase the preceding byte.
func (in *Input) findLine() bool {
	b := in.buf
	i := 0
	for i < len(b.data) {
		c := b.data[i]
		switch {
		case c == '\r':
			line := b.data[:i]
			if len(line) > MaxLineLength {
				line = line[:MaxLineLength]
			}
			in.next = append(in.next[:0], line...)
			b.Shift(i + 1)
			return true
		case c == backspace || c == del:
			if i > 0 {
				b.Remove(i-1, 2)
				i--
			} else {
				b.Remove(i, 1)
			}
		case c == esc:
			n, complete := escapeLength(b.data[i:])
			if !complete {
				return in.stalled()
			}
			if isDeviceAttributes(b.data[i : i+n]) {
				// Keep "[?...c" and drop the ESC like any other control byte.
				b.Remove(i, 1)
				i += n - 1
			} else {
				b.Remove(i, n)
			}
		case c < 0x20 || c > 0x7e:
			b.Remove(i, 1)
		default:
			i++
		}
	}
	return in.stalled()
}

// stalled handles the no-terminator case. A full buffer can never complete a
// line, so its content is discarded.
func (in *Input) stalled() bool {
	if in.buf.IsFull() {
		in.logger.Debug("input: discarding overlong line", "bytes", in.buf.Len())
		in.buf.Clear()
	}
	in.next = in.next[:0]
	return false
}

// findCharacter returns the first byte that is not part of an escape
// sequence. Cursor keys and other sequences are discarded whole, and a
// sequence still arriving holds back the bytes after it.
func (in *Input) findCharacter() bool {
	b := in.buf
	for !b.IsEmpty() && b.data[0] == esc {
		n, complete := escapeLength(b.data)
		if !complete {
			return in.stalled()
		}
		b.Shift(n)
	}
	if b.IsEmpty() {
		in.next = in.next[:0]
		return false
	}
	in.next = append(in.next[:0], b.data[0])
	b.Shift(1)
	return true
}

// escapeLength measures the escape sequence at the start of p, which begins
// with ESC. complete is false when more bytes are needed.
func escapeLength(p []byte) (n int, complete bool) {
	if len(p) < 2 {
		return 0, false
	}
	if p[1] < 0x20 || p[1] > 0x7e {
		// Lone ESC; leave the following byte alone.
		return 1, true
	}
	if p[1] != '[' {
		return 2, true
	}
	for j := 2; j < len(p); j++ {
		switch c := p[j]; {
		case c >= 0x40 && c <= 0x7e:
			return j + 1, true
		case c < 0x20 || c > 0x7e:
			// Malformed; stop before the control byte.
			return j, true
		}
	}
	return 0, false
}

func isDeviceAttributes(seq []byte) bool {
	return len(seq) >= 4 && seq[1] == '[' && seq[2] == '?' && seq[len(seq)-1] == 'c'
}
