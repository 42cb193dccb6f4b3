// Package buffer implements the fixed-capacity byte buffers backing every
// connection, the Telnet/ANSI input filter that runs as bytes are written into
// them, and the line/character assembly consumed by sessions.
package buffer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

var (
	// ErrOverflow reports a write that would not fit in the remaining capacity.
	// Nothing is stored when a write is rejected up front.
	ErrOverflow = errors.New("buffer: write would overflow")
	// ErrInvalidSize reports a non-positive buffer capacity.
	ErrInvalidSize = errors.New("buffer: size must be positive")
)

// Buffer is a contiguous byte region with a fixed capacity. Bytes [0, Len()) are
// valid. A Buffer is owned by a single connection and is not safe for
// concurrent use.
type Buffer struct {
	data    []byte
	maxSize int

	convertNewlines bool
	handleTelnet    bool
	handleANSI      bool
	stripANSI       bool

	filter  filterState
	replied [256]bool
	handler Handler
	replies *Buffer
	logger  *slog.Logger
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithNewlineConversion stores every '\n' as "\r\n".
func WithNewlineConversion() Option {
	return func(b *Buffer) { b.convertNewlines = true }
}

// WithTelnet enables the Telnet command/subnegotiation filter.
func WithTelnet() Option {
	return func(b *Buffer) { b.handleTelnet = true }
}

// WithANSI enables tracking of ANSI escape sequences in written data.
func WithANSI() Option {
	return func(b *Buffer) { b.handleANSI = true }
}

// WithStripANSI enables ANSI tracking and discards escape sequence bytes
// instead of storing them.
func WithStripANSI() Option {
	return func(b *Buffer) {
		b.handleANSI = true
		b.stripANSI = true
	}
}

// WithHandler sets the receiver of negotiated events.
func WithHandler(h Handler) Option {
	return func(b *Buffer) { b.SetHandler(h) }
}

// WithReplies sets the buffer that receives protocol replies, normally the
// connection's output buffer.
func WithReplies(out *Buffer) Option {
	return func(b *Buffer) { b.replies = out }
}

// WithLogger sets the logger used for protocol diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Buffer) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates an empty buffer holding at most size bytes.
func New(size int, opts ...Option) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	b := &Buffer{
		data:    make([]byte, 0, size),
		maxSize: size,
		handler: NopHandler{},
		logger:  discardLogger,
		filter:  newFilterState(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// SetHandler replaces the event handler. A nil handler discards events.
func (b *Buffer) SetHandler(h Handler) {
	if h == nil {
		h = NopHandler{}
	}
	b.handler = h
}

func (b *Buffer) Clear() {
	b.data = b.data[:0]
}

func (b *Buffer) IsEmpty() bool {
	return len(b.data) == 0
}

func (b *Buffer) IsFull() bool {
	return len(b.data) == b.maxSize
}

// Remaining returns the number of bytes that can still be stored.
func (b *Buffer) Remaining() int {
	return b.maxSize - len(b.data)
}

func (b *Buffer) Len() int {
	return len(b.data)
}

func (b *Buffer) Cap() int {
	return b.maxSize
}

// Bytes returns the buffered bytes. The slice aliases the buffer and is valid
// only until the next mutation.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Write runs p through the configured filters and stores the resulting data.
// A write whose worst-case size exceeds Remaining is rejected with ErrOverflow
// and leaves the buffer untouched. It returns the number of bytes of p consumed.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.worstCase(p) > b.Remaining() {
		return 0, ErrOverflow
	}
	return b.write(p)
}

func (b *Buffer) WriteString(s string) (int, error) {
	return b.Write([]byte(s))
}

func (b *Buffer) worstCase(p []byte) int {
	if !b.convertNewlines {
		return len(p)
	}
	return len(p) + bytes.Count(p, []byte{'\n'})
}

// Read copies up to len(p) bytes from the front of the buffer into p and
// removes them.
func (b *Buffer) Read(p []byte) int {
	n := copy(p, b.data)
	b.Shift(n)
	return n
}

// Shift drops the first n bytes. Shifting by Len() or more clears the buffer.
func (b *Buffer) Shift(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.data) {
		b.Clear()
		return
	}
	remaining := copy(b.data, b.data[n:])
	b.data = b.data[:remaining]
}

// Remove deletes n bytes starting at offset. The span is clamped to the
// buffer; an offset outside the buffer or a non-positive n does nothing.
func (b *Buffer) Remove(offset, n int) {
	if offset < 0 || offset >= len(b.data) || n <= 0 {
		return
	}
	if offset+n > len(b.data) {
		n = len(b.data) - offset
	}
	copy(b.data[offset:], b.data[offset+n:])
	b.data = b.data[:len(b.data)-n]
}

func (b *Buffer) store(c byte) bool {
	if len(b.data) >= b.maxSize {
		return false
	}
	b.data = append(b.data, c)
	return true
}
