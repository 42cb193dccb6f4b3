// Package conn binds a transport to the buffers of one BBS connection: the
// filtered input, the output buffer and the write path that strips ANSI for
// terminals that cannot display it.
package conn

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ledzpl/vbbs/internal/buffer"
	"github.com/ledzpl/vbbs/internal/logging"
	"github.com/ledzpl/vbbs/internal/telnet"
	"github.com/ledzpl/vbbs/internal/terminal"
)

// ErrDisconnected is returned by Fill on a connection that has been
// disconnected.
var ErrDisconnected = errors.New("conn: disconnected")

// Status is the lifecycle state of a connection. It only moves forward:
// Connected, optionally Authenticated, then Disconnected.
type Status uint8

const (
	Disconnected Status = iota
	Connected
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Connected:
		return "connected"
	case Authenticated:
		return "authenticated"
	default:
		return "disconnected"
	}
}

const (
	DefaultInputSize  = 2048
	DefaultOutputSize = 8192
)

// Options sizes the buffers of a connection.
type Options struct {
	InputSize  int
	OutputSize int
	Logger     *slog.Logger
}

// Conn is one user connection. It is owned by a single goroutine.
type Conn struct {
	// Terminal is updated by negotiation and the identify exchange.
	Terminal terminal.Terminal
	// Speed is the announced line speed in bits per second, 0 if unknown.
	Speed int
	// Location is free text shown in the who list.
	Location string

	id      int
	backend Backend
	stream  io.ReadWriteCloser
	status  Status
	closed  bool

	input    *buffer.Input
	output   *buffer.Buffer
	stripper terminal.Stripper

	visible   []byte
	positions []int

	logger *slog.Logger
}

// New opens the backend's stream and allocates the connection buffers.
func New(id int, backend Backend, opts Options) (*Conn, error) {
	if backend == nil {
		return nil, errors.New("conn: backend required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.With("conn", id, "kind", backend.Kind().String())

	if opts.InputSize <= 0 {
		opts.InputSize = DefaultInputSize
	}
	if opts.OutputSize <= 0 {
		opts.OutputSize = DefaultOutputSize
	}

	output, err := buffer.New(opts.OutputSize, buffer.WithNewlineConversion(), buffer.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("conn: output buffer: %w", err)
	}
	input, err := buffer.NewInput(opts.InputSize, buffer.WithReplies(output), buffer.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("conn: input buffer: %w", err)
	}
	stream, err := backend.open()
	if err != nil {
		return nil, err
	}

	return &Conn{
		Terminal:  terminal.Default(),
		Location:  backend.Address(),
		id:        id,
		backend:   backend,
		stream:    stream,
		status:    Connected,
		input:     input,
		output:    output,
		visible:   make([]byte, 0, opts.OutputSize),
		positions: make([]int, 0, opts.OutputSize),
		logger:    logger,
	}, nil
}

func (c *Conn) ID() int              { return c.id }
func (c *Conn) Kind() Kind           { return c.backend.Kind() }
func (c *Conn) Backend() Backend     { return c.backend }
func (c *Conn) Address() string      { return c.backend.Address() }
func (c *Conn) Status() Status       { return c.status }
func (c *Conn) Logger() *slog.Logger { return c.logger }

// Input returns the filtered input of the connection.
func (c *Conn) Input() *buffer.Input {
	return c.input
}

// Output returns the raw output buffer. Bytes written to it bypass charset
// encoding, which protocol sequences need.
func (c *Conn) Output() *buffer.Buffer {
	return c.output
}

// SetHandler installs the receiver of negotiation and echo events.
func (c *Conn) SetHandler(h buffer.Handler) {
	c.input.SetHandler(h)
}

func (c *Conn) IsConnected() bool {
	return c.status != Disconnected
}

// SetAuthenticated marks a connected session as logged in.
func (c *Conn) SetAuthenticated() {
	if c.status == Connected {
		c.status = Authenticated
	}
}

// Disconnect ends the connection. Only a final flush can follow.
func (c *Conn) Disconnect() {
	if c.status == Disconnected {
		return
	}
	c.logger.Info("conn: disconnected", "address", c.Address())
	c.status = Disconnected
}

// Printf formats text into the output buffer. It does nothing on a
// disconnected connection and returns buffer.ErrOverflow when the text does
// not fit, in which case nothing is queued.
func (c *Conn) Printf(format string, args ...any) error {
	if !c.IsConnected() {
		return nil
	}
	_, err := c.Write([]byte(fmt.Sprintf(format, args...)))
	return err
}

// Write queues p for output, encoding it through the terminal charset when
// one is set. On Telnet connections 0xFF data bytes are sent as IAC IAC. Writes to a disconnected connection are discarded.
func (c *Conn) Write(p []byte) (int, error) {
	if !c.IsConnected() {
		return len(p), nil
	}
	data := p
	if c.Terminal.Charset != nil {
		encoded, err := c.Terminal.Charset.Bytes(p)
		if err != nil {
			return 0, fmt.Errorf("conn: encode output: %w", err)
		}
		data = encoded
	}
	if c.Kind() == KindTelnet {
		data = escapeIAC(data)
	}
	if _, err := c.output.Write(data); err != nil {
		c.logger.Debug("conn: output dropped", "bytes", len(data), "err", err)
		return 0, err
	}
	return len(p), nil
}

// escapeIAC doubles every 0xFF data byte so the peer does not read it as a
// Telnet command.
func escapeIAC(p []byte) []byte {
	if bytes.IndexByte(p, telnet.IAC) < 0 {
		return p
	}
	return bytes.ReplaceAll(p, []byte{telnet.IAC}, []byte{telnet.IAC, telnet.IAC})
}

// Fill reads whatever the stream has ready into the input buffer. A read
// that would block returns (0, nil); any other failure disconnects.
func (c *Conn) Fill() (int, error) {
	if !c.IsConnected() {
		return 0, ErrDisconnected
	}
	n, err := c.input.Fill(c.stream)
	if err != nil {
		return n, c.streamError("read", err)
	}
	return n, nil
}

// Flush writes as much queued output as the stream accepts without blocking
// and returns the number of bytes written to the stream. Terminals without
// ANSI support receive the output with escape sequences removed.
func (c *Conn) Flush() (int, error) {
	if c.closed || c.output.IsEmpty() {
		return 0, nil
	}
	if c.Terminal.ANSI {
		return c.flushRaw()
	}
	return c.flushStripped()
}

func (c *Conn) flushRaw() (int, error) {
	total := 0
	for !c.output.IsEmpty() {
		n, err := c.stream.Write(c.output.Bytes())
		if n > 0 {
			c.output.Shift(n)
			total += n
		}
		if err != nil {
			return total, c.streamError("write", err)
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

// flushStripped writes only visible bytes. After a short write the output
// buffer is shifted just past the last visible byte the stream accepted, so
// the rest, including any escape sequence in progress, is retried in order.
func (c *Conn) flushStripped() (int, error) {
	data := c.output.Bytes()
	c.visible = c.visible[:0]
	c.positions = c.positions[:0]

	st := c.stripper
	for i, b := range data {
		if st.Keep(b) {
			c.visible = append(c.visible, b)
			c.positions = append(c.positions, i)
		}
	}
	if len(c.visible) == 0 {
		c.stripper = st
		c.output.Clear()
		return 0, nil
	}

	n, err := c.stream.Write(c.visible)
	switch {
	case n >= len(c.visible):
		c.stripper = st
		c.output.Clear()
	case n > 0:
		// A visible byte is only seen outside a sequence.
		c.stripper.Reset()
		c.output.Shift(c.positions[n-1] + 1)
	default:
		c.stripper.Reset()
		c.output.Shift(c.positions[0])
	}
	if err != nil {
		return n, c.streamError("write", err)
	}
	return n, nil
}

// Close flushes what it can and closes the stream.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.Disconnect()
	if _, err := c.Flush(); err != nil {
		c.logger.Debug("conn: final flush failed", "err", err)
	}
	c.closed = true
	if err := c.stream.Close(); err != nil {
		return fmt.Errorf("conn: close: %w", err)
	}
	return nil
}

func (c *Conn) streamError(op string, err error) error {
	if IsTransient(err) {
		return nil
	}
	if errors.Is(err, io.EOF) {
		c.logger.Debug("conn: end of stream", "op", op)
	} else {
		c.logger.Warn("conn: stream error", "op", op, "err", err)
	}
	c.Disconnect()
	return fmt.Errorf("conn: %s: %w", op, err)
}
