package conn

import (
	"fmt"
	"io"
	"net"
	"time"
)

// Kind names the physical transport of a connection.
type Kind uint8

const (
	KindConsole Kind = iota
	KindSerial
	KindModem
	KindTelnet
)

func (k Kind) String() string {
	switch k {
	case KindConsole:
		return "console"
	case KindSerial:
		return "serial"
	case KindModem:
		return "modem"
	case KindTelnet:
		return "telnet"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Backend is the transport behind a connection. It is implemented by
// *Console and *Telnet only.
type Backend interface {
	Kind() Kind
	// Address describes the remote end for logs and the who list.
	Address() string
	open() (io.ReadWriteCloser, error)
}

// Console is the local operator terminal.
type Console struct {
	In           io.Reader
	Out          io.Writer
	PollInterval time.Duration
}

func (*Console) Kind() Kind      { return KindConsole }
func (*Console) Address() string { return "console" }

func (c *Console) open() (io.ReadWriteCloser, error) {
	if c.In == nil || c.Out == nil {
		return nil, fmt.Errorf("conn: console requires input and output")
	}
	return newConsoleStream(c.In, c.Out, c.PollInterval), nil
}

// Telnet is a TCP connection accepted by the Telnet listener.
type Telnet struct {
	Conn net.Conn
	// PollInterval bounds how long a read may wait for data.
	PollInterval time.Duration
	// WriteTimeout bounds how long a write may wait for the socket.
	WriteTimeout time.Duration
}

func (*Telnet) Kind() Kind { return KindTelnet }

func (t *Telnet) Address() string {
	if t.Conn == nil {
		return ""
	}
	return t.Conn.RemoteAddr().String()
}

func (t *Telnet) open() (io.ReadWriteCloser, error) {
	if t.Conn == nil {
		return nil, fmt.Errorf("conn: telnet requires a network connection")
	}
	return &telnetStream{
		conn:         t.Conn,
		pollInterval: orDefault(t.PollInterval, DefaultPollInterval),
		writeTimeout: orDefault(t.WriteTimeout, DefaultWriteTimeout),
	}, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
