package conn

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"time"
)

const (
	DefaultPollInterval = 50 * time.Millisecond
	DefaultWriteTimeout = 50 * time.Millisecond
)

// IsTransient reports whether a stream error only means the operation would
// have blocked. Such errors are retried on the next pass of the loop.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EINTR) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// telnetStream bounds every read and write with a deadline so the owning
// loop never blocks for long.
type telnetStream struct {
	conn         net.Conn
	pollInterval time.Duration
	writeTimeout time.Duration
}

func (s *telnetStream) Read(p []byte) (int, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.pollInterval)); err != nil {
		return 0, err
	}
	return s.conn.Read(p)
}

func (s *telnetStream) Write(p []byte) (int, error) {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return 0, err
	}
	return s.conn.Write(p)
}

func (s *telnetStream) Close() error {
	return s.conn.Close()
}

// consoleStream reads the console from a helper goroutine so Read can give up
// after the poll interval. Close leaves the process's stdin and stdout open.
type consoleStream struct {
	out          io.Writer
	pollInterval time.Duration

	chunks  chan []byte
	pending []byte
	done    chan struct{}
}

func newConsoleStream(in io.Reader, out io.Writer, poll time.Duration) *consoleStream {
	s := &consoleStream{
		out:          out,
		pollInterval: orDefault(poll, DefaultPollInterval),
		chunks:       make(chan []byte, 4),
		done:         make(chan struct{}),
	}
	go s.pump(in)
	return s
}

func (s *consoleStream) pump(in io.Reader) {
	defer close(s.chunks)
	buf := make([]byte, 512)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case s.chunks <- chunk:
			case <-s.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *consoleStream) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		timer := time.NewTimer(s.pollInterval)
		defer timer.Stop()
		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				return 0, io.EOF
			}
			s.pending = chunk
		case <-timer.C:
			return 0, os.ErrDeadlineExceeded
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *consoleStream) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s *consoleStream) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}
