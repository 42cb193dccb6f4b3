package telnetserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

// ConnHandler serves one accepted connection. It owns conn and must close
// it before returning. ctx is cancelled when the server shuts down.
type ConnHandler func(ctx context.Context, conn net.Conn)

// BusyMessage is sent to callers refused because the server is full.
const BusyMessage = "All nodes are busy. Please call back later.\r\n"

// Server wraps the Telnet listener lifecycle.
type Server struct {
	Addr string
	// MaxConnections limits concurrent connections. Zero means no limit.
	MaxConnections int

	logger *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
}

// New creates a Server listening on addr.
func New(addr string, maxConnections int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		Addr:           addr,
		MaxConnections: maxConnections,
		logger:         logger,
		ready:          make(chan struct{}),
	}
}

// ListenAndServe accepts connections until the context is cancelled or an
// error occurs. It waits for running handlers before returning.
func (s *Server) ListenAndServe(ctx context.Context, handler ConnHandler) error {
	if handler == nil {
		return errors.New("telnetserver: connection handler required")
	}

	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("telnetserver: listen %q: %w", s.Addr, err)
	}
	return s.Serve(ctx, listener, handler)
}

// Serve accepts connections on listener and closes it on return. A Server
// serves once.
func (s *Server) Serve(ctx context.Context, listener net.Listener, handler ConnHandler) error {
	if handler == nil {
		return errors.New("telnetserver: connection handler required")
	}
	defer listener.Close()

	s.mu.Lock()
	s.listener = listener
	close(s.ready)
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var handlers sync.WaitGroup
	defer handlers.Wait()

	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Warn("telnetserver: listener close error", "err", err)
		}
	}()

	s.logger.Info("telnetserver: listening", "addr", listener.Addr().String())

	var slots chan struct{}
	if s.MaxConnections > 0 {
		slots = make(chan struct{}, s.MaxConnections)
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("telnetserver: accept: %w", err)
			}
			s.logger.Warn("telnetserver: accept error", "err", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if slots != nil {
			select {
			case slots <- struct{}{}:
			default:
				s.refuse(conn)
				continue
			}
		}

		s.logger.Info("telnetserver: new connection", "remote", conn.RemoteAddr().String())
		handlers.Add(1)
		go func() {
			defer handlers.Done()
			if slots != nil {
				defer func() { <-slots }()
			}
			handler(ctx, conn)
		}()
	}
}

// ListenAddr waits for Serve to start and returns the bound address.
func (s *Server) ListenAddr(ctx context.Context) (net.Addr, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener.Addr(), nil
}

func (s *Server) refuse(conn net.Conn) {
	defer conn.Close()
	s.logger.Warn("telnetserver: refusing connection, server full", "remote", conn.RemoteAddr().String(), "limit", s.MaxConnections)
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	if _, err := io.WriteString(conn, BusyMessage); err != nil {
		s.logger.Debug("telnetserver: busy message failed", "err", err)
	}
}
