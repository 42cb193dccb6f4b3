package bbs

import (
	"context"

	"github.com/ledzpl/vbbs/internal/conn"
)

// Serve runs the session loop for c until the caller leaves, the stream
// fails, or ctx is cancelled. Each pass flushes pending output, reads what
// the stream has ready, dispatches every ready input unit and then delivers
// room messages. Reads are bounded by the stream's poll interval, which
// paces the loop. c is closed on return.
func (sys *System) Serve(ctx context.Context, c *conn.Conn) {
	s := NewSession(sys, c)
	defer func() {
		if err := s.Close(); err != nil {
			sys.Logger.Debug("bbs: close connection", "conn", c.ID(), "err", err)
		}
	}()

	s.Start()
	for c.IsConnected() {
		if ctx.Err() != nil {
			s.printf("\nSystem is shutting down.\n")
			c.Disconnect()
			return
		}
		if _, err := c.Flush(); err != nil {
			return
		}
		if _, err := c.Fill(); err != nil {
			return
		}
		in := c.Input()
		for c.IsConnected() && in.Ready() {
			unit := in.Next()
			in.Clear()
			s.Handle(unit)
		}
		s.Deliver()
	}
}
