// Package bbs runs the board itself: the shared system context, the room of
// callers online, and the per-connection session state machine and loop.
package bbs

import (
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/ledzpl/vbbs/internal/config"
	"github.com/ledzpl/vbbs/internal/conn"
	"github.com/ledzpl/vbbs/internal/logging"
	"github.com/ledzpl/vbbs/internal/user"
)

// System is the state shared by every connection.
type System struct {
	Config *config.Config
	Logger *slog.Logger
	Users  *user.Store
	Room   *Room

	nextConn atomic.Int64
	closers  []io.Closer
}

// Open loads the user file and prepares an empty room. Closers are closed,
// in order, by Close after the user file is saved.
func Open(cfg *config.Config, logger *slog.Logger, closers ...io.Closer) (*System, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	users, err := user.Open(cfg.Users.File)
	if err != nil {
		return nil, fmt.Errorf("bbs: %w", err)
	}
	logger.Info("bbs: user file loaded", "file", cfg.Users.File, "users", users.Count())

	return &System{
		Config:  cfg,
		Logger:  logger,
		Users:   users,
		Room:    NewRoom(),
		closers: closers,
	}, nil
}

// NewConn allocates a connection id and buffers for backend using the
// configured sizes.
func (sys *System) NewConn(backend conn.Backend) (*conn.Conn, error) {
	id := int(sys.nextConn.Add(1))
	if backend.Kind() == conn.KindConsole {
		id = 0
	}
	return conn.New(id, backend, conn.Options{
		InputSize:  sys.Config.Buffers.InputSize,
		OutputSize: sys.Config.Buffers.OutputSize,
		Logger:     sys.Logger,
	})
}

// Close empties the room, saves the user file and releases the closers.
func (sys *System) Close() error {
	sys.Room.Close()
	err := sys.Users.Save()
	if err != nil {
		sys.Logger.Error("bbs: saving users failed", "err", err)
	}
	for _, c := range sys.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
