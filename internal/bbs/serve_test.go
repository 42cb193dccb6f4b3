package bbs

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledzpl/vbbs/internal/conn"
	"github.com/ledzpl/vbbs/internal/telnet"
)

// syncBuffer collects what the server sends to the client side of a pipe.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func startServe(t *testing.T, ctx context.Context, sys *System) (net.Conn, *syncBuffer, <-chan struct{}) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { _ = client.Close() })

	c, err := sys.NewConn(&conn.Telnet{Conn: server, PollInterval: 5 * time.Millisecond})
	require.NoError(t, err)

	received := &syncBuffer{}
	go func() { _, _ = io.Copy(received, client) }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		sys.Serve(ctx, c)
	}()
	return client, received, done
}

func waitFor(t *testing.T, received *syncBuffer, text string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return strings.Contains(received.String(), text)
	}, 2*time.Second, 5*time.Millisecond, "waiting for %q in %q", text, received.String())
}

func TestServeLoginAndGoodbye(t *testing.T) {
	sys := newTestSystem(t)
	client, received, done := startServe(t, context.Background(), sys)

	waitFor(t, received, "[Press Enter to Continue]")

	negotiation := []byte{telnet.IAC, telnet.WILL, telnet.OptWindowSize}
	negotiation = append(negotiation, telnet.IAC, telnet.SB, telnet.OptWindowSize, 0, 100, 0, 30, telnet.IAC, telnet.SE)
	_, err := client.Write(negotiation)
	require.NoError(t, err)
	_, err = client.Write([]byte("\x1b[?1;2c\r"))
	require.NoError(t, err)
	waitFor(t, received, "Username (or NEW): ")

	_, err = client.Write([]byte("alice\r\n"))
	require.NoError(t, err)
	waitFor(t, received, "Password: ")

	_, err = client.Write([]byte(alicePassword + "\r\n"))
	require.NoError(t, err)
	waitFor(t, received, "Main Menu")
	require.Contains(t, received.String(), strings.Repeat("*", len(alicePassword)))

	_, err = client.Write([]byte("t"))
	require.NoError(t, err)
	waitFor(t, received, "Size:     100x30")

	_, err = client.Write([]byte("g"))
	require.NoError(t, err)
	waitFor(t, received, "Goodbye, alice!")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after goodbye")
	}
	require.Zero(t, sys.Room.ClientCount())
}

func TestServeStopsOnCancel(t *testing.T) {
	sys := newTestSystem(t)
	ctx, cancel := context.WithCancel(context.Background())
	_, received, done := startServe(t, ctx, sys)

	waitFor(t, received, "[Press Enter to Continue]")
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	waitFor(t, received, "System is shutting down.")
}

func TestServeReturnsWhenClientHangsUp(t *testing.T) {
	sys := newTestSystem(t)
	client, received, done := startServe(t, context.Background(), sys)

	waitFor(t, received, "[Press Enter to Continue]")
	require.NoError(t, client.Close())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after hang up")
	}
}
