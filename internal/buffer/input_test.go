package buffer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestInput(t *testing.T, size int) *Input {
	t.Helper()
	in, err := NewInput(size)
	require.NoError(t, err)
	return in
}

func feedInput(t *testing.T, in *Input, s string) {
	t.Helper()
	_, err := in.Buffer().WriteString(s)
	require.NoError(t, err)
}

func TestInputLines(t *testing.T) {
	in := newTestInput(t, 64)
	feedInput(t, in, "alice\r\nbob\r")

	require.True(t, in.Ready())
	require.Equal(t, "alice", in.Next())
	require.True(t, in.Ready(), "ready stays set until Clear")
	in.Clear()

	require.True(t, in.Ready())
	require.Equal(t, "bob", in.Next())
	in.Clear()

	require.False(t, in.Ready())
	require.Equal(t, "", in.Next())
	require.True(t, in.Buffer().IsEmpty())
}

func TestInputLineWaitsForTerminator(t *testing.T) {
	in := newTestInput(t, 64)
	feedInput(t, in, "partial")
	require.False(t, in.Ready())
	require.Equal(t, "partial", string(in.Buffer().Bytes()))

	feedInput(t, in, "\r")
	require.True(t, in.Ready())
	require.Equal(t, "partial", in.Next())
}

func TestInputDropsNulAndLinefeed(t *testing.T) {
	in := newTestInput(t, 64)
	feedInput(t, in, "\r\x00\nhi\x00\x07\r")

	require.True(t, in.Ready())
	require.Equal(t, "", in.Next())
	in.Clear()

	require.True(t, in.Ready())
	require.Equal(t, "hi", in.Next())
}

func TestInputBackspace(t *testing.T) {
	in := newTestInput(t, 64)
	feedInput(t, in, "\bbobx\x7fby\b\r")

	require.True(t, in.Ready())
	require.Equal(t, "bobb", in.Next())
}

func TestInputCapsLineLength(t *testing.T) {
	in := newTestInput(t, 512)
	feedInput(t, in, strings.Repeat("x", 300)+"\r")

	require.True(t, in.Ready())
	require.Len(t, in.Next(), MaxLineLength)
	require.True(t, in.Buffer().IsEmpty())
}

func TestInputCharacterModeSkipsEscapes(t *testing.T) {
	in := newTestInput(t, 64)
	in.SetMode(CharacterMode)

	feedInput(t, in, "\x1b[A")
	require.False(t, in.Ready())
	require.True(t, in.Buffer().IsEmpty())

	feedInput(t, in, "\x1b[")
	require.False(t, in.Ready())
	feedInput(t, in, "1;5Cq")
	require.True(t, in.Ready())
	require.Equal(t, "q", in.Next())
	in.Clear()
	require.False(t, in.Ready())
}

func TestInputKeepsDeviceAttributes(t *testing.T) {
	in := newTestInput(t, 64)
	feedInput(t, in, "\x1b[A\x1b[?62;1;6c\x1bO\r")

	require.True(t, in.Ready())
	require.Equal(t, "[?62;1;6c", in.Next())
}

func TestInputIncompleteEscapeWaits(t *testing.T) {
	in := newTestInput(t, 64)
	feedInput(t, in, "ab\x1b[1")
	require.False(t, in.Ready())

	feedInput(t, in, "0Dc\r")
	require.True(t, in.Ready())
	require.Equal(t, "abc", in.Next())
}

func TestInputDiscardsFullBufferWithoutTerminator(t *testing.T) {
	in := newTestInput(t, 8)
	feedInput(t, in, "abcdefgh")

	require.False(t, in.Ready())
	require.True(t, in.Buffer().IsEmpty())

	feedInput(t, in, "ok\r")
	require.True(t, in.Ready())
	require.Equal(t, "ok", in.Next())
}

func TestInputCharacterMode(t *testing.T) {
	in := newTestInput(t, 64)
	feedInput(t, in, "left over")
	in.SetMode(CharacterMode)
	require.Equal(t, CharacterMode, in.Mode())
	require.True(t, in.Buffer().IsEmpty())

	feedInput(t, in, "uw")
	require.True(t, in.Ready())
	require.Equal(t, "u", in.Next())
	in.Clear()

	require.True(t, in.Ready())
	require.Equal(t, "w", in.Next())
	in.Clear()
	require.False(t, in.Ready())
}

func TestInputFill(t *testing.T) {
	in := newTestInput(t, 16)
	r := bytes.NewReader([]byte("hello\r"))

	n, err := in.Fill(r)
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.True(t, in.Ready())
	require.Equal(t, "hello", in.Next())
}

func TestInputFillRespectsRemaining(t *testing.T) {
	in := newTestInput(t, 4)
	r := bytes.NewReader([]byte("abcdefgh"))

	n, err := in.Fill(r)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.True(t, in.Buffer().IsFull())

	n, err = in.Fill(r)
	require.NoError(t, err)
	require.Zero(t, n)
}
