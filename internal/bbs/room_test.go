package bbs

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoomBroadcastDeliversToOtherClients(t *testing.T) {
	room := NewRoom(WithColorPicker(&staticColorPicker{}))

	alice := room.AddClient(1, "alice", "198.51.100.1:5000")
	drainChannel(alice.Inbox())

	bob := room.AddClient(2, "bob", "198.51.100.2:5000")
	drainChannel(alice.Inbox())
	drainChannel(bob.Inbox())

	msg := room.Broadcast(alice.ID, "hello world")
	require.Contains(t, msg, "hello world")
	require.Contains(t, msg, "alice")

	select {
	case delivered := <-bob.Inbox():
		require.Equal(t, msg, delivered)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for broadcast")
	}

	select {
	case unexpected := <-alice.Inbox():
		t.Fatalf("sender should not receive message, got %q", unexpected)
	default:
	}
}

func TestRoomAnnouncesLogonToOthers(t *testing.T) {
	room := NewRoom(WithColorPicker(&staticColorPicker{}))
	alice := room.AddClient(1, "alice", "")

	room.AddClient(2, "bob", "")
	select {
	case msg := <-alice.Inbox():
		require.Contains(t, msg, "bob has logged on")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for announcement")
	}
}

func TestRoomRemoveClientClosesChannel(t *testing.T) {
	room := NewRoom(WithColorPicker(&staticColorPicker{}))
	client := room.AddClient(3, "carol", "")
	drainChannel(client.Inbox())

	room.RemoveClient(client.ID)
	require.Zero(t, room.ClientCount())

	select {
	case _, ok := <-client.Inbox():
		require.False(t, ok, "channel should be closed")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for channel closure")
	}
}

func TestRoomDropsWhenQueueFull(t *testing.T) {
	room := NewRoom(WithColorPicker(&staticColorPicker{}))
	alice := room.AddClient(1, "alice", "")
	bob := room.AddClient(2, "bob", "")
	drainChannel(bob.Inbox())

	for i := 0; i < inboxSize*2; i++ {
		room.Broadcast(alice.ID, strings.Repeat("x", i+1))
	}
	require.Len(t, bob.inbox, inboxSize)
}

func TestRoomClientsSorted(t *testing.T) {
	room := NewRoom(WithColorPicker(&staticColorPicker{}))
	room.AddClient(7, "zed", "")
	room.AddClient(2, "amy", "")

	online := room.Clients()
	require.Len(t, online, 2)
	require.Equal(t, 2, online[0].ID)
	require.Equal(t, "zed", online[1].Username)

	room.Close()
	require.Zero(t, room.ClientCount())
}

func drainChannel(ch <-chan string) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

type staticColorPicker struct {
	color string
}

func (p *staticColorPicker) Next() string {
	return p.color
}

func TestRotatingPickerCyclesPalette(t *testing.T) {
	p := newRotatingPicker([]string{"a", "b", "c"})
	first := p.Next()
	second := p.Next()
	third := p.Next()
	require.ElementsMatch(t, []string{"a", "b", "c"}, []string{first, second, third})
	require.Equal(t, first, p.Next())

	require.Nil(t, newRotatingPicker(nil))
}
