package bbs

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ledzpl/vbbs/internal/terminal"
)

// Room manages the callers who are logged in and fans chat messages out to
// them. Delivery never blocks the sender.
type Room struct {
	mu      sync.RWMutex
	clients map[int]*Client
	colors  ColorPicker
	now     func() time.Time
}

// RoomOption configures a Room.
type RoomOption func(*Room)

// WithColorPicker overrides how name colors are chosen.
func WithColorPicker(p ColorPicker) RoomOption {
	return func(r *Room) { r.colors = p }
}

// NewRoom constructs an empty room.
func NewRoom(opts ...RoomOption) *Room {
	r := &Room{
		clients: make(map[int]*Client),
		colors:  newRotatingPicker(nameColors),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddClient registers a caller under its connection id and announces it to
// everyone else. The caller must remove the client when the session ends.
func (r *Room) AddClient(id int, username, address string) *Client {
	color := ""
	if r.colors != nil {
		color = r.colors.Next()
	}
	client := newClient(id, username, address, color)

	r.mu.Lock()
	old, replaced := r.clients[id]
	r.clients[id] = client
	r.mu.Unlock()

	if replaced {
		close(old.inbox)
	}
	r.broadcastSystem(id, fmt.Sprintf("%s has logged on", username))
	return client
}

// RemoveClient unregisters the client and closes its outbound channel.
func (r *Room) RemoveClient(id int) {
	r.mu.Lock()
	client, ok := r.clients[id]
	if ok {
		delete(r.clients, id)
	}
	r.mu.Unlock()

	if ok {
		close(client.inbox)
		r.broadcastSystem(id, fmt.Sprintf("%s has logged off", client.Username))
	}
}

// Broadcast delivers text from the sender to every other caller and returns
// the formatted line.
func (r *Room) Broadcast(senderID int, text string) string {
	ts := r.now().Format("15:04")

	r.mu.RLock()
	defer r.mu.RUnlock()

	name := "unknown"
	if sender, ok := r.clients[senderID]; ok {
		name = sender.Username
		if sender.Color != "" {
			name = sender.Color + name + terminal.Reset
		}
	}
	msg := fmt.Sprintf("[%s] %s: %s", ts, name, text)
	for id, client := range r.clients {
		if id == senderID {
			continue
		}
		client.post(msg)
	}
	return msg
}

func (r *Room) broadcastSystem(skip int, text string) {
	msg := fmt.Sprintf("[%s] *** %s", r.now().Format("15:04"), text)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, client := range r.clients {
		if id == skip {
			continue
		}
		client.post(msg)
	}
}

// ClientCount returns the number of callers online.
func (r *Room) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Online describes one caller in the who list.
type Online struct {
	ID       int
	Username string
	Address  string
	Since    time.Time
}

// Clients returns the callers online ordered by connection id.
func (r *Room) Clients() []Online {
	r.mu.RLock()
	out := make([]Online, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, Online{ID: c.ID, Username: c.Username, Address: c.Address, Since: c.Since})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close removes every client, closing their channels.
func (r *Room) Close() {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[int]*Client)
	r.mu.Unlock()

	for _, c := range clients {
		close(c.inbox)
	}
}
