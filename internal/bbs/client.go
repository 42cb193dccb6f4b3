package bbs

import "time"

// inboxSize is how many room lines may wait for a caller's session loop.
const inboxSize = 16

// Client is a caller on the room roster. The session reads lines for it
// from Inbox on every pass of its loop.
type Client struct {
	ID       int
	Username string
	Address  string
	Color    string
	Since    time.Time

	inbox chan string
}

func newClient(id int, username, address, color string) *Client {
	return &Client{
		ID:       id,
		Username: username,
		Address:  address,
		Color:    color,
		Since:    time.Now(),
		inbox:    make(chan string, inboxSize),
	}
}

// Inbox is closed when the client leaves the room.
func (c *Client) Inbox() <-chan string {
	return c.inbox
}

// post queues msg unless the inbox is full, in which case the line is lost
// for this caller only.
func (c *Client) post(msg string) {
	select {
	case c.inbox <- msg:
	default:
	}
}
