// internal/realtime/channel.go
package realtime

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Channel groups live connections into rooms keyed by lobby code and
// delivers events to one room at a time. It owns both directions of the
// membership index, so room state can be exercised without a network
// layer in front of it.
type Channel struct {
	mu     sync.Mutex
	rooms  map[string]map[*Conn]struct{}
	byConn map[*Conn]string

	// OnDisconnect is the channel's single upward callback. It fires
	// after a dropped connection has been removed from its room, with
	// the room it was in.
	OnDisconnect func(conn *Conn, room string)

	logger *logrus.Logger
}

// NewChannel initializes an empty room index.
func NewChannel(logger *logrus.Logger) *Channel {
	return &Channel{
		rooms:  make(map[string]map[*Conn]struct{}),
		byConn: make(map[*Conn]string),
		logger: logger,
	}
}

// Join subscribes conn to room. A connection sits in at most one room,
// so joining a new lobby implicitly leaves the previous one.
func (c *Channel) Join(conn *Conn, room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(conn)
	if c.rooms[room] == nil {
		c.rooms[room] = make(map[*Conn]struct{})
	}
	c.rooms[room][conn] = struct{}{}
	c.byConn[conn] = room
}

// Leave unsubscribes conn from whatever room it is in.
func (c *Channel) Leave(conn *Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(conn)
}

// Room reports which room conn is subscribed to, if any.
func (c *Channel) Room(conn *Conn) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	room, ok := c.byConn[conn]
	return room, ok
}

// Size returns the number of connections subscribed to room.
func (c *Channel) Size(room string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rooms[room])
}

// Broadcast delivers msg to every current subscriber of room except the
// optionally excluded connection. Delivery is best effort; a slow
// subscriber drops the event in Conn.Send rather than blocking the room.
func (c *Channel) Broadcast(room string, msg map[string]interface{}, exclude *Conn) {
	c.mu.Lock()
	targets := make([]*Conn, 0, len(c.rooms[room]))
	for conn := range c.rooms[room] {
		if conn == exclude {
			continue
		}
		targets = append(targets, conn)
	}
	c.mu.Unlock()

	for _, conn := range targets {
		conn.Send(msg)
	}
}

// Disconnect removes conn from the index entirely and fires the
// OnDisconnect callback if the connection was in a room. The transport
// layer calls this once when a socket dies for any reason.
func (c *Channel) Disconnect(conn *Conn) {
	c.mu.Lock()
	room, wasInRoom := c.byConn[conn]
	c.removeLocked(conn)
	cb := c.OnDisconnect
	c.mu.Unlock()

	if wasInRoom && cb != nil {
		cb(conn, room)
	}
}

// removeLocked drops conn from both index directions and deletes the
// room entry once it empties. The caller must hold c.mu.
func (c *Channel) removeLocked(conn *Conn) {
	room, ok := c.byConn[conn]
	if !ok {
		return
	}
	delete(c.byConn, conn)
	if set := c.rooms[room]; set != nil {
		delete(set, conn)
		if len(set) == 0 {
			delete(c.rooms, room)
		}
	}
}
