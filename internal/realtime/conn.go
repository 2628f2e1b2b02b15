// internal/realtime/conn.go
package realtime

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Conn is one realtime client connection. PlayerID is bound by the
// gateway when the client joins a lobby and is only ever touched from
// that connection's read loop.
type Conn struct {
	ID       uuid.UUID
	PlayerID string

	// Out carries outbound events to the connection's write pump.
	Out chan map[string]interface{}

	// Cancel stops the goroutines serving this connection.
	Cancel context.CancelFunc

	logger *logrus.Logger
}

// NewConn builds a connection with a fresh ID and a buffered outbox.
func NewConn(cancel context.CancelFunc, logger *logrus.Logger) *Conn {
	return &Conn{
		ID:     uuid.New(),
		Out:    make(chan map[string]interface{}, 16),
		Cancel: cancel,
		logger: logger,
	}
}

// Send pushes msg onto the outbox without blocking. A full outbox means
// the client stopped draining; the event is dropped and logged rather
// than stalling the rest of the room. Delivery is at-most-once.
func (c *Conn) Send(msg map[string]interface{}) {
	select {
	case c.Out <- msg:
	default:
		msgType, _ := msg["type"].(string)
		c.logger.WithFields(logrus.Fields{
			"conn":  c.ID,
			"event": msgType,
		}).Warn("outbox full, dropping event")
	}
}

// SendError unicasts an error event to this connection only.
func (c *Conn) SendError(message string) {
	c.Send(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}
