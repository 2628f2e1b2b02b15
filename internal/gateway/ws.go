// internal/gateway/ws.go
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/restaurant-roulette/server/internal/realtime"
)

// Handler upgrades the request to a websocket and serves the session
// until the socket dies. Cleanup runs through the channel's disconnect
// path, so a closed tab and an explicit leave look the same to the
// lobby.
func (g *Gateway) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"}, // the UI is served cross-origin in dev
		})
		if err != nil {
			g.logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := realtime.NewConn(cancel, g.logger)
		sess := &session{conn: conn}
		g.logger.WithField("conn", conn.ID).Infof("websocket connected from %s", r.RemoteAddr)

		conn.Send(map[string]interface{}{
			"type":    "connected",
			"message": "Connected to server",
		})

		go g.writePump(ctx, c, sess)
		g.readPump(ctx, c, sess)

		g.channel.Disconnect(conn)
		g.logger.WithField("conn", conn.ID).Info("websocket disconnected")
	}
}

// readPump decodes inbound packets and feeds the state machine until
// the connection errors out or closes.
func (g *Gateway) readPump(ctx context.Context, c *websocket.Conn, sess *session) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				g.logger.Debugf("conn %s closed normally", sess.conn.ID)
			} else if ctx.Err() == nil {
				g.logger.Warnf("conn %s read error: %v", sess.conn.ID, err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var pkt packet
		if err := json.Unmarshal(data, &pkt); err != nil {
			g.logger.Warnf("conn %s sent invalid json: %v", sess.conn.ID, err)
			sess.conn.SendError("Invalid JSON format")
			continue
		}
		g.handlePacket(sess, pkt)
	}
}

// writePump drains the connection's outbox onto the socket and pings on
// an interval to surface dead peers. The write side detects a dead peer
// first, so on exit it cancels the session context to unblock the read
// loop and let disconnect cleanup run.
func (g *Gateway) writePump(ctx context.Context, c *websocket.Conn, sess *session) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer sess.conn.Cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sess.conn.Out:
			data, err := json.Marshal(msg)
			if err != nil {
				g.logger.Warnf("conn %s failed to marshal outgoing event: %v", sess.conn.ID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				g.logger.Warnf("conn %s write failed: %v", sess.conn.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				g.logger.Warnf("conn %s ping failed, assuming disconnect: %v", sess.conn.ID, err)
				return
			}
		}
	}
}
