// internal/gateway/ws_test.go
package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/restaurant-roulette/server/internal/realtime"
)

// acceptOne upgrades a single request and hands the server side of the
// socket to the test.
func acceptOne(t *testing.T) (*httptest.Server, <-chan *websocket.Conn) {
	t.Helper()
	upgraded := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("websocket accept: %v", err)
			return
		}
		upgraded <- c
	}))
	t.Cleanup(srv.Close)
	return srv, upgraded
}

func TestWritePumpCancelsSessionWhenPeerDies(t *testing.T) {
	g, _, _ := newTestGateway()
	srv, upgraded := acceptOne(t)

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	client, _, err := websocket.Dial(dialCtx, srv.URL, nil)
	require.NoError(t, err)

	server := <-upgraded

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn := realtime.NewConn(cancel, g.logger)
	sess := &session{conn: conn}

	done := make(chan struct{})
	go func() {
		g.writePump(ctx, server, sess)
		close(done)
	}()

	// Kill the peer abruptly, then keep queueing events until a write
	// surfaces the dead socket.
	client.CloseNow()
	go func() {
		for i := 0; i < 200; i++ {
			select {
			case <-ctx.Done():
				return
			default:
			}
			conn.Send(map[string]interface{}{"type": "connected"})
			time.Sleep(10 * time.Millisecond)
		}
	}()

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session context still live after the peer died")
	}
	<-done
}
