// internal/gateway/gateway_test.go
package gateway

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restaurant-roulette/server/internal/lobby"
	"github.com/restaurant-roulette/server/internal/realtime"
)

func newTestGateway() (*Gateway, *lobby.Service, *realtime.Channel) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	store := lobby.NewStore(logger)
	svc := lobby.NewService(store, logger)
	channel := realtime.NewChannel(logger)
	return New(svc, channel, logger), svc, channel
}

func newTestSession(g *Gateway) *session {
	_, cancel := context.WithCancel(context.Background())
	return &session{conn: realtime.NewConn(cancel, g.logger)}
}

// drain empties a session's outbox without blocking.
func drain(sess *session) []map[string]interface{} {
	var msgs []map[string]interface{}
	for {
		select {
		case msg := <-sess.conn.Out:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func eventTypes(msgs []map[string]interface{}) []string {
	types := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if t, ok := m["type"].(string); ok {
			types = append(types, t)
		}
	}
	return types
}

func findEvent(msgs []map[string]interface{}, typ string) map[string]interface{} {
	for _, m := range msgs {
		if m["type"] == typ {
			return m
		}
	}
	return nil
}

func joinPacket(code, playerID string) packet {
	return packet{Type: "join_lobby", LobbyID: code, PlayerID: playerID}
}

func TestJoinLobbyAcknowledgesAndAnnounces(t *testing.T) {
	g, svc, channel := newTestGateway()
	created, err := svc.CreateLobby("H")
	require.NoError(t, err)

	host := newTestSession(g)
	g.handlePacket(host, joinPacket(created.Code, "H"))

	hostEvents := drain(host)
	joined := findEvent(hostEvents, "lobby_joined")
	require.NotNil(t, joined)
	assert.Equal(t, true, joined["is_host"])
	assert.Equal(t, 1, joined["player_count"])

	state := findEvent(hostEvents, "lobby_state")
	require.NotNil(t, state)
	assert.JSONEq(t, `[]`, string(state["restaurants"].(json.RawMessage)))
	assert.JSONEq(t, `null`, string(state["selected_restaurant"].(json.RawMessage)))

	guest := newTestSession(g)
	g.handlePacket(guest, joinPacket(created.Code, "P1"))

	guestJoined := findEvent(drain(guest), "lobby_joined")
	require.NotNil(t, guestJoined)
	assert.Equal(t, false, guestJoined["is_host"])
	assert.Equal(t, 2, guestJoined["player_count"])

	// The host hears about the guest, not about itself.
	announce := findEvent(drain(host), "player_joined")
	require.NotNil(t, announce)
	assert.Equal(t, "P1", announce["player_id"])

	assert.Equal(t, 2, channel.Size(created.Code))
}

func TestJoinLobbyCaseInsensitiveCode(t *testing.T) {
	g, svc, _ := newTestGateway()
	created, err := svc.CreateLobby("H")
	require.NoError(t, err)

	guest := newTestSession(g)
	lower := packet{Type: "join_lobby", LobbyID: "  " + lowerCase(created.Code) + " ", PlayerID: "P1"}
	g.handlePacket(guest, lower)

	joined := findEvent(drain(guest), "lobby_joined")
	require.NotNil(t, joined)
	assert.Equal(t, created.Code, guest.code)
}

func lowerCase(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func TestJoinUnknownLobbySendsErrorOnly(t *testing.T) {
	g, _, channel := newTestGateway()
	sess := newTestSession(g)

	g.handlePacket(sess, joinPacket("ZZZZZZ", "P1"))

	events := drain(sess)
	require.Equal(t, []string{"error"}, eventTypes(events))
	assert.Equal(t, "Lobby not found or expired", events[0]["message"])
	assert.Empty(t, sess.code)
	_, inRoom := channel.Room(sess.conn)
	assert.False(t, inRoom)
}

func TestEventsWhileUnboundAreRejected(t *testing.T) {
	g, _, _ := newTestGateway()
	sess := newTestSession(g)

	g.handlePacket(sess, packet{Type: "host_spin", SelectedRestaurant: []byte(`{"name":"A"}`)})
	events := drain(sess)
	require.Equal(t, []string{"error"}, eventTypes(events))

	g.handlePacket(sess, packet{Type: "leave_lobby"})
	events = drain(sess)
	require.Equal(t, []string{"error"}, eventTypes(events))

	g.handlePacket(sess, packet{Type: "mystery"})
	events = drain(sess)
	require.Equal(t, []string{"error"}, eventTypes(events))
}

func TestSpinFansOutToWholeRoom(t *testing.T) {
	g, svc, _ := newTestGateway()
	created, err := svc.CreateLobby("H")
	require.NoError(t, err)

	host := newTestSession(g)
	guest := newTestSession(g)
	g.handlePacket(host, joinPacket(created.Code, "H"))
	g.handlePacket(guest, joinPacket(created.Code, "P1"))
	drain(host)
	drain(guest)

	restaurants := `[{"name":"R1"},{"name":"R2"},{"name":"R3"}]`
	selected := `{"name":"R2","cuisine":"ramen","rating":4.5}`
	g.handlePacket(host, packet{
		Type:               "host_spin",
		LobbyID:            created.Code,
		HostID:             "H",
		Restaurants:        json.RawMessage(restaurants),
		SelectedRestaurant: json.RawMessage(selected),
		Location:           "Boston",
		Mood:               "adventurous",
	})

	// Every member converges on one authoritative payload, host included.
	for _, sess := range []*session{host, guest} {
		events := drain(sess)
		require.Equal(t, []string{"spin_result"}, eventTypes(events), "each conn gets exactly one spin_result")
		result := events[0]
		assert.JSONEq(t, restaurants, string(result["restaurants"].(json.RawMessage)))
		assert.JSONEq(t, selected, string(result["selected_restaurant"].(json.RawMessage)))
		assert.Equal(t, "Boston", result["location"])
		assert.Equal(t, "adventurous", result["mood"])
	}
}

func TestGuestSpinRejectedWithoutBroadcast(t *testing.T) {
	g, svc, _ := newTestGateway()
	created, err := svc.CreateLobby("H")
	require.NoError(t, err)

	host := newTestSession(g)
	guest := newTestSession(g)
	g.handlePacket(host, joinPacket(created.Code, "H"))
	g.handlePacket(guest, joinPacket(created.Code, "P1"))
	drain(host)
	drain(guest)

	g.handlePacket(guest, packet{
		Type:               "host_spin",
		SelectedRestaurant: []byte(`{"name":"A"}`),
	})

	guestEvents := drain(guest)
	require.Equal(t, []string{"error"}, eventTypes(guestEvents))
	assert.Equal(t, "Only the host can spin", guestEvents[0]["message"])
	assert.Empty(t, drain(host), "host must see nothing for a rejected spin")

	info, err := svc.LobbyInfo(created.Code)
	require.NoError(t, err)
	assert.False(t, info.HasSelection)
}

func TestLeaveLobbyAnnouncesToRemainder(t *testing.T) {
	g, svc, channel := newTestGateway()
	created, err := svc.CreateLobby("H")
	require.NoError(t, err)

	host := newTestSession(g)
	guest := newTestSession(g)
	g.handlePacket(host, joinPacket(created.Code, "H"))
	g.handlePacket(guest, joinPacket(created.Code, "P1"))
	drain(host)
	drain(guest)

	g.handlePacket(guest, packet{Type: "leave_lobby"})

	assert.Empty(t, guest.code)
	_, inRoom := channel.Room(guest.conn)
	assert.False(t, inRoom)

	left := findEvent(drain(host), "player_left")
	require.NotNil(t, left)
	assert.Equal(t, "P1", left["player_id"])
	assert.Equal(t, 1, left["player_count"])
}

func TestDisconnectActsLikeLeave(t *testing.T) {
	g, svc, channel := newTestGateway()
	created, err := svc.CreateLobby("H")
	require.NoError(t, err)

	host := newTestSession(g)
	guest := newTestSession(g)
	g.handlePacket(host, joinPacket(created.Code, "H"))
	g.handlePacket(guest, joinPacket(created.Code, "P1"))
	drain(host)
	drain(guest)

	channel.Disconnect(guest.conn)

	left := findEvent(drain(host), "player_left")
	require.NotNil(t, left)
	assert.Equal(t, "P1", left["player_id"])

	info, err := svc.LobbyInfo(created.Code)
	require.NoError(t, err)
	assert.Equal(t, 1, info.PlayerCount)
}

func TestSwitchingLobbiesLeavesThePreviousOne(t *testing.T) {
	g, svc, channel := newTestGateway()
	first, err := svc.CreateLobby("H1")
	require.NoError(t, err)
	second, err := svc.CreateLobby("H2")
	require.NoError(t, err)

	watcher := newTestSession(g)
	g.handlePacket(watcher, joinPacket(first.Code, "H1"))
	drain(watcher)

	mover := newTestSession(g)
	g.handlePacket(mover, joinPacket(first.Code, "P1"))
	drain(mover)
	drain(watcher)

	g.handlePacket(mover, joinPacket(second.Code, "P1"))

	assert.Equal(t, second.Code, mover.code)
	room, ok := channel.Room(mover.conn)
	require.True(t, ok)
	assert.Equal(t, second.Code, room)

	left := findEvent(drain(watcher), "player_left")
	require.NotNil(t, left)
	assert.Equal(t, "P1", left["player_id"])
}

func TestFailedSwitchKeepsCurrentLobby(t *testing.T) {
	g, svc, channel := newTestGateway()
	created, err := svc.CreateLobby("H")
	require.NoError(t, err)

	host := newTestSession(g)
	guest := newTestSession(g)
	g.handlePacket(host, joinPacket(created.Code, "H"))
	g.handlePacket(guest, joinPacket(created.Code, "P1"))
	drain(host)
	drain(guest)

	g.handlePacket(guest, joinPacket("ZZZZZZ", "P1"))

	events := drain(guest)
	require.Equal(t, []string{"error"}, eventTypes(events))
	assert.Equal(t, "Lobby not found or expired", events[0]["message"])

	// The guest stays exactly where it was.
	assert.Equal(t, created.Code, guest.code)
	room, ok := channel.Room(guest.conn)
	require.True(t, ok)
	assert.Equal(t, created.Code, room)
	assert.Empty(t, drain(host), "no departure is announced for a failed switch")

	info, err := svc.LobbyInfo(created.Code)
	require.NoError(t, err)
	assert.Equal(t, 2, info.PlayerCount)
}

// TestLobbyRoundTrip walks the full multiplayer flow end to end.
func TestLobbyRoundTrip(t *testing.T) {
	g, svc, _ := newTestGateway()
	created, err := svc.CreateLobby("H")
	require.NoError(t, err)

	host := newTestSession(g)
	g.handlePacket(host, joinPacket(created.Code, "H"))
	drain(host)

	guest := newTestSession(g)
	g.handlePacket(guest, joinPacket(created.Code, "P1"))
	joined := findEvent(drain(guest), "lobby_joined")
	require.NotNil(t, joined)
	assert.Equal(t, 2, joined["player_count"])
	assert.Equal(t, false, joined["is_host"])
	drain(host)

	g.handlePacket(host, packet{
		Type:               "host_spin",
		Restaurants:        []byte(`[{"name":"R1"},{"name":"R2"},{"name":"R3"}]`),
		SelectedRestaurant: []byte(`{"name":"R2"}`),
		Location:           "Boston",
		Mood:               "cozy",
	})
	for _, sess := range []*session{host, guest} {
		result := findEvent(drain(sess), "spin_result")
		require.NotNil(t, result)
		var sel struct {
			Name string `json:"name"`
		}
		require.NoError(t, json.Unmarshal(result["selected_restaurant"].(json.RawMessage), &sel))
		assert.Equal(t, "R2", sel.Name)
	}

	g.handlePacket(guest, packet{Type: "host_spin", SelectedRestaurant: []byte(`{"name":"R1"}`)})
	require.Equal(t, []string{"error"}, eventTypes(drain(guest)))
	assert.Empty(t, drain(host))

	g.handlePacket(guest, packet{Type: "leave_lobby"})
	left := findEvent(drain(host), "player_left")
	require.NotNil(t, left)
	assert.Equal(t, 1, left["player_count"])
}
