// internal/gateway/gateway.go
package gateway

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/restaurant-roulette/server/internal/lobby"
	"github.com/restaurant-roulette/server/internal/realtime"
)

// packet is one inbound client event. Unused fields stay zero for the
// event types that do not carry them.
type packet struct {
	Type               string          `json:"type"`
	LobbyID            string          `json:"lobby_id"`
	PlayerID           string          `json:"player_id"`
	HostID             string          `json:"host_id"`
	Restaurants        json.RawMessage `json:"restaurants"`
	SelectedRestaurant json.RawMessage `json:"selected_restaurant"`
	Location           string          `json:"location"`
	Mood               string          `json:"mood"`
}

// session binds one realtime connection to at most one lobby. code is
// empty while the connection is unbound. Only the connection's own read
// loop touches a session, so it needs no lock of its own.
type session struct {
	conn *realtime.Conn
	code string
}

// Gateway translates client events into registry calls and republishes
// the resulting state changes onto the realtime channel.
type Gateway struct {
	svc     *lobby.Service
	channel *realtime.Channel
	logger  *logrus.Logger

	// One mutex per lobby code so a registry mutation and the broadcast
	// that announces it appear atomic to every observer in the room.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New wires a gateway onto the channel's disconnect callback.
func New(svc *lobby.Service, channel *realtime.Channel, logger *logrus.Logger) *Gateway {
	g := &Gateway{
		svc:     svc,
		channel: channel,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
	channel.OnDisconnect = g.onDisconnect
	return g
}

// lockLobby serializes mutation+broadcast sequences per lobby code and
// returns the unlock func. Lock entries are never reclaimed; each is a
// single mutex keyed by a short code.
func (g *Gateway) lockLobby(code string) func() {
	g.locksMu.Lock()
	mu, ok := g.locks[code]
	if !ok {
		mu = &sync.Mutex{}
		g.locks[code] = mu
	}
	g.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// handlePacket is the connection state machine: unbound sessions accept
// only join_lobby, bound sessions accept the full event set. It is kept
// free of transport concerns so tests can drive it directly.
func (g *Gateway) handlePacket(sess *session, pkt packet) {
	switch pkt.Type {
	case "join_lobby":
		g.handleJoin(sess, pkt)
	case "leave_lobby":
		if sess.code == "" {
			sess.conn.SendError("Not in a lobby")
			return
		}
		g.handleLeave(sess)
	case "host_spin":
		if sess.code == "" {
			sess.conn.SendError("Not in a lobby")
			return
		}
		g.handleSpin(sess, pkt)
	default:
		g.logger.Warnf("conn %s sent unknown event type %q", sess.conn.ID, pkt.Type)
		sess.conn.SendError("Unknown event type")
	}
}

func (g *Gateway) handleJoin(sess *session, pkt packet) {
	if strings.TrimSpace(pkt.LobbyID) == "" {
		sess.conn.SendError("Lobby ID required")
		return
	}
	playerID := strings.TrimSpace(pkt.PlayerID)
	if playerID == "" {
		// The browser normally supplies its own identifier; fall back to
		// the connection id like the socket session id it replaces.
		playerID = sess.conn.ID.String()
	}
	code := lobby.Normalize(pkt.LobbyID)

	// Switching lobbies leaves the old room first, announcing the exit
	// to anyone still in it. The target is checked up front so a bad
	// code cannot strand the session outside its current lobby.
	if sess.code != "" && sess.code != code {
		if _, err := g.svc.LobbyInfo(code); err != nil {
			sess.conn.SendError(errorMessage(err))
			return
		}
		g.handleLeave(sess)
	}

	unlock := g.lockLobby(code)
	defer unlock()

	info, err := g.svc.JoinLobby(code, playerID)
	if err != nil {
		sess.conn.SendError(errorMessage(err))
		return
	}

	sess.conn.PlayerID = playerID
	sess.code = info.Code
	g.channel.Join(sess.conn, info.Code)

	sess.conn.Send(map[string]interface{}{
		"type":         "lobby_joined",
		"player_count": info.PlayerCount,
		"is_host":      info.IsHost,
	})
	sess.conn.Send(map[string]interface{}{
		"type":                "lobby_state",
		"restaurants":         rawList(info.Spin.Restaurants),
		"selected_restaurant": rawObject(info.Spin.SelectedRestaurant),
		"location":            info.Spin.Location,
		"mood":                info.Spin.Mood,
		"is_host":             info.IsHost,
	})
	g.channel.Broadcast(info.Code, map[string]interface{}{
		"type":         "player_joined",
		"player_id":    playerID,
		"player_count": info.PlayerCount,
	}, sess.conn)
}

func (g *Gateway) handleLeave(sess *session) {
	code := sess.code
	unlock := g.lockLobby(code)
	defer unlock()

	info, live := g.svc.LeaveLobby(code, sess.conn.PlayerID)
	g.channel.Leave(sess.conn)
	playerID := sess.conn.PlayerID
	sess.code = ""

	if live {
		g.channel.Broadcast(code, map[string]interface{}{
			"type":         "player_left",
			"player_id":    playerID,
			"player_count": info.PlayerCount,
		}, nil)
	}
}

func (g *Gateway) handleSpin(sess *session, pkt packet) {
	code := sess.code
	playerID := sess.conn.PlayerID
	if pkt.HostID != "" {
		playerID = pkt.HostID
	}

	unlock := g.lockLobby(code)
	defer unlock()

	spin := lobby.Spin{
		Restaurants:        pkt.Restaurants,
		SelectedRestaurant: pkt.SelectedRestaurant,
		Location:           pkt.Location,
		Mood:               pkt.Mood,
	}
	state, err := g.svc.SubmitSpin(code, playerID, spin)
	if err != nil {
		sess.conn.SendError(errorMessage(err))
		return
	}

	// Everyone converges on the stored payload, the spinning host
	// included.
	g.channel.Broadcast(code, map[string]interface{}{
		"type":                "spin_result",
		"restaurants":         rawList(state.Restaurants),
		"selected_restaurant": rawObject(state.SelectedRestaurant),
		"location":            state.Location,
		"mood":                state.Mood,
	}, nil)
}

// onDisconnect handles transport-level drops: same bookkeeping as an
// explicit leave_lobby, minus a session to update.
func (g *Gateway) onDisconnect(conn *realtime.Conn, room string) {
	unlock := g.lockLobby(room)
	defer unlock()

	info, live := g.svc.LeaveLobby(room, conn.PlayerID)
	if live {
		g.channel.Broadcast(room, map[string]interface{}{
			"type":         "player_left",
			"player_id":    conn.PlayerID,
			"player_count": info.PlayerCount,
		}, nil)
	}
}

// errorMessage maps registry errors onto the messages the browser
// client displays.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, lobby.ErrNotFound):
		return "Lobby not found or expired"
	case errors.Is(err, lobby.ErrForbidden):
		return "Only the host can spin"
	case errors.Is(err, lobby.ErrValidation):
		return err.Error()
	default:
		return "Internal error"
	}
}

// rawList passes a stored restaurants payload through verbatim,
// defaulting to an empty list before any spin.
func rawList(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("[]")
	}
	return raw
}

// rawObject passes a stored selection through verbatim, null before any
// spin.
func rawObject(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
