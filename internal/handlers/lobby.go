// internal/handlers/lobby.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/restaurant-roulette/server/internal/lobby"
)

// CreateLobbyHandler allocates a lobby for the requesting host and
// returns its code. The realtime subscription happens separately over
// the websocket.
func CreateLobbyHandler(svc *lobby.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			HostID string `json:"host_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.HostID) == "" {
			writeError(w, http.StatusBadRequest, "host_id is required")
			return
		}

		info, err := svc.CreateLobby(req.HostID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Error creating lobby")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"lobby_id": info.Code,
			"host_id":  req.HostID,
		})
	}
}

// JoinLobbyHandler adds a player to an existing lobby and replies with
// the lobby's current spin state so a late joiner can catch up.
func JoinLobbyHandler(svc *lobby.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			LobbyID  string `json:"lobby_id"`
			PlayerID string `json:"player_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.LobbyID) == "" {
			writeError(w, http.StatusBadRequest, "Lobby ID is required")
			return
		}
		if strings.TrimSpace(req.PlayerID) == "" {
			writeError(w, http.StatusBadRequest, "player_id is required")
			return
		}

		info, err := svc.JoinLobby(req.LobbyID, req.PlayerID)
		if err != nil {
			switch {
			case errors.Is(err, lobby.ErrNotFound):
				writeError(w, http.StatusBadRequest, "Lobby not found or expired")
			case errors.Is(err, lobby.ErrValidation):
				writeError(w, http.StatusBadRequest, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "Error joining lobby")
			}
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":             true,
			"lobby_id":            info.Code,
			"is_host":             info.IsHost,
			"player_count":        info.PlayerCount,
			"restaurants":         rawList(info.Spin.Restaurants),
			"selected_restaurant": rawObject(info.Spin.SelectedRestaurant),
			"location":            info.Spin.Location,
			"mood":                info.Spin.Mood,
		})
	}
}

// LobbyInfoHandler serves read-only lobby summaries from
// /api/lobby/{code}/info.
func LobbyInfoHandler(svc *lobby.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/lobby/"), "/")
		if len(parts) != 2 || parts[1] != "info" || parts[0] == "" {
			http.NotFound(w, r)
			return
		}

		info, err := svc.LobbyInfo(parts[0])
		if err != nil {
			writeError(w, http.StatusNotFound, "Lobby not found")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":         true,
			"lobby_id":        info.Code,
			"host_id":         info.HostID,
			"player_count":    info.PlayerCount,
			"has_restaurants": info.HasRestaurants,
			"has_selection":   info.HasSelection,
			"location":        info.Location,
			"mood":            info.Mood,
		})
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
