// internal/lobby/lobby.go
package lobby

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"strings"
	"time"
)

// codeAlphabet omits 0/O, 1/I and L so a code survives being read aloud
// or retyped from a screenshot.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// CodeLength is the fixed length of a lobby code.
const CodeLength = 6

// Lobby is an ephemeral grouping of one host and any number of guests
// around the last broadcast spin outcome. All state is process memory;
// nothing survives a restart.
type Lobby struct {
	Code         string
	HostID       string
	Players      map[string]struct{}
	CreatedAt    time.Time
	LastActivity time.Time

	// Last spin outcome. Restaurant payloads come from the host's client
	// and are rebroadcast verbatim, so they stay raw JSON here.
	Restaurants        json.RawMessage
	SelectedRestaurant json.RawMessage
	Location           string
	Mood               string
}

// Spin is the outcome of one wheel spin as submitted by the host's client.
type Spin struct {
	Restaurants        json.RawMessage
	SelectedRestaurant json.RawMessage
	Location           string
	Mood               string
}

// PlayerCount returns the number of joined players, host included.
func (l *Lobby) PlayerCount() int { return len(l.Players) }

// HasMember reports whether playerID is currently joined.
func (l *Lobby) HasMember(playerID string) bool {
	_, ok := l.Players[playerID]
	return ok
}

// State returns the lobby's current spin outcome.
func (l *Lobby) State() Spin {
	return Spin{
		Restaurants:        l.Restaurants,
		SelectedRestaurant: l.SelectedRestaurant,
		Location:           l.Location,
		Mood:               l.Mood,
	}
}

// HasSpin reports whether any spin outcome has been recorded yet.
func (l *Lobby) HasSpin() bool {
	return len(l.Restaurants) > 0 || len(l.SelectedRestaurant) > 0
}

// snapshot copies the lobby so callers outside the store mutex never touch
// live state.
func (l *Lobby) snapshot() Lobby {
	cp := *l
	cp.Players = make(map[string]struct{}, len(l.Players))
	for p := range l.Players {
		cp.Players[p] = struct{}{}
	}
	return cp
}

// Normalize folds a client-supplied lobby code to its canonical uppercase
// form so a lookup never spuriously fails on casing.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GenerateCode returns a random lobby code drawn from the unambiguous
// alphabet. Uniqueness against live lobbies is the store's job.
func GenerateCode() (string, error) {
	code := make([]byte, CodeLength)
	for i := 0; i < CodeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[num.Int64()]
	}
	return string(code), nil
}
