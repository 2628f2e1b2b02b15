// internal/lobby/service.go
package lobby

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// JoinInfo is the registry's answer to a create or join, echoed back to
// the calling client before it subscribes to the realtime room.
type JoinInfo struct {
	Code        string
	IsHost      bool
	PlayerCount int
	Spin        Spin
}

// Info is the read-only summary served by the lobby info endpoint.
type Info struct {
	Code           string
	HostID         string
	PlayerCount    int
	HasRestaurants bool
	HasSelection   bool
	Location       string
	Mood           string
}

// Service enforces the lobby business rules over the raw Store:
// membership, host privilege and expiry visibility. It is the only
// surface the HTTP handlers and the session gateway call.
type Service struct {
	store  *Store
	logger *logrus.Logger
}

// NewService wraps store with the registry rules.
func NewService(store *Store, logger *logrus.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// CreateLobby allocates a lobby owned by hostID. The creator is always
// the host and its only initial member.
func (s *Service) CreateLobby(hostID string) (JoinInfo, error) {
	hostID = strings.TrimSpace(hostID)
	if hostID == "" {
		return JoinInfo{}, fmt.Errorf("%w: host_id is required", ErrValidation)
	}
	l, err := s.store.Create(hostID)
	if err != nil {
		return JoinInfo{}, fmt.Errorf("create lobby: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"lobby": l.Code,
		"host":  hostID,
	}).Info("lobby created")
	return JoinInfo{Code: l.Code, IsHost: true, PlayerCount: 1}, nil
}

// JoinLobby adds playerID to the lobby behind code. Rejoining is
// idempotent and reports the same membership as the first join. Host
// status falls out of a plain identifier comparison; identity here is
// cooperative, not cryptographic.
func (s *Service) JoinLobby(code, playerID string) (JoinInfo, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return JoinInfo{}, fmt.Errorf("%w: player_id is required", ErrValidation)
	}
	l, err := s.store.AddMember(code, playerID)
	if err != nil {
		return JoinInfo{}, err
	}
	s.logger.WithFields(logrus.Fields{
		"lobby":   l.Code,
		"player":  playerID,
		"players": l.PlayerCount(),
	}).Info("player joined lobby")
	return JoinInfo{
		Code:        l.Code,
		IsHost:      l.HostID == playerID,
		PlayerCount: l.PlayerCount(),
		Spin:        l.State(),
	}, nil
}

// LeaveLobby removes playerID from the lobby. Late or duplicate leaves
// are silent no-ops; the second return reports whether a live lobby
// remains to notify.
func (s *Service) LeaveLobby(code, playerID string) (JoinInfo, bool) {
	l, err := s.store.RemoveMember(code, playerID)
	if err != nil {
		return JoinInfo{}, false
	}
	s.logger.WithFields(logrus.Fields{
		"lobby":   l.Code,
		"player":  playerID,
		"players": l.PlayerCount(),
	}).Info("player left lobby")
	return JoinInfo{Code: l.Code, PlayerCount: l.PlayerCount()}, true
}

// SubmitSpin stores a spin outcome authored by playerID and returns the
// state to fan out. Only the lobby's host may author a spin.
func (s *Service) SubmitSpin(code, playerID string, spin Spin) (Spin, error) {
	if len(spin.Restaurants) == 0 && len(spin.SelectedRestaurant) == 0 {
		return Spin{}, fmt.Errorf("%w: spin carries no restaurants", ErrValidation)
	}
	l, ok := s.store.Get(code)
	if !ok {
		return Spin{}, ErrNotFound
	}
	if l.HostID != playerID {
		s.logger.WithFields(logrus.Fields{
			"lobby":  l.Code,
			"player": playerID,
		}).Warn("non-host spin rejected")
		return Spin{}, ErrForbidden
	}
	updated, err := s.store.RecordSpin(code, spin)
	if err != nil {
		return Spin{}, err
	}
	s.logger.WithFields(logrus.Fields{
		"lobby":    updated.Code,
		"location": updated.Location,
		"mood":     updated.Mood,
	}).Info("spin recorded")
	return updated.State(), nil
}

// LobbyInfo summarizes a live lobby for the info endpoint.
func (s *Service) LobbyInfo(code string) (Info, error) {
	l, ok := s.store.Get(code)
	if !ok {
		return Info{}, ErrNotFound
	}
	return Info{
		Code:           l.Code,
		HostID:         l.HostID,
		PlayerCount:    l.PlayerCount(),
		HasRestaurants: len(l.Restaurants) > 0,
		HasSelection:   len(l.SelectedRestaurant) > 0,
		Location:       l.Location,
		Mood:           l.Mood,
	}, nil
}
