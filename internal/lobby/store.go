// internal/lobby/store.go
package lobby

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTTL is the inactivity window after which a lobby becomes
// unreachable.
const DefaultTTL = 30 * time.Minute

// Store manages active ephemeral lobbies in memory. It provides
// thread-safe access keyed by lobby code and knows nothing about
// transport or networking.
//
// Mutating methods return a snapshot of the lobby after the mutation, so
// callers never hold a pointer into state guarded by the store mutex.
type Store struct {
	mu      sync.Mutex
	lobbies map[string]*Lobby

	ttl    time.Duration
	now    func() time.Time // swappable for expiry tests
	logger *logrus.Logger
}

// NewStore initializes an empty Store with the default expiry window.
func NewStore(logger *logrus.Logger) *Store {
	return &Store{
		lobbies: make(map[string]*Lobby),
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  logger,
	}
}

// Create allocates a fresh lobby for hostID under a code no live lobby
// holds, with the host as the only member.
func (s *Store) Create(hostID string) (Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		code, err := GenerateCode()
		if err != nil {
			return Lobby{}, err
		}
		if existing, ok := s.lobbies[code]; ok && !s.expired(existing) {
			s.logger.Debugf("lobby code %s collided with a live lobby, regenerating", code)
			continue
		}
		now := s.now()
		l := &Lobby{
			Code:         code,
			HostID:       hostID,
			Players:      map[string]struct{}{hostID: {}},
			CreatedAt:    now,
			LastActivity: now,
		}
		s.lobbies[code] = l
		return l.snapshot(), nil
	}
}

// Get looks up a live lobby by code, case-insensitively. Expired entries
// are reaped on contact rather than by a background pass, so an idle
// lobby simply stops resolving once its window elapses.
func (s *Store) Get(code string) (Lobby, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.live(code)
	if !ok {
		return Lobby{}, false
	}
	return l.snapshot(), true
}

// AddMember joins playerID to the lobby and bumps its activity clock.
// Re-adding a present player is a no-op, so a reconnecting client can
// replay its join safely.
func (s *Store) AddMember(code, playerID string) (Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.live(code)
	if !ok {
		return Lobby{}, ErrNotFound
	}
	l.Players[playerID] = struct{}{}
	l.LastActivity = s.now()
	return l.snapshot(), nil
}

// RemoveMember drops playerID from the lobby. Removing a non-member is a
// no-op. The lobby itself is never deleted here, even when it empties:
// it waits for its host to return until expiry reaps it.
func (s *Store) RemoveMember(code, playerID string) (Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.live(code)
	if !ok {
		return Lobby{}, ErrNotFound
	}
	delete(l.Players, playerID)
	l.LastActivity = s.now()
	return l.snapshot(), nil
}

// RecordSpin overwrites the lobby's spin outcome and bumps its activity
// clock.
func (s *Store) RecordSpin(code string, spin Spin) (Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.live(code)
	if !ok {
		return Lobby{}, ErrNotFound
	}
	l.Restaurants = spin.Restaurants
	l.SelectedRestaurant = spin.SelectedRestaurant
	l.Location = spin.Location
	l.Mood = spin.Mood
	l.LastActivity = s.now()
	return l.snapshot(), nil
}

// Touch bumps the lobby's activity clock without other mutation.
func (s *Store) Touch(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.live(code)
	if !ok {
		return ErrNotFound
	}
	l.LastActivity = s.now()
	return nil
}

// Len reports the number of stored lobbies, expired entries included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lobbies)
}

// Sweep reclaims memory for expired lobbies and returns how many were
// removed. Lookups already hide expired lobbies, so sweeping is purely
// housekeeping.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for code, l := range s.lobbies {
		if s.expired(l) {
			delete(s.lobbies, code)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debugf("swept %d expired lobbies", removed)
	}
	return removed
}

// StartSweeper runs Sweep on a ticker until ctx is cancelled.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// live returns the lobby for code if it exists and has not expired.
// The caller must hold s.mu.
func (s *Store) live(code string) (*Lobby, bool) {
	code = Normalize(code)
	l, ok := s.lobbies[code]
	if !ok {
		return nil, false
	}
	if s.expired(l) {
		delete(s.lobbies, code)
		s.logger.Infof("lobby %s expired after %s of inactivity, reaped on lookup", code, s.ttl)
		return nil, false
	}
	return l, true
}

func (s *Store) expired(l *Lobby) bool {
	return s.now().Sub(l.LastActivity) > s.ttl
}
