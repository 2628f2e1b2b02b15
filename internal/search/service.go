// internal/search/service.go
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/restaurant-roulette/server/internal/models"
)

// Result is the search proxy's reply in the shape the wheel UI consumes.
type Result struct {
	Success          bool                `json:"success"`
	Location         string              `json:"location"`
	Mood             string              `json:"mood"`
	TotalRestaurants int                 `json:"total_restaurants"`
	Restaurants      []models.Restaurant `json:"restaurants"`
	Timestamp        string              `json:"timestamp"`
}

// Service fronts a Provider with an optional cache. The host's browser
// calls this before spinning; the lobby relay never does.
type Service struct {
	provider Provider
	cache    Cache
	logger   *logrus.Logger
}

// NewService wires a provider and an optional cache. Pass a nil cache
// to always hit the provider.
func NewService(provider Provider, cache Cache, logger *logrus.Logger) *Service {
	return &Service{provider: provider, cache: cache, logger: logger}
}

// Search returns restaurant candidates for (location, mood), serving
// from cache when a fresh entry exists.
func (s *Service) Search(ctx context.Context, location, mood string) (Result, error) {
	if s.cache != nil {
		if restaurants, ok := s.cache.GetSearch(ctx, location, mood); ok {
			s.logger.WithFields(logrus.Fields{
				"location": location,
				"mood":     mood,
			}).Debug("search cache hit")
			return s.result(location, mood, restaurants), nil
		}
	}

	restaurants, err := s.provider.Search(ctx, location, mood)
	if err != nil {
		return Result{}, fmt.Errorf("search provider: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"location": location,
		"mood":     mood,
		"results":  len(restaurants),
	}).Info("search provider queried")

	if s.cache != nil {
		s.cache.SetSearch(ctx, location, mood, restaurants)
	}
	return s.result(location, mood, restaurants), nil
}

func (s *Service) result(location, mood string, restaurants []models.Restaurant) Result {
	return Result{
		Success:          true,
		Location:         location,
		Mood:             mood,
		TotalRestaurants: len(restaurants),
		Restaurants:      restaurants,
		Timestamp:        time.Now().Format(time.RFC3339),
	}
}
