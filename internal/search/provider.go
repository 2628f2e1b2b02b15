// internal/search/provider.go
package search

import (
	"context"

	"github.com/restaurant-roulette/server/internal/models"
)

// Provider produces restaurant candidates for a location and mood. How
// candidates are found and ranked is entirely the provider's business;
// the server passes its order through untouched.
type Provider interface {
	Search(ctx context.Context, location, mood string) ([]models.Restaurant, error)
}

// Cache memoizes provider responses. A nil Cache disables memoization.
type Cache interface {
	GetSearch(ctx context.Context, location, mood string) ([]models.Restaurant, bool)
	SetSearch(ctx context.Context, location, mood string, restaurants []models.Restaurant)
}
