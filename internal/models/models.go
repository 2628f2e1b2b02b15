// internal/models/models.go
package models

// Restaurant is the wire shape the wheel UI renders for one candidate.
// The lobby relay never inspects these fields; only the search proxy
// produces them.
type Restaurant struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Cuisine     string      `json:"cuisine"`
	PriceRange  string      `json:"price_range"`
	Rating      float64     `json:"rating"`
	ReviewCount int         `json:"review_count"`
	Address     string      `json:"address"`
	Phone       string      `json:"phone"`
	URL         string      `json:"url"`
	ImageURL    string      `json:"image_url"`
	Coordinates Coordinates `json:"coordinates"`
	Categories  []string    `json:"categories"`
	MoodMatch   string      `json:"mood_match"`
	Reviews     []Review    `json:"reviews"`
}

// Coordinates locates a restaurant on the map card.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Review is one customer review attached to a restaurant card.
type Review struct {
	UserName    string  `json:"user_name"`
	Rating      float64 `json:"rating"`
	Text        string  `json:"text"`
	Source      string  `json:"source"`
	URL         string  `json:"url"`
	TimeCreated string  `json:"time_created"`
}
