package places

import "time"

// Place is a mapped location with an accessibility summary and reaction
// counters maintained by the map front-end.
type Place struct {
	ID      string  `json:"place_id"`
	Name    string  `json:"name"`
	Address string  `json:"address,omitempty"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	// Accessibility is the latest model-ingested summary: feature flags,
	// confidence, model version, source and update time.
	Accessibility map[string]any `json:"accessibility,omitempty"`
	UpVotes       int            `json:"up_votes"`
	DownVotes     int            `json:"down_votes"`
	ImageURL      string         `json:"image_url,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NearbyPlace pairs a place with its distance from the query point.
type NearbyPlace struct {
	Place
	DistanceM float64 `json:"distance_m"`
}

// Reaction votes.
const (
	VoteUp   = "up"
	VoteDown = "down"
)
