package models

import "time"

// DistrictStats holds aggregated apartment price data for one district.
// Prices are tögrög per square meter.
type DistrictStats struct {
	Name           string    `json:"name"`
	OverallAvg     float64   `json:"overall_avg"`
	TwoRoomAvg     float64   `json:"two_room_avg"`
	ThreeRoomAvg   float64   `json:"three_room_avg"`
	Listings       int       `json:"listings"`
	TwoRoomCount   int       `json:"two_room_count"`
	ThreeRoomCount int       `json:"three_room_count"`
	Description    string    `json:"description,omitempty"`
	CollectedAt    time.Time `json:"collected_at"`
}

// PropertyDetails is one parsed unegui.mn apartment listing.
type PropertyDetails struct {
	URL           string            `json:"url"`
	Title         string            `json:"title"`
	FullLocation  string            `json:"full_location"`
	District      string            `json:"district"`
	Price         float64           `json:"price_numeric"`
	PriceRaw      string            `json:"price_raw"`
	AreaSqm       float64           `json:"area_sqm"`
	RoomCount     int               `json:"room_count"`
	PricePerSqm   float64           `json:"price_per_sqm"`
	Features      map[string]string `json:"features,omitempty"`
	PublishedDate string            `json:"published_date,omitempty"`
	AdNumber      string            `json:"ad_number,omitempty"`
}

// Listing is a single row scraped from a district listing page. It
// carries just enough to feed the price aggregation.
type Listing struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	District    string  `json:"district"`
	Price       float64 `json:"price"`
	AreaSqm     float64 `json:"area_sqm"`
	RoomCount   int     `json:"room_count"`
	PricePerSqm float64 `json:"price_per_sqm"`
}

// CacheStatus describes the freshness of the district stats cache.
type CacheStatus struct {
	IsFresh    bool       `json:"is_fresh"`
	AgeDays    *int       `json:"age_days"`
	LastUpdate *time.Time `json:"last_update,omitempty"`
	Districts  int        `json:"districts"`
}
