package analyzer

import (
	"math"
	"testing"
	"time"

	"github.com/Enkhtuvshin02/realstateagent/internal/models"
)

func validListing() models.Listing {
	return models.Listing{
		Title:       "Хан-Уулд 2 өрөө орон сууц зарна",
		District:    "Хан-Уул",
		Price:       220_000_000,
		AreaSqm:     55,
		RoomCount:   2,
		PricePerSqm: 4_000_000,
	}
}

func TestIsResidential(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*models.Listing)
		expected bool
	}{
		{"valid apartment", func(l *models.Listing) {}, true},
		{"parking spot", func(l *models.Listing) { l.Title = "Зогсоол зарна" }, false},
		{"land plot", func(l *models.Listing) { l.Title = "Газар зарна 700мкв" }, false},
		{"house without apartment marker", func(l *models.Listing) { l.Title = "Хашаа байшин зарна" }, false},
		{"office without apartment marker", func(l *models.Listing) { l.Title = "Оффис зарна" }, false},
		{"house wording but apartment marker", func(l *models.Listing) { l.Title = "Таун хаус маягийн орон сууц" }, true},
		{"zero rooms", func(l *models.Listing) { l.RoomCount = 0 }, false},
		{"too many rooms", func(l *models.Listing) { l.RoomCount = 12 }, false},
		{"area too small", func(l *models.Listing) { l.AreaSqm = 12 }, false},
		{"area too large", func(l *models.Listing) { l.AreaSqm = 600 }, false},
		{"price per sqm too low", func(l *models.Listing) { l.PricePerSqm = 300_000 }, false},
		{"price per sqm too high", func(l *models.Listing) { l.PricePerSqm = 25_000_000 }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := validListing()
			tc.mutate(&l)
			if got := IsResidential(l); got != tc.expected {
				t.Errorf("Expected %v, got %v for %+v", tc.expected, got, l)
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	now := time.Now()
	listings := []models.Listing{
		{Title: "2 өрөө орон сууц", District: "Хан-Уул", AreaSqm: 50, RoomCount: 2, PricePerSqm: 4_000_000},
		{Title: "2 өрөө орон сууц", District: "Хан-Уул", AreaSqm: 60, RoomCount: 2, PricePerSqm: 4_200_000},
		{Title: "3 өрөө орон сууц", District: "Хан-Уул", AreaSqm: 80, RoomCount: 3, PricePerSqm: 3_800_000},
		{Title: "1 өрөө орон сууц", District: "Баянгол", AreaSqm: 35, RoomCount: 1, PricePerSqm: 3_500_000},
		// Filtered out: parking and missing district.
		{Title: "Зогсоол зарна", District: "Хан-Уул", AreaSqm: 20, RoomCount: 1, PricePerSqm: 2_000_000},
		{Title: "2 өрөө орон сууц", District: "", AreaSqm: 50, RoomCount: 2, PricePerSqm: 4_000_000},
	}

	stats := Aggregate(listings, now)

	if len(stats) != 2 {
		t.Fatalf("Expected 2 districts, got %d", len(stats))
	}

	khanUul := stats["Хан-Уул"]
	if khanUul.Listings != 3 {
		t.Errorf("Expected 3 listings for Хан-Уул, got %d", khanUul.Listings)
	}
	if khanUul.TwoRoomCount != 2 || khanUul.ThreeRoomCount != 1 {
		t.Errorf("Expected 2/1 room splits, got %d/%d", khanUul.TwoRoomCount, khanUul.ThreeRoomCount)
	}
	if math.Abs(khanUul.OverallAvg-4_000_000) > 1 {
		t.Errorf("Expected overall avg 4000000, got %v", khanUul.OverallAvg)
	}
	if math.Abs(khanUul.TwoRoomAvg-4_100_000) > 1 {
		t.Errorf("Expected two-room avg 4100000, got %v", khanUul.TwoRoomAvg)
	}
	if khanUul.ThreeRoomAvg != 3_800_000 {
		t.Errorf("Expected three-room avg 3800000, got %v", khanUul.ThreeRoomAvg)
	}
	if !khanUul.CollectedAt.Equal(now) {
		t.Errorf("Expected CollectedAt %v, got %v", now, khanUul.CollectedAt)
	}
	if khanUul.Description == "" {
		t.Error("Expected a district description")
	}

	bayangol := stats["Баянгол"]
	if bayangol.Listings != 1 || bayangol.TwoRoomCount != 0 {
		t.Errorf("Expected 1 listing and no two-room data, got %+v", bayangol)
	}
	if bayangol.TwoRoomAvg != 0 {
		t.Errorf("Expected zero two-room avg, got %v", bayangol.TwoRoomAvg)
	}
}
