package analyzer

import (
	"strings"
	"time"

	"github.com/Enkhtuvshin02/realstateagent/internal/models"
)

// Keyword filters for separating apartment listings from the parking
// spots, land plots and commercial space that share the same category
// on the listing site.
var (
	definiteExclusions = []string{
		"зогсоол", "газар", "агуулах", "үйлдвэр", "гараж",
		"хүлэмж", "зуслан", "night club", "автозасвар",
		"эмнэлэг", "салон", "тоот", "амралт",
	}
	apartmentIndicators = []string{
		"өрөө байр", "орон сууц", "апартмент", "мкв", "м²",
		"дуплекс", "студи", "пентхаус",
	}
	houseIndicators      = []string{"хашаа байшин", "байшин", "аос", "хаус"}
	commercialIndicators = []string{"оффис", "үйлчилгээ", "барилга", "дэлгүүр", "объект"}
)

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// IsResidential reports whether a listing looks like a genuine
// apartment sale with plausible numbers, the only kind of listing the
// district averages should include.
func IsResidential(l models.Listing) bool {
	title := strings.ToLower(l.Title)

	if l.RoomCount < 1 || l.RoomCount > 10 {
		return false
	}
	if containsAny(title, definiteExclusions) {
		return false
	}

	// Without an explicit apartment marker, houses and commercial
	// space still slip through on room count alone.
	if !containsAny(title, apartmentIndicators) {
		if containsAny(title, houseIndicators) || containsAny(title, commercialIndicators) {
			return false
		}
	}

	if l.AreaSqm < 15 || l.AreaSqm > 500 {
		return false
	}
	if l.PricePerSqm < 500_000 || l.PricePerSqm > 20_000_000 {
		return false
	}
	return true
}

type priceAccumulator struct {
	total float64
	count int
}

func (a *priceAccumulator) add(v float64) {
	a.total += v
	a.count++
}

func (a priceAccumulator) avg() float64 {
	if a.count == 0 {
		return 0
	}
	return a.total / float64(a.count)
}

// Aggregate rolls residential listings up into per-district average
// prices per square meter, tracked overall and separately for two and
// three room apartments.
func Aggregate(listings []models.Listing, now time.Time) map[string]models.DistrictStats {
	type districtAcc struct {
		overall   priceAccumulator
		twoRoom   priceAccumulator
		threeRoom priceAccumulator
	}
	accs := make(map[string]*districtAcc)

	for _, l := range listings {
		if !IsResidential(l) || l.District == "" {
			continue
		}
		acc, ok := accs[l.District]
		if !ok {
			acc = &districtAcc{}
			accs[l.District] = acc
		}
		acc.overall.add(l.PricePerSqm)
		switch l.RoomCount {
		case 2:
			acc.twoRoom.add(l.PricePerSqm)
		case 3:
			acc.threeRoom.add(l.PricePerSqm)
		}
	}

	stats := make(map[string]models.DistrictStats, len(accs))
	for district, acc := range accs {
		stats[district] = models.DistrictStats{
			Name:           district,
			OverallAvg:     acc.overall.avg(),
			TwoRoomAvg:     acc.twoRoom.avg(),
			ThreeRoomAvg:   acc.threeRoom.avg(),
			Listings:       acc.overall.count,
			TwoRoomCount:   acc.twoRoom.count,
			ThreeRoomCount: acc.threeRoom.count,
			Description:    districtDescriptions[district],
			CollectedAt:    now,
		}
	}
	return stats
}
