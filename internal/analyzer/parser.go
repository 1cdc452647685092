package analyzer

import (
	"regexp"
	"strconv"
	"strings"
)

// Listing text on unegui.mn mixes Cyrillic and Latin unit markers, so
// the parsers here normalize before matching and reject values outside
// plausible apartment ranges.

var (
	decimalRe    = regexp.MustCompile(`\d+[.,]?\d*`)
	integerRe    = regexp.MustCompile(`\d+`)
	titleAreaRe  = regexp.MustCompile(`(\d+[.,]?\d*)\s*(?:мкв|м\.кв|кв\.?м|квм|м²|м2|mkv|m2|sqm|мк)`)
	titleRoomsRe = regexp.MustCompile(`(\d+)\s*(?:өрөө|oroo|room)`)
)

// ParseArea reads a floor area in square meters from a feature value
// such as "54.3 м²". Values outside 10..1000 are rejected.
func ParseArea(s string) (float64, bool) {
	if s == "" || s == "N/A" {
		return 0, false
	}

	cleaned := strings.ToLower(s)
	for _, unit := range []string{"м²", "мкв", "мк2", "мк", "m²", "sqm"} {
		cleaned = strings.ReplaceAll(cleaned, unit, "")
	}

	match := decimalRe.FindString(cleaned)
	if match == "" {
		return 0, false
	}
	area, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	if err != nil || area < 10 || area > 1000 {
		return 0, false
	}
	return area, true
}

// ParseRooms reads a room count from a feature value such as "3 өрөө".
// Values outside 1..10 are rejected.
func ParseRooms(s string) (int, bool) {
	if s == "" || s == "N/A" {
		return 0, false
	}

	match := integerRe.FindString(s)
	if match == "" {
		return 0, false
	}
	rooms, err := strconv.Atoi(match)
	if err != nil || rooms < 1 || rooms > 10 {
		return 0, false
	}
	return rooms, true
}

// ParsePrice reads a tögrög amount from display text. Listing prices
// come in three shapes: "250 сая ₮" (millions), "1.2 тэрбум ₮"
// (billions) and plain digit runs like "250 000 000 ₮".
func ParsePrice(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}

	cleaned := strings.ToLower(s)
	cleaned = strings.ReplaceAll(cleaned, "₮", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.TrimSpace(cleaned)

	multiplier := 1.0
	switch {
	case strings.Contains(cleaned, "сая"):
		multiplier = 1_000_000
	case strings.Contains(cleaned, "тэрбум"):
		multiplier = 1_000_000_000
	}

	match := decimalRe.FindString(cleaned)
	if match == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return value * multiplier, true
}

// AreaFromTitle pulls an area out of a listing headline, e.g.
// "Хан-Уулд 3 өрөө 72мкв байр". Headlines are the only area source on
// list pages, the detail page features are preferred when available.
func AreaFromTitle(title string) (float64, bool) {
	match := titleAreaRe.FindStringSubmatch(strings.ToLower(title))
	if match == nil {
		return 0, false
	}
	area, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", "."), 64)
	if err != nil || area < 10 || area > 1000 {
		return 0, false
	}
	return area, true
}

// RoomsFromTitle pulls a room count out of a listing headline.
func RoomsFromTitle(title string) (int, bool) {
	match := titleRoomsRe.FindStringSubmatch(strings.ToLower(title))
	if match == nil {
		return 0, false
	}
	rooms, err := strconv.Atoi(match[1])
	if err != nil || rooms < 1 || rooms > 10 {
		return 0, false
	}
	return rooms, true
}
