// Package scraper pulls apartment listings off unegui.mn, both the
// per-district search pages and individual listing detail pages.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/Enkhtuvshin02/realstateagent/internal/analyzer"
	"github.com/Enkhtuvshin02/realstateagent/internal/models"
)

// ErrNotUnegui is returned for property URLs pointing anywhere else.
var ErrNotUnegui = errors.New("scraper: URL is not a unegui.mn listing")

// DistrictPaths maps canonical district names to their listing path
// segments on the site. The line view keeps card markup stable.
var DistrictPaths = map[string]string{
	"Баянзүрх":       "ub-bayanzrh/?type_view=line",
	"Сүхбаатар":      "ulan-bator/?type_view=line",
	"Баянгол":        "ub-bayangol/?type_view=line",
	"Чингэлтэй":      "ub-chingeltej/?type_view=line",
	"Хан-Уул":        "ub-hanuul/?type_view=line",
	"Сонгинохайрхан": "ub-songinohajrhan/?type_view=line",
	"Багануур":       "ub-baganuur/?type_view=line",
	"Багахангай":     "ub-bagahangaj/?type_view=line",
	"Налайх":         "ub-nalajh/?type_view=line",
}

// Feature table headers on detail pages, keyed by the Mongolian label
// the site renders.
var featureTranslations = map[string]string{
	"Шал":                   "Floor",
	"Тагт":                  "Balcony",
	"Ашиглалтанд орсон он":  "Year Built",
	"Гараж":                 "Garage",
	"Цонх":                  "Window Type",
	"Барилгын давхар":       "Building Floors",
	"Хаалга":                "Door Type",
	"Талбай":                "Area",
	"Хэдэн давхарт":         "Floor Number",
	"Төлбөрийн нөхцөл":      "Payment Terms",
	"Цонхны тоо":            "Number of Windows",
	"Барилгын явц":          "Construction Status",
	"Цахилгаан шаттай эсэх": "Has Elevator",
	"Өрөөний тоо":           "Rooms",
}

// Locations render as "УБ — Сүхбаатар, 100 айл"; the district sits
// between the dash and the first comma.
const locationSeparator = "—"

var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+\.?\d*)\s*сая\s*₮`),
	regexp.MustCompile(`(?i)(\d+\.?\d*)\s*тэрбум\s*₮`),
	regexp.MustCompile(`(\d+[\s,\d]*)\s*₮`),
}

type Scraper struct {
	client  *http.Client
	baseURL string
}

func New(baseURL string) *Scraper {
	return &Scraper{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
	}
}

func (s *Scraper) fetch(ctx context.Context, url string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; realstateagent/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", url, err)
	}
	return doc, nil
}

// PropertyDetails fetches and parses one listing detail page.
func (s *Scraper) PropertyDetails(ctx context.Context, url string) (*models.PropertyDetails, error) {
	if !strings.Contains(url, "unegui.mn") {
		return nil, ErrNotUnegui
	}

	doc, err := s.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return parseDetails(doc, url), nil
}

// DistrictListings scrapes up to the given number of pages of one
// district's listings. Cards that fail to parse are skipped.
func (s *Scraper) DistrictListings(ctx context.Context, district string, pages int) ([]models.Listing, error) {
	path, ok := DistrictPaths[district]
	if !ok {
		return nil, fmt.Errorf("unknown district %q", district)
	}
	if pages < 1 {
		pages = 1
	}

	var listings []models.Listing
	for page := 1; page <= pages; page++ {
		url := s.baseURL + path
		if page > 1 {
			url += fmt.Sprintf("&page=%d", page)
		}

		doc, err := s.fetch(ctx, url)
		if err != nil {
			// Later pages failing should not throw away what the
			// earlier ones returned.
			if page == 1 {
				return nil, err
			}
			return listings, nil
		}

		for _, card := range findAll(doc, byClass("div", "js-item-listing")) {
			l := parseListingCard(card)
			l.District = district
			listings = append(listings, l)
		}

		if page < pages {
			select {
			case <-ctx.Done():
				return listings, ctx.Err()
			case <-time.After(time.Second):
			}
		}
	}
	return listings, nil
}

func parseDetails(doc *html.Node, url string) *models.PropertyDetails {
	details := &models.PropertyDetails{URL: url, PriceRaw: "N/A"}

	if title := findFirst(doc, byClass("h1", "title-announcement")); title != nil {
		details.Title = textContent(title)
	}

	if location := findFirst(doc, byAttr("span", "itemprop", "address")); location != nil {
		details.FullLocation = textContent(location)
		details.District = districtFromLocation(details.FullLocation)
	}

	details.Price, details.PriceRaw = extractDetailPrice(doc)

	details.Features = extractFeatures(doc)

	if area, ok := analyzer.ParseArea(details.Features["Area"]); ok {
		details.AreaSqm = area
	} else if area, ok := analyzer.AreaFromTitle(details.Title); ok {
		details.AreaSqm = area
	}

	if rooms, ok := analyzer.ParseRooms(details.Features["Rooms"]); ok {
		details.RoomCount = rooms
	} else if rooms, ok := analyzer.RoomsFromTitle(details.Title); ok {
		details.RoomCount = rooms
	}

	if details.Price > 0 && details.AreaSqm > 0 {
		details.PricePerSqm = details.Price / details.AreaSqm
	}

	if date := findFirst(doc, byClass("span", "date-meta")); date != nil {
		details.PublishedDate = textContent(date)
	}
	if sku := findFirst(doc, byAttr("span", "itemprop", "sku")); sku != nil {
		details.AdNumber = textContent(sku)
	}

	return details
}

// extractDetailPrice tries the structured data-price attribute first,
// then the known price containers, then a last-resort scan of the page
// text.
func extractDetailPrice(doc *html.Node) (float64, string) {
	if section := findFirst(doc, byAttrPresent("section", "data-price")); section != nil {
		if raw, ok := attrValue(section, "data-price"); ok {
			if price, err := strconv.ParseFloat(raw, 64); err == nil && price > 0 {
				return price, analyzer.GroupDigits(int(price)) + " ₮"
			}
		}
	}

	containers := []func(*html.Node) bool{
		byClass("div", "announcement-price__cost"),
		byClass("span", "announcement-price"),
		byClass("div", "price-container"),
		byClass("div", "announcement__content-price"),
		byClass("span", "advert__content-price"),
	}
	for _, match := range containers {
		if node := findFirst(doc, match); node != nil {
			raw := textContent(node)
			if price, ok := analyzer.ParsePrice(raw); ok {
				return price, raw
			}
		}
	}

	pageText := textContent(doc)
	for _, re := range pricePatterns {
		if raw := re.FindString(pageText); raw != "" {
			if price, ok := analyzer.ParsePrice(raw); ok {
				return price, raw
			}
		}
	}
	return 0, "N/A"
}

func extractFeatures(doc *html.Node) map[string]string {
	features := make(map[string]string, len(featureTranslations))
	for _, key := range featureTranslations {
		features[key] = "N/A"
	}

	chars := findFirst(doc, byClass("ul", "chars-column"))
	if chars == nil {
		return features
	}

	for _, li := range findAll(chars, byTag("li")) {
		keyNode := findFirst(li, byClass("span", "key-chars"))
		valueNode := findFirst(li, byClass("span", "value-chars"))
		if valueNode == nil {
			valueNode = findFirst(li, byClass("a", "value-chars"))
		}
		if keyNode == nil || valueNode == nil {
			continue
		}

		key := strings.TrimSuffix(strings.TrimSpace(textContent(keyNode)), ":")
		for mongolian, english := range featureTranslations {
			if key == strings.TrimSuffix(mongolian, ":") {
				features[english] = textContent(valueNode)
				break
			}
		}
	}
	return features
}

func parseListingCard(card *html.Node) models.Listing {
	var l models.Listing

	if title := findFirst(card, byClass("a", "advert__content-title")); title != nil {
		l.Title = textContent(title)
		if href, ok := attrValue(title, "href"); ok {
			l.URL = href
		}
	}

	priceNode := findFirst(card, byClass("span", "advert__content-price"))
	if priceNode == nil {
		priceNode = findFirst(card, byClass("a", "advert__content-price"))
	}
	if priceNode != nil {
		if price, ok := analyzer.ParsePrice(textContent(priceNode)); ok {
			l.Price = price
		}
	}

	if place := findFirst(card, byClass("div", "advert__content-place")); place != nil {
		l.District = districtFromLocation(textContent(place))
	}

	if area, ok := analyzer.AreaFromTitle(l.Title); ok {
		l.AreaSqm = area
	}
	if rooms, ok := analyzer.RoomsFromTitle(l.Title); ok {
		l.RoomCount = rooms
	}

	if l.Price > 0 && l.AreaSqm > 0 {
		l.PricePerSqm = l.Price / l.AreaSqm
	}
	return l
}

func districtFromLocation(location string) string {
	if !strings.Contains(location, locationSeparator) {
		return ""
	}
	parts := strings.SplitN(location, locationSeparator, 2)
	district, _, _ := strings.Cut(strings.TrimSpace(parts[1]), ",")
	return strings.TrimSpace(district)
}
