package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Enkhtuvshin02/realstateagent/internal/models"
	"github.com/Enkhtuvshin02/realstateagent/internal/validate"
)

// TextGenerator produces a completion for a prompt pair. Satisfied by
// the LLM clients in the services package.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// ErrNoDistrict is returned when a query names no recognizable
// district, so callers can fall back to general search.
var ErrNoDistrict = errors.New("analyzer: no district name in query")

const (
	statsKey      = "district:stats"
	statsMaxAge   = 7 * 24 * time.Hour
	maxLLMRetries = 3
)

// Canonical district names keyed by the spellings users actually type,
// including unaccented and Latin transliterations.
var districtVariations = []struct {
	spelling  string
	canonical string
}{
	{"сонгинохайрхан", "Сонгинохайрхан"},
	{"багахангай", "Багахангай"},
	{"баянзүрх", "Баянзүрх"},
	{"баянзурх", "Баянзүрх"},
	{"сүхбаатар", "Сүхбаатар"},
	{"сухбаатар", "Сүхбаатар"},
	{"чингэлтэй", "Чингэлтэй"},
	{"чингэлтэи", "Чингэлтэй"},
	{"баянгол", "Баянгол"},
	{"багануур", "Багануур"},
	{"хан-уул", "Хан-Уул"},
	{"хан уул", "Хан-Уул"},
	{"хануул", "Хан-Уул"},
	{"khan-uul", "Хан-Уул"},
	{"khan uul", "Хан-Уул"},
	{"khanuul", "Хан-Уул"},
	{"налайх", "Налайх"},
}

var districtDescriptions = map[string]string{
	"Хан-Уул":        "Хан-Уул дүүрэг нь Улаанбаатар хотын баруун урд байрладаг. Энэ дүүрэг нь орон сууцны үнэ харьцангуй өндөр байдаг.",
	"Баянгол":        "Баянгол дүүрэг нь Улаанбаатар хотын төв хэсэгт ойр байрладаг. Энэ дүүрэг нь дундаж үнэтэй орон сууц элбэг.",
	"Сүхбаатар":      "Сүхбаатар дүүрэг нь хотын хамгийн үнэтэй бүсүүдийн нэг бөгөөд төвдөө ойрхон.",
	"Чингэлтэй":      "Чингэлтэй дүүрэг нь хотын төв хэсэгт оршдог.",
	"Баянзүрх":       "Баянзүрх дүүрэг нь Улаанбаатар хотын хамгийн том дүүрэг бөгөөд олон янзын орон сууцтай.",
	"Сонгинохайрхан": "Сонгинохайрхан дүүрэг нь хотын баруун хэсэгт байрладаг том дүүрэг.",
	"Багануур":       "Багануур дүүрэг нь хотын зүүн хэсэгт байрладаг.",
	"Налайх":         "Налайх дүүрэг нь хотын зүүн урд хэсэгт байрладаг.",
	"Багахангай":     "Багахангай дүүрэг нь хотын хойд хэсэгт байрладаг.",
}

var comparisonKeywords = []string{"харьцуул", "зэрэгцүүл", "бүх", "бүгд", "compare"}

var districtSuffixRe = regexp.MustCompile(`(\S+)\s*дүүр`)

// ExtractDistrict finds a canonical district name in free-form query
// text, tolerating common misspellings.
func ExtractDistrict(query string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(query))

	for _, v := range districtVariations {
		if strings.Contains(lower, v.spelling) {
			return v.canonical, true
		}
	}

	// "Сбд дүүрэг" style: take the word before "дүүрэг" and match it
	// against known spellings.
	if m := districtSuffixRe.FindStringSubmatch(lower); m != nil {
		part := strings.TrimSpace(m[1])
		for _, v := range districtVariations {
			if part == v.spelling || strings.Contains(v.spelling, part) {
				return v.canonical, true
			}
		}
	}
	return "", false
}

// IsComparisonQuery reports whether the user wants all districts
// compared rather than one analyzed.
func IsComparisonQuery(query string) bool {
	return containsAny(strings.ToLower(query), comparisonKeywords)
}

type statsSnapshot struct {
	Districts map[string]models.DistrictStats `json:"districts"`
	UpdatedAt time.Time                       `json:"updated_at"`
}

// District analyzes Ulaanbaatar district price levels from cached
// market statistics, falling back to a built-in reference table when
// no scrape has run yet.
type District struct {
	llm   TextGenerator
	cache *redis.Client
}

func NewDistrict(llm TextGenerator, cache *redis.Client) *District {
	return &District{llm: llm, cache: cache}
}

// Stats returns the current per-district statistics and when they were
// collected. A zero time means the built-in fallback table is in use.
func (d *District) Stats(ctx context.Context) (map[string]models.DistrictStats, time.Time) {
	raw, err := d.cache.Get(ctx, statsKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("District stats cache read failed: %v", err)
		}
		return StaticStats(), time.Time{}
	}

	var snap statsSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		log.Printf("District stats cache is corrupt, using fallback: %v", err)
		return StaticStats(), time.Time{}
	}
	if len(snap.Districts) == 0 {
		return StaticStats(), time.Time{}
	}
	return snap.Districts, snap.UpdatedAt
}

// StoreStats replaces the cached statistics with a fresh aggregation.
func (d *District) StoreStats(ctx context.Context, stats map[string]models.DistrictStats) error {
	raw, err := json.Marshal(statsSnapshot{Districts: stats, UpdatedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to encode district stats: %w", err)
	}
	if err := d.cache.Set(ctx, statsKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to store district stats: %w", err)
	}
	return nil
}

// CacheStatus reports how old the cached statistics are. Data older
// than a week counts as stale.
func (d *District) CacheStatus(ctx context.Context) models.CacheStatus {
	stats, updatedAt := d.Stats(ctx)
	if updatedAt.IsZero() {
		return models.CacheStatus{IsFresh: false, Districts: len(stats)}
	}

	age := time.Since(updatedAt)
	days := int(age.Hours() / 24)
	return models.CacheStatus{
		IsFresh:    age <= statsMaxAge,
		AgeDays:    &days,
		LastUpdate: &updatedAt,
		Districts:  len(stats),
	}
}

// Analyze answers a district question: a ranked comparison when the
// query asks for all districts, otherwise an LLM analysis of the one
// district named. Returns ErrNoDistrict when neither applies.
func (d *District) Analyze(ctx context.Context, query string) (string, error) {
	stats, _ := d.Stats(ctx)

	if IsComparisonQuery(query) {
		return CompareAll(stats), nil
	}

	name, ok := ExtractDistrict(query)
	if !ok {
		return "", ErrNoDistrict
	}

	st, ok := stats[name]
	if !ok {
		// Scrapes can miss the outer districts; the reference table
		// always has them.
		st, ok = StaticStats()[name]
		if !ok {
			return "", ErrNoDistrict
		}
	}
	return d.analyzeOne(ctx, st), nil
}

const districtSystemPrompt = "Та үл хөдлөх хөрөнгийн мэргэжлийн зөвлөх."

func districtPrompt(st models.DistrictStats) string {
	return fmt.Sprintf(`МЭДЭЭЛЭЛ:
%s

%s дүүргийн талаар дээрх мэдээллийг ашиглан ТОВЧ шинжилгээ хийнэ үү.

ЗААВАР:
1. Үнийн түвшин
2. Дүүргийн онцлог
3. Хөрөнгө оруулалтын боломж
4. Зөвлөмж

ШААРДЛАГА:
- Зөвхөн МОНГОЛ хэлээр бичнэ үү
- 200 үгээс хэтрэхгүй байх
- Давтан бичихгүй байх`, StatsDocument(st), st.Name)
}

func (d *District) analyzeOne(ctx context.Context, st models.DistrictStats) string {
	prompt := districtPrompt(st)

	for attempt := 0; attempt < maxLLMRetries; attempt++ {
		analysis, err := d.llm.Generate(ctx, districtSystemPrompt, prompt)
		if err != nil {
			log.Printf("District analysis attempt %d failed: %v", attempt+1, err)
			continue
		}
		if err := validate.Check(analysis); err != nil {
			log.Printf("District analysis attempt %d rejected: %v", attempt+1, err)
			continue
		}
		return validate.Clean(analysis)
	}
	return fallbackAnalysis(st)
}

// fallbackAnalysis is the answer of last resort when the model keeps
// producing unusable output.
func fallbackAnalysis(st models.DistrictStats) string {
	return fmt.Sprintf(`**%s дүүргийн шинжилгээ**

**Үнийн түвшин:**
- Нийт дундаж үнэ: %s төгрөг/м²
- 2 өрөө байрны дундаж: %s төгрөг/м²

**Дүүргийн онцлог:**
%s

**Зөвлөмж:**
Дэлгэрэнгүй мэдээлэл авахын тулд зах зээлийн судалгаа хийхийг зөвлөж байна.`,
		st.Name, GroupDigits(int(st.OverallAvg)), GroupDigits(int(st.TwoRoomAvg)), describeDistrict(st.Name))
}

func describeDistrict(name string) string {
	if desc, ok := districtDescriptions[name]; ok {
		return desc
	}
	return fmt.Sprintf("%s дүүрэг нь Улаанбаатар хотын нэгэн дүүрэг.", name)
}

// CompareAll ranks districts from most to least expensive without
// involving the model, the numbers speak for themselves.
func CompareAll(stats map[string]models.DistrictStats) string {
	ranked := make([]models.DistrictStats, 0, len(stats))
	for _, st := range stats {
		if st.OverallAvg > 0 {
			ranked = append(ranked, st)
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].OverallAvg > ranked[j].OverallAvg })

	var b strings.Builder
	b.WriteString("**Улаанбаатар хотын дүүргүүдийн орон сууцны үнийн харьцуулалт:**\n\n")
	for i, st := range ranked {
		if i >= 8 {
			break
		}
		fmt.Fprintf(&b, "**%d. %s дүүрэг:**\n", i+1, st.Name)
		fmt.Fprintf(&b, "   • Ерөнхий дундаж: %s₮/м²\n", GroupDigits(int(st.OverallAvg)))
		if st.TwoRoomAvg > 0 {
			fmt.Fprintf(&b, "   • 2 өрөө: %s₮/м²\n", GroupDigits(int(st.TwoRoomAvg)))
		}
		if st.ThreeRoomAvg > 0 {
			fmt.Fprintf(&b, "   • 3 өрөө: %s₮/м²\n", GroupDigits(int(st.ThreeRoomAvg)))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// StatsDocument renders one district's numbers as the plain text block
// fed to prompts and reports.
func StatsDocument(st models.DistrictStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Дүүрэг: %s\n", st.Name)
	fmt.Fprintf(&b, "Нийт байрны 1м2 дундаж үнэ: %s\n", formatAvg(st.OverallAvg))
	fmt.Fprintf(&b, "2 өрөө байрны 1м2 дундаж үнэ: %s\n", formatAvg(st.TwoRoomAvg))
	fmt.Fprintf(&b, "3 өрөө байрны 1м2 дундаж үнэ: %s\n", formatAvg(st.ThreeRoomAvg))
	b.WriteString(describeDistrict(st.Name))
	if st.Listings > 0 {
		fmt.Fprintf(&b, "\nЦуглуулсан өгөгдөл: %d орон сууц (2 өрөө: %d, 3 өрөө: %d)",
			st.Listings, st.TwoRoomCount, st.ThreeRoomCount)
	}
	if !st.CollectedAt.IsZero() {
		fmt.Fprintf(&b, "\nДата цуглуулсан огноо: %s", st.CollectedAt.Format("2006-01-02 15:04"))
	}
	return b.String()
}

func formatAvg(avg float64) string {
	if avg <= 0 {
		return "мэдээлэл байхгүй"
	}
	return GroupDigits(int(avg)) + " төгрөг"
}

// GroupDigits renders an integer with space-separated thousands, the
// Mongolian convention for prices.
func GroupDigits(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// StaticStats is the reference price table used until a scrape
// succeeds. Two room apartments trade slightly above and three room
// slightly below each district's overall average.
func StaticStats() map[string]models.DistrictStats {
	overall := map[string]float64{
		"Сүхбаатар":      4_500_000,
		"Хан-Уул":        4_000_000,
		"Чингэлтэй":      3_800_000,
		"Баянгол":        3_500_000,
		"Баянзүрх":       3_200_000,
		"Сонгинохайрхан": 2_800_000,
		"Багануур":       2_200_000,
		"Налайх":         2_000_000,
	}

	stats := make(map[string]models.DistrictStats, len(overall))
	for name, avg := range overall {
		stats[name] = models.DistrictStats{
			Name:         name,
			OverallAvg:   avg,
			TwoRoomAvg:   avg + 100_000,
			ThreeRoomAvg: avg - 100_000,
			Description:  districtDescriptions[name],
		}
	}
	return stats
}
