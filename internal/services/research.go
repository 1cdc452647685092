package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Enkhtuvshin02/realstateagent/internal/analyzer"
)

const (
	tavilyEndpoint   = "https://api.tavily.com/search"
	tavilyMaxResults = 5

	// Rune caps on the search text handed to the summarizer. The sweep
	// combines several queries so it gets more room.
	summaryInputMax = 3000
	sweepInputMax   = 4000
)

// Messages surfaced when a research step cannot deliver. They end up
// inside report sections, so they are user-facing Mongolian.
const (
	searchFailedMsg  = "Интернэт хайлт хийхэд алдаа гарлаа."
	noSearchDataMsg  = "Интернэт хайлтаас мэдээлэл олдсонгүй."
	summaryFailedMsg = "Хайлтын үр дүнг боловсруулахад алдаа гарлаа."
	summaryEmptyMsg  = "Хайлтын үр дүнгээс мэдээлэл боловсруулж чадсангүй."
)

// Canned queries the report generators run. The year tokens keep the
// engine anchored to recent coverage.
const districtTrendsQuery = "Улаанбаатар орон сууцны зах зээл үнэ чиглэл 2024 2025 дүүрэг харьцуулалт"

var marketSweepQueries = []string{
	"Улаанбаатар орон сууцны зах зээл 2024 2025 статистик",
	"Монгол орон сууцны үнэ өсөлт чиглэл",
	"Улаанбаатар шинэ хорооллын орон сууц",
	"Монгол үл хөдлөх хөрөнгийн зээл ипотек",
}

func propertyTrendsQuery(district string) string {
	return fmt.Sprintf("Улаанбаатар %s дүүрэг орон сууцны зах зээл үнэ 2024 2025", district)
}

const (
	propertySummarySystem = "Та бол үл хөдлөх хөрөнгийн шинжээч. Интернэт хайлтын үр дүнгээс орон сууцны зах зээлийн чухал мэдээллийг Монгол хэлээр нэгтгэн харуулна уу. Зөвхөн хамгийн чухал мэдээллийг товч тодорхой байдлаар бичнэ үү."
	propertySummaryHuman  = "Интернэт хайлтын үр дүн: %s\n\nОрон сууцны зах зээлийн талаарх чухал мэдээллийг Монгол хэлээр нэгтгэн харуулна уу."

	marketSummarySystem = "Та бол үл хөдлөх хөрөнгийн зах зээлийн шинжээч. Интернэт хайлтын үр дүнгээс Улаанбаатар хотын орон сууцны зах зээлийн ерөнхий чиг хандлагыг Монгол хэлээр нэгтгэн харуулна уу."
	marketSummaryHuman  = "Интернэт хайлтын үр дүн: %s\n\nУлаанбаатар хотын орон сууцны зах зээлийн чиг хандлагын талаарх мэдээллийг Монгол хэлээр нэгтгэн харуулна уу."

	sweepSummarySystem = `Та бол үл хөдлөх хөрөнгийн зах зээлийн мэргэжилтэн. Олон хайлтын үр дүнгээс Улаанбаатар хотын орон сууцны зах зээлийн дэлгэрэнгүй шинжилгээг Монгол хэлээр хийнэ үү.

Дараах зүйлсийг тусгана уу:
- Одоогийн зах зээлийн нөхцөл байдал
- Үнийн динамик ба чиглэл
- Шинэ хөгжлийн төслүүд
- Санхүүжилтийн нөхцөл
- Ирээдүйн таамаглал

Зөвхөн Монгол хэлээр, мэргэжлийн дүн шинжилгээ хийнэ үү.`
	sweepSummaryHuman = "Интернэт хайлтын үр дүнгүүд: %s\n\nЭдгээр мэдээллээс Улаанбаатар хотын орон сууцны зах зээлийн дэлгэрэнгүй шинжилгээг Монгол хэлээр хийнэ үү."
)

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
	MaxResults    int    `json:"max_results"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Research looks up current market coverage through the Tavily search
// API and condenses the hits into Mongolian summaries for chat context
// and report sections. Without an API key every search returns empty
// text and the callers degrade to their offline content.
type Research struct {
	apiKey   string
	endpoint string
	client   *http.Client
	llm      analyzer.TextGenerator
}

func NewResearch(apiKey string, llm analyzer.TextGenerator) *Research {
	return &Research{
		apiKey:   apiKey,
		endpoint: tavilyEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		llm:      llm,
	}
}

// Enabled reports whether web search is configured.
func (r *Research) Enabled() bool {
	return r.apiKey != ""
}

// Search runs one query and flattens the hits into "title: content"
// lines, the engine's own answer first when it produced one. Returns
// empty text without error when search is not configured.
func (r *Research) Search(ctx context.Context, query string) (string, error) {
	if !r.Enabled() {
		return "", nil
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:        r.apiKey,
		Query:         query,
		SearchDepth:   "advanced",
		IncludeAnswer: true,
		MaxResults:    tavilyMaxResults,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	var b strings.Builder
	if parsed.Answer != "" {
		b.WriteString(parsed.Answer)
		b.WriteString("\n")
	}
	for _, hit := range parsed.Results {
		if hit.Content == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", hit.Title, hit.Content)
	}
	return strings.TrimSpace(b.String()), nil
}

// Summarize condenses raw search text into a short Mongolian summary,
// slanted at a single property or at the whole market depending on the
// report type.
func (r *Research) Summarize(ctx context.Context, searchText, reportType string) string {
	if reportType == ReportTypeProperty {
		return r.condense(ctx, propertySummarySystem, propertySummaryHuman, searchText, summaryInputMax)
	}
	return r.condense(ctx, marketSummarySystem, marketSummaryHuman, searchText, summaryInputMax)
}

// MarketSweep runs the canned multi-query market sweep behind
// comprehensive reports and condenses the combined hits. Empty result
// means nothing usable came back and the report should drop the
// research section.
func (r *Research) MarketSweep(ctx context.Context) string {
	if !r.Enabled() {
		return ""
	}

	var combined strings.Builder
	for _, query := range marketSweepQueries {
		text, err := r.Search(ctx, query)
		if err != nil {
			log.Printf("Market sweep query %q failed: %v", query, err)
			continue
		}
		if text != "" {
			combined.WriteString(text)
			combined.WriteString("\n")
		}
	}

	if strings.TrimSpace(combined.String()) == "" {
		return ""
	}
	return r.condense(ctx, sweepSummarySystem, sweepSummaryHuman, combined.String(), sweepInputMax)
}

func (r *Research) condense(ctx context.Context, system, humanFmt, searchText string, limit int) string {
	if strings.TrimSpace(searchText) == "" {
		return noSearchDataMsg
	}

	summary, err := r.llm.Generate(ctx, system, fmt.Sprintf(humanFmt, capRunes(searchText, limit)))
	if err != nil {
		log.Printf("Search summary generation failed: %v", err)
		return summaryFailedMsg
	}
	if strings.TrimSpace(summary) == "" {
		return summaryEmptyMsg
	}
	return summary
}

func capRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
