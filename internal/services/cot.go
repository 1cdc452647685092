package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Enkhtuvshin02/realstateagent/internal/analyzer"
)

// Analysis types the chain-of-thought agent can deepen.
const (
	AnalysisProperty   = "property_analysis"
	AnalysisDistrict   = "district_analysis"
	AnalysisComparison = "district_comparison"
	AnalysisMarket     = "market_analysis"
)

const (
	cotHeader        = "🧠 **Дэлгэрэнгүй шинжилгээний алхмууд:**"
	summarySeparator = "\n\n---\n\n**Хураангуй:**\n\n"
)

// cotStructure tells the model to emit the exact step shape the reply
// formatter parses into analysis blocks.
const cotStructure = `Format your entire answer EXACTLY like this, keeping the bold markers:

🧠 **Дэлгэрэнгүй шинжилгээний алхмууд:**

**Алхам 1. <алхмын гарчиг>.**
<2-3 өгүүлбэр бүхий тайлбар>

**Алхам 2. <алхмын гарчиг>.**
<тайлбар>

(continue numbering as needed)

**Гол дүгнэлтүүд:**
• <дүгнэлт>
• <дүгнэлт>

CRITICAL: Таны эцсийн хариулт БҮХЭЛДЭЭ МОНГОЛ хэлээр бичигдсэн байх ёстой.`

var cotSystemPrompts = map[string]string{
	AnalysisProperty: `You are a professional real estate analyst. From the provided data, reason step by step about the property: price per square meter versus the district average (state the numerical difference), location benefits and drawbacks, investment potential, and concrete recommendations. Use specific numbers and show clear reasoning (because of X, therefore Y).

` + cotStructure,

	AnalysisDistrict: `You are a real estate market analyst. From the provided data, reason step by step about the district: current price levels and trends, comparison to other districts, investment opportunities and risks, target buyers, and future outlook. Base the analysis strictly on the provided data.

` + cotStructure,

	AnalysisComparison: `You are a real estate market analyst. The provided data lists average prices for various districts. Reason step by step about the ranking: which districts are most and least expensive, how large the gaps are, and what that means for different buyers.

` + cotStructure,

	AnalysisMarket: `You are a real estate market researcher. From the provided web search data, reason step by step about the market: current conditions, price trends and their drivers, best investment opportunities, potential risks, and strategic recommendations for the next 6-12 months. Base the analysis strictly on the provided data.

` + cotStructure,
}

// CoT usage heuristics.
var (
	cotAlwaysTypes  = []string{MessagePropertyURL, MessageDistrictQuery, MessageMarketResearch}
	cotComplexTerms = []string{
		"дэлгэрэнгүй", "шинжилгээ", "хөрөнгө оруулалт", "харьцуулах",
		"зөвлөмж", "investment", "analysis", "compare", "detailed",
	}
	cotMinMessageLen      = 50
	cotComplexResponseLen = 150
)

// CoTStats is the usage counter snapshot served at /cot/stats.
type CoTStats struct {
	TotalRequests int64            `json:"total_requests"`
	Enhanced      int64            `json:"enhanced"`
	Skipped       int64            `json:"skipped"`
	Failed        int64            `json:"failed"`
	ByType        map[string]int64 `json:"by_type"`
}

// CoT deepens analytical replies with step-by-step reasoning before the
// short answer, in the shape the reply formatter understands.
type CoT struct {
	llm analyzer.TextGenerator

	mu       sync.Mutex
	requests int64
	enhanced int64
	skipped  int64
	failed   int64
	byType   map[string]int64
}

func NewCoT(llm analyzer.TextGenerator) *CoT {
	return &CoT{llm: llm, byType: make(map[string]int64)}
}

// ShouldApply decides whether a turn warrants chain-of-thought
// treatment. Analysis intents always qualify; general chat qualifies
// only when the message or reply looks substantial.
func ShouldApply(messageType, message, response string) bool {
	for _, t := range cotAlwaysTypes {
		if messageType == t {
			return true
		}
	}
	if containsAny(strings.ToLower(message), cotComplexTerms) {
		return true
	}
	if utf8.RuneCountInString(message) >= cotMinMessageLen {
		return true
	}
	return utf8.RuneCountInString(response) >= cotComplexResponseLen
}

// Enhance prefixes the original reply with detailed reasoning and keeps
// the original as the closing summary. The second return value reports
// whether the model-written reasoning is present.
func (c *CoT) Enhance(ctx context.Context, userQuery, original, analysisType string) (string, bool) {
	c.count(func() { c.requests++ })

	system, ok := cotSystemPrompts[analysisType]
	if !ok {
		log.Printf("cot: unknown analysis type %q, keeping original reply", analysisType)
		c.count(func() { c.skipped++ })
		return original, false
	}

	data, _ := json.MarshalIndent(map[string]string{
		"query":         userQuery,
		"response":      original,
		"analysis_type": analysisType,
	}, "", "  ")

	var b strings.Builder
	b.WriteString("Original User Query: ")
	b.WriteString(userQuery)
	b.WriteString("\nProvided Data for Analysis:\n")
	b.Write(data)
	b.WriteString("\n\nOriginal Summary (for context only, do not repeat):\n")
	b.WriteString(original)
	b.WriteString("\n\n---\nBased on the provided data, give your detailed step-by-step reasoning. Write your entire response in Mongolian language.")

	reasoning, err := c.llm.Generate(ctx, system, b.String())
	if err != nil {
		log.Printf("cot: enhancement failed for %s: %v", analysisType, err)
		c.count(func() { c.failed++ })
		return "**Дэлгэрэнгүй шинжилгээ:**\nУучлаарай, дэлгэрэнгүй шинжилгээг боловсруулахад алдаа гарлаа." +
			summarySeparator + original, false
	}

	c.count(func() {
		c.enhanced++
		c.byType[analysisType]++
	})
	return reasoning + summarySeparator + original, true
}

// Stats returns a copy of the usage counters.
func (c *CoT) Stats() CoTStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	byType := make(map[string]int64, len(c.byType))
	for k, v := range c.byType {
		byType[k] = v
	}
	return CoTStats{
		TotalRequests: c.requests,
		Enhanced:      c.enhanced,
		Skipped:       c.skipped,
		Failed:        c.failed,
		ByType:        byType,
	}
}

func (c *CoT) count(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}
