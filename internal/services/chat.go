package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Enkhtuvshin02/realstateagent/internal/analyzer"
	"github.com/Enkhtuvshin02/realstateagent/internal/models"
	"github.com/Enkhtuvshin02/realstateagent/internal/validate"
)

// ErrEmptyMessage is returned for blank chat input.
var ErrEmptyMessage = errors.New("chat: empty message")

const (
	// offerTTL bounds how long a "Тайлан авах уу?" offer stays
	// answerable. propertyContextTTL keeps the last analyzed listing
	// around much longer; report generation applies its own staleness
	// window on top.
	offerTTL           = 30 * time.Minute
	propertyContextTTL = 24 * time.Hour

	historyLimit = 100

	// chatSearchContextMax caps the web search excerpt merged into chat
	// prompts. generalOfferMinLen is the reply length from which a
	// general answer is substantial enough to offer a report for.
	chatSearchContextMax = 500
	generalOfferMinLen   = 200
)

const (
	urlNotFoundMsg      = "URL олдсонгүй."
	fetchFailedMsg      = "Мэдээлэл татаж авахад алдаа гарлаа: %v"
	urlProcessFailedMsg = "URL боловсруулахад алдаа гарлаа: %v"
	districtUnknownMsg  = "Дүүргийн мэдээлэл тодорхойгүй байна."
	districtErrorMsg    = "Дүүргийн мэдээлэл боловсруулахад алдаа гарлаа. Дахин оролдоно уу."
	marketErrorMsg      = "Зах зээлийн судалгаа хийхэд алдаа гарлаа."
	searchErrorMsg      = "Хайлт хийхэд алдаа гарлаа. Дахин оролдоно уу."
	invalidReplyMsg     = "Уучлаарай, хариултыг боловсруулахад алдаа гарлаа. Дахин оролдоно уу."
	noPropertyDataMsg   = "Орон сууцны мэдээлэл байхгүй. Эхлээд орон сууцны холбоос илгээнэ үү."
	reportFailedMsg     = "Тайлан үүсгэхэд алдаа гарлаа: %v"
	offerDeclinedMsg    = "За, тайлан үүсгэхгүй. Өөр асуулт байвал бичээрэй."
)

const (
	propertyOfferMsg = "\n\n🏠 **Тайлан авах уу?**\nЭнэ орон сууцны дэлгэрэнгүй PDF тайлан авахыг хүсвэл **'Тиймээ'** гэж бичнэ үү."
	districtOfferMsg = "\n\n📊 **Тайлан авах уу?**\nДүүргийн харьцуулалтын PDF тайлан авахыг хүсвэл **'Тиймээ'** гэж бичнэ үү."
	marketOfferMsg   = "\n\n📈 **Тайлан авах уу?**\nЗах зээлийн дэлгэрэнгүй PDF тайлан авахыг хүсвэл **'Тиймээ'** гэж бичнэ үү."
	generalOfferMsg  = "\n\n📄 **Тайлан авах уу?**\nЭнэ мэдээллийн PDF тайлан авахыг хүсвэл **'Тиймээ'** гэж бичнэ үү."
)

const (
	propertyChatSystem = `Та бол үл хөдлөх хөрөнгийн мэргэжилтэн. Орон сууцны дэлгэрэнгүй шинжилгээг Монгол хэлээр хийнэ үү.

Дараах зүйлсийг тусгана уу:
1. Орон сууцны үндсэн мэдээлэл
2. Үнийн шинжилгээ ба тооцоолол
3. Дүүргийн зах зээлтэй харьцуулалт
4. Хөрөнгө оруулалтын боломж
5. Практик зөвлөмж

Зөвхөн Монгол хэлээр, дэлгэрэнгүй хариулна уу.`
	propertyChatHuman = "Хэрэглэгчийн асуулт: %s\n\nОрон сууцны мэдээлэл: %s\n\nДүүргийн шинжилгээ: %s\n\nНэмэлт контекст: %s\n\nОрон сууцны дэлгэрэнгүй шинжилгээг Монгол хэлээр хийнэ үү."

	districtChatSystem = `Та бол үл хөдлөх хөрөнгийн туслах. Дүүргийн шинжилгээг дэлгэрэнгүй тайлбарлана уу.

Дараах зүйлсийг тусгана уу:
1. Дүүргийн үнийн түвшин
2. Харьцуулалт бусад дүүргүүдтэй
3. Байршлын давуу тал
4. Хөрөнгө оруулалтын боломж
5. Ирээдүйн төлөв

Зөвхөн Монгол хэлээр хариулна уу.`
	districtChatHuman = "Хэрэглэгчийн асуулт: %s\n\nДүүргийн шинжилгээ: %s\n\nНэмэлт контекст: %s\n\nДүүргийн мэдээллийг дэлгэрэнгүй тайлбарлана уу."

	marketChatSystem = `Та бол үл хөдлөх хөрөнгийн зах зээлийн шинжээч. Интернэт хайлтын үр дүнд үндэслэн зах зээлийн шинжилгээ хийнэ үү.

Дараах зүйлсийг тусгана уу:
1. Одоогийн зах зээлийн нөхцөл
2. Үнийн чиглэл
3. Хөрөнгө оруулалтын боломж
4. Эрсдэл ба сорилт
5. Ирээдүйн төлөв

Зөвхөн Монгол хэлээр, мэргэжлийн шинжилгээ хийнэ үү.`
	marketChatHuman = "Хэрэглэгчийн асуулт: %s\n\nХайлтын үр дүн: %s\n\nЗах зээлийн шинжилгээг Монгол хэлээр хийнэ үү."

	generalChatSystem = `Та бол үл хөдлөх хөрөнгийн туслах. Хэрэглэгчийн асуултад интернэтээс хайсан мэдээлэлд үндэслэн хариулна уу.

Монгол улсын үл хөдлөх хөрөнгийн зах зээлд анхаарлаа хандуулна уу. Зөвхөн Монгол хэлээр хариулна уу.`
	generalChatHuman = "Асуулт: %s\nХайлтын үр дүн: %s"
)

// ListingFetcher pulls one listing's details from the source site.
// Satisfied by scraper.Scraper.
type ListingFetcher interface {
	PropertyDetails(ctx context.Context, url string) (*models.PropertyDetails, error)
}

// DistrictAnalyzer answers district questions from cached statistics.
// Satisfied by analyzer.District.
type DistrictAnalyzer interface {
	Analyze(ctx context.Context, query string) (string, error)
}

// MessageStore is the slice of the message repository the chat service
// needs.
type MessageStore interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.ChatMessage, error)
}

// offerState is a session's pending report offer, stored in Redis until
// it is accepted, declined or expires.
type offerState struct {
	ReportType string `json:"report_type"`
	Query      string `json:"query,omitempty"`
}

func offerKey(sessionID uuid.UUID) string { return "offer:" + sessionID.String() }

func propertyKey(sessionID uuid.UUID) string { return "property:" + sessionID.String() }

// Chat orchestrates one conversational turn: route the message to the
// matching pipeline, offer a report when one makes sense and keep the
// session transcript.
type Chat struct {
	llm      analyzer.TextGenerator
	district DistrictAnalyzer
	listings ListingFetcher
	research *Research
	reports  *Reports
	cot      *CoT
	messages MessageStore
	cache    *redis.Client
}

func NewChat(llm analyzer.TextGenerator, district DistrictAnalyzer, listings ListingFetcher,
	research *Research, reports *Reports, cot *CoT, messages MessageStore, cache *redis.Client) *Chat {
	return &Chat{
		llm:      llm,
		district: district,
		listings: listings,
		research: research,
		reports:  reports,
		cot:      cot,
		messages: messages,
		cache:    cache,
	}
}

// Respond handles one user message and produces the assistant reply.
// Both turns are persisted to the session transcript. The only error is
// ErrEmptyMessage; pipeline failures come back as user-facing text.
func (c *Chat) Respond(ctx context.Context, sessionID uuid.UUID, message string) (*models.ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	log.Printf("Chat message received: %s", capRunes(message, 100))

	c.saveTurn(ctx, sessionID, "user", message, nil)

	result := c.route(ctx, sessionID, message)

	var meta json.RawMessage
	if result.DownloadURL != "" || result.CotEnhanced {
		meta, _ = json.Marshal(result.Metadata())
	}
	c.saveTurn(ctx, sessionID, "assistant", result.Response, meta)

	return result, nil
}

// History returns the session transcript, oldest first.
func (c *Chat) History(ctx context.Context, sessionID uuid.UUID) ([]models.ChatMessage, error) {
	return c.messages.ListBySession(ctx, sessionID, historyLimit)
}

// route answers a pending offer first, then dispatches on message
// intent.
func (c *Chat) route(ctx context.Context, sessionID uuid.UUID, message string) *models.ChatResult {
	if offer := c.pendingOffer(ctx, sessionID); offer != nil {
		switch {
		case IsReportAcceptance(message):
			c.clearOffer(ctx, sessionID)
			return c.offeredReport(ctx, sessionID, offer)
		case IsReportDecline(message):
			c.clearOffer(ctx, sessionID)
			return &models.ChatResult{Response: offerDeclinedMsg}
		}
		// Anything else leaves the offer pending until it expires.
	}

	switch ClassifyMessage(message) {
	case MessagePropertyURL:
		return c.propertyTurn(ctx, sessionID, message)
	case MessageReportRequest:
		return c.reportTurn(ctx, sessionID, message)
	case MessageDistrictQuery:
		if result, ok := c.districtTurn(ctx, sessionID, message); ok {
			return result
		}
		return c.generalTurn(ctx, sessionID, message)
	case MessageMarketResearch:
		return c.marketTurn(ctx, sessionID, message)
	default:
		return c.generalTurn(ctx, sessionID, message)
	}
}

// offeredReport generates the report the accepted offer promised.
func (c *Chat) offeredReport(ctx context.Context, sessionID uuid.UUID, offer *offerState) *models.ChatResult {
	var (
		result *ReportResult
		err    error
	)

	switch offer.ReportType {
	case ReportTypeProperty:
		pctx := c.propertyContext(ctx, sessionID)
		if pctx == nil {
			return &models.ChatResult{Response: noPropertyDataMsg}
		}
		result, err = c.reports.PropertyReport(ctx, sessionID, pctx)
	case ReportTypeDistrict:
		result, err = c.reports.DistrictReport(ctx, sessionID)
	default:
		result, err = c.reports.MarketReport(ctx, sessionID, offer.Query)
	}

	if errors.Is(err, ErrStaleProperty) {
		return &models.ChatResult{Response: staleAnalysisMsg}
	}
	if err != nil {
		log.Printf("Offered report generation failed: %v", err)
		return &models.ChatResult{Response: fmt.Sprintf(reportFailedMsg, err)}
	}
	return &models.ChatResult{
		Response:    result.Message,
		DownloadURL: result.DownloadURL,
		Filename:    result.Filename,
	}
}

// propertyTurn analyzes a listing URL: scrape the details, pull the
// district analysis, merge optional web context and answer. The result
// is kept as the session's property context for a follow-up report.
func (c *Chat) propertyTurn(ctx context.Context, sessionID uuid.UUID, message string) *models.ChatResult {
	url := ExtractURL(message)
	if url == "" {
		return &models.ChatResult{Response: urlNotFoundMsg}
	}

	details, err := c.listings.PropertyDetails(ctx, url)
	if err != nil {
		log.Printf("Property fetch failed for %s: %v", url, err)
		return &models.ChatResult{Response: fmt.Sprintf(fetchFailedMsg, err)}
	}

	analysis := districtUnknownMsg
	if details.District != "" {
		if text, err := c.district.Analyze(ctx, details.District); err == nil {
			analysis = text
		}
	}

	searchCtx := ""
	if details.District != "" {
		query := fmt.Sprintf("Улаанбаатар %s дүүрэг орон сууцны зах зээл үнэ", details.District)
		if text, err := c.research.Search(ctx, query); err != nil {
			log.Printf("Property context search failed: %v", err)
		} else if text != "" {
			searchCtx = "Нэмэлт зах зээлийн мэдээлэл: " + capRunes(text, chatSearchContextMax)
		}
	}

	data, _ := json.MarshalIndent(details, "", "  ")
	reply, err := c.llm.Generate(ctx, propertyChatSystem,
		fmt.Sprintf(propertyChatHuman, message, data, analysis, searchCtx))
	if err != nil {
		log.Printf("Property analysis failed for %s: %v", url, err)
		return &models.ChatResult{Response: fmt.Sprintf(urlProcessFailedMsg, err)}
	}
	if err := validate.Check(reply); err != nil {
		log.Printf("Property reply rejected: %v", err)
		return &models.ChatResult{Response: invalidReplyMsg}
	}

	c.storePropertyContext(ctx, sessionID, &PropertyContext{
		Property:         *details,
		DistrictAnalysis: analysis,
		URL:              url,
		Timestamp:        time.Now(),
	})
	c.storeOffer(ctx, sessionID, offerState{ReportType: ReportTypeProperty})
	reply += propertyOfferMsg

	enhanced := false
	if ShouldApply(MessagePropertyURL, message, reply) {
		reply, enhanced = c.cot.Enhance(ctx, message, reply, AnalysisProperty)
	}
	return &models.ChatResult{Response: reply, CotEnhanced: enhanced}
}

// districtTurn explains a district analysis in depth. ok is false when
// the message names no recognizable district, so the caller can hand
// the turn to the general pipeline.
func (c *Chat) districtTurn(ctx context.Context, sessionID uuid.UUID, message string) (*models.ChatResult, bool) {
	analysis, err := c.district.Analyze(ctx, message)
	if err != nil {
		// No recognizable district, let the general path answer.
		return nil, false
	}

	searchCtx := ""
	if name, ok := analyzer.ExtractDistrict(message); ok {
		query := fmt.Sprintf("%s дүүрэг орон сууц зах зээл хөгжил", name)
		if text, err := c.research.Search(ctx, query); err != nil {
			log.Printf("District context search failed: %v", err)
		} else if text != "" {
			searchCtx = "Нэмэлт мэдээлэл: " + capRunes(text, chatSearchContextMax)
		}
	}

	reply, err := c.llm.Generate(ctx, districtChatSystem,
		fmt.Sprintf(districtChatHuman, message, analysis, searchCtx))
	if err != nil {
		log.Printf("District reply generation failed: %v", err)
		return &models.ChatResult{Response: districtErrorMsg}, true
	}
	if err := validate.Check(reply); err != nil {
		log.Printf("District reply rejected: %v", err)
		return &models.ChatResult{Response: invalidReplyMsg}, true
	}

	c.storeOffer(ctx, sessionID, offerState{ReportType: ReportTypeDistrict})
	reply += districtOfferMsg

	analysisType := AnalysisDistrict
	if analyzer.IsComparisonQuery(message) {
		analysisType = AnalysisComparison
	}
	enhanced := false
	if ShouldApply(MessageDistrictQuery, message, reply) {
		reply, enhanced = c.cot.Enhance(ctx, message, reply, analysisType)
	}
	return &models.ChatResult{Response: reply, CotEnhanced: enhanced}, true
}

// marketTurn answers a market question from fresh web search results.
func (c *Chat) marketTurn(ctx context.Context, sessionID uuid.UUID, message string) *models.ChatResult {
	results, err := c.research.Search(ctx, message)
	if err != nil {
		log.Printf("Market search failed: %v", err)
		return &models.ChatResult{Response: marketErrorMsg}
	}

	reply, err := c.llm.Generate(ctx, marketChatSystem, fmt.Sprintf(marketChatHuman, message, results))
	if err != nil {
		log.Printf("Market reply generation failed: %v", err)
		return &models.ChatResult{Response: marketErrorMsg}
	}
	if err := validate.Check(reply); err != nil {
		log.Printf("Market reply rejected: %v", err)
		return &models.ChatResult{Response: invalidReplyMsg}
	}

	c.storeOffer(ctx, sessionID, offerState{ReportType: ReportTypeComprehensive, Query: message})
	reply += marketOfferMsg

	enhanced := false
	if ShouldApply(MessageMarketResearch, message, reply) {
		reply, enhanced = c.cot.Enhance(ctx, message, reply, AnalysisMarket)
	}
	return &models.ChatResult{Response: reply, CotEnhanced: enhanced}
}

// generalTurn answers everything else, offering a report only when the
// reply turned out substantial.
func (c *Chat) generalTurn(ctx context.Context, sessionID uuid.UUID, message string) *models.ChatResult {
	results, err := c.research.Search(ctx, message)
	if err != nil {
		log.Printf("General search failed: %v", err)
		return &models.ChatResult{Response: searchErrorMsg}
	}

	reply, err := c.llm.Generate(ctx, generalChatSystem, fmt.Sprintf(generalChatHuman, message, results))
	if err != nil {
		log.Printf("General reply generation failed: %v", err)
		return &models.ChatResult{Response: searchErrorMsg}
	}
	if err := validate.Check(reply); err != nil {
		log.Printf("General reply rejected: %v", err)
		return &models.ChatResult{Response: invalidReplyMsg}
	}

	if utf8.RuneCountInString(reply) > generalOfferMinLen {
		c.storeOffer(ctx, sessionID, offerState{ReportType: ReportTypeComprehensive, Query: message})
		reply += generalOfferMsg
	}

	enhanced := false
	if ShouldApply(MessageGeneral, message, reply) {
		reply, enhanced = c.cot.Enhance(ctx, message, reply, AnalysisMarket)
	}
	return &models.ChatResult{Response: reply, CotEnhanced: enhanced}
}

// reportTurn serves an explicit report request.
func (c *Chat) reportTurn(ctx context.Context, sessionID uuid.UUID, message string) *models.ChatResult {
	pctx := c.propertyContext(ctx, sessionID)

	var (
		result *ReportResult
		err    error
	)
	switch DetermineReportType(message, pctx != nil) {
	case ReportTypeProperty:
		result, err = c.reports.PropertyReport(ctx, sessionID, pctx)
	case ReportTypeComprehensive:
		result, err = c.reports.MarketReport(ctx, sessionID, "")
	default:
		result, err = c.reports.DistrictReport(ctx, sessionID)
	}

	if errors.Is(err, ErrStaleProperty) {
		return &models.ChatResult{Response: staleAnalysisMsg}
	}
	if err != nil {
		log.Printf("Report generation failed: %v", err)
		return &models.ChatResult{Response: fmt.Sprintf(reportFailedMsg, err)}
	}
	return &models.ChatResult{
		Response:    result.Message,
		DownloadURL: result.DownloadURL,
		Filename:    result.Filename,
	}
}

func (c *Chat) saveTurn(ctx context.Context, sessionID uuid.UUID, role, content string, meta json.RawMessage) {
	msg := &models.ChatMessage{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		MetaJSON:  meta,
	}
	if err := c.messages.Create(ctx, msg); err != nil {
		// The reply still goes out when the transcript write fails.
		log.Printf("Chat history write failed: %v", err)
	}
}

func (c *Chat) pendingOffer(ctx context.Context, sessionID uuid.UUID) *offerState {
	raw, err := c.cache.Get(ctx, offerKey(sessionID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Offer state read failed: %v", err)
		}
		return nil
	}

	var offer offerState
	if err := json.Unmarshal(raw, &offer); err != nil {
		log.Printf("Offer state is corrupt: %v", err)
		return nil
	}
	return &offer
}

func (c *Chat) storeOffer(ctx context.Context, sessionID uuid.UUID, offer offerState) {
	raw, _ := json.Marshal(offer)
	if err := c.cache.Set(ctx, offerKey(sessionID), raw, offerTTL).Err(); err != nil {
		log.Printf("Offer state write failed: %v", err)
	}
}

func (c *Chat) clearOffer(ctx context.Context, sessionID uuid.UUID) {
	if err := c.cache.Del(ctx, offerKey(sessionID)).Err(); err != nil {
		log.Printf("Offer state delete failed: %v", err)
	}
}

func (c *Chat) storePropertyContext(ctx context.Context, sessionID uuid.UUID, pctx *PropertyContext) {
	raw, err := json.Marshal(pctx)
	if err != nil {
		log.Printf("Property context encode failed: %v", err)
		return
	}
	if err := c.cache.Set(ctx, propertyKey(sessionID), raw, propertyContextTTL).Err(); err != nil {
		log.Printf("Property context write failed: %v", err)
	}
}

func (c *Chat) propertyContext(ctx context.Context, sessionID uuid.UUID) *PropertyContext {
	raw, err := c.cache.Get(ctx, propertyKey(sessionID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Property context read failed: %v", err)
		}
		return nil
	}

	var pctx PropertyContext
	if err := json.Unmarshal(raw, &pctx); err != nil {
		log.Printf("Property context is corrupt: %v", err)
		return nil
	}
	return &pctx
}
