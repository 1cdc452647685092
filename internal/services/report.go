package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Enkhtuvshin02/realstateagent/internal/analyzer"
	"github.com/Enkhtuvshin02/realstateagent/internal/models"
	"github.com/Enkhtuvshin02/realstateagent/internal/render"
)

// propertyContextMaxAge is how long a property analysis stays usable
// for report generation.
const propertyContextMaxAge = 10 * time.Minute

const (
	downloadPathPrefix = "/reports/download/"
	reportListLimit    = 50
)

// ErrStaleProperty is returned when the session's last property
// analysis is too old to build a report from.
var ErrStaleProperty = errors.New("property analysis is stale")

const staleAnalysisMsg = "Орон сууцны шинжилгээ хуучирсан байна. Эхлээд орон сууцны холбоосыг илгээгээд дараа нь тайлан хүсэх боломжтой."

const (
	propertyReportDoneMsg = "✅ Орон сууцны дэлгэрэнгүй PDF тайлан амжилттай үүсгэгдлээ!"
	districtReportDoneMsg = "✅ Улаанбаатар хотын дүүргийн харьцуулалтын PDF тайлан амжилттай үүсгэгдлээ!"
	marketReportDoneMsg   = "✅ Улаанбаатар хотын дэлгэрэнгүй зах зээлийн тайлан амжилттай үүсгэгдлээ!"
)

const (
	propertyAnalysisSystem = `Та бол үл хөдлөх хөрөнгийн мэргэжилтэн. Орон сууцны дэлгэрэнгүй шинжилгээг Монгол хэлээр хийнэ үү.

Дараах зүйлсийг агуулна уу:
1. Зах зээл дэх байр суурь
2. Хөрөнгө оруулалтын боломж
3. Дүүргийн дундажтай харьцуулалт
4. Эрсдлийн үнэлгээ
5. Зөвлөмжүүд

Зөвхөн Монгол хэлээр, тодорхой, практик зөвлөмж өгнө үү.`
	propertyAnalysisHuman = "Орон сууц: %s\nДүүргийн шинжилгээ: %s\n\nЭнэ орон сууцны дэлгэрэнгүй зах зээлийн шинжилгээг Монгол хэлээр хийнэ үү."

	marketTrendsSystem = `Та бол үл хөдлөх хөрөнгийн зах зээлийн шинжээч. Улаанбаатар хотын дүүргүүдийн орон сууцны зах зээлийн шинжилгээг Монгол хэлээр хийнэ үү.

Дараах зүйлсийг агуулна уу:
1. Ерөнхий зах зээлийн нөхцөл байдал
2. Дүүрэг хоорондын үнийн ялгаа
3. Хөрөнгө оруулалтын боломжууд
4. Зах зээлийн өсөлтийн чиглэл
5. Өөр өөр худалдан авагчдад зориулсан зөвлөмж

Зөвхөн Монгол хэлээр, мэргэжлийн шинжилгээ хийнэ үү.`
	marketTrendsHuman = "Дүүргүүдийн мэдээлэл: %s\n\nУлаанбаатар хотын орон сууцны зах зээлийн чиг хандлагыг энэ мэдээлэлд үндэслэн Монгол хэлээр шинжилнэ үү."

	marketAnalysisSystem = `Та бол үл хөдлөх хөрөнгийн зах зээлийн тэргүүний шинжээч. Дүүргүүдийн мэдээлэл болон интернэт судалгааны үр дүнг хослуулан Улаанбаатар хотын орон сууцны зах зээлийн иж бүрэн шинжилгээг Монгол хэлээр хийнэ үү.

Дараах бүлгүүдийг тусгана уу:
1. Зах зээлийн ерөнхий үнэлгээ
2. Дүүрэг хоорондын харьцуулалт
3. Үнийн чиглэл ба шалтгаан
4. Хөрөнгө оруулалтын боломжууд
5. Эрсдэл ба сорилт
6. Ирээдүйн төлөв

Мэргэжлийн, дэлгэрэнгүй шинжилгээ хийнэ үү.`
	marketAnalysisHuman = "Дүүргүүдийн мэдээлэл: %s\n\nИнтернэт судалгааны үр дүн: %s\n\nЭдгээр мэдээллийг нэгтгэн Улаанбаатар хотын орон сууцны зах зээлийн иж бүрэн шинжилгээг Монгол хэлээр хийнэ үү."
)

// PropertyContext is the last analyzed listing a session can turn into
// a report. The chat service keeps it in Redis next to the offer state.
type PropertyContext struct {
	Property         models.PropertyDetails `json:"property_details"`
	DistrictAnalysis string                 `json:"district_analysis"`
	URL              string                 `json:"url"`
	Timestamp        time.Time              `json:"timestamp"`
}

// ReportResult describes a generated artifact and the confirmation
// message shown in chat.
type ReportResult struct {
	Message     string
	Filename    string
	DownloadURL string
}

// ReportStore is the slice of the report repository the generator
// needs.
type ReportStore interface {
	Create(ctx context.Context, report *models.Report) error
	List(ctx context.Context, limit int) ([]models.Report, error)
	Count(ctx context.Context) (int, error)
}

// StatsSource hands out the current district statistics. Satisfied by
// analyzer.District.
type StatsSource interface {
	Stats(ctx context.Context) (map[string]models.DistrictStats, time.Time)
}

// Reports generates the downloadable report artifacts and keeps the
// registry behind the listing endpoint.
type Reports struct {
	llm      analyzer.TextGenerator
	stats    StatsSource
	research *Research
	engine   *render.Engine
	store    ReportStore
}

func NewReports(llm analyzer.TextGenerator, stats StatsSource, research *Research, engine *render.Engine, store ReportStore) *Reports {
	return &Reports{llm: llm, stats: stats, research: research, engine: engine, store: store}
}

// PropertyReport builds the detailed PDF for the session's last
// analyzed listing.
func (r *Reports) PropertyReport(ctx context.Context, sessionID uuid.UUID, pctx *PropertyContext) (*ReportResult, error) {
	if time.Since(pctx.Timestamp) > propertyContextMaxAge {
		return nil, ErrStaleProperty
	}

	research := r.researchSummary(ctx, propertyTrendsQuery(pctx.Property.District), ReportTypeProperty)

	comparison, err := r.propertyAnalysis(ctx, pctx)
	if err != nil {
		return nil, err
	}

	html := render.PropertyReportHTML(render.PropertyReportData{
		Property:         pctx.Property,
		DistrictAnalysis: pctx.DistrictAnalysis,
		Comparison:       comparison,
		ResearchSummary:  research,
	}, time.Now())

	return r.publish(ctx, sessionID, models.ReportKindProperty, html, propertyReportDoneMsg)
}

// DistrictReport builds the all-district comparison PDF.
func (r *Reports) DistrictReport(ctx context.Context, sessionID uuid.UUID) (*ReportResult, error) {
	stats, _ := r.stats.Stats(ctx)
	districts := rankDistricts(stats)

	research := r.researchSummary(ctx, districtTrendsQuery, ReportTypeDistrict)

	trends, err := r.marketTrends(ctx, districts)
	if err != nil {
		return nil, err
	}

	html := render.DistrictReportHTML(render.DistrictReportData{
		Districts:       districts,
		MarketTrends:    trends,
		ResearchSummary: research,
	}, time.Now())

	return r.publish(ctx, sessionID, models.ReportKindDistrict, html, districtReportDoneMsg)
}

// MarketReport builds the comprehensive market analysis PDF. The query
// is echoed on the document; empty means a generic overview.
func (r *Reports) MarketReport(ctx context.Context, sessionID uuid.UUID, query string) (*ReportResult, error) {
	stats, _ := r.stats.Stats(ctx)
	districts := rankDistricts(stats)

	research := r.research.MarketSweep(ctx)

	data, err := json.MarshalIndent(districts, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode district stats: %w", err)
	}
	summary, err := r.llm.Generate(ctx, marketAnalysisSystem, fmt.Sprintf(marketAnalysisHuman, data, research))
	if err != nil {
		return nil, fmt.Errorf("failed to generate market analysis: %w", err)
	}

	html := render.MarketReportHTML(render.MarketReportData{
		Query:            query,
		Summary:          summary,
		DistrictAnalysis: analyzer.CompareAll(stats),
	}, time.Now())

	return r.publish(ctx, sessionID, models.ReportKindMarket, html, marketReportDoneMsg)
}

// List returns the registered reports, newest first.
func (r *Reports) List(ctx context.Context) ([]models.ReportInfo, error) {
	reports, err := r.store.List(ctx, reportListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	infos := make([]models.ReportInfo, 0, len(reports))
	for _, rep := range reports {
		infos = append(infos, models.ReportInfo{
			Filename:    rep.Filename,
			Kind:        rep.Kind,
			Created:     rep.CreatedAt,
			SizeMB:      math.Round(float64(rep.SizeBytes)/(1024*1024)*100) / 100,
			DownloadURL: downloadPathPrefix + rep.Filename,
		})
	}
	return infos, nil
}

// Count returns how many reports have been generated.
func (r *Reports) Count(ctx context.Context) (int, error) {
	return r.store.Count(ctx)
}

// researchSummary runs one search and condenses it. Empty result means
// the research section should be dropped from the document.
func (r *Reports) researchSummary(ctx context.Context, query, reportType string) string {
	if !r.research.Enabled() {
		return ""
	}
	text, err := r.research.Search(ctx, query)
	if err != nil {
		log.Printf("Report research search failed: %v", err)
		return searchFailedMsg
	}
	if text == "" {
		return ""
	}
	return r.research.Summarize(ctx, text, reportType)
}

func (r *Reports) propertyAnalysis(ctx context.Context, pctx *PropertyContext) (string, error) {
	details, err := json.MarshalIndent(pctx.Property, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode property details: %w", err)
	}
	analysis, err := r.llm.Generate(ctx, propertyAnalysisSystem,
		fmt.Sprintf(propertyAnalysisHuman, details, pctx.DistrictAnalysis))
	if err != nil {
		return "", fmt.Errorf("failed to generate property analysis: %w", err)
	}
	return analysis, nil
}

func (r *Reports) marketTrends(ctx context.Context, districts []models.DistrictStats) (string, error) {
	data, err := json.MarshalIndent(districts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode district stats: %w", err)
	}
	trends, err := r.llm.Generate(ctx, marketTrendsSystem, fmt.Sprintf(marketTrendsHuman, data))
	if err != nil {
		return "", fmt.Errorf("failed to generate market trends: %w", err)
	}
	return trends, nil
}

// publish renders the document, registers the artifact and shapes the
// chat confirmation.
func (r *Reports) publish(ctx context.Context, sessionID uuid.UUID, kind, html, doneMsg string) (*ReportResult, error) {
	artifact, err := r.engine.Render(ctx, kind, html)
	if err != nil {
		return nil, err
	}

	var size int64
	if info, err := os.Stat(artifact.Path); err == nil {
		size = info.Size()
	}

	report := &models.Report{
		SessionID: sessionID,
		Kind:      kind,
		Filename:  artifact.Filename,
		FilePath:  artifact.Path,
		SizeBytes: size,
	}
	if err := r.store.Create(ctx, report); err != nil {
		// Registration failure only hides the file from the listing.
		log.Printf("Report registration failed: %v", err)
	}

	return &ReportResult{
		Message:     doneMsg,
		Filename:    artifact.Filename,
		DownloadURL: downloadPathPrefix + artifact.Filename,
	}, nil
}

// rankDistricts turns the stats map into a slice ordered most
// expensive first, the order reports present districts in.
func rankDistricts(stats map[string]models.DistrictStats) []models.DistrictStats {
	districts := make([]models.DistrictStats, 0, len(stats))
	for _, st := range stats {
		districts = append(districts, st)
	}
	sort.Slice(districts, func(i, j int) bool { return districts[i].OverallAvg > districts[j].OverallAvg })
	return districts
}
