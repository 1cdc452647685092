package services

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Enkhtuvshin02/realstateagent/internal/models"
	"github.com/Enkhtuvshin02/realstateagent/internal/render"
)

type fakeReportStore struct {
	reports []models.Report
	err     error
}

func (f *fakeReportStore) Create(ctx context.Context, report *models.Report) error {
	if f.err != nil {
		return f.err
	}
	f.reports = append(f.reports, *report)
	return nil
}

func (f *fakeReportStore) List(ctx context.Context, limit int) ([]models.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.reports, nil
}

func (f *fakeReportStore) Count(ctx context.Context) (int, error) {
	return len(f.reports), nil
}

type fakeStats struct {
	stats map[string]models.DistrictStats
}

func (f *fakeStats) Stats(ctx context.Context) (map[string]models.DistrictStats, time.Time) {
	return f.stats, time.Now()
}

func newTestReports(t *testing.T, stub *stubLLM) (*Reports, *fakeReportStore) {
	t.Helper()
	store := &fakeReportStore{}
	stats := &fakeStats{stats: map[string]models.DistrictStats{
		"Сүхбаатар": {Name: "Сүхбаатар", OverallAvg: 4_500_000, TwoRoomAvg: 4_600_000, ThreeRoomAvg: 4_400_000},
		"Баянзүрх":  {Name: "Баянзүрх", OverallAvg: 3_200_000, TwoRoomAvg: 3_300_000, ThreeRoomAvg: 3_100_000},
	}}
	engine := render.NewEngine("definitely-not-a-real-converter", t.TempDir())
	return NewReports(stub, stats, NewResearch("", stub), engine, store), store
}

func freshPropertyContext() *PropertyContext {
	return &PropertyContext{
		Property: models.PropertyDetails{
			URL:         "https://www.unegui.mn/adv/123",
			Title:       "Хан-Уул дүүрэгт 3 өрөө байр",
			District:    "Хан-Уул",
			Price:       252_000_000,
			AreaSqm:     56,
			RoomCount:   3,
			PricePerSqm: 4_500_000,
		},
		DistrictAnalysis: "Хан-Уул дүүргийн үнэ өндөр түвшинд байна.",
		URL:              "https://www.unegui.mn/adv/123",
		Timestamp:        time.Now(),
	}
}

func TestPropertyReport_StaleContextRejected(t *testing.T) {
	reports, store := newTestReports(t, &stubLLM{reply: "Шинжилгээ."})

	pctx := freshPropertyContext()
	pctx.Timestamp = time.Now().Add(-11 * time.Minute)

	_, err := reports.PropertyReport(context.Background(), uuid.New(), pctx)
	if !errors.Is(err, ErrStaleProperty) {
		t.Fatalf("expected ErrStaleProperty, got %v", err)
	}
	if len(store.reports) != 0 {
		t.Errorf("Expected no registered reports, got %d", len(store.reports))
	}
}

func TestPropertyReport_GeneratesArtifact(t *testing.T) {
	stub := &stubLLM{reply: "Энэ орон сууц зах зээлд сайн байр суурьтай."}
	reports, store := newTestReports(t, stub)
	sessionID := uuid.New()

	result, err := reports.PropertyReport(context.Background(), sessionID, freshPropertyContext())
	if err != nil {
		t.Fatalf("PropertyReport failed: %v", err)
	}

	if result.Message != propertyReportDoneMsg {
		t.Errorf("Expected %q, got %q", propertyReportDoneMsg, result.Message)
	}
	if !strings.HasPrefix(result.Filename, "property_analysis_") {
		t.Errorf("Expected property_analysis_ filename prefix, got %q", result.Filename)
	}
	if result.DownloadURL != "/reports/download/"+result.Filename {
		t.Errorf("Expected download URL for %q, got %q", result.Filename, result.DownloadURL)
	}

	if len(store.reports) != 1 {
		t.Fatalf("expected 1 registered report, got %d", len(store.reports))
	}
	reg := store.reports[0]
	if reg.Kind != models.ReportKindProperty {
		t.Errorf("Expected kind %q, got %q", models.ReportKindProperty, reg.Kind)
	}
	if reg.SessionID != sessionID {
		t.Errorf("Expected session %s, got %s", sessionID, reg.SessionID)
	}
	if reg.SizeBytes == 0 {
		t.Error("Expected non-zero artifact size")
	}

	doc, err := os.ReadFile(reg.FilePath)
	if err != nil {
		t.Fatalf("failed to read artifact: %v", err)
	}
	if !strings.Contains(string(doc), "Хан-Уул дүүрэгт 3 өрөө байр") {
		t.Error("Expected listing title in the rendered document")
	}
	if !strings.Contains(string(doc), "Энэ орон сууц зах зээлд сайн байр суурьтай.") {
		t.Error("Expected model analysis in the rendered document")
	}
}

func TestPropertyReport_ModelFailure(t *testing.T) {
	reports, _ := newTestReports(t, &stubLLM{err: errors.New("model down")})

	_, err := reports.PropertyReport(context.Background(), uuid.New(), freshPropertyContext())
	if err == nil {
		t.Fatal("expected error when analysis generation fails")
	}
	if !strings.Contains(err.Error(), "property analysis") {
		t.Errorf("Expected property analysis error, got %v", err)
	}
}

func TestDistrictReport_GeneratesArtifact(t *testing.T) {
	stub := &stubLLM{reply: "Зах зээл тогтвортой өсөж байна."}
	reports, store := newTestReports(t, stub)

	result, err := reports.DistrictReport(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("DistrictReport failed: %v", err)
	}

	if result.Message != districtReportDoneMsg {
		t.Errorf("Expected %q, got %q", districtReportDoneMsg, result.Message)
	}
	if !strings.HasPrefix(result.Filename, "district_summary_") {
		t.Errorf("Expected district_summary_ filename prefix, got %q", result.Filename)
	}
	if stub.lastSystem != marketTrendsSystem {
		t.Errorf("Expected market trends prompt, got %q", stub.lastSystem)
	}

	doc, err := os.ReadFile(store.reports[0].FilePath)
	if err != nil {
		t.Fatalf("failed to read artifact: %v", err)
	}
	if !strings.Contains(string(doc), "Сүхбаатар") {
		t.Error("Expected district names in the rendered document")
	}
	if !strings.Contains(string(doc), "Зах зээл тогтвортой өсөж байна.") {
		t.Error("Expected trends analysis in the rendered document")
	}
}

func TestMarketReport_EchoesQuery(t *testing.T) {
	stub := &stubLLM{reply: "Иж бүрэн шинжилгээ."}
	reports, store := newTestReports(t, stub)

	result, err := reports.MarketReport(context.Background(), uuid.New(), "ипотекийн нөхцөл ямар байна")
	if err != nil {
		t.Fatalf("MarketReport failed: %v", err)
	}

	if result.Message != marketReportDoneMsg {
		t.Errorf("Expected %q, got %q", marketReportDoneMsg, result.Message)
	}
	if !strings.HasPrefix(result.Filename, "market_analysis_") {
		t.Errorf("Expected market_analysis_ filename prefix, got %q", result.Filename)
	}
	if stub.lastSystem != marketAnalysisSystem {
		t.Errorf("Expected comprehensive analysis prompt, got %q", stub.lastSystem)
	}

	doc, err := os.ReadFile(store.reports[0].FilePath)
	if err != nil {
		t.Fatalf("failed to read artifact: %v", err)
	}
	if !strings.Contains(string(doc), "ипотекийн нөхцөл ямар байна") {
		t.Error("Expected user query echoed in the rendered document")
	}
	if !strings.Contains(string(doc), "Улаанбаатар хотын дүүргүүдийн орон сууцны үнийн харьцуулалт") {
		t.Error("Expected ranked district comparison in the rendered document")
	}
}

func TestReportsList_MapsRegistry(t *testing.T) {
	reports, store := newTestReports(t, &stubLLM{})
	store.reports = []models.Report{
		{Filename: "district_summary_20250101_120000.pdf", Kind: models.ReportKindDistrict, SizeBytes: 1_572_864, CreatedAt: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)},
		{Filename: "property_analysis_20250101_110000.pdf", Kind: models.ReportKindProperty, SizeBytes: 524_288, CreatedAt: time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC)},
	}

	infos, err := reports.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(infos))
	}

	first := infos[0]
	if first.SizeMB != 1.5 {
		t.Errorf("Expected 1.5 MB, got %v", first.SizeMB)
	}
	if first.DownloadURL != "/reports/download/district_summary_20250101_120000.pdf" {
		t.Errorf("Expected download URL, got %q", first.DownloadURL)
	}
	if infos[1].SizeMB != 0.5 {
		t.Errorf("Expected 0.5 MB, got %v", infos[1].SizeMB)
	}
}

func TestRankDistricts(t *testing.T) {
	ranked := rankDistricts(map[string]models.DistrictStats{
		"Налайх":    {Name: "Налайх", OverallAvg: 2_000_000},
		"Сүхбаатар": {Name: "Сүхбаатар", OverallAvg: 4_500_000},
		"Баянгол":   {Name: "Баянгол", OverallAvg: 3_500_000},
	})

	if len(ranked) != 3 {
		t.Fatalf("expected 3 districts, got %d", len(ranked))
	}
	if ranked[0].Name != "Сүхбаатар" || ranked[2].Name != "Налайх" {
		t.Errorf("Expected most expensive first, got %s ... %s", ranked[0].Name, ranked[2].Name)
	}
}
