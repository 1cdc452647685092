package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// stubLLM returns canned text so tests never call a real model.
type stubLLM struct {
	reply string
	err   error

	lastSystem string
	lastPrompt string
}

func (s *stubLLM) Generate(ctx context.Context, system, prompt string) (string, error) {
	s.lastSystem = system
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func TestShouldApply(t *testing.T) {
	tests := []struct {
		name        string
		messageType string
		message     string
		response    string
		want        bool
	}{
		{"property url always applies", MessagePropertyURL, "x", "y", true},
		{"district query always applies", MessageDistrictQuery, "x", "y", true},
		{"market research always applies", MessageMarketResearch, "x", "y", true},
		{"short general chat skips", MessageGeneral, "Сайн уу", "Сайн байна уу!", false},
		{"complex term applies", MessageGeneral, "дэлгэрэнгүй тайлбарлаач", "за", true},
		{"long message applies", MessageGeneral, strings.Repeat("а", 60), "за", true},
		{"long response applies", MessageGeneral, "юу вэ", strings.Repeat("б", 200), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldApply(tt.messageType, tt.message, tt.response)
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCoTEnhance_WrapsOriginalAsSummary(t *testing.T) {
	llm := &stubLLM{reply: "🧠 **Дэлгэрэнгүй шинжилгээний алхмууд:**\n\n**Алхам 1. Үнэ.**\nДундажтай ойролцоо."}
	cot := NewCoT(llm)

	got, enhanced := cot.Enhance(context.Background(), "Хан-Уул ямар вэ?", "Богино хариулт.", AnalysisDistrict)
	if !enhanced {
		t.Fatalf("expected enhancement to be applied")
	}
	if !strings.HasPrefix(got, "🧠 **Дэлгэрэнгүй шинжилгээний алхмууд:**") {
		t.Errorf("Expected reasoning first, got %q", got)
	}
	if !strings.HasSuffix(got, "**Хураангуй:**\n\nБогино хариулт.") {
		t.Errorf("Expected original reply as trailing summary, got %q", got)
	}
	if !strings.Contains(llm.lastPrompt, "Хан-Уул ямар вэ?") {
		t.Errorf("Expected user query in prompt")
	}

	stats := cot.Stats()
	if stats.Enhanced != 1 || stats.TotalRequests != 1 {
		t.Errorf("Expected counters enhanced=1 requests=1, got %+v", stats)
	}
	if stats.ByType[AnalysisDistrict] != 1 {
		t.Errorf("Expected by-type counter for %s", AnalysisDistrict)
	}
}

func TestCoTEnhance_UnknownTypeKeepsOriginal(t *testing.T) {
	cot := NewCoT(&stubLLM{reply: "unused"})

	got, enhanced := cot.Enhance(context.Background(), "асуулт", "хариулт", "weather_report")
	if enhanced {
		t.Fatalf("expected no enhancement for unknown type")
	}
	if got != "хариулт" {
		t.Errorf("Expected original reply unchanged, got %q", got)
	}
	if stats := cot.Stats(); stats.Skipped != 1 {
		t.Errorf("Expected skipped=1, got %+v", stats)
	}
}

func TestCoTEnhance_ModelFailureFallsBack(t *testing.T) {
	cot := NewCoT(&stubLLM{err: errors.New("rate limited")})

	got, enhanced := cot.Enhance(context.Background(), "асуулт", "хариулт", AnalysisMarket)
	if enhanced {
		t.Fatalf("expected enhancement flag off after model failure")
	}
	if !strings.Contains(got, "дэлгэрэнгүй шинжилгээг боловсруулахад алдаа гарлаа") {
		t.Errorf("Expected error note in reply, got %q", got)
	}
	if !strings.HasSuffix(got, "**Хураангуй:**\n\nхариулт") {
		t.Errorf("Expected original reply preserved, got %q", got)
	}
	if stats := cot.Stats(); stats.Failed != 1 {
		t.Errorf("Expected failed=1, got %+v", stats)
	}
}
