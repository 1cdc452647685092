package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestResearchSearch_NotConfiguredReturnsEmpty(t *testing.T) {
	r := NewResearch("", &stubLLM{})

	text, err := r.Search(context.Background(), "Улаанбаатар орон сууц")
	if err != nil {
		t.Fatalf("expected no error without API key, got %v", err)
	}
	if text != "" {
		t.Errorf("Expected empty text without API key, got %q", text)
	}
}

func TestResearchSearch_FlattensHits(t *testing.T) {
	var gotReq tavilyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", req.Method)
		}
		if err := json.NewDecoder(req.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"answer": "Үнэ өссөн.",
			"results": []map[string]string{
				{"title": "Нэгдүгээр эх сурвалж", "url": "https://example.mn/a", "content": "Зах зээл идэвхтэй."},
				{"title": "Хоосон эх сурвалж", "url": "https://example.mn/b", "content": ""},
				{"title": "Хоёрдугаар эх сурвалж", "url": "https://example.mn/c", "content": "Үнэ тогтвортой."},
			},
		})
	}))
	defer srv.Close()

	r := NewResearch("test-key", &stubLLM{})
	r.endpoint = srv.URL

	text, err := r.Search(context.Background(), "Хан-Уул дүүрэг үнэ")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	want := "Үнэ өссөн.\nНэгдүгээр эх сурвалж: Зах зээл идэвхтэй.\nХоёрдугаар эх сурвалж: Үнэ тогтвортой."
	if text != want {
		t.Errorf("Expected %q, got %q", want, text)
	}

	if gotReq.APIKey != "test-key" {
		t.Errorf("Expected api_key test-key, got %q", gotReq.APIKey)
	}
	if gotReq.Query != "Хан-Уул дүүрэг үнэ" {
		t.Errorf("Expected query to pass through, got %q", gotReq.Query)
	}
	if gotReq.SearchDepth != "advanced" {
		t.Errorf("Expected search_depth advanced, got %q", gotReq.SearchDepth)
	}
	if !gotReq.IncludeAnswer {
		t.Error("Expected include_answer to be true")
	}
	if gotReq.MaxResults != tavilyMaxResults {
		t.Errorf("Expected max_results %d, got %d", tavilyMaxResults, gotReq.MaxResults)
	}
}

func TestResearchSearch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewResearch("test-key", &stubLLM{})
	r.endpoint = srv.URL

	if _, err := r.Search(context.Background(), "query"); err == nil {
		t.Fatal("expected error on HTTP 500")
	}
}

func TestSummarize_EmptyInput(t *testing.T) {
	r := NewResearch("test-key", &stubLLM{reply: "should not be used"})

	got := r.Summarize(context.Background(), "   \n ", ReportTypeProperty)
	if got != noSearchDataMsg {
		t.Errorf("Expected %q, got %q", noSearchDataMsg, got)
	}
}

func TestSummarize_PropertySlant(t *testing.T) {
	stub := &stubLLM{reply: "Товч дүгнэлт."}
	r := NewResearch("test-key", stub)

	got := r.Summarize(context.Background(), "Эх сурвалж: үнэ өссөн.", ReportTypeProperty)
	if got != "Товч дүгнэлт." {
		t.Errorf("Expected model reply, got %q", got)
	}
	if stub.lastSystem != propertySummarySystem {
		t.Errorf("Expected property summary system prompt, got %q", stub.lastSystem)
	}
	if !strings.Contains(stub.lastPrompt, "Эх сурвалж: үнэ өссөн.") {
		t.Errorf("Expected prompt to embed search text, got %q", stub.lastPrompt)
	}
}

func TestSummarize_MarketSlantOnOtherTypes(t *testing.T) {
	stub := &stubLLM{reply: "Чиг хандлага."}
	r := NewResearch("test-key", stub)

	r.Summarize(context.Background(), "мэдээлэл", ReportTypeDistrict)
	if stub.lastSystem != marketSummarySystem {
		t.Errorf("Expected market summary system prompt, got %q", stub.lastSystem)
	}
}

func TestSummarize_ModelFailure(t *testing.T) {
	r := NewResearch("test-key", &stubLLM{err: errors.New("model down")})

	got := r.Summarize(context.Background(), "мэдээлэл", ReportTypeProperty)
	if got != summaryFailedMsg {
		t.Errorf("Expected %q, got %q", summaryFailedMsg, got)
	}
}

func TestMarketSweep_CombinesAllQueries(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var body tavilyRequest
		json.NewDecoder(req.Body).Decode(&body)
		queries = append(queries, body.Query)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]string{
				{"title": "Мэдээ", "content": "агуулга"},
			},
		})
	}))
	defer srv.Close()

	stub := &stubLLM{reply: "Нэгдсэн шинжилгээ."}
	r := NewResearch("test-key", stub)
	r.endpoint = srv.URL

	got := r.MarketSweep(context.Background())
	if got != "Нэгдсэн шинжилгээ." {
		t.Errorf("Expected combined summary, got %q", got)
	}
	if len(queries) != len(marketSweepQueries) {
		t.Fatalf("expected %d queries, got %d", len(marketSweepQueries), len(queries))
	}
	if stub.lastSystem != sweepSummarySystem {
		t.Errorf("Expected sweep system prompt, got %q", stub.lastSystem)
	}
}

func TestMarketSweep_NothingUsable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := NewResearch("test-key", &stubLLM{reply: "should not run"})
	r.endpoint = srv.URL

	if got := r.MarketSweep(context.Background()); got != "" {
		t.Errorf("Expected empty result when every query fails, got %q", got)
	}
}

func TestCapRunes(t *testing.T) {
	s := "Үнэ мэдээлэл"
	capped := capRunes(s, 3)
	if capped != "Үнэ" {
		t.Errorf("Expected %q, got %q", "Үнэ", capped)
	}
	if !utf8.ValidString(capped) {
		t.Error("Expected capped string to stay valid UTF-8")
	}
	if capRunes("abc", 10) != "abc" {
		t.Errorf("Expected short strings unchanged, got %q", capRunes("abc", 10))
	}
}
