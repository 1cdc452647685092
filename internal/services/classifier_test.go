package services

import "testing"

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"listing url", "https://www.unegui.mn/adv/8012345 энэ байр ямар вэ?", MessagePropertyURL},
		{"report request", "Надад тайлан гаргаж өгнө үү", MessageReportRequest},
		{"english report request", "Can you generate report?", MessageReportRequest},
		{"district by name", "Хан-Уул ямар үнэтэй вэ?", MessageDistrictQuery},
		{"location vocabulary", "2 өрөө байр хайж байна", MessageDistrictQuery},
		{"market vocabulary", "Зах зээлийн тренд ямар байна?", MessageMarketResearch},
		{"mortgage", "Ипотекийн зээлийн хүү хэд вэ?", MessageMarketResearch},
		{"general", "Сайн уу", MessageGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyMessage(tt.in)
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestClassifyMessage_URLWinsOverReportWords(t *testing.T) {
	got := ClassifyMessage("Энэ байрны тайлан: https://www.unegui.mn/adv/123")
	if got != MessagePropertyURL {
		t.Errorf("Expected %q, got %q", MessagePropertyURL, got)
	}
}

func TestExtractURL(t *testing.T) {
	got := ExtractURL("үзээрэй https://www.unegui.mn/adv/123-abc/ гоё байр")
	if got != "https://www.unegui.mn/adv/123-abc/" {
		t.Errorf("Expected listing URL, got %q", got)
	}

	if got := ExtractURL("холбоос алга"); got != "" {
		t.Errorf("Expected empty URL, got %q", got)
	}
}

func TestIsReportAcceptance(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"short yes", "Тиймээ", true},
		{"plain yes", "тийм", true},
		{"english yes", "yes", true},
		{"za", "за", true},
		{"za with punctuation", "За!", true},
		{"za inside a word is not acceptance", "49 мкв байр зарна", false},
		{"polite request", "Тайлан хүсэж байна", true},
		{"unrelated", "Баянгол дүүрэг ямар вэ?", false},
		{"long message with yes inside", "Тийм ээ, гэхдээ эхлээд надад зах зээлийн өнөөгийн байдал, үнийн чиг хандлагын талаар дэлгэрэнгүй тайлбарлаж өгөөч", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsReportAcceptance(tt.in)
			if got != tt.want {
				t.Errorf("IsReportAcceptance(%q): expected %v, got %v", tt.in, tt.want, got)
			}
		})
	}
}

func TestIsReportDecline(t *testing.T) {
	if !IsReportDecline("Үгүй") {
		t.Errorf("Expected decline for Үгүй")
	}
	if !IsReportDecline("хэрэггүй ээ") {
		t.Errorf("Expected decline for хэрэггүй")
	}
	if IsReportDecline("Хан-Уул дүүргийн үнэ ямар вэ?") {
		t.Errorf("Expected no decline for a district question")
	}
}

func TestDetermineReportType(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		hasProperty bool
		want        string
	}{
		{"district keywords", "дүүргийн тайлан гаргана уу", false, ReportTypeDistrict},
		{"all districts", "бүх дүүрэг харьцуулсан тайлан", true, ReportTypeDistrict},
		{"comprehensive", "иж бүрэн тайлан хүсэж байна", true, ReportTypeComprehensive},
		{"market report", "зах зээлийн тайлан", false, ReportTypeComprehensive},
		{"plain with property context", "тайлан авъя", true, ReportTypeProperty},
		{"plain without context", "тайлан авъя", false, ReportTypeDistrict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetermineReportType(tt.in, tt.hasProperty)
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
