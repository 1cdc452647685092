package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Enkhtuvshin02/realstateagent/internal/analyzer"
)

// Message intents.
const (
	MessagePropertyURL    = "property_url"
	MessageReportRequest  = "report_request"
	MessageDistrictQuery  = "district_query"
	MessageMarketResearch = "market_research"
	MessageGeneral        = "general"
)

// Report types a chat turn can request.
const (
	ReportTypeProperty      = "property"
	ReportTypeDistrict      = "district"
	ReportTypeComprehensive = "comprehensive"
)

var urlRe = regexp.MustCompile(`https?://\S+`)

var (
	reportKeywords = []string{
		"тайлан", "report", "pdf", "татаж авах", "download",
		"тайлан үүсгэх", "generate report",
	}
	locationKeywords = []string{
		"дүүрэг", "байршил", "хот", "газар", "орон сууц", "байр",
	}
	marketKeywords = []string{
		"зах зээл", "үнийн чиглэл", "market", "тренд", "статистик",
		"хөрөнгө оруулалт", "investment", "зээл", "ипотек",
	}
	acceptKeywords = []string{
		"тиймээ", "тийм", "yes", "тайлан хүсэж байна",
		"хүсэж байна", "гаргана уу", "үүсгэнэ үү",
	}
	declineKeywords = []string{
		"үгүй", "хэрэггүй", "болиг",
	}
	districtReportKeywords      = []string{"дүүргийн тайлан", "дүүрэг харьцуулах", "бүх дүүрэг"}
	comprehensiveReportKeywords = []string{"иж бүрэн", "дэлгэрэнгүй зах зээл", "зах зээлийн тайлан"}
)

// maxAcceptanceLen keeps long analytical messages that happen to contain
// "тийм" from being mistaken for an offer acceptance.
const maxAcceptanceLen = 50

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// hasWord matches w as a standalone word. Needed for short particles
// like "за" that are substrings of unrelated words ("зарна").
func hasWord(s, w string) bool {
	for _, f := range strings.Fields(s) {
		if strings.Trim(f, ".,!?;:") == w {
			return true
		}
	}
	return false
}

// ExtractURL returns the first URL in the message, or "".
func ExtractURL(message string) string {
	return urlRe.FindString(message)
}

// ClassifyMessage determines how a chat turn should be routed. URLs win
// over everything, then explicit report requests, then district and
// market vocabulary.
func ClassifyMessage(message string) string {
	lower := strings.ToLower(message)

	if urlRe.MatchString(message) {
		return MessagePropertyURL
	}
	if containsAny(lower, reportKeywords) {
		return MessageReportRequest
	}

	_, hasDistrict := analyzer.ExtractDistrict(message)
	if hasDistrict || containsAny(lower, locationKeywords) {
		return MessageDistrictQuery
	}
	if containsAny(lower, marketKeywords) {
		return MessageMarketResearch
	}

	return MessageGeneral
}

// IsReportAcceptance reports whether a short message accepts a pending
// report offer.
func IsReportAcceptance(message string) bool {
	if utf8.RuneCountInString(message) >= maxAcceptanceLen {
		return false
	}
	lower := strings.ToLower(message)
	return containsAny(lower, acceptKeywords) || hasWord(lower, "за")
}

// IsReportDecline reports whether a short message turns a pending report
// offer down.
func IsReportDecline(message string) bool {
	if utf8.RuneCountInString(message) >= maxAcceptanceLen {
		return false
	}
	lower := strings.ToLower(message)
	return containsAny(lower, declineKeywords) || hasWord(lower, "no")
}

// DetermineReportType picks which report an explicit request asks for.
// hasPropertyContext selects the property report when the request names
// no specific kind but a recent property analysis exists.
func DetermineReportType(message string, hasPropertyContext bool) string {
	lower := strings.ToLower(message)

	switch {
	case containsAny(lower, districtReportKeywords):
		return ReportTypeDistrict
	case containsAny(lower, comprehensiveReportKeywords):
		return ReportTypeComprehensive
	case hasPropertyContext:
		return ReportTypeProperty
	default:
		return ReportTypeDistrict
	}
}
