package formatter

import (
	"errors"
	"strings"
	"testing"
)

func blockTypes(blocks []Block) []BlockType {
	types := make([]BlockType, len(blocks))
	for i, b := range blocks {
		types[i] = b.Type
	}
	return types
}

func findBlock(t *testing.T, blocks []Block, typ BlockType) Block {
	t.Helper()
	for _, b := range blocks {
		if b.Type == typ {
			return b
		}
	}
	t.Fatalf("no %s block in %v", typ, blockTypes(blocks))
	return Block{}
}

func countBlocks(blocks []Block, typ BlockType) int {
	n := 0
	for _, b := range blocks {
		if b.Type == typ {
			n++
		}
	}
	return n
}

func TestFormatPlainText(t *testing.T) {
	tests := []struct {
		name string
		text string
		html string
	}{
		{
			name: "single line",
			text: "Сайн байна уу! Би үл хөдлөх хөрөнгийн туслах байна.",
			html: "Сайн байна уу! Би үл хөдлөх хөрөнгийн туслах байна.",
		},
		{
			name: "newlines become line breaks",
			text: "Эхний мөр\nХоёр дахь мөр",
			html: "Эхний мөр<br>Хоёр дахь мөр",
		},
		{
			name: "bold spans become strong tags",
			text: "Үнэ **3.5 сая** төгрөг байна.",
			html: "Үнэ <strong>3.5 сая</strong> төгрөг байна.",
		},
		{
			name: "html metacharacters escaped",
			text: "1 < 2 & 3 > 2",
			html: "1 &lt; 2 &amp; 3 &gt; 2",
		},
		{
			name: "double newline stays inside the single paragraph",
			text: "Нэг.\n\nХоёр.",
			html: "Нэг.<br><br>Хоёр.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := Format(tt.text, Metadata{})
			if len(blocks) != 1 {
				t.Fatalf("expected exactly one block, got %v", blockTypes(blocks))
			}
			if blocks[0].Type != BlockParagraph {
				t.Fatalf("expected paragraph, got %s", blocks[0].Type)
			}
			if blocks[0].HTML != tt.html {
				t.Errorf("html = %q, want %q", blocks[0].HTML, tt.html)
			}
		})
	}
}

func TestFormatEmptyText(t *testing.T) {
	if blocks := Format("", Metadata{}); len(blocks) != 0 {
		t.Fatalf("empty text should yield no blocks, got %v", blockTypes(blocks))
	}

	blocks := Format("", Metadata{DownloadURL: "/reports/download/report.pdf"})
	if len(blocks) != 1 || blocks[0].Type != BlockDownloadAction {
		t.Fatalf("empty text with download url should yield only the download block, got %v", blockTypes(blocks))
	}
}

func TestFormatMessageNilText(t *testing.T) {
	_, err := FormatMessage(nil, Metadata{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	text := "Сайн байна уу"
	blocks, err := FormatMessage(&text, Metadata{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected one block, got %v", blockTypes(blocks))
	}
}

func TestFormatReportOffer(t *testing.T) {
	text := "Хан-Уул дүүргийн шинжилгээ бэлэн боллоо.\n\n" +
		"🏠 **Тайлан авах уу?**\n" +
		"Дэлгэрэнгүй PDF тайлан үүсгэхийг хүсвэл **'Тиймээ'** гэж бичнэ үү."

	blocks := Format(text, Metadata{})

	if n := countBlocks(blocks, BlockReportOffer); n != 1 {
		t.Fatalf("expected exactly one report offer, got %d", n)
	}
	if blocks[len(blocks)-1].Type != BlockReportOffer {
		t.Fatalf("report offer should be the last block, got %v", blockTypes(blocks))
	}
	if blocks[0].Type != BlockParagraph || !strings.Contains(blocks[0].HTML, "шинжилгээ бэлэн боллоо") {
		t.Errorf("text before the offer should stay a paragraph, got %+v", blocks[0])
	}

	offer := blocks[len(blocks)-1]
	if !strings.HasPrefix(offer.Prompt, "Тайлан авах уу?") {
		t.Errorf("prompt should start with the offer question, got %q", offer.Prompt)
	}
	if strings.Contains(offer.Prompt, "**") {
		t.Errorf("prompt should have bold markers stripped, got %q", offer.Prompt)
	}
	if offer.AcceptLabel != "Тиймээ" || offer.DeclineLabel != "Үгүй" {
		t.Errorf("unexpected labels %q / %q", offer.AcceptLabel, offer.DeclineLabel)
	}
}

func TestReportOfferBeforeDownload(t *testing.T) {
	text := "Шинжилгээ дууслаа.\n\n📊 **Тайлан авах уу?**\n**'Тиймээ'** гэж бичнэ үү."
	meta := Metadata{DownloadURL: "/reports/download/district_summary_20250610_120000.pdf"}

	blocks := Format(text, meta)
	if len(blocks) < 2 {
		t.Fatalf("expected offer and download blocks, got %v", blockTypes(blocks))
	}
	last := blocks[len(blocks)-1]
	if last.Type != BlockDownloadAction {
		t.Fatalf("download action must come last, got %v", blockTypes(blocks))
	}
	if blocks[len(blocks)-2].Type != BlockReportOffer {
		t.Fatalf("report offer must be last before the download action, got %v", blockTypes(blocks))
	}
}

func TestReportOfferTakesPriorityOverAnalysis(t *testing.T) {
	text := "**Дэлгэрэнгүй шинжилгээний алхмууд:**\n\n" +
		"**Алхам 1. Байршил.**\nТөв хэсэгт байрладаг.\n\n" +
		"🏠 **Тайлан авах уу?**\n**'Тиймээ'** гэж бичнэ үү."

	blocks := Format(text, Metadata{})
	if countBlocks(blocks, BlockAnalysisSection) != 0 {
		t.Fatalf("offer must take priority over analysis parsing, got %v", blockTypes(blocks))
	}
	if countBlocks(blocks, BlockReportOffer) != 1 {
		t.Fatalf("expected one report offer, got %v", blockTypes(blocks))
	}
}

func TestFormatAnalysis(t *testing.T) {
	text := "Орон сууцны зах зээлийн шинжилгээ хийлээ.\n\n" +
		"🧠 **Дэлгэрэнгүй шинжилгээний алхмууд:**\n\n" +
		"**Алхам 1. Байршлын үнэлгээ.**\nХан-Уул дүүрэг дундажаас өндөр үнэтэй.\nТөвөөс зайтай.\n\n" +
		"**Алхам 2. Үнийн харьцуулалт.**\nНэг м² үнэ 3.9 сая төгрөг.\n\n" +
		"**Гол дүгнэлтүүд:**\n• Үнэ зах зээлийн дундажтай ойролцоо\n• Хөрөнгө оруулалтад тохиромжтой\n\n" +
		"Дэлгэрэнгүй тайлан авах боломжтой."

	blocks := Format(text, Metadata{})

	want := []BlockType{BlockParagraph, BlockAnalysisSection, BlockInsightList, BlockParagraph}
	got := blockTypes(blocks)
	if len(got) != len(want) {
		t.Fatalf("blocks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("blocks = %v, want %v", got, want)
		}
	}

	section := blocks[1]
	if len(section.Steps) != 2 {
		t.Fatalf("expected 2 thinking steps, got %d", len(section.Steps))
	}
	if section.Steps[0].Title != "Алхам 1. Байршлын үнэлгээ." {
		t.Errorf("step title = %q", section.Steps[0].Title)
	}
	if section.Steps[0].Body != "Хан-Уул дүүрэг дундажаас өндөр үнэтэй. Төвөөс зайтай." {
		t.Errorf("step body = %q", section.Steps[0].Body)
	}
	if section.Steps[1].Title != "Алхам 2. Үнийн харьцуулалт." {
		t.Errorf("step title = %q", section.Steps[1].Title)
	}

	insights := blocks[2]
	if len(insights.Items) != 2 {
		t.Fatalf("expected 2 insight items, got %v", insights.Items)
	}
	if insights.Items[0] != "Үнэ зах зээлийн дундажтай ойролцоо" {
		t.Errorf("first insight = %q", insights.Items[0])
	}
	if insights.Items[1] != "Хөрөнгө оруулалтад тохиромжтой" {
		t.Errorf("second insight = %q", insights.Items[1])
	}
}

func TestInsightItemsTrimmedAndOrdered(t *testing.T) {
	text := "**Дэлгэрэнгүй шинжилгээний алхмууд:**\n\n**Гол дүгнэлтүүд:**\n• A\n• B"

	blocks := Format(text, Metadata{})
	insights := findBlock(t, blocks, BlockInsightList)
	if len(insights.Items) != 2 || insights.Items[0] != "A" || insights.Items[1] != "B" {
		t.Fatalf("items = %v, want [A B]", insights.Items)
	}
}

// Step-shaped sections without the analysis header marker must fall through
// to the default single-paragraph rule.
func TestStepsRequireAnalysisMarker(t *testing.T) {
	text := "Эхлэл.\n\n**Алхам 1. Нэг**\nМэдээлэл.\n\n**Гол дүгнэлтүүд:**\n• Эхний санаа"

	blocks := Format(text, Metadata{})
	if len(blocks) != 1 || blocks[0].Type != BlockParagraph {
		t.Fatalf("expected a single paragraph, got %v", blockTypes(blocks))
	}
	if countBlocks(blocks, BlockAnalysisSection) != 0 {
		t.Fatalf("no analysis section may be emitted without its marker")
	}
}

func TestAnalysisSectionClassification(t *testing.T) {
	text := "**Дэлгэрэнгүй шинжилгээний алхмууд:**\n\n" +
		"**Алхам 1. Эхний алхам.**\nТайлбар.\n\n" +
		"**Зөвхөн тод бичиг**\nЦэггүй эхний мөр алхам биш.\n\n" +
		"Цэгтэй. Гэхдээ тод бичиггүй тул алхам биш.\n\n" +
		"**Алхам 2. Дараагийн алхам.**\nМөн тайлбар."

	blocks := Format(text, Metadata{})

	section := findBlock(t, blocks, BlockAnalysisSection)
	if len(section.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d (%v)", len(section.Steps), blockTypes(blocks))
	}
	if n := countBlocks(blocks, BlockParagraph); n != 2 {
		t.Fatalf("expected the two non-step sections as paragraphs, got %d", n)
	}
}

func TestStepsAfterInsightsBecomeParagraphs(t *testing.T) {
	text := "**Дэлгэрэнгүй шинжилгээний алхмууд:**\n\n" +
		"**Алхам 1. Алхам.**\nТайлбар.\n\n" +
		"**Гол дүгнэлтүүд:**\n• Санаа\n\n" +
		"**Алхам 2. Хоцорсон.**\nЭнэ нь догол мөр болно."

	blocks := Format(text, Metadata{})
	section := findBlock(t, blocks, BlockAnalysisSection)
	if len(section.Steps) != 1 {
		t.Fatalf("insight section must close step accumulation, got %d steps", len(section.Steps))
	}
	if blocks[len(blocks)-1].Type != BlockParagraph {
		t.Fatalf("trailing step-shaped section should degrade to paragraph, got %v", blockTypes(blocks))
	}
}

func TestLoneBoldMarkerIsLiteral(t *testing.T) {
	tests := []struct {
		name string
		text string
		html string
	}{
		{"trailing marker", "Үнэ өссөн**", "Үнэ өссөн**"},
		{"only marker", "**", "**"},
		{"odd marker count", "Нэг **хос** ба сул**", "Нэг <strong>хос</strong> ба сул**"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := Format(tt.text, Metadata{})
			if len(blocks) != 1 || blocks[0].Type != BlockParagraph {
				t.Fatalf("expected one paragraph, got %v", blockTypes(blocks))
			}
			if blocks[0].HTML != tt.html {
				t.Errorf("html = %q, want %q", blocks[0].HTML, tt.html)
			}
		})
	}
}

func TestDownloadActionDefaults(t *testing.T) {
	blocks := Format("Тайлан бэлэн.", Metadata{DownloadURL: "/reports/download/x"})

	download := findBlock(t, blocks, BlockDownloadAction)
	if download.Filename != "report.pdf" {
		t.Errorf("filename = %q, want report.pdf", download.Filename)
	}
	if download.Label != "PDF тайлан" {
		t.Errorf("label = %q, want the generic label", download.Label)
	}
	if blocks[len(blocks)-1].Type != BlockDownloadAction {
		t.Errorf("download action must be the final block, got %v", blockTypes(blocks))
	}
}

func TestDownloadLabels(t *testing.T) {
	tests := []struct {
		filename string
		label    string
	}{
		{"property_analysis_20250610_141502.pdf", "Орон сууцны тайлан"},
		{"орон_сууц_тайлан.pdf", "Орон сууцны тайлан"},
		{"district_summary_20250610_141502.pdf", "Дүүргийн тайлан"},
		{"район_дүүрэг_summary.pdf", "Дүүргийн тайлан"},
		{"market_analysis_20250610_141502.pdf", "Зах зээлийн тайлан"},
		{"зах_зээл_2025.pdf", "Зах зээлийн тайлан"},
		{"annual_overview.pdf", "PDF тайлан"},
		// property_analysis is checked before дүүрэг
		{"property_analysis_дүүрэг.pdf", "Орон сууцны тайлан"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			blocks := Format("Тайлан бэлэн.", Metadata{
				DownloadURL: "/reports/download/" + tt.filename,
				Filename:    tt.filename,
			})
			download := findBlock(t, blocks, BlockDownloadAction)
			if download.Label != tt.label {
				t.Errorf("label = %q, want %q", download.Label, tt.label)
			}
			if download.Filename != tt.filename {
				t.Errorf("filename = %q, want %q", download.Filename, tt.filename)
			}
		})
	}
}

func TestNoDownloadWithoutURL(t *testing.T) {
	blocks := Format("Энгийн хариулт.", Metadata{Filename: "report.pdf", CotEnhanced: true})
	if countBlocks(blocks, BlockDownloadAction) != 0 {
		t.Fatalf("download action requires a download url, got %v", blockTypes(blocks))
	}
}
