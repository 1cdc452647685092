package formatter

import (
	"errors"
	"strings"
)

// Markers the assistant embeds in reply text. The offer marker is only
// honored when the backend wrapped it in bold, which is how every offer
// template emits it.
const (
	offerMarker    = "Тайлан авах уу?"
	analysisMarker = "Дэлгэрэнгүй шинжилгээний алхмууд:"
	insightMarker  = "Гол дүгнэлтүүд:"
)

const (
	acceptLabel  = "Тиймээ"
	declineLabel = "Үгүй"

	defaultFilename = "report.pdf"
	defaultLabel    = "PDF тайлан"
)

// ErrInvalidInput is returned when a message payload has no text at all.
// Malformed text never produces an error; it degrades to plain paragraphs.
var ErrInvalidInput = errors.New("formatter: message text is missing")

// BlockType tags a Block variant.
type BlockType string

const (
	BlockParagraph       BlockType = "paragraph"
	BlockThinkingStep    BlockType = "thinking_step"
	BlockAnalysisSection BlockType = "analysis_section"
	BlockInsightList     BlockType = "insight_list"
	BlockReportOffer     BlockType = "report_offer"
	BlockDownloadAction  BlockType = "download_action"
)

// Block is one typed piece of a formatted assistant reply. Type decides
// which of the remaining fields are populated.
type Block struct {
	Type BlockType `json:"type"`

	// paragraph
	HTML string `json:"html,omitempty"`

	// thinking_step
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`

	// analysis_section
	Steps []Block `json:"steps,omitempty"`

	// insight_list
	Items []string `json:"items,omitempty"`

	// report_offer
	Prompt       string `json:"prompt,omitempty"`
	AcceptLabel  string `json:"accept_label,omitempty"`
	DeclineLabel string `json:"decline_label,omitempty"`

	// download_action
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Metadata carries the optional fields delivered alongside a chat reply.
// It is supplied by the chat pipeline and never derived from the text.
type Metadata struct {
	DownloadURL string `json:"download_url,omitempty"`
	Filename    string `json:"filename,omitempty"`
	CotEnhanced bool   `json:"cot_enhanced,omitempty"`
}

// FormatMessage formats a reply payload whose text field may be absent.
// A nil text is a contract violation and fails fast.
func FormatMessage(text *string, meta Metadata) ([]Block, error) {
	if text == nil {
		return nil, ErrInvalidInput
	}
	return Format(*text, meta), nil
}

// Format converts assistant text into an ordered block sequence. The three
// recognized formats are mutually exclusive per message and checked in
// priority order: report offer, analysis steps, plain paragraph. When
// meta.DownloadURL is set, exactly one download block is appended last.
// Format never fails and is safe for concurrent use.
func Format(text string, meta Metadata) []Block {
	var blocks []Block
	switch {
	case text == "":
		// empty message still gets its download block below
	case strings.Contains(text, "**"+offerMarker):
		blocks = formatOffer(text)
	case strings.Contains(text, analysisMarker):
		blocks = formatAnalysis(text)
	default:
		blocks = []Block{paragraph(text)}
	}

	if meta.DownloadURL != "" {
		blocks = append(blocks, downloadAction(meta))
	}
	return blocks
}

// formatOffer splits the text at the bolded offer marker. Everything before
// it becomes ordinary paragraphs, the marker and what follows become the
// offer prompt with bold markers stripped.
func formatOffer(text string) []Block {
	idx := strings.Index(text, "**"+offerMarker)

	var blocks []Block
	for _, chunk := range strings.Split(text[:idx], "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		blocks = append(blocks, paragraph(chunk))
	}

	prompt := strings.TrimSpace(stripBold(text[idx:]))
	return append(blocks, Block{
		Type:         BlockReportOffer,
		Prompt:       prompt,
		AcceptLabel:  acceptLabel,
		DeclineLabel: declineLabel,
	})
}

// formatAnalysis partitions the text into double-newline sections. The
// section carrying the header marker opens the single analysis section;
// step-shaped sections accumulate into it until an insight section closes
// it. Everything else stays a paragraph, in input order.
func formatAnalysis(text string) []Block {
	var blocks []Block
	section := -1
	open := false

	for _, part := range strings.Split(text, "\n\n") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		switch {
		case section < 0 && strings.Contains(part, analysisMarker):
			blocks = append(blocks, Block{Type: BlockAnalysisSection})
			section = len(blocks) - 1
			open = true
		case strings.Contains(part, insightMarker):
			blocks = append(blocks, insightList(part))
			open = false
		case open && isStep(trimmed):
			blocks[section].Steps = append(blocks[section].Steps, thinkingStep(trimmed))
		default:
			blocks = append(blocks, paragraph(trimmed))
		}
	}
	return blocks
}

// isStep reports whether a section looks like a titled analysis step:
// its first line carries both a bold span and a period.
func isStep(section string) bool {
	line := section
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return strings.Contains(line, "**") && strings.Contains(line, ".")
}

func thinkingStep(section string) Block {
	lines := strings.Split(section, "\n")
	title := strings.TrimSpace(stripBold(lines[0]))

	var rest []string
	for _, line := range lines[1:] {
		line = strings.TrimSpace(stripBold(line))
		if line != "" {
			rest = append(rest, line)
		}
	}
	return Block{
		Type:  BlockThinkingStep,
		Title: title,
		Body:  strings.Join(rest, " "),
	}
}

func insightList(section string) Block {
	s := stripBold(section)
	if i := strings.Index(s, insightMarker); i >= 0 {
		s = s[i+len(insightMarker):]
	}

	var items []string
	for _, piece := range strings.Split(s, "•") {
		piece = strings.TrimSpace(piece)
		if piece != "" {
			items = append(items, piece)
		}
	}
	return Block{Type: BlockInsightList, Items: items}
}

func paragraph(text string) Block {
	return Block{Type: BlockParagraph, HTML: renderInline(text)}
}

// renderInline escapes HTML metacharacters, resolves bold spans and turns
// newlines into explicit line breaks.
func renderInline(text string) string {
	text = htmlEscaper.Replace(text)
	text = convertBold(text)
	return strings.ReplaceAll(text, "\n", "<br>")
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// convertBold wraps each balanced **...** pair in a strong tag. An
// unmatched marker is left in place as literal text.
func convertBold(text string) string {
	var b strings.Builder
	for {
		start := strings.Index(text, "**")
		if start < 0 {
			break
		}
		rest := text[start+2:]
		end := strings.Index(rest, "**")
		if end < 0 {
			break
		}
		b.WriteString(text[:start])
		b.WriteString("<strong>")
		b.WriteString(rest[:end])
		b.WriteString("</strong>")
		text = rest[end+2:]
	}
	b.WriteString(text)
	return b.String()
}

func stripBold(text string) string {
	return strings.ReplaceAll(text, "**", "")
}

func downloadAction(meta Metadata) Block {
	filename := meta.Filename
	if filename == "" {
		filename = defaultFilename
	}
	return Block{
		Type:     BlockDownloadAction,
		URL:      meta.DownloadURL,
		Filename: filename,
		Label:    downloadLabel(filename),
	}
}

// downloadLabel picks the download caption from the report kind encoded in
// the filename. The first matching substring wins.
func downloadLabel(filename string) string {
	rules := []struct {
		substr string
		label  string
	}{
		{"property_analysis", "Орон сууцны тайлан"},
		{"орон_сууц", "Орон сууцны тайлан"},
		{"district_summary", "Дүүргийн тайлан"},
		{"дүүрэг", "Дүүргийн тайлан"},
		{"market_analysis", "Зах зээлийн тайлан"},
		{"зах_зээл", "Зах зээлийн тайлан"},
	}
	for _, rule := range rules {
		if strings.Contains(filename, rule.substr) {
			return rule.label
		}
	}
	return defaultLabel
}
