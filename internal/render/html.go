// Package render builds the print-ready HTML documents behind the PDF
// reports and converts them into downloadable artifacts.
package render

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"

	"github.com/Enkhtuvshin02/realstateagent/internal/models"
)

const (
	propertyTitle = "Үл хөдлөх хөрөнгийн дэлгэрэнгүй шинжилгээ"
	districtTitle = "Дүүргийн үл хөдлөх хөрөнгийн зах зээлийн шинжилгээ"
	marketTitle   = "Үл хөдлөх хөрөнгийн зах зээлийн дэлгэрэнгүй шинжилгээ"

	noData = "Мэдээлэл байхгүй"
)

var propertySections = [...]string{
	"1. Үндсэн мэдээлэл ба техникийн үзүүлэлт",
	"2. Үнийн шинжилгээ ба зах зээлийн байршил",
	"3. Дүүргийн зах зээлийн шинжилгээ",
	"4. Хөрөнгийн үнэлгээ ба харьцуулалт",
	"5. Хөрөнгө оруулалтын боломж ба эрсдэл",
	"6. Зөвлөмж ба дүгнэлт",
	"7. Нэмэлт зах зээлийн мэдээлэл",
}

var districtSections = [...]string{
	"1. Дүүргүүдийн үнийн харьцуулалт ба зэрэглэл",
	"2. Зах зээлийн чиг хандлага ба статистик",
	"3. Хөрөнгө оруулалтын боломжит бүсүүд",
	"4. Дүүргүүдийн давуу болон сул талууд",
	"5. Худалдан авагчдад зориулсан стратеги",
	"6. Ирээдүйн хөгжлийн төлөв байдал",
	"7. Интернэт судалгааны нэмэлт мэдээлэл",
}

var marketSections = [...]string{
	"1. Зах зээлийн ерөнхий байдал ба тойм",
	"2. Үнийн өөрчлөлт ба чиг хандлага",
	"3. Эрэлт хэрэгцээ ба нийлүүлэлтийн шинжилгээ",
	"4. Дүүргүүдийн зах зээлийн харьцуулалт",
	"5. Хөрөнгө оруулалтын стратеги ба боломж",
	"6. Эрсдэлийн үнэлгээ ба анхааруулга",
	"7. Зах зээлийн таамаглал ба зөвлөмж",
}

// Price-per-sqm bands (tögrög) that drive the canned assessments.
const (
	bandAffordable = 3_000_000
	bandExpensive  = 4_000_000
)

var (
	brTagRe = regexp.MustCompile(`(?i)<br\s*/?>`)
	spaceRe = regexp.MustCompile(` +`)
)

// CleanText escapes free-form text for embedding in report HTML,
// keeping line breaks as <br> tags. Empty input renders as the
// standard no-data phrase.
func CleanText(text string) string {
	if text == "" {
		return noData
	}
	s := brTagRe.ReplaceAllString(text, "\n")
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\n\n", "<br><br>")
	s = strings.ReplaceAll(s, "\n", "<br>")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// FormatPrice renders a tögrög amount the way the reports print money:
// millions as "4.5 сая ₮", smaller amounts with space-grouped digits.
func FormatPrice(v float64) string {
	if v == 0 {
		return "0 ₮"
	}
	if v >= 1_000_000 {
		return fmt.Sprintf("%.1f сая ₮", v/1_000_000)
	}
	return groupDigits(int(v)) + " ₮"
}

// MongolianDate renders a timestamp the way report headers show it,
// e.g. "2025 оны 03-р сарын 07".
func MongolianDate(t time.Time) string {
	return fmt.Sprintf("%d оны %02d-р сарын %02d", t.Year(), int(t.Month()), t.Day())
}

// groupDigits writes an integer with space-separated thousands.
func groupDigits(n int) string {
	s := strconv.Itoa(n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + " " + s[i:]
	}
	return s
}

// markdownHTML converts model-generated markdown into HTML. Raw HTML in
// the source is dropped by goldmark, so model output cannot inject
// markup into the report.
func markdownHTML(md string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "<p>" + CleanText(md) + "</p>\n"
	}
	return buf.String()
}

// analysisHTML embeds a model-written analysis body, or the given
// fallback sentence when the body is empty.
func analysisHTML(body, fallback string) string {
	if strings.TrimSpace(body) == "" {
		return "<p>" + fallback + "</p>\n"
	}
	return markdownHTML(body)
}

func section(title, body string) string {
	return "<div class=\"section\">\n<h2>" + title + "</h2>\n" + body + "</div>\n"
}

func document(title, body string, now time.Time) string {
	var b strings.Builder
	b.WriteString("<html>\n<head>\n<meta charset=\"UTF-8\">\n<style>")
	b.WriteString(baseCSS)
	b.WriteString("</style>\n<title>" + title + "</title>\n</head>\n<body>\n")
	b.WriteString("<h1>" + title + "</h1>\n")
	fmt.Fprintf(&b, "<p class=\"report-date\">Тайлангийн огноо: %s</p>\n", MongolianDate(now))
	b.WriteString(body)
	fmt.Fprintf(&b, "<div id=\"footer_content\" class=\"footer-text\">Улаанбаатар хотын үл хөдлөх хөрөнгийн туслах систем © %d</div>\n", now.Year())
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// PropertyReportData carries everything the single-listing report
// renders. DistrictAnalysis and Comparison are model-written bodies,
// ResearchSummary comes from web research and may be empty.
type PropertyReportData struct {
	Property         models.PropertyDetails
	DistrictAnalysis string
	Comparison       string
	ResearchSummary  string
}

// PropertyReportHTML builds the full property analysis document. The
// research section is present only when research actually ran.
func PropertyReportHTML(d PropertyReportData, now time.Time) string {
	p := d.Property
	var b strings.Builder
	b.WriteString("<div class=\"section property-details\">\n<h2>" + propertySections[0] + "</h2>\n" + propertyBasicInfo(p) + "</div>\n")
	b.WriteString(section(propertySections[1], propertyPriceAnalysis(p)))
	b.WriteString(section(propertySections[2], propertyDistrictAnalysis(d.DistrictAnalysis, p.District)))
	b.WriteString(section(propertySections[3], propertyValuation(d.Comparison, p.PricePerSqm)))
	b.WriteString(section(propertySections[4], propertyInvestment(p.PricePerSqm, p.District, p.AreaSqm)))
	b.WriteString(section(propertySections[5], propertyRecommendations(p.PricePerSqm, p.District, p.RoomCount)))
	if strings.TrimSpace(d.ResearchSummary) != "" {
		b.WriteString(section(propertySections[6], propertyResearch(d.ResearchSummary)))
	}
	return document(propertyTitle, b.String(), now)
}

func propertyBasicInfo(p models.PropertyDetails) string {
	perRoom := "Тодорхойгүй (өрөөний тоо 0)"
	if p.RoomCount > 0 {
		perRoom = fmt.Sprintf("%.1f м² (дундажаар)", p.AreaSqm/float64(p.RoomCount))
	}
	var b strings.Builder
	b.WriteString("<h3>Үндсэн мэдээлэл:</h3>\n")
	fmt.Fprintf(&b, "<div><strong>Гарчиг:</strong> %s</div>\n", CleanText(p.Title))
	fmt.Fprintf(&b, "<div><strong>Байршил:</strong> %s</div>\n", CleanText(p.FullLocation))
	fmt.Fprintf(&b, "<div><strong>Дүүрэг:</strong> %s</div>\n", CleanText(p.District))
	b.WriteString("<h3>Техникийн үзүүлэлт:</h3>\n")
	fmt.Fprintf(&b, "<div><strong>Талбай:</strong> %.2f м²</div>\n", p.AreaSqm)
	fmt.Fprintf(&b, "<div><strong>Өрөөний тоо:</strong> %d өрөө</div>\n", p.RoomCount)
	fmt.Fprintf(&b, "<div><strong>1 өрөөнд ногдох талбай:</strong> %s</div>\n", perRoom)
	return b.String()
}

func propertyPriceAnalysis(p models.PropertyDetails) string {
	category := "тодорхойгүй"
	switch {
	case p.PricePerSqm > bandExpensive:
		category = "өндөр"
	case p.PricePerSqm >= bandAffordable:
		category = "дундаж"
	case p.PricePerSqm > 0:
		category = "доогуур"
	}

	class := "Тодорхойгүй"
	switch {
	case p.PricePerSqm > bandExpensive:
		class = "Үнэтэй"
	case p.PricePerSqm > bandAffordable:
		class = "Дундаж"
	case p.PricePerSqm > 0:
		class = "Хямд"
	}

	total := "Тодорхойгүй"
	if p.PricePerSqm > 0 && p.AreaSqm > 0 {
		total = groupDigits(int(p.PricePerSqm*p.AreaSqm)) + "₮"
	}

	var b strings.Builder
	b.WriteString("<div class=\"price-highlight\">\n")
	fmt.Fprintf(&b, "<div class=\"price-main\">Нийт үнэ: %s</div>\n", FormatPrice(p.Price))
	fmt.Fprintf(&b, "<div class=\"price-main\">м² үнэ: %s</div>\n", FormatPrice(p.PricePerSqm))
	b.WriteString("</div>\n<h3>Үнийн шинжилгээ:</h3>\n")
	fmt.Fprintf(&b, "<div><strong>Зах зээлийн байршил:</strong> %s үнийн түвшин</div>\n", category)
	fmt.Fprintf(&b, "<div><strong>Нийт дүн (тооцоолсон):</strong> %s</div>\n", total)
	fmt.Fprintf(&b, "<div><strong>Үнийн ангилал:</strong> %s</div>\n", class)
	return b.String()
}

func propertyDistrictAnalysis(analysis, district string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h3>%s дүүргийн зах зээлийн үнэлгээ:</h3>\n", CleanText(district))
	b.WriteString(analysisHTML(analysis, "Дүүргийн шинжилгээний мэдээлэл байхгүй."))
	b.WriteString("<h3>Дүүргийн онцлог:</h3>\n")
	b.WriteString("<p>Энэ дүүрэг нь Улаанбаатар хотын нэгэн чухал хэсэг бөгөөд өөрийн гэсэн онцлог, давуу талтай. Дэлгэрэнгүй мэдээллийг дээрх үнэлгээнээс харна уу.</p>\n")
	return b.String()
}

func propertyValuation(comparison string, pricePerSqm float64) string {
	position := "Тодорхойгүй"
	switch {
	case pricePerSqm > 3_500_000:
		position = "Дээгүүр"
	case pricePerSqm > 0 && pricePerSqm < bandAffordable:
		position = "Доогуур"
	case pricePerSqm > 0:
		position = "Ойролцоо"
	}

	var b strings.Builder
	b.WriteString("<h3>Хөрөнгийн үнэлгээ (LLM шинжилгээ):</h3>\n")
	b.WriteString(analysisHTML(comparison, "Хөрөнгийн үнэлгээний мэдээлэл байхгүй."))
	b.WriteString("<h3>Зах зээлийн харьцуулалт (м.кв үнээр):</h3>\n")
	fmt.Fprintf(&b, "<div><strong>Дундаж зах зээлийн үнэтэй харьцуулбал:</strong> %s</div>\n", position)
	return b.String()
}

func propertyInvestment(pricePerSqm float64, district string, area float64) string {
	potential := "Тодорхойгүй"
	switch {
	case pricePerSqm > 0 && pricePerSqm < 3_500_000:
		potential = "Өндөр"
	case pricePerSqm > 0 && pricePerSqm < 4_500_000:
		potential = "Дундаж"
	case pricePerSqm > 0:
		potential = "Бага"
	}

	rental := "Тодорхойгүй"
	switch {
	case area > 50:
		rental = "Сайн"
	case area > 0:
		rental = "Дундаж"
	}

	risk := "Тодорхойгүй"
	switch {
	case pricePerSqm > 5_000_000:
		risk = "Өндөр"
	case pricePerSqm > 0:
		risk = "Дундаж"
	}

	var b strings.Builder
	b.WriteString("<h3>Хөрөнгө оруулалтын боломж:</h3>\n")
	fmt.Fprintf(&b, "<div><strong>Хөрөнгө оруулалтын потенциал:</strong> %s</div>\n", potential)
	fmt.Fprintf(&b, "<div><strong>Түрээсийн орлогын магадлал:</strong> %s (талбайн хэмжээнээс хамаарч)</div>\n", rental)
	b.WriteString("<h3>Эрсдэлийн үнэлгээ:</h3>\n")
	fmt.Fprintf(&b, "<div><strong>Үнийн эрсдэл (өндөр үнэтэй бол):</strong> %s</div>\n", risk)
	fmt.Fprintf(&b, "<div><strong>Зах зээлийн тогтвортой байдал:</strong> %s дүүрэг харьцангуй тогтвортой (ерөнхий төлөв).</div>\n", CleanText(district))
	return b.String()
}

func propertyRecommendations(pricePerSqm float64, district string, rooms int) string {
	roomAdvice := "Хувь хүний амьдралд болон жижиг гэр бүлд тохиромжтой хэмжээтэй."
	switch {
	case rooms >= 3:
		roomAdvice = "Гэр бүлийн хэрэгцээнд нийцэхүйц, олон өрөөтэй."
	case rooms == 0:
		roomAdvice = "Өрөөний тоо тодорхойгүй."
	}

	var b strings.Builder
	b.WriteString("<h3>Хөрөнгө оруулалтын ерөнхий зөвлөмж (м.кв үнээр):</h3>\n")
	fmt.Fprintf(&b, "<p>%s</p>\n", InvestmentAdvice(pricePerSqm))
	b.WriteString("<h3>Худалдан авахын өмнөх анхаарах зүйлс:</h3>\n<ul>\n")
	b.WriteString("<li>Орон сууцыг биечлэн үзэж, техникийн байдал, засварын түвшинг шалгана уу.</li>\n")
	fmt.Fprintf(&b, "<li>%s дүүргийн бусад ижил төстэй байрнуудын үнэтэй харьцуулж судлаарай.</li>\n", CleanText(district))
	b.WriteString("<li>Худалдан авах гэрээ, бичиг баримтын бүрдэл, хууль зүйн асуудлыг сайтар нягтална уу.</li>\n")
	fmt.Fprintf(&b, "<li>%s</li>\n</ul>\n", roomAdvice)
	return b.String()
}

// InvestmentAdvice picks the canned recommendation for a price per
// square meter. Exported because the chat flow quotes the same lines.
func InvestmentAdvice(pricePerSqm float64) string {
	switch {
	case pricePerSqm <= 0:
		return "Үнийн мэдээлэл байхгүй тул хөрөнгө оруулалтын зөвлөмж өгөх боломжгүй."
	case pricePerSqm > bandExpensive:
		return "Энэ үл хөдлөх хөрөнгө нь Улаанбаатар хотын дундаж үнээс дээгүүр үнэтэй. Урт хугацааны өсөлтийн боломжтой боловч эхний хөрөнгө оруулалт өндөр байна."
	case pricePerSqm < bandAffordable:
		return "Энэ үл хөдлөх хөрөнгө нь харьцангуй хямд үнэтэй. Хөрөнгө оруулалтын сайн боломжтой, түрээсийн өгөөж өндөр байх магадлалтай."
	default:
		return "Энэ үл хөдлөх хөрөнгө нь Улаанбаатар хотын дундаж үнэтэй. Хөрөнгө оруулалтын сайн тэнцвэрт боломжтой бөгөөд түрээсийн орлого олох боломжтой."
	}
}

func propertyResearch(summary string) string {
	var b strings.Builder
	b.WriteString("<h3>Нэмэлт судалгааны үр дүн (интернет хайлтаас):</h3>\n")
	b.WriteString(analysisHTML(summary, "Нэмэлт онлайн судалгааны мэдээлэл олдсонгүй."))
	b.WriteString("<h3>Зах зээлийн нэмэлт мэдээлэл:</h3>\n")
	b.WriteString("<p>Энэхүү мэдээлэл нь автоматжуулсан интернет хайлтаас цуглуулсан бөгөөд зах зээлийн одоогийн байдлыг тодорхой хэмжээнд тусгасан болно. Нарийвчилсан шийдвэр гаргахын өмнө мэргэжлийн байгууллагуудаас зөвлөгөө авна уу.</p>\n")
	return b.String()
}

// DistrictReportData carries the citywide comparison report inputs.
type DistrictReportData struct {
	Districts       []models.DistrictStats
	MarketTrends    string
	FutureOutlook   string
	ResearchSummary string
}

// DistrictReportHTML builds the district comparison document.
func DistrictReportHTML(d DistrictReportData, now time.Time) string {
	var b strings.Builder
	b.WriteString(section(districtSections[0], districtPriceComparison(d.Districts)))
	b.WriteString(section(districtSections[1], districtMarketTrends(d.MarketTrends, d.Districts)))
	b.WriteString(section(districtSections[2], districtInvestmentZones(d.Districts)))
	b.WriteString(section(districtSections[3], districtAdvantages(d.Districts)))
	b.WriteString(section(districtSections[4], districtBuyerStrategies(d.Districts)))
	b.WriteString(section(districtSections[5], analysisHTML(d.FutureOutlook, "Ирээдүйн хөгжлийн төлөвийн талаарх мэдээлэл боловсруулагдаагүй.")))
	b.WriteString(section(districtSections[6], districtResearch(d.ResearchSummary)))
	return document(districtTitle, b.String(), now)
}

// withPrices filters districts down to those carrying a usable average.
func withPrices(districts []models.DistrictStats) []models.DistrictStats {
	out := make([]models.DistrictStats, 0, len(districts))
	for _, st := range districts {
		if st.OverallAvg > 0 && st.Name != "" {
			out = append(out, st)
		}
	}
	return out
}

func rankByPrice(districts []models.DistrictStats) []models.DistrictStats {
	ranked := withPrices(districts)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].OverallAvg > ranked[j].OverallAvg })
	return ranked
}

func districtPriceComparison(districts []models.DistrictStats) string {
	if len(districts) == 0 {
		return "<p>Дүүргийн үнийн харьцуулалт хийх мэдээлэл байхгүй.</p>\n"
	}
	ranked := rankByPrice(districts)
	if len(ranked) == 0 {
		return "<p>Дүүргүүдийн үнийн зэрэглэл гаргахад хангалттай мэдээлэл алга.</p>\n" + districtsTable(districts)
	}

	var b strings.Builder
	b.WriteString("<h3>Үнийн зэрэглэл (өндрөөс доошоо, м.кв дундаж үнээр):</h3>\n<ol>\n")
	for _, st := range ranked {
		fmt.Fprintf(&b, "<li><strong>%s</strong>: %s</li>\n", CleanText(st.Name), FormatPrice(st.OverallAvg))
	}
	b.WriteString("</ol>\n")
	b.WriteString(districtsTable(districts))
	return b.String()
}

func districtsTable(districts []models.DistrictStats) string {
	if len(districts) == 0 {
		return "<p>Дүүргүүдийн дэлгэрэнгүй харьцуулалт хийх мэдээлэл байхгүй.</p>\n"
	}
	rows := make([]models.DistrictStats, 0, len(districts))
	for _, st := range districts {
		if st.Name != "" {
			rows = append(rows, st)
		}
	}
	if len(rows) == 0 {
		return "<p>Дүүргүүдийн дэлгэрэнгүй харьцуулалт хийхэд хангалттай мэдээлэл алга.</p>\n"
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].OverallAvg > rows[j].OverallAvg })

	var b strings.Builder
	b.WriteString("<h3>Дүүргүүдийн дэлгэрэнгүй харьцуулалт (м.кв дундаж үнээр):</h3>\n")
	b.WriteString("<table>\n<thead>\n<tr><th>Дүүрэг</th><th>Дундаж үнэ (м²)</th><th>2 өрөө (м²)</th><th>3 өрөө (м²)</th></tr>\n</thead>\n<tbody>\n")
	for _, st := range rows {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			CleanText(st.Name), FormatPrice(st.OverallAvg), FormatPrice(st.TwoRoomAvg), FormatPrice(st.ThreeRoomAvg))
	}
	b.WriteString("</tbody>\n</table>\n")
	return b.String()
}

func districtMarketTrends(trends string, districts []models.DistrictStats) string {
	var b strings.Builder
	valid := withPrices(districts)
	if len(valid) == 0 {
		b.WriteString("<p>Зах зээлийн статистик тооцоолох дүүргийн дэлгэрэнгүй мэдээлэл байхгүй.</p>\n")
	} else {
		var sum float64
		max, min := valid[0].OverallAvg, valid[0].OverallAvg
		for _, st := range valid {
			sum += st.OverallAvg
			if st.OverallAvg > max {
				max = st.OverallAvg
			}
			if st.OverallAvg < min {
				min = st.OverallAvg
			}
		}
		avg := sum / float64(len(valid))
		b.WriteString("<h3>Зах зээлийн статистик (өгөгдсөн дүүргүүдэд тулгуурлав):</h3>\n<ul>\n")
		fmt.Fprintf(&b, "<li><strong>Дундаж үнэ (м.кв):</strong> %s</li>\n", FormatPrice(avg))
		fmt.Fprintf(&b, "<li><strong>Хамгийн өндөр дундаж үнэ (м.кв):</strong> %s</li>\n", FormatPrice(max))
		fmt.Fprintf(&b, "<li><strong>Хамгийн доод дундаж үнэ (м.кв):</strong> %s</li>\n", FormatPrice(min))
		fmt.Fprintf(&b, "<li><strong>Үнийн зөрүү (дээд ба доод):</strong> %s</li>\n</ul>\n", FormatPrice(max-min))
	}
	b.WriteString("<h3>Зах зээлийн чиг хандлага (LLM шинжилгээ):</h3>\n")
	b.WriteString(analysisHTML(trends, "Зах зээлийн чиг хандлагын мэдээлэл байхгүй."))
	return b.String()
}

func districtInvestmentZones(districts []models.DistrictStats) string {
	if len(districts) == 0 {
		return "<p>Хөрөнгө оруулалтын бүсийн мэдээлэл тодорхойлох өгөгдөл байхгүй.</p>\n"
	}

	var expensive, moderate, affordable []models.DistrictStats
	for _, st := range districts {
		switch {
		case st.OverallAvg > bandExpensive:
			expensive = append(expensive, st)
		case st.OverallAvg >= bandAffordable:
			moderate = append(moderate, st)
		case st.OverallAvg > 0:
			affordable = append(affordable, st)
		}
	}

	var b strings.Builder
	b.WriteString("<h3>Хөрөнгө оруулалтын боломжит бүсүүд (м.кв дундаж үнээр ангилсан):</h3>\n")
	writeZone := func(title, note string, group []models.DistrictStats) {
		if len(group) == 0 {
			return
		}
		b.WriteString("<h4>" + title + "</h4>\n<ul>\n")
		for _, st := range group {
			fmt.Fprintf(&b, "<li><strong>%s</strong> - %s</li>\n", CleanText(st.Name), note)
		}
		b.WriteString("</ul>\n")
	}
	writeZone("💰 Өндөр зэрэглэлийн бүс (&gt;4,000,000₮/м²):", "Урт хугацааны үнэ цэнийн өсөлт, нэр хүндтэй байршил.", expensive)
	writeZone("🏠 Дундаж үнийн бүс (3,000,000-4,000,000₮/м²):", "Тэнцвэртэй хөрөнгө оруулалт, тогтвортой өгөөж.", moderate)
	writeZone("🌟 Боломжийн үнэтэй бүс (&lt;3,000,000₮/м²):", "Эхний хөрөнгө оруулагчдад болон түрээсийн өндөр өгөөж хүсэгчдэд.", affordable)

	if len(expensive)+len(moderate)+len(affordable) == 0 {
		b.WriteString("<p>Өгөгдсөн дүүргүүдээс хөрөнгө оруулалтын бүсчлэлийг ангилахад хангалттай мэдээлэл алга.</p>\n")
	}
	return b.String()
}

func districtAdvantages(districts []models.DistrictStats) string {
	var b strings.Builder
	b.WriteString("<h3>Дүүргүүдийн онцлог ба давуу сул тал (ерөнхий үнэлгээ):</h3>\n")

	if len(districts) == 0 {
		b.WriteString("<p>Дүүргүүдийн онцлогийг тодорхойлох мэдээлэл байхгүй.</p>\n")
		return b.String()
	}
	ranked := rankByPrice(districts)
	if len(ranked) == 0 {
		b.WriteString("<p>Дүүргүүдийн онцлогийг тодорхойлох мэдээлэл хангалтгүй байна.</p>\n")
		return b.String()
	}
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}

	for i, st := range ranked {
		var advantages, disadvantages string
		switch {
		case st.OverallAvg > bandExpensive:
			advantages = "Нэр хүндтэй байршил, Дэд бүтэц сайн хөгжсөн, Үйлчилгээний хүртээмж өндөр"
			disadvantages = "Үл хөдлөх хөрөнгийн үнэ өндөр, Хөрөнгө оруулалтын эхлэлтийн зардал их"
		case st.OverallAvg > bandAffordable:
			advantages = "Үнэ болон байршлын тэнцвэртэй харьцаа, Олон нийтийн тээврийн хүртээмж сайн, Тогтвортой зах зээл"
			disadvantages = "Дундаж өсөлттэй байж болзошгүй, Зарим хэсэгт хэт төвлөрөл үүссэн байж болно"
		default:
			advantages = "Боломжийн үнэ, Ирээдүйд үнэ цэнэ өсөх потенциал, Анхны худалдан авагчдад тохиромжтой"
			disadvantages = "Зарим дэд бүтэц хөгжиж буй шатанд, Хотын төвөөс зайтай байж болзошгүй"
		}
		fmt.Fprintf(&b, "<h4>%d. %s дүүрэг:</h4>\n", i+1, CleanText(st.Name))
		fmt.Fprintf(&b, "<p><strong>Давуу тал (ерөнхийлсөн):</strong> %s</p>\n", advantages)
		fmt.Fprintf(&b, "<p><strong>Сул тал (ерөнхийлсөн):</strong> %s</p>\n", disadvantages)
	}
	return b.String()
}

func districtBuyerStrategies(districts []models.DistrictStats) string {
	familySuggestion := "Тохиромжтой дүүргийн мэдээлэл дутмаг."
	var bestFamily *models.DistrictStats
	for i := range districts {
		st := &districts[i]
		if st.Name == "" || st.ThreeRoomAvg <= 0 {
			continue
		}
		if bestFamily == nil || st.ThreeRoomAvg < bestFamily.ThreeRoomAvg {
			bestFamily = st
		}
	}
	if bestFamily != nil {
		familySuggestion = fmt.Sprintf("%s дүүрэг (3 өрөөний дундаж үнэ харьцангуй боломжийн).", CleanText(bestFamily.Name))
	}

	starterSuggestion := "Тохиромжтой дүүргийн мэдээлэл дутмаг."
	var bestStarter *models.DistrictStats
	for i := range districts {
		st := &districts[i]
		if st.Name == "" || st.OverallAvg <= 0 || st.OverallAvg >= 3_500_000 {
			continue
		}
		if bestStarter == nil || st.OverallAvg < bestStarter.OverallAvg {
			bestStarter = st
		}
	}
	if bestStarter != nil {
		starterSuggestion = fmt.Sprintf("%s дүүрэг (ерөнхий дундаж үнэ харьцангуй боломжийн).", CleanText(bestStarter.Name))
	}

	var b strings.Builder
	b.WriteString("<h3>Худалдан авагчдад зориулсан стратеги:</h3>\n")
	b.WriteString("<h4>👨‍👩‍👧‍👦 Гэр бүлээрээ амьдрах гэж буй худалдан авагчид:</h4>\n<ul>\n")
	b.WriteString("<li>Сургууль, цэцэрлэг, эмнэлэг, ногоон байгууламж зэрэг гэр бүлд ээлтэй дэд бүтцийн ойр орчмыг сонгох.</li>\n")
	b.WriteString("<li>3 ба түүнээс дээш өрөөтэй, талбай томтой орон сууцыг судлах.</li>\n")
	fmt.Fprintf(&b, "<li>Санал болгож болох дүүрэг (жишээ): %s</li>\n</ul>\n", familySuggestion)
	b.WriteString("<h4>🏠 Анх удаа орон сууц худалдан авагчид:</h4>\n<ul>\n")
	b.WriteString("<li>Санхүүгийн боломждоо тохирсон 1-2 өрөө байрнаас эхлэх.</li>\n")
	b.WriteString("<li>Ажлын газар болон нийтийн тээврийн хүртээмж сайтай байршлыг сонгох.</li>\n")
	b.WriteString("<li>Ипотекийн зээлийн нөхцөлүүдийг сайтар судлах.</li>\n")
	fmt.Fprintf(&b, "<li>Санал болгож болох дүүрэг (жишээ): %s</li>\n</ul>\n", starterSuggestion)
	b.WriteString("<h4>💼 Хөрөнгө оруулагчид:</h4>\n<ul>\n")
	b.WriteString("<li>Түрээсийн эрэлт өндөртэй, өгөөж сайтай байршлуудыг судлах.</li>\n")
	b.WriteString("<li>Ирээдүйд үнэ цэнэ нь өсөх боломжтой, хөгжиж буй бүс нутгуудад анхаарах.</li>\n")
	b.WriteString("<li>Зах зээлийн чиг хандлага, үнийн өөрчлөлтийг тогтмол хянах.</li>\n")
	b.WriteString("<li>Олон төрлийн үл хөдлөх хөрөнгийн багц бүрдүүлэхийг зорих.</li>\n</ul>\n")
	return b.String()
}

func districtResearch(summary string) string {
	var b strings.Builder
	b.WriteString("<h3>Нэмэлт интернэт судалгааны үр дүн:</h3>\n")
	b.WriteString(analysisHTML(summary, "Интернэт судалгааны нэмэлт мэдээлэл байхгүй."))
	b.WriteString("<h3>Мэдээллийн нэмэлт эх сурвалжууд:</h3>\n<ul>\n")
	b.WriteString("<li>Албан ёсны статистикийн газрууд (Үндэсний Статистикийн Хороо г.м)</li>\n")
	b.WriteString("<li>Үл хөдлөх хөрөнгийн мэргэшсэн агентлагуудын тайлан, судалгаа</li>\n")
	b.WriteString("<li>Банк, санхүүгийн байгууллагуудын ипотекийн зээлийн мэдээлэл</li>\n")
	b.WriteString("<li>Барилга, хот байгуулалтын яамны мэдээ, төлөвлөгөө</li>\n")
	b.WriteString("<li>Үл хөдлөх хөрөнгийн онлайн зар сурталчилгааны платформууд</li>\n</ul>\n")
	return b.String()
}

// MarketReportData carries the market analysis report inputs. Summary
// is one long model-written analysis that the overview, trends and
// forecast sections excerpt from.
type MarketReportData struct {
	Query              string
	Summary            string
	DistrictAnalysis   string
	SupplyDemand       string
	InvestmentStrategy string
	RiskAssessment     string
}

// MarketReportHTML builds the market analysis document.
func MarketReportHTML(d MarketReportData, now time.Time) string {
	query := strings.TrimSpace(d.Query)
	if query == "" {
		query = "Зах зээлийн ерөнхий мэдээлэл"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<p><strong>Хайлтын утга (Хэрэглэгчийн асуулга):</strong> %s</p>\n", CleanText(query))
	b.WriteString(section(marketSections[0], marketOverview(d.Summary)))
	b.WriteString(section(marketSections[1], marketPriceTrends(d.Summary)))
	b.WriteString(section(marketSections[2],
		"<h3>Эрэлт ба нийлүүлэлтийн шинжилгээ (LLM шинжилгээ):</h3>\n"+
			analysisHTML(d.SupplyDemand, "Эрэлт нийлүүлэлтийн шинжилгээний мэдээлэл боловсруулагдаагүй.")))
	b.WriteString(section(marketSections[3], marketDistrictComparison(d.DistrictAnalysis)))
	b.WriteString(section(marketSections[4],
		"<h3>Хөрөнгө оруулалтын стратеги ба боломжууд (LLM зөвлөмж):</h3>\n"+
			analysisHTML(d.InvestmentStrategy, "Хөрөнгө оруулалтын стратегийн мэдээлэл боловсруулагдаагүй.")))
	b.WriteString(section(marketSections[5],
		"<h3>Эрсдэлийн үнэлгээ ба анхааруулга (LLM шинжилгээ):</h3>\n"+
			analysisHTML(d.RiskAssessment, "Эрсдэлийн үнэлгээний мэдээлэл боловсруулагдаагүй.")))
	b.WriteString(section(marketSections[6], marketForecast(d.Summary)))
	return document(marketTitle, b.String(), now)
}

const excerptLimit = 800

var (
	overviewHeadRe = regexp.MustCompile(`(?i)(?:Зах Зээлийн Ерөнхий Тойм|Market Overview):?`)
	trendsHeadRe   = regexp.MustCompile(`(?i)(?:Үнийн Харьцуулалт ба Ялгаа|Үнийн чиг хандлага|Price Trends):?`)
	forecastHeadRe = regexp.MustCompile(`(?i)(?:Зах Зээлийн Ирээдүйн Төлөв|Таамаглал|Market Outlook|Forecast):?`)
)

// sectionExcerpt pulls the named heading's text out of a long model
// summary. Short summaries are used whole; when the heading is missing
// the paragraph at fallbackPara is used instead (negative means last).
func sectionExcerpt(summary string, heading *regexp.Regexp, fallbackPara int) string {
	if utf8.RuneCountInString(summary) <= excerptLimit {
		return summary
	}
	if loc := heading.FindStringIndex(summary); loc != nil {
		rest := strings.TrimLeft(summary[loc[1]:], " \t\n")
		if cut := nextHeadingIndex(rest); cut >= 0 {
			rest = rest[:cut]
		}
		if s := strings.TrimSpace(rest); s != "" {
			return s
		}
	}
	paras := strings.Split(summary, "\n\n")
	idx := fallbackPara
	if idx < 0 || idx >= len(paras) {
		idx = len(paras) - 1
	}
	return truncateRunes(strings.TrimSpace(paras[idx]), excerptLimit)
}

// nextHeadingIndex finds the offset of the first blank line that is
// followed by a numbered item or a capitalized heading.
func nextHeadingIndex(s string) int {
	off := 0
	for {
		j := strings.Index(s[off:], "\n\n")
		if j < 0 {
			return -1
		}
		start := off + j
		next := strings.TrimLeft(s[start+2:], "\n")
		r, _ := utf8.DecodeRuneInString(next)
		if unicode.IsUpper(r) || unicode.IsDigit(r) {
			return start
		}
		off = start + 2
	}
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

func marketOverview(summary string) string {
	var b strings.Builder
	b.WriteString("<h3>Зах зээлийн ерөнхий байдал (LLM хураангуй):</h3>\n")
	b.WriteString(analysisHTML(sectionExcerpt(summary, overviewHeadRe, 0), "Зах зээлийн мэдээлэл олдсонгүй."))
	b.WriteString("<h3>Гол үзүүлэлтүүд (ерөнхий төлөв):</h3>\n<ul>\n")
	b.WriteString("<li><strong>Зах зээлийн идэвхжил:</strong> Ихэвчлэн улирлын чанартай, эдийн засгийн нөхцөл байдлаас хамаарна.</li>\n")
	b.WriteString("<li><strong>Худалдан авагчдын эрэлт:</strong> Зээлийн хүртээмж, хүн амын өсөлт, орлогын түвшин зэргээс шалтгаална.</li>\n")
	b.WriteString("<li><strong>Нийлүүлэлтийн байдал:</strong> Шинэ барилгын төслүүд, хуучин орон сууцны зах зээлийн идэвхээс хамаарна.</li>\n</ul>\n")
	return b.String()
}

func marketPriceTrends(summary string) string {
	var b strings.Builder
	b.WriteString("<h3>Үнийн чиг хандлага (LLM хураангуй):</h3>\n")
	b.WriteString(analysisHTML(sectionExcerpt(summary, trendsHeadRe, 1), "Зах зээлийн мэдээлэл олдсонгүй."))
	b.WriteString("<h3>Үнэд нөлөөлөх гол хүчин зүйлүүд:</h3>\n<ul>\n")
	b.WriteString("<li>Инфляци ба валютын ханшны өөрчлөлт</li>\n")
	b.WriteString("<li>Ипотекийн зээлийн хүү, зээлийн нөхцөл</li>\n")
	b.WriteString("<li>Барилгын материалын үнэ, нийлүүлэлт</li>\n")
	b.WriteString("<li>Засгийн газрын бодлого, хот төлөвлөлт</li>\n")
	b.WriteString("<li>Хүн амын өсөлт, шилжилт хөдөлгөөн</li>\n</ul>\n")
	return b.String()
}

func marketDistrictComparison(analysis string) string {
	var b strings.Builder
	b.WriteString("<h3>Дүүргүүдийн зах зээлийн харьцуулсан шинжилгээ (LLM шинжилгээ):</h3>\n")
	b.WriteString(analysisHTML(analysis, "Дүүргүүдийн дэлгэрэнгүй мэдээлэл байхгүй."))
	b.WriteString("<h3>Зах зээлийн сегментчилэл (ерөнхий ангилал):</h3>\n<ul>\n")
	b.WriteString("<li><strong>Премиум сегмент:</strong> Ихэвчлэн хотын төвийн болон шинээр хөгжиж буй тансаг зэрэглэлийн бүсүүд.</li>\n")
	b.WriteString("<li><strong>Дундаж сегмент:</strong> Дэд бүтэц сайтай, олон нийтэд хүртээмжтэй, тогтсон суурьшлын бүсүүд.</li>\n")
	b.WriteString("<li><strong>Боломжийн үнэтэй сегмент:</strong> Хотын захын болон хөгжиж буй шинэ суурьшлын бүсүүд.</li>\n</ul>\n")
	return b.String()
}

func marketForecast(summary string) string {
	var b strings.Builder
	b.WriteString("<h3>Зах зээлийн таамаглал ба зөвлөмж (LLM хураангуй):</h3>\n")
	b.WriteString(analysisHTML(sectionExcerpt(summary, forecastHeadRe, -1), "Зах зээлийн мэдээлэл олдсонгүй."))
	b.WriteString("<h3>Ерөнхий зөвлөмж:</h3>\n<ul>\n")
	b.WriteString("<li>Зах зээлийн судалгааг тогтмол хийж, мэдээлэлтэй байх.</li>\n")
	b.WriteString("<li>Хувийн санхүүгийн байдал, зорилгодоо нийцүүлэн шийдвэр гаргах.</li>\n")
	b.WriteString("<li>Шаардлагатай бол мэргэжлийн үл хөдлөх хөрөнгийн болон санхүүгийн зөвлөхөөс зөвлөгөө авах.</li>\n")
	b.WriteString("<li>Гэрээ, бичиг баримтыг сайтар нягталж, хууль эрх зүйн орчныг ойлгох.</li>\n</ul>\n")
	return b.String()
}
