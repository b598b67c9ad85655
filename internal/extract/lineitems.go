package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/invoicescan/invoicescan/internal/ocr"
)

// LineItem is one parsed row of the invoice's goods/services table. Only the
// description is required; rows whose numeric columns cannot be parsed keep
// nil amounts rather than being dropped.
type LineItem struct {
	Description string
	Quantity    *float64
	UnitPrice   *float64
	LineTotal   *float64
}

var columnKeywords = []string{
	"description", "item", "qty", "quantity", "price", "rate", "amount", "total", "unit",
}

var terminatorPattern = regexp.MustCompile(`(?i)^[ \t]*(sub[ \t]*total|grand[ \t]+total|total|tax|gst|vat|balance|payable|amount[ \t]+due)\b`)

var multiSpace = regexp.MustCompile(`[ \t]{2,}`)

// LineItems locates the table region between a column-header line and a
// totals terminator, and parses each row in between. No detected region
// means no line items; header extraction is unaffected either way.
func LineItems(result *ocr.Result) []LineItem {
	header := headerIndex(result.Lines)
	if header == -1 {
		return nil
	}

	items := make([]LineItem, 0)
	for _, line := range result.Lines[header+1:] {
		text := line.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		if terminatorPattern.MatchString(text) {
			break
		}
		if isHeaderLine(text) {
			// repeated column header (multi-page tables)
			continue
		}
		if item, ok := parseRow(line); ok {
			items = append(items, item)
		}
	}
	return items
}

// headerIndex finds the first line that reads like a table column header: at
// least two column keywords and no amount-like values.
func headerIndex(lines []ocr.Line) int {
	for i, line := range lines {
		if isHeaderLine(line.Text()) {
			return i
		}
	}
	return -1
}

func isHeaderLine(text string) bool {
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range columnKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	if hits < 2 {
		return false
	}
	// A genuine column header carries no values.
	for _, col := range splitColumns(ocr.Line{Raw: text}) {
		if _, ok := ParseAmount(col); ok {
			return false
		}
	}
	return true
}

// parseRow splits a row into columns and assigns the trailing numeric
// columns to quantity/unit price/line total. Returns false only for rows
// with no usable content at all.
func parseRow(line ocr.Line) (LineItem, bool) {
	cols := splitColumns(line)
	if len(cols) == 0 {
		return LineItem{}, false
	}

	// Walk back over up to three trailing numeric columns.
	numbers := make([]float64, 0, 3)
	end := len(cols)
	for end > 0 && len(numbers) < 3 {
		v, ok := ParseAmount(cols[end-1])
		if !ok {
			break
		}
		numbers = append([]float64{v}, numbers...)
		end--
	}

	item := LineItem{Description: strings.TrimSpace(strings.Join(cols[:end], " "))}
	switch len(numbers) {
	case 3:
		item.Quantity = &numbers[0]
		item.UnitPrice = &numbers[1]
		item.LineTotal = &numbers[2]
	case 2:
		item.UnitPrice = &numbers[0]
		item.LineTotal = &numbers[1]
	case 1:
		item.LineTotal = &numbers[0]
	}

	if item.Description == "" && len(numbers) == 0 {
		return LineItem{}, false
	}
	return item, true
}

// splitColumns prefers bounding-box gap clustering, falls back to runs of
// two or more spaces, and finally to one column per token.
func splitColumns(line ocr.Line) []string {
	if line.HasBoxes() {
		return splitByGaps(line.Words)
	}

	text := strings.TrimSpace(line.Text())
	if text == "" {
		return nil
	}
	if cols := multiSpace.Split(text, -1); len(cols) > 1 {
		return cols
	}
	return strings.Fields(text)
}

// splitByGaps groups words into columns wherever the horizontal gap between
// neighbors clearly exceeds normal word spacing.
func splitByGaps(words []ocr.Word) []string {
	sorted := make([]ocr.Word, len(words))
	copy(sorted, words)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Box.X < sorted[j].Box.X })

	// Estimate the average character width on this row to scale the gap
	// threshold with the font size.
	totalWidth, totalChars := 0, 0
	for _, w := range sorted {
		totalWidth += w.Box.W
		totalChars += len(w.Text)
	}
	charWidth := 8
	if totalChars > 0 {
		charWidth = totalWidth / totalChars
	}
	threshold := 3 * charWidth
	if threshold < 12 {
		threshold = 12
	}

	var cols []string
	var current []string
	prevRight := 0
	for i, w := range sorted {
		if i > 0 && w.Box.X-prevRight > threshold {
			cols = append(cols, strings.Join(current, " "))
			current = nil
		}
		current = append(current, w.Text)
		if r := w.Box.X + w.Box.W; r > prevRight {
			prevRight = r
		}
	}
	if len(current) > 0 {
		cols = append(cols, strings.Join(current, " "))
	}
	return cols
}
