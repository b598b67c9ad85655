package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// amountJunk strips currency symbols, currency codes, grouping separators
// and parentheses from a captured amount.
var amountJunk = regexp.MustCompile(`(?i)(rs\.?|inr|usd|eur|gbp|aud|cad|[$€£₹,()\s])`)

// ParseAmount converts an OCR-captured amount to a float. Returns false when
// nothing numeric remains after cleanup.
func ParseAmount(s string) (float64, bool) {
	cleaned := amountJunk.ReplaceAllString(s, "")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// NormalizeAmount is the rule-normalizer form of ParseAmount: it returns the
// canonical decimal string for a captured amount.
func NormalizeAmount(s string) (string, bool) {
	v, ok := ParseAmount(s)
	if !ok {
		return "", false
	}
	return strconv.FormatFloat(v, 'f', -1, 64), true
}

var ordinalSuffix = regexp.MustCompile(`(?i)(\d)(st|nd|rd|th)\b`)

// dateFormats are tried in order. Day-first numeric formats take precedence
// over month-first; the first format that parses wins.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"01-02-2006",
	"02.01.2006",
	"02/01/06",
	"01/02/06",
	"02-01-06",
	"2 January 2006",
	"02 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
}

// NormalizeDate converts a captured date in any tolerated input format to
// ISO 8601 (YYYY-MM-DD). Returns false when no format matches.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(ordinalSuffix.ReplaceAllString(s, "$1"))
	s = strings.Join(strings.Fields(s), " ")
	for _, format := range dateFormats {
		if d, err := time.Parse(format, s); err == nil {
			return d.Format("2006-01-02"), true
		}
	}
	return "", false
}
