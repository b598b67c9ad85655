// Package extract turns raw recognized text into structured invoice data:
// header fields via an ordered rule list and line items via table-region
// reconstruction. Extraction degrades field by field; a field no rule can
// populate stays nil.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Field names a header field a rule can populate.
type Field string

const (
	FieldVendorName    Field = "vendor_name"
	FieldInvoiceNumber Field = "invoice_number"
	FieldDate          Field = "date"
	FieldGSTNumber     Field = "gst_number"
	FieldTaxAmount     Field = "tax_amount"
	FieldTotalAmount   Field = "total_amount"
)

// Confidence ranks a rule's precision. When two rules target the same field
// the higher-confidence one must come first in the list; evaluation is
// strictly in list order and the first surviving match wins.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

// Rule is one (pattern, normalizer, confidence) triple. Pattern must have a
// single capture group for the candidate value. Normalize may reject the
// candidate by returning false, in which case evaluation moves on to the
// next rule.
type Rule struct {
	Field      Field
	Pattern    *regexp.Regexp
	Normalize  func(string) (string, bool)
	Confidence Confidence
}

// Fields holds the extracted header fields; nil means no rule matched.
type Fields struct {
	VendorName    *string
	InvoiceNumber *string
	Date          *string
	GSTNumber     *string
	TaxAmount     *float64
	TotalAmount   *float64
}

func (f *Fields) isSet(field Field) bool {
	switch field {
	case FieldVendorName:
		return f.VendorName != nil
	case FieldInvoiceNumber:
		return f.InvoiceNumber != nil
	case FieldDate:
		return f.Date != nil
	case FieldGSTNumber:
		return f.GSTNumber != nil
	case FieldTaxAmount:
		return f.TaxAmount != nil
	case FieldTotalAmount:
		return f.TotalAmount != nil
	}
	return false
}

// assign stores a normalized value, parsing numeric fields. Returns false
// when the value does not survive parsing.
func (f *Fields) assign(field Field, value string) bool {
	switch field {
	case FieldVendorName:
		f.VendorName = &value
	case FieldInvoiceNumber:
		f.InvoiceNumber = &value
	case FieldDate:
		f.Date = &value
	case FieldGSTNumber:
		f.GSTNumber = &value
	case FieldTaxAmount, FieldTotalAmount:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return false
		}
		if field == FieldTaxAmount {
			f.TaxAmount = &v
		} else {
			f.TotalAmount = &v
		}
	default:
		return false
	}
	return true
}

// Engine evaluates an ordered rule list over raw text. Deterministic by
// construction: rules run in list order, the first match that normalizes
// successfully sets the field, and a set field is never re-evaluated.
type Engine struct {
	rules         []Rule
	minConfidence Confidence
}

// NewEngine creates an extraction engine. Rules below minConfidence are
// skipped entirely.
func NewEngine(rules []Rule, minConfidence Confidence) *Engine {
	return &Engine{rules: rules, minConfidence: minConfidence}
}

// NewDefaultEngine creates an engine with the built-in rule set and no
// confidence floor.
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultRules(), ConfidenceLow)
}

// Extract runs the rule list over the raw text and returns the populated
// header fields.
func (e *Engine) Extract(text string) Fields {
	var fields Fields
	for _, rule := range e.rules {
		if rule.Confidence < e.minConfidence {
			continue
		}
		if fields.isSet(rule.Field) {
			continue
		}
		m := rule.Pattern.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		value := strings.TrimSpace(m[1])
		if value == "" {
			continue
		}
		if rule.Normalize != nil {
			normalized, ok := rule.Normalize(value)
			if !ok {
				continue
			}
			value = normalized
		}
		fields.assign(rule.Field, value)
	}

	if fields.VendorName == nil {
		fields.VendorName = vendorFromHead(text)
	}
	return fields
}

// Amount separators within a line only; [ \t] instead of \s keeps a pattern
// from jumping to a value on the following line.
const (
	sep      = `[ \t]*[:#-]?[ \t]*`
	currency = `(?:rs\.?|inr|usd|eur|gbp|[$€£₹])?[ \t]*`
	number   = `([\d,]+(?:\.\d+)?)`
	ident    = `([A-Za-z0-9][A-Za-z0-9/_-]*)`
)

// DefaultRules is the built-in prioritized rule list. High-precision anchors
// come before loose fallbacks for the same field.
func DefaultRules() []Rule {
	return []Rule{
		{
			Field:      FieldInvoiceNumber,
			Pattern:    regexp.MustCompile(`(?i)invoice[ \t]*(?:no|number|num)\.?` + sep + ident),
			Confidence: ConfidenceHigh,
		},
		{
			Field:      FieldInvoiceNumber,
			Pattern:    regexp.MustCompile(`(?i)\b(?:invoice|bill)\b[ \t]*[:#-][ \t]*` + ident),
			Confidence: ConfidenceLow,
		},
		{
			Field:      FieldDate,
			Pattern:    regexp.MustCompile(`(?i)\b(?:invoice[ \t]+date|date[ \t]+of[ \t]+issue|dated|date)` + sep + `(\d{1,4}[-/.]\d{1,2}[-/.]\d{2,4})`),
			Normalize:  NormalizeDate,
			Confidence: ConfidenceHigh,
		},
		{
			Field:      FieldDate,
			Pattern:    regexp.MustCompile(`(?i)\b(?:invoice[ \t]+date|dated|date)` + sep + `(\d{1,2}(?:st|nd|rd|th)?[ \t]+[A-Za-z]{3,9},?[ \t]+\d{4}|[A-Za-z]{3,9}[ \t]+\d{1,2},?[ \t]+\d{4})`),
			Normalize:  NormalizeDate,
			Confidence: ConfidenceMedium,
		},
		{
			Field:      FieldDate,
			Pattern:    regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`),
			Normalize:  NormalizeDate,
			Confidence: ConfidenceLow,
		},
		{
			Field:      FieldGSTNumber,
			Pattern:    regexp.MustCompile(`(?i)(?:gstin|gst[ \t]*(?:no|number)\.?|vat[ \t]*id|tax[ \t]*id)` + sep + `([0-9A-Za-z]{5,20})`),
			Confidence: ConfidenceHigh,
		},
		{
			Field:      FieldTotalAmount,
			Pattern:    regexp.MustCompile(`(?i)(?:grand[ \t]+total|payable[ \t]+amount|amount[ \t]+due|balance[ \t]+due|total[ \t]+due|amount[ \t]+payable)` + sep + currency + number),
			Normalize:  NormalizeAmount,
			Confidence: ConfidenceHigh,
		},
		{
			Field:      FieldTotalAmount,
			Pattern:    regexp.MustCompile(`(?i)\btotal\b` + sep + currency + number),
			Normalize:  NormalizeAmount,
			Confidence: ConfidenceMedium,
		},
		{
			Field:      FieldTaxAmount,
			Pattern:    regexp.MustCompile(`(?i)\b(?:tax|gst|vat|cgst|sgst)\b(?:[ \t]+rate)?[ \t]*(?:@[ \t]*)?\(?(?:\d+(?:\.\d+)?[ \t]*%)?\)?` + sep + currency + number),
			Normalize:  NormalizeAmount,
			Confidence: ConfidenceMedium,
		},
	}
}

var vendorReject = regexp.MustCompile(`(?i)\b(invoice|bill|date|gst|gstin|vat|tax|total|amount|statement|receipt|page)\b`)

// vendorFromHead falls back to the document head for the vendor name: the
// first of the top five lines that reads like a business name rather than an
// address, anchor keyword or amount.
func vendorFromHead(text string) *string {
	lines := strings.Split(text, "\n")
	if len(lines) > 5 {
		lines = lines[:5]
	}
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if len(line) < 3 || len(line) > 60 {
			continue
		}
		if vendorReject.MatchString(line) {
			continue
		}
		letters, digits := 0, 0
		for _, r := range line {
			switch {
			case r >= '0' && r <= '9':
				digits++
			case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
				letters++
			}
		}
		if letters == 0 || digits >= letters {
			continue
		}
		return &line
	}
	return nil
}
