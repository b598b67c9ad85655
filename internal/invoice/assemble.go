package invoice

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/invoicescan/invoicescan/internal/extract"
)

// IDGenerator produces invoice identifiers. Ids must stay collision-free for
// the lifetime of the session store.
type IDGenerator interface {
	Generate() string
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

// Assembler merges extracted fields, line items and raw text into a Record
// and runs the consistency checks.
type Assembler struct {
	idGen IDGenerator
}

// NewAssembler creates an Assembler with uuid-based ids.
func NewAssembler() *Assembler {
	return &Assembler{idGen: uuidGenerator{}}
}

// NewAssemblerWithIDGenerator creates an Assembler with a custom id source.
func NewAssemblerWithIDGenerator(idGen IDGenerator) *Assembler {
	return &Assembler{idGen: idGen}
}

// Assemble builds the record. Consistency problems (a line total that
// disagrees with quantity x unit price, or a line-item sum that disagrees
// with the stated total) become warnings and the totals_mismatch flag, never
// errors. The only failure mode is an unusable identifier.
func (a *Assembler) Assemble(fields extract.Fields, items []extract.LineItem, rawText string, warnings []string) (*Record, error) {
	id := a.idGen.Generate()
	if id == "" {
		return nil, fmt.Errorf("id generator returned an empty identifier")
	}

	record := &Record{
		InvoiceID:     id,
		VendorName:    fields.VendorName,
		InvoiceNumber: fields.InvoiceNumber,
		Date:          fields.Date,
		GSTNumber:     fields.GSTNumber,
		TaxAmount:     fields.TaxAmount,
		TotalAmount:   fields.TotalAmount,
		RawText:       rawText,
		LineItems:     make([]LineItem, 0, len(items)),
		Warnings:      warnings,
	}

	var lineSum float64
	haveLineTotals := false
	for i, item := range items {
		record.LineItems = append(record.LineItems, LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})

		if item.LineTotal != nil {
			lineSum += *item.LineTotal
			haveLineTotals = true
		}
		if item.Quantity != nil && item.UnitPrice != nil && item.LineTotal != nil {
			expected := *item.Quantity * *item.UnitPrice
			tolerance := 0.01 * math.Max(1, *item.Quantity)
			if math.Abs(expected-*item.LineTotal) > tolerance {
				record.Warnings = append(record.Warnings, fmt.Sprintf(
					"line %d: total %.2f does not match quantity %.2f x unit price %.2f",
					i+1, *item.LineTotal, *item.Quantity, *item.UnitPrice))
			}
		}
	}

	if haveLineTotals && record.TotalAmount != nil {
		tolerance := 0.01 * math.Max(1, float64(len(items)))
		if math.Abs(lineSum-*record.TotalAmount) > tolerance {
			record.TotalsMismatch = true
			record.Warnings = append(record.Warnings, fmt.Sprintf(
				"line item sum %.2f does not match stated total %.2f", lineSum, *record.TotalAmount))
		}
	}

	return record, nil
}
