package invoice

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
)

// ErrNothingToExport is returned when a record has no header fields and no
// line items at all.
var ErrNothingToExport = errors.New("record has no extractable data")

// Filename is the conventional export filename for an invoice id.
func Filename(invoiceID string) string {
	return fmt.Sprintf("invoice_data_%s.csv", invoiceID)
}

// ExportCSV serializes a record: a key-value block of header fields, a blank
// separator row, then the line-item table. Every populated field appears;
// quoting is handled by encoding/csv.
func ExportCSV(record *Record) ([]byte, error) {
	if !record.HasData() {
		return nil, fmt.Errorf("invoice %q: %w", record.InvoiceID, ErrNothingToExport)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"--- INVOICE HEADER DETAILS ---"},
		{"Invoice ID", record.InvoiceID},
		{"Vendor Name", stringValue(record.VendorName)},
		{"Invoice Number", stringValue(record.InvoiceNumber)},
		{"Date", stringValue(record.Date)},
		{"GST Number", stringValue(record.GSTNumber)},
		{"Tax Amount", amountValue(record.TaxAmount)},
		{"Total Amount", amountValue(record.TotalAmount)},
		{},
		{"--- LINE ITEMS ---"},
		{"Description", "Quantity", "Unit Price", "Line Total"},
	}
	for _, item := range record.LineItems {
		rows = append(rows, []string{
			item.Description,
			numberValue(item.Quantity),
			amountValue(item.UnitPrice),
			amountValue(item.LineTotal),
		})
	}

	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("writing csv: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("writing csv: %w", err)
	}
	return buf.Bytes(), nil
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func amountValue(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func numberValue(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
