// Package invoice assembles extraction output into records, retains them in
// a session store keyed by invoice id, and serializes them to CSV.
package invoice

// LineItem is one row of the invoice's goods/services table.
type LineItem struct {
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	LineTotal   *float64 `json:"line_total"`
}

// Record is a fully assembled invoice. Every extracted field is optional;
// extraction failures leave fields nil rather than failing the record.
type Record struct {
	InvoiceID      string     `json:"invoice_id"`
	VendorName     *string    `json:"vendor_name"`
	InvoiceNumber  *string    `json:"invoice_number"`
	Date           *string    `json:"date"`
	GSTNumber      *string    `json:"gst_number"`
	TaxAmount      *float64   `json:"tax_amount"`
	TotalAmount    *float64   `json:"total_amount"`
	RawText        string     `json:"raw_text"`
	LineItems      []LineItem `json:"line_items"`
	TotalsMismatch bool       `json:"totals_mismatch,omitempty"`
	Warnings       []string   `json:"warnings,omitempty"`
}

// HasData reports whether any header field or line item was extracted.
func (r *Record) HasData() bool {
	return r.VendorName != nil ||
		r.InvoiceNumber != nil ||
		r.Date != nil ||
		r.GSTNumber != nil ||
		r.TaxAmount != nil ||
		r.TotalAmount != nil ||
		len(r.LineItems) > 0
}
