package invoice

import (
	"bytes"
	"encoding/csv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExportCSV", func() {
	var (
		record *Record
		data   []byte
		err    error
	)

	BeforeEach(func() {
		record = &Record{
			InvoiceID:     "abc-123",
			VendorName:    strPtr("Acme Corp"),
			InvoiceNumber: strPtr("INV-2024-001"),
			Date:          strPtr("2024-01-01"),
			GSTNumber:     strPtr("29ABCDE1234F1Z5"),
			TaxAmount:     numPtr(80.0),
			TotalAmount:   numPtr(880.0),
			LineItems: []LineItem{
				{Description: "Widget A", Quantity: numPtr(3), UnitPrice: numPtr(10), LineTotal: numPtr(30)},
				{Description: "Service, on-site", LineTotal: numPtr(850)},
			},
		}
	})

	JustBeforeEach(func() {
		data, err = ExportCSV(record)
	})

	parse := func() [][]string {
		r := csv.NewReader(bytes.NewReader(data))
		r.FieldsPerRecord = -1
		rows, parseErr := r.ReadAll()
		Expect(parseErr).NotTo(HaveOccurred())
		return rows
	}

	It("should produce parseable CSV", func() {
		Expect(err).NotTo(HaveOccurred())
		Expect(parse()).NotTo(BeEmpty())
	})

	It("should carry every header field", func() {
		rows := parse()
		Expect(rows).To(ContainElement([]string{"Invoice ID", "abc-123"}))
		Expect(rows).To(ContainElement([]string{"Vendor Name", "Acme Corp"}))
		Expect(rows).To(ContainElement([]string{"Invoice Number", "INV-2024-001"}))
		Expect(rows).To(ContainElement([]string{"Date", "2024-01-01"}))
		Expect(rows).To(ContainElement([]string{"GST Number", "29ABCDE1234F1Z5"}))
		Expect(rows).To(ContainElement([]string{"Tax Amount", "80.00"}))
		Expect(rows).To(ContainElement([]string{"Total Amount", "880.00"}))
	})

	It("should carry every line item", func() {
		rows := parse()
		Expect(rows).To(ContainElement([]string{"Widget A", "3", "10.00", "30.00"}))
		Expect(rows).To(ContainElement([]string{"Service, on-site", "", "", "850.00"}))
	})

	It("should name the sections", func() {
		Expect(string(data)).To(ContainSubstring("--- INVOICE HEADER DETAILS ---"))
		Expect(string(data)).To(ContainSubstring("--- LINE ITEMS ---"))
	})

	When("a field is missing", func() {
		BeforeEach(func() {
			record.VendorName = nil
		})

		It("should leave its cell empty", func() {
			Expect(parse()).To(ContainElement([]string{"Vendor Name", ""}))
		})
	})

	When("a description embeds delimiters", func() {
		BeforeEach(func() {
			record.LineItems[0].Description = "Widget \"A\", large\nsecond line"
		})

		It("should survive a parse round trip intact", func() {
			Expect(parse()).To(ContainElement(
				[]string{"Widget \"A\", large\nsecond line", "3", "10.00", "30.00"}))
		})
	})

	When("the record has no data at all", func() {
		BeforeEach(func() {
			record = &Record{InvoiceID: "abc-123", RawText: "noise"}
		})

		It("should return ErrNothingToExport", func() {
			Expect(err).To(MatchError(ErrNothingToExport))
		})
	})
})

var _ = Describe("Filename", func() {
	It("should embed the invoice id", func() {
		Expect(Filename("abc-123")).To(Equal("invoice_data_abc-123.csv"))
	})
})
