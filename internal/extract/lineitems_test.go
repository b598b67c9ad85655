package extract

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/invoicescan/invoicescan/internal/ocr"
)

// plainResult builds a Result of plain-text lines with original spacing.
func plainResult(lines ...string) *ocr.Result {
	result := &ocr.Result{}
	for _, raw := range lines {
		result.Lines = append(result.Lines, ocr.Line{Raw: raw})
	}
	return result
}

var _ = Describe("LineItems", func() {
	var (
		result *ocr.Result
		items  []LineItem
	)

	JustBeforeEach(func() {
		items = LineItems(result)
	})

	When("the table uses multi-space columns", func() {
		BeforeEach(func() {
			result = plainResult(
				"Acme Corp",
				"Description   Qty   Price   Amount",
				"Widget A   3   10.00   30.00",
				"Widget B   2   5.50   11.00",
				"Subtotal: 41.00",
				"Total: 41.00",
			)
		})

		It("should parse every row in the region", func() {
			Expect(items).To(HaveLen(2))
		})

		It("should assign description, quantity, unit price and line total", func() {
			Expect(items[0].Description).To(Equal("Widget A"))
			Expect(items[0].Quantity).To(HaveValue(Equal(3.0)))
			Expect(items[0].UnitPrice).To(HaveValue(Equal(10.00)))
			Expect(items[0].LineTotal).To(HaveValue(Equal(30.00)))
		})

		It("should stop at the terminator", func() {
			for _, item := range items {
				Expect(item.Description).NotTo(ContainSubstring("Subtotal"))
			}
		})
	})

	When("a row has only two trailing numbers", func() {
		BeforeEach(func() {
			result = plainResult(
				"Item   Rate   Total",
				"Consulting   500.00   500.00",
				"TOTAL: 500.00",
			)
		})

		It("should assign unit price and line total, leaving quantity nil", func() {
			Expect(items).To(HaveLen(1))
			Expect(items[0].Quantity).To(BeNil())
			Expect(items[0].UnitPrice).To(HaveValue(Equal(500.00)))
			Expect(items[0].LineTotal).To(HaveValue(Equal(500.00)))
		})
	})

	When("a row has no parseable numbers", func() {
		BeforeEach(func() {
			result = plainResult(
				"Description   Qty   Price",
				"Handling fee waived",
				"Total: 0.00",
			)
		})

		It("should keep the row with description only", func() {
			Expect(items).To(HaveLen(1))
			Expect(items[0].Description).To(Equal("Handling fee waived"))
			Expect(items[0].Quantity).To(BeNil())
			Expect(items[0].UnitPrice).To(BeNil())
			Expect(items[0].LineTotal).To(BeNil())
		})
	})

	When("no table region exists", func() {
		BeforeEach(func() {
			result = plainResult(
				"Acme Corp",
				"Invoice No: INV-1",
				"Total: 100.00",
			)
		})

		It("should return no items", func() {
			Expect(items).To(BeEmpty())
		})
	})

	When("the region runs to the end of the document", func() {
		BeforeEach(func() {
			result = plainResult(
				"Description   Qty   Price   Amount",
				"Widget A   1   9.99   9.99",
			)
		})

		It("should parse rows up to the end", func() {
			Expect(items).To(HaveLen(1))
		})
	})

	When("words carry bounding boxes", func() {
		BeforeEach(func() {
			box := func(x, w int) *ocr.Box { return &ocr.Box{X: x, Y: 100, W: w, H: 12} }
			header := ocr.Line{Words: []ocr.Word{
				{Text: "Description", Box: box(10, 90)},
				{Text: "Qty", Box: box(300, 30)},
				{Text: "Price", Box: box(400, 45)},
				{Text: "Amount", Box: box(500, 55)},
			}}
			row := ocr.Line{Words: []ocr.Word{
				{Text: "Widget", Box: box(10, 50)},
				{Text: "A", Box: box(65, 10)},
				{Text: "3", Box: box(300, 10)},
				{Text: "10.00", Box: box(400, 40)},
				{Text: "30.00", Box: box(500, 40)},
			}}
			terminator := ocr.Line{Words: []ocr.Word{
				{Text: "Total", Box: box(10, 40)},
				{Text: "30.00", Box: box(500, 40)},
			}}
			result = &ocr.Result{Lines: []ocr.Line{header, row, terminator}}
		})

		It("should cluster columns by horizontal gaps", func() {
			Expect(items).To(HaveLen(1))
			Expect(items[0].Description).To(Equal("Widget A"))
			Expect(items[0].Quantity).To(HaveValue(Equal(3.0)))
			Expect(items[0].UnitPrice).To(HaveValue(Equal(10.00)))
			Expect(items[0].LineTotal).To(HaveValue(Equal(30.00)))
		})
	})
})
