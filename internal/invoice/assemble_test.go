package invoice

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/invoicescan/invoicescan/internal/extract"
)

var _ = Describe("Assembler", func() {
	var (
		assembler *Assembler
		fields    extract.Fields
		items     []extract.LineItem
		warnings  []string
		record    *Record
		err       error
	)

	BeforeEach(func() {
		assembler = NewAssembler()
		fields = extract.Fields{}
		items = nil
		warnings = nil
	})

	JustBeforeEach(func() {
		record, err = assembler.Assemble(fields, items, "raw text", warnings)
	})

	When("fields and items are consistent", func() {
		BeforeEach(func() {
			fields = extract.Fields{
				VendorName:  strPtr("Acme Corp"),
				TotalAmount: numPtr(60.0),
			}
			items = []extract.LineItem{
				{Description: "Widget A", Quantity: numPtr(3), UnitPrice: numPtr(10), LineTotal: numPtr(30)},
				{Description: "Widget B", Quantity: numPtr(2), UnitPrice: numPtr(15), LineTotal: numPtr(30)},
			}
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should generate a uuid invoice id", func() {
			Expect(record.InvoiceID).To(HaveLen(36))
		})

		It("should carry the fields and items through", func() {
			Expect(record.VendorName).To(HaveValue(Equal("Acme Corp")))
			Expect(record.LineItems).To(HaveLen(2))
		})

		It("should not flag a mismatch or add warnings", func() {
			Expect(record.TotalsMismatch).To(BeFalse())
			Expect(record.Warnings).To(BeEmpty())
		})
	})

	When("the line item sum disagrees with the stated total", func() {
		BeforeEach(func() {
			fields = extract.Fields{TotalAmount: numPtr(100.0)}
			items = []extract.LineItem{
				{Description: "Widget A", LineTotal: numPtr(30)},
				{Description: "Widget B", LineTotal: numPtr(30)},
			}
		})

		It("should set totals_mismatch and keep both values", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(record.TotalsMismatch).To(BeTrue())
			Expect(record.TotalAmount).To(HaveValue(Equal(100.0)))
			Expect(record.Warnings).To(ContainElement(ContainSubstring("does not match stated total")))
		})
	})

	When("a line total disagrees with quantity x unit price", func() {
		BeforeEach(func() {
			items = []extract.LineItem{
				{Description: "Widget A", Quantity: numPtr(3), UnitPrice: numPtr(10), LineTotal: numPtr(45)},
			}
		})

		It("should add a per-line warning without failing", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Warnings).To(ContainElement(ContainSubstring("line 1")))
		})
	})

	When("no line item has a total", func() {
		BeforeEach(func() {
			fields = extract.Fields{TotalAmount: numPtr(100.0)}
			items = []extract.LineItem{{Description: "Consulting"}}
		})

		It("should skip the sum check", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(record.TotalsMismatch).To(BeFalse())
		})
	})

	When("the stated total is missing", func() {
		BeforeEach(func() {
			items = []extract.LineItem{{Description: "Widget A", LineTotal: numPtr(30)}}
		})

		It("should skip the sum check", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(record.TotalsMismatch).To(BeFalse())
		})
	})

	When("upstream warnings are supplied", func() {
		BeforeEach(func() {
			warnings = []string{"page 2: no legible text recognized"}
		})

		It("should carry them on the record", func() {
			Expect(record.Warnings).To(ContainElement("page 2: no legible text recognized"))
		})
	})

	When("the id generator yields nothing", func() {
		BeforeEach(func() {
			assembler = NewAssemblerWithIDGenerator(&fixedIDGenerator{})
		})

		It("should return an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})
