package report

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Changes", func() {
	Describe("Normalize", func() {
		var (
			changes Changes
			err     error
		)

		JustBeforeEach(func() {
			err = changes.Normalize()
		})

		When("items are valid", func() {
			BeforeEach(func() {
				items := []SalesItem{{ProductName: "  Case ", Quantity: 1, UnitPrice: dec("100"), Currency: " usd"}}
				changes = Changes{Items: &items}
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should trim the product name and upper-case the currency", func() {
				Expect((*changes.Items)[0].ProductName).To(Equal("Case"))
				Expect((*changes.Items)[0].Currency).To(Equal("USD"))
			})
		})

		When("an item has no currency", func() {
			BeforeEach(func() {
				items := []SalesItem{{ProductName: "Case", Quantity: 1, UnitPrice: dec("100")}}
				changes = Changes{Items: &items}
			})

			It("should default to AED", func() {
				Expect((*changes.Items)[0].Currency).To(Equal(DefaultCurrency))
			})
		})

		When("an item has no product name", func() {
			BeforeEach(func() {
				items := []SalesItem{item(1, "Case", "1"), {ProductName: " ", Quantity: 1}}
				changes = Changes{Items: &items}
			})

			It("returns the error", func() {
				Expect(err).To(MatchError(ErrInvalidChanges))
				Expect(err.Error()).To(ContainSubstring("item 2"))
			})
		})

		When("an item has a negative quantity", func() {
			BeforeEach(func() {
				items := []SalesItem{item(-1, "Case", "1")}
				changes = Changes{Items: &items}
			})

			It("returns the error", func() {
				Expect(err).To(MatchError(ErrInvalidChanges))
			})
		})

		When("an item has a negative price", func() {
			BeforeEach(func() {
				items := []SalesItem{item(1, "Case", "-1")}
				changes = Changes{Items: &items}
			})

			It("returns the error", func() {
				Expect(err).To(MatchError(ErrInvalidChanges))
			})
		})

		When("discounts are negative", func() {
			BeforeEach(func() {
				changes = Changes{Discounts: ptr(dec("-5"))}
			})

			It("should clamp them to zero", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(changes.Discounts.IsZero()).To(BeTrue())
			})
		})

		When("a source is unknown", func() {
			BeforeEach(func() {
				changes = Changes{Sources: &[]Source{SourceOCR, "fax"}}
			})

			It("returns the error", func() {
				Expect(err).To(MatchError(ErrInvalidChanges))
			})
		})
	})

	Describe("CaptureChanges", func() {
		var (
			current DailyReport
			changes Changes
		)

		BeforeEach(func() {
			current = sampleReport()
			current.Items = []SalesItem{item(1, "Case", "100")}
			current.Sources = []Source{SourceManual}
			current.Attachments = []Attachment{{Type: "image", URL: "/api/attachments/a.png"}}
		})

		When("a new source contributes items", func() {
			BeforeEach(func() {
				changes = CaptureChanges(current, []SalesItem{item(2, "iPhone 15", "3500")}, SourceOCR,
					Attachment{Type: "image", URL: "/api/attachments/b.png"})
			})

			It("should append the items after the existing ones", func() {
				Expect(*changes.Items).To(HaveLen(2))
				Expect((*changes.Items)[1].ProductName).To(Equal("iPhone 15"))
			})

			It("should add the source to the set", func() {
				Expect(*changes.Sources).To(Equal([]Source{SourceManual, SourceOCR}))
			})

			It("should append the attachment", func() {
				Expect(*changes.Attachments).To(HaveLen(2))
			})

			It("should not touch the current report", func() {
				Expect(current.Items).To(HaveLen(1))
				Expect(current.Sources).To(HaveLen(1))
			})
		})

		When("the source already contributed", func() {
			BeforeEach(func() {
				changes = CaptureChanges(current, []SalesItem{item(1, "Cable", "20")}, SourceManual)
			})

			It("should not duplicate it", func() {
				Expect(*changes.Sources).To(Equal([]Source{SourceManual}))
			})

			It("should leave attachments alone", func() {
				Expect(changes.Attachments).To(BeNil())
			})
		})
	})
})
