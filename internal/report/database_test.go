package report

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	storedReport := func(id string, createdAt time.Time) *DailyReport {
		r := sampleReport()
		r.ID = id
		r.Items = []SalesItem{item(2, "iPhone 15", "3500"), item(1, "Case", "99.999")}
		r.Sources = []Source{SourceOCR}
		r.CreatedAt = createdAt
		r = derive(r)
		return &r
	}

	Describe("SaveReport", func() {
		var (
			report *DailyReport
			err    error
		)

		BeforeEach(func() {
			report = storedReport("test-id", time.Date(2025, 11, 29, 18, 0, 0, 0, time.UTC))
		})

		JustBeforeEach(func() {
			err = db.SaveReport(report)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should round-trip money without losing precision", func() {
				saved, getErr := db.GetReport("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.Items[1].UnitPrice.String()).To(Equal("99.999"))
				Expect(saved.Totals.Gross.String()).To(Equal("7099.999"))
			})

			It("should keep the share message", func() {
				saved, getErr := db.GetReport("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.ShareMessage).To(Equal(report.ShareMessage))
			})
		})

		When("saving the same id twice", func() {
			JustBeforeEach(func() {
				report.StoreName = "Renamed"
				Expect(db.SaveReport(report)).To(Succeed())
			})

			It("should overwrite the stored report", func() {
				reports, listErr := db.ListReports()
				Expect(listErr).NotTo(HaveOccurred())
				Expect(reports).To(HaveLen(1))
				Expect(reports[0].StoreName).To(Equal("Renamed"))
			})
		})

		When("the report has no id", func() {
			BeforeEach(func() {
				report.ID = ""
			})

			It("returns the error", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("GetReport", func() {
		var (
			reportID string
			report   *DailyReport
			err      error
		)

		JustBeforeEach(func() {
			report, err = db.GetReport(reportID)
		})

		When("report exists", func() {
			BeforeEach(func() {
				reportID = "test-id"
				Expect(db.SaveReport(storedReport("test-id", time.Now()))).To(Succeed())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the correct report", func() {
				Expect(report.ID).To(Equal("test-id"))
				Expect(report.StoreName).To(Equal("Test Store"))
				Expect(report.Sources).To(Equal([]Source{SourceOCR}))
			})
		})

		When("report does not exist", func() {
			BeforeEach(func() {
				reportID = "nonexistent"
			})

			It("returns ErrNotFound", func() {
				Expect(err).To(MatchError(ErrNotFound))
			})
		})
	})

	Describe("ListReports", func() {
		var (
			reports []*DailyReport
			err     error
		)

		JustBeforeEach(func() {
			reports, err = db.ListReports()
		})

		When("reports exist", func() {
			BeforeEach(func() {
				base := time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)
				Expect(db.SaveReport(storedReport("a-oldest", base))).To(Succeed())
				Expect(db.SaveReport(storedReport("b-newest", base.Add(48*time.Hour)))).To(Succeed())
				Expect(db.SaveReport(storedReport("c-middle", base.Add(24*time.Hour)))).To(Succeed())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return reports newest first", func() {
				Expect(reports).To(HaveLen(3))
				Expect(reports[0].ID).To(Equal("b-newest"))
				Expect(reports[1].ID).To(Equal("c-middle"))
				Expect(reports[2].ID).To(Equal("a-oldest"))
			})
		})

		When("no reports exist", func() {
			It("should return an empty list", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(reports).To(BeEmpty())
			})
		})
	})

	Describe("DeleteReport", func() {
		BeforeEach(func() {
			Expect(db.SaveReport(storedReport("test-id", time.Now()))).To(Succeed())
		})

		It("should remove the report", func() {
			Expect(db.DeleteReport("test-id")).To(Succeed())
			_, err := db.GetReport("test-id")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("should not fail for a missing report", func() {
			Expect(db.DeleteReport("nonexistent")).To(Succeed())
		})
	})
})
