package api

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/zombor/finsight/internal/model"
)

var _ = Describe("BoltDB", func() {
	var (
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	newScan := func(id string) *Scan {
		total := decimal.RequireFromString("23.47")
		return &Scan{
			ID:          id,
			Filename:    id + "_receipt.jpg",
			ContentType: "image/jpeg",
			Text:        "Total: $23.47\nSTARBUCKS",
			Purchase: &model.ExtractedPurchase{
				MerchantName: "STARBUCKS",
				TotalAmount:  &total,
				Category:     "food",
				LineItems:    []model.LineItem{},
				Confidence:   0.6,
			},
			CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		}
	}

	Describe("scans", func() {
		When("a scan has been saved", func() {
			BeforeEach(func() {
				Expect(db.SaveScan(newScan("1"))).To(Succeed())
			})

			It("should read it back", func() {
				scan, err := db.GetScan("1")
				Expect(err).NotTo(HaveOccurred())
				Expect(scan.Filename).To(Equal("1_receipt.jpg"))
				Expect(scan.Purchase.MerchantName).To(Equal("STARBUCKS"))
				Expect(scan.Purchase.TotalAmount.StringFixed(2)).To(Equal("23.47"))
				Expect(scan.CreatedAt).To(BeTemporally("==", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
			})

			It("should delete it", func() {
				Expect(db.DeleteScan("1")).To(Succeed())
				_, err := db.GetScan("1")
				Expect(err).To(MatchError(ErrNotFound))
			})
		})

		When("the scan does not exist", func() {
			It("returns ErrNotFound", func() {
				_, err := db.GetScan("nonexistent")
				Expect(err).To(MatchError(ErrNotFound))
				Expect(err.Error()).To(ContainSubstring("nonexistent"))
			})
		})

		It("should list scans in ID order", func() {
			Expect(db.SaveScan(newScan("2"))).To(Succeed())
			Expect(db.SaveScan(newScan("1"))).To(Succeed())

			scans, err := db.ListScans()
			Expect(err).NotTo(HaveOccurred())
			Expect(scans).To(HaveLen(2))
			Expect(scans[0].ID).To(Equal("1"))
			Expect(scans[1].ID).To(Equal("2"))
		})

		It("should return an empty list for a new database", func() {
			scans, err := db.ListScans()
			Expect(err).NotTo(HaveOccurred())
			Expect(scans).NotTo(BeNil())
			Expect(scans).To(BeEmpty())
		})
	})

	Describe("fees", func() {
		It("should keep one fee per expense", func() {
			fee := overdraftFee("t1", march1)
			Expect(db.SaveFee(fee)).To(Succeed())

			fee.FeeCategoryName = "NSF Fee"
			fee.DetectedAutomatically = true
			Expect(db.SaveFee(fee)).To(Succeed())

			confirmed, err := db.ListFees()
			Expect(err).NotTo(HaveOccurred())
			Expect(confirmed).To(HaveLen(1))
			Expect(confirmed[0].FeeCategoryName).To(Equal("NSF Fee"))
			Expect(confirmed[0].DetectedAutomatically).To(BeTrue())
		})

		It("should round-trip amounts and dates", func() {
			Expect(db.SaveFee(overdraftFee("t1", march1))).To(Succeed())

			confirmed, err := db.ListFees()
			Expect(err).NotTo(HaveOccurred())
			Expect(confirmed[0].Amount.Equal(decimal.NewFromInt(35))).To(BeTrue())
			Expect(confirmed[0].Date.String()).To(Equal("2024-03-01"))
			Expect(confirmed[0].InstitutionName).To(Equal("Chase"))
		})
	})

	Describe("reopening", func() {
		It("should keep saved data", func() {
			Expect(db.SaveScan(newScan("1"))).To(Succeed())
			Expect(db.SaveFee(overdraftFee("t1", march1))).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())

			_, err = db.GetScan("1")
			Expect(err).NotTo(HaveOccurred())
			confirmed, err := db.ListFees()
			Expect(err).NotTo(HaveOccurred())
			Expect(confirmed).To(HaveLen(1))
		})
	})
})
