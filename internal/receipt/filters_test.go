package receipt

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("filters", func() {
	var receipts []Receipt

	BeforeEach(func() {
		receipts = []Receipt{
			{ID: "1", StoreName: "CVS Pharmacy", PurchaseDate: "2024-01-10"},
			{ID: "2", StoreName: "Walgreens", PurchaseDate: "2024-01-15"},
			{ID: "3", StoreName: "cvs", PurchaseDate: "2024-02-01"},
			{ID: "4", StoreName: "", PurchaseDate: ""},
			{ID: "5", StoreName: "Target", PurchaseDate: "not a date"},
		}
	})

	ids := func(rs []Receipt) []string {
		out := make([]string, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	Describe("FilterByDateRange", func() {
		var (
			r      DateRange
			result []Receipt
		)

		BeforeEach(func() {
			r = DateRange{}
		})

		JustBeforeEach(func() {
			result = FilterByDateRange(receipts, r)
		})

		When("no bounds are set", func() {
			It("should keep every receipt", func() {
				Expect(result).To(HaveLen(5))
			})
		})

		When("both bounds are set", func() {
			BeforeEach(func() {
				r = DateRange{
					From: timePtr(time.Date(2024, 1, 10, 0, 0, 0, 0, time.Local)),
					To:   timePtr(time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local)),
				}
			})

			It("should include both ends", func() {
				Expect(ids(result)).To(Equal([]string{"1", "2"}))
			})
		})

		When("only a start is set", func() {
			BeforeEach(func() {
				r = DateRange{From: timePtr(time.Date(2024, 1, 11, 0, 0, 0, 0, time.Local))}
			})

			It("should drop earlier and undated receipts", func() {
				Expect(ids(result)).To(Equal([]string{"2", "3"}))
			})
		})

		When("only an end is set", func() {
			BeforeEach(func() {
				r = DateRange{To: timePtr(time.Date(2024, 1, 31, 0, 0, 0, 0, time.Local))}
			})

			It("should drop later and undated receipts", func() {
				Expect(ids(result)).To(Equal([]string{"1", "2"}))
			})
		})
	})

	Describe("FilterByStore", func() {
		It("should match case-insensitive substrings", func() {
			Expect(ids(FilterByStore(receipts, "CVS"))).To(Equal([]string{"1", "3"}))
		})

		It("should keep everything for an empty store", func() {
			Expect(FilterByStore(receipts, "")).To(HaveLen(5))
		})

		It("should keep everything for all", func() {
			Expect(FilterByStore(receipts, "all")).To(HaveLen(5))
		})

		It("should return an empty list when nothing matches", func() {
			Expect(FilterByStore(receipts, "Costco")).To(BeEmpty())
		})
	})

	Describe("UniqueStores", func() {
		It("should return sorted names without blanks", func() {
			Expect(UniqueStores(receipts)).To(Equal([]string{"CVS Pharmacy", "Target", "Walgreens", "cvs"}))
		})

		It("should return an empty list for no receipts", func() {
			Expect(UniqueStores(nil)).To(BeEmpty())
		})
	})

	Describe("ActiveFilterCount", func() {
		DescribeTable("counting",
			func(store string, r DateRange, expected int) {
				Expect(ActiveFilterCount(store, r)).To(Equal(expected))
			},
			Entry("none", "", DateRange{}, 0),
			Entry("all stores", "all", DateRange{}, 0),
			Entry("store", "CVS", DateRange{}, 1),
			Entry("dates", "", DateRange{From: timePtr(time.Now())}, 1),
			Entry("both", "CVS", DateRange{To: timePtr(time.Now())}, 2),
		)
	})

	Describe("FormatCurrency", func() {
		It("should render two decimals", func() {
			Expect(FormatCurrency(floatPtr(25.5))).To(Equal("$25.50"))
		})

		It("should render nil as zero", func() {
			Expect(FormatCurrency(nil)).To(Equal("$0.00"))
		})
	})

	Describe("FormatDate", func() {
		DescribeTable("formatting",
			func(date, expected string) {
				Expect(FormatDate(date)).To(Equal(expected))
			},
			Entry("date only", "2024-01-15", "Jan 15, 2024"),
			Entry("local timestamp", "2024-03-05T10:30:00", "Mar 05, 2024"),
			Entry("empty", "", "Unknown Date"),
			Entry("garbage", "yesterday", "Invalid Date"),
		)
	})

	Describe("parseTimestamp", func() {
		It("should accept unix milliseconds", func() {
			t, err := parseTimestamp("1705312800000")
			Expect(err).NotTo(HaveOccurred())
			Expect(t.UnixMilli()).To(Equal(int64(1705312800000)))
		})

		It("should accept RFC 3339", func() {
			t, err := parseTimestamp("2024-01-15T10:00:00Z")
			Expect(err).NotTo(HaveOccurred())
			Expect(t.Equal(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))).To(BeTrue())
		})

		It("returns the error for garbage", func() {
			_, err := parseTimestamp("soon")
			Expect(err).To(MatchError(ContainSubstring("invalid timestamp")))
		})
	})
})
