package fees

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/finsight/internal/model"
	"github.com/zombor/finsight/internal/patterns"
)

// TimeRange is a trailing analytics window
type TimeRange string

const (
	RangeMonth   TimeRange = "month"
	RangeQuarter TimeRange = "quarter"
	RangeYear    TimeRange = "year"
)

// Days returns the window length in days
func (r TimeRange) Days() int {
	switch r {
	case RangeQuarter:
		return 90
	case RangeYear:
		return 365
	default:
		return 30
	}
}

// ParseTimeRange validates a window name; empty means month
func ParseTimeRange(s string) (TimeRange, error) {
	switch TimeRange(strings.ToLower(strings.TrimSpace(s))) {
	case "", RangeMonth:
		return RangeMonth, nil
	case RangeQuarter:
		return RangeQuarter, nil
	case RangeYear:
		return RangeYear, nil
	default:
		return "", fmt.Errorf("unknown time range %q", s)
	}
}

// TopFeeCount is the number of largest fees listed in Analytics
const TopFeeCount = 5

// Analytics summarises the fees inside a trailing window
type Analytics struct {
	TimeRange      TimeRange                                `json:"time_range"`
	WindowStart    time.Time                                `json:"window_start"`
	WindowEnd      time.Time                                `json:"window_end"`
	TotalFees      decimal.Decimal                          `json:"total_fees"`
	FeeCount       int                                      `json:"fee_count"`
	AverageFee     decimal.Decimal                          `json:"average_fee"`
	ByCategory     map[patterns.FeeCategory]decimal.Decimal `json:"by_category"`
	ByInstitution  map[string]decimal.Decimal               `json:"by_institution"`
	TopFees        []DetectedFee                            `json:"top_fees"`
	AvoidableFees  []DetectedFee                            `json:"avoidable_fees"`
	AvoidableTotal decimal.Decimal                          `json:"avoidable_total"`
	RecurringFees  []DetectedFee                            `json:"recurring_fees"`
	RecurringTotal decimal.Decimal                          `json:"recurring_total"`
}

// Analytics aggregates fees dated within the trailing window ending now. The
// window starts at midnight UTC so whole days are counted.
// The clock is the only input that is not an argument.
func (d *Detector) Analytics(fees []DetectedFee, timeRange TimeRange) Analytics {
	now := d.timeSource.Now()
	start := model.DateOf(now.AddDate(0, 0, -timeRange.Days())).Time

	a := Analytics{
		TimeRange:      timeRange,
		WindowStart:    start,
		WindowEnd:      now,
		TotalFees:      decimal.Zero,
		AverageFee:     decimal.Zero,
		ByCategory:     make(map[patterns.FeeCategory]decimal.Decimal),
		ByInstitution:  make(map[string]decimal.Decimal),
		TopFees:        []DetectedFee{},
		AvoidableFees:  []DetectedFee{},
		AvoidableTotal: decimal.Zero,
		RecurringFees:  []DetectedFee{},
		RecurringTotal: decimal.Zero,
	}

	var inWindow []DetectedFee
	for _, f := range fees {
		if !a.contains(f) {
			continue
		}
		inWindow = append(inWindow, f)

		a.TotalFees = a.TotalFees.Add(f.Amount)
		a.ByCategory[f.CategoryType] = a.ByCategory[f.CategoryType].Add(f.Amount)
		institution := f.InstitutionName
		if institution == "" {
			institution = "Unknown"
		}
		a.ByInstitution[institution] = a.ByInstitution[institution].Add(f.Amount)

		if patterns.IsAvoidableFee(f.FeeCategoryName) {
			a.AvoidableFees = append(a.AvoidableFees, f)
			a.AvoidableTotal = a.AvoidableTotal.Add(f.Amount)
		}
		if patterns.IsRecurringFee(f.FeeCategoryName) {
			a.RecurringFees = append(a.RecurringFees, f)
			a.RecurringTotal = a.RecurringTotal.Add(f.Amount)
		}
	}

	a.FeeCount = len(inWindow)
	if a.FeeCount > 0 {
		a.AverageFee = a.TotalFees.Div(decimal.NewFromInt(int64(a.FeeCount))).Round(2)
	}

	sort.SliceStable(inWindow, func(i, j int) bool {
		return inWindow[i].Amount.GreaterThan(inWindow[j].Amount)
	})
	if len(inWindow) > TopFeeCount {
		inWindow = inWindow[:TopFeeCount]
	}
	a.TopFees = append(a.TopFees, inWindow...)

	return a
}

// contains reports whether a fee is dated inside the window
func (a Analytics) contains(f DetectedFee) bool {
	return !f.Date.Before(a.WindowStart) && !f.Date.After(a.WindowEnd)
}
