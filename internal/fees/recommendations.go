package fees

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/zombor/finsight/internal/patterns"
)

// Priority orders recommendations
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Savings periods
const (
	PeriodAnnual    = "annual"
	PeriodQuarterly = "quarterly"
)

// ATMFeeAlertCount is the number of ATM fees above which an alert is raised
const ATMFeeAlertCount = 3

// investmentSavingsShare is the part of investment fees a cheaper fund lineup is assumed to save
var investmentSavingsShare = decimal.NewFromFloat(0.5)

// Recommendation is a rule-based suggestion for cutting fees
type Recommendation struct {
	Type             string          `json:"type"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	PotentialSavings decimal.Decimal `json:"potential_savings"`
	SavingsPeriod    string          `json:"savings_period"`
	Priority         Priority        `json:"priority"`
}

// Recommendations derives fee-saving suggestions from fees and their analytics,
// highest priority first
func (d *Detector) Recommendations(fees []DetectedFee, analytics Analytics) []Recommendation {
	days := decimal.NewFromInt(int64(analytics.TimeRange.Days()))
	annualize := func(v decimal.Decimal) decimal.Decimal {
		return v.Mul(decimal.NewFromInt(365)).Div(days).Round(2)
	}

	recs := make([]Recommendation, 0, 4)

	if len(analytics.AvoidableFees) > 0 {
		recs = append(recs, Recommendation{
			Type:  "avoidable_fees",
			Title: "Avoid overdraft and late fees",
			Description: fmt.Sprintf("You paid %s in %d avoidable fees. Low-balance alerts and autopay would prevent most of them.",
				analytics.AvoidableTotal.StringFixed(2), len(analytics.AvoidableFees)),
			PotentialSavings: annualize(analytics.AvoidableTotal),
			SavingsPeriod:    PeriodAnnual,
			Priority:         PriorityHigh,
		})
	}

	var (
		atmCount         int
		atmTotal         = decimal.Zero
		maintenanceCount int
		maintenanceTotal = decimal.Zero
	)
	for _, f := range fees {
		if !analytics.contains(f) {
			continue
		}
		switch f.FeeCategoryName {
		case patterns.FeeATM:
			atmCount++
			atmTotal = atmTotal.Add(f.Amount)
		case patterns.FeeMonthlyMaintenance:
			maintenanceCount++
			maintenanceTotal = maintenanceTotal.Add(f.Amount)
		}
	}

	if atmCount > ATMFeeAlertCount {
		recs = append(recs, Recommendation{
			Type:             "atm_fees",
			Title:            "Use in-network ATMs",
			Description:      fmt.Sprintf("%d ATM fees totalling %s. Switch to in-network ATMs or get cash back at checkout.", atmCount, atmTotal.StringFixed(2)),
			PotentialSavings: annualize(atmTotal),
			SavingsPeriod:    PeriodAnnual,
			Priority:         PriorityMedium,
		})
	}

	if maintenanceCount > 0 {
		monthly := maintenanceTotal.Div(decimal.NewFromInt(int64(maintenanceCount)))
		recs = append(recs, Recommendation{
			Type:             "maintenance_fees",
			Title:            "Waive monthly maintenance fees",
			Description:      "Meet the minimum balance or direct deposit requirement, or move to a no-fee account.",
			PotentialSavings: monthly.Mul(decimal.NewFromInt(12)).Round(2),
			SavingsPeriod:    PeriodAnnual,
			Priority:         PriorityMedium,
		})
	}

	if investment, ok := analytics.ByCategory[patterns.FeeCategoryInvestment]; ok && investment.IsPositive() {
		quarterly := investment.Mul(decimal.NewFromInt(90)).Div(days)
		recs = append(recs, Recommendation{
			Type:             "investment_fees",
			Title:            "Review investment fees",
			Description:      "Compare advisory fees and expense ratios with low-cost index funds.",
			PotentialSavings: quarterly.Mul(investmentSavingsShare).Round(2),
			SavingsPeriod:    PeriodQuarterly,
			Priority:         PriorityLow,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.rank() < recs[j].Priority.rank()
	})
	return recs
}
