// Package subscriptions finds recurring charges in expense history.
package subscriptions

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zombor/finsight/internal/model"
	"github.com/zombor/finsight/internal/patterns"
	"github.com/zombor/finsight/internal/scoring"
)

// Frequency is a canonical billing cadence
type Frequency string

const (
	Weekly    Frequency = "weekly"
	BiWeekly  Frequency = "bi-weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

// MaxVariance is the interval variance (days squared) at which a group stops
// counting as regular
const MaxVariance = 25.0

// MinOccurrences is the smallest group that can be a subscription
const MinOccurrences = 2

type bucket struct {
	freq     Frequency
	min, max float64
}

var buckets = []bucket{
	{Weekly, 6, 8},
	{BiWeekly, 13, 15},
	{Monthly, 28, 32},
	{Quarterly, 88, 95},
	{Yearly, 360, 370},
}

// FrequencyForInterval maps a mean interval in days to its billing frequency.
// Bucket bounds are inclusive.
func FrequencyForInterval(days float64) (Frequency, bool) {
	for _, b := range buckets {
		if days >= b.min && days <= b.max {
			return b.freq, true
		}
	}
	return "", false
}

// NextBillingDate adds one billing period to date. Month-based periods use
// calendar arithmetic.
func NextBillingDate(date model.Date, freq Frequency) model.Date {
	switch freq {
	case Weekly:
		return model.DateOf(date.AddDate(0, 0, 7))
	case BiWeekly:
		return model.DateOf(date.AddDate(0, 0, 14))
	case Monthly:
		return model.DateOf(date.AddDate(0, 1, 0))
	case Quarterly:
		return model.DateOf(date.AddDate(0, 3, 0))
	case Yearly:
		return model.DateOf(date.AddDate(1, 0, 0))
	default:
		return date
	}
}

// Candidate is a recurring charge inferred from expense history
type Candidate struct {
	Name             string          `json:"name"`
	Category         string          `json:"category"`
	Amount           decimal.Decimal `json:"amount"`
	BillingFrequency Frequency       `json:"billing_frequency"`
	NextBillingDate  model.Date      `json:"next_billing_date"`
	Provider         string          `json:"provider"`
	Confidence       float64         `json:"confidence"`
	ExpensePatternID string          `json:"expense_pattern_id"`
}

// Detector groups expenses and measures how regularly each group repeats
type Detector struct {
	categories patterns.CategoryMap
}

// NewDetector creates a Detector over the default subscription categories
func NewDetector() *Detector {
	return &Detector{categories: patterns.SubscriptionCategories()}
}

type group struct {
	key      string
	expenses []model.Transaction
}

// DetectSubscriptions returns one candidate per group of identical
// (description, amount) expenses that recur on a known cadence. Candidates are
// ordered by the first appearance of their group in expenses.
func (d *Detector) DetectSubscriptions(expenses []model.Transaction) ([]Candidate, error) {
	var groups []*group
	byKey := make(map[string]*group)
	for _, e := range expenses {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		key := groupKey(e)
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.expenses = append(g.expenses, e)
	}

	candidates := make([]Candidate, 0)
	for _, g := range groups {
		c, ok := d.analyze(g.expenses)
		if !ok {
			continue
		}
		slog.Debug("Detected subscription",
			"name", c.Name,
			"frequency", c.BillingFrequency,
			"confidence", c.Confidence,
		)
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func groupKey(e model.Transaction) string {
	return strings.ToLower(strings.TrimSpace(e.Description)) + "|" + e.AmountValue().StringFixed(2)
}

func (d *Detector) analyze(expenses []model.Transaction) (Candidate, bool) {
	if len(expenses) < MinOccurrences {
		return Candidate{}, false
	}

	sorted := make([]model.Transaction, len(expenses))
	copy(sorted, expenses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date.Time)
	})

	intervals := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		intervals = append(intervals, float64(sorted[i-1].Date.DaysUntil(sorted[i].Date)))
	}

	mean, variance := meanVariance(intervals)
	if variance >= MaxVariance {
		return Candidate{}, false
	}
	freq, ok := FrequencyForInterval(mean)
	if !ok {
		return Candidate{}, false
	}

	first := expenses[0]
	last := sorted[len(sorted)-1]
	return Candidate{
		Name:             strings.TrimSpace(first.Description),
		Category:         d.categories.Category(first.Description, "other"),
		Amount:           first.AmountValue(),
		BillingFrequency: freq,
		NextBillingDate:  NextBillingDate(last.Date, freq),
		Provider:         provider(first.Description),
		Confidence:       Confidence(len(expenses), variance),
		ExpensePatternID: first.ID,
	}, true
}

// Confidence scores a regular group from its size and interval variance
func Confidence(occurrences int, variance float64) float64 {
	var s scoring.Score
	s.Add(0.5)
	s.Add(min(0.3, 0.1*float64(occurrences)))
	s.Add(max(0, (MaxVariance-variance)/MaxVariance*0.2))
	return s.Value()
}

// provider names a known provider, else the first word of the description
func provider(description string) string {
	if p, ok := patterns.ProviderFor(description); ok {
		return p
	}
	fields := strings.Fields(description)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// meanVariance returns the mean and population variance of values
func meanVariance(values []float64) (float64, float64) {
	mean := scoring.Mean(values, 0)
	if len(values) == 0 {
		return 0, 0
	}
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, sq / float64(len(values))
}
