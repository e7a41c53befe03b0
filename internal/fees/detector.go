// Package fees recognises bank, card and brokerage fees in transaction
// descriptions and summarises them.
package fees

import (
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/zombor/finsight/internal/model"
	"github.com/zombor/finsight/internal/patterns"
	"github.com/zombor/finsight/internal/scoring"
)

// MatchThreshold is the score a fee type must exceed to be reported
const MatchThreshold = 0.5

// DetectedFee is a fee inferred from a transaction
type DetectedFee struct {
	ExpenseID             string               `json:"expense_id"`
	FeeCategoryName       string               `json:"fee_category_name"`
	CategoryType          patterns.FeeCategory `json:"category_type"`
	Amount                decimal.Decimal      `json:"amount"`
	InstitutionName       string               `json:"institution_name,omitempty"`
	AccountType           patterns.AccountType `json:"account_type"`
	Date                  model.Date           `json:"date"`
	DetectionConfidence   float64              `json:"detection_confidence"`
	DetectedAutomatically bool                 `json:"detected_automatically"`
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Detector scores transactions against the fee bank
type Detector struct {
	feeTypes     []patterns.FeeType
	institutions patterns.CategoryMap
	timeSource   TimeSource
}

// NewDetector creates a Detector over the default fee bank
func NewDetector() *Detector {
	return NewDetectorWithDeps(patterns.FeeTypes(), &defaultTimeSource{})
}

// NewDetectorWithDeps creates a Detector with a custom bank and clock for testing
func NewDetectorWithDeps(feeTypes []patterns.FeeType, timeSrc TimeSource) *Detector {
	return &Detector{
		feeTypes:     feeTypes,
		institutions: patterns.Institutions(),
		timeSource:   timeSrc,
	}
}

// DetectFees returns one fee per transaction that matches a fee type, skipping
// transactions already present in existing. Results are ordered by descending
// confidence; equal confidences keep input order.
func (d *Detector) DetectFees(transactions []model.Transaction, existing []DetectedFee) ([]DetectedFee, error) {
	seen := make(map[string]struct{}, len(existing))
	for _, f := range existing {
		seen[f.ExpenseID] = struct{}{}
	}

	detected := make([]DetectedFee, 0)
	for _, txn := range transactions {
		if _, ok := seen[txn.ID]; ok {
			continue
		}
		if err := txn.Validate(); err != nil {
			return nil, err
		}
		fee, ok := d.detect(txn)
		if !ok {
			continue
		}
		slog.Debug("Detected fee",
			"expense_id", txn.ID,
			"fee", fee.FeeCategoryName,
			"confidence", fee.DetectionConfidence,
		)
		detected = append(detected, fee)
	}

	sort.SliceStable(detected, func(i, j int) bool {
		return detected[i].DetectionConfidence > detected[j].DetectionConfidence
	})
	return detected, nil
}

// detect picks the best fee type for a transaction. Equal scores keep the
// fee type declared first.
func (d *Detector) detect(txn model.Transaction) (DetectedFee, bool) {
	var (
		best      patterns.FeeType
		bestScore float64
		found     bool
	)
	for _, ft := range d.feeTypes {
		score := Score(txn.Description, txn.AmountValue(), ft)
		if score > MatchThreshold && score > bestScore {
			best, bestScore, found = ft, score, true
		}
	}
	if !found {
		return DetectedFee{}, false
	}

	accountType, ok := patterns.AccountTypeFor(txn.Description)
	if !ok {
		accountType = patterns.DefaultAccountType(best.Category)
	}

	return DetectedFee{
		ExpenseID:             txn.ID,
		FeeCategoryName:       best.Name,
		CategoryType:          best.Category,
		Amount:                txn.AmountValue().Abs(),
		InstitutionName:       d.institutionName(txn.Description),
		AccountType:           accountType,
		Date:                  txn.Date,
		DetectionConfidence:   bestScore,
		DetectedAutomatically: true,
	}, true
}

// Score rates how well a description and amount fit a fee type.
// Without a keyword hit the score is 0.
func Score(description string, amount decimal.Decimal, ft patterns.FeeType) float64 {
	matched := scoring.Matches(description, ft.Keywords)
	if len(matched) == 0 {
		return 0
	}

	var s scoring.Score
	s.Add(float64(len(matched)) / float64(len(ft.Keywords)) * 0.6)
	s.Add(min(0.1*float64(len(matched)), 0.3))

	value := amount.Abs().InexactFloat64()
	r := ft.AmountRange
	switch {
	case value >= r.Min && value <= r.Max:
		s.Add(0.2)
	case value < r.Min || value > 3*r.Max:
		s.Add(-0.2)
	case value <= 2*r.Max:
		s.Add(0.1)
	}

	s.Add(ft.ConfidenceBoost * 0.1)
	s.AddIf(patterns.HasNegatingTerm(description), -0.3)

	return s.Value()
}

// institutionName finds a known institution, falling back to a plausible
// first word of the description
func (d *Detector) institutionName(description string) string {
	if e, ok := d.institutions.Lookup(description); ok {
		return e.Name
	}
	fields := strings.Fields(description)
	if len(fields) == 0 {
		return ""
	}
	first := fields[0]
	if len(first) < 3 || len(first) > 19 || strings.IndexFunc(first, unicode.IsDigit) >= 0 {
		return ""
	}
	return first
}
