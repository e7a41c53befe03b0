// Package ocr turns receipt images into purchases: an Engine owns the OCR
// worker, and Extract reads fields out of the recognized text.
package ocr

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zombor/finsight/internal/model"
	"github.com/zombor/finsight/internal/patterns"
	"github.com/zombor/finsight/internal/scoring"
)

// Field weights. Confidence is their sum, capped at 1.
const (
	totalWeight         = 0.3
	taxWeight           = 0.15
	tipWeight           = 0.1
	merchantWeight      = 0.2
	dateWeight          = 0.15
	receiptNumberWeight = 0.05
	phoneWeight         = 0.05
	categoryWeight      = 0.1
	lineItemsWeight     = 0.1
)

// MaxLineItems caps the items read from one receipt
const MaxLineItems = 20

var maxItemPrice = decimal.NewFromInt(1000)

// Extract reads purchase fields out of OCR text. Every field is optional;
// Confidence reflects how many were found.
func Extract(text string) model.ExtractedPurchase {
	breakdown := scoring.NewBreakdown()
	purchase := model.ExtractedPurchase{Category: "other", LineItems: []model.LineItem{}}
	lines := splitLines(text)

	if v, ok := amount(patterns.ReceiptTotals(), text); ok {
		purchase.TotalAmount = &v
		breakdown.Record("total", totalWeight)
	}
	if v, ok := amount(patterns.ReceiptTaxes(), text); ok {
		purchase.TaxAmount = &v
		breakdown.Record("tax", taxWeight)
	}
	if v, ok := amount(patterns.ReceiptTips(), text); ok {
		purchase.TipAmount = &v
		breakdown.Record("tip", tipWeight)
	}

	if name, ok := merchant(lines); ok {
		purchase.MerchantName = name
		breakdown.Record("merchant", merchantWeight)
	}

	if raw, _, ok := patterns.FirstMatch(patterns.DateRules(), text); ok {
		if t, valid := patterns.ParseDate(raw); valid {
			purchase.TransactionDate = model.DateOf(t).String()
			breakdown.Record("date", dateWeight)
		} else {
			breakdown.Record("date", 0)
		}
	}

	if v, _, ok := patterns.FirstMatch(patterns.ReceiptNumbers(), text); ok {
		purchase.ReceiptNumber = v
		breakdown.Record("receipt_number", receiptNumberWeight)
	}
	if v, _, ok := patterns.FirstMatch(patterns.ReceiptPhones(), text); ok {
		purchase.PhoneNumber = v
		breakdown.Record("phone", phoneWeight)
	}

	if purchase.MerchantName != "" {
		purchase.Category = patterns.ReceiptCategories().Category(purchase.MerchantName, "other")
		if purchase.Category != "other" {
			breakdown.Record("category", categoryWeight)
		}
	}

	purchase.LineItems = lineItems(lines)
	if len(purchase.LineItems) > 0 {
		breakdown.Record("line_items", lineItemsWeight)
	}

	purchase.Confidence = breakdown.Sum()
	purchase.ConfidenceBreakdown = breakdown.Map()
	return purchase
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func amount(rules []patterns.Rule, text string) (decimal.Decimal, bool) {
	raw, _, ok := patterns.FirstMatch(rules, text)
	if !ok {
		return decimal.Decimal{}, false
	}
	v, err := parseMoney(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return v, true
}

func parseMoney(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
}

// merchant returns the first non-item, non-footer line shaped like a business name
func merchant(lines []string) (string, bool) {
	item := patterns.LineItem()
	for _, line := range lines {
		if patterns.IsReceiptNoise(line) || item.Regex.MatchString(line) {
			continue
		}
		if v, _, ok := patterns.FirstMatch(patterns.ReceiptMerchants(), line); ok {
			return v, true
		}
	}
	return "", false
}

func lineItems(lines []string) []model.LineItem {
	itemRule := patterns.LineItem()
	qtyRule := patterns.LineQuantity()

	items := make([]model.LineItem, 0)
	for _, line := range lines {
		if len(items) == MaxLineItems {
			break
		}
		if patterns.IsReceiptNoise(line) {
			continue
		}
		m := itemRule.Regex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		price, err := parseMoney(m[2])
		if err != nil || !price.IsPositive() || !price.LessThan(maxItemPrice) {
			continue
		}

		description := strings.TrimSpace(m[1])
		quantity := 1
		if q := qtyRule.Regex.FindStringSubmatch(description); q != nil {
			if n, err := strconv.Atoi(q[1]); err == nil && n > 0 {
				quantity = n
				description = strings.TrimSpace(description[len(q[0]):])
			}
		}
		if description == "" {
			continue
		}

		items = append(items, model.LineItem{
			Description: description,
			Price:       price,
			Quantity:    quantity,
		})
	}
	return items
}
