package email

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/zombor/finsight/internal/model"
	"github.com/zombor/finsight/internal/patterns"
	"github.com/zombor/finsight/internal/scoring"
)

// Per-field confidence contributions
const (
	amountConfidence         = 0.8
	orderIDConfidence        = 0.7
	dateConfidence           = 0.6
	domainMerchantConfidence = 0.6
	textMerchantConfidence   = 0.5
	labelMerchantConfidence  = 0.3

	// emptyConfidence is reported when nothing could be extracted
	emptyConfidence = 0.2
)

var maxPlausibleTotal = decimal.NewFromInt(10000)

// Extract pulls purchase details out of a receipt email. Confidence is the
// mean of the contributions of the fields that were found.
func (c *Classifier) Extract(msg Message) (model.ExtractedPurchase, error) {
	if err := msg.Validate(); err != nil {
		return model.ExtractedPurchase{}, err
	}

	text := msg.text()
	breakdown := scoring.NewBreakdown()
	purchase := model.ExtractedPurchase{LineItems: []model.LineItem{}}

	if total, ok := extractTotal(text); ok {
		purchase.TotalAmount = &total
		breakdown.Record("amount", amountConfidence)
	}

	if id, ok := extractOrderID(text); ok {
		purchase.OrderNumber = id
		breakdown.Record("order_id", orderIDConfidence)
	}

	if date, ok := c.extractDate(text); ok {
		purchase.TransactionDate = date.String()
		breakdown.Record("date", dateConfidence)
	}

	if name, score, ok := c.extractMerchant(msg.SenderEmail, text); ok {
		purchase.MerchantName = name
		breakdown.Record("merchant", score)
	}

	purchase.Category = c.merchants.Category(purchase.MerchantName, "other")
	purchase.Confidence = breakdown.Mean(emptyConfidence)
	purchase.ConfidenceBreakdown = breakdown.Map()
	return purchase, nil
}

// extractTotal tries the total patterns in order, skipping implausible amounts
func extractTotal(text string) (decimal.Decimal, bool) {
	for _, rule := range patterns.EmailTotals() {
		for _, raw := range rule.FindAll(text) {
			amount, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
			if err != nil {
				continue
			}
			if amount.IsPositive() && amount.LessThan(maxPlausibleTotal) {
				return amount, true
			}
		}
	}
	return decimal.Decimal{}, false
}

func extractOrderID(text string) (string, bool) {
	for _, rule := range patterns.EmailOrderIDs() {
		for _, id := range rule.FindAll(text) {
			if len(id) > 3 {
				return id, true
			}
		}
	}
	return "", false
}

// extractDate accepts the first date within a year back and a month ahead
func (c *Classifier) extractDate(text string) (model.Date, bool) {
	now := c.timeSource.Now()
	earliest := model.DateOf(now.AddDate(-1, 0, 0))
	latest := model.DateOf(now.AddDate(0, 1, 0))

	for _, rule := range patterns.DateRules() {
		for _, raw := range rule.FindAll(text) {
			t, ok := patterns.ParseDate(raw)
			if !ok {
				continue
			}
			d := model.DateOf(t)
			if d.Before(earliest.Time) || d.After(latest.Time) {
				continue
			}
			return d, true
		}
	}
	return model.Date{}, false
}

// extractMerchant prefers a known merchant in the sender domain, then a
// merchant named in the text, then the sender's second-level domain label
func (c *Classifier) extractMerchant(sender, text string) (string, float64, bool) {
	domain := senderDomain(sender)
	if domain != "" {
		if e, ok := c.merchants.Lookup(domain); ok {
			return e.Name, domainMerchantConfidence, true
		}
	}

	if name, _, ok := patterns.FirstMatch(patterns.EmailMerchants(), text); ok {
		return name, textMerchantConfidence, true
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 || labels[len(labels)-2] == "" {
		return "", 0, false
	}
	return cases.Title(language.English).String(labels[len(labels)-2]), labelMerchantConfidence, true
}

// senderAddress strips a display name: "Shop <orders@shop.com>" -> "orders@shop.com"
func senderAddress(sender string) string {
	sender = strings.TrimSpace(sender)
	if i := strings.LastIndex(sender, "<"); i >= 0 {
		sender = strings.TrimSuffix(sender[i+1:], ">")
	}
	return strings.TrimSpace(sender)
}

func senderDomain(sender string) string {
	address := senderAddress(sender)
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}
