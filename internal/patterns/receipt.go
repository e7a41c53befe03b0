package patterns

import (
	"slices"
	"strings"
)

const money = `\$?\s*(\d{1,3}(?:,\d{3})*\.\d{2}|\d+\.\d{2})`

var receiptTotals = []Rule{
	RegexRule("labelled total", `(?i)\b(?:grand\s+total|total\s+due|amount\s+due|balance\s+due|total)\b\s*:?\s*`+money),
}

var receiptTaxes = []Rule{
	RegexRule("tax", `(?i)\b(?:sales\s+)?tax\b\s*(?:\(?\s*\d+(?:\.\d+)?\s*%\s*\)?)?\s*:?\s*`+money),
	RegexRule("vat", `(?i)\b(?:vat|gst|hst|pst)\b\s*(?:\(?\s*\d+(?:\.\d+)?\s*%\s*\)?)?\s*:?\s*`+money),
}

var receiptTips = []Rule{
	RegexRule("tip", `(?i)\b(?:tip|gratuity)\b\s*:?\s*`+money),
}

// Merchant lines are matched one trimmed line at a time
var receiptMerchants = []Rule{
	RegexRule("all caps", `^([A-Z][A-Z0-9&'.-]*(?:\s+[A-Z0-9&'.-]+)*)$`),
	RegexRule("title case", `^([A-Z][A-Za-z0-9&'.-]*(?:\s+[A-Z][A-Za-z0-9&'.-]*)*)$`),
	RegexRule("company suffix", `(?i)^(.+?\s(?:LLC|INC|CORP)\.?)$`),
}

var receiptNumbers = []Rule{
	RegexRule("receipt number", `(?i)\b(?:receipt|trans(?:action)?|invoice|order|ticket|check)\s*(?:#|no\.?|num(?:ber)?)\s*:?\s*([a-z0-9-]{3,})`),
}

var receiptPhones = []Rule{
	RegexRule("phone", `(\(?\d{3}\)?[\s.-]?\d{3}[\s.-]\d{4})`),
}

var lineItem = RegexRule("line item", `^(.*[A-Za-z].*?)\s+\$?(\d{1,3}(?:,\d{3})*\.\d{2}|\d+\.\d{2})\s*[A-Z]?$`)

var lineQuantity = RegexRule("quantity", `^(\d{1,2})\s*[xX@]?\s+`)

var receiptNoise = []string{
	"total", "subtotal", "tax", "tip", "gratuity", "receipt", "thank you",
	"visa", "mastercard", "cash", "change", "tender", "balance",
}

// ReceiptTotals returns the total amount patterns
func ReceiptTotals() []Rule { return slices.Clone(receiptTotals) }

// ReceiptTaxes returns the tax patterns
func ReceiptTaxes() []Rule { return slices.Clone(receiptTaxes) }

// ReceiptTips returns the tip patterns
func ReceiptTips() []Rule { return slices.Clone(receiptTips) }

// ReceiptMerchants returns the per-line merchant name patterns
func ReceiptMerchants() []Rule { return slices.Clone(receiptMerchants) }

// ReceiptNumbers returns the receipt number patterns
func ReceiptNumbers() []Rule { return slices.Clone(receiptNumbers) }

// ReceiptPhones returns the phone number patterns
func ReceiptPhones() []Rule { return slices.Clone(receiptPhones) }

// LineItem matches "<description> <price>"; groups are description and price
func LineItem() Rule { return lineItem }

// LineQuantity matches a leading quantity on a line item description
func LineQuantity() Rule { return lineQuantity }

// IsReceiptNoise reports whether a line is a header/footer rather than an item
func IsReceiptNoise(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range receiptNoise {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// receiptCategories maps storefront keywords to spending categories.
// Brand names precede generic words.
var receiptCategories = CategoryMap{
	{Name: "Starbucks", Category: "food", Keywords: []string{"starbucks"}},
	{Name: "McDonald's", Category: "food", Keywords: []string{"mcdonald"}},
	{Name: "Subway", Category: "food", Keywords: []string{"subway"}},
	{Name: "Chipotle", Category: "food", Keywords: []string{"chipotle"}},
	{Name: "Dunkin", Category: "food", Keywords: []string{"dunkin"}},
	{Name: "Whole Foods", Category: "groceries", Keywords: []string{"whole foods"}},
	{Name: "Trader Joe's", Category: "groceries", Keywords: []string{"trader joe"}},
	{Name: "Safeway", Category: "groceries", Keywords: []string{"safeway"}},
	{Name: "Kroger", Category: "groceries", Keywords: []string{"kroger"}},
	{Name: "Costco", Category: "groceries", Keywords: []string{"costco"}},
	{Name: "Walmart", Category: "shopping", Keywords: []string{"walmart"}},
	{Name: "Target", Category: "shopping", Keywords: []string{"target"}},
	{Name: "Home Depot", Category: "home", Keywords: []string{"home depot"}},
	{Name: "Lowe's", Category: "home", Keywords: []string{"lowe's", "lowes"}},
	{Name: "Best Buy", Category: "electronics", Keywords: []string{"best buy"}},
	{Name: "CVS", Category: "health", Keywords: []string{"cvs"}},
	{Name: "Walgreens", Category: "health", Keywords: []string{"walgreens"}},
	{Name: "Shell", Category: "transportation", Keywords: []string{"shell"}},
	{Name: "Chevron", Category: "transportation", Keywords: []string{"chevron"}},
	{Name: "Exxon", Category: "transportation", Keywords: []string{"exxon", "mobil"}},
	{Name: "Restaurant", Category: "food", Keywords: []string{"coffee", "cafe", "restaurant", "pizza", "burger", "grill", "bakery", "diner", "kitchen"}},
	{Name: "Grocery", Category: "groceries", Keywords: []string{"grocery", "market", "foods"}},
	{Name: "Pharmacy", Category: "health", Keywords: []string{"pharmacy", "drug"}},
	{Name: "Fuel", Category: "transportation", Keywords: []string{"fuel", "gas station", "petrol"}},
	{Name: "Lodging", Category: "travel", Keywords: []string{"hotel", " inn", "resort"}},
}

// ReceiptCategories returns the receipt merchant category map
func ReceiptCategories() CategoryMap {
	return cloneMap(receiptCategories)
}
