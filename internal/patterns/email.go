package patterns

import "slices"

var receiptSenders = []Rule{
	RegexRule("amazon", `(?i)@(?:[\w-]+\.)*amazon\.(?:com|ca|co\.uk|de)$`),
	RegexRule("payments", `(?i)@(?:[\w-]+\.)*(?:paypal|stripe|square|squareup|venmo)\.com$`),
	RegexRule("apple", `(?i)@(?:[\w-]+\.)*(?:apple|itunes)\.com$`),
	RegexRule("rides and delivery", `(?i)@(?:[\w-]+\.)*(?:uber|lyft|doordash|grubhub|instacart|postmates)\.com$`),
	RegexRule("retail", `(?i)@(?:[\w-]+\.)*(?:ebay|etsy|walmart|target|bestbuy|costco|homedepot|shopify)\.com$`),
	RegexRule("receipt mailbox", `(?i)^(?:receipts?|orders?|billing|invoices?|payments?|purchases?|order-update)@`),
	RegexRule("store no-reply", `(?i)^(?:no-?reply|donotreply)@.*(?:shop|store|pay|order)`),
}

// ReceiptSenders returns the sender address patterns of receipt mail
func ReceiptSenders() []Rule {
	return slices.Clone(receiptSenders)
}

var receiptSubjectKeywords = []string{
	"receipt", "order", "invoice", "purchase", "payment", "confirmation",
	"shipped", "transaction", "your order", "billing",
}

// ReceiptSubjectKeywords returns the subject keywords of receipt mail
func ReceiptSubjectKeywords() []string {
	return slices.Clone(receiptSubjectKeywords)
}

var spamKeywords = []string{
	"viagra", "lottery", "you have won", "you've won", "winner", "claim your prize",
	"free money", "act now", "click here", "limited time offer", "urgent response",
}

// SpamKeywords returns literal spam phrases
func SpamKeywords() []string {
	return slices.Clone(spamKeywords)
}

var amountToken = RegexRule("amount", `\$\s?\d{1,3}(?:,\d{3})*(?:\.\d{2})?|\$\s?\d+(?:\.\d{2})?`)

// AmountToken matches a $amount-shaped token
func AmountToken() Rule {
	return amountToken
}

var emailTotals = []Rule{
	RegexRule("labelled total", `(?i)(?:grand\s+total|order\s+total|total\s+charged|total\s+amount|amount\s+charged|amount\s+paid|total)\s*:?\s*\$\s?([\d,]+\.\d{2})`),
	RegexRule("order of", `(?i)(?:order|purchase|payment)\s+of\s+\$\s?([\d,]+\.\d{2})`),
	RegexRule("any amount", `\$\s?([\d,]+\.\d{2})`),
}

// EmailTotals returns the total amount patterns, most specific first
func EmailTotals() []Rule {
	return slices.Clone(emailTotals)
}

var emailOrderIDs = []Rule{
	RegexRule("order number", `(?i)order\s*(?:#|number\b|no\b\.?|id\b)\s*:?\s*([a-z0-9][a-z0-9-]+)`),
	RegexRule("reference", `(?i)(?:transaction|confirmation|invoice|receipt)\s*(?:#|number\b|no\b\.?|id\b|code\b)\s*:?\s*([a-z0-9][a-z0-9-]+)`),
	RegexRule("hash", `#\s?([A-Za-z0-9][A-Za-z0-9-]{3,})`),
}

// EmailOrderIDs returns the order/transaction identifier patterns
func EmailOrderIDs() []Rule {
	return slices.Clone(emailOrderIDs)
}

// DateRules returns the date patterns shared by emails and receipts
func DateRules() []Rule {
	return slices.Clone(dateRules)
}

const properName = `([A-Z][\w&'.-]*(?:\s+[A-Z][\w&'.-]*){0,3})`

var emailMerchants = []Rule{
	RegexRule("purchase from", `(?:[Pp]urchase|[Oo]rder)\s+from\s+`+properName),
	RegexRule("shopping at", `[Tt]hank(?:s| you) for (?:shopping|your purchase|your order)\s+(?:at|with)\s+`+properName),
	RegexRule("from or at", `\b(?:[Ff]rom|[Aa]t)\s+`+properName),
}

// EmailMerchants returns the merchant name patterns for email text
func EmailMerchants() []Rule {
	return slices.Clone(emailMerchants)
}

// merchants maps merchant keywords (as they appear in names or sender
// domains) to a display name and spending category
var merchants = CategoryMap{
	{Name: "Uber Eats", Category: "food", Keywords: []string{"ubereats", "uber eats"}},
	{Name: "Amazon", Category: "shopping", Keywords: []string{"amazon"}},
	{Name: "Walmart", Category: "shopping", Keywords: []string{"walmart"}},
	{Name: "Target", Category: "shopping", Keywords: []string{"target"}},
	{Name: "eBay", Category: "shopping", Keywords: []string{"ebay"}},
	{Name: "Etsy", Category: "shopping", Keywords: []string{"etsy"}},
	{Name: "Best Buy", Category: "electronics", Keywords: []string{"bestbuy", "best buy"}},
	{Name: "Apple", Category: "electronics", Keywords: []string{"apple", "itunes"}},
	{Name: "Home Depot", Category: "home", Keywords: []string{"homedepot", "home depot"}},
	{Name: "Uber", Category: "transportation", Keywords: []string{"uber"}},
	{Name: "Lyft", Category: "transportation", Keywords: []string{"lyft"}},
	{Name: "DoorDash", Category: "food", Keywords: []string{"doordash"}},
	{Name: "Grubhub", Category: "food", Keywords: []string{"grubhub"}},
	{Name: "Starbucks", Category: "food", Keywords: []string{"starbucks"}},
	{Name: "Instacart", Category: "groceries", Keywords: []string{"instacart"}},
	{Name: "Costco", Category: "groceries", Keywords: []string{"costco"}},
	{Name: "Whole Foods", Category: "groceries", Keywords: []string{"wholefoods", "whole foods"}},
	{Name: "Netflix", Category: "entertainment", Keywords: []string{"netflix"}},
	{Name: "Spotify", Category: "entertainment", Keywords: []string{"spotify"}},
	{Name: "CVS", Category: "health", Keywords: []string{"cvs"}},
	{Name: "Walgreens", Category: "health", Keywords: []string{"walgreens"}},
	{Name: "Airbnb", Category: "travel", Keywords: []string{"airbnb"}},
	{Name: "Expedia", Category: "travel", Keywords: []string{"expedia"}},
	{Name: "Delta", Category: "travel", Keywords: []string{"delta.com", "delta air"}},
}

// Merchants returns the merchant category map
func Merchants() CategoryMap {
	return cloneMap(merchants)
}
