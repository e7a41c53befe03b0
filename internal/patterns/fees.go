package patterns

import (
	"slices"
	"strings"
)

// FeeCategory is the coarse grouping of a fee type
type FeeCategory string

const (
	FeeCategoryBanking    FeeCategory = "banking"
	FeeCategoryInvestment FeeCategory = "investment"
	FeeCategoryCreditCard FeeCategory = "credit_card"
	FeeCategoryOther      FeeCategory = "other"
)

// AccountType is the kind of account a fee was charged on
type AccountType string

const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountCreditCard AccountType = "credit_card"
	AccountInvestment AccountType = "investment"
	AccountLoan       AccountType = "loan"
	AccountOther      AccountType = "other"
)

// AmountRange is the usual charge for a fee type, in dollars
type AmountRange struct {
	Min float64
	Max float64
}

// FeeType describes one recognisable fee
type FeeType struct {
	Name            string
	Keywords        []string
	Category        FeeCategory
	ConfidenceBoost float64
	AmountRange     AmountRange
}

// Fee names with special treatment in analytics
const (
	FeeOverdraft          = "Overdraft Fee"
	FeeNSF                = "NSF Fee"
	FeeMonthlyMaintenance = "Monthly Maintenance"
	FeeATM                = "ATM Fee"
	FeeLatePayment        = "Late Payment Fee"
	FeeAnnual             = "Annual Fee"
	FeeOverLimit          = "Over Limit Fee"
	FeeManagement         = "Management Fee"
)

// feeTypes is in priority order; equal scores resolve to the earlier entry
var feeTypes = []FeeType{
	{
		Name:            FeeOverdraft,
		Keywords:        []string{"overdraft", "overdraft fee", "od fee", "overdraft charge"},
		Category:        FeeCategoryBanking,
		ConfidenceBoost: 0.9,
		AmountRange:     AmountRange{Min: 25, Max: 40},
	},
	{
		Name:            FeeNSF,
		Keywords:        []string{"nsf", "insufficient funds", "non-sufficient", "returned item"},
		Category:        FeeCategoryBanking,
		ConfidenceBoost: 0.9,
		AmountRange:     AmountRange{Min: 25, Max: 40},
	},
	{
		Name:            FeeMonthlyMaintenance,
		Keywords:        []string{"monthly maintenance", "maintenance fee", "monthly service", "service charge", "account fee"},
		Category:        FeeCategoryBanking,
		ConfidenceBoost: 0.8,
		AmountRange:     AmountRange{Min: 5, Max: 25},
	},
	{
		Name:            FeeATM,
		Keywords:        []string{"atm fee", "atm withdrawal fee", "atm surcharge", "non-network atm", "atm"},
		Category:        FeeCategoryBanking,
		ConfidenceBoost: 0.8,
		AmountRange:     AmountRange{Min: 2, Max: 6},
	},
	{
		Name:            "Wire Transfer Fee",
		Keywords:        []string{"wire fee", "wire transfer fee", "outgoing wire", "incoming wire"},
		Category:        FeeCategoryBanking,
		ConfidenceBoost: 0.8,
		AmountRange:     AmountRange{Min: 15, Max: 50},
	},
	{
		Name:            "Stop Payment Fee",
		Keywords:        []string{"stop payment"},
		Category:        FeeCategoryBanking,
		ConfidenceBoost: 0.7,
		AmountRange:     AmountRange{Min: 15, Max: 35},
	},
	{
		Name:            FeeLatePayment,
		Keywords:        []string{"late fee", "late payment", "past due fee", "late charge"},
		Category:        FeeCategoryCreditCard,
		ConfidenceBoost: 0.9,
		AmountRange:     AmountRange{Min: 15, Max: 40},
	},
	{
		Name:            FeeOverLimit,
		Keywords:        []string{"over limit", "overlimit", "over-limit", "over credit limit"},
		Category:        FeeCategoryCreditCard,
		ConfidenceBoost: 0.9,
		AmountRange:     AmountRange{Min: 25, Max: 40},
	},
	{
		Name:            FeeAnnual,
		Keywords:        []string{"annual fee", "annual membership", "yearly fee", "membership fee"},
		Category:        FeeCategoryCreditCard,
		ConfidenceBoost: 0.8,
		AmountRange:     AmountRange{Min: 25, Max: 550},
	},
	{
		Name:            "Foreign Transaction Fee",
		Keywords:        []string{"foreign transaction", "international transaction", "fx fee", "currency conversion"},
		Category:        FeeCategoryCreditCard,
		ConfidenceBoost: 0.7,
		AmountRange:     AmountRange{Min: 0.5, Max: 50},
	},
	{
		Name:            "Cash Advance Fee",
		Keywords:        []string{"cash advance", "cash advance fee"},
		Category:        FeeCategoryCreditCard,
		ConfidenceBoost: 0.8,
		AmountRange:     AmountRange{Min: 5, Max: 50},
	},
	{
		Name:            "Balance Transfer Fee",
		Keywords:        []string{"balance transfer", "balance transfer fee"},
		Category:        FeeCategoryCreditCard,
		ConfidenceBoost: 0.7,
		AmountRange:     AmountRange{Min: 5, Max: 200},
	},
	{
		Name:            FeeManagement,
		Keywords:        []string{"management fee", "advisory fee", "account management", "wrap fee"},
		Category:        FeeCategoryInvestment,
		ConfidenceBoost: 0.7,
		AmountRange:     AmountRange{Min: 10, Max: 500},
	},
	{
		Name:            "Trading Commission",
		Keywords:        []string{"commission", "trade fee", "trading fee", "brokerage fee"},
		Category:        FeeCategoryInvestment,
		ConfidenceBoost: 0.7,
		AmountRange:     AmountRange{Min: 1, Max: 50},
	},
	{
		Name:            "Fund Expense Fee",
		Keywords:        []string{"expense ratio", "fund expense", "12b-1"},
		Category:        FeeCategoryInvestment,
		ConfidenceBoost: 0.6,
		AmountRange:     AmountRange{Min: 1, Max: 200},
	},
	{
		Name:            "Account Transfer Fee",
		Keywords:        []string{"acat", "transfer out fee", "account transfer fee", "account closing fee"},
		Category:        FeeCategoryInvestment,
		ConfidenceBoost: 0.6,
		AmountRange:     AmountRange{Min: 25, Max: 150},
	},
	{
		Name:            "Paper Statement Fee",
		Keywords:        []string{"paper statement", "statement fee"},
		Category:        FeeCategoryOther,
		ConfidenceBoost: 0.6,
		AmountRange:     AmountRange{Min: 1, Max: 5},
	},
}

// FeeTypes returns the fee bank in priority order
func FeeTypes() []FeeType {
	out := make([]FeeType, len(feeTypes))
	for i, ft := range feeTypes {
		ft.Keywords = slices.Clone(ft.Keywords)
		out[i] = ft
	}
	return out
}

var negatingTerms = []string{"refund", "credit", "reversal", "adjustment", "cashback"}

// NegatingTerms returns the terms that mark a reversal rather than a charge
func NegatingTerms() []string {
	return slices.Clone(negatingTerms)
}

// HasNegatingTerm reports whether a description reads as a reversal.
// "credit card" names an account, not a credit, and is ignored.
func HasNegatingTerm(description string) bool {
	lower := strings.ToLower(description)
	lower = strings.ReplaceAll(lower, "credit card", "")
	for _, t := range negatingTerms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

var avoidableFees = []string{FeeOverdraft, FeeLatePayment, FeeNSF, FeeOverLimit}

var recurringFees = []string{FeeMonthlyMaintenance, FeeAnnual, FeeManagement}

// IsAvoidableFee reports whether a fee name is avoidable with account hygiene
func IsAvoidableFee(name string) bool {
	return slices.Contains(avoidableFees, name)
}

// IsRecurringFee reports whether a fee name recurs on a schedule
func IsRecurringFee(name string) bool {
	return slices.Contains(recurringFees, name)
}

// institutions lists banks, then brokerages, then card networks.
// Longer names come before names they contain.
var institutions = CategoryMap{
	{Name: "Bank of America", Category: "bank", Keywords: []string{"bank of america", "bofa"}},
	{Name: "Wells Fargo", Category: "bank", Keywords: []string{"wells fargo"}},
	{Name: "Chase", Category: "bank", Keywords: []string{"chase", "jpmorgan"}},
	{Name: "Citibank", Category: "bank", Keywords: []string{"citibank", "citi card"}},
	{Name: "Capital One", Category: "bank", Keywords: []string{"capital one"}},
	{Name: "US Bank", Category: "bank", Keywords: []string{"us bank", "u.s. bank"}},
	{Name: "PNC", Category: "bank", Keywords: []string{"pnc"}},
	{Name: "TD Bank", Category: "bank", Keywords: []string{"td bank"}},
	{Name: "Truist", Category: "bank", Keywords: []string{"truist"}},
	{Name: "Citizens Bank", Category: "bank", Keywords: []string{"citizens bank"}},
	{Name: "HSBC", Category: "bank", Keywords: []string{"hsbc"}},
	{Name: "Fidelity", Category: "brokerage", Keywords: []string{"fidelity"}},
	{Name: "Vanguard", Category: "brokerage", Keywords: []string{"vanguard"}},
	{Name: "Charles Schwab", Category: "brokerage", Keywords: []string{"schwab"}},
	{Name: "TD Ameritrade", Category: "brokerage", Keywords: []string{"td ameritrade", "ameritrade"}},
	{Name: "E*TRADE", Category: "brokerage", Keywords: []string{"e*trade", "etrade"}},
	{Name: "Robinhood", Category: "brokerage", Keywords: []string{"robinhood"}},
	{Name: "Merrill", Category: "brokerage", Keywords: []string{"merrill"}},
	{Name: "American Express", Category: "card_network", Keywords: []string{"american express", "amex"}},
	{Name: "Visa", Category: "card_network", Keywords: []string{"visa"}},
	{Name: "Mastercard", Category: "card_network", Keywords: []string{"mastercard"}},
	{Name: "Discover", Category: "card_network", Keywords: []string{"discover"}},
}

// Institutions returns the known institution names
func Institutions() CategoryMap {
	return cloneMap(institutions)
}

// AccountTypeRule maps keywords to an account type
type AccountTypeRule struct {
	Type     AccountType
	Keywords []string
}

var accountTypeRules = []AccountTypeRule{
	{Type: AccountChecking, Keywords: []string{"checking", "chk"}},
	{Type: AccountSavings, Keywords: []string{"savings"}},
	{Type: AccountCreditCard, Keywords: []string{"credit card", "card"}},
	{Type: AccountInvestment, Keywords: []string{"brokerage", "investment", "401k", "roth"}},
	{Type: AccountLoan, Keywords: []string{"loan", "mortgage"}},
}

// AccountTypeFor returns the first account type named in description
func AccountTypeFor(description string) (AccountType, bool) {
	lower := strings.ToLower(description)
	for _, r := range accountTypeRules {
		for _, kw := range r.Keywords {
			if strings.Contains(lower, kw) {
				return r.Type, true
			}
		}
	}
	return "", false
}

// DefaultAccountType is the account type assumed for a fee category
func DefaultAccountType(c FeeCategory) AccountType {
	switch c {
	case FeeCategoryBanking:
		return AccountChecking
	case FeeCategoryCreditCard:
		return AccountCreditCard
	case FeeCategoryInvestment:
		return AccountInvestment
	default:
		return AccountOther
	}
}
