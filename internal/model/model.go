// Package model defines the records exchanged between callers and the detectors.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrMissingField indicates a required input field is absent
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidAmount indicates an amount that cannot be scored
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidConfidence indicates a confidence outside [0,1]
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")
)

// ValidationError describes a malformed input record
type ValidationError struct {
	Record string
	Field  string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Record != "" {
		return fmt.Sprintf("record %s: %s: %v", e.Record, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Transaction is a read-only expense or bank transaction supplied by the caller
type Transaction struct {
	ID          string           `json:"id"`
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	Date        Date             `json:"date"`
	UserID      string           `json:"user_id,omitempty"`
	Owner       string           `json:"owner,omitempty"`
}

// Validate checks the fields every detector relies on
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return &ValidationError{Record: t.ID, Field: "description", Err: ErrMissingField}
	}
	if t.Amount == nil {
		return &ValidationError{Record: t.ID, Field: "amount", Err: ErrMissingField}
	}
	if t.Date.IsZero() {
		return &ValidationError{Record: t.ID, Field: "date", Err: ErrMissingField}
	}
	return nil
}

// AmountValue returns the amount, or zero when absent
func (t Transaction) AmountValue() decimal.Decimal {
	if t.Amount == nil {
		return decimal.Zero
	}
	return *t.Amount
}

// NewTransaction builds a Transaction from a float amount and a calendar date
func NewTransaction(id, description string, amount float64, date time.Time) Transaction {
	d := decimal.NewFromFloat(amount)
	return Transaction{
		ID:          id,
		Description: description,
		Amount:      &d,
		Date:        DateOf(date),
	}
}

// LineItem is a single purchased item
type LineItem struct {
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// ExtractedPurchase is the structured result of email or OCR extraction.
// Pointer fields are only set when the corresponding value was found.
type ExtractedPurchase struct {
	MerchantName        string             `json:"merchant_name,omitempty"`
	TotalAmount         *decimal.Decimal   `json:"total_amount,omitempty"`
	OrderNumber         string             `json:"order_number,omitempty"`
	ReceiptNumber       string             `json:"receipt_number,omitempty"`
	TransactionDate     string             `json:"transaction_date,omitempty"`
	Category            string             `json:"category"`
	TaxAmount           *decimal.Decimal   `json:"tax_amount,omitempty"`
	TipAmount           *decimal.Decimal   `json:"tip_amount,omitempty"`
	PhoneNumber         string             `json:"phone_number,omitempty"`
	LineItems           []LineItem         `json:"line_items"`
	Confidence          float64            `json:"confidence"`
	ConfidenceBreakdown map[string]float64 `json:"confidence_breakdown"`
}
