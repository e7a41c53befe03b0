// Package email decides whether an inbound message is a purchase receipt and
// pulls the purchase details out of the ones that are.
package email

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/zombor/finsight/internal/model"
	"github.com/zombor/finsight/internal/patterns"
	"github.com/zombor/finsight/internal/scoring"
)

const (
	// ReceiptThreshold is the confidence at which a message counts as a receipt
	ReceiptThreshold = 0.5
	// ReviewThreshold is the confidence below which a human should confirm
	ReviewThreshold = 0.7
)

// Spam heuristics
const (
	maxCapsRatio   = 0.7
	maxExclamation = 3
)

// Message is an inbound email as supplied by the ingestion layer
type Message struct {
	ID              string `json:"id"`
	SenderEmail     string `json:"sender_email"`
	Subject         string `json:"subject"`
	Body            string `json:"body,omitempty"`
	AttachmentCount int    `json:"attachment_count"`
}

// Validate checks the fields classification relies on
func (m Message) Validate() error {
	if strings.TrimSpace(m.SenderEmail) == "" {
		return &model.ValidationError{Record: m.ID, Field: "sender_email", Err: model.ErrMissingField}
	}
	if m.AttachmentCount < 0 {
		return &model.ValidationError{Record: m.ID, Field: "attachment_count", Err: model.ErrInvalidAmount}
	}
	return nil
}

func (m Message) text() string {
	if m.Body == "" {
		return m.Subject
	}
	return m.Subject + "\n" + m.Body
}

// Classification is the receipt verdict for one message
type Classification struct {
	IsReceipt      bool     `json:"is_receipt"`
	Confidence     float64  `json:"confidence"`
	Reasons        []string `json:"reasons"`
	RequiresReview bool     `json:"requires_review"`
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Classifier scores and extracts receipt emails
type Classifier struct {
	senders     []patterns.Rule
	subjects    []string
	spam        []string
	merchants   patterns.CategoryMap
	timeSource  TimeSource
	concurrency int
}

// DefaultConcurrency bounds ProcessBatch parallelism
const DefaultConcurrency = 8

// NewClassifier creates a Classifier with the default pattern bank
func NewClassifier() *Classifier {
	return NewClassifierWithDeps(&defaultTimeSource{}, DefaultConcurrency)
}

// NewClassifierWithDeps creates a Classifier with a custom clock and batch
// concurrency for testing
func NewClassifierWithDeps(timeSrc TimeSource, concurrency int) *Classifier {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Classifier{
		senders:     patterns.ReceiptSenders(),
		subjects:    patterns.ReceiptSubjectKeywords(),
		spam:        patterns.SpamKeywords(),
		merchants:   patterns.Merchants(),
		timeSource:  timeSrc,
		concurrency: concurrency,
	}
}

// Classify scores how likely a message is a purchase receipt
func (c *Classifier) Classify(msg Message) (Classification, error) {
	if err := msg.Validate(); err != nil {
		return Classification{}, err
	}

	var (
		s       scoring.Score
		reasons []string
	)

	if _, rule, ok := patterns.FirstMatch(c.senders, senderAddress(msg.SenderEmail)); ok {
		s.Add(0.4)
		reasons = append(reasons, fmt.Sprintf("sender matches %s pattern", rule.Name))
	}

	if matched := scoring.Matches(msg.Subject, c.subjects); len(matched) > 0 {
		s.Add(0.2 * float64(min(len(matched), 2)))
		reasons = append(reasons, "subject mentions "+strings.Join(matched, ", "))
	}

	if patterns.AmountToken().Regex.MatchString(msg.text()) {
		s.Add(0.2)
		reasons = append(reasons, "contains a dollar amount")
	}

	if msg.AttachmentCount > 0 {
		s.Add(0.1)
		reasons = append(reasons, fmt.Sprintf("has %d attachment(s)", msg.AttachmentCount))
	}

	if spam := c.spamSignals(msg); len(spam) > 0 {
		s.Add(-0.5)
		reasons = append(reasons, "spam indicators: "+strings.Join(spam, ", "))
	}

	confidence := s.Value()
	if reasons == nil {
		reasons = []string{}
	}
	return Classification{
		IsReceipt:      confidence >= ReceiptThreshold,
		Confidence:     confidence,
		Reasons:        reasons,
		RequiresReview: confidence < ReviewThreshold,
	}, nil
}

func (c *Classifier) spamSignals(msg Message) []string {
	var signals []string
	if matched := scoring.Matches(msg.text(), c.spam); len(matched) > 0 {
		signals = append(signals, "keywords "+strings.Join(matched, ", "))
	}
	if capsRatio(msg.Subject) > maxCapsRatio {
		signals = append(signals, "shouting subject")
	}
	if strings.Count(msg.Subject, "!") > maxExclamation {
		signals = append(signals, "excessive exclamation marks")
	}
	return signals
}

// capsRatio is the share of letters in s that are upper case
func capsRatio(s string) float64 {
	var letters, upper int
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}
