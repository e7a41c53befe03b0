package email

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/zombor/finsight/internal/model"
)

// ProcessingStatus is the per-message outcome of a batch
type ProcessingStatus string

const (
	StatusProcessed  ProcessingStatus = "processed"
	StatusNotReceipt ProcessingStatus = "not_receipt"
	StatusFailed     ProcessingStatus = "failed"
)

// BatchResult is the outcome for one message of a batch
type BatchResult struct {
	EmailID          string                   `json:"email_id"`
	ProcessingStatus ProcessingStatus         `json:"processing_status"`
	Classification   *Classification          `json:"classification,omitempty"`
	Purchase         *model.ExtractedPurchase `json:"purchase,omitempty"`
	Error            string                   `json:"error,omitempty"`
}

// ProcessBatch classifies every message and extracts the receipts. Messages
// are processed independently; a failing message is reported as failed and
// never affects the others. Results are in input order.
func (c *Classifier) ProcessBatch(ctx context.Context, msgs []Message) []BatchResult {
	results := make([]BatchResult, len(msgs))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, msg := range msgs {
		g.Go(func() error {
			results[i] = c.processOne(ctx, msg)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (c *Classifier) processOne(ctx context.Context, msg Message) (result BatchResult) {
	result.EmailID = msg.ID
	defer func() {
		if r := recover(); r != nil {
			result = failed(msg.ID, fmt.Errorf("panic processing email: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return failed(msg.ID, err)
	}

	classification, err := c.Classify(msg)
	if err != nil {
		return failed(msg.ID, err)
	}
	result.Classification = &classification

	if !classification.IsReceipt {
		result.ProcessingStatus = StatusNotReceipt
		return result
	}

	purchase, err := c.Extract(msg)
	if err != nil {
		return failed(msg.ID, err)
	}
	result.Purchase = &purchase
	result.ProcessingStatus = StatusProcessed
	return result
}

func failed(id string, err error) BatchResult {
	slog.Error("Failed to process email", "email_id", id, "error", err)
	return BatchResult{
		EmailID:          id,
		ProcessingStatus: StatusFailed,
		Error:            err.Error(),
	}
}
