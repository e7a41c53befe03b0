package ocr

import (
	"context"
	"log/slog"

	"github.com/zombor/finsight/internal/model"
)

// Result is the outcome of recognizing and extracting one receipt image
type Result struct {
	Success  bool                     `json:"success"`
	Error    string                   `json:"error,omitempty"`
	Text     string                   `json:"text,omitempty"`
	Purchase *model.ExtractedPurchase `json:"purchase,omitempty"`
}

// Process recognizes image and extracts the purchase. An OCR failure yields
// an unsuccessful Result with no purchase.
func Process(ctx context.Context, r Recognizer, image []byte, contentType string) Result {
	text, err := r.Recognize(ctx, image, contentType)
	if err != nil {
		slog.Warn("OCR failed", "content_type", contentType, "error", err)
		return Result{Success: false, Error: err.Error()}
	}

	purchase := Extract(text)
	return Result{
		Success:  true,
		Text:     text,
		Purchase: &purchase,
	}
}
