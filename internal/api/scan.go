package api

import (
	"time"

	"github.com/zombor/finsight/internal/model"
)

// Scan is an uploaded receipt image and the purchase read from it
type Scan struct {
	ID          string                   `json:"id"`
	Filename    string                   `json:"filename"`
	ContentType string                   `json:"content_type"`
	Text        string                   `json:"text"`
	Purchase    *model.ExtractedPurchase `json:"purchase"`
	CreatedAt   time.Time                `json:"created_at"`
}
