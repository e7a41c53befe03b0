package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/ristretto"

	"github.com/zombor/finsight/internal/ocr"
)

// DefaultCacheSize is the number of transcripts kept when no size is configured
const DefaultCacheSize = 256

// TranscriptCache remembers OCR transcripts by image content so the same
// upload is only recognized once. Failures are not cached.
type TranscriptCache struct {
	next  ocr.Recognizer
	cache *ristretto.Cache
}

// NewTranscriptCache wraps next with a cache holding up to size transcripts.
// Every transcript costs 1, so MaxCost is an entry count.
func NewTranscriptCache(next ocr.Recognizer, size int64) (*TranscriptCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        size * 10,
		MaxCost:            size,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating transcript cache: %w", err)
	}
	return &TranscriptCache{next: next, cache: cache}, nil
}

// Recognize returns the cached transcript for image or asks the wrapped recognizer
func (c *TranscriptCache) Recognize(ctx context.Context, image []byte, contentType string) (string, error) {
	key := imageKey(image)
	if v, ok := c.cache.Get(key); ok {
		if text, ok := v.(string); ok {
			slog.Debug("Transcript cache hit", "key", key)
			return text, nil
		}
	}

	text, err := c.next.Recognize(ctx, image, contentType)
	if err != nil {
		return "", err
	}
	c.cache.Set(key, text, 1)
	return text, nil
}

// Wait blocks until pending writes are visible
func (c *TranscriptCache) Wait() {
	c.cache.Wait()
}

// Close stops the cache's background goroutines
func (c *TranscriptCache) Close() {
	c.cache.Close()
}

func imageKey(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}
