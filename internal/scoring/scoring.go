// Package scoring holds the confidence primitives shared by every detector.
package scoring

import "strings"

// Clamp bounds a confidence value to [0, 1]
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Score accumulates additive confidence signals. Intermediate values may leave
// [0, 1]; Value always reports the clamped result.
type Score struct {
	total float64
}

// Add adds a positive or negative signal
func (s *Score) Add(v float64) {
	s.total += v
}

// AddIf adds v when cond holds and reports cond
func (s *Score) AddIf(cond bool, v float64) bool {
	if cond {
		s.total += v
	}
	return cond
}

// Raw returns the unclamped running total
func (s *Score) Raw() float64 {
	return s.total
}

// Value returns the clamped total
func (s *Score) Value() float64 {
	return Clamp(s.total)
}

// Matches returns the keywords contained in text, in keyword order.
// Matching is case-insensitive substring containment.
func Matches(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	var matched []string
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// ContainsAny reports whether text contains any keyword (case-insensitive)
func ContainsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Mean returns the arithmetic mean of values, or fallback when there are none
func Mean(values []float64, fallback float64) float64 {
	if len(values) == 0 {
		return fallback
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Breakdown records the partial score contributed by each extracted field.
// Fields are kept in the order they were recorded.
type Breakdown struct {
	fields []string
	scores map[string]float64
}

// NewBreakdown creates an empty Breakdown
func NewBreakdown() *Breakdown {
	return &Breakdown{scores: make(map[string]float64)}
}

// Record stores the contribution for a field, replacing any earlier value
func (b *Breakdown) Record(field string, score float64) {
	if _, ok := b.scores[field]; !ok {
		b.fields = append(b.fields, field)
	}
	b.scores[field] = score
}

// Len returns the number of recorded fields
func (b *Breakdown) Len() int {
	return len(b.fields)
}

// Values returns the recorded contributions in record order
func (b *Breakdown) Values() []float64 {
	values := make([]float64, 0, len(b.fields))
	for _, f := range b.fields {
		values = append(values, b.scores[f])
	}
	return values
}

// Sum returns the clamped sum of all contributions
func (b *Breakdown) Sum() float64 {
	var sum float64
	for _, f := range b.fields {
		sum += b.scores[f]
	}
	return Clamp(sum)
}

// Mean returns the clamped mean of all contributions, or fallback when empty
func (b *Breakdown) Mean(fallback float64) float64 {
	return Clamp(Mean(b.Values(), fallback))
}

// Map returns a copy of the recorded contributions
func (b *Breakdown) Map() map[string]float64 {
	out := make(map[string]float64, len(b.scores))
	for k, v := range b.scores {
		out[k] = v
	}
	return out
}
