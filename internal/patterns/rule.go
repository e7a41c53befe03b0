// Package patterns is the static pattern bank behind every detector: ordered
// keyword/regex rules and ordered keyword -> category tables per domain.
//
// Tables are built once at package init and only handed out as copies, so they
// are safe for concurrent readers. Order is significant everywhere: callers try
// rules in the order returned and keep the first match.
package patterns

import (
	"regexp"
	"slices"
	"strings"
)

// Rule is either a case-insensitive keyword or a regular expression.
// A regex rule extracts its first capture group (or the whole match when the
// expression has no groups).
type Rule struct {
	Name    string
	Keyword string
	Regex   *regexp.Regexp
}

// KeywordRule builds a keyword rule
func KeywordRule(keyword string) Rule {
	return Rule{Name: keyword, Keyword: keyword}
}

// RegexRule builds a regex rule, panicking on an invalid expression
func RegexRule(name, expr string) Rule {
	return Rule{Name: name, Regex: regexp.MustCompile(expr)}
}

// Find reports whether the rule matches text and returns the extracted value
func (r Rule) Find(text string) (string, bool) {
	if r.Regex != nil {
		m := r.Regex.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		if len(m) > 1 {
			return strings.TrimSpace(m[1]), true
		}
		return strings.TrimSpace(m[0]), true
	}
	if r.Keyword == "" {
		return "", false
	}
	if strings.Contains(strings.ToLower(text), strings.ToLower(r.Keyword)) {
		return r.Keyword, true
	}
	return "", false
}

// FindAll returns every value the rule extracts from text, in order of appearance
func (r Rule) FindAll(text string) []string {
	if r.Regex == nil {
		if v, ok := r.Find(text); ok {
			return []string{v}
		}
		return nil
	}
	var values []string
	for _, m := range r.Regex.FindAllStringSubmatch(text, -1) {
		if len(m) > 1 {
			values = append(values, strings.TrimSpace(m[1]))
		} else {
			values = append(values, strings.TrimSpace(m[0]))
		}
	}
	return values
}

// FirstMatch tries rules in order and returns the first extracted value
func FirstMatch(rules []Rule, text string) (string, Rule, bool) {
	for _, r := range rules {
		if v, ok := r.Find(text); ok {
			return v, r, true
		}
	}
	return "", Rule{}, false
}

// AnyMatch reports whether any rule matches text
func AnyMatch(rules []Rule, text string) bool {
	_, _, ok := FirstMatch(rules, text)
	return ok
}

// Entry maps a set of keywords to a display name and a category
type Entry struct {
	Name     string
	Category string
	Keywords []string
}

// CategoryMap is an ordered keyword -> category table
type CategoryMap []Entry

// Lookup returns the first entry with a keyword contained in text (case-insensitive)
func (m CategoryMap) Lookup(text string) (Entry, bool) {
	lower := strings.ToLower(text)
	if lower == "" {
		return Entry{}, false
	}
	for _, e := range m {
		for _, kw := range e.Keywords {
			if strings.Contains(lower, kw) {
				return e, true
			}
		}
	}
	return Entry{}, false
}

// Category returns the category for text, or fallback when nothing matches
func (m CategoryMap) Category(text, fallback string) string {
	if e, ok := m.Lookup(text); ok {
		return e.Category
	}
	return fallback
}

func cloneMap(m CategoryMap) CategoryMap {
	out := make(CategoryMap, len(m))
	for i, e := range m {
		out[i] = Entry{Name: e.Name, Category: e.Category, Keywords: slices.Clone(e.Keywords)}
	}
	return out
}
