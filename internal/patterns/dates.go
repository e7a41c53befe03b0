package patterns

import (
	"regexp"
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"1/2/06",
	"1-2-2006",
	"Jan 2 2006",
	"2 Jan 2006",
}

var dateNoise = regexp.MustCompile(`[,.]`)

// ParseDate parses the loose date shapes found on receipts and in emails.
// Month names are reduced to their three-letter form before parsing.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(dateNoise.ReplaceAllString(s, " "))
	fields := strings.Fields(s)
	for i, f := range fields {
		if len(f) > 3 && isLetters(f) {
			fields[i] = f[:3]
		}
		if isLetters(fields[i]) {
			fields[i] = strings.ToUpper(fields[i][:1]) + strings.ToLower(fields[i][1:])
		}
	}
	s = strings.Join(fields, " ")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isLetters(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

const monthNames = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?`

// dateRules are shared by the email and receipt banks
var dateRules = []Rule{
	RegexRule("iso", `\b(\d{4}-\d{2}-\d{2})\b`),
	RegexRule("slash", `\b(\d{1,2}/\d{1,2}/\d{2,4})\b`),
	RegexRule("dash", `\b(\d{1,2}-\d{1,2}-\d{4})\b`),
	RegexRule("month-day-year", `(?i)\b(`+monthNames+`\s+\d{1,2},?\s+\d{4})\b`),
	RegexRule("day-month-year", `(?i)\b(\d{1,2}\s+`+monthNames+`,?\s+\d{4})\b`),
}
