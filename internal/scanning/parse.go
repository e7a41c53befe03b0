package scanning

import (
	"errors"
	"strings"
	"unicode"
)

// ErrNoText is returned when a model answers without any receipt text
var ErrNoText = errors.New("no text recognized")

// cleanTranscript normalises a model transcript: code fences and trailing
// spaces are removed, characters outside whitelist are dropped and runs of
// blank lines collapse to one.
func cleanTranscript(text string, whitelist string) (string, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var lines []string
	blank := false
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		line = strings.TrimRightFunc(applyWhitelist(line, whitelist), unicode.IsSpace)
		if strings.TrimSpace(line) == "" {
			if !blank && len(lines) > 0 {
				lines = append(lines, "")
			}
			blank = true
			continue
		}
		blank = false
		lines = append(lines, line)
	}

	cleaned := strings.TrimSpace(strings.Join(lines, "\n"))
	if cleaned == "" {
		return "", ErrNoText
	}
	return cleaned, nil
}

// applyWhitelist drops characters not in whitelist. Spaces and tabs are
// always kept; an empty whitelist keeps everything.
func applyWhitelist(line, whitelist string) string {
	if whitelist == "" {
		return line
	}
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || strings.ContainsRune(whitelist, r) {
			return r
		}
		return -1
	}, line)
}
