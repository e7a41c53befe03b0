// Package scanning provides OCR workers backed by vision models. Workers
// transcribe a receipt image to plain text; field extraction happens in ocr.
package scanning

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/zombor/finsight/internal/ocr"
)

// DefaultLanguage is used when the worker config names no language
const DefaultLanguage = "eng"

// transcribePrompt is the shared prompt used by all vision model workers
const transcribePrompt = `You are an OCR engine. Transcribe every line of text printed on this receipt or invoice, in %s.

Rules:
- Output only the transcribed text, one receipt line per output line, top to bottom
- Keep prices, totals, dates, phone numbers and reference numbers exactly as printed
- Keep the store name on its own line as printed
- Do not summarise, translate, correct or explain anything
- Do not use markdown code blocks`

// languageName returns the English name of an ISO 639 language code
func languageName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		code = DefaultLanguage
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

func transcriptionPrompt(cfg ocr.Config) string {
	prompt := fmt.Sprintf(transcribePrompt, languageName(cfg.Language))
	if cfg.Whitelist != "" {
		prompt += "\n- Only use these characters: " + cfg.Whitelist
	}
	return prompt
}
