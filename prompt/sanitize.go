package prompt

import (
	"regexp"
	"strings"
)

// Lines starting with these prefixes are treated as prompt-injection
// attempts and dropped from retrieved chunks.
var injectionRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*SYSTEM\s*:`),
	regexp.MustCompile(`(?i)^\s*INSTRUCTION\s*:`),
	regexp.MustCompile(`(?i)^\s*IGNORE\s+PREVIOUS`),
	regexp.MustCompile(`(?i)^\s*YOU\s+ARE`),
}

var (
	pageBreakRe = regexp.MustCompile(`\[PAGE_BREAK:\d+\]`)
	htmlTagRe   = regexp.MustCompile(`<[^>]*>`)
	// Everything outside TAB/LF/CR, printable ASCII and Latin-1: control
	// characters and all codepoints above U+00FF are dropped from input.
	nonPrintableRe = regexp.MustCompile(`[^\x09\x0A\x0D\x20-\x7E\x80-\xFF]`)
	horizontalWSRe = regexp.MustCompile(`[ \t]+`)
	blankLinesRe   = regexp.MustCompile(`\n{3,}`)
)

// chunkMaxTokens caps a single chunk inside the prompt. The truncation
// itself is word-based: tokens * 0.75 words.
const chunkMaxTokens = 600

// SanitizeInput cleans a raw user query before it is routed: drops HTML
// tags, NULs and everything outside the printable TAB/LF/CR + ASCII +
// Latin-1 range, and collapses whitespace. Length limits are enforced
// by the transport layer.
func SanitizeInput(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\x00", "")
	text = htmlTagRe.ReplaceAllString(text, "")
	text = nonPrintableRe.ReplaceAllString(text, "")
	text = horizontalWSRe.ReplaceAllString(text, " ")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// SanitizeChunk cleans a retrieved chunk before prompt insertion: page
// markers removed, whitespace collapsed, injection-prefixed lines
// dropped, and the text truncated to 450 words (~600 tokens).
func SanitizeChunk(text string) string {
	if text == "" {
		return ""
	}

	text = pageBreakRe.ReplaceAllString(text, "")
	text = horizontalWSRe.ReplaceAllString(text, " ")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if !isInjectionLine(line) {
			kept = append(kept, line)
		}
	}
	text = strings.Join(kept, "\n")

	maxWords := int(chunkMaxTokens * 0.75)
	words := strings.Fields(text)
	if len(words) > maxWords {
		text = strings.Join(words[:maxWords], " ")
	}

	return strings.TrimSpace(text)
}

func isInjectionLine(line string) bool {
	for _, re := range injectionRes {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
