package ingest

import (
	"regexp"
	"strings"
)

var (
	// Control characters except TAB, LF and CR.
	controlRe = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	// Runs of horizontal whitespace.
	horizontalWSRe = regexp.MustCompile(`[ \t]+`)
	// Three or more consecutive newlines.
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// sanitizePageText cleans raw text extracted from a PDF page: strips
// NULs and non-printable control characters, collapses horizontal
// whitespace, and caps consecutive blank lines at two. Structural
// newlines survive so the chunker can split on them.
func sanitizePageText(text string) string {
	if text == "" {
		return ""
	}
	text = controlRe.ReplaceAllString(text, "")
	text = horizontalWSRe.ReplaceAllString(text, " ")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
