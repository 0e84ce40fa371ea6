// Package evaluator runs the post-generation checks. Each check appends
// at most one flag; flags annotate the response and never block or
// modify it.
package evaluator

import (
	"regexp"
	"strings"

	"github.com/clearpath/clearpath/retriever"
)

// Flag values produced by the checks.
const (
	FlagNoContext     = "no_context_warning"
	FlagRefusal       = "refusal_detected"
	FlagHallucination = "potential_hallucination"
)

// RefusalPhrases are matched as case-insensitive substrings. Frozen.
var RefusalPhrases = []string{
	"i cannot",
	"i can't",
	"i don't have information",
	"i don't have enough information",
	"i do not have",
	"i'm not sure",
	"i am not sure",
	"i'm unable to",
	"i am unable to",
	"outside my knowledge",
	"beyond my scope",
	"not able to help",
	"cannot assist with",
	"no information available",
	"unfortunately, i don't",
	"i apologize, but i",
	"i'm sorry, but i don't",
}

// AllowedTerms never count as hallucinated proper nouns.
var AllowedTerms = []string{"Clearpath", "Clearpath Assistant"}

var (
	priceRe      = regexp.MustCompile(`(?i)\$\d+(?:\.\d{2})?(?:\s*/\s*(?:month|year|mo|yr))?`)
	properNounRe = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\b`)
)

// ExtractPrices returns all currency amounts in text.
func ExtractPrices(text string) []string {
	return priceRe.FindAllString(text, -1)
}

// ExtractProperNouns returns all capitalized multi-word phrases in text.
func ExtractProperNouns(text string) []string {
	return properNounRe.FindAllString(text, -1)
}

// checkHallucination flags prices or multi-word proper nouns that appear
// in the response but in none of the retrieved chunks.
func checkHallucination(responseText string, chunks []retriever.RetrievedChunk) bool {
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(c.Text)
	}
	chunkText := b.String()

	chunkPrices := make(map[string]struct{})
	for _, p := range ExtractPrices(chunkText) {
		chunkPrices[p] = struct{}{}
	}
	for _, p := range ExtractPrices(responseText) {
		if _, ok := chunkPrices[p]; !ok {
			return true
		}
	}

	chunkNames := make(map[string]struct{})
	for _, n := range ExtractProperNouns(chunkText) {
		chunkNames[n] = struct{}{}
	}
	for _, n := range ExtractProperNouns(responseText) {
		if _, ok := chunkNames[n]; ok {
			continue
		}
		if allowed(n) {
			continue
		}
		return true
	}
	return false
}

func allowed(name string) bool {
	for _, t := range AllowedTerms {
		if name == t {
			return true
		}
	}
	return false
}

// Evaluate runs the three checks and returns the accumulated flags.
func Evaluate(responseText string, retrievalCount int, chunks []retriever.RetrievedChunk) []string {
	flags := []string{}

	// Check 1: nothing passed the similarity threshold.
	if retrievalCount == 0 {
		flags = append(flags, FlagNoContext)
	}

	// Check 2: refusal phrasing. One flag regardless of how many phrases
	// match.
	lower := strings.ToLower(responseText)
	for _, phrase := range RefusalPhrases {
		if strings.Contains(lower, phrase) {
			flags = append(flags, FlagRefusal)
			break
		}
	}

	// Check 3: ungrounded prices or proper nouns.
	if checkHallucination(responseText, chunks) {
		flags = append(flags, FlagHallucination)
	}

	return flags
}
