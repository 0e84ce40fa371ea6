// Package router classifies queries into simple or complex with a
// deterministic decision tree over linguistic features. No model calls.
//
// The keyword and phrase tables below are frozen: equality with them is
// part of the product contract and covered by tests.
package router

import (
	"regexp"
	"strings"
)

// Classification is the routing class of a query.
type Classification string

const (
	Simple  Classification = "simple"
	Complex Classification = "complex"
)

// ComplexityKeywords are matched as whole words, case-insensitive.
var ComplexityKeywords = []string{
	"compare", "comparison", "difference", "differences", "versus", "vs",
	"integrate", "integration", "configure", "configuration", "migrate",
	"migration", "troubleshoot", "troubleshooting", "architecture",
	"workflow", "optimize", "optimization", "analyze", "analysis",
	"strategy", "strategies", "compliance", "security", "audit",
	"enterprise", "scalability", "performance", "benchmark", "custom",
	"advanced", "multiple", "several", "complex", "detailed", "comprehensive",
	"explain how", "walk me through", "step by step", "in depth",
}

// AmbiguityMarkers are matched as case-insensitive substrings.
var AmbiguityMarkers = []string{
	"it depends", "what if", "hypothetically", "in general",
	"is it possible", "can you explain", "could you elaborate",
	"what are the pros and cons", "trade-off", "tradeoff",
	"best practice", "best practices", "recommend", "recommendation",
	"should i", "which one", "what would",
}

// ComplaintMarkers are matched as case-insensitive substrings.
var ComplaintMarkers = []string{
	"not working", "broken", "bug", "issue", "problem", "error",
	"frustrated", "disappointed", "unacceptable", "terrible",
	"worst", "angry", "complaint", "escalate", "refund",
	"cancel", "cancellation", "speak to manager", "supervisor",
}

// ComparisonPatterns are case-insensitive regular expressions. The
// `\bor\b.*\bor\b` pattern is intentionally broad and kept verbatim.
var ComparisonPatterns = []string{
	`\bvs\.?\b`,
	`\bversus\b`,
	`\bcompared?\s+to\b`,
	`\bdifference\s+between\b`,
	`\bbetter\s+than\b`,
	`\bworse\s+than\b`,
	`\bor\b.*\bor\b`,
}

var (
	complexityKeywordRes = compileKeywords(ComplexityKeywords)
	comparisonPatternRes = compilePatterns(ComparisonPatterns)
	// Sentence end: punctuation followed by whitespace or end of string.
	sentenceEndRe = regexp.MustCompile(`[.?!](\s|$)`)
)

func compileKeywords(keywords []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(keywords))
	for i, kw := range keywords {
		res[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
	}
	return res
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(`(?i)` + p)
	}
	return res
}

// Features holds everything the decision tree looks at.
type Features struct {
	WordCount             int
	CharCount             int
	QuestionCount         int
	SentenceCount         int
	HasComplexityKeywords bool
	HasAmbiguityMarkers   bool
	HasComplaintMarkers   bool
	HasComparisonPattern  bool
}

// ExtractFeatures computes the classification features of a raw query.
func ExtractFeatures(query string) Features {
	lower := strings.ToLower(query)

	return Features{
		WordCount:             len(strings.Fields(lower)),
		CharCount:             len(query),
		QuestionCount:         strings.Count(query, "?"),
		SentenceCount:         len(sentenceEndRe.FindAllString(query, -1)),
		HasComplexityKeywords: anyMatch(complexityKeywordRes, lower),
		HasAmbiguityMarkers:   anySubstring(AmbiguityMarkers, lower),
		HasComplaintMarkers:   anySubstring(ComplaintMarkers, lower),
		HasComparisonPattern:  anyMatch(comparisonPatternRes, lower),
	}
}

func anyMatch(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func anySubstring(markers []string, s string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// Classify runs the decision tree. First match wins.
func Classify(query string) Classification {
	f := ExtractFeatures(query)

	// Node 1: greeting or trivial query.
	if f.WordCount <= 3 && f.QuestionCount <= 1 && !f.HasComplexityKeywords {
		return Simple
	}

	// Node 2: complaints need nuanced handling.
	if f.HasComplaintMarkers {
		return Complex
	}

	// Node 3: multi-part question.
	if f.QuestionCount >= 3 {
		return Complex
	}

	// Node 4: comparative analysis.
	if f.HasComparisonPattern {
		return Complex
	}

	// Node 5: accumulated complexity indicators.
	score := 0
	if f.HasComplexityKeywords {
		score += 2
	}
	if f.HasAmbiguityMarkers {
		score += 2
	}
	if f.WordCount > 40 {
		score++
	}
	if f.SentenceCount >= 3 {
		score++
	}
	if score >= 2 {
		return Complex
	}

	// Node 6: long and ambiguous.
	if f.WordCount > 25 && f.HasAmbiguityMarkers {
		return Complex
	}

	return Simple
}
