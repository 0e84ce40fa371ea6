package router

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrivialQueryIsSimple(t *testing.T) {
	assert.Equal(t, Simple, Classify("What is Clearpath?"))
}

func TestComplaintIsComplex(t *testing.T) {
	q := "The billing system is not working and I want a refund immediately. This is unacceptable."
	assert.Equal(t, Complex, Classify(q))
}

func TestComparisonIsComplex(t *testing.T) {
	assert.Equal(t, Complex, Classify("Pro vs Enterprise plan comparison"))
}

func TestThreeQuestionsIsComplex(t *testing.T) {
	q := "What is the difference between the Pro plan and the Enterprise plan? Which one should I choose? Are there any hidden fees?"
	f := ExtractFeatures(q)
	assert.Equal(t, 3, f.QuestionCount)
	assert.Equal(t, Complex, Classify(q))
}

func TestClassifyIsTotal(t *testing.T) {
	queries := []string{
		"hi",
		"?",
		"how do I change my password",
		"tell me about best practices for onboarding, and what would you recommend",
		strings.Repeat("word ", 60),
		"ügyfélszolgálat kérdés",
		"explain how integration works",
	}
	for _, q := range queries {
		c := Classify(q)
		assert.Contains(t, []Classification{Simple, Complex}, c, "query %q", q)
		assert.Equal(t, c, Classify(q), "classification must be idempotent for %q", q)
	}
}

func TestFeatureExtraction(t *testing.T) {
	f := ExtractFeatures("Is it possible to migrate? I am not sure. Help!")
	assert.Equal(t, 10, f.WordCount)
	assert.Equal(t, 1, f.QuestionCount)
	assert.Equal(t, 3, f.SentenceCount)
	assert.True(t, f.HasComplexityKeywords, "migrate is a complexity keyword")
	assert.True(t, f.HasAmbiguityMarkers, "'is it possible' is an ambiguity marker")
	assert.False(t, f.HasComplaintMarkers)
}

func TestComplexityKeywordsAreWholeWord(t *testing.T) {
	// "vspace" must not match the "vs" keyword.
	f := ExtractFeatures("how wide is the vspace margin setting")
	assert.False(t, f.HasComplexityKeywords)
	assert.False(t, f.HasComparisonPattern)
}

func TestBroadOrPatternMatches(t *testing.T) {
	// The `\bor\b.*\bor\b` pattern is intentionally broad.
	f := ExtractFeatures("can I pay with card or invoice or wire transfer")
	assert.True(t, f.HasComparisonPattern)
}

func TestFrozenTableSizes(t *testing.T) {
	assert.Len(t, ComplexityKeywords, 40)
	assert.Len(t, AmbiguityMarkers, 17)
	assert.Len(t, ComplaintMarkers, 19)
	assert.Len(t, ComparisonPatterns, 7)
}

func TestScoreNodeTriggersOnComplexityKeyword(t *testing.T) {
	// One complexity keyword (+2) is already enough to reach the score
	// threshold; add words so node 1 does not shortcut.
	q := "please explain how the enterprise deployment works today"
	assert.Equal(t, Complex, Classify(q))
}
