package rules

import "regexp"

// Policy is one set of length and word-count bounds. Generation and audit use
// different tables and must not be merged.
type Policy struct {
	Name     string
	TitleMin int
	TitleMax int
	DescMin  int
	DescMax  int
	H1Min    int
	H1Max    int
	MinWords int
}

const (
	GenerationMinWords = 300
	AuditMinWords      = 400

	DuplicateSimilarityThreshold = 0.7

	MinInternalLinks = 2
	MinFAQEntries    = 3

	// PassingConfidence gates seo_validation_passed on generated items.
	PassingConfidence = 0.7
	// OptimizationScore is the audit score below which a page needs work.
	OptimizationScore = 80
)

var GenerationPolicy = Policy{
	Name:     "generation",
	TitleMin: 30,
	TitleMax: 60,
	DescMin:  120,
	DescMax:  160,
	H1Min:    10,
	H1Max:    70,
	MinWords: GenerationMinWords,
}

var AuditPolicy = Policy{
	Name:     "audit",
	TitleMin: 30,
	TitleMax: 60,
	DescMin:  70,
	DescMax:  155,
	H1Min:    10,
	H1Max:    70,
	MinWords: AuditMinWords,
}

// WithMinWords returns a copy of p with a different word floor. Operators can
// tune content_min_words without touching the length bounds.
func (p Policy) WithMinWords(n int) Policy {
	if n > 0 {
		p.MinWords = n
	}
	return p
}

type BannedPattern struct {
	Label string
	re    *regexp.Regexp
}

func (b BannedPattern) Find(text string) string {
	return b.re.FindString(text)
}

var BannedPatterns = []BannedPattern{
	{Label: "near me", re: regexp.MustCompile(`(?i)\bnear\s+me\b`)},
	{Label: "nearby", re: regexp.MustCompile(`(?i)\bnearby\b`)},
	{Label: "close to me", re: regexp.MustCompile(`(?i)\bclose\s+to\s+me\b`)},
	{Label: "best ... in", re: regexp.MustCompile(`(?i)\bbest(?:\s+\w+){1,3}\s+in\b`)},
	{Label: "top ... dentist", re: regexp.MustCompile(`(?i)\btop(?:\s+\w+){0,3}\s+dentists?\b`)},
	{Label: "#1 dentist", re: regexp.MustCompile(`(?i)#1\s+dentists?\b`)},
	{Label: "number one", re: regexp.MustCompile(`(?i)\bnumber\s+one\b`)},
}

type BannedMatch struct {
	Label string
	Text  string
}

// FindBanned returns one match per pattern that hits anywhere in text.
func FindBanned(text string) []BannedMatch {
	var out []BannedMatch
	for _, p := range BannedPatterns {
		if m := p.Find(text); m != "" {
			out = append(out, BannedMatch{Label: p.Label, Text: m})
		}
	}
	return out
}
