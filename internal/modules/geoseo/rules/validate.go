package rules

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/yungbote/geoseo-backend/internal/domain/seo"
)

type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Issues is errors followed by warnings.
func (r Result) Issues() []string {
	out := make([]string, 0, len(r.Errors)+len(r.Warnings))
	out = append(out, r.Errors...)
	return append(out, r.Warnings...)
}

type lengthCheck struct {
	label string
	value string
	min   int
	max   int
}

func (c lengthCheck) violation() string {
	n := utf8.RuneCountInString(c.value)
	switch {
	case n == 0:
		return fmt.Sprintf("%s is missing", c.label)
	case n < c.min:
		return fmt.Sprintf("%s too short (%d chars, min %d)", c.label, n, c.min)
	case n > c.max:
		return fmt.Sprintf("%s too long (%d chars, max %d)", c.label, n, c.max)
	}
	return ""
}

func lengthChecks(c seo.PageContent, p Policy) []lengthCheck {
	return []lengthCheck{
		{label: "Meta title", value: c.MetaTitle, min: p.TitleMin, max: p.TitleMax},
		{label: "Meta description", value: c.MetaDescription, min: p.DescMin, max: p.DescMax},
		{label: "H1", value: c.H1, min: p.H1Min, max: p.H1Max},
	}
}

func bannedMessage(m BannedMatch) string {
	return fmt.Sprintf("Contains banned phrase %q (pattern: %s)", m.Text, m.Label)
}

// Validate is the blocking check run before publish. Length and banned-phrase
// violations are errors; thin content and thin structure are warnings.
func Validate(c seo.PageContent, p Policy) Result {
	res := Result{Errors: []string{}, Warnings: []string{}}
	for _, chk := range lengthChecks(c, p) {
		if v := chk.violation(); v != "" {
			res.Errors = append(res.Errors, v)
		}
	}
	for _, m := range FindBanned(c.Serialized()) {
		res.Errors = append(res.Errors, bannedMessage(m))
	}
	if words := c.CountWords(); words < p.MinWords {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Content is thin (%d words, min %d)", words, p.MinWords))
	}
	if len(c.InternalLinks) < MinInternalLinks {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Fewer than %d internal links", MinInternalLinks))
	}
	if len(c.FAQ) < MinFAQEntries {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Fewer than %d FAQ entries", MinFAQEntries))
	}
	res.Valid = len(res.Errors) == 0
	return res
}

const (
	lengthPenalty    = 0.10
	bannedPenalty    = 0.15
	thinPenalty      = 0.10
	duplicatePenalty = 0.30
)

type Confidence struct {
	Score  float64
	Issues []string
}

// ScoreGeneration turns the rule checks into a 0..1 confidence. duplicate is
// set by the caller when the intro is too close to a sibling page.
func ScoreGeneration(c seo.PageContent, p Policy, duplicate bool) Confidence {
	score := 1.0
	issues := []string{}
	for _, chk := range lengthChecks(c, p) {
		if v := chk.violation(); v != "" {
			score -= lengthPenalty
			issues = append(issues, v)
		}
	}
	for _, m := range FindBanned(c.Serialized()) {
		score -= bannedPenalty
		issues = append(issues, bannedMessage(m))
	}
	if words := c.CountWords(); words < p.MinWords {
		score -= thinPenalty
		issues = append(issues, fmt.Sprintf("Content is thin (%d words, min %d)", words, p.MinWords))
	}
	if duplicate {
		score -= duplicatePenalty
		issues = append(issues, "Intro is too similar to an existing page")
	}
	return Confidence{Score: clampRound(score), Issues: issues}
}

func clampRound(v float64) float64 {
	v = math.Max(0, math.Min(1, v))
	return math.Round(v*100) / 100
}
