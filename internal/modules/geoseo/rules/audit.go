package rules

import (
	"fmt"
	"unicode/utf8"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

func ParseSeverity(raw string) (Severity, bool) {
	switch s := Severity(raw); s {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return s, true
	}
	return "", false
}

// Audit deductions. Callers triage on the resulting score so these values are
// part of the contract.
const (
	DeductMissingTitle       = 15
	DeductTitleTooLong       = 8
	DeductTitleTooShort      = 5
	DeductMissingDescription = 10
	DeductDescTooLong        = 5
	DeductDescTooShort       = 3
	DeductMissingH1          = 10
	DeductH1TooLong          = 3
	DeductH1TooShort         = 5
	DeductNoContent          = 20
	DeductVeryThinContent    = 15
	DeductThinContent        = 10
	DeductDuplicate          = 15
	DeductNoSections         = 5
)

type PageFields struct {
	MetaTitle       string
	MetaDescription string
	H1              string
	WordCount       int
	Sections        int
	Text            string
	Duplicate       bool
}

type Issue struct {
	Type      string   `json:"type"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	Deduction int      `json:"deduction"`
}

type AuditResult struct {
	Score             int     `json:"score"`
	Issues            []Issue `json:"issues"`
	NeedsOptimization bool    `json:"needsOptimization"`
}

func (a *AuditResult) add(typ string, sev Severity, deduction int, format string, args ...any) {
	a.Score -= deduction
	a.Issues = append(a.Issues, Issue{Type: typ, Severity: sev, Message: fmt.Sprintf(format, args...), Deduction: deduction})
}

// Score audits one page out of 100 against p. Banned phrases are reported as
// critical without a deduction.
func Score(f PageFields, p Policy) AuditResult {
	res := AuditResult{Score: 100, Issues: []Issue{}}

	switch n := utf8.RuneCountInString(f.MetaTitle); {
	case n == 0:
		res.add("missing_title", SeverityCritical, DeductMissingTitle, "Meta title is missing")
	case n > p.TitleMax:
		res.add("title_too_long", SeverityWarning, DeductTitleTooLong, "Meta title too long (%d chars, max %d)", n, p.TitleMax)
	case n < p.TitleMin:
		res.add("title_too_short", SeverityWarning, DeductTitleTooShort, "Meta title too short (%d chars, min %d)", n, p.TitleMin)
	}

	switch n := utf8.RuneCountInString(f.MetaDescription); {
	case n == 0:
		res.add("missing_description", SeverityCritical, DeductMissingDescription, "Meta description is missing")
	case n > p.DescMax:
		res.add("description_too_long", SeverityWarning, DeductDescTooLong, "Meta description too long (%d chars, max %d)", n, p.DescMax)
	case n < p.DescMin:
		res.add("description_too_short", SeverityWarning, DeductDescTooShort, "Meta description too short (%d chars, min %d)", n, p.DescMin)
	}

	switch n := utf8.RuneCountInString(f.H1); {
	case n == 0:
		res.add("missing_h1", SeverityCritical, DeductMissingH1, "H1 is missing")
	case n > p.H1Max:
		res.add("h1_too_long", SeverityInfo, DeductH1TooLong, "H1 too long (%d chars, max %d)", n, p.H1Max)
	case n < p.H1Min:
		res.add("h1_too_short", SeverityWarning, DeductH1TooShort, "H1 too short (%d chars, min %d)", n, p.H1Min)
	}

	switch {
	case f.WordCount == 0:
		res.add("missing_content", SeverityCritical, DeductNoContent, "Page has no content")
	case f.WordCount < p.MinWords/2:
		res.add("thin_content", SeverityWarning, DeductVeryThinContent, "Content is very thin (%d words, min %d)", f.WordCount, p.MinWords)
	case f.WordCount < p.MinWords:
		res.add("thin_content", SeverityWarning, DeductThinContent, "Content is thin (%d words, min %d)", f.WordCount, p.MinWords)
	}

	if f.Duplicate {
		res.add("duplicate_content", SeverityWarning, DeductDuplicate, "Content duplicates another page")
	}
	if f.Sections == 0 {
		res.add("missing_h2", SeverityInfo, DeductNoSections, "Page has no H2 sections")
	}
	for _, m := range FindBanned(f.Text) {
		res.add("banned_phrase", SeverityCritical, 0, "Contains banned phrase %q (pattern: %s)", m.Text, m.Label)
	}

	if res.Score < 0 {
		res.Score = 0
	}
	res.NeedsOptimization = res.Score < OptimizationScore
	return res
}
