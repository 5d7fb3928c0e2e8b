package rules

import (
	"strings"
	"testing"

	"github.com/yungbote/geoseo-backend/internal/domain/seo"
)

func validContent() seo.PageContent {
	return seo.PageContent{
		PageType:        seo.PageTypeState,
		H1:              "Dentists in Texas",
		MetaTitle:       strings.Repeat("t", 45),
		MetaDescription: strings.Repeat("d", 140),
		Intro:           strings.Repeat("word ", 310),
		FAQ: []seo.FAQEntry{
			{Question: "q1", Answer: "a1"},
			{Question: "q2", Answer: "a2"},
			{Question: "q3", Answer: "a3"},
		},
		InternalLinks: []seo.InternalLink{{Text: "Austin", URL: "/texas/austin"}, {Text: "Dallas", URL: "/texas/dallas"}},
		State:         &seo.StateDetails{StateName: "Texas"},
	}
}

func TestValidateAcceptsContentWithinBounds(t *testing.T) {
	res := Validate(validContent(), GenerationPolicy)
	if !res.Valid || len(res.Errors) != 0 {
		t.Fatalf("Validate: want valid got errors=%v", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("Validate: want no warnings got=%v", res.Warnings)
	}
}

func TestValidateRejectsBannedPhrases(t *testing.T) {
	for _, phrase := range []string{
		"find a dentist near me",
		"clinics nearby",
		"the best dentist in Texas",
		"our top rated dentist",
		"the #1 dentist",
		"number one choice",
		"open close to me",
	} {
		c := validContent()
		c.ServiceOverview = phrase
		res := Validate(c, GenerationPolicy)
		if res.Valid {
			t.Fatalf("Validate(%q): want invalid", phrase)
		}
	}
	c := validContent()
	c.Intro = "We list the best dentist in Texas. " + c.Intro
	res := Validate(c, GenerationPolicy)
	if res.Valid || !strings.Contains(strings.Join(res.Errors, "; "), "best dentist in") {
		t.Fatalf("Validate: want banned phrase error got=%v", res.Errors)
	}
}

func TestValidateThinContentIsWarningOnly(t *testing.T) {
	c := validContent()
	c.Intro = "short intro"
	c.FAQ = nil
	res := Validate(c, GenerationPolicy)
	if !res.Valid {
		t.Fatalf("Validate: thin content must not block, errors=%v", res.Errors)
	}
	if len(res.Warnings) != 2 {
		t.Fatalf("Validate: want 2 warnings got=%v", res.Warnings)
	}
}

func TestPoliciesDiffer(t *testing.T) {
	c := validContent()
	c.MetaDescription = strings.Repeat("d", 100)
	if Validate(c, GenerationPolicy).Valid {
		t.Fatalf("generation policy: 100-char description must fail")
	}
	if !Validate(c, AuditPolicy).Valid {
		t.Fatalf("audit policy: 100-char description must pass")
	}
}

func TestScoreGeneration(t *testing.T) {
	cases := []struct {
		name      string
		mutate    func(*seo.PageContent)
		duplicate bool
		want      float64
	}{
		{"clean", func(*seo.PageContent) {}, false, 1.0},
		{"short title", func(c *seo.PageContent) { c.MetaTitle = "short" }, false, 0.9},
		{"banned", func(c *seo.PageContent) { c.Intro += " best dentist in Texas" }, false, 0.85},
		{"thin", func(c *seo.PageContent) { c.Intro = "tiny" }, false, 0.9},
		{"duplicate", func(*seo.PageContent) {}, true, 0.7},
		{"floor", func(c *seo.PageContent) {
			c.MetaTitle, c.MetaDescription, c.H1, c.Intro = "", "", "", "near me nearby number one"
		}, true, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validContent()
			tc.mutate(&c)
			got := ScoreGeneration(c, GenerationPolicy, tc.duplicate)
			if got.Score != tc.want {
				t.Fatalf("Score: want=%v got=%v issues=%v", tc.want, got.Score, got.Issues)
			}
		})
	}
}

func TestAuditScoreDeductions(t *testing.T) {
	clean := PageFields{
		MetaTitle:       strings.Repeat("t", 45),
		MetaDescription: strings.Repeat("d", 120),
		H1:              "Dentists in Ohio",
		WordCount:       500,
		Sections:        3,
	}
	cases := []struct {
		name   string
		mutate func(*PageFields)
		want   int
	}{
		{"clean", func(*PageFields) {}, 100},
		{"missing title", func(f *PageFields) { f.MetaTitle = "" }, 85},
		{"long title", func(f *PageFields) { f.MetaTitle = strings.Repeat("t", 61) }, 92},
		{"short title", func(f *PageFields) { f.MetaTitle = "tiny" }, 95},
		{"missing description", func(f *PageFields) { f.MetaDescription = "" }, 90},
		{"long description", func(f *PageFields) { f.MetaDescription = strings.Repeat("d", 156) }, 95},
		{"short description", func(f *PageFields) { f.MetaDescription = "d" }, 97},
		{"missing h1", func(f *PageFields) { f.H1 = "" }, 90},
		{"long h1", func(f *PageFields) { f.H1 = strings.Repeat("h", 71) }, 97},
		{"short h1", func(f *PageFields) { f.H1 = "h" }, 95},
		{"no content", func(f *PageFields) { f.WordCount = 0 }, 80},
		{"very thin", func(f *PageFields) { f.WordCount = 150 }, 85},
		{"thin", func(f *PageFields) { f.WordCount = 350 }, 90},
		{"duplicate", func(f *PageFields) { f.Duplicate = true }, 85},
		{"no sections", func(f *PageFields) { f.Sections = 0 }, 95},
		{"banned no deduction", func(f *PageFields) { f.Text = "a dentist near me" }, 100},
		{"everything missing", func(f *PageFields) {
			*f = PageFields{Duplicate: true}
		}, 25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := clean
			tc.mutate(&f)
			got := Score(f, AuditPolicy)
			if got.Score != tc.want {
				t.Fatalf("Score: want=%d got=%d issues=%v", tc.want, got.Score, got.Issues)
			}
			if got.NeedsOptimization != (tc.want < OptimizationScore) {
				t.Fatalf("NeedsOptimization: want=%v got=%v", tc.want < OptimizationScore, got.NeedsOptimization)
			}
		})
	}
}

func TestAuditBannedPhraseIsCritical(t *testing.T) {
	got := Score(PageFields{Text: "number one dental office"}, AuditPolicy)
	found := false
	for _, is := range got.Issues {
		if is.Type == "banned_phrase" && is.Severity == SeverityCritical {
			found = true
		}
	}
	if !found {
		t.Fatalf("Score: expected critical banned_phrase issue, got=%v", got.Issues)
	}
}
