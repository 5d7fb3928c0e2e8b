package content

import (
	"fmt"
	"strings"

	"github.com/yungbote/geoseo-backend/internal/modules/geoseo/rules"
)

const (
	StateSiblingLimit = 10
	CitySiblingLimit  = 15

	stateCorpusBudget = 2000
	cityCorpusBudget  = 3000

	stateTemperature = 0.7
	cityTemperature  = 0.75

	stateMaxTokens = 2000
	cityMaxTokens  = 2500
)

func systemPrompt(p rules.Policy) string {
	var b strings.Builder
	b.WriteString("You write directory landing pages for a dental marketplace. Follow E-E-A-T guidance:\n")
	b.WriteString("- Be accurate and helpful. Never invent statistics, prices, rankings, awards or named clinics.\n")
	b.WriteString("- No keyword stuffing. Mention the location naturally.\n")
	b.WriteString("- Never use phrases such as \"near me\", \"nearby\", \"close to me\", \"best ... in\", \"top ... dentist\", \"#1 dentist\" or \"number one\".\n")
	b.WriteString("- Your wording must be clearly different from the example pages supplied by the user.\n")
	fmt.Fprintf(&b, "- meta_title: %d-%d characters. meta_description: %d-%d characters. h1: %d-%d characters.\n",
		p.TitleMin, p.TitleMax, p.DescMin, p.DescMax, p.H1Min, p.H1Max)
	fmt.Fprintf(&b, "- Body text (intro, service_overview, FAQ answers) should total at least %d words.\n", p.MinWords)
	fmt.Fprintf(&b, "- Provide at least %d FAQ entries and at least %d internal links.\n", rules.MinFAQEntries, rules.MinInternalLinks)
	b.WriteString("Respond with a single JSON object and nothing else.")
	return b.String()
}

const schemaHint = `{
  "h1": "string",
  "meta_title": "string",
  "meta_description": "string",
  "intro": "string",
  "service_overview": "string",%s
  "faq": [{"question": "string", "answer": "string"}],
  "internal_links": [{"text": "string", "url": "string"}],
  "schema_type": "MedicalBusiness"
}`

func stateUserPrompt(in StateInput, corpus string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the state directory page for dentists in %s", in.Name)
	if in.Abbreviation != "" {
		fmt.Fprintf(&b, " (%s)", in.Abbreviation)
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "Page URL: /dentists/%s\n", in.Slug)
	if len(in.Cities) > 0 {
		fmt.Fprintf(&b, "Cities that can be linked: %s\n", strings.Join(in.Cities, ", "))
	}
	writeCorpus(&b, corpus)
	b.WriteString("Return JSON with this shape:\n")
	fmt.Fprintf(&b, schemaHint, "")
	return b.String()
}

func cityUserPrompt(in CityInput, corpus string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the city directory page for dentists in %s, %s.\n", in.Name, in.StateName)
	fmt.Fprintf(&b, "Page URL: /dentists/%s/%s\n", in.StateSlug, in.Slug)
	if in.County != "" {
		fmt.Fprintf(&b, "County: %s\n", in.County)
	}
	if in.Population != nil && *in.Population > 0 {
		fmt.Fprintf(&b, "Population: %d\n", *in.Population)
	}
	writeCorpus(&b, corpus)
	b.WriteString("Include a local_info paragraph about getting dental care in this city.\n")
	b.WriteString("Return JSON with this shape:\n")
	fmt.Fprintf(&b, schemaHint, "\n  \"local_info\": \"string\",")
	return b.String()
}

func writeCorpus(b *strings.Builder, corpus string) {
	if corpus == "" {
		return
	}
	b.WriteString("\nExisting pages you must NOT resemble:\n")
	b.WriteString(corpus)
	b.WriteString("\n\n")
}

// buildCorpus joins sibling texts until budget bytes are used; the last
// entry is cut to fit.
func buildCorpus(texts []string, budget int) string {
	var b strings.Builder
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		entry := "---\n" + t + "\n"
		if remaining := budget - b.Len(); len(entry) > remaining {
			if remaining > 4 {
				b.WriteString(truncateUTF8(entry, remaining))
			}
			break
		}
		b.WriteString(entry)
	}
	return strings.TrimSpace(b.String())
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }

func fixPrompt(in FixInput, p rules.Policy) (string, string) {
	sys := fmt.Sprintf(
		"You are an SEO editor for a dental directory. Rewrite page metadata so it fits these limits: meta_title %d-%d characters, meta_description %d-%d characters, h1 %d-%d characters. Do not use \"near me\", \"nearby\", \"best ... in\", \"top ... dentist\", \"#1 dentist\" or \"number one\". Respond with a single JSON object with keys meta_title, meta_description, h1.",
		p.TitleMin, p.TitleMax, p.DescMin, p.DescMax, p.H1Min, p.H1Max,
	)
	var b strings.Builder
	fmt.Fprintf(&b, "Page: %s (%s)\n", in.Slug, in.PageType)
	fmt.Fprintf(&b, "Current meta_title: %s\n", in.MetaTitle)
	fmt.Fprintf(&b, "Current meta_description: %s\n", in.MetaDescription)
	fmt.Fprintf(&b, "Current h1: %s\n", in.H1)
	if len(in.Problems) > 0 {
		fmt.Fprintf(&b, "Problems to fix:\n- %s\n", strings.Join(in.Problems, "\n- "))
	}
	if intro := strings.TrimSpace(in.Intro); intro != "" {
		fmt.Fprintf(&b, "Intro for context:\n%s\n", truncateUTF8(intro, 800))
	}
	return sys, b.String()
}
