package seo

import (
	"fmt"
	"strings"
)

type PageType string

const (
	PageTypeState PageType = "state"
	PageTypeCity  PageType = "city"
)

func ParsePageType(raw string) (PageType, error) {
	switch PageType(strings.ToLower(strings.TrimSpace(raw))) {
	case PageTypeState:
		return PageTypeState, nil
	case PageTypeCity:
		return PageTypeCity, nil
	}
	return "", fmt.Errorf("unknown page type %q", raw)
}

type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type InternalLink struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type StateDetails struct {
	StateName    string `json:"state_name"`
	Abbreviation string `json:"abbreviation,omitempty"`
}

type CityDetails struct {
	CityName  string `json:"city_name"`
	StateName string `json:"state_name"`
	StateSlug string `json:"state_slug"`
	LocalInfo string `json:"local_info,omitempty"`
}

// PageContent is the generated/published page bundle. PageType selects which
// of State or City is populated; exactly one must be set.
type PageContent struct {
	PageType         PageType       `json:"page_type"`
	H1               string         `json:"h1"`
	MetaTitle        string         `json:"meta_title"`
	MetaDescription  string         `json:"meta_description"`
	Intro            string         `json:"intro"`
	ServiceOverview  string         `json:"service_overview"`
	FAQ              []FAQEntry     `json:"faq"`
	InternalLinks    []InternalLink `json:"internal_links"`
	SchemaType       string         `json:"schema_type,omitempty"`
	WordCount        int            `json:"word_count"`
	ValidationIssues []string       `json:"validation_issues,omitempty"`

	State *StateDetails `json:"state,omitempty"`
	City  *CityDetails  `json:"city,omitempty"`
}

func (c PageContent) Check() error {
	switch c.PageType {
	case PageTypeState:
		if c.State == nil || c.City != nil {
			return fmt.Errorf("state content must carry state details only")
		}
	case PageTypeCity:
		if c.City == nil || c.State != nil {
			return fmt.Errorf("city content must carry city details only")
		}
	default:
		return fmt.Errorf("unknown page type %q", c.PageType)
	}
	return nil
}

func (c PageContent) LocalInfo() string {
	if c.City == nil {
		return ""
	}
	return c.City.LocalInfo
}

// Body is the running text of the page, excluding meta fields.
func (c PageContent) Body() string {
	parts := []string{c.Intro, c.ServiceOverview, c.LocalInfo()}
	for _, f := range c.FAQ {
		parts = append(parts, f.Question, f.Answer)
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}

func (c PageContent) CountWords() int {
	return len(strings.Fields(c.Body()))
}

// Sections counts the H2-level blocks a renderer emits for this content.
func (c PageContent) Sections() int {
	n := 0
	if strings.TrimSpace(c.ServiceOverview) != "" {
		n++
	}
	if strings.TrimSpace(c.LocalInfo()) != "" {
		n++
	}
	if len(c.FAQ) > 0 {
		n++
	}
	return n
}

// Serialized is every user-visible field joined, used for phrase scanning.
func (c PageContent) Serialized() string {
	parts := []string{c.H1, c.MetaTitle, c.MetaDescription, c.Body()}
	for _, l := range c.InternalLinks {
		parts = append(parts, l.Text)
	}
	return strings.Join(parts, "\n")
}
