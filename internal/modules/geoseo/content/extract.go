package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-slug"

	"github.com/yungbote/geoseo-backend/internal/domain/seo"
)

var ErrUnparseable = errors.New("unparseable response")

// GenerationError is a non-fatal generation outcome recorded on the queue item.
type GenerationError struct {
	Msg string
	Err error
}

func (e *GenerationError) Error() string {
	if e.Err != nil && e.Msg != "" {
		return e.Msg + ": " + e.Err.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ExtractJSON returns the first balanced {...} object in raw, skipping braces
// inside string literals.
func ExtractJSON(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	for start >= 0 {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(raw); i++ {
			ch := raw[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case ch == '\\':
					escaped = true
				case ch == '"':
					inString = false
				}
				continue
			}
			switch ch {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return raw[start : i+1], nil
				}
			}
		}
		next := strings.IndexByte(raw[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", ErrUnparseable
}

type payload struct {
	H1              string             `json:"h1"`
	MetaTitle       string             `json:"meta_title"`
	MetaDescription string             `json:"meta_description"`
	Intro           string             `json:"intro"`
	ServiceOverview string             `json:"service_overview"`
	LocalInfo       string             `json:"local_info"`
	FAQ             []seo.FAQEntry     `json:"faq"`
	InternalLinks   []seo.InternalLink `json:"internal_links"`
	SchemaType      string             `json:"schema_type"`
}

func (p payload) missing() []string {
	var out []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"h1", p.H1},
		{"meta_title", p.MetaTitle},
		{"meta_description", p.MetaDescription},
		{"intro", p.Intro},
	} {
		if strings.TrimSpace(f.value) == "" {
			out = append(out, f.name)
		}
	}
	return out
}

func decodePayload(raw string) (payload, error) {
	obj, err := ExtractJSON(raw)
	if err != nil {
		return payload{}, &GenerationError{Err: ErrUnparseable}
	}
	var p payload
	if err := json.Unmarshal([]byte(obj), &p); err != nil {
		return payload{}, &GenerationError{Err: ErrUnparseable}
	}
	if miss := p.missing(); len(miss) > 0 {
		return payload{}, &GenerationError{Msg: fmt.Sprintf("response missing required fields: %s", strings.Join(miss, ", "))}
	}
	return p, nil
}

// ParseState decodes a model response into state page content.
func ParseState(raw string, details seo.StateDetails, linkBase string) (seo.PageContent, error) {
	p, err := decodePayload(raw)
	if err != nil {
		return seo.PageContent{}, err
	}
	c := p.content(seo.PageTypeState, linkBase)
	c.State = &details
	return c, nil
}

// ParseCity decodes a model response into city page content.
func ParseCity(raw string, details seo.CityDetails, linkBase string) (seo.PageContent, error) {
	p, err := decodePayload(raw)
	if err != nil {
		return seo.PageContent{}, err
	}
	c := p.content(seo.PageTypeCity, linkBase)
	details.LocalInfo = strings.TrimSpace(p.LocalInfo)
	c.City = &details
	return c, nil
}

func (p payload) content(pt seo.PageType, linkBase string) seo.PageContent {
	schema := strings.TrimSpace(p.SchemaType)
	if schema == "" {
		schema = "MedicalBusiness"
	}
	faq := make([]seo.FAQEntry, 0, len(p.FAQ))
	for _, f := range p.FAQ {
		if strings.TrimSpace(f.Question) == "" || strings.TrimSpace(f.Answer) == "" {
			continue
		}
		faq = append(faq, seo.FAQEntry{Question: strings.TrimSpace(f.Question), Answer: strings.TrimSpace(f.Answer)})
	}
	return seo.PageContent{
		PageType:        pt,
		H1:              strings.TrimSpace(p.H1),
		MetaTitle:       strings.TrimSpace(p.MetaTitle),
		MetaDescription: strings.TrimSpace(p.MetaDescription),
		Intro:           strings.TrimSpace(p.Intro),
		ServiceOverview: strings.TrimSpace(p.ServiceOverview),
		FAQ:             faq,
		InternalLinks:   normalizeLinks(p.InternalLinks, linkBase),
		SchemaType:      schema,
	}
}

// normalizeLinks fills missing URLs from the link text under linkBase.
func normalizeLinks(in []seo.InternalLink, linkBase string) []seo.InternalLink {
	out := make([]seo.InternalLink, 0, len(in))
	for _, l := range in {
		text := strings.TrimSpace(l.Text)
		if text == "" {
			continue
		}
		url := strings.TrimSpace(l.URL)
		if url == "" {
			s, err := slug.Normalize(text)
			if err != nil || s == "" {
				continue
			}
			url = strings.TrimRight(linkBase, "/") + "/" + s
		}
		out = append(out, seo.InternalLink{Text: text, URL: url})
	}
	return out
}
