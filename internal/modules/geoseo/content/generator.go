package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/geoseo-backend/internal/domain/seo"
	"github.com/yungbote/geoseo-backend/internal/modules/geoseo/rules"
	"github.com/yungbote/geoseo-backend/internal/modules/geoseo/similarity"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
	"github.com/yungbote/geoseo-backend/internal/platform/openai"
)

// Sibling is an existing page of the same type used as a negative example.
type Sibling struct {
	Slug  string
	Intro string
	Text  string
}

type StateInput struct {
	Name         string
	Abbreviation string
	Slug         string
	Cities       []string
	Siblings     []Sibling
}

type CityInput struct {
	Name       string
	Slug       string
	County     string
	Population *int
	StateName  string
	StateSlug  string
	Siblings   []Sibling
}

type Result struct {
	Content    seo.PageContent
	Confidence float64
	Issues     []string
	// Duplicate is set when the intro exceeded the sibling similarity threshold.
	Duplicate bool
}

type Generator struct {
	log    *logger.Logger
	ai     openai.Client
	policy rules.Policy
}

func NewGenerator(log *logger.Logger, ai openai.Client, policy rules.Policy) *Generator {
	return &Generator{log: log.With("module", "ContentGenerator"), ai: ai, policy: policy}
}

// WithPolicy returns a generator scoring against p.
func (g *Generator) WithPolicy(p rules.Policy) *Generator {
	cp := *g
	cp.policy = p
	return &cp
}

func (g *Generator) GenerateState(ctx context.Context, in StateInput) (*Result, error) {
	corpus := buildCorpus(siblingTexts(in.Siblings, StateSiblingLimit), stateCorpusBudget)
	raw, err := g.complete(ctx, systemPrompt(g.policy), stateUserPrompt(in, corpus), stateTemperature, stateMaxTokens)
	if err != nil {
		return nil, err
	}
	c, err := ParseState(raw, seo.StateDetails{StateName: in.Name, Abbreviation: in.Abbreviation}, "/dentists/"+in.Slug)
	if err != nil {
		return nil, err
	}
	return g.finish(c, false), nil
}

func (g *Generator) GenerateCity(ctx context.Context, in CityInput) (*Result, error) {
	corpus := buildCorpus(siblingTexts(in.Siblings, CitySiblingLimit), cityCorpusBudget)
	raw, err := g.complete(ctx, systemPrompt(g.policy), cityUserPrompt(in, corpus), cityTemperature, cityMaxTokens)
	if err != nil {
		return nil, err
	}
	details := seo.CityDetails{CityName: in.Name, StateName: in.StateName, StateSlug: in.StateSlug}
	c, err := ParseCity(raw, details, "/dentists/"+in.StateSlug)
	if err != nil {
		return nil, err
	}
	intros := make([]string, 0, len(in.Siblings))
	for _, s := range in.Siblings {
		intros = append(intros, s.Intro)
	}
	dup := similarity.Exceeds(c.Intro, intros, rules.DuplicateSimilarityThreshold)
	if dup {
		g.log.Warn("generated intro resembles a sibling page", "city", in.Slug, "state", in.StateSlug)
	}
	return g.finish(c, dup), nil
}

func (g *Generator) finish(c seo.PageContent, duplicate bool) *Result {
	conf := rules.ScoreGeneration(c, g.policy, duplicate)
	c.WordCount = c.CountWords()
	c.ValidationIssues = conf.Issues
	return &Result{Content: c, Confidence: conf.Score, Issues: conf.Issues, Duplicate: duplicate}
}

func (g *Generator) complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	if g.ai == nil {
		return "", &GenerationError{Msg: "completion client not configured"}
	}
	raw, err := g.ai.Complete(ctx, openai.CompletionRequest{
		Messages: []openai.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", &GenerationError{Err: err}
	}
	return raw, nil
}

func siblingTexts(siblings []Sibling, limit int) []string {
	out := make([]string, 0, len(siblings))
	for i, s := range siblings {
		if i >= limit {
			break
		}
		text := s.Text
		if strings.TrimSpace(text) == "" {
			text = s.Intro
		}
		out = append(out, text)
	}
	return out
}

type FixInput struct {
	Slug            string
	PageType        seo.PageType
	MetaTitle       string
	MetaDescription string
	H1              string
	Intro           string
	Problems        []string
}

type MetaFix struct {
	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
	H1              string `json:"h1"`
}

// FixMeta asks the model for replacement metadata. Fields the model leaves
// blank keep their current value.
func (g *Generator) FixMeta(ctx context.Context, in FixInput, p rules.Policy) (*MetaFix, error) {
	sys, user := fixPrompt(in, p)
	raw, err := g.complete(ctx, sys, user, 0.4, 500)
	if err != nil {
		return nil, err
	}
	obj, err := ExtractJSON(raw)
	if err != nil {
		return nil, &GenerationError{Err: ErrUnparseable}
	}
	var fix MetaFix
	if err := json.Unmarshal([]byte(obj), &fix); err != nil {
		return nil, &GenerationError{Err: ErrUnparseable}
	}
	fix.MetaTitle = firstNonEmpty(fix.MetaTitle, in.MetaTitle)
	fix.MetaDescription = firstNonEmpty(fix.MetaDescription, in.MetaDescription)
	fix.H1 = firstNonEmpty(fix.H1, in.H1)
	return &fix, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Describe renders a generation error the way it is stored on a queue item.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Error()
	}
	return fmt.Sprintf("generation failed: %v", err)
}
