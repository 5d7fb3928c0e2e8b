package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/geoseo-backend/internal/data/repos"
	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/modules/geoseo/content"
	"github.com/yungbote/geoseo-backend/internal/modules/geoseo/rules"
	"github.com/yungbote/geoseo-backend/internal/modules/geoseo/similarity"
	"github.com/yungbote/geoseo-backend/internal/platform/apierr"
	"github.com/yungbote/geoseo-backend/internal/platform/dbctx"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

type GenerateInput struct {
	PageType types.PageType
	EntityID uuid.UUID
	QueueID  *uuid.UUID
}

type GenerateResult struct {
	Success         bool               `json:"success"`
	Error           string             `json:"error,omitempty"`
	QueueID         *uuid.UUID         `json:"queueId,omitempty"`
	Content         *types.PageContent `json:"content,omitempty"`
	ConfidenceScore float64            `json:"confidenceScore"`
	ValidationPass  bool               `json:"seoValidationPassed"`
	AutoPublished   bool               `json:"autoPublished"`
	Published       *PublishResult     `json:"published,omitempty"`
}

type ValidateResult struct {
	Valid           bool     `json:"valid"`
	Errors          []string `json:"errors"`
	Warnings        []string `json:"warnings"`
	ConfidenceScore float64  `json:"confidenceScore"`
}

type GenerationService interface {
	// Generate produces content for an entity. Generator failures are recorded
	// on the queue item and reported in the result, not as an error.
	Generate(ctx context.Context, in GenerateInput) (*GenerateResult, error)
	// Validate re-scores a queue item's stored content.
	Validate(ctx context.Context, queueID uuid.UUID) (*ValidateResult, error)
}

type generationService struct {
	log       *logger.Logger
	queue     repos.QueueRepo
	pages     repos.PageRepo
	cities    repos.CityRepo
	entities  entityStore
	generator *content.Generator
	settings  SettingsService
	budget    GenerationBudget
	publisher PublisherService
	now       func() time.Time
}

func NewGenerationService(
	baseLog *logger.Logger,
	queue repos.QueueRepo,
	pages repos.PageRepo,
	states repos.StateRepo,
	cities repos.CityRepo,
	generator *content.Generator,
	settings SettingsService,
	budget GenerationBudget,
	publisher PublisherService,
) GenerationService {
	return &generationService{
		log:       baseLog.With("service", "GenerationService"),
		queue:     queue,
		pages:     pages,
		cities:    cities,
		entities:  entityStore{states: states, cities: cities},
		generator: generator,
		settings:  settings,
		budget:    budget,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *generationService) Generate(ctx context.Context, in GenerateInput) (*GenerateResult, error) {
	if in.EntityID == uuid.Nil {
		return nil, apierr.BadRequest("entityId is required")
	}
	dbc := dbctx.Context{Ctx: ctx}
	ent, err := s.entities.load(dbc, in.PageType, in.EntityID)
	if err != nil {
		return nil, err
	}
	item, err := s.resolveItem(dbc, in)
	if err != nil {
		return nil, err
	}

	cfg, err := s.settings.Pipeline(ctx)
	if err != nil {
		return nil, err
	}
	if item != nil && item.Status == types.QueueStatusFailed {
		active, err := s.queue.GetActiveByEntity(dbc, item.PageType, item.EntityID)
		if err != nil {
			return nil, err
		}
		if active != nil && active.ID != item.ID {
			return nil, apierr.Conflict("Another active queue item exists for this entity")
		}
	}
	ok, err := s.budget.Reserve(ctx, cfg.DailyGenerationLimit)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.TooManyRequests("Daily generation limit reached")
	}

	if item != nil {
		restart := item.Status == types.QueueStatusFailed
		if err := s.queue.MarkProcessing(dbc, item.ID, s.now(), restart); err != nil {
			if repos.IsUniqueViolation(err) {
				return nil, apierr.Conflict("Another active queue item exists for this entity")
			}
			return nil, err
		}
	}

	siblings, err := s.siblings(dbc, ent)
	if err != nil {
		return nil, err
	}
	gen := s.generator.WithPolicy(cfg.GenerationPolicy())
	var res *content.Result
	if ent.PageType == types.PageTypeCity {
		res, err = gen.GenerateCity(ctx, content.CityInput{
			Name:       ent.Name,
			Slug:       ent.Slug,
			County:     ent.City.County,
			Population: ent.City.Population,
			StateName:  ent.City.State.Name,
			StateSlug:  ent.StateSlug(),
			Siblings:   siblings,
		})
	} else {
		res, err = gen.GenerateState(ctx, content.StateInput{
			Name:         ent.Name,
			Abbreviation: ent.State.Abbreviation,
			Slug:         ent.Slug,
			Siblings:     siblings,
		})
	}
	if err != nil {
		return s.fail(ctx, item, ent, err)
	}
	return s.succeed(ctx, item, ent, res, cfg)
}

func (s *generationService) resolveItem(dbc dbctx.Context, in GenerateInput) (*types.QueueItem, error) {
	if in.QueueID != nil && *in.QueueID != uuid.Nil {
		item, err := s.queue.GetByID(dbc, *in.QueueID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, apierr.NotFound("Queue item")
		}
		if item.EntityID != in.EntityID || item.PageType != in.PageType {
			return nil, apierr.BadRequest("Queue item does not match entity")
		}
		if item.Status == types.QueueStatusPublished {
			return nil, apierr.Conflict("Queue item already published")
		}
		return item, nil
	}
	return s.queue.GetActiveByEntity(dbc, in.PageType, in.EntityID)
}

func (s *generationService) siblings(dbc dbctx.Context, ent *geoEntity) ([]content.Sibling, error) {
	var (
		pages []*types.Page
		err   error
	)
	if ent.PageType == types.PageTypeCity {
		ids, lerr := s.cities.ListIDsByState(dbc, ent.City.StateID)
		if lerr != nil {
			return nil, lerr
		}
		pages, err = s.pages.ListSiblings(dbc, types.PageTypeCity, ids, ent.ID, content.CitySiblingLimit)
	} else {
		pages, err = s.pages.ListSiblings(dbc, types.PageTypeState, nil, ent.ID, content.StateSiblingLimit)
	}
	if err != nil {
		return nil, err
	}
	out := make([]content.Sibling, 0, len(pages))
	for _, p := range pages {
		c, err := p.DecodeContent()
		if err != nil || c == nil {
			continue
		}
		out = append(out, content.Sibling{Slug: p.Slug, Intro: c.Intro, Text: c.Body()})
	}
	return out, nil
}

func (s *generationService) fail(ctx context.Context, item *types.QueueItem, ent *geoEntity, genErr error) (*GenerateResult, error) {
	msg := content.Describe(genErr)
	s.log.Warn("content generation failed", "page_type", ent.PageType, "entity_id", ent.ID, "error", msg)
	out := &GenerateResult{Success: false, Error: msg}
	if item != nil {
		id := item.ID
		out.QueueID = &id
		// Record the failure even if the caller went away mid-call.
		if err := s.queue.UpdateFields(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, item.ID, map[string]interface{}{
			"status":        types.QueueStatusFailed,
			"error_message": msg,
		}); err != nil {
			return nil, err
		}
	}
	if errors.Is(genErr, context.Canceled) || errors.Is(genErr, context.DeadlineExceeded) {
		return out, genErr
	}
	return out, nil
}

func (s *generationService) succeed(ctx context.Context, item *types.QueueItem, ent *geoEntity, res *content.Result, cfg PipelineSettings) (*GenerateResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	score := res.Confidence
	passed := score >= rules.PassingConfidence
	out := &GenerateResult{Success: true, Content: &res.Content, ConfidenceScore: score, ValidationPass: passed}

	if err := s.entities.update(dbc, ent, map[string]interface{}{
		"seo_status":          types.SEOStatusDraft,
		"ai_confidence_score": score,
	}); err != nil {
		return nil, err
	}
	if item == nil {
		return out, nil
	}

	raw, err := json.Marshal(res.Content)
	if err != nil {
		return nil, err
	}
	issues, err := json.Marshal(nonNil(res.Issues))
	if err != nil {
		return nil, err
	}
	if err := s.queue.UpdateFields(dbc, item.ID, map[string]interface{}{
		"status":                types.QueueStatusGenerated,
		"content_generated":     datatypes.JSON(raw),
		"ai_confidence_score":   score,
		"seo_validation_passed": passed,
		"seo_validation_errors": datatypes.JSON(issues),
		"error_message":         "",
	}); err != nil {
		return nil, err
	}
	id := item.ID
	out.QueueID = &id
	s.log.Info("content generated", "queue_id", item.ID, "page_type", ent.PageType, "entity_id", ent.ID, "confidence", score)

	if cfg.AutoPublishEnabled && score >= cfg.AutoPublishThreshold && rules.Validate(res.Content, cfg.GenerationPolicy()).Valid {
		pub, err := s.publisher.Publish(ctx, PublishInput{QueueID: item.ID, ChangedBy: ChangedByAutoPublish})
		if err != nil {
			s.log.Warn("auto-publish failed", "queue_id", item.ID, "error", err)
			return out, nil
		}
		out.AutoPublished = true
		out.Published = pub
	}
	return out, nil
}

func (s *generationService) Validate(ctx context.Context, queueID uuid.UUID) (*ValidateResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	item, err := s.queue.GetByID(dbc, queueID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apierr.NotFound("Queue item")
	}
	c, err := item.Content()
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apierr.BadRequest("No content generated yet")
	}
	cfg, err := s.settings.Pipeline(ctx)
	if err != nil {
		return nil, err
	}
	policy := cfg.GenerationPolicy()

	duplicate := false
	if item.PageType == types.PageTypeCity {
		ent, err := s.entities.load(dbc, item.PageType, item.EntityID)
		if err != nil {
			return nil, err
		}
		sibs, err := s.siblings(dbc, ent)
		if err != nil {
			return nil, err
		}
		intros := make([]string, 0, len(sibs))
		for _, sb := range sibs {
			intros = append(intros, sb.Intro)
		}
		duplicate = similarity.Exceeds(c.Intro, intros, rules.DuplicateSimilarityThreshold)
	}

	res := rules.Validate(*c, policy)
	conf := rules.ScoreGeneration(*c, policy, duplicate)
	issues, err := json.Marshal(nonNil(res.Issues()))
	if err != nil {
		return nil, err
	}
	if err := s.queue.UpdateFields(dbc, item.ID, map[string]interface{}{
		"ai_confidence_score":   conf.Score,
		"seo_validation_passed": conf.Score >= rules.PassingConfidence,
		"seo_validation_errors": datatypes.JSON(issues),
	}); err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		s.log.Debug("stored content failed validation", "queue_id", item.ID, "errors", strings.Join(res.Errors, "; "))
	}
	return &ValidateResult{Valid: res.Valid, Errors: res.Errors, Warnings: res.Warnings, ConfidenceScore: conf.Score}, nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
