package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/geoseo-backend/internal/data/repos"
	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/domain/seo"
	"github.com/yungbote/geoseo-backend/internal/modules/geoseo/rules"
	"github.com/yungbote/geoseo-backend/internal/platform/apierr"
	"github.com/yungbote/geoseo-backend/internal/platform/dbctx"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

const ChangedByAutoPublish = "auto-publish"

type PublishInput struct {
	QueueID    uuid.UUID
	ApprovedBy *uuid.UUID
	// ChangedBy overrides the version author; defaults to ApprovedBy.
	ChangedBy string
}

type PublishResult struct {
	PageID        uuid.UUID `json:"pageId"`
	Slug          string    `json:"slug"`
	Created       bool      `json:"created"`
	VersionNumber int       `json:"versionNumber"`
	WordCount     int       `json:"wordCount"`
	IsThinContent bool      `json:"isThinContent"`
}

type PublisherService interface {
	Publish(ctx context.Context, in PublishInput) (*PublishResult, error)
}

type publisherService struct {
	db       *gorm.DB
	log      *logger.Logger
	queue    repos.QueueRepo
	pages    repos.PageRepo
	versions repos.VersionRepo
	entities entityStore
	settings SettingsService
}

func NewPublisherService(
	db *gorm.DB,
	baseLog *logger.Logger,
	queue repos.QueueRepo,
	pages repos.PageRepo,
	versions repos.VersionRepo,
	states repos.StateRepo,
	cities repos.CityRepo,
	settings SettingsService,
) PublisherService {
	return &publisherService{
		db:       db,
		log:      baseLog.With("service", "PublisherService"),
		queue:    queue,
		pages:    pages,
		versions: versions,
		entities: entityStore{states: states, cities: cities},
		settings: settings,
	}
}

// Publish validates and writes page, entity, queue item and version record in
// one transaction.
func (s *publisherService) Publish(ctx context.Context, in PublishInput) (*PublishResult, error) {
	ctx, span := otel.Tracer("geoseo/publisher").Start(ctx, "publisher.publish")
	defer span.End()
	span.SetAttributes(attribute.String("queue.id", in.QueueID.String()))

	cfg, err := s.settings.Pipeline(ctx)
	if err != nil {
		return nil, err
	}
	policy := cfg.GenerationPolicy()

	var out *PublishResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		item, err := s.queue.GetByID(dbc, in.QueueID)
		if err != nil {
			return err
		}
		if item == nil {
			return apierr.NotFound("Queue item")
		}
		if item.Status == types.QueueStatusPublished {
			return apierr.Conflict("Queue item already published")
		}
		content, err := item.Content()
		if err != nil {
			return err
		}
		if content == nil {
			return apierr.BadRequest("No content generated yet")
		}
		if item.Status != types.QueueStatusGenerated {
			return apierr.Conflict("Queue item is %s, only generated items can be published", item.Status)
		}
		if res := rules.Validate(*content, policy); !res.Valid {
			return apierr.Unprocessable("Validation failed: %s", strings.Join(res.Errors, "; "))
		}

		ent, err := s.entities.load(dbc, item.PageType, item.EntityID)
		if err != nil {
			return err
		}
		out, err = s.write(dbc, item, ent, *content, policy, in)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	s.log.Info("page published",
		"queue_id", in.QueueID,
		"page_id", out.PageID,
		"slug", out.Slug,
		"version", out.VersionNumber,
		"approved_by", in.ApprovedBy,
	)
	return out, nil
}

func (s *publisherService) write(dbc dbctx.Context, item *types.QueueItem, ent *geoEntity, content types.PageContent, policy rules.Policy, in PublishInput) (*PublishResult, error) {
	now := time.Now().UTC()
	words := content.CountWords()
	content.WordCount = words
	thin := words < policy.MinWords
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}

	slug := ent.PageSlug()
	page, err := s.pages.GetBySlug(dbc, slug, item.PageType)
	if err != nil {
		return nil, err
	}
	var prior *types.PageSnapshot
	created := page == nil
	if created {
		page = &types.Page{
			ID:                uuid.New(),
			Slug:              slug,
			PageType:          item.PageType,
			EntityID:          ent.ID,
			H1:                content.H1,
			MetaTitle:         content.MetaTitle,
			MetaDescription:   content.MetaDescription,
			Content:           datatypes.JSON(raw),
			WordCount:         words,
			IsIndexed:         true,
			IsThinContent:     thin,
			LastGeneratedAt:   &now,
			GenerationVersion: 1,
		}
		if err := s.pages.Create(dbc, page); err != nil {
			return nil, err
		}
	} else {
		snap := page.Snapshot()
		prior = &snap
		page.GenerationVersion++
		if err := s.pages.UpdateFields(dbc, page.ID, map[string]interface{}{
			"entity_id":          ent.ID,
			"h1":                 content.H1,
			"meta_title":         content.MetaTitle,
			"meta_description":   content.MetaDescription,
			"content":            datatypes.JSON(raw),
			"word_count":         words,
			"is_thin_content":    thin,
			"last_generated_at":  now,
			"generation_version": page.GenerationVersion,
		}); err != nil {
			return nil, err
		}
		page.H1, page.MetaTitle, page.MetaDescription = content.H1, content.MetaTitle, content.MetaDescription
		page.Content, page.WordCount, page.IsThinContent = datatypes.JSON(raw), words, thin
	}

	if err := s.entities.update(dbc, ent, map[string]interface{}{
		"seo_status":          types.SEOStatusLive,
		"page_exists":         true,
		"seo_page_id":         page.ID,
		"ai_confidence_score": item.AIConfidenceScore,
	}); err != nil {
		return nil, err
	}
	if err := s.queue.UpdateFields(dbc, item.ID, map[string]interface{}{
		"status":        types.QueueStatusPublished,
		"approved_by":   in.ApprovedBy,
		"approved_at":   now,
		"published_at":  now,
		"error_message": "",
	}); err != nil {
		return nil, err
	}

	trigger := seo.TriggerNewPage
	if !created {
		trigger = seo.TriggerUpdate
	}
	next := page.Snapshot()
	version, err := appendVersion(dbc, s.versions, versionEntry{
		Page:       page,
		Trigger:    trigger,
		Old:        prior,
		New:        &next,
		Confidence: item.AIConfidenceScore,
		ChangedBy:  changedBy(in.ChangedBy, in.ApprovedBy),
	})
	if err != nil {
		return nil, err
	}
	return &PublishResult{
		PageID:        page.ID,
		Slug:          page.Slug,
		Created:       created,
		VersionNumber: version.VersionNumber,
		WordCount:     words,
		IsThinContent: thin,
	}, nil
}

type versionEntry struct {
	Page       *types.Page
	Trigger    string
	Old        *types.PageSnapshot
	New        *types.PageSnapshot
	Confidence *float64
	ChangedBy  string
}

func appendVersion(dbc dbctx.Context, versions repos.VersionRepo, e versionEntry) (*types.VersionRecord, error) {
	number, err := versions.NextNumber(dbc, e.Page.ID)
	if err != nil {
		return nil, err
	}
	oldRaw, err := snapshotJSON(e.Old)
	if err != nil {
		return nil, err
	}
	newRaw, err := snapshotJSON(e.New)
	if err != nil {
		return nil, err
	}
	v := &types.VersionRecord{
		ID:                uuid.New(),
		SEOPageID:         e.Page.ID,
		PageType:          e.Page.PageType,
		EntityID:          e.Page.EntityID,
		VersionNumber:     number,
		FieldName:         seo.FieldFullContent,
		OldValue:          oldRaw,
		NewValue:          newRaw,
		ChangeTrigger:     e.Trigger,
		AIConfidenceScore: e.Confidence,
		ChangedBy:         e.ChangedBy,
	}
	if err := versions.Create(dbc, v); err != nil {
		return nil, err
	}
	return v, nil
}

func snapshotJSON(s *types.PageSnapshot) (datatypes.JSON, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func changedBy(explicit string, user *uuid.UUID) string {
	if explicit != "" {
		return explicit
	}
	if user != nil && *user != uuid.Nil {
		return user.String()
	}
	return ""
}
