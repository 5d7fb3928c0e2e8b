package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/geoseo-backend/internal/data/repos"
	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/domain/seo"
	"github.com/yungbote/geoseo-backend/internal/platform/apierr"
	"github.com/yungbote/geoseo-backend/internal/platform/dbctx"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

type RollbackInput struct {
	PageID    uuid.UUID
	VersionID uuid.UUID
	ChangedBy *uuid.UUID
}

type RollbackResult struct {
	PageID        uuid.UUID `json:"pageId"`
	Deleted       bool      `json:"deleted"`
	Restored      bool      `json:"restored"`
	VersionNumber int       `json:"versionNumber"`
}

type RollbackService interface {
	// Rollback replays the version's old_value onto the page, or deletes the
	// page when the version created it. The reversal is itself versioned.
	Rollback(ctx context.Context, in RollbackInput) (*RollbackResult, error)
}

type rollbackService struct {
	db       *gorm.DB
	log      *logger.Logger
	pages    repos.PageRepo
	versions repos.VersionRepo
	entities entityStore
	settings SettingsService
}

func NewRollbackService(
	db *gorm.DB,
	baseLog *logger.Logger,
	pages repos.PageRepo,
	versions repos.VersionRepo,
	states repos.StateRepo,
	cities repos.CityRepo,
	settings SettingsService,
) RollbackService {
	return &rollbackService{
		db:       db,
		log:      baseLog.With("service", "RollbackService"),
		pages:    pages,
		versions: versions,
		entities: entityStore{states: states, cities: cities},
		settings: settings,
	}
}

func (s *rollbackService) Rollback(ctx context.Context, in RollbackInput) (*RollbackResult, error) {
	if in.PageID == uuid.Nil || in.VersionID == uuid.Nil {
		return nil, apierr.BadRequest("entityId and queueId are required")
	}
	cfg, err := s.settings.Pipeline(ctx)
	if err != nil {
		return nil, err
	}
	minWords := cfg.GenerationPolicy().MinWords

	var out *RollbackResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		version, err := s.versions.GetByID(dbc, in.VersionID)
		if err != nil {
			return err
		}
		if version == nil {
			return apierr.NotFound("Version")
		}
		if version.SEOPageID != in.PageID {
			return apierr.BadRequest("Version does not belong to page")
		}
		prior, err := version.PriorSnapshot()
		if err != nil {
			return err
		}
		page, err := s.pages.GetByID(dbc, in.PageID)
		if err != nil {
			return err
		}
		ent, err := s.entities.load(dbc, version.PageType, version.EntityID)
		if err != nil {
			return err
		}
		if prior == nil {
			out, err = s.remove(dbc, page, ent, in.ChangedBy)
		} else {
			out, err = s.restore(dbc, page, ent, version, *prior, minWords, in.ChangedBy)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("page rolled back",
		"page_id", in.PageID,
		"version_id", in.VersionID,
		"deleted", out.Deleted,
		"changed_by", in.ChangedBy,
	)
	return out, nil
}

// remove undoes a version that created the page.
func (s *rollbackService) remove(dbc dbctx.Context, page *types.Page, ent *geoEntity, actor *uuid.UUID) (*RollbackResult, error) {
	if page == nil {
		return nil, apierr.NotFound("Page")
	}
	before := page.Snapshot()
	if err := s.pages.Delete(dbc, page.ID); err != nil {
		return nil, err
	}
	if err := s.entities.update(dbc, ent, map[string]interface{}{
		"seo_status":  types.SEOStatusInactive,
		"page_exists": false,
		"seo_page_id": nil,
	}); err != nil {
		return nil, err
	}
	v, err := appendVersion(dbc, s.versions, versionEntry{
		Page:      page,
		Trigger:   seo.TriggerRollback,
		Old:       &before,
		New:       nil,
		ChangedBy: changedBy("", actor),
	})
	if err != nil {
		return nil, err
	}
	return &RollbackResult{PageID: page.ID, Deleted: true, VersionNumber: v.VersionNumber}, nil
}

// restore writes snap back, recomputing the derived word count and thin flag
// from the restored content.
func (s *rollbackService) restore(dbc dbctx.Context, page *types.Page, ent *geoEntity, version *types.VersionRecord, snap types.PageSnapshot, minWords int, actor *uuid.UUID) (*RollbackResult, error) {
	words := snap.WordCount
	if len(snap.Content) > 0 && string(snap.Content) != "null" {
		var c types.PageContent
		if err := json.Unmarshal(snap.Content, &c); err == nil {
			words = c.CountWords()
		}
	}
	snap.WordCount = words
	snap.IsThinContent = words < minWords
	content := datatypes.JSON(snap.Content)
	now := time.Now().UTC()

	var before *types.PageSnapshot
	if page == nil {
		page = &types.Page{
			ID:                version.SEOPageID,
			Slug:              ent.PageSlug(),
			PageType:          version.PageType,
			EntityID:          version.EntityID,
			H1:                snap.H1,
			MetaTitle:         snap.MetaTitle,
			MetaDescription:   snap.MetaDescription,
			Content:           content,
			WordCount:         snap.WordCount,
			IsIndexed:         true,
			IsThinContent:     snap.IsThinContent,
			LastGeneratedAt:   &now,
			GenerationVersion: 1,
		}
		if err := s.pages.Create(dbc, page); err != nil {
			return nil, err
		}
	} else {
		b := page.Snapshot()
		before = &b
		page.GenerationVersion++
		if err := s.pages.UpdateFields(dbc, page.ID, map[string]interface{}{
			"h1":                 snap.H1,
			"meta_title":         snap.MetaTitle,
			"meta_description":   snap.MetaDescription,
			"content":            content,
			"word_count":         snap.WordCount,
			"is_thin_content":    snap.IsThinContent,
			"generation_version": page.GenerationVersion,
		}); err != nil {
			return nil, err
		}
	}
	if err := s.entities.update(dbc, ent, map[string]interface{}{
		"seo_status":  types.SEOStatusLive,
		"page_exists": true,
		"seo_page_id": page.ID,
	}); err != nil {
		return nil, err
	}
	v, err := appendVersion(dbc, s.versions, versionEntry{
		Page:       page,
		Trigger:    seo.TriggerRollback,
		Old:        before,
		New:        &snap,
		Confidence: version.AIConfidenceScore,
		ChangedBy:  changedBy("", actor),
	})
	if err != nil {
		return nil, err
	}
	return &RollbackResult{PageID: page.ID, Restored: true, VersionNumber: v.VersionNumber}, nil
}
