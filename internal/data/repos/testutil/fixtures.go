package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/geoseo-backend/internal/domain"
)

func SeedState(tb testing.TB, ctx context.Context, tx *gorm.DB, name, abbr, slug string) *types.State {
	tb.Helper()
	s := &types.State{
		ID:           uuid.New(),
		Name:         name,
		Abbreviation: abbr,
		Slug:         slug,
		SEOStatus:    types.SEOStatusInactive,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed state: %v", err)
	}
	return s
}

func SeedCity(tb testing.TB, ctx context.Context, tx *gorm.DB, state *types.State, name, slug string) *types.City {
	tb.Helper()
	c := &types.City{
		ID:        uuid.New(),
		StateID:   state.ID,
		Name:      name,
		Slug:      slug,
		SEOStatus: types.SEOStatusInactive,
	}
	if err := tx.WithContext(ctx).Omit("State").Create(c).Error; err != nil {
		tb.Fatalf("seed city: %v", err)
	}
	return c
}

func SeedQueueItem(tb testing.TB, ctx context.Context, tx *gorm.DB, pageType types.PageType, entityID uuid.UUID, slug string, status types.QueueStatus) *types.QueueItem {
	tb.Helper()
	q := &types.QueueItem{
		ID:         uuid.New(),
		PageType:   pageType,
		EntityID:   entityID,
		EntitySlug: slug,
		Status:     status,
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed queue item: %v", err)
	}
	return q
}

// SeedPage stores content as the page blob and mirrors its meta fields.
func SeedPage(tb testing.TB, ctx context.Context, tx *gorm.DB, pageType types.PageType, entityID uuid.UUID, slug string, content types.PageContent) *types.Page {
	tb.Helper()
	raw, err := json.Marshal(content)
	if err != nil {
		tb.Fatalf("marshal content: %v", err)
	}
	now := time.Now().UTC()
	p := &types.Page{
		ID:                uuid.New(),
		Slug:              slug,
		PageType:          pageType,
		EntityID:          entityID,
		H1:                content.H1,
		MetaTitle:         content.MetaTitle,
		MetaDescription:   content.MetaDescription,
		Content:           datatypes.JSON(raw),
		WordCount:         content.CountWords(),
		LastGeneratedAt:   &now,
		GenerationVersion: 1,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed page: %v", err)
	}
	return p
}

func SeedRole(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, role string) *types.UserRole {
	tb.Helper()
	r := &types.UserRole{ID: uuid.New(), UserID: userID, Role: role}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed role: %v", err)
	}
	return r
}
