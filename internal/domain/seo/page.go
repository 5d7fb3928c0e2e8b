package seo

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Page is the published artifact read by the public site.
type Page struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Slug              string         `gorm:"column:slug;not null;uniqueIndex:idx_seo_page_slug_type,priority:1" json:"slug"`
	PageType          PageType       `gorm:"column:page_type;not null;uniqueIndex:idx_seo_page_slug_type,priority:2;index" json:"page_type"`
	EntityID          uuid.UUID      `gorm:"type:uuid;column:entity_id;not null;index" json:"entity_id"`
	H1                string         `gorm:"column:h1" json:"h1"`
	MetaTitle         string         `gorm:"column:meta_title" json:"meta_title"`
	MetaDescription   string         `gorm:"column:meta_description" json:"meta_description"`
	Content           datatypes.JSON `gorm:"column:content" json:"content"`
	WordCount         int            `gorm:"column:word_count;not null;default:0" json:"word_count"`
	IsIndexed         bool           `gorm:"column:is_indexed;not null" json:"is_indexed"`
	IsThinContent     bool           `gorm:"column:is_thin_content;not null;default:false" json:"is_thin_content"`
	LastGeneratedAt   *time.Time     `gorm:"column:last_generated_at" json:"last_generated_at,omitempty"`
	GenerationVersion int            `gorm:"column:generation_version;not null;default:1" json:"generation_version"`
	CreatedAt         time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updated_at"`
}

func (Page) TableName() string { return "seo_pages" }

func (p *Page) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Page) DecodeContent() (*PageContent, error) {
	if p == nil || len(p.Content) == 0 || string(p.Content) == "null" {
		return nil, nil
	}
	var c PageContent
	if err := json.Unmarshal(p.Content, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// PageSnapshot is the full_content value stored on version records.
type PageSnapshot struct {
	H1              string          `json:"h1"`
	MetaTitle       string          `json:"meta_title"`
	MetaDescription string          `json:"meta_description"`
	Content         json.RawMessage `json:"content"`
	WordCount       int             `json:"word_count"`
	IsThinContent   bool            `json:"is_thin_content"`
}

func (p *Page) Snapshot() PageSnapshot {
	content := json.RawMessage("null")
	if len(p.Content) > 0 {
		content = json.RawMessage(p.Content)
	}
	return PageSnapshot{
		H1:              p.H1,
		MetaTitle:       p.MetaTitle,
		MetaDescription: p.MetaDescription,
		Content:         content,
		WordCount:       p.WordCount,
		IsThinContent:   p.IsThinContent,
	}
}

// PageSlug is the seo_pages slug for an entity. City slugs are only unique
// within their state, so they carry the state prefix.
func PageSlug(pt PageType, entitySlug, stateSlug string) string {
	if pt == PageTypeCity && stateSlug != "" {
		return stateSlug + "/" + entitySlug
	}
	return entitySlug
}
