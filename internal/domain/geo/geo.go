package geo

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SEOStatus string

const (
	SEOStatusInactive SEOStatus = "inactive"
	SEOStatusDraft    SEOStatus = "draft"
	SEOStatusLive     SEOStatus = "live"
)

// State is seeded outside this service; the pipeline only mutates its SEO columns.
type State struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string     `gorm:"column:name;not null" json:"name"`
	Abbreviation      string     `gorm:"column:abbreviation" json:"abbreviation"`
	Slug              string     `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	SEOStatus         SEOStatus  `gorm:"column:seo_status;not null;default:inactive;index" json:"seo_status"`
	AIConfidenceScore *float64   `gorm:"column:ai_confidence_score" json:"ai_confidence_score,omitempty"`
	SEOPageID         *uuid.UUID `gorm:"type:uuid;column:seo_page_id" json:"seo_page_id,omitempty"`
	PageExists        bool       `gorm:"column:page_exists;not null;default:false" json:"page_exists"`
	CreatedAt         time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null" json:"updated_at"`
}

func (State) TableName() string { return "states" }

func (s *State) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.SEOStatus == "" {
		s.SEOStatus = SEOStatusInactive
	}
	return nil
}

type City struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StateID           uuid.UUID  `gorm:"type:uuid;column:state_id;not null;uniqueIndex:idx_city_state_slug,priority:1" json:"state_id"`
	Name              string     `gorm:"column:name;not null" json:"name"`
	Slug              string     `gorm:"column:slug;not null;uniqueIndex:idx_city_state_slug,priority:2" json:"slug"`
	County            string     `gorm:"column:county" json:"county,omitempty"`
	Population        *int       `gorm:"column:population" json:"population,omitempty"`
	SEOStatus         SEOStatus  `gorm:"column:seo_status;not null;default:inactive;index" json:"seo_status"`
	AIConfidenceScore *float64   `gorm:"column:ai_confidence_score" json:"ai_confidence_score,omitempty"`
	SEOPageID         *uuid.UUID `gorm:"type:uuid;column:seo_page_id" json:"seo_page_id,omitempty"`
	PageExists        bool       `gorm:"column:page_exists;not null;default:false" json:"page_exists"`
	CreatedAt         time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null" json:"updated_at"`

	State *State `gorm:"foreignKey:StateID" json:"state,omitempty"`
}

func (City) TableName() string { return "cities" }

func (c *City) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.SEOStatus == "" {
		c.SEOStatus = SEOStatusInactive
	}
	return nil
}
