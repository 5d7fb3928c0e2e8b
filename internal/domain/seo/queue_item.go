package seo

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusGenerated  QueueStatus = "generated"
	QueueStatusPublished  QueueStatus = "published"
	QueueStatusFailed     QueueStatus = "failed"
)

// ActiveQueueStatuses are the statuses covered by the one-active-item-per-entity index.
var ActiveQueueStatuses = []QueueStatus{QueueStatusPending, QueueStatusProcessing, QueueStatusGenerated}

func (s QueueStatus) Active() bool {
	for _, a := range ActiveQueueStatuses {
		if s == a {
			return true
		}
	}
	return false
}

const (
	TriggeredByListing = "listing"
	ListingPriority    = 10
	RejectedMessage    = "Rejected by admin"
)

type QueueItem struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PageType            PageType       `gorm:"column:page_type;not null;index" json:"page_type"`
	EntityID            uuid.UUID      `gorm:"type:uuid;column:entity_id;not null;index" json:"entity_id"`
	EntitySlug          string         `gorm:"column:entity_slug;not null" json:"entity_slug"`
	StateSlug           string         `gorm:"column:state_slug" json:"state_slug,omitempty"`
	Status              QueueStatus    `gorm:"column:status;not null;index" json:"status"`
	Priority            int            `gorm:"column:priority;not null;default:0;index" json:"priority"`
	TriggeredBy         string         `gorm:"column:triggered_by" json:"triggered_by,omitempty"`
	TriggeredByUser     *uuid.UUID     `gorm:"type:uuid;column:triggered_by_user" json:"triggered_by_user,omitempty"`
	TriggeredByClinic   *uuid.UUID     `gorm:"type:uuid;column:triggered_by_clinic" json:"triggered_by_clinic,omitempty"`
	GenerationAttempts  int            `gorm:"column:generation_attempts;not null;default:0" json:"generation_attempts"`
	LastAttemptAt       *time.Time     `gorm:"column:last_attempt_at" json:"last_attempt_at,omitempty"`
	ContentGenerated    datatypes.JSON `gorm:"column:content_generated" json:"content_generated,omitempty"`
	AIConfidenceScore   *float64       `gorm:"column:ai_confidence_score" json:"ai_confidence_score,omitempty"`
	SEOValidationPassed bool           `gorm:"column:seo_validation_passed;not null;default:false" json:"seo_validation_passed"`
	SEOValidationErrors datatypes.JSON `gorm:"column:seo_validation_errors" json:"seo_validation_errors,omitempty"`
	ErrorMessage        string         `gorm:"column:error_message" json:"error_message,omitempty"`
	ApprovedBy          *uuid.UUID     `gorm:"type:uuid;column:approved_by" json:"approved_by,omitempty"`
	ApprovedAt          *time.Time     `gorm:"column:approved_at" json:"approved_at,omitempty"`
	PublishedAt         *time.Time     `gorm:"column:published_at" json:"published_at,omitempty"`
	CreatedAt           time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null" json:"updated_at"`
}

func (QueueItem) TableName() string { return "page_generation_queue" }

func (q *QueueItem) BeforeCreate(*gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.Status == "" {
		q.Status = QueueStatusPending
	}
	return nil
}

// Content decodes content_generated; nil means nothing has been generated yet.
func (q *QueueItem) Content() (*PageContent, error) {
	if q == nil || len(q.ContentGenerated) == 0 || string(q.ContentGenerated) == "null" {
		return nil, nil
	}
	var c PageContent
	if err := json.Unmarshal(q.ContentGenerated, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (q *QueueItem) ValidationErrors() []string {
	var out []string
	if q == nil || len(q.SEOValidationErrors) == 0 {
		return out
	}
	_ = json.Unmarshal(q.SEOValidationErrors, &out)
	return out
}
