package seo

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	FieldFullContent = "full_content"

	TriggerNewPage  = "new_page"
	TriggerUpdate   = "update"
	TriggerRollback = "rollback"
	TriggerSEOFix   = "seo_fix"
)

// VersionRecord is append-only; nothing updates or deletes these rows.
type VersionRecord struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SEOPageID         uuid.UUID      `gorm:"type:uuid;column:seo_page_id;not null;index" json:"seo_page_id"`
	PageType          PageType       `gorm:"column:page_type;not null" json:"page_type"`
	EntityID          uuid.UUID      `gorm:"type:uuid;column:entity_id;not null;index" json:"entity_id"`
	VersionNumber     int            `gorm:"column:version_number;not null" json:"version_number"`
	FieldName         string         `gorm:"column:field_name;not null" json:"field_name"`
	OldValue          datatypes.JSON `gorm:"column:old_value" json:"old_value"`
	NewValue          datatypes.JSON `gorm:"column:new_value" json:"new_value"`
	ChangeTrigger     string         `gorm:"column:change_trigger;not null;index" json:"change_trigger"`
	AIConfidenceScore *float64       `gorm:"column:ai_confidence_score" json:"ai_confidence_score,omitempty"`
	ChangedBy         string         `gorm:"column:changed_by" json:"changed_by,omitempty"`
	CreatedAt         time.Time      `gorm:"not null;index" json:"created_at"`
}

func (VersionRecord) TableName() string { return "content_versions" }

func (v *VersionRecord) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// PriorSnapshot decodes old_value; nil means the page did not exist before.
func (v *VersionRecord) PriorSnapshot() (*PageSnapshot, error) {
	return decodeSnapshot(v.OldValue)
}

func (v *VersionRecord) NextSnapshot() (*PageSnapshot, error) {
	return decodeSnapshot(v.NewValue)
}

func decodeSnapshot(raw datatypes.JSON) (*PageSnapshot, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var s PageSnapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
