package seo

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const (
	SettingAutoPublishEnabled   = "auto_publish_enabled"
	SettingAutoPublishThreshold = "auto_publish_threshold"
	SettingDailyGenerationLimit = "daily_generation_limit"
	SettingContentMinWords      = "content_min_words"
	SettingContentMaxWords      = "content_max_words"
)

type Setting struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	SettingKey   string       `gorm:"column:setting_key;not null;uniqueIndex" json:"setting_key"`
	SettingValue SettingValue `gorm:"column:setting_value" json:"setting_value"`
	Description  string       `gorm:"column:description" json:"description,omitempty"`
	UpdatedBy    *uuid.UUID   `gorm:"type:uuid;column:updated_by" json:"updated_by,omitempty"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`
}

func (Setting) TableName() string { return "geo_expansion_settings" }

func (s *Setting) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SettingValue is raw JSON stored as text. Settings are mostly bare scalars,
// which a JSON column on sqlite would coerce to INTEGER/REAL.
type SettingValue []byte

func (SettingValue) GormDataType() string { return "text" }

func (SettingValue) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "text"
}

func (v SettingValue) Value() (driver.Value, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return string(v), nil
}

// Scan also accepts numeric and boolean columns left by databases created
// before the value was stored as text.
func (v *SettingValue) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		*v = nil
	case []byte:
		*v = append(SettingValue(nil), s...)
	case string:
		*v = SettingValue(s)
	case int64:
		*v = SettingValue(strconv.FormatInt(s, 10))
	case float64:
		*v = SettingValue(strconv.FormatFloat(s, 'f', -1, 64))
	case bool:
		*v = SettingValue(strconv.FormatBool(s))
	default:
		return fmt.Errorf("setting value: unsupported column type %T", src)
	}
	return nil
}

func (v SettingValue) MarshalJSON() ([]byte, error) {
	if len(v) == 0 {
		return []byte("null"), nil
	}
	return v, nil
}

func (v *SettingValue) UnmarshalJSON(b []byte) error {
	if v == nil {
		return errors.New("setting value: UnmarshalJSON on nil pointer")
	}
	*v = append((*v)[:0], b...)
	return nil
}
