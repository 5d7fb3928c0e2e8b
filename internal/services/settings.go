package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/geoseo-backend/internal/data/repos"
	types "github.com/yungbote/geoseo-backend/internal/domain"
	"github.com/yungbote/geoseo-backend/internal/domain/seo"
	"github.com/yungbote/geoseo-backend/internal/modules/geoseo/rules"
	"github.com/yungbote/geoseo-backend/internal/platform/apierr"
	"github.com/yungbote/geoseo-backend/internal/platform/dbctx"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

//go:embed settings_defaults.yaml
var settingsDefaultsYAML []byte

type settingDefault struct {
	Key         string `yaml:"key"`
	Value       any    `yaml:"value"`
	Description string `yaml:"description"`
}

func loadSettingDefaults() ([]settingDefault, error) {
	var doc struct {
		Settings []settingDefault `yaml:"settings"`
	}
	if err := yaml.Unmarshal(settingsDefaultsYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse settings defaults: %w", err)
	}
	return doc.Settings, nil
}

// PipelineSettings is the typed view of geo_expansion_settings.
type PipelineSettings struct {
	AutoPublishEnabled   bool    `json:"auto_publish_enabled"`
	AutoPublishThreshold float64 `json:"auto_publish_threshold"`
	DailyGenerationLimit int     `json:"daily_generation_limit"`
	ContentMinWords      int     `json:"content_min_words"`
	ContentMaxWords      int     `json:"content_max_words"`
}

func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		AutoPublishEnabled:   false,
		AutoPublishThreshold: 0.85,
		DailyGenerationLimit: 50,
		ContentMinWords:      rules.GenerationMinWords,
		ContentMaxWords:      1500,
	}
}

// GenerationPolicy applies the operator's word floor to the generation table.
func (p PipelineSettings) GenerationPolicy() rules.Policy {
	return rules.GenerationPolicy.WithMinWords(p.ContentMinWords)
}

type SettingsService interface {
	// Seed inserts every default whose key is absent.
	Seed(ctx context.Context) error
	List(ctx context.Context) ([]*types.Setting, error)
	Pipeline(ctx context.Context) (PipelineSettings, error)
	Update(ctx context.Context, key string, value json.RawMessage, actor *uuid.UUID) (*types.Setting, error)
}

type settingsService struct {
	log      *logger.Logger
	settings repos.SettingRepo
}

func NewSettingsService(baseLog *logger.Logger, settings repos.SettingRepo) SettingsService {
	return &settingsService{log: baseLog.With("service", "SettingsService"), settings: settings}
}

func (s *settingsService) Seed(ctx context.Context) error {
	defaults, err := loadSettingDefaults()
	if err != nil {
		return err
	}
	dbc := dbctx.Context{Ctx: ctx}
	now := time.Now().UTC()
	for _, d := range defaults {
		raw, err := json.Marshal(d.Value)
		if err != nil {
			return fmt.Errorf("encode default %s: %w", d.Key, err)
		}
		row := &types.Setting{
			SettingKey:   d.Key,
			SettingValue: seo.SettingValue(raw),
			Description:  d.Description,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.settings.CreateIfMissing(dbc, row); err != nil {
			return fmt.Errorf("seed setting %s: %w", d.Key, err)
		}
	}
	s.log.Info("settings seeded", "count", len(defaults))
	return nil
}

func (s *settingsService) List(ctx context.Context) ([]*types.Setting, error) {
	return s.settings.List(dbctx.Context{Ctx: ctx})
}

// Pipeline never fails on a malformed row; the default for that key is kept
// and a warning logged.
func (s *settingsService) Pipeline(ctx context.Context) (PipelineSettings, error) {
	out := DefaultPipelineSettings()
	rows, err := s.settings.List(dbctx.Context{Ctx: ctx})
	if err != nil {
		return out, err
	}
	for _, row := range rows {
		var target any
		switch row.SettingKey {
		case seo.SettingAutoPublishEnabled:
			target = &out.AutoPublishEnabled
		case seo.SettingAutoPublishThreshold:
			target = &out.AutoPublishThreshold
		case seo.SettingDailyGenerationLimit:
			target = &out.DailyGenerationLimit
		case seo.SettingContentMinWords:
			target = &out.ContentMinWords
		case seo.SettingContentMaxWords:
			target = &out.ContentMaxWords
		default:
			continue
		}
		if err := json.Unmarshal(row.SettingValue, target); err != nil {
			s.log.Warn("ignoring malformed setting", "key", row.SettingKey, "error", err)
		}
	}
	return out, nil
}

func (s *settingsService) Update(ctx context.Context, key string, value json.RawMessage, actor *uuid.UUID) (*types.Setting, error) {
	if err := validation.Validate(key, validation.Required.Error("settingKey is required")); err != nil {
		return nil, apierr.BadRequest("%s", err.Error())
	}
	if len(value) == 0 {
		return nil, apierr.BadRequest("settingValue is required")
	}
	current, err := s.Pipeline(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateSetting(key, value, current); err != nil {
		return nil, err
	}
	row, err := s.settings.Upsert(dbctx.Context{Ctx: ctx}, key, seo.SettingValue(value), actor)
	if err != nil {
		return nil, err
	}
	s.log.Info("setting updated", "key", key, "user_id", actor)
	return row, nil
}

// Threshold rules skip zero values, so integer keys also carry Required.
func validateSetting(key string, raw json.RawMessage, current PipelineSettings) error {
	var err error
	switch key {
	case seo.SettingAutoPublishEnabled:
		var v bool
		if err = json.Unmarshal(raw, &v); err != nil {
			return apierr.BadRequest("%s must be a boolean", key)
		}
		return nil
	case seo.SettingAutoPublishThreshold:
		var v float64
		if err = json.Unmarshal(raw, &v); err != nil {
			return apierr.BadRequest("%s must be a number", key)
		}
		err = validation.Validate(v, validation.Min(0.0), validation.Max(1.0))
	case seo.SettingDailyGenerationLimit:
		var v int
		if err = json.Unmarshal(raw, &v); err != nil {
			return apierr.BadRequest("%s must be an integer", key)
		}
		err = validation.Validate(v, validation.Required, validation.Min(1), validation.Max(10000))
	case seo.SettingContentMinWords:
		var v int
		if err = json.Unmarshal(raw, &v); err != nil {
			return apierr.BadRequest("%s must be an integer", key)
		}
		err = validation.Validate(v, validation.Required, validation.Min(50), validation.Max(current.ContentMaxWords))
	case seo.SettingContentMaxWords:
		var v int
		if err = json.Unmarshal(raw, &v); err != nil {
			return apierr.BadRequest("%s must be an integer", key)
		}
		err = validation.Validate(v, validation.Required, validation.Min(current.ContentMinWords), validation.Max(10000))
	default:
		return apierr.BadRequest("Unknown setting: %s", key)
	}
	if err != nil {
		var verr validation.Error
		if errors.As(err, &verr) {
			return apierr.BadRequest("%s %s", key, verr.Error())
		}
		return apierr.BadRequest("%s: %v", key, err)
	}
	return nil
}
