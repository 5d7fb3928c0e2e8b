package seo

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AuditRunFull = "full_audit"
	AuditRunFix  = "fix_issues"

	AuditStatusRunning   = "running"
	AuditStatusCompleted = "completed"
	AuditStatusFailed    = "failed"
)

type AuditRun struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RunType           string         `gorm:"column:run_type;not null;index" json:"run_type"`
	Status            string         `gorm:"column:status;not null;index" json:"status"`
	PagesScanned      int            `gorm:"column:pages_scanned;not null;default:0" json:"pages_scanned"`
	IssuesFound       int            `gorm:"column:issues_found;not null;default:0" json:"issues_found"`
	CriticalCount     int            `gorm:"column:critical_count;not null;default:0" json:"critical_count"`
	AverageScore      float64        `gorm:"column:average_score;not null;default:0" json:"average_score"`
	Issues            datatypes.JSON `gorm:"column:issues" json:"issues"`
	NeedsOptimization datatypes.JSON `gorm:"column:needs_optimization" json:"needs_optimization"`
	ErrorMessage      string         `gorm:"column:error_message" json:"error_message,omitempty"`
	StartedBy         *uuid.UUID     `gorm:"type:uuid;column:started_by" json:"started_by,omitempty"`
	CompletedAt       *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt         time.Time      `gorm:"not null;index" json:"created_at"`
}

func (AuditRun) TableName() string { return "seo_audit_runs" }

func (a *AuditRun) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
