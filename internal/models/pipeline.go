package models

import (
	"time"

	"gorm.io/datatypes"
)

// PipelineRun carries a partial unique index on subject_id covering only
// active statuses, so the database itself rejects a second in-flight run
// for a subject no matter how the insert races.
type PipelineRun struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SubjectID uint   `gorm:"not null;index;index:uniq_active_pipeline_run,unique,where:status = 'pending' OR status = 'running'"`
	Trigger   string `gorm:"type:varchar(50);not null"`
	Status    string `gorm:"type:varchar(50);not null;default:'pending';index"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Steps     []PipelineStep `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

type PipelineStep struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	RunID        uint   `gorm:"not null;index"`
	Name         string `gorm:"type:varchar(255);not null"`
	Order        int    `gorm:"column:step_order;not null"`
	Status       string `gorm:"type:varchar(50);not null;default:'pending'"`
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ResultData   datatypes.JSON `gorm:"type:jsonb"`
	ErrorMessage string         `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
