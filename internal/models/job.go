package models

import (
	"time"

	"gorm.io/datatypes"
)

type Job struct {
	ID           uint           `gorm:"primaryKey;autoIncrement"`
	Type         string         `gorm:"type:varchar(255);not null;index"`
	Priority     int            `gorm:"default:0;not null;index"`
	Payload      datatypes.JSON `gorm:"type:jsonb"`
	Status       string         `gorm:"type:varchar(50);not null;default:'pending';index"`
	Attempts     int            `gorm:"default:0;not null"`
	MaxAttempts  int            `gorm:"default:3;not null"`
	LastError    string         `gorm:"type:text"`
	ScheduledFor *time.Time     `gorm:"index"`
	LockedAt     *time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}
