package models

import (
	"time"

	"gorm.io/datatypes"
)

type ScheduledPost struct {
	ID              uint  `gorm:"primaryKey;autoIncrement"`
	SubjectID       uint  `gorm:"not null;index"`
	SourcePhotoID   *uint `gorm:"index"`
	ImageURL        string
	Caption         string         `gorm:"type:text"`
	Hashtags        datatypes.JSON `gorm:"type:jsonb"`
	IsCarousel      bool           `gorm:"default:false"`
	CarouselImages  datatypes.JSON `gorm:"type:jsonb"`
	ScheduledFor    time.Time      `gorm:"not null;index"`
	Status          string         `gorm:"type:varchar(50);not null;default:'scheduled';index"`
	InstagramPostID string         `gorm:"type:varchar(255)"`
	InstagramURL    string
	ErrorMessage    string `gorm:"type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TimeSlot is a recurring candidate posting time. DayOfWeek is nil when the
// slot applies every day; otherwise it restricts the slot to one weekday
// (time.Weekday numbering, Sunday = 0).
type TimeSlot struct {
	Hour      int  `json:"hour"`
	Minute    int  `json:"minute"`
	DayOfWeek *int `json:"day_of_week,omitempty"`
}

// GeneratedPhoto is an AI-generated image moving through the content
// pipeline: generated -> captioned -> scheduled -> published.
type GeneratedPhoto struct {
	ID        uint `gorm:"primaryKey;autoIncrement"`
	SubjectID uint `gorm:"not null;index"`
	ImageURL  string
	Caption   string         `gorm:"type:text"`
	Hashtags  datatypes.JSON `gorm:"type:jsonb"`
	Status    string         `gorm:"type:varchar(50);not null;default:'generated';index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
