package models

import (
	"time"

	"gorm.io/datatypes"
)

// AccountSettings holds the per-subject posting and caption policy.
// TimeSlots is a JSON array of TimeSlot; empty means the built-in defaults.
type AccountSettings struct {
	ID               uint           `gorm:"primaryKey;autoIncrement"`
	SubjectID        uint           `gorm:"uniqueIndex;not null"`
	PostsPerDay      int            `gorm:"default:3;not null"`
	TimeSlots        datatypes.JSON `gorm:"type:jsonb"`
	CaptionTone      string         `gorm:"type:varchar(100)"`
	CaptionMaxLength int            `gorm:"default:200"`
	UseEmojis        bool           `gorm:"default:true"`
	HashtagCount     int            `gorm:"default:5"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
