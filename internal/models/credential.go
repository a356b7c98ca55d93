package models

import "time"

// PlatformCredential holds a subject's decrypted platform access token.
// Token exchange and encryption happen in an external service; this table
// only stores what the publisher needs at call time.
type PlatformCredential struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	SubjectID   uint   `gorm:"uniqueIndex;not null"`
	AccountID   string `gorm:"type:varchar(255);not null"`
	AccessToken string `gorm:"type:text;not null"`
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
