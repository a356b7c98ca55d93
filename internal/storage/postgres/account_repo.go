package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/postpilot/postpilot/internal/models"
	"gorm.io/gorm"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetSettings returns the subject's posting policy, or (nil, nil) when the
// account has never configured one; callers fall back to defaults.
func (r *AccountRepository) GetSettings(ctx context.Context, subjectID uint) (*models.AccountSettings, error) {
	var settings models.AccountSettings
	err := r.db.WithContext(ctx).First(&settings, "subject_id = ?", subjectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account settings: %w", err)
	}
	return &settings, nil
}

func (r *AccountRepository) SaveSettings(ctx context.Context, settings *models.AccountSettings) error {
	if err := r.db.WithContext(ctx).Save(settings).Error; err != nil {
		return fmt.Errorf("save account settings: %w", err)
	}
	return nil
}
