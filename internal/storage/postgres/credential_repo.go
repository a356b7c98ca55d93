package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/internal/providers"
	"gorm.io/gorm"
)

// CredentialRepository resolves subject credentials for the publisher.
// It implements providers.TokenService: a missing row means the subject
// never connected an account, an expired token surfaces as a typed
// provider error and the row is invalidated.
type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

var _ providers.TokenService = (*CredentialRepository)(nil)

func (r *CredentialRepository) DecryptedCredentials(ctx context.Context, subjectID uint) (*providers.Credentials, error) {
	var cred models.PlatformCredential
	err := r.db.WithContext(ctx).First(&cred, "subject_id = ?", subjectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}

	if cred.ExpiresAt != nil && cred.ExpiresAt.Before(time.Now()) {
		if delErr := r.db.WithContext(ctx).Delete(&cred).Error; delErr != nil {
			return nil, fmt.Errorf("invalidate expired credential: %w", delErr)
		}
		return nil, providers.Errf(providers.CodeTokenExpired, false,
			"credential for subject %d expired at %s", subjectID, cred.ExpiresAt.Format(time.RFC3339))
	}

	return &providers.Credentials{
		AccountID:   cred.AccountID,
		AccessToken: cred.AccessToken,
	}, nil
}

func (r *CredentialRepository) SaveCredential(ctx context.Context, cred *models.PlatformCredential) error {
	if err := r.db.WithContext(ctx).Save(cred).Error; err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}
