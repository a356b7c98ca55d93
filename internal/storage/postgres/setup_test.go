package postgres

import (
	"testing"

	"github.com/postpilot/postpilot/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func SetupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent), // Disable logs during tests
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Job{},
		&models.PipelineRun{},
		&models.PipelineStep{},
		&models.ScheduledPost{},
		&models.GeneratedPhoto{},
		&models.AccountSettings{},
		&models.PlatformCredential{},
	)
	require.NoError(t, err)

	return db
}
