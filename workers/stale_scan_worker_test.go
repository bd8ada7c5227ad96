package workers

import (
	"testing"
	"time"

	"hunt-reward-system/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSweepOnce(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.ScanRecord{}))

	amount := decimal.RequireFromString("5")
	mkRecord := func(id string, status models.ScanStatus, age time.Duration) {
		rec := models.ScanRecord{
			ID:            id,
			ParticipantID: "aaaaaaaa-0000-0000-0000-000000000000",
			TargetID:      id,
			RewardAmount:  amount,
			Status:        status,
		}
		require.NoError(t, db.Create(&rec).Error)
		require.NoError(t, db.Model(&rec).Update("created_at", time.Now().Add(-age)).Error)
	}

	mkRecord("1aaaaaaa-0000-0000-0000-000000000000", models.ScanStatusPending, 10*time.Minute)
	mkRecord("2aaaaaaa-0000-0000-0000-000000000000", models.ScanStatusSettling, 10*time.Minute)
	mkRecord("3aaaaaaa-0000-0000-0000-000000000000", models.ScanStatusPending, 1*time.Minute)
	mkRecord("4aaaaaaa-0000-0000-0000-000000000000", models.ScanStatusConfirmed, 10*time.Minute)

	sweeper := NewStaleScanSweeper(db, 5*time.Minute)
	require.NoError(t, sweeper.SweepOnce())

	var failed []models.ScanRecord
	require.NoError(t, db.Where("status = ?", models.ScanStatusFailed).Find(&failed).Error)
	assert.Len(t, failed, 2)
	for _, r := range failed {
		assert.Equal(t, "stale_sweep", r.FailReason)
	}

	// Young pending rows and terminal rows are untouched.
	var rec models.ScanRecord
	require.NoError(t, db.First(&rec, "id = ?", "3aaaaaaa-0000-0000-0000-000000000000").Error)
	assert.Equal(t, models.ScanStatusPending, rec.Status)
	var rec2 models.ScanRecord
	require.NoError(t, db.First(&rec2, "id = ?", "4aaaaaaa-0000-0000-0000-000000000000").Error)
	assert.Equal(t, models.ScanStatusConfirmed, rec2.Status)
}
