package workers

import (
	"context"
	"log"
	"time"

	"hunt-reward-system/models"

	"gorm.io/gorm"
)

// StaleScanSweeper flips pending/settling ledger rows that outlived the
// staleness threshold to failed. The orchestrator already repairs stale rows
// on next contact; this sweep just shrinks the window for participants who
// never come back.
type StaleScanSweeper struct {
	DB         *gorm.DB
	StaleAfter time.Duration
}

func NewStaleScanSweeper(db *gorm.DB, staleAfter time.Duration) *StaleScanSweeper {
	return &StaleScanSweeper{DB: db, StaleAfter: staleAfter}
}

// Run polls until ctx is cancelled.
func (w *StaleScanSweeper) Run(ctx context.Context, pollInterval time.Duration) {
	log.Println("Starting stale-scan sweeper...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Stale-scan sweeper stopped.")
			return
		case <-ticker.C:
			if err := w.SweepOnce(); err != nil {
				log.Printf("❌ Stale-scan sweep error: %v", err)
			}
		}
	}
}

// SweepOnce repairs every in-flight row older than the threshold.
func (w *StaleScanSweeper) SweepOnce() error {
	cutoff := time.Now().Add(-w.StaleAfter)

	result := w.DB.Model(&models.ScanRecord{}).
		Where("status IN ? AND created_at < ?",
			[]models.ScanStatus{models.ScanStatusPending, models.ScanStatusSettling}, cutoff).
		Updates(map[string]interface{}{
			"status":      models.ScanStatusFailed,
			"fail_reason": "stale_sweep",
		})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		log.Printf("⏱️  Swept %d stale scan record(s) to failed", result.RowsAffected)
	}
	return nil
}
