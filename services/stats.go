package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"hunt-reward-system/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StatsService maintains the denormalized participant totals and the
// leaderboard mirror. It is only ever invoked from the single reconciliation
// step that flips a ledger row PENDING→CONFIRMED, never from idempotent-replay
// paths, which is what keeps the increments exactly-once.
type StatsService struct {
	DB       *gorm.DB
	Registry *RegistryService
}

func NewStatsService(db *gorm.DB, registry *RegistryService) *StatsService {
	return &StatsService{DB: db, Registry: registry}
}

// OnConfirmedScan applies the stat increments for one confirmed record inside
// the caller's transaction. Returns whether the confirmation completed the
// participant's current phase.
func (s *StatsService) OnConfirmedScan(tx *gorm.DB, participant *models.Participant, target *models.ScanTarget, record *models.ScanRecord) (bool, error) {
	now := time.Now()

	participant.TotalReward = participant.TotalReward.Add(record.RewardAmount)
	participant.ConfirmedScans++
	participant.LastConfirmedAt = &now

	switch target.Rarity {
	case models.RarityRare:
		participant.RareScans++
	case models.RarityLegendary:
		participant.LegendaryScans++
	default:
		participant.CommonScans++
	}

	// Phase advance: once the highest active position of the phase is
	// confirmed, the next phase opens up.
	phaseAdvanced := false
	maxPos, err := s.Registry.MaxActivePosition(tx, target.Phase)
	if err != nil {
		return false, err
	}
	if maxPos > 0 && target.Position >= maxPos && participant.CurrentPhase == target.Phase {
		participant.CurrentPhase = target.Phase + 1
		phaseAdvanced = true
	}

	if err := tx.Save(participant).Error; err != nil {
		return false, err
	}

	if err := s.mirrorLeaderboard(tx, participant); err != nil {
		return false, err
	}

	log.Printf("🏆 Scan confirmed: %s +%s (total=%s, scans=%d, phase=%d)",
		participant.Nickname, record.RewardAmount.String(),
		participant.TotalReward.String(), participant.ConfirmedScans, participant.CurrentPhase)

	return phaseAdvanced, nil
}

// mirrorLeaderboard upserts the read-optimized ranking row.
func (s *StatsService) mirrorLeaderboard(tx *gorm.DB, p *models.Participant) error {
	var entry models.LeaderboardEntry
	isNew := false
	err := tx.Where("participant_id = ?", p.ID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		entry = models.LeaderboardEntry{
			ID:            uuid.NewString(),
			ParticipantID: p.ID,
		}
		isNew = true
	} else if err != nil {
		return err
	}

	entry.Nickname = p.Nickname
	entry.TotalReward = p.TotalReward
	entry.ConfirmedScans = p.ConfirmedScans
	entry.LegendaryScans = p.LegendaryScans
	entry.CurrentPhase = p.CurrentPhase
	entry.LastConfirmedAt = p.LastConfirmedAt

	if isNew {
		return tx.Create(&entry).Error
	}
	return tx.Save(&entry).Error
}

// TopParticipants returns the leaderboard, highest total first; on equal
// totals the earlier last-confirmed timestamp ranks higher.
func (s *StatsService) TopParticipants(limit int) ([]models.LeaderboardEntry, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var entries []models.LeaderboardEntry
	err := s.DB.Order("total_reward DESC, last_confirmed_at ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// VerifyTotals recomputes the confirmed-record sum for a participant and
// compares it to the denormalized total. Drift here means a bug.
func (s *StatsService) VerifyTotals(participantID string) (decimal.Decimal, decimal.Decimal, error) {
	var p models.Participant
	if err := s.DB.Where("id = ?", participantID).First(&p).Error; err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	var records []models.ScanRecord
	if err := s.DB.Where("participant_id = ? AND status = ?", participantID, models.ScanStatusConfirmed).
		Find(&records).Error; err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(r.RewardAmount)
	}

	if !sum.Equal(p.TotalReward) {
		return p.TotalReward, sum, fmt.Errorf("total drift for %s: stored=%s computed=%s",
			participantID, p.TotalReward.String(), sum.String())
	}
	return p.TotalReward, sum, nil
}
