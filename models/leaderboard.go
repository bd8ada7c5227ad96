package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LeaderboardEntry — read-optimized one-to-one mirror of participant totals.
// Updated in the same logical operation as the Participant row; ranked by
// TotalReward desc with LastConfirmedAt asc as the tie-break (earlier wins).
type LeaderboardEntry struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	ParticipantID string `gorm:"type:uuid;uniqueIndex;not null" json:"participant_id"`
	Nickname      string `gorm:"index" json:"nickname"`

	TotalReward    decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"total_reward"`
	ConfirmedScans int64           `gorm:"not null;default:0" json:"confirmed_scans"`
	LegendaryScans int64           `gorm:"not null;default:0" json:"legendary_scans"`
	CurrentPhase   int             `gorm:"not null;default:1" json:"current_phase"`

	LastConfirmedAt *time.Time `gorm:"index" json:"last_confirmed_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}
