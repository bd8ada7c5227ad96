package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Participant is a hunt player (denormalized totals for performance).
//
// TotalReward must always equal the sum of this participant's CONFIRMED
// ScanRecord amounts — it is only ever mutated by the stats updater inside the
// transaction that confirms a record.
type Participant struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	WalletAddress string `gorm:"uniqueIndex;size:128;not null" json:"wallet_address"`
	Nickname      string `gorm:"uniqueIndex;size:64;not null" json:"nickname"`

	TotalReward    decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"total_reward"`
	ConfirmedScans int64           `gorm:"not null;default:0" json:"confirmed_scans"`

	// Rarity-tier counters
	CommonScans    int64 `gorm:"not null;default:0" json:"common_scans"`
	RareScans      int64 `gorm:"not null;default:0" json:"rare_scans"`
	LegendaryScans int64 `gorm:"not null;default:0" json:"legendary_scans"`

	// CurrentPhase advances automatically once every active position of the
	// phase has a confirmed scan.
	CurrentPhase int `gorm:"not null;default:1" json:"current_phase"`

	LastConfirmedAt *time.Time `json:"last_confirmed_at,omitempty"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
