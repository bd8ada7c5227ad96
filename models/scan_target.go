package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Rarity tiers, ordered common < rare < legendary
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityLegendary Rarity = "legendary"
)

// RarityOrder maps tiers to a sortable weight (used by leaderboard/stat views)
var RarityOrder = map[Rarity]int{
	RarityCommon:    1,
	RarityRare:      2,
	RarityLegendary: 3,
}

func (r Rarity) Valid() bool {
	_, ok := RarityOrder[r]
	return ok
}

// ScanTarget is one entry of the code registry: a physical QR code placed
// somewhere in the hunt. Seeded administratively; deactivated, never deleted.
type ScanTarget struct {
	ID   string `gorm:"primaryKey;type:uuid" json:"id"`
	Code string `gorm:"uniqueIndex;size:64;not null" json:"code"` // opaque random string printed into the QR
	Name string `gorm:"not null" json:"name"`
	Slug string `gorm:"index" json:"slug"`

	// Position is unique within a phase; both start at 1.
	Phase    int `gorm:"not null;index;uniqueIndex:idx_phase_position" json:"phase"`
	Position int `gorm:"not null;uniqueIndex:idx_phase_position" json:"position"`

	Rarity       Rarity          `gorm:"not null;default:'common'" json:"rarity"`
	RewardAmount decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"reward_amount"`
	Hint         string          `gorm:"type:text" json:"hint,omitempty"`
	Active       bool            `gorm:"not null;default:true;index" json:"active"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
