package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScanStatus is the disbursement state of a single scan attempt.
// RECEIVED/VALIDATED are transient (never persisted); the row lifecycle is
// pending → settling → confirmed | failed. FAILED rows are deleted on the next
// attempt for the same (participant, target) so a clean retry can run.
type ScanStatus string

const (
	ScanStatusPending   ScanStatus = "pending"
	ScanStatusSettling  ScanStatus = "settling"
	ScanStatusConfirmed ScanStatus = "confirmed"
	ScanStatusFailed    ScanStatus = "failed"
)

// InFlight reports whether the record is still waiting on the settlement rail.
func (s ScanStatus) InFlight() bool {
	return s == ScanStatusPending || s == ScanStatusSettling
}

// ScanRecord is the progress-ledger row for one accepted scan.
//
// The composite unique index on (participant_id, target_id) is the concurrency
// anchor: concurrent duplicate submissions race on the insert, exactly one wins,
// and the loser re-reads the surviving row. The reward amount is snapshotted at
// insert time so later registry edits never change a payout in flight.
type ScanRecord struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	ParticipantID string `gorm:"type:uuid;not null;uniqueIndex:idx_participant_target" json:"participant_id"`
	TargetID      string `gorm:"type:uuid;not null;uniqueIndex:idx_participant_target" json:"target_id"`

	RewardAmount decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"reward_amount"`
	Status       ScanStatus      `gorm:"not null;default:'pending';index" json:"status"`
	ProofRef     *string         `gorm:"size:128" json:"proof_ref,omitempty"` // settlement rail tx reference
	FailReason   string          `gorm:"type:text" json:"fail_reason,omitempty"`

	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`

	Target *ScanTarget `gorm:"foreignKey:TargetID" json:"target,omitempty"`
}
