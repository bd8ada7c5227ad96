package services

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"
	"time"

	"hunt-reward-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultStaleAfter is how long a pending/settling row may sit before it is
// presumed abandoned (the rail call was lost) and repaired to FAILED.
const DefaultStaleAfter = 5 * time.Minute

// DefaultScanRatePerMinute caps scan submissions per participant.
const DefaultScanRatePerMinute = 10

// codePattern matches the opaque identifiers printed into the QR codes.
var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{4,64}$`)

// ScanService is the scan orchestrator: it validates an incoming scan against
// the registry and the caller's progress, enforces per-phase ordering, creates
// the pending ledger row, invokes the settlement rail exactly once and
// reconciles the final state.
//
// There is no application-level locking anywhere in this pipeline. Correctness
// under concurrent duplicate submissions comes from the unique index on
// (participant_id, target_id): the pending-row insert is the checkpoint, one
// request wins it, the loser re-reads and takes the idempotent path.
type ScanService struct {
	DB       *gorm.DB
	Registry *RegistryService
	Stats    *StatsService
	Rail     SettlementRail
	Limiter  *RateLimiter

	StaleAfter        time.Duration
	ScanRatePerMinute int
}

func NewScanService(db *gorm.DB, registry *RegistryService, stats *StatsService, rail SettlementRail, limiter *RateLimiter) *ScanService {
	return &ScanService{
		DB:                db,
		Registry:          registry,
		Stats:             stats,
		Rail:              rail,
		Limiter:           limiter,
		StaleAfter:        DefaultStaleAfter,
		ScanRatePerMinute: DefaultScanRatePerMinute,
	}
}

// ScanResult is the success response of SubmitScan.
type ScanResult struct {
	Record         *models.ScanRecord  `json:"scan"`
	Participant    *models.Participant `json:"user"`
	Target         *models.ScanTarget  `json:"target"`
	AlreadyClaimed bool                `json:"already_claimed"`
	PhaseAdvanced  bool                `json:"phase_advanced"`
}

// SubmitScan runs the full validation-and-settlement pipeline for one scanned
// code. Expected failures come back as *ScanError; anything else is a bug or
// infrastructure fault and surfaces as a 500-class internal error.
func (s *ScanService) SubmitScan(ctx context.Context, participantID, rawCode string) (*ScanResult, *ScanError) {
	// 1. Rate check — fail fast, nothing written.
	verdict := s.Limiter.Check("scan:"+participantID, s.ScanRatePerMinute, time.Minute)
	if !verdict.Allowed {
		return nil, scanErrorf(fiber.StatusTooManyRequests, ErrCodeRateLimited, true,
			"too many scan attempts, retry after %s", verdict.ResetAt.Format(time.RFC3339))
	}

	// 2. Decode the raw scan into a registry identifier.
	code, ok := decodeScanPayload(rawCode)
	if !ok {
		return nil, scanErrorf(fiber.StatusBadRequest, ErrCodeBadCode, false,
			"scanned value is not a valid hunt code")
	}

	// 3. Registry lookup.
	target, err := s.Registry.Lookup(code)
	if errors.Is(err, ErrTargetNotFound) {
		return nil, scanErrorf(fiber.StatusBadRequest, ErrCodeUnknownCode, false,
			"code is not part of this hunt")
	}
	if err != nil {
		return nil, s.internalError("registry lookup", err)
	}
	if !target.Active {
		return nil, scanErrorf(fiber.StatusBadRequest, ErrCodeUnknownCode, false,
			"code is no longer active")
	}

	var participant models.Participant
	if err := s.DB.Where("id = ?", participantID).First(&participant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, scanErrorf(fiber.StatusBadRequest, ErrCodeUnknownUser, false,
				"participant is not registered")
		}
		return nil, s.internalError("participant lookup", err)
	}

	// 4. Duplicate check against the ledger.
	if result, scanErr := s.resolveExisting(&participant, target); result != nil || scanErr != nil {
		return result, scanErr
	}

	// 5. Sequence validation — recomputed on every attempt, never cached:
	// the confirmed-position watermark can move under concurrent requests.
	expected, scanErr := s.expectedPosition(&participant, target.Phase)
	if scanErr != nil {
		return nil, scanErr
	}

	// 6. Phase gate: checked before the position mismatch so a scan into a
	// future phase reports the phase, not a position-1 ordering error.
	if target.Phase != participant.CurrentPhase {
		return nil, scanErrorf(fiber.StatusBadRequest, ErrCodeWrongPhase, false,
			"code belongs to phase %d but you are in phase %d", target.Phase, participant.CurrentPhase)
	}

	if target.Position != expected {
		return nil, scanErrorf(fiber.StatusBadRequest, ErrCodeOutOfOrder, false,
			"codes must be found in order: expected position %d, got %d", expected, target.Position)
	}

	// 7. Pre-flight: don't create a ledger row when the rail is known down.
	if !s.Rail.Healthy(ctx) {
		return nil, scanErrorf(fiber.StatusServiceUnavailable, ErrCodeRailUnavailable, true,
			"reward settlement is temporarily unavailable, try again later")
	}

	// 8. Record creation — the concurrency checkpoint.
	record := &models.ScanRecord{
		ID:            uuid.NewString(),
		ParticipantID: participant.ID,
		TargetID:      target.ID,
		RewardAmount:  target.RewardAmount, // snapshot, never re-read
		Status:        models.ScanStatusPending,
	}
	if err := s.DB.Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Another request claimed this (participant, target) first.
			// Re-read and answer for whatever state the winner left behind.
			return s.resolveRace(&participant, target)
		}
		return nil, s.internalError("ledger insert", err)
	}

	// 9–11. Settlement and reconciliation.
	return s.settle(ctx, &participant, target, record)
}

// decodeScanPayload extracts the registry identifier from whatever the client
// scanned — either the bare code or a URL with the code as its last segment.
func decodeScanPayload(raw string) (string, bool) {
	code := strings.TrimSpace(raw)
	if code == "" {
		return "", false
	}
	if i := strings.LastIndexByte(code, '/'); i >= 0 {
		code = code[i+1:]
	}
	if !codePattern.MatchString(code) {
		return "", false
	}
	return code, true
}

// resolveExisting handles step 4: an existing ledger row for this pair.
// Returns (nil, nil) when there is no row and the attempt should proceed.
func (s *ScanService) resolveExisting(participant *models.Participant, target *models.ScanTarget) (*ScanResult, *ScanError) {
	var existing models.ScanRecord
	err := s.DB.Where("participant_id = ? AND target_id = ?", participant.ID, target.ID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.internalError("duplicate check", err)
	}

	switch {
	case existing.Status == models.ScanStatusConfirmed:
		// Idempotent replay: same success, original proof, no new state.
		return &ScanResult{
			Record:         &existing,
			Participant:    participant,
			Target:         target,
			AlreadyClaimed: true,
		}, nil

	case existing.Status == models.ScanStatusFailed:
		// Clear the dead row so the fresh attempt can take the unique slot.
		if err := s.DB.Delete(&existing).Error; err != nil {
			return nil, s.internalError("failed-row cleanup", err)
		}
		return nil, nil

	case existing.Status.InFlight() && time.Since(existing.CreatedAt) < s.StaleAfter:
		return nil, scanErrorf(fiber.StatusConflict, ErrCodeInFlight, false,
			"a scan for this code is already being processed")

	default:
		// In-flight but past the staleness threshold: the rail call is
		// presumed lost. Repair to FAILED and make the caller resubmit —
		// never silently continue on a row this old.
		updates := map[string]interface{}{
			"status":      models.ScanStatusFailed,
			"fail_reason": "settlement timed out",
		}
		if err := s.DB.Model(&existing).Updates(updates).Error; err != nil {
			return nil, s.internalError("stale-row repair", err)
		}
		log.Printf("⏱️  Stale scan %s repaired to failed (age %s)", existing.ID, time.Since(existing.CreatedAt))
		return nil, scanErrorf(fiber.StatusRequestTimeout, ErrCodeStaleTimeout, true,
			"previous attempt timed out, please scan again")
	}
}

// resolveRace answers for the loser of the unique-index insert race.
func (s *ScanService) resolveRace(participant *models.Participant, target *models.ScanTarget) (*ScanResult, *ScanError) {
	var existing models.ScanRecord
	if err := s.DB.Where("participant_id = ? AND target_id = ?", participant.ID, target.ID).
		First(&existing).Error; err != nil {
		return nil, s.internalError("race re-read", err)
	}

	switch existing.Status {
	case models.ScanStatusConfirmed:
		// Winner already finished — reload totals so the replay response
		// carries them.
		var fresh models.Participant
		if err := s.DB.Where("id = ?", participant.ID).First(&fresh).Error; err != nil {
			return nil, s.internalError("race participant reload", err)
		}
		return &ScanResult{
			Record:         &existing,
			Participant:    &fresh,
			Target:         target,
			AlreadyClaimed: true,
		}, nil
	case models.ScanStatusFailed:
		return nil, scanErrorf(fiber.StatusServiceUnavailable, ErrCodeRailDeclined, true,
			"reward settlement failed, please scan again")
	default:
		return nil, scanErrorf(fiber.StatusConflict, ErrCodeInFlight, false,
			"a scan for this code is already being processed")
	}
}

// expectedPosition computes the next required position in a phase: the highest
// confirmed position plus one.
func (s *ScanService) expectedPosition(participant *models.Participant, phase int) (int, *ScanError) {
	var maxPos int
	err := s.DB.Model(&models.ScanRecord{}).
		Joins("JOIN scan_targets ON scan_targets.id = scan_records.target_id").
		Where("scan_records.participant_id = ? AND scan_records.status = ? AND scan_targets.phase = ?",
			participant.ID, models.ScanStatusConfirmed, phase).
		Select("COALESCE(MAX(scan_targets.position), 0)").
		Scan(&maxPos).Error
	if err != nil {
		return 0, s.internalError("sequence read", err)
	}
	return maxPos + 1, nil
}

// settle runs the rail call and reconciles the ledger row. The row is never
// left pending on a rail failure — only an unexpected crash can do that, and
// such rows are repaired via the staleness path.
func (s *ScanService) settle(ctx context.Context, participant *models.Participant, target *models.ScanTarget, record *models.ScanRecord) (*ScanResult, *ScanError) {
	if err := s.DB.Model(record).Update("status", models.ScanStatusSettling).Error; err != nil {
		return nil, s.internalError("settling transition", err)
	}
	record.Status = models.ScanStatusSettling

	// Exactly one transfer attempt per record lifecycle. On failure the
	// caller resubmits; we never retry here.
	transfer, err := s.Rail.Transfer(ctx, participant.WalletAddress, record.RewardAmount)
	if err != nil || !transfer.Success {
		reason := "transfer declined"
		if err != nil {
			reason = err.Error()
		} else if transfer.Error != "" {
			reason = transfer.Error
		}
		if dbErr := s.DB.Model(record).Updates(map[string]interface{}{
			"status":      models.ScanStatusFailed,
			"fail_reason": reason,
		}).Error; dbErr != nil {
			log.Printf("❌ Failed to mark scan %s failed after rail error: %v", record.ID, dbErr)
		}
		log.Printf("❌ Settlement failed for scan %s: %s", record.ID, reason)
		return nil, scanErrorf(fiber.StatusServiceUnavailable, ErrCodeRailDeclined, true,
			"reward settlement failed, please scan again")
	}

	// Reconcile: confirm the row and propagate stats in one transaction.
	phaseAdvanced := false
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		record.Status = models.ScanStatusConfirmed
		record.ProofRef = &transfer.TxRef
		record.ConfirmedAt = &now
		if err := tx.Save(record).Error; err != nil {
			return err
		}

		advanced, err := s.Stats.OnConfirmedScan(tx, participant, target, record)
		if err != nil {
			return err
		}
		phaseAdvanced = advanced
		return nil
	})
	if err != nil {
		// The transfer went through but the confirm write did not. Leave the
		// row for reconciliation rather than guessing.
		log.Printf("🚨 Scan %s paid (proof %s) but confirmation write failed: %v", record.ID, transfer.TxRef, err)
		return nil, s.internalError("confirmation write", err)
	}

	return &ScanResult{
		Record:        record,
		Participant:   participant,
		Target:        target,
		PhaseAdvanced: phaseAdvanced,
	}, nil
}

// NextExpected reports the position the participant must find next in their
// current phase. Used by the progress endpoint.
func (s *ScanService) NextExpected(participant *models.Participant) (int, *ScanError) {
	return s.expectedPosition(participant, participant.CurrentPhase)
}

// ScanStatusView is the polling response for a ledger record.
type ScanStatusView struct {
	ID       string            `json:"id"`
	Status   models.ScanStatus `json:"status"`
	Message  string            `json:"message"`
	ProofRef *string           `json:"proof_ref,omitempty"`
}

// GetScanStatus looks up the current disbursement state of a record for
// client polling.
func (s *ScanService) GetScanStatus(recordID, participantID string) (*ScanStatusView, *ScanError) {
	var record models.ScanRecord
	err := s.DB.Where("id = ? AND participant_id = ?", recordID, participantID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, scanErrorf(fiber.StatusNotFound, ErrCodeNotFound, false, "scan record not found")
	}
	if err != nil {
		return nil, s.internalError("status lookup", err)
	}

	var message string
	switch record.Status {
	case models.ScanStatusPending:
		message = "Scan received, waiting for settlement"
	case models.ScanStatusSettling:
		message = "Reward transfer in progress"
	case models.ScanStatusConfirmed:
		message = "Reward delivered"
	case models.ScanStatusFailed:
		message = "Settlement failed — scan the code again to retry"
	}

	return &ScanStatusView{
		ID:       record.ID,
		Status:   record.Status,
		Message:  message,
		ProofRef: record.ProofRef,
	}, nil
}

func (s *ScanService) internalError(step string, err error) *ScanError {
	log.Printf("❌ [SCAN] %s failed: %v", step, err)
	return scanErrorf(fiber.StatusInternalServerError, ErrCodeInternal, true,
		"something went wrong, please try again")
}
