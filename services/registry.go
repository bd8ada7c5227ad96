package services

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"

	"hunt-reward-system/models"
	"hunt-reward-system/utils"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrTargetNotFound = errors.New("scan target not found")

// RegistryService is the read side of the code registry plus the
// administrative seeding path. Read-only from the orchestrator's perspective.
type RegistryService struct {
	DB *gorm.DB
}

func NewRegistryService(db *gorm.DB) *RegistryService {
	return &RegistryService{DB: db}
}

// Lookup resolves a scanned code to its registry entry. Callers decide how to
// treat inactive targets.
func (s *RegistryService) Lookup(code string) (*models.ScanTarget, error) {
	var target models.ScanTarget
	if err := s.DB.Where("code = ?", code).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTargetNotFound
		}
		return nil, err
	}
	return &target, nil
}

// ListByPhase returns the active targets of a phase in ascending position.
func (s *RegistryService) ListByPhase(phase int) ([]models.ScanTarget, error) {
	var targets []models.ScanTarget
	err := s.DB.Where("phase = ? AND active = ?", phase, true).
		Order("position ASC").
		Find(&targets).Error
	return targets, err
}

// MaxActivePosition returns the highest active position in a phase (0 when the
// phase has no active targets). The stats updater uses it to decide phase
// advancement.
func (s *RegistryService) MaxActivePosition(tx *gorm.DB, phase int) (int, error) {
	if tx == nil {
		tx = s.DB
	}
	var maxPos int
	err := tx.Model(&models.ScanTarget{}).
		Where("phase = ? AND active = ?", phase, true).
		Select("COALESCE(MAX(position), 0)").
		Scan(&maxPos).Error
	return maxPos, err
}

// SeedTarget is one row of the administrative seed payload. RewardAmount is a
// decimal string; Code may be empty, in which case a random one is generated.
type SeedTarget struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Phase        int    `json:"phase"`
	Position     int    `json:"position"`
	Rarity       string `json:"rarity"`
	RewardAmount string `json:"reward_amount"`
	Hint         string `json:"hint"`
}

// SeedTargets upserts registry entries by code. Existing codes keep their
// identity; name, hint and reward are refreshed. Seeding is offline/admin-only,
// targets are immutable during normal operation.
func (s *RegistryService) SeedTargets(seeds []SeedTarget) (int, error) {
	created := 0
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		for i := range seeds {
			seed := seeds[i]
			if seed.Name == "" || seed.Phase < 1 || seed.Position < 1 {
				return fmt.Errorf("seed %d: name, phase and position are required", i)
			}

			rarity := models.Rarity(seed.Rarity)
			if seed.Rarity == "" {
				rarity = models.RarityCommon
			}
			if !rarity.Valid() {
				return fmt.Errorf("seed %d: invalid rarity %q", i, seed.Rarity)
			}

			amount, err := decimal.NewFromString(seed.RewardAmount)
			if err != nil || amount.IsNegative() {
				return fmt.Errorf("seed %d: invalid reward amount %q", i, seed.RewardAmount)
			}

			code := seed.Code
			if code == "" {
				code, err = generateCode(20)
				if err != nil {
					return err
				}
			}

			var existing models.ScanTarget
			err = tx.Where("code = ?", code).First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				target := models.ScanTarget{
					ID:           uuid.NewString(),
					Code:         code,
					Name:         seed.Name,
					Slug:         slug.Make(seed.Name),
					Phase:        seed.Phase,
					Position:     seed.Position,
					Rarity:       rarity,
					RewardAmount: amount,
					Hint:         seed.Hint,
					Active:       true,
				}
				if err := tx.Create(&target).Error; err != nil {
					return fmt.Errorf("seed %d: %w", i, err)
				}
				created++
			case err != nil:
				return err
			default:
				existing.Name = seed.Name
				existing.Slug = slug.Make(seed.Name)
				existing.Rarity = rarity
				existing.RewardAmount = amount
				existing.Hint = seed.Hint
				if err := tx.Save(&existing).Error; err != nil {
					return fmt.Errorf("seed %d: %w", i, err)
				}
			}
		}
		return nil
	})
	return created, err
}

// DeactivateTarget retires a code without deleting it (history stays intact).
func (s *RegistryService) DeactivateTarget(code string) error {
	result := s.DB.Model(&models.ScanTarget{}).
		Where("code = ?", code).
		Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTargetNotFound
	}
	return nil
}

// SeedFromObjectStore pulls a JSON seed file from R2 and loads it. Used at
// boot when REGISTRY_SEED_KEY is set.
func (s *RegistryService) SeedFromObjectStore(key string) error {
	data, err := utils.DownloadFromR2(key)
	if err != nil {
		return fmt.Errorf("failed to fetch seed object %s: %w", key, err)
	}

	var seeds []SeedTarget
	if err := json.Unmarshal(data, &seeds); err != nil {
		return fmt.Errorf("failed to parse seed object %s: %w", key, err)
	}

	created, err := s.SeedTargets(seeds)
	if err != nil {
		return err
	}
	log.Printf("📥 Registry seeded from %s: %d new target(s), %d total in file", key, created, len(seeds))
	return nil
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

func generateCode(n int) (string, error) {
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
