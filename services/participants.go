package services

import (
	"errors"
	"fmt"
	"strings"

	"hunt-reward-system/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrIdentityTaken       = errors.New("wallet address or nickname already registered")
)

// ParticipantService creates and reads hunt participants. Totals are only ever
// mutated by the stats updater, never here.
type ParticipantService struct {
	DB *gorm.DB
}

func NewParticipantService(db *gorm.DB) *ParticipantService {
	return &ParticipantService{DB: db}
}

// Register creates a participant from a wallet address and nickname (both
// unique). Idempotent per wallet: re-registering the same wallet returns the
// existing row instead of erroring.
func (s *ParticipantService) Register(walletAddress, nickname string) (*models.Participant, error) {
	walletAddress = strings.TrimSpace(walletAddress)
	nickname = strings.TrimSpace(nickname)
	if walletAddress == "" || nickname == "" {
		return nil, fmt.Errorf("wallet address and nickname are required")
	}

	var existing models.Participant
	err := s.DB.Where("wallet_address = ?", walletAddress).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	p := models.Participant{
		ID:            uuid.NewString(),
		WalletAddress: walletAddress,
		Nickname:      nickname,
		TotalReward:   decimal.Zero,
		CurrentPhase:  1,
	}
	if err := s.DB.Create(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrIdentityTaken
		}
		return nil, err
	}
	return &p, nil
}

// Get fetches a participant by id.
func (s *ParticipantService) Get(id string) (*models.Participant, error) {
	var p models.Participant
	if err := s.DB.Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return &p, nil
}
