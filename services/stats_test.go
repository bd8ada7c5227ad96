package services

import (
	"context"
	"testing"

	"hunt-reward-system/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboardMirrorAndRarityCounters(t *testing.T) {
	svc, _ := newTestScanService(t)
	ctx := context.Background()

	ada := registerHunter(t, svc.DB, "ada")
	bob := registerHunter(t, svc.DB, "bob")

	// ada clears phase 1 (common, rare, legendary); bob only finds the first.
	for _, code := range []string{"HUNT-P1-A", "HUNT-P1-B", "HUNT-P1-C"} {
		_, scanErr := svc.SubmitScan(ctx, ada.ID, code)
		require.Nil(t, scanErr)
	}
	_, scanErr := svc.SubmitScan(ctx, bob.ID, "HUNT-P1-A")
	require.Nil(t, scanErr)

	var p models.Participant
	require.NoError(t, svc.DB.First(&p, "id = ?", ada.ID).Error)
	assert.Equal(t, int64(1), p.CommonScans)
	assert.Equal(t, int64(1), p.RareScans)
	assert.Equal(t, int64(1), p.LegendaryScans)
	require.NotNil(t, p.LastConfirmedAt)

	entries, err := svc.Stats.TopParticipants(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ada", entries[0].Nickname)
	assert.True(t, entries[0].TotalReward.Equal(decimal.RequireFromString("60.5")))
	assert.Equal(t, "bob", entries[1].Nickname)
	assert.Equal(t, 2, entries[0].CurrentPhase)

	// Exactly one mirror row per participant.
	var mirrors int64
	svc.DB.Model(&models.LeaderboardEntry{}).Count(&mirrors)
	assert.Equal(t, int64(2), mirrors)
}

func TestVerifyTotalsDetectsDrift(t *testing.T) {
	svc, _ := newTestScanService(t)
	hunter := registerHunter(t, svc.DB, "drift")

	_, scanErr := svc.SubmitScan(context.Background(), hunter.ID, "HUNT-P1-A")
	require.Nil(t, scanErr)

	stored, computed, err := svc.Stats.VerifyTotals(hunter.ID)
	require.NoError(t, err)
	assert.True(t, stored.Equal(computed))

	// Corrupt the denormalized total; verification must flag it.
	require.NoError(t, svc.DB.Model(&models.Participant{}).
		Where("id = ?", hunter.ID).
		Update("total_reward", "999").Error)

	_, _, err = svc.Stats.VerifyTotals(hunter.ID)
	assert.Error(t, err)
}
