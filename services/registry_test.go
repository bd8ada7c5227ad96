package services

import (
	"testing"

	"hunt-reward-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedTargetsAndLookup(t *testing.T) {
	registry := NewRegistryService(newTestDB(t))

	created, err := registry.SeedTargets([]SeedTarget{
		{Code: "SEED-001", Name: "Mural Wall", Phase: 1, Position: 1, Rarity: "common", RewardAmount: "5"},
		{Name: "Hidden Bench", Phase: 1, Position: 2, Rarity: "rare", RewardAmount: "12.25", Hint: "near the pond"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	target, err := registry.Lookup("SEED-001")
	require.NoError(t, err)
	assert.Equal(t, "Mural Wall", target.Name)
	assert.Equal(t, "mural-wall", target.Slug)
	assert.True(t, target.Active)

	// Omitted codes are generated.
	var generated models.ScanTarget
	require.NoError(t, registry.DB.Where("position = ?", 2).First(&generated).Error)
	assert.Len(t, generated.Code, 20)
	assert.Equal(t, "near the pond", generated.Hint)

	// Re-seeding the same code updates in place, no duplicate row.
	created, err = registry.SeedTargets([]SeedTarget{
		{Code: "SEED-001", Name: "Mural Wall East", Phase: 1, Position: 1, Rarity: "legendary", RewardAmount: "7"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	target, err = registry.Lookup("SEED-001")
	require.NoError(t, err)
	assert.Equal(t, "Mural Wall East", target.Name)
	assert.Equal(t, models.RarityLegendary, target.Rarity)

	var count int64
	registry.DB.Model(&models.ScanTarget{}).Count(&count)
	assert.Equal(t, int64(2), count)

	_, err = registry.Lookup("SEED-404")
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestSeedTargetsValidation(t *testing.T) {
	registry := NewRegistryService(newTestDB(t))

	_, err := registry.SeedTargets([]SeedTarget{
		{Name: "No Amount", Phase: 1, Position: 1, RewardAmount: "not-a-number"},
	})
	assert.Error(t, err)

	_, err = registry.SeedTargets([]SeedTarget{
		{Name: "Negative", Phase: 1, Position: 1, RewardAmount: "-1"},
	})
	assert.Error(t, err)

	_, err = registry.SeedTargets([]SeedTarget{
		{Name: "Bad Rarity", Phase: 1, Position: 1, Rarity: "mythic", RewardAmount: "1"},
	})
	assert.Error(t, err)

	// Failed batches roll back entirely.
	var count int64
	registry.DB.Model(&models.ScanTarget{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestListByPhase(t *testing.T) {
	registry := NewRegistryService(newTestDB(t))

	_, err := registry.SeedTargets([]SeedTarget{
		{Code: "LP-3", Name: "Three", Phase: 1, Position: 3, RewardAmount: "1"},
		{Code: "LP-1", Name: "One", Phase: 1, Position: 1, RewardAmount: "1"},
		{Code: "LP-2", Name: "Two", Phase: 1, Position: 2, RewardAmount: "1"},
		{Code: "LP-X", Name: "Other Phase", Phase: 2, Position: 1, RewardAmount: "1"},
	})
	require.NoError(t, err)
	require.NoError(t, registry.DeactivateTarget("LP-2"))

	targets, err := registry.ListByPhase(1)
	require.NoError(t, err)
	require.Len(t, targets, 2) // active only
	assert.Equal(t, 1, targets[0].Position)
	assert.Equal(t, 3, targets[1].Position)

	maxPos, err := registry.MaxActivePosition(nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, maxPos)

	maxPos, err = registry.MaxActivePosition(nil, 9)
	require.NoError(t, err)
	assert.Equal(t, 0, maxPos)

	assert.ErrorIs(t, registry.DeactivateTarget("LP-404"), ErrTargetNotFound)
}
