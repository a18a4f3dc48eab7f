package rebalance

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	portfolioErrors "github.com/sebuszqo/PortfolioTracker/internal/portfolio/errors"
)

type mockRebalanceRepo struct {
	rows        []TargetRow
	upsertCalls int
	lastTargets map[int64]decimal.Decimal
}

func (m *mockRebalanceRepo) ListUserAssetTargets(_ context.Context, _ string) ([]TargetRow, error) {
	return m.rows, nil
}

func (m *mockRebalanceRepo) UpsertTargets(_ context.Context, _ string, targets map[int64]decimal.Decimal) error {
	m.upsertCalls++
	m.lastTargets = targets
	return nil
}

type mockWeightService struct {
	weights map[int64]decimal.Decimal
}

func (m *mockWeightService) CurrentAssetWeights(_ context.Context, _ string) (map[int64]decimal.Decimal, error) {
	return m.weights, nil
}

func pct(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestUpdateTargets_ValidBatch(t *testing.T) {
	repo := &mockRebalanceRepo{}
	service := NewRebalanceService(repo, &mockWeightService{})

	err := service.UpdateTargets(context.Background(), "user-1", []TargetUpdate{
		{AssetID: 1, TargetPercentage: pct("60")},
		{AssetID: 2, TargetPercentage: pct("40")},
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, repo.upsertCalls)
	assert.True(t, repo.lastTargets[1].Equal(pct("60")))
	assert.True(t, repo.lastTargets[2].Equal(pct("40")))
}

func TestUpdateTargets_ItemOutOfRangeVoidsBatch(t *testing.T) {
	repo := &mockRebalanceRepo{}
	service := NewRebalanceService(repo, &mockWeightService{})

	err := service.UpdateTargets(context.Background(), "user-1", []TargetUpdate{
		{AssetID: 1, TargetPercentage: pct("-5")},
		{AssetID: 2, TargetPercentage: pct("105")},
	})

	assert.True(t, portfolioErrors.IsValidationError(err), "expected validation error, got %v", err)
	assert.Contains(t, err.Error(), "Validation error at item 1")
	assert.Equal(t, 0, repo.upsertCalls, "no row may be written when any item is invalid")
}

func TestUpdateTargets_SumMustBeHundred(t *testing.T) {
	repo := &mockRebalanceRepo{}
	service := NewRebalanceService(repo, &mockWeightService{})

	err := service.UpdateTargets(context.Background(), "user-1", []TargetUpdate{
		{AssetID: 1, TargetPercentage: pct("50")},
		{AssetID: 2, TargetPercentage: pct("40")},
	})

	assert.True(t, portfolioErrors.IsValidationError(err))
	assert.Contains(t, err.Error(), "must sum to 100")
	assert.Equal(t, 0, repo.upsertCalls)
}

func TestUpdateTargets_RoundingToleranceAccepted(t *testing.T) {
	repo := &mockRebalanceRepo{}
	service := NewRebalanceService(repo, &mockWeightService{})

	err := service.UpdateTargets(context.Background(), "user-1", []TargetUpdate{
		{AssetID: 1, TargetPercentage: pct("33.33")},
		{AssetID: 2, TargetPercentage: pct("33.33")},
		{AssetID: 3, TargetPercentage: pct("33.33")},
	})

	assert.NoError(t, err, "99.99 is within the 0.01 tolerance")
	assert.Equal(t, 1, repo.upsertCalls)
}

func TestUpdateTargets_EmptyBatchRejected(t *testing.T) {
	repo := &mockRebalanceRepo{}
	service := NewRebalanceService(repo, &mockWeightService{})

	err := service.UpdateTargets(context.Background(), "user-1", nil)

	assert.True(t, portfolioErrors.IsValidationError(err))
	assert.Equal(t, 0, repo.upsertCalls)
}

func TestUpdateTargets_IdempotentReapply(t *testing.T) {
	repo := &mockRebalanceRepo{}
	service := NewRebalanceService(repo, &mockWeightService{})

	updates := []TargetUpdate{
		{AssetID: 1, TargetPercentage: pct("100")},
	}
	assert.NoError(t, service.UpdateTargets(context.Background(), "user-1", updates))
	assert.NoError(t, service.UpdateTargets(context.Background(), "user-1", updates))

	assert.Equal(t, 2, repo.upsertCalls)
	assert.True(t, repo.lastTargets[1].Equal(pct("100")), "reapplying identical input leaves the same state")
}

func TestStatus_DerivesDrift(t *testing.T) {
	repo := &mockRebalanceRepo{rows: []TargetRow{
		{AssetID: 1, AssetName: "A", Ticker: "AAA", RebalanceID: 7, TargetPercentage: pct("60")},
		{AssetID: 2, AssetName: "B", TargetPercentage: pct("0")},
	}}
	weights := &mockWeightService{weights: map[int64]decimal.Decimal{
		1: pct("0.7"),
		2: pct("0.3"),
	}}
	service := NewRebalanceService(repo, weights)

	statuses, err := service.Status(context.Background(), "user-1")

	assert.NoError(t, err)
	assert.Len(t, statuses, 2)

	assert.True(t, statuses[0].CurrentPercentage.Equal(pct("70")))
	assert.True(t, statuses[0].Drift.Equal(pct("10")), "70%% current against 60%% target drifts +10")

	assert.True(t, statuses[1].TargetPercentage.IsZero(), "asset without a target row reports 0")
	assert.True(t, statuses[1].Drift.Equal(pct("30")))
}

func TestStatus_UnheldAssetHasZeroCurrent(t *testing.T) {
	repo := &mockRebalanceRepo{rows: []TargetRow{
		{AssetID: 1, AssetName: "Sold off", TargetPercentage: pct("25")},
	}}
	service := NewRebalanceService(repo, &mockWeightService{weights: map[int64]decimal.Decimal{}})

	statuses, err := service.Status(context.Background(), "user-1")

	assert.NoError(t, err)
	assert.True(t, statuses[0].CurrentPercentage.IsZero())
	assert.True(t, statuses[0].Drift.Equal(pct("-25")))
}
