package rebalance

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	portfolioErrors "github.com/sebuszqo/PortfolioTracker/internal/portfolio/errors"
)

var (
	hundred      = decimal.NewFromInt(100)
	sumLowBound  = decimal.RequireFromString("99.99")
	sumHighBound = decimal.RequireFromString("100.01")
)

// TargetUpdate is one item of a bulk target write.
type TargetUpdate struct {
	AssetID          int64           `json:"asset_id"`
	TargetPercentage decimal.Decimal `json:"target_percentage"`
}

// Status is one asset of the rebalance view: the stored target next to
// the current allocation and the drift between them. Drift is derived at
// read time and never persisted.
type Status struct {
	AssetID           int64           `json:"asset_id"`
	AssetName         string          `json:"asset_name"`
	Ticker            string          `json:"ticker,omitempty"`
	RebalanceID       int64           `json:"rebalance_id"`
	TargetPercentage  decimal.Decimal `json:"target_percentage"`
	CurrentPercentage decimal.Decimal `json:"current_percentage"`
	Drift             decimal.Decimal `json:"drift"`
}

type WeightService interface {
	CurrentAssetWeights(ctx context.Context, userID string) (map[int64]decimal.Decimal, error)
}

type Service interface {
	Status(ctx context.Context, userID string) ([]Status, error)
	UpdateTargets(ctx context.Context, userID string, updates []TargetUpdate) error
}

type service struct {
	repo          Repository
	weightService WeightService
}

func NewRebalanceService(repo Repository, weightService WeightService) Service {
	return &service{repo: repo, weightService: weightService}
}

// Status lists every asset the user has ever transacted with its target
// percentage (0 when no target row exists), the current allocation
// percentage and the drift between the two.
func (s *service) Status(ctx context.Context, userID string) ([]Status, error) {
	rows, err := s.repo.ListUserAssetTargets(ctx, userID)
	if err != nil {
		return nil, err
	}
	weights, err := s.weightService.CurrentAssetWeights(ctx, userID)
	if err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(rows))
	for _, row := range rows {
		current := weights[row.AssetID].Mul(hundred)
		statuses = append(statuses, Status{
			AssetID:           row.AssetID,
			AssetName:         row.AssetName,
			Ticker:            row.Ticker,
			RebalanceID:       row.RebalanceID,
			TargetPercentage:  row.TargetPercentage,
			CurrentPercentage: current,
			Drift:             current.Sub(row.TargetPercentage),
		})
	}
	return statuses, nil
}

// UpdateTargets validates and applies a batch of target percentages
// all-or-nothing: every item must be within [0,100] and the batch must sum
// to 100 within a 0.01 rounding tolerance. Any violation rejects the whole
// batch before a single row is touched. The write is idempotent under
// retry with identical input.
func (s *service) UpdateTargets(ctx context.Context, userID string, updates []TargetUpdate) error {
	if len(updates) == 0 {
		return portfolioErrors.NewValidationError("no rebalance targets provided")
	}

	sum := decimal.Zero
	targets := make(map[int64]decimal.Decimal, len(updates))
	for i, update := range updates {
		if update.TargetPercentage.IsNegative() || update.TargetPercentage.GreaterThan(hundred) {
			return portfolioErrors.NewIndexedValidationError(i+1,
				fmt.Sprintf("target_percentage must be between 0 and 100, got %s", update.TargetPercentage))
		}
		targets[update.AssetID] = update.TargetPercentage
		sum = sum.Add(update.TargetPercentage)
	}

	if sum.LessThan(sumLowBound) || sum.GreaterThan(sumHighBound) {
		return portfolioErrors.NewValidationError(
			fmt.Sprintf("target percentages must sum to 100, got %s", sum))
	}

	return s.repo.UpsertTargets(ctx, userID, targets)
}
