package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/models"
)

// NetPositions computes the net held quantity per asset from signed
// operation history: +quantity for a buy, -quantity for a sell, restricted
// to operations dated at or before asOf. Only strictly positive sums are
// retained; closed and short positions contribute nothing to any valuation
// view, even when the asset has price history.
func NetPositions(ops []models.Operation, asOf time.Time) map[int64]decimal.Decimal {
	sums := make(map[int64]decimal.Decimal)
	for _, op := range ops {
		if op.Date.After(asOf) {
			continue
		}
		qty := op.Quantity
		if op.Type == models.OperationSell {
			qty = qty.Neg()
		}
		sums[op.AssetID] = sums[op.AssetID].Add(qty)
	}

	positions := make(map[int64]decimal.Decimal, len(sums))
	for assetID, qty := range sums {
		if qty.IsPositive() {
			positions[assetID] = qty
		}
	}
	return positions
}

// NetPositionsByAccount groups the net positions per account, applying the
// same sign and positivity rules as NetPositions.
func NetPositionsByAccount(ops []models.Operation, asOf time.Time) map[int64]map[int64]decimal.Decimal {
	byAccount := make(map[int64][]models.Operation)
	for _, op := range ops {
		byAccount[op.AccountID] = append(byAccount[op.AccountID], op)
	}

	positions := make(map[int64]map[int64]decimal.Decimal, len(byAccount))
	for accountID, accountOps := range byAccount {
		net := NetPositions(accountOps, asOf)
		if len(net) > 0 {
			positions[accountID] = net
		}
	}
	return positions
}
