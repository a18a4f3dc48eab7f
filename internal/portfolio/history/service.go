package history

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/models"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/pricing"
)

type LedgerRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Operation, error)
}

type PriceRepository interface {
	ListByAssets(ctx context.Context, assetIDs []int64) (map[int64][]models.PricePoint, error)
}

// PortfolioPoint is one day of the reconstructed value series.
type PortfolioPoint struct {
	Day        time.Time       `json:"day"`
	TotalValue decimal.Decimal `json:"total_value"`
}

type Service interface {
	PortfolioGrowth(ctx context.Context, userID string) ([]PortfolioPoint, error)
}

type service struct {
	ledgerRepo LedgerRepository
	priceRepo  PriceRepository
	now        func() time.Time
}

func NewHistoryService(ledgerRepo LedgerRepository, priceRepo PriceRepository) Service {
	return &service{ledgerRepo: ledgerRepo, priceRepo: priceRepo, now: time.Now}
}

// assetCursor carries the last resolved state of one asset as the day
// cursor advances: its running position and its last known price. Both
// are step functions that only change on event dates.
type assetCursor struct {
	operations []models.Operation
	prices     []models.PricePoint
	opIdx      int
	priceIdx   int
	quantity   decimal.Decimal
	price      decimal.Decimal
	hasPrice   bool
}

func (c *assetCursor) advanceTo(day time.Time) {
	for c.opIdx < len(c.operations) && !pricing.DayOf(c.operations[c.opIdx].Date).After(day) {
		op := c.operations[c.opIdx]
		if op.Type == models.OperationSell {
			c.quantity = c.quantity.Sub(op.Quantity)
		} else {
			c.quantity = c.quantity.Add(op.Quantity)
		}
		c.opIdx++
	}
	for c.priceIdx < len(c.prices) && !pricing.DayOf(c.prices[c.priceIdx].Date).After(day) {
		c.price = c.prices[c.priceIdx].Price
		c.hasPrice = true
		c.priceIdx++
	}
}

// value is the asset's contribution on the current day. Until the first
// price observation nothing is known, so the contribution is zero.
func (c *assetCursor) value() decimal.Decimal {
	if !c.hasPrice {
		return decimal.Zero
	}
	return c.quantity.Mul(c.price)
}

// PortfolioGrowth reconstructs a contiguous daily series of total
// portfolio value from the user's first operation through today, one row
// per calendar day with no gaps. A day without operation or price events
// simply carries the previous state forward. The pass is linear: each
// asset's cursor advances once per day instead of recomputing the full
// history, so cost stays at O(days x assets).
func (s *service) PortfolioGrowth(ctx context.Context, userID string) ([]PortfolioPoint, error) {
	operations, err := s.ledgerRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(operations) == 0 {
		return []PortfolioPoint{}, nil
	}

	byAsset := make(map[int64][]models.Operation)
	start := pricing.DayOf(operations[0].Date)
	for _, op := range operations {
		if day := pricing.DayOf(op.Date); day.Before(start) {
			start = day
		}
		byAsset[op.AssetID] = append(byAsset[op.AssetID], op)
	}

	assetIDs := make([]int64, 0, len(byAsset))
	for assetID := range byAsset {
		assetIDs = append(assetIDs, assetID)
	}
	sort.Slice(assetIDs, func(i, j int) bool { return assetIDs[i] < assetIDs[j] })

	prices, err := s.priceRepo.ListByAssets(ctx, assetIDs)
	if err != nil {
		return nil, err
	}

	cursors := make([]*assetCursor, 0, len(assetIDs))
	for _, assetID := range assetIDs {
		ops := byAsset[assetID]
		sort.SliceStable(ops, func(i, j int) bool { return ops[i].Date.Before(ops[j].Date) })
		cursors = append(cursors, &assetCursor{operations: ops, prices: prices[assetID]})
	}

	end := pricing.DayOf(s.now())
	var series []PortfolioPoint
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		total := decimal.Zero
		for _, cursor := range cursors {
			cursor.advanceTo(day)
			total = total.Add(cursor.value())
		}
		series = append(series, PortfolioPoint{Day: day, TotalValue: total})
	}
	return series, nil
}
