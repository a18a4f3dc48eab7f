package valuation

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	portfolioErrors "github.com/sebuszqo/PortfolioTracker/internal/portfolio/errors"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/ledger"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/models"
)

type LedgerRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Operation, error)
	ListByAccount(ctx context.Context, userID string, accountID int64) ([]models.Operation, error)
}

type PriceRepository interface {
	LatestPrices(ctx context.Context, assetIDs []int64) (map[int64]decimal.Decimal, error)
}

type CashRepository interface {
	CashBalances(ctx context.Context, userID string) (map[int64]decimal.Decimal, error)
}

type AccountService interface {
	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)
	GetOwnedAccount(ctx context.Context, userID string, accountID int64) (*models.Account, error)
}

type AssetService interface {
	GetAssetsByIDs(ctx context.Context, assetIDs []int64) (map[int64]models.Asset, error)
}

type Service interface {
	AccountsWithBalance(ctx context.Context, userID string) ([]AccountBalance, error)
	AccountBalance(ctx context.Context, userID string, accountID int64) (*AccountBalance, error)
	Allocation(ctx context.Context, userID string, groupBy GroupBy) ([]AllocationGroup, error)
	AccountAllocation(ctx context.Context, userID string, accountID int64, groupBy GroupBy) ([]AllocationGroup, error)
	CurrentAssetWeights(ctx context.Context, userID string) (map[int64]decimal.Decimal, error)
}

type service struct {
	ledgerRepo     LedgerRepository
	priceRepo      PriceRepository
	cashRepo       CashRepository
	accountService AccountService
	assetService   AssetService
}

func NewValuationService(ledgerRepo LedgerRepository, priceRepo PriceRepository, cashRepo CashRepository,
	accountService AccountService, assetService AssetService) Service {
	return &service{
		ledgerRepo:     ledgerRepo,
		priceRepo:      priceRepo,
		cashRepo:       cashRepo,
		accountService: accountService,
		assetService:   assetService,
	}
}

// AccountsWithBalance returns every active account with cash balance,
// invested value and total, sorted by account type and then total value
// descending.
func (s *service) AccountsWithBalance(ctx context.Context, userID string) ([]AccountBalance, error) {
	accounts, err := s.accountService.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.balancesFor(ctx, userID, accounts)
}

func (s *service) AccountBalance(ctx context.Context, userID string, accountID int64) (*AccountBalance, error) {
	account, err := s.accountService.GetOwnedAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	balances, err := s.balancesFor(ctx, userID, []models.Account{*account})
	if err != nil {
		return nil, err
	}
	return &balances[0], nil
}

func (s *service) balancesFor(ctx context.Context, userID string, accounts []models.Account) ([]AccountBalance, error) {
	cash, err := s.cashRepo.CashBalances(ctx, userID)
	if err != nil {
		return nil, err
	}
	operations, err := s.ledgerRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	positionsByAccount := ledger.NetPositionsByAccount(operations, time.Now())
	prices, err := s.priceRepo.LatestPrices(ctx, heldAssetIDs(positionsByAccount))
	if err != nil {
		return nil, err
	}

	balances := make([]AccountBalance, 0, len(accounts))
	for _, account := range accounts {
		invested := decimal.Zero
		for assetID, qty := range positionsByAccount[account.ID] {
			// An asset without any observation yet contributes nothing.
			if price, ok := prices[assetID]; ok {
				invested = invested.Add(qty.Mul(price))
			}
		}
		cashBalance := cash[account.ID]
		balances = append(balances, AccountBalance{
			AccountID:     account.ID,
			Name:          account.Name,
			Type:          account.Type,
			Currency:      account.Currency,
			CashBalance:   cashBalance,
			InvestedValue: invested,
			TotalValue:    cashBalance.Add(invested),
		})
	}

	sort.SliceStable(balances, func(i, j int) bool {
		if balances[i].Type != balances[j].Type {
			return balances[i].Type < balances[j].Type
		}
		return balances[i].TotalValue.GreaterThan(balances[j].TotalValue)
	})
	return balances, nil
}

// Allocation computes the global allocation breakdown across all of the
// user's accounts.
func (s *service) Allocation(ctx context.Context, userID string, groupBy GroupBy) ([]AllocationGroup, error) {
	if err := groupBy.Validate(); err != nil {
		return nil, err
	}
	operations, err := s.ledgerRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.allocate(ctx, operations, groupBy)
}

// AccountAllocation computes the allocation breakdown for one account the
// user owns.
func (s *service) AccountAllocation(ctx context.Context, userID string, accountID int64, groupBy GroupBy) ([]AllocationGroup, error) {
	if err := groupBy.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.accountService.GetOwnedAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}
	operations, err := s.ledgerRepo.ListByAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	return s.allocate(ctx, operations, groupBy)
}

func (s *service) allocate(ctx context.Context, operations []models.Operation, groupBy GroupBy) ([]AllocationGroup, error) {
	values, assets, err := s.valuePositions(ctx, operations)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		total  decimal.Decimal
		assets map[int64]struct{}
	}
	buckets := make(map[string]*bucket)
	grandTotal := decimal.Zero

	for assetID, value := range values {
		asset := assets[assetID]
		var key string
		switch groupBy {
		case GroupByTheme:
			key = asset.Theme
			if key == "" {
				key = models.ThemeUnclassified
			}
		case GroupByType:
			key = asset.Type
		default:
			key = asset.Name
		}

		b, ok := buckets[key]
		if !ok {
			b = &bucket{assets: make(map[int64]struct{})}
			buckets[key] = b
		}
		b.total = b.total.Add(value)
		b.assets[assetID] = struct{}{}
		grandTotal = grandTotal.Add(value)
	}

	groups := make([]AllocationGroup, 0, len(buckets))
	for key, b := range buckets {
		pct := decimal.Zero
		if grandTotal.IsPositive() {
			pct = b.total.DivRound(grandTotal, 8)
		}
		groups = append(groups, AllocationGroup{
			GroupKey:      key,
			TotalValue:    b.total,
			AllocationPct: pct,
			AssetCount:    len(b.assets),
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].TotalValue.GreaterThan(groups[j].TotalValue)
	})
	return groups, nil
}

// CurrentAssetWeights returns the allocation fraction per held asset id,
// the same figures Allocation emits when grouped by asset. The rebalance
// evaluator derives drift from these at read time.
func (s *service) CurrentAssetWeights(ctx context.Context, userID string) (map[int64]decimal.Decimal, error) {
	operations, err := s.ledgerRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	values, _, err := s.valuePositions(ctx, operations)
	if err != nil {
		return nil, err
	}

	grandTotal := decimal.Zero
	for _, value := range values {
		grandTotal = grandTotal.Add(value)
	}

	weights := make(map[int64]decimal.Decimal, len(values))
	for assetID, value := range values {
		if grandTotal.IsPositive() {
			weights[assetID] = value.DivRound(grandTotal, 8)
		} else {
			weights[assetID] = decimal.Zero
		}
	}
	return weights, nil
}

// valuePositions turns operation history into a value per held asset:
// net quantity as of now times the latest known price. Assets without any
// price observation are excluded, they have no measurable value yet.
// A held asset missing from the assets relation aborts the computation:
// skipping it would misstate the totals.
func (s *service) valuePositions(ctx context.Context, operations []models.Operation) (map[int64]decimal.Decimal, map[int64]models.Asset, error) {
	positions := ledger.NetPositions(operations, time.Now())
	assetIDs := make([]int64, 0, len(positions))
	for assetID := range positions {
		assetIDs = append(assetIDs, assetID)
	}

	assets, err := s.assetService.GetAssetsByIDs(ctx, assetIDs)
	if err != nil {
		return nil, nil, err
	}
	for _, assetID := range assetIDs {
		if _, ok := assets[assetID]; !ok {
			return nil, nil, portfolioErrors.NewIntegrityError("ledger references unknown asset %d", assetID)
		}
	}

	prices, err := s.priceRepo.LatestPrices(ctx, assetIDs)
	if err != nil {
		return nil, nil, err
	}

	values := make(map[int64]decimal.Decimal)
	for assetID, qty := range positions {
		if price, ok := prices[assetID]; ok {
			values[assetID] = qty.Mul(price)
		}
	}
	return values, assets, nil
}

func heldAssetIDs(positionsByAccount map[int64]map[int64]decimal.Decimal) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, positions := range positionsByAccount {
		for assetID := range positions {
			if _, ok := seen[assetID]; !ok {
				seen[assetID] = struct{}{}
				ids = append(ids, assetID)
			}
		}
	}
	return ids
}
