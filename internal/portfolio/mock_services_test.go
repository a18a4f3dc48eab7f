package portfolio

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/history"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/models"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/rebalance"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/valuation"
)

type mockAccountService struct {
	account *models.Account
	err     error
}

func (m *mockAccountService) CreateAccount(_ context.Context, userID, name, accountType, currency string) (*models.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Account{ID: 1, UserID: userID, Name: name, Type: accountType, Currency: currency}, nil
}

func (m *mockAccountService) GetOwnedAccount(_ context.Context, _ string, _ int64) (*models.Account, error) {
	return m.account, m.err
}

func (m *mockAccountService) ListAccounts(_ context.Context, _ string) ([]models.Account, error) {
	return nil, m.err
}

func (m *mockAccountService) DeactivateAccount(_ context.Context, _ string, _ int64) error {
	return m.err
}

type mockAssetService struct {
	err error
}

func (m *mockAssetService) CreateAsset(_ context.Context, asset *models.Asset) error {
	asset.ID = 1
	return m.err
}

func (m *mockAssetService) GetAssetByID(_ context.Context, assetID int64) (*models.Asset, error) {
	return &models.Asset{ID: assetID}, m.err
}

func (m *mockAssetService) GetAssetsByIDs(_ context.Context, _ []int64) (map[int64]models.Asset, error) {
	return nil, m.err
}

func (m *mockAssetService) ListActiveAssets(_ context.Context) ([]models.Asset, error) {
	return nil, m.err
}

type mockLedgerService struct {
	mirror *models.Transaction
	err    error
	calls  int
}

func (m *mockLedgerService) RecordOperation(_ context.Context, _ string, _ *models.Operation) (*models.Transaction, error) {
	m.calls++
	return m.mirror, m.err
}

func (m *mockLedgerService) ListOperations(_ context.Context, _ string) ([]models.Operation, error) {
	return nil, m.err
}

type mockTransactionService struct {
	transactions []models.Transaction
	err          error
}

func (m *mockTransactionService) CreateTransaction(_ context.Context, _ string, _ *models.Transaction) error {
	return m.err
}

func (m *mockTransactionService) ListTransactions(_ context.Context, _ string) ([]models.Transaction, error) {
	return m.transactions, m.err
}

func (m *mockTransactionService) DeactivateTransaction(_ context.Context, _ string, _ int64) error {
	return m.err
}

type mockValuationService struct {
	balances []valuation.AccountBalance
	groups   []valuation.AllocationGroup
	err      error
}

func (m *mockValuationService) AccountsWithBalance(_ context.Context, _ string) ([]valuation.AccountBalance, error) {
	return m.balances, m.err
}

func (m *mockValuationService) AccountBalance(_ context.Context, _ string, _ int64) (*valuation.AccountBalance, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &m.balances[0], nil
}

func (m *mockValuationService) Allocation(_ context.Context, _ string, groupBy valuation.GroupBy) ([]valuation.AllocationGroup, error) {
	if err := groupBy.Validate(); err != nil {
		return nil, err
	}
	return m.groups, m.err
}

func (m *mockValuationService) AccountAllocation(_ context.Context, _ string, _ int64, groupBy valuation.GroupBy) ([]valuation.AllocationGroup, error) {
	if err := groupBy.Validate(); err != nil {
		return nil, err
	}
	return m.groups, m.err
}

func (m *mockValuationService) CurrentAssetWeights(_ context.Context, _ string) (map[int64]decimal.Decimal, error) {
	return nil, m.err
}

type mockHistoryService struct {
	series []history.PortfolioPoint
	err    error
}

func (m *mockHistoryService) PortfolioGrowth(_ context.Context, _ string) ([]history.PortfolioPoint, error) {
	return m.series, m.err
}

type mockRebalanceService struct {
	statuses []rebalance.Status
	err      error
	updates  []rebalance.TargetUpdate
}

func (m *mockRebalanceService) Status(_ context.Context, _ string) ([]rebalance.Status, error) {
	return m.statuses, m.err
}

func (m *mockRebalanceService) UpdateTargets(_ context.Context, _ string, updates []rebalance.TargetUpdate) error {
	m.updates = updates
	return m.err
}
