package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/errors"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/models"
)

const investmentCategory = "Investment"

type AccountService interface {
	GetOwnedAccount(ctx context.Context, userID string, accountID int64) (*models.Account, error)
}

type AssetService interface {
	GetAssetByID(ctx context.Context, assetID int64) (*models.Asset, error)
}

type Service interface {
	RecordOperation(ctx context.Context, userID string, operation *models.Operation) (*models.Transaction, error)
	ListOperations(ctx context.Context, userID string) ([]models.Operation, error)
}

type service struct {
	repo           Repository
	accountService AccountService
	assetService   AssetService
}

func NewLedgerService(repo Repository, accountService AccountService, assetService AssetService) Service {
	return &service{repo: repo, accountService: accountService, assetService: assetService}
}

// RecordOperation appends a buy or sell to the ledger and mirrors its cash
// effect into the account's transactions: a buy books an expense of
// quantity*price+fees, a sell an income of quantity*price-fees.
func (s *service) RecordOperation(ctx context.Context, userID string, operation *models.Operation) (*models.Transaction, error) {
	if operation.Type != models.OperationBuy && operation.Type != models.OperationSell {
		return nil, errors.NewValidationError("operation_type must be 'buy' or 'sell'")
	}
	if !operation.Quantity.IsPositive() {
		return nil, errors.NewValidationError("quantity must be greater than zero")
	}
	if !operation.Price.IsPositive() {
		return nil, errors.NewValidationError("price must be greater than zero")
	}
	if operation.Fees.IsNegative() {
		return nil, errors.NewValidationError("fees must not be negative")
	}
	if operation.Date.IsZero() {
		operation.Date = time.Now()
	}

	if _, err := s.accountService.GetOwnedAccount(ctx, userID, operation.AccountID); err != nil {
		return nil, err
	}
	asset, err := s.assetService.GetAssetByID(ctx, operation.AssetID)
	if err != nil {
		return nil, err
	}

	gross := operation.Quantity.Mul(operation.Price)
	mirror := &models.Transaction{
		AccountID:   operation.AccountID,
		Category:    investmentCategory,
		Date:        operation.Date,
		Description: fmt.Sprintf("%s %s %s", strings.ToUpper(operation.Type), operation.Quantity.String(), asset.Name),
	}
	if operation.Type == models.OperationBuy {
		mirror.Type = models.TransactionExpense
		mirror.Amount = gross.Add(operation.Fees)
	} else {
		mirror.Type = models.TransactionIncome
		mirror.Amount = gross.Sub(operation.Fees)
	}

	if err := s.repo.CreateWithCashMirror(ctx, operation, mirror); err != nil {
		return nil, err
	}
	return mirror, nil
}

func (s *service) ListOperations(ctx context.Context, userID string) ([]models.Operation, error) {
	return s.repo.ListByUser(ctx, userID)
}
