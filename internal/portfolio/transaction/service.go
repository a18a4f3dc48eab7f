package transactions

import (
	"context"
	"errors"
	"time"

	portfolioErrors "github.com/sebuszqo/PortfolioTracker/internal/portfolio/errors"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/models"
)

var ErrTransactionNotFound = errors.New("transaction not found")

const defaultCategory = "General"

type AccountService interface {
	GetOwnedAccount(ctx context.Context, userID string, accountID int64) (*models.Account, error)
}

type Service interface {
	CreateTransaction(ctx context.Context, userID string, transaction *models.Transaction) error
	ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
	DeactivateTransaction(ctx context.Context, userID string, transactionID int64) error
}

type service struct {
	repo           Repository
	accountService AccountService
}

func NewTransactionService(repo Repository, accountService AccountService) Service {
	return &service{repo: repo, accountService: accountService}
}

func (s *service) CreateTransaction(ctx context.Context, userID string, transaction *models.Transaction) error {
	if !transaction.Amount.IsPositive() {
		return portfolioErrors.NewValidationError("amount must be greater than zero")
	}
	if transaction.Type != models.TransactionIncome && transaction.Type != models.TransactionExpense {
		return portfolioErrors.NewValidationError("type must be 'income' or 'expense'")
	}
	if transaction.Category == "" {
		transaction.Category = defaultCategory
	}
	if transaction.Date.IsZero() {
		transaction.Date = time.Now()
	}

	if _, err := s.accountService.GetOwnedAccount(ctx, userID, transaction.AccountID); err != nil {
		return err
	}
	return s.repo.Create(ctx, transaction)
}

// ListTransactions returns the user's transactions newest first, including
// deactivated ones so the history view can show tombstones.
func (s *service) ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	transactions, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if transactions == nil {
		return []models.Transaction{}, nil
	}
	return transactions, nil
}

func (s *service) DeactivateTransaction(ctx context.Context, userID string, transactionID int64) error {
	affected, err := s.repo.Deactivate(ctx, userID, transactionID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}
