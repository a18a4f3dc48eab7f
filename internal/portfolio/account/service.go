package account

import (
	"context"
	"database/sql"
	"errors"

	portfolioErrors "github.com/sebuszqo/PortfolioTracker/internal/portfolio/errors"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/models"
)

var ErrAccountNotFound = errors.New("account not found")

type Service interface {
	CreateAccount(ctx context.Context, userID, name, accountType, currency string) (*models.Account, error)
	GetOwnedAccount(ctx context.Context, userID string, accountID int64) (*models.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)
	DeactivateAccount(ctx context.Context, userID string, accountID int64) error
}

type service struct {
	accountRepo Repository
}

func NewAccountService(repo Repository) Service {
	return &service{accountRepo: repo}
}

func (s *service) CreateAccount(ctx context.Context, userID, name, accountType, currency string) (*models.Account, error) {
	if name == "" {
		return nil, portfolioErrors.NewValidationError("account name must not be empty")
	}
	if accountType == "" {
		return nil, portfolioErrors.NewValidationError("account type must not be empty")
	}
	if len(currency) != 3 {
		return nil, portfolioErrors.NewValidationError("currency must be a 3-letter code")
	}

	account := &models.Account{
		UserID:   userID,
		Name:     name,
		Type:     accountType,
		Currency: currency,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// GetOwnedAccount resolves an account only when it exists, is active and
// belongs to the requesting user. A foreign account reads exactly like a
// missing one, so nothing leaks about other users' resources.
func (s *service) GetOwnedAccount(ctx context.Context, userID string, accountID int64) (*models.Account, error) {
	var account models.Account
	err := s.accountRepo.FindByID(ctx, accountID, &account)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if account.UserID != userID || !account.IsActive {
		return nil, ErrAccountNotFound
	}
	return &account, nil
}

func (s *service) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	return s.accountRepo.ListActiveByUser(ctx, userID)
}

func (s *service) DeactivateAccount(ctx context.Context, userID string, accountID int64) error {
	if _, err := s.GetOwnedAccount(ctx, userID, accountID); err != nil {
		return err
	}
	affected, err := s.accountRepo.Deactivate(ctx, accountID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAccountNotFound
	}
	return nil
}
