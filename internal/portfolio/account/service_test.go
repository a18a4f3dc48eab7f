package account

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"

	portfolioErrors "github.com/sebuszqo/PortfolioTracker/internal/portfolio/errors"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/models"
)

type mockAccountRepo struct {
	accounts    map[int64]models.Account
	created     []*models.Account
	deactivated []int64
}

func (m *mockAccountRepo) Create(_ context.Context, account *models.Account) error {
	account.ID = int64(len(m.created) + 1)
	m.created = append(m.created, account)
	return nil
}

func (m *mockAccountRepo) FindByID(_ context.Context, accountID int64, dest *models.Account) error {
	account, ok := m.accounts[accountID]
	if !ok {
		return sql.ErrNoRows
	}
	*dest = account
	return nil
}

func (m *mockAccountRepo) ListActiveByUser(_ context.Context, userID string) ([]models.Account, error) {
	var out []models.Account
	for _, account := range m.accounts {
		if account.UserID == userID && account.IsActive {
			out = append(out, account)
		}
	}
	return out, nil
}

func (m *mockAccountRepo) Deactivate(_ context.Context, accountID int64) (int64, error) {
	m.deactivated = append(m.deactivated, accountID)
	return 1, nil
}

func TestCreateAccount_Valid(t *testing.T) {
	repo := &mockAccountRepo{}
	service := NewAccountService(repo)

	account, err := service.CreateAccount(context.Background(), "user-1", "Broker", "brokerage", "USD")

	assert.NoError(t, err)
	assert.Equal(t, "user-1", account.UserID)
	assert.Len(t, repo.created, 1)
}

func TestCreateAccount_Invalid(t *testing.T) {
	repo := &mockAccountRepo{}
	service := NewAccountService(repo)

	cases := []struct {
		name, accName, accType, currency string
	}{
		{"empty name", "", "brokerage", "USD"},
		{"empty type", "Broker", "", "USD"},
		{"bad currency", "Broker", "brokerage", "DOLLARS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.CreateAccount(context.Background(), "user-1", tc.accName, tc.accType, tc.currency)
			assert.True(t, portfolioErrors.IsValidationError(err), "expected validation error, got %v", err)
		})
	}
	assert.Empty(t, repo.created)
}

func TestGetOwnedAccount_ForeignReadsAsMissing(t *testing.T) {
	repo := &mockAccountRepo{accounts: map[int64]models.Account{
		1: {ID: 1, UserID: "someone-else", IsActive: true},
		2: {ID: 2, UserID: "user-1", IsActive: false},
		3: {ID: 3, UserID: "user-1", IsActive: true},
	}}
	service := NewAccountService(repo)

	_, err := service.GetOwnedAccount(context.Background(), "user-1", 1)
	assert.ErrorIs(t, err, ErrAccountNotFound, "foreign account must read like a missing one")

	_, err = service.GetOwnedAccount(context.Background(), "user-1", 2)
	assert.ErrorIs(t, err, ErrAccountNotFound, "deactivated account must read like a missing one")

	_, err = service.GetOwnedAccount(context.Background(), "user-1", 99)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	account, err := service.GetOwnedAccount(context.Background(), "user-1", 3)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), account.ID)
}

func TestDeactivateAccount_ChecksOwnershipFirst(t *testing.T) {
	repo := &mockAccountRepo{accounts: map[int64]models.Account{
		1: {ID: 1, UserID: "someone-else", IsActive: true},
	}}
	service := NewAccountService(repo)

	err := service.DeactivateAccount(context.Background(), "user-1", 1)

	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Empty(t, repo.deactivated, "foreign account must not be touched")
}
