package account

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/models"
)

type Repository interface {
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, accountID int64, account *models.Account) error
	ListActiveByUser(ctx context.Context, userID string) ([]models.Account, error)
	Deactivate(ctx context.Context, accountID int64) (int64, error)
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) Repository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	parsedID, err := uuid.Parse(account.UserID)
	if err != nil {
		return err
	}
	query := `INSERT INTO accounts (user_id, name, type, currency, created_at, is_active)
              VALUES ($1, $2, $3, $4, $5, TRUE)
              RETURNING account_id`
	account.CreatedAt = time.Now()
	account.IsActive = true
	return r.db.QueryRowContext(ctx, query, parsedID, account.Name, account.Type, account.Currency, account.CreatedAt).
		Scan(&account.ID)
}

func (r *accountRepository) FindByID(ctx context.Context, accountID int64, account *models.Account) error {
	query := `SELECT account_id, user_id, name, type, currency, created_at, is_active
              FROM accounts WHERE account_id = $1`

	return r.db.QueryRowContext(ctx, query, accountID).Scan(
		&account.ID, &account.UserID, &account.Name, &account.Type, &account.Currency, &account.CreatedAt, &account.IsActive)
}

func (r *accountRepository) ListActiveByUser(ctx context.Context, userID string) ([]models.Account, error) {
	parsedID, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	query := `SELECT account_id, user_id, name, type, currency, created_at, is_active
              FROM accounts
              WHERE user_id = $1 AND is_active = TRUE
              ORDER BY account_id`

	rows, err := r.db.QueryContext(ctx, query, parsedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		if err := rows.Scan(&account.ID, &account.UserID, &account.Name, &account.Type,
			&account.Currency, &account.CreatedAt, &account.IsActive); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *accountRepository) Deactivate(ctx context.Context, accountID int64) (int64, error) {
	query := `UPDATE accounts SET is_active = FALSE WHERE account_id = $1 AND is_active = TRUE`
	result, err := r.db.ExecContext(ctx, query, accountID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
