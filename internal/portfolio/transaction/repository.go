package transactions

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/models"
)

type Repository interface {
	Create(ctx context.Context, transaction *models.Transaction) error
	ListByUser(ctx context.Context, userID string) ([]models.Transaction, error)
	CashBalances(ctx context.Context, userID string) (map[int64]decimal.Decimal, error)
	Deactivate(ctx context.Context, userID string, transactionID int64) (int64, error)
}

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) Repository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	query := `INSERT INTO transactions (account_id, category, date, amount, type, description, created_at, is_active)
              VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
              RETURNING transaction_id`
	transaction.CreatedAt = time.Now()
	transaction.IsActive = true
	return r.db.QueryRowContext(ctx, query, transaction.AccountID, transaction.Category, transaction.Date,
		transaction.Amount, transaction.Type, transaction.Description, transaction.CreatedAt).
		Scan(&transaction.ID)
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	parsedID, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	query := `SELECT t.transaction_id, t.account_id, COALESCE(t.category, ''), t.date, t.amount, t.type,
                     COALESCE(t.description, ''), t.created_at, t.is_active
              FROM transactions t
              JOIN accounts ac ON ac.account_id = t.account_id
              WHERE ac.user_id = $1
              ORDER BY t.date DESC`

	rows, err := r.db.QueryContext(ctx, query, parsedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Category, &t.Date, &t.Amount, &t.Type,
			&t.Description, &t.CreatedAt, &t.IsActive); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// CashBalances sums active transactions per account: income positive,
// expense negative. Deactivated rows are tombstones and never counted.
func (r *transactionRepository) CashBalances(ctx context.Context, userID string) (map[int64]decimal.Decimal, error) {
	parsedID, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	query := `SELECT t.account_id,
                     SUM(CASE WHEN t.type = 'income' THEN t.amount ELSE -t.amount END)
              FROM transactions t
              JOIN accounts ac ON ac.account_id = t.account_id
              WHERE ac.user_id = $1 AND t.is_active = TRUE
              GROUP BY t.account_id`

	rows, err := r.db.QueryContext(ctx, query, parsedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var accountID int64
		var balance decimal.Decimal
		if err := rows.Scan(&accountID, &balance); err != nil {
			return nil, err
		}
		balances[accountID] = balance
	}
	return balances, rows.Err()
}

func (r *transactionRepository) Deactivate(ctx context.Context, userID string, transactionID int64) (int64, error) {
	parsedID, err := uuid.Parse(userID)
	if err != nil {
		return 0, err
	}
	query := `UPDATE transactions t SET is_active = FALSE
              FROM accounts ac
              WHERE t.transaction_id = $1 AND ac.account_id = t.account_id AND ac.user_id = $2
                AND t.is_active = TRUE`
	result, err := r.db.ExecContext(ctx, query, transactionID, parsedID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
