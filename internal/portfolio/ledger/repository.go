package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/models"
)

type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Operation, error)
	ListByAccount(ctx context.Context, userID string, accountID int64) ([]models.Operation, error)
	CreateWithCashMirror(ctx context.Context, operation *models.Operation, mirror *models.Transaction) error
}

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) Repository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) ListByUser(ctx context.Context, userID string) ([]models.Operation, error) {
	parsedID, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	query := `SELECT o.operation_id, o.asset_id, o.account_id, o.date, o.quantity, o.price, o.fees, o.operation_type
              FROM operations o
              JOIN accounts ac ON ac.account_id = o.account_id
              WHERE ac.user_id = $1
              ORDER BY o.date, o.operation_id`

	rows, err := r.db.QueryContext(ctx, query, parsedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOperations(rows)
}

func (r *ledgerRepository) ListByAccount(ctx context.Context, userID string, accountID int64) ([]models.Operation, error) {
	parsedID, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	query := `SELECT o.operation_id, o.asset_id, o.account_id, o.date, o.quantity, o.price, o.fees, o.operation_type
              FROM operations o
              JOIN accounts ac ON ac.account_id = o.account_id
              WHERE ac.user_id = $1 AND o.account_id = $2
              ORDER BY o.date, o.operation_id`

	rows, err := r.db.QueryContext(ctx, query, parsedID, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOperations(rows)
}

// CreateWithCashMirror inserts the operation and its cash-effect
// transaction in a single database transaction: either both rows commit
// or neither does.
func (r *ledgerRepository) CreateWithCashMirror(ctx context.Context, operation *models.Operation, mirror *models.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	opQuery := `INSERT INTO operations (asset_id, account_id, date, quantity, price, fees, operation_type)
                VALUES ($1, $2, $3, $4, $5, $6, $7)
                RETURNING operation_id`
	err = tx.QueryRowContext(ctx, opQuery, operation.AssetID, operation.AccountID, operation.Date,
		operation.Quantity, operation.Price, operation.Fees, operation.Type).Scan(&operation.ID)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	txQuery := `INSERT INTO transactions (account_id, category, date, amount, type, description, created_at, is_active)
                VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
                RETURNING transaction_id`
	err = tx.QueryRowContext(ctx, txQuery, mirror.AccountID, mirror.Category, mirror.Date,
		mirror.Amount, mirror.Type, mirror.Description, time.Now()).Scan(&mirror.ID)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func scanOperations(rows *sql.Rows) ([]models.Operation, error) {
	var operations []models.Operation
	for rows.Next() {
		var op models.Operation
		if err := rows.Scan(&op.ID, &op.AssetID, &op.AccountID, &op.Date,
			&op.Quantity, &op.Price, &op.Fees, &op.Type); err != nil {
			return nil, err
		}
		operations = append(operations, op)
	}
	return operations, rows.Err()
}
