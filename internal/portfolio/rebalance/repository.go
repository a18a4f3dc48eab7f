package rebalance

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TargetRow is one asset the user has ever transacted, left-joined with
// the stored target. Assets without a target carry a zero rebalance id
// and a zero percentage.
type TargetRow struct {
	AssetID          int64
	AssetName        string
	Ticker           string
	RebalanceID      int64
	TargetPercentage decimal.Decimal
}

type Repository interface {
	ListUserAssetTargets(ctx context.Context, userID string) ([]TargetRow, error)
	UpsertTargets(ctx context.Context, userID string, targets map[int64]decimal.Decimal) error
}

type rebalanceRepository struct {
	db *sql.DB
}

func NewRebalanceRepository(db *sql.DB) Repository {
	return &rebalanceRepository{db: db}
}

func (r *rebalanceRepository) ListUserAssetTargets(ctx context.Context, userID string) ([]TargetRow, error) {
	parsedID, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	query := `SELECT DISTINCT a.asset_id, a.name, COALESCE(a.ticker, ''),
                     COALESCE(rs.rebalance_id, 0), COALESCE(rs.target_percentage, 0)
              FROM assets a
              JOIN operations o ON o.asset_id = a.asset_id
              JOIN accounts ac ON ac.account_id = o.account_id
              LEFT JOIN rebalance_settings rs ON rs.asset_id = a.asset_id AND rs.user_id = $1
              WHERE ac.user_id = $1
              ORDER BY a.asset_id`

	rows, err := r.db.QueryContext(ctx, query, parsedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []TargetRow
	for rows.Next() {
		var row TargetRow
		if err := rows.Scan(&row.AssetID, &row.AssetName, &row.Ticker,
			&row.RebalanceID, &row.TargetPercentage); err != nil {
			return nil, err
		}
		targets = append(targets, row)
	}
	return targets, rows.Err()
}

// UpsertTargets writes the whole batch in one database transaction:
// insert where the (user, asset) row is absent, overwrite the percentage
// and refresh the timestamp where it exists. Either every row commits or
// none does, and replaying the same batch is a no-op beyond timestamps.
func (r *rebalanceRepository) UpsertTargets(ctx context.Context, userID string, targets map[int64]decimal.Decimal) error {
	parsedID, err := uuid.Parse(userID)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	query := `INSERT INTO rebalance_settings (user_id, asset_id, target_percentage, updated_at)
              VALUES ($1, $2, $3, $4)
              ON CONFLICT ON CONSTRAINT uq_user_rebalance_asset
              DO UPDATE SET target_percentage = EXCLUDED.target_percentage, updated_at = EXCLUDED.updated_at`
	now := time.Now()
	for assetID, pct := range targets {
		if _, err := tx.ExecContext(ctx, query, parsedID, assetID, pct, now); err != nil {
			safeRollback(tx)
			return err
		}
	}
	return tx.Commit()
}

func safeRollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil {
		log.Printf("Error during transaction rollback: %v", err)
	}
}
