package pricing

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/models"
)

type Repository interface {
	UpsertPrice(ctx context.Context, assetID int64, date time.Time, price decimal.Decimal) error
	ListByAssets(ctx context.Context, assetIDs []int64) (map[int64][]models.PricePoint, error)
	LatestPrices(ctx context.Context, assetIDs []int64) (map[int64]decimal.Decimal, error)
	ConsolidateHistory(ctx context.Context) (int64, error)
}

type priceRepository struct {
	db *sql.DB
}

func NewPriceRepository(db *sql.DB) Repository {
	return &priceRepository{db: db}
}

// UpsertPrice inserts an observation keyed by (asset, date). A second
// insert for the same key overwrites the price, so refresh retries are
// idempotent and last-write-wins.
func (r *priceRepository) UpsertPrice(ctx context.Context, assetID int64, date time.Time, price decimal.Decimal) error {
	query := `INSERT INTO price_history (asset_id, date, price)
              VALUES ($1, $2, $3)
              ON CONFLICT (asset_id, date)
              DO UPDATE SET price = EXCLUDED.price`
	_, err := r.db.ExecContext(ctx, query, assetID, date, price)
	return err
}

// ListByAssets returns every observation for the given assets, ascending
// by date per asset, the order the resolver expects.
func (r *priceRepository) ListByAssets(ctx context.Context, assetIDs []int64) (map[int64][]models.PricePoint, error) {
	points := make(map[int64][]models.PricePoint)
	if len(assetIDs) == 0 {
		return points, nil
	}

	query := `SELECT price_id, asset_id, date, price
              FROM price_history
              WHERE asset_id = ANY($1)
              ORDER BY asset_id, date`
	rows, err := r.db.QueryContext(ctx, query, assetIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.ID, &p.AssetID, &p.Date, &p.Price); err != nil {
			return nil, err
		}
		points[p.AssetID] = append(points[p.AssetID], p)
	}
	return points, rows.Err()
}

// LatestPrices returns the most recent observation per asset.
func (r *priceRepository) LatestPrices(ctx context.Context, assetIDs []int64) (map[int64]decimal.Decimal, error) {
	prices := make(map[int64]decimal.Decimal)
	if len(assetIDs) == 0 {
		return prices, nil
	}

	query := `SELECT DISTINCT ON (asset_id) asset_id, price
              FROM price_history
              WHERE asset_id = ANY($1)
              ORDER BY asset_id, date DESC`
	rows, err := r.db.QueryContext(ctx, query, assetIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var assetID int64
		var price decimal.Decimal
		if err := rows.Scan(&assetID, &price); err != nil {
			return nil, err
		}
		prices[assetID] = price
	}
	return prices, rows.Err()
}

// ConsolidateHistory deletes intraday duplicates strictly before the
// current day, keeping exactly the latest row per (asset, day) so the
// forward-fill semantics stay intact. Returns the number of rows removed.
func (r *priceRepository) ConsolidateHistory(ctx context.Context) (int64, error) {
	query := `DELETE FROM price_history
              WHERE price_id NOT IN (
                  SELECT DISTINCT ON (asset_id, date::date) price_id
                  FROM price_history
                  ORDER BY asset_id, date::date, date DESC
              )
              AND date::date < CURRENT_DATE`
	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
