package asset

import (
	"context"
	"database/sql"

	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/models"
)

type Repository interface {
	Create(ctx context.Context, asset *models.Asset) error
	FindByID(ctx context.Context, assetID int64, asset *models.Asset) error
	FindByIDs(ctx context.Context, assetIDs []int64) (map[int64]models.Asset, error)
	ListActive(ctx context.Context) ([]models.Asset, error)
}

type assetRepository struct {
	db *sql.DB
}

func NewAssetRepository(db *sql.DB) Repository {
	return &assetRepository{db: db}
}

func (r *assetRepository) Create(ctx context.Context, asset *models.Asset) error {
	query := `INSERT INTO assets (ticker, isin, name, currency, theme, type, is_active)
              VALUES (NULLIF($1, ''), NULLIF($2, ''), $3, $4, NULLIF($5, ''), $6, TRUE)
              RETURNING asset_id`
	asset.IsActive = true
	return r.db.QueryRowContext(ctx, query, asset.Ticker, asset.ISIN, asset.Name,
		asset.Currency, asset.Theme, asset.Type).Scan(&asset.ID)
}

func (r *assetRepository) FindByID(ctx context.Context, assetID int64, asset *models.Asset) error {
	query := `SELECT asset_id, COALESCE(ticker, ''), COALESCE(isin, ''), name, currency,
                     COALESCE(theme, ''), type, is_active
              FROM assets WHERE asset_id = $1`

	return r.db.QueryRowContext(ctx, query, assetID).Scan(
		&asset.ID, &asset.Ticker, &asset.ISIN, &asset.Name, &asset.Currency,
		&asset.Theme, &asset.Type, &asset.IsActive)
}

func (r *assetRepository) FindByIDs(ctx context.Context, assetIDs []int64) (map[int64]models.Asset, error) {
	assets := make(map[int64]models.Asset)
	if len(assetIDs) == 0 {
		return assets, nil
	}

	query := `SELECT asset_id, COALESCE(ticker, ''), COALESCE(isin, ''), name, currency,
                     COALESCE(theme, ''), type, is_active
              FROM assets WHERE asset_id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, assetIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a models.Asset
		if err := rows.Scan(&a.ID, &a.Ticker, &a.ISIN, &a.Name, &a.Currency,
			&a.Theme, &a.Type, &a.IsActive); err != nil {
			return nil, err
		}
		assets[a.ID] = a
	}
	return assets, rows.Err()
}

func (r *assetRepository) ListActive(ctx context.Context) ([]models.Asset, error) {
	query := `SELECT asset_id, COALESCE(ticker, ''), COALESCE(isin, ''), name, currency,
                     COALESCE(theme, ''), type, is_active
              FROM assets WHERE is_active = TRUE
              ORDER BY asset_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []models.Asset
	for rows.Next() {
		var a models.Asset
		if err := rows.Scan(&a.ID, &a.Ticker, &a.ISIN, &a.Name, &a.Currency,
			&a.Theme, &a.Type, &a.IsActive); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}
