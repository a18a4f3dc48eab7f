package asset

import (
	"context"
	"database/sql"
	"errors"

	portfolioErrors "github.com/sebuszqo/PortfolioTracker/internal/portfolio/errors"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/models"
)

var ErrAssetNotFound = errors.New("asset not found")

type Service interface {
	CreateAsset(ctx context.Context, asset *models.Asset) error
	GetAssetByID(ctx context.Context, assetID int64) (*models.Asset, error)
	GetAssetsByIDs(ctx context.Context, assetIDs []int64) (map[int64]models.Asset, error)
	ListActiveAssets(ctx context.Context) ([]models.Asset, error)
}

type service struct {
	assetRepo Repository
}

func NewAssetService(repo Repository) Service {
	return &service{assetRepo: repo}
}

func (s *service) CreateAsset(ctx context.Context, asset *models.Asset) error {
	if asset.Ticker == "" && asset.ISIN == "" {
		return portfolioErrors.NewValidationError("asset needs a ticker or an ISIN")
	}
	if asset.Name == "" {
		return portfolioErrors.NewValidationError("asset name must not be empty")
	}
	if len(asset.Currency) != 3 {
		return portfolioErrors.NewValidationError("currency must be a 3-letter code")
	}
	if asset.Type == "" {
		return portfolioErrors.NewValidationError("asset type must not be empty")
	}
	return s.assetRepo.Create(ctx, asset)
}

func (s *service) GetAssetByID(ctx context.Context, assetID int64) (*models.Asset, error) {
	var asset models.Asset
	err := s.assetRepo.FindByID(ctx, assetID, &asset)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	return &asset, nil
}

func (s *service) GetAssetsByIDs(ctx context.Context, assetIDs []int64) (map[int64]models.Asset, error) {
	return s.assetRepo.FindByIDs(ctx, assetIDs)
}

func (s *service) ListActiveAssets(ctx context.Context) ([]models.Asset, error) {
	return s.assetRepo.ListActive(ctx)
}
