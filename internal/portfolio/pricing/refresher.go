package pricing

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/marketdata"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/models"
)

type AssetLister interface {
	ListActiveAssets(ctx context.Context) ([]models.Asset, error)
}

type MarketDataClient interface {
	FetchLatest(ctx context.Context, identifier string) (*marketdata.Quote, error)
}

// Refresher runs the scheduled price sweep. It talks to the engine only
// through the price repository, never through in-process engine state.
type Refresher struct {
	assets AssetLister
	prices Repository
	client MarketDataClient
	now    func() time.Time
}

func NewRefresher(assets AssetLister, prices Repository, client MarketDataClient) *Refresher {
	return &Refresher{assets: assets, prices: prices, client: client, now: time.Now}
}

// shouldUpdate gates the fetch per asset category: crypto markets never
// close, equities are pointless on weekends, and funds/bonds publish one
// price a day near market close.
func shouldUpdate(assetType string, now time.Time) bool {
	isWeekend := now.Weekday() == time.Saturday || now.Weekday() == time.Sunday

	switch assetType {
	case "crypto":
		return true
	case "stock":
		return !isWeekend
	case "fund", "bond":
		return now.Hour() == 23 && now.Minute() < 15
	}
	return true
}

// UpdatePrices fetches a fresh price for every eligible active asset and
// upserts it keyed by (asset, date). A failed asset is logged and skipped;
// the sweep itself never fails because one identifier did not resolve.
func (r *Refresher) UpdatePrices(ctx context.Context) error {
	assets, err := r.assets.ListActiveAssets(ctx)
	if err != nil {
		return err
	}
	if len(assets) == 0 {
		log.Println("No active assets to update")
		return nil
	}

	now := r.now()
	var wg sync.WaitGroup
	var mu sync.Mutex
	var notFound []string

	maxGoroutines := 10
	sem := make(chan struct{}, maxGoroutines)

	for _, asset := range assets {
		identifier := asset.Identifier()
		if identifier == "" {
			continue
		}
		if !shouldUpdate(asset.Type, now) {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(a models.Asset, identifier string) {
			defer wg.Done()
			defer func() { <-sem }()

			quote, err := r.client.FetchLatest(ctx, identifier)
			if err != nil {
				mu.Lock()
				notFound = append(notFound, identifier)
				mu.Unlock()
				return
			}

			if err := r.prices.UpsertPrice(ctx, a.ID, quote.Date, quote.Price); err != nil {
				log.Printf("Error storing price for %s: %v", quote.Symbol, err)
				return
			}
			log.Printf("%s -> %s", quote.Symbol, quote.Price.StringFixed(4))
		}(asset, identifier)
	}

	wg.Wait()

	if len(notFound) > 0 {
		log.Printf("Assets without market data: %v", notFound)
	}
	return nil
}

// Consolidate removes intraday duplicate price rows from past days,
// keeping the latest observation per (asset, day).
func (r *Refresher) Consolidate(ctx context.Context) error {
	removed, err := r.prices.ConsolidateHistory(ctx)
	if err != nil {
		return err
	}
	log.Printf("History consolidation completed, %d rows removed", removed)
	return nil
}
