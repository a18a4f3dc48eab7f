package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/models"
)

// ResolvedPrice is a forward-filled price for one calendar day. Known is
// false for days before the asset's first observation; downstream
// valuations treat an unknown price as a zero contribution, never as an
// error.
type ResolvedPrice struct {
	Price decimal.Decimal
	Known bool
}

// DayOf truncates a timestamp to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LatestPriceAsOf returns the most recent observation dated at or before
// asOf. Points must be sorted ascending by date, the order the repository
// returns them in.
func LatestPriceAsOf(points []models.PricePoint, asOf time.Time) (decimal.Decimal, bool) {
	var price decimal.Decimal
	known := false
	for _, p := range points {
		if p.Date.After(asOf) {
			break
		}
		price = p.Price
		known = true
	}
	return price, known
}

// ForwardFill resolves a price for every day of an ascending calendar,
// carrying the last observed value across gaps. Observations arrive at
// irregular intervals, so the last traded price holds until a new one is
// observed. Points must be sorted ascending by date.
func ForwardFill(points []models.PricePoint, days []time.Time) []ResolvedPrice {
	resolved := make([]ResolvedPrice, len(days))
	idx := 0
	var last ResolvedPrice
	for i, day := range days {
		day = DayOf(day)
		for idx < len(points) && !DayOf(points[idx].Date).After(day) {
			last = ResolvedPrice{Price: points[idx].Price, Known: true}
			idx++
		}
		resolved[i] = last
	}
	return resolved
}
