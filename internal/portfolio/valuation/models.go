package valuation

import (
	"fmt"

	"github.com/shopspring/decimal"

	portfolioErrors "github.com/sebuszqo/PortfolioTracker/internal/portfolio/errors"
)

// GroupBy is the closed set of allocation grouping dimensions. An
// unrecognized key is rejected on every call path, never silently
// defaulted.
type GroupBy string

const (
	GroupByAsset GroupBy = "asset"
	GroupByTheme GroupBy = "theme"
	GroupByType  GroupBy = "type"
)

func ParseGroupBy(raw string) (GroupBy, error) {
	groupBy := GroupBy(raw)
	if err := groupBy.Validate(); err != nil {
		return "", err
	}
	return groupBy, nil
}

func (g GroupBy) Validate() error {
	switch g {
	case GroupByAsset, GroupByTheme, GroupByType:
		return nil
	}
	return portfolioErrors.NewValidationError(fmt.Sprintf("group_by must be 'asset', 'theme' or 'type', got %q", string(g)))
}

// AccountBalance is one row of the balances view: cash from active
// transactions, invested from held positions at their latest price.
type AccountBalance struct {
	AccountID     int64           `json:"account_id"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Currency      string          `json:"currency"`
	CashBalance   decimal.Decimal `json:"cash_balance"`
	InvestedValue decimal.Decimal `json:"invested_value"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// AllocationGroup is one row of the allocation breakdown. AllocationPct
// is a fraction of the grand total, kept as a decimal until presentation.
type AllocationGroup struct {
	GroupKey      string          `json:"group_key"`
	TotalValue    decimal.Decimal `json:"total_value"`
	AllocationPct decimal.Decimal `json:"allocation_pct"`
	AssetCount    int             `json:"asset_count"`
}
