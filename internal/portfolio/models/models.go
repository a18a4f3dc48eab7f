package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OperationBuy  = "buy"
	OperationSell = "sell"

	TransactionIncome  = "income"
	TransactionExpense = "expense"

	// ThemeUnclassified is the grouping bucket for assets without a theme.
	ThemeUnclassified = "Unclassified"
)

// Account owns operations and cash transactions. Deactivation is a soft
// tombstone; every aggregation filters on is_active explicitly.
type Account struct {
	ID        int64     `json:"account_id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`
}

// Asset is a tradable instrument, shared across accounts and users.
// At least one of Ticker/ISIN must be present.
type Asset struct {
	ID       int64  `json:"asset_id"`
	Ticker   string `json:"ticker,omitempty"`
	ISIN     string `json:"isin,omitempty"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Theme    string `json:"theme"`
	Type     string `json:"type"`
	IsActive bool   `json:"is_active"`
}

// Identifier returns the symbol used for market-data lookups, preferring
// the ISIN when present.
func (a Asset) Identifier() string {
	if a.ISIN != "" {
		return a.ISIN
	}
	return a.Ticker
}

// Operation is an immutable buy or sell of an asset in an account.
// Quantity and price are always positive; the sign of the effect on the
// position is derived from Type.
type Operation struct {
	ID        int64           `json:"operation_id"`
	AssetID   int64           `json:"asset_id"`
	AccountID int64           `json:"account_id"`
	Date      time.Time       `json:"date"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Fees      decimal.Decimal `json:"fees"`
	Type      string          `json:"operation_type"`
}

// Transaction is a cash movement in an account. Soft-deactivated rows
// stay in the table but are excluded from every balance.
type Transaction struct {
	ID          int64           `json:"transaction_id"`
	AccountID   int64           `json:"account_id"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	IsActive    bool            `json:"is_active"`
}

// PricePoint is an observed price for an asset on a date, unique per
// (asset, date). Later inserts for the same key overwrite the price.
type PricePoint struct {
	ID      int64           `json:"price_id"`
	AssetID int64           `json:"asset_id"`
	Date    time.Time       `json:"date"`
	Price   decimal.Decimal `json:"price"`
}

// RebalanceTarget is a user's desired weight for an asset, in percent.
type RebalanceTarget struct {
	RebalanceID      int64           `json:"rebalance_id"`
	UserID           string          `json:"-"`
	AssetID          int64           `json:"asset_id"`
	TargetPercentage decimal.Decimal `json:"target_percentage"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
