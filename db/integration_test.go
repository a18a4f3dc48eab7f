package database_test

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	database "github.com/sebuszqo/PortfolioTracker/db"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/ledger"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/models"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/pricing"
	transactions "github.com/sebuszqo/PortfolioTracker/internal/portfolio/transaction"
)

var testDB *sql.DB

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("portfolio_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("could not build connection string: %v", err)
	}

	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		log.Fatalf("could not open connection: %v", err)
	}
	if err := database.EnsureSchema(testDB); err != nil {
		log.Fatalf("could not apply schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func requireDB(t *testing.T) *sql.DB {
	t.Helper()
	if testDB == nil {
		t.Skip("skipping integration test in short mode")
	}
	return testDB
}

type fixture struct {
	userID    string
	accountID int64
	assetID   int64
}

func newFixture(t *testing.T, db *sql.DB) fixture {
	t.Helper()
	ctx := context.Background()

	userID := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (user_id, email, password_hash) VALUES ($1, $2, 'x')`,
		userID, userID+"@example.com")
	require.NoError(t, err)

	var accountID int64
	err = db.QueryRowContext(ctx,
		`INSERT INTO accounts (user_id, name, type, currency) VALUES ($1, 'Broker', 'brokerage', 'USD')
         RETURNING account_id`, userID).Scan(&accountID)
	require.NoError(t, err)

	var assetID int64
	err = db.QueryRowContext(ctx,
		`INSERT INTO assets (ticker, name, currency, type) VALUES ('AAPL', 'Apple', 'USD', 'stock')
         RETURNING asset_id`).Scan(&assetID)
	require.NoError(t, err)

	return fixture{userID: userID, accountID: accountID, assetID: assetID}
}

func TestUpsertPrice_SecondWriteOverwrites(t *testing.T) {
	db := requireDB(t)
	fx := newFixture(t, db)
	repo := pricing.NewPriceRepository(db)
	ctx := context.Background()

	observed := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertPrice(ctx, fx.assetID, observed, decimal.NewFromInt(100)))
	require.NoError(t, repo.UpsertPrice(ctx, fx.assetID, observed, decimal.NewFromInt(105)))

	var count int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM price_history WHERE asset_id = $1`, fx.assetID).Scan(&count))
	assert.Equal(t, 1, count, "same (asset, date) key must stay a single row")

	prices, err := repo.LatestPrices(ctx, []int64{fx.assetID})
	require.NoError(t, err)
	assert.True(t, prices[fx.assetID].Equal(decimal.NewFromInt(105)), "last write wins")
}

func TestConsolidateHistory_KeepsLatestIntradayRowPerPastDay(t *testing.T) {
	db := requireDB(t)
	fx := newFixture(t, db)
	repo := pricing.NewPriceRepository(db)
	ctx := context.Background()

	pastDay := time.Now().UTC().AddDate(0, 0, -2)
	morning := time.Date(pastDay.Year(), pastDay.Month(), pastDay.Day(), 9, 0, 0, 0, time.UTC)
	evening := time.Date(pastDay.Year(), pastDay.Month(), pastDay.Day(), 18, 0, 0, 0, time.UTC)
	today := time.Now().UTC()

	require.NoError(t, repo.UpsertPrice(ctx, fx.assetID, morning, decimal.NewFromInt(90)))
	require.NoError(t, repo.UpsertPrice(ctx, fx.assetID, evening, decimal.NewFromInt(95)))
	require.NoError(t, repo.UpsertPrice(ctx, fx.assetID, today, decimal.NewFromInt(99)))

	removed, err := repo.ConsolidateHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed, "only the superseded intraday row is removed")

	points, err := repo.ListByAssets(ctx, []int64{fx.assetID})
	require.NoError(t, err)
	require.Len(t, points[fx.assetID], 2)
	assert.True(t, points[fx.assetID][0].Price.Equal(decimal.NewFromInt(95)),
		"the latest intraday observation survives")
	assert.True(t, points[fx.assetID][1].Price.Equal(decimal.NewFromInt(99)),
		"current-day rows are never consolidated")
}

func TestCashBalances_ActiveRowsOnly(t *testing.T) {
	db := requireDB(t)
	fx := newFixture(t, db)
	repo := transactions.NewTransactionRepository(db)
	ctx := context.Background()

	insert := func(amount string, txType string, active bool) {
		_, err := db.ExecContext(ctx,
			`INSERT INTO transactions (account_id, category, date, amount, type, is_active)
             VALUES ($1, 'General', now(), $2, $3, $4)`,
			fx.accountID, amount, txType, active)
		require.NoError(t, err)
	}
	insert("1000", models.TransactionIncome, true)
	insert("300", models.TransactionExpense, true)
	insert("500", models.TransactionExpense, false)

	balances, err := repo.CashBalances(ctx, fx.userID)
	require.NoError(t, err)
	assert.True(t, balances[fx.accountID].Equal(decimal.NewFromInt(700)),
		"deactivated rows must not move the balance, got %s", balances[fx.accountID])
}

func TestCreateWithCashMirror_Atomic(t *testing.T) {
	db := requireDB(t)
	fx := newFixture(t, db)
	repo := ledger.NewLedgerRepository(db)
	ctx := context.Background()

	operation := &models.Operation{
		AssetID:   fx.assetID,
		AccountID: fx.accountID,
		Date:      time.Now().UTC(),
		Quantity:  decimal.NewFromInt(10),
		Price:     decimal.NewFromInt(100),
		Fees:      decimal.NewFromInt(5),
		Type:      models.OperationBuy,
	}
	mirror := &models.Transaction{
		AccountID:   fx.accountID,
		Category:    "Investment",
		Date:        operation.Date,
		Amount:      decimal.NewFromInt(1005),
		Type:        models.TransactionExpense,
		Description: "BUY 10 Apple",
	}
	require.NoError(t, repo.CreateWithCashMirror(ctx, operation, mirror))
	assert.NotZero(t, operation.ID)

	ops, err := repo.ListByUser(ctx, fx.userID)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.True(t, ops[0].Quantity.Equal(decimal.NewFromInt(10)))

	// the mirror violates a check constraint, so neither row may land
	badOp := &models.Operation{
		AssetID:   fx.assetID,
		AccountID: fx.accountID,
		Date:      time.Now().UTC(),
		Quantity:  decimal.NewFromInt(1),
		Price:     decimal.NewFromInt(1),
		Type:      models.OperationBuy,
	}
	badMirror := &models.Transaction{
		AccountID: fx.accountID,
		Date:      badOp.Date,
		Amount:    decimal.NewFromInt(1),
		Type:      "transfer",
	}
	require.Error(t, repo.CreateWithCashMirror(ctx, badOp, badMirror))

	ops, err = repo.ListByUser(ctx, fx.userID)
	require.NoError(t, err)
	assert.Len(t, ops, 1, "failed mirror must roll the operation back")
}
