package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	database "github.com/sebuszqo/PortfolioTracker/db"
	"github.com/sebuszqo/PortfolioTracker/internal/auth"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/account"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/asset"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/history"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/ledger"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/marketdata"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/pricing"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/rebalance"
	transactions "github.com/sebuszqo/PortfolioTracker/internal/portfolio/transaction"
	"github.com/sebuszqo/PortfolioTracker/internal/portfolio/valuation"
)

type Response struct {
	Message string `json:"message"`
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("Started %s %s", r.Method, r.URL.Path)

		next.ServeHTTP(w, r)

		log.Printf("Completed %s in %v", r.URL.Path, time.Since(start))
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"status":  "error",
		"message": message,
		"code":    status,
	})
}

type Server struct {
	router           *http.ServeMux
	jwtManager       *auth.JWTManager
	portfolioHandler *portfolio.PortfolioHandler
	dbService        *database.DBService
}

func NewServer(jwtManager *auth.JWTManager, portfolioHandler *portfolio.PortfolioHandler, dbService *database.DBService) *Server {
	return &Server{
		jwtManager:       jwtManager,
		portfolioHandler: portfolioHandler,
		dbService:        dbService,
		router:           http.NewServeMux(),
	}
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(Response{Message: "Path not found"})
}

func checkConfiguration() error {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, continuing with system environment variables")
	}

	if os.Getenv("JWT_SECRET") == "" {
		return errors.New("no JWT_SECRET Provided")
	}
	if os.Getenv("DB_CONNECTION_STRING") == "" {
		return errors.New("no DB_CONNECTION_STRING Provided")
	}
	return nil
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	health := s.dbService.Health()
	status := http.StatusOK
	if health["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, health)
}

func (s *Server) RegisterRoutes() {
	// Public routes
	publicRoutes := http.NewServeMux()
	publicRoutes.Handle("GET /api/ready", http.HandlerFunc(s.handleReady))

	// Protected routes (using JWT Access Token Middleware)
	protectedRoutes := http.NewServeMux()

	// ACCOUNTS API
	protectedRoutes.Handle("POST /api/protected/accounts",
		s.jwtManager.JWTAccessTokenMiddleware()(http.HandlerFunc(s.portfolioHandler.CreateAccount)))

	protectedRoutes.Handle("GET /api/protected/accounts",
		s.jwtManager.JWTAccessTokenMiddleware()(http.HandlerFunc(s.portfolioHandler.GetAccounts)))

	protectedRoutes.Handle("GET /api/protected/accounts/{accountID}",
		s.jwtManager.JWTAccessTokenMiddleware()(http.HandlerFunc(s.portfolioHandler.GetAccountBalance)))

	protectedRoutes.Handle("DELETE /api/protected/accounts/{accountID}",
		s.jwtManager.JWTAccessTokenMiddleware()(http.HandlerFunc(s.portfolioHandler.DeleteAccount)))

	// ALLOCATION API
	protectedRoutes.Handle("GET /api/protected/allocation/{groupBy}",
		s.jwtManager.JWTAccessTokenMiddleware()(http.HandlerFunc(s.portfolioHandler.GetGlobalAllocation)))

	protectedRoutes.Handle("GET /api/protected/allocation/{groupBy}/accounts/{accountID}",
		s.jwtManager.JWTAccessTokenMiddleware()(http.HandlerFunc(s.portfolioHandler.GetAccountAllocation)))

	// TRANSACTIONS API
	protectedRoutes.Handle("POST /api/protected/transactions",
		s.jwtManager.JWTAccessTokenMiddleware()(http.HandlerFunc(s.portfolioHandler.CreateTransaction)))

	protectedRoutes.Handle("GET /api/protected/transactions",
		s.jwtManager.JWTAccessTokenMiddleware()(http.HandlerFunc(s.portfolioHandler.GetTransactions)))

	protectedRoutes.Handle("DELETE /api/protected/transactions/{transactionID}",
		s.jwtManager.JWTAccessTokenMiddleware()(http.HandlerFunc(s.portfolioHandler.DeleteTransaction)))

	// OPERATIONS API
	protectedRoutes.Handle("POST /api/protected/operations",
		s.jwtManager.JWTAccessTokenMiddleware()(http.HandlerFunc(s.portfolioHandler.RecordOperation)))

	protectedRoutes.Handle("GET /api/protected/operations",
		s.jwtManager.JWTAccessTokenMiddleware()(http.HandlerFunc(s.portfolioHandler.GetOperations)))

	// ASSETS API
	protectedRoutes.Handle("POST /api/protected/assets",
		s.jwtManager.JWTAccessTokenMiddleware()(http.HandlerFunc(s.portfolioHandler.CreateAsset)))

	// HISTORY API
	protectedRoutes.Handle("GET /api/protected/history/growth",
		s.jwtManager.JWTAccessTokenMiddleware()(http.HandlerFunc(s.portfolioHandler.GetPortfolioGrowth)))

	// REBALANCE API
	protectedRoutes.Handle("GET /api/protected/rebalance",
		s.jwtManager.JWTAccessTokenMiddleware()(http.HandlerFunc(s.portfolioHandler.GetRebalanceStatus)))

	protectedRoutes.Handle("PUT /api/protected/rebalance",
		s.jwtManager.JWTAccessTokenMiddleware()(http.HandlerFunc(s.portfolioHandler.UpdateRebalanceTargets)))

	// Main router
	mainRouter := http.NewServeMux()

	mainRouter.Handle("/api/", publicRoutes)
	mainRouter.Handle("/api/protected/", protectedRoutes)
	mainRouter.Handle("/", http.HandlerFunc(notFoundHandler))

	s.router = mainRouter
}

func main() {
	if err := checkConfiguration(); err != nil {
		log.Fatalf("Missing configuration, update to start server")
	}

	dbService, err := database.NewDBService()
	if err != nil {
		log.Fatalf("Could not initialize database: %v", err)
	}
	defer dbService.Close()

	if err := database.EnsureSchema(dbService.DB); err != nil {
		log.Fatalf("Could not apply database schema: %v", err)
	}

	jwtManager := auth.NewJWTManager()
	marketDataService := marketdata.NewYahooChartClient()

	accountRepo := account.NewAccountRepository(dbService.DB)
	accountService := account.NewAccountService(accountRepo)

	assetRepo := asset.NewAssetRepository(dbService.DB)
	assetService := asset.NewAssetService(assetRepo)

	ledgerRepo := ledger.NewLedgerRepository(dbService.DB)
	ledgerService := ledger.NewLedgerService(ledgerRepo, accountService, assetService)

	transactionRepo := transactions.NewTransactionRepository(dbService.DB)
	transactionService := transactions.NewTransactionService(transactionRepo, accountService)

	priceRepo := pricing.NewPriceRepository(dbService.DB)

	valuationService := valuation.NewValuationService(ledgerRepo, priceRepo, transactionRepo, accountService, assetService)
	historyService := history.NewHistoryService(ledgerRepo, priceRepo)

	rebalanceRepo := rebalance.NewRebalanceRepository(dbService.DB)
	rebalanceService := rebalance.NewRebalanceService(rebalanceRepo, valuationService)

	portfolioHandler := portfolio.NewPortfolioHandler(
		accountService,
		assetService,
		ledgerService,
		transactionService,
		valuationService,
		historyService,
		rebalanceService,
		respondJSON,
		respondError,
	)

	server := NewServer(jwtManager, portfolioHandler, dbService)
	server.RegisterRoutes()

	refresher := pricing.NewRefresher(assetService, priceRepo, marketDataService)

	err = StartPriceScheduler(refresher)
	if err != nil {
		log.Fatalf("Scheduler didn't start, stoping the app ...")
	}
	err = StartConsolidationScheduler(refresher)
	if err != nil {
		log.Fatalf("Scheduler didn't start, stoping the app ...")
	}

	loggingMiddleware := loggingMiddleware(http.HandlerFunc(server.router.ServeHTTP))
	log.Println("Server starting on port 8080...")
	if err := http.ListenAndServe(":8080", loggingMiddleware); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func StartPriceScheduler(refresher *pricing.Refresher) error {
	c := cron.New()
	// Refresh quotes every 15 minutes, category gating decides per asset
	_, err := c.AddFunc("@every 15m", func() {
		err := refresher.UpdatePrices(context.Background())
		if err != nil {
			log.Printf("Error updating asset pricing: %v", err)
		} else {
			log.Println("Assets prices updated successfully.")
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	return nil
}

func StartConsolidationScheduler(refresher *pricing.Refresher) error {
	c := cron.New()
	// Keep one row per asset per past day, shortly after midnight
	_, err := c.AddFunc("1 0 * * *", func() {
		err := refresher.Consolidate(context.Background())
		if err != nil {
			log.Printf("Error consolidating price history: %v", err)
		} else {
			log.Println("Price history consolidated successfully.")
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	return nil
}
