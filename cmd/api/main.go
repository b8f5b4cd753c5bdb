package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/paperlift/paperlift/internal/account"
	accountStore "github.com/paperlift/paperlift/internal/account/store"
	"github.com/paperlift/paperlift/internal/billing"
	billingStore "github.com/paperlift/paperlift/internal/billing/store"
	"github.com/paperlift/paperlift/internal/config"
	"github.com/paperlift/paperlift/internal/database"
	paperliftHttp "github.com/paperlift/paperlift/internal/http"
	accountHandler "github.com/paperlift/paperlift/internal/http/account"
	billingHandler "github.com/paperlift/paperlift/internal/http/billing"
	pricingHandler "github.com/paperlift/paperlift/internal/http/pricing"
	"github.com/paperlift/paperlift/internal/pricing"
	pricingStore "github.com/paperlift/paperlift/internal/pricing/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	var (
		pricingService = pricing.NewService(pricingStore.New(db))
		accountService = account.NewService(accountStore.New(db), cfg.Billing.FreeConversionGrant)
		billingService = billing.NewService(billingStore.New(db), pricingService, accountService)
	)

	var (
		accountH = accountHandler.NewHandler(accountService, billingService, cfg.Billing.Currency)
		billingH = billingHandler.NewHandler(billingService, cfg.Billing.Currency)
		pricingH = pricingHandler.NewHandler(pricingService)
	)

	router := paperliftHttp.New(accountH, billingH, pricingH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
