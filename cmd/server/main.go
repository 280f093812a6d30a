package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Clemergorges/globalsecure-sub002/configs"
	"github.com/Clemergorges/globalsecure-sub002/internal/handlers"
	"github.com/Clemergorges/globalsecure-sub002/internal/limits"
	"github.com/Clemergorges/globalsecure-sub002/internal/logger"
	"github.com/Clemergorges/globalsecure-sub002/internal/money"
	"github.com/Clemergorges/globalsecure-sub002/internal/quote"
	"github.com/Clemergorges/globalsecure-sub002/internal/routes"
	"github.com/Clemergorges/globalsecure-sub002/internal/seed"
	"github.com/Clemergorges/globalsecure-sub002/internal/settlement"
	"github.com/Clemergorges/globalsecure-sub002/internal/store"
	"go.uber.org/zap"
)

func main() {
	logger.Init()
	defer logger.Log.Sync()

	configs.LoadConfig()
	store.NewDB()
	store.DBMigrate()
	seed.Run()

	durable := store.NewLedger(store.DB)
	quoter := quote.NewQuoter(configs.Rates(), configs.Fees(), configs.QuoteValidity())
	quotes := quote.NewStore()
	checker := limits.NewChecker(configs.LimitTable(), configs.LimitLocation(), durable)

	core := settlement.New(settlement.Deps{
		Quoter:      quoter,
		Quotes:      quotes,
		Checker:     checker,
		Ledger:      durable,
		Tiers:       durable,
		Recorder:    durable,
		RefCurrency: money.Currency(configs.AppConfig.Limits.ReferenceCurrency),
		Clock:       time.Now,
		Log:         logger.Log,
	})
	handlers.Init(core)

	router := routes.NewRoutes()

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	}()

	// Expired quotes are only garbage; sweep them so the registry stays small.
	sweep := time.NewTicker(time.Minute)
	defer sweep.Stop()
	go func() {
		for range sweep.C {
			if n := quotes.PurgeExpired(time.Now()); n > 0 {
				logger.Log.Debug("purged expired quotes", zap.Int("count", n))
			}
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("graceful shutdown failed", zap.Error(err))
	}

	sqlDB, err := store.DB.DB()
	if err != nil {
		logger.Log.Error("db close skipped, reason:", zap.Error(err))
	} else {
		sqlDB.Close()
		logger.Log.Info("db closed")
	}

	logger.Log.Info("server stopped")
}
