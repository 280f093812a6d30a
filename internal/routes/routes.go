package routes

import (
	"net/http"

	"github.com/Clemergorges/globalsecure-sub002/internal/handlers"
	appmw "github.com/Clemergorges/globalsecure-sub002/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

func NewRoutes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Post("/auth/login", handlers.LoginHandler)
	r.With(appmw.Authenticated).Get("/auth/me", handlers.MeHandler)

	r.With(appmw.Authenticated).Get("/accounts", handlers.GetAccountsHandler)
	r.With(appmw.Authenticated).Get("/accounts/{id}/balances", handlers.AccountBalanceHandler)
	r.With(appmw.Authenticated).Get("/accounts/{id}/movements", handlers.MovementsHandler)

	r.With(appmw.Authenticated).Post("/quotes", handlers.QuoteHandler)
	r.With(appmw.Authenticated).Post("/transfers", handlers.TransferHandler)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}
