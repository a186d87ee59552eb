package main

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dayoonc/finbook/internal/api"
	"github.com/dayoonc/finbook/internal/config"
	"github.com/dayoonc/finbook/internal/logger"
	"github.com/dayoonc/finbook/internal/service"
	"github.com/dayoonc/finbook/internal/store"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}

	ctx := context.Background()

	var st store.Store
	if cfg.DemoMode {
		log.Warn().Msg("running in demo mode with the in-memory store")
		st = store.NewMemory()
	} else {
		pg, err := store.NewPostgres(ctx, cfg.DBSource)
		if err != nil {
			log.Fatal().Err(err).Msg("unable to connect to database")
		}
		defer pg.Close()
		st = pg
	}

	billing := service.NewBilling(st, log)
	writer := service.NewTxWriter(billing)
	accounts := service.NewAccounts(st, log)
	transactions := service.NewTransactions(st, writer, log)
	ingestor := service.NewIngestor(st, writer, log)
	scheduler := service.NewScheduler(st, writer, log)

	handler := api.NewHandler(accounts, transactions, ingestor, scheduler, billing, log)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", handler.HealthCheck)
	handler.Routes(r.PathPrefix("/api/v1").Subrouter())

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
