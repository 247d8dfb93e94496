// File: src/CampApi/api.go

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gaia-dao/campaigns/src/CampApi/config"
	"github.com/gaia-dao/campaigns/src/CampApi/data"
	"github.com/gaia-dao/campaigns/src/CampApi/externalize"
	"github.com/gaia-dao/campaigns/src/CampApi/webserver"
	"github.com/gaia-dao/campaigns/src/campchain"
)

func main() {
	// Connect to database first
	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "dev:test@tcp(localhost:3306)/campaigns"
	}
	db := data.MustMySQL(mysqlDSN)

	if err := data.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	cfg := config.Load(db)
	rdb := data.MustRedis(cfg.RedisURL)

	if cfg.JWTSecret == "" {
		log.Fatalf("JWT_SECRET is not set")
	}

	ctx, cancel := context.WithCancel(context.Background())

	store := data.NewCampaignStore(db)

	// Chain wiring is optional: without it the API still serves the
	// primary store, but filled campaigns stay queued in the outbox.
	var deps webserver.Deps
	if cfg.RPCURL != "" && cfg.ManagerAddress != "" {
		chain, err := campchain.NewClient(ctx, cfg.RPCURL, cfg.ManagerAddress, cfg.SignerKey, cfg.RPCTimeout)
		if err != nil {
			log.Printf("Warning: chain client unavailable: %v", err)
		} else {
			deps.Chain = chain
			deps.Scanner = campchain.NewScanner(chain, cfg.ScanWorkers, cfg.RPCTimeout)
			worker := externalize.NewWorker(store, chain, rdb)
			deps.Worker = worker
			go worker.Run(ctx, cfg.OutboxInterval)
		}
	} else {
		log.Printf("Warning: RPC_URL or CAMPAIGN_MANAGER_ADDRESS not configured, externalization disabled")
	}

	router := webserver.New(cfg, db, rdb, deps)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()

	log.Printf("Campaigns API listening on %s", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}
