package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/canchalibre/market/internal/cache"
	"github.com/canchalibre/market/internal/config"
	"github.com/canchalibre/market/internal/httpx"
	kafkax "github.com/canchalibre/market/internal/kafka"
	"github.com/canchalibre/market/internal/market"
	"github.com/canchalibre/market/internal/postgres"
	"github.com/canchalibre/market/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// schema first, then the pool
	if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// one producer per topic
	pReq := kafkax.NewProducer(cfg.KafkaBrokers, market.TopicRequestEvents, 1024)
	pReq.Start(ctx)
	pChk := kafkax.NewProducer(cfg.KafkaBrokers, market.TopicCheckout, 1024)
	pChk.Start(ctx)
	pRej := kafkax.NewProducer(cfg.KafkaBrokers, market.TopicStockRejected, 1024)
	pRej.Start(ctx)

	store := &market.Repo{DB: db}
	router := httpx.NewRouter()

	rh := &httpx.RequestsHandler{
		Store:    store,
		Producer: pReq,
		Rejected: pRej,
		Redis:    rdb,
		Service:  cfg.ServiceName,
	}
	rh.Register(router)

	ch := &httpx.CartHandler{
		Store:    store,
		Cache:    &cache.RedisCache{Client: rdb},
		Requests: pReq,
		Checkout: pChk,
		Rejected: pRej,
		Service:  cfg.ServiceName,
	}
	ch.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	pReq.Close()
	pChk.Close()
	pRej.Close()
	cancel()
	pReq.WaitClosed()
	pChk.WaitClosed()
	pRej.WaitClosed()
}
