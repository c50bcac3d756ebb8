package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/canchalibre/market/internal/config"
	kafkax "github.com/canchalibre/market/internal/kafka"
	"github.com/canchalibre/market/internal/market"
	"github.com/canchalibre/market/internal/projector"
	"github.com/canchalibre/market/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &projector.Service{
		Store:       &projector.RedisStore{Client: rdb, Service: "projector"},
		ServiceName: cfg.ServiceName + "-projector",
	}

	group := getenv("PROJECTOR_GROUP", "market-projector")
	workers := mustAtoi(os.Getenv("PROJECTOR_WORKERS"), "8")

	reqCons := kafkax.NewConsumer(cfg.KafkaBrokers, group, market.TopicRequestEvents, workers)
	chkCons := kafkax.NewConsumer(cfg.KafkaBrokers, group, market.TopicCheckout, workers)

	go func() {
		log.Printf("projector consumer started: group=%s topic=%s workers=%d", group, market.TopicRequestEvents, workers)
		if err := reqCons.Start(ctx, svc.HandleRequestEvent); err != nil {
			log.Printf("request consumer exit: %v", err)
			cancel()
		}
	}()
	go func() {
		log.Printf("projector consumer started: group=%s topic=%s workers=%d", group, market.TopicCheckout, workers)
		if err := chkCons.Start(ctx, svc.HandleCheckoutEvent); err != nil {
			log.Printf("checkout consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Println("shutting down projector...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
