package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"trading-dashboard/config"
	"trading-dashboard/internal/logger"
	"trading-dashboard/internal/service"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg := config.Load()
	logger.Init("dashboard", logger.ParseLevel(cfg.LogLevel))

	svc, err := service.New(cfg)
	if err != nil {
		log.Fatalf("[dashboard] init failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := svc.Run(ctx); err != nil {
		log.Fatalf("[dashboard] fatal: %v", err)
	}
}
