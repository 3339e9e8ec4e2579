package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/paylink/paylink/internal/api/http"
	"github.com/paylink/paylink/internal/application/account"
	"github.com/paylink/paylink/internal/application/chat"
	"github.com/paylink/paylink/internal/application/settlement"
	"github.com/paylink/paylink/internal/config"
	"github.com/paylink/paylink/internal/infrastructure/ckledger"
	"github.com/paylink/paylink/internal/infrastructure/memstore"
	"github.com/paylink/paylink/internal/infrastructure/sse"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// infrastructure
	store := memstore.New()
	ledger := ckledger.NewClient(cfg.LedgerURL, cfg.LedgerTimeout, logger)
	sseHub := sse.NewHub()

	// services
	accountSvc := account.NewService(store, cfg.SessionTTL, logger)
	chatSvc := chat.NewService(store, sseHub, logger)
	settlementSvc := settlement.NewService(store, ledger, sseHub, logger)

	// API server
	apiServer := httpapi.NewServer(accountSvc, chatSvc, settlementSvc, sseHub, logger)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	sseHub.Stop()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}
