package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"settlement-backend/internal/clients"
	"settlement-backend/internal/config"
	"settlement-backend/internal/db"
	"settlement-backend/internal/events"
	"settlement-backend/internal/handlers"
	"settlement-backend/internal/models"
	"settlement-backend/internal/repository"
	"settlement-backend/internal/router"
	"settlement-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// .env is optional; production supplies real environment variables
	_ = godotenv.Load()

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(level)
	}

	if err := config.LoadConfig(os.Getenv("CONFIG_PATH")); err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	cfg := config.AppConfig

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	database, err := db.Connect(cfg.Database.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	// Repositories
	merchantRepo := repository.NewMerchantRepository(database)
	paymentRepo := repository.NewPaymentRepository(database)
	transferRepo := repository.NewTransferRepository(database)
	payoutRepo := repository.NewPayoutRepository(database)

	// Chain clients, one per enabled chain
	var chainClients []clients.ChainClient
	for chainName, chainConfig := range cfg.Chains {
		if !chainConfig.Enabled {
			continue
		}
		chain := models.Chain(chainName)
		cc := chainConfig

		var client clients.ChainClient
		if chain.IsEVM() {
			client, err = clients.NewEVMClient(chain, &cc)
		} else {
			client, err = clients.NewSolanaClient(&cc)
		}
		if err != nil {
			logrus.WithError(err).WithField("chain", chain).Fatal("Failed to initialize chain client")
		}
		chainClients = append(chainClients, client)
		logrus.WithField("chain", chain).Info("Chain client initialized")
	}
	registry := clients.NewChainClientRegistry(chainClients...)

	bridgeClient := clients.NewCircleBridgeClient(cfg.Circle)

	// Services
	payoutService := services.NewPayoutService(merchantRepo, payoutRepo, registry)
	paymentService := services.NewPaymentService(database, merchantRepo, paymentRepo, transferRepo)
	bridgeService := services.NewBridgeService(database, paymentRepo, transferRepo, bridgeClient, payoutService, cfg.CustodialAddresses())
	merchantService := services.NewMerchantService(merchantRepo)

	// Optional NATS deposit listener
	var depositListener *events.DepositListener
	if cfg.NATS.Enabled {
		depositListener, err = events.NewDepositListener(cfg.NATS.URL, cfg.NATS.DepositSubject, paymentService, bridgeService)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to connect deposit listener")
		}
		if err := depositListener.Start(); err != nil {
			logrus.WithError(err).Fatal("Failed to start deposit listener")
		}
		defer depositListener.Close()
	}

	// HTTP server
	merchantHandler := handlers.NewMerchantHandler(merchantService, payoutService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, bridgeService)
	transferHandler := handlers.NewTransferHandler(bridgeService)

	engine := router.SetupRouter(database, merchantHandler, paymentHandler, transferHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logrus.WithField("addr", addr).Info("Settlement backend listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Forced shutdown")
	}
}
