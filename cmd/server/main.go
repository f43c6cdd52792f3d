package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"zuripay/internal/api"
	"zuripay/internal/assets"
	"zuripay/internal/blockchain"
	"zuripay/internal/blockchain/evm"
	"zuripay/internal/blockchain/solana"
	"zuripay/internal/config"
	"zuripay/internal/ledger"
	"zuripay/internal/metrics"
	"zuripay/internal/service"
	"zuripay/internal/store"
	"zuripay/internal/worker"
	"zuripay/internal/zcash"
)

func main() {
	logger, err := initLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting ZuriPay coordinator")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Configuration loaded",
		zap.Int("server_port", cfg.Server.Port),
		zap.Bool("live_clients", cfg.LiveClients),
		zap.String("burn_policy", cfg.BurnPolicy))

	paymentStore := store.NewPaymentStore()
	m := metrics.New()

	registry, closeClients, err := buildChainRegistry(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize chain clients", zap.Error(err))
	}
	defer closeClients()

	intentLedger := buildLedger(cfg, logger)
	burner := buildBurner(cfg, logger)

	feeService := service.NewFeeService(cfg.Fees.FeeBps)
	paymentService := service.NewPaymentService(paymentStore, registry, feeService, m, logger)

	logger.Info("Services initialized")

	apiHandler := api.NewHandler(paymentService, logger)
	router := api.SetupRouter(apiHandler, m, logger)

	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", serverAddr))
		serverErrors <- httpServer.ListenAndServe()
	}()

	workerManager := worker.NewManager(paymentStore, registry, burner, intentLedger, m, cfg, logger)
	workerManager.Start()

	logger.Info("Service initialized successfully",
		zap.String("status", "ready"),
		zap.Int("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal("HTTP server error", zap.Error(err))
	case sig := <-quit:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	logger.Info("Shutting down service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := workerManager.Shutdown(10 * time.Second); err != nil {
		logger.Error("Worker shutdown error", zap.Error(err))
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
		httpServer.Close()
	} else {
		logger.Info("HTTP server stopped gracefully")
	}

	logger.Info("Service stopped successfully")
}

// buildChainRegistry selects live RPC clients or deterministic stubs for both
// chain families.
func buildChainRegistry(cfg *config.Config, logger *zap.Logger) (*blockchain.Registry, func(), error) {
	registry := blockchain.NewRegistry()

	if !cfg.LiveClients {
		registry.Register(assets.FamilyEthereum,
			blockchain.StubVerifier{},
			blockchain.StubExecutor{Prefix: "0x"},
			blockchain.StubCollectors{Prefix: "0x"})
		registry.Register(assets.FamilySolana,
			blockchain.StubVerifier{},
			blockchain.StubExecutor{Prefix: "sol"},
			blockchain.StubCollectors{Prefix: "So1"})
		logger.Info("Chain clients stubbed")
		return registry, func() {}, nil
	}

	ethClient, err := evm.NewClient(cfg.Eth.RPCEndpoint, cfg.Eth.USDCContractAddress, cfg.Eth.SolverPrivateKey, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create EVM client: %w", err)
	}
	solClient, err := solana.NewClient(cfg.Sol.RPCEndpoint, cfg.Sol.SolverPrivateKey, logger)
	if err != nil {
		ethClient.Close()
		return nil, nil, fmt.Errorf("failed to create Solana client: %w", err)
	}

	registry.Register(assets.FamilyEthereum, ethClient, ethClient, ethClient)
	registry.Register(assets.FamilySolana, solClient, solClient, solClient)
	logger.Info("Live chain clients initialized")

	return registry, func() { ethClient.Close() }, nil
}

// buildLedger returns the NEAR-backed ledger with a local fallback when a
// signer sidecar is configured, or a pure in-memory ledger otherwise.
func buildLedger(cfg *config.Config, logger *zap.Logger) ledger.Ledger {
	local := ledger.NewMemoryLedger(logger)
	if cfg.Near.SignerURL == "" {
		logger.Info("Intent ledger running in-memory")
		return local
	}

	remote := ledger.NewNearLedger(cfg.Near.NodeURL, cfg.Near.ContractID, cfg.Near.SignerURL, logger)
	logger.Info("Intent ledger backed by NEAR",
		zap.String("contract_id", cfg.Near.ContractID),
		zap.String("node_url", cfg.Near.NodeURL))
	return ledger.NewResilientLedger(remote, local, logger)
}

// buildBurner returns the lightwalletd-backed burner when configured, or the
// deterministic stub.
func buildBurner(cfg *config.Config, logger *zap.Logger) zcash.Burner {
	if cfg.Zcash.LightClientURL == "" {
		logger.Info("Zcash burner stubbed")
		return zcash.StubBurner{}
	}

	logger.Info("Zcash burner backed by light client sidecar",
		zap.String("url", cfg.Zcash.LightClientURL))
	return zcash.NewLightClient(cfg.Zcash.LightClientURL, cfg.Zcash.APIKey, cfg.Zcash.BurnAddress, logger)
}

func initLogger() (*zap.Logger, error) {
	env := os.Getenv("ENV")
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
