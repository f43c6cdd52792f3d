package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Burn policies decide whether a shielded burn precedes the fulfillment
// intent or is skipped entirely.
const (
	BurnThenIntent = "burn-then-intent"
	IntentOnly     = "intent-only"
)

// Config holds all configuration for the service
type Config struct {
	Server ServerConfig
	Worker WorkerConfig
	Fees   FeeConfig
	Eth    EthConfig
	Sol    SolConfig
	Near   NearConfig
	Zcash  ZcashConfig

	// LiveClients selects real chain clients over the deterministic stubs.
	LiveClients bool
	// BurnPolicy orders the burn relative to intent posting.
	BurnPolicy string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
}

// WorkerConfig holds the tick intervals for the background loops
type WorkerConfig struct {
	ProcessorIntervalSeconds int
	SolverIntervalSeconds    int
}

// FeeConfig holds the service fee schedule
type FeeConfig struct {
	FeeBps int
}

// EthConfig holds Ethereum chain configuration
type EthConfig struct {
	RPCEndpoint         string
	USDCContractAddress string
	SolverPrivateKey    string
}

// SolConfig holds Solana chain configuration
type SolConfig struct {
	RPCEndpoint      string
	SolverPrivateKey string
}

// NearConfig holds the intent ledger configuration
type NearConfig struct {
	NodeURL    string
	ContractID string
	SignerURL  string
}

// ZcashConfig holds the shielded burn sidecar configuration
type ZcashConfig struct {
	LightClientURL string
	APIKey         string
	BurnAddress    string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Worker: WorkerConfig{
			ProcessorIntervalSeconds: getEnvInt("WORKER_INTERVAL_SECONDS", 10),
			SolverIntervalSeconds:    getEnvInt("SOLVER_INTERVAL_SECONDS", 10),
		},
		Fees: FeeConfig{
			FeeBps: getEnvInt("FEE_BPS", 10),
		},
		Eth: EthConfig{
			RPCEndpoint:         getEnv("ETH_RPC_URL", ""),
			USDCContractAddress: getEnv("ETH_USDC_ADDRESS", "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"),
			SolverPrivateKey:    getEnv("ETH_SOLVER_PRIVATE_KEY", ""),
		},
		Sol: SolConfig{
			RPCEndpoint:      getEnv("SOL_RPC_URL", ""),
			SolverPrivateKey: getEnv("SOL_SOLVER_PRIVATE_KEY", ""),
		},
		Near: NearConfig{
			NodeURL:    getEnv("NEAR_NODE_URL", "https://rpc.testnet.near.org"),
			ContractID: getEnv("NEAR_CONTRACT_ID", "zuripay.testnet"),
			SignerURL:  getEnv("NEAR_SIGNER_URL", ""),
		},
		Zcash: ZcashConfig{
			LightClientURL: getEnv("ZCASH_LIGHT_CLIENT_URL", ""),
			APIKey:         getEnv("ZCASH_LIGHT_CLIENT_API_KEY", ""),
			BurnAddress:    getEnv("ZCASH_BURN_ADDRESS", ""),
		},
		LiveClients: getEnvBool("LIVE_CLIENTS", false),
		BurnPolicy:  getEnv("BURN_POLICY", BurnThenIntent),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Worker.ProcessorIntervalSeconds <= 0 {
		return fmt.Errorf("invalid worker interval: %d", c.Worker.ProcessorIntervalSeconds)
	}
	if c.Worker.SolverIntervalSeconds <= 0 {
		return fmt.Errorf("invalid solver interval: %d", c.Worker.SolverIntervalSeconds)
	}

	if c.Fees.FeeBps < 0 || c.Fees.FeeBps >= 10000 {
		return fmt.Errorf("invalid fee bps: %d", c.Fees.FeeBps)
	}

	if c.BurnPolicy != BurnThenIntent && c.BurnPolicy != IntentOnly {
		return fmt.Errorf("invalid burn policy: %s", c.BurnPolicy)
	}

	if c.LiveClients {
		if c.Eth.RPCEndpoint == "" {
			return fmt.Errorf("ETH_RPC_URL is required when LIVE_CLIENTS is set")
		}
		if c.Sol.RPCEndpoint == "" {
			return fmt.Errorf("SOL_RPC_URL is required when LIVE_CLIENTS is set")
		}
		if c.Zcash.LightClientURL != "" && c.Zcash.BurnAddress == "" {
			return fmt.Errorf("ZCASH_BURN_ADDRESS is required when the light client is configured")
		}
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes":
			return true
		case "0", "false", "no":
			return false
		}
	}
	return defaultValue
}
