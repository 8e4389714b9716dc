package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"settlement-backend/internal/models"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server   ServerConfig           `yaml:"server"`
	Database DatabaseConfig         `yaml:"database"`
	NATS     NATSConfig             `yaml:"nats"`
	Circle   CircleConfig           `yaml:"circle"`
	Chains   map[string]ChainConfig `yaml:"chains"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"` // gin mode: debug or release
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig deposit event subscription configuration
type NATSConfig struct {
	URL            string `yaml:"url"`
	DepositSubject string `yaml:"deposit_subject"`
	Enabled        bool   `yaml:"enabled"`
}

// CircleConfig Circle CCTP API configuration
type CircleConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Timeout int    `yaml:"timeout"` // seconds
}

// ChainConfig per-chain configuration. CustodialAddress is the wallet that
// receives deposits and mint proceeds on this chain; CustodialKey signs
// outbound transfers from it.
type ChainConfig struct {
	ChainID          int64  `yaml:"chainId"` // EVM chains only
	RPCURL           string `yaml:"rpcUrl"`
	USDCContract     string `yaml:"usdcContract"` // ERC-20 address or SPL mint
	CCTPDomain       uint32 `yaml:"cctpDomain"`
	CustodialAddress string `yaml:"custodialAddress"`
	CustodialKey     string `yaml:"custodialKey"`
	Enabled          bool   `yaml:"enabled"`
}

var AppConfig *Config

// LoadConfig loads the YAML configuration file and applies environment
// variable overrides on top of it.
func LoadConfig(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	overrideFromEnv(&config)

	if err := validate(&config); err != nil {
		return err
	}

	AppConfig = &config
	return nil
}

// overrideFromEnv applies environment variable overrides. Secrets (database
// DSN, Circle API key, custodial keys) are expected to come from the
// environment in production rather than from the YAML file.
func overrideFromEnv(config *Config) {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		config.Server.Mode = mode
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
		config.NATS.Enabled = true
	}
	if subject := os.Getenv("NATS_DEPOSIT_SUBJECT"); subject != "" {
		config.NATS.DepositSubject = subject
	}

	if apiKey := os.Getenv("CIRCLE_API_KEY"); apiKey != "" {
		config.Circle.APIKey = apiKey
	}
	if baseURL := os.Getenv("CIRCLE_BASE_URL"); baseURL != "" {
		config.Circle.BaseURL = baseURL
	}

	for chainName, chainConfig := range config.Chains {
		prefix := strings.ToUpper(chainName)

		if rpcURL := os.Getenv(prefix + "_RPC_URL"); rpcURL != "" {
			chainConfig.RPCURL = rpcURL
		}
		if usdc := os.Getenv(prefix + "_USDC_CONTRACT"); usdc != "" {
			chainConfig.USDCContract = usdc
		}
		if addr := os.Getenv(prefix + "_CUSTODIAL_ADDRESS"); addr != "" {
			chainConfig.CustodialAddress = addr
		}
		if key := os.Getenv(prefix + "_CUSTODIAL_KEY"); key != "" {
			chainConfig.CustodialKey = key
		}

		config.Chains[chainName] = chainConfig
	}
}

func validate(config *Config) error {
	if config.Database.DSN == "" {
		return fmt.Errorf("database DSN is required (config database.dsn or DATABASE_DSN)")
	}
	for chainName := range config.Chains {
		if !models.Chain(chainName).Valid() {
			return fmt.Errorf("unknown chain %q in config", chainName)
		}
	}
	return nil
}

// GetChainConfig returns the configuration for an enabled chain.
func GetChainConfig(chain models.Chain) (*ChainConfig, error) {
	if AppConfig == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	chainConfig, exists := AppConfig.Chains[string(chain)]
	if !exists {
		return nil, fmt.Errorf("chain %s not found in config", chain)
	}
	if !chainConfig.Enabled {
		return nil, fmt.Errorf("chain %s is disabled", chain)
	}

	return &chainConfig, nil
}

// CustodialAddresses returns the custodial wallet address per enabled chain.
func (c *Config) CustodialAddresses() map[models.Chain]string {
	addrs := make(map[models.Chain]string, len(c.Chains))
	for chainName, chainConfig := range c.Chains {
		if chainConfig.Enabled {
			addrs[models.Chain(chainName)] = chainConfig.CustodialAddress
		}
	}
	return addrs
}
