// Package config defines the top-level configuration for the swap
// quoter and provides validation helpers.
package config

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/swapquoter/internal/domain"
)

// Config is the root configuration structure. Fields are populated from
// a TOML file and then optionally overridden by SWAPQ_* environment
// variables.
type Config struct {
	MetaSwap MetaSwapConfig  `toml:"metaswap"`
	Networks []NetworkConfig `toml:"networks"`
	Postgres PostgresConfig  `toml:"postgres"`
	Redis    RedisConfig     `toml:"redis"`
	S3       S3Config        `toml:"s3"`
	Server   ServerConfig    `toml:"server"`
	LogLevel string          `toml:"log_level"`
}

// MetaSwapConfig holds the swap and price API endpoints.
type MetaSwapConfig struct {
	BaseURL      string `toml:"base_url"`
	PriceBaseURL string `toml:"price_base_url"`
}

// NetworkConfig is one RPC endpoint the quoter can quote against.
type NetworkConfig struct {
	ClientID string `toml:"client_id"`
	ChainID  uint64 `toml:"chain_id"`
	RPCURL   string `toml:"rpc_url"`
}

// PostgresConfig holds PostgreSQL connection parameters for the cycle
// history store.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the market data and
// network config caches.
type RedisConfig struct {
	Enabled              bool   `toml:"enabled"`
	Addr                 string `toml:"addr"`
	Password             string `toml:"password"`
	DB                   int    `toml:"db"`
	PoolSize             int    `toml:"pool_size"`
	MaxRetries           int    `toml:"max_retries"`
	TLSEnabled           bool   `toml:"tls_enabled"`
	MarketDataTTLSeconds int    `toml:"market_data_ttl_seconds"`
	NetConfigTTLSeconds  int    `toml:"net_config_ttl_seconds"`
}

// S3Config holds S3-compatible object storage parameters for snapshot
// archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	KeyPrefix      string `toml:"key_prefix"`
}

// ServerConfig holds the HTTP API parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Defaults returns the built-in configuration, suitable for local
// development against public endpoints.
func Defaults() Config {
	return Config{
		MetaSwap: MetaSwapConfig{
			BaseURL:      "https://swap.api.cx.metamask.io",
			PriceBaseURL: "https://price.api.cx.metamask.io",
		},
		Networks: []NetworkConfig{
			{ClientID: "mainnet", ChainID: 1, RPCURL: "https://eth.llamarpc.com"},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "swapquoter",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:                 "localhost:6379",
			PoolSize:             20,
			MaxRetries:           3,
			MarketDataTTLSeconds: 60,
			NetConfigTTLSeconds:  600,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "swapquoter-data",
			ForcePathStyle: true,
			KeyPrefix:      "swapquoter/",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for inconsistencies and reports all
// of them at once.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.MetaSwap.BaseURL == "" {
		errs = append(errs, "metaswap: base_url must not be empty")
	}
	if c.MetaSwap.PriceBaseURL == "" {
		errs = append(errs, "metaswap: price_base_url must not be empty")
	}

	if len(c.Networks) == 0 {
		errs = append(errs, "networks: at least one network must be configured")
	}
	seen := make(map[string]bool, len(c.Networks))
	for i, n := range c.Networks {
		if n.ClientID == "" {
			errs = append(errs, fmt.Sprintf("networks[%d]: client_id must not be empty", i))
		} else if seen[n.ClientID] {
			errs = append(errs, fmt.Sprintf("networks[%d]: duplicate client_id %q", i, n.ClientID))
		}
		seen[n.ClientID] = true
		if n.ChainID == 0 {
			errs = append(errs, fmt.Sprintf("networks[%d]: chain_id must be positive", i))
		}
		if n.RPCURL == "" {
			errs = append(errs, fmt.Sprintf("networks[%d]: rpc_url must not be empty", i))
		}
	}

	if c.Postgres.Enabled && strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: invalid port %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: invalid port %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// NetworkClients converts the configured networks into domain network
// clients for the registry.
func (c *Config) NetworkClients() []domain.NetworkClient {
	clients := make([]domain.NetworkClient, 0, len(c.Networks))
	for _, n := range c.Networks {
		clients = append(clients, domain.NetworkClient{
			ID:      n.ClientID,
			ChainID: n.ChainID,
			RPCURL:  n.RPCURL,
		})
	}
	return clients
}
