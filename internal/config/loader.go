package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SWAPQ_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
// An empty path skips the file and uses defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SWAPQ_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
// This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.MetaSwap.BaseURL, "SWAPQ_METASWAP_BASE_URL")
	setStr(&cfg.MetaSwap.PriceBaseURL, "SWAPQ_METASWAP_PRICE_BASE_URL")

	setBool(&cfg.Postgres.Enabled, "SWAPQ_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "SWAPQ_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SWAPQ_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SWAPQ_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SWAPQ_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SWAPQ_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SWAPQ_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SWAPQ_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SWAPQ_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SWAPQ_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SWAPQ_POSTGRES_RUN_MIGRATIONS")

	setBool(&cfg.Redis.Enabled, "SWAPQ_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SWAPQ_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SWAPQ_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SWAPQ_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SWAPQ_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SWAPQ_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SWAPQ_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.MarketDataTTLSeconds, "SWAPQ_REDIS_MARKET_DATA_TTL_SECONDS")
	setInt(&cfg.Redis.NetConfigTTLSeconds, "SWAPQ_REDIS_NET_CONFIG_TTL_SECONDS")

	setBool(&cfg.S3.Enabled, "SWAPQ_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SWAPQ_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SWAPQ_S3_REGION")
	setStr(&cfg.S3.Bucket, "SWAPQ_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SWAPQ_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SWAPQ_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SWAPQ_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SWAPQ_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.KeyPrefix, "SWAPQ_S3_KEY_PREFIX")

	setInt(&cfg.Server.Port, "SWAPQ_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SWAPQ_SERVER_CORS_ORIGINS")

	setStr(&cfg.LogLevel, "SWAPQ_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the
// environment variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			*dst = out
		}
	}
}
