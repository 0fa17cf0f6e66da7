package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/swapquoter/internal/blob/s3"
	"github.com/alanyoungcy/swapquoter/internal/cache/redis"
	"github.com/alanyoungcy/swapquoter/internal/chain"
	"github.com/alanyoungcy/swapquoter/internal/config"
	"github.com/alanyoungcy/swapquoter/internal/domain"
	"github.com/alanyoungcy/swapquoter/internal/metaswap"
	"github.com/alanyoungcy/swapquoter/internal/server/handler"
	"github.com/alanyoungcy/swapquoter/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application
// needs. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	QuoteSource     domain.QuoteSource
	NetConfigSource domain.NetworkConfigSource
	MarketData      domain.TokenPriceTable
	Registry        domain.NetworkRegistry

	Allowance domain.AllowanceReader
	GasProbe  domain.GasProbe
	Fees      domain.FeeEstimateProvider
	L1Fees    domain.L1FeeProvider

	History  domain.CycleHistoryStore
	Archiver domain.SnapshotArchiver

	// HealthChecks maps a dependency name to its connectivity check
	// for the health endpoint.
	HealthChecks map[string]handler.Pinger
}

// Wire constructs all concrete dependency implementations from the
// given configuration and returns them together with a cleanup function
// to be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		HealthChecks: make(map[string]handler.Pinger),
	}

	// --- Swap and price APIs ---
	swapClient := metaswap.NewClient(cfg.MetaSwap.BaseURL, logger)
	priceClient := metaswap.NewPriceClient(cfg.MetaSwap.PriceBaseURL)
	deps.QuoteSource = swapClient
	deps.NetConfigSource = swapClient
	deps.MarketData = priceClient

	// --- RPC endpoints ---
	pool := chain.NewClientPool(logger)
	closers = append(closers, pool.Close)
	deps.Registry = chain.NewStaticRegistry(cfg.NetworkClients())
	deps.Allowance = chain.NewAllowanceReader(pool)
	deps.GasProbe = chain.NewGasProbe(pool)
	deps.Fees = chain.NewFeeEstimateProvider(pool)
	deps.L1Fees = chain.NewL1FeeProvider(pool)

	// --- Redis caches ---
	if cfg.Redis.Enabled {
		rdb, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		deps.HealthChecks["redis"] = rdb

		marketTTL := time.Duration(cfg.Redis.MarketDataTTLSeconds) * time.Second
		netTTL := time.Duration(cfg.Redis.NetConfigTTLSeconds) * time.Second
		deps.MarketData = metaswap.NewCachedPriceTable(
			priceClient, redis.NewMarketDataCache(rdb, marketTTL), logger)
		deps.NetConfigSource = metaswap.NewCachedNetworkConfigSource(
			swapClient, redis.NewNetworkConfigCache(rdb, netTTL), logger)
	}

	// --- PostgreSQL cycle history ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)
		deps.HealthChecks["postgres"] = pgClient

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.History = postgres.NewCycleHistoryStore(pgClient.Pool())
	}

	// --- S3 snapshot archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.HealthChecks["s3"] = s3Client
		deps.Archiver = s3blob.NewArchiver(s3Client, cfg.S3.KeyPrefix)
	}

	return deps, cleanup, nil
}
