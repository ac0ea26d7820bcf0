package main

import (
	"context"
	"fmt"

	goredis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"memecoin-scout/internal/config"
	"memecoin-scout/internal/publish"
	"memecoin-scout/internal/scanner"
	"memecoin-scout/internal/seen"
	"memecoin-scout/internal/solana"
	"memecoin-scout/internal/source"
	"memecoin-scout/internal/source/birdeye"
	"memecoin-scout/internal/source/coingecko"
	"memecoin-scout/internal/source/dexscreener"
	"memecoin-scout/internal/source/goplus"
	"memecoin-scout/internal/source/pumpfun"
	"memecoin-scout/internal/source/solanarpc"
	"memecoin-scout/internal/storage"
	chstore "memecoin-scout/internal/storage/clickhouse"
	"memecoin-scout/internal/storage/memory"
	pgstore "memecoin-scout/internal/storage/postgres"
	redisstore "memecoin-scout/internal/storage/redis"
)

// app owns the connections opened while wiring and closes them in reverse order.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	pg      *pgstore.Pool
	ch      *chstore.Conn
	redis   *goredis.Client
	closers []func()

	stream *pumpfun.Stream
}

func newApp(cfg *config.Config, logger zerolog.Logger) *app {
	return &app{cfg: cfg, logger: logger}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) postgres(ctx context.Context) (*pgstore.Pool, error) {
	if a.pg != nil {
		return a.pg, nil
	}
	pg := a.cfg.Storage.Postgres
	var opts []pgstore.PoolOption
	if pg.MaxConns > 0 {
		opts = append(opts, pgstore.WithMaxConns(pg.MaxConns))
	}
	pool, err := pgstore.NewPool(ctx, pg.DSN, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.pg = pool
	a.closers = append(a.closers, pool.Close)
	return pool, nil
}

func (a *app) clickhouse(ctx context.Context) (*chstore.Conn, error) {
	if a.ch != nil {
		return a.ch, nil
	}
	conn, err := chstore.NewConn(ctx, a.cfg.Storage.ClickHouse.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse: %w", err)
	}
	a.ch = conn
	a.closers = append(a.closers, func() { _ = conn.Close() })
	return conn, nil
}

func (a *app) redisClient(ctx context.Context) (*goredis.Client, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	r := a.cfg.Storage.Redis
	client, err := redisstore.NewClient(ctx, redisstore.Options{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
	})
	if err != nil {
		return nil, err
	}
	a.redis = client
	a.closers = append(a.closers, func() { _ = client.Close() })
	return client, nil
}

// registry wires every enabled adapter. The pump.fun stream is created but not started.
func (a *app) registry() (*source.Registry, error) {
	src := a.cfg.Sources
	logger := a.logger

	var (
		discoverers []source.Discoverer
		enrichers   []source.Enricher
		resolver    source.Resolver
	)

	if src.DexScreener.Enabled {
		ds := dexscreener.New(dexscreener.Options{
			BaseURL: src.DexScreener.BaseURL,
			Queries: src.DexScreener.ChainQueries(),
			Timeout: src.DexScreener.Timeout,
			Guard:   source.NewGuard(dexscreener.Name, src.Guard.SourceGuard(src.DexScreener.RequestsPerMinute), &logger),
			Logger:  &logger,
		})
		discoverers = append(discoverers, ds)
		resolver = ds
	}

	if src.PumpFun.Enabled {
		if resolver == nil {
			return nil, fmt.Errorf("pumpfun discovery requires dexscreener")
		}
		wsCfg := solana.DefaultWSConfig()
		a.stream = pumpfun.NewStream(pumpfun.Options{
			Logs:       solana.NewLogStream(src.PumpFun.WSURL, &wsCfg, &logger),
			Resolver:   resolver,
			MaxPending: src.PumpFun.MaxPending,
			Logger:     &logger,
		})
		discoverers = append(discoverers, a.stream)
	}

	if src.SolanaRPC.Enabled {
		client := solana.NewHTTPClient(src.SolanaRPC.URL,
			solana.WithTimeout(src.SolanaRPC.Timeout),
			solana.WithMaxRetries(src.SolanaRPC.MaxRetries),
		)
		enrichers = append(enrichers, solanarpc.New(solanarpc.Options{
			Client: client,
			Guard:  source.NewGuard(solanarpc.Name, src.Guard.SourceGuard(src.SolanaRPC.RequestsPerMinute), &logger),
			Logger: &logger,
		}))
	}

	if src.Birdeye.Active(true) {
		enrichers = append(enrichers, birdeye.New(birdeye.Options{
			APIKey:  src.Birdeye.APIKey,
			BaseURL: src.Birdeye.BaseURL,
			Timeout: src.Birdeye.Timeout,
			Guard:   source.NewGuard(birdeye.Name, src.Guard.SourceGuard(src.Birdeye.RequestsPerMinute), &logger),
			Logger:  &logger,
		}))
	} else if src.Birdeye.Enabled {
		logger.Warn().Str("source", birdeye.Name).Msg("no api key configured, adapter disabled")
	}

	if src.GoPlus.Active(false) {
		enrichers = append(enrichers, goplus.New(goplus.Options{
			APIKey:  src.GoPlus.APIKey,
			BaseURL: src.GoPlus.BaseURL,
			Timeout: src.GoPlus.Timeout,
			Guard:   source.NewGuard(goplus.Name, src.Guard.SourceGuard(src.GoPlus.RequestsPerMinute), &logger),
			Logger:  &logger,
		}))
	}

	if src.CoinGecko.Active(false) {
		enrichers = append(enrichers, coingecko.New(coingecko.Options{
			APIKey:  src.CoinGecko.APIKey,
			BaseURL: src.CoinGecko.BaseURL,
			Timeout: src.CoinGecko.Timeout,
			Guard:   source.NewGuard(coingecko.Name, src.Guard.SourceGuard(src.CoinGecko.RequestsPerMinute), &logger),
			Logger:  &logger,
		}))
	}

	return source.NewRegistry(discoverers, enrichers, resolver)
}

// seenSet builds the Seen-Set on the configured backend and loads persisted marks.
func (a *app) seenSet(ctx context.Context) (*seen.Set, error) {
	var store storage.SeenStore
	switch a.cfg.Seen.Backend {
	case "postgres":
		pool, err := a.postgres(ctx)
		if err != nil {
			return nil, err
		}
		store = pgstore.NewSeenStore(pool)
	case "redis":
		client, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		store = redisstore.NewSeenStore(client, a.cfg.Seen.RedisKey)
	default:
		store = memory.NewSeenStore()
	}

	set := seen.New(seen.Options{
		Store:  store,
		TTL:    a.cfg.Seen.TTL,
		Logger: &a.logger,
	})
	n, err := set.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load seen set: %w", err)
	}
	a.logger.Info().Str("backend", a.cfg.Seen.Backend).Int("keys", n).Msg("seen set loaded")
	return set, nil
}

// publisher fans every batch out to the log and the configured result stores.
func (a *app) publisher(ctx context.Context) (publish.Publisher, error) {
	pubs := []publish.Publisher{publish.NewLogPublisher(publish.DefaultTopN, &a.logger)}

	for _, backend := range a.cfg.Storage.Results {
		switch backend {
		case "postgres":
			pool, err := a.postgres(ctx)
			if err != nil {
				return nil, err
			}
			pubs = append(pubs, publish.NewStorePublisher(pgstore.NewScanResultStore(pool), "postgres"))
		case "clickhouse":
			conn, err := a.clickhouse(ctx)
			if err != nil {
				return nil, err
			}
			pubs = append(pubs, publish.NewStorePublisher(chstore.NewScanResultStore(conn), "clickhouse"))
		default:
			return nil, fmt.Errorf("unknown results backend %q", backend)
		}
	}
	return publish.NewFanout(&a.logger, pubs...), nil
}

// scanner wires the full pipeline.
func (a *app) scanner(ctx context.Context) (*scanner.Scanner, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}
	set, err := a.seenSet(ctx)
	if err != nil {
		return nil, err
	}
	pub, err := a.publisher(ctx)
	if err != nil {
		return nil, err
	}

	scan := a.cfg.Scan
	return scanner.New(scanner.Options{
		Sources:           reg,
		Filter:            a.cfg.FilterConfig(),
		Scorer:            a.cfg.ScoringEngine(),
		Seen:              set,
		Publisher:         pub,
		Interval:          scan.Interval,
		FailureBackoff:    scan.FailureBackoff,
		EnrichConcurrency: scan.EnrichConcurrency,
		EnrichDeadline:    scan.EnrichDeadline,
		HardTimeout:       scan.HardTimeout,
		MaxFailureRatio:   scan.MaxFailureRatio,
		Logger:            &a.logger,
	})
}
