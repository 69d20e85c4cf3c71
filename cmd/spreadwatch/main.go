package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application"
	"spreadwatch/internal/application/connector"
	"spreadwatch/internal/application/port"
	"spreadwatch/internal/application/service"
	"spreadwatch/internal/application/usecase/watch"
	"spreadwatch/internal/domain"
	"spreadwatch/internal/infrastructure/config"
	"spreadwatch/internal/infrastructure/exchange/binance"
	"spreadwatch/internal/infrastructure/exchange/bybit"
	"spreadwatch/internal/infrastructure/exchange/kraken"
	"spreadwatch/internal/infrastructure/exchange/okx"
	"spreadwatch/internal/infrastructure/logger"
	"spreadwatch/internal/infrastructure/storage/composite"
	"spreadwatch/internal/infrastructure/storage/postgres"
	"spreadwatch/internal/infrastructure/storage/redis"
	"spreadwatch/internal/infrastructure/storage/sqlite"
	"spreadwatch/internal/interfaces/console"
	"spreadwatch/internal/interfaces/redispub"
)

func main() {
	logger.Setup()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}

	repo, rdb := buildRepo(cfg)
	defer repo.Close()

	connCfg := connector.Config{
		PullInterval:  time.Duration(cfg.Connector.PullIntervalMs) * time.Millisecond,
		BackoffBase:   time.Duration(cfg.Connector.BackoffBaseMs) * time.Millisecond,
		BackoffCap:    time.Duration(cfg.Connector.BackoffCapMs) * time.Millisecond,
		MaxReconnects: cfg.Connector.MaxReconnects,
		PushRetry:     time.Duration(cfg.Connector.PushRetrySec) * time.Second,
	}

	connectors := buildConnectors(cfg, connCfg)
	if len(connectors) == 0 {
		log.Fatal().Msg("no exchange venues enabled")
	}

	cache := domain.NewCache(cfg.Symbols.List, cfg.Staleness(), cfg.Symbols.VenuePriority)

	var sink port.BroadcastSink = console.NewSink()
	if rdb != nil && cfg.Storage.Redis.Broadcast {
		sink = redispub.NewSink(rdb, cfg.Storage.Redis.Prefix+":snapshots")
	}

	svc := watch.NewService(watch.ServiceDeps{
		Cache:      cache,
		Connectors: connectors,
		Gate:       service.NewAlertGate(repo, cfg.App.AlertThresholdPct, cfg.AlertCooldown()),
		Metrics:    service.NewMetricThrottle(repo, cfg.MetricEvery()),
		Broadcast:  service.NewBroadcastThrottle(sink, cfg.BroadcastWindow(), cache.Snapshot),
		StatsEvery: cfg.StatsEvery(),
	})

	log.Info().
		Str("config", *configPath).
		Int("symbols", len(cfg.Symbols.List)).
		Int("venues", len(connectors)).
		Float64("alert_threshold_pct", cfg.App.AlertThresholdPct).
		Msg("spreadwatch started")

	svc.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	svc.Stop()
}

// buildRepo 按配置装配落库后端；一个都没开就用 noop 占位
func buildRepo(cfg *config.Config) (port.MetricsRepository, *goredis.Client) {
	var (
		repos []port.MetricsRepository
		rdb   *goredis.Client
	)

	if cfg.Storage.SQLite.Enabled {
		r, err := sqlite.New(cfg.Storage.SQLite.Path)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Storage.SQLite.Path).Msg("open sqlite failed")
		}
		repos = append(repos, r)
		log.Info().Str("path", cfg.Storage.SQLite.Path).Msg("sqlite storage enabled")
	}

	if cfg.Storage.Postgres.Enabled {
		r, err := postgres.New(cfg.Storage.Postgres.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("open postgres failed")
		}
		repos = append(repos, r)
		log.Info().Msg("postgres storage enabled")
	}

	if cfg.Storage.Redis.Enabled {
		rdb = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		repos = append(repos, redis.New(
			rdb,
			cfg.Storage.Redis.Prefix,
			time.Duration(cfg.Storage.Redis.TTLSec)*time.Second,
			cfg.Storage.Redis.AlertStream,
			cfg.Storage.Redis.AlertChannel,
		))
		log.Info().Str("addr", cfg.Storage.Redis.Addr).Msg("redis storage enabled")
	}

	if len(repos) == 0 {
		log.Warn().Msg("no storage backend enabled, metrics and alerts will not persist")
		return watch.NewNoopRepo(), nil
	}
	return composite.New(repos...), rdb
}

func buildConnectors(cfg *config.Config, connCfg connector.Config) []*connector.Connector {
	var out []*connector.Connector
	symbols := cfg.Symbols.List

	if vc := cfg.Exchange.Binance; vc.Enabled {
		out = append(out, connector.New(
			application.VenueBinance,
			binance.NewBookTickerStream(vc.WsURL, dialTimeout(vc)),
			binance.NewBookTickerPoller(vc.RestURL, pollTimeout(vc)),
			symbols, connCfg,
		))
	}
	if vc := cfg.Exchange.Bybit; vc.Enabled {
		out = append(out, connector.New(
			application.VenueBybit,
			bybit.NewTickerStream(vc.WsURL, dialTimeout(vc)),
			bybit.NewTickerPoller(vc.RestURL, pollTimeout(vc)),
			symbols, connCfg,
		))
	}
	if vc := cfg.Exchange.OKX; vc.Enabled {
		out = append(out, connector.New(
			application.VenueOKX,
			okx.NewBboStream(vc.WsURL, dialTimeout(vc)),
			okx.NewTickerPoller(vc.RestURL, pollTimeout(vc)),
			symbols, connCfg,
		))
	}
	if kc := cfg.Exchange.Kraken; kc.Enabled {
		out = append(out, connector.New(
			application.VenueKraken,
			nil, // pull-only venue
			kraken.NewTickerPoller(
				kc.RestURL,
				pollTimeout(kc.VenueConfig),
				kc.Concurrency,
				time.Duration(kc.BatchDelayMs)*time.Millisecond,
			),
			symbols, connCfg,
		))
	}
	return out
}

func dialTimeout(vc config.VenueConfig) time.Duration {
	if vc.TimeoutSec > 0 {
		return time.Duration(vc.TimeoutSec) * time.Second
	}
	return 10 * time.Second
}

func pollTimeout(vc config.VenueConfig) time.Duration {
	if vc.TimeoutSec > 0 {
		return time.Duration(vc.TimeoutSec) * time.Second
	}
	return 5 * time.Second
}
