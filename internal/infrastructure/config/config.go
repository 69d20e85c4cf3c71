package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App struct {
		StalenessSec      int     `toml:"staleness_sec"`       // 报价新鲜窗口，默认 30
		AlertThresholdPct float64 `toml:"alert_threshold_pct"` // 告警阈值，默认 0.5
		AlertCooldownSec  int     `toml:"alert_cooldown_sec"`  // 告警冷却，默认 60
		BroadcastWindowMs int     `toml:"broadcast_window_ms"` // 广播节流窗口，默认 1000
		MetricEverySec    int     `toml:"metric_every_sec"`    // 指标落库节流，默认 5
		StatsEverySec     int     `toml:"stats_every_sec"`     // 连接器诊断日志间隔，默认 60
	} `toml:"app"`

	Symbols struct {
		List          []string `toml:"list"`
		VenuePriority []string `toml:"venue_priority"` // 平价时的确定性胜负序
	} `toml:"symbols"`

	Connector struct {
		PullIntervalMs int `toml:"pull_interval_ms"` // 默认 2000
		BackoffBaseMs  int `toml:"backoff_base_ms"`  // 默认 500
		BackoffCapMs   int `toml:"backoff_cap_ms"`   // 默认 10000
		MaxReconnects  int `toml:"max_reconnects"`   // 默认 10
		PushRetrySec   int `toml:"push_retry_sec"`   // 次数耗尽后的自检间隔，默认 120，0 = 不重试
	} `toml:"connector"`

	Exchange struct {
		Binance VenueConfig `toml:"binance"`
		Bybit   VenueConfig `toml:"bybit"`
		OKX     VenueConfig `toml:"okx"`
		Kraken  struct {
			VenueConfig
			Concurrency  int `toml:"concurrency"`    // 每批并发请求数，默认 4
			BatchDelayMs int `toml:"batch_delay_ms"` // 批间隔，默认 500
		} `toml:"kraken"`
	} `toml:"exchange"`

	Storage struct {
		SQLite struct {
			Enabled bool   `toml:"enabled"`
			Path    string `toml:"path"`
		} `toml:"sqlite"`

		Postgres struct {
			Enabled bool   `toml:"enabled"`
			DSN     string `toml:"dsn"`
		} `toml:"postgres"`

		Redis struct {
			Enabled      bool   `toml:"enabled"`
			Addr         string `toml:"addr"`
			Password     string `toml:"password"`
			DB           int    `toml:"db"`
			Prefix       string `toml:"prefix"`
			TTLSec       int    `toml:"ttl_sec"`
			AlertStream  string `toml:"alert_stream"`
			AlertChannel string `toml:"alert_channel"`
			Broadcast    bool   `toml:"broadcast"` // 同时把限流快照发到 pubsub
		} `toml:"redis"`
	} `toml:"storage"`
}

type VenueConfig struct {
	Enabled    bool   `toml:"enabled"`
	WsURL      string `toml:"ws_url"`
	RestURL    string `toml:"rest_url"`
	TimeoutSec int    `toml:"timeout_sec"` // 单次 pull/拨号超时，默认 5/10
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.StalenessSec <= 0 {
		cfg.App.StalenessSec = 30
	}
	if cfg.App.AlertThresholdPct <= 0 {
		cfg.App.AlertThresholdPct = 0.5
	}
	if cfg.App.AlertCooldownSec <= 0 {
		cfg.App.AlertCooldownSec = 60
	}
	if cfg.App.BroadcastWindowMs <= 0 {
		cfg.App.BroadcastWindowMs = 1000
	}
	if cfg.App.MetricEverySec <= 0 {
		cfg.App.MetricEverySec = 5
	}
	if cfg.App.StatsEverySec <= 0 {
		cfg.App.StatsEverySec = 60
	}

	if cfg.Connector.PullIntervalMs <= 0 {
		cfg.Connector.PullIntervalMs = 2000
	}
	if cfg.Connector.BackoffBaseMs <= 0 {
		cfg.Connector.BackoffBaseMs = 500
	}
	if cfg.Connector.BackoffCapMs <= 0 {
		cfg.Connector.BackoffCapMs = 10000
	}
	if cfg.Connector.MaxReconnects <= 0 {
		cfg.Connector.MaxReconnects = 10
	}
	if cfg.Connector.PushRetrySec < 0 {
		cfg.Connector.PushRetrySec = 0
	} else if cfg.Connector.PushRetrySec == 0 {
		cfg.Connector.PushRetrySec = 120
	}

	if cfg.Exchange.Kraken.Concurrency <= 0 {
		cfg.Exchange.Kraken.Concurrency = 4
	}
	if cfg.Exchange.Kraken.BatchDelayMs <= 0 {
		cfg.Exchange.Kraken.BatchDelayMs = 500
	}
}

func validate(cfg *Config) error {
	cfg.Symbols.List = normalizeSymbols(cfg.Symbols.List)
	if len(cfg.Symbols.List) == 0 {
		return errors.New("symbols.list is empty")
	}
	cfg.Symbols.VenuePriority = normalizeSymbols(cfg.Symbols.VenuePriority)

	type pushVenue struct {
		name string
		vc   VenueConfig
	}
	for _, v := range []pushVenue{
		{"binance", cfg.Exchange.Binance},
		{"bybit", cfg.Exchange.Bybit},
		{"okx", cfg.Exchange.OKX},
	} {
		if !v.vc.Enabled {
			continue
		}
		if strings.TrimSpace(v.vc.WsURL) == "" && strings.TrimSpace(v.vc.RestURL) == "" {
			return fmt.Errorf("exchange.%s enabled but ws_url and rest_url both empty", v.name)
		}
	}
	if cfg.Exchange.Kraken.Enabled && strings.TrimSpace(cfg.Exchange.Kraken.RestURL) == "" {
		return errors.New("exchange.kraken enabled but rest_url empty")
	}

	if cfg.Storage.SQLite.Enabled && strings.TrimSpace(cfg.Storage.SQLite.Path) == "" {
		return errors.New("storage.sqlite.path empty but enabled")
	}
	if cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
		return errors.New("storage.postgres.dsn empty but enabled")
	}
	if cfg.Storage.Redis.Enabled && strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
		return errors.New("storage.redis.addr empty but enabled")
	}
	return nil
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// 便捷换算

func (c *Config) Staleness() time.Duration {
	return time.Duration(c.App.StalenessSec) * time.Second
}

func (c *Config) AlertCooldown() time.Duration {
	return time.Duration(c.App.AlertCooldownSec) * time.Second
}

func (c *Config) BroadcastWindow() time.Duration {
	return time.Duration(c.App.BroadcastWindowMs) * time.Millisecond
}

func (c *Config) MetricEvery() time.Duration {
	return time.Duration(c.App.MetricEverySec) * time.Second
}

func (c *Config) StatsEvery() time.Duration {
	return time.Duration(c.App.StatsEverySec) * time.Second
}
