package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
)

// Repo Redis 侧写：最新价差进 hash（带 TTL），告警走 stream + pub/sub。
// 供看板和下游消费者用，不做历史查询。
type Repo struct {
	rdb         *redis.Client
	prefix      string
	ttl         time.Duration
	keyLatest   string // prefix + ":latest"
	alertStream string
	alertChan   string
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, alertStream, alertChan string) *Repo {
	if strings.TrimSpace(prefix) == "" {
		prefix = "spreadwatch"
	}
	if strings.TrimSpace(alertStream) == "" {
		alertStream = prefix + ":alerts"
	}
	if strings.TrimSpace(alertChan) == "" {
		alertChan = prefix + ":alerts:pub"
	}
	return &Repo{
		rdb:         rdb,
		prefix:      prefix,
		ttl:         ttl,
		keyLatest:   prefix + ":latest",
		alertStream: alertStream,
		alertChan:   alertChan,
	}
}

func (r *Repo) Close() error { return r.rdb.Close() }

func (r *Repo) SaveSpreadMetric(ctx context.Context, m *domain.SpreadMetric) error {
	b, _ := json.Marshal(m)

	// Hash: field = "BTCUSDT" -> json
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, m.Symbol, string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Repo) SaveAlert(ctx context.Context, a *domain.AlertRecord) (int64, error) {
	_, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.alertStream,
		Values: map[string]any{
			"ts_ms":      a.Ts,
			"symbol":     a.Symbol,
			"spread_pct": a.SpreadPct,
			"buy_venue":  a.BuyVenue,
			"sell_venue": a.SellVenue,
			"buy_price":  a.BuyPrice,
			"sell_price": a.SellPrice,
		},
	}).Result()
	if err != nil {
		return 0, err
	}

	msg := fmt.Sprintf(`{"ts_ms":%d,"symbol":"%s","spread_pct":%.6f,"buy_venue":"%s","sell_venue":"%s"}`,
		a.Ts, a.Symbol, a.SpreadPct, a.BuyVenue, a.SellVenue)
	return 0, r.rdb.Publish(ctx, r.alertChan, msg).Err()
}

var _ port.MetricsRepository = (*Repo)(nil)
