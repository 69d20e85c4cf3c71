package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
)

// AlertGate 检测越过阈值的跨所价差，按 symbol 在冷却窗口内去重。
// 去重时间戳在落库前更新：每个冷却窗口最多尝试一次，不保证送达。
type AlertGate struct {
	repo      port.MetricsRepository
	threshold float64       // 最小价差百分比，默认 0.5
	cooldown  time.Duration // 默认 60s

	mu   sync.Mutex
	last map[string]time.Time

	now func() time.Time
}

func NewAlertGate(repo port.MetricsRepository, threshold float64, cooldown time.Duration) *AlertGate {
	if threshold <= 0 {
		threshold = 0.5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &AlertGate{
		repo:      repo,
		threshold: threshold,
		cooldown:  cooldown,
		last:      make(map[string]time.Time),
		now:       time.Now,
	}
}

// SetClock 注入时钟，仅测试使用
func (g *AlertGate) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
}

// Evaluate 对一次重算结果做告警判定。
// 无信号、同所价差、低于阈值、冷却中都返回 nil；否则落库并返回记录。
// 落库失败只记日志，去重时间戳不回滚。
func (g *AlertGate) Evaluate(ctx context.Context, agg domain.AggregatedSymbol) *domain.AlertRecord {
	if !agg.HasSignal || !agg.CrossVenue || agg.SpreadPct < g.threshold {
		return nil
	}

	g.mu.Lock()
	now := g.now()
	if prev, ok := g.last[agg.Symbol]; ok && now.Sub(prev) < g.cooldown {
		g.mu.Unlock()
		return nil
	}
	g.last[agg.Symbol] = now
	g.mu.Unlock()

	rec := &domain.AlertRecord{
		Symbol:    agg.Symbol,
		SpreadPct: agg.SpreadPct,
		BuyVenue:  agg.BestAskVenue,
		SellVenue: agg.BestBidVenue,
		BuyPrice:  agg.BestAsk,
		SellPrice: agg.BestBid,
		Ts:        now.UnixMilli(),
	}

	if _, err := g.repo.SaveAlert(ctx, rec); err != nil {
		log.Error().Err(err).Str("symbol", rec.Symbol).
			Float64("spread", rec.SpreadPct).Msg("save alert failed")
		return rec
	}

	log.Info().
		Str("symbol", rec.Symbol).
		Str("buy", rec.BuyVenue).
		Str("sell", rec.SellVenue).
		Float64("spread", rec.SpreadPct).
		Msg("spread alert")
	return rec
}
