package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
)

// MetricThrottle 价差指标落库节流：每个 symbol 最多每 interval 写一次，
// 与广播速率互相独立。写入是 fire-and-forget。
type MetricThrottle struct {
	repo     port.MetricsRepository
	interval time.Duration // 默认 5s

	mu   sync.Mutex
	last map[string]time.Time

	now func() time.Time
}

func NewMetricThrottle(repo port.MetricsRepository, interval time.Duration) *MetricThrottle {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &MetricThrottle{
		repo:     repo,
		interval: interval,
		last:     make(map[string]time.Time),
		now:      time.Now,
	}
}

// SetClock 注入时钟，仅测试使用
func (t *MetricThrottle) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Offer 在重算之后调用；无信号或窗口未到时是空操作
func (t *MetricThrottle) Offer(ctx context.Context, agg domain.AggregatedSymbol) {
	if !agg.HasSignal {
		return
	}

	t.mu.Lock()
	now := t.now()
	if prev, ok := t.last[agg.Symbol]; ok && now.Sub(prev) < t.interval {
		t.mu.Unlock()
		return
	}
	t.last[agg.Symbol] = now
	t.mu.Unlock()

	m := &domain.SpreadMetric{
		Symbol:       agg.Symbol,
		SpreadPct:    agg.SpreadPct,
		BestBid:      agg.BestBid,
		BestAsk:      agg.BestAsk,
		BestBidVenue: agg.BestBidVenue,
		BestAskVenue: agg.BestAskVenue,
		Profit:       agg.BestBid - agg.BestAsk,
		Ts:           now.UnixMilli(),
	}
	if err := t.repo.SaveSpreadMetric(ctx, m); err != nil {
		log.Error().Err(err).Str("symbol", m.Symbol).Msg("save spread metric failed")
	}
}
