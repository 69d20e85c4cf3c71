package domain

import (
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestCache(now time.Time) *Cache {
	c := NewCache([]string{"BTCUSDT", "ETHUSDT"}, 30*time.Second, []string{"BINANCE", "BYBIT", "OKX"})
	c.SetClock(fixedClock(now))
	return c
}

// TestCrossVenueSpread 两个交易所都新鲜时，best bid/ask 来自不同所，价差约 1.80%
func TestCrossVenueSpread(t *testing.T) {
	now := time.Now()
	c := newTestCache(now)
	ts := now.UnixMilli()

	if !c.Upsert(Quote{Symbol: "BTCUSDT", Venue: "BINANCE", Bid: 100, Ask: 100.2, Ts: ts}) {
		t.Fatal("upsert A rejected")
	}
	if !c.Upsert(Quote{Symbol: "BTCUSDT", Venue: "OKX", Bid: 102, Ask: 102.5, Ts: ts}) {
		t.Fatal("upsert C rejected")
	}

	agg, ok := c.Get("BTCUSDT")
	if !ok {
		t.Fatal("symbol missing")
	}
	if agg.BestBid != 102 || agg.BestBidVenue != "OKX" {
		t.Errorf("best bid: expected 102@OKX, got %v@%s", agg.BestBid, agg.BestBidVenue)
	}
	if agg.BestAsk != 100.2 || agg.BestAskVenue != "BINANCE" {
		t.Errorf("best ask: expected 100.2@BINANCE, got %v@%s", agg.BestAsk, agg.BestAskVenue)
	}
	if !agg.HasSignal || !agg.CrossVenue {
		t.Errorf("expected cross-venue signal, got signal=%v cross=%v", agg.HasSignal, agg.CrossVenue)
	}
	want := (102.0 - 100.2) / 100.2 * 100
	if agg.SpreadPct < want-0.001 || agg.SpreadPct > want+0.001 {
		t.Errorf("spread: expected ~%.4f, got %.4f", want, agg.SpreadPct)
	}
}

// TestNegativeSpread best bid < best ask 时价差为负，仍有信号
func TestNegativeSpread(t *testing.T) {
	now := time.Now()
	c := newTestCache(now)
	ts := now.UnixMilli()

	c.Upsert(Quote{Symbol: "BTCUSDT", Venue: "BINANCE", Bid: 100, Ask: 101, Ts: ts})
	c.Upsert(Quote{Symbol: "BTCUSDT", Venue: "BYBIT", Bid: 99, Ask: 100.5, Ts: ts})

	agg, _ := c.Get("BTCUSDT")
	if agg.BestBid != 100 || agg.BestBidVenue != "BINANCE" {
		t.Errorf("best bid: expected 100@BINANCE, got %v@%s", agg.BestBid, agg.BestBidVenue)
	}
	if agg.BestAsk != 100.5 || agg.BestAskVenue != "BYBIT" {
		t.Errorf("best ask: expected 100.5@BYBIT, got %v@%s", agg.BestAsk, agg.BestAskVenue)
	}
	if !agg.HasSignal {
		t.Error("expected signal")
	}
	if agg.SpreadPct >= 0 {
		t.Errorf("expected negative spread, got %.4f", agg.SpreadPct)
	}
}

func TestRejectUnknownSymbol(t *testing.T) {
	now := time.Now()
	c := newTestCache(now)

	if c.Upsert(Quote{Symbol: "DOGEUSDT", Venue: "BINANCE", Bid: 1, Ask: 1.1, Ts: now.UnixMilli()}) {
		t.Error("quote for non-allow-listed symbol must be dropped")
	}
	if _, ok := c.Snapshot()["DOGEUSDT"]; ok {
		t.Error("dropped symbol must not appear in snapshot")
	}
}

// TestOutOfOrderRejected 旧时间戳的报价不回退缓存
func TestOutOfOrderRejected(t *testing.T) {
	now := time.Now()
	c := newTestCache(now)
	ts := now.UnixMilli()

	c.Upsert(Quote{Symbol: "BTCUSDT", Venue: "BINANCE", Bid: 100, Ask: 101, Ts: ts})
	if c.Upsert(Quote{Symbol: "BTCUSDT", Venue: "BINANCE", Bid: 50, Ask: 51, Ts: ts - 1000}) {
		t.Error("older quote must be rejected")
	}

	agg, _ := c.Get("BTCUSDT")
	if agg.BestBid != 100 || agg.BestAsk != 101 {
		t.Errorf("cache changed by stale write: bid=%v ask=%v", agg.BestBid, agg.BestAsk)
	}
}

// TestIdempotentReapply 相同时间戳重放，派生值不变
func TestIdempotentReapply(t *testing.T) {
	now := time.Now()
	c := newTestCache(now)
	q := Quote{Symbol: "BTCUSDT", Venue: "BINANCE", Bid: 100, Ask: 100.5, Ts: now.UnixMilli()}

	c.Upsert(q)
	before, _ := c.Get("BTCUSDT")
	c.Upsert(q)
	after, _ := c.Get("BTCUSDT")

	if before.BestBid != after.BestBid || before.BestAsk != after.BestAsk || before.SpreadPct != after.SpreadPct {
		t.Errorf("reapply changed derivation: before=%+v after=%+v", before, after)
	}
}

// TestStaleVenueExcluded 超过新鲜窗口的交易所不参与派生，但其报价仍在缓存里
func TestStaleVenueExcluded(t *testing.T) {
	start := time.Now()
	c := newTestCache(start)

	c.Upsert(Quote{Symbol: "BTCUSDT", Venue: "BINANCE", Bid: 100, Ask: 100.2, Ts: start.UnixMilli()})
	c.Upsert(Quote{Symbol: "BTCUSDT", Venue: "OKX", Bid: 102, Ask: 102.5, Ts: start.UnixMilli()})

	// BINANCE 停止推送 40s，OKX 继续
	later := start.Add(40 * time.Second)
	c.SetClock(fixedClock(later))
	c.Upsert(Quote{Symbol: "BTCUSDT", Venue: "OKX", Bid: 103, Ask: 103.4, Ts: later.UnixMilli()})

	agg, _ := c.Get("BTCUSDT")
	if agg.BestBidVenue != "OKX" || agg.BestAskVenue != "OKX" {
		t.Errorf("stale venue still contributes: bid@%s ask@%s", agg.BestBidVenue, agg.BestAskVenue)
	}
	if agg.BestBid != 103 || agg.BestAsk != 103.4 {
		t.Errorf("expected reduced-set result 103/103.4, got %v/%v", agg.BestBid, agg.BestAsk)
	}
	if agg.CrossVenue {
		t.Error("single fresh venue must not be cross-venue")
	}
	if _, kept := agg.Quotes["BINANCE"]; !kept {
		t.Error("stale quote must stay in cache until superseded")
	}

	// 对照组：只喂 OKX 的全新缓存应得到相同派生值
	ref := newTestCache(later)
	ref.Upsert(Quote{Symbol: "BTCUSDT", Venue: "OKX", Bid: 103, Ask: 103.4, Ts: later.UnixMilli()})
	refAgg, _ := ref.Get("BTCUSDT")
	if refAgg.BestBid != agg.BestBid || refAgg.BestAsk != agg.BestAsk || refAgg.SpreadPct != agg.SpreadPct {
		t.Errorf("reduced set differs from scratch: %+v vs %+v", agg, refAgg)
	}
}

// TestNoSignalWhenAllStale 没有任何新鲜报价时回到无信号哨兵
func TestNoSignalWhenAllStale(t *testing.T) {
	start := time.Now()
	c := newTestCache(start)

	c.Upsert(Quote{Symbol: "BTCUSDT", Venue: "BINANCE", Bid: 100, Ask: 100.2, Ts: start.UnixMilli()})

	later := start.Add(time.Minute)
	c.SetClock(fixedClock(later))
	// 旧报价重放触发重算（时间戳相同，允许），此时该报价已过期
	c.Upsert(Quote{Symbol: "BTCUSDT", Venue: "BINANCE", Bid: 100, Ask: 100.2, Ts: start.UnixMilli()})

	agg, _ := c.Get("BTCUSDT")
	if agg.HasSignal {
		t.Error("expected no-signal sentinel when every quote is stale")
	}
	if agg.BestBidVenue != "" || agg.BestAskVenue != "" {
		t.Errorf("best venues must be cleared, got %s/%s", agg.BestBidVenue, agg.BestAskVenue)
	}
}

// TestZeroPriceExcluded bid 或 ask 为 0 的报价不参与派生
func TestZeroPriceExcluded(t *testing.T) {
	now := time.Now()
	c := newTestCache(now)
	ts := now.UnixMilli()

	c.Upsert(Quote{Symbol: "BTCUSDT", Venue: "BINANCE", Bid: 0, Ask: 100.2, Ts: ts})
	agg, _ := c.Get("BTCUSDT")
	if agg.HasSignal {
		t.Error("zero bid must not produce a signal")
	}

	c.Upsert(Quote{Symbol: "BTCUSDT", Venue: "OKX", Bid: 102, Ask: 102.5, Ts: ts})
	agg, _ = c.Get("BTCUSDT")
	if agg.BestBidVenue != "OKX" || agg.BestAskVenue != "OKX" {
		t.Errorf("invalid quote contributed: bid@%s ask@%s", agg.BestBidVenue, agg.BestAskVenue)
	}
}

// TestTieBreakByPriority 平价时按配置的交易所优先级，与到达顺序无关
func TestTieBreakByPriority(t *testing.T) {
	now := time.Now()
	ts := now.UnixMilli()

	for _, order := range [][]string{{"OKX", "BYBIT"}, {"BYBIT", "OKX"}} {
		c := newTestCache(now)
		for _, venue := range order {
			c.Upsert(Quote{Symbol: "ETHUSDT", Venue: venue, Bid: 2000, Ask: 2001, Ts: ts})
		}
		agg, _ := c.Get("ETHUSDT")
		// BYBIT 在优先级列表里排在 OKX 前
		if agg.BestBidVenue != "BYBIT" || agg.BestAskVenue != "BYBIT" {
			t.Errorf("arrival order %v: expected BYBIT to win ties, got bid@%s ask@%s",
				order, agg.BestBidVenue, agg.BestAskVenue)
		}
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	now := time.Now()
	c := newTestCache(now)
	c.Upsert(Quote{Symbol: "BTCUSDT", Venue: "BINANCE", Bid: 100, Ask: 100.5, Ts: now.UnixMilli()})

	snap := c.Snapshot()
	snap["BTCUSDT"].Quotes["BINANCE"] = Quote{Symbol: "BTCUSDT", Venue: "BINANCE", Bid: 1, Ask: 2}

	agg, _ := c.Get("BTCUSDT")
	if agg.Quotes["BINANCE"].Bid != 100 {
		t.Error("snapshot mutation leaked into cache")
	}
}
