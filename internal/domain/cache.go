package domain

import (
	"strings"
	"sync"
	"time"
)

// Cache 保存每个 (symbol, venue) 的最新报价，是所有派生数据的唯一来源。
// symbol 集合在构造时固定（allow-list），运行期不增不减。
type Cache struct {
	mu sync.Mutex

	staleness time.Duration
	priority  map[string]int // venue -> 优先级序号，平价时决定胜者
	order     []string
	syms      map[string]*AggregatedSymbol

	now func() time.Time
}

// NewCache 为每个 allow-list 交易对建一个空的 AggregatedSymbol。
// venuePriority 决定 bid/ask 平价时的归属，列表外的交易所排在列表后、按名称序。
func NewCache(symbols []string, staleness time.Duration, venuePriority []string) *Cache {
	if staleness <= 0 {
		staleness = 30 * time.Second
	}

	priority := make(map[string]int, len(venuePriority))
	for i, v := range venuePriority {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := priority[v]; !ok {
			priority[v] = i
		}
	}

	order := make([]string, 0, len(symbols))
	syms := make(map[string]*AggregatedSymbol, len(symbols))
	for _, s := range symbols {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, ok := syms[u]; ok {
			continue
		}
		order = append(order, u)
		syms[u] = &AggregatedSymbol{
			Symbol: u,
			Quotes: make(map[string]Quote),
		}
	}

	return &Cache{
		staleness: staleness,
		priority:  priority,
		order:     order,
		syms:      syms,
		now:       time.Now,
	}
}

// SetClock 注入时钟，仅测试使用
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Cache) Symbols() []string {
	return c.order
}

// Upsert 应用一条报价并只重算该 symbol。
// 非 allow-list 的 symbol 直接丢弃；比已存时间戳更旧的报价丢弃（时间戳不回退）。
// 返回是否被接受。
func (c *Cache) Upsert(q Quote) bool {
	sym := strings.ToUpper(strings.TrimSpace(q.Symbol))
	venue := strings.ToUpper(strings.TrimSpace(q.Venue))
	if sym == "" || venue == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.syms[sym]
	if st == nil {
		return false
	}
	if prev, ok := st.Quotes[venue]; ok && q.Ts < prev.Ts {
		return false
	}

	q.Symbol = sym
	q.Venue = venue
	st.Quotes[venue] = q
	c.recompute(st)
	return true
}

// recompute 在持锁状态下重算单个 symbol 的 best bid/ask/spread。
// 只有新鲜且 bid、ask 均为正的报价参与；过期报价被排除但仍留在 Quotes 里。
func (c *Cache) recompute(st *AggregatedSymbol) {
	now := c.now()
	cutoff := now.Add(-c.staleness).UnixMilli()

	st.BestBid, st.BestAsk = 0, 0
	st.BestBidVenue, st.BestAskVenue = "", ""
	st.HasSignal = false
	st.CrossVenue = false
	st.SpreadPct = 0
	st.ComputedAt = now.UnixMilli()

	for venue, q := range st.Quotes {
		if q.Ts < cutoff || q.Bid <= 0 || q.Ask <= 0 {
			continue
		}
		if st.BestBidVenue == "" || q.Bid > st.BestBid ||
			(q.Bid == st.BestBid && c.ranksBefore(venue, st.BestBidVenue)) {
			st.BestBid = q.Bid
			st.BestBidVenue = venue
		}
		if st.BestAskVenue == "" || q.Ask < st.BestAsk ||
			(q.Ask == st.BestAsk && c.ranksBefore(venue, st.BestAskVenue)) {
			st.BestAsk = q.Ask
			st.BestAskVenue = venue
		}
	}

	if st.BestBidVenue == "" || st.BestAskVenue == "" {
		return
	}
	st.HasSignal = true
	st.CrossVenue = st.BestBidVenue != st.BestAskVenue
	st.SpreadPct = (st.BestBid - st.BestAsk) / st.BestAsk * 100
}

// ranksBefore 平价时的确定性胜负：优先级列表序号小者胜，列表外按名称序
func (c *Cache) ranksBefore(a, b string) bool {
	ra, oka := c.priority[a]
	rb, okb := c.priority[b]
	switch {
	case oka && okb:
		return ra < rb
	case oka:
		return true
	case okb:
		return false
	default:
		return a < b
	}
}

// Get 返回单个 symbol 聚合视图的副本
func (c *Cache) Get(symbol string) (AggregatedSymbol, bool) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))

	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.syms[sym]
	if st == nil {
		return AggregatedSymbol{}, false
	}
	return copyAgg(st), true
}

// Snapshot 返回整个缓存的深拷贝，读侧不会看到半更新状态
func (c *Cache) Snapshot() map[string]AggregatedSymbol {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]AggregatedSymbol, len(c.syms))
	for sym, st := range c.syms {
		out[sym] = copyAgg(st)
	}
	return out
}

func copyAgg(st *AggregatedSymbol) AggregatedSymbol {
	cp := *st
	cp.Quotes = make(map[string]Quote, len(st.Quotes))
	for v, q := range st.Quotes {
		cp.Quotes[v] = q
	}
	return cp
}
