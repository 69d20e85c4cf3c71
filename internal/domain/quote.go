package domain

// Quote 单个交易所的顶档报价（top-of-book）
// 同一 (symbol, venue) 的新 Quote 整体替换旧的，不做字段级修改
type Quote struct {
	Symbol string  `json:"symbol"` // 标准交易对，如 "BTCUSDT"
	Venue  string  `json:"venue"`  // 交易所 "BINANCE" "OKX" ...
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Ts     int64   `json:"ts_ms"` // unix ms，入库时由 connector 盖章
}

// AggregatedSymbol 跨交易所聚合视图，由 Cache 持有、recompute 更新
type AggregatedSymbol struct {
	Symbol       string           `json:"symbol"`
	Quotes       map[string]Quote `json:"quotes"` // venue -> 最新 Quote（可能已过期，但不删除）
	BestBid      float64          `json:"best_bid"`
	BestAsk      float64          `json:"best_ask"`
	BestBidVenue string           `json:"best_bid_venue"`
	BestAskVenue string           `json:"best_ask_venue"`
	SpreadPct    float64          `json:"spread_pct"`
	HasSignal    bool             `json:"has_signal"`  // false = 无信号哨兵，SpreadPct 不可用
	CrossVenue   bool             `json:"cross_venue"` // 买卖在不同交易所才是可操作机会
	ComputedAt   int64            `json:"computed_at"`
}

// SpreadMetric 周期性落库的价差指标
type SpreadMetric struct {
	Symbol       string  `json:"symbol"`
	SpreadPct    float64 `json:"spread_pct"`
	BestBid      float64 `json:"best_bid"`
	BestAsk      float64 `json:"best_ask"`
	BestBidVenue string  `json:"best_bid_venue"`
	BestAskVenue string  `json:"best_ask_venue"`
	Profit       float64 `json:"profit"` // 每单位利润 = best_bid - best_ask，计价货币
	Ts           int64   `json:"ts_ms"`
}

// AlertRecord 触发阈值的套利告警，写一次，不再修改
type AlertRecord struct {
	Symbol    string  `json:"symbol"`
	SpreadPct float64 `json:"spread_pct"`
	BuyVenue  string  `json:"buy_venue"`  // 在该所按 best ask 买入
	SellVenue string  `json:"sell_venue"` // 在该所按 best bid 卖出
	BuyPrice  float64 `json:"buy_price"`
	SellPrice float64 `json:"sell_price"`
	Ts        int64   `json:"ts_ms"`
}
