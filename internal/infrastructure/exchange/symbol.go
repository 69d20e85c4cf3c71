package exchange

import "strings"

// SymbolMapper 标准交易对与交易所本地拼写之间的互转。
// 标准形态统一为 "BTCUSDT"，各所在订阅和解析时各自换算。
type SymbolMapper interface {
	// ToVenue 标准 -> 交易所本地，如 BTCUSDT -> BTC-USDT-SWAP
	ToVenue(symbol string) string
	// ToCanonical 交易所本地 -> 标准，无法识别时返回 ""
	ToCanonical(venueSymbol string) string
}

// IdentityMapper 本地拼写即标准拼写（binance、bybit 线性合约）
type IdentityMapper struct{}

func (IdentityMapper) ToVenue(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (IdentityMapper) ToCanonical(venueSymbol string) string {
	return strings.ToUpper(strings.TrimSpace(venueSymbol))
}

// DashSwapMapper OKX 永续拼写：BTCUSDT <-> BTC-USDT-SWAP
type DashSwapMapper struct {
	Quote string // 计价货币，如 "USDT"
}

func NewDashSwapMapper(quote string) DashSwapMapper {
	return DashSwapMapper{Quote: strings.ToUpper(strings.TrimSpace(quote))}
}

func (m DashSwapMapper) ToVenue(symbol string) string {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	base := strings.TrimSuffix(sym, m.Quote)
	if base == "" || base == sym {
		return sym
	}
	return base + "-" + m.Quote + "-SWAP"
}

func (m DashSwapMapper) ToCanonical(venueSymbol string) string {
	sym := strings.ToUpper(strings.TrimSpace(venueSymbol))
	sym = strings.TrimSuffix(sym, "-SWAP")
	return strings.ReplaceAll(sym, "-", "")
}

// KrakenPerpMapper Kraken 期货拼写：BTCUSDT <-> PF_XBTUSD（前缀 + XBT 别名）
type KrakenPerpMapper struct {
	Quote string
}

func NewKrakenPerpMapper(quote string) KrakenPerpMapper {
	return KrakenPerpMapper{Quote: strings.ToUpper(strings.TrimSpace(quote))}
}

func (m KrakenPerpMapper) ToVenue(symbol string) string {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	base := strings.TrimSuffix(sym, m.Quote)
	if base == "" || base == sym {
		return sym
	}
	if base == "BTC" {
		base = "XBT"
	}
	return "PF_" + base + "USD"
}

func (m KrakenPerpMapper) ToCanonical(venueSymbol string) string {
	sym := strings.ToUpper(strings.TrimSpace(venueSymbol))
	sym = strings.TrimPrefix(sym, "PF_")
	sym = strings.TrimSuffix(sym, "USD")
	if sym == "XBT" {
		sym = "BTC"
	}
	if sym == "" {
		return ""
	}
	return sym + m.Quote
}
