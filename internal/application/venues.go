package application

// 支持的交易所集合是封闭的，新增交易所需要实现适配器并在 main 里接线
const (
	VenueBinance = "BINANCE"
	VenueBybit   = "BYBIT"
	VenueOKX     = "OKX"
	VenueKraken  = "KRAKEN"
)
