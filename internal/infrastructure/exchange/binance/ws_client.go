package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application"
	"spreadwatch/internal/domain"
	"spreadwatch/internal/infrastructure/exchange"
)

// BookTickerStream Binance 合约顶档 push 流（combined stream, <sym>@bookTicker）
type BookTickerStream struct {
	wsURL   string // e.g. wss://fstream.binance.com
	timeout time.Duration
	mapper  exchange.SymbolMapper
}

func NewBookTickerStream(wsURL string, timeout time.Duration) *BookTickerStream {
	return &BookTickerStream{
		wsURL:   strings.TrimSpace(wsURL),
		timeout: timeout,
		mapper:  exchange.IdentityMapper{},
	}
}

func (f *BookTickerStream) Name() string { return application.VenueBinance }

// combined stream 外壳 + bookTicker 载荷（对象形态的价格档位）
type binanceCombined struct {
	Stream string            `json:"stream"`
	Data   binanceBookTicker `json:"data"`
}

type binanceBookTicker struct {
	Symbol   string `json:"s"`
	BidPx    string `json:"b"`
	BidQty   string `json:"B"`
	AskPx    string `json:"a"`
	AskQty   string `json:"A"`
	UpdateID int64  `json:"u"`
}

// Stream 一次连接尝试：URL 自带订阅，无需握手消息
func (f *BookTickerStream) Stream(ctx context.Context, symbols []string, onUp func(), onQuote func(domain.Quote)) error {
	wsURL, err := buildCombinedURL(f.wsURL, symbols)
	if err != nil {
		return err
	}

	conn, err := exchange.Dial(ctx, wsURL, f.timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	onUp()
	log.Info().Str("feed", f.Name()).Msg("ws connected")

	return exchange.ReadLoop(ctx, conn, func(b []byte) {
		var msg binanceCombined
		if e := json.Unmarshal(b, &msg); e != nil {
			log.Error().Str("feed", f.Name()).Err(e).Msg("json unmarshal failed")
			return
		}
		q, ok := parseBookTicker(f.mapper, msg.Data)
		if !ok {
			return
		}
		onQuote(q)
	})
}

func parseBookTicker(mapper exchange.SymbolMapper, d binanceBookTicker) (domain.Quote, bool) {
	sym := mapper.ToCanonical(d.Symbol)
	if sym == "" {
		return domain.Quote{}, false
	}
	bid, err1 := strconv.ParseFloat(strings.TrimSpace(d.BidPx), 64)
	ask, err2 := strconv.ParseFloat(strings.TrimSpace(d.AskPx), 64)
	if err1 != nil || err2 != nil {
		return domain.Quote{}, false
	}
	return domain.Quote{Symbol: sym, Bid: bid, Ask: ask}, true
}

func buildCombinedURL(base string, symbols []string) (string, error) {
	if base == "" {
		return "", errors.New("binance ws_url empty")
	}
	if len(symbols) == 0 {
		return "", errors.New("symbols empty")
	}

	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		streams = append(streams, fmt.Sprintf("%s@bookTicker", s))
	}
	if len(streams) == 0 {
		return "", errors.New("no valid symbols")
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), nil
}
