package bybit

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application"
	"spreadwatch/internal/domain"
	"spreadwatch/internal/infrastructure/exchange"
)

// TickerStream Bybit v5 线性合约 ticker push 流
type TickerStream struct {
	wsURL   string // e.g. wss://stream.bybit.com/v5/public/linear
	timeout time.Duration
	mapper  exchange.SymbolMapper
}

func NewTickerStream(wsURL string, timeout time.Duration) *TickerStream {
	return &TickerStream{
		wsURL:   strings.TrimSpace(wsURL),
		timeout: timeout,
		mapper:  exchange.IdentityMapper{},
	}
}

func (f *TickerStream) Name() string { return application.VenueBybit }

type bybitSubReq struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

type bybitTickerMsg struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"` // snapshot | delta
	Ts    int64           `json:"ts"`
	Data  bybitTickerData `json:"data"`

	Success *bool  `json:"success,omitempty"`
	RetMsg  string `json:"ret_msg,omitempty"`
	Op      string `json:"op,omitempty"`
}

// delta 消息只带变化的字段，缺席字段为空串
type bybitTickerData struct {
	Symbol string `json:"symbol"`
	Bid1Px string `json:"bid1Price"`
	Ask1Px string `json:"ask1Price"`
}

// Stream 一次连接尝试：拨号、订阅、读到断开。
// delta 语义：按 symbol 合并最近一次见到的 bid/ask，两侧齐了才产出报价。
func (f *TickerStream) Stream(ctx context.Context, symbols []string, onUp func(), onQuote func(domain.Quote)) error {
	if f.wsURL == "" {
		return errors.New("bybit ws_url empty")
	}

	topics := make([]string, 0, len(symbols))
	for _, s := range symbols {
		v := f.mapper.ToVenue(s)
		if v == "" {
			continue
		}
		topics = append(topics, "tickers."+v)
	}
	if len(topics) == 0 {
		return errors.New("no valid symbols for bybit topics")
	}

	conn, err := exchange.Dial(ctx, f.wsURL, f.timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(bybitSubReq{Op: "subscribe", Args: topics}); err != nil {
		return err
	}

	onUp()
	log.Info().Str("feed", f.Name()).Msg("ws connected & subscribed")

	// 连接生命周期内的合并状态；重连后第一条是 snapshot，会重建
	type sides struct{ bid, ask float64 }
	book := make(map[string]sides, len(symbols))

	return exchange.ReadLoop(ctx, conn, func(b []byte) {
		var msg bybitTickerMsg
		if e := json.Unmarshal(b, &msg); e != nil {
			log.Error().Str("feed", f.Name()).Err(e).Msg("json unmarshal failed")
			return
		}

		// 订阅回执
		if msg.Success != nil {
			if !*msg.Success {
				log.Error().Str("feed", f.Name()).Str("ret_msg", msg.RetMsg).Msg("subscribe not success")
			}
			return
		}

		sym := f.mapper.ToCanonical(msg.Data.Symbol)
		if sym == "" {
			return
		}

		st := book[sym]
		if px := strings.TrimSpace(msg.Data.Bid1Px); px != "" {
			if n, err := strconv.ParseFloat(px, 64); err == nil {
				st.bid = n
			}
		}
		if px := strings.TrimSpace(msg.Data.Ask1Px); px != "" {
			if n, err := strconv.ParseFloat(px, 64); err == nil {
				st.ask = n
			}
		}
		book[sym] = st

		if st.bid <= 0 || st.ask <= 0 {
			return
		}
		onQuote(domain.Quote{Symbol: sym, Bid: st.bid, Ask: st.ask})
	})
}
