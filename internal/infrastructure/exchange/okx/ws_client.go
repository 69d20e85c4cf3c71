package okx

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

// BboStream OKX v5 公共频道 bbo-tbt push 流（数组形态的价格档位）
type BboStream struct {
	wsURL   string // e.g. wss://ws.okx.com:8443/ws/v5/public
	timeout time.Duration
	mapper  exchange.SymbolMapper
}

func NewBboStream(wsURL string, timeout time.Duration) *BboStream {
	return &BboStream{
		wsURL:   strings.TrimSpace(wsURL),
		timeout: timeout,
		mapper:  exchange.NewDashSwapMapper("USDT"),
	}
}

func (f *BboStream) Name() string { return application.VenueOKX }

type okxSubReq struct {
	Op   string      `json:"op"`
	Args []okxSubArg `json:"args"`
}

type okxSubArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type okxBboMsg struct {
	Event string       `json:"event,omitempty"` // subscribe | error
	Msg   string       `json:"msg,omitempty"`
	Arg   okxSubArg    `json:"arg,omitempty"`
	Data  []okxBboData `json:"data,omitempty"`
}

// 档位是四元组 ["px","sz","0","numOrders"]，只取价格
type okxBboData struct {
	Asks [][]string `json:"asks"`
	Bids [][]string `json:"bids"`
	Ts   string     `json:"ts"`
}

func (f *BboStream) Stream(ctx context.Context, symbols []string, onUp func(), onQuote func(domain.Quote)) error {
	if f.wsURL == "" {
		return errors.New("okx ws_url empty")
	}

	args := make([]okxSubArg, 0, len(symbols))
	for _, s := range symbols {
		inst := f.mapper.ToVenue(s)
		if inst == "" {
			continue
		}
		args = append(args, okxSubArg{Channel: "bbo-tbt", InstID: inst})
	}
	if len(args) == 0 {
		return errors.New("no valid symbols for okx subscription")
	}

	conn, err := exchange.Dial(ctx, f.wsURL, f.timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(okxSubReq{Op: "subscribe", Args: args}); err != nil {
		return err
	}

	onUp()
	log.Info().Str("feed", f.Name()).Msg("ws connected & subscribed")

	return exchange.ReadLoop(ctx, conn, func(b []byte) {
		var msg okxBboMsg
		if e := json.Unmarshal(b, &msg); e != nil {
			log.Error().Str("feed", f.Name()).Err(e).Msg("json unmarshal failed")
			return
		}
		if msg.Event == "error" {
			log.Error().Str("feed", f.Name()).Str("msg", msg.Msg).Msg("subscribe error")
			return
		}
		if len(msg.Data) == 0 {
			return
		}

		sym := f.mapper.ToCanonical(msg.Arg.InstID)
		if sym == "" {
			return
		}
		for _, d := range msg.Data {
			q, ok := parseBbo(sym, d)
			if !ok {
				continue
			}
			onQuote(q)
		}
	})
}

func parseBbo(sym string, d okxBboData) (domain.Quote, bool) {
	bid, ok1 := topLevelPrice(d.Bids)
	ask, ok2 := topLevelPrice(d.Asks)
	if !ok1 || !ok2 {
		return domain.Quote{}, false
	}
	return domain.Quote{Symbol: sym, Bid: bid, Ask: ask}, true
}

func topLevelPrice(levels [][]string) (float64, bool) {
	if len(levels) == 0 || len(levels[0]) == 0 {
		return 0, false
	}
	px, err := strconv.ParseFloat(strings.TrimSpace(levels[0][0]), 64)
	if err != nil {
		return 0, false
	}
	return px, true
}
