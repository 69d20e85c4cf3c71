package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application"
	"spreadwatch/internal/domain"
	"spreadwatch/internal/infrastructure/exchange"
)

// BookTickerPoller Binance 合约顶档 REST 轮询，一次请求拿全量 bookTicker
type BookTickerPoller struct {
	baseURL string // e.g. https://fapi.binance.com
	client  *http.Client
	mapper  exchange.SymbolMapper
}

func NewBookTickerPoller(baseURL string, timeout time.Duration) *BookTickerPoller {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &BookTickerPoller{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: timeout},
		mapper:  exchange.IdentityMapper{},
	}
}

func (p *BookTickerPoller) Name() string { return application.VenueBinance }

type binanceRestTicker struct {
	Symbol string `json:"symbol"`
	BidPx  string `json:"bidPrice"`
	AskPx  string `json:"askPrice"`
	Time   int64  `json:"time"`
}

// Poll 失败返回空并记日志；脏记录跳过不中断整批
func (p *BookTickerPoller) Poll(ctx context.Context, symbols []string) []domain.Quote {
	url := fmt.Sprintf("%s/fapi/v1/ticker/bookTicker", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Error().Str("feed", p.Name()).Err(err).Msg("build poll request failed")
		return nil
	}

	resp, err := p.client.Do(req)
	if err != nil {
		log.Error().Str("feed", p.Name()).Err(err).Msg("poll request failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Error().Str("feed", p.Name()).Int("status", resp.StatusCode).
			Str("body", string(body)).Msg("poll bad status")
		return nil
	}

	var tickers []binanceRestTicker
	if err := json.NewDecoder(resp.Body).Decode(&tickers); err != nil {
		log.Error().Str("feed", p.Name()).Err(err).Msg("poll decode failed")
		return nil
	}

	want := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		want[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
	}

	out := make([]domain.Quote, 0, len(symbols))
	for _, t := range tickers {
		sym := p.mapper.ToCanonical(t.Symbol)
		if _, ok := want[sym]; !ok {
			continue
		}
		bid, err1 := strconv.ParseFloat(strings.TrimSpace(t.BidPx), 64)
		ask, err2 := strconv.ParseFloat(strings.TrimSpace(t.AskPx), 64)
		if err1 != nil || err2 != nil {
			log.Debug().Str("feed", p.Name()).Str("symbol", t.Symbol).Msg("malformed ticker skipped")
			continue
		}
		out = append(out, domain.Quote{Symbol: sym, Bid: bid, Ask: ask})
	}
	return out
}
