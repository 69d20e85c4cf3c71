package okx

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

// TickerPoller OKX v5 永续合约 REST 轮询，一次请求拿全量 SWAP tickers
type TickerPoller struct {
	baseURL string // e.g. https://www.okx.com
	client  *http.Client
	mapper  exchange.SymbolMapper
}

func NewTickerPoller(baseURL string, timeout time.Duration) *TickerPoller {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TickerPoller{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: timeout},
		mapper:  exchange.NewDashSwapMapper("USDT"),
	}
}

func (p *TickerPoller) Name() string { return application.VenueOKX }

type okxRestResp struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data []okxRestTicker `json:"data"`
}

type okxRestTicker struct {
	InstID string `json:"instId"`
	BidPx  string `json:"bidPx"`
	AskPx  string `json:"askPx"`
}

func (p *TickerPoller) Poll(ctx context.Context, symbols []string) []domain.Quote {
	url := fmt.Sprintf("%s/api/v5/market/tickers?instType=SWAP", p.baseURL)
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

	var parsed okxRestResp
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Error().Str("feed", p.Name()).Err(err).Msg("poll decode failed")
		return nil
	}
	if parsed.Code != "0" {
		log.Error().Str("feed", p.Name()).Str("code", parsed.Code).
			Str("msg", parsed.Msg).Msg("poll api error")
		return nil
	}

	want := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		want[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
	}

	out := make([]domain.Quote, 0, len(symbols))
	for _, t := range parsed.Data {
		sym := p.mapper.ToCanonical(t.InstID)
		if _, ok := want[sym]; !ok {
			continue
		}
		bid, err1 := strconv.ParseFloat(strings.TrimSpace(t.BidPx), 64)
		ask, err2 := strconv.ParseFloat(strings.TrimSpace(t.AskPx), 64)
		if err1 != nil || err2 != nil {
			log.Debug().Str("feed", p.Name()).Str("inst_id", t.InstID).Msg("malformed ticker skipped")
			continue
		}
		out = append(out, domain.Quote{Symbol: sym, Bid: bid, Ask: ask})
	}
	return out
}
