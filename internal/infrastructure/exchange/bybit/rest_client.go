package bybit

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

// TickerPoller Bybit v5 线性合约 REST 轮询
type TickerPoller struct {
	baseURL string // e.g. https://api.bybit.com
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
		mapper:  exchange.IdentityMapper{},
	}
}

func (p *TickerPoller) Name() string { return application.VenueBybit }

type bybitRestResp struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []bybitRestTicker `json:"list"`
	} `json:"result"`
}

type bybitRestTicker struct {
	Symbol string `json:"symbol"`
	Bid1Px string `json:"bid1Price"`
	Ask1Px string `json:"ask1Price"`
}

func (p *TickerPoller) Poll(ctx context.Context, symbols []string) []domain.Quote {
	url := fmt.Sprintf("%s/v5/market/tickers?category=linear", p.baseURL)
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

	var parsed bybitRestResp
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Error().Str("feed", p.Name()).Err(err).Msg("poll decode failed")
		return nil
	}
	if parsed.RetCode != 0 {
		log.Error().Str("feed", p.Name()).Int("ret_code", parsed.RetCode).
			Str("ret_msg", parsed.RetMsg).Msg("poll api error")
		return nil
	}

	want := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		want[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
	}

	out := make([]domain.Quote, 0, len(symbols))
	for _, t := range parsed.Result.List {
		sym := p.mapper.ToCanonical(t.Symbol)
		if _, ok := want[sym]; !ok {
			continue
		}
		bid, err1 := strconv.ParseFloat(strings.TrimSpace(t.Bid1Px), 64)
		ask, err2 := strconv.ParseFloat(strings.TrimSpace(t.Ask1Px), 64)
		if err1 != nil || err2 != nil {
			log.Debug().Str("feed", p.Name()).Str("symbol", t.Symbol).Msg("malformed ticker skipped")
			continue
		}
		out = append(out, domain.Quote{Symbol: sym, Bid: bid, Ask: ask})
	}
	return out
}
