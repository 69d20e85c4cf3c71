package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application"
	"spreadwatch/internal/domain"
	"spreadwatch/internal/infrastructure/exchange"
)

// TickerPoller Kraken Futures REST 轮询。
// 该所接口按单合约返回，轮询即 N 次请求：按 concurrency 分批并发，
// 批间 sleep batchDelay 控制节奏。
type TickerPoller struct {
	baseURL     string // e.g. https://futures.kraken.com
	client      *http.Client
	mapper      exchange.SymbolMapper
	concurrency int
	batchDelay  time.Duration
}

func NewTickerPoller(baseURL string, timeout time.Duration, concurrency int, batchDelay time.Duration) *TickerPoller {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	if batchDelay < 0 {
		batchDelay = 0
	}
	return &TickerPoller{
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:      &http.Client{Timeout: timeout},
		mapper:      exchange.NewKrakenPerpMapper("USDT"),
		concurrency: concurrency,
		batchDelay:  batchDelay,
	}
}

func (p *TickerPoller) Name() string { return application.VenueKraken }

type krakenTickerResp struct {
	Result string       `json:"result"` // success | error
	Error  string       `json:"error,omitempty"`
	Ticker krakenTicker `json:"ticker"`
}

type krakenTicker struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
}

func (p *TickerPoller) Poll(ctx context.Context, symbols []string) []domain.Quote {
	var (
		mu  sync.Mutex
		out = make([]domain.Quote, 0, len(symbols))
	)

	for start := 0; start < len(symbols); start += p.concurrency {
		if ctx.Err() != nil {
			return out
		}

		end := start + p.concurrency
		if end > len(symbols) {
			end = len(symbols)
		}

		var wg sync.WaitGroup
		for _, sym := range symbols[start:end] {
			wg.Add(1)
			go func(sym string) {
				defer wg.Done()
				q, ok := p.fetchOne(ctx, sym)
				if !ok {
					return
				}
				mu.Lock()
				out = append(out, q)
				mu.Unlock()
			}(sym)
		}
		wg.Wait()

		if end < len(symbols) && p.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return out
			case <-time.After(p.batchDelay):
			}
		}
	}
	return out
}

func (p *TickerPoller) fetchOne(ctx context.Context, symbol string) (domain.Quote, bool) {
	inst := p.mapper.ToVenue(symbol)
	url := fmt.Sprintf("%s/derivatives/api/v3/tickers/%s", p.baseURL, inst)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Error().Str("feed", p.Name()).Str("symbol", symbol).Err(err).Msg("build poll request failed")
		return domain.Quote{}, false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		log.Error().Str("feed", p.Name()).Str("symbol", symbol).Err(err).Msg("poll request failed")
		return domain.Quote{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Error().Str("feed", p.Name()).Str("symbol", symbol).Int("status", resp.StatusCode).
			Str("body", string(body)).Msg("poll bad status")
		return domain.Quote{}, false
	}

	var parsed krakenTickerResp
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Error().Str("feed", p.Name()).Str("symbol", symbol).Err(err).Msg("poll decode failed")
		return domain.Quote{}, false
	}
	if parsed.Result != "success" {
		log.Error().Str("feed", p.Name()).Str("symbol", symbol).
			Str("error", parsed.Error).Msg("poll api error")
		return domain.Quote{}, false
	}
	if parsed.Ticker.Bid <= 0 || parsed.Ticker.Ask <= 0 {
		log.Debug().Str("feed", p.Name()).Str("symbol", symbol).Msg("empty ticker skipped")
		return domain.Quote{}, false
	}

	sym := p.mapper.ToCanonical(parsed.Ticker.Symbol)
	if sym == "" {
		sym = strings.ToUpper(strings.TrimSpace(symbol))
	}
	return domain.Quote{Symbol: sym, Bid: parsed.Ticker.Bid, Ask: parsed.Ticker.Ask}, true
}
