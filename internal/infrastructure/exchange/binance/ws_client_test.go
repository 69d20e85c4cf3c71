package binance

import (
	"encoding/json"
	"strings"
	"testing"

	"spreadwatch/internal/infrastructure/exchange"
)

func TestParseBookTicker(t *testing.T) {
	raw := `{"stream":"btcusdt@bookTicker","data":{"u":400900217,"s":"BTCUSDT","b":"65000.10","B":"31.2","a":"65000.20","A":"40.6"}}`

	var msg binanceCombined
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	q, ok := parseBookTicker(exchange.IdentityMapper{}, msg.Data)
	if !ok {
		t.Fatal("expected quote")
	}
	if q.Symbol != "BTCUSDT" || q.Bid != 65000.10 || q.Ask != 65000.20 {
		t.Fatalf("quote = %+v", q)
	}
}

func TestParseBookTickerMalformed(t *testing.T) {
	if _, ok := parseBookTicker(exchange.IdentityMapper{}, binanceBookTicker{Symbol: "BTCUSDT", BidPx: "abc", AskPx: "1"}); ok {
		t.Fatal("malformed bid should be rejected")
	}
	if _, ok := parseBookTicker(exchange.IdentityMapper{}, binanceBookTicker{Symbol: "", BidPx: "1", AskPx: "2"}); ok {
		t.Fatal("empty symbol should be rejected")
	}
}

func TestBuildCombinedURL(t *testing.T) {
	got, err := buildCombinedURL("wss://fstream.binance.com", []string{"BTCUSDT", "ETHUSDT"})
	if err != nil {
		t.Fatalf("buildCombinedURL: %v", err)
	}
	if !strings.Contains(got, "/stream") {
		t.Fatalf("missing path: %s", got)
	}
	if !strings.Contains(got, "btcusdt@bookTicker/ethusdt@bookTicker") {
		t.Fatalf("missing streams: %s", got)
	}

	if _, err := buildCombinedURL("wss://fstream.binance.com", nil); err == nil {
		t.Fatal("empty symbols should fail")
	}
	if _, err := buildCombinedURL("", []string{"BTCUSDT"}); err == nil {
		t.Fatal("empty base should fail")
	}
}
