package okx

import (
	"encoding/json"
	"testing"
)

func TestParseBboTupleLevels(t *testing.T) {
	raw := `{"arg":{"channel":"bbo-tbt","instId":"BTC-USDT-SWAP"},"data":[{"asks":[["65000.2","1.5","0","3"]],"bids":[["65000.1","2.0","0","5"]],"ts":"1717410000000"}]}`

	var msg okxBboMsg
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(msg.Data) != 1 {
		t.Fatalf("data len = %d", len(msg.Data))
	}

	q, ok := parseBbo("BTCUSDT", msg.Data[0])
	if !ok {
		t.Fatal("expected quote")
	}
	if q.Bid != 65000.1 || q.Ask != 65000.2 {
		t.Fatalf("quote = %+v", q)
	}
}

func TestParseBboEmptySide(t *testing.T) {
	if _, ok := parseBbo("BTCUSDT", okxBboData{Asks: [][]string{{"1.0", "1"}}}); ok {
		t.Fatal("missing bids should be rejected")
	}
	if _, ok := parseBbo("BTCUSDT", okxBboData{Bids: [][]string{{"x"}}, Asks: [][]string{{"1.0"}}}); ok {
		t.Fatal("non-numeric price should be rejected")
	}
}
