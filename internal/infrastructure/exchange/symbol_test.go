package exchange

import "testing"

func TestIdentityMapper(t *testing.T) {
	m := IdentityMapper{}
	if got := m.ToVenue(" btcusdt "); got != "BTCUSDT" {
		t.Fatalf("ToVenue = %q", got)
	}
	if got := m.ToCanonical("ethusdt"); got != "ETHUSDT" {
		t.Fatalf("ToCanonical = %q", got)
	}
}

func TestDashSwapMapper(t *testing.T) {
	m := NewDashSwapMapper("USDT")

	if got := m.ToVenue("BTCUSDT"); got != "BTC-USDT-SWAP" {
		t.Fatalf("ToVenue = %q", got)
	}
	if got := m.ToCanonical("BTC-USDT-SWAP"); got != "BTCUSDT" {
		t.Fatalf("ToCanonical = %q", got)
	}
	// 不带计价货币后缀的输入原样返回
	if got := m.ToVenue("BTCUSD"); got != "BTCUSD" {
		t.Fatalf("ToVenue non-quote = %q", got)
	}
}

func TestKrakenPerpMapper(t *testing.T) {
	m := NewKrakenPerpMapper("USDT")

	cases := []struct{ canonical, venue string }{
		{"BTCUSDT", "PF_XBTUSD"},
		{"ETHUSDT", "PF_ETHUSD"},
		{"SOLUSDT", "PF_SOLUSD"},
	}
	for _, c := range cases {
		if got := m.ToVenue(c.canonical); got != c.venue {
			t.Errorf("ToVenue(%s) = %q, want %q", c.canonical, got, c.venue)
		}
		if got := m.ToCanonical(c.venue); got != c.canonical {
			t.Errorf("ToCanonical(%s) = %q, want %q", c.venue, got, c.canonical)
		}
	}
}
