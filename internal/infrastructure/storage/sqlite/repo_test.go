package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"spreadwatch/internal/domain"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSaveSpreadMetric(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	m := &domain.SpreadMetric{
		Symbol:       "BTCUSDT",
		SpreadPct:    1.7964,
		BestBid:      102.0,
		BestAsk:      100.2,
		BestBidVenue: "OKX",
		BestAskVenue: "BINANCE",
		Profit:       1.8,
		Ts:           1234567890,
	}
	if err := repo.SaveSpreadMetric(ctx, m); err != nil {
		t.Fatalf("SaveSpreadMetric failed: %v", err)
	}

	var count int
	if err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM spread_metrics WHERE symbol = ?`, "BTCUSDT").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 metric, got %d", count)
	}
}

func TestSaveAlertReturnsID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := &domain.AlertRecord{
		Symbol:    "ETHUSDT",
		SpreadPct: 0.9,
		BuyVenue:  "BINANCE",
		SellVenue: "OKX",
		BuyPrice:  3500.0,
		SellPrice: 3531.5,
		Ts:        1234567890,
	}

	id1, err := repo.SaveAlert(ctx, a)
	if err != nil {
		t.Fatalf("SaveAlert failed: %v", err)
	}
	id2, err := repo.SaveAlert(ctx, a)
	if err != nil {
		t.Fatalf("second SaveAlert failed: %v", err)
	}
	if id1 <= 0 || id2 <= id1 {
		t.Errorf("expected increasing ids, got %d then %d", id1, id2)
	}

	var sellVenue string
	if err := repo.db.QueryRowContext(ctx, `SELECT sell_venue FROM alerts WHERE id = ?`, id1).Scan(&sellVenue); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if sellVenue != "OKX" {
		t.Errorf("sell_venue = %s, want OKX", sellVenue)
	}
}
