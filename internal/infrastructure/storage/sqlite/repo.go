package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
)

// Repo 本地 SQLite 落库，适合单机运行；单连接避免 SQLITE_BUSY
type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS spread_metrics (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  symbol TEXT NOT NULL,
  spread_pct REAL NOT NULL,
  best_bid REAL NOT NULL,
  best_ask REAL NOT NULL,
  best_bid_venue TEXT NOT NULL,
  best_ask_venue TEXT NOT NULL,
  profit REAL NOT NULL,
  ts_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_metrics_symbol ON spread_metrics(symbol);
CREATE INDEX IF NOT EXISTS idx_metrics_ts ON spread_metrics(ts_ms);

CREATE TABLE IF NOT EXISTS alerts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  symbol TEXT NOT NULL,
  spread_pct REAL NOT NULL,
  buy_venue TEXT NOT NULL,
  sell_venue TEXT NOT NULL,
  buy_price REAL NOT NULL,
  sell_price REAL NOT NULL,
  ts_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_symbol ON alerts(symbol);
CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(ts_ms);
`)
	return err
}

func (r *Repo) SaveSpreadMetric(ctx context.Context, m *domain.SpreadMetric) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO spread_metrics(symbol, spread_pct, best_bid, best_ask, best_bid_venue, best_ask_venue, profit, ts_ms)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`, m.Symbol, m.SpreadPct, m.BestBid, m.BestAsk, m.BestBidVenue, m.BestAskVenue, m.Profit, m.Ts)
	return err
}

func (r *Repo) SaveAlert(ctx context.Context, a *domain.AlertRecord) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts(symbol, spread_pct, buy_venue, sell_venue, buy_price, sell_price, ts_ms)
		VALUES(?, ?, ?, ?, ?, ?, ?)
	`, a.Symbol, a.SpreadPct, a.BuyVenue, a.SellVenue, a.BuyPrice, a.SellPrice, a.Ts)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

var _ port.MetricsRepository = (*Repo)(nil)
