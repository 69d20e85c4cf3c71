package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
)

// Repo Postgres 落库（pgx stdlib 驱动），多实例共享时用它替代 SQLite
type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

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
  id BIGSERIAL PRIMARY KEY,
  symbol TEXT NOT NULL,
  spread_pct DOUBLE PRECISION NOT NULL,
  best_bid DOUBLE PRECISION NOT NULL,
  best_ask DOUBLE PRECISION NOT NULL,
  best_bid_venue TEXT NOT NULL,
  best_ask_venue TEXT NOT NULL,
  profit DOUBLE PRECISION NOT NULL,
  ts_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_metrics_symbol ON spread_metrics(symbol);
CREATE INDEX IF NOT EXISTS idx_metrics_ts ON spread_metrics(ts_ms);

CREATE TABLE IF NOT EXISTS alerts (
  id BIGSERIAL PRIMARY KEY,
  symbol TEXT NOT NULL,
  spread_pct DOUBLE PRECISION NOT NULL,
  buy_venue TEXT NOT NULL,
  sell_venue TEXT NOT NULL,
  buy_price DOUBLE PRECISION NOT NULL,
  sell_price DOUBLE PRECISION NOT NULL,
  ts_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_symbol ON alerts(symbol);
CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(ts_ms);
`)
	return err
}

func (r *Repo) SaveSpreadMetric(ctx context.Context, m *domain.SpreadMetric) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO spread_metrics(symbol, spread_pct, best_bid, best_ask, best_bid_venue, best_ask_venue, profit, ts_ms)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
	`, m.Symbol, m.SpreadPct, m.BestBid, m.BestAsk, m.BestBidVenue, m.BestAskVenue, m.Profit, m.Ts)
	return err
}

func (r *Repo) SaveAlert(ctx context.Context, a *domain.AlertRecord) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO alerts(symbol, spread_pct, buy_venue, sell_venue, buy_price, sell_price, ts_ms)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, a.Symbol, a.SpreadPct, a.BuyVenue, a.SellVenue, a.BuyPrice, a.SellPrice, a.Ts).Scan(&id)
	return id, err
}

var _ port.MetricsRepository = (*Repo)(nil)
