package watch

import (
	"context"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
)

// noopRepo 没有启用任何存储后端时的占位实现
type noopRepo struct{}

func NewNoopRepo() port.MetricsRepository { return &noopRepo{} }

func (n *noopRepo) SaveSpreadMetric(ctx context.Context, m *domain.SpreadMetric) error { return nil }

func (n *noopRepo) SaveAlert(ctx context.Context, rec *domain.AlertRecord) (int64, error) {
	return 0, nil
}

func (n *noopRepo) Close() error { return nil }
