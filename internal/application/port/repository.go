package port

import (
	"context"

	"spreadwatch/internal/domain"
)

// MetricsRepository 价差指标与告警的持久化契约。
// 写入是尽力而为：调用方记日志即可，失败不回滚内存状态。
type MetricsRepository interface {
	// SaveSpreadMetric 落库一条价差指标（由 orchestrator 按 symbol 节流）
	SaveSpreadMetric(ctx context.Context, m *domain.SpreadMetric) error

	// SaveAlert 落库一条告警，返回存储分配的 id（无 id 语义的后端返回 0）
	SaveAlert(ctx context.Context, rec *domain.AlertRecord) (int64, error)

	Close() error
}
