package composite

import (
	"context"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
)

// Repo 同一条记录扇出到多个后端；返回遇到的第一个错误，但不中断其余写入
type Repo struct {
	repos []port.MetricsRepository
}

func New(repos ...port.MetricsRepository) *Repo {
	// 允许传 nil，构造时过滤
	out := make([]port.MetricsRepository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

// Size 实际挂载的后端数
func (r *Repo) Size() int { return len(r.repos) }

func (r *Repo) SaveSpreadMetric(ctx context.Context, m *domain.SpreadMetric) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveSpreadMetric(ctx, m); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SaveAlert 返回第一个成功后端给出的 id；全部失败时返回第一个错误
func (r *Repo) SaveAlert(ctx context.Context, a *domain.AlertRecord) (int64, error) {
	var (
		firstErr error
		id       int64
		gotID    bool
	)
	for _, repo := range r.repos {
		n, err := repo.SaveAlert(ctx, a)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !gotID {
			id, gotID = n, true
		}
	}
	return id, firstErr
}

func (r *Repo) Close() error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.MetricsRepository = (*Repo)(nil)
