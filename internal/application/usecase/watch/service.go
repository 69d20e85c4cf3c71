package watch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application/connector"
	"spreadwatch/internal/application/service"
	"spreadwatch/internal/domain"
)

// ServiceDeps 编排器依赖，全部在 main 里构造后注入
type ServiceDeps struct {
	Cache      *domain.Cache
	Connectors []*connector.Connector
	Gate       *service.AlertGate
	Metrics    *service.MetricThrottle
	Broadcast  *service.BroadcastThrottle
	StatsEvery time.Duration // 诊断日志间隔，<=0 关闭
}

// Service 编排器：持有全部连接器，把各所事件汇入单条 ingestion 循环。
// 所有缓存写入都发生在这一条循环里，单个 (symbol, venue) 的摄入天然串行。
type Service struct {
	deps ServiceDeps

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewService(deps ServiceDeps) *Service {
	return &Service{deps: deps}
}

// Start 幂等：起所有连接器，汇流，开始摄入
func (s *Service) Start() {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	merged := make(chan domain.Quote, 1024)

	for _, c := range s.deps.Connectors {
		c.Start()
		s.wg.Add(1)
		go func(c *connector.Connector) {
			defer s.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case q, ok := <-c.Events():
					if !ok {
						return
					}
					select {
					case <-ctx.Done():
						return
					case merged <- q:
					}
				}
			}
		}(c)
		log.Info().Str("feed", c.Name()).Msg("connector started")
	}

	s.wg.Add(1)
	go s.ingest(ctx, merged)

	if s.deps.StatsEvery > 0 {
		s.wg.Add(1)
		go s.logStats(ctx)
	}
}

// ingest 单消费者循环：upsert → 重算结果 → 告警闸 → 指标节流 → 广播信号
func (s *Service) ingest(ctx context.Context, merged <-chan domain.Quote) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case q := <-merged:
			if !s.deps.Cache.Upsert(q) {
				continue
			}
			agg, ok := s.deps.Cache.Get(q.Symbol)
			if !ok {
				continue
			}
			s.deps.Gate.Evaluate(ctx, agg)
			s.deps.Metrics.Offer(ctx, agg)
			s.deps.Broadcast.Signal()
		}
	}
}

func (s *Service) logStats(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.deps.StatsEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for venue, st := range s.ConnectorStats() {
				log.Info().
					Str("feed", venue).
					Str("transport", st.Transport).
					Int("reconnects", st.Reconnects).
					Dur("last_event_age", st.LastEventAge).
					Msg("connector stats")
			}
		}
	}
}

// Stop 幂等：停连接器（顺序无关），取消循环，收尾后沿补发
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.stopped = true
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()

	for _, c := range s.deps.Connectors {
		c.Stop()
	}
	cancel()
	s.wg.Wait()
	s.deps.Broadcast.Stop()
	log.Info().Msg("watch service stopped")
}

// GetSnapshot 非阻塞、无网络 IO 的缓存快照，天然只含 allow-list 交易对
func (s *Service) GetSnapshot() map[string]domain.AggregatedSymbol {
	return s.deps.Cache.Snapshot()
}

// ConnectorStats 各所连接器诊断信息
func (s *Service) ConnectorStats() map[string]connector.Stats {
	out := make(map[string]connector.Stats, len(s.deps.Connectors))
	for _, c := range s.deps.Connectors {
		out[c.Name()] = c.Stats()
	}
	return out
}
