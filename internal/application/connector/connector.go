package connector

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
)

// Transport 混合连接器的传输状态
type Transport int

const (
	Disconnected Transport = iota
	ConnectingPush
	ConnectedPush
	FallbackPull
)

func (t Transport) String() string {
	switch t {
	case ConnectingPush:
		return "connecting_push"
	case ConnectedPush:
		return "connected_push"
	case FallbackPull:
		return "fallback_pull"
	default:
		return "disconnected"
	}
}

// Config 连接器的重连与轮询参数，全部可配置
type Config struct {
	PullInterval  time.Duration // 轮询间隔
	BackoffBase   time.Duration // 重连退避起点
	BackoffCap    time.Duration // 退避上限
	MaxReconnects int           // 连续重连次数上限，超过后停留在 pull
	PushRetry     time.Duration // 次数耗尽后多久自检重试 push，0 = 不再重试
}

func (c *Config) applyDefaults() {
	if c.PullInterval <= 0 {
		c.PullInterval = 2 * time.Second
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 10 * time.Second
	}
	if c.MaxReconnects <= 0 {
		c.MaxReconnects = 10
	}
}

// Stats 诊断用途，其他组件的控制流不得依赖这些值
type Stats struct {
	Transport    string        `json:"transport"`
	Reconnects   int           `json:"reconnects"`
	LastEventAge time.Duration `json:"last_event_age"`
}

// Connector 把一个交易所适配器包成统一的事件流：
// 优先 push，断开时退避重连，同时用 pull 兜底让数据不断流。
// push 连上后取消 pull，两条路径由构造保证互斥地更新状态。
type Connector struct {
	name    string
	stream  port.StreamAdapter // nil = 仅 pull
	poller  port.PollAdapter   // nil = 仅 push
	symbols []string
	cfg     Config
	out     chan domain.Quote

	mu         sync.Mutex
	transport  Transport
	reconnects int
	lastEvent  time.Time
	pullCancel context.CancelFunc
	started    bool
	stopped    bool
	cancel     context.CancelFunc

	wg  sync.WaitGroup
	now func() time.Time
}

func New(name string, stream port.StreamAdapter, poller port.PollAdapter, symbols []string, cfg Config) *Connector {
	cfg.applyDefaults()
	return &Connector{
		name:      name,
		stream:    stream,
		poller:    poller,
		symbols:   symbols,
		cfg:       cfg,
		out:       make(chan domain.Quote, 1024),
		transport: Disconnected,
		now:       time.Now,
	}
}

func (c *Connector) Name() string { return c.name }

// Events 统一事件流；Stop 返回后通道关闭，不再有事件
func (c *Connector) Events() <-chan domain.Quote { return c.out }

// Start 幂等。push 能力的适配器走 ConnectingPush，否则直接进入固定间隔轮询。
func (c *Connector) Start() {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	if c.stream != nil {
		c.wg.Add(1)
		go c.runPush(ctx)
		return
	}
	c.startPull(ctx)
}

// Stop 幂等。取消所有定时器和在途请求并等它们退出，
// 返回后迟到的响应只会被丢弃，不会进入事件流。
func (c *Connector) Stop() {
	c.mu.Lock()
	if !c.started || c.stopped {
		c.stopped = true
		c.mu.Unlock()
		return
	}
	c.stopped = true
	cancel := c.cancel
	c.mu.Unlock()

	cancel()
	c.wg.Wait()

	c.mu.Lock()
	c.transport = Disconnected
	c.pullCancel = nil
	c.mu.Unlock()

	close(c.out)
	log.Info().Str("feed", c.name).Msg("connector stopped")
}

func (c *Connector) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	age := time.Duration(-1)
	if !c.lastEvent.IsZero() {
		age = c.now().Sub(c.lastEvent)
	}
	return Stats{
		Transport:    c.transport.String(),
		Reconnects:   c.reconnects,
		LastEventAge: age,
	}
}

// runPush 单条 push 连接的生命周期循环：连接、读到断开、兜底、退避、重连
func (c *Connector) runPush(ctx context.Context) {
	defer c.wg.Done()

	backoff := c.cfg.BackoffBase
	for {
		if ctx.Err() != nil {
			return
		}
		c.setTransport(ConnectingPush)

		up := false
		err := c.stream.Stream(ctx, c.symbols, func() {
			up = true
			c.onPushUp()
		}, func(q domain.Quote) {
			c.deliver(ctx, q)
		})
		if ctx.Err() != nil {
			return
		}
		if up {
			backoff = c.cfg.BackoffBase
		}
		log.Warn().Str("feed", c.name).Err(err).Msg("push stream down, falling back to pull")

		// 断流期间立刻起 pull，数据不断
		c.startPull(ctx)

		c.mu.Lock()
		c.reconnects++
		attempts := c.reconnects
		c.transport = FallbackPull
		c.mu.Unlock()

		if attempts > c.cfg.MaxReconnects {
			if c.cfg.PushRetry <= 0 {
				log.Warn().Str("feed", c.name).Int("attempts", attempts).
					Msg("push reconnects exhausted, staying on pull")
				return
			}
			// 周期自检：长休眠后清零计数再试 push
			if !sleepCtx(ctx, c.cfg.PushRetry) {
				return
			}
			c.mu.Lock()
			c.reconnects = 0
			c.mu.Unlock()
			backoff = c.cfg.BackoffBase
			continue
		}

		if !sleepCtx(ctx, backoff) {
			return
		}
		backoff = minDur(backoff*2, c.cfg.BackoffCap)
	}
}

// onPushUp 连接成功：清零重连计数、取消兜底轮询
func (c *Connector) onPushUp() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transport = ConnectedPush
	c.reconnects = 0
	c.lastEvent = c.now()
	if c.pullCancel != nil {
		c.pullCancel()
		c.pullCancel = nil
	}
	log.Info().Str("feed", c.name).Msg("push connected")
}

func (c *Connector) startPull(ctx context.Context) {
	if c.poller == nil {
		return
	}
	c.mu.Lock()
	if c.pullCancel != nil || c.stopped {
		c.mu.Unlock()
		return
	}
	pctx, cancel := context.WithCancel(ctx)
	c.pullCancel = cancel
	if c.transport != ConnectedPush {
		c.transport = FallbackPull
	}
	c.mu.Unlock()

	c.wg.Add(1)
	go c.runPull(pctx)
	log.Info().Str("feed", c.name).Dur("interval", c.cfg.PullInterval).Msg("fallback pull started")
}

func (c *Connector) runPull(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.PullInterval)
	defer ticker.Stop()

	c.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollOnce(ctx)
		}
	}
}

func (c *Connector) pollOnce(ctx context.Context) {
	quotes := c.poller.Poll(ctx, c.symbols)
	// stop() 之后到达的响应直接丢弃
	if ctx.Err() != nil {
		return
	}
	for _, q := range quotes {
		c.deliver(ctx, q)
	}
}

// deliver 把适配器产出的报价归一化后送入事件流：
// 补上 venue、以当前时刻盖时间戳，无论来自哪条传输路径。
func (c *Connector) deliver(ctx context.Context, q domain.Quote) {
	q.Venue = c.name
	q.Ts = c.now().UnixMilli()

	c.mu.Lock()
	c.lastEvent = c.now()
	c.mu.Unlock()

	select {
	case <-ctx.Done():
	case c.out <- q:
	}
}

func (c *Connector) setTransport(t Transport) {
	c.mu.Lock()
	c.transport = t
	c.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
