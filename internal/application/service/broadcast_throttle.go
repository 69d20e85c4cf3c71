package service

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
)

// BroadcastThrottle 前沿+后沿节流的快照广播：
// 窗口内第一个信号立即广播，之后的信号合并成窗口末尾的一次补发，
// 保证每窗口最多一次、且一阵突发的最终状态总会在窗口长度内送达。
type BroadcastThrottle struct {
	sink     port.BroadcastSink // nil = 空操作
	window   time.Duration      // 默认 1s
	snapshot func() map[string]domain.AggregatedSymbol

	mu       sync.Mutex
	lastSent time.Time
	timer    *time.Timer
	stopped  bool

	now func() time.Time
}

func NewBroadcastThrottle(sink port.BroadcastSink, window time.Duration, snapshot func() map[string]domain.AggregatedSymbol) *BroadcastThrottle {
	if window <= 0 {
		window = time.Second
	}
	return &BroadcastThrottle{
		sink:     sink,
		window:   window,
		snapshot: snapshot,
		now:      time.Now,
	}
}

// Signal 缓存变化通知。非阻塞，可从 ingestion 循环直接调用。
func (b *BroadcastThrottle) Signal() {
	if b.sink == nil {
		return
	}

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	now := b.now()
	elapsed := now.Sub(b.lastSent)
	if b.lastSent.IsZero() || elapsed >= b.window {
		b.lastSent = now
		b.mu.Unlock()
		b.emit()
		return
	}
	if b.timer == nil {
		// 恰好一次后沿补发，时间点 = 上次广播 + 窗口
		b.timer = time.AfterFunc(b.window-elapsed, b.trailing)
	}
	b.mu.Unlock()
}

func (b *BroadcastThrottle) trailing() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.timer = nil
	b.lastSent = b.now()
	b.mu.Unlock()
	b.emit()
}

// emit 取快照并投递；还没有任何报价时不广播空快照
func (b *BroadcastThrottle) emit() {
	snap := b.snapshot()
	populated := false
	for _, agg := range snap {
		if len(agg.Quotes) > 0 {
			populated = true
			break
		}
	}
	if !populated {
		return
	}
	if err := b.sink.Broadcast(snap); err != nil {
		log.Error().Err(err).Msg("broadcast failed")
	}
}

// Stop 取消挂起的后沿补发；返回后迟到的 timer 回调是空操作
func (b *BroadcastThrottle) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
