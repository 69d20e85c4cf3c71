package port

import "spreadwatch/internal/domain"

// BroadcastSink 限流后的缓存快照出口。启动时设置一次；为 nil 时广播是空操作。
// 投递是 at-most-once，失败只记日志。
type BroadcastSink interface {
	Broadcast(snapshot map[string]domain.AggregatedSymbol) error
}
