package port

import (
	"context"

	"spreadwatch/internal/domain"
)

// StreamAdapter push 能力：打开一条长连接并订阅整组交易对。
// Stream 代表一次连接尝试：拨号成功并完成订阅后调用 onUp，
// 之后每次顶档变化调用 onQuote，连接断开或 ctx 取消时返回。
// 重连与退避由上层 connector 负责，适配器只管单次连接。
type StreamAdapter interface {
	Name() string
	Stream(ctx context.Context, symbols []string, onUp func(), onQuote func(domain.Quote)) error
}

// PollAdapter pull 能力：一次有界时长的请求，返回零或多条报价。
// 请求失败记日志并返回空结果，绝不向调用方抛错；单条脏数据跳过，不中断整批。
type PollAdapter interface {
	Name() string
	Poll(ctx context.Context, symbols []string) []domain.Quote
}
