package redispub

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
)

// Sink 把聚合快照以 JSON 发布到 Redis channel，给外部看板订阅
type Sink struct {
	rdb     *redis.Client
	channel string
	timeout time.Duration
}

func NewSink(rdb *redis.Client, channel string) port.BroadcastSink {
	if strings.TrimSpace(channel) == "" {
		channel = "spreadwatch:snapshots"
	}
	return &Sink{rdb: rdb, channel: channel, timeout: 3 * time.Second}
}

func (s *Sink) Broadcast(snap map[string]domain.AggregatedSymbol) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.rdb.Publish(ctx, s.channel, string(b)).Err()
}
