package exchange

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// DefaultConnectTimeout push 拨号超时
	DefaultConnectTimeout = 10 * time.Second
	// readDeadline 静默超过这个窗口仍收不到 pong 就判定连接死亡
	readDeadline = 60 * time.Second
	pingInterval = 25 * time.Second
)

// Dial 带超时拨号
func Dial(ctx context.Context, wsURL string, timeout time.Duration) (*websocket.Conn, error) {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(cctx, wsURL, nil)
	return conn, err
}

// ReadLoop 读消息直到连接失败或 ctx 取消。
// 保活：周期发 ping，每条消息/pong 都顺延 read deadline；
// 静默且收不到 pong 时 ReadMessage 因 deadline 出错返回，由上层重连。
func ReadLoop(ctx context.Context, conn *websocket.Conn, onMsg func([]byte)) error {
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			_, b, err := conn.ReadMessage()
			if err == nil {
				_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
			}
			if err != nil {
				errCh <- err
				return
			}
			onMsg(b)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		}
	}
}
