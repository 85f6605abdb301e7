package smtp

import (
	"net"
	"sync"
)

// limitedListener 在 Accept 阶段应用连接限流。
// 超出限额的连接直接关闭，不进入 SMTP 会话。
type limitedListener struct {
	net.Listener
	limiter *ConnectionLimiter
}

// NewLimitedListener 用连接限流器包装监听器。
func NewLimitedListener(l net.Listener, limiter *ConnectionLimiter) net.Listener {
	return &limitedListener{Listener: l, limiter: limiter}
}

func (l *limitedListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}
		if !l.limiter.Acquire() {
			conn.Close()
			continue
		}
		return &limitedConn{Conn: conn, limiter: l.limiter}, nil
	}
}

// limitedConn 在连接关闭时归还许可。Close 可能被调用多次，
// 许可只归还一次。
type limitedConn struct {
	net.Conn
	limiter *ConnectionLimiter
	once    sync.Once
}

func (c *limitedConn) Close() error {
	c.once.Do(c.limiter.Release)
	return c.Conn.Close()
}
