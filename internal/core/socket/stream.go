package socket

import (
	"io"
	"net"
	"sync"
	"time"

	iceif "github.com/dep2p/go-icesip/pkg/interfaces/ice"
)

var _ net.Conn = (*StreamConn)(nil)

// StreamConn 把数据报链路适配为字节流 net.Conn
type StreamConn struct {
	*pump

	mu      sync.Mutex
	pending []byte
	scratch []byte
}

// NewStreamConn 创建字节流套接字
func NewStreamConn(link iceif.PeerLink) *StreamConn {
	return &StreamConn{
		pump:    newPump(link),
		scratch: make([]byte, maxDatagramSize),
	}
}

// Read 读取字节
//
// 先返回上一个数据包的剩余字节，再读取新数据包。
// 超时错误满足 net.Error 且 Timeout() 为 true。
func (c *StreamConn) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) > 0 {
		n := copy(b, c.pending)
		c.pending = c.pending[n:]
		return n, nil
	}

	n, err := c.pump.read(c.scratch)
	if err != nil {
		if err == io.EOF && c.closed.Load() {
			return 0, errClosed
		}
		return 0, err
	}

	k := copy(b, c.scratch[:n])
	if k < n {
		c.pending = append(c.pending[:0], c.scratch[k:n]...)
	}
	return k, nil
}

// Write 写入字节，整块作为一个数据包发送
func (c *StreamConn) Write(b []byte) (int, error) {
	return c.pump.write(b)
}

// Close 关闭套接字，不关闭链路
func (c *StreamConn) Close() error {
	return c.pump.close()
}

// LocalAddr 返回本地地址
func (c *StreamConn) LocalAddr() net.Addr {
	return c.link.LocalAddr()
}

// RemoteAddr 返回远端地址
func (c *StreamConn) RemoteAddr() net.Addr {
	return c.link.RemoteAddr()
}

// SetDeadline 设置读超时；写操作不阻塞，忽略写超时
func (c *StreamConn) SetDeadline(t time.Time) error {
	return c.pump.setReadDeadline(t)
}

// SetReadDeadline 设置读超时
func (c *StreamConn) SetReadDeadline(t time.Time) error {
	return c.pump.setReadDeadline(t)
}

// SetWriteDeadline 忽略
func (c *StreamConn) SetWriteDeadline(time.Time) error {
	return nil
}
