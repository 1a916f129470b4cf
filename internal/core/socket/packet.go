package socket

import (
	"io"
	"net"
	"time"

	iceif "github.com/dep2p/go-icesip/pkg/interfaces/ice"
)

var _ net.PacketConn = (*PacketConn)(nil)

// PacketConn 把链路适配为单对端的 net.PacketConn
type PacketConn struct {
	*pump
}

// NewPacketConn 创建数据报套接字
func NewPacketConn(link iceif.PeerLink) *PacketConn {
	return &PacketConn{pump: newPump(link)}
}

// ReadFrom 读取一个数据包，来源地址总是链路远端
//
// 缓冲区不足时返回 io.ErrShortBuffer。
func (c *PacketConn) ReadFrom(b []byte) (int, net.Addr, error) {
	n, err := c.pump.read(b)
	if err != nil {
		if err == io.EOF && c.closed.Load() {
			return n, nil, errClosed
		}
		return n, nil, err
	}
	return n, c.link.RemoteAddr(), nil
}

// WriteTo 发送一个数据包，addr 被忽略
func (c *PacketConn) WriteTo(b []byte, _ net.Addr) (int, error) {
	return c.pump.write(b)
}

// RemoteAddr 返回链路远端地址
func (c *PacketConn) RemoteAddr() net.Addr {
	return c.link.RemoteAddr()
}

// LocalAddr 返回本地地址
func (c *PacketConn) LocalAddr() net.Addr {
	return c.link.LocalAddr()
}

// Close 关闭套接字，不关闭链路
func (c *PacketConn) Close() error {
	return c.pump.close()
}

// SetDeadline 设置读超时
func (c *PacketConn) SetDeadline(t time.Time) error {
	return c.pump.setReadDeadline(t)
}

// SetReadDeadline 设置读超时
func (c *PacketConn) SetReadDeadline(t time.Time) error {
	return c.pump.setReadDeadline(t)
}

// SetWriteDeadline 忽略
func (c *PacketConn) SetWriteDeadline(time.Time) error {
	return nil
}
