package ice

import (
	"net"
	"sync/atomic"

	"github.com/pion/transport/v3/dpipe"

	iceif "github.com/dep2p/go-icesip/pkg/interfaces/ice"
)

// ============================================================================
//                              测试辅助
// ============================================================================

var _ iceif.PeerLink = (*PipeLink)(nil)

// PipeLink 基于内存数据报管道的 PeerLink，仅用于测试
type PipeLink struct {
	conn   net.Conn
	local  net.Addr
	remote net.Addr

	running atomic.Bool
	writes  atomic.Int64
	drop    atomic.Bool
}

// NewPipeLinks 创建一对互连的内存链路
//
// 两端地址分别为 127.0.0.1:5061 与 127.0.0.1:5062。
func NewPipeLinks() (*PipeLink, *PipeLink) {
	return NewPipeLinksWithAddrs(
		&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5061},
		&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5062},
	)
}

// NewPipeLinksWithAddrs 使用指定地址创建一对内存链路
func NewPipeLinksWithAddrs(a, b net.Addr) (*PipeLink, *PipeLink) {
	ca, cb := dpipe.Pipe()
	la := &PipeLink{conn: ca, local: a, remote: b}
	lb := &PipeLink{conn: cb, local: b, remote: a}
	la.running.Store(true)
	lb.running.Store(true)
	return la, lb
}

// LocalAddr 返回本地地址
func (l *PipeLink) LocalAddr() net.Addr { return l.local }

// RemoteAddr 返回远端地址
func (l *PipeLink) RemoteAddr() net.Addr { return l.remote }

// IsRunning 链路是否可用
func (l *PipeLink) IsRunning() bool { return l.running.Load() }

// SetRunning 修改链路状态，用于模拟未完成协商的链路
func (l *PipeLink) SetRunning(running bool) { l.running.Store(running) }

// SetDrop 丢弃后续所有写入，用于模拟单向中断
func (l *PipeLink) SetDrop(drop bool) { l.drop.Store(drop) }

// Writes 成功写入的数据包数
func (l *PipeLink) Writes() int64 { return l.writes.Load() }

// Read 读取一个数据包
func (l *PipeLink) Read(p []byte) (int, error) {
	return l.conn.Read(p)
}

// Write 写入一个数据包
func (l *PipeLink) Write(p []byte) (int, error) {
	if l.drop.Load() {
		return len(p), nil
	}
	n, err := l.conn.Write(p)
	if err == nil {
		l.writes.Add(1)
	}
	return n, err
}

// Close 关闭本端
func (l *PipeLink) Close() error {
	l.running.Store(false)
	return l.conn.Close()
}
