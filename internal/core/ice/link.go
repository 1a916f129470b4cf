package ice

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/pion/ice/v4"

	iceif "github.com/dep2p/go-icesip/pkg/interfaces/ice"
)

var _ iceif.PeerLink = (*Link)(nil)

// Link 协商完成的 ICE 链路
type Link struct {
	agent *Agent
	conn  *ice.Conn

	local  net.Addr
	remote net.Addr

	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error
}

func newLink(a *Agent, conn *ice.Conn) *Link {
	l := &Link{
		agent:  a,
		conn:   conn,
		local:  conn.LocalAddr(),
		remote: conn.RemoteAddr(),
	}
	// 选中候选对可能在后续提名中变化，这里固定建立时的地址
	if pair, err := a.agent.GetSelectedCandidatePair(); err == nil && pair != nil {
		l.local = candidateAddr(pair.Local)
		l.remote = candidateAddr(pair.Remote)
	}
	return l
}

// LocalAddr 返回本地地址
func (l *Link) LocalAddr() net.Addr {
	return l.local
}

// RemoteAddr 返回远端地址
func (l *Link) RemoteAddr() net.Addr {
	return l.remote
}

// IsRunning 链路是否仍然连通
func (l *Link) IsRunning() bool {
	if l.closed.Load() {
		return false
	}
	switch l.agent.State() {
	case ice.ConnectionStateConnected, ice.ConnectionStateCompleted:
		return true
	default:
		return false
	}
}

// Read 读取一个数据包
func (l *Link) Read(p []byte) (int, error) {
	if l.closed.Load() {
		return 0, ErrLinkClosed
	}
	return l.conn.Read(p)
}

// Write 发送一个数据包
func (l *Link) Write(p []byte) (int, error) {
	if l.closed.Load() {
		return 0, ErrLinkClosed
	}
	return l.conn.Write(p)
}

// BytesSent 已发送字节数
func (l *Link) BytesSent() uint64 {
	return l.conn.BytesSent()
}

// BytesReceived 已接收字节数
func (l *Link) BytesReceived() uint64 {
	return l.conn.BytesReceived()
}

// Close 关闭链路与所属代理
func (l *Link) Close() error {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		// ice.Conn.Close 即关闭代理
		l.closeErr = l.agent.Close()
	})
	return l.closeErr
}

func candidateAddr(c ice.Candidate) net.Addr {
	ip := net.ParseIP(c.Address())
	if c.NetworkType().IsTCP() {
		return &net.TCPAddr{IP: ip, Port: c.Port()}
	}
	return &net.UDPAddr{IP: ip, Port: c.Port()}
}
