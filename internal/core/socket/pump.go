package socket

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/transport/v3/packetio"

	"github.com/dep2p/go-icesip/internal/util/logger"
	iceif "github.com/dep2p/go-icesip/pkg/interfaces/ice"
)

var log = logger.Logger("sips.socket")

const (
	// maxDatagramSize 单个数据包上限（packetio 限制为 64KB 以下）
	maxDatagramSize = 0xffff

	// defaultBufferLimit 未读数据包的缓冲上限
	defaultBufferLimit = 1 << 20
)

// pump 把链路上的数据包搬进可设置读超时的缓冲区
type pump struct {
	link iceif.PeerLink
	buf  *packetio.Buffer

	closeOnce sync.Once
	closed    atomic.Bool
	done      chan struct{}

	rxPackets atomic.Uint64
	rxDropped atomic.Uint64
}

func newPump(link iceif.PeerLink) *pump {
	p := &pump{
		link: link,
		buf:  packetio.NewBuffer(),
		done: make(chan struct{}),
	}
	p.buf.SetLimitSize(defaultBufferLimit)
	go p.run()
	return p
}

// run 在链路关闭或套接字关闭后退出
//
// 链路 Read 无法被中断，套接字关闭后该 goroutine 会在下一个数据包
// 到达或链路关闭时退出。
func (p *pump) run() {
	defer close(p.done)
	defer p.buf.Close()

	scratch := make([]byte, maxDatagramSize)
	for {
		n, err := p.link.Read(scratch)
		if err != nil {
			if !p.closed.Load() {
				log.Debug("链路读取结束", "remote", p.link.RemoteAddr(), "err", err)
			}
			return
		}
		if p.closed.Load() {
			return
		}
		if n == 0 {
			continue
		}
		if _, err := p.buf.Write(scratch[:n]); err != nil {
			if errors.Is(err, packetio.ErrFull) {
				p.rxDropped.Add(1)
				log.Warn("接收缓冲已满，丢弃数据包", "remote", p.link.RemoteAddr(), "size", n)
				continue
			}
			return
		}
		p.rxPackets.Add(1)
	}
}

func (p *pump) read(b []byte) (int, error) {
	return p.buf.Read(b)
}

func (p *pump) setReadDeadline(t time.Time) error {
	return p.buf.SetReadDeadline(t)
}

func (p *pump) write(b []byte) (int, error) {
	if p.closed.Load() {
		return 0, errClosed
	}
	return p.link.Write(b)
}

func (p *pump) close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		_ = p.buf.Close()
	})
	return nil
}
