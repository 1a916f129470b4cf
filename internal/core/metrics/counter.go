package metrics

import (
	"sync/atomic"

	"github.com/dep2p/go-icesip/pkg/types"
)

// Snapshot 计数快照
type Snapshot struct {
	BytesIn             uint64  // 入站字节
	BytesOut            uint64  // 出站字节
	ChunksIn            uint64  // 入站数据块
	SendsOK             uint64  // 成功发送
	SendsFast           uint64  // 其中走快路径的发送
	SendsQueued         uint64  // 排队的发送
	SendsFailed         uint64  // 失败的发送
	ReassemblyOverflows uint64  // 重组溢出
	RateIn              float64 // 入站速率（字节/秒）
	RateOut             float64 // 出站速率（字节/秒）
}

// add 累加另一份快照（速率同样累加）
func (s *Snapshot) add(o Snapshot) {
	s.BytesIn += o.BytesIn
	s.BytesOut += o.BytesOut
	s.ChunksIn += o.ChunksIn
	s.SendsOK += o.SendsOK
	s.SendsFast += o.SendsFast
	s.SendsQueued += o.SendsQueued
	s.SendsFailed += o.SendsFailed
	s.ReassemblyOverflows += o.ReassemblyOverflows
	s.RateIn += o.RateIn
	s.RateOut += o.RateOut
}

// TransportCounter 单个传输的计数器
//
// 所有方法并发安全，且对 nil 接收者为空操作。
type TransportCounter struct {
	kind types.TransportKind

	bytesIn     atomic.Uint64
	bytesOut    atomic.Uint64
	chunksIn    atomic.Uint64
	sendsOK     atomic.Uint64
	sendsFast   atomic.Uint64
	sendsQueued atomic.Uint64
	sendsFailed atomic.Uint64
	overflows   atomic.Uint64

	rateIn  *RateMeter
	rateOut *RateMeter
}

// NewTransportCounter 创建计数器
func NewTransportCounter(kind types.TransportKind) *TransportCounter {
	return &TransportCounter{
		kind:    kind,
		rateIn:  NewRateMeter(),
		rateOut: NewRateMeter(),
	}
}

// Kind 传输类型
func (c *TransportCounter) Kind() types.TransportKind {
	if c == nil {
		return types.KindUnknown
	}
	return c.kind
}

// LogSent 记录一次成功发送
func (c *TransportCounter) LogSent(n int, fast bool) {
	if c == nil {
		return
	}
	c.sendsOK.Add(1)
	if fast {
		c.sendsFast.Add(1)
	}
	c.bytesOut.Add(uint64(n))
	c.rateOut.Add(int64(n))
}

// LogQueued 记录一次排队发送
func (c *TransportCounter) LogQueued() {
	if c == nil {
		return
	}
	c.sendsQueued.Add(1)
}

// LogFailed 记录一次失败发送
func (c *TransportCounter) LogFailed() {
	if c == nil {
		return
	}
	c.sendsFailed.Add(1)
}

// LogRecv 记录一个入站数据块
func (c *TransportCounter) LogRecv(n int) {
	if c == nil {
		return
	}
	c.chunksIn.Add(1)
	c.bytesIn.Add(uint64(n))
	c.rateIn.Add(int64(n))
}

// LogOverflow 记录一次重组溢出
func (c *TransportCounter) LogOverflow() {
	if c == nil {
		return
	}
	c.overflows.Add(1)
}

// Snapshot 返回当前计数
func (c *TransportCounter) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	return Snapshot{
		BytesIn:             c.bytesIn.Load(),
		BytesOut:            c.bytesOut.Load(),
		ChunksIn:            c.chunksIn.Load(),
		SendsOK:             c.sendsOK.Load(),
		SendsFast:           c.sendsFast.Load(),
		SendsQueued:         c.sendsQueued.Load(),
		SendsFailed:         c.sendsFailed.Load(),
		ReassemblyOverflows: c.overflows.Load(),
		RateIn:              c.rateIn.Rate(),
		RateOut:             c.rateOut.Rate(),
	}
}
