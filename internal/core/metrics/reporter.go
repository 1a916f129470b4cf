package metrics

import (
	"sync"

	"github.com/dep2p/go-icesip/pkg/types"
)

// Reporter 汇总所有传输的计数器
//
// 释放的计数器并入按类型保存的历史累计，速率不再计入。
type Reporter struct {
	mu      sync.Mutex
	live    map[*TransportCounter]struct{}
	retired map[types.TransportKind]Snapshot
}

// NewReporter 创建汇总器
func NewReporter() *Reporter {
	return &Reporter{
		live:    make(map[*TransportCounter]struct{}),
		retired: make(map[types.TransportKind]Snapshot),
	}
}

// Track 为新传输创建并登记计数器；r 为 nil 时返回 nil
func (r *Reporter) Track(kind types.TransportKind) *TransportCounter {
	if r == nil {
		return nil
	}
	c := NewTransportCounter(kind)
	r.mu.Lock()
	r.live[c] = struct{}{}
	r.mu.Unlock()
	return c
}

// Release 传输销毁时调用
func (r *Reporter) Release(c *TransportCounter) {
	if r == nil || c == nil {
		return
	}
	snap := c.Snapshot()
	snap.RateIn, snap.RateOut = 0, 0

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live[c]; !ok {
		return
	}
	delete(r.live, c)
	total := r.retired[c.kind]
	total.add(snap)
	r.retired[c.kind] = total
}

// Active 按类型统计存活传输数
func (r *Reporter) Active() map[types.TransportKind]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[types.TransportKind]int)
	for c := range r.live {
		out[c.kind]++
	}
	return out
}

// Totals 按类型返回累计计数（含已释放的传输）
func (r *Reporter) Totals() map[types.TransportKind]Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[types.TransportKind]Snapshot, len(r.retired))
	for kind, snap := range r.retired {
		out[kind] = snap
	}
	for c := range r.live {
		total := out[c.kind]
		total.add(c.Snapshot())
		out[c.kind] = total
	}
	return out
}
