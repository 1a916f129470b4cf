package metrics

import (
	"sync"
	"time"
)

// rateWindow 速率统计窗口（秒）
const rateWindow = 60

// RateMeter 按秒分桶统计一个传输方向最近 rateWindow 秒的字节数
//
// 每个桶记下自己所属的秒，读取时跳过过期桶，不需要后台清理。
type RateMeter struct {
	mu      sync.Mutex
	now     func() time.Time
	buckets [rateWindow]rateBucket
}

type rateBucket struct {
	sec int64
	n   int64
}

// NewRateMeter 创建速率计算器
func NewRateMeter() *RateMeter {
	return newRateMeterWithClock(time.Now)
}

func newRateMeterWithClock(now func() time.Time) *RateMeter {
	return &RateMeter{now: now}
}

// Add 记录 n 字节
func (r *RateMeter) Add(n int64) {
	if n <= 0 {
		return
	}
	sec := r.now().Unix()

	r.mu.Lock()
	b := &r.buckets[sec%rateWindow]
	if b.sec != sec {
		b.sec, b.n = sec, 0
	}
	b.n += n
	r.mu.Unlock()
}

// Total 窗口内的字节数
func (r *RateMeter) Total() int64 {
	sec := r.now().Unix()

	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, b := range r.buckets {
		if age := sec - b.sec; b.n > 0 && age >= 0 && age < rateWindow {
			total += b.n
		}
	}
	return total
}

// Rate 窗口内的平均速率（字节/秒）
func (r *RateMeter) Rate() float64 {
	return float64(r.Total()) / rateWindow
}
