// Package securitytest 提供安全通道测试辅助
package securitytest

import (
	"bytes"
	"sync"
	"time"

	"github.com/dep2p/go-icesip/pkg/interfaces/securechannel"
)

var _ securechannel.Callbacks = (*Recorder)(nil)

// Recorder 记录安全通道回调
type Recorder struct {
	mu       sync.Mutex
	states   []securechannel.State
	rx       bytes.Buffer
	local    []byte
	remote   [][]byte
	sessions []securechannel.Session

	// Verify 验证决策，nil 表示接受
	Verify func(securechannel.Session) error

	changed chan struct{}
}

// NewRecorder 创建回调记录器
func NewRecorder() *Recorder {
	return &Recorder{changed: make(chan struct{}, 1)}
}

func (r *Recorder) notify() {
	select {
	case r.changed <- struct{}{}:
	default:
	}
}

// OnStateChange 记录状态
func (r *Recorder) OnStateChange(state securechannel.State) {
	r.mu.Lock()
	r.states = append(r.states, state)
	r.mu.Unlock()
	r.notify()
}

// OnRxData 记录入站数据
func (r *Recorder) OnRxData(data []byte) {
	r.mu.Lock()
	r.rx.Write(data)
	r.mu.Unlock()
	r.notify()
}

// OnCertificatesUpdate 记录证书
func (r *Recorder) OnCertificatesUpdate(local []byte, remote [][]byte) {
	r.mu.Lock()
	r.local = local
	r.remote = remote
	r.mu.Unlock()
	r.notify()
}

// VerifyCertificate 记录会话并返回 Verify 的结果
func (r *Recorder) VerifyCertificate(session securechannel.Session) error {
	r.mu.Lock()
	r.sessions = append(r.sessions, session)
	verify := r.Verify
	r.mu.Unlock()
	if verify != nil {
		return verify(session)
	}
	return nil
}

// States 返回状态序列副本
func (r *Recorder) States() []securechannel.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]securechannel.State(nil), r.states...)
}

// Received 返回已收到的数据
func (r *Recorder) Received() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rx.String()
}

// Certificates 返回最近一次证书更新
func (r *Recorder) Certificates() ([]byte, [][]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.local, r.remote
}

// Sessions 返回验证调用记录
func (r *Recorder) Sessions() []securechannel.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]securechannel.Session(nil), r.sessions...)
}

// WaitState 等待出现指定状态
func (r *Recorder) WaitState(state securechannel.State, timeout time.Duration) bool {
	return r.waitFor(timeout, func() bool {
		for _, s := range r.States() {
			if s == state {
				return true
			}
		}
		return false
	})
}

// WaitReceived 等待收到的数据达到 n 字节
func (r *Recorder) WaitReceived(n int, timeout time.Duration) bool {
	return r.waitFor(timeout, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.rx.Len() >= n
	})
}

func (r *Recorder) waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if cond() {
			return true
		}
		select {
		case <-r.changed:
		case <-time.After(10 * time.Millisecond):
		case <-deadline.C:
			return cond()
		}
	}
}
