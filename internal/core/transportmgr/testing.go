package transportmgr

import (
	"net"
	"sync"

	"github.com/dep2p/go-icesip/pkg/interfaces/sip"
	"github.com/dep2p/go-icesip/pkg/types"
)

// Event 监听者记录的一次事件
type Event struct {
	// State 状态事件；Message 非空时无效
	State types.TransportState

	// Info 状态事件附带的会话信息
	Info *types.SessionInfo

	// Message 消息事件
	Message []byte
}

// IsMessage 是否为消息事件
func (e Event) IsMessage() bool {
	return e.Message != nil
}

// Recorder 按顺序记录状态与消息事件，用于测试
type Recorder struct {
	mu     sync.Mutex
	events []Event

	// OnMessageHook 收到消息时额外调用（在记录之后）
	OnMessageHook func(h *sip.Handle, msg []byte)
}

var _ Listener = (*Recorder)(nil)

// OnStateChanged 实现 Listener
func (r *Recorder) OnStateChanged(_ *sip.Handle, state types.TransportState, info *types.SessionInfo) {
	r.mu.Lock()
	r.events = append(r.events, Event{State: state, Info: info})
	r.mu.Unlock()
}

// OnMessage 实现 Listener
func (r *Recorder) OnMessage(h *sip.Handle, msg []byte, _ net.Addr) {
	r.mu.Lock()
	r.events = append(r.events, Event{Message: msg})
	hook := r.OnMessageHook
	r.mu.Unlock()
	if hook != nil {
		hook(h, msg)
	}
}

// Events 返回事件副本
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Messages 返回所有消息
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.IsMessage() {
			out = append(out, string(e.Message))
		}
	}
	return out
}

// States 返回所有状态
func (r *Recorder) States() []types.TransportState {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.TransportState
	for _, e := range r.events {
		if !e.IsMessage() {
			out = append(out, e.State)
		}
	}
	return out
}

// LastInfo 返回最近一次状态事件的会话信息
func (r *Recorder) LastInfo() *types.SessionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if !r.events[i].IsMessage() {
			return r.events[i].Info
		}
	}
	return nil
}
