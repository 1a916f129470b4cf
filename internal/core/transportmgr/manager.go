package transportmgr

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/dep2p/go-icesip/internal/core/sipframe"
	"github.com/dep2p/go-icesip/internal/util/logger"
	"github.com/dep2p/go-icesip/pkg/interfaces/sip"
	"github.com/dep2p/go-icesip/pkg/types"
)

var log = logger.Logger("sips.tpmgr")

var _ sip.TransportManager = (*Manager)(nil)

// Listener 传输事件监听者
type Listener interface {
	// OnStateChanged 传输状态变化
	OnStateChanged(h *sip.Handle, state types.TransportState, info *types.SessionInfo)

	// OnMessage 收到完整的 SIP 消息，msg 归监听者所有
	OnMessage(h *sip.Handle, msg []byte, src net.Addr)
}

// ListenerFuncs 以函数实现 Listener，未设置的回调忽略
type ListenerFuncs struct {
	StateChanged func(h *sip.Handle, state types.TransportState, info *types.SessionInfo)
	Message      func(h *sip.Handle, msg []byte, src net.Addr)
}

// OnStateChanged 实现 Listener
func (f ListenerFuncs) OnStateChanged(h *sip.Handle, state types.TransportState, info *types.SessionInfo) {
	if f.StateChanged != nil {
		f.StateChanged(h, state, info)
	}
}

// OnMessage 实现 Listener
func (f ListenerFuncs) OnMessage(h *sip.Handle, msg []byte, src net.Addr) {
	if f.Message != nil {
		f.Message(h, msg, src)
	}
}

// Stats 管理器计数
type Stats struct {
	Registered  int
	Messages    uint64
	KeepAlives  uint64
	Malformed   uint64
	BytesIn     uint64
	StateEvents uint64
}

// Manager 传输管理器
type Manager struct {
	mu        sync.RWMutex
	byID      map[uuid.UUID]*sip.Handle
	byRemote  map[string]*sip.Handle
	listeners []Listener
	closed    bool

	messages    atomic.Uint64
	keepAlives  atomic.Uint64
	malformed   atomic.Uint64
	bytesIn     atomic.Uint64
	stateEvents atomic.Uint64
}

// New 创建传输管理器
func New() *Manager {
	return &Manager{
		byID:     make(map[uuid.UUID]*sip.Handle),
		byRemote: make(map[string]*sip.Handle),
	}
}

// AddListener 添加监听者
func (m *Manager) AddListener(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

func (m *Manager) snapshotListeners() []Listener {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listeners
}

// ============================================================================
//                              注册表
// ============================================================================

// Register 注册传输
func (m *Manager) Register(h *sip.Handle) error {
	if h == nil || h.Transport() == nil {
		return ErrInvalidHandle
	}
	key := types.AddrKey(h.RemoteAddr)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if _, ok := m.byID[h.ID]; ok {
		return ErrDuplicate
	}
	if key != "" {
		if _, ok := m.byRemote[key]; ok {
			return ErrDuplicate
		}
		m.byRemote[key] = h
	}
	m.byID[h.ID] = h

	log.Debug("注册传输", "transport", h.Description, "id", h.ID)
	return nil
}

// Shutdown 注销传输并调用其 Destroy 钩子
func (m *Manager) Shutdown(h *sip.Handle) error {
	if h == nil {
		return ErrInvalidHandle
	}
	if !m.unregister(h) {
		return ErrNotRegistered
	}

	log.Debug("注销传输", "transport", h.Description, "id", h.ID)
	return h.Transport().Destroy()
}

func (m *Manager) unregister(h *sip.Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[h.ID]; !ok {
		return false
	}
	delete(m.byID, h.ID)
	key := types.AddrKey(h.RemoteAddr)
	if cur, ok := m.byRemote[key]; ok && cur == h {
		delete(m.byRemote, key)
	}
	return true
}

// Lookup 按远端地址查找传输
func (m *Manager) Lookup(remote net.Addr) (*sip.Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.byRemote[types.AddrKey(remote)]
	return h, ok
}

// Handles 返回已注册传输的快照
func (m *Manager) Handles() []*sip.Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*sip.Handle, 0, len(m.byID))
	for _, h := range m.byID {
		out = append(out, h)
	}
	return out
}

// Len 已注册传输数
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// Close 销毁所有传输，之后拒绝新的注册
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	var errs error
	for _, h := range m.Handles() {
		// 传输自己已经开始销毁时跳过
		if !h.BeginDestroy() {
			continue
		}
		errs = multierr.Append(errs, m.Shutdown(h))
	}
	return errs
}

// ============================================================================
//                              事件投递
// ============================================================================

// StateChanged 转发传输状态变化
func (m *Manager) StateChanged(h *sip.Handle, state types.TransportState, info *types.SessionInfo) {
	m.stateEvents.Add(1)
	log.Debug("传输状态变化", "transport", h.Description, "state", state)
	for _, l := range m.snapshotListeners() {
		l.OnStateChanged(h, state, info)
	}
}

// ReceivePacket 切分入站字节并投递完整消息，返回已消费的字节数
//
// 头部无法解析时整段丢弃。
func (m *Manager) ReceivePacket(h *sip.Handle, data []byte, src net.Addr) int {
	listeners := m.snapshotListeners()

	n, err := sipframe.Split(data, func(frame sipframe.Frame, b []byte) error {
		switch frame.Kind {
		case sipframe.KindKeepAlive:
			m.keepAlives.Add(1)
		case sipframe.KindMessage:
			m.messages.Add(1)
			for _, l := range listeners {
				l.OnMessage(h, append([]byte(nil), b...), src)
			}
		}
		return nil
	})
	if err != nil {
		m.malformed.Add(1)
		log.Warn("丢弃无法解析的入站数据", "transport", h.Description, "bytes", len(data)-n, "err", err)
		n = len(data)
	}

	m.bytesIn.Add(uint64(n))
	return n
}

// Stats 返回计数快照
func (m *Manager) Stats() Stats {
	return Stats{
		Registered:  m.Len(),
		Messages:    m.messages.Load(),
		KeepAlives:  m.keepAlives.Load(),
		Malformed:   m.malformed.Load(),
		BytesIn:     m.bytesIn.Load(),
		StateEvents: m.stateEvents.Load(),
	}
}
