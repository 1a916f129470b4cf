package securitytest

import (
	"errors"
	"sync"
	"time"

	"github.com/dep2p/go-icesip/pkg/interfaces/securechannel"
)

// ErrMockShutdown 模拟通道已关闭
var ErrMockShutdown = errors.New("securitytest: channel shut down")

var _ securechannel.Channel = (*MockChannel)(nil)

// MockChannel 可编程的安全通道
//
// 测试通过 Establish / Deliver / Fail 驱动回调，
// 通过 WriteFunc 控制发送结果。
type MockChannel struct {
	cb   securechannel.Callbacks
	push bool

	mu         sync.Mutex
	started    bool
	shutdown   bool
	writes     [][]byte
	inbound    []byte
	maxPayload int
	suite      string

	// WriteFunc 自定义写入结果，返回非 nil 错误时数据不记录
	WriteFunc func(p []byte) error

	dataReady chan struct{}
}

// NewMockChannel 创建模拟通道
//
// push 为 true 时入站数据经 OnRxData 推送，否则由 WaitForData/Read 轮询。
func NewMockChannel(cb securechannel.Callbacks, push bool) *MockChannel {
	return &MockChannel{
		cb:         cb,
		push:       push,
		maxPayload: 16384,
		suite:      "TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256",
		dataReady:  make(chan struct{}, 1),
	}
}

// Start 记录启动
func (m *MockChannel) Start() {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
}

// Started 是否已启动
func (m *MockChannel) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Establish 模拟握手完成
func (m *MockChannel) Establish(local []byte, remote [][]byte) {
	m.cb.OnCertificatesUpdate(local, remote)
	m.cb.OnStateChange(securechannel.StateEstablished)
}

// Verify 模拟握手中的证书验证
func (m *MockChannel) Verify(session securechannel.Session) error {
	return m.cb.VerifyCertificate(session)
}

// Deliver 模拟收到解密后的数据
func (m *MockChannel) Deliver(data []byte) {
	if m.push {
		m.cb.OnRxData(append([]byte(nil), data...))
		return
	}
	m.mu.Lock()
	m.inbound = append(m.inbound, data...)
	m.mu.Unlock()
	select {
	case m.dataReady <- struct{}{}:
	default:
	}
}

// Fail 模拟对端关闭或致命错误
func (m *MockChannel) Fail() {
	_ = m.Shutdown()
}

// Write 记录写入
func (m *MockChannel) Write(p []byte) (int, error) {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return 0, ErrMockShutdown
	}
	fn := m.WriteFunc
	m.mu.Unlock()

	if fn != nil {
		if err := fn(p); err != nil {
			return 0, err
		}
	}

	m.mu.Lock()
	m.writes = append(m.writes, append([]byte(nil), p...))
	m.mu.Unlock()
	return len(p), nil
}

// SetWriteFunc 并发安全地替换 WriteFunc
func (m *MockChannel) SetWriteFunc(fn func(p []byte) error) {
	m.mu.Lock()
	m.WriteFunc = fn
	m.mu.Unlock()
}

// Writes 返回已写入数据的副本
func (m *MockChannel) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// Read 读取轮询模式下的入站数据
func (m *MockChannel) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := copy(p, m.inbound)
	m.inbound = m.inbound[n:]
	return n, nil
}

// WaitForData 等待入站数据
func (m *MockChannel) WaitForData(timeout time.Duration) (bool, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		m.mu.Lock()
		shutdown, ready := m.shutdown, len(m.inbound) > 0
		m.mu.Unlock()
		if shutdown {
			return false, ErrMockShutdown
		}
		if ready {
			return true, nil
		}
		select {
		case <-m.dataReady:
		case <-deadline.C:
			return false, nil
		}
	}
}

// Shutdown 关闭并报告一次 StateShutdown
func (m *MockChannel) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	m.mu.Unlock()

	select {
	case m.dataReady <- struct{}{}:
	default:
	}
	m.cb.OnStateChange(securechannel.StateShutdown)
	return nil
}

// IsShutdown 是否已关闭
func (m *MockChannel) IsShutdown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown
}

// SetMaxPayloadSize 设置单次写入上限
func (m *MockChannel) SetMaxPayloadSize(n int) {
	m.mu.Lock()
	m.maxPayload = n
	m.mu.Unlock()
}

// MaxPayloadSize 单次写入上限
func (m *MockChannel) MaxPayloadSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxPayload
}

// SetCipherSuite 设置套件名称，空字符串表示不可用
func (m *MockChannel) SetCipherSuite(name string) {
	m.mu.Lock()
	m.suite = name
	m.mu.Unlock()
}

// CipherSuite 协商的加密套件
func (m *MockChannel) CipherSuite() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suite, m.suite != ""
}

// PushesData 是否推送入站数据
func (m *MockChannel) PushesData() bool {
	return m.push
}
