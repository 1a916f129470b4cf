package sipstransport

import (
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-icesip/config"
	"github.com/dep2p/go-icesip/internal/core/ice"
	"github.com/dep2p/go-icesip/internal/core/metrics"
	"github.com/dep2p/go-icesip/internal/core/security/certs"
	"github.com/dep2p/go-icesip/internal/core/security/securitytest"
	"github.com/dep2p/go-icesip/internal/core/sipframe"
	iceif "github.com/dep2p/go-icesip/pkg/interfaces/ice"
	"github.com/dep2p/go-icesip/pkg/interfaces/securechannel"
	"github.com/dep2p/go-icesip/pkg/interfaces/sip"
	"github.com/dep2p/go-icesip/pkg/types"
)

const waitTimeout = 5 * time.Second

// event 协议引擎观察到的一个事件
type event struct {
	state types.TransportState
	info  *types.SessionInfo
	msg   string
	isMsg bool
}

// fakeManager 记录事件顺序的传输管理器
type fakeManager struct {
	mu          sync.Mutex
	events      []event
	handles     []*sip.Handle
	shutdowns   int
	registerErr error

	// consume 返回已消费字节数并产出消息，默认按 SIP 帧切分
	consume func(data []byte) (int, []string)

	// onMessage 在记录消息之后调用，可在其中重入 Send
	onMessage func(h *sip.Handle, msg string)

	// onState 在记录状态之后调用
	onState func(h *sip.Handle, state types.TransportState)
}

var _ sip.TransportManager = (*fakeManager)(nil)

func newFakeManager() *fakeManager {
	return &fakeManager{}
}

func sipConsume(data []byte) (int, []string) {
	var msgs []string
	n, _ := sipframe.Split(data, func(frame sipframe.Frame, b []byte) error {
		if frame.Kind == sipframe.KindMessage {
			msgs = append(msgs, string(b))
		}
		return nil
	})
	return n, msgs
}

func (m *fakeManager) Register(h *sip.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registerErr != nil {
		return m.registerErr
	}
	m.handles = append(m.handles, h)
	return nil
}

func (m *fakeManager) Shutdown(h *sip.Handle) error {
	m.mu.Lock()
	m.shutdowns++
	m.mu.Unlock()
	return h.Transport().Destroy()
}

func (m *fakeManager) StateChanged(h *sip.Handle, state types.TransportState, info *types.SessionInfo) {
	m.mu.Lock()
	m.events = append(m.events, event{state: state, info: info})
	hook := m.onState
	m.mu.Unlock()
	if hook != nil {
		hook(h, state)
	}
}

func (m *fakeManager) ReceivePacket(h *sip.Handle, data []byte, _ net.Addr) int {
	m.mu.Lock()
	consume := m.consume
	m.mu.Unlock()
	if consume == nil {
		consume = sipConsume
	}

	n, msgs := consume(data)

	m.mu.Lock()
	for _, msg := range msgs {
		m.events = append(m.events, event{msg: msg, isMsg: true})
	}
	hook := m.onMessage
	m.mu.Unlock()

	if hook != nil {
		for _, msg := range msgs {
			hook(h, msg)
		}
	}
	return n
}

func (m *fakeManager) Events() []event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]event(nil), m.events...)
}

func (m *fakeManager) States() []types.TransportState {
	var out []types.TransportState
	for _, e := range m.Events() {
		if !e.isMsg {
			out = append(out, e.state)
		}
	}
	return out
}

func (m *fakeManager) Messages() []string {
	var out []string
	for _, e := range m.Events() {
		if e.isMsg {
			out = append(out, e.msg)
		}
	}
	return out
}

func (m *fakeManager) Info(state types.TransportState) *types.SessionInfo {
	for _, e := range m.Events() {
		if !e.isMsg && e.state == state {
			return e.info
		}
	}
	return nil
}

func (m *fakeManager) Shutdowns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdowns
}

func (m *fakeManager) hasState(state types.TransportState) bool {
	for _, s := range m.States() {
		if s == state {
			return true
		}
	}
	return false
}

// harness 基于模拟安全通道的传输
type harness struct {
	tp       *Transport
	ch       *securitytest.MockChannel
	mgr      *fakeManager
	link     *ice.PipeLink
	reporter *metrics.Reporter
}

// newHarness 创建传输；push 为 false 时走轮询路径
func newHarness(t *testing.T, kind types.TransportKind, push bool, mutate ...func(*Options)) *harness {
	t.Helper()

	la, lb := ice.NewPipeLinks()
	t.Cleanup(func() {
		la.Close()
		lb.Close()
	})

	h := &harness{
		mgr:      newFakeManager(),
		link:     la,
		reporter: metrics.NewReporter(),
	}

	cert, err := certs.GenerateSelfSigned(certs.Options{CommonName: "alice"})
	require.NoError(t, err)

	opts := Options{
		Manager:     h.mgr,
		Kind:        kind,
		Params: securechannel.Params{
			Role:         securechannel.RoleClient,
			Certificate:  cert,
			VerifyPolicy: certs.AcceptAllPolicy(),
		},
		Link:        la,
		ComponentID: 1,
		Config:      config.DefaultTransportConfig().WithPollTimeout(10 * time.Millisecond),
		Metrics:     h.reporter,
		NewChannel: func(_ types.TransportKind, _ iceif.PeerLink, _ securechannel.Params, cb securechannel.Callbacks) (securechannel.Channel, error) {
			h.ch = securitytest.NewMockChannel(cb, push)
			return h.ch, nil
		},
	}
	for _, fn := range mutate {
		fn(&opts)
	}

	h.tp, err = New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.tp.Close() })
	return h
}

// connect 模拟握手完成并等待 Connected 投递
func (h *harness) connect(t *testing.T) {
	t.Helper()
	local, err := certs.GenerateSelfSigned(certs.Options{CommonName: "alice"})
	require.NoError(t, err)
	remote, err := certs.GenerateSelfSigned(certs.Options{CommonName: "bob"})
	require.NoError(t, err)

	require.NoError(t, h.ch.Verify(certs.BuildSession(remote.Certificate, nil, "")))
	h.ch.Establish(local.Certificate[0], remote.Certificate)
	require.Eventually(t, h.tp.Connected, waitTimeout, time.Millisecond)
}

// sendResult 一次完成回调
type sendResult struct {
	token any
	n     int
	err   error
}

// completions 收集完成回调
type completions struct {
	mu      sync.Mutex
	results []sendResult
}

func (c *completions) cb(token any, n int, err error) {
	c.mu.Lock()
	c.results = append(c.results, sendResult{token: token, n: n, err: err})
	c.mu.Unlock()
}

func (c *completions) all() []sendResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sendResult(nil), c.results...)
}

func (c *completions) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

var remoteAddr = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5062}

func sipMessage(method string, body string) string {
	return method + " sip:bob@example.com SIP/2.0\r\n" +
		"Via: SIP/2.0/TLS 127.0.0.1:5061;branch=z9hG4bK" + method + "\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + body
}
