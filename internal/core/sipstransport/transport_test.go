package sipstransport

import (
	"crypto/x509"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pion/dtls/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-icesip/internal/core/certinfo"
	"github.com/dep2p/go-icesip/internal/core/ice"
	"github.com/dep2p/go-icesip/internal/core/security/certs"
	"github.com/dep2p/go-icesip/internal/core/security/securitytest"
	"github.com/dep2p/go-icesip/internal/core/transportmgr"
	iceif "github.com/dep2p/go-icesip/pkg/interfaces/ice"
	"github.com/dep2p/go-icesip/pkg/interfaces/securechannel"
	"github.com/dep2p/go-icesip/pkg/interfaces/sip"
	"github.com/dep2p/go-icesip/pkg/types"
)

// ============================================================================
//                              生命周期
// ============================================================================

func TestNew_LinkNotRunning(t *testing.T) {
	la, lb := ice.NewPipeLinks()
	defer la.Close()
	defer lb.Close()
	la.SetRunning(false)

	_, err := New(Options{Manager: newFakeManager(), Kind: types.KindReliable, Link: la})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestNew_InvalidOptions(t *testing.T) {
	la, lb := ice.NewPipeLinks()
	defer la.Close()
	defer lb.Close()

	_, err := New(Options{Kind: types.KindReliable, Link: la})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New(Options{Manager: newFakeManager(), Kind: types.KindUnknown, Link: la})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNew_RegistrationFailed(t *testing.T) {
	la, lb := ice.NewPipeLinks()
	defer la.Close()
	defer lb.Close()

	mgr := newFakeManager()
	mgr.registerErr = errors.New("duplicate transport")

	cert, err := certs.GenerateSelfSigned(certs.Options{})
	require.NoError(t, err)

	var ch *securitytest.MockChannel
	_, err = New(Options{
		Manager: mgr,
		Kind:    types.KindReliable,
		Params:  securechannel.Params{Role: securechannel.RoleClient, Certificate: cert},
		Link:    la,
		NewChannel: func(kind types.TransportKind, link iceif.PeerLink, params securechannel.Params, cb securechannel.Callbacks) (securechannel.Channel, error) {
			ch = securitytest.NewMockChannel(cb, true)
			return ch, nil
		},
	})
	assert.ErrorIs(t, err, ErrRegistrationFailed)
	require.NotNil(t, ch)
	assert.True(t, ch.IsShutdown(), "channel must be released")
	assert.False(t, ch.Started())
	assert.Empty(t, mgr.Events())
}

func TestNew_Description(t *testing.T) {
	h := newHarness(t, types.KindReliable, false)

	assert.Equal(t, "TLS secure transport over ICE 127.0.0.1:5061 -> 127.0.0.1:5062 (component 1)", h.tp.String())
	assert.Equal(t, h.tp.String(), h.tp.Handle().Description)
	assert.Equal(t, types.KindReliable, h.tp.Kind())
	assert.Equal(t, "127.0.0.1:5062", h.tp.RemoteAddr().String())
	assert.True(t, h.ch.Started())
	assert.Len(t, h.mgr.handles, 1)
}

func TestClose_Idempotent(t *testing.T) {
	h := newHarness(t, types.KindReliable, false)
	h.connect(t)

	require.NoError(t, h.tp.Close())
	require.NoError(t, h.tp.Close())

	assert.Equal(t, 1, h.mgr.Shutdowns())
	assert.True(t, h.ch.IsShutdown())
	assert.True(t, h.tp.Handle().Destroying())
	assert.Empty(t, h.reporter.Active())
}

// TestDestroy_ByManager 管理器先开始销毁时不再回调管理器
func TestDestroy_ByManager(t *testing.T) {
	h := newHarness(t, types.KindUnreliable, true)
	h.connect(t)

	require.True(t, h.tp.Handle().BeginDestroy())
	require.NoError(t, h.tp.Handle().Transport().Destroy())
	require.NoError(t, h.tp.Close())

	assert.Zero(t, h.mgr.Shutdowns())
	assert.True(t, h.ch.IsShutdown())
}

// TestClose_FromCallback 在投递消息的回调中销毁传输
func TestClose_FromCallback(t *testing.T) {
	h := newHarness(t, types.KindUnreliable, true)
	h.connect(t)

	closed := make(chan error, 1)
	h.mgr.onMessage = func(*sip.Handle, string) {
		closed <- h.tp.Close()
	}
	h.ch.Deliver([]byte(sipMessage("BYE", "")))

	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("Close from callback deadlocked")
	}
	assert.True(t, h.ch.IsShutdown())
}

// ============================================================================
//                              发送
// ============================================================================

func TestSend_FastPath(t *testing.T) {
	h := newHarness(t, types.KindReliable, false)
	h.connect(t)

	var done completions
	msg := sipMessage("OPTIONS", "")
	n, err := h.tp.Send(&sip.TxBuffer{Data: []byte(msg)}, remoteAddr, "t1", done.cb)
	require.NoError(t, err)
	assert.Equal(t, len(msg), n)

	require.Len(t, done.all(), 1)
	assert.Equal(t, sendResult{token: "t1", n: len(msg)}, done.all()[0])
	assert.Equal(t, [][]byte{[]byte(msg)}, h.ch.Writes())

	stats := h.tp.Stats()
	assert.Equal(t, uint64(1), stats.SendsFast)
	assert.Equal(t, uint64(len(msg)), stats.BytesOut)
}

func TestSend_QueuedUntilConnected(t *testing.T) {
	h := newHarness(t, types.KindReliable, false)

	var done completions
	for i, method := range []string{"REGISTER", "OPTIONS", "MESSAGE"} {
		_, err := h.tp.Send(&sip.TxBuffer{Data: []byte(sipMessage(method, ""))}, remoteAddr, i, done.cb)
		assert.ErrorIs(t, err, sip.ErrPending)
	}
	assert.Zero(t, done.len())
	assert.Empty(t, h.ch.Writes())

	h.connect(t)
	require.Eventually(t, func() bool { return done.len() == 3 }, waitTimeout, time.Millisecond)

	for i, r := range done.all() {
		assert.Equal(t, i, r.token)
		assert.NoError(t, r.err)
	}
	writes := h.ch.Writes()
	require.Len(t, writes, 3)
	assert.True(t, strings.HasPrefix(string(writes[0]), "REGISTER"))
	assert.True(t, strings.HasPrefix(string(writes[2]), "MESSAGE"))
}

// TestSend_FastSlowEquivalence 快路径与排队路径写出相同的字节流
func TestSend_FastSlowEquivalence(t *testing.T) {
	msgs := []string{sipMessage("INVITE", "v=0\r\n"), sipMessage("ACK", ""), sipMessage("BYE", "")}

	wire := func(connectFirst bool) []byte {
		h := newHarness(t, types.KindReliable, false)
		if connectFirst {
			h.connect(t)
		}
		var done completions
		for _, m := range msgs {
			_, _ = h.tp.Send(&sip.TxBuffer{Data: []byte(m)}, remoteAddr, nil, done.cb)
		}
		if !connectFirst {
			h.connect(t)
		}
		require.Eventually(t, func() bool { return done.len() == len(msgs) }, waitTimeout, time.Millisecond)

		var out []byte
		for _, w := range h.ch.Writes() {
			out = append(out, w...)
		}
		return out
	}

	assert.Equal(t, string(wire(true)), string(wire(false)))
}

func TestSend_InvalidArgument(t *testing.T) {
	h := newHarness(t, types.KindUnreliable, true)
	h.ch.SetMaxPayloadSize(64)

	var done completions
	tests := []struct {
		name string
		tx   *sip.TxBuffer
		dest net.Addr
	}{
		{"nil buffer", nil, remoteAddr},
		{"empty buffer", &sip.TxBuffer{}, remoteAddr},
		{"unknown family", &sip.TxBuffer{Data: []byte("x")}, &net.UnixAddr{Name: "/tmp/sip", Net: "unix"}},
		{"nil destination", &sip.TxBuffer{Data: []byte("x")}, nil},
		{"oversize datagram", &sip.TxBuffer{Data: make([]byte, 65)}, remoteAddr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.tp.Send(tt.tx, tt.dest, nil, done.cb)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
	assert.Equal(t, len(tests), done.len())

	// IPv6 目的地址可以接受
	_, err := h.tp.Send(&sip.TxBuffer{Data: []byte("x")}, &net.UDPAddr{IP: net.IPv6loopback, Port: 5060}, nil, done.cb)
	assert.ErrorIs(t, err, sip.ErrPending)
}

func TestSend_DuplicatePending(t *testing.T) {
	h := newHarness(t, types.KindReliable, false)

	var done completions
	tx := &sip.TxBuffer{Data: []byte(sipMessage("INVITE", "")), Info: "Request msg INVITE/cseq=1"}

	_, err := h.tp.Send(tx, remoteAddr, "first", done.cb)
	require.ErrorIs(t, err, sip.ErrPending)

	_, err = h.tp.Send(tx, remoteAddr, "second", done.cb)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// 第一次发送完成后可以再次发送同一缓冲
	h.connect(t)
	require.Eventually(t, func() bool { return done.len() == 2 }, waitTimeout, time.Millisecond)
	_, err = h.tp.Send(tx, remoteAddr, "third", done.cb)
	assert.NoError(t, err)
}

func TestSend_TransientErrorQueues(t *testing.T) {
	h := newHarness(t, types.KindReliable, false)
	h.connect(t)

	var failures atomic.Int32
	h.ch.SetWriteFunc(func([]byte) error {
		if failures.Add(1) <= 2 {
			return &dtls.TemporaryError{Err: errors.New("renegotiating")}
		}
		return nil
	})

	var done completions
	_, err := h.tp.Send(&sip.TxBuffer{Data: []byte(sipMessage("OPTIONS", ""))}, remoteAddr, nil, done.cb)
	assert.ErrorIs(t, err, sip.ErrPending)

	require.Eventually(t, func() bool { return done.len() == 1 }, waitTimeout, time.Millisecond)
	assert.NoError(t, done.all()[0].err)
	assert.Len(t, h.ch.Writes(), 1)
	assert.False(t, h.mgr.hasState(types.StateDisconnected))
}

func TestSend_NonFatalError(t *testing.T) {
	h := newHarness(t, types.KindReliable, false)
	h.connect(t)

	writeErr := errors.New("record too large")
	h.ch.SetWriteFunc(func([]byte) error { return writeErr })

	var done completions
	_, err := h.tp.Send(&sip.TxBuffer{Data: []byte("x")}, remoteAddr, nil, done.cb)
	assert.ErrorIs(t, err, writeErr)
	require.Len(t, done.all(), 1)
	assert.ErrorIs(t, done.all()[0].err, writeErr)

	// 非致命错误不改变连接状态
	assert.True(t, h.tp.Connected())
	assert.False(t, h.ch.IsShutdown())
}

func TestSend_FatalError(t *testing.T) {
	h := newHarness(t, types.KindReliable, false)
	h.connect(t)

	fatal := &dtls.FatalError{Err: errors.New("bad record mac")}
	h.ch.SetWriteFunc(func([]byte) error { return fatal })

	var done completions
	_, err := h.tp.Send(&sip.TxBuffer{Data: []byte("x")}, remoteAddr, nil, done.cb)
	assert.ErrorIs(t, err, fatal)
	assert.False(t, h.tp.Connected())
	assert.True(t, h.ch.IsShutdown())

	require.Eventually(t, func() bool { return h.mgr.hasState(types.StateDisconnected) }, waitTimeout, time.Millisecond)

	_, err = h.tp.Send(&sip.TxBuffer{Data: []byte("y")}, remoteAddr, nil, done.cb)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, 2, done.len())
}

// TestSend_DisconnectedFlushOnClose 未连接时的三次发送在 Close 返回前按序失败
func TestSend_DisconnectedFlushOnClose(t *testing.T) {
	h := newHarness(t, types.KindReliable, false)

	var done completions
	for i := 0; i < 3; i++ {
		_, err := h.tp.Send(&sip.TxBuffer{Data: []byte(sipMessage("OPTIONS", ""))}, remoteAddr, i, done.cb)
		require.ErrorIs(t, err, sip.ErrPending)
	}

	require.NoError(t, h.tp.Close())

	results := done.all()
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.token)
		assert.ErrorIs(t, r.err, ErrNotConnected)
	}

	_, err := h.tp.Send(&sip.TxBuffer{Data: []byte("late")}, remoteAddr, 3, done.cb)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, 4, done.len())
}

// TestSend_QueueFlushedOnDisconnect 断开时排队的发送以 ErrNotConnected 完成
func TestSend_QueueFlushedOnDisconnect(t *testing.T) {
	h := newHarness(t, types.KindReliable, false)

	var done completions
	_, err := h.tp.Send(&sip.TxBuffer{Data: []byte("x")}, remoteAddr, nil, done.cb)
	require.ErrorIs(t, err, sip.ErrPending)

	h.ch.Fail()
	require.Eventually(t, func() bool { return done.len() == 1 }, waitTimeout, time.Millisecond)
	assert.ErrorIs(t, done.all()[0].err, ErrNotConnected)
	assert.Equal(t, []types.TransportState{types.StateDisconnected}, h.mgr.States())
}

func TestSend_QueueFull(t *testing.T) {
	h := newHarness(t, types.KindReliable, false, func(o *Options) {
		o.Config.MaxQueuedSends = 1
	})

	var done completions
	_, err := h.tp.Send(&sip.TxBuffer{Data: []byte("a")}, remoteAddr, nil, done.cb)
	require.ErrorIs(t, err, sip.ErrPending)
	_, err = h.tp.Send(&sip.TxBuffer{Data: []byte("b")}, remoteAddr, nil, done.cb)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 1, done.len())
}

// TestSend_NoDroppedCompletions 并发发送、连接与销毁下每次发送恰好完成一次
func TestSend_NoDroppedCompletions(t *testing.T) {
	h := newHarness(t, types.KindReliable, false)

	const senders, perSender = 8, 50
	var calls sync.Map
	var total atomic.Int64

	start := make(chan struct{})
	var wg sync.WaitGroup
	for s := 0; s < senders; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			<-start
			for i := 0; i < perSender; i++ {
				token := s*perSender + i
				_, _ = h.tp.Send(&sip.TxBuffer{Data: []byte("ping")}, remoteAddr, token, func(token any, _ int, _ error) {
					if _, loaded := calls.LoadOrStore(token, true); loaded {
						t.Errorf("completion for %v fired twice", token)
					}
					total.Add(1)
				})
			}
		}(s)
	}

	close(start)
	h.connect(t)
	wg.Wait()
	require.NoError(t, h.tp.Close())
	assert.Equal(t, int64(senders*perSender), total.Load())
}

// TestSend_ReentrantReply 在消息回调中发送应答不会死锁
func TestSend_ReentrantReply(t *testing.T) {
	h := newHarness(t, types.KindUnreliable, true)
	h.connect(t)

	var done completions
	h.mgr.onMessage = func(hd *sip.Handle, msg string) {
		_, _ = hd.Transport().Send(&sip.TxBuffer{Data: []byte(sipMessage("SIP/2.0", ""))}, remoteAddr, nil, done.cb)
	}
	h.ch.Deliver([]byte(sipMessage("OPTIONS", "")))

	require.Eventually(t, func() bool { return done.len() == 1 }, waitTimeout, time.Millisecond)
	assert.NoError(t, done.all()[0].err)
}

// ============================================================================
//                              入站与事件顺序
// ============================================================================

// TestIncoming_Reframe 尾部不完整的数据块与下一块拼接
func TestIncoming_Reframe(t *testing.T) {
	h := newHarness(t, types.KindUnreliable, true)
	h.mgr.consume = func(data []byte) (int, []string) {
		s := string(data)
		if i := strings.Index(s, "done"); i >= 0 {
			return i + 4, []string{s[:i+4]}
		}
		return 0, nil
	}
	h.connect(t)

	h.ch.Deliver([]byte("PART-A"))
	h.ch.Deliver([]byte("PART-B:done"))

	require.Eventually(t, func() bool { return len(h.mgr.Messages()) == 1 }, waitTimeout, time.Millisecond)
	assert.Equal(t, []string{"PART-APART-B:done"}, h.mgr.Messages())

	h.tp.rxMu.Lock()
	leftover := len(h.tp.rxQueue)
	h.tp.rxMu.Unlock()
	assert.Zero(t, leftover)
}

// TestIncoming_AnySplit 任意切分的消息都被完整投递一次
func TestIncoming_AnySplit(t *testing.T) {
	msg := sipMessage("MESSAGE", "hello, world")

	for _, size := range []int{1, 2, 3, 7, 16, 31, len(msg) - 1, len(msg)} {
		h := newHarness(t, types.KindUnreliable, true)
		h.connect(t)

		for off := 0; off < len(msg); off += size {
			end := min(off+size, len(msg))
			h.ch.Deliver([]byte(msg[off:end]))
		}

		require.Eventually(t, func() bool { return len(h.mgr.Messages()) == 1 }, waitTimeout, time.Millisecond, "size %d", size)
		assert.Equal(t, msg, h.mgr.Messages()[0], "size %d", size)
	}
}

// TestIncoming_PollMode 可靠通道由轮询循环读取
func TestIncoming_PollMode(t *testing.T) {
	h := newHarness(t, types.KindReliable, false)
	h.connect(t)

	msg := sipMessage("NOTIFY", "state")
	h.ch.Deliver([]byte(msg[:10]))
	h.ch.Deliver([]byte(msg[10:]))

	require.Eventually(t, func() bool { return len(h.mgr.Messages()) == 1 }, waitTimeout, time.Millisecond)
	assert.Equal(t, msg, h.mgr.Messages()[0])
	assert.Equal(t, uint64(len(msg)), h.tp.Stats().BytesIn)
}

// TestEvents_DisconnectAfterIncoming Disconnected 总在此前到达的消息之后
func TestEvents_DisconnectAfterIncoming(t *testing.T) {
	for round := 0; round < 20; round++ {
		h := newHarness(t, types.KindUnreliable, true)
		h.connect(t)

		// 阻塞调度器，让数据与断开在同一批事件中处理
		gate := make(chan struct{})
		require.NoError(t, h.tp.sched.Run(func() { <-gate }))

		for i := 0; i < 5; i++ {
			h.ch.Deliver([]byte(sipMessage("INFO", strings.Repeat("x", i))))
		}
		h.ch.Fail()
		close(gate)

		require.Eventually(t, func() bool { return h.mgr.hasState(types.StateDisconnected) }, waitTimeout, time.Millisecond)

		events := h.mgr.Events()
		last := events[len(events)-1]
		assert.False(t, last.isMsg)
		assert.Equal(t, types.StateDisconnected, last.state)
		assert.Len(t, h.mgr.Messages(), 5)

		// 终态之后不再投递任何事件
		h.ch.Deliver([]byte(sipMessage("INFO", "late")))
		time.Sleep(5 * time.Millisecond)
		assert.Len(t, h.mgr.Events(), len(events))
	}
}

// TestIncoming_HugeContentLengthDiscarded 超大 Content-Length 的数据被丢弃，传输继续工作
func TestIncoming_HugeContentLengthDiscarded(t *testing.T) {
	mgr := transportmgr.New()
	rec := &transportmgr.Recorder{}
	mgr.AddListener(rec)

	h := newHarness(t, types.KindUnreliable, true)
	h.mgr.consume = func(data []byte) (int, []string) {
		before := len(rec.Messages())
		n := mgr.ReceivePacket(h.tp.Handle(), data, remoteAddr)
		return n, rec.Messages()[before:]
	}
	h.connect(t)

	h.ch.Deliver([]byte("INVITE sip:bob@example.com SIP/2.0\r\nContent-Length: 9223372036854775807\r\n\r\nx"))
	h.ch.Deliver([]byte(sipMessage("INFO", "after")))

	require.Eventually(t, func() bool { return len(h.mgr.Messages()) == 1 }, waitTimeout, time.Millisecond)
	assert.Equal(t, sipMessage("INFO", "after"), h.mgr.Messages()[0])
	assert.Equal(t, uint64(1), mgr.Stats().Malformed)
	assert.False(t, h.mgr.hasState(types.StateDisconnected))
	assert.True(t, h.tp.Connected())
}

// TestEvents_ConsumerPanicStillDisconnects 消费入站数据时 panic 仍然投递 Disconnected
func TestEvents_ConsumerPanicStillDisconnects(t *testing.T) {
	h := newHarness(t, types.KindUnreliable, true)
	h.mgr.consume = func(data []byte) (int, []string) {
		if strings.HasPrefix(string(data), "BAD") {
			panic("consumer failure")
		}
		return sipConsume(data)
	}
	h.connect(t)

	gate := make(chan struct{})
	require.NoError(t, h.tp.sched.Run(func() { <-gate }))

	h.ch.Deliver([]byte(sipMessage("INFO", "ok")))
	h.ch.Deliver([]byte("BAD\r\n\r\n"))
	h.ch.Fail()
	close(gate)

	require.Eventually(t, func() bool { return h.mgr.hasState(types.StateDisconnected) }, waitTimeout, time.Millisecond)
	assert.Equal(t, []types.TransportState{types.StateConnected, types.StateDisconnected}, h.mgr.States())
	assert.Len(t, h.mgr.Messages(), 1)
	assert.True(t, h.ch.IsShutdown())
	assert.False(t, h.tp.Connected())

	// 断开之后发送立即失败
	_, err := h.tp.Send(&sip.TxBuffer{Data: []byte(sipMessage("INFO", "late"))}, remoteAddr, nil, nil)
	assert.ErrorIs(t, err, ErrNotConnected)
}

// TestEvents_ConsumerPanicWithoutDisconnect 没有断开事件时 panic 自行断开传输
func TestEvents_ConsumerPanicWithoutDisconnect(t *testing.T) {
	h := newHarness(t, types.KindUnreliable, true)
	h.mgr.consume = func([]byte) (int, []string) { panic("consumer failure") }
	h.connect(t)

	h.ch.Deliver([]byte(sipMessage("INFO", "x")))

	require.Eventually(t, func() bool { return h.mgr.hasState(types.StateDisconnected) }, waitTimeout, time.Millisecond)
	assert.True(t, h.ch.IsShutdown())
	assert.Equal(t, []types.TransportState{types.StateConnected, types.StateDisconnected}, h.mgr.States())
}

func TestEvents_EngineShutdown(t *testing.T) {
	h := newHarness(t, types.KindReliable, false)
	h.connect(t)

	require.NoError(t, h.tp.Handle().Transport().Shutdown())
	require.Eventually(t, func() bool { return h.mgr.hasState(types.StateDisconnected) }, waitTimeout, time.Millisecond)
	assert.Equal(t, []types.TransportState{types.StateConnected, types.StateDisconnected}, h.mgr.States())
}

func TestIncoming_ReassemblyOverflow(t *testing.T) {
	h := newHarness(t, types.KindUnreliable, true, func(o *Options) {
		o.Config.ReadChunkSize = 64
		o.Config.MaxReassemblyBytes = 128
	})
	h.connect(t)

	// 没有头部结束标记的数据无法被消费
	for i := 0; i < 4; i++ {
		h.ch.Deliver([]byte(strings.Repeat("A", 60)))
	}

	require.Eventually(t, func() bool { return h.mgr.hasState(types.StateDisconnected) }, waitTimeout, time.Millisecond)
	assert.True(t, h.ch.IsShutdown())
	assert.Equal(t, uint64(1), h.tp.Stats().ReassemblyOverflows)
	assert.Empty(t, h.mgr.Messages())
}

// ============================================================================
//                              证书与会话信息
// ============================================================================

func TestInfo_Connected(t *testing.T) {
	h := newHarness(t, types.KindReliable, false)

	pre := h.tp.Info(false)
	assert.False(t, pre.Established)
	assert.Equal(t, types.KindReliable, pre.Kind)
	assert.Nil(t, pre.RemoteAddr)
	assert.Equal(t, types.VerifyNone, pre.Verify)

	h.connect(t)
	info := h.mgr.Info(types.StateConnected)
	require.NotNil(t, info)
	assert.True(t, info.Established)
	assert.NotEmpty(t, info.CipherSuite)
	assert.Equal(t, types.VerifyPass, info.Verify)
	assert.Equal(t, "pass", info.Verify.String())
	assert.Equal(t, "127.0.0.1:5062", info.RemoteAddr.String())
	require.NotNil(t, info.RemoteCertificate)
	assert.Equal(t, "bob", info.RemoteCertificate.SubjectCN)
	require.NotNil(t, info.LocalCertificate)
	assert.Equal(t, "alice", info.LocalCertificate.SubjectCN)
	assert.Equal(t, 1, info.RemoteChainLength)
}

func TestInfo_CipherUnavailable(t *testing.T) {
	h := newHarness(t, types.KindReliable, false)
	h.ch.SetCipherSuite("")
	h.connect(t)

	info := h.tp.Info(true)
	assert.True(t, info.Established)
	assert.Empty(t, info.CipherSuite)
}

// TestInfo_CertificateCaching 无更新时两次读取一致；证书变化后信息随之变化
func TestInfo_CertificateCaching(t *testing.T) {
	store, err := certinfo.NewStore(16)
	require.NoError(t, err)
	h := newHarness(t, types.KindUnreliable, true, func(o *Options) { o.CertStore = store })
	h.connect(t)

	first := h.tp.Info(true).RemoteCertificate
	second := h.tp.Info(true).RemoteCertificate
	require.NotNil(t, first)
	assert.Equal(t, first, second)

	// 快照之间不共享可变状态
	second.SubjectCN = "tampered"
	assert.Equal(t, "bob", h.tp.Info(true).RemoteCertificate.SubjectCN)

	carol, err := certs.GenerateSelfSigned(certs.Options{CommonName: "carol"})
	require.NoError(t, err)
	h.ch.Establish(nil, carol.Certificate)

	third := h.tp.Info(true).RemoteCertificate
	require.NotNil(t, third)
	assert.NotEqual(t, first, third)
	assert.Equal(t, "carol", third.SubjectCN)
	assert.Nil(t, h.tp.Info(true).LocalCertificate)
}

func TestVerify_UnsupportedType(t *testing.T) {
	var called atomic.Bool
	h := newHarness(t, types.KindReliable, false, func(o *Options) {
		o.Params.VerifyPolicy = func(error, []*x509.Certificate) error {
			called.Store(true)
			return nil
		}
	})

	err := h.ch.Verify(securechannel.Session{Type: securechannel.CertTypeUnsupported, RawChain: [][]byte{{1, 2, 3}}})
	assert.ErrorIs(t, err, ErrUnsupportedCertificate)
	assert.False(t, called.Load())

	result, verr := h.tp.VerifyResult()
	assert.Equal(t, types.VerifyFail, result)
	assert.ErrorIs(t, verr, ErrUnsupportedCertificate)
}

func TestVerify_PolicyReceivesStatusAndChain(t *testing.T) {
	reject := errors.New("not on allow list")
	var gotStatus error
	var gotChain int

	h := newHarness(t, types.KindReliable, false, func(o *Options) {
		o.Params.VerifyPolicy = func(status error, chain []*x509.Certificate) error {
			gotStatus, gotChain = status, len(chain)
			return reject
		}
	})

	peer, err := certs.GenerateSelfSigned(certs.Options{CommonName: "mallory"})
	require.NoError(t, err)

	err = h.ch.Verify(certs.BuildSession(peer.Certificate, nil, ""))
	assert.ErrorIs(t, err, reject)
	assert.ErrorIs(t, gotStatus, certs.ErrUntrusted)
	assert.Equal(t, 1, gotChain)

	// 握手失败后 Disconnected 携带验证结论
	h.ch.Fail()
	require.Eventually(t, func() bool { return h.mgr.hasState(types.StateDisconnected) }, waitTimeout, time.Millisecond)
	info := h.mgr.Info(types.StateDisconnected)
	require.NotNil(t, info)
	assert.False(t, info.Established)
	assert.Equal(t, types.VerifyFail, info.Verify)
	assert.Contains(t, info.VerifyError, "not on allow list")
}

func TestVerify_DefaultUsesChainStatus(t *testing.T) {
	h := newHarness(t, types.KindReliable, false, func(o *Options) {
		o.Params.VerifyPolicy = nil
	})

	peer, err := certs.GenerateSelfSigned(certs.Options{CommonName: "bob"})
	require.NoError(t, err)

	err = h.ch.Verify(certs.BuildSession(peer.Certificate, nil, ""))
	assert.ErrorIs(t, err, certs.ErrUntrusted)

	pool := x509.NewCertPool()
	pool.AddCert(peer.Leaf)
	err = h.ch.Verify(certs.BuildSession(peer.Certificate, pool, ""))
	assert.NoError(t, err)
	result, _ := h.tp.VerifyResult()
	assert.Equal(t, types.VerifyPass, result)
}
