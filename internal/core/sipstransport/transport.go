package sipstransport

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/dep2p/go-icesip/config"
	"github.com/dep2p/go-icesip/internal/core/certinfo"
	"github.com/dep2p/go-icesip/internal/core/metrics"
	"github.com/dep2p/go-icesip/internal/core/scheduler"
	"github.com/dep2p/go-icesip/internal/util/logger"
	iceif "github.com/dep2p/go-icesip/pkg/interfaces/ice"
	"github.com/dep2p/go-icesip/pkg/interfaces/securechannel"
	"github.com/dep2p/go-icesip/pkg/interfaces/sip"
	"github.com/dep2p/go-icesip/pkg/types"
)

var log = logger.Logger("sips.transport")

// stateEvent 待投递的状态事件
type stateEvent struct {
	state types.TransportState
}

// Transport ICE 链路上的 SIP 安全传输
type Transport struct {
	kind        types.TransportKind
	cfg         config.TransportConfig
	mgr         sip.TransportManager
	link        iceif.PeerLink
	policy      securechannel.VerifyPolicy
	description string

	handle  *sip.Handle
	channel securechannel.Channel
	sched   *scheduler.Scheduler
	certs   *certinfo.Cache

	reporter *metrics.Reporter
	counter  *metrics.TransportCounter

	// syncTx 同步发送模式：已连接且允许快路径
	syncTx atomic.Bool

	// writeMu 串行化对安全通道的写入（快路径与出站队列）
	writeMu sync.Mutex

	txMu     sync.Mutex
	txQueue  []*outgoing
	inFlight map[*sip.TxBuffer]struct{}
	txClosed bool

	rxMu    sync.Mutex
	rxQueue [][]byte

	stMu    sync.Mutex
	stQueue []stateEvent

	verifyMu  sync.Mutex
	verify    types.VerifyResult
	verifyErr error

	// disconnected Disconnected 已投递，之后不再投递任何事件
	disconnected atomic.Bool
	closing      atomic.Bool

	stop     chan struct{}
	pollDone chan struct{}
}

// New 在已连通的 ICE 链路上创建安全传输并注册到传输管理器
//
// 链路未连通时返回 ErrInvalidState；注册失败返回 ErrRegistrationFailed，
// 此时已创建的安全通道与调度器都已释放。
func New(opts Options) (*Transport, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if !opts.Link.IsRunning() {
		return nil, ErrInvalidState
	}

	t := &Transport{
		kind:        opts.Kind,
		cfg:         opts.Config,
		mgr:         opts.Manager,
		link:        opts.Link,
		policy:      opts.Params.VerifyPolicy,
		description: describe(opts.Kind, opts.Link, opts.ComponentID),
		certs:       certinfo.NewCache(opts.CertStore),
		reporter:    opts.Metrics,
		inFlight:    make(map[*sip.TxBuffer]struct{}),
		stop:        make(chan struct{}),
	}
	t.sched = scheduler.New(t.description)
	t.handle = sip.NewHandle(opts.Kind, opts.Link.LocalAddr(), opts.Link.RemoteAddr(), t.description, hooks{t})

	ch, err := opts.NewChannel(opts.Kind, opts.Link, opts.Params, callbacks{t})
	if err != nil {
		t.sched.Close()
		return nil, fmt.Errorf("create secure channel: %w", err)
	}
	t.channel = ch

	if err := t.mgr.Register(t.handle); err != nil {
		t.sched.Close()
		_ = ch.Shutdown()
		return nil, fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}

	t.counter = t.reporter.Track(t.kind)
	ch.Start()

	if !ch.PushesData() {
		t.pollDone = make(chan struct{})
		go t.pollLoop()
	}

	log.Info("创建安全传输", "transport", t.description, "id", t.handle.ID, "role", roleName(opts.Params.Role))
	return t, nil
}

func roleName(r securechannel.Role) string {
	if r == securechannel.RoleServer {
		return "server"
	}
	return "client"
}

// Handle 协议引擎可见的传输对象
func (t *Transport) Handle() *sip.Handle {
	return t.handle
}

// Kind 传输类型
func (t *Transport) Kind() types.TransportKind {
	return t.kind
}

// LocalAddr 本地地址
func (t *Transport) LocalAddr() net.Addr {
	return t.handle.LocalAddr
}

// RemoteAddr 远端地址
func (t *Transport) RemoteAddr() net.Addr {
	return t.handle.RemoteAddr
}

// String 传输描述
func (t *Transport) String() string {
	return t.description
}

// Stats 传输计数快照
func (t *Transport) Stats() metrics.Snapshot {
	return t.counter.Snapshot()
}

// Connected 是否处于同步发送模式
func (t *Transport) Connected() bool {
	return t.syncTx.Load()
}

// schedule 调度一次 handleEvents
func (t *Transport) schedule() {
	if err := t.sched.Run(t.handleEvents); err != nil {
		log.Debug("调度器已关闭，忽略事件", "transport", t.description)
	}
}

// ============================================================================
//                              销毁
// ============================================================================

// Close 销毁传输
//
// 返回前所有排队的发送都以 ErrNotConnected 完成。协议引擎尚未开始销毁
// 传输对象时，通过管理器注销；重复调用无效果。
func (t *Transport) Close() error {
	if !t.closing.CompareAndSwap(false, true) {
		return nil
	}

	err := t.teardown()
	if t.handle.BeginDestroy() {
		err = multierr.Append(err, t.mgr.Shutdown(t.handle))
	}
	return err
}

// teardown 停止轮询、关闭调度器、完成排队的发送并关闭安全通道
func (t *Transport) teardown() error {
	close(t.stop)
	if t.pollDone != nil {
		<-t.pollDone
	}

	// 调度器关闭后安全通道的回调不会再进入协议引擎
	if dropped := t.sched.Close(); dropped > 0 {
		log.Debug("丢弃未执行的事件", "transport", t.description, "tasks", dropped)
	}

	t.syncTx.Store(false)
	t.failQueued(ErrNotConnected)

	err := t.channel.Shutdown()

	t.reporter.Release(t.counter)
	t.certs.Reset()

	log.Info("销毁安全传输", "transport", t.description, "id", t.handle.ID)
	return err
}

// ============================================================================
//                              协议引擎钩子
// ============================================================================

// hooks 注册时安装的 sip.Transport 钩子
type hooks struct {
	t *Transport
}

var _ sip.Transport = hooks{}

// Send 实现 sip.Transport
func (h hooks) Send(tx *sip.TxBuffer, dest net.Addr, token any, cb sip.SendCallback) (int, error) {
	return h.t.Send(tx, dest, token, cb)
}

// Shutdown 请求关闭安全通道，之后通过状态回调报告 Disconnected
func (h hooks) Shutdown() error {
	log.Debug("协议引擎请求关闭", "transport", h.t.description)
	h.t.syncTx.Store(false)
	return h.t.channel.Shutdown()
}

// Destroy 管理器释放传输时调用
func (h hooks) Destroy() error {
	h.t.handle.BeginDestroy()
	if !h.t.closing.CompareAndSwap(false, true) {
		return nil
	}
	return h.t.teardown()
}
