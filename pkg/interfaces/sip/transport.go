// Package sip 定义协议引擎（SIP 栈）一侧的传输管理接口
//
// 协议引擎持有一个传输管理器：传输在创建时注册一次，之后引擎通过
// 注册时安装的 Transport 钩子发送消息、请求关闭、销毁传输；传输通过
// 管理器投递状态变化与入站字节。
package sip

import (
	"errors"
	"net"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dep2p/go-icesip/pkg/types"
)

// ErrPending 发送已排队，完成结果稍后通过回调通知
var ErrPending = errors.New("sip: send pending")

// TxBuffer 待发送的 SIP 消息
//
// 以指针标识同一条在途消息。
type TxBuffer struct {
	// Data 已序列化的消息字节
	Data []byte

	// Info 用于日志的简短描述，如 "Request msg OPTIONS/cseq=1"
	Info string
}

// SendCallback 发送完成回调，每次 Send 恰好触发一次
//
// sent 为写入的字节数；err 为 nil 表示成功。
type SendCallback func(token any, sent int, err error)

// Transport 传输在注册时安装的钩子
type Transport interface {
	// Send 发送消息
	//
	// 同步完成时返回写入字节数；排队时返回 ErrPending。
	// 无论哪种情况 cb 都会被调用恰好一次。
	Send(tx *TxBuffer, dest net.Addr, token any, cb SendCallback) (int, error)

	// Shutdown 请求优雅关闭，之后通过状态回调报告 Disconnected
	Shutdown() error

	// Destroy 管理器释放传输时调用，传输在此释放全部资源
	Destroy() error
}

// Handle 协议引擎可见的传输对象
//
// 注册时所有权转移给管理器；创建方只保留用于发起销毁请求的引用。
type Handle struct {
	// ID 唯一标识
	ID uuid.UUID

	// Kind 传输类型
	Kind types.TransportKind

	// LocalAddr 本地地址
	LocalAddr net.Addr

	// RemoteAddr 远端地址
	RemoteAddr net.Addr

	// Description 便于阅读的描述
	Description string

	transport  Transport
	destroying atomic.Bool
}

// NewHandle 创建传输对象
func NewHandle(kind types.TransportKind, local, remote net.Addr, desc string, tp Transport) *Handle {
	return &Handle{
		ID:          uuid.New(),
		Kind:        kind,
		LocalAddr:   local,
		RemoteAddr:  remote,
		Description: desc,
		transport:   tp,
	}
}

// Transport 返回注册时安装的钩子
func (h *Handle) Transport() Transport {
	return h.transport
}

// BeginDestroy 标记销毁开始；只有第一次调用返回 true
func (h *Handle) BeginDestroy() bool {
	return h.destroying.CompareAndSwap(false, true)
}

// Destroying 销毁是否已经开始
func (h *Handle) Destroying() bool {
	return h.destroying.Load()
}

// String 返回描述
func (h *Handle) String() string {
	return h.Description
}

// TransportManager 协议引擎的传输管理器
type TransportManager interface {
	// Register 注册传输
	Register(h *Handle) error

	// Shutdown 注销传输并调用其 Destroy 钩子
	Shutdown(h *Handle) error

	// StateChanged 传输状态变化通知
	StateChanged(h *Handle, state types.TransportState, info *types.SessionInfo)

	// ReceivePacket 投递入站字节，返回被消费的字节数
	//
	// 未消费的尾部是不完整的消息，调用方需要在后续数据到达时重新投递。
	ReceivePacket(h *Handle, data []byte, src net.Addr) int
}
