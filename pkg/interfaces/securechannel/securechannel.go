// Package securechannel 定义安全通道（TLS/DTLS 引擎）接口
//
// 安全通道在调用方提供的字节套接字之上完成握手与记录加解密，
// 并通过 Callbacks 回调报告状态变化、解密后的入站数据、证书更新，
// 以及同步的证书验证决策点。回调可能在通道内部的 goroutine 上触发。
package securechannel

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"time"
)

// ============================================================================
//                              状态
// ============================================================================

// State 安全通道状态
type State int

const (
	// StateHandshaking 握手中
	StateHandshaking State = iota
	// StateEstablished 已建立
	StateEstablished
	// StateShutdown 已关闭（握手失败、对端关闭或本地关闭），终态
	StateShutdown
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateEstablished:
		return "established"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              回调
// ============================================================================

// CertificateType 对端证书格式
type CertificateType int

const (
	// CertTypeX509 X.509 证书
	CertTypeX509 CertificateType = iota
	// CertTypeUnsupported 无法识别的证书格式
	CertTypeUnsupported
)

// Session 证书验证时提供给回调的会话视图
type Session struct {
	// Type 对端证书格式
	Type CertificateType

	// RawChain 对端证书链（DER，叶子在前）
	RawChain [][]byte

	// Chain 解析后的证书链；Type 为 CertTypeUnsupported 时为空
	Chain []*x509.Certificate

	// ChainStatus TLS 库给出的证书链验证结果，nil 表示链可信
	ChainStatus error
}

// Callbacks 安全通道回调表
//
// 除 VerifyCertificate 外，所有回调都不得阻塞。
type Callbacks interface {
	// OnStateChange 通道状态变化
	OnStateChange(state State)

	// OnRxData 收到解密后的数据，data 的所有权转移给回调方
	OnRxData(data []byte)

	// OnCertificatesUpdate 握手（或重协商）完成后的证书更新
	// local 为本地证书 DER（可能为 nil），remote 为对端证书链（可能为空）
	OnCertificatesUpdate(local []byte, remote [][]byte)

	// VerifyCertificate 握手中的同步信任决策，返回非 nil 将中止握手
	VerifyCertificate(session Session) error
}

// ============================================================================
//                              参数
// ============================================================================

// Role 握手角色
type Role int

const (
	// RoleClient 握手客户端
	RoleClient Role = iota
	// RoleServer 握手服务端
	RoleServer
)

// VerifyPolicy 用户提供的证书链验证策略
//
// status 为 TLS 库对链的验证结果（nil 表示可信），chain 为解析后的对端证书链。
// 返回 nil 表示接受。
type VerifyPolicy func(status error, chain []*x509.Certificate) error

// Params 安全参数
type Params struct {
	// Role 握手角色
	Role Role

	// Certificate 本地证书
	Certificate *tls.Certificate

	// RootCAs 信任根；nil 时仅依赖 VerifyPolicy
	RootCAs *x509.CertPool

	// ServerName 期望的对端名称，为空时不做名称匹配
	ServerName string

	// RequireClientCert 服务端是否要求客户端证书
	RequireClientCert bool

	// CipherSuites 支持的加密套件（IANA 编号），为空使用默认集合
	CipherSuites []uint16

	// MinVersion 最低 TLS 版本（仅 TLS 通道使用）
	MinVersion uint16

	// HandshakeTimeout 握手超时
	HandshakeTimeout time.Duration

	// VerifyPolicy 用户证书策略，可选
	VerifyPolicy VerifyPolicy
}

// Validate 检查参数
func (p *Params) Validate() error {
	if p.Certificate == nil || len(p.Certificate.Certificate) == 0 {
		return errors.New("securechannel: certificate is required")
	}
	if p.Role != RoleClient && p.Role != RoleServer {
		return errors.New("securechannel: invalid role")
	}
	if p.HandshakeTimeout < 0 {
		return errors.New("securechannel: handshake timeout must not be negative")
	}
	return nil
}

// ============================================================================
//                              Channel 接口
// ============================================================================

// Channel 安全通道
type Channel interface {
	// Start 异步开始握手，结果通过 Callbacks 报告
	Start()

	// Write 加密并发送数据
	Write(p []byte) (int, error)

	// Read 读取已解密数据（可靠通道由调用方轮询读取）
	Read(p []byte) (int, error)

	// WaitForData 等待可读数据，最多等待 timeout
	WaitForData(timeout time.Duration) (bool, error)

	// Shutdown 关闭通道，触发一次 StateShutdown
	Shutdown() error

	// MaxPayloadSize 单次 Write 的最大负载
	MaxPayloadSize() int

	// CipherSuite 协商的加密套件名称
	CipherSuite() (string, bool)

	// PushesData 是否通过 OnRxData 主动推送入站数据
	// 返回 false 时调用方需要自行轮询 WaitForData/Read
	PushesData() bool
}
