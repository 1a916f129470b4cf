package types

import "net"

// VerifyResult 对端证书验证结论
type VerifyResult int

const (
	// VerifyNone 尚未验证（握手未走到证书验证）
	VerifyNone VerifyResult = iota
	// VerifyPass 验证通过
	VerifyPass
	// VerifyFail 验证失败，握手已中止
	VerifyFail
)

// String 返回结论名称
func (r VerifyResult) String() string {
	switch r {
	case VerifyPass:
		return "pass"
	case VerifyFail:
		return "fail"
	default:
		return "none"
	}
}

// SessionInfo 安全会话信息快照
//
// 每次进入 Connected 时重新生成；协议引擎只能读取，不得修改。
type SessionInfo struct {
	// Established 安全会话是否已建立
	Established bool

	// Kind 传输类型
	Kind TransportKind

	// LocalAddr 本地地址
	LocalAddr net.Addr

	// RemoteAddr 远端地址，未建立时为 nil
	RemoteAddr net.Addr

	// CipherSuite 协商的加密套件名称，不可用时为空
	CipherSuite string

	// LocalCertificate 本地证书信息
	LocalCertificate *CertificateInfo

	// RemoteCertificate 对端证书链叶子证书信息
	RemoteCertificate *CertificateInfo

	// RemoteChainLength 对端证书链长度
	RemoteChainLength int

	// Verify 对端证书验证结论
	Verify VerifyResult

	// VerifyError 验证失败原因，通过时为空
	VerifyError string
}
