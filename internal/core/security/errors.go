package security

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"

	"github.com/pion/dtls/v3"

	dtlsimpl "github.com/dep2p/go-icesip/internal/core/security/dtls"
	tlsimpl "github.com/dep2p/go-icesip/internal/core/security/tls"
)

var (
	// ErrUnsupportedKind 不支持的传输类型
	ErrUnsupportedKind = errors.New("security: unsupported transport kind")

	// ErrUnknownCipherSuite 配置了未知的加密套件名称
	ErrUnknownCipherSuite = errors.New("security: unknown cipher suite")
)

// IsTransient 错误是否为暂时性的（稍后重试可能成功）
//
// 包括超时、临时网络错误以及 DTLS 的 TemporaryError / TimeoutError。
func IsTransient(err error) bool {
	if err == nil || IsFatal(err) {
		return false
	}

	var tempErr *dtls.TemporaryError
	if errors.As(err, &tempErr) {
		return true
	}
	var timeoutErr *dtls.TimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		//nolint:staticcheck // Temporary 仍是 pion 错误类型表达可重试的方式
		return netErr.Timeout() || netErr.Temporary()
	}
	return false
}

// IsFatal 错误是否意味着通道已不可用
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, tlsimpl.ErrShutdown),
		errors.Is(err, dtlsimpl.ErrShutdown),
		errors.Is(err, tlsimpl.ErrNotEstablished),
		errors.Is(err, dtlsimpl.ErrNotEstablished):
		return true
	}

	var fatalErr *dtls.FatalError
	if errors.As(err, &fatalErr) {
		return true
	}
	var handshakeErr *dtls.HandshakeError
	if errors.As(err, &handshakeErr) {
		return true
	}
	var internalErr *dtls.InternalError
	if errors.As(err, &internalErr) {
		return true
	}

	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return true
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	return errors.As(err, &unknownAuthority)
}
