package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"time"
)

// ClientAuth 取值
const (
	// ClientAuthNone 不请求客户端证书
	ClientAuthNone = "none"
	// ClientAuthRequest 请求但不强制客户端证书
	ClientAuthRequest = "request"
	// ClientAuthRequire 强制客户端证书
	ClientAuthRequire = "require"
)

// SecurityConfig 安全通道配置
//
// 同一份配置同时用于 TLS（可靠传输）与 DTLS（不可靠传输）。
type SecurityConfig struct {
	// HandshakeTimeout 握手超时
	HandshakeTimeout Duration `json:"handshake_timeout"`

	// MinVersion 最小 TLS 版本（仅 TLS 通道使用，DTLS 固定为 1.2）
	// 0x0303 = TLS 1.2，0x0304 = TLS 1.3
	MinVersion uint16 `json:"min_version,omitempty"`

	// ClientAuth 服务端对客户端证书的要求："none"、"request"、"require"
	ClientAuth string `json:"client_auth"`

	// CipherSuites 允许的加密套件名称（IANA 名称），为空使用库默认集合
	CipherSuites []string `json:"cipher_suites,omitempty"`

	// CertValidityPeriod 自签名证书有效期
	CertValidityPeriod Duration `json:"cert_validity_period,omitempty"`

	// CommonName 自签名证书的 CN
	CommonName string `json:"common_name,omitempty"`
}

// DefaultSecurityConfig 返回默认安全配置
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		HandshakeTimeout:   Duration(10 * time.Second),     // 握手超时：10 秒
		MinVersion:         tls.VersionTLS12,               // 最小版本：TLS 1.2，SIP 对端普遍支持
		ClientAuth:         ClientAuthRequest,              // 请求客户端证书，由验证策略决定是否接受
		CertValidityPeriod: Duration(365 * 24 * time.Hour), // 证书有效期：1 年
		CommonName:         "icesip",
	}
}

// Validate 验证安全配置
func (c SecurityConfig) Validate() error {
	if c.HandshakeTimeout <= 0 {
		return errors.New("handshake timeout must be positive")
	}
	if c.MinVersion != 0 && c.MinVersion < tls.VersionTLS12 {
		return errors.New("min version must be at least TLS 1.2 (0x0303)")
	}
	switch c.ClientAuth {
	case ClientAuthNone, ClientAuthRequest, ClientAuthRequire:
	default:
		return fmt.Errorf("client auth must be one of none/request/require, got %q", c.ClientAuth)
	}
	if c.CertValidityPeriod < 0 {
		return errors.New("cert validity period must not be negative")
	}
	return nil
}

// RequireClientCert 服务端是否强制客户端证书
func (c SecurityConfig) RequireClientCert() bool {
	return c.ClientAuth == ClientAuthRequire
}

// WithClientAuth 设置客户端证书要求
func (c SecurityConfig) WithClientAuth(mode string) SecurityConfig {
	c.ClientAuth = mode
	return c
}

// WithCipherSuites 设置允许的加密套件
func (c SecurityConfig) WithCipherSuites(names ...string) SecurityConfig {
	c.CipherSuites = append([]string(nil), names...)
	return c
}
