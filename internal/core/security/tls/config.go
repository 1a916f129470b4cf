package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"github.com/dep2p/go-icesip/pkg/interfaces/securechannel"
)

// ConfigBuilder TLS 配置构建器
type ConfigBuilder struct {
	params securechannel.Params
	verify func(rawCerts [][]byte, chains [][]*x509.Certificate) error
}

// NewConfigBuilder 创建配置构建器
func NewConfigBuilder(params securechannel.Params) *ConfigBuilder {
	return &ConfigBuilder{params: params}
}

// WithVerifier 设置对端证书验证钩子
func (b *ConfigBuilder) WithVerifier(verify func(rawCerts [][]byte, chains [][]*x509.Certificate) error) *ConfigBuilder {
	b.verify = verify
	return b
}

// Build 按角色构建 TLS 配置
func (b *ConfigBuilder) Build() (*tls.Config, error) {
	if err := b.params.Validate(); err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{*b.params.Certificate},
		MinVersion:   b.params.MinVersion,
		// 信任决策交给 VerifyPeerCertificate
		InsecureSkipVerify:    true,
		VerifyPeerCertificate: b.verify,
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}

	if len(b.params.CipherSuites) > 0 {
		suites, err := filterCipherSuites(b.params.CipherSuites)
		if err != nil {
			return nil, err
		}
		cfg.CipherSuites = suites
	}

	switch b.params.Role {
	case securechannel.RoleClient:
		cfg.ServerName = b.params.ServerName
	case securechannel.RoleServer:
		cfg.ClientAuth = tls.RequestClientCert
		if b.params.RequireClientCert {
			cfg.ClientAuth = tls.RequireAnyClientCert
		}
	}

	return cfg, nil
}

// filterCipherSuites 保留 crypto/tls 支持的 TLS 1.2 套件
//
// TLS 1.3 套件不可配置，传入时直接忽略。
func filterCipherSuites(ids []uint16) ([]uint16, error) {
	known := make(map[uint16]bool)
	for _, s := range tls.CipherSuites() {
		known[s.ID] = true
	}
	for _, s := range tls.InsecureCipherSuites() {
		known[s.ID] = false
	}

	var out []uint16
	for _, id := range ids {
		if isTLS13Suite(id) {
			continue
		}
		secure, ok := known[id]
		switch {
		case !ok:
			return nil, fmt.Errorf("unsupported cipher suite 0x%04x", id)
		case !secure:
			return nil, fmt.Errorf("insecure cipher suite %s", tls.CipherSuiteName(id))
		}
		out = append(out, id)
	}
	return out, nil
}

func isTLS13Suite(id uint16) bool {
	switch id {
	case tls.TLS_AES_128_GCM_SHA256, tls.TLS_AES_256_GCM_SHA384, tls.TLS_CHACHA20_POLY1305_SHA256:
		return true
	}
	return false
}

// CipherSuiteID 按 IANA 名称查找套件编号
func CipherSuiteID(name string) (uint16, bool) {
	for _, s := range tls.CipherSuites() {
		if s.Name == name {
			return s.ID, true
		}
	}
	return 0, false
}
