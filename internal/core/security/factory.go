package security

import (
	"crypto/tls"
	"fmt"

	"github.com/dep2p/go-icesip/config"
	"github.com/dep2p/go-icesip/internal/core/security/certs"
	dtlsimpl "github.com/dep2p/go-icesip/internal/core/security/dtls"
	tlsimpl "github.com/dep2p/go-icesip/internal/core/security/tls"
	iceif "github.com/dep2p/go-icesip/pkg/interfaces/ice"
	"github.com/dep2p/go-icesip/pkg/interfaces/securechannel"
	"github.com/dep2p/go-icesip/pkg/types"
)

// NewChannelFunc 安全通道构造函数
type NewChannelFunc func(kind types.TransportKind, link iceif.PeerLink, params securechannel.Params, cb securechannel.Callbacks) (securechannel.Channel, error)

var _ NewChannelFunc = New

// New 按传输类型创建安全通道
func New(kind types.TransportKind, link iceif.PeerLink, params securechannel.Params, cb securechannel.Callbacks) (securechannel.Channel, error) {
	switch kind {
	case types.KindReliable:
		return tlsimpl.New(link, params, cb)
	case types.KindUnreliable:
		return dtlsimpl.New(link, params, cb)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
}

// ParamsFromConfig 由安全配置构建通道参数
func ParamsFromConfig(cfg config.SecurityConfig, role securechannel.Role, cert *tls.Certificate) (securechannel.Params, error) {
	params := securechannel.Params{
		Role:              role,
		Certificate:       cert,
		RequireClientCert: cfg.RequireClientCert(),
		MinVersion:        cfg.MinVersion,
		HandshakeTimeout:  cfg.HandshakeTimeout.Duration(),
	}

	for _, name := range cfg.CipherSuites {
		id, ok := tlsimpl.CipherSuiteID(name)
		if !ok {
			return securechannel.Params{}, fmt.Errorf("%w: %s", ErrUnknownCipherSuite, name)
		}
		params.CipherSuites = append(params.CipherSuites, id)
	}

	if err := params.Validate(); err != nil {
		return securechannel.Params{}, err
	}
	return params, nil
}

// LocalCertificate 按配置生成本地自签名证书
func LocalCertificate(cfg config.SecurityConfig) (*tls.Certificate, error) {
	cert, err := certs.GenerateSelfSigned(certs.Options{
		CommonName: cfg.CommonName,
		Validity:   cfg.CertValidityPeriod.Duration(),
	})
	if err != nil {
		return nil, fmt.Errorf("generate local certificate: %w", err)
	}
	return cert, nil
}
