package dtls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"github.com/pion/dtls/v3"

	"github.com/dep2p/go-icesip/internal/util/logger"
	"github.com/dep2p/go-icesip/pkg/interfaces/securechannel"
)

// buildConfig 按角色构建 DTLS 配置
func buildConfig(params securechannel.Params, verify func([][]byte, [][]*x509.Certificate) error) (*dtls.Config, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	cfg := &dtls.Config{
		Certificates:          []tls.Certificate{*params.Certificate},
		InsecureSkipVerify:    true,
		VerifyPeerCertificate: verify,
		ExtendedMasterSecret:  dtls.RequireExtendedMasterSecret,
		LoggerFactory:         logger.PionFactory("dtls"),
	}

	if len(params.CipherSuites) > 0 {
		suites, err := cipherSuites(params.CipherSuites)
		if err != nil {
			return nil, err
		}
		cfg.CipherSuites = suites
	}

	switch params.Role {
	case securechannel.RoleClient:
		cfg.ServerName = params.ServerName
	case securechannel.RoleServer:
		cfg.ClientAuth = dtls.RequestClientCert
		if params.RequireClientCert {
			cfg.ClientAuth = dtls.RequireAnyClientCert
		}
	}

	return cfg, nil
}

// cipherSuites 转换为 pion/dtls 支持的套件
func cipherSuites(ids []uint16) ([]dtls.CipherSuiteID, error) {
	out := make([]dtls.CipherSuiteID, 0, len(ids))
	for _, id := range ids {
		suite := dtls.CipherSuiteID(id)
		if !supported(suite) {
			return nil, fmt.Errorf("unsupported dtls cipher suite 0x%04x", id)
		}
		out = append(out, suite)
	}
	return out, nil
}

func supported(id dtls.CipherSuiteID) bool {
	switch id {
	case dtls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		dtls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		dtls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		dtls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		dtls.TLS_ECDHE_ECDSA_WITH_AES_128_CCM,
		dtls.TLS_ECDHE_ECDSA_WITH_AES_128_CCM_8,
		dtls.TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA,
		dtls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA:
		return true
	}
	return false
}
