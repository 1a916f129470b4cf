package certs

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dep2p/go-icesip/pkg/interfaces/securechannel"
)

var (
	// ErrNoCertificate 对端未提供证书
	ErrNoCertificate = errors.New("certs: no certificate provided")

	// ErrUntrusted 证书链不可信
	ErrUntrusted = errors.New("certs: certificate chain not trusted")

	// ErrPinMismatch 证书指纹不匹配
	ErrPinMismatch = errors.New("certs: certificate fingerprint mismatch")

	// ErrNameMismatch SAN 不包含期望名称
	ErrNameMismatch = errors.New("certs: certificate name mismatch")
)

// BuildSession 整理对端证书链，并给出链验证结果
//
// 任何一张证书无法按 X.509 解析时，会话类型为 CertTypeUnsupported。
// roots 为 nil 时只做有效期检查，ChainStatus 为 ErrUntrusted 以外的结果
// 交给验证策略决定。
func BuildSession(rawCerts [][]byte, roots *x509.CertPool, serverName string) securechannel.Session {
	session := securechannel.Session{
		Type:     securechannel.CertTypeX509,
		RawChain: rawCerts,
	}
	if len(rawCerts) == 0 {
		session.ChainStatus = ErrNoCertificate
		return session
	}

	chain := make([]*x509.Certificate, 0, len(rawCerts))
	for _, raw := range rawCerts {
		cert, err := x509.ParseCertificate(raw)
		if err != nil {
			session.Type = securechannel.CertTypeUnsupported
			session.ChainStatus = fmt.Errorf("parse peer certificate: %w", err)
			return session
		}
		chain = append(chain, cert)
	}
	session.Chain = chain
	session.ChainStatus = VerifyChain(chain, roots, serverName)
	return session
}

// VerifyChain 验证证书链
//
// roots 为 nil 时无法建立信任，仅检查叶子证书有效期，结果为 ErrUntrusted
// 或有效期错误。
func VerifyChain(chain []*x509.Certificate, roots *x509.CertPool, serverName string) error {
	if len(chain) == 0 {
		return ErrNoCertificate
	}
	leaf := chain[0]

	if roots == nil {
		now := time.Now()
		if now.Before(leaf.NotBefore) || now.After(leaf.NotAfter) {
			return x509.CertificateInvalidError{Cert: leaf, Reason: x509.Expired}
		}
		return ErrUntrusted
	}

	intermediates := x509.NewCertPool()
	for _, c := range chain[1:] {
		intermediates.AddCert(c)
	}
	_, err := leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		DNSName:       serverName,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	return err
}

// ============================================================================
//                              验证策略
// ============================================================================

// ChainOnlyPolicy 只接受链验证通过的证书
func ChainOnlyPolicy() securechannel.VerifyPolicy {
	return func(status error, _ []*x509.Certificate) error {
		return status
	}
}

// PinnedPolicy 接受叶子证书指纹在白名单中的证书，忽略链验证结果
func PinnedPolicy(fingerprints ...string) securechannel.VerifyPolicy {
	pins := make(map[string]struct{}, len(fingerprints))
	for _, fp := range fingerprints {
		pins[fp] = struct{}{}
	}
	return func(_ error, chain []*x509.Certificate) error {
		if len(chain) == 0 {
			return ErrNoCertificate
		}
		fp := Fingerprint(chain[0].Raw)
		if _, ok := pins[fp]; !ok {
			return fmt.Errorf("%w: %s", ErrPinMismatch, fp)
		}
		return nil
	}
}

// SANPolicy 要求叶子证书 SAN 中包含指定的 URI（如 sip:alice@example.org）
//
// 若 requireChain 为 true，还要求链验证通过。
func SANPolicy(uri string, requireChain bool) securechannel.VerifyPolicy {
	return func(status error, chain []*x509.Certificate) error {
		if requireChain && status != nil {
			return status
		}
		if len(chain) == 0 {
			return ErrNoCertificate
		}
		for _, u := range chain[0].URIs {
			if u.String() == uri {
				return nil
			}
		}
		return fmt.Errorf("%w: want %s", ErrNameMismatch, uri)
	}
}

// AcceptAllPolicy 接受任何可解析的证书，仅用于测试和回环演示
func AcceptAllPolicy() securechannel.VerifyPolicy {
	return func(error, []*x509.Certificate) error { return nil }
}

func parseURI(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid uri %q: %w", raw, err)
	}
	return u, nil
}
