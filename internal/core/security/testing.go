package security

import (
	"crypto/tls"

	"github.com/dep2p/go-icesip/internal/core/security/certs"
)

// testCertificate 创建测试用自签名证书
func testCertificate(cn string) (*tls.Certificate, error) {
	return certs.GenerateSelfSigned(certs.Options{CommonName: cn})
}
