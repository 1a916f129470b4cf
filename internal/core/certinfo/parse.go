package certinfo

import (
	"crypto/x509"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"net/netip"
	"strings"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/dep2p/go-icesip/pkg/types"
)

var oidSubjectAltName = asn1.ObjectIdentifier{2, 5, 29, 17}

// GeneralName 标签（RFC 5280 4.2.1.6）
const (
	tagOtherName     = 0
	tagRFC822Name    = 1
	tagDNSName       = 2
	tagX400Address   = 3
	tagDirectoryName = 4
	tagEDIPartyName  = 5
	tagURI           = 6
	tagIPAddress     = 7
	tagRegisteredID  = 8
)

// Parse 解析 DER 证书
func Parse(der []byte) (*types.CertificateInfo, error) {
	if len(der) == 0 {
		return nil, ErrEmpty
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return FromX509(cert)
}

// FromX509 从已解析的证书提取信息
func FromX509(cert *x509.Certificate) (*types.CertificateInfo, error) {
	if cert == nil {
		return nil, ErrEmpty
	}

	info := &types.CertificateInfo{
		Version:      cert.Version,
		Issuer:       cert.Issuer.String(),
		IssuerCN:     cert.Issuer.CommonName,
		Subject:      cert.Subject.String(),
		SubjectCN:    cert.Subject.CommonName,
		SerialNumber: serialHex(cert.SerialNumber.Bytes()),
		NotBefore:    cert.NotBefore,
		NotAfter:     cert.NotAfter,
	}

	for _, ext := range cert.Extensions {
		if !ext.Id.Equal(oidSubjectAltName) {
			continue
		}
		sans, err := parseSAN(ext.Value)
		if err != nil {
			return nil, err
		}
		info.SubjectAltNames = sans
		break
	}

	return info, nil
}

// parseSAN 按原始顺序遍历 GeneralNames
//
// crypto/x509 会丢弃 otherName、directoryName 等条目，这里保留为 SANUnknown。
func parseSAN(der []byte) ([]types.SANEntry, error) {
	input := cryptobyte.String(der)
	var names cryptobyte.String
	if !input.ReadASN1(&names, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, fmt.Errorf("%w: subjectAltName", ErrMalformed)
	}

	var out []types.SANEntry
	for !names.Empty() {
		var (
			value cryptobyte.String
			tag   cbasn1.Tag
		)
		if !names.ReadAnyASN1(&value, &tag) {
			return nil, fmt.Errorf("%w: subjectAltName entry", ErrMalformed)
		}

		num := int(tag & 0x1f)

		switch {
		case tag == cbasn1.Tag(tagRFC822Name).ContextSpecific():
			out = append(out, types.SANEntry{Type: types.SANEmail, Value: string(value)})
		case tag == cbasn1.Tag(tagDNSName).ContextSpecific():
			out = append(out, types.SANEntry{Type: types.SANDNS, Value: string(value)})
		case tag == cbasn1.Tag(tagURI).ContextSpecific():
			out = append(out, types.SANEntry{Type: types.SANURI, Value: string(value)})
		case tag == cbasn1.Tag(tagIPAddress).ContextSpecific():
			addr, ok := netip.AddrFromSlice(value)
			if !ok {
				out = append(out, types.SANEntry{Type: types.SANUnknown, Value: "ip:" + hex.EncodeToString(value)})
				continue
			}
			out = append(out, types.SANEntry{Type: types.SANIP, Value: addr.Unmap().String()})
		default:
			out = append(out, types.SANEntry{Type: types.SANUnknown, Value: unknownValue(num, value)})
		}
	}
	return out, nil
}

func unknownValue(tag int, value []byte) string {
	var name string
	switch tag {
	case tagOtherName:
		name = "othername"
	case tagX400Address:
		name = "x400"
	case tagDirectoryName:
		name = "dirname"
	case tagEDIPartyName:
		name = "edipartyname"
	case tagRegisteredID:
		name = "registeredid"
	default:
		name = fmt.Sprintf("tag%d", tag)
	}
	return name + ":" + hex.EncodeToString(value)
}

func serialHex(b []byte) string {
	if len(b) == 0 {
		return "00"
	}
	return strings.ToLower(hex.EncodeToString(b))
}
