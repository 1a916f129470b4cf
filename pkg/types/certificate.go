package types

import "time"

// SANType 主体备用名称（subjectAltName）条目类型
type SANType int

const (
	// SANUnknown 无法归类的条目（otherName、directoryName 等）
	SANUnknown SANType = iota
	// SANIP IP 地址
	SANIP
	// SANURI URI
	SANURI
	// SANEmail 电子邮件（rfc822Name）
	SANEmail
	// SANDNS DNS 名称
	SANDNS
)

// String 返回类型名称
func (t SANType) String() string {
	switch t {
	case SANIP:
		return "ip"
	case SANURI:
		return "uri"
	case SANEmail:
		return "email"
	case SANDNS:
		return "dns"
	default:
		return "unknown"
	}
}

// SANEntry 主体备用名称条目
type SANEntry struct {
	Type  SANType
	Value string
}

// CertificateInfo 证书结构化信息
//
// 由 certinfo 包从 DER 证书解析得到，交给协议引擎展示或做策略判断。
// 交出后即为只读快照。
type CertificateInfo struct {
	// Version X.509 版本（1、2、3）
	Version int

	// Issuer 颁发者 DN（RFC 2253 格式）
	Issuer string

	// IssuerCN 颁发者 CommonName
	IssuerCN string

	// Subject 主体 DN（RFC 2253 格式）
	Subject string

	// SubjectCN 主体 CommonName
	SubjectCN string

	// SerialNumber 序列号（十六进制小写）
	SerialNumber string

	// NotBefore / NotAfter 有效期
	NotBefore time.Time
	NotAfter  time.Time

	// SubjectAltNames 主体备用名称
	SubjectAltNames []SANEntry
}

// IssuerSerialKey 返回 颁发者+序列号 组合键
//
// 同一颁发者不会签发两张序列号相同的证书，因此可用于判断证书是否变化。
func (c *CertificateInfo) IssuerSerialKey() string {
	if c == nil {
		return ""
	}
	return c.Issuer + "#" + c.SerialNumber
}

// Clone 深拷贝
func (c *CertificateInfo) Clone() *CertificateInfo {
	if c == nil {
		return nil
	}
	cp := *c
	if c.SubjectAltNames != nil {
		cp.SubjectAltNames = append([]SANEntry(nil), c.SubjectAltNames...)
	}
	return &cp
}

// ValidAt 检查证书在 t 时刻是否处于有效期内
func (c *CertificateInfo) ValidAt(t time.Time) bool {
	if c == nil {
		return false
	}
	return !t.Before(c.NotBefore) && !t.After(c.NotAfter)
}
