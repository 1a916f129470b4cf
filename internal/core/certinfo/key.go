package certinfo

import (
	"encoding/hex"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// IssuerSerial 不做完整解析，直接从 DER 中取出 颁发者+序列号 作为键
//
// 键由原始 issuer 编码与序列号字节拼成，只用于判断证书是否变化。
func IssuerSerial(der []byte) (string, error) {
	if len(der) == 0 {
		return "", ErrEmpty
	}

	input := cryptobyte.String(der)
	var cert, tbs cryptobyte.String
	if !input.ReadASN1(&cert, cbasn1.SEQUENCE) ||
		!cert.ReadASN1(&tbs, cbasn1.SEQUENCE) {
		return "", ErrMalformed
	}

	// version [0] EXPLICIT 可选
	if !tbs.SkipOptionalASN1(cbasn1.Tag(0).Constructed().ContextSpecific()) {
		return "", ErrMalformed
	}

	var serial cryptobyte.String
	if !tbs.ReadASN1(&serial, cbasn1.INTEGER) {
		return "", ErrMalformed
	}

	// signature AlgorithmIdentifier
	if !tbs.SkipASN1(cbasn1.SEQUENCE) {
		return "", ErrMalformed
	}

	var issuer cryptobyte.String
	if !tbs.ReadASN1Element(&issuer, cbasn1.SEQUENCE) {
		return "", ErrMalformed
	}

	return hex.EncodeToString(issuer) + "#" + hex.EncodeToString(serial), nil
}
