package certinfo

import "errors"

var (
	// ErrMalformed 证书 DER 结构无法解析
	ErrMalformed = errors.New("certinfo: malformed certificate")

	// ErrEmpty 证书为空
	ErrEmpty = errors.New("certinfo: empty certificate")
)
