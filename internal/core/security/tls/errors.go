package tls

import "errors"

// TLS 通道错误
var (
	// ErrNotEstablished 握手尚未完成
	ErrNotEstablished = errors.New("tls: channel not established")

	// ErrShutdown 通道已关闭
	ErrShutdown = errors.New("tls: channel shut down")
)
