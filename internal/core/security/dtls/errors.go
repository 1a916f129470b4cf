package dtls

import "errors"

// DTLS 通道错误
var (
	// ErrNotEstablished 握手尚未完成
	ErrNotEstablished = errors.New("dtls: channel not established")

	// ErrShutdown 通道已关闭
	ErrShutdown = errors.New("dtls: channel shut down")

	// ErrPayloadTooLarge 写入超过单个记录上限
	ErrPayloadTooLarge = errors.New("dtls: payload exceeds record size")

	// ErrPushOnly 入站数据通过回调推送，不支持 Read
	ErrPushOnly = errors.New("dtls: inbound data is pushed via callbacks")
)
