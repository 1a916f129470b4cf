package icesip

import "errors"

// 公共错误定义
var (
	// ErrEndpointClosed 端点已关闭
	ErrEndpointClosed = errors.New("endpoint closed")

	// ErrNilLink ICE 链路为空
	ErrNilLink = errors.New("peer link is nil")
)
