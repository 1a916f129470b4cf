package ice

import "errors"

var (
	// ErrAgentClosed 代理已关闭
	ErrAgentClosed = errors.New("ice: agent closed")

	// ErrGatherTimeout 候选收集超时
	ErrGatherTimeout = errors.New("ice: candidate gathering timed out")

	// ErrInvalidDescription 远端描述无效
	ErrInvalidDescription = errors.New("ice: invalid remote description")

	// ErrLinkClosed 链路已关闭
	ErrLinkClosed = errors.New("ice: link closed")

	// ErrAlreadyConnected 代理已经建立过链路
	ErrAlreadyConnected = errors.New("ice: agent already connected")
)
