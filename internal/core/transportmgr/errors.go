package transportmgr

import "errors"

var (
	// ErrDuplicate 同一远端地址已有注册的传输
	ErrDuplicate = errors.New("transportmgr: transport already registered for remote address")

	// ErrNotRegistered 传输未注册
	ErrNotRegistered = errors.New("transportmgr: transport not registered")

	// ErrClosed 管理器已关闭
	ErrClosed = errors.New("transportmgr: manager closed")

	// ErrInvalidHandle 传输对象无效
	ErrInvalidHandle = errors.New("transportmgr: invalid handle")
)
