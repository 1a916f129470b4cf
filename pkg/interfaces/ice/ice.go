// Package ice 定义 ICE 层对外提供的接口
//
// ICE 候选收集与协商不在本模块范围内；这里只约定协商完成后
// 交给安全传输适配器使用的已连通链路。
package ice

import (
	"net"
)

// PeerLink 已完成协商的 ICE 候选对
//
// Read/Write 以数据报为单位：每次 Read 返回一个完整的对端数据包，
// 缓冲区不足时返回 io.ErrShortBuffer。
type PeerLink interface {
	// LocalAddr 返回选中候选对的本地地址
	LocalAddr() net.Addr

	// RemoteAddr 返回选中候选对的远端地址
	RemoteAddr() net.Addr

	// IsRunning 协商是否已完成且链路仍然存活
	IsRunning() bool

	// Read 读取一个数据包，阻塞直到有数据或链路关闭
	Read(p []byte) (int, error)

	// Write 发送一个数据包
	Write(p []byte) (int, error)

	// Close 关闭链路
	Close() error
}
