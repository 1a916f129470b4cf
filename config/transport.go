package config

import (
	"errors"
	"time"
)

// TransportConfig 传输适配器配置
type TransportConfig struct {
	// PollTimeout 可靠传输轮询循环每次等待可读数据的最长时间
	PollTimeout Duration `json:"poll_timeout"`

	// ReadChunkSize 轮询循环每次从安全通道读取的最大字节数
	ReadChunkSize int `json:"read_chunk_size"`

	// MaxReassemblyBytes 入站重组缓冲上限
	//
	// 协议引擎连续无法消费的字节超过该值时，丢弃缓冲并断开传输。
	MaxReassemblyBytes int `json:"max_reassembly_bytes"`

	// MaxQueuedSends 排队等待发送的最大消息数，0 表示不限制
	MaxQueuedSends int `json:"max_queued_sends,omitempty"`
}

// DefaultTransportConfig 返回默认传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		PollTimeout:        Duration(100 * time.Millisecond), // 轮询等待：100 毫秒
		ReadChunkSize:      8 * 1024,                         // 单次读取：8 KB
		MaxReassemblyBytes: 64 * 1024,                        // 重组上限：64 KB
		MaxQueuedSends:     1024,                             // 排队上限：1024 条
	}
}

// Validate 验证传输配置
func (c TransportConfig) Validate() error {
	if c.PollTimeout <= 0 {
		return errors.New("poll timeout must be positive")
	}
	if c.ReadChunkSize <= 0 {
		return errors.New("read chunk size must be positive")
	}
	if c.MaxReassemblyBytes < c.ReadChunkSize {
		return errors.New("max reassembly bytes must not be smaller than read chunk size")
	}
	if c.MaxQueuedSends < 0 {
		return errors.New("max queued sends must not be negative")
	}
	return nil
}

// WithPollTimeout 设置轮询等待时间
func (c TransportConfig) WithPollTimeout(d time.Duration) TransportConfig {
	c.PollTimeout = Duration(d)
	return c
}

// WithMaxReassemblyBytes 设置重组缓冲上限
func (c TransportConfig) WithMaxReassemblyBytes(n int) TransportConfig {
	c.MaxReassemblyBytes = n
	return c
}
