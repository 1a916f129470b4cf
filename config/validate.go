package config

import (
	"errors"
	"fmt"
	"time"
)

// ValidateAll 验证整个配置的有效性
//
// 这是 Config.Validate() 的别名，提供更明确的语义。
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}

// ValidateAndFix 验证配置并尝试自动修复常见问题
//
// 可修复的问题：
//   - 超时为零或负数 -> 使用默认值
//   - 重组上限小于单次读取 -> 提升到单次读取的 8 倍
//   - 未启用任何网络类型 -> 使用默认值
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		return NewConfig(), nil
	}

	defTransport := DefaultTransportConfig()
	if c.Transport.PollTimeout <= 0 {
		c.Transport.PollTimeout = defTransport.PollTimeout
	}
	if c.Transport.ReadChunkSize <= 0 {
		c.Transport.ReadChunkSize = defTransport.ReadChunkSize
	}
	if c.Transport.MaxReassemblyBytes < c.Transport.ReadChunkSize {
		c.Transport.MaxReassemblyBytes = c.Transport.ReadChunkSize * 8
	}

	if c.Security.HandshakeTimeout <= 0 {
		c.Security.HandshakeTimeout = DefaultSecurityConfig().HandshakeTimeout
	}
	if c.Security.ClientAuth == "" {
		c.Security.ClientAuth = ClientAuthRequest
	}

	defICE := DefaultICEConfig()
	if len(c.ICE.NetworkTypes) == 0 {
		c.ICE.NetworkTypes = defICE.NetworkTypes
	}
	if c.ICE.GatherTimeout <= 0 {
		c.ICE.GatherTimeout = defICE.GatherTimeout
	}
	if c.ICE.ConnectTimeout <= 0 {
		c.ICE.ConnectTimeout = defICE.ConnectTimeout
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed after fixes: %w", err)
	}
	return c, nil
}

// MustValidate 验证配置，如果失败则 panic
//
// 仅用于初始化阶段或测试代码。
func MustValidate(c *Config) {
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("config validation failed: %v", err))
	}
}

// ValidateCompatibility 验证配置之间的兼容性
func ValidateCompatibility(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}

	// 握手必须能在 ICE 判定失败之前完成
	if c.ICE.FailedTimeout > 0 && c.Security.HandshakeTimeout > c.ICE.FailedTimeout {
		return fmt.Errorf("handshake timeout (%s) exceeds ICE failed timeout (%s)",
			c.Security.HandshakeTimeout, c.ICE.FailedTimeout)
	}

	// 轮询等待过长会拖慢销毁
	if c.Transport.PollTimeout.Duration() > 5*time.Second {
		return fmt.Errorf("poll timeout %s too long (max 5s)", c.Transport.PollTimeout)
	}

	return nil
}
