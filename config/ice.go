package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/pion/stun/v3"
)

// ICEConfig ICE 代理配置
type ICEConfig struct {
	// STUNServers STUN/TURN 服务器 URI，例如 "stun:stun.l.google.com:19302"
	STUNServers []string `json:"stun_servers,omitempty"`

	// NetworkTypes 启用的网络类型："udp4"、"udp6"、"tcp4"、"tcp6"
	NetworkTypes []string `json:"network_types"`

	// IncludeLoopback 是否收集回环地址候选
	IncludeLoopback bool `json:"include_loopback"`

	// GatherTimeout 候选收集超时
	GatherTimeout Duration `json:"gather_timeout"`

	// ConnectTimeout 连通性检查超时
	ConnectTimeout Duration `json:"connect_timeout"`

	// DisconnectedTimeout 无流量多久判定为断开
	DisconnectedTimeout Duration `json:"disconnected_timeout"`

	// FailedTimeout 断开后多久判定为失败
	FailedTimeout Duration `json:"failed_timeout"`

	// KeepaliveInterval 保活间隔
	KeepaliveInterval Duration `json:"keepalive_interval"`
}

// DefaultICEConfig 返回默认 ICE 配置
func DefaultICEConfig() ICEConfig {
	return ICEConfig{
		NetworkTypes:        []string{"udp4", "udp6"},
		IncludeLoopback:     false,
		GatherTimeout:       Duration(5 * time.Second),  // 候选收集：5 秒
		ConnectTimeout:      Duration(30 * time.Second), // 连通性检查：30 秒
		DisconnectedTimeout: Duration(5 * time.Second),  // 断开判定：5 秒
		FailedTimeout:       Duration(25 * time.Second), // 失败判定：25 秒
		KeepaliveInterval:   Duration(2 * time.Second),  // 保活：2 秒
	}
}

// Validate 验证 ICE 配置
func (c ICEConfig) Validate() error {
	if len(c.NetworkTypes) == 0 {
		return errors.New("at least one network type must be enabled")
	}
	for _, nt := range c.NetworkTypes {
		switch nt {
		case "udp4", "udp6", "tcp4", "tcp6":
		default:
			return fmt.Errorf("unknown network type %q", nt)
		}
	}
	if _, err := c.URIs(); err != nil {
		return err
	}
	if c.GatherTimeout <= 0 || c.ConnectTimeout <= 0 {
		return errors.New("gather and connect timeouts must be positive")
	}
	if c.DisconnectedTimeout < 0 || c.FailedTimeout < 0 || c.KeepaliveInterval < 0 {
		return errors.New("ice timers must not be negative")
	}
	return nil
}

// URIs 解析 STUN/TURN 服务器地址
func (c ICEConfig) URIs() ([]*stun.URI, error) {
	uris := make([]*stun.URI, 0, len(c.STUNServers))
	for _, raw := range c.STUNServers {
		u, err := stun.ParseURI(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid stun server %q: %w", raw, err)
		}
		uris = append(uris, u)
	}
	return uris, nil
}

// WithLoopback 设置是否收集回环候选
func (c ICEConfig) WithLoopback(enabled bool) ICEConfig {
	c.IncludeLoopback = enabled
	return c
}

// WithSTUNServers 设置 STUN 服务器
func (c ICEConfig) WithSTUNServers(servers ...string) ICEConfig {
	c.STUNServers = append([]string(nil), servers...)
	return c
}
