// Package config 提供统一的配置管理
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义，
// 支持从 JSON 加载和保存。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Transport.PollTimeout = config.Duration(50 * time.Millisecond)
//	cfg.ICE.STUNServers = []string{"stun:stun.l.google.com:19302"}
//
//	// 从 JSON 加载
//	cfg, err := config.FromJSON(data)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Config ICE 安全传输的完整配置
//
// 配置按照功能模块组织：
//   - Transport: 适配器行为（轮询、重组上限、队列）
//   - Security: TLS/DTLS 参数
//   - ICE: 候选收集与连通性检查
//   - Metrics: 指标导出
type Config struct {
	// Transport 传输适配器配置
	Transport TransportConfig `json:"transport"`

	// Security 安全通道配置
	Security SecurityConfig `json:"security"`

	// ICE ICE 代理配置
	ICE ICEConfig `json:"ice"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Transport: DefaultTransportConfig(),
		Security:  DefaultSecurityConfig(),
		ICE:       DefaultICEConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := c.Transport.Validate(); err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	if err := c.Security.Validate(); err != nil {
		return fmt.Errorf("security: %w", err)
	}
	if err := c.ICE.Validate(); err != nil {
		return fmt.Errorf("ice: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

// FromJSON 从 JSON 加载配置
//
// 未出现的字段保留默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToJSON 序列化配置
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Clone 深拷贝配置
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Security.CipherSuites = append([]string(nil), c.Security.CipherSuites...)
	cp.ICE.STUNServers = append([]string(nil), c.ICE.STUNServers...)
	cp.ICE.NetworkTypes = append([]string(nil), c.ICE.NetworkTypes...)
	return &cp
}
