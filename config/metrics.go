package config

import (
	"errors"
	"regexp"
)

var namespacePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enable 是否统计并导出指标
	Enable bool `json:"enable"`

	// Namespace Prometheus 指标命名空间
	Namespace string `json:"namespace,omitempty"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enable:    true,
		Namespace: "icesip",
	}
}

// Validate 验证指标配置
func (c MetricsConfig) Validate() error {
	if c.Enable && !namespacePattern.MatchString(c.Namespace) {
		return errors.New("metrics namespace must be a valid prometheus identifier")
	}
	return nil
}
