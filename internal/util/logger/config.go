// Package logger 提供统一的日志接口
//
// 支持通过环境变量配置日志级别：
//   - ICESIP_LOG_LEVEL: 设置日志级别，支持按子系统配置
//     格式: 子系统=级别,子系统=级别,默认级别
//     示例: sips.transport=debug,ice=warn,info
//   - ICESIP_LOG_FORMAT: 日志格式 (text 或 json)
package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LogFormat 日志输出格式
type LogFormat int

const (
	// FormatText 文本格式（默认）
	FormatText LogFormat = iota
	// FormatJSON JSON 格式
	FormatJSON
)

// Config 日志配置
type Config struct {
	// DefaultLevel 默认日志级别
	DefaultLevel slog.Level

	// SubsystemLevels 各子系统的日志级别
	SubsystemLevels map[string]slog.Level

	// Format 输出格式
	Format LogFormat

	// AddSource 是否添加源码位置
	AddSource bool
}

// LevelForSubsystem 获取指定子系统的日志级别
//
// 子系统名按 "." 分段向上回退：sips.transport 未配置时使用 sips 的级别。
func (c *Config) LevelForSubsystem(subsystem string) slog.Level {
	name := subsystem
	for name != "" {
		if level, ok := c.SubsystemLevels[name]; ok {
			return level
		}
		idx := strings.LastIndexByte(name, '.')
		if idx < 0 {
			break
		}
		name = name[:idx]
	}
	return c.DefaultLevel
}

var (
	configCache *Config
	configOnce  sync.Once
)

// ConfigFromEnv 从环境变量解析配置
//
// 环境变量:
//   - ICESIP_LOG_LEVEL: 日志级别配置
//   - ICESIP_LOG_FORMAT: text 或 json
//   - ICESIP_LOG_ADD_SOURCE: true 或 false
func ConfigFromEnv() *Config {
	configOnce.Do(func() {
		configCache = parseConfig()
	})
	return configCache
}

func parseConfig() *Config {
	cfg := &Config{
		DefaultLevel:    slog.LevelInfo,
		SubsystemLevels: make(map[string]slog.Level),
		Format:          FormatText,
		AddSource:       false,
	}

	if levelStr := os.Getenv("ICESIP_LOG_LEVEL"); levelStr != "" {
		parseLevelConfig(cfg, levelStr)
	}

	if formatStr := os.Getenv("ICESIP_LOG_FORMAT"); formatStr != "" {
		if strings.EqualFold(formatStr, "json") {
			cfg.Format = FormatJSON
		}
	}

	if addSourceStr := os.Getenv("ICESIP_LOG_ADD_SOURCE"); addSourceStr != "" {
		cfg.AddSource = addSourceStr != "false" && addSourceStr != "0"
	}

	return cfg
}

// parseLevelConfig 解析日志级别配置字符串
// 格式: subsystem=level,subsystem=level,defaultLevel
func parseLevelConfig(cfg *Config, levelStr string) {
	for _, part := range strings.Split(levelStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		subsystem, levelName, found := strings.Cut(part, "=")
		if !found {
			if level, ok := ParseLevel(part); ok {
				cfg.DefaultLevel = level
			}
			continue
		}
		if level, ok := ParseLevel(strings.TrimSpace(levelName)); ok {
			cfg.SubsystemLevels[strings.TrimSpace(subsystem)] = level
		}
	}
}

// ParseLevel 解析日志级别名称
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "trace", "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// ResetConfig 重置配置缓存（仅用于测试）
func ResetConfig() {
	configOnce = sync.Once{}
	configCache = nil
}
