package icesip

import (
	"crypto/tls"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-icesip/config"
	"github.com/dep2p/go-icesip/pkg/interfaces/securechannel"
)

// Option 端点配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 统一配置
	config *config.Config

	// 外部提供的本地证书
	certificate *tls.Certificate

	// 证书验证策略，Params 返回的参数默认携带
	verifyPolicy securechannel.VerifyPolicy

	// 外部指标注册表
	registerer prometheus.Registerer

	// 用户自定义 Fx 选项
	userFxOptions []fx.Option
}

func newOptions() *options {
	return &options{config: config.NewConfig()}
}

// WithConfig 使用完整配置
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config is nil")
		}
		o.config = cfg
		return nil
	}
}

// WithCertificate 使用外部证书，不再生成自签名证书
func WithCertificate(cert *tls.Certificate) Option {
	return func(o *options) error {
		if cert == nil || len(cert.Certificate) == 0 {
			return errors.New("certificate is empty")
		}
		o.certificate = cert
		return nil
	}
}

// WithVerifyPolicy 设置默认的对端证书验证策略
func WithVerifyPolicy(policy securechannel.VerifyPolicy) Option {
	return func(o *options) error {
		o.verifyPolicy = policy
		return nil
	}
}

// WithMetricsRegisterer 把传输指标注册到外部注册表
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}
