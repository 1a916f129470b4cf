package security

import (
	"context"
	"crypto/tls"

	"go.uber.org/fx"

	"github.com/dep2p/go-icesip/config"
	"github.com/dep2p/go-icesip/internal/core/security/certs"
	"github.com/dep2p/go-icesip/internal/util/logger"
)

var log = logger.Logger("sips.security")

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	// Config 配置（可选）
	Config *config.Config `optional:"true"`

	// Certificate 外部提供的本地证书（可选），未提供时生成自签名证书
	Certificate *tls.Certificate `name:"local_certificate_override" optional:"true"`
}

// ============================================================================
//                              模块输出服务
// ============================================================================

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	// Certificate 本地证书
	Certificate *tls.Certificate `name:"local_certificate"`

	// NewChannel 安全通道构造函数
	NewChannel NewChannelFunc

	// Security 安全配置
	Security config.SecurityConfig
}

// ============================================================================
//                              服务提供
// ============================================================================

// ProvideServices 提供模块服务
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	cfg := config.DefaultSecurityConfig()
	if input.Config != nil {
		cfg = input.Config.Security
	}
	if err := cfg.Validate(); err != nil {
		return ModuleOutput{}, err
	}

	cert := input.Certificate
	if cert == nil {
		var err error
		cert, err = LocalCertificate(cfg)
		if err != nil {
			return ModuleOutput{}, err
		}
	}

	return ModuleOutput{
		Certificate: cert,
		NewChannel:  New,
		Security:    cfg,
	}, nil
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("security",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC          fx.Lifecycle
	Certificate *tls.Certificate `name:"local_certificate"`
	Security    config.SecurityConfig
}

// registerLifecycle 注册生命周期
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			log.Info("安全模块启动",
				"fingerprint", certs.Fingerprint(input.Certificate.Certificate[0]),
				"clientAuth", input.Security.ClientAuth)
			return nil
		},
		OnStop: func(_ context.Context) error {
			log.Info("安全模块停止")
			return nil
		},
	})
}

// ============================================================================
//                              模块元信息
// ============================================================================

// 模块元信息常量
const (
	Version     = "0.3.0"
	Name        = "security"
	Description = "安全通道模块，提供 ICE 链路上的 TLS/DTLS 加密与证书验证"
)
