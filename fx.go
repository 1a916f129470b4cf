package icesip

import (
	"crypto/tls"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-icesip/config"
	"github.com/dep2p/go-icesip/internal/core/certinfo"
	"github.com/dep2p/go-icesip/internal/core/metrics"
	"github.com/dep2p/go-icesip/internal/core/security"
	"github.com/dep2p/go-icesip/internal/core/transportmgr"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 配置注入
//  2. Security: 本地证书与通道构造函数
//  3. Metrics: 传输计数与 prometheus 采集
//  4. TransportManager: 协议引擎侧的传输注册表
func buildFxApp(o *options, ep *Endpoint) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		fx.Supply(o.config),
		fx.Provide(provideCertStore),
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 核心模块
	// ════════════════════════════════════════════════════════════════════════
	if o.certificate != nil {
		modules = append(modules, fx.Supply(fx.Annotated{
			Name:   "local_certificate_override",
			Target: o.certificate,
		}))
	}
	if o.registerer != nil {
		reg := o.registerer
		modules = append(modules, fx.Provide(func() prometheus.Registerer { return reg }))
	}
	modules = append(modules,
		security.Module(),
		metrics.Module,
		transportmgr.Module(),
	)

	// ════════════════════════════════════════════════════════════════════════
	// 3. 用户扩展（Fx Options）
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, o.userFxOptions...)

	// ════════════════════════════════════════════════════════════════════════
	// 4. 端点组件注入
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, fx.Invoke(injectEndpointComponents(ep)))

	// ════════════════════════════════════════════════════════════════════════
	// 5. Fx 配置
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	return fx.New(modules...), nil
}

// provideCertStore 端点内所有传输共享的证书解析缓存
func provideCertStore() (*certinfo.Store, error) {
	return certinfo.NewStore(certinfo.DefaultStoreSize)
}

// endpointInjectParams 端点组件注入参数
type endpointInjectParams struct {
	fx.In

	Config      *config.Config
	Certificate *tls.Certificate `name:"local_certificate"`
	NewChannel  security.NewChannelFunc
	Manager     *transportmgr.Manager
	CertStore   *certinfo.Store

	// Reporter 禁用指标时为 nil
	Reporter *metrics.Reporter `optional:"true"`
	Gatherer prometheus.Gatherer
}

func injectEndpointComponents(ep *Endpoint) interface{} {
	return func(p endpointInjectParams) {
		ep.cfg = p.Config
		ep.cert = p.Certificate
		ep.newChannel = p.NewChannel
		ep.manager = p.Manager
		ep.certStore = p.CertStore
		ep.reporter = p.Reporter
		ep.gatherer = p.Gatherer
	}
}
