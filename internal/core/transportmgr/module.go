package transportmgr

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-icesip/pkg/interfaces/sip"
)

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	// Manager 传输管理器
	Manager *Manager

	// TransportManager 协议引擎接口
	TransportManager sip.TransportManager
}

// ProvideServices 提供模块服务
func ProvideServices() ModuleOutput {
	m := New()
	return ModuleOutput{
		Manager:          m,
		TransportManager: m,
	}
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("transportmgr",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}

// registerLifecycle 停止时销毁所有传输
func registerLifecycle(lc fx.Lifecycle, m *Manager) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			log.Info("传输管理器停止", "transports", m.Len())
			return m.Close()
		},
	})
}
