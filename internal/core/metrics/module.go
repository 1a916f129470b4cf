package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-icesip/config"
)

// Params Metrics 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`

	// Registerer 外部注册表（可选），未提供时使用模块内的独立注册表
	Registerer prometheus.Registerer `optional:"true"`
}

// Result Metrics 输出
type Result struct {
	fx.Out

	// Reporter 禁用指标时为 nil
	Reporter *Reporter

	// Gatherer 用于导出的采集入口
	Gatherer prometheus.Gatherer
}

// Module 是 metrics 的 Fx 模块
var Module = fx.Module("metrics",
	fx.Provide(NewFromParams),
)

// NewFromParams 从参数创建汇总器并注册采集器
func NewFromParams(p Params) (Result, error) {
	cfg := config.DefaultMetricsConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.Metrics
	}

	registry := prometheus.NewRegistry()
	if !cfg.Enable {
		return Result{Gatherer: registry}, nil
	}

	reporter := NewReporter()
	registerer := p.Registerer
	if registerer == nil {
		registerer = registry
	}
	if err := registerer.Register(NewCollector(reporter, cfg.Namespace)); err != nil {
		return Result{}, err
	}

	var gatherer prometheus.Gatherer = registry
	if g, ok := registerer.(prometheus.Gatherer); ok {
		gatherer = g
	}
	return Result{Reporter: reporter, Gatherer: gatherer}, nil
}
