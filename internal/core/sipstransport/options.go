package sipstransport

import (
	"fmt"

	"github.com/dep2p/go-icesip/config"
	"github.com/dep2p/go-icesip/internal/core/certinfo"
	"github.com/dep2p/go-icesip/internal/core/metrics"
	"github.com/dep2p/go-icesip/internal/core/security"
	iceif "github.com/dep2p/go-icesip/pkg/interfaces/ice"
	"github.com/dep2p/go-icesip/pkg/interfaces/securechannel"
	"github.com/dep2p/go-icesip/pkg/interfaces/sip"
	"github.com/dep2p/go-icesip/pkg/types"
)

// Options 创建传输所需的参数
type Options struct {
	// Manager 协议引擎的传输管理器
	Manager sip.TransportManager

	// Kind 传输类型，决定使用 TLS 还是 DTLS
	Kind types.TransportKind

	// Params 安全参数；Params.VerifyPolicy 参与证书验证
	Params securechannel.Params

	// Link 已连通的 ICE 链路
	Link iceif.PeerLink

	// ComponentID ICE 组件编号，仅用于描述
	ComponentID int

	// Config 适配器配置，零值使用默认配置
	Config config.TransportConfig

	// NewChannel 安全通道构造函数，nil 使用 security.New
	NewChannel security.NewChannelFunc

	// CertStore 证书解析共享缓存，nil 使用默认缓存
	CertStore *certinfo.Store

	// Metrics 指标汇总，nil 时不统计
	Metrics *metrics.Reporter
}

func (o *Options) validate() error {
	if o.Manager == nil {
		return fmt.Errorf("%w: transport manager is required", ErrInvalidArgument)
	}
	if o.Link == nil {
		return fmt.Errorf("%w: peer link is required", ErrInvalidArgument)
	}
	if !o.Kind.IsValid() {
		return fmt.Errorf("%w: transport kind %s", ErrInvalidArgument, o.Kind)
	}
	if o.Config == (config.TransportConfig{}) {
		o.Config = config.DefaultTransportConfig()
	}
	if err := o.Config.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if o.NewChannel == nil {
		o.NewChannel = security.New
	}
	return nil
}

// describe 生成便于阅读的传输描述
func describe(kind types.TransportKind, link iceif.PeerLink, component int) string {
	return fmt.Sprintf("%s secure transport over ICE %s -> %s (component %d)",
		kind, link.LocalAddr(), link.RemoteAddr(), component)
}
