package icesip

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-icesip/config"
	"github.com/dep2p/go-icesip/internal/core/certinfo"
	"github.com/dep2p/go-icesip/internal/core/metrics"
	"github.com/dep2p/go-icesip/internal/core/security"
	"github.com/dep2p/go-icesip/internal/core/sipstransport"
	"github.com/dep2p/go-icesip/internal/core/transportmgr"
	"github.com/dep2p/go-icesip/internal/util/logger"
	iceif "github.com/dep2p/go-icesip/pkg/interfaces/ice"
	"github.com/dep2p/go-icesip/pkg/interfaces/securechannel"
	"github.com/dep2p/go-icesip/pkg/types"
)

var log = logger.Logger("icesip")

// ════════════════════════════════════════════════════════════════════════════
//                              版本信息
// ════════════════════════════════════════════════════════════════════════════

// Version 当前版本
const Version = "v0.1.0"

// BuildInfo 构建信息（通过 ldflags 注入）
var (
	// GitCommit Git 提交哈希
	GitCommit string

	// BuildDate 构建日期
	BuildDate string
)

// VersionInfo 返回完整版本信息字符串
func VersionInfo() string {
	info := "icesip " + Version
	if GitCommit != "" {
		info += " (" + GitCommit[:min(8, len(GitCommit))] + ")"
	}
	if BuildDate != "" {
		info += " built " + BuildDate
	}
	return info
}

// stopTimeout Fx App 停止超时
const stopTimeout = 10 * time.Second

// ════════════════════════════════════════════════════════════════════════════
//                              Endpoint
// ════════════════════════════════════════════════════════════════════════════

// Endpoint 安全传输端点
//
// 持有本地证书、传输管理器与指标汇总，在 ICE 链路上创建安全传输。
// 关闭端点会销毁它创建的所有传输。
type Endpoint struct {
	app *fx.App

	cfg        *config.Config
	cert       *tls.Certificate
	newChannel security.NewChannelFunc
	manager    *transportmgr.Manager
	certStore  *certinfo.Store
	reporter   *metrics.Reporter
	gatherer   prometheus.Gatherer

	verifyPolicy securechannel.VerifyPolicy

	mu     sync.Mutex
	closed bool
}

// New 创建并启动端点
func New(ctx context.Context, opts ...Option) (*Endpoint, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	ep := &Endpoint{verifyPolicy: o.verifyPolicy}

	app, err := buildFxApp(o, ep)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	ep.app = app

	if err := app.Start(ctx); err != nil {
		log.Error("端点启动失败", "error", err)
		return nil, fmt.Errorf("start endpoint: %w", err)
	}

	log.Info("端点已启动", "version", Version, "metrics", ep.reporter != nil)
	return ep, nil
}

// Config 端点配置
func (ep *Endpoint) Config() *config.Config {
	return ep.cfg
}

// Certificate 本地证书
func (ep *Endpoint) Certificate() *tls.Certificate {
	return ep.cert
}

// Manager 传输管理器，协议引擎通过它订阅状态与消息
func (ep *Endpoint) Manager() *transportmgr.Manager {
	return ep.manager
}

// Gatherer 指标采集入口
func (ep *Endpoint) Gatherer() prometheus.Gatherer {
	return ep.gatherer
}

// Params 按配置为指定角色生成安全参数
func (ep *Endpoint) Params(role securechannel.Role) (securechannel.Params, error) {
	params, err := security.ParamsFromConfig(ep.cfg.Security, role, ep.cert)
	if err != nil {
		return securechannel.Params{}, err
	}
	params.VerifyPolicy = ep.verifyPolicy
	return params, nil
}

// Dial 在已连通的 ICE 链路上创建安全传输并开始握手
//
// 返回时传输已注册到管理器；握手结果通过管理器的 Connected / Disconnected
// 状态报告。
func (ep *Endpoint) Dial(ctx context.Context, link iceif.PeerLink, kind types.TransportKind, params securechannel.Params, componentID int) (*sipstransport.Transport, error) {
	if link == nil {
		return nil, ErrNilLink
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ep.mu.Lock()
	defer ep.mu.Unlock()
	if ep.closed {
		return nil, ErrEndpointClosed
	}

	tp, err := sipstransport.New(sipstransport.Options{
		Manager:     ep.manager,
		Kind:        kind,
		Params:      params,
		Link:        link,
		ComponentID: componentID,
		Config:      ep.cfg.Transport,
		NewChannel:  ep.newChannel,
		CertStore:   ep.certStore,
		Metrics:     ep.reporter,
	})
	if err != nil {
		log.Warn("创建安全传输失败", "kind", kind, "remote", link.RemoteAddr(), "error", err)
		return nil, err
	}
	return tp, nil
}

// Transports 当前注册的传输数量
func (ep *Endpoint) Transports() int {
	return ep.manager.Len()
}

// Close 关闭端点并销毁所有传输，重复调用无效果
func (ep *Endpoint) Close() error {
	ep.mu.Lock()
	if ep.closed {
		ep.mu.Unlock()
		return nil
	}
	ep.closed = true
	ep.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := ep.app.Stop(ctx); err != nil {
		return fmt.Errorf("stop endpoint: %w", err)
	}
	log.Info("端点已关闭")
	return nil
}
