// Package icesip 在已协商的 ICE 链路上为 SIP 协议引擎提供 TLS/DTLS 安全传输
//
// # 快速开始
//
//	import "github.com/dep2p/go-icesip"
//
//	// 1. 创建端点（组装安全、传输管理与指标模块）
//	ep, err := icesip.New(ctx, icesip.WithConfig(cfg))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ep.Close()
//
//	// 2. 订阅协议引擎事件
//	ep.Manager().AddListener(transportmgr.ListenerFuncs{
//	    Message: func(h *sip.Handle, msg []byte, src net.Addr) { ... },
//	})
//
//	// 3. 在 ICE 链路上建立安全传输
//	params, _ := ep.Params(securechannel.RoleClient)
//	tp, err := ep.Dial(ctx, link, types.KindUnreliable, params, 1)
//
// # 结构
//
//	┌───────────────────────────────────────────────┐
//	│  SIP 协议引擎（transportmgr.Manager）           │
//	├───────────────────────────────────────────────┤
//	│  sipstransport.Transport  事件调度 / 收发路径   │
//	├───────────────────────────────────────────────┤
//	│  安全通道  crypto/tls（可靠）| pion/dtls（不可靠）│
//	├───────────────────────────────────────────────┤
//	│  ICE 链路  pion/ice                            │
//	└───────────────────────────────────────────────┘
//
// 传输层的事件顺序、发送语义与销毁流程见 internal/core/sipstransport。
package icesip
