// Package security 实现 ICE 链路之上的安全通道
//
// 安全通道在 ICE 链路上完成 TLS/DTLS 握手与记录加解密，向上层（SIP 传输适配器）
// 报告状态变化、解密后的入站数据与证书更新，并在握手中把信任决策交给回调。
//
// # 子包
//
//   - tls:  基于 crypto/tls 的可靠通道，调用方轮询读取
//   - dtls: 基于 pion/dtls 的不可靠通道，入站数据报主动推送
//   - certs: 自签名证书生成、证书链构建与验证策略
//
// # 通道选择
//
// New 按传输类型选择实现：
//
//	types.KindReliable   -> tls.Channel
//	types.KindUnreliable -> dtls.Channel
//
// # 错误分类
//
// 发送路径需要区分"稍后重试"与"通道已不可用"两类错误，
// IsTransient / IsFatal 统一了 crypto/tls、pion/dtls 与 net 包的错误语义。
//
// # Fx 模块
//
//	app := fx.New(
//	    fx.Supply(config.NewConfig()),
//	    security.Module(),
//	)
package security
