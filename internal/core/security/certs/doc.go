// Package certs 提供安全通道共用的证书工具
//
//   - GenerateSelfSigned / LoadCertificate：本地证书
//   - BuildSession：把对端证书链整理成验证回调使用的会话视图
//   - PinnedPolicy / SANPolicy / ChainOnlyPolicy：常用验证策略
package certs
