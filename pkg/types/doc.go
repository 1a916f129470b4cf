// Package types 定义 icesip 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 icesip 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - transport.go   - TransportKind, TransportState
//   - address.go     - AddrFamily 地址族判断
//   - certificate.go - CertificateInfo, SANEntry
//   - session.go     - SessionInfo, VerifyResult
//
// # 不可变约定
//
// CertificateInfo 与 SessionInfo 一经交出即视为只读快照，
// 生产者在更新时总是创建新值，而不是修改已交出的值。
package types
