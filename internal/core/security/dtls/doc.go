// Package dtls 基于 pion/dtls 实现不可靠传输的安全通道
//
// 通道运行在 socket.PacketConn 之上，握手成功后启动读循环，把每个
// 解密后的数据报通过 OnRxData 推送给调用方（PushesData 返回 true）。
// 单次写入对应一个 DTLS 记录，超过 MaxPayloadSize 的写入被拒绝。
package dtls
