// Package socket 把 ICE 数据报链路适配为 TLS/DTLS 引擎需要的套接字
//
//   - StreamConn 实现 net.Conn，供 crypto/tls 使用：数据报被拼成字节流，
//     调用方缓冲区不足时剩余字节留到下一次 Read
//   - PacketConn 实现 net.PacketConn，供 pion/dtls 使用：保持数据报边界，
//     ReadFrom 总是返回链路的远端地址
//
// 两者都通过后台 goroutine 把链路上的数据包搬进 packetio.Buffer，
// 从而支持读超时。ice.Conn 本身忽略读超时，而 TLS/DTLS 引擎依赖它。
//
// 关闭套接字不会关闭底层链路，链路由创建者负责关闭。
package socket
