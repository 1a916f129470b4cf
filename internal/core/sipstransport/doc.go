// Package sipstransport 把已协商的 ICE 链路包装为 SIP 协议引擎可用的安全传输
//
// Transport 持有一个安全通道（TLS 或 DTLS）并在传输管理器中注册一次。
// 安全通道的回调可能来自任意 goroutine，它们只做入队并调度 handleEvents；
// handleEvents 在单个事件调度器上执行，保证协议引擎不会同时收到两个回调。
//
// # 事件顺序
//
// 每次 handleEvents 依次：
//  1. 投递非终态的状态事件，Disconnected 暂存
//  2. 同步发送模式下清空出站队列
//  3. 按到达顺序把入站数据交给管理器切分，未消费的尾部并入下一块
//  4. 最后投递暂存的 Disconnected
//
// 因此协议引擎不会在断开之前到达的消息被消费之前收到 Disconnected。
//
// # 发送
//
// 已连接且没有积压时 Send 直接在调用方 goroutine 写入安全通道（快路径）；
// 否则入队并返回 sip.ErrPending。每次 Send 的完成回调恰好触发一次。
//
// # 销毁
//
// Close 停止轮询、关闭调度器、以 ErrNotConnected 同步完成所有排队的发送、
// 关闭安全通道，最后在协议引擎尚未开始销毁时通过管理器注销传输。
package sipstransport
