// Package transportmgr 提供协议引擎一侧的传输管理器
//
// Manager 实现 sip.TransportManager：
//
//   - 按远端地址登记传输，供出站路由查找（替代进程级的全局地址表）
//   - 把传输状态变化转发给监听者
//   - 用 sipframe 从入站字节中切出完整 SIP 消息，返回已消费字节数
//   - Shutdown 注销传输并调用其 Destroy 钩子
//
// 监听者回调在传输的事件调度器上执行，可以在回调中再次调用 Send。
package transportmgr
