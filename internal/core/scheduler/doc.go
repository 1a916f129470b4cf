// Package scheduler 实现单消费者任务调度器
//
// 任意多个 goroutine 都可以通过 Run 投递任务，所有任务都在同一个
// 工作 goroutine 上按投递顺序串行执行，保证协议引擎在任意时刻最多
// 只观察到一个来自同一传输的回调。
//
// Run 从不阻塞：任务先进入互斥锁保护的队列，再通过容量为 1 的
// 唤醒通道通知工作 goroutine。
//
// # 关闭
//
// Close 之后 Run 返回 ErrClosed，尚未执行的任务被丢弃。Close 会等待
// 正在执行的任务结束；如果 Close 本身就是在任务内部被调用的（协议引擎
// 在回调中销毁传输），则不等待，以免自我等待死锁。
package scheduler
