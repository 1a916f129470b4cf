// Package metrics 统计安全传输的收发与排队情况
//
// 每个传输适配器持有一个 TransportCounter，记录：
//   - 入站/出站字节与速率（RateMeter，按秒分桶的 60 秒窗口）
//   - 快路径同步发送、排队发送、失败发送
//   - 入站数据块与重组溢出
//
// Reporter 汇总存活与已释放的计数器，Collector 把汇总结果按传输类型
// 导出为 Prometheus 指标。
//
// # 使用示例
//
//	reporter := metrics.NewReporter()
//	c := reporter.Track(types.KindReliable)
//	c.LogSent(512, true)
//	c.LogRecv(1024)
//	defer reporter.Release(c)
//
//	registry := prometheus.NewRegistry()
//	registry.MustRegister(metrics.NewCollector(reporter, "icesip"))
//
// 计数器方法对 nil 接收者安全，禁用指标时适配器持有 nil 计数器即可。
package metrics
