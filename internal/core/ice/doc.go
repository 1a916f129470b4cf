// Package ice 基于 pion/ice 提供协商完成的 ICE 链路
//
// Agent 负责候选收集、交换描述与连通性检查，Connect 成功后返回的
// Link 实现 pkg/interfaces/ice.PeerLink，作为安全传输适配器的底层
// 数据报链路。
//
// 使用示例：
//
//	a, _ := ice.NewAgent(cfg.ICE, ice.RoleControlling)
//	local, _ := a.Gather(ctx)
//	// 通过信令交换 local / remote 描述
//	link, _ := a.Connect(ctx, remote)
//	defer link.Close()
//
// 测试辅助：NewPipeLinks 返回一对内存数据报链路。
package ice
