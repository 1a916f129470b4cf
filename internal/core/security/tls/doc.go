// Package tls 基于 crypto/tls 实现可靠传输的安全通道
//
// 通道运行在 socket.StreamConn 之上。握手在后台 goroutine 中完成，
// 结果通过 securechannel.Callbacks 报告；证书信任决策由回调
// VerifyCertificate 做出，crypto/tls 自身的验证被关闭。
//
// 该通道不主动推送入站数据（PushesData 返回 false），调用方需要
// 以 WaitForData + Read 的方式轮询。
package tls
