// Package certinfo 把 DER 证书解析为协议引擎可用的结构化信息
//
// 提供三层：
//   - Parse / FromX509：无状态解析，SAN 条目按原始顺序分类为
//     IP / URI / Email / DNS / Unknown
//   - Store：进程级共享 LRU，以 颁发者+序列号 为键缓存解析结果
//   - Cache：单个传输的本地/对端证书缓存，颁发者+序列号 未变化时
//     返回同一个指针，不重复解析
//
// 返回的 *types.CertificateInfo 是只读快照，调用方不得修改。
package certinfo
