// Package sipframe 在 SIP 字节流中定位消息边界
//
// 只解析起始行之后的头部以找到 Content-Length（含紧凑形式 "l"），
// 不解释消息语义。RFC 5626 的 CRLF 保活（"\r\n\r\n" ping 与 "\r\n" pong）
// 单独报告，不作为消息。
package sipframe
