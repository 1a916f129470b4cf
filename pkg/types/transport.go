package types

// ============================================================================
//                              TransportKind - 传输类型
// ============================================================================

// TransportKind 传输类型
type TransportKind int

const (
	// KindUnknown 未知类型
	KindUnknown TransportKind = iota
	// KindReliable 可靠流传输（TLS over ICE-TCP 或流式 ICE 组件）
	KindReliable
	// KindUnreliable 不可靠数据报传输（DTLS over ICE-UDP）
	KindUnreliable
)

// String 返回传输类型名称，与 SIP Via 头中的传输名保持一致
func (k TransportKind) String() string {
	switch k {
	case KindReliable:
		return "TLS"
	case KindUnreliable:
		return "DTLS"
	default:
		return "unknown"
	}
}

// IsReliable 是否为可靠传输
func (k TransportKind) IsReliable() bool {
	return k == KindReliable
}

// IsValid 是否为已知类型
func (k TransportKind) IsValid() bool {
	return k == KindReliable || k == KindUnreliable
}

// ============================================================================
//                              TransportState - 传输状态
// ============================================================================

// TransportState 投递给协议引擎的传输状态
type TransportState int

const (
	// StateConnecting 正在建立（握手中）
	StateConnecting TransportState = iota
	// StateConnected 已建立，可以收发
	StateConnected
	// StateDisconnected 已断开，终态
	StateDisconnected
)

// String 返回状态名称
func (s TransportState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// IsTerminal 是否为终态
func (s TransportState) IsTerminal() bool {
	return s == StateDisconnected
}
