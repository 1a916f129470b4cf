package sipstransport

import "errors"

var (
	// ErrInvalidState ICE 链路尚未连通
	ErrInvalidState = errors.New("sips: peer link is not connected")

	// ErrRegistrationFailed 向传输管理器注册失败
	ErrRegistrationFailed = errors.New("sips: transport registration failed")

	// ErrInvalidArgument 参数无效（重复的在途消息、未知地址族、超长数据报等）
	ErrInvalidArgument = errors.New("sips: invalid argument")

	// ErrNotConnected 传输已断开或正在销毁
	ErrNotConnected = errors.New("sips: not connected")

	// ErrQueueFull 排队的发送超过上限
	ErrQueueFull = errors.New("sips: send queue full")

	// ErrReassemblyOverflow 入站重组缓冲超过上限
	ErrReassemblyOverflow = errors.New("sips: reassembly buffer overflow")

	// ErrUnsupportedCertificate 对端证书格式不受支持
	ErrUnsupportedCertificate = errors.New("sips: unsupported certificate type")
)
