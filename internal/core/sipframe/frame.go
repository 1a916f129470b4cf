package sipframe

import (
	"bytes"
	"errors"
	"strconv"
)

var (
	// ErrMalformed 头部无法解析（Content-Length 非法等）
	ErrMalformed = errors.New("sipframe: malformed message")

	// ErrHeaderTooLarge 头部超过上限仍未结束
	ErrHeaderTooLarge = errors.New("sipframe: header too large")
)

const (
	// MaxHeaderBytes 头部最大长度
	MaxHeaderBytes = 16 * 1024

	// MaxBodyBytes Content-Length 上限，超过视为畸形
	MaxBodyBytes = 16 * 1024 * 1024
)

// Kind 帧类型
type Kind int

const (
	// KindIncomplete 数据不足以构成完整帧
	KindIncomplete Kind = iota
	// KindMessage 完整的 SIP 消息
	KindMessage
	// KindKeepAlive CRLF 保活
	KindKeepAlive
)

// String 返回帧类型名称
func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindKeepAlive:
		return "keepalive"
	default:
		return "incomplete"
	}
}

// Frame 一次 Consume 的结果
type Frame struct {
	// Kind 帧类型
	Kind Kind

	// Len 帧占用的字节数；KindIncomplete 时为 0
	Len int

	// HeaderLen 头部长度（含结尾空行），仅 KindMessage 有效
	HeaderLen int

	// ContentLength 消息体长度，仅 KindMessage 有效
	ContentLength int
}

// Message 返回帧对应的字节
func (f Frame) Message(data []byte) []byte {
	return data[:f.Len]
}

// Body 返回消息体
func (f Frame) Body(data []byte) []byte {
	if f.Kind != KindMessage {
		return nil
	}
	return data[f.HeaderLen:f.Len]
}

var (
	crlf     = []byte("\r\n")
	crlfcrlf = []byte("\r\n\r\n")
)

// Consume 识别 data 开头的第一个帧
//
// 数据不足时返回 KindIncomplete；头部无法解析时返回 ErrMalformed，
// 此时调用方无法在流中重新同步。
func Consume(data []byte) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, nil
	}

	if data[0] == '\r' || data[0] == '\n' {
		return consumeKeepAlive(data)
	}

	end := bytes.Index(data, crlfcrlf)
	if end < 0 {
		if len(data) > MaxHeaderBytes {
			return Frame{}, ErrHeaderTooLarge
		}
		return Frame{}, nil
	}
	headerLen := end + len(crlfcrlf)

	contentLength, err := parseContentLength(data[:end])
	if err != nil {
		return Frame{}, err
	}

	total := headerLen + contentLength
	if len(data) < total {
		return Frame{}, nil
	}
	return Frame{
		Kind:          KindMessage,
		Len:           total,
		HeaderLen:     headerLen,
		ContentLength: contentLength,
	}, nil
}

// consumeKeepAlive 消费开头连续的 CRLF
func consumeKeepAlive(data []byte) (Frame, error) {
	n := 0
	for n < len(data) {
		switch {
		case bytes.HasPrefix(data[n:], crlf):
			n += len(crlf)
		case data[n] == '\n':
			// 宽松处理裸 LF
			n++
		case data[n] == '\r' && n+1 == len(data):
			// 等待后续 LF
			if n == 0 {
				return Frame{}, nil
			}
			return Frame{Kind: KindKeepAlive, Len: n}, nil
		default:
			if n == 0 {
				return Frame{}, ErrMalformed
			}
			return Frame{Kind: KindKeepAlive, Len: n}, nil
		}
	}
	return Frame{Kind: KindKeepAlive, Len: n}, nil
}

// parseContentLength 在头部中查找 Content-Length，缺失时视为 0
//
// 取值超过 MaxBodyBytes 时返回 ErrMalformed，帧长度因此不会溢出。
func parseContentLength(header []byte) (int, error) {
	lines := bytes.Split(header, crlf)
	// 第一行是起始行
	for _, line := range lines[1:] {
		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			continue
		}
		name := bytes.TrimSpace(line[:colon])
		if !bytes.EqualFold(name, []byte("Content-Length")) && !bytes.EqualFold(name, []byte("l")) {
			continue
		}
		value := string(bytes.TrimSpace(line[colon+1:]))
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > MaxBodyBytes {
			return 0, ErrMalformed
		}
		return n, nil
	}
	return 0, nil
}

// Split 从 data 中切出所有完整帧，返回已消费的字节数
//
// 对每个帧调用 fn；fn 返回非 nil 错误时停止。
func Split(data []byte, fn func(frame Frame, b []byte) error) (int, error) {
	consumed := 0
	for consumed < len(data) {
		frame, err := Consume(data[consumed:])
		if err != nil {
			return consumed, err
		}
		if frame.Kind == KindIncomplete {
			break
		}
		b := data[consumed : consumed+frame.Len]
		if err := fn(frame, b); err != nil {
			return consumed + frame.Len, err
		}
		consumed += frame.Len
	}
	return consumed, nil
}
