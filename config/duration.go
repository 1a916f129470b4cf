package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Duration 配置文件中的时长
//
// JSON 中写作字符串（"100ms"、"10s"），也接受表示纳秒的整数。
// 序列化时总是输出字符串，例如 TransportConfig.PollTimeout 输出为
// "100ms"。
type Duration time.Duration

// UnmarshalJSON 实现 json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("config: invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}

	ns, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("config: duration must be a string like \"100ms\" or integer nanoseconds, got %s", data)
	}
	*d = Duration(ns)
	return nil
}

// MarshalJSON 实现 json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Duration 转换为 time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
