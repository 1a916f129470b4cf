package sipstransport

import (
	"github.com/dep2p/go-icesip/internal/core/security"
	"github.com/dep2p/go-icesip/pkg/interfaces/securechannel"
	"github.com/dep2p/go-icesip/pkg/types"
)

// ============================================================================
//                              安全通道回调
// ============================================================================

// callbacks 安全通道回调，可能在任意 goroutine 上触发，只做入队与调度
type callbacks struct {
	t *Transport
}

var _ securechannel.Callbacks = callbacks{}

// OnStateChange 握手完成或通道关闭
func (c callbacks) OnStateChange(state securechannel.State) {
	t := c.t
	switch state {
	case securechannel.StateEstablished:
		t.pushState(types.StateConnected)
	case securechannel.StateShutdown:
		t.syncTx.Store(false)
		t.pushState(types.StateDisconnected)
	default:
		return
	}
	t.schedule()
}

// OnRxData 收到解密后的数据
func (c callbacks) OnRxData(data []byte) {
	if len(data) == 0 {
		return
	}
	t := c.t
	t.counter.LogRecv(len(data))
	t.rxMu.Lock()
	t.rxQueue = append(t.rxQueue, data)
	t.rxMu.Unlock()
	t.schedule()
}

// OnCertificatesUpdate 刷新证书信息缓存
//
// 同步完成，保证随后的 Connected 事件能看到新证书。
func (c callbacks) OnCertificatesUpdate(local []byte, remote [][]byte) {
	if err := c.t.certs.Update(local, remote); err != nil {
		log.Debug("证书信息不完整", "transport", c.t.description, "err", err)
	}
}

// VerifyCertificate 握手中的信任决策
func (c callbacks) VerifyCertificate(session securechannel.Session) error {
	return c.t.verifyCertificate(session)
}

func (t *Transport) pushState(state types.TransportState) {
	t.stMu.Lock()
	t.stQueue = append(t.stQueue, stateEvent{state: state})
	t.stMu.Unlock()
}

// ============================================================================
//                              事件处理
// ============================================================================

// handleEvents 在调度器上执行，见包文档中的事件顺序
//
// 协议引擎在处理过程中 panic 时视为致命错误：关闭安全通道，并照常投递
// Disconnected。
func (t *Transport) handleEvents() {
	if t.disconnected.Load() || t.closing.Load() {
		return
	}

	disconnect := false
	defer func() {
		if r := recover(); r != nil {
			log.Error("事件处理 panic，断开传输", "transport", t.description, "panic", r)
			if !disconnect {
				disconnect = true
				t.shutdownChannel()
			}
		}

		// 4. 终态
		if disconnect && !t.closing.Load() {
			t.syncTx.Store(false)
			t.disconnected.Store(true)
			log.Info("安全传输已断开", "transport", t.description)
			t.mgr.StateChanged(t.handle, types.StateDisconnected, t.getInfo(false))
			t.failQueued(ErrNotConnected)
		}
	}()

	// 1. 状态事件，Disconnected 暂存到最后
	t.stMu.Lock()
	states := t.stQueue
	t.stQueue = nil
	t.stMu.Unlock()

	for _, ev := range states {
		if ev.state == types.StateDisconnected {
			disconnect = true
			continue
		}
		if disconnect || t.closing.Load() {
			continue
		}
		if ev.state == types.StateConnected {
			t.syncTx.Store(true)
			log.Info("安全传输已连接", "transport", t.description)
		}
		t.mgr.StateChanged(t.handle, ev.state, t.getInfo(ev.state == types.StateConnected))
	}

	// 2. 出站队列
	if t.syncTx.Load() {
		t.drainOutgoing()
	}

	// 3. 入站数据
	if t.drainIncoming() && !disconnect {
		disconnect = true
		t.shutdownChannel()
	}
}

// shutdownChannel 停止同步发送并关闭安全通道
func (t *Transport) shutdownChannel() {
	t.syncTx.Store(false)
	if err := t.channel.Shutdown(); err != nil {
		log.Debug("关闭安全通道", "transport", t.description, "err", err)
	}
}

// drainIncoming 按到达顺序投递入站数据
//
// 管理器未消费完的尾部并入下一块；没有下一块时留在队首等待后续数据。
// 缓冲超过 MaxReassemblyBytes 时丢弃全部入站数据并返回 true。
func (t *Transport) drainIncoming() (overflow bool) {
	src := t.handle.RemoteAddr
	limit := t.cfg.MaxReassemblyBytes

	for !t.closing.Load() {
		t.rxMu.Lock()
		if len(t.rxQueue) == 0 {
			t.rxMu.Unlock()
			return false
		}
		chunk := t.rxQueue[0]
		t.rxQueue[0] = nil
		t.rxQueue = t.rxQueue[1:]
		t.rxMu.Unlock()

		n := t.mgr.ReceivePacket(t.handle, chunk, src)
		if n >= len(chunk) {
			continue
		}
		if n < 0 {
			n = 0
		}
		rest := chunk[n:]

		t.rxMu.Lock()
		if len(t.rxQueue) > 0 {
			next := t.rxQueue[0]
			merged := make([]byte, 0, len(rest)+len(next))
			merged = append(merged, rest...)
			merged = append(merged, next...)
			if len(merged) > limit {
				t.rxQueue = nil
				t.rxMu.Unlock()
				t.reassemblyOverflow(len(merged))
				return true
			}
			t.rxQueue[0] = merged
			t.rxMu.Unlock()
			continue
		}

		if len(rest) > limit {
			t.rxMu.Unlock()
			t.reassemblyOverflow(len(rest))
			return true
		}
		t.rxQueue = append(t.rxQueue, append([]byte(nil), rest...))
		t.rxMu.Unlock()
		return false
	}
	return false
}

func (t *Transport) reassemblyOverflow(size int) {
	t.counter.LogOverflow()
	log.Warn("入站重组缓冲溢出，断开传输",
		"transport", t.description,
		"buffered", size,
		"limit", t.cfg.MaxReassemblyBytes,
		"err", ErrReassemblyOverflow)
}

// ============================================================================
//                              轮询
// ============================================================================

// pollLoop 为不主动推送数据的安全通道轮询可读数据
func (t *Transport) pollLoop() {
	defer close(t.pollDone)

	timeout := t.cfg.PollTimeout.Duration()
	buf := make([]byte, t.cfg.ReadChunkSize)

	for {
		select {
		case <-t.stop:
			return
		default:
		}

		ready, err := t.channel.WaitForData(timeout)
		if err != nil {
			log.Debug("轮询结束", "transport", t.description, "err", err)
			t.stopChannel()
			return
		}
		if !ready {
			continue
		}

		n, err := t.channel.Read(buf)
		if n > 0 {
			callbacks{t}.OnRxData(append([]byte(nil), buf[:n]...))
		}
		if err != nil && !security.IsTransient(err) {
			log.Debug("轮询读取失败", "transport", t.description, "err", err)
			t.stopChannel()
			return
		}
	}
}

// stopChannel 轮询异常退出时关闭安全通道，销毁过程中不重复关闭
func (t *Transport) stopChannel() {
	select {
	case <-t.stop:
		return
	default:
	}
	t.shutdownChannel()
}
