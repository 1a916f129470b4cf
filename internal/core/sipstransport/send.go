package sipstransport

import (
	"fmt"
	"net"
	"time"

	"github.com/dep2p/go-icesip/internal/core/security"
	"github.com/dep2p/go-icesip/pkg/interfaces/sip"
	"github.com/dep2p/go-icesip/pkg/types"
)

// transientRetryDelay 暂时性写入错误后重新清空出站队列的延迟
const transientRetryDelay = 20 * time.Millisecond

// outgoing 排队的出站消息
type outgoing struct {
	tx    *sip.TxBuffer
	token any
	cb    sip.SendCallback
}

// Send 发送一条 SIP 消息
//
// 同步模式且没有积压时直接写入安全通道并返回写入字节数；否则入队并返回
// sip.ErrPending。cb 在两种情况下都恰好触发一次，参数错误时也不例外。
func (t *Transport) Send(tx *sip.TxBuffer, dest net.Addr, token any, cb sip.SendCallback) (int, error) {
	if cb == nil {
		cb = func(any, int, error) {}
	}

	if err := t.checkSend(tx, dest); err != nil {
		t.counter.LogFailed()
		cb(token, 0, err)
		return 0, err
	}

	msg := &outgoing{tx: tx, token: token, cb: cb}
	if !t.track(tx) {
		err := fmt.Errorf("%w: message %q already pending", ErrInvalidArgument, tx.Info)
		t.counter.LogFailed()
		cb(token, 0, err)
		return 0, err
	}

	if n, done, err := t.sendFast(msg); done {
		return n, err
	}
	return t.enqueue(msg)
}

// checkSend 校验参数与连接状态
func (t *Transport) checkSend(tx *sip.TxBuffer, dest net.Addr) error {
	if tx == nil || len(tx.Data) == 0 {
		return fmt.Errorf("%w: empty message", ErrInvalidArgument)
	}
	if types.AddrFamilyOf(dest) == types.FamilyUnknown {
		return fmt.Errorf("%w: unsupported destination address %v", ErrInvalidArgument, dest)
	}
	if !t.kind.IsReliable() && len(tx.Data) > t.channel.MaxPayloadSize() {
		return fmt.Errorf("%w: %d bytes exceeds datagram payload limit %d",
			ErrInvalidArgument, len(tx.Data), t.channel.MaxPayloadSize())
	}
	if t.closing.Load() || t.disconnected.Load() {
		return ErrNotConnected
	}
	return nil
}

// track 登记在途消息，同一 TxBuffer 已在途时返回 false
func (t *Transport) track(tx *sip.TxBuffer) bool {
	t.txMu.Lock()
	defer t.txMu.Unlock()
	if _, ok := t.inFlight[tx]; ok {
		return false
	}
	t.inFlight[tx] = struct{}{}
	return true
}

// complete 结束在途消息并触发回调
func (t *Transport) complete(msg *outgoing, n int, err error) {
	t.txMu.Lock()
	delete(t.inFlight, msg.tx)
	t.txMu.Unlock()

	if err != nil {
		t.counter.LogFailed()
	}
	msg.cb(msg.token, n, err)
}

// sendFast 快路径；done 为 false 时调用方应走排队路径
func (t *Transport) sendFast(msg *outgoing) (int, bool, error) {
	if !t.syncTx.Load() {
		return 0, false, nil
	}

	t.writeMu.Lock()
	t.txMu.Lock()
	backlog := len(t.txQueue) > 0
	t.txMu.Unlock()
	if backlog || !t.syncTx.Load() {
		t.writeMu.Unlock()
		return 0, false, nil
	}
	n, err := t.channel.Write(msg.tx.Data)
	t.writeMu.Unlock()

	switch {
	case err == nil:
		t.counter.LogSent(n, true)
		t.complete(msg, n, nil)
		return n, true, nil

	case security.IsTransient(err):
		log.Debug("快路径写入暂时失败，转入队列", "transport", t.description, "err", err)
		return 0, false, nil

	case security.IsFatal(err):
		t.fatalWrite(err)
		t.complete(msg, 0, err)
		return 0, true, err

	default:
		t.complete(msg, 0, err)
		return 0, true, err
	}
}

// fatalWrite 退出同步模式并关闭安全通道，Disconnected 随后经状态回调到达
func (t *Transport) fatalWrite(err error) {
	t.syncTx.Store(false)
	log.Warn("安全通道写入出现致命错误", "transport", t.description, "err", err)
	if serr := t.channel.Shutdown(); serr != nil {
		log.Debug("关闭安全通道", "transport", t.description, "err", serr)
	}
}

// enqueue 排队路径
func (t *Transport) enqueue(msg *outgoing) (int, error) {
	t.txMu.Lock()
	if t.txClosed {
		t.txMu.Unlock()
		t.complete(msg, 0, ErrNotConnected)
		return 0, ErrNotConnected
	}
	if limit := t.cfg.MaxQueuedSends; limit > 0 && len(t.txQueue) >= limit {
		t.txMu.Unlock()
		t.complete(msg, 0, ErrQueueFull)
		return 0, ErrQueueFull
	}
	t.txQueue = append(t.txQueue, msg)
	t.txMu.Unlock()

	t.counter.LogQueued()
	t.schedule()
	return 0, sip.ErrPending
}

// drainOutgoing 在调度器上按 FIFO 顺序发送排队的消息
func (t *Transport) drainOutgoing() {
	for t.syncTx.Load() && !t.closing.Load() {
		t.writeMu.Lock()
		t.txMu.Lock()
		if len(t.txQueue) == 0 {
			t.txMu.Unlock()
			t.writeMu.Unlock()
			return
		}
		msg := t.txQueue[0]
		t.txQueue[0] = nil
		t.txQueue = t.txQueue[1:]
		t.txMu.Unlock()

		n, err := t.channel.Write(msg.tx.Data)
		if err != nil && security.IsTransient(err) {
			// 放回队首，稍后重试
			t.txMu.Lock()
			t.txQueue = append([]*outgoing{msg}, t.txQueue...)
			t.txMu.Unlock()
			t.writeMu.Unlock()
			time.AfterFunc(transientRetryDelay, t.schedule)
			return
		}
		t.writeMu.Unlock()

		switch {
		case err == nil:
			t.counter.LogSent(n, false)
			t.complete(msg, n, nil)
		case security.IsFatal(err):
			t.fatalWrite(err)
			t.complete(msg, 0, err)
			return
		default:
			t.complete(msg, 0, err)
		}
	}
}

// failQueued 以 err 完成所有排队的消息，之后拒绝入队
func (t *Transport) failQueued(err error) {
	t.txMu.Lock()
	queue := t.txQueue
	t.txQueue = nil
	t.txClosed = true
	t.txMu.Unlock()

	if len(queue) > 0 {
		log.Debug("完成排队的发送", "transport", t.description, "count", len(queue), "err", err)
	}
	for _, msg := range queue {
		t.complete(msg, 0, err)
	}
}
