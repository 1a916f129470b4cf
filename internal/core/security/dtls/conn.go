package dtls

import (
	"context"
	"crypto/x509"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/pion/dtls/v3"

	"github.com/dep2p/go-icesip/internal/core/security/certs"
	"github.com/dep2p/go-icesip/internal/core/socket"
	"github.com/dep2p/go-icesip/internal/util/logger"
	iceif "github.com/dep2p/go-icesip/pkg/interfaces/ice"
	"github.com/dep2p/go-icesip/pkg/interfaces/securechannel"
)

var log = logger.Logger("sips.dtls")

const (
	// maxRecordPayload 单个 DTLS 记录的最大明文长度
	maxRecordPayload = 16384

	// receiveMTU 读循环缓冲区大小
	receiveMTU = 8192

	defaultHandshakeTimeout = 10 * time.Second
)

var _ securechannel.Channel = (*Channel)(nil)

// Channel 基于 pion/dtls 的安全通道
type Channel struct {
	params securechannel.Params
	cb     securechannel.Callbacks

	sock *socket.PacketConn
	conn *dtls.Conn

	mu    sync.Mutex
	state securechannel.State
	suite string

	established chan struct{}
	closed      chan struct{}
	startOnce   sync.Once
	closeOnce   sync.Once

	// wmu 写入持读锁，关闭持写锁：Shutdown 返回后不会再有写入到达连接
	wmu sync.RWMutex
}

// New 在链路上创建 DTLS 通道，调用 Start 后开始握手
func New(link iceif.PeerLink, params securechannel.Params, cb securechannel.Callbacks) (*Channel, error) {
	if link == nil || cb == nil {
		return nil, errors.New("dtls: link and callbacks are required")
	}

	c := &Channel{
		params:      params,
		cb:          cb,
		state:       securechannel.StateHandshaking,
		established: make(chan struct{}),
		closed:      make(chan struct{}),
	}

	cfg, err := buildConfig(params, c.verifyPeer)
	if err != nil {
		return nil, err
	}

	c.sock = socket.NewPacketConn(link)
	if params.Role == securechannel.RoleClient {
		c.conn, err = dtls.Client(c.sock, link.RemoteAddr(), cfg)
	} else {
		c.conn, err = dtls.Server(c.sock, link.RemoteAddr(), cfg)
	}
	if err != nil {
		_ = c.sock.Close()
		return nil, err
	}
	return c, nil
}

// Start 在后台开始握手
func (c *Channel) Start() {
	c.startOnce.Do(func() {
		go c.run()
	})
}

func (c *Channel) run() {
	if !c.handshake() {
		c.fail()
		return
	}
	c.readLoop()
}

func (c *Channel) handshake() bool {
	timeout := c.params.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	go func() {
		select {
		case <-c.closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := c.conn.HandshakeContext(ctx); err != nil {
		log.Debug("DTLS 握手失败", "role", c.params.Role, "remote", c.sock.RemoteAddr(), "err", err)
		return false
	}

	state, ok := c.conn.ConnectionState()

	var local []byte
	if len(c.params.Certificate.Certificate) > 0 {
		local = c.params.Certificate.Certificate[0]
	}
	var remote [][]byte
	if ok {
		remote = state.PeerCertificates
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == securechannel.StateShutdown {
		return false
	}
	if ok {
		c.suite = dtls.CipherSuiteName(state.CipherSuiteID)
	}
	c.cb.OnCertificatesUpdate(local, remote)
	c.state = securechannel.StateEstablished
	close(c.established)
	c.cb.OnStateChange(securechannel.StateEstablished)

	log.Debug("DTLS 握手完成", "role", c.params.Role, "remote", c.sock.RemoteAddr(), "suite", c.suite)
	return true
}

// readLoop 推送解密后的数据报
func (c *Channel) readLoop() {
	buf := make([]byte, receiveMTU)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			var tempErr *dtls.TemporaryError
			if errors.As(err, &tempErr) {
				log.Debug("忽略 DTLS 临时错误", "err", err)
				continue
			}
			select {
			case <-c.closed:
			default:
				if errors.Is(err, io.EOF) {
					log.Debug("对端关闭 DTLS 连接", "remote", c.sock.RemoteAddr())
				} else {
					log.Debug("DTLS 读取失败", "remote", c.sock.RemoteAddr(), "err", err)
				}
				c.fail()
			}
			return
		}
		if n == 0 {
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		c.cb.OnRxData(data)
	}
}

// verifyPeer 把证书链交给回调做信任决策
func (c *Channel) verifyPeer(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) == 0 && c.params.Role == securechannel.RoleServer {
		return nil
	}
	session := certs.BuildSession(rawCerts, c.params.RootCAs, c.params.ServerName)
	return c.cb.VerifyCertificate(session)
}

// usable 检查通道能否写入；关闭优先于已建立
func (c *Channel) usable() error {
	select {
	case <-c.closed:
		return ErrShutdown
	default:
	}
	select {
	case <-c.established:
		return nil
	default:
		return ErrNotEstablished
	}
}

// Write 加密并发送一个数据报
func (c *Channel) Write(p []byte) (int, error) {
	c.wmu.RLock()
	defer c.wmu.RUnlock()
	if err := c.usable(); err != nil {
		return 0, err
	}
	if len(p) > maxRecordPayload {
		return 0, ErrPayloadTooLarge
	}
	return c.conn.Write(p)
}

// Read 不支持，入站数据通过 OnRxData 推送
func (c *Channel) Read([]byte) (int, error) {
	return 0, ErrPushOnly
}

// WaitForData 等待握手完成或关闭；数据本身通过回调推送
func (c *Channel) WaitForData(timeout time.Duration) (bool, error) {
	select {
	case <-c.closed:
		return false, ErrShutdown
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-c.closed:
		return false, ErrShutdown
	case <-timer.C:
		return false, nil
	}
}

// Shutdown 关闭通道并报告 StateShutdown，可重复调用
func (c *Channel) Shutdown() error {
	c.fail()
	return nil
}

func (c *Channel) fail() {
	c.closeOnce.Do(func() {
		c.wmu.Lock()
		c.mu.Lock()
		c.state = securechannel.StateShutdown
		close(c.closed)
		c.wmu.Unlock()
		c.cb.OnStateChange(securechannel.StateShutdown)
		c.mu.Unlock()

		// 握手完成后 Close 先发送 close_notify，再关闭下层 PacketConn；
		// 同步关闭保证 Shutdown 返回前告警已写入链路
		if err := c.conn.Close(); err != nil {
			log.Debug("关闭 DTLS 连接", "err", err)
		}
		_ = c.sock.Close()
	})
}

// MaxPayloadSize 单次写入上限
func (c *Channel) MaxPayloadSize() int {
	return maxRecordPayload
}

// CipherSuite 协商的加密套件
func (c *Channel) CipherSuite() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suite, c.suite != ""
}

// PushesData 主动推送入站数据
func (c *Channel) PushesData() bool {
	return true
}

// State 当前状态
func (c *Channel) State() securechannel.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
