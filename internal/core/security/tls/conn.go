package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/dep2p/go-icesip/internal/core/security/certs"
	"github.com/dep2p/go-icesip/internal/core/socket"
	"github.com/dep2p/go-icesip/internal/util/logger"
	iceif "github.com/dep2p/go-icesip/pkg/interfaces/ice"
	"github.com/dep2p/go-icesip/pkg/interfaces/securechannel"
)

var log = logger.Logger("sips.tls")

// maxRecordPayload TLS 单条记录的最大明文长度
const maxRecordPayload = 16384

// defaultHandshakeTimeout 未配置时的握手超时
const defaultHandshakeTimeout = 10 * time.Second

var _ securechannel.Channel = (*Channel)(nil)

// Channel 基于 crypto/tls 的安全通道
type Channel struct {
	params securechannel.Params
	cb     securechannel.Callbacks

	sock *socket.StreamConn
	conn *tls.Conn

	// mu 串行化状态迁移与对应回调
	mu    sync.Mutex
	state securechannel.State
	suite string

	established chan struct{}
	closed      chan struct{}
	startOnce   sync.Once
	closeOnce   sync.Once

	// wmu 写入持读锁，关闭持写锁：Shutdown 返回后不会再有写入到达连接
	wmu sync.RWMutex

	readMu  sync.Mutex
	pending []byte
	rbuf    []byte
}

// New 在链路上创建 TLS 通道，调用 Start 后开始握手
func New(link iceif.PeerLink, params securechannel.Params, cb securechannel.Callbacks) (*Channel, error) {
	if link == nil || cb == nil {
		return nil, errors.New("tls: link and callbacks are required")
	}

	c := &Channel{
		params:      params,
		cb:          cb,
		state:       securechannel.StateHandshaking,
		established: make(chan struct{}),
		closed:      make(chan struct{}),
		rbuf:        make([]byte, maxRecordPayload),
	}

	cfg, err := NewConfigBuilder(params).WithVerifier(c.verifyPeer).Build()
	if err != nil {
		return nil, err
	}

	c.sock = socket.NewStreamConn(link)
	if params.Role == securechannel.RoleClient {
		c.conn = tls.Client(c.sock, cfg)
	} else {
		c.conn = tls.Server(c.sock, cfg)
	}
	return c, nil
}

// Start 在后台开始握手
func (c *Channel) Start() {
	c.startOnce.Do(func() {
		go c.handshake()
	})
}

func (c *Channel) handshake() {
	timeout := c.params.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Shutdown 时中止握手
	go func() {
		select {
		case <-c.closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := c.conn.HandshakeContext(ctx); err != nil {
		log.Debug("TLS 握手失败", "role", c.params.Role, "remote", c.sock.RemoteAddr(), "err", err)
		c.fail()
		return
	}

	state := c.conn.ConnectionState()

	var local []byte
	if len(c.params.Certificate.Certificate) > 0 {
		local = c.params.Certificate.Certificate[0]
	}
	remote := make([][]byte, 0, len(state.PeerCertificates))
	for _, cert := range state.PeerCertificates {
		remote = append(remote, cert.Raw)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == securechannel.StateShutdown {
		return
	}
	c.suite = tls.CipherSuiteName(state.CipherSuite)
	c.cb.OnCertificatesUpdate(local, remote)
	c.state = securechannel.StateEstablished
	close(c.established)
	c.cb.OnStateChange(securechannel.StateEstablished)

	log.Debug("TLS 握手完成",
		"role", c.params.Role,
		"remote", c.sock.RemoteAddr(),
		"suite", c.suite,
		"version", tls.VersionName(state.Version))
}

// verifyPeer 把证书链交给回调做信任决策
func (c *Channel) verifyPeer(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	// 服务端未强制且客户端未出示证书
	if len(rawCerts) == 0 && c.params.Role == securechannel.RoleServer {
		return nil
	}
	session := certs.BuildSession(rawCerts, c.params.RootCAs, c.params.ServerName)
	return c.cb.VerifyCertificate(session)
}

// usable 检查通道能否读写；关闭优先于已建立
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

// Write 加密并发送
func (c *Channel) Write(p []byte) (int, error) {
	c.wmu.RLock()
	defer c.wmu.RUnlock()
	if err := c.usable(); err != nil {
		return 0, err
	}
	return c.conn.Write(p)
}

// WaitForData 等待可读数据，最多等待 timeout
//
// 握手未完成时等待握手结果；连接被对端关闭或出现致命错误时关闭通道
// 并返回错误。
func (c *Channel) WaitForData(timeout time.Duration) (bool, error) {
	err := c.usable()
	if err == ErrNotEstablished {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-c.closed:
		case <-c.established:
		case <-timer.C:
			return false, nil
		}
		err = c.usable()
	}
	if err != nil {
		return false, err
	}

	c.readMu.Lock()
	defer c.readMu.Unlock()

	if len(c.pending) > 0 {
		return true, nil
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return false, err
	}
	n, err := c.conn.Read(c.rbuf)
	_ = c.conn.SetReadDeadline(time.Time{})

	if n > 0 {
		c.pending = append(c.pending, c.rbuf[:n]...)
		return true, nil
	}
	if err == nil {
		return false, nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false, nil
	}

	if errors.Is(err, io.EOF) {
		log.Debug("对端关闭 TLS 连接", "remote", c.sock.RemoteAddr())
	} else {
		log.Debug("TLS 读取失败", "remote", c.sock.RemoteAddr(), "err", err)
	}
	c.fail()
	return false, err
}

// Read 读取已解密的数据
//
// 先返回 WaitForData 缓存的数据，否则阻塞读取。
func (c *Channel) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if len(c.pending) > 0 {
		n := copy(p, c.pending)
		c.pending = c.pending[n:]
		if len(c.pending) == 0 {
			c.pending = nil
		}
		return n, nil
	}

	if err := c.usable(); err != nil {
		return 0, err
	}
	return c.conn.Read(p)
}

// Shutdown 关闭通道并报告 StateShutdown，可重复调用
func (c *Channel) Shutdown() error {
	c.fail()
	return nil
}

// fail 进入终态：只有第一次调用会关闭连接并触发回调
func (c *Channel) fail() {
	c.closeOnce.Do(func() {
		c.wmu.Lock()
		c.mu.Lock()
		c.state = securechannel.StateShutdown
		close(c.closed)
		c.wmu.Unlock()
		c.cb.OnStateChange(securechannel.StateShutdown)
		c.mu.Unlock()

		// 握手完成后 Close 会发送 close_notify
		if err := c.conn.Close(); err != nil {
			log.Debug("关闭 TLS 连接", "err", err)
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

// PushesData 不主动推送
func (c *Channel) PushesData() bool {
	return false
}

// State 当前状态
func (c *Channel) State() securechannel.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
