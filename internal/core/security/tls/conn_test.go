package tls

import (
	"crypto/tls"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-icesip/internal/core/ice"
	"github.com/dep2p/go-icesip/internal/core/security/certs"
	"github.com/dep2p/go-icesip/internal/core/security/securitytest"
	"github.com/dep2p/go-icesip/pkg/interfaces/securechannel"
)

const waitTimeout = 5 * time.Second

type pair struct {
	client, server       *Channel
	clientRec, serverRec *securitytest.Recorder
	clientLink           *ice.PipeLink
	serverLink           *ice.PipeLink
}

func newParams(t *testing.T, role securechannel.Role, cn string) securechannel.Params {
	t.Helper()
	cert, err := certs.GenerateSelfSigned(certs.Options{CommonName: cn})
	require.NoError(t, err)
	return securechannel.Params{
		Role:             role,
		Certificate:      cert,
		HandshakeTimeout: 3 * time.Second,
	}
}

func newPair(t *testing.T, clientParams, serverParams securechannel.Params) *pair {
	t.Helper()

	la, lb := ice.NewPipeLinks()
	t.Cleanup(func() {
		la.Close()
		lb.Close()
	})

	p := &pair{
		clientRec:  securitytest.NewRecorder(),
		serverRec:  securitytest.NewRecorder(),
		clientLink: la,
		serverLink: lb,
	}

	var err error
	p.client, err = New(la, clientParams, p.clientRec)
	require.NoError(t, err)
	p.server, err = New(lb, serverParams, p.serverRec)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = p.client.Shutdown()
		_ = p.server.Shutdown()
	})
	return p
}

// TestChannel_Handshake 握手成功后交换数据
func TestChannel_Handshake(t *testing.T) {
	p := newPair(t,
		newParams(t, securechannel.RoleClient, "alice"),
		newParams(t, securechannel.RoleServer, "bob"))

	p.server.Start()
	p.client.Start()

	require.True(t, p.clientRec.WaitState(securechannel.StateEstablished, waitTimeout))
	require.True(t, p.serverRec.WaitState(securechannel.StateEstablished, waitTimeout))

	suite, ok := p.client.CipherSuite()
	assert.True(t, ok)
	assert.NotEmpty(t, suite)
	assert.False(t, p.client.PushesData())
	assert.Equal(t, maxRecordPayload, p.client.MaxPayloadSize())

	local, remote := p.clientRec.Certificates()
	assert.NotEmpty(t, local)
	require.Len(t, remote, 1)

	// 服务端请求了客户端证书
	_, serverRemote := p.serverRec.Certificates()
	assert.Len(t, serverRemote, 1)

	sessions := p.clientRec.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, securechannel.CertTypeX509, sessions[0].Type)
	assert.ErrorIs(t, sessions[0].ChainStatus, certs.ErrUntrusted)

	_, err := p.client.Write([]byte("OPTIONS sip:bob SIP/2.0\r\n\r\n"))
	require.NoError(t, err)

	var got []byte
	deadline := time.Now().Add(waitTimeout)
	for len(got) < 27 && time.Now().Before(deadline) {
		ready, err := p.server.WaitForData(50 * time.Millisecond)
		require.NoError(t, err)
		if !ready {
			continue
		}
		buf := make([]byte, 8)
		n, err := p.server.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	assert.Equal(t, "OPTIONS sip:bob SIP/2.0\r\n\r\n", string(got))
}

// TestChannel_WaitForDataTimeout 无数据时按时返回
func TestChannel_WaitForDataTimeout(t *testing.T) {
	p := newPair(t,
		newParams(t, securechannel.RoleClient, "alice"),
		newParams(t, securechannel.RoleServer, "bob"))

	// 握手未开始时等待超时
	ready, err := p.client.WaitForData(20 * time.Millisecond)
	assert.NoError(t, err)
	assert.False(t, ready)

	_, err = p.client.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrNotEstablished)

	p.server.Start()
	p.client.Start()
	require.True(t, p.clientRec.WaitState(securechannel.StateEstablished, waitTimeout))

	start := time.Now()
	ready, err = p.client.WaitForData(50 * time.Millisecond)
	assert.NoError(t, err)
	assert.False(t, ready)
	assert.Less(t, time.Since(start), time.Second)

	// 超时后连接仍然可用
	_, err = p.server.Write([]byte("pong"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		ready, err := p.client.WaitForData(20 * time.Millisecond)
		return err == nil && ready
	}, waitTimeout, 10*time.Millisecond)
}

// TestChannel_VerifyReject 验证回调拒绝时双方进入终态
func TestChannel_VerifyReject(t *testing.T) {
	p := newPair(t,
		newParams(t, securechannel.RoleClient, "alice"),
		newParams(t, securechannel.RoleServer, "mallory"))

	reject := errors.New("untrusted peer")
	p.clientRec.Verify = func(securechannel.Session) error { return reject }

	p.server.Start()
	p.client.Start()

	require.True(t, p.clientRec.WaitState(securechannel.StateShutdown, waitTimeout))
	require.True(t, p.serverRec.WaitState(securechannel.StateShutdown, waitTimeout))
	assert.NotContains(t, p.clientRec.States(), securechannel.StateEstablished)

	_, ok := p.client.CipherSuite()
	assert.False(t, ok)
}

// TestChannel_RequireClientCert 证书由验证回调决定
func TestChannel_RequireClientCert(t *testing.T) {
	serverParams := newParams(t, securechannel.RoleServer, "bob")
	serverParams.RequireClientCert = true

	p := newPair(t, newParams(t, securechannel.RoleClient, "alice"), serverParams)
	p.serverRec.Verify = func(s securechannel.Session) error {
		if len(s.Chain) == 0 || s.Chain[0].Subject.CommonName != "alice" {
			return errors.New("unexpected client")
		}
		return nil
	}

	p.server.Start()
	p.client.Start()
	require.True(t, p.serverRec.WaitState(securechannel.StateEstablished, waitTimeout))
	assert.Len(t, p.serverRec.Sessions(), 1)
}

// TestChannel_ShutdownOnce 多次关闭只报告一次终态
func TestChannel_ShutdownOnce(t *testing.T) {
	p := newPair(t,
		newParams(t, securechannel.RoleClient, "alice"),
		newParams(t, securechannel.RoleServer, "bob"))

	p.server.Start()
	p.client.Start()
	require.True(t, p.clientRec.WaitState(securechannel.StateEstablished, waitTimeout))

	require.NoError(t, p.client.Shutdown())
	require.NoError(t, p.client.Shutdown())

	count := 0
	for _, s := range p.clientRec.States() {
		if s == securechannel.StateShutdown {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, securechannel.StateShutdown, p.client.State())

	_, err := p.client.Write([]byte("late"))
	assert.ErrorIs(t, err, ErrShutdown)

	// 对端收到 close_notify
	require.Eventually(t, func() bool {
		_, err := p.server.WaitForData(20 * time.Millisecond)
		return err != nil
	}, waitTimeout, 10*time.Millisecond)
	assert.True(t, p.serverRec.WaitState(securechannel.StateShutdown, waitTimeout))
}

// TestChannel_HandshakeTimeout 对端无响应时握手超时
func TestChannel_HandshakeTimeout(t *testing.T) {
	clientParams := newParams(t, securechannel.RoleClient, "alice")
	clientParams.HandshakeTimeout = 100 * time.Millisecond

	p := newPair(t, clientParams, newParams(t, securechannel.RoleServer, "bob"))
	p.client.Start()

	assert.True(t, p.clientRec.WaitState(securechannel.StateShutdown, waitTimeout))
}

// TestConfigBuilder 配置构建
func TestConfigBuilder(t *testing.T) {
	params := newParams(t, securechannel.RoleServer, "bob")
	params.RequireClientCert = true
	params.CipherSuites = []uint16{tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256, tls.TLS_AES_128_GCM_SHA256}

	cfg, err := NewConfigBuilder(params).Build()
	require.NoError(t, err)
	assert.Equal(t, tls.RequireAnyClientCert, cfg.ClientAuth)
	assert.True(t, cfg.InsecureSkipVerify)
	assert.Equal(t, []uint16{tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256}, cfg.CipherSuites)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)

	params.CipherSuites = []uint16{tls.TLS_RSA_WITH_RC4_128_SHA}
	_, err = NewConfigBuilder(params).Build()
	assert.Error(t, err)

	params.Certificate = nil
	_, err = NewConfigBuilder(params).Build()
	assert.Error(t, err)

	id, ok := CipherSuiteID("TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256")
	assert.True(t, ok)
	assert.Equal(t, tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256, id)
}

// TestChannel_NoWriteAfterShutdown Shutdown 返回后所有写入都失败
func TestChannel_NoWriteAfterShutdown(t *testing.T) {
	p := newPair(t,
		newParams(t, securechannel.RoleClient, "alice"),
		newParams(t, securechannel.RoleServer, "bob"))
	p.server.Start()
	p.client.Start()
	require.True(t, p.clientRec.WaitState(securechannel.StateEstablished, waitTimeout))

	var (
		stopped atomic.Bool
		late    atomic.Int64
		wg      sync.WaitGroup
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				after := stopped.Load()
				_, err := p.client.Write([]byte("ping"))
				if err == nil && after {
					late.Add(1)
				}
				if err != nil {
					return
				}
			}
		}()
	}

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, p.client.Shutdown())
	stopped.Store(true)
	wg.Wait()
	assert.Zero(t, late.Load())

	for i := 0; i < 200; i++ {
		n, err := p.client.Write([]byte("late"))
		require.ErrorIs(t, err, ErrShutdown)
		require.Zero(t, n)
	}

	ready, err := p.client.WaitForData(time.Millisecond)
	assert.False(t, ready)
	assert.ErrorIs(t, err, ErrShutdown)

	_, err = p.client.Read(make([]byte, 16))
	assert.ErrorIs(t, err, ErrShutdown)
}
