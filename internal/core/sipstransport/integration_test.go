package sipstransport

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-icesip/config"
	"github.com/dep2p/go-icesip/internal/core/ice"
	"github.com/dep2p/go-icesip/internal/core/security/certs"
	"github.com/dep2p/go-icesip/internal/core/transportmgr"
	"github.com/dep2p/go-icesip/pkg/interfaces/securechannel"
	"github.com/dep2p/go-icesip/pkg/interfaces/sip"
	"github.com/dep2p/go-icesip/pkg/types"
)

// endpoint 一端的真实传输
type endpoint struct {
	tp  *Transport
	mgr *transportmgr.Manager
	rec *transportmgr.Recorder
}

func newEndpoint(t *testing.T, kind types.TransportKind, link *ice.PipeLink, role securechannel.Role, cn string) *endpoint {
	t.Helper()

	cert, err := certs.GenerateSelfSigned(certs.Options{CommonName: cn})
	require.NoError(t, err)

	ep := &endpoint{mgr: transportmgr.New(), rec: &transportmgr.Recorder{}}
	ep.mgr.AddListener(ep.rec)

	ep.tp, err = New(Options{
		Manager: ep.mgr,
		Kind:    kind,
		Params: securechannel.Params{
			Role:             role,
			Certificate:      cert,
			HandshakeTimeout: 3 * time.Second,
			VerifyPolicy:     certs.AcceptAllPolicy(),
		},
		Link:        link,
		ComponentID: 1,
		Config:      config.DefaultTransportConfig().WithPollTimeout(20 * time.Millisecond),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ep.mgr.Close() })
	return ep
}

func connected(rec *transportmgr.Recorder) func() bool {
	return func() bool {
		for _, s := range rec.States() {
			if s == types.StateConnected {
				return true
			}
		}
		return false
	}
}

// TestIntegration_OptionsRoundTrip 真实 TLS/DTLS 握手后完成一次 OPTIONS 往返
func TestIntegration_OptionsRoundTrip(t *testing.T) {
	for _, kind := range []types.TransportKind{types.KindReliable, types.KindUnreliable} {
		t.Run(kind.String(), func(t *testing.T) {
			la, lb := ice.NewPipeLinks()
			t.Cleanup(func() {
				la.Close()
				lb.Close()
			})

			server := newEndpoint(t, kind, lb, securechannel.RoleServer, "bob")
			client := newEndpoint(t, kind, la, securechannel.RoleClient, "alice")

			// 服务端对收到的请求回 200 OK
			server.rec.OnMessageHook = func(h *sip.Handle, msg []byte) {
				if !strings.HasPrefix(string(msg), "OPTIONS") {
					return
				}
				reply := "SIP/2.0 200 OK\r\nContent-Length: 0\r\n\r\n"
				_, err := h.Transport().Send(&sip.TxBuffer{Data: []byte(reply), Info: "Response 200"}, h.RemoteAddr, nil, nil)
				if err != nil && !errors.Is(err, sip.ErrPending) {
					t.Errorf("send reply: %v", err)
				}
			}

			// 握手完成前发出的请求排队，连接后发出
			var done completions
			request := sipMessage("OPTIONS", "")
			_, err := client.tp.Send(&sip.TxBuffer{Data: []byte(request), Info: "Request OPTIONS"}, la.RemoteAddr(), "options", done.cb)
			if err != nil {
				require.ErrorIs(t, err, sip.ErrPending)
			}

			require.Eventually(t, connected(client.rec), waitTimeout, 5*time.Millisecond)
			require.Eventually(t, func() bool { return len(client.rec.Messages()) == 1 }, waitTimeout, 5*time.Millisecond)

			assert.Equal(t, []string{request}, server.rec.Messages())
			assert.True(t, strings.HasPrefix(client.rec.Messages()[0], "SIP/2.0 200 OK"))
			require.Equal(t, 1, done.len())
			assert.NoError(t, done.all()[0].err)
			assert.Equal(t, len(request), done.all()[0].n)

			var info *types.SessionInfo
			for _, e := range client.rec.Events() {
				if !e.IsMessage() && e.State == types.StateConnected {
					info = e.Info
				}
			}
			require.NotNil(t, info)
			assert.True(t, info.Established)
			assert.Equal(t, kind, info.Kind)
			assert.NotEmpty(t, info.CipherSuite)
			assert.Equal(t, types.VerifyPass, info.Verify)
			require.NotNil(t, info.RemoteCertificate)
			assert.Equal(t, "bob", info.RemoteCertificate.SubjectCN)
			require.NotNil(t, info.LocalCertificate)
			assert.Equal(t, "alice", info.LocalCertificate.SubjectCN)

			// 客户端销毁后服务端收到 Disconnected
			require.NoError(t, client.tp.Close())
			assert.Zero(t, client.mgr.Len())
			require.Eventually(t, func() bool {
				states := server.rec.States()
				return len(states) > 0 && states[len(states)-1] == types.StateDisconnected
			}, waitTimeout, 5*time.Millisecond)
		})
	}
}

// TestIntegration_VerifyReject 策略拒绝时双方都以 Disconnected 结束
func TestIntegration_VerifyReject(t *testing.T) {
	la, lb := ice.NewPipeLinks()
	t.Cleanup(func() {
		la.Close()
		lb.Close()
	})

	server := newEndpoint(t, types.KindUnreliable, lb, securechannel.RoleServer, "bob")

	cert, err := certs.GenerateSelfSigned(certs.Options{CommonName: "alice"})
	require.NoError(t, err)
	mgr := transportmgr.New()
	rec := &transportmgr.Recorder{}
	mgr.AddListener(rec)
	t.Cleanup(func() { _ = mgr.Close() })

	client, err := New(Options{
		Manager: mgr,
		Kind:    types.KindUnreliable,
		Params: securechannel.Params{
			Role:             securechannel.RoleClient,
			Certificate:      cert,
			HandshakeTimeout: 3 * time.Second,
			VerifyPolicy:     certs.PinnedPolicy("00"),
		},
		Link: la,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		states := rec.States()
		return len(states) == 1 && states[0] == types.StateDisconnected
	}, waitTimeout, 5*time.Millisecond)

	info := rec.LastInfo()
	require.NotNil(t, info)
	assert.False(t, info.Established)
	assert.Equal(t, types.VerifyFail, info.Verify)
	assert.Contains(t, info.VerifyError, "fingerprint mismatch")

	result, verr := client.VerifyResult()
	assert.Equal(t, types.VerifyFail, result)
	assert.ErrorIs(t, verr, certs.ErrPinMismatch)
	assert.False(t, connected(server.rec)())
}
