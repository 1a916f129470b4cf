package sipstransport

import (
	"fmt"

	"github.com/dep2p/go-icesip/pkg/interfaces/securechannel"
	"github.com/dep2p/go-icesip/pkg/types"
)

// verifyCertificate 在安全通道的 goroutine 上同步给出信任结论
//
// 证书格式不受支持时直接拒绝；否则以证书链验证结果为准，配置了
// VerifyPolicy 时由策略决定。结论被缓存，随 SessionInfo 一起报告。
func (t *Transport) verifyCertificate(session securechannel.Session) error {
	if session.Type != securechannel.CertTypeX509 {
		t.setVerify(ErrUnsupportedCertificate)
		return ErrUnsupportedCertificate
	}

	verdict := session.ChainStatus
	if t.policy != nil {
		verdict = t.policy(session.ChainStatus, session.Chain)
	}
	t.setVerify(verdict)

	if verdict != nil {
		log.Warn("对端证书验证失败",
			"transport", t.description,
			"chain", len(session.Chain),
			"err", verdict)
		return fmt.Errorf("verify peer certificate: %w", verdict)
	}
	log.Debug("对端证书验证通过", "transport", t.description, "chain", len(session.Chain))
	return nil
}

func (t *Transport) setVerify(err error) {
	t.verifyMu.Lock()
	defer t.verifyMu.Unlock()
	if err != nil {
		t.verify = types.VerifyFail
	} else {
		t.verify = types.VerifyPass
	}
	t.verifyErr = err
}

// VerifyResult 最近一次证书验证结论
func (t *Transport) VerifyResult() (types.VerifyResult, error) {
	t.verifyMu.Lock()
	defer t.verifyMu.Unlock()
	return t.verify, t.verifyErr
}

// Info 返回会话信息快照
//
// established 为 false 时只包含本地地址、传输类型与验证结论；
// 为 true 时另外包含加密套件、证书信息与远端地址。
func (t *Transport) Info(established bool) *types.SessionInfo {
	return t.getInfo(established)
}

func (t *Transport) getInfo(established bool) *types.SessionInfo {
	info := &types.SessionInfo{
		Established: established,
		Kind:        t.kind,
		LocalAddr:   t.handle.LocalAddr,
	}

	verify, verifyErr := t.VerifyResult()
	info.Verify = verify
	if verifyErr != nil {
		info.VerifyError = verifyErr.Error()
	}

	if !established {
		return info
	}

	if suite, ok := t.channel.CipherSuite(); ok {
		info.CipherSuite = suite
	} else {
		log.Debug("加密套件不可用", "transport", t.description)
	}
	info.RemoteAddr = t.handle.RemoteAddr
	info.LocalCertificate = t.certs.Local()
	info.RemoteCertificate = t.certs.Remote()
	info.RemoteChainLength = t.certs.RemoteChainLength()
	return info
}
