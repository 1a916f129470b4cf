package ice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pion/ice/v4"

	"github.com/dep2p/go-icesip/config"
	"github.com/dep2p/go-icesip/internal/util/logger"
)

var log = logger.Logger("ice")

// Role ICE 角色
type Role int

const (
	// RoleControlling 控制方，发起连通性检查并提名候选对
	RoleControlling Role = iota
	// RoleControlled 受控方
	RoleControlled
)

// String 返回角色名称
func (r Role) String() string {
	if r == RoleControlling {
		return "controlling"
	}
	return "controlled"
}

// Description 本端 ICE 描述，通过信令交换给对端
type Description struct {
	Ufrag      string   `json:"ufrag"`
	Pwd        string   `json:"pwd"`
	Candidates []string `json:"candidates"`
}

// Agent ICE 代理
type Agent struct {
	cfg   config.ICEConfig
	role  Role
	agent *ice.Agent

	mu         sync.Mutex
	candidates []string
	gathered   chan struct{}
	gatherOnce sync.Once

	state     atomic.Int32
	link      atomic.Pointer[Link]
	connected atomic.Bool
	closed    atomic.Bool
}

// NewAgent 创建 ICE 代理
func NewAgent(cfg config.ICEConfig, role Role) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	uris, err := cfg.URIs()
	if err != nil {
		return nil, err
	}

	networkTypes, err := parseNetworkTypes(cfg.NetworkTypes)
	if err != nil {
		return nil, err
	}

	candidateTypes := []ice.CandidateType{ice.CandidateTypeHost}
	if len(uris) > 0 {
		candidateTypes = append(candidateTypes, ice.CandidateTypeServerReflexive, ice.CandidateTypeRelay)
	}

	agentCfg := &ice.AgentConfig{
		Urls:             uris,
		NetworkTypes:     networkTypes,
		CandidateTypes:   candidateTypes,
		MulticastDNSMode: ice.MulticastDNSModeDisabled,
		IncludeLoopback:  cfg.IncludeLoopback,
		LoggerFactory:    logger.PionFactory("ice"),
	}
	if d := cfg.DisconnectedTimeout.Duration(); d > 0 {
		agentCfg.DisconnectedTimeout = &d
	}
	if d := cfg.FailedTimeout.Duration(); d > 0 {
		agentCfg.FailedTimeout = &d
	}
	if d := cfg.KeepaliveInterval.Duration(); d > 0 {
		agentCfg.KeepaliveInterval = &d
	}

	agent, err := ice.NewAgent(agentCfg)
	if err != nil {
		return nil, fmt.Errorf("create ice agent: %w", err)
	}

	a := &Agent{
		cfg:      cfg,
		role:     role,
		agent:    agent,
		gathered: make(chan struct{}),
	}
	a.state.Store(int32(ice.ConnectionStateNew))

	if err := agent.OnCandidate(a.onCandidate); err != nil {
		_ = agent.Close()
		return nil, err
	}
	if err := agent.OnConnectionStateChange(a.onStateChange); err != nil {
		_ = agent.Close()
		return nil, err
	}

	return a, nil
}

// Role 返回角色
func (a *Agent) Role() Role {
	return a.role
}

// State 返回当前 ICE 连接状态
func (a *Agent) State() ice.ConnectionState {
	return ice.ConnectionState(a.state.Load())
}

// Gather 收集本地候选并返回本端描述
//
// 阻塞直到收集完成、ctx 取消或超过 GatherTimeout。
func (a *Agent) Gather(ctx context.Context) (Description, error) {
	if a.closed.Load() {
		return Description{}, ErrAgentClosed
	}

	ufrag, pwd, err := a.agent.GetLocalUserCredentials()
	if err != nil {
		return Description{}, fmt.Errorf("local credentials: %w", err)
	}

	if err := a.agent.GatherCandidates(); err != nil {
		return Description{}, fmt.Errorf("gather candidates: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.GatherTimeout.Duration())
	defer cancel()

	select {
	case <-a.gathered:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Description{}, ErrGatherTimeout
		}
		return Description{}, ctx.Err()
	}

	a.mu.Lock()
	cands := append([]string(nil), a.candidates...)
	a.mu.Unlock()

	log.Debug("候选收集完成", "role", a.role, "candidates", len(cands))
	return Description{Ufrag: ufrag, Pwd: pwd, Candidates: cands}, nil
}

// Connect 使用远端描述完成连通性检查，返回已连通的链路
func (a *Agent) Connect(ctx context.Context, remote Description) (*Link, error) {
	if a.closed.Load() {
		return nil, ErrAgentClosed
	}
	if remote.Ufrag == "" || remote.Pwd == "" {
		return nil, fmt.Errorf("%w: missing credentials", ErrInvalidDescription)
	}
	if !a.connected.CompareAndSwap(false, true) {
		return nil, ErrAlreadyConnected
	}

	added := 0
	for _, raw := range remote.Candidates {
		cand, err := ice.UnmarshalCandidate(raw)
		if err != nil {
			log.Warn("忽略无法解析的远端候选", "candidate", raw, "err", err)
			continue
		}
		if err := a.agent.AddRemoteCandidate(cand); err != nil {
			log.Warn("添加远端候选失败", "candidate", raw, "err", err)
			continue
		}
		added++
	}
	if added == 0 {
		return nil, fmt.Errorf("%w: no usable candidates", ErrInvalidDescription)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.ConnectTimeout.Duration())
	defer cancel()

	var (
		conn *ice.Conn
		err  error
	)
	if a.role == RoleControlling {
		conn, err = a.agent.Dial(ctx, remote.Ufrag, remote.Pwd)
	} else {
		conn, err = a.agent.Accept(ctx, remote.Ufrag, remote.Pwd)
	}
	if err != nil {
		return nil, fmt.Errorf("ice connect: %w", err)
	}

	link := newLink(a, conn)
	a.link.Store(link)

	log.Info("ICE 链路已建立",
		"role", a.role,
		"local", link.LocalAddr(),
		"remote", link.RemoteAddr())
	return link, nil
}

// Close 关闭代理
func (a *Agent) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	return a.agent.Close()
}

func (a *Agent) onCandidate(c ice.Candidate) {
	if c == nil {
		a.gatherOnce.Do(func() { close(a.gathered) })
		return
	}
	a.mu.Lock()
	a.candidates = append(a.candidates, c.Marshal())
	a.mu.Unlock()
}

func (a *Agent) onStateChange(s ice.ConnectionState) {
	a.state.Store(int32(s))
	log.Debug("ICE 状态变化", "role", a.role, "state", s.String())
}

func parseNetworkTypes(names []string) ([]ice.NetworkType, error) {
	out := make([]ice.NetworkType, 0, len(names))
	for _, name := range names {
		switch name {
		case "udp4":
			out = append(out, ice.NetworkTypeUDP4)
		case "udp6":
			out = append(out, ice.NetworkTypeUDP6)
		case "tcp4":
			out = append(out, ice.NetworkTypeTCP4)
		case "tcp6":
			out = append(out, ice.NetworkTypeTCP6)
		default:
			return nil, fmt.Errorf("unknown network type %q", name)
		}
	}
	return out, nil
}
