// Package main 在同一进程内演示 ICE 链路上的 SIP 安全传输
//
// 程序创建两个 ICE 代理并在本机完成候选交换与连通性检查，然后在链路两端
// 建立 TLS 或 DTLS 安全传输，由一端发送 SIP OPTIONS，另一端回复 200 OK。
//
// 使用方法:
//
//	go run ./cmd/icesip-loopback -transport dtls
//	go run ./cmd/icesip-loopback -transport tls -timeout 10s
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-icesip"
	"github.com/dep2p/go-icesip/config"
	"github.com/dep2p/go-icesip/internal/core/ice"
	"github.com/dep2p/go-icesip/internal/core/security/certs"
	"github.com/dep2p/go-icesip/internal/core/transportmgr"
	"github.com/dep2p/go-icesip/pkg/interfaces/securechannel"
	"github.com/dep2p/go-icesip/pkg/interfaces/sip"
	"github.com/dep2p/go-icesip/pkg/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("❌ 错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 解析命令行参数
	transport := flag.String("transport", "dtls", "安全传输类型：tls 或 dtls")
	timeout := flag.Duration("timeout", 15*time.Second, "整体超时")
	stun := flag.String("stun", "", "STUN 服务器（可选），如 stun:stun.l.google.com:19302")
	flag.Parse()

	kind, err := parseKind(*transport)
	if err != nil {
		return err
	}

	fmt.Println("╔══════════════════════════════════════════════════════╗")
	fmt.Println("║            icesip loopback                           ║")
	fmt.Println("╚══════════════════════════════════════════════════════╝")
	fmt.Println(icesip.VersionInfo())
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// 捕获中断信号
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-signalCh:
			fmt.Printf("\n收到信号 %v，正在关闭...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	cfg := config.NewConfig()
	cfg.ICE = cfg.ICE.WithLoopback(true)
	if *stun != "" {
		cfg.ICE = cfg.ICE.WithSTUNServers(*stun)
	}

	// 1. ICE 连通性
	alice, bob, err := connectLinks(ctx, cfg.ICE)
	if err != nil {
		return err
	}
	defer func() {
		_ = alice.Close()
		_ = bob.Close()
	}()
	fmt.Printf("✅ ICE 链路: %s <-> %s\n", alice.LocalAddr(), alice.RemoteAddr())

	// 2. 两个端点
	caller, err := icesip.New(ctx, icesip.WithConfig(cfg), icesip.WithVerifyPolicy(certs.AcceptAllPolicy()))
	if err != nil {
		return fmt.Errorf("创建主叫端点失败: %w", err)
	}
	defer func() { _ = caller.Close() }()

	callee, err := icesip.New(ctx, icesip.WithConfig(cfg), icesip.WithVerifyPolicy(certs.AcceptAllPolicy()))
	if err != nil {
		return fmt.Errorf("创建被叫端点失败: %w", err)
	}
	defer func() { _ = callee.Close() }()

	// 被叫收到请求后回复 200 OK
	callee.Manager().AddListener(transportmgr.ListenerFuncs{
		Message: func(h *sip.Handle, msg []byte, src net.Addr) {
			fmt.Printf("📨 被叫收到 %d 字节:\n%s\n", len(msg), indent(string(msg)))
			reply := okResponse(string(msg))
			if _, err := h.Transport().Send(&sip.TxBuffer{Data: []byte(reply), Info: "Response 200"}, src, nil, nil); err != nil && !errors.Is(err, sip.ErrPending) {
				fmt.Printf("⚠️  回复失败: %v\n", err)
			}
		},
	})

	done := make(chan string, 1)
	caller.Manager().AddListener(transportmgr.ListenerFuncs{
		StateChanged: func(_ *sip.Handle, state types.TransportState, info *types.SessionInfo) {
			fmt.Printf("🔐 主叫传输状态: %s\n", state)
			if state == types.StateConnected && info != nil {
				printSession(info)
			}
		},
		Message: func(_ *sip.Handle, msg []byte, _ net.Addr) {
			select {
			case done <- string(msg):
			default:
			}
		},
	})

	// 3. 安全传输
	calleeParams, err := callee.Params(securechannel.RoleServer)
	if err != nil {
		return err
	}
	if _, err := callee.Dial(ctx, bob, kind, calleeParams, 1); err != nil {
		return fmt.Errorf("被叫建立传输失败: %w", err)
	}

	callerParams, err := caller.Params(securechannel.RoleClient)
	if err != nil {
		return err
	}
	tp, err := caller.Dial(ctx, alice, kind, callerParams, 1)
	if err != nil {
		return fmt.Errorf("主叫建立传输失败: %w", err)
	}
	fmt.Printf("🚀 %s\n", tp)

	// 4. OPTIONS 往返
	request := optionsRequest(kind, alice.LocalAddr(), alice.RemoteAddr())
	_, err = tp.Send(&sip.TxBuffer{Data: []byte(request), Info: "Request OPTIONS"}, alice.RemoteAddr(), "options",
		func(_ any, n int, err error) {
			if err != nil {
				fmt.Printf("⚠️  发送失败: %v\n", err)
				return
			}
			fmt.Printf("📤 已发送 OPTIONS（%d 字节）\n", n)
		})
	if err != nil && !errors.Is(err, sip.ErrPending) {
		return fmt.Errorf("发送 OPTIONS 失败: %w", err)
	}

	select {
	case reply := <-done:
		fmt.Printf("📬 主叫收到应答:\n%s\n", indent(reply))
	case <-ctx.Done():
		return fmt.Errorf("等待应答超时: %w", ctx.Err())
	}

	stats := tp.Stats()
	fmt.Printf("📊 发送 %d 字节 / 接收 %d 字节\n", stats.BytesOut, stats.BytesIn)
	return nil
}

// connectLinks 在本进程内完成两个 ICE 代理的候选交换与连通性检查
func connectLinks(ctx context.Context, cfg config.ICEConfig) (*ice.Link, *ice.Link, error) {
	controlling, err := ice.NewAgent(cfg, ice.RoleControlling)
	if err != nil {
		return nil, nil, err
	}
	controlled, err := ice.NewAgent(cfg, ice.RoleControlled)
	if err != nil {
		_ = controlling.Close()
		return nil, nil, err
	}

	var descA, descB ice.Description
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		descA, err = controlling.Gather(gctx)
		return err
	})
	g.Go(func() (err error) {
		descB, err = controlled.Gather(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		_ = controlling.Close()
		_ = controlled.Close()
		return nil, nil, fmt.Errorf("收集候选失败: %w", err)
	}

	var linkA, linkB *ice.Link
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		linkA, err = controlling.Connect(gctx, descB)
		return err
	})
	g.Go(func() (err error) {
		linkB, err = controlled.Connect(gctx, descA)
		return err
	})
	if err := g.Wait(); err != nil {
		_ = controlling.Close()
		_ = controlled.Close()
		return nil, nil, fmt.Errorf("ICE 连通性检查失败: %w", err)
	}
	return linkA, linkB, nil
}

func parseKind(name string) (types.TransportKind, error) {
	switch strings.ToLower(name) {
	case "tls":
		return types.KindReliable, nil
	case "dtls":
		return types.KindUnreliable, nil
	default:
		return types.KindUnknown, fmt.Errorf("未知传输类型 %q（可选 tls / dtls）", name)
	}
}

func optionsRequest(kind types.TransportKind, local, remote net.Addr) string {
	return "OPTIONS sip:" + remote.String() + ";transport=" + strings.ToLower(kind.String()) + " SIP/2.0\r\n" +
		"Via: SIP/2.0/" + kind.String() + " " + local.String() + ";branch=z9hG4bKloopback\r\n" +
		"Max-Forwards: 70\r\n" +
		"From: <sip:alice@" + local.String() + ">;tag=1\r\n" +
		"To: <sip:bob@" + remote.String() + ">\r\n" +
		"Call-ID: loopback@icesip\r\n" +
		"CSeq: 1 OPTIONS\r\n" +
		"Content-Length: 0\r\n\r\n"
}

// okResponse 复制请求中的事务相关头部生成 200 OK
func okResponse(request string) string {
	var b strings.Builder
	b.WriteString("SIP/2.0 200 OK\r\n")
	for _, line := range strings.Split(request, "\r\n") {
		name, _, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "via", "from", "to", "call-id", "cseq":
			b.WriteString(line)
			b.WriteString("\r\n")
		}
	}
	b.WriteString("Content-Length: 0\r\n\r\n")
	return b.String()
}

func printSession(info *types.SessionInfo) {
	fmt.Printf("   套件: %s\n", info.CipherSuite)
	fmt.Printf("   验证: %s\n", info.Verify)
	if info.RemoteCertificate != nil {
		fmt.Printf("   对端证书: %s（%d 张）\n", info.RemoteCertificate.Subject, info.RemoteChainLength)
	}
}

func indent(s string) string {
	return "   " + strings.ReplaceAll(strings.TrimRight(s, "\r\n"), "\r\n", "\n   ")
}
