package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/pragmalink/go-pragmalink"
	"github.com/pragmalink/go-pragmalink/config"
	"github.com/pragmalink/go-pragmalink/internal/core/broadcast"
	"github.com/pragmalink/go-pragmalink/internal/core/identity"
	"github.com/pragmalink/go-pragmalink/pkg/lib/log"
	"github.com/pragmalink/go-pragmalink/pkg/policy"
	"github.com/pragmalink/go-pragmalink/pkg/types"
)

var logger = log.Logger("pragmalink/cmd")

// 参数名（同时是 viper 键与环境变量后缀）
const (
	flagConfig        = "config"
	flagListen        = "listen"
	flagBootstrap     = "bootstrap"
	flagTopics        = "topics"
	flagIdentity      = "identity"
	flagCertificate   = "certificate"
	flagDataDir       = "data-dir"
	flagChannelSize   = "channel-size"
	flagRequireCert   = "require-cert"
	flagAuthorityKey  = "authority-key"
	flagAdmitRate     = "admit-rate"
	flagAdmitBurst    = "admit-burst"
	flagLogLevel      = "log-level"
	flagLogFormat     = "log-format"
	flagMetricsListen = "metrics-listen"
	flagStdinTopic    = "stdin-topic"
)

// metricsShutdownTimeout 指标服务关闭超时
const metricsShutdownTimeout = 5 * time.Second

// runtimeOptions 只影响本次运行、不属于 config.Config 的参数
type runtimeOptions struct {
	metricsListen string
	stdinTopic    string
}

// NewRunCmd 创建 run 命令
func NewRunCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a node until interrupted",
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlagsLoadViper(cmd, v)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return fmt.Errorf("配置错误: %w", err)
			}
			rt := runtimeOptions{
				metricsListen: v.GetString(flagMetricsListen),
				stdinTopic:    v.GetString(flagStdinTopic),
			}
			return runNode(cmd.Context(), cfg, rt)
		},
	}

	addRunFlags(cmd.Flags())
	return cmd
}

// addRunFlags 注册 run 命令参数
func addRunFlags(fs *pflag.FlagSet) {
	def := config.NewConfig()

	fs.StringP(flagConfig, "c", "", "JSON config file")

	// 网络
	fs.StringP(flagListen, "l", def.Network.ListenAddr, "Listen multiaddr")
	fs.StringSliceP(flagBootstrap, "b", nil, "Bootstrap peer multiaddrs (with /p2p/<id>)")

	// 身份
	fs.StringP(flagIdentity, "i", "", "Identity key file, created when missing")
	fs.String(flagCertificate, "", "Issued certificate (see issue), countersigned and advertised in the agent string")

	// 消息
	fs.StringSliceP(flagTopics, "t", nil, "Topics to subscribe in addition to the central topic")
	fs.Int(flagChannelSize, def.Messaging.ChannelSize, "Capacity of inbound, outbound and authorization queues")
	fs.String(flagStdinTopic, "", "Broadcast each stdin line to this topic")

	// 存储
	fs.StringP(flagDataDir, "d", "", "Data directory for the seed book")

	// 准入策略
	fs.Bool(flagRequireCert, def.Admission.RequireCertificate, "Reject peers without a certificate issued by --authority-key")
	fs.String(flagAuthorityKey, def.Admission.AuthorityKey, "Certificate authority public key (printed by issue)")
	fs.Float64(flagAdmitRate, def.Admission.RatePerSecond, "Admissions per second (0 = unlimited)")
	fs.Int(flagAdmitBurst, def.Admission.Burst, "Admission burst size")

	// 日志与指标
	fs.String(flagLogLevel, def.Log.Level, "Log level (debug, info, warn, error)")
	fs.String(flagLogFormat, def.Log.Format, "Log format (text, json)")
	fs.String(flagMetricsListen, "", "Serve prometheus metrics on this address (e.g. :9100)")
}

// loadConfig 合并配置文件、环境变量与命令行参数
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg := config.NewConfig()
	if path := v.GetString(flagConfig); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v.IsSet(flagListen) {
		cfg.Network.ListenAddr = v.GetString(flagListen)
	}
	if v.IsSet(flagBootstrap) {
		cfg.Network.BootstrapPeers = v.GetStringSlice(flagBootstrap)
	}
	if v.IsSet(flagIdentity) {
		cfg.Identity.KeyFile = v.GetString(flagIdentity)
		cfg.Identity.PrivateKey = ""
	}
	if v.IsSet(flagCertificate) {
		cfg.Identity.Certificate = v.GetString(flagCertificate)
	}
	if v.IsSet(flagTopics) {
		cfg.Messaging.Topics = v.GetStringSlice(flagTopics)
	}
	if v.IsSet(flagChannelSize) {
		cfg.Messaging.ChannelSize = v.GetInt(flagChannelSize)
	}
	if v.IsSet(flagDataDir) {
		cfg.Storage.DataDir = v.GetString(flagDataDir)
	}
	if v.IsSet(flagRequireCert) {
		cfg.Admission.RequireCertificate = v.GetBool(flagRequireCert)
	}
	if v.IsSet(flagAuthorityKey) {
		cfg.Admission.AuthorityKey = v.GetString(flagAuthorityKey)
	}
	if v.IsSet(flagAdmitRate) {
		cfg.Admission.RatePerSecond = v.GetFloat64(flagAdmitRate)
	}
	if v.IsSet(flagAdmitBurst) {
		cfg.Admission.Burst = v.GetInt(flagAdmitBurst)
	}
	if v.IsSet(flagLogLevel) {
		cfg.Log.Level = v.GetString(flagLogLevel)
	}
	if v.IsSet(flagLogFormat) {
		cfg.Log.Format = v.GetString(flagLogFormat)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              运行
// ════════════════════════════════════════════════════════════════════════════

// runNode 创建节点并运行，直到收到退出信号或出现致命错误
func runNode(ctx context.Context, cfg *config.Config, rt runtimeOptions) error {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	log.Setup(os.Stderr, level, log.Format(cfg.Log.Format))

	policyCfg, err := admissionPolicy(cfg.Admission)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	logger.Info("启动 pragmalink 节点", "version", pragmalink.Version, "commit", pragmalink.GitCommit)
	node, err := pragmalink.New(
		pragmalink.WithConfig(cfg),
		pragmalink.WithMetricsRegistry(reg),
	)
	if err != nil {
		return fmt.Errorf("创建节点失败: %w", err)
	}
	defer func() {
		if err := node.Close(); err != nil {
			logger.Warn("关闭节点失败", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	decider := policy.New(policyCfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return node.Run(gctx) })
	g.Go(func() error { return decider.Run(gctx, node.Authorizations()) })
	g.Go(func() error { return printMessages(gctx, os.Stdout, node.Messages()) })
	if rt.metricsListen != "" {
		g.Go(func() error { return serveMetrics(gctx, rt.metricsListen, reg) })
	}
	if rt.stdinTopic != "" {
		// 读 stdin 无法被取消，不纳入 errgroup
		go readLines(gctx, os.Stdin, rt.stdinTopic, node.Requests())
	}

	fmt.Printf("节点已启动: %s\n", node.ID())
	err = g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		logger.Info("收到退出信号，正在关闭")
		return nil
	}
	return err
}

// admissionPolicy 把准入配置转换为策略配置，解码权威公钥
func admissionPolicy(ac config.AdmissionConfig) (policy.Config, error) {
	pc := policy.Config{
		RequireCertificate: ac.RequireCertificate,
		RatePerSecond:      ac.RatePerSecond,
		Burst:              ac.Burst,
	}
	if ac.AuthorityKey != "" {
		pub, err := identity.DecodePublicKey(ac.AuthorityKey)
		if err != nil {
			return policy.Config{}, fmt.Errorf("%w: authority key: %v", config.ErrInvalidConfig, err)
		}
		pc.Authority = pub
	}
	return pc, nil
}

// printMessages 把收到的消息写到 w
func printMessages(ctx context.Context, w io.Writer, r *broadcast.Receiver[types.InboundMessage]) error {
	for {
		msg, err := r.Recv(ctx)
		if err != nil {
			if errors.Is(err, broadcast.ErrReceiverClosed) {
				return nil
			}
			return err
		}
		from := "anonymous"
		if msg.HasSource {
			from = log.TruncateID(msg.Source.String(), 16)
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", msg.Topic, from, msg.Data)
		if lagged := r.Lagged(); lagged > 0 {
			logger.Debug("消息接收落后", "dropped", lagged)
		}
	}
}

// readLines 把每一行作为广播请求发送
func readLines(ctx context.Context, r io.Reader, topic string, requests chan<- types.OutboundRequest) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		select {
		case requests <- types.NewBroadcast(topic, []byte(line)):
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("读取标准输入失败", "error", err)
	}
}

// serveMetrics 提供 prometheus 指标 HTTP 端点
func serveMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("指标服务已启动", "addr", addr)

	select {
	case err := <-errc:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("关闭指标服务失败", "error", err)
		}
		return ctx.Err()
	}
}
