package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/agentscout/analyzer"
	"github.com/BaSui01/agentscout/config"
	"github.com/BaSui01/agentscout/discovery"
	"github.com/BaSui01/agentscout/internal/cache"
	"github.com/BaSui01/agentscout/internal/telemetry"
	"github.com/BaSui01/agentscout/perf"
	"github.com/BaSui01/agentscout/registry"
)

// Build metadata, injected via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// commandTimeout bounds a single registry-facing subcommand.
const commandTimeout = 60 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "discover":
		runDiscover(os.Args[2:])
	case "similar":
		runSimilar(os.Args[2:])
	case "agents":
		runAgents(os.Args[2:])
	case "health":
		runHealth(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// commonFlags are shared by every subcommand that talks to the registry.
type commonFlags struct {
	configPath  string
	registryURL string
	jsonOut     bool
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	flags := &commonFlags{}
	fs.StringVar(&flags.configPath, "config", "", "Path to YAML config file")
	fs.StringVar(&flags.registryURL, "registry", "", "Registry base URL (overrides config)")
	fs.BoolVar(&flags.jsonOut, "json", false, "Print machine-readable JSON")
	return flags
}

func runDiscover(args []string) {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	flags := addCommonFlags(fs)
	limit := fs.Int("limit", 0, "Maximum number of recommendations (0 = config default)")
	minScore := fs.Float64("min-score", -1, "Minimum recommendation score (negative = config default)")
	status := fs.String("status", "", "Keep only agents with this status")
	domain := fs.String("domain", "", "Keep only agents in this domain")
	exclude := fs.String("exclude", "", "Comma-separated agent ids to drop from results")
	fs.Parse(args)

	task := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if task == "" {
		fmt.Fprintln(os.Stderr, `Usage: agentscout discover [options] "<task description>"`)
		os.Exit(1)
	}

	cfg := loadConfig(flags)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	shutdown := initTelemetry(cfg, logger)
	defer shutdown()

	engine, cleanup := newEngine(cfg, logger)
	defer cleanup()

	opts := make([]discovery.DiscoverOption, 0, 3)
	if *limit > 0 {
		opts = append(opts, discovery.WithLimit(*limit))
	}
	if *minScore >= 0 {
		opts = append(opts, discovery.WithMinScore(*minScore))
	}
	filters := discovery.Filters{
		Status: discovery.AgentStatus(*status),
		Domain: *domain,
	}
	if *exclude != "" {
		filters.ExcludeAgents = splitList(*exclude)
	}
	if filters.Status != "" || filters.Domain != "" || len(filters.ExcludeAgents) > 0 {
		opts = append(opts, discovery.WithFilters(filters))
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	result, err := engine.DiscoverAgents(ctx, task, opts...)
	if err != nil {
		logger.Error("Discovery failed", zap.Error(err))
		os.Exit(1)
	}

	if flags.jsonOut {
		printJSON(result)
		return
	}
	fmt.Println(discovery.ExplainRecommendations(result))
}

func runSimilar(args []string) {
	fs := flag.NewFlagSet("similar", flag.ExitOnError)
	flags := addCommonFlags(fs)
	limit := fs.Int("limit", 0, "Maximum number of similar agents (0 = config default)")
	fs.Parse(args)

	agentID := strings.TrimSpace(fs.Arg(0))
	if agentID == "" {
		fmt.Fprintln(os.Stderr, "Usage: agentscout similar [options] <agent-id>")
		os.Exit(1)
	}

	cfg := loadConfig(flags)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	shutdown := initTelemetry(cfg, logger)
	defer shutdown()

	engine, cleanup := newEngine(cfg, logger)
	defer cleanup()

	n := *limit
	if n <= 0 {
		n = cfg.Discovery.Limit
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	scores, err := engine.GetSimilarAgents(ctx, agentID, n)
	if err != nil {
		logger.Error("Similarity lookup failed", zap.String("agent_id", agentID), zap.Error(err))
		os.Exit(1)
	}

	if flags.jsonOut {
		printJSON(scores)
		return
	}
	if len(scores) == 0 {
		fmt.Printf("No agents similar to %s found.\n", agentID)
		return
	}
	fmt.Printf("Agents similar to %s:\n\n", agentID)
	for i, score := range scores {
		fmt.Printf("%d. %s (score %.2f, confidence %.2f)\n", i+1, score.AgentID, score.Score, score.Confidence)
		if len(score.MatchReasons) > 0 {
			fmt.Printf("   %s\n", strings.Join(score.MatchReasons, "; "))
		}
	}
}

func runAgents(args []string) {
	fs := flag.NewFlagSet("agents", flag.ExitOnError)
	flags := addCommonFlags(fs)
	fs.Parse(args)

	cfg := loadConfig(flags)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	client := newRegistryClient(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	agents, err := client.ListAgents(ctx)
	if err != nil {
		logger.Error("Failed to list agents", zap.Error(err))
		os.Exit(1)
	}

	if flags.jsonOut {
		printJSON(agents)
		return
	}
	fmt.Printf("%-32s %-16s %-12s %s\n", "AGENT ID", "DOMAIN", "STATUS", "CAPABILITIES")
	for _, agent := range agents {
		fmt.Printf("%-32s %-16s %-12s %d\n",
			orDash(agent.AgentID), orDash(agent.Domain), orDash(string(agent.Status)), len(agent.Capabilities))
	}
	fmt.Printf("\n%d agents registered\n", len(agents))
}

func runHealth(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	flags := addCommonFlags(fs)
	fs.Parse(args)

	cfg := loadConfig(flags)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	client := newRegistryClient(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Both probes run to completion so the report covers every target.
	var registryErr, redisErr error
	var g errgroup.Group
	g.Go(func() error {
		registryErr = client.Health(ctx)
		return registryErr
	})
	if cfg.Redis.Enabled {
		g.Go(func() error {
			redisErr = pingRedis(ctx, cfg.Redis, logger)
			return redisErr
		})
	}
	_ = g.Wait()

	failed := false
	if registryErr != nil {
		failed = true
		fmt.Printf("registry  %s: %v\n", client.BaseURL(), registryErr)
	} else {
		fmt.Printf("registry  %s: ok\n", client.BaseURL())
	}
	switch {
	case !cfg.Redis.Enabled:
		fmt.Println("redis     disabled (skipped)")
	case redisErr != nil:
		failed = true
		fmt.Printf("redis     %s: %v\n", cfg.Redis.Addr, redisErr)
	default:
		fmt.Printf("redis     %s: ok\n", cfg.Redis.Addr)
	}

	if failed {
		os.Exit(1)
	}
}

func pingRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) error {
	manager, err := cache.NewManager(cacheConfig(cfg), logger)
	if err != nil {
		return err
	}
	defer manager.Close()
	return manager.Ping(ctx)
}

// loadConfig resolves configuration and applies flag overrides. Errors here
// are fatal: nothing useful can run without a valid config.
func loadConfig(flags *commonFlags) *config.Config {
	loader := config.NewLoader()
	if flags.configPath != "" {
		loader = loader.WithConfigPath(flags.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if flags.registryURL != "" {
		cfg.Registry.BaseURL = flags.registryURL
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// initTelemetry starts trace and metric export when enabled. Failures are
// logged and ignored so the command still runs without an OTLP endpoint.
func initTelemetry(cfg *config.Config, logger *zap.Logger) func() {
	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("Failed to initialize telemetry", zap.Error(err))
		return func() {}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			logger.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}
}

func newRegistryClient(cfg *config.Config, logger *zap.Logger) *registry.Client {
	clientConfig := registry.DefaultClientConfig(cfg.Registry.BaseURL)
	if cfg.Registry.Timeout > 0 {
		clientConfig.Timeout = cfg.Registry.Timeout
	}
	if cfg.Registry.RetryDelay > 0 {
		clientConfig.RetryDelay = cfg.Registry.RetryDelay
	}
	clientConfig.RetryCount = cfg.Registry.RetryCount
	clientConfig.RateLimit = cfg.Registry.RateLimit
	clientConfig.RateBurst = cfg.Registry.RateBurst
	clientConfig.InsecureSkipVerify = cfg.Registry.Insecure
	return registry.NewClient(clientConfig, logger)
}

// newEngine wires the registry client, analyzer and performance store into a
// discovery engine. The returned cleanup releases the Redis connection when
// one was opened.
func newEngine(cfg *config.Config, logger *zap.Logger) (*discovery.Engine, func()) {
	client := newRegistryClient(cfg, logger)

	engineConfig := &discovery.EngineConfig{
		Weights:         scoringWeights(cfg.Discovery.Weights),
		DefaultLimit:    cfg.Discovery.Limit,
		DefaultMinScore: cfg.Discovery.MinScore,
	}
	engine := discovery.NewEngine(client, analyzer.NewTextAnalyzer(logger), engineConfig, logger)

	cleanup := func() {}
	if cfg.Redis.Enabled {
		manager, err := cache.NewManager(cacheConfig(cfg.Redis), logger)
		if err != nil {
			logger.Warn("Redis unavailable, falling back to in-memory performance store", zap.Error(err))
			engine.SetPerformanceProvider(perf.NewMemoryStore(logger))
		} else {
			store := perf.NewRedisStore(manager, logger)
			store.SetWriteThrough(perf.NewMemoryStore(logger))
			engine.SetPerformanceProvider(store)
			cleanup = func() { manager.Close() }
		}
	} else {
		engine.SetPerformanceProvider(perf.NewMemoryStore(logger))
	}
	return engine, cleanup
}

func scoringWeights(w config.WeightsConfig) discovery.Weights {
	return discovery.Weights{
		CapabilityMatch: w.Capability,
		DomainMatch:     w.Domain,
		KeywordMatch:    w.Keyword,
		Performance:     w.Performance,
		Availability:    w.Availability,
		Load:            w.Load,
	}
}

func cacheConfig(r config.RedisConfig) cache.Config {
	cacheCfg := cache.DefaultConfig()
	cacheCfg.Addr = r.Addr
	cacheCfg.Password = r.Password
	cacheCfg.DB = r.DB
	cacheCfg.TLS = r.TLS
	if r.DefaultTTL > 0 {
		cacheCfg.DefaultTTL = r.DefaultTTL
	}
	if r.PoolSize > 0 {
		cacheCfg.PoolSize = r.PoolSize
	}
	if r.MinIdleConns > 0 {
		cacheCfg.MinIdleConns = r.MinIdleConns
	}
	// One-shot commands have no use for a background ping loop.
	cacheCfg.HealthCheckInterval = 0
	return cacheCfg
}

// initLogger builds a zap logger from config. Command output owns stdout, so
// log paths pointing there are redirected to stderr.
func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputPaths := make([]string, 0, len(cfg.OutputPaths))
	for _, path := range cfg.OutputPaths {
		if path == "stdout" {
			path = "stderr"
		}
		outputPaths = append(outputPaths, path)
	}
	if len(outputPaths) == 0 {
		outputPaths = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         encoderOrJSON(cfg.Format),
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func encoderOrJSON(format string) string {
	if format == "console" {
		return "console"
	}
	return "json"
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("agentscout %s\n", Version)
	fmt.Printf("  Build time:  %s\n", BuildTime)
	fmt.Printf("  Git commit:  %s\n", GitCommit)
}

func printUsage() {
	fmt.Print(`agentscout - agent discovery and ranking

Usage:
  agentscout <command> [options] [arguments]

Commands:
  discover "<task>"   Rank registry agents for a task description
  similar <agent-id>  Find agents similar to a known agent
  agents              List every agent in the registry
  health              Probe the registry and, when enabled, Redis
  version             Show build information
  help                Show this message

Common options:
  --config <path>     YAML config file (env overrides still apply)
  --registry <url>    Registry base URL, overrides config
  --json              Machine-readable output on stdout

Examples:
  agentscout discover "translate legal contracts from German"
  agentscout discover --limit 3 --status available "review Go code"
  agentscout similar translator-de --limit 5
  agentscout agents --json | jq '.[].id'
  agentscout health --registry https://registry.chat39.com
`)
}
