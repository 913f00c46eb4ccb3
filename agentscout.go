// Package agentscout provides a top-level convenience entry point for
// building a discovery engine with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/agentscout"
//
//	engine, err := agentscout.New()
//	engine, err := agentscout.New(agentscout.WithRegistryURL("https://registry.chat39.com"))
//	engine, err := agentscout.New(agentscout.WithRegistry(myRegistry), agentscout.WithLogger(logger))
//
// Without options the engine talks to the public registry with the default
// weight partition. Anything [New] does can also be assembled by hand from
// the discovery, registry and analyzer packages.
package agentscout

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/agentscout/analyzer"
	"github.com/BaSui01/agentscout/discovery"
	"github.com/BaSui01/agentscout/registry"
)

// Option configures the engine created by [New].
type Option func(*options)

type options struct {
	registryURL string
	registry    discovery.Registry
	analyzer    discovery.TaskAnalyzer
	performance discovery.PerformanceProvider
	logger      *zap.Logger
	config      *discovery.EngineConfig
	weights     *discovery.Weights
}

// WithRegistryURL points the engine at a registry base URL. Ignored when
// WithRegistry supplies a pre-built registry.
func WithRegistryURL(url string) Option {
	return func(o *options) { o.registryURL = url }
}

// WithRegistry sets a pre-built registry, such as a caching wrapper or a
// test double. Takes precedence over WithRegistryURL.
func WithRegistry(r discovery.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithAnalyzer replaces the built-in keyword analyzer.
func WithAnalyzer(a discovery.TaskAnalyzer) Option {
	return func(o *options) { o.analyzer = a }
}

// WithPerformance wires a performance snapshot source, such as
// perf.NewMemoryStore or perf.NewRedisStore.
func WithPerformance(p discovery.PerformanceProvider) Option {
	return func(o *options) { o.performance = p }
}

// WithLogger sets a custom zap logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithConfig sets the full engine configuration. WithWeights still applies
// on top of it.
func WithConfig(config *discovery.EngineConfig) Option {
	return func(o *options) { o.config = config }
}

// WithWeights overrides the scoring weight partition. The weights must be
// non-negative and sum to 1.0.
func WithWeights(weights discovery.Weights) Option {
	return func(o *options) { o.weights = &weights }
}

// New creates a [discovery.Engine] with minimal configuration.
func New(opts ...Option) (*discovery.Engine, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	reg := o.registry
	if reg == nil {
		reg = registry.NewClient(registry.DefaultClientConfig(o.registryURL), o.logger)
	}

	taskAnalyzer := o.analyzer
	if taskAnalyzer == nil {
		taskAnalyzer = analyzer.NewTextAnalyzer(o.logger)
	}

	config := o.config
	if config == nil {
		config = discovery.DefaultEngineConfig()
	}
	if o.weights != nil {
		if err := o.weights.Validate(); err != nil {
			return nil, fmt.Errorf("agentscout: invalid weights: %w", err)
		}
		config.Weights = *o.weights
	}

	engine := discovery.NewEngine(reg, taskAnalyzer, config, o.logger)
	if o.performance != nil {
		engine.SetPerformanceProvider(o.performance)
	}
	return engine, nil
}
