package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bouyassine11/AnalytIQ/internal/ai"
	"github.com/bouyassine11/AnalytIQ/internal/charts"
	cfgpkg "github.com/bouyassine11/AnalytIQ/internal/config"
	"github.com/bouyassine11/AnalytIQ/internal/insight"
	"github.com/bouyassine11/AnalytIQ/internal/jobs"
	"github.com/bouyassine11/AnalytIQ/internal/pipeline"
	"github.com/bouyassine11/AnalytIQ/internal/store"
)

type runtimeOptions struct {
	ProviderFlag string
	ModelFlag    string
	OllamaHost   string
}

// apiKeyEnv lists the provider-specific variables consulted before api_key.
var apiKeyEnv = map[string]string{
	ai.ProviderHuggingFace: "HUGGINGFACE_API_KEY",
	ai.ProviderOpenRouter:  "OPENROUTER_API_KEY",
}

// buildRuntime returns the text generation runtime for the configured
// provider. The "none" provider yields a nil runtime.
func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	httpTimeout := 60 * time.Second
	retryMax := 3
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if cfg != nil {
		if cfg.HTTPTimeoutSec > 0 {
			httpTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
		}
		if cfg.RetryMaxAttempts > 0 {
			retryMax = cfg.RetryMaxAttempts
		}
		if cfg.RetryBaseDelayMs > 0 {
			baseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
		}
		if cfg.RetryMaxDelayMs > 0 {
			maxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
		}
	}

	providerName := strings.TrimSpace(opts.ProviderFlag)
	if providerName == "" && cfg != nil {
		providerName = cfg.InsightProvider
	}
	providerName = ai.NormalizeProvider(strings.TrimSpace(providerName))
	if providerName == ai.ProviderNone {
		return nil, providerName, nil
	}

	apiKey := os.Getenv(apiKeyEnv[providerName])
	if apiKey == "" && cfg != nil {
		apiKey = cfg.APIKey
	}

	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		APIKey:      apiKey,
	}
	if providerName == ai.ProviderOllama {
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" && cfg != nil {
			host = cfg.OllamaHost
		}
		if host == "" {
			host = ai.DefaultOllamaHost
		}
		rc.Host = host
	}

	client, ok := ai.GetRuntime(providerName, rc)
	if !ok {
		return nil, providerName, fmt.Errorf("provider not supported: %s", providerName)
	}
	return client, providerName, nil
}

func selectModel(cfg *cfgpkg.Global, provider, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.InsightModel != "" {
		return cfg.InsightModel
	}
	return ai.DefaultModel(provider)
}

// newGenerator wires the runtime into an insight.Generator. A nil generator
// means every summary uses the fallback text.
func newGenerator(cfg *cfgpkg.Global, opts runtimeOptions) (insight.Generator, error) {
	rt, provider, err := buildRuntime(cfg, opts)
	if err != nil || rt == nil {
		return nil, err
	}
	g := &insight.RuntimeGenerator{
		Runtime:     rt,
		Model:       selectModel(cfg, provider, opts.ModelFlag),
		MaxTokens:   500,
		Temperature: 0.7,
	}
	if cfg != nil {
		if cfg.MaxTokens > 0 {
			g.MaxTokens = cfg.MaxTokens
		}
		if cfg.Temperature > 0 {
			g.Temperature = cfg.Temperature
		}
	}
	logger.Debug("insight generator configured", zap.String("provider", provider), zap.String("model", g.Model))
	return g, nil
}

func insightTimeout(cfg *cfgpkg.Global) time.Duration {
	if cfg != nil && cfg.InsightTimeoutSec > 0 {
		return time.Duration(cfg.InsightTimeoutSec) * time.Second
	}
	return insight.DefaultTimeout
}

func newPipeline(cfg *cfgpkg.Global, gen insight.Generator) *pipeline.Pipeline {
	ins := insight.New(gen,
		insight.WithTimeout(insightTimeout(cfg)),
		insight.WithPromptTokens(ai.ContextWindow(generatorModel(gen))/4),
		insight.WithLogger(logger))
	return pipeline.New(charts.NewStage(nil, logger), ins, logger)
}

func generatorModel(gen insight.Generator) string {
	if g, ok := gen.(*insight.RuntimeGenerator); ok {
		return g.Model
	}
	return ""
}

// openStore returns the configured job store and a function releasing it.
func openStore(ctx context.Context, cfg *cfgpkg.Global) (jobs.Store, func() error, error) {
	noop := func() error { return nil }
	driver := strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	switch driver {
	case "", "file":
		s, err := store.NewFile(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case "memory":
		return store.NewMemory(), noop, nil
	case "sqlite3":
		driver = store.DriverSQLite
		fallthrough
	case store.DriverPostgres, store.DriverSQLite:
		if cfg.StoreDSN == "" {
			return nil, nil, fmt.Errorf("store_dsn is required for store_driver %s", driver)
		}
		s, err := store.OpenSQL(ctx, driver, cfg.StoreDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store_driver: %s (use memory, file, postgres or sqlite)", cfg.StoreDriver)
}

func newService(cfg *cfgpkg.Global, st jobs.Store, gen insight.Generator, workers int) *jobs.Service {
	if workers <= 0 {
		workers = cfg.Workers
	}
	return jobs.NewService(st, newPipeline(cfg, gen),
		jobs.WithWorkers(workers),
		jobs.WithLogger(logger),
		jobs.WithGenerator(gen),
		jobs.WithChatTimeout(insightTimeout(cfg)))
}
