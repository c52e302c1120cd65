package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdj555/job-engine/internal/ai"
	"github.com/pdj555/job-engine/internal/ai/gemini"
	"github.com/pdj555/job-engine/internal/engine"
	"github.com/pdj555/job-engine/internal/logger"
	"github.com/pdj555/job-engine/internal/memory"
	"github.com/pdj555/job-engine/internal/opportunity"
	"github.com/pdj555/job-engine/internal/ranking"
	"github.com/pdj555/job-engine/internal/search"
	"github.com/pdj555/job-engine/internal/secrets"
)

// buildEngine assembles the pipeline from config. Providers whose credentials
// do not resolve are skipped with a warning; the engine fails later with a
// no-results error only if nothing is left.
func buildEngine(ctx context.Context, config *Config, log *zap.Logger) (*engine.Engine, []string, error) {
	if config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	providers, perplexity := buildProviders(config, log)

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	if len(names) == 0 {
		log.Warn("no search provider credentials resolved",
			zap.String("hint", "set BRAVE_API_KEY_FILE or PERPLEXITY_API_KEY_FILE"),
		)
	}

	aggregator := search.NewAggregator(providers, log)

	extractor, generator := buildExtractor(ctx, config, log)

	var researcher engine.Researcher
	if perplexity != nil {
		researcher = perplexity
	}

	mem := buildMemory(ctx, config, generator, log)

	cfg := engine.Config{
		Ranking: ranking.Config{
			OfficePenalty:      config.Ranking.OfficePenalty,
			DefaultWeeklyHours: config.Ranking.DefaultWeeklyHours,
		},
		Concurrency:  config.Search.Concurrency,
		Limit:        config.Search.Limit,
		ResearchTopN: config.Research.TopN,
	}

	return engine.New(aggregator, extractor, researcher, mem, cfg, log), names, nil
}

// buildProviders resolves credentials and instantiates providers in the
// configured priority order. The perplexity client is returned separately
// because it doubles as the deep-research backend.
func buildProviders(config *Config, log *zap.Logger) ([]search.Provider, *search.Perplexity) {
	sec := config.Secrets
	if sec == nil {
		sec = &SecretsConfig{}
	}

	var perplexity *search.Perplexity
	var providers []search.Provider

	for _, name := range config.Providers {
		switch name {
		case "brave":
			token, err := secrets.Load(secrets.Source{
				Name: "brave api key",
				File: sec.BraveAPIKeyFile,
			})
			if err != nil {
				log.Warn("skipping brave provider", zap.Error(err))
				continue
			}
			providers = append(providers, search.NewBrave(token, log))

		case "perplexity":
			token, err := secrets.Load(secrets.Source{
				Name: "perplexity api key",
				File: sec.PerplexityAPIKeyFile,
			})
			if err != nil {
				log.Warn("skipping perplexity provider", zap.Error(err))
				continue
			}
			perplexity = search.NewPerplexity(token, log)
			providers = append(providers, perplexity)

		default:
			log.Warn("unknown provider in config", zap.String("provider", name))
		}
	}

	return providers, perplexity
}

func buildExtractor(ctx context.Context, config *Config, log *zap.Logger) (ai.Extractor, *gemini.Generator) {
	aiCfg := config.AI
	if aiCfg == nil {
		aiCfg = &AIConfig{}
	}

	sec := config.Secrets
	if sec == nil {
		sec = &SecretsConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: sec.GeminiAPIKeyFile,
	})
	if err != nil {
		log.Warn("extraction disabled", zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY_FILE to enable structured extraction"),
		)
		return nil, nil
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, aiCfg.Model)
	if err != nil {
		log.Warn("extraction disabled", zap.Error(err))
		return nil, nil
	}

	extractorLogger := logger.WithCommonFields(log, "gemini", generator.Model())
	return gemini.NewExtractor(generator, aiCfg.MaxRetries, aiCfg.MaxLogLength, extractorLogger), generator
}

func buildMemory(ctx context.Context, config *Config, embedder memory.Embedder, log *zap.Logger) *memory.Memory {
	memCfg := config.Memory
	if memCfg == nil || !memCfg.Enabled || memCfg.RedisURL == "" {
		return nil
	}
	if embedder == nil {
		log.Warn("memory disabled", zap.String("reason", "no embedding provider configured"))
		return nil
	}

	store, err := memory.NewRedisStore(ctx, memCfg.RedisURL)
	if err != nil {
		// Unavailable store degrades to no-memory mode, never aborts.
		log.Warn("memory disabled", zap.Error(err))
		return nil
	}

	return memory.New(store, embedder, memCfg.SimilarityThreshold, log)
}

func loadProfile(config *Config, path string, log *zap.Logger) *opportunity.Profile {
	if path == "" {
		path = config.ProfileFile
	}

	profile, err := opportunity.LoadProfile(path)
	if err != nil {
		log.Debug("no profile loaded, using defaults", zap.String("path", path), zap.Error(err))
		return opportunity.DefaultProfile()
	}

	log.Info("loaded profile",
		zap.String("path", path),
		zap.Int("min_income", profile.MinIncome),
		zap.Int("max_hours_weekly", profile.MaxHoursWeekly),
	)
	return profile
}
