package cmd

import (
	"context"
	"errors"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdj555/job-engine/internal/ranking"
)

const (
	app = "job-engine"
)

type Config struct {
	// Providers lists enabled search providers in priority order. The order
	// decides which duplicate of a URL survives deduplication.
	Providers   []string        `mapstructure:"providers"`
	ProfileFile string          `mapstructure:"profile-file"`
	Secrets     *SecretsConfig  `mapstructure:"secrets"`
	AI          *AIConfig       `mapstructure:"ai"`
	Ranking     *RankingConfig  `mapstructure:"ranking"`
	Search      *SearchConfig   `mapstructure:"search"`
	Research    *ResearchConfig `mapstructure:"research"`
	Memory      *MemoryConfig   `mapstructure:"memory"`
	API         *APIConfig      `mapstructure:"api"`
}

type SecretsConfig struct {
	BraveAPIKeyFile      string `mapstructure:"brave-api-key-file"`
	PerplexityAPIKeyFile string `mapstructure:"perplexity-api-key-file"`
	GeminiAPIKeyFile     string `mapstructure:"gemini-api-key-file"`
}

type AIConfig struct {
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type RankingConfig struct {
	OfficePenalty      float64 `mapstructure:"office-penalty"`
	DefaultWeeklyHours float64 `mapstructure:"default-weekly-hours"`
}

type SearchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	Limit       int `mapstructure:"limit"`
}

type ResearchConfig struct {
	TopN int `mapstructure:"top-n"`
}

type MemoryConfig struct {
	Enabled             bool    `mapstructure:"enabled"`
	RedisURL            string  `mapstructure:"redis-url"`
	SimilarityThreshold float64 `mapstructure:"similarity-threshold"`
}

type APIConfig struct {
	Port int `mapstructure:"port"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "job-engine finds income opportunities and ranks them by $/hour",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"secrets.brave-api-key-file":      "BRAVE_API_KEY_FILE",
		"secrets.perplexity-api-key-file": "PERPLEXITY_API_KEY_FILE",
		"secrets.gemini-api-key-file":     "GEMINI_API_KEY_FILE",
		"memory.redis-url":                "REDIS_URL",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is job-engine.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().Duration("timeout", 0, "deadline for one pipeline run, e.g. 2m (0 disables)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
}

// commandContext returns the context bounding one pipeline run. With
// --timeout set the search, extraction, and research calls all inherit the
// deadline.
func commandContext() (context.Context, context.CancelFunc) {
	if d := viper.GetDuration("timeout"); d > 0 {
		return context.WithTimeout(context.Background(), d)
	}
	return context.WithCancel(context.Background())
}

func initConfig() {
	viper.SetDefault("providers", []string{"brave", "perplexity"})
	viper.SetDefault("profile-file", "job-engine.profile.yaml")
	// Ranking defaults are applied here, at config load: the ranking package
	// honors an explicit zero penalty.
	viper.SetDefault("ranking.office-penalty", ranking.DefaultOfficePenalty)
	viper.SetDefault("ranking.default-weekly-hours", ranking.DefaultWeeklyHoursAssumed)
	viper.SetDefault("search.concurrency", 5)
	viper.SetDefault("search.limit", 20)
	viper.SetDefault("research.top-n", 5)
	viper.SetDefault("memory.similarity-threshold", 0.92)
	viper.SetDefault("api.port", 8080)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional: every key has a default or an env binding.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return config, err
	}

	return config, nil
}
