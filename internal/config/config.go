// Package config loads the Judge subsystem's runtime configuration:
// LLM provider selection, per-tier timeouts and budgets, composite
// weights and thresholds, and trace-adapter excerpt limits.
//
// Loading follows station's internal/config pattern: InitViper reads an
// optional YAML file and registers AutomaticEnv plus explicit BindEnv
// calls. Load takes only the API keys from viper; every other setting
// comes from its JUDGE_-prefixed environment variable through the
// getEnvOrDefault-style helpers, or from a built-in default, so values
// for those settings in a YAML file are not applied.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Tier1Config controls the lexical/semantic similarity engine.
type Tier1Config struct {
	TaskSuccessThreshold float64 // default 0.8
	SemanticWeight       float64 // default 0.4
	CosineWeight         float64 // default 0.3
	JaccardWeight        float64 // default 0.2
	TimeWeight           float64 // default 0.1
}

// Tier2Config controls the LLM judge engine.
type Tier2Config struct {
	Provider           string // "auto", "anthropic", "openai", "gemini"
	FallbackProvider    string
	AssessmentTimeoutSeconds int // default 30
	ExcerptChars             int // default 2000, paper truncation
}

// Tier3Config controls the graph analysis engine.
type Tier3Config struct {
	CentralityWeight      float64 // default 0.25
	ToolAccuracyWeight     float64 // default 0.25
	PathConvergenceWeight  float64 // default 0.25
	DistributionWeight     float64 // default 0.25
}

// OrchestratorConfig controls the plugin registry's dispatch behavior.
type OrchestratorConfig struct {
	EnabledTiers       []int   // default [1,2,3]
	Tier1MaxSeconds    float64 // default 10
	Tier2MaxSeconds    float64 // default 45
	Tier3MaxSeconds    float64 // default 10
	TotalMaxSeconds    float64 // default 90
	FallbackStrategy   string  // default "tier1_only"
	MaxAgentOutputBytes int    // default 100_000
	MaxReferenceTexts   int    // default 10
	MaxPaperExcerptBytes int   // default 50_000
	MaxReviewBytes       int   // default 50_000
}

// CompositeConfig controls metric weights and recommendation thresholds.
type CompositeConfig struct {
	AcceptThreshold     float64 // default 0.8
	WeakAcceptThreshold float64 // default 0.6
	WeakRejectThreshold float64 // default 0.4
}

// Config is the Judge subsystem's full runtime configuration.
type Config struct {
	Debug bool

	AnthropicAPIKey string
	OpenAIAPIKey    string
	GeminiAPIKey    string

	Tier1        Tier1Config
	Tier2        Tier2Config
	Tier3        Tier3Config
	Orchestrator OrchestratorConfig
	Composite    CompositeConfig
}

// InitViper initializes viper to read config from the correct location.
// Must be called before Load() for explicit config-file discovery.
func InitViper(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if cwd, err := os.Getwd(); err == nil {
			viper.AddConfigPath(cwd)
		}
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "judge"))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("judge")
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "[CONFIG] Using config file: %s\n", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		return fmt.Errorf("reading config file %q: %w", cfgFile, err)
	}

	viper.AutomaticEnv()

	viper.BindEnv("debug", "JUDGE_DEBUG")
	viper.BindEnv("anthropic_api_key", "ANTHROPIC_API_KEY", "JUDGE_ANTHROPIC_API_KEY")
	viper.BindEnv("openai_api_key", "OPENAI_API_KEY", "JUDGE_OPENAI_API_KEY")
	viper.BindEnv("gemini_api_key", "GEMINI_API_KEY", "GOOGLE_API_KEY", "JUDGE_GEMINI_API_KEY")

	viper.BindEnv("tier2.provider", "JUDGE_TIER2_PROVIDER")
	viper.BindEnv("tier2.fallback_provider", "JUDGE_TIER2_FALLBACK_PROVIDER")
	viper.BindEnv("tier2.assessment_timeout_seconds", "JUDGE_TIER2_TIMEOUT_SECONDS")
	viper.BindEnv("tier2.excerpt_chars", "JUDGE_TIER2_EXCERPT_CHARS")

	viper.BindEnv("orchestrator.enabled_tiers", "JUDGE_ENABLED_TIERS")
	viper.BindEnv("orchestrator.tier1_max_seconds", "JUDGE_TIER1_MAX_SECONDS")
	viper.BindEnv("orchestrator.tier2_max_seconds", "JUDGE_TIER2_MAX_SECONDS")
	viper.BindEnv("orchestrator.tier3_max_seconds", "JUDGE_TIER3_MAX_SECONDS")
	viper.BindEnv("orchestrator.total_max_seconds", "JUDGE_TOTAL_MAX_SECONDS")
	viper.BindEnv("orchestrator.fallback_strategy", "JUDGE_FALLBACK_STRATEGY")

	viper.BindEnv("composite.accept_threshold", "JUDGE_ACCEPT_THRESHOLD")
	viper.BindEnv("composite.weak_accept_threshold", "JUDGE_WEAK_ACCEPT_THRESHOLD")
	viper.BindEnv("composite.weak_reject_threshold", "JUDGE_WEAK_REJECT_THRESHOLD")

	return nil
}

// Load builds a Config from judge-scoped defaults. The API keys are read
// through viper (config file or env bindings) with a direct environment
// fallback; the remaining settings that have a JUDGE_* variable read it
// directly, and the rest (Tier 1 and Tier 3 weights, enabled tiers,
// input size limits) are fixed defaults.
func Load() *Config {
	cfg := &Config{
		Debug: getEnvBoolOrDefault("JUDGE_DEBUG", false),

		AnthropicAPIKey: firstNonEmpty(viper.GetString("anthropic_api_key"), os.Getenv("ANTHROPIC_API_KEY")),
		OpenAIAPIKey:    firstNonEmpty(viper.GetString("openai_api_key"), os.Getenv("OPENAI_API_KEY")),
		GeminiAPIKey:    firstNonEmpty(viper.GetString("gemini_api_key"), os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY")),

		Tier1: Tier1Config{
			TaskSuccessThreshold: 0.8,
			SemanticWeight:       0.4,
			CosineWeight:         0.3,
			JaccardWeight:        0.2,
			TimeWeight:           0.1,
		},
		Tier2: Tier2Config{
			Provider:                 getEnvOrDefault("JUDGE_TIER2_PROVIDER", "auto"),
			FallbackProvider:         getEnvOrDefault("JUDGE_TIER2_FALLBACK_PROVIDER", "openai"),
			AssessmentTimeoutSeconds: getEnvIntOrDefault("JUDGE_TIER2_TIMEOUT_SECONDS", 30),
			ExcerptChars:             getEnvIntOrDefault("JUDGE_TIER2_EXCERPT_CHARS", 2000),
		},
		Tier3: Tier3Config{
			CentralityWeight:     0.25,
			ToolAccuracyWeight:    0.25,
			PathConvergenceWeight: 0.25,
			DistributionWeight:    0.25,
		},
		Orchestrator: OrchestratorConfig{
			EnabledTiers:         []int{1, 2, 3},
			Tier1MaxSeconds:      getEnvFloatOrDefault("JUDGE_TIER1_MAX_SECONDS", 10),
			Tier2MaxSeconds:      getEnvFloatOrDefault("JUDGE_TIER2_MAX_SECONDS", 45),
			Tier3MaxSeconds:      getEnvFloatOrDefault("JUDGE_TIER3_MAX_SECONDS", 10),
			TotalMaxSeconds:      getEnvFloatOrDefault("JUDGE_TOTAL_MAX_SECONDS", 90),
			FallbackStrategy:     getEnvOrDefault("JUDGE_FALLBACK_STRATEGY", "tier1_only"),
			MaxAgentOutputBytes:  100_000,
			MaxReferenceTexts:    10,
			MaxPaperExcerptBytes: 50_000,
			MaxReviewBytes:       50_000,
		},
		Composite: CompositeConfig{
			AcceptThreshold:     getEnvFloatOrDefault("JUDGE_ACCEPT_THRESHOLD", 0.8),
			WeakAcceptThreshold: getEnvFloatOrDefault("JUDGE_WEAK_ACCEPT_THRESHOLD", 0.6),
			WeakRejectThreshold: getEnvFloatOrDefault("JUDGE_WEAK_REJECT_THRESHOLD", 0.4),
		},
	}
	return cfg
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBoolOrDefault(key string, def bool) bool {
	v := strings.ToLower(os.Getenv(key))
	switch v {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return def
	}
}

func getEnvIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloatOrDefault(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
