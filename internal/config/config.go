// Package config provides the immutable configuration for the synthesis
// engine. The struct is built once at startup (environment variables with an
// optional YAML overlay) and passed into the engine at construction time;
// nothing mutates it afterwards.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`

	// Durable store
	TableName string `yaml:"table_name"`
	Region    string `yaml:"region"`

	// Remote model services
	GenAIAPIKey     string `yaml:"genai_api_key"`
	GenerationModel string `yaml:"generation_model"`
	EmbeddingModel  string `yaml:"embedding_model"`

	Synthesis Synthesis `yaml:"synthesis"`
}

// Synthesis holds every tunable of the scoring and acceptance policy. The
// weight and threshold literals from the scorer and diversity gate live here
// as named fields rather than scattered magic numbers.
type Synthesis struct {
	// Batch shape
	BatchSize        int `yaml:"batch_size"`
	WildcardInterval int `yaml:"wildcard_interval"` // every Nth slot is a wildcard
	CreativeInterval int `yaml:"creative_interval"` // every Nth non-wildcard slot is creative

	// Score weights; must sum to 1
	NoveltyWeight     float64 `yaml:"novelty_weight"`
	FeasibilityWeight float64 `yaml:"feasibility_weight"`
	InterestWeight    float64 `yaml:"interest_weight"`

	// Scoring constants
	NoveltyFloor        float64 `yaml:"novelty_floor"`        // minimum novelty for any known combination
	CreativeNovelty     float64 `yaml:"creative_novelty"`     // fixed novelty for capability-free ideas
	CreativeFeasibility float64 `yaml:"creative_feasibility"` // fixed feasibility for capability-free ideas

	// Diversity gate
	MaxAttempts             int     `yaml:"max_attempts"`
	RelaxAfterAttempts      int     `yaml:"relax_after_attempts"`
	HistoryThreshold        float64 `yaml:"history_threshold"`
	RelaxedHistoryThreshold float64 `yaml:"relaxed_history_threshold"`
	BatchThreshold          float64 `yaml:"batch_threshold"`
	HistoryLimit            int     `yaml:"history_limit"`

	// Interest alignment
	AlignmentSampleLimit int `yaml:"alignment_sample_limit"`
	PromptInterestLimit  int `yaml:"prompt_interest_limit"`

	Selection Selection `yaml:"selection"`
}

// Selection holds the capability selection policy. The proportions are a
// default policy, not a contract; retuning them is expected.
type Selection struct {
	TwoProbability      float64 `yaml:"two_probability"`      // P(k=2)
	ThreeProbability    float64 `yaml:"three_probability"`    // P(k=3); remainder goes to k=4
	WeightedProbability float64 `yaml:"weighted_probability"` // strength-weighted vs uniform sampling
	NovelComboCutoff    float64 `yaml:"novel_combo_cutoff"`   // strength ceiling for the novel-combo wildcard
}

// DefaultSynthesis returns the documented default policy.
func DefaultSynthesis() Synthesis {
	return Synthesis{
		BatchSize:               3,
		WildcardInterval:        3,
		CreativeInterval:        3,
		NoveltyWeight:           0.3,
		FeasibilityWeight:       0.4,
		InterestWeight:          0.3,
		NoveltyFloor:            0.1,
		CreativeNovelty:         0.8,
		CreativeFeasibility:     0.9,
		MaxAttempts:             10,
		RelaxAfterAttempts:      7,
		HistoryThreshold:        0.85,
		RelaxedHistoryThreshold: 0.90,
		BatchThreshold:          0.75,
		HistoryLimit:            100,
		AlignmentSampleLimit:    50,
		PromptInterestLimit:     10,
		Selection: Selection{
			TwoProbability:      0.4,
			ThreeProbability:    0.3,
			WeightedProbability: 0.6,
			NovelComboCutoff:    5.0,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file named
// by POLYMATH_CONFIG_FILE, and environment variables, in increasing
// priority.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:     "development",
		LogLevel:        "info",
		TableName:       "polymath-dev",
		Region:          "us-east-1",
		GenerationModel: "gemini-2.0-flash",
		EmbeddingModel:  "gemini-embedding-001",
		Synthesis:       DefaultSynthesis(),
	}

	if path := os.Getenv("POLYMATH_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Environment, "ENVIRONMENT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.TableName, "TABLE_NAME")
	setString(&cfg.Region, "AWS_REGION")
	setString(&cfg.GenAIAPIKey, "GENAI_API_KEY")
	setString(&cfg.GenerationModel, "GENERATION_MODEL")
	setString(&cfg.EmbeddingModel, "EMBEDDING_MODEL")

	setInt(&cfg.Synthesis.BatchSize, "SYNTHESIS_BATCH_SIZE")
	setInt(&cfg.Synthesis.MaxAttempts, "SYNTHESIS_MAX_ATTEMPTS")
	setInt(&cfg.Synthesis.HistoryLimit, "SYNTHESIS_HISTORY_LIMIT")
	setFloat(&cfg.Synthesis.HistoryThreshold, "SYNTHESIS_HISTORY_THRESHOLD")
	setFloat(&cfg.Synthesis.BatchThreshold, "SYNTHESIS_BATCH_THRESHOLD")
}

func setString(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func setInt(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*target = parsed
		}
	}
}

func setFloat(target *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*target = parsed
		}
	}
}

// Validate checks internal consistency of the policy values.
func (c *Config) Validate() error {
	s := c.Synthesis
	if s.BatchSize < 1 {
		return fmt.Errorf("synthesis batch size must be at least 1, got %d", s.BatchSize)
	}
	if s.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", s.MaxAttempts)
	}
	if s.RelaxAfterAttempts > s.MaxAttempts {
		return fmt.Errorf("relax_after_attempts (%d) exceeds max_attempts (%d)", s.RelaxAfterAttempts, s.MaxAttempts)
	}
	weightSum := s.NoveltyWeight + s.FeasibilityWeight + s.InterestWeight
	if math.Abs(weightSum-1.0) > 1e-9 {
		return fmt.Errorf("score weights must sum to 1.0, got %.4f", weightSum)
	}
	for name, v := range map[string]float64{
		"history_threshold":         s.HistoryThreshold,
		"relaxed_history_threshold": s.RelaxedHistoryThreshold,
		"batch_threshold":           s.BatchThreshold,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %.4f", name, v)
		}
	}
	if s.RelaxedHistoryThreshold < s.HistoryThreshold {
		return fmt.Errorf("relaxed history threshold (%.2f) must not be stricter than the base threshold (%.2f)",
			s.RelaxedHistoryThreshold, s.HistoryThreshold)
	}
	if p := s.Selection.TwoProbability + s.Selection.ThreeProbability; p > 1 {
		return fmt.Errorf("selection probabilities for k=2 and k=3 sum to %.2f, above 1", p)
	}
	return nil
}

// IsProduction reports whether the configuration targets production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
