// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
	Trust  TrustConfig  `yaml:"trust" mapstructure:"trust"`
	Gate   GateConfig   `yaml:"gate" mapstructure:"gate"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RatePerSecond  float64  `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TrustConfig holds the thresholds driving pattern matching, seniority
// scoring, auto-submit eligibility and batch clustering.
type TrustConfig struct {
	// Fuzzy matching.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`

	// Seniority promotion table.
	LearningMinOccurrences int     `yaml:"learning_min_occurrences" mapstructure:"learning_min_occurrences"`
	SeniorMinReviews       int     `yaml:"senior_min_reviews" mapstructure:"senior_min_reviews"`
	SeniorMinApprovals     int     `yaml:"senior_min_approvals" mapstructure:"senior_min_approvals"`
	SeniorMinRate          float64 `yaml:"senior_min_rate" mapstructure:"senior_min_rate"`
	ExpertMinReviews       int     `yaml:"expert_min_reviews" mapstructure:"expert_min_reviews"`
	ExpertMinApprovals     int     `yaml:"expert_min_approvals" mapstructure:"expert_min_approvals"`
	ExpertMinRate          float64 `yaml:"expert_min_rate" mapstructure:"expert_min_rate"`

	// Auto-submit eligibility.
	AutoSubmitMinOccurrences int     `yaml:"auto_submit_min_occurrences" mapstructure:"auto_submit_min_occurrences"`
	AutoSubmitMinApprovals   int     `yaml:"auto_submit_min_approvals" mapstructure:"auto_submit_min_approvals"`
	AutoSubmitMinRate        float64 `yaml:"auto_submit_min_rate" mapstructure:"auto_submit_min_rate"`
	AutoSubmitMinConfidence  float64 `yaml:"auto_submit_min_confidence" mapstructure:"auto_submit_min_confidence"`
	AutoSubmitWaitHours      int     `yaml:"auto_submit_wait_hours" mapstructure:"auto_submit_wait_hours"`

	// Confidence recency factor window.
	RecencyWindowDays int `yaml:"recency_window_days" mapstructure:"recency_window_days"`

	// Batch clustering.
	ClusterWindowDays     int `yaml:"cluster_window_days" mapstructure:"cluster_window_days"`
	ClusterMinSize        int `yaml:"cluster_min_size" mapstructure:"cluster_min_size"`
	SuggestionHighCount   int `yaml:"suggestion_high_count" mapstructure:"suggestion_high_count"`
	SuggestionMediumCount int `yaml:"suggestion_medium_count" mapstructure:"suggestion_medium_count"`
	SampleQuestionLimit   int `yaml:"sample_question_limit" mapstructure:"sample_question_limit"`
	ClusterConcurrency    int `yaml:"cluster_concurrency" mapstructure:"cluster_concurrency"`
}

// GateConfig holds the keyword lists and bounds for the conflict/risk gate.
// Lists are injected data, not hardcoded globals, so they stay testable and
// per-locale swappable.
type GateConfig struct {
	// Optional standalone YAML file overriding the keyword lists below.
	KeywordFile string `yaml:"keyword_file" mapstructure:"keyword_file"`

	LegalKeywords        []string `yaml:"legal_keywords" mapstructure:"legal_keywords"`
	HealthSafetyKeywords []string `yaml:"health_safety_keywords" mapstructure:"health_safety_keywords"`
	BrandKeywords        []string `yaml:"brand_keywords" mapstructure:"brand_keywords"`
	WarrantyKeywords     []string `yaml:"warranty_keywords" mapstructure:"warranty_keywords"`

	// Answers claiming a warranty longer than this are flagged for review.
	MaxWarrantyYears int `yaml:"max_warranty_years" mapstructure:"max_warranty_years"`
	// Snippet truncation bound for alert source excerpts.
	SnippetMaxLen int `yaml:"snippet_max_len" mapstructure:"snippet_max_len"`
	// Character window around a shared keyword for number comparison.
	NumberWindow int `yaml:"number_window" mapstructure:"number_window"`
}

// keywordFile is the on-disk shape of a standalone keyword list file.
type keywordFile struct {
	Legal        []string `yaml:"legal"`
	HealthSafety []string `yaml:"health_safety"`
	Brand        []string `yaml:"brand"`
	Warranty     []string `yaml:"warranty"`
}

// LoadKeywordFile reads a per-locale keyword list YAML file into cfg,
// replacing any list the file defines.
func (g *GateConfig) LoadKeywordFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "config: read keyword file %s", path)
	}
	var kf keywordFile
	if err := yaml.Unmarshal(data, &kf); err != nil {
		return eris.Wrapf(err, "config: parse keyword file %s", path)
	}
	if len(kf.Legal) > 0 {
		g.LegalKeywords = kf.Legal
	}
	if len(kf.HealthSafety) > 0 {
		g.HealthSafetyKeywords = kf.HealthSafety
	}
	if len(kf.Brand) > 0 {
		g.BrandKeywords = kf.Brand
	}
	if len(kf.Warranty) > 0 {
		g.WarrantyKeywords = kf.Warranty
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRUST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "trust-engine.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_per_second", 25.0)
	v.SetDefault("server.rate_burst", 50)

	v.SetDefault("trust.fuzzy_threshold", 0.70)
	v.SetDefault("trust.learning_min_occurrences", 3)
	v.SetDefault("trust.senior_min_reviews", 5)
	v.SetDefault("trust.senior_min_approvals", 5)
	v.SetDefault("trust.senior_min_rate", 0.80)
	v.SetDefault("trust.expert_min_reviews", 10)
	v.SetDefault("trust.expert_min_approvals", 10)
	v.SetDefault("trust.expert_min_rate", 0.90)
	v.SetDefault("trust.auto_submit_min_occurrences", 5)
	v.SetDefault("trust.auto_submit_min_approvals", 3)
	v.SetDefault("trust.auto_submit_min_rate", 0.90)
	v.SetDefault("trust.auto_submit_min_confidence", 0.85)
	v.SetDefault("trust.auto_submit_wait_hours", 72)
	v.SetDefault("trust.recency_window_days", 30)
	v.SetDefault("trust.cluster_window_days", 7)
	v.SetDefault("trust.cluster_min_size", 3)
	v.SetDefault("trust.suggestion_high_count", 15)
	v.SetDefault("trust.suggestion_medium_count", 8)
	v.SetDefault("trust.sample_question_limit", 5)
	v.SetDefault("trust.cluster_concurrency", 4)

	v.SetDefault("gate.max_warranty_years", 10)
	v.SetDefault("gate.snippet_max_len", 200)
	v.SetDefault("gate.number_window", 30)
	v.SetDefault("gate.legal_keywords", DefaultLegalKeywords())
	v.SetDefault("gate.health_safety_keywords", DefaultHealthSafetyKeywords())
	v.SetDefault("gate.brand_keywords", DefaultBrandKeywords())
	v.SetDefault("gate.warranty_keywords", DefaultWarrantyKeywords())

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.Gate.KeywordFile != "" {
		if err := cfg.Gate.LoadKeywordFile(cfg.Gate.KeywordFile); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// DefaultLegalKeywords returns the shipped Turkish/English legal-risk list.
func DefaultLegalKeywords() []string {
	return []string{
		"dava açacağım", "dava edeceğim", "avukat", "mahkeme", "savcılık",
		"tüketici hakem heyeti", "şikayet edeceğim", "tazminat",
		"lawsuit", "sue you", "lawyer", "attorney", "legal action",
	}
}

// DefaultHealthSafetyKeywords returns the shipped health/safety list.
func DefaultHealthSafetyKeywords() []string {
	return []string{
		"alerji", "alerjik", "zehirlenme", "hastane", "yaralandı",
		"doktor", "ilaç", "hamile", "bebek için zararlı",
		"allergic", "poisoning", "hospital", "injury", "toxic",
	}
}

// DefaultBrandKeywords returns the shipped brand-sensitive list consulted
// by the post-generation consistency checks.
func DefaultBrandKeywords() []string {
	return []string{
		"garanti", "iade", "değişim", "orijinal", "sertifika", "fatura",
		"warranty", "guarantee", "return", "refund", "original", "certificate",
	}
}

// DefaultWarrantyKeywords returns the terms whose nearby numbers are checked
// against the warranty period bound.
func DefaultWarrantyKeywords() []string {
	return []string{"garanti", "warranty", "guarantee"}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
