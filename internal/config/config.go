package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the docguard API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Policy   PolicyConfig   `yaml:"policy"`
	Fallback FallbackConfig `yaml:"fallback"`
	Index    IndexConfig    `yaml:"index"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// LLMConfig holds the OpenAI-compatible provider settings for the three
// model calls this service makes: topic classification, answer generation,
// and query/document embedding.
type LLMConfig struct {
	APIKey              string  `yaml:"api_key"`
	BaseURL             string  `yaml:"base_url"`
	ClassifierModel     string  `yaml:"classifier_model"`
	ClassifierMaxTokens int     `yaml:"classifier_max_tokens"`
	GenerationModel     string  `yaml:"generation_model"`
	GenerationMaxTokens int     `yaml:"generation_max_tokens"`
	Temperature         float32 `yaml:"temperature"`
	TopP                float32 `yaml:"top_p"`
	EmbeddingModel      string  `yaml:"embedding_model"`
	EmbeddingDimensions int     `yaml:"embedding_dimensions"`
}

// PolicyConfig holds access-decision settings.
type PolicyConfig struct {
	// AllowUnknownUsers approves requests from users absent from both the
	// directory and the reference dataset. Development convenience only;
	// the default is fail-closed.
	AllowUnknownUsers bool    `yaml:"allow_unknown_users"`
	RelevanceFloor    float64 `yaml:"relevance_floor"`
	TopK              int     `yaml:"top_k"`
	AuditExcerptLimit int     `yaml:"audit_excerpt_limit"`
}

// FallbackConfig holds the pre-trained access model artifacts used when a
// user has no directory record. Both paths empty disables the fallback path.
type FallbackConfig struct {
	ModelPath   string `yaml:"model_path"`
	DatasetPath string `yaml:"dataset_path"`
}

// IndexConfig holds HNSW index and chunking settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
	ChunkSize       int `yaml:"chunk_size"`
	ChunkOverlap    int `yaml:"chunk_overlap"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
	// AuditTTLSec bounds audit-entry retention; 0 keeps entries forever.
	AuditTTLSec int `yaml:"audit_ttl_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.LLM.ClassifierMaxTokens <= 0 {
		c.LLM.ClassifierMaxTokens = 10
	}
	if c.LLM.GenerationMaxTokens <= 0 {
		c.LLM.GenerationMaxTokens = 1024
	}
	if c.LLM.Temperature <= 0 {
		c.LLM.Temperature = 0.4
	}
	if c.LLM.TopP <= 0 {
		c.LLM.TopP = 0.9
	}
	if c.Policy.RelevanceFloor <= 0 {
		c.Policy.RelevanceFloor = 0.3
	}
	if c.Policy.TopK <= 0 {
		c.Policy.TopK = 5
	}
	if c.Policy.AuditExcerptLimit <= 0 {
		c.Policy.AuditExcerptLimit = 500
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 32
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 400
	}
	if c.Index.ChunkSize <= 0 {
		c.Index.ChunkSize = 800
	}
	if c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkSize {
		c.Index.ChunkOverlap = 80
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "docguard:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.LLM.EmbeddingModel == "" {
		return fmt.Errorf("llm.embedding_model is required")
	}
	if c.LLM.GenerationModel == "" {
		return fmt.Errorf("llm.generation_model is required")
	}
	if c.Policy.RelevanceFloor > 1 {
		return fmt.Errorf("policy.relevance_floor must be at most 1, got %g", c.Policy.RelevanceFloor)
	}
	if (c.Fallback.ModelPath == "") != (c.Fallback.DatasetPath == "") {
		return fmt.Errorf("fallback.model_path and fallback.dataset_path must be set together")
	}
	return nil
}

// FallbackEnabled reports whether the fallback classifier artifacts are configured.
func (c *Config) FallbackEnabled() bool {
	return c.Fallback.ModelPath != "" && c.Fallback.DatasetPath != ""
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
