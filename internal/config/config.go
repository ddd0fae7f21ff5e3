package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the researchrag API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	LLM       LLMConfig       `yaml:"llm"`
	WebSearch WebSearchConfig `yaml:"web_search"`
	RAG       RAGConfig       `yaml:"rag"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
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

// DatabaseConfig holds content store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, postgres (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	URL              string   `yaml:"url"` // postgres DSN
	MaxOpenConns     int      `yaml:"max_open_conns"`
	MaxIdleConns     int      `yaml:"max_idle_conns"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// LLMConfig holds model provider settings.
type LLMConfig struct {
	Provider   string            `yaml:"provider"` // label for metrics
	APIKey     string            `yaml:"api_key"`
	BaseURL    string            `yaml:"base_url"`
	Models     map[string]string `yaml:"models"` // tier (cheap, mid, deep) -> provider model id
	TimeoutSec int               `yaml:"timeout_sec"`
	Budget     BudgetConfig      `yaml:"budget"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// WebSearchConfig holds web search fallback settings.
type WebSearchConfig struct {
	Provider   string `yaml:"provider"` // none (default), brave, serper
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Results    int    `yaml:"results"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// RAGConfig holds pipeline settings.
type RAGConfig struct {
	SearchLimit    int             `yaml:"search_limit"`
	CallTimeoutSec int             `yaml:"call_timeout_sec"`
	Topics         []string        `yaml:"topics"`
	MaxTokens      MaxTokensConfig `yaml:"max_tokens"`
}

// MaxTokensConfig caps completion length per pipeline stage.
type MaxTokensConfig struct {
	Intent         int `yaml:"intent"`
	Relevance      int `yaml:"relevance"`
	Synthesis      int `yaml:"synthesis"`
	Deep           int `yaml:"deep"`
	Conversational int `yaml:"conversational"`
}

// CallTimeout returns the per external call timeout.
func (c RAGConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSec) * time.Second
}

// DefaultTopics is the research vocabulary used when none is configured.
var DefaultTopics = []string{
	"classroom acoustics",
	"daylighting",
	"thermal comfort",
	"indoor air quality",
	"biophilic design",
	"learning environments",
	"healthcare design",
	"workplace strategy",
	"mass timber",
	"embodied carbon",
	"wayfinding",
	"post-occupancy evaluation",
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
		// synthesis at the mid tier routinely takes longer than 10s
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "researchrag:"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 60
	}
	if c.WebSearch.Provider == "" {
		c.WebSearch.Provider = "none"
	}
	if c.WebSearch.Results <= 0 {
		c.WebSearch.Results = 5
	}
	if c.WebSearch.TimeoutSec <= 0 {
		c.WebSearch.TimeoutSec = 10
	}
	if c.RAG.SearchLimit <= 0 {
		c.RAG.SearchLimit = 25
	}
	if c.RAG.CallTimeoutSec <= 0 {
		c.RAG.CallTimeoutSec = 30
	}
	if len(c.RAG.Topics) == 0 {
		c.RAG.Topics = DefaultTopics
	}
	c.RAG.MaxTokens.applyDefaults()
}

func (m *MaxTokensConfig) applyDefaults() {
	if m.Intent <= 0 {
		m.Intent = 500
	}
	if m.Relevance <= 0 {
		m.Relevance = 500
	}
	if m.Synthesis <= 0 {
		m.Synthesis = 1500
	}
	if m.Deep <= 0 {
		m.Deep = 4000
	}
	if m.Conversational <= 0 {
		m.Conversational = 600
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"postgres\", got %q", c.Database.Driver)
	}
	for _, tier := range []string{"cheap", "mid", "deep"} {
		if c.LLM.Models[tier] == "" {
			return fmt.Errorf("llm.models.%s is required", tier)
		}
	}
	for tier := range c.LLM.Models {
		switch tier {
		case "cheap", "mid", "deep":
		default:
			return fmt.Errorf("llm.models has unknown tier %q", tier)
		}
	}
	switch c.LLM.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf("llm.budget.action must be \"warn\" or \"reject\", got %q", c.LLM.Budget.Action)
	}
	switch c.WebSearch.Provider {
	case "none":
	case "brave", "serper":
		if c.WebSearch.APIKey == "" {
			return fmt.Errorf("web_search.api_key is required for provider %q", c.WebSearch.Provider)
		}
	default:
		return fmt.Errorf("web_search.provider must be none, brave or serper, got %q", c.WebSearch.Provider)
	}
	return nil
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
