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

	"github.com/kailas-cloud/elodex/internal/logger"
)

// Config holds the elodex configuration.
type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Index    IndexConfig    `yaml:"index"`
	Database DatabaseConfig `yaml:"database"`
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Backend drivers.
const (
	DriverElasticsearch = "elasticsearch"
	DriverRedis         = "redis"
	DriverEmbedded      = "embedded"
)

// BackendConfig selects and configures the search backend.
type BackendConfig struct {
	Driver           string   `yaml:"driver"` // elasticsearch, redis, embedded (default: elasticsearch)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	MaxRetries       int      `yaml:"max_retries"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	// Path is the embedded index directory; empty keeps indexes in memory.
	Path string `yaml:"path"`
}

// IndexConfig holds repository defaults.
type IndexConfig struct {
	DefaultIndex string `yaml:"default_index"`
	Refresh      bool   `yaml:"refresh"`
	// Analyzers are merged into the analysis settings of created indexes.
	Analyzers map[string]map[string]any `yaml:"analyzers"`
	ScrollSec int                       `yaml:"scroll_sec"`
	BulkSize  int                       `yaml:"bulk_size"`
}

// Scroll returns the cursor lifetime used by seeding and the CLI.
func (c IndexConfig) Scroll() time.Duration {
	return time.Duration(c.ScrollSec) * time.Second
}

// DatabaseConfig holds the relational entity store connection.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres, mysql (default: sqlite)
	DSN    string `yaml:"dsn"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string             `yaml:"level"` // debug, info, warn, error (default: determined by env)
	File  *logger.FileConfig `yaml:"file"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Backend.Driver == "" {
		c.Backend.Driver = DriverElasticsearch
	}
	if c.Backend.ReadinessTimeout <= 0 {
		c.Backend.ReadinessTimeout = 10
	}
	if c.Backend.MaxRetries <= 0 {
		c.Backend.MaxRetries = 3
	}
	if c.Index.DefaultIndex == "" {
		c.Index.DefaultIndex = "elodex"
	}
	if c.Index.ScrollSec <= 0 {
		c.Index.ScrollSec = 60
	}
	if c.Index.BulkSize <= 0 {
		c.Index.BulkSize = 500
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 0 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Backend.Driver {
	case DriverElasticsearch, DriverRedis:
		if len(c.Backend.Addrs) == 0 {
			return fmt.Errorf("backend.addrs is required for %s", c.Backend.Driver)
		}
	case DriverEmbedded:
	default:
		return fmt.Errorf("backend.driver must be one of elasticsearch, redis, embedded, got %q", c.Backend.Driver)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("database.driver must be one of sqlite, postgres, mysql, got %q", c.Database.Driver)
	}
	for name, a := range c.Index.Analyzers {
		if _, ok := a["type"]; !ok {
			return fmt.Errorf("index.analyzers.%s.type is required", name)
		}
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
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
