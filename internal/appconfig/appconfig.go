// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// DefaultGeminiURL is the generateContent endpoint used when the config omits one.
	DefaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"
	// DefaultOpenAIBaseURL is Gemini's OpenAI-compatible endpoint.
	DefaultOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	// DefaultModel names the model passed to the OpenAI-compatible endpoint.
	DefaultModel = "gemini-2.0-flash"
	// DefaultBenchmarkCount is used when a benchmark request does not specify a count.
	DefaultBenchmarkCount = 10
	// defaultRequestTimeout is the default timeout for outbound HTTP requests.
	defaultRequestTimeout = 60 * time.Second
	// defaultPort is the HTTP listen port for the serve command.
	defaultPort = 8080
	// defaultOutputDir is where CLI benchmark reports are written.
	defaultOutputDir = "emailwriterData/benchmarks"
	// legacyAPIKeyEnv is read when no API key is configured.
	legacyAPIKeyEnv = "AI_API_KEY"
)

// Config represents the top-level application configuration.
type Config struct {
	Host           string          `json:"host" mapstructure:"host"`
	Port           int             `json:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	Debug          bool            `json:"debug" mapstructure:"debug"`
	LogFile        string          `json:"logFile,omitempty" mapstructure:"logFile"`
	TimeoutSeconds int             `json:"timeout,omitempty" mapstructure:"timeout" validate:"gte=0"`
	Mock           bool            `json:"mock" mapstructure:"mock"`
	MockDelayMs    int             `json:"mockDelayMs,omitempty" mapstructure:"mockDelayMs" validate:"gte=0"`
	Gemini         GeminiConfig    `json:"gemini" mapstructure:"gemini"`
	Benchmark      BenchmarkConfig `json:"benchmark" mapstructure:"benchmark"`
	ConfigPath     string          `json:"-" mapstructure:"-"`
}

// GeminiConfig holds the remote text-generation endpoint settings.
type GeminiConfig struct {
	APIURL        string `json:"apiUrl" mapstructure:"apiUrl" validate:"omitempty,url"`
	APIKey        string `json:"apiKey" mapstructure:"apiKey"`
	Model         string `json:"model" mapstructure:"model"`
	OpenAIBaseURL string `json:"openaiBaseUrl,omitempty" mapstructure:"openaiBaseUrl" validate:"omitempty,url"`
}

// BenchmarkConfig selects the two strategies compared by the benchmark and how they are run.
type BenchmarkConfig struct {
	Baseline     string `json:"baseline" mapstructure:"baseline" validate:"omitempty,oneof=blocking async openai mock"`
	Candidate    string `json:"candidate" mapstructure:"candidate" validate:"omitempty,oneof=blocking async openai mock"`
	DefaultCount int    `json:"defaultCount" mapstructure:"defaultCount" validate:"gte=0"`
	// PoolSize overrides the concurrent worker pool size; 0 means one worker per request.
	PoolSize            int    `json:"poolSize,omitempty" mapstructure:"poolSize" validate:"gte=0"`
	PhaseTimeoutSeconds int    `json:"phaseTimeout,omitempty" mapstructure:"phaseTimeout" validate:"gte=0"`
	OutputDir           string `json:"outputDir,omitempty" mapstructure:"outputDir"`
}

// Default returns a configuration with every default applied.
func Default() Config {
	return Config{
		Port:           defaultPort,
		TimeoutSeconds: int(defaultRequestTimeout.Seconds()),
		Gemini: GeminiConfig{
			APIURL:        DefaultGeminiURL,
			Model:         DefaultModel,
			OpenAIBaseURL: DefaultOpenAIBaseURL,
		},
		Benchmark: BenchmarkConfig{
			Baseline:     "blocking",
			Candidate:    "async",
			DefaultCount: DefaultBenchmarkCount,
			OutputDir:    defaultOutputDir,
		},
	}
}

// RequestTimeout returns the timeout duration for HTTP requests, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return "emailwriter.log"
}

// ListenAddr returns host:port for the HTTP server.
func (c Config) ListenAddr() string {
	port := c.Port
	if port <= 0 {
		port = defaultPort
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

// MockDelay is the simulated latency of the mock generator.
func (c Config) MockDelay() time.Duration {
	return time.Duration(c.MockDelayMs) * time.Millisecond
}

// APIKey returns the configured key or the legacy environment variable.
func (c Config) APIKey() string {
	if key := strings.TrimSpace(c.Gemini.APIKey); key != "" {
		return key
	}
	return strings.TrimSpace(os.Getenv(legacyAPIKeyEnv))
}

// BenchmarkCount resolves a requested count, using the configured default for zero.
func (c Config) BenchmarkCount(requested int) int {
	if requested != 0 {
		return requested
	}
	if c.Benchmark.DefaultCount > 0 {
		return c.Benchmark.DefaultCount
	}
	return DefaultBenchmarkCount
}

// PhaseTimeout returns the per-phase benchmark deadline, zero meaning none.
func (c Config) PhaseTimeout() time.Duration {
	if c.Benchmark.PhaseTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Benchmark.PhaseTimeoutSeconds) * time.Second
}

// OutputDir returns the benchmark report directory.
func (c Config) OutputDir() string {
	if dir := strings.TrimSpace(c.Benchmark.OutputDir); dir != "" {
		return dir
	}
	return defaultOutputDir
}

// Redacted returns a copy safe for printing.
func (c Config) Redacted() Config {
	out := c
	if out.Gemini.APIKey != "" {
		out.Gemini.APIKey = "********"
	}
	return out
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints declared on the struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// EnvPrefix prefixes environment overrides, e.g. EMAILWRITER_GEMINI_APIKEY.
const EnvPrefix = "EMAILWRITER"

// Load reads the configuration file at path through v on top of the defaults.
// Environment variables with EnvPrefix and any flags already bound to v take
// precedence over the file. A missing file at the default path yields the defaults.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	if path == "" {
		path = DefaultConfigPath
	}

	registerDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigFile(path)

	used := path
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
		}
		if path != DefaultConfigPath {
			return Config{}, fmt.Errorf("no configuration file found at %q", path)
		}
		used = ""
	}

	config := Default()
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = int(defaultRequestTimeout.Seconds())
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	config.ConfigPath = used
	return config, nil
}

// registerDefaults makes every key known to v so environment overrides reach Unmarshal.
func registerDefaults(v *viper.Viper) {
	d := Default()
	defaults := map[string]any{
		"host":                   d.Host,
		"port":                   d.Port,
		"debug":                  d.Debug,
		"logFile":                d.LogFile,
		"timeout":                d.TimeoutSeconds,
		"mock":                   d.Mock,
		"mockDelayMs":            d.MockDelayMs,
		"gemini.apiUrl":          d.Gemini.APIURL,
		"gemini.apiKey":          d.Gemini.APIKey,
		"gemini.model":           d.Gemini.Model,
		"gemini.openaiBaseUrl":   d.Gemini.OpenAIBaseURL,
		"benchmark.baseline":     d.Benchmark.Baseline,
		"benchmark.candidate":    d.Benchmark.Candidate,
		"benchmark.defaultCount": d.Benchmark.DefaultCount,
		"benchmark.poolSize":     d.Benchmark.PoolSize,
		"benchmark.phaseTimeout": d.Benchmark.PhaseTimeoutSeconds,
		"benchmark.outputDir":    d.Benchmark.OutputDir,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}
