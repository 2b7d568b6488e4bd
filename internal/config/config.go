// Package config holds the settings shared by every doctran command. Values
// come from flags, DOCTRAN_* environment variables and an optional YAML file,
// merged by viper.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "DOCTRAN"

type Config struct {
	Source         string `mapstructure:"source" yaml:"source"`
	Target         string `mapstructure:"target" yaml:"target"`
	Service        string `mapstructure:"service" yaml:"service"`
	Concurrency    int    `mapstructure:"concurrency" yaml:"concurrency"`
	DB             string `mapstructure:"db" yaml:"db"`
	NoCache        bool   `mapstructure:"no_cache" yaml:"no_cache"`
	ValidateOutput bool   `mapstructure:"validate" yaml:"validate"`
	// Instructions are appended to LLM prompts.
	Instructions string `mapstructure:"instructions" yaml:"instructions"`

	Batch      BatchConfig    `mapstructure:"batch" yaml:"batch"`
	Pipeline   PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Log        LogConfig      `mapstructure:"log" yaml:"log"`
	Google     GoogleConfig   `mapstructure:"google" yaml:"google"`
	Ollama     ModelsConfig   `mapstructure:"ollama" yaml:"ollama"`
	OpenRouter ModelsConfig   `mapstructure:"openrouter" yaml:"openrouter"`
	Gemini     GeminiConfig   `mapstructure:"gemini" yaml:"gemini"`
	Systran    KeyConfig      `mapstructure:"systran" yaml:"systran"`
	MyMemory   MyMemoryConfig `mapstructure:"mymemory" yaml:"mymemory"`
	Watch      WatchConfig    `mapstructure:"watch" yaml:"watch"`
	Serve      ServeConfig    `mapstructure:"serve" yaml:"serve"`
}

type BatchConfig struct {
	MaxCount int `mapstructure:"max_count" yaml:"max_count"`
	MaxChars int `mapstructure:"max_chars" yaml:"max_chars"`
}

type PipelineConfig struct {
	OnFailure string `mapstructure:"on_failure" yaml:"on_failure"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type GoogleConfig struct {
	Credentials string `mapstructure:"credentials" yaml:"credentials"`
	Project     string `mapstructure:"project" yaml:"project"`
	Key         string `mapstructure:"key" yaml:"key"`
}

// ModelsConfig serves the backends that pick from a list of models.
type ModelsConfig struct {
	URL    string   `mapstructure:"url" yaml:"url"`
	Key    string   `mapstructure:"key" yaml:"key"`
	Models []string `mapstructure:"models" yaml:"models"`
}

type GeminiConfig struct {
	Key   string `mapstructure:"key" yaml:"key"`
	Model string `mapstructure:"model" yaml:"model"`
	URL   string `mapstructure:"url" yaml:"url"`
}

type KeyConfig struct {
	Key string `mapstructure:"key" yaml:"key"`
}

type MyMemoryConfig struct {
	Email string `mapstructure:"email" yaml:"email"`
}

type WatchConfig struct {
	Dir         string `mapstructure:"dir" yaml:"dir"`
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
}

type ServeConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	MaxJobs   int    `mapstructure:"max_jobs" yaml:"max_jobs"`
	MaxQueued int    `mapstructure:"max_queued" yaml:"max_queued"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("source", "auto")
	v.SetDefault("service", "google")
	v.SetDefault("concurrency", 1)
	v.SetDefault("db", "doctran.db")
	v.SetDefault("batch.max_count", 99)
	v.SetDefault("batch.max_chars", 9000)
	v.SetDefault("pipeline.on_failure", "discard")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("ollama.url", "http://localhost:11434")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("watch.concurrency", 2)
	v.SetDefault("serve.addr", ":8080")
	v.SetDefault("serve.max_jobs", 2)
	v.SetDefault("serve.max_queued", 64)
}

// Load reads the config file (when given), binds the environment and decodes
// everything into a validated Config.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".doctran")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fills in zero values and rejects settings the pipeline cannot run
// with.
func (c *Config) Validate() error {
	if c.Concurrency == 0 {
		c.Concurrency = 1
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.Batch.MaxCount == 0 {
		c.Batch.MaxCount = 99
	}
	if c.Batch.MaxChars == 0 {
		c.Batch.MaxChars = 9000
	}
	if c.Batch.MaxCount < 0 || c.Batch.MaxChars < 0 {
		return fmt.Errorf("batch limits must be positive")
	}

	switch c.Pipeline.OnFailure {
	case "":
		c.Pipeline.OnFailure = "discard"
	case "discard", "keep-partial":
	default:
		return fmt.Errorf("pipeline.on_failure must be discard or keep-partial, got %q", c.Pipeline.OnFailure)
	}

	c.Log.Level = strings.ToLower(c.Log.Level)
	switch c.Log.Level {
	case "":
		c.Log.Level = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "":
		c.Log.Format = "text"
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	if c.Source == "" {
		c.Source = "auto"
	}
	if c.Service == "" {
		c.Service = "google"
	}
	if c.Watch.Concurrency <= 0 {
		c.Watch.Concurrency = 2
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = ":8080"
	}
	return nil
}

// Manifest lists several documents to translate in one run.
type Manifest struct {
	Target string          `yaml:"target"`
	Source string          `yaml:"source"`
	Jobs   []ManifestEntry `yaml:"jobs"`
}

// ManifestEntry is one document. Empty languages fall back to the manifest's.
type ManifestEntry struct {
	Path   string `yaml:"path"`
	Kind   string `yaml:"kind"`
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// LoadManifest reads a YAML job manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(m.Jobs) == 0 {
		return nil, fmt.Errorf("manifest %s has no jobs", path)
	}
	for i := range m.Jobs {
		e := &m.Jobs[i]
		if e.Path == "" {
			return nil, fmt.Errorf("manifest job %d has no path", i)
		}
		if e.Source == "" {
			e.Source = m.Source
		}
		if e.Target == "" {
			e.Target = m.Target
		}
		if e.Target == "" {
			return nil, fmt.Errorf("manifest job %d (%s) has no target language", i, e.Path)
		}
	}
	return &m, nil
}
