// Package config loads intakectl settings from YAML with environment
// overrides for secrets and endpoints.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Store   StoreConfig   `yaml:"store"`
	Voice   VoiceConfig   `yaml:"voice"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxAudioBytes   int64         `yaml:"max_audio_bytes"`
}

// LLMConfig selects the dialogue engine. Provider "local" needs no model;
// "openai" talks to any OpenAI-compatible endpoint. Mode "author" forces
// blocks through a tool call, "chat" lets the model write them inline.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Mode     string `yaml:"mode"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	Lang     string `yaml:"lang"`
	History  int    `yaml:"history"`
	Failback bool   `yaml:"failback"`
}

type StoreConfig struct {
	Backend       string        `yaml:"backend"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

type VoiceConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Language        string        `yaml:"language"`
	Encoding        string        `yaml:"encoding"`
	SampleRateHertz int32         `yaml:"sample_rate_hertz"`
	Timeout         time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	QueueSize       int           `yaml:"queue_size"`
	DispatchTimeout time.Duration `yaml:"dispatch_timeout"`
}

type LoggingConfig struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
}

const (
	ProviderLocal  = "local"
	ProviderOpenAI = "openai"

	ModeChat   = "chat"
	ModeAuthor = "author"

	BackendMemory = "memory"
	BackendRedis  = "redis"
)

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxAudioBytes:   10 << 20,
		},
		LLM: LLMConfig{
			Provider: ProviderLocal,
			Mode:     ModeAuthor,
			Lang:     "English",
			History:  24,
			Failback: true,
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			TTL:     24 * time.Hour,
		},
		Voice: VoiceConfig{
			Language:        "en",
			Encoding:        "webm_opus",
			SampleRateHertz: 48000,
			Timeout:         30 * time.Second,
		},
		Session: SessionConfig{
			QueueSize:       64,
			DispatchTimeout: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Mode:  "dev",
			Level: "info",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates. An empty path uses defaults and environment only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
		if c.LLM.Provider == "" || c.LLM.Provider == ProviderLocal {
			c.LLM.Provider = ProviderOpenAI
		}
	}
	if v := getenv("OPENAI_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := getenv("OPENAI_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Store.Backend = BackendRedis
		c.Store.RedisAddr = v
	}
	if v := getenv("GOOGLE_SPEECH_LANGUAGE"); v != "" {
		c.Voice.Language = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case ProviderLocal:
	case ProviderOpenAI:
		if c.LLM.APIKey == "" {
			errs = append(errs, errors.New("llm.api_key is required for the openai provider (set OPENAI_API_KEY or config)"))
		}
		if c.LLM.Model == "" {
			errs = append(errs, errors.New("llm.model is required for the openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm.provider %q", c.LLM.Provider))
	}
	if c.LLM.Mode != ModeChat && c.LLM.Mode != ModeAuthor {
		errs = append(errs, fmt.Errorf("unknown llm.mode %q", c.LLM.Mode))
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q", c.Store.Backend))
	}
	if c.Session.QueueSize <= 0 {
		errs = append(errs, errors.New("session.queue_size must be positive"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.MaxAudioBytes <= 0 {
		errs = append(errs, errors.New("server.max_audio_bytes must be positive"))
	}
	return errors.Join(errs...)
}
