package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend and store selectors accepted in config.yaml.
const (
	BackendOllama = "ollama"
	BackendGemini = "gemini"

	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Duration wraps time.Duration so YAML values like "30s" parse directly.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped standard-library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// AppConfig holds all configuration for the gateway, loaded from the
// environment and config.yaml. Secrets and addresses come from the
// environment; behavior knobs come from the YAML file.
type AppConfig struct {
	// From the environment.
	Port         string
	OllamaHost   string
	GeminiAPIKey string
	RedisAddr    string

	// From config.yaml.
	Backend           string   `yaml:"backend"`
	Model             string   `yaml:"model"`
	SystemPrompt      string   `yaml:"system_prompt"`
	SandboxRoot       string   `yaml:"sandbox_root"`
	MaxToolIterations int      `yaml:"max_tool_iterations"`
	ToolTimeout       Duration `yaml:"tool_timeout"`
	BackendTimeout    Duration `yaml:"backend_timeout"`
	IdleTTL           Duration `yaml:"idle_ttl"`
	Store             string   `yaml:"store"`
}

// LoadConfig loads configuration from a .env file, environment variables, and
// config.yaml.
func LoadConfig() (*AppConfig, error) {
	// Only attempt to load a .env file in local development. In Docker
	// (where GIN_MODE="release") configuration is provided directly as
	// environment variables.
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err != nil {
			log.Println("WARNING: No .env file found for local development.")
		}
	}

	cfg := &AppConfig{
		Port:         os.Getenv("PORT"),
		OllamaHost:   os.Getenv("OLLAMA_HOST"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.OllamaHost == "" {
		cfg.OllamaHost = "http://localhost:11434"
	}

	configFile, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}
	if err := yaml.Unmarshal(configFile, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config.yaml: %w", err)
	}

	return cfg, applyDefaults(cfg)
}

// applyDefaults fills unset knobs and validates the selector fields.
func applyDefaults(cfg *AppConfig) error {
	if cfg.Backend == "" {
		cfg.Backend = BackendOllama
	}
	if cfg.Backend != BackendOllama && cfg.Backend != BackendGemini {
		return fmt.Errorf("unknown backend %q (expected %q or %q)", cfg.Backend, BackendOllama, BackendGemini)
	}
	if cfg.Model == "" {
		return fmt.Errorf("config.yaml must set a model")
	}
	if cfg.SandboxRoot == "" {
		cfg.SandboxRoot = "/tmp/allowed_files"
	}
	if cfg.MaxToolIterations <= 0 {
		cfg.MaxToolIterations = 5
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = Duration(30 * time.Second)
	}
	if cfg.BackendTimeout <= 0 {
		cfg.BackendTimeout = Duration(120 * time.Second)
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = Duration(30 * time.Minute)
	}
	if cfg.Store == "" {
		cfg.Store = StoreMemory
	}
	if cfg.Store != StoreMemory && cfg.Store != StoreRedis {
		return fmt.Errorf("unknown store %q (expected %q or %q)", cfg.Store, StoreMemory, StoreRedis)
	}
	if cfg.Store == StoreRedis && cfg.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR must be set when the redis store is selected")
	}
	if cfg.Backend == BackendGemini && cfg.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY must be set when the gemini backend is selected")
	}
	return nil
}
