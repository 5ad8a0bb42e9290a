package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	LLM       LLM       `yaml:"llm"`
	Embedding Embedding `yaml:"embedding"`
	Search    Search    `yaml:"search"`
	Memory    Memory    `yaml:"memory"`
	Pipeline  Pipeline  `yaml:"pipeline"`
	Knowledge Knowledge `yaml:"knowledge"`
	Output    Output    `yaml:"output"`
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
}

type LLM struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	OllamaURL   string `yaml:"ollama_url"`
	OpenAIModel string `yaml:"openai_model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	MaxTokens   int    `yaml:"max_tokens"`
}

type Embedding struct {
	Model string `yaml:"model"`
}

type Search struct {
	BaseURL    string `yaml:"base_url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	MaxResults int    `yaml:"max_results"`
	Depth      string `yaml:"depth"`
}

type Memory struct {
	TokenLimit int `yaml:"token_limit"`
	MaxFacts   int `yaml:"max_facts"`
}

type Pipeline struct {
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	FactCheckMethod string `yaml:"fact_check_method"` // "llm" or "search"
}

type Knowledge struct {
	TopK          int     `yaml:"top_k"`
	MinSimilarity float64 `yaml:"min_similarity"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for chatpress.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "chatpress")
}

// DataDir returns the XDG data directory for chatpress.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "chatpress")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/chatpress/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'chatpress init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		LLM: LLM{
			Provider:    "ollama",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   1024,
		},
		Embedding: Embedding{Model: "nomic-embed-text"},
		Search: Search{
			BaseURL:    "https://api.tavily.com",
			APIKeyEnv:  "TAVILY_API_KEY",
			MaxResults: 3,
			Depth:      "advanced",
		},
		Memory: Memory{
			TokenLimit: 4096,
			MaxFacts:   50,
		},
		Pipeline: Pipeline{
			TimeoutSeconds:  300,
			FactCheckMethod: "llm",
		},
		Knowledge: Knowledge{
			TopK:          5,
			MinSimilarity: 0.7,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
