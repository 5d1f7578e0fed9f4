package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Catalog   Catalog   `yaml:"catalog"`
	Model     Model     `yaml:"model"`
	Recommend Recommend `yaml:"recommend"`
	Output    Output    `yaml:"output"`
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
}

type Catalog struct {
	BaseURL                string  `yaml:"base_url"`
	ImageBaseURL           string  `yaml:"image_base_url"`
	APIKeyEnv              string  `yaml:"api_key_env"`
	Language               string  `yaml:"language"`
	TimeoutSeconds         int     `yaml:"timeout_seconds"`
	RequestsPerSecond      float64 `yaml:"requests_per_second"`
	BreakerFailures        uint32  `yaml:"breaker_failures"`
	BreakerCooldownSeconds int     `yaml:"breaker_cooldown_seconds"`
}

type Model struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	OpenAIKeyEnv   string `yaml:"openai_key_env"`
	GatewayEnv     string `yaml:"gateway_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxPromptChars int    `yaml:"max_prompt_chars"`
}

type Recommend struct {
	Count                int      `yaml:"count"`
	PosterCount          int      `yaml:"poster_count"`
	CertificationCountry string   `yaml:"certification_country"`
	Certifications       []string `yaml:"certifications"`
	OriginalLanguage     string   `yaml:"original_language"`
	MaxPage              int      `yaml:"max_page"`
	PosterPages          int      `yaml:"poster_pages"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ConfigDir returns the XDG config directory for antirec.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "antirec")
}

// DataDir returns the XDG data directory for antirec.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "antirec")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/antirec/config.yaml > ./config.yaml
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
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'antirec init' to create a default config",
		xdgConfig,
	)
}

// LoadEnv reads KEY=value pairs from ./.env and the config directory's .env
// into the process environment. Variables already set are left alone and
// missing files are ignored.
func LoadEnv() error {
	for _, path := range []string{".env", filepath.Join(ConfigDir(), ".env")} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Catalog: Catalog{
			BaseURL:                "https://api.themoviedb.org/3",
			ImageBaseURL:           "https://image.tmdb.org/t/p/w500",
			APIKeyEnv:              "TMDB_API_KEY",
			Language:               "en-US",
			TimeoutSeconds:         10,
			RequestsPerSecond:      20,
			BreakerFailures:        5,
			BreakerCooldownSeconds: 30,
		},
		Model: Model{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			OpenAIKeyEnv:   "OPENAI_API_KEY",
			GatewayEnv:     "AI_GATEWAY_ENDPOINT",
			TimeoutSeconds: 10,
			MaxPromptChars: 4000,
		},
		Recommend: Recommend{
			Count:                10,
			PosterCount:          20,
			CertificationCountry: "US",
			Certifications:       []string{"G", "PG", "PG-13"},
			OriginalLanguage:     "en",
			MaxPage:              5,
			PosterPages:          20,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "info", Format: "console"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DBPath returns the profile database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "antirec.db")
}

// APIKey returns the catalog API key from the environment.
func (c Catalog) APIKey() string { return os.Getenv(c.APIKeyEnv) }

// Timeout returns the catalog request timeout.
func (c Catalog) Timeout() time.Duration { return time.Duration(c.TimeoutSeconds) * time.Second }

// BreakerCooldown returns how long an open circuit stays open.
func (c Catalog) BreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownSeconds) * time.Second
}

// APIKey returns the model provider's API key from the environment.
func (m Model) APIKey() string { return envOrEmpty(m.APIKeyEnv) }

// OpenAIKey returns the key used when falling back from Ollama to OpenAI.
func (m Model) OpenAIKey() string { return envOrEmpty(m.OpenAIKeyEnv) }

// EffectiveBaseURL returns the gateway endpoint from the environment when
// set, otherwise the configured base URL.
func (m Model) EffectiveBaseURL() string {
	if gw := envOrEmpty(m.GatewayEnv); gw != "" {
		return gw
	}
	return m.BaseURL
}

// Timeout returns the model request timeout.
func (m Model) Timeout() time.Duration { return time.Duration(m.TimeoutSeconds) * time.Second }

func envOrEmpty(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
