package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.Model.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", cfg.Model.Provider)
	}
	if cfg.Catalog.APIKeyEnv != "TMDB_API_KEY" {
		t.Errorf("expected TMDB_API_KEY, got %q", cfg.Catalog.APIKeyEnv)
	}
	if !slices.Equal(cfg.Recommend.Certifications, []string{"G", "PG", "PG-13"}) {
		t.Errorf("unexpected certifications %v", cfg.Recommend.Certifications)
	}
	if cfg.Recommend.Count != 10 || cfg.Recommend.MaxPage != 5 || cfg.Recommend.PosterPages != 20 {
		t.Errorf("unexpected recommend section %+v", cfg.Recommend)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
model:
  provider: ollama
  model: llama3.1
  base_url: http://localhost:11434
recommend:
  certifications: [R]
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Model.Provider != "ollama" || cfg.Model.Model != "llama3.1" {
		t.Errorf("unexpected model section %+v", cfg.Model)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if !slices.Equal(cfg.Recommend.Certifications, []string{"R"}) {
		t.Errorf("expected certifications to be replaced, got %v", cfg.Recommend.Certifications)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Catalog.BaseURL != "https://api.themoviedb.org/3" {
		t.Errorf("expected default catalog base_url, got %q", cfg.Catalog.BaseURL)
	}
	if cfg.Model.MaxPromptChars != 4000 {
		t.Errorf("expected default max_prompt_chars, got %d", cfg.Model.MaxPromptChars)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := parse([]byte("server: [unterminated")); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("recommend:\n  count: 4\n"), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Recommend.Count != 4 {
		t.Errorf("expected count 4, got %d", cfg.Recommend.Count)
	}
}

func TestResolveExplicitConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ResolveConfigPath(path)
	if err != nil || got != path {
		t.Errorf("expected %s, got %q (%v)", path, got, err)
	}
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	if cfg.GetDataDir() == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
	if cfg.DBPath() != filepath.Join("/custom/path", "antirec.db") {
		t.Errorf("unexpected db path %q", cfg.DBPath())
	}
}

func TestSecretsComeFromEnvironment(t *testing.T) {
	t.Setenv("TEST_TMDB_KEY", "tmdb-secret")
	t.Setenv("TEST_MODEL_KEY", "model-secret")

	cfg := Default()
	cfg.Catalog.APIKeyEnv = "TEST_TMDB_KEY"
	cfg.Model.APIKeyEnv = "TEST_MODEL_KEY"

	if cfg.Catalog.APIKey() != "tmdb-secret" {
		t.Errorf("unexpected catalog key %q", cfg.Catalog.APIKey())
	}
	if cfg.Model.APIKey() != "model-secret" {
		t.Errorf("unexpected model key %q", cfg.Model.APIKey())
	}

	cfg.Model.APIKeyEnv = ""
	if cfg.Model.APIKey() != "" {
		t.Error("expected empty key when no env var is named")
	}
}

func TestGatewayOverridesBaseURL(t *testing.T) {
	cfg := Default()
	cfg.Model.BaseURL = "http://configured"
	cfg.Model.GatewayEnv = "TEST_GATEWAY"

	t.Setenv("TEST_GATEWAY", "")
	if got := cfg.Model.EffectiveBaseURL(); got != "http://configured" {
		t.Errorf("expected configured base URL, got %q", got)
	}

	t.Setenv("TEST_GATEWAY", "https://gateway.example/v1")
	if got := cfg.Model.EffectiveBaseURL(); got != "https://gateway.example/v1" {
		t.Errorf("expected gateway base URL, got %q", got)
	}
}

func TestDurations(t *testing.T) {
	cfg := Default()
	if cfg.Catalog.Timeout() != 10*time.Second {
		t.Errorf("unexpected catalog timeout %v", cfg.Catalog.Timeout())
	}
	if cfg.Catalog.BreakerCooldown() != 30*time.Second {
		t.Errorf("unexpected cooldown %v", cfg.Catalog.BreakerCooldown())
	}
	if cfg.Model.Timeout() != 10*time.Second {
		t.Errorf("unexpected model timeout %v", cfg.Model.Timeout())
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	if err := os.WriteFile(".env", []byte("ANTIREC_TEST_VAR=from-dotenv\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("ANTIREC_TEST_VAR", "")
	os.Unsetenv("ANTIREC_TEST_VAR")

	if err := LoadEnv(); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if got := os.Getenv("ANTIREC_TEST_VAR"); got != "from-dotenv" {
		t.Errorf("expected value from .env, got %q", got)
	}
}
