package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"noticiero/internal/config"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GEMINI_API_KEY", "GEMINI_TTS_API_KEY", "ANTHROPIC_API_KEY", "NOTICIERO_API_TOKEN",
		"CLOUDFLARE_ACCOUNT_ID", "R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY", "R2_BUCKET_NAME", "R2_REGION",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearCredentialEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "noticiero")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7490" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.LLM.TextModel != "gemini-2.5-flash" {
		t.Fatalf("unexpected text model: %q", cfg.LLM.TextModel)
	}
	if cfg.TTS.Model != "gemini-2.5-pro-preview-tts" {
		t.Fatalf("unexpected tts model: %q", cfg.TTS.Model)
	}
	if cfg.LLM.MaxAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", cfg.LLM.MaxAttempts)
	}
	if cfg.FreshnessWindow() != 24*time.Hour {
		t.Fatalf("unexpected freshness window: %s", cfg.FreshnessWindow())
	}
	if cfg.Storage.Bucket != "noticieros" || cfg.Storage.Region != "auto" {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Storage.Endpoint != "" {
		t.Fatalf("expected no endpoint without account id, got %q", cfg.Storage.Endpoint)
	}
	if err := cfg.RequireStorage(); err == nil {
		t.Fatal("expected storage credentials to be required")
	}
	if err := cfg.RequireGeneration(); err == nil {
		t.Fatal("expected generation credentials to be required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.TempDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearCredentialEnv(t)
	configPath := filepath.Join(t.TempDir(), "noticiero.toml")

	type payload struct {
		LLM struct {
			APIKey    string `toml:"api_key"`
			TextModel string `toml:"text_model"`
		} `toml:"llm"`
		Feeds struct {
			FreshnessHours int `toml:"freshness_hours"`
		} `toml:"feeds"`
		Broadcast struct {
			CensoredWords []string `toml:"censored_words"`
		} `toml:"broadcast"`
	}
	custom := payload{}
	custom.LLM.APIKey = "abc123"
	custom.LLM.TextModel = "gemini-custom"
	custom.Feeds.FreshnessHours = 6
	custom.Broadcast.CensoredWords = []string{" banco ", "Banco", "", "fraude"}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.LLM.APIKey != "abc123" {
		t.Fatalf("expected key from file, got %q", cfg.LLM.APIKey)
	}
	if cfg.TTS.APIKey != "abc123" {
		t.Fatalf("expected tts key to fall back to llm key, got %q", cfg.TTS.APIKey)
	}
	if cfg.LLM.TextModel != "gemini-custom" {
		t.Fatalf("expected model override, got %q", cfg.LLM.TextModel)
	}
	if cfg.FreshnessWindow() != 6*time.Hour {
		t.Fatalf("expected 6h window, got %s", cfg.FreshnessWindow())
	}
	if got := strings.Join(cfg.Broadcast.CensoredWords, ","); got != "banco,fraude" {
		t.Fatalf("unexpected censored words: %q", got)
	}
}

func TestEnvVarOverridesConfigFileForCredentials(t *testing.T) {
	clearCredentialEnv(t)
	configPath := filepath.Join(t.TempDir(), "noticiero.toml")
	contents := `
[llm]
api_key = "file-gemini"

[storage]
account_id = "file-account"
access_key_id = "file-access"
secret_access_key = "file-secret"
`
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("GEMINI_API_KEY", "env-gemini")
	t.Setenv("CLOUDFLARE_ACCOUNT_ID", "envaccount")
	t.Setenv("R2_BUCKET_NAME", "env-bucket")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "env-gemini" {
		t.Errorf("expected gemini key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Storage.Endpoint != "https://envaccount.r2.cloudflarestorage.com" {
		t.Errorf("unexpected endpoint %q", cfg.Storage.Endpoint)
	}
	if cfg.Storage.PublicBaseURL != "https://env-bucket.r2.dev" {
		t.Errorf("unexpected public base url %q", cfg.Storage.PublicBaseURL)
	}
	if cfg.Storage.AccessKeyID != "file-access" {
		t.Errorf("expected access key from file, got %q", cfg.Storage.AccessKeyID)
	}
	if err := cfg.RequireStorage(); err != nil {
		t.Errorf("RequireStorage: %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_gemini_api_key_here") {
		t.Fatalf("sample config missing placeholder key: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.DataDir, "noticiero") {
		t.Fatalf("expected data dir to contain noticiero, got %q", cfg.Paths.DataDir)
	}
	if cfg.TTS.MaleVoice != "Charon" || cfg.TTS.FemaleVoice != "Leda" {
		t.Fatalf("unexpected voices: %+v", cfg.TTS)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "openai"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown provider")
	}

	cfg = config.Default()
	cfg.Audio.Bitrate = "fast"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for malformed bitrate")
	}

	cfg = config.Default()
	cfg.Feeds.FetchTimeoutSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive fetch timeout")
	}

	cfg = config.Default()
	cfg.Anthropic.Temperature = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for temperature out of range")
	}

	cfg = config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestRequireGenerationHonoursProvider(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.APIKey = "gemini"
	cfg.TTS.APIKey = "gemini"
	if err := cfg.RequireGeneration(); err == nil {
		t.Fatal("expected anthropic key to be required")
	}
	cfg.Anthropic.APIKey = "claude"
	if err := cfg.RequireGeneration(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := config.Default()
	cfg.Broadcast.Timezone = "Not/AZone"
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC fallback, got %v", cfg.Location())
	}
}
