package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	TempDir  string `toml:"temp_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// LLM contains text generation settings for script drafting.
type LLM struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TextModel      string `toml:"text_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxAttempts    int    `toml:"max_attempts"`
}

// Anthropic contains settings for the alternative text provider.
type Anthropic struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
}

// TTS contains speech synthesis settings.
type TTS struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	MaleVoice      string `toml:"male_voice"`
	FemaleVoice    string `toml:"female_voice"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Audio contains transcoding settings.
type Audio struct {
	FFmpegBinary string `toml:"ffmpeg_binary"`
	Bitrate      string `toml:"bitrate"`
	SampleRate   int    `toml:"sample_rate"`
	Channels     int    `toml:"channels"`
	DebugDir     string `toml:"debug_dir"`
}

// Feeds contains RSS ingestion settings.
type Feeds struct {
	FreshnessHours      int    `toml:"freshness_hours"`
	FetchTimeoutSeconds int    `toml:"fetch_timeout_seconds"`
	UserAgent           string `toml:"user_agent"`
}

// Storage contains S3-compatible object storage settings (Cloudflare R2).
type Storage struct {
	AccountID           string `toml:"account_id"`
	AccessKeyID         string `toml:"access_key_id"`
	SecretAccessKey     string `toml:"secret_access_key"`
	Bucket              string `toml:"bucket"`
	Region              string `toml:"region"`
	Endpoint            string `toml:"endpoint"`
	PublicBaseURL       string `toml:"public_base_url"`
	SignedURLTTLSeconds int    `toml:"signed_url_ttl_seconds"`
}

// Broadcast seeds the persisted broadcast settings when the database is empty.
type Broadcast struct {
	ChannelName     string   `toml:"channel_name"`
	MalePresenter   string   `toml:"male_presenter"`
	FemalePresenter string   `toml:"female_presenter"`
	CensoredWords   []string `toml:"censored_words"`
	Timezone        string   `toml:"timezone"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the noticiero pipeline.
//
// Configuration sections by subsystem:
//   - Paths: data, log and temp directories plus the API bind address
//   - LLM: script drafting model and retry budget
//   - Anthropic: optional alternative drafting provider
//   - TTS: two-speaker speech synthesis
//   - Audio: ffmpeg transcoding
//   - Feeds: freshness window and fetch timeout
//   - Storage: R2 bucket credentials
//   - Broadcast: seed values for channel and presenters
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	LLM       LLM       `toml:"llm"`
	Anthropic Anthropic `toml:"anthropic"`
	TTS       TTS       `toml:"tts"`
	Audio     Audio     `toml:"audio"`
	Feeds     Feeds     `toml:"feeds"`
	Storage   Storage   `toml:"storage"`
	Broadcast Broadcast `toml:"broadcast"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("noticiero.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// The debug directory is best effort; a missing diagnostic copy never blocks publishing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.TempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Audio.DebugDir) != "" {
		_ = os.MkdirAll(c.Audio.DebugDir, 0o755)
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "noticiero.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "noticierod.lock")
}

// LogFilePath returns the daemon log file.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "noticiero.log")
}

// FFmpegBinary returns the ffmpeg executable name or path.
func (c *Config) FFmpegBinary() string {
	if strings.TrimSpace(c.Audio.FFmpegBinary) == "" {
		return defaultFFmpegBinary
	}
	return c.Audio.FFmpegBinary
}

// FreshnessWindow returns how far back a news item may be published and still be kept.
func (c *Config) FreshnessWindow() time.Duration {
	return time.Duration(c.Feeds.FreshnessHours) * time.Hour
}

// FetchTimeout bounds a single feed download.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Feeds.FetchTimeoutSeconds) * time.Second
}

// SignedURLTTL returns the lifetime of presigned storage URLs.
func (c *Config) SignedURLTTL() time.Duration {
	return time.Duration(c.Storage.SignedURLTTLSeconds) * time.Second
}

// Location returns the broadcast timezone used for noticiero titles, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Broadcast.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
