package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"noticiero/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.TempDir = filepath.Join(base, "tmp")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Audio.DebugDir = filepath.Join(base, "debug")
	cfgVal.LLM.APIKey = "test"
	cfgVal.TTS.APIKey = "test"
	cfgVal.Storage.AccountID = "test-account"
	cfgVal.Storage.AccessKeyID = "test-access"
	cfgVal.Storage.SecretAccessKey = "test-secret"
	cfgVal.Storage.Endpoint = "https://test-account.r2.cloudflarestorage.com"
	cfgVal.Storage.PublicBaseURL = "https://noticieros.r2.dev"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAPIToken sets the bearer token required by the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithBroadcast overrides the settings seed.
func WithBroadcast(channel, male, female string, censored ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Broadcast.ChannelName = channel
		b.cfg.Broadcast.MalePresenter = male
		b.cfg.Broadcast.FemalePresenter = female
		b.cfg.Broadcast.CensoredWords = censored
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg"}
		}
		binDir := StubBinaries(b.t, filepath.Join(b.baseDir, "bin"), "#!/bin/sh\nexit 0\n", names...)
		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// StubBinaries writes an executable shell script named after each entry in
// names into dir and returns dir.
func StubBinaries(t testing.TB, dir, script string, names ...string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	for _, name := range names {
		target := filepath.Join(dir, name)
		if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	return dir
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
