package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"noticiero/internal/config"
	"noticiero/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	for _, key := range []string{"GEMINI_API_KEY", "GEMINI_TTS_API_KEY", "ANTHROPIC_API_KEY", "CLOUDFLARE_ACCOUNT_ID", "R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY"} {
		t.Setenv(key, "")
	}
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedBinaries(),
		testsupport.WithBroadcast("Noticiero IA", "Carlos", "Lucia", "banco"),
	)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	words := make([]string, 0, len(cfg.Broadcast.CensoredWords))
	for _, w := range cfg.Broadcast.CensoredWords {
		words = append(words, fmt.Sprintf("%q", w))
	}
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
temp_dir = %q
api_bind = %q

[audio]
debug_dir = %q

[broadcast]
channel_name = %q
male_presenter = %q
female_presenter = %q
censored_words = [%s]
`,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.TempDir,
		cfg.Paths.APIBind,
		cfg.Audio.DebugDir,
		cfg.Broadcast.ChannelName,
		cfg.Broadcast.MalePresenter,
		cfg.Broadcast.FemalePresenter,
		strings.Join(words, ", "),
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
