package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"noticiero/internal/config"
	"noticiero/internal/logging"
	"noticiero/internal/pipeline"
	"noticiero/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	store  *store.Store
	logger *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// log returns a logger writing to stderr and the log file, so command output
// on stdout stays machine readable.
func (c *commandContext) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return logging.NewNop()
	}
	logger, err := logging.New(logging.ConfigOptions(cfg, "stderr"))
	if err != nil {
		return logging.NewNop()
	}
	c.logger = logger
	return logger
}

func (c *commandContext) openStore() (*store.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	c.store = st
	return st, nil
}

// orchestrator builds the full pipeline. It requires model and storage
// credentials, unlike the store-only commands.
func (c *commandContext) orchestrator() (*pipeline.Orchestrator, error) {
	st, err := c.openStore()
	if err != nil {
		return nil, err
	}
	return pipeline.Build(c.config, st, c.log())
}

func (c *commandContext) close() {
	if c.store != nil {
		_ = c.store.Close()
		c.store = nil
	}
}
