// Package script drafts the two-presenter bulletin text from filtered news.
package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"noticiero/internal/feeds"
	"noticiero/internal/logging"
	"noticiero/internal/retry"
	"noticiero/internal/services"
	"noticiero/internal/store"
)

const (
	defaultAttempts = 3
	titleLayout     = "02/01/2006, 15:04:05"
)

// errEmptyText marks a generation attempt that returned only whitespace.
var errEmptyText = errors.New("model returned no text")

// TextGenerator produces free text for a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// DraftStore persists new drafts.
type DraftStore interface {
	CreateNoticiero(ctx context.Context, n *store.Noticiero) error
}

// Options tune a Generator.
type Options struct {
	MaxAttempts int
	Location    *time.Location
	// Policy overrides the retry policy built from MaxAttempts.
	Policy *retry.Policy
	Now    func() time.Time
}

// Generator turns news items into a persisted PENDING noticiero.
type Generator struct {
	text    TextGenerator
	drafts  DraftStore
	prompts *Prompts
	policy  retry.Policy
	loc     *time.Location
	now     func() time.Time
	logger  *slog.Logger
}

// NewGenerator wires a generator around text and drafts.
func NewGenerator(text TextGenerator, drafts DraftStore, prompts *Prompts, opts Options, logger *slog.Logger) *Generator {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	policy := retry.DefaultPolicy(attempts)
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Generator{
		text:    text,
		drafts:  drafts,
		prompts: prompts,
		policy:  policy,
		loc:     loc,
		now:     now,
		logger:  logging.NewComponentLogger(logger, "script"),
	}
}

// Title formats the bulletin title in the broadcast timezone.
func Title(channel string, at time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return channel + " - " + at.In(loc).Format(titleLayout)
}

// GenerateDraft writes the bulletin script for items and persists it as
// PENDING. Nothing is persisted when generation fails.
func (g *Generator) GenerateDraft(ctx context.Context, items []feeds.NewsItem, cfg store.BroadcastConfig) (*store.Noticiero, error) {
	cfg = cfg.Normalized()
	if cfg.ChannelName == "" || cfg.MalePresenter == "" || cfg.FemalePresenter == "" {
		return nil, services.Wrap(services.ErrConfiguration, "script", "generate draft",
			"channel name and both presenters must be configured", nil)
	}
	if g.text == nil {
		return nil, services.Wrap(services.ErrConfiguration, "script", "generate draft", "no text generator configured", nil)
	}

	logger := logging.WithContext(ctx, g.logger)
	prompt := g.prompts.BodyPrompt(items, cfg)
	logger.Info("drafting noticiero",
		logging.Int("items", len(items)),
		logging.Int("prompt_chars", len(prompt)),
	)

	policy := g.policy
	policy.OnRetry = func(attempt int, err error) {
		logging.WarnWithContext(logger, "text generation attempt failed", "script_generation_retry",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", policy.MaxAttempts),
			logging.Error(err),
			logging.String(logging.FieldImpact, "retrying with the same prompt"),
		)
	}
	body, err := retry.Do(ctx, policy, func(ctx context.Context, _ int) (string, error) {
		text, err := g.text.GenerateText(ctx, prompt)
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return "", errEmptyText
		}
		return text, nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrGeneration, "script", "generate text",
			fmt.Sprintf("text generation failed after %d attempts", policy.MaxAttempts), err)
	}

	now := g.now()
	n := &store.Noticiero{
		Title:           Title(cfg.ChannelName, now, g.loc),
		Guion:           strings.Join([]string{g.prompts.WelcomeText(cfg), body, g.prompts.FarewellText(cfg)}, "\n\n"),
		State:           store.StatePending,
		PublicationDate: now.UTC(),
	}
	if err := g.drafts.CreateNoticiero(ctx, n); err != nil {
		return nil, fmt.Errorf("persist draft: %w", err)
	}
	logger.Info("noticiero drafted",
		logging.String(logging.FieldNoticieroID, n.ID),
		logging.String("title", n.Title),
		logging.Int("guion_chars", len(n.Guion)),
	)
	return n, nil
}
