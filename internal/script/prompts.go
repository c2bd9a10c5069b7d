package script

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"noticiero/internal/feeds"
	"noticiero/internal/store"
)

//go:embed prompts.yaml
var promptsYAML []byte

const (
	placeholderChannel = "__CHANNEL_NAME__"
	placeholderMale    = "__MALE_PRESENTER__"
	placeholderFemale  = "__FEMALE_PRESENTER__"
)

// Prompts holds the fixed template fragments used to build a bulletin.
type Prompts struct {
	Welcome  []string `yaml:"welcome"`
	Farewell []string `yaml:"farewell"`
	Script   struct {
		Context      []string `yaml:"context"`
		Instructions []string `yaml:"instructions"`
	} `yaml:"script"`
	Audio struct {
		Instructions []string `yaml:"instructions"`
	} `yaml:"audio"`
}

// LoadPrompts decodes the embedded templates.
func LoadPrompts() (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(promptsYAML, &p); err != nil {
		return nil, fmt.Errorf("decode prompts: %w", err)
	}
	if len(p.Welcome) == 0 || len(p.Farewell) == 0 || len(p.Script.Instructions) == 0 {
		return nil, fmt.Errorf("decode prompts: welcome, farewell and script instructions are required")
	}
	return &p, nil
}

// WelcomeText renders the opening lines.
func (p *Prompts) WelcomeText(cfg store.BroadcastConfig) string {
	return substitute(strings.Join(p.Welcome, "\n\n"), cfg)
}

// FarewellText renders the closing lines.
func (p *Prompts) FarewellText(cfg store.BroadcastConfig) string {
	return substitute(strings.Join(p.Farewell, "\n\n"), cfg)
}

// AudioInstruction renders the preamble sent ahead of the script to the
// speech model.
func (p *Prompts) AudioInstruction(cfg store.BroadcastConfig) string {
	return substitute(strings.Join(p.Audio.Instructions, "\n"), cfg)
}

// BodyPrompt builds the text-generation prompt for items.
func (p *Prompts) BodyPrompt(items []feeds.NewsItem, cfg store.BroadcastConfig) string {
	blocks := make([]string, 0, len(items))
	for _, item := range items {
		blocks = append(blocks, fmt.Sprintf("{\n  \"titulo\": %s\n  \"contenido\": %s\n  \"fuente\": %s\n}",
			item.Title, item.Content, item.Source))
	}
	return strings.Join([]string{
		substitute(strings.Join(p.Script.Context, "\n"), cfg),
		substitute(strings.Join(p.Script.Instructions, "\n"), cfg),
		strings.Join(blocks, "\n\n"),
	}, "\n\n")
}

func substitute(text string, cfg store.BroadcastConfig) string {
	return strings.NewReplacer(
		placeholderChannel, cfg.ChannelName,
		placeholderMale, cfg.MalePresenter,
		placeholderFemale, cfg.FemalePresenter,
	).Replace(text)
}
