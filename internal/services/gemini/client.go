package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultHTTPTimeout = 120 * time.Second
)

// ErrEmptyResponse marks a successful HTTP exchange whose payload carried no usable content.
var ErrEmptyResponse = errors.New("empty model response")

// Config captures the runtime settings required to talk to a Gemini model.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client wraps the Gemini generateContent API. It performs exactly one HTTP
// exchange per call; callers decide whether to retry.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a Gemini client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	return client
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// SpeakerVoice maps a speaker label used in the script to a prebuilt voice.
type SpeakerVoice struct {
	Speaker string
	Voice   string
}

// Speech is the inline audio returned by a TTS model.
type Speech struct {
	MimeType string
	// Data is the base64 encoded audio payload exactly as returned.
	Data string
}

// StatusError reports a non-2xx response from the API.
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini request: http %d: %s", e.StatusCode, summarizePayloadSnippet(e.Body))
}

// RetryDelay returns the wait requested by the Retry-After header.
func (e *StatusError) RetryDelay() time.Duration { return e.RetryAfter }

type emptyContentError struct {
	Op           string
	FinishReason string
	BlockReason  string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf(
		"%s: empty content (finish_reason=%q, block_reason=%q, response_snippet=%s)",
		e.Op,
		e.FinishReason,
		e.BlockReason,
		e.Snippet,
	)
}

func (e *emptyContentError) Unwrap() error { return ErrEmptyResponse }

// GenerateText sends a single-turn prompt and returns the concatenated text parts.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("gemini text: prompt required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("gemini text: api key required")
	}
	payload := generateRequest{Contents: userContent(prompt)}
	resp, body, err := c.send(ctx, payload)
	if err != nil {
		return "", err
	}
	text, finishReason := extractText(resp)
	if text == "" {
		return "", &emptyContentError{
			Op:           "gemini text",
			FinishReason: finishReason,
			BlockReason:  blockReason(resp),
			Snippet:      summarizePayloadSnippet(string(body)),
		}
	}
	return text, nil
}

// GenerateSpeech asks a TTS model to render prompt with one voice per speaker.
func (c *Client) GenerateSpeech(ctx context.Context, prompt string, speakers []SpeakerVoice) (Speech, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Speech{}, errors.New("gemini speech: prompt required")
	}
	if c.cfg.APIKey == "" {
		return Speech{}, errors.New("gemini speech: api key required")
	}
	voices := make([]speakerVoiceConfig, 0, len(speakers))
	for _, sv := range speakers {
		voices = append(voices, speakerVoiceConfig{
			Speaker:     sv.Speaker,
			VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: sv.Voice}},
		})
	}
	payload := generateRequest{
		Contents: userContent(prompt),
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				MultiSpeakerVoiceConfig: &multiSpeakerVoiceConfig{SpeakerVoiceConfigs: voices},
			},
		},
	}
	resp, body, err := c.send(ctx, payload)
	if err != nil {
		return Speech{}, err
	}
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && strings.TrimSpace(part.InlineData.Data) != "" {
				return Speech{MimeType: part.InlineData.MimeType, Data: part.InlineData.Data}, nil
			}
		}
	}
	_, finishReason := extractText(resp)
	return Speech{}, &emptyContentError{
		Op:           "gemini speech",
		FinishReason: finishReason,
		BlockReason:  blockReason(resp),
		Snippet:      summarizePayloadSnippet(string(body)),
	}
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	MultiSpeakerVoiceConfig *multiSpeakerVoiceConfig `json:"multiSpeakerVoiceConfig,omitempty"`
}

type multiSpeakerVoiceConfig struct {
	SpeakerVoiceConfigs []speakerVoiceConfig `json:"speakerVoiceConfigs"`
}

type speakerVoiceConfig struct {
	Speaker     string      `json:"speaker"`
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func userContent(prompt string) []content {
	return []content{{Role: "user", Parts: []part{{Text: prompt}}}}
}

func extractText(resp generateResponse) (string, string) {
	var finishReason string
	for _, candidate := range resp.Candidates {
		if finishReason == "" {
			finishReason = strings.TrimSpace(candidate.FinishReason)
		}
		var sb strings.Builder
		for _, p := range candidate.Content.Parts {
			sb.WriteString(p.Text)
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			return text, finishReason
		}
	}
	return "", finishReason
}

func blockReason(resp generateResponse) string {
	if resp.PromptFeedback == nil {
		return ""
	}
	return resp.PromptFeedback.BlockReason
}

func (c *Client) send(ctx context.Context, payload generateRequest) (generateResponse, []byte, error) {
	var decoded generateResponse
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "models", c.cfg.Model+":generateContent")
	if err != nil {
		return decoded, nil, fmt.Errorf("gemini request: build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return decoded, nil, fmt.Errorf("gemini request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return decoded, nil, fmt.Errorf("gemini request: new request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decoded, nil, fmt.Errorf("gemini request: http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decoded, nil, fmt.Errorf("gemini request: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return decoded, body, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return decoded, body, fmt.Errorf("gemini request: decode response: %w", err)
	}
	if decoded.Error != nil {
		return decoded, body, fmt.Errorf("gemini request: api error %d: %s", decoded.Error.Code, strings.TrimSpace(decoded.Error.Message))
	}
	return decoded, body, nil
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
