package config

const (
	defaultConfigPath          = "~/.config/noticiero/config.toml"
	defaultDataDir             = "~/.local/share/noticiero"
	defaultLogDir              = "~/.local/share/noticiero/logs"
	defaultTempDir             = "~/.cache/noticiero/tmp"
	defaultDebugDir            = "~/.cache/noticiero/debug"
	defaultAPIBind             = "127.0.0.1:7490"
	defaultLLMProvider         = "gemini"
	defaultGeminiBaseURL       = "https://generativelanguage.googleapis.com/v1beta"
	defaultTextModel           = "gemini-2.5-flash"
	defaultTTSModel            = "gemini-2.5-pro-preview-tts"
	defaultMaleVoice           = "Charon"
	defaultFemaleVoice         = "Leda"
	defaultLLMTimeoutSeconds   = 120
	defaultTTSTimeoutSeconds   = 300
	defaultMaxAttempts         = 3
	defaultAnthropicModel      = "claude-sonnet-4-5"
	defaultAnthropicMaxTokens  = 8192
	defaultAnthropicTemp       = 0.7
	defaultFFmpegBinary        = "ffmpeg"
	defaultBitrate             = "128k"
	defaultSampleRate          = 24000
	defaultChannels            = 1
	defaultFreshnessHours      = 24
	defaultFetchTimeoutSeconds = 30
	defaultUserAgent           = "noticiero/1.0 (+rss)"
	defaultBucket              = "noticieros"
	defaultRegion              = "auto"
	defaultSignedURLTTLSeconds = 3600
	defaultChannelName         = "Noticiero IA"
	defaultMalePresenter       = "Carlos"
	defaultFemalePresenter     = "Lucia"
	defaultTimezone            = "America/Mexico_City"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			TempDir: defaultTempDir,
			APIBind: defaultAPIBind,
		},
		LLM: LLM{
			Provider:       defaultLLMProvider,
			BaseURL:        defaultGeminiBaseURL,
			TextModel:      defaultTextModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			MaxAttempts:    defaultMaxAttempts,
		},
		Anthropic: Anthropic{
			Model:       defaultAnthropicModel,
			MaxTokens:   defaultAnthropicMaxTokens,
			Temperature: defaultAnthropicTemp,
		},
		TTS: TTS{
			BaseURL:        defaultGeminiBaseURL,
			Model:          defaultTTSModel,
			MaleVoice:      defaultMaleVoice,
			FemaleVoice:    defaultFemaleVoice,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Audio: Audio{
			FFmpegBinary: defaultFFmpegBinary,
			Bitrate:      defaultBitrate,
			SampleRate:   defaultSampleRate,
			Channels:     defaultChannels,
			DebugDir:     defaultDebugDir,
		},
		Feeds: Feeds{
			FreshnessHours:      defaultFreshnessHours,
			FetchTimeoutSeconds: defaultFetchTimeoutSeconds,
			UserAgent:           defaultUserAgent,
		},
		Storage: Storage{
			Bucket:              defaultBucket,
			Region:              defaultRegion,
			SignedURLTTLSeconds: defaultSignedURLTTLSeconds,
		},
		Broadcast: Broadcast{
			ChannelName:     defaultChannelName,
			MalePresenter:   defaultMalePresenter,
			FemalePresenter: defaultFemalePresenter,
			Timezone:        defaultTimezone,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
