package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the assistant service.
type Config struct {
	BindAddr         string        `env:"APP_BIND_ADDR" envDefault:":5000"`
	ShutdownTimeout  time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	MetricsNamespace string        `env:"APP_METRICS_NAMESPACE" envDefault:"speakstream"`
	AllowAnyOrigin   bool          `env:"APP_ALLOW_ANY_ORIGIN" envDefault:"false"`

	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`

	Username      string `env:"USERNAME" envDefault:"User"`
	AssistantName string `env:"ASSISTANT_NAME" envDefault:"SmartAssistant"`

	StreamWordDelay     time.Duration `env:"STREAM_WORD_DELAY" envDefault:"500ms"`
	SpeechMaxChunkChars int           `env:"SPEECH_MAX_CHUNK_CHARS" envDefault:"250"`

	// SpeechProvider is one of auto, google, exec or mock.
	SpeechProvider    string  `env:"SPEECH_PROVIDER" envDefault:"auto"`
	AssistantVoice    string  `env:"ASSISTANT_VOICE" envDefault:"en-US-JennyNeural"`
	SpeechExecCommand string  `env:"SPEECH_EXEC_COMMAND"`
	SpeechExecFormat  string  `env:"SPEECH_EXEC_FORMAT" envDefault:"wav"`
	GoogleTTSLanguage string  `env:"GOOGLE_TTS_LANGUAGE" envDefault:"en-US"`
	GoogleTTSVoice    string  `env:"GOOGLE_TTS_VOICE"`
	GoogleTTSRate     float64 `env:"GOOGLE_TTS_SPEAKING_RATE" envDefault:"1.0"`
	AudioOutput       string  `env:"AUDIO_OUTPUT" envDefault:"speaker"`
	AudioVolumeDB     float64 `env:"AUDIO_VOLUME_DB" envDefault:"0"`

	// BrainProvider is one of auto, openai, http or mock.
	BrainProvider    string        `env:"BRAIN_PROVIDER" envDefault:"auto"`
	OpenAIAPIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIModel      string        `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	BrainHTTPURL     string        `env:"BRAIN_HTTP_URL"`
	BrainHTTPStrict  bool          `env:"BRAIN_HTTP_STREAM_STRICT" envDefault:"false"`
	BrainHTTPTimeout time.Duration `env:"BRAIN_HTTP_TIMEOUT" envDefault:"45s"`

	SearchAPIKey         string   `env:"SEARCH_API_KEY"`
	SearchURL            string   `env:"SEARCH_URL" envDefault:"https://google.serper.dev/search"`
	SearchResults        int      `env:"SEARCH_RESULTS" envDefault:"5"`
	RouterSearchKeywords []string `env:"ROUTER_SEARCH_KEYWORDS" envSeparator:";" envDefault:"search;google;latest;news;find"`

	// STTCommand empty selects the mock recognizer.
	STTCommand      string        `env:"STT_COMMAND"`
	STTLanguage     string        `env:"STT_LANGUAGE" envDefault:"hi-IN"`
	STTTimeout      time.Duration `env:"STT_TIMEOUT" envDefault:"10s"`
	TranslateTarget string        `env:"TRANSLATE_TARGET" envDefault:"en"`

	// HistoryDSN empty keeps history in memory.
	HistoryDSN   string `env:"HISTORY_DSN"`
	HistoryLimit int    `env:"HISTORY_LIMIT" envDefault:"200"`
}

// Load reads .env (when present) and the environment, then validates.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv parses the process environment without touching .env files.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.SpeechProvider = strings.ToLower(strings.TrimSpace(c.SpeechProvider))
	c.BrainProvider = strings.ToLower(strings.TrimSpace(c.BrainProvider))
	c.AudioOutput = strings.ToLower(strings.TrimSpace(c.AudioOutput))
	c.OpenAIAPIKey = strings.TrimSpace(c.OpenAIAPIKey)
	c.SearchAPIKey = strings.TrimSpace(c.SearchAPIKey)
	c.BrainHTTPURL = strings.TrimSpace(c.BrainHTTPURL)
	c.HistoryDSN = strings.TrimSpace(c.HistoryDSN)

	keywords := c.RouterSearchKeywords[:0]
	for _, kw := range c.RouterSearchKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	c.RouterSearchKeywords = keywords
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	switch c.SpeechProvider {
	case "auto", "google", "exec", "mock":
	default:
		return fmt.Errorf("SPEECH_PROVIDER must be one of auto|google|exec|mock, got %q", c.SpeechProvider)
	}
	if c.SpeechProvider == "exec" && strings.TrimSpace(c.SpeechExecCommand) == "" {
		return fmt.Errorf("SPEECH_EXEC_COMMAND is required when SPEECH_PROVIDER=exec")
	}
	switch c.BrainProvider {
	case "auto", "openai", "http", "mock":
	default:
		return fmt.Errorf("BRAIN_PROVIDER must be one of auto|openai|http|mock, got %q", c.BrainProvider)
	}
	if c.BrainProvider == "openai" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when BRAIN_PROVIDER=openai")
	}
	if c.BrainProvider == "http" && c.BrainHTTPURL == "" {
		return fmt.Errorf("BRAIN_HTTP_URL is required when BRAIN_PROVIDER=http")
	}
	switch c.AudioOutput {
	case "speaker", "null":
	default:
		return fmt.Errorf("AUDIO_OUTPUT must be speaker or null, got %q", c.AudioOutput)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.StreamWordDelay < 0 {
		return fmt.Errorf("STREAM_WORD_DELAY must be >= 0")
	}
	if c.SpeechMaxChunkChars < 20 {
		return fmt.Errorf("SPEECH_MAX_CHUNK_CHARS must be at least 20")
	}
	if c.GoogleTTSRate < 0.25 || c.GoogleTTSRate > 4 {
		return fmt.Errorf("GOOGLE_TTS_SPEAKING_RATE must be within [0.25, 4]")
	}
	if c.SearchResults <= 0 || c.SearchResults > 20 {
		return fmt.Errorf("SEARCH_RESULTS must be within [1, 20]")
	}
	if c.STTTimeout < time.Second {
		return fmt.Errorf("STT_TIMEOUT must be at least 1s")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive")
	}
	return nil
}
