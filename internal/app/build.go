package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ent0n29/speakstream/internal/assistant"
	"github.com/ent0n29/speakstream/internal/brain"
	"github.com/ent0n29/speakstream/internal/config"
	"github.com/ent0n29/speakstream/internal/coordinator"
	"github.com/ent0n29/speakstream/internal/history"
	"github.com/ent0n29/speakstream/internal/httpapi"
	"github.com/ent0n29/speakstream/internal/interrupt"
	"github.com/ent0n29/speakstream/internal/listen"
	"github.com/ent0n29/speakstream/internal/observability"
	"github.com/ent0n29/speakstream/internal/speech"
)

type VoiceInfo struct {
	Provider string
	Detail   string
}

type BuildResult struct {
	Config    config.Config
	API       *httpapi.Server
	Assistant *assistant.Service
	Speech    *speech.Queue
	Metrics   *observability.Metrics
	Voice     VoiceInfo

	// Cleanup should be called on shutdown to release external resources (DB, speech clients, etc).
	Cleanup func() error
}

// Build wires the service graph. The speech worker is started on ctx.
func Build(ctx context.Context, cfg config.Config, logger *zap.SugaredLogger) (*BuildResult, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	store, err := history.NewStore(ctx, cfg.HistoryDSN)
	if err != nil {
		return nil, fmt.Errorf("history store init failed: %w", err)
	}

	adapter, err := brain.NewAdapter(brain.Config{
		Mode:             cfg.BrainProvider,
		OpenAIKey:        cfg.OpenAIAPIKey,
		OpenAIModel:      cfg.OpenAIModel,
		HTTPURL:          cfg.BrainHTTPURL,
		HTTPStreamStrict: cfg.BrainHTTPStrict,
		HTTPTimeout:      cfg.BrainHTTPTimeout,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("brain adapter init failed: %w", err)
	}
	searcher := brain.NewSearcher(brain.NewSearchClient(cfg.SearchAPIKey, cfg.SearchURL, cfg.SearchResults), adapter)
	router := brain.NewRouter(cfg.RouterSearchKeywords, adapter, searcher)

	voiceSetup, err := resolveVoiceProviders(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	translator := resolveTranslator(cfg, adapter)

	queue := speech.NewQueue(voiceSetup.synth, voiceSetup.player, interrupt.New(), speech.QueueOptions{
		MaxChunkChars: cfg.SpeechMaxChunkChars,
		Logger:        logger.Named("speech"),
		Metrics:       metrics,
	})
	queue.Start(ctx)

	output := coordinator.New(queue, interrupt.New(), coordinator.Options{
		WordDelay: cfg.StreamWordDelay,
		Logger:    logger.Named("coordinator"),
		Metrics:   metrics,
	})

	svc := assistant.NewService(assistant.Config{
		Username:      cfg.Username,
		AssistantName: cfg.AssistantName,
		HistoryLimit:  cfg.HistoryLimit,
		STTLanguage:   cfg.STTLanguage,
		STTTimeout:    cfg.STTTimeout,
		TranslateTo:   cfg.TranslateTarget,
	}, assistant.Deps{
		Replier:    router,
		Output:     output,
		Store:      store,
		Recognizer: voiceSetup.recognizer,
		Translator: translator,
		Logger:     logger.Named("assistant"),
		Metrics:    metrics,
	})

	api := httpapi.New(svc, metrics, httpapi.Options{
		AllowAnyOrigin: cfg.AllowAnyOrigin,
		Providers: map[string]string{
			"speech":  voiceSetup.resolvedProvider,
			"audio":   cfg.AudioOutput,
			"brain":   providerName(adapter),
			"history": storeMode(cfg.HistoryDSN),
		},
		Logger: logger.Named("http"),
	})

	cleanup := func() error {
		var errs []string
		queue.Close()
		if voiceSetup.cleanup != nil {
			if err := voiceSetup.cleanup(); err != nil {
				errs = append(errs, err.Error())
			}
		}
		if err := store.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:    cfg,
		API:       api,
		Assistant: svc,
		Speech:    queue,
		Metrics:   metrics,
		Voice: VoiceInfo{
			Provider: voiceSetup.resolvedProvider,
			Detail:   voiceSetup.detail,
		},
		Cleanup: cleanup,
	}, nil
}

// resolveTranslator translates recognized speech through the brain unless the
// input language already matches the target. The mock brain cannot translate.
func resolveTranslator(cfg config.Config, adapter brain.Adapter) listen.Translator {
	if _, ok := adapter.(*brain.MockAdapter); ok {
		return listen.PassthroughTranslator{}
	}
	if cfg.TranslateTarget == "" || strings.HasPrefix(strings.ToLower(cfg.STTLanguage), strings.ToLower(cfg.TranslateTarget)) {
		return listen.PassthroughTranslator{}
	}
	return listen.NewLLMTranslator(adapter)
}

func providerName(a brain.Adapter) string {
	switch a.(type) {
	case *brain.OpenAIAdapter:
		return "openai"
	case *brain.HTTPAdapter:
		return "http"
	case *brain.FallbackAdapter:
		return "openai+http"
	case *brain.MockAdapter:
		return "mock"
	default:
		return fmt.Sprintf("%T", a)
	}
}

func storeMode(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return "memory"
	case strings.HasPrefix(dsn, "sqlite:"), strings.HasSuffix(dsn, ".db"):
		return "sqlite"
	default:
		return "postgres"
	}
}
