package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/ent0n29/speakstream/internal/audio"
	"github.com/ent0n29/speakstream/internal/config"
	"github.com/ent0n29/speakstream/internal/listen"
	"github.com/ent0n29/speakstream/internal/speech"
)

type voiceSetup struct {
	synth            speech.Synthesizer
	player           audio.Player
	recognizer       listen.Recognizer
	resolvedProvider string
	detail           string
	cleanup          func() error
}

func resolveVoiceProviders(cfg config.Config) (voiceSetup, error) {
	setup, err := resolveSynthesizer(cfg)
	if err != nil {
		return voiceSetup{}, err
	}

	switch cfg.AudioOutput {
	case "null":
		setup.player = audio.NewNullPlayer()
	default:
		setup.player = audio.NewSpeakerPlayer(cfg.AudioVolumeDB)
	}

	if strings.TrimSpace(cfg.STTCommand) != "" {
		rec, err := listen.NewExecRecognizer(cfg.STTCommand)
		if err != nil {
			return voiceSetup{}, fmt.Errorf("stt recognizer init failed: %w", err)
		}
		setup.recognizer = rec
	} else {
		setup.recognizer = listen.MockRecognizer{}
	}
	return setup, nil
}

func resolveSynthesizer(cfg config.Config) (voiceSetup, error) {
	tryGoogle := func(force bool) (voiceSetup, bool) {
		if !force && !googleCredentialsPresent() {
			return voiceSetup{}, false
		}
		g := speech.NewGoogleSynthesizer(speech.GoogleConfig{
			Language:     cfg.GoogleTTSLanguage,
			Voice:        cfg.GoogleTTSVoice,
			SpeakingRate: cfg.GoogleTTSRate,
		})
		return voiceSetup{
			synth:            g,
			resolvedProvider: "google",
			detail:           "google cloud text-to-speech",
			cleanup:          g.Close,
		}, true
	}

	tryExec := func() (voiceSetup, bool, error) {
		if strings.TrimSpace(cfg.SpeechExecCommand) == "" {
			return voiceSetup{}, false, nil
		}
		e, err := speech.NewExecSynthesizer(cfg.SpeechExecCommand, cfg.AssistantVoice, cfg.SpeechExecFormat)
		if err != nil {
			return voiceSetup{}, false, fmt.Errorf("exec synthesizer init failed: %w", err)
		}
		return voiceSetup{
			synth:            e,
			resolvedProvider: "exec",
			detail:           fmt.Sprintf("exec (voice %s)", cfg.AssistantVoice),
		}, true, nil
	}

	mock := voiceSetup{
		synth:            speech.NewMockSynthesizer(),
		resolvedProvider: "mock",
		detail:           "mock",
	}

	switch cfg.SpeechProvider {
	case "google":
		setup, _ := tryGoogle(true)
		return setup, nil
	case "exec":
		setup, ok, err := tryExec()
		if err != nil {
			return voiceSetup{}, err
		}
		if !ok {
			return voiceSetup{}, fmt.Errorf("SPEECH_PROVIDER=exec but SPEECH_EXEC_COMMAND is not set")
		}
		return setup, nil
	case "mock":
		return mock, nil
	case "auto", "":
		googleSetup, hasGoogle := tryGoogle(false)
		execSetup, hasExec, err := tryExec()
		if err != nil {
			return voiceSetup{}, err
		}
		switch {
		case hasGoogle && hasExec:
			return voiceSetup{
				synth:            speech.NewFailoverSynthesizer(googleSetup.synth, execSetup.synth),
				resolvedProvider: "google",
				detail:           "google cloud text-to-speech (automatic exec fallback)",
				cleanup:          googleSetup.cleanup,
			}, nil
		case hasGoogle:
			return googleSetup, nil
		case hasExec:
			return execSetup, nil
		default:
			mock.detail = "mock (no speech provider configured)"
			return mock, nil
		}
	default:
		return voiceSetup{}, fmt.Errorf("unsupported SPEECH_PROVIDER %q", cfg.SpeechProvider)
	}
}

func googleCredentialsPresent() bool {
	return strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")) != ""
}
