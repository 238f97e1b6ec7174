package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	ttspb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"github.com/ent0n29/speakstream/internal/audio"
)

// GoogleConfig selects the Cloud Text-to-Speech voice.
type GoogleConfig struct {
	Language     string
	Voice        string
	SpeakingRate float64
	Pitch        float64
}

// GoogleSynthesizer synthesizes MP3 clips with Google Cloud Text-to-Speech.
// Credentials come from Application Default Credentials.
type GoogleSynthesizer struct {
	cfg GoogleConfig

	mu     sync.Mutex
	client *texttospeech.Client
}

func NewGoogleSynthesizer(cfg GoogleConfig) *GoogleSynthesizer {
	if strings.TrimSpace(cfg.Language) == "" {
		cfg.Language = "en-US"
	}
	return &GoogleSynthesizer{cfg: cfg}
}

func (g *GoogleSynthesizer) Name() string { return "google" }

func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return nil, err
	}

	req := &ttspb.SynthesizeSpeechRequest{
		Input: &ttspb.SynthesisInput{
			InputSource: &ttspb.SynthesisInput_Text{Text: text},
		},
		Voice: &ttspb.VoiceSelectionParams{
			LanguageCode: g.cfg.Language,
			Name:         g.cfg.Voice,
		},
		AudioConfig: &ttspb.AudioConfig{
			AudioEncoding: ttspb.AudioEncoding_MP3,
			SpeakingRate:  g.cfg.SpeakingRate,
			Pitch:         g.cfg.Pitch,
		},
	}
	resp, err := client.SynthesizeSpeech(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: google: %v", ErrSynthesis, err)
	}
	if len(resp.GetAudioContent()) == 0 {
		return nil, fmt.Errorf("%w: google: empty audio", ErrSynthesis)
	}
	return audio.NewMemoryClip("mp3", resp.GetAudioContent()), nil
}

// Close releases the underlying gRPC connection.
func (g *GoogleSynthesizer) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}

func (g *GoogleSynthesizer) getClient(ctx context.Context) (*texttospeech.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: google client: %v", ErrSynthesis, err)
	}
	g.client = client
	return client, nil
}
